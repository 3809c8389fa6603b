package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraylogWriter(t *testing.T) {
	// UDP needs no listener to dial
	w, err := NewGraylogWriter("127.0.0.1:12201", "sceneeditor")
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "sceneeditor", w.Facility)
}

func TestNewGraylogWriter_BadAddress(t *testing.T) {
	_, err := NewGraylogWriter("not an address", "sceneeditor")
	assert.Error(t, err)
}
