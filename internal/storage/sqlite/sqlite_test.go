package sqlitestorage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/OCAP2/sceneeditor/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.db")
	b, err := New(config.SQLiteConfig{Path: path}, zerolog.Nop(), nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, path, b.Path())
	require.NoError(t, b.Init())

	list, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNew_BadPath(t *testing.T) {
	_, err := New(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "missing", "dir", "scenes.db")}, zerolog.Nop(), nil)
	assert.Error(t, err)
}
