package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/sceneeditor/internal/database"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotInitialized(t *testing.T) {
	b := New(Dependencies{DBLogger: zerolog.Nop()})
	ctx := context.Background()

	assert.Error(t, b.Save(ctx, core.NewDocument(core.Scene{Name: "x"})))
	_, err := b.Load(ctx, "x")
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}

// A SQLite connection stands in for Postgres; the backend only cares that it
// gets a *gorm.DB.
func TestInit_InjectedDB(t *testing.T) {
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "pg.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, DBLogger: zerolog.Nop()})
	require.NoError(t, b.Init())
	defer b.Close()

	ctx := context.Background()
	doc := core.NewDocument(core.Scene{
		Name:           "Op Thunder",
		CenterLon:      3,
		CenterX:        500000,
		UTMZone:        31,
		RadiusMeters:   500,
		StartTimestamp: 1700000000,
		EndTimestamp:   1700003600,
		CreatedAt:      time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
	})
	require.NoError(t, b.Save(ctx, doc))

	got, err := b.Load(ctx, "Op Thunder")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}
