// Package sqlitestorage stores scenes in a SQLite database file, or in memory
// when no path is configured. It wraps the GORM backend via composition; the
// only SQLite-specific concern is opening the connection.
package sqlitestorage

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/sceneeditor/internal/config"
	"github.com/OCAP2/sceneeditor/internal/database"
	gormstorage "github.com/OCAP2/sceneeditor/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg config.SQLiteConfig
}

// New opens the SQLite database. Tables are created by Init.
func New(cfg config.SQLiteConfig, dbLog zerolog.Logger, logger *slog.Logger) (*Backend, error) {
	manager := database.NewManager(dbLog)
	if err := manager.ConnectSqlite(cfg.Path); err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:     manager.DB,
			Logger: logger,
		}),
		cfg:     cfg,
	}, nil
}

// Path is the database file, empty when in memory.
func (b *Backend) Path() string {
	return b.cfg.Path
}
