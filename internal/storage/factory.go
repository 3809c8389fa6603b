package storage

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/sceneeditor/internal/config"
	archivestorage "github.com/OCAP2/sceneeditor/internal/storage/archive"
	"github.com/OCAP2/sceneeditor/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/sceneeditor/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized.
func NewBackend(cfg config.StorageConfig, dbLog zerolog.Logger, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "archive", "":
		return archivestorage.New(cfg.Archive, logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, dbLog, logger)
	case "postgres":
		return postgres.New(postgres.Dependencies{DBLogger: dbLog, Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
