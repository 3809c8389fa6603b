// Package postgres stores scenes in PostgreSQL through the GORM backend.
package postgres

import (
	"log/slog"

	"github.com/OCAP2/sceneeditor/internal/database"
	gormstorage "github.com/OCAP2/sceneeditor/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
// If DB is nil, Init connects using the db.* config keys.
type Dependencies struct {
	DB       *gorm.DB
	DBLogger zerolog.Logger
	Logger   *slog.Logger
}

// Backend wraps the GORM backend and owns the Postgres connection. Until
// Init succeeds every operation fails.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{Logger: deps.Logger}),
		deps:    deps,
	}
}

// Init connects to Postgres if no DB was injected and runs the migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		manager := database.NewManager(b.deps.DBLogger)
		if err := manager.ConnectPostgres(); err != nil {
			return err
		}
		b.deps.DB = manager.DB
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     b.deps.DB,
		Logger: b.deps.Logger,
	})
	return b.Backend.Init()
}

