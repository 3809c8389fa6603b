// Package gormstorage stores whole scenes in a relational database through
// GORM. The sqlite and postgres backends wrap it and only differ in how the
// connection is opened.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCAP2/sceneeditor/internal/database"
	"github.com/OCAP2/sceneeditor/internal/model"
	"github.com/OCAP2/sceneeditor/internal/model/convert"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend saves, loads and lists scenes by name.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs the schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true
	b.deps.Logger.Debug("scene tables migrated", "dialect", b.deps.DB.Name())
	return nil
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	b.dbReady = false
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) ready() error {
	if !b.dbReady {
		return fmt.Errorf("gorm backend not initialized")
	}
	return nil
}

// Save writes doc, replacing any stored scene with the same name. The
// replacement happens in one transaction.
func (b *Backend) Save(ctx context.Context, doc *core.Document) error {
	if err := b.ready(); err != nil {
		return err
	}
	row := convert.CoreToScene(doc)

	err := b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Scene
		if err := tx.Where("name = ?", row.Name).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID != 0 {
			if err := deleteScene(tx, existing.ID); err != nil {
				return err
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("save scene %q: %w", doc.Scene.Name, err)
	}

	b.deps.Logger.Debug("scene saved",
		"scene", row.Name,
		"entities", len(row.Entities),
		"features", len(row.Features))
	return nil
}

func deleteScene(tx *gorm.DB, id uint) error {
	entityIDs := tx.Model(&model.Entity{}).Select("id").Where("scene_id = ?", id)
	if err := tx.Where("entity_row_id IN (?)", entityIDs).Delete(&model.Keyframe{}).Error; err != nil {
		return err
	}
	if err := tx.Where("scene_id = ?", id).Delete(&model.Entity{}).Error; err != nil {
		return err
	}
	if err := tx.Where("scene_id = ?", id).Delete(&model.Feature{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Scene{}, id).Error
}

// Load reads the scene stored under name.
func (b *Backend) Load(ctx context.Context, name string) (*core.Document, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	var row model.Scene
	err := b.deps.DB.WithContext(ctx).
		Preload("Entities", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Entities.Keyframes", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp") }).
		Preload("Features", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("name = ?", name).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("scene %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load scene %q: %w", name, err)
	}
	return convert.SceneToCore(row)
}

// List returns every stored scene ordered by name.
func (b *Backend) List(ctx context.Context) ([]core.SceneSummary, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	db := b.deps.DB.WithContext(ctx)

	var rows []model.Scene
	if err := db.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}

	var counts []struct {
		SceneID uint
		N       int
	}
	err := db.Model(&model.Entity{}).
		Select("scene_id, count(*) as n").
		Group("scene_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	perScene := make(map[uint]int, len(counts))
	for _, c := range counts {
		perScene[c.SceneID] = c.N
	}

	out := make([]core.SceneSummary, len(rows))
	for i, r := range rows {
		out[i] = core.SceneSummary{
			Name:           r.Name,
			SavedAt:        r.SavedAt,
			StartTimestamp: r.StartTimestamp,
			EndTimestamp:   r.EndTimestamp,
			Entities:       perScene[r.ID],
		}
	}
	return out, nil
}
