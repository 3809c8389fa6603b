package storage

import (
	"context"

	"github.com/OCAP2/sceneeditor/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Save stores doc under its scene name, replacing an earlier save.
	Save(ctx context.Context, doc *core.Document) error
	// Load returns the scene stored under name, or core.ErrNotFound.
	Load(ctx context.Context, name string) (*core.Document, error)
	// List summarizes every stored scene.
	List(ctx context.Context) ([]core.SceneSummary, error)
}

// FileBacked is an optional interface for backends that write one file per
// save, so the caller can report where the scene went.
type FileBacked interface {
	LastPath() string
}
