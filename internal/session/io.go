package session

import (
	"context"
	"fmt"

	"github.com/OCAP2/sceneeditor/internal/basemap"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// Store persists whole scene documents by name.
type Store interface {
	Save(ctx context.Context, doc *core.Document) error
	Load(ctx context.Context, name string) (*core.Document, error)
}

// Fetcher downloads basemap geometry around a scene.
type Fetcher interface {
	Fetch(ctx context.Context, scene *core.Scene) (basemap.Result, error)
}

// Loaded is the outcome of a background load.
type Loaded struct {
	Name string
	Doc  *core.Document
	Err  error
}

// Fetched is the outcome of a background basemap fetch.
type Fetched struct {
	Result basemap.Result
	Err    error
}

func (s *Session) acquireIO() error {
	if !s.ioBusy.CompareAndSwap(false, true) {
		return core.ErrIOInProgress
	}
	return nil
}

func (s *Session) releaseIO() {
	s.ioBusy.Store(false)
}

// StartSave snapshots the session and writes it to store in the background.
// The returned channel receives the result once; the I/O guard is released
// before the send.
func (s *Session) StartSave(ctx context.Context, store Store) (<-chan error, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	if err := s.acquireIO(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		err := store.Save(ctx, doc)
		s.releaseIO()
		if err != nil {
			err = fmt.Errorf("save scene %q: %w", doc.Scene.Name, err)
		}
		done <- err
	}()
	s.log.Info("saving scene", "scene", doc.Scene.Name, "entities", doc.Count())
	return done, nil
}

// Save writes the session to store and waits for the result.
func (s *Session) Save(ctx context.Context, store Store) error {
	done, err := s.StartSave(ctx, store)
	if err != nil {
		return err
	}
	return <-done
}

// StartLoad reads a scene in the background. The I/O guard stays held until
// the result is passed to FinishLoad, which must run on the session's
// goroutine.
func (s *Session) StartLoad(ctx context.Context, store Store, name string) (<-chan Loaded, error) {
	if err := s.acquireIO(); err != nil {
		return nil, err
	}

	done := make(chan Loaded, 1)
	go func() {
		doc, err := store.Load(ctx, name)
		done <- Loaded{Name: name, Doc: doc, Err: err}
	}()
	return done, nil
}

// FinishLoad installs a loaded document. On any error the current session is
// left untouched.
func (s *Session) FinishLoad(l Loaded) (Change, error) {
	defer s.releaseIO()

	if l.Err != nil {
		return Change{}, fmt.Errorf("load scene %q: %w", l.Name, l.Err)
	}
	if l.Doc == nil {
		return Change{}, fmt.Errorf("load scene %q: %w", l.Name, core.ErrNotFound)
	}
	if l.Doc.Scene.Name == "" {
		return Change{}, fmt.Errorf("load scene %q: %w: scene name is empty", l.Name, core.ErrInvalidSceneParameters)
	}
	if err := l.Doc.Scene.Validate(); err != nil {
		return Change{}, fmt.Errorf("load scene %q: %w", l.Name, err)
	}

	s.install(l.Doc)
	s.log.Info("scene loaded",
		"scene", s.scene.Name,
		"entities", l.Doc.Count(),
		"buildings", len(s.buildings),
		"roads", len(s.roads))
	return Change{Op: OpLoad, Full: true, Selection: true}, nil
}

// Load reads a scene from store and replaces the session with it.
func (s *Session) Load(ctx context.Context, store Store, name string) (Change, error) {
	done, err := s.StartLoad(ctx, store, name)
	if err != nil {
		return Change{}, err
	}
	return s.FinishLoad(<-done)
}

// StartBasemap fetches buildings and roads for the current scene in the
// background. The I/O guard stays held until FinishBasemap.
func (s *Session) StartBasemap(ctx context.Context, f Fetcher) (<-chan Fetched, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.acquireIO(); err != nil {
		return nil, err
	}

	scene := *s.scene
	done := make(chan Fetched, 1)
	go func() {
		res, err := f.Fetch(ctx, &scene)
		done <- Fetched{Result: res, Err: err}
	}()
	return done, nil
}

// FinishBasemap stores fetched geometry on the session. A failed fetch
// changes nothing.
func (s *Session) FinishBasemap(f Fetched) (Change, error) {
	defer s.releaseIO()

	if f.Err != nil {
		return Change{}, fmt.Errorf("fetch basemap: %w", f.Err)
	}
	if s.scene == nil {
		return Change{}, core.ErrNoScene
	}
	s.buildings = f.Result.Buildings
	s.roads = f.Result.Roads
	s.log.Info("basemap updated", "buildings", len(s.buildings), "roads", len(s.roads))
	return Change{Op: OpBasemap}, nil
}

// FetchBasemap fetches and stores basemap geometry, waiting for the result.
func (s *Session) FetchBasemap(ctx context.Context, f Fetcher) (Change, error) {
	done, err := s.StartBasemap(ctx, f)
	if err != nil {
		return Change{}, err
	}
	return s.FinishBasemap(<-done)
}
