package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OCAP2/sceneeditor/internal/dispatcher"
	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/internal/session"
	"github.com/OCAP2/sceneeditor/internal/storage"
	"github.com/OCAP2/sceneeditor/internal/timeline"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

func (s *Service) handleNew(e dispatcher.Event) (any, error) {
	params, err := s.parse.ParseSceneParams(e.Args)
	if err != nil {
		return nil, err
	}
	if _, err := s.sess.NewScene(params); err != nil {
		return nil, err
	}
	s.deps.Player.Stop()

	sc, _ := s.sess.Scene()
	s.log.Info("scene created", "scene", sc.Name, "zone", sc.UTMZone, "radius", sc.RadiusMeters)
	return fmt.Sprintf("scene %q: UTM zone %d, center %s, %s long", sc.Name, sc.UTMZone,
		sc.Center(), timeline.FormatOffset(sc.Duration())), nil
}

func (s *Service) handleInfo(dispatcher.Event) (any, error) {
	sc, err := s.sess.Scene()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "scene     %s\n", sc.Name)
	fmt.Fprintf(&b, "center    %.6f, %.6f (UTM %d, %s)\n", sc.CenterLat, sc.CenterLon, sc.UTMZone, sc.Center())
	fmt.Fprintf(&b, "radius    %.0f m\n", sc.RadiusMeters)
	fmt.Fprintf(&b, "timeline  %s - %s\n", timeline.FormatAbsolute(sc.StartTimestamp), timeline.FormatAbsolute(sc.EndTimestamp))
	fmt.Fprintf(&b, "cursor    %s / %s\n", timeline.FormatOffset(s.sess.Offset()), timeline.FormatOffset(sc.Duration()))
	for _, c := range core.Categories {
		list, _ := s.sess.Entities(c)
		if len(list) > 0 {
			fmt.Fprintf(&b, "%-21s %d\n", c, len(list))
		}
	}

	buildings, roads := s.sess.Basemap()
	if len(buildings)+len(roads) > 0 {
		var length float64
		for _, r := range roads {
			length += geo.FeatureLength(r)
		}
		fmt.Fprintf(&b, "basemap   %d buildings, %d roads (%.1f km)\n", len(buildings), len(roads), length/1000)
	}
	fmt.Fprintf(&b, "undo      %d", s.sess.UndoDepth())
	if sel, err := s.sess.Selected(); err == nil {
		fmt.Fprintf(&b, "\nselected  %s", describe(sel))
	}
	return b.String(), nil
}

// startIO runs start with a deadline-bound context. The context lives until
// endIO is called from the matching Complete method.
func (s *Service) startIO(start func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.deps.IOTimeout)
	if err := start(ctx); err != nil {
		cancel()
		return err
	}
	s.cancelIO = cancel
	return nil
}

func (s *Service) endIO() {
	if s.cancelIO != nil {
		s.cancelIO()
		s.cancelIO = nil
	}
}

func (s *Service) handleSave(dispatcher.Event) (any, error) {
	if s.deps.Store == nil {
		return nil, errors.New("no storage backend configured")
	}
	err := s.startIO(func(ctx context.Context) error {
		done, err := s.sess.StartSave(ctx, s.deps.Store)
		if err == nil {
			s.pendingSave = done
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return "saving...", nil
}

// SaveDone is the channel the main loop selects on for a running save. It is
// nil when no save is in flight.
func (s *Service) SaveDone() <-chan error {
	return s.pendingSave
}

// CompleteSave reports a finished save.
func (s *Service) CompleteSave(err error) {
	s.pendingSave = nil
	s.endIO()
	if err != nil {
		s.log.Error("save failed", "error", err)
		s.Printf("save failed: %v\n", err)
		return
	}
	sc, _ := s.sess.Scene()
	if fb, ok := s.deps.Store.(storage.FileBacked); ok {
		s.Printf("saved %q to %s\n", sc.Name, fb.LastPath())
		return
	}
	s.Printf("saved %q\n", sc.Name)
}

func (s *Service) handleLoad(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, usage("load <name>")
	}
	if s.deps.Store == nil {
		return nil, errors.New("no storage backend configured")
	}
	err := s.startIO(func(ctx context.Context) error {
		done, err := s.sess.StartLoad(ctx, s.deps.Store, e.Args[0])
		if err == nil {
			s.pendingLoad = done
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("loading %q...", e.Args[0]), nil
}

// LoadDone is the channel the main loop selects on for a running load.
func (s *Service) LoadDone() <-chan session.Loaded {
	return s.pendingLoad
}

// CompleteLoad installs a finished load. The session is left untouched if
// the load failed.
func (s *Service) CompleteLoad(l session.Loaded) {
	s.pendingLoad = nil
	s.endIO()
	if _, err := s.sess.FinishLoad(l); err != nil {
		s.log.Error("load failed", "scene", l.Name, "error", err)
		s.Printf("load %q failed: %v\n", l.Name, err)
		return
	}
	s.deps.Player.Stop()
	doc, _ := s.sess.Document()
	s.Printf("loaded %q: %d entities\n", doc.Scene.Name, doc.Count())
}

// handleScenes runs on the dispatcher's queue goroutine and must not touch
// the session.
func (s *Service) handleScenes(dispatcher.Event) (any, error) {
	if s.deps.Store == nil {
		return nil, errors.New("no storage backend configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.deps.IOTimeout)
	defer cancel()

	list, err := s.deps.Store.List(ctx)
	if err != nil {
		s.Printf("list scenes failed: %v\n", err)
		return nil, err
	}
	if len(list) == 0 {
		s.Printf("no stored scenes\n")
		return nil, nil
	}

	var b strings.Builder
	for _, sc := range list {
		fmt.Fprintf(&b, "  %-30s %3d entities  %s  saved %s\n", sc.Name, sc.Entities,
			timeline.FormatOffset(sc.EndTimestamp-sc.StartTimestamp),
			sc.SavedAt.Local().Format("2006-01-02 15:04"))
	}
	s.Printf("%s", b.String())
	return nil, nil
}

func (s *Service) handleBasemap(dispatcher.Event) (any, error) {
	if s.deps.Fetcher == nil {
		return nil, errors.New("basemap downloads are disabled")
	}
	err := s.startIO(func(ctx context.Context) error {
		done, err := s.sess.StartBasemap(ctx, s.deps.Fetcher)
		if err == nil {
			s.pendingBasemap = done
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return "fetching basemap...", nil
}

// BasemapDone is the channel the main loop selects on for a running fetch.
func (s *Service) BasemapDone() <-chan session.Fetched {
	return s.pendingBasemap
}

// CompleteBasemap stores a finished basemap fetch.
func (s *Service) CompleteBasemap(f session.Fetched) {
	s.pendingBasemap = nil
	s.endIO()
	if _, err := s.sess.FinishBasemap(f); err != nil {
		s.log.Error("basemap fetch failed", "error", err)
		s.Printf("basemap failed: %v\n", err)
		return
	}
	buildings, roads := s.sess.Basemap()
	s.Printf("basemap: %d buildings, %d roads\n", len(buildings), len(roads))
}
