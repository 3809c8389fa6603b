// Package session owns the state of one editing session: the scene, its
// entities, the time cursor, the undo log and the selection. Every mutation
// goes through a Session method and returns a Change.
//
// A Session is not safe for concurrent use. The editor drives it from a single
// loop; only the I/O guard may be checked from other goroutines.
package session

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/OCAP2/sceneeditor/internal/association"
	"github.com/OCAP2/sceneeditor/internal/frames"
	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/internal/timeline"
	"github.com/OCAP2/sceneeditor/internal/undo"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// Session is the single context object of the editor.
type Session struct {
	log *slog.Logger
	now func() time.Time

	scene     *core.Scene
	reg       *registry.Registry
	cursor    *timeline.Cursor
	actions   *undo.Log
	assoc     *association.Engine
	selection *core.Ref

	buildings []core.Feature
	roads     []core.Feature

	ioBusy atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the wall clock used to stamp new scenes.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates a session with no scene loaded.
func New(logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		log: logger,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SceneParams are the inputs of a new scene.
type SceneParams struct {
	Name            string
	CenterLat       float64
	CenterLon       float64
	RadiusMeters    float64
	DurationMinutes float64
}

func (p SceneParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: scene name is empty", core.ErrInvalidSceneParameters)
	}
	for name, v := range map[string]float64{
		"radius":   p.RadiusMeters,
		"duration": p.DurationMinutes,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", core.ErrInvalidSceneParameters, name)
		}
	}
	return nil
}

// NewScene tears down the current session state and starts an empty scene.
// The center is projected into the UTM zone of its longitude. The timeline
// starts now and lasts DurationMinutes.
func (s *Session) NewScene(p SceneParams) (Change, error) {
	if err := p.validate(); err != nil {
		return Change{}, err
	}
	if s.ioBusy.Load() {
		return Change{}, core.ErrIOInProgress
	}

	proj := geo.NewProjector(p.CenterLat, p.CenterLon)
	center, err := proj.ToPlanar(p.CenterLat, p.CenterLon)
	if err != nil {
		return Change{}, fmt.Errorf("%w: %v", core.ErrInvalidSceneParameters, err)
	}

	now := s.now().UTC()
	scene := core.Scene{
		Name:           p.Name,
		CenterLat:      p.CenterLat,
		CenterLon:      p.CenterLon,
		CenterX:        center.X,
		CenterY:        center.Y,
		UTMZone:        proj.Zone,
		Southern:       proj.Southern,
		RadiusMeters:   p.RadiusMeters,
		StartTimestamp: now.Unix(),
		EndTimestamp:   now.Unix() + int64(math.Round(p.DurationMinutes*60)),
		CreatedAt:      now.Truncate(time.Second),
	}
	if err := scene.Validate(); err != nil {
		return Change{}, err
	}

	s.install(core.NewDocument(scene))
	s.log.Info("scene created",
		"scene", scene.Name,
		"utmZone", scene.UTMZone,
		"radius", scene.RadiusMeters,
		"duration", scene.Duration())
	return Change{Op: OpScene, Full: true, Selection: true}, nil
}

// install replaces every component with fresh ones built around doc.
func (s *Session) install(doc *core.Document) {
	scene := doc.Scene
	s.scene = &scene
	s.reg = registry.New()
	s.reg.Replace(doc)
	s.cursor = timeline.NewCursor(scene.StartTimestamp)
	s.actions = undo.NewLog(s.reg)
	s.assoc = association.New(s.reg, s.scene, s.cursor)
	s.selection = nil
	s.buildings = doc.Buildings
	s.roads = doc.Roads
}

// HasScene reports whether a scene is loaded.
func (s *Session) HasScene() bool {
	return s.scene != nil
}

// Scene returns a copy of the scene metadata.
func (s *Session) Scene() (core.Scene, error) {
	if s.scene == nil {
		return core.Scene{}, core.ErrNoScene
	}
	return *s.scene, nil
}

// Basemap returns the auxiliary geometry of the scene.
func (s *Session) Basemap() (buildings, roads []core.Feature) {
	return s.buildings, s.roads
}

// Document returns a deep copy of the whole session state.
func (s *Session) Document() (*core.Document, error) {
	if s.scene == nil {
		return nil, core.ErrNoScene
	}
	doc := s.reg.Snapshot(*s.scene)
	doc.Buildings = cloneFeatures(s.buildings)
	doc.Roads = cloneFeatures(s.roads)
	return doc, nil
}

func cloneFeatures(in []core.Feature) []core.Feature {
	if in == nil {
		return nil
	}
	out := make([]core.Feature, len(in))
	for i, f := range in {
		f.Points = append([]core.Position2D(nil), f.Points...)
		out[i] = f
	}
	return out
}

// Entities lists a category in display order.
func (s *Session) Entities(c core.Category) ([]*core.Entity, error) {
	if s.scene == nil {
		return nil, core.ErrNoScene
	}
	return s.reg.List(c), nil
}

// Entity looks up an entity.
func (s *Session) Entity(ref core.Ref) (*core.Entity, error) {
	if s.scene == nil {
		return nil, core.ErrNoScene
	}
	e, ok := s.reg.Get(ref.Category, ref.ID)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", ref.Category, ref.ID, core.ErrNotFound)
	}
	return e, nil
}

// Find resolves an id, or an unambiguous id prefix, across all categories.
func (s *Session) Find(id string) (*core.Entity, error) {
	if s.scene == nil {
		return nil, core.ErrNoScene
	}
	if e, ok := s.reg.Find(id); ok {
		return e, nil
	}

	var match *core.Entity
	for _, c := range core.Categories {
		for _, e := range s.reg.List(c) {
			if !strings.HasPrefix(e.ID, id) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("id prefix %q is ambiguous", id)
			}
			match = e
		}
	}
	if match == nil || id == "" {
		return nil, fmt.Errorf("entity %s: %w", id, core.ErrNotFound)
	}
	return match, nil
}

// Now is the absolute time of the cursor.
func (s *Session) Now() int64 {
	if s.cursor == nil {
		return 0
	}
	return s.cursor.AbsoluteTime()
}

// Offset is the cursor position in seconds from the scene start.
func (s *Session) Offset() int64 {
	if s.cursor == nil {
		return 0
	}
	return s.cursor.Offset()
}

// Placed is an entity with its position at the cursor.
type Placed struct {
	Entity   *core.Entity
	Position core.Position2D
	InScene  bool
}

// Visible returns every entity that has a position at the cursor, in
// category then display order.
func (s *Session) Visible() ([]Placed, error) {
	if s.scene == nil {
		return nil, core.ErrNoScene
	}
	now := s.cursor.AbsoluteTime()
	var out []Placed
	for _, c := range core.Categories {
		for _, e := range s.reg.List(c) {
			pos, ok := frames.Resolve(e, now)
			if !ok {
				continue
			}
			out = append(out, Placed{Entity: e, Position: pos, InScene: s.scene.Contains(pos)})
		}
	}
	return out, nil
}

// Resolve returns the position of an entity at the cursor.
func (s *Session) Resolve(ref core.Ref) (core.Position2D, bool, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return core.Position2D{}, false, err
	}
	pos, ok := frames.Resolve(e, s.cursor.AbsoluteTime())
	return pos, ok, nil
}

// FrameEntry is one row of a frame list.
type FrameEntry struct {
	core.Keyframe
	Offset  string // HH:MM:SS from scene start
	Current bool   // keyframe sits at the cursor
}

// FrameList returns the keyframes of an entity in time order.
func (s *Session) FrameList(ref core.Ref) ([]FrameEntry, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return nil, err
	}
	now := s.cursor.AbsoluteTime()
	sorted := frames.Sorted(e)
	out := make([]FrameEntry, len(sorted))
	for i, kf := range sorted {
		out[i] = FrameEntry{
			Keyframe: kf,
			Offset:   timeline.FormatOffset(kf.Timestamp - s.scene.StartTimestamp),
			Current:  kf.Timestamp == now,
		}
	}
	return out, nil
}

// Selected returns the selected entity.
func (s *Session) Selected() (*core.Entity, error) {
	if s.scene == nil {
		return nil, core.ErrNoScene
	}
	if s.selection == nil {
		return nil, core.ErrNoSelection
	}
	e, ok := s.reg.Get(s.selection.Category, s.selection.ID)
	if !ok {
		s.selection = nil
		return nil, core.ErrNoSelection
	}
	return e, nil
}

// Select makes ref the selected entity.
func (s *Session) Select(ref core.Ref) (Change, error) {
	if _, err := s.Entity(ref); err != nil {
		return Change{}, err
	}
	s.selection = &ref
	return Change{Op: OpSelect, Refs: []core.Ref{ref}, Selection: true}, nil
}

// Deselect clears the selection.
func (s *Session) Deselect() Change {
	var refs []core.Ref
	if s.selection != nil {
		refs = append(refs, *s.selection)
	}
	s.selection = nil
	return Change{Op: OpSelect, Refs: refs, Selection: true}
}

// Fields returns the property list for an entity with current values.
func (s *Session) Fields(ref core.Ref) ([]Field, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return nil, err
	}
	specs := registry.Fields(e.Category)
	out := make([]Field, 0, len(specs))
	for _, spec := range specs {
		v, _ := registry.Property(e, spec.Key)
		out = append(out, Field{FieldSpec: spec, Value: v})
	}
	return out, nil
}

// Field is a property with its current value.
type Field struct {
	registry.FieldSpec
	Value string
}

// IOBusy reports whether a load, save or basemap fetch is in flight.
func (s *Session) IOBusy() bool {
	return s.ioBusy.Load()
}

func (s *Session) debugWindow(op string, ref core.Ref, t int64) {
	if !s.scene.InWindow(t) {
		s.log.Debug("timestamp outside scene window",
			"op", op,
			"category", ref.Category,
			"id", ref.ID,
			"timestamp", t,
			"start", s.scene.StartTimestamp,
			"end", s.scene.EndTimestamp)
	}
}
