// pkg/core/scene.go
package core

import (
	"fmt"
	"math"
	"time"
)

// Scene is the top-level editing session metadata.
type Scene struct {
	Name           string    `json:"scene_name"`
	CenterLat      float64   `json:"center_lat"`
	CenterLon      float64   `json:"center_lon"`
	CenterX        float64   `json:"center_x"`
	CenterY        float64   `json:"center_y"`
	UTMZone        int       `json:"utm_zone"`
	Southern       bool      `json:"utm_southern,omitempty"`
	RadiusMeters   float64   `json:"radius_meters"`
	StartTimestamp int64     `json:"start_timestamp"`
	EndTimestamp   int64     `json:"end_timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// Center returns the projected scene center.
func (s *Scene) Center() Position2D {
	return Position2D{X: s.CenterX, Y: s.CenterY}
}

// Duration is the timeline length in seconds.
func (s *Scene) Duration() int64 {
	return s.EndTimestamp - s.StartTimestamp
}

// Contains reports whether p lies within the bounding radius of the scene center.
func (s *Scene) Contains(p Position2D) bool {
	if s.RadiusMeters <= 0 {
		return false
	}
	return s.Center().DistanceTo(p) <= s.RadiusMeters
}

// InWindow reports whether an absolute timestamp falls within the scene timeline.
func (s *Scene) InWindow(ts int64) bool {
	return ts >= s.StartTimestamp && ts <= s.EndTimestamp
}

// Validate checks the geometry and timeline of a scene.
func (s *Scene) Validate() error {
	for name, v := range map[string]float64{
		"center_lat":    s.CenterLat,
		"center_lon":    s.CenterLon,
		"center_x":      s.CenterX,
		"center_y":      s.CenterY,
		"radius_meters": s.RadiusMeters,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a number", ErrInvalidSceneParameters, name)
		}
	}
	if s.CenterLat < -90 || s.CenterLat > 90 || s.CenterLon < -180 || s.CenterLon > 180 {
		return fmt.Errorf("%w: center %f,%f out of range", ErrInvalidSceneParameters, s.CenterLat, s.CenterLon)
	}
	if s.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidSceneParameters)
	}
	if s.EndTimestamp <= s.StartTimestamp {
		return fmt.Errorf("%w: end_timestamp must be after start_timestamp", ErrInvalidSceneParameters)
	}
	return nil
}

// Feature is a piece of auxiliary basemap geometry (a building outline or a road).
type Feature struct {
	ID     string
	Type   string
	Points []Position2D
}

// Document is a complete, serializable scene: metadata, entities and basemap.
type Document struct {
	Scene     Scene
	Entities  map[Category]map[string]*Entity
	Buildings []Feature
	Roads     []Feature
}

// NewDocument returns an empty document with every category collection allocated.
func NewDocument(scene Scene) *Document {
	d := &Document{
		Scene:    scene,
		Entities: make(map[Category]map[string]*Entity, len(Categories)),
	}
	for _, c := range Categories {
		d.Entities[c] = make(map[string]*Entity)
	}
	return d
}

// Put stores an entity in its category collection.
func (d *Document) Put(e *Entity) {
	if d.Entities[e.Category] == nil {
		d.Entities[e.Category] = make(map[string]*Entity)
	}
	d.Entities[e.Category][e.ID] = e
}

// Count returns the number of entities across all categories.
func (d *Document) Count() int {
	n := 0
	for _, m := range d.Entities {
		n += len(m)
	}
	return n
}

// SceneSummary describes a stored scene without loading it.
type SceneSummary struct {
	Name           string
	SavedAt        time.Time
	StartTimestamp int64
	EndTimestamp   int64
	Entities       int
}
