// Package registry owns every entity of a scene, keyed by category and id.
package registry

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/google/uuid"
)

// Placement is where and when a new entity is put on the map.
type Placement struct {
	Position core.Position2D
	Time     int64 // absolute
}

// Registry holds typed entity collections. It is the only place ids are minted.
type Registry struct {
	collections map[core.Category]map[string]*core.Entity
	newID       func() string
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{newID: uuid.NewString}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.collections = make(map[core.Category]map[string]*core.Entity, len(core.Categories))
	for _, c := range core.Categories {
		r.collections[c] = make(map[string]*core.Entity)
	}
}

// Create mints a new entity of category c at the placement, applies the
// category defaults and then props. It returns the new entity.
func (r *Registry) Create(c core.Category, at Placement, props map[string]string) (*core.Entity, error) {
	if _, ok := r.collections[c]; !ok {
		return nil, fmt.Errorf("create %q: %w", c, core.ErrUnknownCategory)
	}

	e := &core.Entity{
		ID:       r.newID(),
		Category: c,
	}
	seq := len(r.collections[c]) + 1

	switch c {
	case core.CategoryGround:
		e.Type = "unit"
		e.Callsign = fmt.Sprintf("Unit-%d", seq)
	case core.CategoryShooting:
		e.Shot = &core.Shot{
			AmmoType:  "standard",
			Target:    at.Position,
			Launch:    core.Unavailable,
			Timestamp: at.Time,
		}
	case core.CategoryEnemySpot:
		e.Description = "Enemy spotted"
		e.Callsign = fmt.Sprintf("Observer-%d", seq)
	case core.CategoryReport:
		e.Description = "Report description"
		e.Callsign = fmt.Sprintf("Reporter-%d", seq)
	case core.CategoryTarget:
		e.TargetType = "unknown"
		e.CreationTime = at.Time
		e.Position = at.Position
	case core.CategoryInfrastructure:
		e.Type = "building"
	}

	if c.Mobile() {
		e.Keyframes = []core.Keyframe{{Timestamp: at.Time, Position: at.Position}}
		e.Position = at.Position
		e.Timestamp = at.Time
	}

	// e is not stored until every prop applied
	for _, key := range sortedKeys(props) {
		if _, err := SetProperty(e, key, props[key]); err != nil {
			return nil, fmt.Errorf("create %s: %w", c, err)
		}
	}

	r.collections[c][e.ID] = e
	return e, nil
}

// Insert stores an existing entity, replacing any entity with the same key.
// Used to restore deleted entities and to populate a loaded scene.
func (r *Registry) Insert(e *core.Entity) error {
	coll, ok := r.collections[e.Category]
	if !ok {
		return fmt.Errorf("insert %q: %w", e.Category, core.ErrUnknownCategory)
	}
	coll[e.ID] = e
	return nil
}

// Delete removes an entity and returns it. Deleting an absent entity is a no-op.
func (r *Registry) Delete(c core.Category, id string) (*core.Entity, bool) {
	coll := r.collections[c]
	e, ok := coll[id]
	if !ok {
		return nil, false
	}
	delete(coll, id)
	return e, true
}

// Get looks up an entity.
func (r *Registry) Get(c core.Category, id string) (*core.Entity, bool) {
	e, ok := r.collections[c][id]
	return e, ok
}

// Find looks an id up across all categories.
func (r *Registry) Find(id string) (*core.Entity, bool) {
	for _, c := range core.Categories {
		if e, ok := r.collections[c][id]; ok {
			return e, true
		}
	}
	return nil, false
}

// Len returns the number of entities in category c.
func (r *Registry) Len(c core.Category) int {
	return len(r.collections[c])
}

// List returns the entities of category c ordered by label, then id.
func (r *Registry) List(c core.Category) []*core.Entity {
	out := make([]*core.Entity, 0, len(r.collections[c]))
	for _, e := range r.collections[c] {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *core.Entity) int {
		return cmp.Or(cmp.Compare(a.Label(), b.Label()), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Snapshot returns a deep copy of all collections as a document for scene.
func (r *Registry) Snapshot(scene core.Scene) *core.Document {
	doc := core.NewDocument(scene)
	for c, coll := range r.collections {
		for id, e := range coll {
			doc.Entities[c][id] = e.Clone()
		}
	}
	return doc
}

// Replace discards every entity and adopts the collections of doc.
func (r *Registry) Replace(doc *core.Document) {
	r.reset()
	for c, coll := range doc.Entities {
		if _, ok := r.collections[c]; !ok {
			continue
		}
		for id, e := range coll {
			r.collections[c][id] = e
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
