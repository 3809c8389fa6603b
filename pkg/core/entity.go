// pkg/core/entity.go
package core

// Association is an optional reference from a Shooting, EnemySpot or Report
// entity to a Ground unit. GroundID is empty when unassociated.
type Association struct {
	GroundID       string
	GroundCallsign string
	// OriginalGround is the ground unit's position captured when the
	// association was made or last refreshed. Used only for drawing the
	// connecting line.
	OriginalGround Snapshot
}

// Associated reports whether the association references a ground unit.
func (a Association) Associated() bool {
	return a.GroundID != ""
}

// Shot holds the Shooting-only fields. A shooting event does not move: its
// map position is always Target.
type Shot struct {
	AmmoType string
	Target   Position2D
	Launch   Snapshot
	// Timestamp is the absolute time the event was created or last
	// associated with a ground unit.
	Timestamp int64
}

// Entity is a tagged variant over the six categories. Category is the
// discriminant and must be checked before reading variant-specific fields.
type Entity struct {
	ID       string
	Category Category

	Callsign    string // Ground, EnemySpot, Report
	Type        string // Ground, EnemyInfrastructure
	Description string // EnemySpot, Report
	TargetType  string // Targets

	// Keyframes is the timeline of a mobile entity, in no particular order.
	Keyframes []Keyframe

	// Position and Timestamp mirror the latest keyframe write of a mobile
	// entity. For Targets, Position is the fixed position.
	Position  Position2D
	Timestamp int64

	// CreationTime is set for Targets only.
	CreationTime int64

	Association Association // associable categories only
	Shot        *Shot       // non-nil for Shooting only

	// Extra holds free-form properties outside the category field lists.
	Extra map[string]string
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.Keyframes != nil {
		c.Keyframes = make([]Keyframe, len(e.Keyframes))
		copy(c.Keyframes, e.Keyframes)
	}
	if e.Shot != nil {
		s := *e.Shot
		c.Shot = &s
	}
	if e.Extra != nil {
		c.Extra = make(map[string]string, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Label is the display text used by list views and popups.
func (e *Entity) Label() string {
	switch {
	case e.Callsign != "":
		return e.Callsign
	case e.Association.GroundCallsign != "":
		return e.Association.GroundCallsign
	case e.TargetType != "":
		return e.TargetType
	case e.Type != "":
		return e.Type
	case len(e.ID) > 8:
		return e.ID[:8]
	default:
		return e.ID
	}
}

// Ref identifies an entity within the registry.
type Ref struct {
	Category Category
	ID       string
}

// Ref returns the registry key of the entity.
func (e *Entity) Ref() Ref {
	return Ref{Category: e.Category, ID: e.ID}
}
