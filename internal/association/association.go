// Package association maintains references from Shooting, EnemySpot and
// Report entities to Ground units, and the position snapshots derived from
// them.
//
// Snapshots are taken at the time cursor and are only refreshed when an
// association is made or when the caller runs PropagateGroundMove after
// moving a ground unit. Nothing is recomputed on read.
package association

import (
	"fmt"

	"github.com/OCAP2/sceneeditor/internal/frames"
	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// Clock supplies the absolute time that snapshots are taken at.
type Clock interface {
	AbsoluteTime() int64
}

// Status is the outcome of an association.
type Status int

const (
	// StatusLive means the ground unit was observed within the scene radius.
	StatusLive Status = iota
	// StatusOutOfRange means the association was recorded but the ground
	// unit had no position, or was outside the scene radius.
	StatusOutOfRange
)

func (s Status) String() string {
	if s == StatusLive {
		return "live"
	}
	return "out-of-range"
}

// Engine applies the association policy against a registry and scene.
type Engine struct {
	reg   *registry.Registry
	scene *core.Scene
	clock Clock
}

// New creates an association engine.
func New(reg *registry.Registry, scene *core.Scene, clock Clock) *Engine {
	return &Engine{reg: reg, scene: scene, clock: clock}
}

// observe resolves the ground unit at the cursor and applies the range check.
func (n *Engine) observe(ground *core.Entity) core.Snapshot {
	pos, ok := frames.Resolve(ground, n.clock.AbsoluteTime())
	if !ok || !n.scene.Contains(pos) {
		return core.Unavailable
	}
	return core.SnapshotAt(pos)
}

// Associate points e at the ground unit groundID. The association is always
// recorded; the snapshots are set only when the unit is observable now.
func (n *Engine) Associate(e *core.Entity, groundID string) (Status, error) {
	if !e.Category.Associable() {
		return StatusOutOfRange, fmt.Errorf("associate %s: %w", e.Category, core.ErrNotAssociable)
	}
	ground, ok := n.reg.Get(core.CategoryGround, groundID)
	if !ok {
		return StatusOutOfRange, fmt.Errorf("associate with ground %s: %w", groundID, core.ErrNotFound)
	}

	snap := n.observe(ground)

	e.Association = core.Association{
		GroundID:       groundID,
		GroundCallsign: callsign(ground),
		OriginalGround: snap,
	}
	if e.Category == core.CategoryShooting && e.Shot != nil {
		e.Shot.Launch = snap
		if snap.Available {
			e.Shot.Timestamp = n.clock.AbsoluteTime()
		}
	}

	if !snap.Available {
		return StatusOutOfRange, nil
	}
	return StatusLive, nil
}

// ClearAssociation removes the reference and every snapshot derived from it.
func (n *Engine) ClearAssociation(e *core.Entity) {
	e.Association = core.Association{}
	if e.Category == core.CategoryShooting && e.Shot != nil {
		e.Shot.Launch = core.Unavailable
	}
}

// PropagateGroundMove refreshes the launch snapshot and callsign of every
// Shooting event associated with groundID. It must be called after any
// keyframe mutation of that unit. The refs of the refreshed events are
// returned.
func (n *Engine) PropagateGroundMove(groundID string) []core.Ref {
	ground, found := n.reg.Get(core.CategoryGround, groundID)

	var touched []core.Ref
	for _, e := range n.reg.List(core.CategoryShooting) {
		if e.Association.GroundID != groundID || e.Shot == nil {
			continue
		}

		snap := core.Unavailable
		if found {
			snap = n.observe(ground)
			e.Association.GroundCallsign = callsign(ground)
		}
		e.Shot.Launch = snap
		e.Association.OriginalGround = snap
		touched = append(touched, e.Ref())
	}
	return touched
}

// Dependents returns the refs of every entity associated with groundID.
func (n *Engine) Dependents(groundID string) []core.Ref {
	var out []core.Ref
	for _, c := range core.Categories {
		if !c.Associable() {
			continue
		}
		for _, e := range n.reg.List(c) {
			if e.Association.GroundID == groundID {
				out = append(out, e.Ref())
			}
		}
	}
	return out
}

func callsign(ground *core.Entity) string {
	if ground.Callsign == "" {
		return "Unknown"
	}
	return ground.Callsign
}

// State is the association-derived part of an entity, captured for undo.
type State struct {
	Association core.Association
	Launch      core.Snapshot
	Timestamp   int64
}

// Capture records the association state of e.
func Capture(e *core.Entity) State {
	s := State{Association: e.Association}
	if e.Shot != nil {
		s.Launch = e.Shot.Launch
		s.Timestamp = e.Shot.Timestamp
	}
	return s
}

// Restore puts back a captured association state.
func Restore(e *core.Entity, s State) {
	e.Association = s.Association
	if e.Shot != nil {
		e.Shot.Launch = s.Launch
		e.Shot.Timestamp = s.Timestamp
	}
}
