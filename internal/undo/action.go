// Package undo records reversible editor mutations and applies their
// inverses, most recent first. There is no redo.
package undo

import (
	"github.com/OCAP2/sceneeditor/internal/association"
	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// Kind identifies an action variant.
type Kind string

const (
	KindCreate         Kind = "create"
	KindDelete         Kind = "delete"
	KindMove           Kind = "move"
	KindAddFrame       Kind = "addFrame"
	KindDeleteFrame    Kind = "deleteFrame"
	KindUpdateProperty Kind = "updateProperty"
	KindAssociate      Kind = "associate"
)

// Action captures the state needed to reverse exactly one mutation. Which
// fields are set depends on Kind; use the constructors below.
type Action struct {
	Kind Kind
	Ref  core.Ref

	// Entity is a full copy of a deleted entity. Dependents holds the
	// association state of the entities associated with it.
	Entity     *core.Entity
	Dependents []Dependent

	// Timestamp is the keyframe time of a move or frame edit.
	Timestamp int64
	// Fixed marks a move of a non-mobile position (a Shooting target or a
	// Targets position). Timestamp is unused then.
	Fixed bool
	// Prior is the position before a move. PriorExisted is false when the
	// move created the keyframe.
	Prior        core.Position2D
	PriorExisted bool
	// Last is the entity's last written position before a move or an
	// added frame.
	Last core.Keyframe

	// Frame is the keyframe removed by a deleteFrame.
	Frame core.Keyframe

	Key      string
	Previous registry.Previous

	Association association.State
}

// Dependent is the captured association state of one associated entity.
type Dependent struct {
	Ref   core.Ref
	State association.State
}

// Create records the creation of ref.
func Create(ref core.Ref) Action {
	return Action{Kind: KindCreate, Ref: ref}
}

// Delete records the removal of e along with the state of its dependents. A
// copy is taken, so e may be discarded.
func Delete(e *core.Entity, dependents ...Dependent) Action {
	return Action{Kind: KindDelete, Ref: e.Ref(), Entity: e.Clone(), Dependents: dependents}
}

// Move records an upsert of the keyframe at t. last is the entity's last
// written position before the upsert.
func Move(ref core.Ref, t int64, prior core.Position2D, existed bool, last core.Keyframe) Action {
	return Action{Kind: KindMove, Ref: ref, Timestamp: t, Prior: prior, PriorExisted: existed, Last: last}
}

// MoveFixed records a move of a non-mobile entity.
func MoveFixed(ref core.Ref, prior core.Position2D) Action {
	return Action{Kind: KindMove, Ref: ref, Fixed: true, Prior: prior, PriorExisted: true}
}

// AddFrame records the insertion of a keyframe at t.
func AddFrame(ref core.Ref, t int64, last core.Keyframe) Action {
	return Action{Kind: KindAddFrame, Ref: ref, Timestamp: t, Last: last}
}

// DeleteFrame records the removal of kf.
func DeleteFrame(ref core.Ref, kf core.Keyframe) Action {
	return Action{Kind: KindDeleteFrame, Ref: ref, Timestamp: kf.Timestamp, Frame: kf}
}

// UpdateProperty records a property write and the value it replaced.
func UpdateProperty(ref core.Ref, key string, prev registry.Previous) Action {
	return Action{Kind: KindUpdateProperty, Ref: ref, Key: key, Previous: prev}
}

// Associate records an association change and the state it replaced.
func Associate(ref core.Ref, prev association.State) Action {
	return Action{Kind: KindAssociate, Ref: ref, Association: prev}
}

// LastWritten returns the legacy current-position fields of e.
func LastWritten(e *core.Entity) core.Keyframe {
	return core.Keyframe{Timestamp: e.Timestamp, Position: e.Position}
}

func restoreLast(e *core.Entity, last core.Keyframe) {
	e.Position = last.Position
	e.Timestamp = last.Timestamp
}

// TouchesKeyframes reports whether reversing the action changes the
// timeline of the referenced entity.
func (a Action) TouchesKeyframes() bool {
	switch a.Kind {
	case KindMove:
		return !a.Fixed
	case KindAddFrame, KindDeleteFrame, KindCreate, KindDelete:
		return true
	}
	return false
}
