package session

import (
	"github.com/OCAP2/sceneeditor/internal/association"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// Op names the mutation that produced a Change.
type Op string

const (
	OpScene       Op = "scene"
	OpCreate      Op = "create"
	OpDelete      Op = "delete"
	OpMove        Op = "move"
	OpAddFrame    Op = "addFrame"
	OpDeleteFrame Op = "deleteFrame"
	OpProperty    Op = "updateProperty"
	OpAssociate   Op = "associate"
	OpCursor      Op = "cursor"
	OpSelect      Op = "select"
	OpUndo        Op = "undo"
	OpLoad        Op = "load"
	OpBasemap     Op = "basemap"
)

// Change describes what a mutation touched. The session never redraws
// anything itself; callers use the change to decide what to re-query.
type Change struct {
	Op Op
	// Refs are the entities whose data or resolved position changed,
	// including association dependents refreshed as a side effect.
	Refs []core.Ref
	// Full is set when every entity may have moved (cursor moves, loads).
	Full bool
	// Undone is the action kind reversed by an undo.
	Undone string
	// Status is the association outcome of OpAssociate.
	Status association.Status
	// Selection reports that the selection changed.
	Selection bool
}

func (c Change) with(refs ...core.Ref) Change {
	for _, r := range refs {
		if !containsRef(c.Refs, r) {
			c.Refs = append(c.Refs, r)
		}
	}
	return c
}

func containsRef(refs []core.Ref, r core.Ref) bool {
	for _, x := range refs {
		if x == r {
			return true
		}
	}
	return false
}
