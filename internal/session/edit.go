package session

import (
	"fmt"

	"github.com/OCAP2/sceneeditor/internal/association"
	"github.com/OCAP2/sceneeditor/internal/frames"
	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/internal/timeline"
	"github.com/OCAP2/sceneeditor/internal/undo"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

const associationKey = "associated_ground_id"

func (s *Session) ready() error {
	if s.scene == nil {
		return core.ErrNoScene
	}
	return nil
}

// Create places a new entity of category c at pos at the cursor time and
// selects it.
func (s *Session) Create(c core.Category, pos core.Position2D, props map[string]string) (*core.Entity, Change, error) {
	if err := s.ready(); err != nil {
		return nil, Change{}, err
	}
	now := s.cursor.AbsoluteTime()

	e, err := s.reg.Create(c, registry.Placement{Position: pos, Time: now}, props)
	if err != nil {
		return nil, Change{}, err
	}
	ref := e.Ref()
	s.actions.Record(undo.Create(ref))
	s.selection = &ref

	if !s.scene.Contains(pos) {
		s.log.Debug("entity placed outside scene radius", "category", c, "id", e.ID)
	}
	return e, Change{Op: OpCreate, Refs: []core.Ref{ref}, Selection: true}, nil
}

// Delete removes an entity. Entities associated with a deleted ground unit
// keep their reference; Shooting launch snapshots become unavailable.
func (s *Session) Delete(ref core.Ref) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}

	var dependents []undo.Dependent
	if ref.Category == core.CategoryGround {
		for _, d := range s.assoc.Dependents(ref.ID) {
			if de, ok := s.reg.Get(d.Category, d.ID); ok {
				dependents = append(dependents, undo.Dependent{Ref: d, State: association.Capture(de)})
			}
		}
	}
	s.actions.Record(undo.Delete(e, dependents...))
	s.reg.Delete(ref.Category, ref.ID)

	ch := Change{Op: OpDelete, Refs: []core.Ref{ref}}
	if s.selection != nil && *s.selection == ref {
		s.selection = nil
		ch.Selection = true
	}
	if ref.Category == core.CategoryGround {
		ch = ch.with(s.assoc.PropagateGroundMove(ref.ID)...)
	}
	return ch, nil
}

// DeleteSelected deletes the selected entity.
func (s *Session) DeleteSelected() (Change, error) {
	e, err := s.Selected()
	if err != nil {
		return Change{}, err
	}
	return s.Delete(e.Ref())
}

// Move drags an entity to pos. Mobile entities get their keyframe at the
// cursor overwritten or created. A Shooting event moves its target and a
// Targets entity its fixed position, regardless of time.
func (s *Session) Move(ref core.Ref, pos core.Position2D) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}
	ch := Change{Op: OpMove, Refs: []core.Ref{ref}}

	switch e.Category {
	case core.CategoryShooting:
		if e.Shot == nil {
			return Change{}, fmt.Errorf("shooting %s has no shot data", e.ID)
		}
		s.actions.Record(undo.MoveFixed(ref, e.Shot.Target))
		e.Shot.Target = pos
		return ch, nil
	case core.CategoryTarget:
		s.actions.Record(undo.MoveFixed(ref, e.Position))
		e.Position = pos
		return ch, nil
	}

	now := s.cursor.AbsoluteTime()
	s.debugWindow("move", ref, now)
	last := undo.LastWritten(e)
	prior, existed, err := frames.Upsert(e, now, pos)
	if err != nil {
		return Change{}, err
	}
	s.actions.Record(undo.Move(ref, now, prior, existed, last))
	return s.afterTimeline(ch, e), nil
}

// AddFrame inserts a keyframe at the cursor holding the position the entity
// had one second earlier, or its last written position if it had none.
func (s *Session) AddFrame(ref core.Ref) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}
	now := s.cursor.AbsoluteTime()

	pos, ok := frames.Resolve(e, now-1)
	if !ok {
		pos = e.Position
	}
	return s.addKeyframe(e, now, pos)
}

// AddKeyframe inserts a keyframe at an explicit absolute time.
func (s *Session) AddKeyframe(ref core.Ref, t int64, pos core.Position2D) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}
	return s.addKeyframe(e, t, pos)
}

func (s *Session) addKeyframe(e *core.Entity, t int64, pos core.Position2D) (Change, error) {
	ref := e.Ref()
	last := undo.LastWritten(e)
	if err := frames.Add(e, t, pos); err != nil {
		return Change{}, err
	}
	s.debugWindow("addFrame", ref, t)
	s.actions.Record(undo.AddFrame(ref, t, last))
	return s.afterTimeline(Change{Op: OpAddFrame, Refs: []core.Ref{ref}}, e), nil
}

// DeleteFrame removes the keyframe at the cursor.
func (s *Session) DeleteFrame(ref core.Ref) (Change, error) {
	if err := s.ready(); err != nil {
		return Change{}, err
	}
	return s.DeleteKeyframe(ref, s.cursor.AbsoluteTime())
}

// DeleteKeyframe removes the keyframe at absolute time t.
func (s *Session) DeleteKeyframe(ref core.Ref, t int64) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}
	if !e.Category.Mobile() {
		return Change{}, fmt.Errorf("delete keyframe of %s: %w", e.Category, core.ErrNotMobile)
	}
	kf, err := frames.Delete(e, t)
	if err != nil {
		return Change{}, err
	}
	s.actions.Record(undo.DeleteFrame(ref, kf))
	return s.afterTimeline(Change{Op: OpDeleteFrame, Refs: []core.Ref{ref}}, e), nil
}

// afterTimeline refreshes the dependents of a ground unit whose keyframes
// changed.
func (s *Session) afterTimeline(ch Change, e *core.Entity) Change {
	if e.Category != core.CategoryGround {
		return ch
	}
	return ch.with(s.assoc.PropagateGroundMove(e.ID)...)
}

// SetProperty writes a property. The association key is routed through the
// association engine: an empty value clears the association.
func (s *Session) SetProperty(ref core.Ref, key, value string) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}
	if key == associationKey && e.Category.Associable() {
		if value == "" {
			return s.ClearAssociation(ref)
		}
		return s.Associate(ref, value)
	}

	prev, err := registry.SetProperty(e, key, value)
	if err != nil {
		return Change{}, err
	}
	s.actions.Record(undo.UpdateProperty(ref, key, prev))

	return Change{Op: OpProperty, Refs: []core.Ref{ref}}, nil
}

// Associate points ref at a ground unit. The returned change carries the
// association status; an out-of-range association is still recorded.
func (s *Session) Associate(ref core.Ref, groundID string) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}
	prev := association.Capture(e)
	status, err := s.assoc.Associate(e, groundID)
	if err != nil {
		return Change{}, err
	}
	s.actions.Record(undo.Associate(ref, prev))
	if status == association.StatusOutOfRange {
		s.log.Debug("ground unit out of range, snapshots unavailable", "id", ref.ID, "ground", groundID)
	}
	return Change{Op: OpAssociate, Refs: []core.Ref{ref}, Status: status}, nil
}

// ClearAssociation removes the ground reference of ref.
func (s *Session) ClearAssociation(ref core.Ref) (Change, error) {
	e, err := s.Entity(ref)
	if err != nil {
		return Change{}, err
	}
	if !e.Category.Associable() {
		return Change{}, fmt.Errorf("clear association of %s: %w", e.Category, core.ErrNotAssociable)
	}
	prev := association.Capture(e)
	s.assoc.ClearAssociation(e)
	s.actions.Record(undo.Associate(ref, prev))
	return Change{Op: OpAssociate, Refs: []core.Ref{ref}, Status: association.StatusOutOfRange}, nil
}

// Undo reverses the most recent action. Undoing a ground unit's timeline
// change refreshes its associated shooting events, except for a restored
// delete, whose dependents get back the state they had before it.
func (s *Session) Undo() (Change, error) {
	if err := s.ready(); err != nil {
		return Change{}, err
	}
	a, err := s.actions.Undo()
	if err != nil {
		return Change{}, err
	}

	ch := Change{Op: OpUndo, Refs: []core.Ref{a.Ref}, Undone: string(a.Kind)}
	if a.Kind == undo.KindCreate && s.selection != nil && *s.selection == a.Ref {
		s.selection = nil
		ch.Selection = true
	}
	switch {
	case a.Kind == undo.KindDelete:
		for _, d := range a.Dependents {
			ch = ch.with(d.Ref)
		}
	case a.Ref.Category == core.CategoryGround && a.TouchesKeyframes():
		ch = ch.with(s.assoc.PropagateGroundMove(a.Ref.ID)...)
	}
	return ch, nil
}

// UndoDepth returns the number of recorded actions.
func (s *Session) UndoDepth() int {
	if s.actions == nil {
		return 0
	}
	return s.actions.Len()
}

// AdvanceTo moves the cursor to offset seconds, clamped to the scene.
func (s *Session) AdvanceTo(offset int64) (Change, error) {
	if err := s.ready(); err != nil {
		return Change{}, err
	}
	s.cursor.AdvanceTo(timeline.Clamp(offset, s.scene.Duration()))
	return Change{Op: OpCursor, Full: true}, nil
}

// Step advances the cursor by one second. It reports false, without moving,
// once the cursor is at the end of the scene.
func (s *Session) Step() (Change, bool, error) {
	if err := s.ready(); err != nil {
		return Change{}, false, err
	}
	if s.cursor.Offset() >= s.scene.Duration() {
		return Change{}, false, nil
	}
	ch, err := s.AdvanceTo(s.cursor.Offset() + 1)
	return ch, err == nil, err
}

// ResetTimeline moves the cursor back to the scene start.
func (s *Session) ResetTimeline() (Change, error) {
	return s.AdvanceTo(0)
}
