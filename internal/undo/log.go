package undo

import (
	"fmt"

	"github.com/OCAP2/sceneeditor/internal/association"
	"github.com/OCAP2/sceneeditor/internal/frames"
	"github.com/OCAP2/sceneeditor/internal/queue"
	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// Log is the ordered, unbounded action history of a session.
type Log struct {
	actions *queue.Stack[Action]
	reg     *registry.Registry
}

// NewLog creates an empty log that reverses actions against reg.
func NewLog(reg *registry.Registry) *Log {
	return &Log{
		actions: queue.NewStack[Action](),
		reg:     reg,
	}
}

// Record appends an action.
func (l *Log) Record(a Action) {
	l.actions.Push(a)
}

// Len returns the number of recorded actions.
func (l *Log) Len() int {
	return l.actions.Len()
}

// Clear drops the history.
func (l *Log) Clear() {
	l.actions.Clear()
}

// Undo reverses the most recent action and returns it. The action stays on
// the log if its inverse cannot be applied.
func (l *Log) Undo() (Action, error) {
	a, ok := l.actions.Peek()
	if !ok {
		return Action{}, core.ErrEmptyLog
	}
	if err := l.revert(a); err != nil {
		return a, fmt.Errorf("undo %s: %w", a.Kind, err)
	}
	l.actions.Pop()
	return a, nil
}

func (l *Log) revert(a Action) error {
	switch a.Kind {
	case KindCreate:
		l.reg.Delete(a.Ref.Category, a.Ref.ID)
		return nil
	case KindDelete:
		if a.Entity == nil {
			return fmt.Errorf("%s %s: no snapshot", a.Ref.Category, a.Ref.ID)
		}
		// the log keeps its own copy in case the action is ever replayed
		if err := l.reg.Insert(a.Entity.Clone()); err != nil {
			return err
		}
		for _, d := range a.Dependents {
			if e, ok := l.reg.Get(d.Ref.Category, d.Ref.ID); ok {
				association.Restore(e, d.State)
			}
		}
		return nil
	}

	e, ok := l.reg.Get(a.Ref.Category, a.Ref.ID)
	if !ok {
		return fmt.Errorf("%s %s: %w", a.Ref.Category, a.Ref.ID, core.ErrNotFound)
	}

	switch a.Kind {
	case KindMove:
		if a.Fixed {
			return restoreFixed(e, a.Prior)
		}
		var err error
		if a.PriorExisted {
			_, _, err = frames.Upsert(e, a.Timestamp, a.Prior)
		} else {
			_, err = frames.Delete(e, a.Timestamp)
		}
		if err != nil {
			return err
		}
		restoreLast(e, a.Last)
		return nil
	case KindAddFrame:
		if _, err := frames.Delete(e, a.Timestamp); err != nil {
			return err
		}
		restoreLast(e, a.Last)
		return nil
	case KindDeleteFrame:
		last := LastWritten(e)
		if err := frames.Add(e, a.Frame.Timestamp, a.Frame.Position); err != nil {
			return err
		}
		restoreLast(e, last)
		return nil
	case KindUpdateProperty:
		return registry.RestoreProperty(e, a.Key, a.Previous)
	case KindAssociate:
		association.Restore(e, a.Association)
		return nil
	}
	return fmt.Errorf("unknown action kind %q", a.Kind)
}

func restoreFixed(e *core.Entity, prior core.Position2D) error {
	switch e.Category {
	case core.CategoryShooting:
		if e.Shot == nil {
			return fmt.Errorf("shooting %s has no shot data", e.ID)
		}
		e.Shot.Target = prior
	case core.CategoryTarget:
		e.Position = prior
	default:
		return fmt.Errorf("fixed move of %s: %w", e.Category, core.ErrNotMobile)
	}
	return nil
}
