// Package frames resolves entity positions from sparse keyframe timelines and
// mutates those timelines.
//
// A mobile entity occupies the position of its latest keyframe at or before
// the query time, and has no position before its first keyframe. Shooting
// events resolve to their fixed target position at any time. Targets resolve
// to their fixed position from their creation time on.
package frames

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/OCAP2/sceneeditor/pkg/core"
)

func byTimestamp(a, b core.Keyframe) int {
	return cmp.Compare(a.Timestamp, b.Timestamp)
}

// ensureSorted orders the timeline ascending. Timelines decoded from an
// archive may arrive in any order.
func ensureSorted(e *core.Entity) {
	if !slices.IsSortedFunc(e.Keyframes, byTimestamp) {
		slices.SortStableFunc(e.Keyframes, byTimestamp)
	}
}

func index(e *core.Entity, t int64) int {
	for i, kf := range e.Keyframes {
		if kf.Timestamp == t {
			return i
		}
	}
	return -1
}

// Resolve returns the position of e at absolute time t, or false if the
// entity has no position yet.
func Resolve(e *core.Entity, t int64) (core.Position2D, bool) {
	if e == nil {
		return core.Position2D{}, false
	}

	switch e.Category {
	case core.CategoryShooting:
		if e.Shot == nil {
			return core.Position2D{}, false
		}
		return e.Shot.Target, true
	case core.CategoryTarget:
		if e.CreationTime > t {
			return core.Position2D{}, false
		}
		return e.Position, true
	}

	ensureSorted(e)

	// first keyframe strictly after t
	i, _ := slices.BinarySearchFunc(e.Keyframes, t+1, func(kf core.Keyframe, ts int64) int {
		return cmp.Compare(kf.Timestamp, ts)
	})
	if i == 0 {
		return core.Position2D{}, false
	}
	return e.Keyframes[i-1].Position, true
}

// At returns the keyframe recorded at exactly t.
func At(e *core.Entity, t int64) (core.Keyframe, bool) {
	if i := index(e, t); i >= 0 {
		return e.Keyframes[i], true
	}
	return core.Keyframe{}, false
}

// Sorted returns a copy of the timeline in ascending timestamp order.
func Sorted(e *core.Entity) []core.Keyframe {
	out := slices.Clone(e.Keyframes)
	slices.SortStableFunc(out, byTimestamp)
	return out
}

// Add inserts a keyframe at t. It fails with core.ErrDuplicateTimestamp if one
// already exists there, leaving the stored position unchanged.
func Add(e *core.Entity, t int64, pos core.Position2D) error {
	if !e.Category.Mobile() {
		return fmt.Errorf("add keyframe to %s: %w", e.Category, core.ErrNotMobile)
	}
	if index(e, t) >= 0 {
		return fmt.Errorf("add keyframe at %d: %w", t, core.ErrDuplicateTimestamp)
	}

	e.Keyframes = append(e.Keyframes, core.Keyframe{Timestamp: t, Position: pos})
	ensureSorted(e)
	mirror(e, t, pos)
	return nil
}

// Delete removes the keyframe at t and returns it. It fails with
// core.ErrNotFound if there is none. The position mirror is left as is.
func Delete(e *core.Entity, t int64) (core.Keyframe, error) {
	i := index(e, t)
	if i < 0 {
		return core.Keyframe{}, fmt.Errorf("delete keyframe at %d: %w", t, core.ErrNotFound)
	}
	kf := e.Keyframes[i]
	e.Keyframes = slices.Delete(e.Keyframes, i, i+1)
	return kf, nil
}

// Upsert overwrites the keyframe at t or inserts a new one. It returns the
// previous position at t and whether a keyframe existed there.
func Upsert(e *core.Entity, t int64, pos core.Position2D) (prev core.Position2D, existed bool, err error) {
	if !e.Category.Mobile() {
		return core.Position2D{}, false, fmt.Errorf("move keyframe of %s: %w", e.Category, core.ErrNotMobile)
	}

	if i := index(e, t); i >= 0 {
		prev = e.Keyframes[i].Position
		e.Keyframes[i].Position = pos
		mirror(e, t, pos)
		return prev, true, nil
	}

	e.Keyframes = append(e.Keyframes, core.Keyframe{Timestamp: t, Position: pos})
	ensureSorted(e)
	mirror(e, t, pos)
	return core.Position2D{}, false, nil
}

// mirror keeps the legacy current-position fields in step with the latest write.
func mirror(e *core.Entity, t int64, pos core.Position2D) {
	e.Position = pos
	e.Timestamp = t
}
