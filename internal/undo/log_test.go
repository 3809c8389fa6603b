package undo

import (
	"testing"

	"github.com/OCAP2/sceneeditor/internal/association"
	"github.com/OCAP2/sceneeditor/internal/frames"
	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = registry.Placement{Position: core.Position2D{X: 10, Y: 20}, Time: 1000}

func setup(t *testing.T) (*registry.Registry, *Log, *core.Entity) {
	t.Helper()
	reg := registry.New()
	g, err := reg.Create(core.CategoryGround, origin, nil)
	require.NoError(t, err)
	return reg, NewLog(reg), g
}

func TestUndo_EmptyLog(t *testing.T) {
	_, log, _ := setup(t)
	_, err := log.Undo()
	assert.ErrorIs(t, err, core.ErrEmptyLog)
}

func TestUndo_Create(t *testing.T) {
	reg, log, _ := setup(t)
	before := reg.Snapshot(core.Scene{})

	rep, err := reg.Create(core.CategoryReport, origin, nil)
	require.NoError(t, err)
	log.Record(Create(rep.Ref()))

	a, err := log.Undo()
	require.NoError(t, err)
	assert.Equal(t, KindCreate, a.Kind)
	assert.Equal(t, before, reg.Snapshot(core.Scene{}))
	assert.Equal(t, 0, log.Len())
}

func TestUndo_Delete(t *testing.T) {
	reg, log, g := setup(t)
	require.NoError(t, frames.Add(g, 1050, core.Position2D{X: 100}))
	want := g.Clone()

	log.Record(Delete(g))
	reg.Delete(g.Category, g.ID)
	g.Keyframes = nil // the caller's copy no longer matters

	_, err := log.Undo()
	require.NoError(t, err)

	got, ok := reg.Get(core.CategoryGround, want.ID)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestUndo_DeleteRestoresDependents(t *testing.T) {
	reg, log, g := setup(t)
	s, err := reg.Create(core.CategoryShooting, origin, nil)
	require.NoError(t, err)

	scene := &core.Scene{CenterX: 10, CenterY: 20, RadiusMeters: 100}
	engine := association.New(reg, scene, clock(1000))
	_, err = engine.Associate(s, g.ID)
	require.NoError(t, err)
	want := association.Capture(s)
	require.True(t, want.Launch.Available)

	log.Record(Delete(g, Dependent{Ref: s.Ref(), State: want}))
	reg.Delete(g.Category, g.ID)
	engine.PropagateGroundMove(g.ID)
	require.False(t, s.Shot.Launch.Available)

	_, err = log.Undo()
	require.NoError(t, err)
	assert.Equal(t, want, association.Capture(s))
	_, ok := reg.Get(core.CategoryGround, g.ID)
	assert.True(t, ok)
}

func TestUndo_MoveExistingKeyframe(t *testing.T) {
	_, log, g := setup(t)

	last := LastWritten(g)
	prev, existed, err := frames.Upsert(g, 1000, core.Position2D{X: 99, Y: 99})
	require.NoError(t, err)
	require.True(t, existed)
	log.Record(Move(g.Ref(), 1000, prev, existed, last))

	_, err = log.Undo()
	require.NoError(t, err)

	pos, ok := frames.Resolve(g, 1000)
	require.True(t, ok)
	assert.Equal(t, origin.Position, pos)
	assert.Len(t, g.Keyframes, 1)
}

func TestUndo_MoveCreatedKeyframe(t *testing.T) {
	_, log, g := setup(t)

	last := LastWritten(g)
	prev, existed, err := frames.Upsert(g, 1030, core.Position2D{X: 99, Y: 99})
	require.NoError(t, err)
	require.False(t, existed)
	require.Equal(t, int64(1030), g.Timestamp)
	log.Record(Move(g.Ref(), 1030, prev, existed, last))

	_, err = log.Undo()
	require.NoError(t, err)

	_, ok := frames.At(g, 1030)
	assert.False(t, ok, "no phantom keyframe")
	pos, _ := frames.Resolve(g, 1030)
	assert.Equal(t, origin.Position, pos)
	assert.Equal(t, origin.Position, g.Position)
	assert.Equal(t, origin.Time, g.Timestamp)
}

func TestUndo_MoveFixed(t *testing.T) {
	reg, log, _ := setup(t)
	s, err := reg.Create(core.CategoryShooting, origin, nil)
	require.NoError(t, err)
	tg, err := reg.Create(core.CategoryTarget, origin, nil)
	require.NoError(t, err)

	log.Record(MoveFixed(s.Ref(), s.Shot.Target))
	s.Shot.Target = core.Position2D{X: 1, Y: 2}
	log.Record(MoveFixed(tg.Ref(), tg.Position))
	tg.Position = core.Position2D{X: 3, Y: 4}

	_, err = log.Undo()
	require.NoError(t, err)
	_, err = log.Undo()
	require.NoError(t, err)

	assert.Equal(t, origin.Position, s.Shot.Target)
	assert.Equal(t, origin.Position, tg.Position)
}

func TestUndo_AddAndDeleteFrame(t *testing.T) {
	_, log, g := setup(t)

	last := LastWritten(g)
	require.NoError(t, frames.Add(g, 1050, core.Position2D{X: 5}))
	log.Record(AddFrame(g.Ref(), 1050, last))

	kf, err := frames.Delete(g, 1000)
	require.NoError(t, err)
	log.Record(DeleteFrame(g.Ref(), kf))

	_, err = log.Undo()
	require.NoError(t, err)
	assert.Equal(t, []core.Keyframe{{Timestamp: 1000, Position: origin.Position}, {Timestamp: 1050, Position: core.Position2D{X: 5}}}, frames.Sorted(g))

	assert.Equal(t, core.Keyframe{Timestamp: 1050, Position: core.Position2D{X: 5}}, LastWritten(g))

	_, err = log.Undo()
	require.NoError(t, err)
	assert.Equal(t, []core.Keyframe{{Timestamp: 1000, Position: origin.Position}}, frames.Sorted(g))
	assert.Equal(t, last, LastWritten(g))
}

func TestUndo_UpdateProperty(t *testing.T) {
	_, log, g := setup(t)

	prev, err := registry.SetProperty(g, "callsign", "Alpha")
	require.NoError(t, err)
	log.Record(UpdateProperty(g.Ref(), "callsign", prev))

	_, err = log.Undo()
	require.NoError(t, err)
	assert.Equal(t, "Unit-1", g.Callsign)
}

func TestUndo_Associate(t *testing.T) {
	reg, log, g := setup(t)
	s, err := reg.Create(core.CategoryShooting, origin, nil)
	require.NoError(t, err)

	scene := &core.Scene{CenterX: 10, CenterY: 20, RadiusMeters: 100}
	engine := association.New(reg, scene, clock(1000))

	log.Record(Associate(s.Ref(), association.Capture(s)))
	_, err = engine.Associate(s, g.ID)
	require.NoError(t, err)
	require.True(t, s.Shot.Launch.Available)

	_, err = log.Undo()
	require.NoError(t, err)
	assert.False(t, s.Association.Associated())
	assert.Equal(t, core.Unavailable, s.Shot.Launch)
}

func TestUndo_MissingEntityKeepsAction(t *testing.T) {
	reg, log, g := setup(t)
	log.Record(AddFrame(g.Ref(), 1000, LastWritten(g)))
	reg.Delete(g.Category, g.ID)

	_, err := log.Undo()
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, log.Len())
}

func TestUndo_LIFO(t *testing.T) {
	reg, log, _ := setup(t)
	a, _ := reg.Create(core.CategoryReport, origin, nil)
	log.Record(Create(a.Ref()))
	b, _ := reg.Create(core.CategoryReport, origin, nil)
	log.Record(Create(b.Ref()))

	first, err := log.Undo()
	require.NoError(t, err)
	assert.Equal(t, b.ID, first.Ref.ID)

	second, err := log.Undo()
	require.NoError(t, err)
	assert.Equal(t, a.ID, second.Ref.ID)
}

func TestTouchesKeyframes(t *testing.T) {
	ref := core.Ref{Category: core.CategoryGround, ID: "g"}
	assert.True(t, Move(ref, 1, core.Position2D{}, false, core.Keyframe{}).TouchesKeyframes())
	assert.False(t, MoveFixed(ref, core.Position2D{}).TouchesKeyframes())
	assert.False(t, UpdateProperty(ref, "k", registry.Previous{}).TouchesKeyframes())
}

type clock int64

func (c clock) AbsoluteTime() int64 { return int64(c) }
