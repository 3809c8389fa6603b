package registry

import (
	"fmt"
	"testing"

	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = Placement{Position: core.Position2D{X: 500100, Y: 4649776}, Time: 1000}

func newSeqRegistry() *Registry {
	r := New()
	n := 0
	r.newID = func() string {
		n++
		return fmt.Sprintf("id-%04d", n)
	}
	return r
}

func TestCreate_GroundDefaults(t *testing.T) {
	r := New()

	g1, err := r.Create(core.CategoryGround, at, nil)
	require.NoError(t, err)
	g2, err := r.Create(core.CategoryGround, at, nil)
	require.NoError(t, err)

	assert.NotEqual(t, g1.ID, g2.ID)
	assert.Equal(t, "Unit-1", g1.Callsign)
	assert.Equal(t, "Unit-2", g2.Callsign)
	assert.Equal(t, "unit", g1.Type)
	assert.Equal(t, []core.Keyframe{{Timestamp: 1000, Position: at.Position}}, g1.Keyframes)
	assert.Equal(t, at.Position, g1.Position)
	assert.Equal(t, int64(1000), g1.Timestamp)
	assert.Nil(t, g1.Shot)
}

func TestCreate_ShootingDefaults(t *testing.T) {
	r := New()

	s, err := r.Create(core.CategoryShooting, at, nil)
	require.NoError(t, err)

	require.NotNil(t, s.Shot)
	assert.Equal(t, "standard", s.Shot.AmmoType)
	assert.Equal(t, at.Position, s.Shot.Target)
	assert.Equal(t, core.Unavailable, s.Shot.Launch)
	assert.Equal(t, int64(1000), s.Shot.Timestamp)
	assert.Empty(t, s.Keyframes)
	assert.False(t, s.Association.Associated())
}

func TestCreate_OtherDefaults(t *testing.T) {
	r := New()

	spot, err := r.Create(core.CategoryEnemySpot, at, nil)
	require.NoError(t, err)
	assert.Equal(t, "Observer-1", spot.Callsign)
	assert.Equal(t, "Enemy spotted", spot.Description)

	rep, err := r.Create(core.CategoryReport, at, nil)
	require.NoError(t, err)
	assert.Equal(t, "Reporter-1", rep.Callsign)
	assert.Equal(t, "Report description", rep.Description)

	tg, err := r.Create(core.CategoryTarget, at, nil)
	require.NoError(t, err)
	assert.Equal(t, "unknown", tg.TargetType)
	assert.Equal(t, int64(1000), tg.CreationTime)
	assert.Empty(t, tg.Keyframes)

	inf, err := r.Create(core.CategoryInfrastructure, at, nil)
	require.NoError(t, err)
	assert.Equal(t, "building", inf.Type)
	assert.Len(t, inf.Keyframes, 1)
}

func TestCreate_WithProps(t *testing.T) {
	r := New()

	g, err := r.Create(core.CategoryGround, at, map[string]string{"callsign": "Alpha", "note": "lead"})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", g.Callsign)
	assert.Equal(t, map[string]string{"note": "lead"}, g.Extra)
}

func TestCreate_BadPropLeavesNothing(t *testing.T) {
	r := New()

	_, err := r.Create(core.CategoryShooting, at, map[string]string{"target_x": "abc"})
	require.ErrorIs(t, err, core.ErrInvalidValue)
	assert.Equal(t, 0, r.Len(core.CategoryShooting))
}

func TestCreate_UnknownCategory(t *testing.T) {
	r := New()
	_, err := r.Create(core.Category("Boat"), at, nil)
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
}

func TestDeleteAndGet(t *testing.T) {
	r := New()
	g, err := r.Create(core.CategoryGround, at, nil)
	require.NoError(t, err)

	got, ok := r.Get(core.CategoryGround, g.ID)
	require.True(t, ok)
	assert.Same(t, g, got)

	removed, ok := r.Delete(core.CategoryGround, g.ID)
	require.True(t, ok)
	assert.Same(t, g, removed)

	_, ok = r.Get(core.CategoryGround, g.ID)
	assert.False(t, ok)

	// silent no-op when absent
	_, ok = r.Delete(core.CategoryGround, g.ID)
	assert.False(t, ok)
	_, ok = r.Delete(core.CategoryReport, "nope")
	assert.False(t, ok)
}

func TestFindAndList(t *testing.T) {
	r := newSeqRegistry()
	g1, _ := r.Create(core.CategoryGround, at, map[string]string{"callsign": "Bravo"})
	g2, _ := r.Create(core.CategoryGround, at, map[string]string{"callsign": "Alpha"})
	rep, _ := r.Create(core.CategoryReport, at, nil)

	found, ok := r.Find(rep.ID)
	require.True(t, ok)
	assert.Same(t, rep, found)

	list := r.List(core.CategoryGround)
	require.Len(t, list, 2)
	assert.Same(t, g2, list[0])
	assert.Same(t, g1, list[1])
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	r := New()
	g, _ := r.Create(core.CategoryGround, at, nil)

	doc := r.Snapshot(core.Scene{Name: "s"})
	snap := doc.Entities[core.CategoryGround][g.ID]
	require.NotNil(t, snap)
	assert.Equal(t, g, snap)

	g.Keyframes[0].Position.X = -1
	assert.NotEqual(t, g.Keyframes[0], snap.Keyframes[0])
}

func TestReplace(t *testing.T) {
	r := New()
	_, _ = r.Create(core.CategoryGround, at, nil)

	doc := core.NewDocument(core.Scene{})
	doc.Put(&core.Entity{ID: "x", Category: core.CategoryReport})
	r.Replace(doc)

	assert.Equal(t, 0, r.Len(core.CategoryGround))
	_, ok := r.Get(core.CategoryReport, "x")
	assert.True(t, ok)
}

func TestSetProperty(t *testing.T) {
	r := New()
	s, _ := r.Create(core.CategoryShooting, at, nil)

	prev, err := SetProperty(s, "target_x", "12.5")
	require.NoError(t, err)
	assert.Equal(t, Previous{Value: "500100", Present: true}, prev)
	assert.Equal(t, 12.5, s.Shot.Target.X)

	_, err = SetProperty(s, "launch_location_x", "1")
	assert.ErrorIs(t, err, core.ErrReadOnly)

	_, err = SetProperty(s, "associated_ground_id", "g")
	assert.ErrorIs(t, err, core.ErrReadOnly)

	prev, err = SetProperty(s, "remark", "hello")
	require.NoError(t, err)
	assert.False(t, prev.Present)

	require.NoError(t, RestoreProperty(s, "remark", prev))
	_, ok := Property(s, "remark")
	assert.False(t, ok)
}

func TestProperty_LaunchUnavailable(t *testing.T) {
	s := &core.Entity{Category: core.CategoryShooting, Shot: &core.Shot{}}
	v, ok := Property(s, "launch_location_x")
	require.True(t, ok)
	assert.Equal(t, "None", v)

	s.Shot.Launch = core.SnapshotAt(core.Position2D{X: 0, Y: 0})
	v, _ = Property(s, "launch_location_x")
	assert.Equal(t, "0", v)
}

func TestSetProperty_CategoryDiscriminant(t *testing.T) {
	// a ground unit has no target fields; the key is free-form here
	g := &core.Entity{Category: core.CategoryGround}
	_, err := SetProperty(g, "target_x", "abc")
	require.NoError(t, err)
	assert.Nil(t, g.Shot)
	assert.Equal(t, "abc", g.Extra["target_x"])
}

func TestSetProperty_StoredColumnsRejected(t *testing.T) {
	tests := []struct {
		category core.Category
		key      string
	}{
		{core.CategoryGround, "x"},
		{core.CategoryGround, "timestamp"},
		{core.CategoryInfrastructure, "y"},
		{core.CategoryShooting, "original_ground_x"},
		{core.CategoryReport, "original_ground_y"},
		{core.CategoryTarget, "x"},
	}
	for _, tt := range tests {
		t.Run(string(tt.category)+"/"+tt.key, func(t *testing.T) {
			e, err := New().Create(tt.category, at, nil)
			require.NoError(t, err)

			_, err = SetProperty(e, tt.key, "hello")
			assert.ErrorIs(t, err, core.ErrReadOnly)
			assert.NotContains(t, e.Extra, tt.key)
		})
	}

	// x is not a stored column of a shooting event
	s, _ := New().Create(core.CategoryShooting, at, nil)
	_, err := SetProperty(s, "x", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", s.Extra["x"])
}

func TestFields(t *testing.T) {
	keys := func(c core.Category) []string {
		var out []string
		for _, f := range Fields(c) {
			out = append(out, f.Key)
		}
		return out
	}
	assert.Equal(t, []string{"callsign", "type"}, keys(core.CategoryGround))
	assert.Equal(t, []string{"associated_ground_id", "ground_callsign", "callsign", "desc"}, keys(core.CategoryReport))
	assert.Len(t, Fields(core.CategoryShooting), 8)
	assert.Nil(t, Fields(core.Category("nope")))
}
