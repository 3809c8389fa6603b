package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScene() core.Scene {
	return core.Scene{
		Name:           "Op Thunder: Phase/1",
		CenterLat:      41.9028,
		CenterLon:      12.4964,
		CenterX:        291952.123456789,
		CenterY:        4641604.5,
		UTMZone:        33,
		RadiusMeters:   1000,
		StartTimestamp: 1700000000,
		EndTimestamp:   1700003600,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testDocument() *core.Document {
	doc := core.NewDocument(testScene())

	doc.Put(&core.Entity{
		ID:       "g-1",
		Category: core.CategoryGround,
		Callsign: "Alpha, Lead",
		Type:     "unit",
		Keyframes: []core.Keyframe{
			{Timestamp: 1700000000, Position: core.Position2D{X: 291900.25, Y: 4641600.125}},
			{Timestamp: 1700000060, Position: core.Position2D{X: 291910.1, Y: 4641610.3}},
			{Timestamp: 1700000120, Position: core.Position2D{X: 0.1 + 0.2, Y: -1e-9}},
		},
		Position:  core.Position2D{X: 0.1 + 0.2, Y: -1e-9},
		Timestamp: 1700000120,
		Extra:     map[string]string{"note": `says "hi"`},
	})
	doc.Put(&core.Entity{
		ID:       "s-1",
		Category: core.CategoryShooting,
		Association: core.Association{
			GroundID:       "g-1",
			GroundCallsign: "Alpha, Lead",
			OriginalGround: core.SnapshotAt(core.Position2D{X: 291910.1, Y: 4641610.3}),
		},
		Shot: &core.Shot{
			AmmoType:  "HE",
			Target:    core.Position2D{X: 292000.5, Y: 4641700.75},
			Launch:    core.SnapshotAt(core.Position2D{X: 291910.1, Y: 4641610.3}),
			Timestamp: 1700000060,
		},
	})
	doc.Put(&core.Entity{
		ID:       "s-2",
		Category: core.CategoryShooting,
		Association: core.Association{
			GroundID:       "g-1",
			GroundCallsign: "Alpha, Lead",
		},
		Shot: &core.Shot{
			AmmoType:  "standard",
			Target:    core.Position2D{X: 1, Y: 2},
			Timestamp: 1700000000,
		},
	})
	doc.Put(&core.Entity{
		ID:          "r-1",
		Category:    core.CategoryReport,
		Callsign:    "Reporter-1",
		Description: "multi\nline",
		Keyframes:   []core.Keyframe{{Timestamp: 1700000010, Position: core.Position2D{X: 5, Y: 6}}},
		Position:    core.Position2D{X: 5, Y: 6},
		Timestamp:   1700000010,
	})
	doc.Put(&core.Entity{
		ID:           "t-1",
		Category:     core.CategoryTarget,
		TargetType:   "bunker",
		Position:     core.Position2D{X: 7, Y: 8},
		CreationTime: 1700000300,
	})
	doc.Put(&core.Entity{
		ID:        "i-1",
		Category:  core.CategoryInfrastructure,
		Type:      "bridge",
		Keyframes: []core.Keyframe{{Timestamp: 1700000000, Position: core.Position2D{X: 9, Y: 10}}},
		Position:  core.Position2D{X: 9, Y: 10},
		Timestamp: 1700000000,
	})

	doc.Buildings = []core.Feature{{ID: "b1", Type: "house", Points: []core.Position2D{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}}}}
	doc.Roads = []core.Feature{{ID: "r1", Type: "primary", Points: []core.Position2D{{X: 0, Y: 0}, {X: 10, Y: 10}}}}
	return doc
}

func roundTrip(t *testing.T, doc *core.Document) *core.Document {
	t.Helper()
	c := New(nil)
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, doc))
	got, err := c.Decode(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return got
}

func TestRoundTrip(t *testing.T) {
	doc := testDocument()
	got := roundTrip(t, doc)

	assert.Equal(t, doc.Scene, got.Scene)
	assert.Equal(t, doc.Buildings, got.Buildings)
	assert.Equal(t, doc.Roads, got.Roads)
	assert.Equal(t, doc.Count(), got.Count())

	for _, cat := range core.Categories {
		for id, want := range doc.Entities[cat] {
			have, ok := got.Entities[cat][id]
			require.True(t, ok, "%s %s missing", cat, id)
			assert.ElementsMatch(t, want.Keyframes, have.Keyframes, "%s keyframes", id)
			assert.Equal(t, want, have, "%s %s", cat, id)
		}
	}
}

func TestRoundTrip_UnavailableSnapshotsStayUnavailable(t *testing.T) {
	got := roundTrip(t, testDocument())

	s := got.Entities[core.CategoryShooting]["s-2"]
	require.NotNil(t, s)
	assert.Equal(t, core.Unavailable, s.Shot.Launch)
	assert.Equal(t, core.Unavailable, s.Association.OriginalGround)
	assert.Equal(t, "g-1", s.Association.GroundID)
}

func TestRoundTrip_FreeFormProperties(t *testing.T) {
	reg := registry.New()
	at := registry.Placement{Position: core.Position2D{X: 291900, Y: 4641600}, Time: 1700000000}
	g, err := reg.Create(core.CategoryGround, at, nil)
	require.NoError(t, err)
	s, err := reg.Create(core.CategoryShooting, at, nil)
	require.NoError(t, err)

	_, err = registry.SetProperty(g, "x", "hello")
	assert.ErrorIs(t, err, core.ErrReadOnly)
	_, err = registry.SetProperty(s, "original_ground_x", "hello")
	assert.ErrorIs(t, err, core.ErrReadOnly)

	_, err = registry.SetProperty(g, "remark", "hold the ridge")
	require.NoError(t, err)
	_, err = registry.SetProperty(s, "x", "free")
	require.NoError(t, err)

	got := roundTrip(t, reg.Snapshot(testScene()))
	assert.Equal(t, g.Extra, got.Entities[core.CategoryGround][g.ID].Extra)
	assert.Equal(t, s.Extra, got.Entities[core.CategoryShooting][s.ID].Extra)
}

func TestDecode_MirrorFollowsLatestKeyframe(t *testing.T) {
	doc := testDocument()
	g := doc.Entities[core.CategoryGround]["g-1"]
	g.Position = g.Keyframes[0].Position
	g.Timestamp = g.Keyframes[0].Timestamp

	got := roundTrip(t, doc).Entities[core.CategoryGround]["g-1"]
	last := g.Keyframes[len(g.Keyframes)-1]
	assert.Equal(t, last.Position, got.Position)
	assert.Equal(t, last.Timestamp, got.Timestamp)
	assert.Equal(t, g.Keyframes, got.Keyframes)
}

func TestEncode_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(nil).Encode(&buf, testDocument()))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	contents := map[string]string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(b)
	}

	folder := "Op Thunder_ Phase_1/"
	assert.ElementsMatch(t, []string{
		folder + "scene.json",
		folder + "buildings.csv",
		folder + "roads.csv",
		folder + "ground.csv",
		folder + "shooting.csv",
		folder + "report.csv",
		folder + "targets.csv",
		folder + "enemyinfrastructure.csv",
	}, names)

	shooting := strings.Split(contents[folder+"shooting.csv"], "\n")
	assert.Equal(t, "id,associated_ground_id,ground_callsign,timestamp,launch_location_x,launch_location_y,original_ground_x,original_ground_y,target_x,target_y,ammo_type", shooting[0])
	assert.Equal(t, `s-2,g-1,"Alpha, Lead",1700000000,None,None,,,1,2,standard`, shooting[2])

	ground := strings.Split(contents[folder+"ground.csv"], "\n")
	assert.Equal(t, "id,type,callsign,x,y,timestamp,note", ground[0])
	assert.Len(t, ground, 5, "one row per keyframe plus header and trailing newline")

	assert.Contains(t, contents[folder+"scene.json"], `"scene_name": "Op Thunder: Phase/1"`)
	assert.Contains(t, contents[folder+"roads.csv"], `r1,primary,"[[0,0],[10,10]]"`)
}

func TestDecode_LegacyArchive(t *testing.T) {
	// archives without an id column and with scene.json at the root
	files := map[string]string{
		"scene.json": `{"scene_name":"legacy","center_lat":10,"center_lon":20,"radius_meters":500,"start_timestamp":100,"end_timestamp":200,"created_at":"2024-01-01T00:00:00Z"}`,
		"targets.csv": "creation_time,x,y,target_type\n150,1.5,2.5,tank\n",
		"report.csv": "timestamp,x,y,desc,callsign,associated_ground_id,ground_callsign,original_ground_x,original_ground_y\n" +
			"120,1,2,seen,Rep,,,,\n",
		"roads.csv": "id,type,geometry\nr1,track,not-json\nr2,track,\"[[0,0],[1,1]]\"\n",
	}
	b := buildZip(t, files)

	doc, err := New(nil).Decode(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	require.Len(t, doc.Entities[core.CategoryTarget], 1)
	for _, tg := range doc.Entities[core.CategoryTarget] {
		assert.NotEmpty(t, tg.ID)
		assert.Equal(t, int64(150), tg.CreationTime)
		assert.Equal(t, core.Position2D{X: 1.5, Y: 2.5}, tg.Position)
		assert.Equal(t, "tank", tg.TargetType)
	}
	for _, r := range doc.Entities[core.CategoryReport] {
		assert.Equal(t, []core.Keyframe{{Timestamp: 120, Position: core.Position2D{X: 1, Y: 2}}}, r.Keyframes)
		assert.False(t, r.Association.Associated())
		assert.Equal(t, core.Unavailable, r.Association.OriginalGround)
	}
	require.Len(t, doc.Roads, 1, "malformed geometry is skipped")
	assert.Equal(t, "r2", doc.Roads[0].ID)
}

func TestDecode_Failures(t *testing.T) {
	c := New(nil)

	b := buildZip(t, map[string]string{"x/ground.csv": "id\n"})
	_, err := c.Decode(bytes.NewReader(b), int64(len(b)))
	assert.ErrorIs(t, err, ErrNoScene)

	b = buildZip(t, map[string]string{"x/scene.json": `{"scene_name":"bad","center_lat":10,"center_lon":20,"radius_meters":0,"start_timestamp":1,"end_timestamp":2}`})
	_, err = c.Decode(bytes.NewReader(b), int64(len(b)))
	assert.ErrorIs(t, err, core.ErrInvalidSceneParameters)

	b = buildZip(t, map[string]string{
		"x/scene.json": `{"scene_name":"ok","center_lat":10,"center_lon":20,"radius_meters":10,"start_timestamp":1,"end_timestamp":2}`,
		"x/ground.csv": "id,type,callsign,x,y,timestamp\ng,unit,A,1,2,5\ng,unit,A,3,4,5\n",
	})
	_, err = c.Decode(bytes.NewReader(b), int64(len(b)))
	assert.ErrorIs(t, err, core.ErrDuplicateTimestamp)

	b = buildZip(t, map[string]string{
		"x/scene.json": `{"scene_name":"ok","center_lat":10,"center_lon":20,"radius_meters":10,"start_timestamp":1,"end_timestamp":2}`,
		"x/ground.csv": "id,type,callsign,x,y,timestamp\ng,unit,A,abc,2,5\n",
	})
	_, err = c.Decode(bytes.NewReader(b), int64(len(b)))
	assert.ErrorIs(t, err, core.ErrInvalidValue)

	_, err = c.Decode(bytes.NewReader([]byte("not a zip")), 9)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "nested", "scene.zip")
	c := New(nil)

	doc := testDocument()
	require.NoError(t, c.Save(filename, doc))

	got, err := c.Load(filename)
	require.NoError(t, err)
	assert.Equal(t, doc.Count(), got.Count())

	matches, err := filepath.Glob(filepath.Join(dir, "nested", ".scene-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp file removed")

	_, err = c.Load(filepath.Join(dir, "missing.zip"))
	assert.Error(t, err)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
