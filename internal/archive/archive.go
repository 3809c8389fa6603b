// Package archive reads and writes scenes as zip archives: a folder named
// after the scene holding scene.json, buildings.csv, roads.csv and one CSV per
// entity category.
//
// Mobile entities are stored as their keyframes only. On decode the
// current-position mirror (Entity.Position and Entity.Timestamp) is set to
// the latest keyframe, so a mirror left at an earlier keyframe by an edit is
// not kept.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/internal/util"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

const (
	sceneFile     = "scene.json"
	buildingsFile = "buildings.csv"
	roadsFile     = "roads.csv"
)

// ErrNoScene is returned when an archive has no scene.json.
var ErrNoScene = errors.New("scene.json not found in archive")

// Codec encodes and decodes scene archives.
type Codec struct {
	log *slog.Logger
}

// New creates a codec. Skipped basemap rows are reported to logger.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{log: logger}
}

// Encode writes doc as a zip archive to w.
func (c *Codec) Encode(w io.Writer, doc *core.Document) error {
	zw := zip.NewWriter(w)
	folder := util.SanitizeName(doc.Scene.Name)
	if err := zw.SetComment("Scene: " + folder); err != nil {
		return err
	}

	create := func(name string) (io.Writer, error) {
		return zw.Create(path.Join(folder, name))
	}

	f, err := create(sceneFile)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc.Scene); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}

	basemap := []struct {
		name     string
		features []core.Feature
	}{
		{buildingsFile, doc.Buildings},
		{roadsFile, doc.Roads},
	}
	for _, b := range basemap {
		if len(b.features) == 0 {
			continue
		}
		f, err := create(b.name)
		if err != nil {
			return err
		}
		if err := writeFeatures(f, b.features); err != nil {
			return fmt.Errorf("encode %s: %w", b.name, err)
		}
	}

	for _, cat := range core.Categories {
		list := sortedEntities(doc.Entities[cat])
		if len(list) == 0 {
			continue
		}
		f, err := create(cat.FileStem() + ".csv")
		if err != nil {
			return err
		}
		if err := writeEntities(f, cat, list); err != nil {
			return fmt.Errorf("encode %s: %w", cat, err)
		}
	}

	return zw.Close()
}

// Decode reads an archive. Nothing is returned unless every entity file
// decoded; malformed basemap rows are skipped.
func (c *Codec) Decode(r io.ReaderAt, size int64) (*core.Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	var folder string
	found := false
	for _, f := range zr.File {
		files[f.Name] = f
		if !found && !f.FileInfo().IsDir() && path.Base(f.Name) == sceneFile {
			folder = path.Dir(f.Name)
			found = true
		}
	}
	if !found {
		return nil, ErrNoScene
	}
	lookup := func(name string) *zip.File {
		if folder == "." {
			return files[name]
		}
		return files[folder+"/"+name]
	}

	var scene core.Scene
	if err := readJSON(lookup(sceneFile), &scene); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if scene.Name == "" {
		return nil, fmt.Errorf("%w: scene_name is empty", core.ErrInvalidSceneParameters)
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	doc := core.NewDocument(scene)
	if doc.Buildings, err = c.readFeatures(lookup(buildingsFile)); err != nil {
		return nil, err
	}
	if doc.Roads, err = c.readFeatures(lookup(roadsFile)); err != nil {
		return nil, err
	}

	for _, cat := range core.Categories {
		f := lookup(cat.FileStem() + ".csv")
		if f == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		entities, err := readEntities(rc, cat)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		for _, e := range entities {
			doc.Put(e)
		}
	}
	return doc, nil
}

// Save encodes doc to a file. The file is written next to its destination and
// renamed into place, so a failed save never leaves a truncated archive.
func (c *Codec) Save(filename string, doc *core.Document) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf, doc); err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".scene-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// Load decodes an archive file.
func (c *Codec) Load(filename string) (*core.Document, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return c.Decode(bytes.NewReader(b), int64(len(b)))
}

func readJSON(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}

func writeFeatures(w io.Writer, features []core.Feature) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "type", "geometry"}); err != nil {
		return err
	}
	for _, f := range features {
		if err := cw.Write([]string{f.ID, f.Type, geo.FormatPoints(f.Points)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (c *Codec) readFeatures(f *zip.File) ([]core.Feature, error) {
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}

	var out []core.Feature
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 3 {
			c.log.Warn("skipping short basemap row", "file", f.Name, "line", i+1)
			continue
		}
		points, err := geo.ParsePoints(rec[2])
		if err != nil {
			c.log.Warn("skipping basemap row", "file", f.Name, "line", i+1, "error", err)
			continue
		}
		out = append(out, core.Feature{ID: rec[0], Type: rec[1], Points: points})
	}
	return out, nil
}

func sortedEntities(m map[string]*core.Entity) []*core.Entity {
	out := make([]*core.Entity, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	// id order keeps archives byte-stable across saves
	slices.SortFunc(out, func(a, b *core.Entity) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
