package archive

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/OCAP2/sceneeditor/internal/frames"
	"github.com/OCAP2/sceneeditor/internal/registry"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/google/uuid"
)

// Headers returns the fixed column list of a category file. Every list
// starts with id so entities with several keyframes regroup on import.
func Headers(c core.Category) []string {
	return registry.Columns(c)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// extraColumns returns the sorted free-form keys used by any entity in list
// that are not already fixed columns.
func extraColumns(fixed []string, list []*core.Entity) []string {
	var keys []string
	for _, e := range list {
		for k := range e.Extra {
			if !slices.Contains(fixed, k) && !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}

// writeEntities writes one row per keyframe of every entity in list, or a
// single row when the entity has no timeline.
func writeEntities(w io.Writer, c core.Category, list []*core.Entity) error {
	fixed := Headers(c)
	header := append(slices.Clone(fixed), extraColumns(fixed, list)...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, e := range list {
		if c.Mobile() && len(e.Keyframes) > 0 {
			for _, kf := range frames.Sorted(e) {
				for i, h := range header {
					row[i] = cell(e, h, &kf)
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
			continue
		}
		for i, h := range header {
			row[i] = cell(e, h, nil)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func cell(e *core.Entity, header string, kf *core.Keyframe) string {
	if e.Category.Mobile() {
		switch header {
		case "x", "y", "timestamp":
			if kf == nil {
				return ""
			}
			switch header {
			case "x":
				return formatFloat(kf.Position.X)
			case "y":
				return formatFloat(kf.Position.Y)
			}
			return strconv.FormatInt(kf.Timestamp, 10)
		}
	}

	switch header {
	case "x":
		if e.Category == core.CategoryTarget {
			return formatFloat(e.Position.X)
		}
	case "y":
		if e.Category == core.CategoryTarget {
			return formatFloat(e.Position.Y)
		}
	case "original_ground_x", "original_ground_y":
		s := e.Association.OriginalGround
		if !s.Available {
			return ""
		}
		if header == "original_ground_x" {
			return formatFloat(s.Position.X)
		}
		return formatFloat(s.Position.Y)
	}

	v, _ := registry.Property(e, header)
	return v
}

// readEntities decodes a category file. Rows sharing an id become one
// entity; rows without an id each become a new entity.
func readEntities(r io.Reader, c core.Category) ([]*core.Entity, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var (
		out  []*core.Entity
		byID = make(map[string]*core.Entity)
	)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if emptyRecord(record) {
			continue
		}

		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			}
		}

		id := row["id"]
		e, seen := byID[id]
		if id == "" || !seen {
			if id == "" {
				id = uuid.NewString()
			}
			e, err = decodeEntity(c, id, header, row)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			byID[id] = e
			out = append(out, e)
		}

		if c.Mobile() && row["timestamp"] != "" {
			kf, err := decodeKeyframe(row)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if err := frames.Add(e, kf.Timestamp, kf.Position); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}

	// the archive has no column for the current-position mirror; it is
	// rebuilt from the latest keyframe whatever the row order was
	for _, e := range out {
		if n := len(e.Keyframes); n > 0 {
			last := e.Keyframes[n-1]
			e.Position, e.Timestamp = last.Position, last.Timestamp
		}
	}
	return out, nil
}

func emptyRecord(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}

func decodeEntity(c core.Category, id string, header []string, row map[string]string) (*core.Entity, error) {
	e := &core.Entity{ID: id, Category: c}
	if c == core.CategoryShooting {
		e.Shot = &core.Shot{}
	}

	var err error
	for _, h := range header {
		v := row[h]
		if v == "" {
			continue
		}
		switch {
		case h == "id", decodedColumn(c, h):
		case c.Associable() && h == "associated_ground_id":
			e.Association.GroundID = v
		case c.Associable() && h == "ground_callsign":
			e.Association.GroundCallsign = v
		default:
			if _, err := registry.SetProperty(e, h, v); err != nil {
				return nil, fmt.Errorf("column %s: %w", h, err)
			}
		}
	}

	switch c {
	case core.CategoryTarget:
		if e.CreationTime, err = parseInt(row, "creation_time"); err != nil {
			return nil, err
		}
		if e.Position, err = parsePosition(row, "x", "y"); err != nil {
			return nil, err
		}
	case core.CategoryShooting:
		if e.Shot.Timestamp, err = parseInt(row, "timestamp"); err != nil {
			return nil, err
		}
		if e.Shot.Launch, err = parseSnapshot(row, "launch_location_x", "launch_location_y"); err != nil {
			return nil, err
		}
	}
	if c.Associable() {
		if e.Association.OriginalGround, err = parseSnapshot(row, "original_ground_x", "original_ground_y"); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// decodedColumn reports whether h is a positional or snapshot column that
// the category decodes itself rather than a free-form property.
func decodedColumn(c core.Category, h string) bool {
	switch h {
	case "timestamp":
		return c.Mobile() || c == core.CategoryShooting
	case "x", "y":
		return c.Mobile() || c == core.CategoryTarget
	case "creation_time":
		return c == core.CategoryTarget
	case "launch_location_x", "launch_location_y":
		return c == core.CategoryShooting
	case "original_ground_x", "original_ground_y":
		return c.Associable()
	}
	return false
}

func decodeKeyframe(row map[string]string) (core.Keyframe, error) {
	t, err := parseInt(row, "timestamp")
	if err != nil {
		return core.Keyframe{}, err
	}
	pos, err := parsePosition(row, "x", "y")
	if err != nil {
		return core.Keyframe{}, err
	}
	return core.Keyframe{Timestamp: t, Position: pos}, nil
}

func parseInt(row map[string]string, key string) (int64, error) {
	v := row[key]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", core.ErrInvalidValue, key, v)
	}
	return n, nil
}

func parseFloat(row map[string]string, key string) (float64, error) {
	v := row[key]
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", core.ErrInvalidValue, key, v)
	}
	return f, nil
}

func parsePosition(row map[string]string, kx, ky string) (core.Position2D, error) {
	x, err := parseFloat(row, kx)
	if err != nil {
		return core.Position2D{}, err
	}
	y, err := parseFloat(row, ky)
	if err != nil {
		return core.Position2D{}, err
	}
	return core.Position2D{X: x, Y: y}, nil
}

// parseSnapshot reads a coordinate pair that may be empty or "None".
func parseSnapshot(row map[string]string, kx, ky string) (core.Snapshot, error) {
	for _, k := range []string{kx, ky} {
		if v := row[k]; v == "" || v == "None" {
			return core.Unavailable, nil
		}
	}
	pos, err := parsePosition(row, kx, ky)
	if err != nil {
		return core.Unavailable, err
	}
	return core.SnapshotAt(pos), nil
}
