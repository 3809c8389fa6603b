package geo

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/sceneeditor/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePolyline parses a JSON array of coordinates into a geom.LineString.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParsePolyline(input string) (geom.LineString, error) {
	points, err := ParsePoints(input)
	if err != nil {
		return geom.LineString{}, err
	}
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("polyline must have at least 2 points, got %d", len(points))
	}
	return LineString(points)
}

// ParsePoints parses a JSON array of coordinates into planar points. An
// empty array is allowed.
func ParsePoints(input string) ([]core.Position2D, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	points := make([]core.Position2D, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		points[i] = core.Position2D{X: coord[0], Y: coord[1]}
	}
	return points, nil
}

// FormatPoints is the inverse of ParsePoints.
func FormatPoints(points []core.Position2D) string {
	coords := make([][2]float64, len(points))
	for i, p := range points {
		coords[i] = [2]float64{p.X, p.Y}
	}
	b, _ := json.Marshal(coords)
	return string(b)
}

// LineString builds a geometry from planar points.
func LineString(points []core.Position2D) (geom.LineString, error) {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("failed to build line string: %w", err)
	}
	return ls, nil
}

// Points extracts the vertices of a line string.
func Points(ls geom.LineString) []core.Position2D {
	seq := ls.Coordinates()
	out := make([]core.Position2D, seq.Length())
	for i := range out {
		xy := seq.GetXY(i)
		out[i] = core.Position2D{X: xy.X, Y: xy.Y}
	}
	return out
}

// FeatureLength returns the length in meters of a feature outline.
func FeatureLength(f core.Feature) float64 {
	if len(f.Points) < 2 {
		return 0
	}
	ls, err := LineString(f.Points)
	if err != nil {
		return 0
	}
	return ls.Length()
}
