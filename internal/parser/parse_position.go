package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// ParsePosition parses a map point. "x,y" is taken as projected meters;
// "@lat,lon" is projected with proj.
func (p *Parser) ParsePosition(arg string, proj geo.Projector) (core.Position2D, error) {
	if rest, ok := strings.CutPrefix(arg, "@"); ok {
		lat, lon, err := geo.LatLonFromString(rest)
		if err != nil {
			return core.Position2D{}, fmt.Errorf("position %q: %w", arg, err)
		}
		return proj.ToPlanar(lat, lon)
	}

	xs, ys, ok := strings.Cut(arg, ",")
	if !ok {
		return core.Position2D{}, invalid("position", arg)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return core.Position2D{}, invalid("position", arg)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return core.Position2D{}, invalid("position", arg)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return core.Position2D{}, invalid("position", arg)
	}
	return core.Position2D{X: x, Y: y}, nil
}

// ParseOffset parses a timeline offset in seconds from "HH:MM:SS", "MM:SS"
// or plain seconds. Offsets are never negative.
func (p *Parser) ParseOffset(arg string) (int64, error) {
	parts := strings.Split(arg, ":")
	if len(parts) > 3 {
		return 0, invalid("offset", arg)
	}

	var total int64
	for i, part := range parts {
		v, err := parseIntFromFloat(part)
		if err != nil || v < 0 {
			return 0, invalid("offset", arg)
		}
		// minutes and seconds fields stay below 60 once a larger unit is given
		if i > 0 && v >= 60 {
			return 0, invalid("offset", arg)
		}
		total = total*60 + v
	}
	return total, nil
}
