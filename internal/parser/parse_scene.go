package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/internal/session"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// ParseSceneParams parses the arguments of a new scene:
//
//	<name> <lat> <lon> <radius m> <duration min>
//	<name> <lat,lon> <radius m> <duration min>
//
// Only the syntax is checked here; session.NewScene validates the values.
func (p *Parser) ParseSceneParams(args []string) (session.SceneParams, error) {
	var params session.SceneParams

	switch len(args) {
	case 5:
		lat, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return params, invalid("latitude", args[1])
		}
		lon, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return params, invalid("longitude", args[2])
		}
		params.CenterLat, params.CenterLon = lat, lon
		args = append(args[:1:1], args[3:]...)
	case 4:
		lat, lon, err := geo.LatLonFromString(args[1])
		if err != nil {
			return params, fmt.Errorf("center %q: %w", args[1], err)
		}
		params.CenterLat, params.CenterLon = lat, lon
		args = append(args[:1:1], args[2:]...)
	default:
		return params, fmt.Errorf("%w: expected <name> <lat> <lon> <radius> <duration>, got %d arguments",
			core.ErrInvalidValue, len(args))
	}

	params.Name = strings.TrimSpace(args[0])

	radius, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return params, invalid("radius", args[1])
	}
	params.RadiusMeters = radius

	duration, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return params, invalid("duration", args[2])
	}
	params.DurationMinutes = duration

	p.logger.Debug("Parsed scene parameters",
		"sceneName", params.Name,
		"lat", params.CenterLat,
		"lon", params.CenterLon)

	return params, nil
}
