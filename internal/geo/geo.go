package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/wroge/wgs84"
)

// Positions are projected to WGS 84 / UTM (EPSG 326zz north, 327zz south) so
// that distances on the map are in meters. The zone is fixed per scene by its
// center longitude.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

const (
	epsgLonLat   = 4326
	epsgUTMNorth = 32600
	epsgUTMSouth = 32700

	// The library inverse drifts by a few meters from the forward series,
	// so ToGeographic refines it against ToPlanar.
	refineSteps     = 5
	refineTolerance = 1e-4 // meters
	jacobianStep    = 1e-6 // degrees
)

// ZoneFor returns the UTM zone number (1-60) containing longitude lon.
func ZoneFor(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	switch {
	case zone < 1:
		return 1
	case zone > 60:
		return 60
	}
	return zone
}

// Projector converts between geographic coordinates and a single UTM zone.
type Projector struct {
	Zone     int
	Southern bool
}

// NewProjector picks the zone and hemisphere for a scene centered at lat, lon.
func NewProjector(lat, lon float64) Projector {
	return Projector{Zone: ZoneFor(lon), Southern: lat < 0}
}

// ForScene returns the projector recorded on a scene.
func ForScene(s *core.Scene) Projector {
	if s.UTMZone == 0 {
		return NewProjector(s.CenterLat, s.CenterLon)
	}
	return Projector{Zone: s.UTMZone, Southern: s.Southern}
}

// EPSG returns the code of the projected reference system.
func (p Projector) EPSG() int {
	if p.Southern {
		return epsgUTMSouth + p.Zone
	}
	return epsgUTMNorth + p.Zone
}

// ToPlanar projects a latitude/longitude pair to easting/northing.
func (p Projector) ToPlanar(lat, lon float64) (core.Position2D, error) {
	if !validLatLon(lat, lon) {
		return core.Position2D{}, fmt.Errorf("%w: %f,%f", ErrInvalidCoordinates, lat, lon)
	}
	f := wgs84.EPSG().Transform(epsgLonLat, p.EPSG())
	x, y, _ := f(lon, lat, 0)
	if !finite(x, y) {
		return core.Position2D{}, fmt.Errorf("project %f,%f to EPSG:%d: %w", lat, lon, p.EPSG(), ErrInvalidCoordinates)
	}
	return core.Position2D{X: x, Y: y}, nil
}

// ToGeographic is the inverse of ToPlanar.
func (p Projector) ToGeographic(pos core.Position2D) (lat, lon float64, err error) {
	if !finite(pos.X, pos.Y) {
		return 0, 0, ErrInvalidCoordinates
	}
	inverse := wgs84.EPSG().Transform(p.EPSG(), epsgLonLat)
	lon, lat, _ = inverse(pos.X, pos.Y, 0)
	if !finite(lon, lat) {
		return 0, 0, fmt.Errorf("unproject %s from EPSG:%d: %w", pos, p.EPSG(), ErrInvalidCoordinates)
	}

	lon, lat = p.refine(pos, lon, lat)
	return lat, lon, nil
}

// refine runs Newton steps on lon, lat until the forward projection lands on
// pos. The Jacobian is taken by forward differences.
func (p Projector) refine(pos core.Position2D, lon, lat float64) (float64, float64) {
	forward := wgs84.EPSG().Transform(epsgLonLat, p.EPSG())

	for i := 0; i < refineSteps; i++ {
		x, y, _ := forward(lon, lat, 0)
		dx, dy := pos.X-x, pos.Y-y
		if math.Abs(dx) < refineTolerance && math.Abs(dy) < refineTolerance {
			break
		}

		xLon, yLon, _ := forward(lon+jacobianStep, lat, 0)
		xLat, yLat, _ := forward(lon, lat+jacobianStep, 0)
		a := (xLon - x) / jacobianStep
		b := (xLat - x) / jacobianStep
		c := (yLon - y) / jacobianStep
		d := (yLat - y) / jacobianStep

		det := a*d - b*c
		if det == 0 || !finite(det) {
			break
		}
		nextLon := lon + (d*dx-b*dy)/det
		nextLat := lat + (a*dy-c*dx)/det
		if !finite(nextLon, nextLat) {
			break
		}
		lon, lat = nextLon, nextLat
	}
	return lon, lat
}

// LatLonFromString parses a "lat,lon" string.
func LatLonFromString(coords string) (lat, lon float64, err error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidCoordinates
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	if !validLatLon(lat, lon) {
		return 0, 0, ErrInvalidCoordinates
	}
	return lat, lon, nil
}

func validLatLon(lat, lon float64) bool {
	return finite(lat, lon) && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
