// pkg/core/types.go
package core

import (
	"math"
	"strconv"
)

// Position2D is a planar (projected) position in meters.
type Position2D struct {
	X float64
	Y float64
}

// DistanceTo returns the Euclidean distance between two planar positions.
func (p Position2D) DistanceTo(o Position2D) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// String formats the position with two decimals, as shown in frame lists.
func (p Position2D) String() string {
	return strconv.FormatFloat(p.X, 'f', 2, 64) + ", " + strconv.FormatFloat(p.Y, 'f', 2, 64)
}

// Snapshot is a cached position that may be marked unavailable.
// The zero value is the "unavailable" sentinel, which is distinct from a
// valid snapshot at (0,0).
type Snapshot struct {
	Position  Position2D
	Available bool
}

// Unavailable is the sentinel snapshot for an unknown or out-of-range position.
var Unavailable = Snapshot{}

// SnapshotAt returns an available snapshot at p.
func SnapshotAt(p Position2D) Snapshot {
	return Snapshot{Position: p, Available: true}
}

// Keyframe is a timestamped position sample of a mobile entity.
// Timestamps are absolute unix seconds.
type Keyframe struct {
	Timestamp int64
	Position  Position2D
}
