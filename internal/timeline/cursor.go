// Package timeline holds the time cursor and the playback ticker.
package timeline

import (
	"fmt"
	"time"
)

// Cursor is the current time of the session, kept as an offset in seconds
// from the scene start. It does not validate; callers clamp with Clamp.
type Cursor struct {
	start  int64
	offset int64
}

// NewCursor creates a cursor at offset 0 of a scene starting at start.
func NewCursor(start int64) *Cursor {
	return &Cursor{start: start}
}

// AdvanceTo sets the offset.
func (c *Cursor) AdvanceTo(offset int64) {
	c.offset = offset
}

// Offset returns the offset from the scene start, in seconds.
func (c *Cursor) Offset() int64 {
	return c.offset
}

// AbsoluteTime returns start + offset. Every position and association query
// runs against this value, never the wall clock.
func (c *Cursor) AbsoluteTime() int64 {
	return c.start + c.offset
}

// Clamp limits an offset to [0, duration].
func Clamp(offset, duration int64) int64 {
	if offset < 0 {
		return 0
	}
	if offset > duration {
		return duration
	}
	return offset
}

// FormatOffset renders an offset as HH:MM:SS.
func FormatOffset(seconds int64) string {
	if seconds < 0 {
		return "-" + FormatOffset(-seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// FormatAbsolute renders an absolute unix timestamp as a local date and time.
func FormatAbsolute(ts int64) string {
	return time.Unix(ts, 0).Format("01/02/2006, 15:04:05")
}
