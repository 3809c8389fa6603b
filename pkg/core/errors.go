package core

import "errors"

// Data-model violations. Operations returning one of these leave state untouched.
var (
	// ErrDuplicateTimestamp is returned when a keyframe already exists at the timestamp
	ErrDuplicateTimestamp = errors.New("keyframe already exists at timestamp")
	// ErrNotFound is returned when a keyframe or entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrEmptyLog is returned by undo when nothing has been recorded
	ErrEmptyLog = errors.New("nothing to undo")
	// ErrInvalidSceneParameters is returned for missing or non-numeric scene geometry or duration
	ErrInvalidSceneParameters = errors.New("invalid scene parameters")
)

// Session and input errors.
var (
	ErrNoScene         = errors.New("no scene loaded")
	ErrNoSelection     = errors.New("no entity selected")
	ErrIOInProgress    = errors.New("a load or save is already in progress")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidValue    = errors.New("invalid property value")
	ErrNotAssociable   = errors.New("category cannot be associated with a ground unit")
	ErrNotGround       = errors.New("association target is not a ground unit")
	ErrNotMobile       = errors.New("category has no keyframe timeline")
	ErrReadOnly        = errors.New("property is read-only")
)
