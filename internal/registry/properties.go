package registry

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/OCAP2/sceneeditor/pkg/core"
)

// FieldKind tells a property editor which input to render.
type FieldKind string

const (
	FieldText         FieldKind = "text"
	FieldTextArea     FieldKind = "textarea"
	FieldNumber       FieldKind = "number"
	FieldGroundSelect FieldKind = "ground-select"
)

// FieldSpec describes one editable property of a category.
type FieldSpec struct {
	Key      string
	Label    string
	Kind     FieldKind
	ReadOnly bool
}

var associationFields = []FieldSpec{
	{Key: "associated_ground_id", Label: "Associated Ground Object", Kind: FieldGroundSelect},
	{Key: "ground_callsign", Label: "Ground Callsign", Kind: FieldText, ReadOnly: true},
}

// Fields returns the property list of a category.
func Fields(c core.Category) []FieldSpec {
	switch c {
	case core.CategoryGround:
		return []FieldSpec{
			{Key: "callsign", Label: "Callsign", Kind: FieldText},
			{Key: "type", Label: "Type", Kind: FieldText},
		}
	case core.CategoryShooting:
		return append(append([]FieldSpec{}, associationFields...),
			FieldSpec{Key: "timestamp", Label: "Created Timestamp", Kind: FieldText, ReadOnly: true},
			FieldSpec{Key: "ammo_type", Label: "Ammo Type", Kind: FieldText},
			FieldSpec{Key: "launch_location_x", Label: "Launch X", Kind: FieldText, ReadOnly: true},
			FieldSpec{Key: "launch_location_y", Label: "Launch Y", Kind: FieldText, ReadOnly: true},
			FieldSpec{Key: "target_x", Label: "Target X", Kind: FieldNumber},
			FieldSpec{Key: "target_y", Label: "Target Y", Kind: FieldNumber},
		)
	case core.CategoryEnemySpot, core.CategoryReport:
		return append(append([]FieldSpec{}, associationFields...),
			FieldSpec{Key: "callsign", Label: "Callsign", Kind: FieldText},
			FieldSpec{Key: "desc", Label: "Description", Kind: FieldTextArea},
		)
	case core.CategoryTarget:
		return []FieldSpec{
			{Key: "target_type", Label: "Target Type", Kind: FieldText},
		}
	case core.CategoryInfrastructure:
		return []FieldSpec{
			{Key: "type", Label: "Type", Kind: FieldText},
		}
	default:
		return nil
	}
}

// Columns returns the fixed stored columns of a category, in archive order.
// Keys listed here are never kept as free-form properties.
func Columns(c core.Category) []string {
	switch c {
	case core.CategoryGround:
		return []string{"id", "type", "callsign", "x", "y", "timestamp"}
	case core.CategoryShooting:
		return []string{"id", "associated_ground_id", "ground_callsign", "timestamp", "launch_location_x", "launch_location_y", "original_ground_x", "original_ground_y", "target_x", "target_y", "ammo_type"}
	case core.CategoryEnemySpot, core.CategoryReport:
		return []string{"id", "timestamp", "x", "y", "desc", "callsign", "associated_ground_id", "ground_callsign", "original_ground_x", "original_ground_y"}
	case core.CategoryTarget:
		return []string{"id", "creation_time", "x", "y", "target_type"}
	case core.CategoryInfrastructure:
		return []string{"id", "type", "x", "y", "timestamp"}
	}
	return nil
}

// Previous is the value a property held before a SetProperty call.
type Previous struct {
	Value   string
	Present bool
}

// Property reads a property by key. Keys outside the category's typed fields
// are looked up in the free-form Extra map.
func Property(e *core.Entity, key string) (string, bool) {
	switch key {
	case "id":
		return e.ID, true
	case "callsign":
		if hasCallsign(e.Category) {
			return e.Callsign, true
		}
	case "type":
		if e.Category == core.CategoryGround || e.Category == core.CategoryInfrastructure {
			return e.Type, true
		}
	case "desc":
		if e.Category == core.CategoryEnemySpot || e.Category == core.CategoryReport {
			return e.Description, true
		}
	case "target_type":
		if e.Category == core.CategoryTarget {
			return e.TargetType, true
		}
	case "creation_time":
		if e.Category == core.CategoryTarget {
			return strconv.FormatInt(e.CreationTime, 10), true
		}
	case "associated_ground_id":
		if e.Category.Associable() {
			return e.Association.GroundID, true
		}
	case "ground_callsign":
		if e.Category.Associable() {
			return e.Association.GroundCallsign, true
		}
	}

	if e.Category == core.CategoryShooting && e.Shot != nil {
		switch key {
		case "ammo_type":
			return e.Shot.AmmoType, true
		case "timestamp":
			return strconv.FormatInt(e.Shot.Timestamp, 10), true
		case "target_x":
			return formatFloat(e.Shot.Target.X), true
		case "target_y":
			return formatFloat(e.Shot.Target.Y), true
		case "launch_location_x":
			return snapshotCoord(e.Shot.Launch, true), true
		case "launch_location_y":
			return snapshotCoord(e.Shot.Launch, false), true
		}
	}

	v, ok := e.Extra[key]
	return v, ok
}

// SetProperty updates a property by key and returns its previous value.
// Typed fields are parsed; unknown keys land in Extra. On error the entity is
// unchanged.
func SetProperty(e *core.Entity, key, value string) (Previous, error) {
	old, present := Property(e, key)
	prev := Previous{Value: old, Present: present}

	if readOnly(e.Category, key) {
		return prev, fmt.Errorf("%w: %s", core.ErrReadOnly, key)
	}

	switch {
	case key == "callsign" && hasCallsign(e.Category):
		e.Callsign = value
		return prev, nil
	case key == "type" && (e.Category == core.CategoryGround || e.Category == core.CategoryInfrastructure):
		e.Type = value
		return prev, nil
	case key == "desc" && (e.Category == core.CategoryEnemySpot || e.Category == core.CategoryReport):
		e.Description = value
		return prev, nil
	case key == "target_type" && e.Category == core.CategoryTarget:
		e.TargetType = value
		return prev, nil
	}

	if e.Category == core.CategoryShooting && e.Shot != nil {
		switch key {
		case "ammo_type":
			e.Shot.AmmoType = value
			return prev, nil
		case "target_x", "target_y":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return prev, fmt.Errorf("%w: %s=%q", core.ErrInvalidValue, key, value)
			}
			if key == "target_x" {
				e.Shot.Target.X = f
			} else {
				e.Shot.Target.Y = f
			}
			return prev, nil
		}
	}

	// a stored column of the same name would shadow the free-form value
	if slices.Contains(Columns(e.Category), key) {
		return prev, fmt.Errorf("%w: %s", core.ErrReadOnly, key)
	}

	if e.Extra == nil {
		e.Extra = make(map[string]string)
	}
	e.Extra[key] = value
	return prev, nil
}

// RestoreProperty puts back a value captured by SetProperty. An absent
// previous value is removed from Extra.
func RestoreProperty(e *core.Entity, key string, prev Previous) error {
	if !prev.Present {
		delete(e.Extra, key)
		return nil
	}
	_, err := SetProperty(e, key, prev.Value)
	return err
}

// readOnly keys are derived or changed through the association engine only.
func readOnly(c core.Category, key string) bool {
	switch key {
	case "id":
		return true
	case "creation_time":
		return c == core.CategoryTarget
	case "timestamp", "launch_location_x", "launch_location_y":
		return c == core.CategoryShooting
	case "associated_ground_id", "ground_callsign":
		return c.Associable()
	}
	return false
}

func hasCallsign(c core.Category) bool {
	return c == core.CategoryGround || c == core.CategoryEnemySpot || c == core.CategoryReport
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func snapshotCoord(s core.Snapshot, x bool) string {
	if !s.Available {
		return "None"
	}
	if x {
		return formatFloat(s.Position.X)
	}
	return formatFloat(s.Position.Y)
}
