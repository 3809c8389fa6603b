// pkg/core/category.go
package core

import (
	"fmt"
	"strings"
)

// Category discriminates the entity variants.
type Category string

const (
	CategoryGround         Category = "Ground"
	CategoryShooting       Category = "Shooting"
	CategoryEnemySpot      Category = "EnemySpot"
	CategoryReport         Category = "Report"
	CategoryTarget         Category = "Targets"
	CategoryInfrastructure Category = "EnemyInfrastructure"
)

// Categories lists every category in display and archive order.
var Categories = []Category{
	CategoryGround,
	CategoryShooting,
	CategoryEnemySpot,
	CategoryReport,
	CategoryTarget,
	CategoryInfrastructure,
}

// ParseCategory resolves a category name case-insensitively.
// The short aliases "Target" and "Infrastructure" are accepted.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ground":
		return CategoryGround, nil
	case "shooting":
		return CategoryShooting, nil
	case "enemyspot":
		return CategoryEnemySpot, nil
	case "report":
		return CategoryReport, nil
	case "targets", "target":
		return CategoryTarget, nil
	case "enemyinfrastructure", "infrastructure":
		return CategoryInfrastructure, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

// Mobile reports whether entities of this category carry a keyframe timeline.
func (c Category) Mobile() bool {
	switch c {
	case CategoryGround, CategoryEnemySpot, CategoryReport, CategoryInfrastructure:
		return true
	default:
		return false
	}
}

// Associable reports whether entities of this category may reference a Ground unit.
func (c Category) Associable() bool {
	switch c {
	case CategoryShooting, CategoryEnemySpot, CategoryReport:
		return true
	default:
		return false
	}
}

// FileStem is the lowercase name used for the category's archive file.
func (c Category) FileStem() string {
	return strings.ToLower(string(c))
}
