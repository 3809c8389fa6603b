package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/internal/model"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// nullToSnapshot converts a pair of nullable columns to a core.Snapshot.
// Either column being NULL means unavailable.
func nullToSnapshot(x, y sql.NullFloat64) core.Snapshot {
	if !x.Valid || !y.Valid {
		return core.Unavailable
	}
	return core.SnapshotAt(core.Position2D{X: x.Float64, Y: y.Float64})
}

// SceneToCore converts a GORM Scene, with entities and features preloaded,
// to a core.Document.
func SceneToCore(s model.Scene) (*core.Document, error) {
	doc := core.NewDocument(core.Scene{
		Name:           s.Name,
		CenterLat:      s.CenterLat,
		CenterLon:      s.CenterLon,
		CenterX:        s.CenterX,
		CenterY:        s.CenterY,
		UTMZone:        s.UTMZone,
		Southern:       s.Southern,
		RadiusMeters:   s.RadiusMeters,
		StartTimestamp: s.StartTimestamp,
		EndTimestamp:   s.EndTimestamp,
		CreatedAt:      s.SceneCreatedAt.UTC(),
	})

	for _, row := range s.Entities {
		e, err := EntityToCore(row)
		if err != nil {
			return nil, err
		}
		doc.Put(e)
	}

	for _, row := range s.Features {
		f, err := FeatureToCore(row)
		if err != nil {
			return nil, err
		}
		switch row.Kind {
		case model.FeatureBuilding:
			doc.Buildings = append(doc.Buildings, f)
		case model.FeatureRoad:
			doc.Roads = append(doc.Roads, f)
		}
	}
	return doc, nil
}

// EntityToCore converts a GORM Entity to a core.Entity.
// GORM Entity.EntityID maps to core Entity.ID.
func EntityToCore(row model.Entity) (*core.Entity, error) {
	c, err := core.ParseCategory(row.Category)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", row.EntityID, err)
	}

	e := &core.Entity{
		ID:           row.EntityID,
		Category:     c,
		Callsign:     row.Callsign,
		Type:         row.Type,
		Description:  row.Description,
		TargetType:   row.TargetType,
		Position:     core.Position2D{X: row.PositionX, Y: row.PositionY},
		Timestamp:    row.Timestamp,
		CreationTime: row.CreationTime,
	}

	if len(row.Extra) > 0 {
		var extra map[string]string
		if err := json.Unmarshal(row.Extra, &extra); err != nil {
			return nil, fmt.Errorf("entity %s extra: %w", row.EntityID, err)
		}
		if len(extra) > 0 {
			e.Extra = extra
		}
	}

	if c.Associable() {
		e.Association = core.Association{
			GroundID:       row.GroundID,
			GroundCallsign: row.GroundCallsign,
			OriginalGround: nullToSnapshot(row.OriginalGroundX, row.OriginalGroundY),
		}
	}

	if c == core.CategoryShooting {
		e.Shot = &core.Shot{
			AmmoType:  row.AmmoType,
			Target:    core.Position2D{X: row.TargetX, Y: row.TargetY},
			Launch:    nullToSnapshot(row.LaunchX, row.LaunchY),
			Timestamp: row.ShotTimestamp,
		}
	}

	for _, kf := range row.Keyframes {
		e.Keyframes = append(e.Keyframes, core.Keyframe{
			Timestamp: kf.Timestamp,
			Position:  core.Position2D{X: kf.X, Y: kf.Y},
		})
	}
	return e, nil
}

// FeatureToCore converts a GORM Feature to a core.Feature.
func FeatureToCore(row model.Feature) (core.Feature, error) {
	points, err := geo.ParsePoints(string(row.Geometry))
	if err != nil {
		return core.Feature{}, fmt.Errorf("feature %s geometry: %w", row.FeatureID, err)
	}
	return core.Feature{ID: row.FeatureID, Type: row.Type, Points: points}, nil
}
