// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"cmp"
	"database/sql"
	"encoding/json"
	"slices"

	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/internal/model"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"gorm.io/datatypes"
)

// snapshotToNull converts a core.Snapshot to a pair of nullable columns
func snapshotToNull(s core.Snapshot) (x, y sql.NullFloat64) {
	if !s.Available {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: s.Position.X, Valid: true},
		sql.NullFloat64{Float64: s.Position.Y, Valid: true}
}

// extraToJSON converts free-form properties to datatypes.JSON for DB storage.
func extraToJSON(extra map[string]string) datatypes.JSON {
	if len(extra) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(extra)
	return datatypes.JSON(data)
}

// CoreToScene converts a whole document to a GORM Scene with its entities,
// keyframes and features attached. Entities are emitted in category then id
// order so repeated saves produce identical rows.
func CoreToScene(doc *core.Document) model.Scene {
	s := doc.Scene
	out := model.Scene{
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
		SceneCreatedAt: s.CreatedAt,
	}

	for _, c := range core.Categories {
		list := make([]*core.Entity, 0, len(doc.Entities[c]))
		for _, e := range doc.Entities[c] {
			list = append(list, e)
		}
		slices.SortFunc(list, func(a, b *core.Entity) int { return cmp.Compare(a.ID, b.ID) })
		for _, e := range list {
			out.Entities = append(out.Entities, CoreToEntity(e))
		}
	}

	for _, f := range doc.Buildings {
		out.Features = append(out.Features, CoreToFeature(f, model.FeatureBuilding))
	}
	for _, f := range doc.Roads {
		out.Features = append(out.Features, CoreToFeature(f, model.FeatureRoad))
	}
	return out
}

// CoreToEntity converts a core.Entity to a GORM model.Entity.
// core.Entity.ID maps to GORM Entity.EntityID; the row ID is assigned on insert.
func CoreToEntity(e *core.Entity) model.Entity {
	out := model.Entity{
		EntityID:       e.ID,
		Category:       string(e.Category),
		Callsign:       e.Callsign,
		Type:           e.Type,
		Description:    e.Description,
		TargetType:     e.TargetType,
		PositionX:      e.Position.X,
		PositionY:      e.Position.Y,
		Timestamp:      e.Timestamp,
		CreationTime:   e.CreationTime,
		Extra:          extraToJSON(e.Extra),
		GroundID:       e.Association.GroundID,
		GroundCallsign: e.Association.GroundCallsign,
	}
	out.OriginalGroundX, out.OriginalGroundY = snapshotToNull(e.Association.OriginalGround)

	if e.Shot != nil {
		out.AmmoType = e.Shot.AmmoType
		out.TargetX = e.Shot.Target.X
		out.TargetY = e.Shot.Target.Y
		out.LaunchX, out.LaunchY = snapshotToNull(e.Shot.Launch)
		out.ShotTimestamp = e.Shot.Timestamp
	}

	for _, kf := range e.Keyframes {
		out.Keyframes = append(out.Keyframes, model.Keyframe{
			Timestamp: kf.Timestamp,
			X:         kf.Position.X,
			Y:         kf.Position.Y,
		})
	}
	return out
}

// CoreToFeature converts a basemap feature to a GORM model.Feature of the given kind.
func CoreToFeature(f core.Feature, kind string) model.Feature {
	return model.Feature{
		Kind:      kind,
		FeatureID: f.ID,
		Type:      f.Type,
		Geometry:  datatypes.JSON(geo.FormatPoints(f.Points)),
	}
}
