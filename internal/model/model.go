package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Scene{},
	&Entity{},
	&Keyframe{},
	&Feature{},
}

// Scene is one saved scene. Name is the lookup key; saving a scene under an
// existing name replaces it.
type Scene struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Name           string    `json:"sceneName" gorm:"size:255;uniqueIndex:idx_scene_name;NOT NULL"`
	CenterLat      float64   `json:"centerLat"`
	CenterLon      float64   `json:"centerLon"`
	CenterX        float64   `json:"centerX"`
	CenterY        float64   `json:"centerY"`
	UTMZone        int       `json:"utmZone"`
	Southern       bool      `json:"utmSouthern" gorm:"default:false"`
	RadiusMeters   float64   `json:"radiusMeters"`
	StartTimestamp int64     `json:"startTimestamp"`
	EndTimestamp   int64     `json:"endTimestamp"`
	SceneCreatedAt time.Time `json:"createdAt"`                      // created_at of the scene itself
	SavedAt        time.Time `json:"savedAt" gorm:"autoUpdateTime"` // last write of this row
	Entities       []Entity  `gorm:"foreignKey:SceneID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Features       []Feature `gorm:"foreignKey:SceneID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Scene) TableName() string {
	return "scenes"
}

// Entity is a single map entity of any category. Category-specific columns
// are left at their zero value for other categories.
type Entity struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	SceneID      uint           `json:"sceneId" gorm:"index:idx_entity_scene_id;NOT NULL"`
	EntityID     string         `json:"entityId" gorm:"size:64;NOT NULL"` // opaque editor id
	Category     string         `json:"category" gorm:"size:32;index:idx_entity_category;NOT NULL"`
	Callsign     string         `json:"callsign" gorm:"size:128"`
	Type         string         `json:"type" gorm:"size:128"`
	Description  string         `json:"desc"`
	TargetType   string         `json:"targetType" gorm:"size:128"`
	PositionX    float64        `json:"x"` // mirror for mobile entities, fixed position for targets
	PositionY    float64        `json:"y"`
	Timestamp    int64          `json:"timestamp"`
	CreationTime int64          `json:"creationTime"`
	Extra        datatypes.JSON `json:"extra"`

	GroundID        string          `json:"associatedGroundId" gorm:"size:64"`
	GroundCallsign  string          `json:"groundCallsign" gorm:"size:128"`
	OriginalGroundX sql.NullFloat64 `json:"originalGroundX"` // NULL while unavailable
	OriginalGroundY sql.NullFloat64 `json:"originalGroundY"`

	AmmoType      string          `json:"ammoType" gorm:"size:64"`
	TargetX       float64         `json:"targetX"`
	TargetY       float64         `json:"targetY"`
	LaunchX       sql.NullFloat64 `json:"launchX"` // NULL while unavailable
	LaunchY       sql.NullFloat64 `json:"launchY"`
	ShotTimestamp int64           `json:"shotTimestamp"`

	Keyframes []Keyframe `gorm:"foreignKey:EntityRowID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Entity) TableName() string {
	return "entities"
}

// Keyframe is one timeline sample of a mobile entity.
type Keyframe struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	EntityRowID uint    `json:"entityRowId" gorm:"index:idx_keyframe_entity;NOT NULL"`
	Timestamp   int64   `json:"timestamp" gorm:"NOT NULL"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

func (*Keyframe) TableName() string {
	return "keyframes"
}

// Feature kinds.
const (
	FeatureBuilding = "building"
	FeatureRoad     = "road"
)

// Feature is a basemap building outline or road. Geometry holds the planar
// points as a JSON array of [x, y] pairs.
type Feature struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	SceneID   uint           `json:"sceneId" gorm:"index:idx_feature_scene_id;NOT NULL"`
	Kind      string         `json:"kind" gorm:"size:16;NOT NULL"`
	FeatureID string         `json:"featureId" gorm:"size:64"`
	Type      string         `json:"type" gorm:"size:64"`
	Geometry  datatypes.JSON `json:"geometry"`
}

func (*Feature) TableName() string {
	return "features"
}
