package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Annotation is a committed shape anchored to a frame of an asset version.
// Geometry is the kind-tagged envelope produced by the capture codec; a row
// only ever holds the exact field set its kind requires.
type Annotation struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"asset_id"`
	Asset       *Asset         `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssetID;references:ID" json:"asset,omitempty"`
	VersionID   *uuid.UUID     `gorm:"type:uuid;index" json:"version_id,omitempty"`
	FrameNumber *int           `gorm:"column:frame_number;index" json:"frame_number,omitempty"`
	Kind        string         `gorm:"column:kind;not null" json:"kind"`
	Geometry    datatypes.JSON `gorm:"column:geometry;type:jsonb;not null" json:"geometry"`
	Color       string         `gorm:"column:color" json:"color,omitempty"`
	Opacity     float64        `gorm:"column:opacity;default:1" json:"opacity"`
	StrokeWidth float64        `gorm:"column:stroke_width;default:2" json:"stroke_width"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;column:created_by;not null;index" json:"created_by"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Annotation) TableName() string { return "annotation" }
