package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Asset struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"` // video|image|audio|document
	Status    string         `gorm:"column:status;not null;default:'in_review';index" json:"status"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;column:owner_id;not null;index" json:"owner_id"`
	Owner     *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Asset) TableName() string { return "asset" }

// AssetVersion carries the playable media for one review round. Annotations
// and comments anchor to a version's frame space via its frame rate.
type AssetVersion struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"asset_id"`
	Asset           *Asset         `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssetID;references:ID" json:"asset,omitempty"`
	VersionNumber   int            `gorm:"column:version_number;not null" json:"version_number"`
	MediaURL        string         `gorm:"column:media_url;not null" json:"media_url"`
	DurationSeconds float64        `gorm:"column:duration_seconds" json:"duration_seconds"`
	FrameRate       float64        `gorm:"column:frame_rate;not null;default:24" json:"frame_rate"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AssetVersion) TableName() string { return "asset_version" }
