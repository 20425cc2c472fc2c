package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CommentOpen     = "open"
	CommentResolved = "resolved"
	CommentArchived = "archived"
)

// Comment anchors feedback to an asset, optionally at a timecode and a
// spatial pin. PinX/PinY are both set or both null, never one alone.
// ParentID only ever references a root comment; threads are two levels deep.
type Comment struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"asset_id"`
	Asset           *Asset         `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssetID;references:ID" json:"asset,omitempty"`
	ParentID        *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	AuthorID        uuid.UUID      `gorm:"type:uuid;column:author_id;not null;index" json:"author_id"`
	AuthorName      string         `gorm:"column:author_name;not null" json:"author_name"`
	Body            string         `gorm:"column:body;not null" json:"body"`
	TimecodeSeconds *float64       `gorm:"column:timecode_seconds;index" json:"timecode_seconds,omitempty"`
	PinX            *float64       `gorm:"column:pin_x" json:"pin_x,omitempty"`
	PinY            *float64       `gorm:"column:pin_y" json:"pin_y,omitempty"`
	Status          string         `gorm:"column:status;not null;default:'open';index" json:"status"`
	ResolvedBy      *uuid.UUID     `gorm:"type:uuid;column:resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time     `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	Mentions        datatypes.JSON `gorm:"column:mentions;type:jsonb" json:"mentions,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Comment) TableName() string { return "comment" }

// CommentReaction has set-membership semantics on (comment, user, emoji):
// toggling an existing triple removes it.
type CommentReaction struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;index:idx_reaction_triple,unique" json:"comment_id"`
	Comment   *Comment  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CommentID;references:ID" json:"comment,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_reaction_triple,unique" json:"user_id"`
	Emoji     string    `gorm:"column:emoji;not null;index:idx_reaction_triple,unique" json:"emoji"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CommentReaction) TableName() string { return "comment_reaction" }
