package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WorkflowActive     = "active"
	WorkflowSuperseded = "superseded"
)

// ApprovalWorkflow is one review cycle for an asset. Only one workflow per
// asset holds status active; creating a new one supersedes the previous.
type ApprovalWorkflow struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"asset_id"`
	Asset     *Asset         `gorm:"constraint:OnDelete:CASCADE;foreignKey:AssetID;references:ID" json:"asset,omitempty"`
	Mode      string         `gorm:"column:mode;not null" json:"mode"` // sequential|parallel
	Status    string         `gorm:"column:status;not null;default:'active';index" json:"status"`
	CreatedBy uuid.UUID      `gorm:"type:uuid;column:created_by;not null" json:"created_by"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ApprovalWorkflow) TableName() string { return "approval_workflow" }

// ApprovalStep is one role's gate inside a workflow. Every status except
// pending is terminal; decided steps are immutable.
type ApprovalStep struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WorkflowID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_step_workflow_order,unique" json:"workflow_id"`
	Workflow      *ApprovalWorkflow `gorm:"constraint:OnDelete:CASCADE;foreignKey:WorkflowID;references:ID" json:"workflow,omitempty"`
	AssetID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"asset_id"`
	StepOrder     int               `gorm:"column:step_order;not null;index:idx_step_workflow_order,unique" json:"step_order"`
	RoleLabel     string            `gorm:"column:role_label;not null" json:"role_label"`
	AssigneeEmail string            `gorm:"column:assignee_email;not null" json:"assignee_email"`
	Status        string            `gorm:"column:status;not null;default:'pending';index" json:"status"`
	DecisionNote  *string           `gorm:"column:decision_note" json:"decision_note,omitempty"`
	DecidedBy     *uuid.UUID        `gorm:"type:uuid;column:decided_by" json:"decided_by,omitempty"`
	DecidedAt     *time.Time        `gorm:"column:decided_at" json:"decided_at,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (ApprovalStep) TableName() string { return "approval_step" }
