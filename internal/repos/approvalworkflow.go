package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type ApprovalWorkflowRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.ApprovalWorkflow) (*types.ApprovalWorkflow, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalWorkflow, error)
	GetActiveByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.ApprovalWorkflow, error)
	UpdateMode(ctx context.Context, tx *gorm.DB, id uuid.UUID, mode string) error
	MarkSuperseded(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type approvalWorkflowRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApprovalWorkflowRepo(db *gorm.DB, baseLog *logger.Logger) ApprovalWorkflowRepo {
	return &approvalWorkflowRepo{db: db, log: baseLog.With("repo", "ApprovalWorkflowRepo")}
}

func (r *approvalWorkflowRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ApprovalWorkflow) (*types.ApprovalWorkflow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *approvalWorkflowRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalWorkflow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ApprovalWorkflow
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *approvalWorkflowRepo) GetActiveByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (*types.ApprovalWorkflow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ApprovalWorkflow
	err := transaction.WithContext(ctx).
		Where("asset_id = ? AND status = ?", assetID, types.WorkflowActive).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *approvalWorkflowRepo) UpdateMode(ctx context.Context, tx *gorm.DB, id uuid.UUID, mode string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ApprovalWorkflow{}).
		Where("id = ?", id).
		Update("mode", mode).Error
}

func (r *approvalWorkflowRepo) MarkSuperseded(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ApprovalWorkflow{}).
		Where("asset_id = ? AND status = ?", assetID, types.WorkflowActive).
		Update("status", types.WorkflowSuperseded).Error
}

func (r *approvalWorkflowRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.ApprovalWorkflow{}).Error; err != nil {
		return err
	}
	return nil
}
