package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type ApprovalStepRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ApprovalStep) ([]*types.ApprovalStep, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalStep, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ApprovalStep, error)
	// GetByIDForUpdate row-locks the step so a decision is serialized
	// against concurrent deciders of the same step.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ApprovalStep, error)
	// GetByWorkflowIDForUpdate locks the whole step set; the asset-status
	// aggregate is derived inside the same transaction.
	GetByWorkflowIDForUpdate(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ApprovalStep, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.ApprovalStep) error
	FullDeletePendingByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
	FullDeleteByWorkflowIDs(ctx context.Context, tx *gorm.DB, workflowIDs []uuid.UUID) error
}

type approvalStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApprovalStepRepo(db *gorm.DB, baseLog *logger.Logger) ApprovalStepRepo {
	return &approvalStepRepo{db: db, log: baseLog.With("repo", "ApprovalStepRepo")}
}

func (r *approvalStepRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ApprovalStep) ([]*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ApprovalStep{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *approvalStepRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ApprovalStep
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

func (r *approvalStepRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ApprovalStep
	if workflowID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("step_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *approvalStepRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ApprovalStep
	q := transaction.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("id = ?", id).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *approvalStepRepo) GetByWorkflowIDForUpdate(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ApprovalStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ApprovalStep
	q := transaction.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("workflow_id = ?", workflowID).
		Order("step_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *approvalStepRepo) Update(ctx context.Context, tx *gorm.DB, row *types.ApprovalStep) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *approvalStepRepo) FullDeletePendingByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if workflowID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ? AND status = ?", workflowID, "pending").
		Delete(&types.ApprovalStep{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *approvalStepRepo) FullDeleteByWorkflowIDs(ctx context.Context, tx *gorm.DB, workflowIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(workflowIDs) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("workflow_id IN ?", workflowIDs).
		Delete(&types.ApprovalStep{}).Error; err != nil {
		return err
	}
	return nil
}
