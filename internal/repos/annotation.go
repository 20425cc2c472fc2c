package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type AnnotationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Annotation) ([]*types.Annotation, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Annotation, error)
	GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.Annotation, error)
	CountPinsOnFrame(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, frame int) (int64, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByAssetIDs(ctx context.Context, tx *gorm.DB, assetIDs []uuid.UUID) error
}

type annotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationRepo(db *gorm.DB, baseLog *logger.Logger) AnnotationRepo {
	return &annotationRepo{db: db, log: baseLog.With("repo", "AnnotationRepo")}
}

func (r *annotationRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Annotation) ([]*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Annotation{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *annotationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Annotation
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

func (r *annotationRepo) GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Annotation
	if assetID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *annotationRepo) CountPinsOnFrame(ctx context.Context, tx *gorm.DB, assetID uuid.UUID, frame int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Annotation{}).
		Where("asset_id = ? AND frame_number = ? AND kind = ?", assetID, frame, "pin").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *annotationRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.Annotation{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *annotationRepo) FullDeleteByAssetIDs(ctx context.Context, tx *gorm.DB, assetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(assetIDs) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("asset_id IN ?", assetIDs).
		Delete(&types.Annotation{}).Error; err != nil {
		return err
	}
	return nil
}
