package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type AssetVersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.AssetVersion) ([]*types.AssetVersion, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.AssetVersion, error)
	GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.AssetVersion, error)
	SoftDeleteByAssetIDs(ctx context.Context, tx *gorm.DB, assetIDs []uuid.UUID) error
}

type assetVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetVersionRepo(db *gorm.DB, baseLog *logger.Logger) AssetVersionRepo {
	return &assetVersionRepo{db: db, log: baseLog.With("repo", "AssetVersionRepo")}
}

func (r *assetVersionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.AssetVersion) ([]*types.AssetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.AssetVersion{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assetVersionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.AssetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AssetVersion
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

func (r *assetVersionRepo) GetByAssetID(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) ([]*types.AssetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AssetVersion
	if assetID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("version_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assetVersionRepo) SoftDeleteByAssetIDs(ctx context.Context, tx *gorm.DB, assetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(assetIDs) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("asset_id IN ?", assetIDs).
		Delete(&types.AssetVersion{}).Error; err != nil {
		return err
	}
	return nil
}
