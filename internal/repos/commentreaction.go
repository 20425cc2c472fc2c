package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type CommentReactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.CommentReaction) (*types.CommentReaction, error)
	GetByTriple(ctx context.Context, tx *gorm.DB, commentID, userID uuid.UUID, emoji string) (*types.CommentReaction, error)
	GetByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) ([]*types.CommentReaction, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) error
}

type commentReactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentReactionRepo(db *gorm.DB, baseLog *logger.Logger) CommentReactionRepo {
	return &commentReactionRepo{db: db, log: baseLog.With("repo", "CommentReactionRepo")}
}

func (r *commentReactionRepo) Create(ctx context.Context, tx *gorm.DB, row *types.CommentReaction) (*types.CommentReaction, error) {
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

func (r *commentReactionRepo) GetByTriple(ctx context.Context, tx *gorm.DB, commentID, userID uuid.UUID, emoji string) (*types.CommentReaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.CommentReaction
	err := transaction.WithContext(ctx).
		Where("comment_id = ? AND user_id = ? AND emoji = ?", commentID, userID, emoji).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *commentReactionRepo) GetByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) ([]*types.CommentReaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CommentReaction
	if len(commentIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *commentReactionRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.CommentReaction{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *commentReactionRepo) FullDeleteByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(commentIDs) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Delete(&types.CommentReaction{}).Error; err != nil {
		return err
	}
	return nil
}
