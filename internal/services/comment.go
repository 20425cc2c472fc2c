package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/repos"
	"github.com/framepoint/framepoint-backend/internal/threads"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type CreateCommentInput struct {
	AssetID         uuid.UUID  `json:"asset_id"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	Body            string     `json:"body"`
	TimecodeSeconds *float64   `json:"timecode_seconds,omitempty"`
	PinX            *float64   `json:"pin_x,omitempty"`
	PinY            *float64   `json:"pin_y,omitempty"`
}

type CommentService interface {
	ListThreads(ctx context.Context, assetID uuid.UUID, opts threads.Options) ([]threads.Thread, error)
	CreateComment(ctx context.Context, input CreateCommentInput) (*types.Comment, error)
	ResolveComment(ctx context.Context, id uuid.UUID) (*types.Comment, error)
	ArchiveComment(ctx context.Context, id uuid.UUID) (*types.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
	ToggleReaction(ctx context.Context, commentID uuid.UUID, emoji string) (bool, error)
}

type commentService struct {
	db           *gorm.DB
	log          *logger.Logger
	assetRepo    repos.AssetRepo
	commentRepo  repos.CommentRepo
	reactionRepo repos.CommentReactionRepo
	notifier     Notifier
}

func NewCommentService(
	db *gorm.DB,
	log *logger.Logger,
	assetRepo repos.AssetRepo,
	commentRepo repos.CommentRepo,
	reactionRepo repos.CommentReactionRepo,
	notifier Notifier,
) CommentService {
	return &commentService{
		db:           db,
		log:          log.With("service", "CommentService"),
		assetRepo:    assetRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		notifier:     notifier,
	}
}

func (s *commentService) ListThreads(ctx context.Context, assetID uuid.UUID, opts threads.Options) ([]threads.Thread, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	rows, err := s.commentRepo.GetByAssetID(ctx, nil, assetID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return threads.Filter(threads.Build(rows), opts), nil
}

// CreateComment enforces the thread shape at the write boundary: a reply
// may only target a root comment, and a pin is two coordinates or none.
func (s *commentService) CreateComment(ctx context.Context, input CreateCommentInput) (*types.Comment, error) {
	rd, err := requirePermission(ctx, permissions.ActionCommentCreate)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apierr.Invalid("body_required", fmt.Errorf("comment body must not be empty"))
	}
	if (input.PinX == nil) != (input.PinY == nil) {
		return nil, apierr.Invalid("pin_fields_mismatch", fmt.Errorf("pin_x and pin_y must be set together"))
	}
	assets, err := s.assetRepo.GetByIDs(ctx, nil, []uuid.UUID{input.AssetID})
	if err != nil {
		return nil, fmt.Errorf("look up asset: %w", err)
	}
	if len(assets) == 0 {
		return nil, apierr.NotFound("asset_not_found", fmt.Errorf("asset %s not found", input.AssetID))
	}
	if input.ParentID != nil {
		parents, err := s.commentRepo.GetByIDs(ctx, nil, []uuid.UUID{*input.ParentID})
		if err != nil {
			return nil, fmt.Errorf("look up parent: %w", err)
		}
		if len(parents) == 0 {
			return nil, apierr.NotFound("parent_not_found", fmt.Errorf("parent comment %s not found", *input.ParentID))
		}
		parent := parents[0]
		if parent.AssetID != input.AssetID {
			return nil, apierr.Invalid("parent_asset_mismatch", fmt.Errorf("parent comment belongs to a different asset"))
		}
		if parent.ParentID != nil {
			return nil, apierr.Invalid("reply_depth_exceeded", fmt.Errorf("replies may only target root comments"))
		}
	}

	var mentionsJSON datatypes.JSON
	if mentions := threads.Extract(body); len(mentions) > 0 {
		raw, err := json.Marshal(mentions)
		if err != nil {
			return nil, fmt.Errorf("encode mentions: %w", err)
		}
		mentionsJSON = datatypes.JSON(raw)
	}

	row := &types.Comment{
		ID:              uuid.New(),
		AssetID:         input.AssetID,
		ParentID:        input.ParentID,
		AuthorID:        rd.UserID,
		AuthorName:      rd.UserName,
		Body:            body,
		TimecodeSeconds: input.TimecodeSeconds,
		PinX:            input.PinX,
		PinY:            input.PinY,
		Status:          types.CommentOpen,
		Mentions:        mentionsJSON,
	}
	rows, err := s.commentRepo.Create(ctx, nil, []*types.Comment{row})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	s.log.Info("comment created", "asset_id", input.AssetID, "comment_id", row.ID, "is_reply", input.ParentID != nil)
	return rows[0], nil
}

// ResolveComment is idempotent and irreversible. Resolving an already
// resolved thread returns it unchanged without renotifying.
func (s *commentService) ResolveComment(ctx context.Context, id uuid.UUID) (*types.Comment, error) {
	rd, err := requirePermission(ctx, permissions.ActionCommentResolve)
	if err != nil {
		return nil, err
	}
	row, err := s.getComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.ParentID != nil {
		return nil, apierr.Invalid("not_a_root_comment", fmt.Errorf("only root comments can be resolved"))
	}
	if row.Status == types.CommentResolved {
		return row, nil
	}
	if row.Status == types.CommentArchived {
		return nil, apierr.Conflict("comment_archived", fmt.Errorf("archived comments cannot be resolved"))
	}
	now := time.Now()
	row.Status = types.CommentResolved
	row.ResolvedBy = &rd.UserID
	row.ResolvedAt = &now
	if err := s.commentRepo.Update(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("resolve comment: %w", err)
	}
	if assets, err := s.assetRepo.GetByIDs(ctx, nil, []uuid.UUID{row.AssetID}); err == nil && len(assets) > 0 {
		s.notifier.CommentResolved(ctx, row, assets[0])
	}
	return row, nil
}

func (s *commentService) ArchiveComment(ctx context.Context, id uuid.UUID) (*types.Comment, error) {
	if _, err := requirePermission(ctx, permissions.ActionCommentArchive); err != nil {
		return nil, err
	}
	row, err := s.getComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.ParentID != nil {
		return nil, apierr.Invalid("not_a_root_comment", fmt.Errorf("only root comments can be archived"))
	}
	if row.Status == types.CommentArchived {
		return row, nil
	}
	row.Status = types.CommentArchived
	if err := s.commentRepo.Update(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("archive comment: %w", err)
	}
	return row, nil
}

func (s *commentService) DeleteComment(ctx context.Context, id uuid.UUID) error {
	rd, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	row, err := s.getComment(ctx, id)
	if err != nil {
		return err
	}
	if row.AuthorID != rd.UserID && !permissions.CanPerform(rd.Role, permissions.ActionCommentDelete) {
		return apierr.Forbidden("not_comment_author", fmt.Errorf("only the author or a moderator may delete this comment"))
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uuid.UUID{id}
		if row.ParentID == nil {
			// deleting a root takes its replies and their reactions with it
			all, err := s.commentRepo.GetByAssetID(ctx, tx, row.AssetID)
			if err != nil {
				return fmt.Errorf("list replies: %w", err)
			}
			for _, c := range all {
				if c.ParentID != nil && *c.ParentID == id {
					ids = append(ids, c.ID)
				}
			}
			if err := s.commentRepo.SoftDeleteByParentIDs(ctx, tx, []uuid.UUID{id}); err != nil {
				return fmt.Errorf("delete replies: %w", err)
			}
		}
		if err := s.reactionRepo.FullDeleteByCommentIDs(ctx, tx, ids); err != nil {
			return fmt.Errorf("delete reactions: %w", err)
		}
		if err := s.commentRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{id}); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		s.log.Info("comment deleted", "comment_id", id)
		return nil
	})
}

// ToggleReaction flips set membership on (comment, user, emoji). The bool
// reports whether the reaction is present after the call.
func (s *commentService) ToggleReaction(ctx context.Context, commentID uuid.UUID, emoji string) (bool, error) {
	rd, err := requirePermission(ctx, permissions.ActionCommentReact)
	if err != nil {
		return false, err
	}
	if emoji == "" {
		return false, apierr.Invalid("emoji_required", fmt.Errorf("emoji must not be empty"))
	}
	if _, err := s.getComment(ctx, commentID); err != nil {
		return false, err
	}
	var added bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.reactionRepo.GetByTriple(ctx, tx, commentID, rd.UserID, emoji)
		if err != nil {
			return fmt.Errorf("look up reaction: %w", err)
		}
		if existing != nil {
			if err := s.reactionRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); err != nil {
				return fmt.Errorf("remove reaction: %w", err)
			}
			added = false
			return nil
		}
		row := &types.CommentReaction{
			ID:        uuid.New(),
			CommentID: commentID,
			UserID:    rd.UserID,
			Emoji:     emoji,
		}
		if _, err := s.reactionRepo.Create(ctx, tx, row); err != nil {
			return fmt.Errorf("add reaction: %w", err)
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (s *commentService) getComment(ctx context.Context, id uuid.UUID) (*types.Comment, error) {
	rows, err := s.commentRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("look up comment: %w", err)
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound("comment_not_found", fmt.Errorf("comment %s not found", id))
	}
	return rows[0], nil
}
