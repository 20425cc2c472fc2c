package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/repos"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type AssetService interface {
	CreateAsset(ctx context.Context, name, kind string) (*types.Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*types.Asset, []*types.AssetVersion, error)
	ListAssets(ctx context.Context) ([]*types.Asset, error)
	AddVersion(ctx context.Context, assetID uuid.UUID, mediaURL string, durationSeconds, frameRate float64) (*types.AssetVersion, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error
}

type assetService struct {
	db           *gorm.DB
	log          *logger.Logger
	assetRepo    repos.AssetRepo
	versionRepo  repos.AssetVersionRepo
	annoRepo     repos.AnnotationRepo
	commentRepo  repos.CommentRepo
	reactionRepo repos.CommentReactionRepo
	workflowRepo repos.ApprovalWorkflowRepo
	stepRepo     repos.ApprovalStepRepo
}

func NewAssetService(
	db *gorm.DB,
	log *logger.Logger,
	assetRepo repos.AssetRepo,
	versionRepo repos.AssetVersionRepo,
	annoRepo repos.AnnotationRepo,
	commentRepo repos.CommentRepo,
	reactionRepo repos.CommentReactionRepo,
	workflowRepo repos.ApprovalWorkflowRepo,
	stepRepo repos.ApprovalStepRepo,
) AssetService {
	return &assetService{
		db:           db,
		log:          log.With("service", "AssetService"),
		assetRepo:    assetRepo,
		versionRepo:  versionRepo,
		annoRepo:     annoRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		workflowRepo: workflowRepo,
		stepRepo:     stepRepo,
	}
}

var assetKinds = map[string]bool{
	"video":    true,
	"image":    true,
	"audio":    true,
	"document": true,
}

func (s *assetService) CreateAsset(ctx context.Context, name, kind string) (*types.Asset, error) {
	rd, err := requirePermission(ctx, permissions.ActionAssetUpload)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apierr.Invalid("name_required", fmt.Errorf("asset name must not be empty"))
	}
	if !assetKinds[kind] {
		return nil, apierr.Invalid("unknown_asset_kind", fmt.Errorf("unknown asset kind %q", kind))
	}
	row := &types.Asset{
		ID:      uuid.New(),
		Name:    name,
		Kind:    kind,
		Status:  "in_review",
		OwnerID: rd.UserID,
	}
	rows, err := s.assetRepo.Create(ctx, nil, []*types.Asset{row})
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	s.log.Info("asset created", "asset_id", row.ID, "kind", kind)
	return rows[0], nil
}

func (s *assetService) GetAsset(ctx context.Context, id uuid.UUID) (*types.Asset, []*types.AssetVersion, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, nil, err
	}
	asset, err := s.getAsset(ctx, nil, id)
	if err != nil {
		return nil, nil, err
	}
	versions, err := s.versionRepo.GetByAssetID(ctx, nil, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list versions: %w", err)
	}
	return asset, versions, nil
}

func (s *assetService) ListAssets(ctx context.Context) ([]*types.Asset, error) {
	rd, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.assetRepo.ListByOwnerID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return rows, nil
}

func (s *assetService) AddVersion(ctx context.Context, assetID uuid.UUID, mediaURL string, durationSeconds, frameRate float64) (*types.AssetVersion, error) {
	if _, err := requirePermission(ctx, permissions.ActionVersionUpload); err != nil {
		return nil, err
	}
	if mediaURL == "" {
		return nil, apierr.Invalid("media_url_required", fmt.Errorf("media url must not be empty"))
	}
	if frameRate <= 0 {
		return nil, apierr.Invalid("invalid_frame_rate", fmt.Errorf("frame rate must be positive, got %v", frameRate))
	}
	if _, err := s.getAsset(ctx, nil, assetID); err != nil {
		return nil, err
	}
	var created *types.AssetVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.versionRepo.GetByAssetID(ctx, tx, assetID)
		if err != nil {
			return fmt.Errorf("count versions: %w", err)
		}
		row := &types.AssetVersion{
			ID:              uuid.New(),
			AssetID:         assetID,
			VersionNumber:   len(existing) + 1,
			MediaURL:        mediaURL,
			DurationSeconds: durationSeconds,
			FrameRate:       frameRate,
		}
		rows, err := s.versionRepo.Create(ctx, tx, []*types.AssetVersion{row})
		if err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		created = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version added", "asset_id", assetID, "version_number", created.VersionNumber)
	return created, nil
}

// DeleteAsset removes the asset and everything hanging off it. Review
// history goes with the asset; nothing may survive pointing at a deleted row.
func (s *assetService) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	rd, err := requirePermission(ctx, permissions.ActionAssetDelete)
	if err != nil {
		return err
	}
	asset, err := s.getAsset(ctx, nil, id)
	if err != nil {
		return err
	}
	if asset.OwnerID != rd.UserID && rd.Role != permissions.RoleOwner && rd.Role != permissions.RoleAdmin {
		return apierr.Forbidden("not_asset_owner", fmt.Errorf("only the owner or an admin may delete this asset"))
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments, err := s.commentRepo.GetByAssetID(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("list comments: %w", err)
		}
		commentIDs := make([]uuid.UUID, 0, len(comments))
		for _, c := range comments {
			commentIDs = append(commentIDs, c.ID)
		}
		if len(commentIDs) > 0 {
			if err := s.reactionRepo.FullDeleteByCommentIDs(ctx, tx, commentIDs); err != nil {
				return fmt.Errorf("delete reactions: %w", err)
			}
		}
		if err := s.commentRepo.SoftDeleteByAssetIDs(ctx, tx, []uuid.UUID{id}); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := s.annoRepo.FullDeleteByAssetIDs(ctx, tx, []uuid.UUID{id}); err != nil {
			return fmt.Errorf("delete annotations: %w", err)
		}
		wf, err := s.workflowRepo.GetActiveByAssetID(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("look up workflow: %w", err)
		}
		if wf != nil {
			if err := s.stepRepo.FullDeleteByWorkflowIDs(ctx, tx, []uuid.UUID{wf.ID}); err != nil {
				return fmt.Errorf("delete steps: %w", err)
			}
			if err := s.workflowRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{wf.ID}); err != nil {
				return fmt.Errorf("delete workflow: %w", err)
			}
		}
		if err := s.versionRepo.SoftDeleteByAssetIDs(ctx, tx, []uuid.UUID{id}); err != nil {
			return fmt.Errorf("delete versions: %w", err)
		}
		if err := s.assetRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{id}); err != nil {
			return fmt.Errorf("delete asset: %w", err)
		}
		s.log.Info("asset deleted", "asset_id", id)
		return nil
	})
}

func (s *assetService) getAsset(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Asset, error) {
	rows, err := s.assetRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("look up asset: %w", err)
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound("asset_not_found", fmt.Errorf("asset %s not found", id))
	}
	return rows[0], nil
}
