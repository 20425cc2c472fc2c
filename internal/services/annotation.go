package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/capture"
	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/repos"
	"github.com/framepoint/framepoint-backend/internal/types"
)

type CreateAnnotationInput struct {
	AssetID     uuid.UUID       `json:"asset_id"`
	VersionID   *uuid.UUID      `json:"version_id,omitempty"`
	FrameNumber *int            `json:"frame_number,omitempty"`
	Kind        string          `json:"kind"`
	Geometry    json.RawMessage `json:"geometry"`
	Color       string          `json:"color,omitempty"`
	Opacity     float64         `json:"opacity,omitempty"`
	StrokeWidth float64         `json:"stroke_width,omitempty"`
}

type AnnotationService interface {
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*types.Annotation, error)
	CreateAnnotation(ctx context.Context, input CreateAnnotationInput) (*types.Annotation, error)
	DeleteAnnotation(ctx context.Context, id uuid.UUID) error
}

type annotationService struct {
	db        *gorm.DB
	log       *logger.Logger
	assetRepo repos.AssetRepo
	annoRepo  repos.AnnotationRepo
}

func NewAnnotationService(db *gorm.DB, log *logger.Logger, assetRepo repos.AssetRepo, annoRepo repos.AnnotationRepo) AnnotationService {
	return &annotationService{
		db:        db,
		log:       log.With("service", "AnnotationService"),
		assetRepo: assetRepo,
		annoRepo:  annoRepo,
	}
}

func (s *annotationService) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*types.Annotation, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	rows, err := s.annoRepo.GetByAssetID(ctx, nil, assetID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return rows, nil
}

// CreateAnnotation validates the shape against its kind's exact field set
// before anything touches the database. Pin labels are stamped server side
// from the per-frame count, never trusted from the client.
func (s *annotationService) CreateAnnotation(ctx context.Context, input CreateAnnotationInput) (*types.Annotation, error) {
	rd, err := requirePermission(ctx, permissions.ActionAnnotationWrite)
	if err != nil {
		return nil, err
	}
	assets, err := s.assetRepo.GetByIDs(ctx, nil, []uuid.UUID{input.AssetID})
	if err != nil {
		return nil, fmt.Errorf("look up asset: %w", err)
	}
	if len(assets) == 0 {
		return nil, apierr.NotFound("asset_not_found", fmt.Errorf("asset %s not found", input.AssetID))
	}
	g, err := capture.ParseGeometry(capture.Kind(input.Kind), input.Geometry)
	if err != nil {
		return nil, apierr.Invalid("invalid_geometry", err)
	}

	var created *types.Annotation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pin, ok := g.(capture.Pin); ok {
			if input.FrameNumber == nil {
				return apierr.Invalid("frame_required", fmt.Errorf("pin annotations require a frame number"))
			}
			count, err := s.annoRepo.CountPinsOnFrame(ctx, tx, input.AssetID, *input.FrameNumber)
			if err != nil {
				return fmt.Errorf("count pins: %w", err)
			}
			pin.Label = int(count) + 1
			g = pin
		}
		raw, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encode geometry: %w", err)
		}
		opacity := input.Opacity
		if opacity == 0 {
			opacity = 1
		}
		strokeWidth := input.StrokeWidth
		if strokeWidth == 0 {
			strokeWidth = 2
		}
		row := &types.Annotation{
			ID:          uuid.New(),
			AssetID:     input.AssetID,
			VersionID:   input.VersionID,
			FrameNumber: input.FrameNumber,
			Kind:        string(g.Kind()),
			Geometry:    datatypes.JSON(raw),
			Color:       input.Color,
			Opacity:     opacity,
			StrokeWidth: strokeWidth,
			CreatedBy:   rd.UserID,
		}
		rows, err := s.annoRepo.Create(ctx, tx, []*types.Annotation{row})
		if err != nil {
			return fmt.Errorf("create annotation: %w", err)
		}
		created = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("annotation created", "asset_id", input.AssetID, "kind", created.Kind)
	return created, nil
}

func (s *annotationService) DeleteAnnotation(ctx context.Context, id uuid.UUID) error {
	rd, err := requirePermission(ctx, permissions.ActionAnnotationWrite)
	if err != nil {
		return err
	}
	rows, err := s.annoRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return fmt.Errorf("look up annotation: %w", err)
	}
	if len(rows) == 0 {
		return apierr.NotFound("annotation_not_found", fmt.Errorf("annotation %s not found", id))
	}
	row := rows[0]
	if row.CreatedBy != rd.UserID && rd.Role != permissions.RoleOwner && rd.Role != permissions.RoleAdmin {
		return apierr.Forbidden("not_annotation_author", fmt.Errorf("only the author or an admin may delete this annotation"))
	}
	if err := s.annoRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{id}); err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	return nil
}
