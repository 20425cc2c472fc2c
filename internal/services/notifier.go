package services

import (
	"context"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/types"
)

// Notifier is the seam to downstream delivery (email, webhooks). Delivery
// itself happens outside this service; failures must never fail the
// triggering mutation.
type Notifier interface {
	CommentResolved(ctx context.Context, comment *types.Comment, asset *types.Asset)
	AssetStatusChanged(ctx context.Context, asset *types.Asset, oldStatus, newStatus string)
	StepDecided(ctx context.Context, step *types.ApprovalStep)
}

type logNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log.With("service", "Notifier")}
}

func (n *logNotifier) CommentResolved(ctx context.Context, comment *types.Comment, asset *types.Asset) {
	n.log.Info("comment resolved notification",
		"comment_id", comment.ID,
		"asset_id", comment.AssetID,
		"owner_user_id", asset.OwnerID,
	)
}

func (n *logNotifier) AssetStatusChanged(ctx context.Context, asset *types.Asset, oldStatus, newStatus string) {
	n.log.Info("asset status notification",
		"asset_id", asset.ID,
		"old_status", oldStatus,
		"new_status", newStatus,
	)
}

func (n *logNotifier) StepDecided(ctx context.Context, step *types.ApprovalStep) {
	n.log.Info("approval step decided notification",
		"step_id", step.ID,
		"asset_id", step.AssetID,
		"status", step.Status,
	)
}
