package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/repos"
	"github.com/framepoint/framepoint-backend/internal/types"
	"github.com/framepoint/framepoint-backend/internal/workflow"
)

// WorkflowView is a workflow with its ordered steps and, in sequential
// mode, the step currently awaiting a decision.
type WorkflowView struct {
	Workflow    *types.ApprovalWorkflow `json:"workflow"`
	Steps       []*types.ApprovalStep   `json:"steps"`
	CurrentStep *types.ApprovalStep     `json:"current_step,omitempty"`
}

type ApprovalService interface {
	GetByAsset(ctx context.Context, assetID uuid.UUID) (*WorkflowView, error)
	CreateWorkflow(ctx context.Context, assetID uuid.UUID, mode string, specs []workflow.StepSpec) (*WorkflowView, error)
	UpdateMode(ctx context.Context, workflowID uuid.UUID, mode string) (*WorkflowView, error)
	ReplacePendingSteps(ctx context.Context, workflowID uuid.UUID, specs []workflow.StepSpec) (*WorkflowView, error)
	DeleteWorkflow(ctx context.Context, workflowID uuid.UUID) error
	Decide(ctx context.Context, stepID uuid.UUID, decision string, note *string) (*types.ApprovalStep, error)
}

type approvalService struct {
	db           *gorm.DB
	log          *logger.Logger
	assetRepo    repos.AssetRepo
	workflowRepo repos.ApprovalWorkflowRepo
	stepRepo     repos.ApprovalStepRepo
	notifier     Notifier
}

func NewApprovalService(
	db *gorm.DB,
	log *logger.Logger,
	assetRepo repos.AssetRepo,
	workflowRepo repos.ApprovalWorkflowRepo,
	stepRepo repos.ApprovalStepRepo,
	notifier Notifier,
) ApprovalService {
	return &approvalService{
		db:           db,
		log:          log.With("service", "ApprovalService"),
		assetRepo:    assetRepo,
		workflowRepo: workflowRepo,
		stepRepo:     stepRepo,
		notifier:     notifier,
	}
}

func (s *approvalService) GetByAsset(ctx context.Context, assetID uuid.UUID) (*WorkflowView, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	wf, err := s.workflowRepo.GetActiveByAssetID(ctx, nil, assetID)
	if err != nil {
		return nil, fmt.Errorf("look up workflow: %w", err)
	}
	if wf == nil {
		// No active workflow is a normal state for an asset, not an error.
		assets, err := s.assetRepo.GetByIDs(ctx, nil, []uuid.UUID{assetID})
		if err != nil {
			return nil, fmt.Errorf("look up asset: %w", err)
		}
		if len(assets) == 0 {
			return nil, apierr.NotFound("asset_not_found", fmt.Errorf("asset %s not found", assetID))
		}
		return &WorkflowView{Workflow: nil, Steps: []*types.ApprovalStep{}}, nil
	}
	return s.view(ctx, nil, wf)
}

// CreateWorkflow starts a fresh review cycle. Any previous active workflow
// for the asset is superseded, and the asset goes back to in_review.
func (s *approvalService) CreateWorkflow(ctx context.Context, assetID uuid.UUID, mode string, specs []workflow.StepSpec) (*WorkflowView, error) {
	rd, err := requirePermission(ctx, permissions.ActionApprovalCreate)
	if err != nil {
		return nil, err
	}
	m, err := workflow.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateSteps(specs); err != nil {
		return nil, err
	}
	assets, err := s.assetRepo.GetByIDs(ctx, nil, []uuid.UUID{assetID})
	if err != nil {
		return nil, fmt.Errorf("look up asset: %w", err)
	}
	if len(assets) == 0 {
		return nil, apierr.NotFound("asset_not_found", fmt.Errorf("asset %s not found", assetID))
	}

	var wf *types.ApprovalWorkflow
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.workflowRepo.MarkSuperseded(ctx, tx, assetID); err != nil {
			return fmt.Errorf("supersede previous workflow: %w", err)
		}
		row := &types.ApprovalWorkflow{
			ID:        uuid.New(),
			AssetID:   assetID,
			Mode:      string(m),
			Status:    types.WorkflowActive,
			CreatedBy: rd.UserID,
		}
		wf, err = s.workflowRepo.Create(ctx, tx, row)
		if err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		steps := stepsFromSpecs(wf, workflow.Renumber(specs))
		if _, err := s.stepRepo.Create(ctx, tx, steps); err != nil {
			return fmt.Errorf("create steps: %w", err)
		}
		if err := s.assetRepo.UpdateStatus(ctx, tx, assetID, string(workflow.AssetInReview)); err != nil {
			return fmt.Errorf("reset asset status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("workflow created", "asset_id", assetID, "workflow_id", wf.ID, "mode", mode)
	return s.view(ctx, nil, wf)
}

func (s *approvalService) UpdateMode(ctx context.Context, workflowID uuid.UUID, mode string) (*WorkflowView, error) {
	if _, err := requirePermission(ctx, permissions.ActionApprovalManage); err != nil {
		return nil, err
	}
	m, err := workflow.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	wf, err := s.getWorkflow(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != types.WorkflowActive {
		return nil, apierr.Conflict("workflow_superseded", fmt.Errorf("workflow %s is no longer active", workflowID))
	}
	if err := s.workflowRepo.UpdateMode(ctx, nil, workflowID, string(m)); err != nil {
		return nil, fmt.Errorf("update mode: %w", err)
	}
	wf.Mode = string(m)
	return s.view(ctx, nil, wf)
}

// ReplacePendingSteps swaps out the undecided tail of a workflow. Decided
// steps are immutable history and stay where they are; the new steps slot
// in after the highest decided order.
func (s *approvalService) ReplacePendingSteps(ctx context.Context, workflowID uuid.UUID, specs []workflow.StepSpec) (*WorkflowView, error) {
	if _, err := requirePermission(ctx, permissions.ActionApprovalManage); err != nil {
		return nil, err
	}
	if err := workflow.ValidateSteps(specs); err != nil {
		return nil, err
	}
	wf, err := s.getWorkflow(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != types.WorkflowActive {
		return nil, apierr.Conflict("workflow_superseded", fmt.Errorf("workflow %s is no longer active", workflowID))
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.stepRepo.GetByWorkflowIDForUpdate(ctx, tx, workflowID)
		if err != nil {
			return fmt.Errorf("lock steps: %w", err)
		}
		maxDecided := 0
		for _, st := range existing {
			if workflow.IsTerminal(workflow.StepStatus(st.Status)) && st.StepOrder > maxDecided {
				maxDecided = st.StepOrder
			}
		}
		if err := s.stepRepo.FullDeletePendingByWorkflowID(ctx, tx, workflowID); err != nil {
			return fmt.Errorf("drop pending steps: %w", err)
		}
		renumbered := workflow.Renumber(specs)
		for i := range renumbered {
			renumbered[i].StepOrder += maxDecided
		}
		if _, err := s.stepRepo.Create(ctx, tx, stepsFromSpecs(wf, renumbered)); err != nil {
			return fmt.Errorf("create steps: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, nil, wf)
}

func (s *approvalService) DeleteWorkflow(ctx context.Context, workflowID uuid.UUID) error {
	if _, err := requirePermission(ctx, permissions.ActionApprovalManage); err != nil {
		return err
	}
	wf, err := s.getWorkflow(ctx, nil, workflowID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.stepRepo.FullDeleteByWorkflowIDs(ctx, tx, []uuid.UUID{wf.ID}); err != nil {
			return fmt.Errorf("delete steps: %w", err)
		}
		if err := s.workflowRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{wf.ID}); err != nil {
			return fmt.Errorf("delete workflow: %w", err)
		}
		s.log.Info("workflow deleted", "workflow_id", wf.ID, "asset_id", wf.AssetID)
		return nil
	})
}

// Decide lands a terminal status on one pending step. The step row is
// locked, the full step set is re-read inside the same transaction, and the
// asset status aggregate is written atomically with the step. A concurrent
// decision on the same step surfaces as a retryable conflict.
func (s *approvalService) Decide(ctx context.Context, stepID uuid.UUID, decision string, note *string) (*types.ApprovalStep, error) {
	rd, err := requirePermission(ctx, permissions.ActionApprovalDecide)
	if err != nil {
		return nil, err
	}
	decided, err := workflow.ParseDecision(decision)
	if err != nil {
		return nil, err
	}

	var (
		step          *types.ApprovalStep
		statusChanged bool
		oldStatus     string
		newStatus     workflow.AssetStatus
		asset         *types.Asset
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		step, err = s.stepRepo.GetByIDForUpdate(ctx, tx, stepID)
		if err != nil {
			return fmt.Errorf("lock step: %w", err)
		}
		if step == nil {
			return apierr.NotFound("step_not_found", fmt.Errorf("step %s not found", stepID))
		}
		if step.Status != string(workflow.StepPending) {
			return apierr.Conflict("step_already_decided", fmt.Errorf("step %s already holds status %s", stepID, step.Status))
		}
		wf, err := s.getWorkflow(ctx, tx, step.WorkflowID)
		if err != nil {
			return err
		}
		if wf.Status != types.WorkflowActive {
			return apierr.Conflict("workflow_superseded", fmt.Errorf("workflow %s is no longer active", wf.ID))
		}

		all, err := s.stepRepo.GetByWorkflowIDForUpdate(ctx, tx, step.WorkflowID)
		if err != nil {
			return fmt.Errorf("lock step set: %w", err)
		}
		views := make([]workflow.StepView, 0, len(all))
		for _, st := range all {
			views = append(views, workflow.StepView{StepOrder: st.StepOrder, Status: workflow.StepStatus(st.Status)})
		}
		if current, ok := workflow.CurrentStepOrder(workflow.Mode(wf.Mode), views); ok && step.StepOrder != current {
			return apierr.Conflict("step_not_current", fmt.Errorf("sequential workflow is waiting on step %d", current))
		}

		now := time.Now()
		step.Status = string(decided)
		step.DecisionNote = note
		step.DecidedBy = &rd.UserID
		step.DecidedAt = &now
		if err := s.stepRepo.Update(ctx, tx, step); err != nil {
			return fmt.Errorf("update step: %w", err)
		}
		for i := range views {
			if all[i].ID == step.ID {
				views[i].Status = decided
			}
		}

		next, ok := workflow.DeriveAssetStatus(decided, views)
		if !ok {
			return nil
		}
		assets, err := s.assetRepo.GetByIDs(ctx, tx, []uuid.UUID{step.AssetID})
		if err != nil {
			return fmt.Errorf("look up asset: %w", err)
		}
		if len(assets) == 0 {
			return apierr.NotFound("asset_not_found", fmt.Errorf("asset %s not found", step.AssetID))
		}
		asset = assets[0]
		if asset.Status == string(next) {
			return nil
		}
		oldStatus = asset.Status
		newStatus = next
		if err := s.assetRepo.UpdateStatus(ctx, tx, asset.ID, string(next)); err != nil {
			return fmt.Errorf("update asset status: %w", err)
		}
		asset.Status = string(next)
		statusChanged = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.StepDecided(ctx, step)
	if statusChanged {
		s.notifier.AssetStatusChanged(ctx, asset, oldStatus, string(newStatus))
	}
	s.log.Info("step decided", "step_id", stepID, "status", step.Status, "asset_status_changed", statusChanged)
	return step, nil
}

func stepsFromSpecs(wf *types.ApprovalWorkflow, specs []workflow.StepSpec) []*types.ApprovalStep {
	rows := make([]*types.ApprovalStep, 0, len(specs))
	for _, spec := range specs {
		rows = append(rows, &types.ApprovalStep{
			ID:            uuid.New(),
			WorkflowID:    wf.ID,
			AssetID:       wf.AssetID,
			StepOrder:     spec.StepOrder,
			RoleLabel:     spec.RoleLabel,
			AssigneeEmail: spec.AssigneeEmail,
			Status:        string(workflow.StepPending),
		})
	}
	return rows
}

func (s *approvalService) getWorkflow(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ApprovalWorkflow, error) {
	rows, err := s.workflowRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("look up workflow: %w", err)
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound("workflow_not_found", fmt.Errorf("workflow %s not found", id))
	}
	return rows[0], nil
}

func (s *approvalService) view(ctx context.Context, tx *gorm.DB, wf *types.ApprovalWorkflow) (*WorkflowView, error) {
	steps, err := s.stepRepo.GetByWorkflowID(ctx, tx, wf.ID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	out := &WorkflowView{Workflow: wf, Steps: steps}
	views := make([]workflow.StepView, 0, len(steps))
	for _, st := range steps {
		views = append(views, workflow.StepView{StepOrder: st.StepOrder, Status: workflow.StepStatus(st.Status)})
	}
	if current, ok := workflow.CurrentStepOrder(workflow.Mode(wf.Mode), views); ok {
		for _, st := range steps {
			if st.StepOrder == current {
				out.CurrentStep = st
				break
			}
		}
	}
	return out, nil
}
