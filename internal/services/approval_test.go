package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
	"github.com/framepoint/framepoint-backend/internal/types"
	"github.com/framepoint/framepoint-backend/internal/workflow"
)

func newApprovalFixture(t *testing.T) (ApprovalService, *fakeAssetRepo, *fakeStepRepo, *fakeNotifier, *types.Asset) {
	t.Helper()
	assets := newFakeAssetRepo()
	workflows := newFakeWorkflowRepo()
	steps := newFakeStepRepo()
	notifier := &fakeNotifier{}
	asset := &types.Asset{ID: uuid.New(), Name: "cut-01", Kind: "video", Status: "in_review", OwnerID: uuid.New()}
	assets.assets[asset.ID] = asset
	svc := NewApprovalService(testDB(t), testLogger(t), assets, workflows, steps, notifier)
	return svc, assets, steps, notifier, asset
}

func twoSteps() []workflow.StepSpec {
	return []workflow.StepSpec{
		{RoleLabel: "Editor", AssigneeEmail: "editor@studio.io", StepOrder: 1},
		{RoleLabel: "Director", AssigneeEmail: "director@studio.io", StepOrder: 2},
	}
}

func TestCreateWorkflowSupersedesPrevious(t *testing.T) {
	svc, _, _, _, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	first, err := svc.CreateWorkflow(ctx, asset.ID, "parallel", twoSteps())
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.CreateWorkflow(ctx, asset.ID, "sequential", twoSteps())
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.Workflow.ID == second.Workflow.ID {
		t.Fatalf("second create reused workflow id")
	}

	got, err := svc.GetByAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if got.Workflow.ID != second.Workflow.ID {
		t.Fatalf("active workflow: want=%s got=%s", second.Workflow.ID, got.Workflow.ID)
	}
	if got.CurrentStep == nil || got.CurrentStep.StepOrder != 1 {
		t.Fatalf("sequential workflow should expose step 1 as current: %+v", got.CurrentStep)
	}
}

func TestGetByAssetWithoutWorkflowReturnsNull(t *testing.T) {
	svc, _, _, _, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	got, err := svc.GetByAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("asset without a workflow must not error: %v", err)
	}
	if got.Workflow != nil {
		t.Fatalf("want nil workflow, got %+v", got.Workflow)
	}
	if got.Steps == nil || len(got.Steps) != 0 {
		t.Fatalf("want empty steps, got %+v", got.Steps)
	}

	_, err = svc.GetByAsset(ctx, uuid.New())
	if apierr.ErrCode(err) != "asset_not_found" {
		t.Fatalf("unknown asset: want asset_not_found, got %v", err)
	}
}

func TestDecideSequentialOutOfOrder(t *testing.T) {
	svc, _, _, _, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	view, err := svc.CreateWorkflow(ctx, asset.ID, "sequential", twoSteps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var stepTwo *types.ApprovalStep
	for _, s := range view.Steps {
		if s.StepOrder == 2 {
			stepTwo = s
		}
	}
	_, err = svc.Decide(ctx, stepTwo.ID, "approved", nil)
	if apierr.ErrCode(err) != "step_not_current" {
		t.Fatalf("want step_not_current, got %v", err)
	}
}

func TestDecideAlreadyDecidedConflicts(t *testing.T) {
	svc, _, _, _, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	view, err := svc.CreateWorkflow(ctx, asset.ID, "parallel", twoSteps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	step := view.Steps[0]
	if _, err := svc.Decide(ctx, step.ID, "approved", nil); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	_, err = svc.Decide(ctx, step.ID, "rejected", nil)
	if apierr.ErrCode(err) != "step_already_decided" {
		t.Fatalf("want step_already_decided, got %v", err)
	}
}

func TestDecideChangesRequestedFlipsAssetImmediately(t *testing.T) {
	svc, assets, _, notifier, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	view, err := svc.CreateWorkflow(ctx, asset.ID, "parallel", twoSteps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	note := "color is off in the second act"
	if _, err := svc.Decide(ctx, view.Steps[0].ID, "changes_requested", &note); err != nil {
		t.Fatalf("decide: %v", err)
	}
	rows, _ := assets.GetByIDs(ctx, nil, []uuid.UUID{asset.ID})
	if rows[0].Status != "needs_changes" {
		t.Fatalf("asset status: want=needs_changes got=%s", rows[0].Status)
	}
	if notifier.lastNewStatus != "needs_changes" {
		t.Fatalf("status change not notified: %q", notifier.lastNewStatus)
	}
}

func TestDecideAllApprovedFlipsAsset(t *testing.T) {
	svc, assets, _, _, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	view, err := svc.CreateWorkflow(ctx, asset.ID, "sequential", twoSteps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Decide(ctx, view.Steps[0].ID, "approved", nil); err != nil {
		t.Fatalf("decide step 1: %v", err)
	}
	rows, _ := assets.GetByIDs(ctx, nil, []uuid.UUID{asset.ID})
	if rows[0].Status != "in_review" {
		t.Fatalf("asset flipped before all steps decided: %s", rows[0].Status)
	}
	// approved_with_changes counts toward full approval
	if _, err := svc.Decide(ctx, view.Steps[1].ID, "approved_with_changes", nil); err != nil {
		t.Fatalf("decide step 2: %v", err)
	}
	rows, _ = assets.GetByIDs(ctx, nil, []uuid.UUID{asset.ID})
	if rows[0].Status != "approved" {
		t.Fatalf("asset status: want=approved got=%s", rows[0].Status)
	}
}

func TestDecideRejectedLeavesAssetStatus(t *testing.T) {
	svc, assets, _, notifier, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	view, err := svc.CreateWorkflow(ctx, asset.ID, "parallel", twoSteps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	step, err := svc.Decide(ctx, view.Steps[0].ID, "rejected", nil)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if step.Status != "rejected" {
		t.Fatalf("step status: want=rejected got=%s", step.Status)
	}
	rows, _ := assets.GetByIDs(ctx, nil, []uuid.UUID{asset.ID})
	if rows[0].Status != "in_review" {
		t.Fatalf("rejected must not transition the asset, got %s", rows[0].Status)
	}
	if len(notifier.statusChanges) != 0 {
		t.Fatalf("rejected must not notify a status change")
	}
}

func TestReplacePendingStepsKeepsDecidedHistory(t *testing.T) {
	svc, _, _, _, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	view, err := svc.CreateWorkflow(ctx, asset.ID, "sequential", twoSteps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Decide(ctx, view.Steps[0].ID, "approved", nil); err != nil {
		t.Fatalf("decide: %v", err)
	}

	replaced, err := svc.ReplacePendingSteps(ctx, view.Workflow.ID, []workflow.StepSpec{
		{RoleLabel: "Client", AssigneeEmail: "client@brand.com", StepOrder: 1},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(replaced.Steps) != 2 {
		t.Fatalf("want decided step plus one new step, got %d", len(replaced.Steps))
	}
	var decided, fresh *types.ApprovalStep
	for _, s := range replaced.Steps {
		if s.Status == "approved" {
			decided = s
		} else {
			fresh = s
		}
	}
	if decided == nil || decided.RoleLabel != "Editor" {
		t.Fatalf("decided step lost in replace: %+v", replaced.Steps)
	}
	if fresh == nil || fresh.StepOrder <= decided.StepOrder {
		t.Fatalf("new step must slot after decided history: %+v", fresh)
	}
}

func TestDecideRequiresPermission(t *testing.T) {
	svc, _, _, _, asset := newApprovalFixture(t)
	admin := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)
	viewer := ctxWithActor(uuid.New(), "guest", permissions.RoleViewer)

	view, err := svc.CreateWorkflow(admin, asset.ID, "parallel", twoSteps())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.Decide(viewer, view.Steps[0].ID, "approved", nil)
	if apierr.ErrCode(err) != "permission_denied" {
		t.Fatalf("want permission_denied, got %v", err)
	}
}

func TestCreateWorkflowValidatesSteps(t *testing.T) {
	svc, _, _, _, asset := newApprovalFixture(t)
	ctx := ctxWithActor(uuid.New(), "ana", permissions.RoleAdmin)

	_, err := svc.CreateWorkflow(ctx, asset.ID, "sequential", nil)
	if apierr.ErrCode(err) != "steps_required" {
		t.Fatalf("want steps_required, got %v", err)
	}
	_, err = svc.CreateWorkflow(ctx, asset.ID, "roundrobin", twoSteps())
	if err == nil {
		t.Fatalf("unknown mode accepted")
	}
}
