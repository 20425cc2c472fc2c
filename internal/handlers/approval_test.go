package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/services"
	"github.com/framepoint/framepoint-backend/internal/types"
	"github.com/framepoint/framepoint-backend/internal/workflow"
)

type stubApprovalService struct {
	decidedStep uuid.UUID
	decision    string
	note        *string
}

func (s *stubApprovalService) GetByAsset(ctx context.Context, assetID uuid.UUID) (*services.WorkflowView, error) {
	return &services.WorkflowView{Workflow: nil, Steps: []*types.ApprovalStep{}}, nil
}

func (s *stubApprovalService) CreateWorkflow(ctx context.Context, assetID uuid.UUID, mode string, specs []workflow.StepSpec) (*services.WorkflowView, error) {
	return &services.WorkflowView{}, nil
}

func (s *stubApprovalService) UpdateMode(ctx context.Context, workflowID uuid.UUID, mode string) (*services.WorkflowView, error) {
	return &services.WorkflowView{}, nil
}

func (s *stubApprovalService) ReplacePendingSteps(ctx context.Context, workflowID uuid.UUID, specs []workflow.StepSpec) (*services.WorkflowView, error) {
	return &services.WorkflowView{}, nil
}

func (s *stubApprovalService) DeleteWorkflow(ctx context.Context, workflowID uuid.UUID) error {
	return nil
}

func (s *stubApprovalService) Decide(ctx context.Context, stepID uuid.UUID, decision string, note *string) (*types.ApprovalStep, error) {
	s.decidedStep = stepID
	s.decision = decision
	s.note = note
	return &types.ApprovalStep{ID: stepID, Status: decision}, nil
}

func approvalTestRouter(stub *stubApprovalService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewApprovalHandler(stub)
	r := gin.New()
	r.GET("/approvals", h.GetByAsset)
	r.PATCH("/approvals/steps/:id/decision", h.Decide)
	return r
}

func TestDecideBindsStatusAndDecisionNote(t *testing.T) {
	stub := &stubApprovalService{}
	r := approvalTestRouter(stub)

	stepID := uuid.New()
	body, err := json.Marshal(gin.H{"status": "changes_requested", "decision_note": "tighten the cut"})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPatch, "/approvals/steps/"+stepID.String()+"/decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if stub.decidedStep != stepID {
		t.Fatalf("step id: want %s got %s", stepID, stub.decidedStep)
	}
	if stub.decision != "changes_requested" {
		t.Fatalf("status field not bound, got %q", stub.decision)
	}
	if stub.note == nil || *stub.note != "tighten the cut" {
		t.Fatalf("decision_note field not bound, got %v", stub.note)
	}
}

func TestGetByAssetSerializesNullWorkflow(t *testing.T) {
	r := approvalTestRouter(&stubApprovalService{})

	req := httptest.NewRequest(http.MethodGet, "/approvals?asset_id="+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var payload struct {
		Workflow json.RawMessage `json:"workflow"`
		Steps    []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(payload.Workflow) != "null" {
		t.Fatalf("workflow field: want null, got %s", payload.Workflow)
	}
	if payload.Steps == nil || len(payload.Steps) != 0 {
		t.Fatalf("steps field: want [], got %s", w.Body.String())
	}
}
