package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/services"
	"github.com/framepoint/framepoint-backend/internal/workflow"
)

type ApprovalHandler struct {
	approvalService services.ApprovalService
}

func NewApprovalHandler(approvalService services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

type stepSpecBody struct {
	RoleLabel     string `json:"role_label"`
	AssigneeEmail string `json:"assignee_email"`
	StepOrder     int    `json:"step_order"`
}

func toStepSpecs(body []stepSpecBody) []workflow.StepSpec {
	specs := make([]workflow.StepSpec, 0, len(body))
	for _, b := range body {
		specs = append(specs, workflow.StepSpec{
			RoleLabel:     b.RoleLabel,
			AssigneeEmail: b.AssigneeEmail,
			StepOrder:     b.StepOrder,
		})
	}
	return specs
}

func (h *ApprovalHandler) GetByAsset(c *gin.Context) {
	assetID, err := uuid.Parse(c.Query("asset_id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset_id query param must be a uuid")
		return
	}
	view, err := h.approvalService.GetByAsset(c.Request.Context(), assetID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *ApprovalHandler) Create(c *gin.Context) {
	var req struct {
		AssetID uuid.UUID      `json:"asset_id"`
		Mode    string         `json:"mode"`
		Steps   []stepSpecBody `json:"steps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	view, err := h.approvalService.CreateWorkflow(c.Request.Context(), req.AssetID, req.Mode, toStepSpecs(req.Steps))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, view)
}

func (h *ApprovalHandler) UpdateMode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "workflow id must be a uuid")
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	view, err := h.approvalService.UpdateMode(c.Request.Context(), id, req.Mode)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *ApprovalHandler) ReplaceSteps(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "workflow id must be a uuid")
		return
	}
	var req struct {
		Steps []stepSpecBody `json:"steps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	view, err := h.approvalService.ReplacePendingSteps(c.Request.Context(), id, toStepSpecs(req.Steps))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *ApprovalHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "workflow id must be a uuid")
		return
	}
	if err := h.approvalService.DeleteWorkflow(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *ApprovalHandler) Decide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "step id must be a uuid")
		return
	}
	var req struct {
		Decision string  `json:"status"`
		Note     *string `json:"decision_note,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	step, err := h.approvalService.Decide(c.Request.Context(), id, req.Decision, req.Note)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, step)
}
