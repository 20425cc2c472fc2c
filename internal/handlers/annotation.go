package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/services"
)

type AnnotationHandler struct {
	annotationService services.AnnotationService
}

func NewAnnotationHandler(annotationService services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{annotationService: annotationService}
}

func (h *AnnotationHandler) ListByAsset(c *gin.Context) {
	assetID, err := uuid.Parse(c.Query("asset_id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset_id query param must be a uuid")
		return
	}
	rows, err := h.annotationService.ListByAsset(c.Request.Context(), assetID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"annotations": rows})
}

func (h *AnnotationHandler) Create(c *gin.Context) {
	var req services.CreateAnnotationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	row, err := h.annotationService.CreateAnnotation(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, row)
}

func (h *AnnotationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "annotation id must be a uuid")
		return
	}
	if err := h.annotationService.DeleteAnnotation(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
