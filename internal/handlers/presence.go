package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/services"
)

type PresenceHandler struct {
	presenceService services.PresenceService
}

func NewPresenceHandler(presenceService services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

func (h *PresenceHandler) Join(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("asset_id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset id must be a uuid")
		return
	}
	viewers, err := h.presenceService.Join(c.Request.Context(), assetID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"viewers": viewers})
}

func (h *PresenceHandler) Viewers(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("asset_id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset id must be a uuid")
		return
	}
	viewers, err := h.presenceService.Viewers(c.Request.Context(), assetID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"viewers": viewers})
}

func (h *PresenceHandler) Leave(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("asset_id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset id must be a uuid")
		return
	}
	if err := h.presenceService.Leave(c.Request.Context(), assetID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
