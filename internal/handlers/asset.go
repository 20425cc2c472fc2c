package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/services"
)

type AssetHandler struct {
	assetService services.AssetService
}

func NewAssetHandler(assetService services.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

func (h *AssetHandler) List(c *gin.Context) {
	assets, err := h.assetService.ListAssets(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"assets": assets})
}

func (h *AssetHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset id must be a uuid")
		return
	}
	asset, versions, err := h.assetService.GetAsset(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"asset": asset, "versions": versions})
}

func (h *AssetHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	asset, err := h.assetService.CreateAsset(c.Request.Context(), req.Name, req.Kind)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, asset)
}

func (h *AssetHandler) AddVersion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset id must be a uuid")
		return
	}
	var req struct {
		MediaURL        string  `json:"media_url"`
		DurationSeconds float64 `json:"duration_seconds"`
		FrameRate       float64 `json:"frame_rate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	version, err := h.assetService.AddVersion(c.Request.Context(), id, req.MediaURL, req.DurationSeconds, req.FrameRate)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, version)
}

func (h *AssetHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset id must be a uuid")
		return
	}
	if err := h.assetService.DeleteAsset(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
