package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/services"
	"github.com/framepoint/framepoint-backend/internal/threads"
)

type CommentHandler struct {
	commentService services.CommentService
}

func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) ListThreads(c *gin.Context) {
	assetID, err := uuid.Parse(c.Query("asset_id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "asset_id query param must be a uuid")
		return
	}
	opts := threads.Options{
		Status: threads.StatusFilter(c.DefaultQuery("status", string(threads.FilterAll))),
		Query:  c.Query("q"),
		Sort:   threads.Sort(c.DefaultQuery("sort", string(threads.SortNewest))),
	}
	rows, err := h.commentService.ListThreads(c.Request.Context(), assetID, opts)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"threads": rows})
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req services.CreateCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	row, err := h.commentService.CreateComment(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, row)
}

func (h *CommentHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "comment id must be a uuid")
		return
	}
	row, err := h.commentService.ResolveComment(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, row)
}

func (h *CommentHandler) Archive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "comment id must be a uuid")
		return
	}
	row, err := h.commentService.ArchiveComment(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, row)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "comment id must be a uuid")
		return
	}
	if err := h.commentService.DeleteComment(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *CommentHandler) ToggleReaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondInvalid(c, "invalid_id", "comment id must be a uuid")
		return
	}
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondInvalid(c, "invalid_body", "invalid request body")
		return
	}
	added, err := h.commentService.ToggleReaction(c.Request.Context(), id, req.Emoji)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"reacted": added})
}
