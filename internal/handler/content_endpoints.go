package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-server/internal/service"
	"collab-server/shared/models"
)

// Idempotency-Key header guards the non-idempotent submit operations against
// network retries double-incrementing the revision counter.
const idempotencyKeyHeader = "Idempotency-Key"

func (h *CollabHandler) submitScript(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req submitScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	if req.Text == "" && req.FileURL == "" {
		badRequest(c, "Either text or fileUrl must be provided")
		return
	}

	collab, err := h.contentService.SubmitScript(c.Request.Context(), id,
		c.GetHeader(idempotencyKeyHeader),
		service.ScriptSubmission{Text: req.Text, FileURL: req.FileURL})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) scriptAssist(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req scriptAssistRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	suggestion, err := h.contentService.ScriptAssist(c.Request.Context(), id, req.Brief)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

func (h *CollabHandler) submitVideoDraft(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req submitVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	collab, err := h.contentService.SubmitVideoDraft(c.Request.Context(), id,
		c.GetHeader(idempotencyKeyHeader), req.VideoURL)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) submitFinalLink(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req submitFinalLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	collab, err := h.contentService.SubmitFinalLink(c.Request.Context(), id, req.FinalLink)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) reviewScript(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req scriptStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	var approve bool
	switch models.ArtifactStatus(req.Status) {
	case models.ArtifactApproved:
		approve = true
	case models.ArtifactChangesRequested:
		approve = false
	default:
		badRequest(c, "status must be approved or changes_requested")
		return
	}

	collab, err := h.contentService.ReviewScript(c.Request.Context(), req.CampaignID, id, approve, req.Feedback)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) requestVideoChanges(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req videoFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	collab, err := h.contentService.RequestVideoChanges(c.Request.Context(), req.CampaignID, id, req.DraftVersion, req.Feedback)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) approveVideo(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req videoApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	collab, err := h.contentService.ApproveVideo(c.Request.Context(), req.CampaignID, id, req.DraftVersion)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}
