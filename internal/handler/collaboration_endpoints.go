package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-server/internal/service"
	"collab-server/shared/models"
)

// listCollaborations returns the campaign's collaborations grouped into the
// UI views.
func (h *CollabHandler) listCollaborations(c *gin.Context) {
	campaignID, ok := parseUUIDParam(c, "campaign_id")
	if !ok {
		return
	}

	list, err := h.collabService.ListCollaborations(c.Request.Context(), campaignID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CollabHandler) getBudget(c *gin.Context) {
	campaignID, ok := parseUUIDParam(c, "campaign_id")
	if !ok {
		return
	}

	budget, err := h.collabService.GetBudget(c.Request.Context(), campaignID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, budgetSnapshot(budget))
}

func (h *CollabHandler) getCollaboration(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	collab, err := h.collabService.GetCollaboration(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) invite(c *gin.Context) {
	campaignID, ok := parseUUIDParam(c, "campaign_id")
	if !ok {
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	collab, err := h.collabService.Invite(c.Request.Context(), service.InviteParams{
		CampaignID:      campaignID,
		CreatorID:       req.CreatorID,
		CreatorCategory: req.CreatorCategory,
		TargetPlatform:  req.TargetPlatform,
		Placement:       req.Placement,
		ProposedRate:    req.ProposedRate,
		InvitationType:  models.InvitationManual,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.logger.Info("Collaboration invited",
		zap.String("campaignID", campaignID.String()),
		zap.String("collaborationID", collab.ID.String()))
	c.JSON(http.StatusCreated, collab)
}

func (h *CollabHandler) confirm(c *gin.Context) {
	campaignID, ok := parseUUIDParam(c, "campaign_id")
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	collab, err := h.collabService.Confirm(c.Request.Context(), campaignID, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) reject(c *gin.Context) {
	campaignID, ok := parseUUIDParam(c, "campaign_id")
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	collab, err := h.collabService.Reject(c.Request.Context(), campaignID, id, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}

func (h *CollabHandler) withdraw(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	collab, err := h.collabService.Withdraw(c.Request.Context(), id, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, collab)
}
