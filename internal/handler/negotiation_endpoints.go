package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *CollabHandler) negotiate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req negotiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	if req.ProposedRate <= 0 {
		badRequest(c, "proposedRate must be positive")
		return
	}

	result, err := h.negotiationService.Negotiate(c.Request.Context(), id, req.ProposedRate, req.Justification)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	negotiationsResolvedTotal.WithLabelValues(string(result.Round.Decision)).Inc()
	h.logger.Info("Negotiation resolved",
		zap.String("collaborationID", id.String()),
		zap.String("decision", string(result.Round.Decision)))
	c.JSON(http.StatusOK, result)
}

func (h *CollabHandler) respondToCounter(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req negotiationRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	var accept bool
	switch req.Decision {
	case "accept":
		accept = true
	case "reject":
		accept = false
	default:
		badRequest(c, "decision must be accept or reject")
		return
	}

	result, err := h.negotiationService.RespondToCounter(c.Request.Context(), id, accept)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
