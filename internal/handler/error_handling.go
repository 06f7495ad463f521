package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-server/shared/models"
)

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrCollaborationNotFound), errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: "Collaboration not found"}
	case errors.Is(err, models.ErrBudgetNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: "Campaign budget not found"}
	case errors.Is(err, models.ErrTerminalCollaboration):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeTerminal, Message: "Collaboration is terminal and can no longer change"}
	case errors.Is(err, models.ErrInvalidTransition):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeInvalidTransition, Message: "Operation is not allowed from the current status"}
	case errors.Is(err, models.ErrAlreadyInvited):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: "Creator already has an active collaboration for this campaign and platform"}
	case errors.Is(err, models.ErrMaxRevisionsReached):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeMaxRevisions, Message: "Maximum number of revisions reached for this artifact"}
	case errors.Is(err, models.ErrVideoNotApproved):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeInvalidTransition, Message: "Final link requires an approved video draft"}
	case errors.Is(err, models.ErrInsufficientBudget):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeInsufficientBudget, Message: "Insufficient available budget for this operation"}
	case errors.Is(err, models.ErrNegotiationRoundExceeded):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeNegotiationExceeded, Message: "Negotiation allows at most one counter-offer round"}
	case errors.Is(err, models.ErrNoOpenNegotiation):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: "No counter offer awaiting a response"}
	case errors.Is(err, models.ErrDuplicateRequest):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeDuplicateRequest, Message: "Request with this idempotency key is already being processed"}
	case errors.Is(err, models.ErrConflict):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: "Concurrent update conflict, retry the request"}
	case errors.Is(err, models.ErrUpstreamTimeout):
		statusCode = http.StatusGatewayTimeout
		errResp = models.ErrorResponse{Code: models.ErrCodeUpstreamTimeout, Message: "Upstream decision call timed out"}
	case errors.Is(err, models.ErrLedgerInvariantViolation):
		zap.L().Error("Ledger invariant violation surfaced to handler", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeLedgerInvariant, Message: "Budget ledger rejected the operation"}
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	case strings.Contains(err.Error(), "validation error"):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeValidation, Message: err.Error()}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    models.ErrCodeBadRequest,
		Message: message,
	})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name+" in path")
		return uuid.Nil, false
	}
	return id, true
}
