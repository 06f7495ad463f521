package handler

import (
	"collab-server/internal/config"
	"collab-server/internal/service"
	"collab-server/shared/middleware"
	"collab-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CollabHandler exposes the collaboration lifecycle over HTTP. Route groups
// split by role: brands manage campaigns and review content, creators submit
// content and answer negotiations.
type CollabHandler struct {
	collabService      service.CollaborationService
	contentService     service.ContentService
	negotiationService service.NegotiationService
	cfg                *config.Config
	logger             *zap.Logger
}

func NewCollabHandler(
	collabService service.CollaborationService,
	contentService service.ContentService,
	negotiationService service.NegotiationService,
	cfg *config.Config,
	logger *zap.Logger,
) *CollabHandler {
	return &CollabHandler{
		collabService:      collabService,
		contentService:     contentService,
		negotiationService: negotiationService,
		cfg:                cfg,
		logger:             logger.Named("CollabHandler"),
	}
}

func (h *CollabHandler) RegisterRoutes(router *gin.Engine) {
	brandAuth := middleware.JWTAuthMiddleware(h.cfg.JWTSecret, h.logger, models.RoleBrand, models.RoleAdmin)
	creatorAuth := middleware.JWTAuthMiddleware(h.cfg.JWTSecret, h.logger, models.RoleCreator, models.RoleAdmin)
	anyAuth := middleware.JWTAuthMiddleware(h.cfg.JWTSecret, h.logger)

	campaignGroup := router.Group("/api/campaigns/:campaign_id", brandAuth)
	{
		campaignGroup.GET("/collaborations", h.listCollaborations)
		campaignGroup.GET("/budget", h.getBudget)
		campaignGroup.POST("/collaborations", h.invite)
		campaignGroup.POST("/collaborations/:id/confirm", h.confirm)
		campaignGroup.POST("/collaborations/:id/reject", h.reject)
	}

	contentGroup := router.Group("/api/content/:id", brandAuth)
	{
		contentGroup.POST("/script/status", h.reviewScript)
		contentGroup.POST("/video/feedback", h.requestVideoChanges)
		contentGroup.POST("/video/approve", h.approveVideo)
	}

	collabGroup := router.Group("/api/collaborations/:id")
	{
		collabGroup.GET("", anyAuth, h.getCollaboration)
		collabGroup.POST("/script/submit", creatorAuth, h.submitScript)
		collabGroup.POST("/script/assist", creatorAuth, h.scriptAssist)
		collabGroup.POST("/video/submit", creatorAuth, h.submitVideoDraft)
		collabGroup.POST("/final/submit", creatorAuth, h.submitFinalLink)
		collabGroup.POST("/withdraw", creatorAuth, h.withdraw)
	}

	negotiationGroup := router.Group("/api", creatorAuth)
	{
		negotiationGroup.POST("/applications/:id/negotiate", h.negotiate)
		negotiationGroup.POST("/negotiations/:id/respond", h.respondToCounter)
	}
}
