package service

import (
	"context"
	"fmt"
	"time"

	"collab-server/internal/ledger"
	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollaborationList groups a campaign's collaborations into the views the UI
// renders. Membership is computed purely from status.
type CollaborationList struct {
	All                 []models.Collaboration `json:"all"`
	PendingConfirmation []models.Collaboration `json:"pending_confirmation"`
	PendingReview       []models.Collaboration `json:"pending_review"`
	Published           []models.Collaboration `json:"published"`
}

// InviteParams describes a new invitation.
type InviteParams struct {
	CampaignID      uuid.UUID
	CreatorID       uuid.UUID
	CreatorCategory string
	TargetPlatform  string
	Placement       models.Placement
	// ProposedRate in minor units; 0 falls back to the campaign guideline
	// rate.
	ProposedRate   int64
	InvitationType models.InvitationType
}

// CollaborationService owns the collaboration lifecycle outside the content
// delivery stages: invitations, confirmation, terminal rejection paths, and
// the read views.
type CollaborationService interface {
	Invite(ctx context.Context, params InviteParams) (*models.Collaboration, error)
	Confirm(ctx context.Context, campaignID, id uuid.UUID) (*models.Collaboration, error)
	Reject(ctx context.Context, campaignID, id uuid.UUID, reason string) (*models.Collaboration, error)
	Withdraw(ctx context.Context, id uuid.UUID, reason string) (*models.Collaboration, error)
	GetCollaboration(ctx context.Context, id uuid.UUID) (*models.Collaboration, error)
	ListCollaborations(ctx context.Context, campaignID uuid.UUID) (*CollaborationList, error)
	GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error)
}

type collaborationServiceImpl struct {
	collabRepo      interfaces.CollaborationRepository
	budgetRepo      interfaces.CampaignBudgetRepository
	negotiationRepo interfaces.NegotiationRepository
	ledger          *ledger.Ledger
	tx              Transactor
	replacementPub  interfaces.ReplacementPublisher
	updatePub       interfaces.UpdatePublisher
	logger          *zap.Logger
}

// NewCollaborationService creates a new instance of CollaborationService.
func NewCollaborationService(
	collabRepo interfaces.CollaborationRepository,
	budgetRepo interfaces.CampaignBudgetRepository,
	negotiationRepo interfaces.NegotiationRepository,
	l *ledger.Ledger,
	tx Transactor,
	replacementPub interfaces.ReplacementPublisher,
	updatePub interfaces.UpdatePublisher,
	logger *zap.Logger,
) CollaborationService {
	return &collaborationServiceImpl{
		collabRepo:      collabRepo,
		budgetRepo:      budgetRepo,
		negotiationRepo: negotiationRepo,
		ledger:          l,
		tx:              tx,
		replacementPub:  replacementPub,
		updatePub:       updatePub,
		logger:          logger.Named("CollaborationService"),
	}
}

// Invite creates a pending collaboration and reserves base+buffer from the
// campaign's available budget in one transaction.
func (s *collaborationServiceImpl) Invite(ctx context.Context, params InviteParams) (*models.Collaboration, error) {
	log := s.logger.With(
		zap.String("campaignID", params.CampaignID.String()),
		zap.String("creatorID", params.CreatorID.String()),
		zap.String("platform", params.TargetPlatform))
	log.Info("Invite called")

	if params.TargetPlatform == "" {
		return nil, fmt.Errorf("target platform is required: %w", models.ErrInvalidInput)
	}
	if params.InvitationType == "" {
		params.InvitationType = models.InvitationManual
	}

	var collab *models.Collaboration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		// Budget row lock first: it serializes all mutations of this
		// campaign.
		budget, err := s.budgetRepo.GetForUpdate(ctx, tx, params.CampaignID)
		if err != nil {
			return err
		}

		rate := params.ProposedRate
		if rate == 0 {
			rate = budget.GuidelineRate
		}
		if rate <= 0 {
			return fmt.Errorf("proposed rate must be positive: %w", models.ErrInvalidInput)
		}
		buffer := budget.BufferFor(rate)

		active, err := s.collabRepo.HasActive(ctx, tx, params.CampaignID, params.CreatorID, params.TargetPlatform)
		if err != nil {
			return err
		}
		if active {
			return models.ErrAlreadyInvited
		}

		now := time.Now().UTC()
		collab = &models.Collaboration{
			ID:              uuid.New(),
			CampaignID:      params.CampaignID,
			CreatorID:       params.CreatorID,
			CreatorCategory: params.CreatorCategory,
			TargetPlatform:  params.TargetPlatform,
			Placement:       params.Placement,
			Status:          models.StatusPending,
			InvitationType:  params.InvitationType,
			ProposedRate:    rate,
			BufferAmount:    buffer,
			Content:         models.NewContentState(),
			InvitedAt:       now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if _, err := s.ledger.Reserve(ctx, tx, params.CampaignID, collab.ID, rate, buffer); err != nil {
			return err
		}
		return s.collabRepo.Create(ctx, tx, collab)
	})
	if err != nil {
		log.Warn("Invite failed", zap.Error(err))
		return nil, err
	}

	log.Info("Invitation created", zap.String("collaborationID", collab.ID.String()))
	s.publishUpdate(ctx, collab)
	return collab, nil
}

// Confirm moves a collaboration to brand_confirmed and its funds from
// committed to withheld. Confirming an already-confirmed collaboration is a
// no-op returning the current state; duplicate UI clicks must not fail.
func (s *collaborationServiceImpl) Confirm(ctx context.Context, campaignID, id uuid.UUID) (*models.Collaboration, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()))
	log.Info("Confirm called")

	var (
		collab *models.Collaboration
		noop   bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.lockOwned(ctx, tx, campaignID, id)
		if err != nil {
			return err
		}

		switch collab.Status {
		case models.StatusPending, models.StatusCreatorAccepted:
			// fallthrough to the actual transition below
		case models.StatusBrandConfirmed, models.StatusContentSubmitted,
			models.StatusContentApproved, models.StatusFinalLinkSubmitted:
			noop = true
			return nil
		default:
			return checkTransition(collab.Status, models.StatusBrandConfirmed)
		}

		if _, err := s.ledger.Withhold(ctx, tx, collab.CampaignID, collab.ID, collab.ProposedRate, collab.BufferAmount); err != nil {
			return err
		}
		if err := s.collabRepo.UpdateStatusCAS(ctx, tx, collab.ID, collab.Status, models.StatusBrandConfirmed); err != nil {
			return err
		}
		now := time.Now().UTC()
		collab.Status = models.StatusBrandConfirmed
		collab.ConfirmedAt = &now
		collab.UpdatedAt = now
		return s.collabRepo.Update(ctx, tx, collab)
	})
	if err != nil {
		log.Warn("Confirm failed", zap.Error(err))
		return nil, err
	}
	if noop {
		log.Info("Confirm is a no-op, collaboration already confirmed", zap.String("status", string(collab.Status)))
		return collab, nil
	}

	log.Info("Collaboration confirmed")
	s.publishUpdate(ctx, collab)
	return collab, nil
}

// Reject terminates a collaboration from the brand side, returns its funds
// to availableForInvites, and emits ReplacementNeeded for auto invitations.
func (s *collaborationServiceImpl) Reject(ctx context.Context, campaignID, id uuid.UUID, reason string) (*models.Collaboration, error) {
	return s.terminate(ctx, campaignID, id, models.StatusBrandRejected, reason, true)
}

// Withdraw terminates a collaboration from the creator side. The funds
// return path matches Reject, but no replacement event fires: the creator
// chose to leave and the brand decides the follow-up.
func (s *collaborationServiceImpl) Withdraw(ctx context.Context, id uuid.UUID, reason string) (*models.Collaboration, error) {
	return s.terminate(ctx, uuid.Nil, id, models.StatusWithdrawn, reason, false)
}

func (s *collaborationServiceImpl) terminate(ctx context.Context, campaignID, id uuid.UUID, terminal models.CollaborationStatus, reason string, withReplacement bool) (*models.Collaboration, error) {
	log := s.logger.With(
		zap.String("collaborationID", id.String()),
		zap.String("terminalStatus", string(terminal)))
	log.Info("Terminating collaboration")

	var (
		collab      *models.Collaboration
		replacement *models.ReplacementNeeded
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.lockOwned(ctx, tx, campaignID, id)
		if err != nil {
			return err
		}
		if err := checkTransition(collab.Status, terminal); err != nil {
			return err
		}

		if err := s.returnFunds(ctx, tx, collab); err != nil {
			return err
		}
		if err := s.collabRepo.UpdateStatusCAS(ctx, tx, collab.ID, collab.Status, terminal); err != nil {
			return err
		}

		now := time.Now().UTC()
		collab.Status = terminal
		collab.RejectReason = reason
		if collab.RespondedAt == nil {
			collab.RespondedAt = &now
		}
		collab.UpdatedAt = now
		if err := s.collabRepo.Update(ctx, tx, collab); err != nil {
			return err
		}

		if withReplacement && collab.InvitationType.EligibleForReplacement() {
			replacement = &models.ReplacementNeeded{
				CampaignID:      collab.CampaignID,
				CollaborationID: collab.ID,
				CreatorID:       collab.CreatorID,
				CreatorCategory: collab.CreatorCategory,
				TargetPlatform:  collab.TargetPlatform,
				Placement:       collab.Placement,
				PriorRate:       collab.ProposedRate,
				InvitationType:  collab.InvitationType,
				Reason:          reason,
				RejectedAt:      now,
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("Termination failed", zap.Error(err))
		return nil, err
	}

	log.Info("Collaboration terminated", zap.String("reason", reason))
	s.publishUpdate(ctx, collab)
	if replacement != nil {
		if err := s.replacementPub.PublishReplacementNeeded(ctx, *replacement); err != nil {
			// The terminated state is committed; a lost event only delays the
			// replacement until a manual re-invite.
			log.Error("Failed to publish ReplacementNeeded event", zap.Error(err))
		}
	}
	return collab, nil
}

// returnFunds gives a collaboration's reserved money back to the available
// pool, choosing the source buckets by lifecycle stage.
func (s *collaborationServiceImpl) returnFunds(ctx context.Context, tx interfaces.DBTX, collab *models.Collaboration) error {
	switch collab.Status {
	case models.StatusPending, models.StatusCreatorAccepted:
		_, err := s.ledger.ReturnCommitted(ctx, tx, collab.CampaignID, collab.ID, collab.ProposedRate, collab.BufferAmount)
		return err
	case models.StatusBrandConfirmed, models.StatusContentSubmitted,
		models.StatusContentApproved, models.StatusFinalLinkSubmitted:
		_, err := s.ledger.ReturnWithheld(ctx, tx, collab.CampaignID, collab.ID, collab.ProposedRate, collab.BufferAmount)
		return err
	default:
		return fmt.Errorf("no funds to return from status %s: %w", collab.Status, models.ErrInvalidTransition)
	}
}

// lockOwned loads a collaboration with a row lock and verifies campaign
// ownership when a campaign scope is given.
func (s *collaborationServiceImpl) lockOwned(ctx context.Context, tx interfaces.DBTX, campaignID, id uuid.UUID) (*models.Collaboration, error) {
	collab, err := s.collabRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if campaignID != uuid.Nil && collab.CampaignID != campaignID {
		return nil, models.ErrCollaborationNotFound
	}
	return collab, nil
}

// GetCollaboration returns one collaboration with its negotiation rounds.
func (s *collaborationServiceImpl) GetCollaboration(ctx context.Context, id uuid.UUID) (*models.Collaboration, error) {
	collab, err := s.collabRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	rounds, err := s.negotiationRepo.ListRounds(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if len(rounds) > 0 {
		if collab.Negotiation == nil {
			collab.Negotiation = &models.Negotiation{Status: models.NegotiationResolved}
		}
		collab.Negotiation.Rounds = rounds
	}
	return collab, nil
}

// ListCollaborations computes the grouped campaign views.
func (s *collaborationServiceImpl) ListCollaborations(ctx context.Context, campaignID uuid.UUID) (*CollaborationList, error) {
	all, err := s.collabRepo.ListByCampaign(ctx, nil, campaignID)
	if err != nil {
		return nil, err
	}

	list := &CollaborationList{
		All:                 all,
		PendingConfirmation: []models.Collaboration{},
		PendingReview:       []models.Collaboration{},
		Published:           []models.Collaboration{},
	}
	for _, c := range all {
		switch c.Status {
		case models.StatusPending, models.StatusCreatorAccepted:
			list.PendingConfirmation = append(list.PendingConfirmation, c)
		case models.StatusContentSubmitted:
			list.PendingReview = append(list.PendingReview, c)
		case models.StatusFinalLinkSubmitted, models.StatusCompleted:
			list.Published = append(list.Published, c)
		}
	}
	return list, nil
}

// GetBudget returns the campaign budget snapshot.
func (s *collaborationServiceImpl) GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	return s.budgetRepo.GetByCampaignID(ctx, nil, campaignID)
}

func (s *collaborationServiceImpl) publishUpdate(ctx context.Context, collab *models.Collaboration) {
	update := models.CollaborationUpdate{
		CampaignID:      collab.CampaignID,
		CollaborationID: collab.ID,
		Status:          collab.Status,
		UpdatedAt:       collab.UpdatedAt,
	}
	if err := s.updatePub.PublishCollaborationUpdate(ctx, update); err != nil {
		s.logger.Error("Failed to publish collaboration update",
			zap.String("collaborationID", collab.ID.String()),
			zap.Error(err))
	}
}
