package service

import (
	"context"
	"fmt"
	"time"

	"collab-server/internal/ledger"
	"collab-server/internal/negotiation"
	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NegotiationResult is what a negotiation operation returns to the caller:
// the recorded round plus the collaboration in its post-decision state.
type NegotiationResult struct {
	Round         *models.NegotiationRound `json:"negotiation"`
	Collaboration *models.Collaboration    `json:"application"`
}

// NegotiationService resolves creator rate demands against the campaign's
// policy thresholds. The decision is computed by the deterministic engine;
// the AI generator only phrases the explanation and is called before the
// transaction opens, never while locks are held.
type NegotiationService interface {
	Negotiate(ctx context.Context, id uuid.UUID, demand int64, justification string) (*NegotiationResult, error)
	RespondToCounter(ctx context.Context, id uuid.UUID, accept bool) (*NegotiationResult, error)
}

type negotiationServiceImpl struct {
	collabRepo       interfaces.CollaborationRepository
	budgetRepo       interfaces.CampaignBudgetRepository
	negotiationRepo  interfaces.NegotiationRepository
	ledger           *ledger.Ledger
	tx               Transactor
	generator        interfaces.TextGenerator
	generatorTimeout time.Duration
	replacementPub   interfaces.ReplacementPublisher
	updatePub        interfaces.UpdatePublisher
	logger           *zap.Logger
}

// NewNegotiationService creates a new instance of NegotiationService.
func NewNegotiationService(
	collabRepo interfaces.CollaborationRepository,
	budgetRepo interfaces.CampaignBudgetRepository,
	negotiationRepo interfaces.NegotiationRepository,
	l *ledger.Ledger,
	tx Transactor,
	generator interfaces.TextGenerator,
	generatorTimeout time.Duration,
	replacementPub interfaces.ReplacementPublisher,
	updatePub interfaces.UpdatePublisher,
	logger *zap.Logger,
) NegotiationService {
	return &negotiationServiceImpl{
		collabRepo:       collabRepo,
		budgetRepo:       budgetRepo,
		negotiationRepo:  negotiationRepo,
		ledger:           l,
		tx:               tx,
		generator:        generator,
		generatorTimeout: generatorTimeout,
		replacementPub:   replacementPub,
		updatePub:        updatePub,
		logger:           logger.Named("NegotiationService"),
	}
}

// Negotiate evaluates a creator's rate demand on a pending invitation.
// Accept re-books the committed budget at the demanded rate and moves the
// collaboration to creator_accepted; counter records the offer and waits for
// the creator's binary answer; reject terminates the collaboration.
func (s *negotiationServiceImpl) Negotiate(ctx context.Context, id uuid.UUID, demand int64, justification string) (*NegotiationResult, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()), zap.Int64("demand", demand))
	log.Info("Negotiate called")

	if demand <= 0 {
		return nil, fmt.Errorf("demand must be positive: %w", models.ErrInvalidInput)
	}

	// Pre-read for the decision and the reasoning text. The authoritative
	// re-validation happens under the row lock below.
	collab, err := s.collabRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if collab.Status != models.StatusPending {
		return nil, fmt.Errorf("negotiation requires a pending invitation, status is %s: %w", collab.Status, models.ErrInvalidTransition)
	}
	budget, err := s.budgetRepo.GetByCampaignID(ctx, nil, collab.CampaignID)
	if err != nil {
		return nil, err
	}

	policy := s.policyOf(budget)
	outcome, err := negotiation.Evaluate(collab.ProposedRate, demand, policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, models.ErrInvalidInput)
	}
	reasoning := s.generateReasoning(ctx, log, outcome, collab.ProposedRate, demand, justification)

	var (
		round       *models.NegotiationRound
		replacement *models.ReplacementNeeded
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.collabRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if collab.Status != models.StatusPending {
			return fmt.Errorf("negotiation requires a pending invitation, status is %s: %w", collab.Status, models.ErrInvalidTransition)
		}
		prior, err := s.negotiationRepo.CountRounds(ctx, tx, id)
		if err != nil {
			return err
		}
		if prior >= 1 {
			return models.ErrNegotiationRoundExceeded
		}

		now := time.Now().UTC()
		round = &models.NegotiationRound{
			ID:              uuid.New(),
			CollaborationID: id,
			RoundNumber:     prior + 1,
			CreatorDemand:   demand,
			Justification:   justification,
			Decision:        outcome.Decision,
			Reasoning:       reasoning,
			CreatedAt:       now,
		}
		if outcome.Decision == models.DecisionCounter {
			offer := outcome.CounterOffer
			round.CounterOffer = &offer
		}
		if err := s.negotiationRepo.AppendRound(ctx, tx, round); err != nil {
			return err
		}

		switch outcome.Decision {
		case models.DecisionAccept:
			return s.acceptAtRate(ctx, tx, collab, demand, now)
		case models.DecisionCounter:
			collab.Negotiation = &models.Negotiation{Status: models.NegotiationCounterOffered}
			collab.UpdatedAt = now
			return s.collabRepo.Update(ctx, tx, collab)
		default:
			replacement = s.replacementFor(collab, "rate demand above negotiable band", now)
			return s.applyReject(ctx, tx, collab, now)
		}
	})
	if err != nil {
		log.Warn("Negotiate failed", zap.Error(err))
		return nil, err
	}

	log.Info("Negotiation round recorded",
		zap.String("decision", string(outcome.Decision)),
		zap.Int64("counterOffer", outcome.CounterOffer))
	s.publishAftermath(ctx, collab, replacement)
	return &NegotiationResult{Round: round, Collaboration: collab}, nil
}

// RespondToCounter applies the creator's binary answer to an open counter
// offer. Accept locks the agreed rate and moves to creator_accepted; reject
// terminates the collaboration and frees its budget.
func (s *negotiationServiceImpl) RespondToCounter(ctx context.Context, id uuid.UUID, accept bool) (*NegotiationResult, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()), zap.Bool("accept", accept))
	log.Info("RespondToCounter called")

	var (
		collab      *models.Collaboration
		round       *models.NegotiationRound
		replacement *models.ReplacementNeeded
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.collabRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		rounds, err := s.negotiationRepo.ListRounds(ctx, tx, id)
		if err != nil {
			return err
		}
		if collab.Negotiation == nil {
			collab.Negotiation = &models.Negotiation{Status: models.NegotiationNone}
		}
		collab.Negotiation.Rounds = rounds
		offer, open := collab.Negotiation.OpenCounterOffer()
		if !open {
			return models.ErrNoOpenNegotiation
		}
		// The row may have terminated while the counter was open (brand
		// reject, creator withdraw). The answer must not resurrect it.
		target := models.StatusCreatorAccepted
		if !accept {
			target = models.StatusRejected
		}
		if err := checkTransition(collab.Status, target); err != nil {
			return err
		}
		round = &rounds[len(rounds)-1]

		now := time.Now().UTC()
		if accept {
			if err := s.acceptAtRate(ctx, tx, collab, offer, now); err != nil {
				return err
			}
			collab.Negotiation.Status = models.NegotiationCreatorAcceptedCounter
			return s.collabRepo.Update(ctx, tx, collab)
		}

		replacement = s.replacementFor(collab, "creator rejected counter offer", now)
		return s.applyReject(ctx, tx, collab, now)
	})
	if err != nil {
		log.Warn("RespondToCounter failed", zap.Error(err))
		return nil, err
	}

	log.Info("Counter offer resolved", zap.String("status", string(collab.Status)))
	s.publishAftermath(ctx, collab, replacement)
	return &NegotiationResult{Round: round, Collaboration: collab}, nil
}

// acceptAtRate moves the collaboration to creator_accepted at the agreed
// rate. A rate change re-books the committed reservation so the buckets
// track the agreed amount exactly.
func (s *negotiationServiceImpl) acceptAtRate(ctx context.Context, tx interfaces.DBTX, collab *models.Collaboration, rate int64, now time.Time) error {
	if rate != collab.ProposedRate {
		budget, err := s.budgetRepo.GetForUpdate(ctx, tx, collab.CampaignID)
		if err != nil {
			return err
		}
		newBuffer := budget.BufferFor(rate)
		if _, err := s.ledger.ReturnCommitted(ctx, tx, collab.CampaignID, collab.ID, collab.ProposedRate, collab.BufferAmount); err != nil {
			return err
		}
		if _, err := s.ledger.Reserve(ctx, tx, collab.CampaignID, collab.ID, rate, newBuffer); err != nil {
			return err
		}
		collab.ProposedRate = rate
		collab.BufferAmount = newBuffer
	}

	if err := s.collabRepo.UpdateStatusCAS(ctx, tx, collab.ID, collab.Status, models.StatusCreatorAccepted); err != nil {
		return err
	}
	collab.Status = models.StatusCreatorAccepted
	collab.RespondedAt = &now
	collab.UpdatedAt = now
	if collab.Negotiation == nil {
		collab.Negotiation = &models.Negotiation{}
	}
	collab.Negotiation.Status = models.NegotiationResolved
	return s.collabRepo.Update(ctx, tx, collab)
}

// replacementFor builds the replacement event for a rejection. The event is
// published only after the transaction commits.
func (s *negotiationServiceImpl) replacementFor(collab *models.Collaboration, reason string, now time.Time) *models.ReplacementNeeded {
	collab.RejectReason = reason
	if !collab.InvitationType.EligibleForReplacement() {
		return nil
	}
	return &models.ReplacementNeeded{
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

func (s *negotiationServiceImpl) applyReject(ctx context.Context, tx interfaces.DBTX, collab *models.Collaboration, now time.Time) error {
	if _, err := s.ledger.ReturnCommitted(ctx, tx, collab.CampaignID, collab.ID, collab.ProposedRate, collab.BufferAmount); err != nil {
		return err
	}
	if err := s.collabRepo.UpdateStatusCAS(ctx, tx, collab.ID, collab.Status, models.StatusRejected); err != nil {
		return err
	}
	collab.Status = models.StatusRejected
	collab.RespondedAt = &now
	collab.UpdatedAt = now
	if collab.Negotiation == nil {
		collab.Negotiation = &models.Negotiation{}
	}
	collab.Negotiation.Status = models.NegotiationResolved
	return s.collabRepo.Update(ctx, tx, collab)
}

// generateReasoning asks the text generator for a human-readable explanation
// with a hard deadline. Any failure falls back to the deterministic template;
// the decision itself is already made.
func (s *negotiationServiceImpl) generateReasoning(ctx context.Context, log *zap.Logger, out negotiation.Outcome, guideline, demand int64, justification string) string {
	genCtx, cancel := context.WithTimeout(ctx, s.generatorTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Write one short sentence explaining a brand's negotiation decision to a creator. Decision: %s. Guideline rate: %d minor units. Creator demand: %d minor units.",
		out.Decision, guideline, demand)
	if out.Decision == models.DecisionCounter {
		prompt += fmt.Sprintf(" Counter offer: %d minor units.", out.CounterOffer)
	}
	if justification != "" {
		prompt += " Creator's justification: " + justification
	}

	reasoning, err := s.generator.Generate(genCtx, prompt)
	if err != nil || reasoning == "" {
		if err != nil {
			log.Warn("Reasoning generation failed, using fallback", zap.Error(err))
		}
		return negotiation.FallbackReasoning(out, guideline, demand)
	}
	return reasoning
}

func (s *negotiationServiceImpl) policyOf(budget *models.CampaignBudget) negotiation.Policy {
	if budget.AcceptBelow <= 0 || budget.RejectAbove <= 0 {
		return negotiation.DefaultPolicy
	}
	return negotiation.Policy{AcceptBelow: budget.AcceptBelow, RejectAbove: budget.RejectAbove}
}

func (s *negotiationServiceImpl) publishAftermath(ctx context.Context, collab *models.Collaboration, replacement *models.ReplacementNeeded) {
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
	if replacement != nil {
		if err := s.replacementPub.PublishReplacementNeeded(ctx, *replacement); err != nil {
			s.logger.Error("Failed to publish ReplacementNeeded event",
				zap.String("collaborationID", collab.ID.String()),
				zap.Error(err))
		}
	}
}
