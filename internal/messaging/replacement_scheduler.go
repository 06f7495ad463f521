package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"collab-server/internal/service"
	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	schedulerConsumerTag = "collab-replacement-scheduler"
	reconnectDelay       = 5 * time.Second
)

// ReplacementScheduler consumes ReplacementNeeded events and issues a
// replacement invitation from the candidate pool, constrained by the budget
// freed by the rejection. Runs in-process; the queue is durable so events
// survive a restart.
type ReplacementScheduler struct {
	conn         *amqp.Connection
	queueName    string
	batchSize    int
	collabSvc    service.CollaborationService
	budgetRepo   interfaces.CampaignBudgetRepository
	pool         interfaces.CandidatePoolProvider
	logger       *zap.Logger
	shutdownChan chan struct{}
}

// NewReplacementScheduler creates a new instance of ReplacementScheduler.
func NewReplacementScheduler(
	conn *amqp.Connection,
	queueName string,
	batchSize int,
	collabSvc service.CollaborationService,
	budgetRepo interfaces.CampaignBudgetRepository,
	pool interfaces.CandidatePoolProvider,
	logger *zap.Logger,
) *ReplacementScheduler {
	return &ReplacementScheduler{
		conn:         conn,
		queueName:    queueName,
		batchSize:    batchSize,
		collabSvc:    collabSvc,
		budgetRepo:   budgetRepo,
		pool:         pool,
		logger:       logger.Named("ReplacementScheduler"),
		shutdownChan: make(chan struct{}),
	}
}

// StartConsuming runs the consume loop in a goroutine, reconnecting on
// channel failures until Stop is called.
func (s *ReplacementScheduler) StartConsuming() {
	go func() {
		for {
			select {
			case <-s.shutdownChan:
				s.logger.Info("Stopping replacement scheduler...")
				return
			default:
				if err := s.consumeMessages(); err != nil {
					s.logger.Error("Replacement scheduler consume loop failed, reconnecting",
						zap.Duration("delay", reconnectDelay),
						zap.Error(err))
					time.Sleep(reconnectDelay)
				}
			}
		}
	}()
	s.logger.Info("Replacement scheduler started", zap.String("queue", s.queueName))
}

// Stop shuts down the consume loop.
func (s *ReplacementScheduler) Stop() {
	close(s.shutdownChan)
}

func (s *ReplacementScheduler) consumeMessages() error {
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(s.queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", s.queueName, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		s.queueName,          // queue
		schedulerConsumerTag, // consumer
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-s.shutdownChan:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			s.handleDelivery(msg)
		}
	}
}

func (s *ReplacementScheduler) handleDelivery(msg amqp.Delivery) {
	var event models.ReplacementNeeded
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		s.logger.Error("Failed to decode ReplacementNeeded, dropping message", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	log := s.logger.With(
		zap.String("campaignID", event.CampaignID.String()),
		zap.String("collaborationID", event.CollaborationID.String()))

	requeue, err := s.processEvent(context.Background(), event, log)
	if err != nil {
		log.Error("Failed to process replacement event", zap.Bool("requeue", requeue), zap.Error(err))
		_ = msg.Nack(false, requeue)
		return
	}
	_ = msg.Ack(false)
}

// processEvent picks the first affordable candidate and invites it. Returns
// requeue=true only for transient failures worth retrying.
func (s *ReplacementScheduler) processEvent(ctx context.Context, event models.ReplacementNeeded, log *zap.Logger) (bool, error) {
	if !event.InvitationType.EligibleForReplacement() {
		log.Warn("Replacement event for a manual invitation, ignoring")
		return false, nil
	}

	budget, err := s.budgetRepo.GetByCampaignID(ctx, nil, event.CampaignID)
	if err != nil {
		return !errors.Is(err, models.ErrBudgetNotFound), fmt.Errorf("failed to load budget: %w", err)
	}

	maxRate := affordableRate(budget.AvailableForInvites(), budget.BufferRate)
	if event.PriorRate > 0 && event.PriorRate < maxRate {
		maxRate = event.PriorRate
	}
	if maxRate <= 0 {
		log.Info("No budget left for a replacement invite")
		return false, nil
	}

	candidates, err := s.pool.FindCandidates(ctx, event.CampaignID, event.CreatorCategory, event.TargetPlatform, maxRate, s.batchSize)
	if err != nil {
		return true, fmt.Errorf("candidate pool lookup failed: %w", err)
	}
	if len(candidates) == 0 {
		log.Info("No replacement candidates available",
			zap.String("category", event.CreatorCategory),
			zap.Int64("maxRate", maxRate))
		return false, nil
	}

	for _, candidate := range candidates {
		if candidate.CreatorID == event.CreatorID {
			continue
		}
		rate := candidate.GuidelineRate
		if rate <= 0 || rate > maxRate {
			rate = maxRate
		}

		collab, err := s.collabSvc.Invite(ctx, service.InviteParams{
			CampaignID:      event.CampaignID,
			CreatorID:       candidate.CreatorID,
			CreatorCategory: candidate.Category,
			TargetPlatform:  event.TargetPlatform,
			Placement:       event.Placement,
			ProposedRate:    rate,
			InvitationType:  models.InvitationAutoReinvite,
		})
		switch {
		case err == nil:
			log.Info("Replacement invitation issued",
				zap.String("newCollaborationID", collab.ID.String()),
				zap.String("creatorID", candidate.CreatorID.String()),
				zap.Int64("rate", rate))
			return false, nil
		case errors.Is(err, models.ErrAlreadyInvited):
			continue
		case errors.Is(err, models.ErrInsufficientBudget):
			log.Info("Budget ran out while inviting replacements")
			return false, nil
		default:
			return true, fmt.Errorf("replacement invite failed: %w", err)
		}
	}

	log.Info("All replacement candidates were already invited")
	return false, nil
}

// affordableRate is the highest base rate whose base+buffer still fits into
// the available budget.
func affordableRate(available int64, bufferRate float64) int64 {
	if available <= 0 {
		return 0
	}
	if bufferRate <= 0 {
		return available
	}
	return int64(float64(available) / (1 + bufferRate))
}
