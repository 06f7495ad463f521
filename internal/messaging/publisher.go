package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"collab-server/shared/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publisherAppID = "collab-server"

// rabbitMQPublisher publishes to a single queue over its own channel.
// Implements interfaces.ReplacementPublisher and interfaces.UpdatePublisher.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQPublisher opens a channel and declares the queue. The queue is
// declared durable on both ends so service start order does not matter.
func NewRabbitMQPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*rabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("publisher: failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("publisher: failed to declare queue '%s': %w", queueName, err)
	}
	log := logger.Named("RabbitMQPublisher").With(zap.String("queue", queueName))
	log.Info("Queue declared")
	return &rabbitMQPublisher{channel: ch, queueName: queueName, logger: log}, nil
}

// PublishReplacementNeeded publishes a replacement request for the scheduler.
func (p *rabbitMQPublisher) PublishReplacementNeeded(ctx context.Context, event models.ReplacementNeeded) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize ReplacementNeeded for collaboration %s: %w", event.CollaborationID, err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		return fmt.Errorf("failed to publish ReplacementNeeded for collaboration %s: %w", event.CollaborationID, err)
	}
	return nil
}

// PublishCollaborationUpdate publishes a status change for UI consumers.
func (p *rabbitMQPublisher) PublishCollaborationUpdate(ctx context.Context, update models.CollaborationUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to serialize CollaborationUpdate for collaboration %s: %w", update.CollaborationID, err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		return fmt.Errorf("failed to publish CollaborationUpdate for collaboration %s: %w", update.CollaborationID, err)
	}
	return nil
}

// Close closes the underlying channel.
func (p *rabbitMQPublisher) Close() error {
	if p.channel == nil {
		return nil
	}
	return p.channel.Close()
}

func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	// Up to 3 attempts with a short backoff before giving up.
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key (queue name)
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        publisherAppID,
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("failed to publish to queue %s after retries: %w", p.queueName, err)
}
