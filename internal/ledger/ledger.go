package ledger

import (
	"context"
	"fmt"
	"time"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// invariantViolations counts conservation breaches. Any increment here means
// a bug, not a user error; alerting fires on this metric.
var invariantViolations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "collab_ledger_invariant_violations_total",
	Help: "Number of detected budget conservation invariant violations.",
})

// Ledger owns every bucket mutation of campaign budgets. All methods must be
// called inside a transaction; each locks the campaign's budget row, which is
// also the per-campaign serialization point.
type Ledger struct {
	budgets interfaces.CampaignBudgetRepository
	logger  *zap.Logger
}

// New creates a Ledger.
func New(budgets interfaces.CampaignBudgetRepository, logger *zap.Logger) *Ledger {
	return &Ledger{
		budgets: budgets,
		logger:  logger.Named("Ledger"),
	}
}

// move is a single bucket transfer. An empty bucket name means
// availableForInvites (derived, so only the named side is written).
type move struct {
	from   models.BudgetBucket
	to     models.BudgetBucket
	amount int64
}

// Reserve takes base+buffer out of availableForInvites into the committed
// buckets when an invitation is issued.
func (l *Ledger) Reserve(ctx context.Context, q interfaces.DBTX, campaignID uuid.UUID, collabID uuid.UUID, base, buffer int64) (*models.CampaignBudget, error) {
	return l.apply(ctx, q, campaignID, &collabID, "invite_reserve", []move{
		{to: models.BucketCommittedBase, amount: base},
		{to: models.BucketCommittedBuffer, amount: buffer},
	})
}

// Withhold moves a confirmed collaboration's funds from committed to
// withheld.
func (l *Ledger) Withhold(ctx context.Context, q interfaces.DBTX, campaignID uuid.UUID, collabID uuid.UUID, base, buffer int64) (*models.CampaignBudget, error) {
	return l.apply(ctx, q, campaignID, &collabID, "confirm_withhold", []move{
		{from: models.BucketCommittedBase, to: models.BucketWithheldBase, amount: base},
		{from: models.BucketCommittedBuffer, to: models.BucketWithheldBuffer, amount: buffer},
	})
}

// ReturnCommitted gives a pre-confirmation collaboration's funds back to
// availableForInvites.
func (l *Ledger) ReturnCommitted(ctx context.Context, q interfaces.DBTX, campaignID uuid.UUID, collabID uuid.UUID, base, buffer int64) (*models.CampaignBudget, error) {
	return l.apply(ctx, q, campaignID, &collabID, "reject_return", []move{
		{from: models.BucketCommittedBase, amount: base},
		{from: models.BucketCommittedBuffer, amount: buffer},
	})
}

// ReturnWithheld gives a confirmed collaboration's funds back to
// availableForInvites.
func (l *Ledger) ReturnWithheld(ctx context.Context, q interfaces.DBTX, campaignID uuid.UUID, collabID uuid.UUID, base, buffer int64) (*models.CampaignBudget, error) {
	return l.apply(ctx, q, campaignID, &collabID, "reject_return", []move{
		{from: models.BucketWithheldBase, amount: base},
		{from: models.BucketWithheldBuffer, amount: buffer},
	})
}

// Release moves a completed collaboration's withheld funds into released.
func (l *Ledger) Release(ctx context.Context, q interfaces.DBTX, campaignID uuid.UUID, collabID uuid.UUID, base, buffer int64) (*models.CampaignBudget, error) {
	return l.apply(ctx, q, campaignID, &collabID, "completion_release", []move{
		{from: models.BucketWithheldBase, to: models.BucketReleased, amount: base},
		{from: models.BucketWithheldBuffer, to: models.BucketReleased, amount: buffer},
	})
}

// Promote is the generic single-bucket transfer for callers outside the
// standard lifecycle (manual corrections, future flows).
func (l *Ledger) Promote(ctx context.Context, q interfaces.DBTX, campaignID uuid.UUID, from, to models.BudgetBucket, amount int64, reason string) (*models.CampaignBudget, error) {
	return l.apply(ctx, q, campaignID, nil, reason, []move{{from: from, to: to, amount: amount}})
}

func (l *Ledger) apply(ctx context.Context, q interfaces.DBTX, campaignID uuid.UUID, collabID *uuid.UUID, reason string, moves []move) (*models.CampaignBudget, error) {
	budget, err := l.budgets.GetForUpdate(ctx, q, campaignID)
	if err != nil {
		return nil, fmt.Errorf("ledger: locking budget for campaign %s: %w", campaignID, err)
	}

	for _, m := range moves {
		if m.amount < 0 {
			return nil, fmt.Errorf("ledger: negative move amount %d: %w", m.amount, models.ErrInvalidInput)
		}
		if m.amount == 0 {
			continue
		}
		if m.from == "" {
			// Funding comes out of the derived available pool.
			if budget.AvailableForInvites() < m.amount {
				return nil, models.ErrInsufficientBudget
			}
		} else {
			src, err := bucketOf(budget, m.from)
			if err != nil {
				return nil, err
			}
			if *src < m.amount {
				return nil, models.ErrInsufficientBudget
			}
			*src -= m.amount
		}
		if m.to != "" {
			dst, err := bucketOf(budget, m.to)
			if err != nil {
				return nil, err
			}
			*dst += m.amount
		}
	}

	if err := budget.CheckConservation(); err != nil {
		invariantViolations.Inc()
		l.logger.Error("Budget conservation invariant violated, aborting transition",
			zap.String("campaignID", campaignID.String()),
			zap.String("reason", reason),
			zap.Int64("totalBudget", budget.TotalBudget),
			zap.Int64("committedBase", budget.CommittedBase),
			zap.Int64("committedBuffer", budget.CommittedBuffer),
			zap.Int64("withheldBase", budget.WithheldBase),
			zap.Int64("withheldBuffer", budget.WithheldBuffer),
			zap.Int64("released", budget.Released))
		return nil, models.ErrLedgerInvariantViolation
	}

	if err := l.budgets.UpdateBuckets(ctx, q, budget); err != nil {
		return nil, fmt.Errorf("ledger: updating buckets for campaign %s: %w", campaignID, err)
	}

	now := time.Now().UTC()
	for _, m := range moves {
		if m.amount == 0 {
			continue
		}
		entry := &models.LedgerEntry{
			ID:              uuid.New(),
			CampaignID:      campaignID,
			CollaborationID: collabID,
			FromBucket:      m.from,
			ToBucket:        m.to,
			Amount:          m.amount,
			Reason:          reason,
			CreatedAt:       now,
		}
		if err := l.budgets.AppendEntry(ctx, q, entry); err != nil {
			return nil, fmt.Errorf("ledger: appending audit entry: %w", err)
		}
	}

	l.logger.Debug("Ledger moves applied",
		zap.String("campaignID", campaignID.String()),
		zap.String("reason", reason),
		zap.Int("moves", len(moves)),
		zap.Int64("availableForInvites", budget.AvailableForInvites()))
	return budget, nil
}

func bucketOf(b *models.CampaignBudget, name models.BudgetBucket) (*int64, error) {
	switch name {
	case models.BucketCommittedBase:
		return &b.CommittedBase, nil
	case models.BucketCommittedBuffer:
		return &b.CommittedBuffer, nil
	case models.BucketWithheldBase:
		return &b.WithheldBase, nil
	case models.BucketWithheldBuffer:
		return &b.WithheldBuffer, nil
	case models.BucketReleased:
		return &b.Released, nil
	default:
		return nil, fmt.Errorf("ledger: unknown bucket %q: %w", name, models.ErrInvalidInput)
	}
}
