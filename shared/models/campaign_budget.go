package models

import (
	"time"

	"github.com/google/uuid"
)

// BudgetBucket names one of the disjoint fund buckets of a campaign budget.
// availableForInvites is not listed: it is computed, never written.
type BudgetBucket string

const (
	BucketCommittedBase   BudgetBucket = "committed_base"
	BucketCommittedBuffer BudgetBucket = "committed_buffer"
	BucketWithheldBase    BudgetBucket = "withheld_base"
	BucketWithheldBuffer  BudgetBucket = "withheld_buffer"
	BucketReleased        BudgetBucket = "released"
)

// CampaignBudget is the per-campaign fund ledger state. All amounts are in
// integer minor currency units to keep the conservation invariant exact.
type CampaignBudget struct {
	CampaignID      uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Currency        string    `json:"currency" db:"currency"`
	TotalBudget     int64     `json:"total_budget" db:"total_budget"`
	CommittedBase   int64     `json:"committed_base" db:"committed_base"`
	CommittedBuffer int64     `json:"committed_buffer" db:"committed_buffer"`
	WithheldBase    int64     `json:"withheld_base" db:"withheld_base"`
	WithheldBuffer  int64     `json:"withheld_buffer" db:"withheld_buffer"`
	Released        int64     `json:"released" db:"released"`

	// Campaign-level policy knobs, product-configured.
	BufferRate    float64 `json:"buffer_rate" db:"buffer_rate"` // e.g. 0.25 reserves 25% on top of base
	GuidelineRate int64   `json:"guideline_rate" db:"guideline_rate"`
	AcceptBelow   float64 `json:"accept_below" db:"accept_below"` // accept demand <= guideline * AcceptBelow
	RejectAbove   float64 `json:"reject_above" db:"reject_above"` // reject demand > guideline * RejectAbove

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AvailableForInvites is derived, never stored: total minus every other
// bucket. Deriving it makes conservation structurally impossible to break by
// a missed write, only by a bucket going negative.
func (b *CampaignBudget) AvailableForInvites() int64 {
	return b.TotalBudget - b.CommittedBase - b.CommittedBuffer -
		b.WithheldBase - b.WithheldBuffer - b.Released
}

// CheckConservation verifies the conservation law: every bucket non-negative
// and the bucket sum never exceeding the total. Returns
// ErrLedgerInvariantViolation on breach.
func (b *CampaignBudget) CheckConservation() error {
	if b.CommittedBase < 0 || b.CommittedBuffer < 0 ||
		b.WithheldBase < 0 || b.WithheldBuffer < 0 || b.Released < 0 {
		return ErrLedgerInvariantViolation
	}
	if b.AvailableForInvites() < 0 {
		return ErrLedgerInvariantViolation
	}
	return nil
}

// BufferFor computes the buffer amount reserved alongside a base rate,
// rounded half-up in minor units.
func (b *CampaignBudget) BufferFor(baseRate int64) int64 {
	return int64(float64(baseRate)*b.BufferRate + 0.5)
}

// LedgerEntry is one audited bucket movement. Entries are append-only; the
// running budget state must always be reproducible by replaying them.
type LedgerEntry struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	CampaignID      uuid.UUID    `json:"campaign_id" db:"campaign_id"`
	CollaborationID *uuid.UUID   `json:"collaboration_id,omitempty" db:"collaboration_id"`
	FromBucket      BudgetBucket `json:"from_bucket,omitempty" db:"from_bucket"` // empty = availableForInvites
	ToBucket        BudgetBucket `json:"to_bucket,omitempty" db:"to_bucket"`     // empty = availableForInvites
	Amount          int64        `json:"amount" db:"amount"`
	Reason          string       `json:"reason" db:"reason"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
}
