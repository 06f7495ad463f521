package models

import (
	"time"

	"github.com/google/uuid"
)

// NegotiationStatus tracks the rate negotiation attached to a collaboration.
type NegotiationStatus string

const (
	NegotiationNone                   NegotiationStatus = "none"
	NegotiationPending                NegotiationStatus = "pending"
	NegotiationCounterOffered         NegotiationStatus = "counter_offered"
	NegotiationCreatorAcceptedCounter NegotiationStatus = "creator_accepted_counter"
	NegotiationResolved               NegotiationStatus = "resolved"
)

// NegotiationDecision is the engine's verdict on a creator demand.
type NegotiationDecision string

const (
	DecisionAccept  NegotiationDecision = "accept"
	DecisionCounter NegotiationDecision = "counter"
	DecisionReject  NegotiationDecision = "reject"
)

// NegotiationRound is one demand/decision exchange. Rounds are append-only
// for audit; a campaign allows at most one counter round per collaboration.
type NegotiationRound struct {
	ID              uuid.UUID           `json:"id" db:"id"`
	CollaborationID uuid.UUID           `json:"collaboration_id" db:"collaboration_id"`
	RoundNumber     int                 `json:"round_number" db:"round_number"`
	CreatorDemand   int64               `json:"creator_demand" db:"creator_demand"`
	Justification   string              `json:"justification,omitempty" db:"justification"`
	Decision        NegotiationDecision `json:"decision" db:"decision"`
	CounterOffer    *int64              `json:"counter_offer,omitempty" db:"counter_offer"`
	Reasoning       string              `json:"reasoning,omitempty" db:"reasoning"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
}

// Negotiation is the negotiation sub-record of a collaboration.
type Negotiation struct {
	Status NegotiationStatus  `json:"status"`
	Rounds []NegotiationRound `json:"rounds,omitempty"`
}

// OpenCounterOffer returns the pending counter offer amount when the
// negotiation is waiting for the creator's binary answer.
func (n *Negotiation) OpenCounterOffer() (int64, bool) {
	if n == nil || n.Status != NegotiationCounterOffered || len(n.Rounds) == 0 {
		return 0, false
	}
	last := n.Rounds[len(n.Rounds)-1]
	if last.Decision != DecisionCounter || last.CounterOffer == nil {
		return 0, false
	}
	return *last.CounterOffer, true
}
