package negotiation

import (
	"fmt"
	"math"

	"collab-server/shared/models"
)

// Policy holds the campaign-level negotiation thresholds, relative to the
// guideline rate. acceptBelow <= rejectAbove; the band between them produces
// a counter offer.
type Policy struct {
	AcceptBelow float64 // accept when demand <= guideline * AcceptBelow
	RejectAbove float64 // reject when demand > guideline * RejectAbove
}

// DefaultPolicy matches the product defaults used when a campaign has no
// explicit configuration.
var DefaultPolicy = Policy{AcceptBelow: 1.0, RejectAbove: 1.5}

// Validate checks the policy for sane threshold ordering.
func (p Policy) Validate() error {
	if p.AcceptBelow <= 0 || p.RejectAbove <= 0 {
		return fmt.Errorf("negotiation policy thresholds must be positive: %+v", p)
	}
	if p.AcceptBelow > p.RejectAbove {
		return fmt.Errorf("negotiation policy acceptBelow %.2f exceeds rejectAbove %.2f", p.AcceptBelow, p.RejectAbove)
	}
	return nil
}

// Outcome is the engine's verdict on a single creator demand.
type Outcome struct {
	Decision     models.NegotiationDecision
	CounterOffer int64 // set only when Decision == counter
}

// Evaluate decides whether a creator demand is accepted, countered, or
// rejected. The counter offer is the geometric mean of guideline and demand,
// clamped into [guideline, demand], so it always lands strictly inside the
// negotiable band.
func Evaluate(guidelineRate, creatorDemand int64, p Policy) (Outcome, error) {
	if guidelineRate <= 0 {
		return Outcome{}, fmt.Errorf("guideline rate must be positive, got %d", guidelineRate)
	}
	if creatorDemand <= 0 {
		return Outcome{}, fmt.Errorf("creator demand must be positive, got %d", creatorDemand)
	}
	if err := p.Validate(); err != nil {
		return Outcome{}, err
	}

	g := float64(guidelineRate)
	d := float64(creatorDemand)

	switch {
	case d <= g*p.AcceptBelow:
		return Outcome{Decision: models.DecisionAccept}, nil
	case d <= g*p.RejectAbove:
		return Outcome{
			Decision:     models.DecisionCounter,
			CounterOffer: counterOffer(guidelineRate, creatorDemand),
		}, nil
	default:
		return Outcome{Decision: models.DecisionReject}, nil
	}
}

// counterOffer computes clamp(geometricMean(g, d), g, d) in minor units.
func counterOffer(guideline, demand int64) int64 {
	mean := int64(math.Round(math.Sqrt(float64(guideline) * float64(demand))))
	lo, hi := guideline, demand
	if lo > hi {
		lo, hi = hi, lo
	}
	if mean < lo {
		return lo
	}
	if mean > hi {
		return hi
	}
	return mean
}

// FallbackReasoning produces a deterministic reasoning string when the
// upstream text generator is unavailable. The decision never depends on the
// generator, so negotiation must keep working without it.
func FallbackReasoning(out Outcome, guidelineRate, creatorDemand int64) string {
	switch out.Decision {
	case models.DecisionAccept:
		return fmt.Sprintf("Demand %d is within the acceptable band of guideline rate %d.", creatorDemand, guidelineRate)
	case models.DecisionCounter:
		return fmt.Sprintf("Demand %d exceeds guideline rate %d; countering at %d.", creatorDemand, guidelineRate, out.CounterOffer)
	default:
		return fmt.Sprintf("Demand %d is too far above guideline rate %d to negotiate.", creatorDemand, guidelineRate)
	}
}
