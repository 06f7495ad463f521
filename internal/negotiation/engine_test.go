package negotiation_test

import (
	"testing"

	"collab-server/internal/negotiation"
	"collab-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	policy := negotiation.Policy{AcceptBelow: 1.0, RejectAbove: 1.5}

	t.Run("demand below guideline is accepted", func(t *testing.T) {
		out, err := negotiation.Evaluate(1000000, 900000, policy)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionAccept, out.Decision)
		assert.Zero(t, out.CounterOffer)
	})

	t.Run("demand equal to guideline is accepted", func(t *testing.T) {
		out, err := negotiation.Evaluate(1000000, 1000000, policy)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionAccept, out.Decision)
	})

	t.Run("demand inside band gets countered with geometric mean", func(t *testing.T) {
		// Guideline 10,000.00 and demand 10,500.00: geometric mean is about
		// 10,246.95, strictly between the two.
		out, err := negotiation.Evaluate(1000000, 1050000, policy)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionCounter, out.Decision)
		assert.Greater(t, out.CounterOffer, int64(1000000))
		assert.Less(t, out.CounterOffer, int64(1050000))
		assert.Equal(t, int64(1024695), out.CounterOffer)
	})

	t.Run("counter offer never leaves the guideline-demand interval", func(t *testing.T) {
		out, err := negotiation.Evaluate(100, 149, policy)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionCounter, out.Decision)
		assert.GreaterOrEqual(t, out.CounterOffer, int64(100))
		assert.LessOrEqual(t, out.CounterOffer, int64(149))
	})

	t.Run("demand above reject band is rejected", func(t *testing.T) {
		out, err := negotiation.Evaluate(1000000, 3000000, policy)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionReject, out.Decision)
	})

	t.Run("demand exactly at reject bound is still countered", func(t *testing.T) {
		out, err := negotiation.Evaluate(1000000, 1500000, policy)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionCounter, out.Decision)
	})

	t.Run("non-positive rates are invalid", func(t *testing.T) {
		_, err := negotiation.Evaluate(0, 1000, policy)
		assert.Error(t, err)
		_, err = negotiation.Evaluate(1000, -5, policy)
		assert.Error(t, err)
	})

	t.Run("inverted policy thresholds are invalid", func(t *testing.T) {
		_, err := negotiation.Evaluate(1000, 1200, negotiation.Policy{AcceptBelow: 2.0, RejectAbove: 1.0})
		assert.Error(t, err)
	})
}

func TestFallbackReasoning(t *testing.T) {
	out := negotiation.Outcome{Decision: models.DecisionCounter, CounterOffer: 1024695}
	text := negotiation.FallbackReasoning(out, 1000000, 1050000)
	assert.Contains(t, text, "1024695")

	out = negotiation.Outcome{Decision: models.DecisionAccept}
	assert.NotEmpty(t, negotiation.FallbackReasoning(out, 1000000, 900000))

	out = negotiation.Outcome{Decision: models.DecisionReject}
	assert.NotEmpty(t, negotiation.FallbackReasoning(out, 1000000, 3000000))
}
