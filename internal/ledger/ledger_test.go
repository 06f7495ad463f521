package ledger_test

import (
	"context"
	"testing"

	"collab-server/internal/ledger"
	"collab-server/shared/interfaces/mocks"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBudget(campaignID uuid.UUID) *models.CampaignBudget {
	return &models.CampaignBudget{
		CampaignID:  campaignID,
		Currency:    "INR",
		TotalBudget: 10_000_00, // 10,000.00 in minor units
		BufferRate:  0.25,
	}
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()
	collabID := uuid.New()

	t.Run("moves base and buffer into committed buckets", func(t *testing.T) {
		repo := new(mocks.CampaignBudgetRepository)
		budget := newBudget(campaignID)
		repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()
		repo.On("UpdateBuckets", ctx, nil, mock.MatchedBy(func(b *models.CampaignBudget) bool {
			return b.CommittedBase == 4_000_00 && b.CommittedBuffer == 1_000_00
		})).Return(nil).Once()
		repo.On("AppendEntry", ctx, nil, mock.MatchedBy(func(e *models.LedgerEntry) bool {
			return e.CampaignID == campaignID && *e.CollaborationID == collabID && e.Reason == "invite_reserve"
		})).Return(nil).Twice()

		l := ledger.New(repo, zap.NewNop())
		updated, err := l.Reserve(ctx, nil, campaignID, collabID, 4_000_00, 1_000_00)
		require.NoError(t, err)
		assert.Equal(t, int64(5_000_00), updated.AvailableForInvites())
		repo.AssertExpectations(t)
	})

	t.Run("fails with InsufficientBudget when available is too small", func(t *testing.T) {
		repo := new(mocks.CampaignBudgetRepository)
		budget := newBudget(campaignID)
		budget.Released = 9_500_00
		repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()

		l := ledger.New(repo, zap.NewNop())
		_, err := l.Reserve(ctx, nil, campaignID, collabID, 4_000_00, 1_000_00)
		assert.ErrorIs(t, err, models.ErrInsufficientBudget)
		repo.AssertNotCalled(t, "UpdateBuckets", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		repo := new(mocks.CampaignBudgetRepository)
		repo.On("GetForUpdate", ctx, nil, campaignID).Return(newBudget(campaignID), nil).Once()

		l := ledger.New(repo, zap.NewNop())
		_, err := l.Reserve(ctx, nil, campaignID, collabID, -100, 0)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestWithhold(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()
	collabID := uuid.New()

	t.Run("moves committed into withheld", func(t *testing.T) {
		repo := new(mocks.CampaignBudgetRepository)
		budget := newBudget(campaignID)
		budget.CommittedBase = 4_000_00
		budget.CommittedBuffer = 1_000_00
		repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()
		repo.On("UpdateBuckets", ctx, nil, mock.MatchedBy(func(b *models.CampaignBudget) bool {
			return b.CommittedBase == 0 && b.CommittedBuffer == 0 &&
				b.WithheldBase == 4_000_00 && b.WithheldBuffer == 1_000_00
		})).Return(nil).Once()
		repo.On("AppendEntry", ctx, nil, mock.Anything).Return(nil).Twice()

		l := ledger.New(repo, zap.NewNop())
		updated, err := l.Withhold(ctx, nil, campaignID, collabID, 4_000_00, 1_000_00)
		require.NoError(t, err)
		// The transfer between buckets must not change availability.
		assert.Equal(t, int64(5_000_00), updated.AvailableForInvites())
	})

	t.Run("fails when committed bucket does not hold the amount", func(t *testing.T) {
		repo := new(mocks.CampaignBudgetRepository)
		budget := newBudget(campaignID)
		budget.CommittedBase = 1_000_00
		repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()

		l := ledger.New(repo, zap.NewNop())
		_, err := l.Withhold(ctx, nil, campaignID, collabID, 4_000_00, 0)
		assert.ErrorIs(t, err, models.ErrInsufficientBudget)
	})
}

func TestReturnWithheld(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()
	collabID := uuid.New()

	// Rejecting a brand_confirmed collaboration with 4,000.00 base and
	// 1,000.00 buffer withheld returns the full 5,000.00 to available.
	repo := new(mocks.CampaignBudgetRepository)
	budget := newBudget(campaignID)
	budget.WithheldBase = 4_000_00
	budget.WithheldBuffer = 1_000_00
	before := budget.AvailableForInvites()

	repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()
	repo.On("UpdateBuckets", ctx, nil, mock.Anything).Return(nil).Once()
	repo.On("AppendEntry", ctx, nil, mock.Anything).Return(nil).Twice()

	l := ledger.New(repo, zap.NewNop())
	updated, err := l.ReturnWithheld(ctx, nil, campaignID, collabID, 4_000_00, 1_000_00)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.WithheldBase)
	assert.Equal(t, int64(0), updated.WithheldBuffer)
	assert.Equal(t, before+5_000_00, updated.AvailableForInvites())
	assert.NoError(t, updated.CheckConservation())
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()
	collabID := uuid.New()

	repo := new(mocks.CampaignBudgetRepository)
	budget := newBudget(campaignID)
	budget.WithheldBase = 4_000_00
	budget.WithheldBuffer = 1_000_00

	repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()
	repo.On("UpdateBuckets", ctx, nil, mock.Anything).Return(nil).Once()
	repo.On("AppendEntry", ctx, nil, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.ToBucket == models.BucketReleased && e.Reason == "completion_release"
	})).Return(nil).Twice()

	l := ledger.New(repo, zap.NewNop())
	updated, err := l.Release(ctx, nil, campaignID, collabID, 4_000_00, 1_000_00)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_00), updated.Released)
	assert.Equal(t, int64(0), updated.WithheldBase)
	assert.NoError(t, updated.CheckConservation())
}

func TestConservationViolationAborts(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()
	collabID := uuid.New()

	// A corrupted row (bucket sum beyond total) must abort the transition
	// with ErrLedgerInvariantViolation before any write happens.
	repo := new(mocks.CampaignBudgetRepository)
	budget := newBudget(campaignID)
	budget.CommittedBase = 11_000_00 // exceeds total on its own
	repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()

	l := ledger.New(repo, zap.NewNop())
	_, err := l.Withhold(ctx, nil, campaignID, collabID, 1_000_00, 0)
	assert.ErrorIs(t, err, models.ErrLedgerInvariantViolation)
	repo.AssertNotCalled(t, "UpdateBuckets", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "AppendEntry", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromoteGeneric(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	repo := new(mocks.CampaignBudgetRepository)
	budget := newBudget(campaignID)
	budget.CommittedBase = 2_000_00
	repo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil).Once()
	repo.On("UpdateBuckets", ctx, nil, mock.Anything).Return(nil).Once()
	repo.On("AppendEntry", ctx, nil, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.CollaborationID == nil && e.Reason == "manual_correction"
	})).Return(nil).Once()

	l := ledger.New(repo, zap.NewNop())
	_, err := l.Promote(ctx, nil, campaignID, models.BucketCommittedBase, models.BucketWithheldBase, 500_00, "manual_correction")
	require.NoError(t, err)

	t.Run("unknown bucket name is invalid input", func(t *testing.T) {
		repo := new(mocks.CampaignBudgetRepository)
		repo.On("GetForUpdate", ctx, nil, campaignID).Return(newBudget(campaignID), nil).Once()
		l := ledger.New(repo, zap.NewNop())
		_, err := l.Promote(ctx, nil, campaignID, "no_such_bucket", models.BucketReleased, 1, "x")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}
