package service_test

import (
	"context"
	"testing"

	"collab-server/internal/ledger"
	"collab-server/internal/service"
	"collab-server/shared/interfaces/mocks"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collabServiceFixture struct {
	collabRepo      *mocks.CollaborationRepository
	budgetRepo      *mocks.CampaignBudgetRepository
	negotiationRepo *mocks.NegotiationRepository
	replacementPub  *mocks.ReplacementPublisher
	updatePub       *mocks.UpdatePublisher
	svc             service.CollaborationService
}

func newCollabServiceFixture() *collabServiceFixture {
	f := &collabServiceFixture{
		collabRepo:      new(mocks.CollaborationRepository),
		budgetRepo:      new(mocks.CampaignBudgetRepository),
		negotiationRepo: new(mocks.NegotiationRepository),
		replacementPub:  new(mocks.ReplacementPublisher),
		updatePub:       new(mocks.UpdatePublisher),
	}
	logger := zap.NewNop()
	f.svc = service.NewCollaborationService(
		f.collabRepo,
		f.budgetRepo,
		f.negotiationRepo,
		ledger.New(f.budgetRepo, logger),
		passthroughTransactor{},
		f.replacementPub,
		f.updatePub,
		logger,
	)
	return f
}

func (f *collabServiceFixture) allowLedgerWrites() {
	f.budgetRepo.On("UpdateBuckets", mock.Anything, nil, mock.Anything).Return(nil)
	f.budgetRepo.On("AppendEntry", mock.Anything, nil, mock.Anything).Return(nil)
}

func (f *collabServiceFixture) allowUpdates() {
	f.updatePub.On("PublishCollaborationUpdate", mock.Anything, mock.Anything).Return(nil)
}

func TestInvite(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()
	creatorID := uuid.New()

	params := service.InviteParams{
		CampaignID:     campaignID,
		CreatorID:      creatorID,
		TargetPlatform: "youtube",
		ProposedRate:   10_000_00,
		InvitationType: models.InvitationAuto,
	}

	t.Run("creates a pending collaboration and reserves base plus buffer", func(t *testing.T) {
		f := newCollabServiceFixture()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(testBudget(campaignID), nil)
		f.collabRepo.On("HasActive", ctx, nil, campaignID, creatorID, "youtube").Return(false, nil).Once()
		f.collabRepo.On("Create", ctx, nil, mock.MatchedBy(func(c *models.Collaboration) bool {
			return c.Status == models.StatusPending && c.ProposedRate == 10_000_00 && c.BufferAmount == 2_500_00
		})).Return(nil).Once()
		f.allowLedgerWrites()
		f.allowUpdates()

		collab, err := f.svc.Invite(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, collab.Status)
		assert.Equal(t, int64(2_500_00), collab.BufferAmount)
		assert.Equal(t, models.ArtifactPending, collab.Content.Script.Status)
		f.collabRepo.AssertExpectations(t)
	})

	t.Run("falls back to the campaign guideline rate", func(t *testing.T) {
		f := newCollabServiceFixture()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(testBudget(campaignID), nil)
		f.collabRepo.On("HasActive", ctx, nil, campaignID, creatorID, "youtube").Return(false, nil).Once()
		f.collabRepo.On("Create", ctx, nil, mock.Anything).Return(nil).Once()
		f.allowLedgerWrites()
		f.allowUpdates()

		p := params
		p.ProposedRate = 0
		collab, err := f.svc.Invite(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(10_000_00), collab.ProposedRate)
	})

	t.Run("refuses a duplicate active invitation", func(t *testing.T) {
		f := newCollabServiceFixture()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(testBudget(campaignID), nil)
		f.collabRepo.On("HasActive", ctx, nil, campaignID, creatorID, "youtube").Return(true, nil).Once()

		_, err := f.svc.Invite(ctx, params)
		assert.ErrorIs(t, err, models.ErrAlreadyInvited)
		f.collabRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refuses when available budget cannot cover base plus buffer", func(t *testing.T) {
		f := newCollabServiceFixture()
		budget := testBudget(campaignID)
		budget.Released = 90_000_00
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil)
		f.collabRepo.On("HasActive", ctx, nil, campaignID, creatorID, "youtube").Return(false, nil).Once()

		_, err := f.svc.Invite(ctx, params)
		assert.ErrorIs(t, err, models.ErrInsufficientBudget)
		f.collabRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("withholds budget and confirms from pending", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusPending)
		budget := testBudget(campaignID)
		budget.CommittedBase = 10_000_00
		budget.CommittedBuffer = 2_500_00

		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil)
		f.collabRepo.On("UpdateStatusCAS", ctx, nil, collab.ID, models.StatusPending, models.StatusBrandConfirmed).Return(nil).Once()
		f.collabRepo.On("Update", ctx, nil, collab).Return(nil).Once()
		f.allowLedgerWrites()
		f.allowUpdates()

		got, err := f.svc.Confirm(ctx, campaignID, collab.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusBrandConfirmed, got.Status)
		require.NotNil(t, got.ConfirmedAt)
		assert.Equal(t, int64(10_000_00), budget.WithheldBase)
		assert.Equal(t, int64(2_500_00), budget.WithheldBuffer)
		f.collabRepo.AssertExpectations(t)
	})

	t.Run("second confirm is a no-op returning current state", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusBrandConfirmed)
		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()

		got, err := f.svc.Confirm(ctx, campaignID, collab.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusBrandConfirmed, got.Status)
		f.collabRepo.AssertNotCalled(t, "UpdateStatusCAS", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.budgetRepo.AssertNotCalled(t, "UpdateBuckets", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refuses a terminal collaboration", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusRejected)
		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.Confirm(ctx, campaignID, collab.ID)
		assert.ErrorIs(t, err, models.ErrTerminalCollaboration)
	})

	t.Run("refuses a collaboration from a different campaign", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(uuid.New(), models.StatusPending)
		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.Confirm(ctx, campaignID, collab.ID)
		assert.ErrorIs(t, err, models.ErrCollaborationNotFound)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("returns committed funds and emits replacement before confirmation", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusPending)
		budget := testBudget(campaignID)
		budget.CommittedBase = 10_000_00
		budget.CommittedBuffer = 2_500_00

		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil)
		f.collabRepo.On("UpdateStatusCAS", ctx, nil, collab.ID, models.StatusPending, models.StatusBrandRejected).Return(nil).Once()
		f.collabRepo.On("Update", ctx, nil, collab).Return(nil).Once()
		f.replacementPub.On("PublishReplacementNeeded", ctx, mock.MatchedBy(func(e models.ReplacementNeeded) bool {
			return e.CollaborationID == collab.ID && e.PriorRate == 10_000_00
		})).Return(nil).Once()
		f.allowLedgerWrites()
		f.allowUpdates()

		got, err := f.svc.Reject(ctx, campaignID, collab.ID, "off brand")
		require.NoError(t, err)
		assert.Equal(t, models.StatusBrandRejected, got.Status)
		assert.Equal(t, "off brand", got.RejectReason)
		assert.Equal(t, int64(0), budget.CommittedBase)
		assert.Equal(t, int64(100_000_00), budget.AvailableForInvites())
		f.replacementPub.AssertExpectations(t)
	})

	t.Run("returns withheld funds after confirmation", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusBrandConfirmed)
		budget := testBudget(campaignID)
		budget.WithheldBase = 10_000_00
		budget.WithheldBuffer = 2_500_00

		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil)
		f.collabRepo.On("UpdateStatusCAS", ctx, nil, collab.ID, models.StatusBrandConfirmed, models.StatusBrandRejected).Return(nil).Once()
		f.collabRepo.On("Update", ctx, nil, collab).Return(nil).Once()
		f.replacementPub.On("PublishReplacementNeeded", ctx, mock.Anything).Return(nil).Once()
		f.allowLedgerWrites()
		f.allowUpdates()

		_, err := f.svc.Reject(ctx, campaignID, collab.ID, "missed deadline")
		require.NoError(t, err)
		assert.Equal(t, int64(0), budget.WithheldBase)
		assert.Equal(t, int64(100_000_00), budget.AvailableForInvites())
	})

	t.Run("manual invitations never emit a replacement event", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusPending)
		collab.InvitationType = models.InvitationManual
		budget := testBudget(campaignID)
		budget.CommittedBase = 10_000_00
		budget.CommittedBuffer = 2_500_00

		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil)
		f.collabRepo.On("UpdateStatusCAS", ctx, nil, collab.ID, models.StatusPending, models.StatusBrandRejected).Return(nil).Once()
		f.collabRepo.On("Update", ctx, nil, collab).Return(nil).Once()
		f.allowLedgerWrites()
		f.allowUpdates()

		_, err := f.svc.Reject(ctx, campaignID, collab.ID, "not a fit")
		require.NoError(t, err)
		f.replacementPub.AssertNotCalled(t, "PublishReplacementNeeded", mock.Anything, mock.Anything)
	})

	t.Run("refuses a terminal collaboration", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusCompleted)
		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.Reject(ctx, campaignID, collab.ID, "too late")
		assert.ErrorIs(t, err, models.ErrTerminalCollaboration)
	})

	t.Run("a second reject returns no funds twice", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusBrandRejected)
		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.Reject(ctx, campaignID, collab.ID, "duplicate click")
		assert.ErrorIs(t, err, models.ErrTerminalCollaboration)
		f.budgetRepo.AssertNotCalled(t, "UpdateBuckets", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("creator withdrawal returns funds without a replacement event", func(t *testing.T) {
		f := newCollabServiceFixture()
		collab := testCollab(campaignID, models.StatusCreatorAccepted)
		budget := testBudget(campaignID)
		budget.CommittedBase = 10_000_00
		budget.CommittedBuffer = 2_500_00

		f.collabRepo.On("GetByIDForUpdate", ctx, nil, collab.ID).Return(collab, nil).Once()
		f.budgetRepo.On("GetForUpdate", ctx, nil, campaignID).Return(budget, nil)
		f.collabRepo.On("UpdateStatusCAS", ctx, nil, collab.ID, models.StatusCreatorAccepted, models.StatusWithdrawn).Return(nil).Once()
		f.collabRepo.On("Update", ctx, nil, collab).Return(nil).Once()
		f.allowLedgerWrites()
		f.allowUpdates()

		got, err := f.svc.Withdraw(ctx, collab.ID, "schedule conflict")
		require.NoError(t, err)
		assert.Equal(t, models.StatusWithdrawn, got.Status)
		assert.Equal(t, int64(100_000_00), budget.AvailableForInvites())
		f.replacementPub.AssertNotCalled(t, "PublishReplacementNeeded", mock.Anything, mock.Anything)
	})
}

func TestListCollaborations(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	f := newCollabServiceFixture()
	all := []models.Collaboration{
		*testCollab(campaignID, models.StatusPending),
		*testCollab(campaignID, models.StatusCreatorAccepted),
		*testCollab(campaignID, models.StatusContentSubmitted),
		*testCollab(campaignID, models.StatusCompleted),
		*testCollab(campaignID, models.StatusBrandRejected),
	}
	f.collabRepo.On("ListByCampaign", ctx, nil, campaignID).Return(all, nil).Once()

	list, err := f.svc.ListCollaborations(ctx, campaignID)
	require.NoError(t, err)
	assert.Len(t, list.All, 5)
	assert.Len(t, list.PendingConfirmation, 2)
	assert.Len(t, list.PendingReview, 1)
	assert.Len(t, list.Published, 1)
}
