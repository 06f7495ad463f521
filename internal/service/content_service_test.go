package service_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

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

type contentServiceFixture struct {
	collabRepo  *mocks.CollaborationRepository
	budgetRepo  *mocks.CampaignBudgetRepository
	idempotency *mocks.IdempotencyStore
	generator   *mocks.TextGenerator
	updatePub   *mocks.UpdatePublisher
	svc         service.ContentService
}

func newContentServiceFixture() *contentServiceFixture {
	f := &contentServiceFixture{
		collabRepo:  new(mocks.CollaborationRepository),
		budgetRepo:  new(mocks.CampaignBudgetRepository),
		idempotency: new(mocks.IdempotencyStore),
		generator:   new(mocks.TextGenerator),
		updatePub:   new(mocks.UpdatePublisher),
	}
	logger := zap.NewNop()
	f.svc = service.NewContentService(
		f.collabRepo,
		ledger.New(f.budgetRepo, logger),
		passthroughTransactor{},
		f.idempotency,
		time.Hour,
		f.generator,
		time.Second,
		f.updatePub,
		logger,
	)
	return f
}

func (f *contentServiceFixture) expectWrite(collab *models.Collaboration) {
	f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()
	f.collabRepo.On("Update", mock.Anything, nil, collab).Return(nil).Once()
	f.updatePub.On("PublishCollaborationUpdate", mock.Anything, mock.Anything).Return(nil)
}

func TestSubmitScript(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("first submission moves the collaboration to content_submitted", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusBrandConfirmed)
		f.expectWrite(collab)
		f.collabRepo.On("UpdateStatusCAS", mock.Anything, nil, collab.ID, models.StatusBrandConfirmed, models.StatusContentSubmitted).Return(nil).Once()

		got, err := f.svc.SubmitScript(ctx, collab.ID, "", service.ScriptSubmission{Text: "opening hook, product demo, CTA"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusContentSubmitted, got.Status)
		assert.Equal(t, models.ArtifactSubmitted, got.Content.Script.Status)
		assert.Equal(t, 1, got.Content.Script.CurrentVersion)
		require.Len(t, got.Content.Script.Versions, 1)
		f.collabRepo.AssertExpectations(t)
	})

	t.Run("resubmission after changes_requested keeps the overall status", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{
			Status:         models.ArtifactChangesRequested,
			CurrentVersion: 1,
			Versions:       []models.ScriptVersion{{Version: 1, Text: "v1"}},
		}
		f.expectWrite(collab)

		got, err := f.svc.SubmitScript(ctx, collab.ID, "", service.ScriptSubmission{Text: "v2"})
		require.NoError(t, err)
		assert.Equal(t, 2, got.Content.Script.CurrentVersion)
		f.collabRepo.AssertNotCalled(t, "UpdateStatusCAS", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fifth submission fails with MaxRevisionsReached", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{
			Status:         models.ArtifactChangesRequested,
			CurrentVersion: models.MaxArtifactVersions,
		}
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitScript(ctx, collab.ID, "", service.ScriptSubmission{Text: "v5"})
		assert.ErrorIs(t, err, models.ErrMaxRevisionsReached)
	})

	t.Run("refuses submission while a version awaits review", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{Status: models.ArtifactSubmitted, CurrentVersion: 1}
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitScript(ctx, collab.ID, "", service.ScriptSubmission{Text: "v2"})
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("requires text or file URL", func(t *testing.T) {
		f := newContentServiceFixture()
		_, err := f.svc.SubmitScript(ctx, uuid.New(), "", service.ScriptSubmission{})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("refuses a completed collaboration", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusCompleted)
		collab.Content.Script = models.ScriptState{Status: models.ArtifactApproved, CurrentVersion: 2}
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitScript(ctx, collab.ID, "", service.ScriptSubmission{Text: "late edit"})
		assert.ErrorIs(t, err, models.ErrTerminalCollaboration)
		assert.Equal(t, 2, collab.Content.Script.CurrentVersion)
	})
}

func TestSubmitScriptIdempotency(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()
	sub := service.ScriptSubmission{Text: "draft"}

	t.Run("replay of a finished request returns the stored result", func(t *testing.T) {
		f := newContentServiceFixture()
		stored := testCollab(campaignID, models.StatusContentSubmitted)
		payload, err := json.Marshal(stored)
		require.NoError(t, err)
		f.idempotency.On("Begin", mock.Anything, "key-1", time.Hour).Return(false, payload, nil).Once()

		got, err := f.svc.SubmitScript(ctx, stored.ID, "key-1", sub)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
		f.collabRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replay racing the in-flight original is refused", func(t *testing.T) {
		f := newContentServiceFixture()
		f.idempotency.On("Begin", mock.Anything, "key-2", time.Hour).Return(false, []byte(nil), nil).Once()

		_, err := f.svc.SubmitScript(ctx, uuid.New(), "key-2", sub)
		assert.ErrorIs(t, err, models.ErrDuplicateRequest)
	})

	t.Run("failed submission releases the key for a retry", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{
			Status:         models.ArtifactChangesRequested,
			CurrentVersion: models.MaxArtifactVersions,
		}
		f.idempotency.On("Begin", mock.Anything, "key-3", time.Hour).Return(true, []byte(nil), nil).Once()
		f.idempotency.On("Release", mock.Anything, "key-3").Return(nil).Once()
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitScript(ctx, collab.ID, "key-3", sub)
		assert.ErrorIs(t, err, models.ErrMaxRevisionsReached)
		f.idempotency.AssertExpectations(t)
	})

	t.Run("successful submission stores the result", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		f.idempotency.On("Begin", mock.Anything, "key-4", time.Hour).Return(true, []byte(nil), nil).Once()
		f.idempotency.On("Complete", mock.Anything, "key-4", mock.Anything, time.Hour).Return(nil).Once()
		f.expectWrite(collab)

		_, err := f.svc.SubmitScript(ctx, collab.ID, "key-4", sub)
		require.NoError(t, err)
		f.idempotency.AssertExpectations(t)
	})
}

func TestReviewScript(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("approve unlocks the video stage", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{
			Status:         models.ArtifactSubmitted,
			CurrentVersion: 1,
			Versions:       []models.ScriptVersion{{Version: 1, Text: "v1"}},
		}
		f.expectWrite(collab)

		got, err := f.svc.ReviewScript(ctx, campaignID, collab.ID, true, "")
		require.NoError(t, err)
		assert.Equal(t, models.ArtifactApproved, got.Content.Script.Status)
	})

	t.Run("changes_requested records feedback on the reviewed version", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{
			Status:         models.ArtifactSubmitted,
			CurrentVersion: 2,
			Versions:       []models.ScriptVersion{{Version: 1}, {Version: 2}},
		}
		f.expectWrite(collab)

		got, err := f.svc.ReviewScript(ctx, campaignID, collab.ID, false, "tighten the intro")
		require.NoError(t, err)
		assert.Equal(t, models.ArtifactChangesRequested, got.Content.Script.Status)
		assert.Equal(t, "tighten the intro", got.Content.Script.Versions[1].Feedback)
	})

	t.Run("changes_requested on the forced-final version is refused", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{
			Status:         models.ArtifactSubmitted,
			CurrentVersion: models.MaxArtifactVersions,
		}
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.ReviewScript(ctx, campaignID, collab.ID, false, "one more pass")
		assert.ErrorIs(t, err, models.ErrMaxRevisionsReached)
	})

	t.Run("approve on the forced-final version still works", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script = models.ScriptState{
			Status:         models.ArtifactSubmitted,
			CurrentVersion: models.MaxArtifactVersions,
		}
		f.expectWrite(collab)

		got, err := f.svc.ReviewScript(ctx, campaignID, collab.ID, true, "")
		require.NoError(t, err)
		assert.Equal(t, models.ArtifactApproved, got.Content.Script.Status)
	})
}

func TestSubmitVideoDraft(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("requires an approved script first", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script.Status = models.ArtifactSubmitted
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitVideoDraft(ctx, collab.ID, "", "https://cdn.example.com/v1.mp4")
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("appends a draft after script approval", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script.Status = models.ArtifactApproved
		f.expectWrite(collab)

		got, err := f.svc.SubmitVideoDraft(ctx, collab.ID, "", "https://cdn.example.com/v1.mp4")
		require.NoError(t, err)
		assert.Equal(t, models.ArtifactSubmitted, got.Content.Video.Status)
		require.Len(t, got.Content.Video.Drafts, 1)
		assert.Equal(t, 1, got.Content.Video.Drafts[0].Version)
	})

	t.Run("fifth draft fails with MaxRevisionsReached", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script.Status = models.ArtifactApproved
		collab.Content.Video = models.VideoState{
			Status: models.ArtifactChangesRequested,
			Drafts: []models.VideoDraft{{Version: 1}, {Version: 2}, {Version: 3}, {Version: 4}},
		}
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitVideoDraft(ctx, collab.ID, "", "https://cdn.example.com/v5.mp4")
		assert.ErrorIs(t, err, models.ErrMaxRevisionsReached)
	})
}

func TestVideoReview(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("feedback on the forced-final draft is refused", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script.Status = models.ArtifactApproved
		collab.Content.Video = models.VideoState{
			Status: models.ArtifactSubmitted,
			Drafts: []models.VideoDraft{{Version: 1}, {Version: 2}, {Version: 3}, {Version: 4}},
		}
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.RequestVideoChanges(ctx, campaignID, collab.ID, 4, "reshoot ending")
		assert.ErrorIs(t, err, models.ErrMaxRevisionsReached)
	})

	t.Run("feedback reopens the video stage", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script.Status = models.ArtifactApproved
		collab.Content.Video = models.VideoState{
			Status: models.ArtifactSubmitted,
			Drafts: []models.VideoDraft{{Version: 1, URL: "https://cdn.example.com/v1.mp4"}},
		}
		f.expectWrite(collab)

		got, err := f.svc.RequestVideoChanges(ctx, campaignID, collab.ID, 1, "reshoot ending")
		require.NoError(t, err)
		assert.Equal(t, models.ArtifactChangesRequested, got.Content.Video.Status)
		assert.Equal(t, "reshoot ending", got.Content.Video.Drafts[0].Feedback)
	})

	t.Run("approve moves the collaboration to content_approved", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script.Status = models.ArtifactApproved
		collab.Content.Video = models.VideoState{
			Status: models.ArtifactSubmitted,
			Drafts: []models.VideoDraft{{Version: 1}},
		}
		f.expectWrite(collab)
		f.collabRepo.On("UpdateStatusCAS", mock.Anything, nil, collab.ID, models.StatusContentSubmitted, models.StatusContentApproved).Return(nil).Once()

		got, err := f.svc.ApproveVideo(ctx, campaignID, collab.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, models.StatusContentApproved, got.Status)
		assert.True(t, got.Content.Video.Drafts[0].Approved)
	})

	t.Run("the forced-final draft can still be approved", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		collab.Content.Script.Status = models.ArtifactApproved
		collab.Content.Video = models.VideoState{
			Status: models.ArtifactSubmitted,
			Drafts: []models.VideoDraft{{Version: 1}, {Version: 2}, {Version: 3}, {Version: 4}},
		}
		f.expectWrite(collab)
		f.collabRepo.On("UpdateStatusCAS", mock.Anything, nil, collab.ID, models.StatusContentSubmitted, models.StatusContentApproved).Return(nil).Once()

		got, err := f.svc.ApproveVideo(ctx, campaignID, collab.ID, 4)
		require.NoError(t, err)
		assert.Equal(t, models.StatusContentApproved, got.Status)
	})
}

func TestSubmitFinalLink(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("completes the collaboration and releases the withheld budget", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentApproved)
		collab.Content.Script.Status = models.ArtifactApproved
		collab.Content.Video = models.VideoState{
			Status: models.ArtifactApproved,
			Drafts: []models.VideoDraft{{Version: 1, Approved: true}},
		}
		budget := testBudget(campaignID)
		budget.WithheldBase = 10_000_00
		budget.WithheldBuffer = 2_500_00

		f.expectWrite(collab)
		f.budgetRepo.On("GetForUpdate", mock.Anything, nil, campaignID).Return(budget, nil)
		f.budgetRepo.On("UpdateBuckets", mock.Anything, nil, mock.Anything).Return(nil)
		f.budgetRepo.On("AppendEntry", mock.Anything, nil, mock.Anything).Return(nil)
		f.collabRepo.On("UpdateStatusCAS", mock.Anything, nil, collab.ID, models.StatusContentApproved, models.StatusCompleted).Return(nil).Once()

		got, err := f.svc.SubmitFinalLink(ctx, collab.ID, "https://youtube.com/watch?v=abc")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, models.ArtifactSubmitted, got.Content.FinalLink.Status)
		assert.Equal(t, int64(12_500_00), budget.Released)
		assert.Equal(t, int64(0), budget.WithheldBase)
		assert.NoError(t, budget.CheckConservation())
	})

	t.Run("refused before the video is approved", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusContentSubmitted)
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitFinalLink(ctx, collab.ID, "https://youtube.com/watch?v=abc")
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("never backfilled from an approved draft URL", func(t *testing.T) {
		f := newContentServiceFixture()
		_, err := f.svc.SubmitFinalLink(ctx, uuid.New(), "")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("a second submission after completion releases nothing", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusCompleted)
		collab.Content.Script.Status = models.ArtifactApproved
		collab.Content.Video = models.VideoState{
			Status: models.ArtifactApproved,
			Drafts: []models.VideoDraft{{Version: 1, Approved: true}},
		}
		submittedAt := time.Now().UTC()
		collab.Content.FinalLink = models.FinalLinkState{
			Status:      models.ArtifactSubmitted,
			URL:         "https://youtube.com/watch?v=abc",
			SubmittedAt: &submittedAt,
		}
		f.collabRepo.On("GetByIDForUpdate", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.SubmitFinalLink(ctx, collab.ID, "https://youtube.com/watch?v=other")
		assert.ErrorIs(t, err, models.ErrTerminalCollaboration)
		assert.Equal(t, "https://youtube.com/watch?v=abc", collab.Content.FinalLink.URL)
		f.budgetRepo.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything, mock.Anything)
		f.budgetRepo.AssertNotCalled(t, "UpdateBuckets", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestScriptAssist(t *testing.T) {
	ctx := context.Background()
	campaignID := uuid.New()

	t.Run("builds a prompt from placement and prior feedback", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusBrandConfirmed)
		collab.Content.Script.Status = models.ArtifactChangesRequested
		collab.Content.Script.CurrentVersion = 1
		collab.Content.Script.Versions = []models.ScriptVersion{
			{Version: 1, Text: "old", Feedback: "shorter hook"},
		}
		f.collabRepo.On("GetByID", mock.Anything, nil, collab.ID).Return(collab, nil).Once()
		f.generator.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
			return strings.Contains(prompt, "youtube") && strings.Contains(prompt, "shorter hook")
		})).Return("revised outline", nil).Once()

		suggestion, err := f.svc.ScriptAssist(ctx, collab.ID, "keep it upbeat")
		require.NoError(t, err)
		assert.Equal(t, "revised outline", suggestion)
		f.generator.AssertExpectations(t)
	})

	t.Run("refused outside the delivery stages", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusCompleted)
		f.collabRepo.On("GetByID", mock.Anything, nil, collab.ID).Return(collab, nil).Once()

		_, err := f.svc.ScriptAssist(ctx, collab.ID, "")
		assert.ErrorIs(t, err, models.ErrTerminalCollaboration)
	})

	t.Run("generator errors surface to the caller", func(t *testing.T) {
		f := newContentServiceFixture()
		collab := testCollab(campaignID, models.StatusBrandConfirmed)
		f.collabRepo.On("GetByID", mock.Anything, nil, collab.ID).Return(collab, nil).Once()
		f.generator.On("Generate", mock.Anything, mock.Anything).
			Return("", models.ErrUpstreamTimeout).Once()

		_, err := f.svc.ScriptAssist(ctx, collab.ID, "")
		assert.ErrorIs(t, err, models.ErrUpstreamTimeout)
	})
}
