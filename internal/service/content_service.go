package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"collab-server/internal/ledger"
	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScriptSubmission carries one script revision from the creator. Either Text
// or FileURL must be set.
type ScriptSubmission struct {
	Text    string
	FileURL string
}

// ContentService drives the delivery sub-state machine: script revisions,
// video drafts, and the final published link.
type ContentService interface {
	SubmitScript(ctx context.Context, id uuid.UUID, idempotencyKey string, sub ScriptSubmission) (*models.Collaboration, error)
	ReviewScript(ctx context.Context, campaignID, id uuid.UUID, approve bool, feedback string) (*models.Collaboration, error)
	SubmitVideoDraft(ctx context.Context, id uuid.UUID, idempotencyKey, url string) (*models.Collaboration, error)
	RequestVideoChanges(ctx context.Context, campaignID, id uuid.UUID, draftVersion int, feedback string) (*models.Collaboration, error)
	ApproveVideo(ctx context.Context, campaignID, id uuid.UUID, draftVersion int) (*models.Collaboration, error)
	SubmitFinalLink(ctx context.Context, id uuid.UUID, url string) (*models.Collaboration, error)
	ScriptAssist(ctx context.Context, id uuid.UUID, brief string) (string, error)
}

type contentServiceImpl struct {
	collabRepo       interfaces.CollaborationRepository
	ledger           *ledger.Ledger
	tx               Transactor
	idempotency      interfaces.IdempotencyStore
	idempotencyTTL   time.Duration
	generator        interfaces.TextGenerator
	generatorTimeout time.Duration
	updatePub        interfaces.UpdatePublisher
	logger           *zap.Logger
}

// NewContentService creates a new instance of ContentService.
func NewContentService(
	collabRepo interfaces.CollaborationRepository,
	l *ledger.Ledger,
	tx Transactor,
	idempotency interfaces.IdempotencyStore,
	idempotencyTTL time.Duration,
	generator interfaces.TextGenerator,
	generatorTimeout time.Duration,
	updatePub interfaces.UpdatePublisher,
	logger *zap.Logger,
) ContentService {
	return &contentServiceImpl{
		collabRepo:       collabRepo,
		ledger:           l,
		tx:               tx,
		idempotency:      idempotency,
		idempotencyTTL:   idempotencyTTL,
		generator:        generator,
		generatorTimeout: generatorTimeout,
		updatePub:        updatePub,
		logger:           logger.Named("ContentService"),
	}
}

// SubmitScript appends a script revision. Deduplicated by idempotency key so
// a network retry cannot burn a second slot of the revision cap.
func (s *contentServiceImpl) SubmitScript(ctx context.Context, id uuid.UUID, idempotencyKey string, sub ScriptSubmission) (*models.Collaboration, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()))
	log.Info("SubmitScript called")

	if sub.Text == "" && sub.FileURL == "" {
		return nil, fmt.Errorf("script text or file URL is required: %w", models.ErrInvalidInput)
	}

	return s.withIdempotency(ctx, idempotencyKey, log, func() (*models.Collaboration, error) {
		var collab *models.Collaboration
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
			var err error
			collab, err = s.collabRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := checkTransition(collab.Status, models.StatusContentSubmitted); err != nil {
				return err
			}

			script := &collab.Content.Script
			switch script.Status {
			case models.ArtifactPending, models.ArtifactChangesRequested:
			default:
				return fmt.Errorf("script is %s: %w", script.Status, models.ErrInvalidTransition)
			}
			if script.CurrentVersion >= models.MaxArtifactVersions {
				return models.ErrMaxRevisionsReached
			}

			now := time.Now().UTC()
			script.CurrentVersion++
			script.Versions = append(script.Versions, models.ScriptVersion{
				Version:     script.CurrentVersion,
				Text:        sub.Text,
				FileURL:     sub.FileURL,
				SubmittedAt: now,
			})
			script.Status = models.ArtifactSubmitted

			return s.advance(ctx, tx, collab, models.StatusContentSubmitted, now)
		})
		if err != nil {
			log.Warn("SubmitScript failed", zap.Error(err))
			return nil, err
		}

		log.Info("Script submitted", zap.Int("version", collab.Content.Script.CurrentVersion))
		s.publishUpdate(ctx, collab)
		return collab, nil
	})
}

// ReviewScript records the brand's verdict on the latest script version.
// Requesting changes on the 4th version is refused: that version is
// forced-final and can only be approved.
func (s *contentServiceImpl) ReviewScript(ctx context.Context, campaignID, id uuid.UUID, approve bool, feedback string) (*models.Collaboration, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()), zap.Bool("approve", approve))
	log.Info("ReviewScript called")

	var collab *models.Collaboration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.lockOwned(ctx, tx, campaignID, id)
		if err != nil {
			return err
		}
		if collab.Status.IsTerminal() {
			return fmt.Errorf("status %s: %w", collab.Status, models.ErrTerminalCollaboration)
		}

		script := &collab.Content.Script
		if script.Status != models.ArtifactSubmitted {
			return fmt.Errorf("no script awaiting review: %w", models.ErrInvalidTransition)
		}

		now := time.Now().UTC()
		if approve {
			script.Status = models.ArtifactApproved
		} else {
			if script.CurrentVersion >= models.MaxArtifactVersions {
				return models.ErrMaxRevisionsReached
			}
			script.Status = models.ArtifactChangesRequested
			if len(script.Versions) > 0 {
				script.Versions[len(script.Versions)-1].Feedback = feedback
			}
		}
		collab.UpdatedAt = now
		return s.collabRepo.Update(ctx, tx, collab)
	})
	if err != nil {
		log.Warn("ReviewScript failed", zap.Error(err))
		return nil, err
	}

	log.Info("Script reviewed", zap.String("scriptStatus", string(collab.Content.Script.Status)))
	s.publishUpdate(ctx, collab)
	return collab, nil
}

// SubmitVideoDraft appends a video draft. Requires the script stage approved
// first; the cap and dedup rules mirror SubmitScript.
func (s *contentServiceImpl) SubmitVideoDraft(ctx context.Context, id uuid.UUID, idempotencyKey, url string) (*models.Collaboration, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()))
	log.Info("SubmitVideoDraft called")

	if url == "" {
		return nil, fmt.Errorf("video URL is required: %w", models.ErrInvalidInput)
	}

	return s.withIdempotency(ctx, idempotencyKey, log, func() (*models.Collaboration, error) {
		var collab *models.Collaboration
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
			var err error
			collab, err = s.collabRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := checkTransition(collab.Status, models.StatusContentSubmitted); err != nil {
				return err
			}
			if collab.Content.Script.Status != models.ArtifactApproved {
				return fmt.Errorf("script not approved yet: %w", models.ErrInvalidTransition)
			}

			video := &collab.Content.Video
			switch video.Status {
			case models.ArtifactPending, models.ArtifactChangesRequested:
			default:
				return fmt.Errorf("video is %s: %w", video.Status, models.ErrInvalidTransition)
			}
			if len(video.Drafts) >= models.MaxArtifactVersions {
				return models.ErrMaxRevisionsReached
			}

			now := time.Now().UTC()
			video.Drafts = append(video.Drafts, models.VideoDraft{
				Version:     len(video.Drafts) + 1,
				URL:         url,
				SubmittedAt: now,
			})
			video.Status = models.ArtifactSubmitted

			return s.advance(ctx, tx, collab, models.StatusContentSubmitted, now)
		})
		if err != nil {
			log.Warn("SubmitVideoDraft failed", zap.Error(err))
			return nil, err
		}

		log.Info("Video draft submitted", zap.Int("version", len(collab.Content.Video.Drafts)))
		s.publishUpdate(ctx, collab)
		return collab, nil
	})
}

// RequestVideoChanges attaches feedback to a draft and reopens the video
// stage. Refused on the 4th draft, which is forced-final.
func (s *contentServiceImpl) RequestVideoChanges(ctx context.Context, campaignID, id uuid.UUID, draftVersion int, feedback string) (*models.Collaboration, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()), zap.Int("draftVersion", draftVersion))
	log.Info("RequestVideoChanges called")

	var collab *models.Collaboration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.lockOwned(ctx, tx, campaignID, id)
		if err != nil {
			return err
		}
		if collab.Status.IsTerminal() {
			return fmt.Errorf("status %s: %w", collab.Status, models.ErrTerminalCollaboration)
		}

		video := &collab.Content.Video
		if video.Status != models.ArtifactSubmitted {
			return fmt.Errorf("no video draft awaiting review: %w", models.ErrInvalidTransition)
		}
		draft, err := findDraft(video, draftVersion)
		if err != nil {
			return err
		}
		if len(video.Drafts) >= models.MaxArtifactVersions {
			return models.ErrMaxRevisionsReached
		}

		draft.Feedback = feedback
		video.Status = models.ArtifactChangesRequested
		collab.UpdatedAt = time.Now().UTC()
		return s.collabRepo.Update(ctx, tx, collab)
	})
	if err != nil {
		log.Warn("RequestVideoChanges failed", zap.Error(err))
		return nil, err
	}

	log.Info("Video changes requested")
	s.publishUpdate(ctx, collab)
	return collab, nil
}

// ApproveVideo approves a draft and moves the collaboration to
// content_approved. Works on any draft version including the forced-final
// 4th.
func (s *contentServiceImpl) ApproveVideo(ctx context.Context, campaignID, id uuid.UUID, draftVersion int) (*models.Collaboration, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()), zap.Int("draftVersion", draftVersion))
	log.Info("ApproveVideo called")

	var collab *models.Collaboration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.lockOwned(ctx, tx, campaignID, id)
		if err != nil {
			return err
		}
		if err := checkTransition(collab.Status, models.StatusContentApproved); err != nil {
			return err
		}

		video := &collab.Content.Video
		if video.Status != models.ArtifactSubmitted {
			return fmt.Errorf("no video draft awaiting review: %w", models.ErrInvalidTransition)
		}
		draft, err := findDraft(video, draftVersion)
		if err != nil {
			return err
		}

		draft.Approved = true
		video.Status = models.ArtifactApproved

		now := time.Now().UTC()
		return s.advance(ctx, tx, collab, models.StatusContentApproved, now)
	})
	if err != nil {
		log.Warn("ApproveVideo failed", zap.Error(err))
		return nil, err
	}

	log.Info("Video approved")
	s.publishUpdate(ctx, collab)
	return collab, nil
}

// SubmitFinalLink records the published URL, completes the collaboration and
// releases the withheld budget. The link must be submitted explicitly; it is
// never inferred from an approved draft.
func (s *contentServiceImpl) SubmitFinalLink(ctx context.Context, id uuid.UUID, url string) (*models.Collaboration, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()))
	log.Info("SubmitFinalLink called")

	if url == "" {
		return nil, fmt.Errorf("final link URL is required: %w", models.ErrInvalidInput)
	}

	var collab *models.Collaboration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		collab, err = s.collabRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(collab.Status, models.StatusCompleted); err != nil {
			return err
		}
		if collab.Content.Video.Status != models.ArtifactApproved {
			return fmt.Errorf("video not approved: %w", models.ErrVideoNotApproved)
		}

		now := time.Now().UTC()
		collab.Content.FinalLink = models.FinalLinkState{
			Status:      models.ArtifactSubmitted,
			URL:         url,
			SubmittedAt: &now,
		}

		if _, err := s.ledger.Release(ctx, tx, collab.CampaignID, collab.ID, collab.ProposedRate, collab.BufferAmount); err != nil {
			return err
		}
		if err := s.collabRepo.UpdateStatusCAS(ctx, tx, collab.ID, collab.Status, models.StatusCompleted); err != nil {
			return err
		}
		collab.Status = models.StatusCompleted
		collab.CompletedAt = &now
		collab.UpdatedAt = now
		return s.collabRepo.Update(ctx, tx, collab)
	})
	if err != nil {
		log.Warn("SubmitFinalLink failed", zap.Error(err))
		return nil, err
	}

	log.Info("Collaboration completed, budget released")
	s.publishUpdate(ctx, collab)
	return collab, nil
}

// ScriptAssist asks the opaque generator for a script draft suggestion. Read
// only, no locks held: the creator edits and submits the result themselves.
func (s *contentServiceImpl) ScriptAssist(ctx context.Context, id uuid.UUID, brief string) (string, error) {
	log := s.logger.With(zap.String("collaborationID", id.String()))
	log.Info("ScriptAssist called")

	collab, err := s.collabRepo.GetByID(ctx, nil, id)
	if err != nil {
		return "", err
	}
	if err := checkTransition(collab.Status, models.StatusContentSubmitted); err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("Draft a short %s script outline for a %s collaboration.",
		collab.Placement.Type, collab.TargetPlatform)
	if script := collab.Content.Script; script.Status == models.ArtifactChangesRequested && len(script.Versions) > 0 {
		if feedback := script.Versions[len(script.Versions)-1].Feedback; feedback != "" {
			prompt += " The brand requested these changes on the previous version: " + feedback
		}
	}
	if brief != "" {
		prompt += " Creator notes: " + brief
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generatorTimeout)
	defer cancel()

	suggestion, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		log.Warn("Script assist generation failed", zap.Error(err))
		return "", err
	}
	return suggestion, nil
}

// advance performs the CAS status write when the overall status actually
// changes; revision loops inside content_submitted only touch the sub-state.
func (s *contentServiceImpl) advance(ctx context.Context, tx interfaces.DBTX, collab *models.Collaboration, next models.CollaborationStatus, now time.Time) error {
	if collab.Status != next {
		if err := s.collabRepo.UpdateStatusCAS(ctx, tx, collab.ID, collab.Status, next); err != nil {
			return err
		}
		collab.Status = next
	}
	collab.UpdatedAt = now
	return s.collabRepo.Update(ctx, tx, collab)
}

func (s *contentServiceImpl) lockOwned(ctx context.Context, tx interfaces.DBTX, campaignID, id uuid.UUID) (*models.Collaboration, error) {
	collab, err := s.collabRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if campaignID != uuid.Nil && collab.CampaignID != campaignID {
		return nil, models.ErrCollaborationNotFound
	}
	return collab, nil
}

// withIdempotency wraps a non-idempotent submission in a key claim. A replay
// of a finished request returns the stored prior result; a replay racing the
// in-flight original gets ErrDuplicateRequest.
func (s *contentServiceImpl) withIdempotency(ctx context.Context, key string, log *zap.Logger, fn func() (*models.Collaboration, error)) (*models.Collaboration, error) {
	if key == "" {
		return fn()
	}

	claimed, prior, err := s.idempotency.Begin(ctx, key, s.idempotencyTTL)
	if err != nil {
		// Dedup store outage must not block creators from submitting.
		log.Warn("Idempotency store unavailable, proceeding without dedup", zap.Error(err))
		return fn()
	}
	if !claimed {
		if len(prior) > 0 {
			var replay models.Collaboration
			if err := json.Unmarshal(prior, &replay); err == nil {
				log.Info("Idempotency key replay, returning prior result", zap.String("key", key))
				return &replay, nil
			}
		}
		return nil, models.ErrDuplicateRequest
	}

	collab, err := fn()
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			log.Warn("Failed to release idempotency key", zap.Error(releaseErr))
		}
		return nil, err
	}
	if payload, marshalErr := json.Marshal(collab); marshalErr == nil {
		if completeErr := s.idempotency.Complete(ctx, key, payload, s.idempotencyTTL); completeErr != nil {
			log.Warn("Failed to store idempotency result", zap.Error(completeErr))
		}
	}
	return collab, nil
}

func findDraft(video *models.VideoState, version int) (*models.VideoDraft, error) {
	// Version 0 targets the latest draft.
	if version == 0 {
		if len(video.Drafts) == 0 {
			return nil, fmt.Errorf("no video drafts: %w", models.ErrInvalidInput)
		}
		return &video.Drafts[len(video.Drafts)-1], nil
	}
	for i := range video.Drafts {
		if video.Drafts[i].Version == version {
			return &video.Drafts[i], nil
		}
	}
	return nil, fmt.Errorf("draft version %d not found: %w", version, models.ErrInvalidInput)
}

func (s *contentServiceImpl) publishUpdate(ctx context.Context, collab *models.Collaboration) {
	update := models.CollaborationUpdate{
		CampaignID:      collab.CampaignID,
		CollaborationID: collab.ID,
		Status:          collab.Status,
		UpdatedAt:       collab.UpdatedAt,
	}
	if err := s.updatePub.PublishCollaborationUpdate(ctx, update); err != nil {
		s.logger.Error("Failed to publish collaboration update",
			zap.String("collaborationID", collab.ID.String()),
			zap.Error(err))
	}
}
