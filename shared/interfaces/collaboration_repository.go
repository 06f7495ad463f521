package interfaces

import (
	"context"

	"collab-server/shared/models"

	"github.com/google/uuid"
)

// CollaborationRepository persists collaborations and their nested delivery
// sub-state.
//
//go:generate mockery --name CollaborationRepository --output ./mocks --outpkg mocks --case=underscore
type CollaborationRepository interface {
	// Create inserts a new collaboration record.
	Create(ctx context.Context, querier DBTX, collab *models.Collaboration) error

	// GetByID retrieves a collaboration by its unique ID.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Collaboration, error)

	// GetByIDForUpdate retrieves a collaboration with a row lock. Must run
	// inside a transaction.
	GetByIDForUpdate(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Collaboration, error)

	// HasActive reports whether a non-terminal collaboration already exists
	// for (creator, campaign, platform).
	HasActive(ctx context.Context, querier DBTX, campaignID, creatorID uuid.UUID, platform string) (bool, error)

	// UpdateStatusCAS moves status from expected to next, compare-and-swap on
	// the previous value. Returns models.ErrConflict when the row was not in
	// the expected status.
	UpdateStatusCAS(ctx context.Context, querier DBTX, id uuid.UUID, expected, next models.CollaborationStatus) error

	// Update persists mutable fields (status, rates, content sub-state,
	// negotiation status, timestamps) of an already-loaded collaboration.
	Update(ctx context.Context, querier DBTX, collab *models.Collaboration) error

	// ListByCampaign returns all collaborations of a campaign, newest first.
	ListByCampaign(ctx context.Context, querier DBTX, campaignID uuid.UUID) ([]models.Collaboration, error)
}

// NegotiationRepository persists the append-only negotiation rounds.
//
//go:generate mockery --name NegotiationRepository --output ./mocks --outpkg mocks --case=underscore
type NegotiationRepository interface {
	// AppendRound inserts a new round. Rounds are never updated or deleted.
	AppendRound(ctx context.Context, querier DBTX, round *models.NegotiationRound) error

	// ListRounds returns the rounds of one collaboration, oldest first.
	ListRounds(ctx context.Context, querier DBTX, collaborationID uuid.UUID) ([]models.NegotiationRound, error)

	// CountRounds returns how many rounds were already recorded.
	CountRounds(ctx context.Context, querier DBTX, collaborationID uuid.UUID) (int, error)
}
