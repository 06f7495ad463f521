package interfaces

import (
	"context"

	"collab-server/shared/models"
)

// ReplacementPublisher publishes ReplacementNeeded events for the
// replacement scheduler.
//
//go:generate mockery --name ReplacementPublisher --output ./mocks --outpkg mocks --case=underscore
type ReplacementPublisher interface {
	PublishReplacementNeeded(ctx context.Context, event models.ReplacementNeeded) error
}

// UpdatePublisher publishes collaboration state changes for UI consumers.
//
//go:generate mockery --name UpdatePublisher --output ./mocks --outpkg mocks --case=underscore
type UpdatePublisher interface {
	PublishCollaborationUpdate(ctx context.Context, update models.CollaborationUpdate) error
}
