package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// Candidate is one creator suggested by the pool provider.
type Candidate struct {
	CreatorID     uuid.UUID `json:"creator_id"`
	Category      string    `json:"category"`
	Platform      string    `json:"platform"`
	GuidelineRate int64     `json:"guideline_rate"`
}

// CandidatePoolProvider is the external creator-pool service consumed by the
// replacement scheduler.
//
//go:generate mockery --name CandidatePoolProvider --output ./mocks --outpkg mocks --case=underscore
type CandidatePoolProvider interface {
	// FindCandidates returns creators in the given category/platform whose
	// guideline rate fits under maxRate, best match first.
	FindCandidates(ctx context.Context, campaignID uuid.UUID, category, platform string, maxRate int64, limit int) ([]Candidate, error)
}
