package models

import (
	"time"

	"github.com/google/uuid"
)

// ReplacementNeeded is emitted when an auto-invited collaboration terminates
// with a rejection. The replacement scheduler consumes it and tries to invite
// a comparable creator within the remaining budget.
type ReplacementNeeded struct {
	CampaignID      uuid.UUID      `json:"campaign_id"`
	CollaborationID uuid.UUID      `json:"collaboration_id"`
	CreatorID       uuid.UUID      `json:"creator_id"`
	CreatorCategory string         `json:"creator_category,omitempty"`
	TargetPlatform  string         `json:"target_platform"`
	Placement       Placement      `json:"placement"`
	PriorRate       int64          `json:"prior_rate"`
	InvitationType  InvitationType `json:"invitation_type"`
	Reason          string         `json:"reason,omitempty"`
	RejectedAt      time.Time      `json:"rejected_at"`
}

// CollaborationUpdate notifies UI consumers that a collaboration changed
// state. Published after every committed transition.
type CollaborationUpdate struct {
	CampaignID      uuid.UUID           `json:"campaign_id"`
	CollaborationID uuid.UUID           `json:"collaboration_id"`
	Status          CollaborationStatus `json:"status"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
