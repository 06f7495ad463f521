package handler

import (
	"github.com/google/uuid"

	"collab-server/shared/models"
)

// --- Request DTOs ---

type inviteRequest struct {
	CreatorID       uuid.UUID        `json:"creatorId" binding:"required"`
	CreatorCategory string           `json:"creatorCategory"`
	TargetPlatform  string           `json:"targetPlatform" binding:"required"`
	Placement       models.Placement `json:"placement"`
	// ProposedRate in minor units; omitted means the campaign guideline rate.
	ProposedRate int64 `json:"proposedRate"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

type submitScriptRequest struct {
	Text    string `json:"text"`
	FileURL string `json:"fileUrl"`
}

type scriptAssistRequest struct {
	Brief string `json:"brief"`
}

type submitVideoRequest struct {
	VideoURL string `json:"videoUrl" binding:"required"`
}

type submitFinalLinkRequest struct {
	FinalLink string `json:"finalLink" binding:"required"`
}

// Brand content-review requests carry the campaign id so ownership is checked
// against the caller's campaign, not inferred.
type scriptStatusRequest struct {
	CampaignID uuid.UUID `json:"campaignId" binding:"required"`
	Status     string    `json:"status" binding:"required"` // approved | changes_requested
	Feedback   string    `json:"feedback"`
}

type videoFeedbackRequest struct {
	CampaignID   uuid.UUID `json:"campaignId" binding:"required"`
	DraftVersion int       `json:"draftVersion"`
	Feedback     string    `json:"feedback" binding:"required"`
}

type videoApproveRequest struct {
	CampaignID   uuid.UUID `json:"campaignId" binding:"required"`
	DraftVersion int       `json:"draftVersion"`
}

type negotiateRequest struct {
	// ProposedRate is the creator's demand in minor units.
	ProposedRate  int64  `json:"proposedRate" binding:"required"`
	Justification string `json:"justification"`
}

type negotiationRespondRequest struct {
	Decision string `json:"decision" binding:"required"` // accept | reject
}

// --- Response DTOs ---

// budgetSnapshotResponse is the read view of a campaign budget: stored
// buckets plus the derived fields the UI renders.
type budgetSnapshotResponse struct {
	CampaignID          uuid.UUID `json:"campaignId"`
	Currency            string    `json:"currency"`
	TotalBudget         int64     `json:"totalBudget"`
	CommittedBase       int64     `json:"committedBase"`
	CommittedBuffer     int64     `json:"committedBuffer"`
	WithheldBase        int64     `json:"withheldBase"`
	WithheldBuffer      int64     `json:"withheldBuffer"`
	Released            int64     `json:"released"`
	AvailableForInvites int64     `json:"availableForInvites"`
	SpentPercent        float64   `json:"spentPercent"`
	BufferRate          float64   `json:"bufferRate"`
	GuidelineRate       int64     `json:"guidelineRate"`
}

func budgetSnapshot(b *models.CampaignBudget) budgetSnapshotResponse {
	spent := 0.0
	if b.TotalBudget > 0 {
		spent = float64(b.TotalBudget-b.AvailableForInvites()) / float64(b.TotalBudget) * 100
	}
	return budgetSnapshotResponse{
		CampaignID:          b.CampaignID,
		Currency:            b.Currency,
		TotalBudget:         b.TotalBudget,
		CommittedBase:       b.CommittedBase,
		CommittedBuffer:     b.CommittedBuffer,
		WithheldBase:        b.WithheldBase,
		WithheldBuffer:      b.WithheldBuffer,
		Released:            b.Released,
		AvailableForInvites: b.AvailableForInvites(),
		SpentPercent:        spent,
		BufferRate:          b.BufferRate,
		GuidelineRate:       b.GuidelineRate,
	}
}
