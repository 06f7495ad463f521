package service_test

import (
	"context"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
)

// passthroughTransactor runs the function directly with a nil querier so
// repository mocks see the same arguments the real transaction would pass.
type passthroughTransactor struct{}

func (passthroughTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	return fn(ctx, nil)
}

func testBudget(campaignID uuid.UUID) *models.CampaignBudget {
	return &models.CampaignBudget{
		CampaignID:    campaignID,
		Currency:      "INR",
		TotalBudget:   100_000_00,
		BufferRate:    0.25,
		GuidelineRate: 10_000_00,
	}
}

func testCollab(campaignID uuid.UUID, status models.CollaborationStatus) *models.Collaboration {
	return &models.Collaboration{
		ID:             uuid.New(),
		CampaignID:     campaignID,
		CreatorID:      uuid.New(),
		TargetPlatform: "youtube",
		Status:         status,
		InvitationType: models.InvitationAuto,
		ProposedRate:   10_000_00,
		BufferAmount:   2_500_00,
		Content:        models.NewContentState(),
	}
}
