package interfaces

import (
	"context"

	"collab-server/shared/models"

	"github.com/google/uuid"
)

// CampaignBudgetRepository persists per-campaign budget state. The FOR UPDATE
// variant doubles as the per-campaign serialization lock: every ledger
// mutation starts by locking the budget row.
//
//go:generate mockery --name CampaignBudgetRepository --output ./mocks --outpkg mocks --case=underscore
type CampaignBudgetRepository interface {
	// Create inserts a fresh budget row for a campaign.
	Create(ctx context.Context, querier DBTX, budget *models.CampaignBudget) error

	// GetByCampaignID retrieves the budget without locking (read-only views).
	GetByCampaignID(ctx context.Context, querier DBTX, campaignID uuid.UUID) (*models.CampaignBudget, error)

	// GetForUpdate retrieves the budget with a row lock. Must run inside a
	// transaction; concurrent campaign mutations serialize here.
	GetForUpdate(ctx context.Context, querier DBTX, campaignID uuid.UUID) (*models.CampaignBudget, error)

	// UpdateBuckets writes the bucket columns back.
	UpdateBuckets(ctx context.Context, querier DBTX, budget *models.CampaignBudget) error

	// AppendEntry records one audited bucket movement.
	AppendEntry(ctx context.Context, querier DBTX, entry *models.LedgerEntry) error

	// ListEntries returns the audit log of a campaign, oldest first.
	ListEntries(ctx context.Context, querier DBTX, campaignID uuid.UUID) ([]models.LedgerEntry, error)
}
