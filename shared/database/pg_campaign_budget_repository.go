package database

import (
	"context"
	"errors"
	"fmt"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.CampaignBudgetRepository = (*pgCampaignBudgetRepository)(nil)

type pgCampaignBudgetRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgCampaignBudgetRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.CampaignBudgetRepository {
	return &pgCampaignBudgetRepository{
		db:     db,
		logger: logger.Named("PgBudgetRepo"),
	}
}

const budgetColumns = `
        campaign_id, currency, total_budget, committed_base, committed_buffer,
        withheld_base, withheld_buffer, released, buffer_rate, guideline_rate,
        accept_below, reject_above, created_at, updated_at`

func (r *pgCampaignBudgetRepository) Create(ctx context.Context, querier interfaces.DBTX, budget *models.CampaignBudget) error {
	q := r.querier(querier)
	query := `
        INSERT INTO campaign_budgets
            (` + budgetColumns + `)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
    `
	_, err := q.Exec(ctx, query,
		budget.CampaignID, budget.Currency, budget.TotalBudget,
		budget.CommittedBase, budget.CommittedBuffer,
		budget.WithheldBase, budget.WithheldBuffer, budget.Released,
		budget.BufferRate, budget.GuidelineRate,
		budget.AcceptBelow, budget.RejectAbove,
		budget.CreatedAt, budget.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create campaign budget", zap.String("campaignID", budget.CampaignID.String()), zap.Error(err))
		return fmt.Errorf("creating campaign budget: %w", err)
	}
	r.logger.Info("Campaign budget created", zap.String("campaignID", budget.CampaignID.String()))
	return nil
}

func (r *pgCampaignBudgetRepository) GetByCampaignID(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	query := `SELECT ` + budgetColumns + ` FROM campaign_budgets WHERE campaign_id = $1`
	return r.getOne(ctx, r.querier(querier), query, campaignID)
}

// GetForUpdate locks the budget row for the duration of the transaction.
// This row lock is the per-campaign serialization point for every
// collaboration and ledger mutation.
func (r *pgCampaignBudgetRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	query := `SELECT ` + budgetColumns + ` FROM campaign_budgets WHERE campaign_id = $1 FOR UPDATE`
	return r.getOne(ctx, r.querier(querier), query, campaignID)
}

func (r *pgCampaignBudgetRepository) getOne(ctx context.Context, q interfaces.DBTX, query string, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	budget := &models.CampaignBudget{}
	err := q.QueryRow(ctx, query, campaignID).Scan(
		&budget.CampaignID, &budget.Currency, &budget.TotalBudget,
		&budget.CommittedBase, &budget.CommittedBuffer,
		&budget.WithheldBase, &budget.WithheldBuffer, &budget.Released,
		&budget.BufferRate, &budget.GuidelineRate,
		&budget.AcceptBelow, &budget.RejectAbove,
		&budget.CreatedAt, &budget.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Campaign budget not found", zap.String("campaignID", campaignID.String()))
			return nil, models.ErrBudgetNotFound
		}
		return nil, fmt.Errorf("getting campaign budget %s: %w", campaignID, err)
	}
	return budget, nil
}

func (r *pgCampaignBudgetRepository) UpdateBuckets(ctx context.Context, querier interfaces.DBTX, budget *models.CampaignBudget) error {
	q := r.querier(querier)
	query := `
        UPDATE campaign_budgets
        SET committed_base = $2,
            committed_buffer = $3,
            withheld_base = $4,
            withheld_buffer = $5,
            released = $6,
            updated_at = NOW()
        WHERE campaign_id = $1
    `
	tag, err := q.Exec(ctx, query,
		budget.CampaignID,
		budget.CommittedBase, budget.CommittedBuffer,
		budget.WithheldBase, budget.WithheldBuffer, budget.Released,
	)
	if err != nil {
		r.logger.Error("Failed to update budget buckets", zap.String("campaignID", budget.CampaignID.String()), zap.Error(err))
		return fmt.Errorf("updating budget buckets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBudgetNotFound
	}
	return nil
}

func (r *pgCampaignBudgetRepository) AppendEntry(ctx context.Context, querier interfaces.DBTX, entry *models.LedgerEntry) error {
	q := r.querier(querier)
	query := `
        INSERT INTO budget_ledger_entries
            (id, campaign_id, collaboration_id, from_bucket, to_bucket, amount, reason, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := q.Exec(ctx, query,
		entry.ID, entry.CampaignID, entry.CollaborationID,
		entry.FromBucket, entry.ToBucket, entry.Amount, entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending ledger entry: %w", err)
	}
	return nil
}

func (r *pgCampaignBudgetRepository) ListEntries(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) ([]models.LedgerEntry, error) {
	q := r.querier(querier)
	query := `
        SELECT id, campaign_id, collaboration_id, from_bucket, to_bucket, amount, reason, created_at
        FROM budget_ledger_entries
        WHERE campaign_id = $1
        ORDER BY created_at ASC
    `
	var entries []models.LedgerEntry
	if err := pgxscan.Select(ctx, q, &entries, query, campaignID); err != nil {
		return nil, fmt.Errorf("listing ledger entries for campaign %s: %w", campaignID, err)
	}
	return entries, nil
}

func (r *pgCampaignBudgetRepository) querier(q interfaces.DBTX) interfaces.DBTX {
	if q != nil {
		return q
	}
	return r.db
}
