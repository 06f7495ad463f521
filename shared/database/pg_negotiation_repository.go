package database

import (
	"context"
	"fmt"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.NegotiationRepository = (*pgNegotiationRepository)(nil)

// pgNegotiationRepository stores negotiation rounds. The table is strictly
// append-only: there is no update or delete path, by design of the audit
// trail.
type pgNegotiationRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgNegotiationRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.NegotiationRepository {
	return &pgNegotiationRepository{
		db:     db,
		logger: logger.Named("PgNegotiationRepo"),
	}
}

func (r *pgNegotiationRepository) AppendRound(ctx context.Context, querier interfaces.DBTX, round *models.NegotiationRound) error {
	q := r.querier(querier)
	query := `
        INSERT INTO negotiation_rounds
            (id, collaboration_id, round_number, creator_demand, justification,
             decision, counter_offer, reasoning, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := q.Exec(ctx, query,
		round.ID, round.CollaborationID, round.RoundNumber,
		round.CreatorDemand, round.Justification,
		round.Decision, round.CounterOffer, round.Reasoning, round.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append negotiation round",
			zap.String("collaborationID", round.CollaborationID.String()),
			zap.Int("round", round.RoundNumber),
			zap.Error(err))
		return fmt.Errorf("appending negotiation round: %w", err)
	}
	return nil
}

func (r *pgNegotiationRepository) ListRounds(ctx context.Context, querier interfaces.DBTX, collaborationID uuid.UUID) ([]models.NegotiationRound, error) {
	q := r.querier(querier)
	query := `
        SELECT id, collaboration_id, round_number, creator_demand, justification,
               decision, counter_offer, reasoning, created_at
        FROM negotiation_rounds
        WHERE collaboration_id = $1
        ORDER BY round_number ASC
    `
	var rounds []models.NegotiationRound
	if err := pgxscan.Select(ctx, q, &rounds, query, collaborationID); err != nil {
		return nil, fmt.Errorf("listing negotiation rounds for %s: %w", collaborationID, err)
	}
	return rounds, nil
}

func (r *pgNegotiationRepository) CountRounds(ctx context.Context, querier interfaces.DBTX, collaborationID uuid.UUID) (int, error) {
	q := r.querier(querier)
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM negotiation_rounds WHERE collaboration_id = $1`, collaborationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting negotiation rounds for %s: %w", collaborationID, err)
	}
	return count, nil
}

func (r *pgNegotiationRepository) querier(q interfaces.DBTX) interfaces.DBTX {
	if q != nil {
		return q
	}
	return r.db
}
