package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.CollaborationRepository = (*pgCollaborationRepository)(nil)

type pgCollaborationRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

func NewPgCollaborationRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.CollaborationRepository {
	return &pgCollaborationRepository{
		db:     db,
		logger: logger.Named("PgCollabRepo"),
	}
}

const collaborationColumns = `
        id, campaign_id, creator_id, creator_category, target_platform, placement,
        status, invitation_type, proposed_rate, buffer_amount, negotiation_status,
        content, reject_reason, invited_at, responded_at, confirmed_at, completed_at,
        created_at, updated_at`

func (r *pgCollaborationRepository) Create(ctx context.Context, querier interfaces.DBTX, collab *models.Collaboration) error {
	q := r.querier(querier)

	placementJSON, err := json.Marshal(collab.Placement)
	if err != nil {
		return fmt.Errorf("marshalling placement: %w", err)
	}
	contentJSON, err := json.Marshal(collab.Content)
	if err != nil {
		return fmt.Errorf("marshalling content state: %w", err)
	}

	query := `
        INSERT INTO collaborations
            (` + collaborationColumns + `)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
    `
	logFields := []zap.Field{
		zap.String("collaborationID", collab.ID.String()),
		zap.String("campaignID", collab.CampaignID.String()),
	}
	r.logger.Debug("Creating collaboration", logFields...)

	_, err = q.Exec(ctx, query,
		collab.ID,
		collab.CampaignID,
		collab.CreatorID,
		collab.CreatorCategory,
		collab.TargetPlatform,
		placementJSON,
		collab.Status,
		collab.InvitationType,
		collab.ProposedRate,
		collab.BufferAmount,
		negotiationStatusOf(collab),
		contentJSON,
		collab.RejectReason,
		collab.InvitedAt,
		collab.RespondedAt,
		collab.ConfirmedAt,
		collab.CompletedAt,
		collab.CreatedAt,
		collab.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create collaboration", append(logFields, zap.Error(err))...)
		return fmt.Errorf("creating collaboration: %w", err)
	}
	r.logger.Info("Collaboration created", logFields...)
	return nil
}

func (r *pgCollaborationRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Collaboration, error) {
	query := `SELECT ` + collaborationColumns + ` FROM collaborations WHERE id = $1`
	return r.getOne(ctx, r.querier(querier), query, id)
}

func (r *pgCollaborationRepository) GetByIDForUpdate(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Collaboration, error) {
	query := `SELECT ` + collaborationColumns + ` FROM collaborations WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, r.querier(querier), query, id)
}

func (r *pgCollaborationRepository) getOne(ctx context.Context, q interfaces.DBTX, query string, id uuid.UUID) (*models.Collaboration, error) {
	collab, err := scanCollaboration(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Collaboration not found", zap.String("collaborationID", id.String()))
			return nil, models.ErrCollaborationNotFound
		}
		r.logger.Error("Failed to get collaboration", zap.String("collaborationID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("getting collaboration %s: %w", id, err)
	}
	return collab, nil
}

func (r *pgCollaborationRepository) HasActive(ctx context.Context, querier interfaces.DBTX, campaignID, creatorID uuid.UUID, platform string) (bool, error) {
	q := r.querier(querier)
	query := `
        SELECT EXISTS (
            SELECT 1 FROM collaborations
            WHERE campaign_id = $1 AND creator_id = $2 AND target_platform = $3
              AND status NOT IN ('completed', 'rejected', 'brand_rejected', 'withdrawn')
        )
    `
	var exists bool
	if err := q.QueryRow(ctx, query, campaignID, creatorID, platform).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking active collaboration: %w", err)
	}
	return exists, nil
}

// UpdateStatusCAS writes the new status only when the row still carries the
// expected one. Zero rows affected means either a lost race or a missing row;
// the follow-up existence check tells them apart.
func (r *pgCollaborationRepository) UpdateStatusCAS(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, expected, next models.CollaborationStatus) error {
	q := r.querier(querier)
	query := `
        UPDATE collaborations
        SET status = $3, updated_at = NOW()
        WHERE id = $1 AND status = $2
    `
	tag, err := q.Exec(ctx, query, id, expected, next)
	if err != nil {
		return fmt.Errorf("updating collaboration status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM collaborations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking collaboration existence: %w", err)
		}
		if !exists {
			return models.ErrCollaborationNotFound
		}
		r.logger.Warn("Status CAS failed, row not in expected status",
			zap.String("collaborationID", id.String()),
			zap.String("expected", string(expected)),
			zap.String("next", string(next)))
		return models.ErrConflict
	}
	return nil
}

func (r *pgCollaborationRepository) Update(ctx context.Context, querier interfaces.DBTX, collab *models.Collaboration) error {
	q := r.querier(querier)

	contentJSON, err := json.Marshal(collab.Content)
	if err != nil {
		return fmt.Errorf("marshalling content state: %w", err)
	}

	query := `
        UPDATE collaborations
        SET status = $2,
            proposed_rate = $3,
            buffer_amount = $4,
            negotiation_status = $5,
            content = $6,
            reject_reason = $7,
            responded_at = $8,
            confirmed_at = $9,
            completed_at = $10,
            updated_at = $11
        WHERE id = $1
    `
	tag, err := q.Exec(ctx, query,
		collab.ID,
		collab.Status,
		collab.ProposedRate,
		collab.BufferAmount,
		negotiationStatusOf(collab),
		contentJSON,
		collab.RejectReason,
		collab.RespondedAt,
		collab.ConfirmedAt,
		collab.CompletedAt,
		collab.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update collaboration", zap.String("collaborationID", collab.ID.String()), zap.Error(err))
		return fmt.Errorf("updating collaboration %s: %w", collab.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrCollaborationNotFound
	}
	return nil
}

func (r *pgCollaborationRepository) ListByCampaign(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) ([]models.Collaboration, error) {
	q := r.querier(querier)
	query := `SELECT ` + collaborationColumns + ` FROM collaborations WHERE campaign_id = $1 ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("listing collaborations for campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var result []models.Collaboration
	for rows.Next() {
		collab, err := scanCollaboration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning collaboration row: %w", err)
		}
		result = append(result, *collab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collaboration rows: %w", err)
	}
	return result, nil
}

// querier falls back to the repository's own connection when the caller does
// not supply a transaction.
func (r *pgCollaborationRepository) querier(q interfaces.DBTX) interfaces.DBTX {
	if q != nil {
		return q
	}
	return r.db
}

func negotiationStatusOf(collab *models.Collaboration) models.NegotiationStatus {
	if collab.Negotiation == nil {
		return models.NegotiationNone
	}
	return collab.Negotiation.Status
}

func scanCollaboration(row pgx.Row) (*models.Collaboration, error) {
	var (
		collab            models.Collaboration
		placementJSON     []byte
		contentJSON       []byte
		negotiationStatus models.NegotiationStatus
	)
	err := row.Scan(
		&collab.ID, &collab.CampaignID, &collab.CreatorID, &collab.CreatorCategory,
		&collab.TargetPlatform, &placementJSON, &collab.Status, &collab.InvitationType,
		&collab.ProposedRate, &collab.BufferAmount, &negotiationStatus, &contentJSON,
		&collab.RejectReason, &collab.InvitedAt, &collab.RespondedAt, &collab.ConfirmedAt,
		&collab.CompletedAt, &collab.CreatedAt, &collab.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(placementJSON, &collab.Placement); err != nil {
		return nil, fmt.Errorf("unmarshalling placement: %w", err)
	}
	if err := json.Unmarshal(contentJSON, &collab.Content); err != nil {
		return nil, fmt.Errorf("unmarshalling content state: %w", err)
	}
	if negotiationStatus != models.NegotiationNone {
		collab.Negotiation = &models.Negotiation{Status: negotiationStatus}
	}
	return &collab, nil
}
