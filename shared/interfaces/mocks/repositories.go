package mocks

import (
	"context"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock CollaborationRepository
type CollaborationRepository struct {
	mock.Mock
}

func (m *CollaborationRepository) Create(ctx context.Context, querier interfaces.DBTX, collab *models.Collaboration) error {
	args := m.Called(ctx, querier, collab)
	return args.Error(0)
}

func (m *CollaborationRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Collaboration, error) {
	args := m.Called(ctx, querier, id)
	if c, ok := args.Get(0).(*models.Collaboration); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollaborationRepository) GetByIDForUpdate(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Collaboration, error) {
	args := m.Called(ctx, querier, id)
	if c, ok := args.Get(0).(*models.Collaboration); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CollaborationRepository) HasActive(ctx context.Context, querier interfaces.DBTX, campaignID, creatorID uuid.UUID, platform string) (bool, error) {
	args := m.Called(ctx, querier, campaignID, creatorID, platform)
	return args.Bool(0), args.Error(1)
}

func (m *CollaborationRepository) UpdateStatusCAS(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, expected, next models.CollaborationStatus) error {
	args := m.Called(ctx, querier, id, expected, next)
	return args.Error(0)
}

func (m *CollaborationRepository) Update(ctx context.Context, querier interfaces.DBTX, collab *models.Collaboration) error {
	args := m.Called(ctx, querier, collab)
	return args.Error(0)
}

func (m *CollaborationRepository) ListByCampaign(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) ([]models.Collaboration, error) {
	args := m.Called(ctx, querier, campaignID)
	if list, ok := args.Get(0).([]models.Collaboration); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock NegotiationRepository
type NegotiationRepository struct {
	mock.Mock
}

func (m *NegotiationRepository) AppendRound(ctx context.Context, querier interfaces.DBTX, round *models.NegotiationRound) error {
	args := m.Called(ctx, querier, round)
	return args.Error(0)
}

func (m *NegotiationRepository) ListRounds(ctx context.Context, querier interfaces.DBTX, collaborationID uuid.UUID) ([]models.NegotiationRound, error) {
	args := m.Called(ctx, querier, collaborationID)
	if rounds, ok := args.Get(0).([]models.NegotiationRound); ok {
		return rounds, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *NegotiationRepository) CountRounds(ctx context.Context, querier interfaces.DBTX, collaborationID uuid.UUID) (int, error) {
	args := m.Called(ctx, querier, collaborationID)
	return args.Int(0), args.Error(1)
}

// Mock CampaignBudgetRepository
type CampaignBudgetRepository struct {
	mock.Mock
}

func (m *CampaignBudgetRepository) Create(ctx context.Context, querier interfaces.DBTX, budget *models.CampaignBudget) error {
	args := m.Called(ctx, querier, budget)
	return args.Error(0)
}

func (m *CampaignBudgetRepository) GetByCampaignID(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	args := m.Called(ctx, querier, campaignID)
	if b, ok := args.Get(0).(*models.CampaignBudget); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CampaignBudgetRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) (*models.CampaignBudget, error) {
	args := m.Called(ctx, querier, campaignID)
	if b, ok := args.Get(0).(*models.CampaignBudget); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CampaignBudgetRepository) UpdateBuckets(ctx context.Context, querier interfaces.DBTX, budget *models.CampaignBudget) error {
	args := m.Called(ctx, querier, budget)
	return args.Error(0)
}

func (m *CampaignBudgetRepository) AppendEntry(ctx context.Context, querier interfaces.DBTX, entry *models.LedgerEntry) error {
	args := m.Called(ctx, querier, entry)
	return args.Error(0)
}

func (m *CampaignBudgetRepository) ListEntries(ctx context.Context, querier interfaces.DBTX, campaignID uuid.UUID) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, querier, campaignID)
	if entries, ok := args.Get(0).([]models.LedgerEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}
