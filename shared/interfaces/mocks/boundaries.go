package mocks

import (
	"context"
	"time"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock IdempotencyStore
type IdempotencyStore struct {
	mock.Mock
}

func (m *IdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	args := m.Called(ctx, key, ttl)
	var prior []byte
	if b, ok := args.Get(1).([]byte); ok {
		prior = b
	}
	return args.Bool(0), prior, args.Error(2)
}

func (m *IdempotencyStore) Complete(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, result, ttl)
	return args.Error(0)
}

func (m *IdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Mock ReplacementPublisher
type ReplacementPublisher struct {
	mock.Mock
}

func (m *ReplacementPublisher) PublishReplacementNeeded(ctx context.Context, event models.ReplacementNeeded) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Mock UpdatePublisher
type UpdatePublisher struct {
	mock.Mock
}

func (m *UpdatePublisher) PublishCollaborationUpdate(ctx context.Context, update models.CollaborationUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// Mock CandidatePoolProvider
type CandidatePoolProvider struct {
	mock.Mock
}

func (m *CandidatePoolProvider) FindCandidates(ctx context.Context, campaignID uuid.UUID, category, platform string, maxRate int64, limit int) ([]interfaces.Candidate, error) {
	args := m.Called(ctx, campaignID, category, platform, maxRate, limit)
	if c, ok := args.Get(0).([]interfaces.Candidate); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock TextGenerator
type TextGenerator struct {
	mock.Mock
}

func (m *TextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
