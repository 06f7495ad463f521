package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"collab-server/shared/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.CandidatePoolProvider = (*HTTPCandidatePoolClient)(nil)

// HTTPCandidatePoolClient talks to the external candidate-creator pool
// service used by the replacement scheduler.
type HTTPCandidatePoolClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPCandidatePoolClient creates a new HTTP client for the candidate pool.
func NewHTTPCandidatePoolClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPCandidatePoolClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &HTTPCandidatePoolClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("HTTPCandidatePoolClient"),
	}
}

// FindCandidates queries the pool for creators matching the rejected
// creator's category and platform within the rate ceiling.
func (c *HTTPCandidatePoolClient) FindCandidates(ctx context.Context, campaignID uuid.UUID, category, platform string, maxRate int64, limit int) ([]interfaces.Candidate, error) {
	log := c.logger.With(
		zap.String("campaignID", campaignID.String()),
		zap.String("category", category),
		zap.String("platform", platform))
	log.Debug("Requesting replacement candidates from pool")

	query := url.Values{}
	query.Set("campaign_id", campaignID.String())
	query.Set("category", category)
	query.Set("platform", platform)
	query.Set("max_rate", strconv.FormatInt(maxRate, 10))
	query.Set("limit", strconv.Itoa(limit))
	endpointURL := c.baseURL + "/internal/creators/candidates?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate pool request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Failed to execute request to candidate pool", zap.Error(err))
		return nil, fmt.Errorf("failed to execute request to candidate pool: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error("Candidate pool returned non-OK status", zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("candidate pool returned status %d", resp.StatusCode)
	}

	var responsePayload struct {
		Data []interfaces.Candidate `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&responsePayload); err != nil {
		log.Error("Failed to decode candidate pool response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode candidate pool response: %w", err)
	}

	log.Debug("Candidate pool responded", zap.Int("count", len(responsePayload.Data)))
	return responsePayload.Data, nil
}
