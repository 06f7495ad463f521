package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collab-server/shared/interfaces"
	"collab-server/shared/models"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.TextGenerator = (*Client)(nil)

const systemPrompt = "You write short, polite, factual one-sentence messages " +
	"from a brand to a content creator about rate negotiations. Never invent " +
	"numbers that are not in the request. Respond with the sentence only."

// Client wraps the chat-completion API as a plain text producer.
type Client struct {
	client     *openai.Client
	modelName  string
	timeout    time.Duration
	maxRetries int
}

// Config holds the generator settings.
type Config struct {
	APIKey     string
	ModelName  string
	Timeout    int // seconds
	MaxRetries int
}

// New creates a text generation client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generator API key is not set")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	return &Client{
		client:     openai.NewClient(cfg.APIKey),
		modelName:  cfg.ModelName,
		timeout:    time.Duration(cfg.Timeout) * time.Second,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Generate produces one short text for the prompt. A deadline that expires
// before a response arrives is reported as models.ErrUpstreamTimeout so
// callers can fall back without holding anything open.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req := openai.ChatCompletionRequest{
			Model: c.modelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.4,
			MaxTokens:   120,
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("text generation timed out: %w", models.ErrUpstreamTimeout)
			}
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("chat completion failed")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("empty completion response")
			continue
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("text generation failed after %d attempts: %w", c.maxRetries, lastErr)
}
