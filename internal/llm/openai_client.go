// ABOUTME: OpenAI client for post-session synthesis text
// ABOUTME: Returns raw completion text; parsing and fallback belong to the insight resolver
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/harper/persona/internal/models"
	"github.com/harper/persona/internal/util"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:     apiKey,
		ChatModel:  DefaultChatModel,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second * 2,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client     *openai.Client
	chatModel  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oaiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oaiConfig.BaseURL = config.BaseURL
	}

	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(oaiConfig),
		chatModel:  chatModel,
		timeout:    timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		logger:     logger,
	}, nil
}

// GetClient returns the underlying OpenAI client for direct use
func (c *OpenAIClient) GetClient() *openai.Client {
	return c.client
}

const synthesisPrompt = `You are a coaching session analyst. Read the session transcript and summarise it.

Return ONE JSON object. Include only fields you can support from the transcript:
- overall_score, engagement_score, clarity_score, momentum_score, breakthrough_score: numbers from 0 to 10
- emotional_tone, session_phase, executive_summary, client_summary, coach_notes, recommended_focus, next_session_focus: strings
- key_insights, breakthroughs, action_items, commitments, goals, challenges, values, strengths, behavior_patterns, achievements, growth_areas, follow_up_questions, topics: arrays of strings

Do not invent facts the client did not state.`

// Synthesize asks the model for the post-session synthesis and returns its text
// unparsed. Transport errors are retried with exponential backoff; an empty
// completion is returned as-is for the resolver to reject.
func (c *OpenAIClient) Synthesize(ctx context.Context, clientID, sessionID string, transcript []models.TranscriptEntry) (string, error) {
	userPrompt := fmt.Sprintf("Client %s, session %s. Transcript:\n\n%s", clientID, sessionID, FormatTranscript(transcript))

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := util.CalculateBackoff(c.retryDelay, attempt)
			c.logger.Debug("retrying synthesis", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(lastErr))
			if err := util.Sleep(ctx, wait); err != nil {
				return "", err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: synthesisPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: 0.2,
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("failed to synthesize session after %d attempts: %w", c.maxRetries+1, lastErr)
}

// FormatTranscript renders final transcript lines as "speaker: text"
func FormatTranscript(entries []models.TranscriptEntry) string {
	var b strings.Builder
	for _, e := range entries {
		speaker := e.Speaker
		if speaker == "" {
			speaker = "unknown"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(e.Text))
	}
	return b.String()
}
