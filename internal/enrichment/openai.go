package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const summarySystemPrompt = `You write summaries for a consumer health news site. ` +
	`Given an article title, write a two sentence summary of what the article likely covers. ` +
	`Be factual and specific. Do not restate the title. Do not invent study results, ` +
	`statistics, or quotes. Respond with the summary text only.`

// OpenAIConfig holds settings for the AI summary writer.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     int // seconds
}

// DefaultOpenAIConfig returns sensible defaults for short summary generation.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.4,
		MaxTokens:   200,
		Timeout:     30,
	}
}

// OpenAIWriter generates article summaries with the OpenAI API.
type OpenAIWriter struct {
	client *openai.Client
	config OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIWriter creates an AI summary writer. The zero fields of config
// are filled from the defaults.
func NewOpenAIWriter(config OpenAIConfig, logger *slog.Logger) *OpenAIWriter {
	defaults := DefaultOpenAIConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Temperature <= 0 {
		config.Temperature = defaults.Temperature
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &OpenAIWriter{
		client: openai.NewClient(config.APIKey),
		config: config,
		logger: logger,
	}
}

// WriteSummary asks the model for a short summary of the article. Rate
// limit responses are retried with exponential backoff before giving up.
func (w *OpenAIWriter) WriteSummary(ctx context.Context, title, category, source string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("empty title")
	}

	prompt := fmt.Sprintf("Title: %s\nCategory: %s\nSource: %s", title, category, source)

	const maxRetries = 3
	baseDelay := 1 * time.Second

	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		apiCtx, cancel := context.WithTimeout(ctx, time.Duration(w.config.Timeout)*time.Second)
		resp, err = w.client.CreateChatCompletion(apiCtx, openai.ChatCompletionRequest{
			Model:               w.config.Model,
			Temperature:         w.config.Temperature,
			MaxCompletionTokens: w.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		cancel()

		if err == nil {
			break
		}

		errStr := err.Error()
		rateLimited := strings.Contains(errStr, "429") ||
			strings.Contains(errStr, "Too Many Requests") ||
			strings.Contains(errStr, "Rate limit")
		if !rateLimited || attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<uint(attempt))
		delay += time.Duration(rand.Intn(500)) * time.Millisecond
		w.logger.Warn("openai rate limited, retrying",
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err != nil {
		return "", fmt.Errorf("openai api call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned from model %s", w.config.Model)
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	summary = strings.Trim(summary, `"`)
	if len(summary) < 20 {
		return "", fmt.Errorf("summary too short from model %s (%d chars)", w.config.Model, len(summary))
	}

	w.logger.Debug("generated ai summary",
		"model", w.config.Model,
		"title", title,
		"length", len(summary))

	return summary, nil
}
