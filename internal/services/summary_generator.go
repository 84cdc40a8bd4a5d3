package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"sumup/internal/models"
)

// Generation parameters
const (
	summaryTemperature = 0.8
	defaultModel       = openai.GPT4oMini
)

// ErrGenerationFailed wraps every failure of the text-generation call
var ErrGenerationFailed = errors.New("summary generation failed")

// SummaryWriter turns normalized post text into a generated summary
type SummaryWriter interface {
	Supports(summaryType models.SummaryType) bool
	GenerateSummary(ctx context.Context, postText, displayName string, summaryType models.SummaryType, style string) (string, error)
}

// SummaryGenerator generates summaries through an OpenAI-compatible API
type SummaryGenerator struct {
	client  *openai.Client
	model   string
	prompts *PromptLibrary
}

// SummaryGeneratorConfig holds configuration for the generator
type SummaryGeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewSummaryGenerator creates a new generator instance
func NewSummaryGenerator(cfg SummaryGeneratorConfig, prompts *PromptLibrary) *SummaryGenerator {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &SummaryGenerator{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		prompts: prompts,
	}
}

// Supports reports whether summaryType has a prompt template
func (g *SummaryGenerator) Supports(summaryType models.SummaryType) bool {
	return g.prompts.Current().Has(summaryType)
}

// BuildPrompt assembles the instruction sent to the model
func (g *SummaryGenerator) BuildPrompt(postText, displayName string, summaryType models.SummaryType, style string) (string, error) {
	return g.prompts.Current().Build(postText, displayName, summaryType, style)
}

// GenerateSummary sends the assembled prompt as a single user message and
// returns the completion text unchanged.
func (g *SummaryGenerator) GenerateSummary(ctx context.Context, postText, displayName string, summaryType models.SummaryType, style string) (string, error) {
	prompt, err := g.BuildPrompt(postText, displayName, summaryType, style)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: summaryTemperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	GetMetrics().RecordGenerationLatency(latency.Seconds())

	if err != nil {
		slog.Error("summary_generation_failed",
			"model", g.model,
			"type", summaryType,
			"error", err,
			"latency_ms", latency.Milliseconds())
		GetMetrics().RecordUpstreamError("generation")
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		GetMetrics().RecordUpstreamError("generation")
		return "", fmt.Errorf("%w: empty response from model", ErrGenerationFailed)
	}

	slog.Debug("summary_generated",
		"model", g.model,
		"type", summaryType,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"latency_ms", latency.Milliseconds())

	return resp.Choices[0].Message.Content, nil
}
