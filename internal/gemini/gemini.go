package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"statuscomms/internal/metrics"
)

// Shape names one of the three structured call kinds.
type Shape string

const (
	ShapeExtract  Shape = "extract"
	ShapeGenerate Shape = "generate"
	ShapeJudge    Shape = "judge"
)

// ErrEmptyResponse means the service answered with no text at all.
var ErrEmptyResponse = errors.New("empty response text")

type Request struct {
	Shape           Shape
	SystemPrompt    string
	UserPrompt      string
	ResponseSchema  any
	Temperature     float32
	MaxOutputTokens int32
}

type Usage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CandidateTokens  int32 `json:"candidate_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
	CachedTokenCount int32 `json:"cached_token_count"`
}

type Response struct {
	Text     string
	Usage    *Usage
	Model    string
	Attempts int
}

// Service submits structured instructions and returns the structured text reply.
// Implementations must be safe for concurrent use.
type Service interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

type Options struct {
	APIKey string
	Model  string
	Retry  RetryPolicy
	Logger *slog.Logger
}

// Client wraps one genai client shared by every request. It holds no
// per-request state.
type Client struct {
	genai  *genai.Client
	model  string
	retry  RetryPolicy
	logger *slog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := opts.Retry
	retry.Logger = logger
	return &Client{genai: gc, model: opts.Model, retry: retry, logger: logger}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate runs req under the client's retry policy.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	return c.retry.Do(ctx, req.Shape, func(ctx context.Context) (Response, error) {
		return c.once(ctx, req)
	})
}

func (c *Client) once(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	result, err := c.genai.Models.GenerateContent(ctx, c.model, buildContents(req), buildConfig(req))
	metrics.ServiceLatency.WithLabelValues(string(req.Shape)).Observe(time.Since(start).Seconds())
	if err != nil {
		return Response{}, fmt.Errorf("generate content: %w", err)
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return Response{}, ErrEmptyResponse
	}
	return Response{
		Text:  text,
		Usage: extractUsage(result.UsageMetadata),
		Model: c.model,
	}, nil
}

func buildConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:     &req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.ResponseSchema
	}
	return cfg
}

func buildContents(req Request) []*genai.Content {
	return []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: req.UserPrompt}},
	}}
}

func extractUsage(meta *genai.GenerateContentResponseUsageMetadata) *Usage {
	if meta == nil {
		return nil
	}
	return &Usage{
		PromptTokens:     meta.PromptTokenCount,
		CandidateTokens:  meta.CandidatesTokenCount,
		TotalTokens:      meta.TotalTokenCount,
		CachedTokenCount: meta.CachedContentTokenCount,
	}
}

// StripFences removes a surrounding ```json fence some models add despite
// the JSON response type.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
