package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// OpenAIConfig configures the chat/completions client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // default https://api.openai.com/v1
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAI talks to an OpenAI-compatible chat/completions endpoint.
type OpenAI struct {
	llm *openai.LLM
	cfg OpenAIConfig
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAI{llm: model, cfg: cfg}, nil
}

func (c *OpenAI) Analyze(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	logCtx := slog.With("provider", "openai", "model", c.cfg.Model, "template", req.Template, "mode", req.Mode)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.Instruction),
		{Role: llms.ChatMessageTypeHuman, Parts: openAIUserParts(req)},
	}
	callOpts := []llms.CallOption{
		llms.WithJSONMode(),
		llms.WithTemperature(float64(c.cfg.Temperature)),
	}
	if c.cfg.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.cfg.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		logCtx.Error("Upstream call failed.", "error", err, "elapsedMs", time.Since(start).Milliseconds())
		return "", common.UpstreamUnavailable(fmt.Errorf("openai chat completion: %w", err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", common.UpstreamUnavailable(fmt.Errorf("no content in openai response"))
	}
	content := resp.Choices[0].Content
	logCtx.Info("Upstream call complete.", "elapsedMs", time.Since(start).Milliseconds(), "responseLength", len(content))
	return content, nil
}

// openAIUserParts is the text alone in text mode. In visual mode the upload
// follows as an inline data URL, PDFs included.
func openAIUserParts(req Request) []llms.ContentPart {
	if req.Mode != models.VisualFallback {
		return []llms.ContentPart{llms.TextPart(req.Text)}
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MediaType, base64.StdEncoding.EncodeToString(req.Data))
	return []llms.ContentPart{
		llms.TextPart(req.UserNote()),
		llms.ImageURLPart(dataURL),
	}
}
