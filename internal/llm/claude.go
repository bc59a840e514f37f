package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// ClaudeConfig configures the Anthropic Messages client.
type ClaudeConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Claude talks to the Anthropic Messages API.
type Claude struct {
	client anthropic.Client
	cfg    ClaudeConfig
}

func NewClaude(cfg ClaudeConfig) (*Claude, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Claude{client: anthropic.NewClient(opts...), cfg: cfg}, nil
}

func (c *Claude) Analyze(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	logCtx := slog.With("provider", "claude", "model", c.cfg.Model, "template", req.Template, "mode", req.Mode)

	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.UserText())}
	if req.Mode == models.VisualFallback {
		encoded := base64.StdEncoding.EncodeToString(req.Data)
		if req.MediaType == "application/pdf" {
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded}))
		} else {
			blocks = append(blocks, anthropic.NewImageBlockBase64(req.MediaType, encoded))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		System:    []anthropic.TextBlockParam{{Text: req.Instruction}},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.cfg.Temperature))
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		logCtx.Error("Upstream call failed.", "error", err, "elapsedMs", time.Since(start).Milliseconds())
		return "", common.UpstreamUnavailable(fmt.Errorf("claude messages: %w", err))
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", common.UpstreamUnavailable(fmt.Errorf("no response generated from claude"))
	}
	logCtx.Info("Upstream call complete.", "elapsedMs", time.Since(start).Milliseconds(), "responseLength", response.Len())
	return response.String(), nil
}
