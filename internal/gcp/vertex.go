package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/llm"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// VertexClient holds one pre-configured generative model per template.
// Instructions are fixed per template, so each model carries its own system
// instruction.
type VertexClient struct {
	models     map[llm.Template]*genai.GenerativeModel
	modelName  string
	timeout    time.Duration
	baseClient *genai.Client
}

// NewVertexClient creates a Vertex AI client using Application Default Credentials.
func NewVertexClient(ctx context.Context, projectID, region, modelName string, temperature float32, maxTokens int, timeout time.Duration) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	c := &VertexClient{
		models:     make(map[llm.Template]*genai.GenerativeModel),
		modelName:  modelName,
		timeout:    timeout,
		baseClient: baseClient,
	}
	for _, tpl := range []llm.Template{llm.TemplateMulti, llm.TemplateSingle, llm.TemplateBoundaries} {
		m := baseClient.GenerativeModel(modelName)
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(llm.Instruction(tpl))},
		}
		m.GenerationConfig = genai.GenerationConfig{
			// Force JSON output.
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr(temperature),
		}
		if maxTokens > 0 {
			m.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(maxTokens))
		}
		c.models[tpl] = m
	}
	return c, nil
}

// Analyze implements llm.Analyzer.
func (c *VertexClient) Analyze(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	logCtx := slog.With("provider", "vertex", "model", c.modelName, "template", req.Template, "mode", req.Mode)

	model, ok := c.models[req.Template]
	if !ok {
		model = c.models[llm.TemplateMulti]
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	parts := []genai.Part{genai.Text(req.UserText())}
	if req.Mode == models.VisualFallback {
		parts = append(parts, genai.Blob{MIMEType: req.MediaType, Data: req.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		logCtx.Error("Upstream call failed.", "error", err, "elapsedMs", time.Since(start).Milliseconds())
		return "", common.UpstreamUnavailable(fmt.Errorf("vertex generate content: %w", err))
	}

	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				response.WriteString(string(text))
			}
		}
	}
	if response.Len() == 0 {
		return "", common.UpstreamUnavailable(fmt.Errorf("vertex returned no content"))
	}
	logCtx.Info("Upstream call complete.", "elapsedMs", time.Since(start).Milliseconds(), "responseLength", response.Len())
	return response.String(), nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
