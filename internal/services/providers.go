package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/extract"
	"github.com/Rmkrs13/document-analyzer-api/internal/gcp"
	"github.com/Rmkrs13/document-analyzer-api/internal/llm"
	"github.com/Rmkrs13/document-analyzer-api/internal/reconcile"
)

// NewProvider builds the content-understanding client selected by LLM_PROVIDER.
func NewProvider(ctx context.Context, cfg *common.Config) (llm.Analyzer, error) {
	c := cfg.LLM
	switch c.Provider {
	case "gemini":
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey: c.APIKey, Model: c.Model, BaseURL: c.BaseURL, Temperature: c.Temperature, MaxTokens: c.MaxTokens, Timeout: c.Timeout,
		})
	case "claude":
		return llm.NewClaude(llm.ClaudeConfig{
			APIKey: c.APIKey, Model: c.Model, BaseURL: c.BaseURL, Temperature: c.Temperature, MaxTokens: c.MaxTokens, Timeout: c.Timeout,
		})
	case "vertex":
		return gcp.NewVertexClient(ctx, cfg.GCP.ProjectID, cfg.GCP.VertexAIRegion, c.Model, c.Temperature, c.MaxTokens, c.Timeout)
	case "openai", "":
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey: c.APIKey, Model: c.Model, BaseURL: c.BaseURL, Temperature: c.Temperature, MaxTokens: c.MaxTokens, Timeout: c.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
}

// NewAnalyzer wires the full pipeline from configuration, including the
// optional GCS archive and Firestore ledger.
func NewAnalyzer(ctx context.Context, cfg *common.Config) (*AnalyzerService, error) {
	policy, err := reconcile.ParsePolicy(cfg.Reconcile.Policy)
	if err != nil {
		return nil, err
	}
	client, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
	}

	var opts []Option
	if cfg.GCP.ArchiveBucket != "" || cfg.GCP.ResultsBucket != "" {
		store, err := gcp.NewStorage(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithArchive(gcp.NewArchive(store, cfg.GCP.ArchiveBucket, cfg.GCP.ResultsBucket)))
	}
	if cfg.GCP.FirestoreCollection != "" {
		fs, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithRecorder(gcp.NewLedger(fs, cfg.GCP.FirestoreCollection)))
	}

	slog.Info("Analyzer initialized.", "config", cfg.String(), "archive", cfg.GCP.ArchiveBucket != "" || cfg.GCP.ResultsBucket != "", "ledger", cfg.GCP.FirestoreCollection != "")
	return NewAnalyzerService(extract.New(cfg.Extract), client, AnalyzerConfig{Policy: policy, Timeout: cfg.LLM.Timeout}, opts...), nil
}
