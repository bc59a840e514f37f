package httpapi

import (
	"context"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/services"
)

// NewHandlerFromEnv loads and validates the configuration and wires the
// analysis pipeline behind a Handler.
func NewHandlerFromEnv(ctx context.Context) (*Handler, *common.Config, error) {
	cfg := common.LoadConfig()
	if err := cfg.ValidateServer(); err != nil {
		return nil, nil, err
	}
	analyzer, err := services.NewAnalyzer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewHandler(analyzer, ConfigFrom(cfg)), cfg, nil
}
