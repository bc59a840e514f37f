package common

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LLM_PROVIDER", "LLM_TIMEOUT", "MAX_UPLOAD_BYTES", "BOUNDARY_POLICY", "INCLUDE_RAW_RESPONSE", "API_KEY", "SECRET_KEY"} {
		t.Setenv(k, "")
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SHARED_SECRET", "s3cret")

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.SharedSecret)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxUploadBytes)
	assert.True(t, cfg.Server.IncludeRawResponse)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 50, cfg.Extract.MinTextChars)
	assert.Equal(t, 1500, cfg.Extract.MaxImageEdge)
	assert.Equal(t, 85, cfg.Extract.JPEGQuality)
	assert.Equal(t, "repair", cfg.Reconcile.Policy)
	require.NoError(t, cfg.ValidateServer())
}

func TestLoadConfigAliases(t *testing.T) {
	t.Setenv("API_KEY", "primary")
	t.Setenv("OPENAI_API_KEY", "alias")
	t.Setenv("SHARED_SECRET", "")
	t.Setenv("SECRET_KEY", "legacy")

	cfg := LoadConfig()
	assert.Equal(t, "primary", cfg.LLM.APIKey)
	assert.Equal(t, "legacy", cfg.Server.SharedSecret)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "3000", SharedSecret: "x", MaxUploadBytes: 1},
			LLM:       LLMConfig{Provider: "openai", APIKey: "k", Timeout: time.Second},
			Extract:   ExtractConfig{MinTextChars: 50, MaxImageEdge: 1500, JPEGQuality: 85},
			Reconcile: ReconcileConfig{Policy: "repair"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "llama" }, wantErr: true},
		{name: "unknown policy", mutate: func(c *Config) { c.Reconcile.Policy = "guess" }, wantErr: true},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: true},
		{name: "vertex needs no api key", mutate: func(c *Config) {
			c.LLM.Provider, c.LLM.APIKey = "vertex", ""
			c.GCP.Provider, c.GCP.ProjectID = "vertex", "proj"
		}},
		{name: "vertex needs project", mutate: func(c *Config) {
			c.LLM.Provider, c.LLM.APIKey = "vertex", ""
			c.GCP.Provider = "vertex"
		}, wantErr: true},
		{name: "jpeg quality out of range", mutate: func(c *Config) { c.Extract.JPEGQuality = 101 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindInternal, KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateServerNeedsSecret(t *testing.T) {
	c := &Config{
		Server:    ServerConfig{Port: "3000", MaxUploadBytes: 1},
		LLM:       LLMConfig{Provider: "openai", APIKey: "k", Timeout: time.Second},
		Extract:   ExtractConfig{MinTextChars: 50, MaxImageEdge: 1500, JPEGQuality: 85},
		Reconcile: ReconcileConfig{Policy: "repair"},
	}
	require.NoError(t, c.Validate())
	require.Error(t, c.ValidateServer())

	c.Server.SharedSecret = "s3cret"
	assert.NoError(t, c.ValidateServer())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestErrorKinds(t *testing.T) {
	err := MalformedResponse("not json", errors.New("unexpected token"))
	wrapped := errors.Join(errors.New("context"), err)

	assert.True(t, errors.Is(wrapped, ErrMalformedResponse))
	assert.False(t, errors.Is(wrapped, ErrInvalidStructure))
	assert.Equal(t, KindMalformedResponse, KindOf(wrapped))

	var appErr *Error
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "not json", appErr.Raw)

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	assert.Equal(t, http.StatusBadRequest, StatusCode(KindUnsupportedMedia))
	assert.Equal(t, http.StatusForbidden, StatusCode(KindUnauthorized))
	assert.Equal(t, http.StatusMethodNotAllowed, StatusCode(KindMethodNotAllowed))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(KindUpstreamUnavailable))
}
