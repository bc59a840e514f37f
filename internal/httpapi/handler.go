// Package httpapi exposes the analysis endpoints over HTTP. The same handlers
// back the standalone server and the Cloud Functions entry points.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
	"github.com/Rmkrs13/document-analyzer-api/internal/services"
)

// Processor runs one upload through the analysis pipeline.
type Processor interface {
	Process(ctx context.Context, ep services.Endpoint, file models.UploadedFile) (*services.Outcome, error)
}

type Config struct {
	SharedSecret       string
	MaxUploadBytes     int64
	IncludeRawResponse bool
}

// ConfigFrom picks the HTTP settings out of the application config.
func ConfigFrom(cfg *common.Config) Config {
	return Config{
		SharedSecret:       cfg.Server.SharedSecret,
		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
		IncludeRawResponse: cfg.Server.IncludeRawResponse,
	}
}

type Handler struct {
	processor Processor
	config    Config
}

func NewHandler(processor Processor, config Config) *Handler {
	return &Handler{processor: processor, config: config}
}

// Endpoint returns the handler for one endpoint profile. Checks run in order:
// preflight, method, bearer secret, multipart body. Nothing reaches the
// pipeline until all of them pass.
func (h *Handler) Endpoint(ep services.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		requestID := requestID(r)
		w.Header().Set("X-Request-Id", requestID)
		logCtx := slog.With("endpoint", ep.Name, "requestId", requestID)

		if r.Method != http.MethodPost {
			h.writeError(w, logCtx, requestID, &common.Error{Kind: common.KindMethodNotAllowed, Message: "Method not allowed"})
			return
		}
		if !h.authorized(r) {
			logCtx.Warn("Rejected request with invalid credentials.", "remoteAddr", r.RemoteAddr)
			h.writeError(w, logCtx, requestID, &common.Error{Kind: common.KindUnauthorized, Message: "Unauthorized access"})
			return
		}

		file, err := h.readFile(w, r)
		if err != nil {
			h.writeError(w, logCtx, requestID, err)
			return
		}

		out, err := h.processor.Process(r.Context(), ep, file)
		if err != nil {
			h.writeError(w, logCtx, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope(ep, out))
	}
}

// Health answers liveness checks. It needs no credentials.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "OK"})
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.config.SharedSecret == "" {
		return false
	}
	want := "Bearer " + h.config.SharedSecret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// readFile returns the part named "file", or the first part carrying a
// filename when no part has that name.
func (h *Handler) readFile(w http.ResponseWriter, r *http.Request) (models.UploadedFile, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return models.UploadedFile{}, common.BadRequest("Missing boundary in content-type")
	}
	if h.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	var fallback *models.UploadedFile
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.UploadedFile{}, bodyError(err)
		}
		if part.FileName() == "" && part.FormName() != "file" {
			part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return models.UploadedFile{}, bodyError(err)
		}
		file := models.UploadedFile{Data: data, MediaType: part.Header.Get("Content-Type"), Filename: part.FileName()}
		if part.FormName() == "file" {
			return file, nil
		}
		if fallback == nil {
			fallback = &file
		}
	}
	if fallback == nil {
		return models.UploadedFile{}, common.BadRequest("No file found in the request")
	}
	return *fallback, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewError(common.KindBadRequest, "File too large", err)
	}
	return common.NewError(common.KindBadRequest, "Invalid multipart body", err)
}

func envelope(ep services.Endpoint, out *services.Outcome) models.SuccessEnvelope {
	env := models.SuccessEnvelope{
		Success:        true,
		FileType:       out.FileType,
		NumPages:       out.Extraction.PageCount,
		ExtractionMode: string(out.Extraction.Mode),
		Adjustments:    out.Adjustments,
	}
	if ep.EnvelopeKey == "content" {
		env.Content = out.Result
	} else {
		env.Data = out.Result
	}
	return env
}

func (h *Handler) writeError(w http.ResponseWriter, logCtx *slog.Logger, requestID string, err error) {
	kind := common.KindOf(err)
	status := common.StatusCode(kind)
	body := models.ErrorEnvelope{RequestID: requestID}

	var appErr *common.Error
	errors.As(err, &appErr)

	switch kind {
	case common.KindBadRequest, common.KindUnauthorized, common.KindMethodNotAllowed:
		body.Error = appErr.Message
		if appErr.Cause != nil {
			body.Details = appErr.Cause.Error()
		}
	case common.KindUnsupportedMedia:
		body.Error = "Only PDF files and images are supported"
		body.Message = appErr.Message
	case common.KindMalformedResponse:
		body.Error = "Failed to parse analysis results"
		body.Details = causeText(appErr)
		h.attachRaw(&body, appErr)
	case common.KindInvalidStructure:
		body.Error = "Invalid analysis structure"
		body.Message = appErr.Message
		body.Details = causeText(appErr)
		h.attachRaw(&body, appErr)
	default:
		body.Error = "Failed to process file"
		body.Message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logCtx.Error("Request failed.", "status", status, "kind", kind, "error", err)
	} else {
		logCtx.Info("Request rejected.", "status", status, "kind", kind, "error", err)
	}
	writeJSON(w, status, body)
}

func (h *Handler) attachRaw(body *models.ErrorEnvelope, appErr *common.Error) {
	if h.config.IncludeRawResponse {
		body.RawResponse = appErr.Raw
	}
}

func causeText(e *common.Error) string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}
