package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/httpapi"
	"github.com/Rmkrs13/document-analyzer-api/internal/services"
)

var (
	handler *httpapi.Handler
	once    sync.Once
	initErr error
)

func init() {
	common.SetupLogging()

	// One entry point per endpoint profile; deploy with --entry-point.
	functions.HTTP("Upload", serve(services.EndpointUpload))
	functions.HTTP("ProcessDocument", serve(services.EndpointProcessDocument))
	functions.HTTP("Analyze", serve(services.EndpointAnalyze))
	functions.HTTP("PageSplitter", serve(services.EndpointPageSplitter))
}

// main is required by the Go Functions Framework.
func main() {}

func serve(ep services.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			handler, _, initErr = httpapi.NewHandlerFromEnv(context.Background())
		})
		if initErr != nil {
			slog.Error("CRITICAL: Analyzer initialization failed.", "error", initErr)
			http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
			return
		}
		handler.Endpoint(ep)(w, r)
	}
}
