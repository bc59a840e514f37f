package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
	"github.com/Rmkrs13/document-analyzer-api/internal/services"
)

var (
	bucketAnalyzer *services.BucketAnalyzerFunction
	once           sync.Once
	initErr        error
)

func init() {
	common.SetupLogging()
	functions.CloudEvent("AnalyzeUpload", analyzeUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// analyzeUpload handles storage.object.v1.finalized events on the upload bucket.
func analyzeUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		bucketAnalyzer, initErr = services.NewBucketAnalyzer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside Process; returning one marks the
	// invocation failed so the event is retried.
	return bucketAnalyzer.Process(ctx, gcsEvent)
}
