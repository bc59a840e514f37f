package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/extract"
	"github.com/Rmkrs13/document-analyzer-api/internal/gcp"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
	"github.com/Rmkrs13/document-analyzer-api/internal/reconcile"
)

type BucketAnalyzerConfig struct {
	ResultsBucket        string
	SplitDocumentsBucket string
}

// ObjectStore is the subset of GCS the bucket trigger needs.
type ObjectStore interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
	WriteObject(ctx context.Context, bucket, object string, content []byte, contentType string) error
}

// Ledger is the analysis ledger with duplicate lookup.
type Ledger interface {
	Recorder
	FindCompleted(ctx context.Context, fileHash string) (string, bool, error)
	SetWorkflowExecution(ctx context.Context, id, execution string) error
}

// WorkflowStarter hands a finished analysis to a downstream workflow.
type WorkflowStarter interface {
	Trigger(ctx context.Context, payload models.WorkflowPayload) (string, error)
}

// BucketAnalyzerFunction analyzes every PDF or image written to an upload
// bucket, stores the result and per-document PDFs, and starts a workflow.
type BucketAnalyzerFunction struct {
	store    ObjectStore
	ledger   Ledger
	workflow WorkflowStarter
	analyzer *AnalyzerService
	config   BucketAnalyzerConfig
}

func NewBucketAnalyzer(ctx context.Context) (*BucketAnalyzerFunction, error) {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.GCP.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if cfg.GCP.ResultsBucket == "" {
		return nil, fmt.Errorf("RESULTS_BUCKET environment variable must be set")
	}
	if cfg.GCP.FirestoreCollection == "" {
		cfg.GCP.FirestoreCollection = "analyses"
	}

	// The trigger keeps its own ledger, so the pipeline runs without persistence.
	pipelineCfg := *cfg
	pipelineCfg.GCP = common.GCPConfig{ProjectID: cfg.GCP.ProjectID, VertexAIRegion: cfg.GCP.VertexAIRegion, Provider: cfg.GCP.Provider}
	analyzer, err := NewAnalyzer(ctx, &pipelineCfg)
	if err != nil {
		return nil, err
	}

	store, err := gcp.NewStorage(ctx)
	if err != nil {
		return nil, err
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	var workflow WorkflowStarter
	if cfg.GCP.WorkflowID != "" {
		workflow, err = gcp.NewWorkflowTrigger(ctx, cfg.GCP.ProjectID, cfg.GCP.WorkflowLocation, cfg.GCP.WorkflowID)
		if err != nil {
			return nil, err
		}
	}

	f := newBucketAnalyzer(store, gcp.NewLedger(firestoreClient, cfg.GCP.FirestoreCollection), workflow, analyzer, BucketAnalyzerConfig{
		ResultsBucket:        cfg.GCP.ResultsBucket,
		SplitDocumentsBucket: cfg.GCP.SplitDocumentsBucket,
	})
	slog.Info("Bucket analyzer initialized.", "workflowId", cfg.GCP.WorkflowID, "resultsBucket", cfg.GCP.ResultsBucket)
	return f, nil
}

func newBucketAnalyzer(store ObjectStore, ledger Ledger, workflow WorkflowStarter, analyzer *AnalyzerService, config BucketAnalyzerConfig) *BucketAnalyzerFunction {
	return &BucketAnalyzerFunction{store: store, ledger: ledger, workflow: workflow, analyzer: analyzer, config: config}
}

func (f *BucketAnalyzerFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	data, err := f.store.ReadObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source object", "error", err)
		return err
	}

	fileType := extract.NormalizeMediaType(e.ContentType, data)
	if fileType != extract.MediaTypePDF && !isImage(fileType) {
		logCtx.Info("Unsupported object type. Skipping.", "fileType", fileType)
		return nil
	}

	fileHash := HashBytes(data)
	logCtx = logCtx.With("fileHash", fileHash)

	existingID, isDuplicate, err := f.ledger.FindCompleted(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existingID)
		return nil
	}

	recordID, err := f.ledger.Start(ctx, models.AnalysisRecord{
		FileHash:         fileHash,
		OriginalFilename: path.Base(e.Name),
		FileType:         fileType,
		Endpoint:         "bucket-trigger",
	})
	if err != nil {
		logCtx.Error("Failed to create analysis record", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", recordID)

	out, err := f.analyzer.Run(ctx, EndpointProcessDocument, data, fileType)
	if err != nil {
		return f.handleError(ctx, logCtx, recordID, "analysis failed", err)
	}
	result, ok := out.Result.(*models.AnalysisResult)
	if !ok {
		return f.handleError(ctx, logCtx, recordID, "unexpected result type", fmt.Errorf("%T", out.Result))
	}

	resultObject := fileHash + "/analysis.json"
	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return f.handleError(ctx, logCtx, recordID, "failed to marshal result", err)
	}
	if err := f.store.WriteObject(ctx, f.config.ResultsBucket, resultObject, resultJSON, "application/json"); err != nil {
		return f.handleError(ctx, logCtx, recordID, "failed to store result", err)
	}
	resultURI := gcp.GCSURI(f.config.ResultsBucket, resultObject)
	out.ResultURI = resultURI

	var documentURIs []string
	if fileType == extract.MediaTypePDF && f.config.SplitDocumentsBucket != "" {
		// Split ranges must stay inside the file whatever the reconcile policy.
		docs, _ := reconcile.Repair(result.Documents, result.TotalPages)
		documentURIs, err = f.uploadSplitDocuments(ctx, logCtx, fileHash, data, docs)
		if err != nil {
			return f.handleError(ctx, logCtx, recordID, "one or more documents failed to upload", err)
		}
	}

	if err := f.ledger.Complete(ctx, recordID, out.Completion()); err != nil {
		return f.handleError(ctx, logCtx, recordID, "failed to update status to COMPLETED", err)
	}

	if f.workflow != nil {
		if err := f.triggerWorkflow(ctx, logCtx, recordID, result, resultURI, documentURIs); err != nil {
			return err
		}
	}
	logCtx.Info("Bucket analysis complete.", "pageCount", result.TotalPages, "documentCount", len(result.Documents))
	return nil
}

// uploadSplitDocuments writes one PDF per reconciled document, concurrently.
func (f *BucketAnalyzerFunction) uploadSplitDocuments(ctx context.Context, logCtx *slog.Logger, fileHash string, data []byte, docs []models.DocumentRecord) ([]string, error) {
	logCtx.Info("Starting concurrent upload of documents.", "documentCount", len(docs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)

	uris := make([]string, len(docs))
	for i, d := range docs {
		object := fmt.Sprintf("%s/document-%02d.pdf", fileHash, i+1)
		uris[i] = gcp.GCSURI(f.config.SplitDocumentsBucket, object)
		eg.Go(func() error {
			part, err := SplitPages(data, d.StartPage, d.EndPage)
			if err != nil {
				return fmt.Errorf("document %d: %w", i+1, err)
			}
			if err := f.store.WriteObject(gctx, f.config.SplitDocumentsBucket, object, part, extract.MediaTypePDF); err != nil {
				return fmt.Errorf("document %d: %w", i+1, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logCtx.Info("All documents uploaded successfully.")
	return uris, nil
}

func (f *BucketAnalyzerFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, recordID string, result *models.AnalysisResult, resultURI string, documentURIs []string) error {
	logCtx.Info("Triggering workflow.")
	execution, err := f.workflow.Trigger(ctx, models.WorkflowPayload{
		DocumentID:    recordID,
		PageCount:     result.TotalPages,
		DocumentCount: len(result.Documents),
		ResultURI:     resultURI,
		DocumentURIs:  documentURIs,
	})
	if err != nil {
		return f.handleError(ctx, logCtx, recordID, "failed to trigger workflow execution", err)
	}
	if err := f.ledger.SetWorkflowExecution(ctx, recordID, execution); err != nil {
		logCtx.Warn("Failed to record workflow execution.", "error", err)
	}
	logCtx.Info("Hand-off to workflow complete.", "execution", execution)
	return nil
}

func (f *BucketAnalyzerFunction) handleError(ctx context.Context, logCtx *slog.Logger, recordID, message string, originalErr error) error {
	fullError := fmt.Errorf("%s: %w", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.ledger.Fail(ctx, recordID, fullError.Error()); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fullError
}

// SplitPages returns a PDF holding pages start through end of data.
func SplitPages(data []byte, start, end int) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &buf, []string{fmt.Sprintf("%d-%d", start, end)}, extract.RelaxedConfig()); err != nil {
		return nil, fmt.Errorf("trim pages %d-%d: %w", start, end, err)
	}
	return buf.Bytes(), nil
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
