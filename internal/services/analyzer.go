package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/extract"
	"github.com/Rmkrs13/document-analyzer-api/internal/llm"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
	"github.com/Rmkrs13/document-analyzer-api/internal/reconcile"
	"github.com/Rmkrs13/document-analyzer-api/internal/sanitize"
)

// Endpoint is the profile of one analysis endpoint: which instruction it
// sends, which key its envelope uses and which uploads it accepts.
type Endpoint struct {
	Name        string
	Template    llm.Template
	EnvelopeKey string
	PDFOnly     bool
}

var (
	EndpointUpload          = Endpoint{Name: "upload", Template: llm.TemplateMulti, EnvelopeKey: "content"}
	EndpointProcessDocument = Endpoint{Name: "process-document", Template: llm.TemplateMulti, EnvelopeKey: "content"}
	EndpointAnalyze         = Endpoint{Name: "analyze", Template: llm.TemplateSingle, EnvelopeKey: "data"}
	EndpointPageSplitter    = Endpoint{Name: "page-splitter", Template: llm.TemplateBoundaries, EnvelopeKey: "data", PDFOnly: true}
)

// Endpoints lists every profile in routing order.
var Endpoints = []Endpoint{EndpointUpload, EndpointProcessDocument, EndpointAnalyze, EndpointPageSplitter}

// Extractor classifies uploaded bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (*models.ExtractionResult, error)
}

// Archiver stores uploads and results. Implementations may return an empty
// URI when storage of that kind is disabled.
type Archiver interface {
	ArchiveUpload(ctx context.Context, key string, file models.UploadedFile) (string, error)
	SaveResult(ctx context.Context, key string, v any) (string, error)
}

// Recorder keeps the analysis ledger.
type Recorder interface {
	Start(ctx context.Context, rec models.AnalysisRecord) (string, error)
	Complete(ctx context.Context, id string, c models.Completion) error
	Fail(ctx context.Context, id, details string) error
}

type AnalyzerConfig struct {
	Policy  reconcile.Policy
	Timeout time.Duration
}

// AnalyzerService runs Extractor -> Client -> Sanitizer -> Reconciler for
// every endpoint profile.
type AnalyzerService struct {
	extractor Extractor
	client    llm.Analyzer
	config    AnalyzerConfig
	archive   Archiver
	ledger    Recorder
}

type Option func(*AnalyzerService)

// WithArchive stores every upload and its result. Storage failures are logged
// and never fail a request.
func WithArchive(a Archiver) Option {
	return func(s *AnalyzerService) { s.archive = a }
}

// WithRecorder keeps a ledger entry per request. Ledger failures are logged
// and never fail a request.
func WithRecorder(r Recorder) Option {
	return func(s *AnalyzerService) { s.ledger = r }
}

func NewAnalyzerService(extractor Extractor, client llm.Analyzer, config AnalyzerConfig, opts ...Option) *AnalyzerService {
	if config.Policy == "" {
		config.Policy = reconcile.PolicyRepair
	}
	s := &AnalyzerService{extractor: extractor, client: client, config: config}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is everything an endpoint needs to build its response.
type Outcome struct {
	Endpoint    Endpoint
	FileType    string
	FileHash    string
	Extraction  *models.ExtractionResult
	Result      any
	Adjustments []models.Adjustment
	ResultURI   string
}

// DocumentCount is the number of logical documents in the result.
func (o *Outcome) DocumentCount() int {
	switch r := o.Result.(type) {
	case *models.AnalysisResult:
		return len(r.Documents)
	case *models.BoundaryResult:
		return r.TotalDocuments
	case models.SingleDocument:
		return 1
	}
	return 0
}

// DocumentIndex flattens the result into one ledger entry per document.
func (o *Outcome) DocumentIndex() []models.DocumentIndex {
	switch r := o.Result.(type) {
	case *models.AnalysisResult:
		idx := make([]models.DocumentIndex, len(r.Documents))
		for i, d := range r.Documents {
			idx[i] = d.Summary().Index(d.StartPage, d.EndPage)
		}
		return idx
	case models.SingleDocument:
		return []models.DocumentIndex{r.Summary().Index(1, o.Extraction.PageCount)}
	case *models.BoundaryResult:
		idx := make([]models.DocumentIndex, len(r.DocumentBoundaries))
		for i, b := range r.DocumentBoundaries {
			end := r.TotalPages
			if i+1 < len(r.DocumentBoundaries) {
				end = r.DocumentBoundaries[i+1].StartPage - 1
			}
			idx[i] = models.DocumentIndex{StartPage: b.StartPage, EndPage: end}
		}
		return idx
	}
	return nil
}

// Completion is the ledger summary of a successful outcome.
func (o *Outcome) Completion() models.Completion {
	return models.Completion{
		Mode:          o.Extraction.Mode,
		PageCount:     o.Extraction.PageCount,
		DocumentCount: o.DocumentCount(),
		ResultURI:     o.ResultURI,
		Documents:     o.DocumentIndex(),
	}
}

// Process analyzes one upload under an endpoint profile.
func (s *AnalyzerService) Process(ctx context.Context, ep Endpoint, file models.UploadedFile) (*Outcome, error) {
	fileType := extract.NormalizeMediaType(file.MediaType, file.Data)
	fileHash := HashBytes(file.Data)
	logCtx := slog.With("endpoint", ep.Name, "filename", file.Filename, "fileType", fileType, "fileHash", fileHash)
	logCtx.Info("Processing upload.", "size", len(file.Data))

	if ep.PDFOnly && fileType != extract.MediaTypePDF {
		return nil, common.BadRequest("Only PDF files are supported for page splitting")
	}

	recordID := s.startRecord(ctx, logCtx, ep, file, fileType, fileHash)
	if s.archive != nil {
		if uri, err := s.archive.ArchiveUpload(ctx, fileHash, file); err != nil {
			logCtx.Warn("Failed to archive upload.", "error", err)
		} else if uri != "" {
			logCtx.Info("Archived upload.", "uri", uri)
		}
	}

	out, err := s.Run(ctx, ep, file.Data, fileType)
	if err != nil {
		logCtx.Error("Analysis failed.", "error", err, "kind", common.KindOf(err))
		s.failRecord(ctx, logCtx, recordID, err)
		return nil, err
	}
	out.FileHash = fileHash

	if s.archive != nil {
		if uri, err := s.archive.SaveResult(ctx, fileHash, out.Result); err != nil {
			logCtx.Warn("Failed to archive result.", "error", err)
		} else {
			out.ResultURI = uri
		}
	}
	if s.ledger != nil && recordID != "" {
		if err := s.ledger.Complete(ctx, recordID, out.Completion()); err != nil {
			logCtx.Warn("Failed to complete analysis record.", "error", err)
		}
	}
	logCtx.Info("Analysis complete.", "mode", out.Extraction.Mode, "pageCount", out.Extraction.PageCount, "documentCount", out.DocumentCount(), "adjustments", len(out.Adjustments))
	return out, nil
}

// Run is the persistence-free core of Process.
func (s *AnalyzerService) Run(ctx context.Context, ep Endpoint, data []byte, fileType string) (*Outcome, error) {
	res, err := s.extractor.Extract(ctx, data, fileType)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	raw, err := s.client.Analyze(callCtx, llm.NewRequest(ep.Template, res))
	if err != nil {
		if common.KindOf(err) == common.KindInternal {
			err = common.UpstreamUnavailable(err)
		}
		return nil, err
	}

	parsed, err := sanitize.Parse(raw)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Endpoint: ep, FileType: fileType, Extraction: res}
	switch ep.Template {
	case llm.TemplateSingle:
		out.Result, err = reconcile.Single(parsed)
	case llm.TemplateBoundaries:
		out.Result, err = reconcile.Boundaries(parsed, res.PageCount)
	default:
		var result *models.AnalysisResult
		result, out.Adjustments, err = reconcile.Analysis(parsed, res.PageCount, s.config.Policy)
		out.Result = result
	}
	if err != nil {
		return nil, withRaw(err, raw)
	}
	return out, nil
}

func (s *AnalyzerService) startRecord(ctx context.Context, logCtx *slog.Logger, ep Endpoint, file models.UploadedFile, fileType, fileHash string) string {
	if s.ledger == nil {
		return ""
	}
	id, err := s.ledger.Start(ctx, models.AnalysisRecord{
		FileHash:         fileHash,
		OriginalFilename: file.Filename,
		FileType:         fileType,
		Endpoint:         ep.Name,
	})
	if err != nil {
		logCtx.Warn("Failed to create analysis record.", "error", err)
		return ""
	}
	return id
}

func (s *AnalyzerService) failRecord(ctx context.Context, logCtx *slog.Logger, id string, cause error) {
	if s.ledger == nil || id == "" {
		return
	}
	if err := s.ledger.Fail(ctx, id, cause.Error()); err != nil {
		logCtx.Error("CRITICAL: Failed to update analysis record to FAILED.", "updateError", err)
	}
}

// withRaw attaches the upstream text to a structure failure for diagnostics.
func withRaw(err error, raw string) error {
	if appErr, ok := err.(*common.Error); ok && appErr.Raw == "" {
		cp := *appErr
		cp.Raw = raw
		return &cp
	}
	return err
}

// HashBytes returns the hex sha256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
