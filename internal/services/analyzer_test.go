package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/extract"
	"github.com/Rmkrs13/document-analyzer-api/internal/llm"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
	"github.com/Rmkrs13/document-analyzer-api/internal/reconcile"
	"github.com/Rmkrs13/document-analyzer-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceText = "INVOICE INV-2024-001\nACME Supplies Ltd, 1 Industrial Way, Leeds\nBill to: Jane Doe\nAmount due: 1250.00 GBP\nDue date: 2024-03-01"

const singleInvoiceAnswer = "```json\n" + `{
  "totalPages": 3,
  "documents": [{
    "startPage": 1, "endPage": 1,
    "sender": {"name": "ACME Supplies Ltd", "address": "1 Industrial Way, Leeds"},
    "receiver": {"name": "Jane Doe"},
    "documentDetails": {"invoiceAmount": 1250, "documentType": "invoice"}
  }]
}` + "\n```"

func newTestExtractor() *extract.Extractor {
	return extract.New(common.ExtractConfig{MinTextChars: 50, MaxImageEdge: 1500, JPEGQuality: 85})
}

func fixedAnalyzer(answer string, seen *llm.Request) llm.Analyzer {
	return llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		if seen != nil {
			*seen = req
		}
		return answer, nil
	})
}

func TestProcessTextInvoice(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText)
	require.NoError(t, err)

	var seen llm.Request
	svc := NewAnalyzerService(newTestExtractor(), fixedAnalyzer(singleInvoiceAnswer, &seen), AnalyzerConfig{})
	out, err := svc.Process(context.Background(), EndpointProcessDocument, models.UploadedFile{Data: data, MediaType: "application/pdf", Filename: "invoice.pdf"})
	require.NoError(t, err)

	assert.Equal(t, models.NativeText, out.Extraction.Mode)
	assert.Equal(t, models.NativeText, seen.Mode)
	assert.Contains(t, seen.Text, "INVOICE")
	assert.Equal(t, llm.MultiDocumentPrompt, seen.Instruction)

	result := out.Result.(*models.AnalysisResult)
	assert.Equal(t, 1, result.TotalPages)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, 1, result.Documents[0].StartPage)
	assert.Equal(t, 1, result.Documents[0].EndPage)
	assert.Equal(t, models.NewAmount(1250), result.Documents[0].Summary().DocumentDetails.InvoiceAmount)
	assert.Equal(t, HashBytes(data), out.FileHash)
}

func TestProcessScannedPDF(t *testing.T) {
	data, err := testutil.BlankPDF(4)
	require.NoError(t, err)

	answer := `{"totalPages": 2, "documents": [
		{"startPage": 1, "endPage": 2, "sender": {"name": "Council"}},
		{"startPage": 3, "endPage": 4, "sender": {"name": "Utility Co"}}
	]}`
	var seen llm.Request
	svc := NewAnalyzerService(newTestExtractor(), fixedAnalyzer(answer, &seen), AnalyzerConfig{Policy: reconcile.PolicyStrict})
	out, err := svc.Process(context.Background(), EndpointUpload, models.UploadedFile{Data: data, MediaType: "application/pdf"})
	require.NoError(t, err)

	assert.Equal(t, models.VisualFallback, out.Extraction.Mode)
	assert.Equal(t, models.VisualFallback, seen.Mode)
	assert.Equal(t, data, seen.Data)
	assert.Equal(t, "application/pdf", seen.MediaType)

	result := out.Result.(*models.AnalysisResult)
	assert.Equal(t, 4, result.TotalPages)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, 2, out.DocumentCount())
}

func TestProcessAnalyzeSingleDocument(t *testing.T) {
	png, err := testutil.NoisePNG(30, 30)
	require.NoError(t, err)

	var seen llm.Request
	svc := NewAnalyzerService(newTestExtractor(), fixedAnalyzer(`{"sender":{"name":"ACME"},"receiver":{"name":"Jane"},"documentDetails":{"invoiceAmount":"$12.00"}}`, &seen), AnalyzerConfig{})
	out, err := svc.Process(context.Background(), EndpointAnalyze, models.UploadedFile{Data: png, MediaType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, llm.SingleDocumentPrompt, seen.Instruction)
	assert.Equal(t, 1, out.Extraction.PageCount)
	doc := out.Result.(models.SingleDocument)
	assert.Equal(t, models.NewNullString("ACME"), doc.Summary().Sender.Name)
	assert.Equal(t, models.NewAmount(12), doc.Summary().DocumentDetails.InvoiceAmount)
	assert.Equal(t, "image/png", out.FileType)
	assert.Equal(t, []models.DocumentIndex{{StartPage: 1, EndPage: 1, Sender: "ACME", Receiver: "Jane", InvoiceAmount: ptr(12.0)}}, out.DocumentIndex())
}

func TestProcessPageSplitter(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText, invoiceText, invoiceText)
	require.NoError(t, err)

	var seen llm.Request
	answer := `{"totalPages": 2, "totalDocuments": 2, "documentBoundaries": [{"documentNumber": 1, "startPage": 1}, {"documentNumber": 2, "startPage": 3}]}`
	svc := NewAnalyzerService(newTestExtractor(), fixedAnalyzer(answer, &seen), AnalyzerConfig{})
	out, err := svc.Process(context.Background(), EndpointPageSplitter, models.UploadedFile{Data: data, MediaType: "application/pdf"})
	require.NoError(t, err)

	assert.Contains(t, seen.Text, "Total pages in PDF: 3")
	assert.Contains(t, seen.Text, "--- PAGE 2 ---")
	result := out.Result.(*models.BoundaryResult)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 2, result.TotalDocuments)
	assert.Equal(t, []models.DocumentIndex{{StartPage: 1, EndPage: 2}, {StartPage: 3, EndPage: 3}}, out.DocumentIndex())
}

func ptr[T any](v T) *T {
	return &v
}

func TestProcessPageSplitterRejectsImages(t *testing.T) {
	png, err := testutil.NoisePNG(10, 10)
	require.NoError(t, err)

	called := false
	svc := NewAnalyzerService(newTestExtractor(), llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		called = true
		return "", nil
	}), AnalyzerConfig{})
	_, err = svc.Process(context.Background(), EndpointPageSplitter, models.UploadedFile{Data: png, MediaType: "image/png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrBadRequest))
	assert.False(t, called)
}

func TestProcessErrors(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText)
	require.NoError(t, err)
	file := models.UploadedFile{Data: data, MediaType: "application/pdf"}

	tests := []struct {
		name     string
		analyzer llm.Analyzer
		want     error
		raw      string
	}{
		{
			name: "upstream failure",
			analyzer: llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
				return "", errors.New("connection reset")
			}),
			want: common.ErrUpstreamUnavailable,
		},
		{
			name:     "malformed answer",
			analyzer: fixedAnalyzer("Sorry, I cannot help with that.", nil),
			want:     common.ErrMalformedResponse,
			raw:      "Sorry, I cannot help with that.",
		},
		{
			name:     "missing documents",
			analyzer: fixedAnalyzer(`{"totalPages": 1}`, nil),
			want:     common.ErrInvalidStructure,
			raw:      `{"totalPages": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAnalyzerService(newTestExtractor(), tt.analyzer, AnalyzerConfig{})
			_, err := svc.Process(context.Background(), EndpointProcessDocument, file)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())

			var appErr *common.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.raw, appErr.Raw)
		})
	}
}

func TestProcessAppliesTimeout(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText)
	require.NoError(t, err)

	slow := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		<-ctx.Done()
		return "", common.UpstreamUnavailable(ctx.Err())
	})
	svc := NewAnalyzerService(newTestExtractor(), slow, AnalyzerConfig{Timeout: 20 * time.Millisecond})
	_, err = svc.Process(context.Background(), EndpointProcessDocument, models.UploadedFile{Data: data, MediaType: "application/pdf"})
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type fakeArchive struct {
	mu      sync.Mutex
	uploads map[string]models.UploadedFile
	results map[string]any
}

func (a *fakeArchive) ArchiveUpload(ctx context.Context, key string, file models.UploadedFile) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads[key] = file
	return "gs://archive/" + key + "/" + file.Filename, nil
}

func (a *fakeArchive) SaveResult(ctx context.Context, key string, v any) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[key] = v
	return "gs://results/" + key + "/analysis.json", nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records map[string]*models.AnalysisRecord
	next    int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{records: map[string]*models.AnalysisRecord{}}
}

func (r *fakeRecorder) Start(ctx context.Context, rec models.AnalysisRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := fmt.Sprintf("rec-%d", r.next)
	rec.Status = models.StatusProcessing
	r.records[id] = &rec
	return id, nil
}

func (r *fakeRecorder) Complete(ctx context.Context, id string, c models.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[id]
	rec.Status, rec.ExtractionMode, rec.PageCount, rec.DocumentCount = models.StatusCompleted, string(c.Mode), c.PageCount, c.DocumentCount
	rec.ResultURI, rec.Documents = c.ResultURI, c.Documents
	return nil
}

func (r *fakeRecorder) Fail(ctx context.Context, id, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].Status, r.records[id].ErrorDetails = models.StatusFailed, details
	return nil
}

func TestProcessPersistsWhenConfigured(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText)
	require.NoError(t, err)

	archive := &fakeArchive{uploads: map[string]models.UploadedFile{}, results: map[string]any{}}
	recorder := newFakeRecorder()
	svc := NewAnalyzerService(newTestExtractor(), fixedAnalyzer(singleInvoiceAnswer, nil), AnalyzerConfig{}, WithArchive(archive), WithRecorder(recorder))

	out, err := svc.Process(context.Background(), EndpointProcessDocument, models.UploadedFile{Data: data, MediaType: "application/pdf", Filename: "invoice.pdf"})
	require.NoError(t, err)

	hash := HashBytes(data)
	assert.Contains(t, archive.uploads, hash)
	assert.Contains(t, archive.results, hash)
	assert.Equal(t, "gs://results/"+hash+"/analysis.json", out.ResultURI)

	rec := recorder.records["rec-1"]
	require.NotNil(t, rec)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.Equal(t, hash, rec.FileHash)
	assert.Equal(t, "process-document", rec.Endpoint)
	assert.Equal(t, 1, rec.PageCount)
	assert.Equal(t, 1, rec.DocumentCount)
	require.Len(t, rec.Documents, 1)
	assert.Equal(t, "ACME Supplies Ltd", rec.Documents[0].Sender)
	assert.Equal(t, "Jane Doe", rec.Documents[0].Receiver)
	assert.Equal(t, "invoice", rec.Documents[0].DocumentType)
	require.NotNil(t, rec.Documents[0].InvoiceAmount)
	assert.Equal(t, 1250.0, *rec.Documents[0].InvoiceAmount)
}

func TestProcessRecordsFailure(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText)
	require.NoError(t, err)

	recorder := newFakeRecorder()
	svc := NewAnalyzerService(newTestExtractor(), fixedAnalyzer("not json", nil), AnalyzerConfig{}, WithRecorder(recorder))
	_, err = svc.Process(context.Background(), EndpointAnalyze, models.UploadedFile{Data: data, MediaType: "application/pdf"})
	require.Error(t, err)

	rec := recorder.records["rec-1"]
	require.NotNil(t, rec)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.ErrorDetails)
}
