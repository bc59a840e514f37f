// Package llm sends extracted content to a content-understanding service and
// returns its raw text answer.
package llm

import (
	"context"
	"fmt"

	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// Template selects the instruction and answer shape of a request.
type Template string

const (
	// TemplateMulti asks for every logical document with its page range.
	TemplateMulti Template = "multi"
	// TemplateSingle asks for the details of one document.
	TemplateSingle Template = "single"
	// TemplateBoundaries asks only where each document starts.
	TemplateBoundaries Template = "boundaries"
)

// Request is one exchange with the content-understanding service.
type Request struct {
	Template    Template
	Instruction string
	Mode        models.ExtractionMode
	Text        string
	Data        []byte
	MediaType   string
	PageCount   int
}

// Analyzer performs a single request/response exchange. Implementations
// return *common.Error values of kind UpstreamUnavailable for transport
// failures, non-success statuses, timeouts and empty answers.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Analyzer.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Analyze(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// NewRequest builds the request for an extraction result under a template.
// Boundary and multi-document requests carry page-marked text so the model
// can see where pages begin.
func NewRequest(tpl Template, res *models.ExtractionResult) Request {
	req := Request{
		Template:    tpl,
		Instruction: Instruction(tpl),
		Mode:        res.Mode,
		PageCount:   res.PageCount,
	}
	if res.Mode == models.VisualFallback {
		req.Data = res.Data
		req.MediaType = res.MediaType
		return req
	}
	switch tpl {
	case TemplateBoundaries:
		req.Text = fmt.Sprintf("Total pages in PDF: %d\n\nExtracted text with page breaks:\n%s", res.PageCount, res.PagedText)
	case TemplateMulti:
		req.Text = fmt.Sprintf("Total pages: %d\n\n%s", res.PageCount, res.PagedText)
	default:
		req.Text = res.Text
	}
	return req
}

// UserNote is the text part that accompanies inline visual content.
func (r Request) UserNote() string {
	if r.MediaType == "application/pdf" {
		return fmt.Sprintf("This is a scanned PDF document with %d page(s). Analyze the visual content to extract the structured information.", r.PageCount)
	}
	return "Analyze this document image and extract the structured information."
}

// UserText is the user message: the extracted text, or the visual note.
func (r Request) UserText() string {
	if r.Mode == models.VisualFallback {
		return r.UserNote()
	}
	return r.Text
}
