package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// ExtractionMode tells the client how the content must be presented upstream.
type ExtractionMode string

const (
	NativeText     ExtractionMode = "text"
	VisualFallback ExtractionMode = "visual"
)

// UploadedFile is the single file part received with a request.
type UploadedFile struct {
	Data      []byte
	MediaType string
	Filename  string
}

// ExtractionResult is what the content extractor learned about an upload.
// For VisualFallback, Data and MediaType carry the bytes to send upstream,
// which may be a downscaled re-encoding of the original image.
type ExtractionResult struct {
	Mode       ExtractionMode
	Text       string
	PagedText  string
	PageCount  int
	Data       []byte
	MediaType  string
	SourceType string
}

// PartyInfo describes the sender of a document. Unknown values are null.
type PartyInfo struct {
	Name          NullString `json:"name"`
	Address       NullString `json:"address"`
	CompanyNumber NullString `json:"companyNumber"`
	Email         NullString `json:"email"`
	Phone         NullString `json:"phone"`
}

// ReceiverInfo describes the receiver of a document.
type ReceiverInfo struct {
	Name    NullString `json:"name"`
	Address NullString `json:"address"`
}

type DocumentDetails struct {
	CaseNumber    NullString `json:"caseNumber"`
	InvoiceAmount Amount     `json:"invoiceAmount"`
	DueDate       NullString `json:"dueDate"`
	DateCreated   NullString `json:"dateCreated"`
	DateSent      NullString `json:"dateSent"`
	Summary       NullString `json:"summary"`
	DocumentType  NullString `json:"documentType"`
}

// DocumentSummary is a typed view of the well-known fields of a document.
// Values of an unexpected shape are left null.
type DocumentSummary struct {
	Sender          PartyInfo
	Receiver        ReceiverInfo
	DocumentDetails DocumentDetails
}

// DocumentRecord is one logical document inside an upload. Pages are 1-indexed
// and inclusive. Fields holds every other key of the answer as it was sent.
type DocumentRecord struct {
	StartPage int
	EndPage   int
	Fields    map[string]json.RawMessage
}

func (d DocumentRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+2)
	for k, v := range d.Fields {
		out[k] = v
	}
	out["startPage"] = d.StartPage
	out["endPage"] = d.EndPage
	return json.Marshal(out)
}

func (d *DocumentRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	start, err := pageNumber(fields, "startPage")
	if err != nil {
		return err
	}
	end, err := pageNumber(fields, "endPage")
	if err != nil {
		return err
	}
	delete(fields, "startPage")
	delete(fields, "endPage")
	*d = DocumentRecord{StartPage: start, EndPage: end, Fields: fields}
	return nil
}

// Summary decodes the sender, receiver and details of the document.
func (d DocumentRecord) Summary() DocumentSummary {
	return summarize(d.Fields)
}

// AnalysisResult is the reconciled multi-document answer. Fields holds every
// top-level key besides totalPages and documents, such as uniquePages.
type AnalysisResult struct {
	TotalPages int
	Documents  []DocumentRecord
	Fields     map[string]json.RawMessage
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	docs := r.Documents
	if docs == nil {
		docs = []DocumentRecord{}
	}
	out["totalPages"] = r.TotalPages
	out["documents"] = docs
	return json.Marshal(out)
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	total, err := pageNumber(fields, "totalPages")
	if err != nil {
		return err
	}
	var docs []DocumentRecord
	if raw, ok := fields["documents"]; ok {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return fmt.Errorf("documents: %w", err)
		}
	}
	delete(fields, "totalPages")
	delete(fields, "documents")
	*r = AnalysisResult{TotalPages: total, Documents: docs, Fields: fields}
	return nil
}

// SingleDocument is the answer of the single-document endpoint, kept as sent.
type SingleDocument map[string]json.RawMessage

// Summary decodes the sender, receiver and details of the document.
func (s SingleDocument) Summary() DocumentSummary {
	return summarize(s)
}

func summarize(fields map[string]json.RawMessage) DocumentSummary {
	var s DocumentSummary
	lenient(fields["sender"], &s.Sender)
	lenient(fields["receiver"], &s.Receiver)
	lenient(fields["documentDetails"], &s.DocumentDetails)
	return s
}

// lenient decodes raw into v, leaving v zeroed when raw is not an object.
func lenient[T any](raw json.RawMessage, v *T) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		var zero T
		*v = zero
	}
}

func pageNumber(fields map[string]json.RawMessage, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: %v is not a whole number", key, f)
	}
	return int(f), nil
}

type DocumentBoundary struct {
	DocumentNumber int `json:"documentNumber"`
	StartPage      int `json:"startPage"`
}

// BoundaryResult is the answer of the boundary-only endpoint.
type BoundaryResult struct {
	TotalPages         int                `json:"totalPages"`
	TotalDocuments     int                `json:"totalDocuments"`
	DocumentBoundaries []DocumentBoundary `json:"documentBoundaries"`
}

// Adjustment records one change the boundary reconciler made to a page range.
// Document is the 0-based index of the record in the model's original order.
type Adjustment struct {
	Document int    `json:"document"`
	Field    string `json:"field"`
	From     int    `json:"from"`
	To       int    `json:"to"`
	Reason   string `json:"reason"`
}
