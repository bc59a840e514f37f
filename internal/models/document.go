package models

import "time"

// Ledger statuses for an AnalysisRecord.
const (
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// AnalysisRecord is the Firestore ledger entry for one analyzed upload.
// It tracks status and summary metadata; the full result lives in GCS.
type AnalysisRecord struct {
	FileHash            string          `firestore:"fileHash,omitempty"`
	OriginalFilename    string          `firestore:"originalFilename,omitempty"`
	FileType            string          `firestore:"fileType,omitempty"`
	Endpoint            string          `firestore:"endpoint,omitempty"`
	Status              string          `firestore:"status,omitempty"`
	ExtractionMode      string          `firestore:"extractionMode,omitempty"`
	PageCount           int             `firestore:"pageCount,omitempty"`
	DocumentCount       int             `firestore:"documentCount,omitempty"`
	Documents           []DocumentIndex `firestore:"documents,omitempty"`
	ResultURI           string          `firestore:"resultUri,omitempty"`
	ErrorDetails        string          `firestore:"errorDetails,omitempty"`
	WorkflowExecutionID string          `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time       `firestore:"createdAt,omitempty"`
	CompletedAt         time.Time       `firestore:"completedAt,omitempty"`
}

// DocumentIndex is the searchable summary of one document kept in the ledger.
type DocumentIndex struct {
	StartPage     int      `firestore:"startPage"`
	EndPage       int      `firestore:"endPage"`
	Sender        string   `firestore:"sender,omitempty"`
	Receiver      string   `firestore:"receiver,omitempty"`
	DocumentType  string   `firestore:"documentType,omitempty"`
	CaseNumber    string   `firestore:"caseNumber,omitempty"`
	DueDate       string   `firestore:"dueDate,omitempty"`
	InvoiceAmount *float64 `firestore:"invoiceAmount,omitempty"`
}

// Index flattens a summary for the pages it covers.
func (s DocumentSummary) Index(startPage, endPage int) DocumentIndex {
	idx := DocumentIndex{
		StartPage:    startPage,
		EndPage:      endPage,
		Sender:       s.Sender.Name.String,
		Receiver:     s.Receiver.Name.String,
		DocumentType: s.DocumentDetails.DocumentType.String,
		CaseNumber:   s.DocumentDetails.CaseNumber.String,
		DueDate:      s.DocumentDetails.DueDate.String,
	}
	if amount := s.DocumentDetails.InvoiceAmount; amount.Valid {
		v := amount.Value
		idx.InvoiceAmount = &v
	}
	return idx
}

// Completion is what the ledger stores when an analysis succeeds.
type Completion struct {
	Mode          ExtractionMode
	PageCount     int
	DocumentCount int
	ResultURI     string
	Documents     []DocumentIndex
}
