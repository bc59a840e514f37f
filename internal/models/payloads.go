package models

// These structs define the JSON payloads exchanged with HTTP callers, the
// bucket trigger and the downstream Cloud Workflow.

// SuccessEnvelope is the body of every successful analysis response. Exactly
// one of Content or Data is set, depending on the endpoint.
type SuccessEnvelope struct {
	Success        bool         `json:"success"`
	FileType       string       `json:"fileType"`
	NumPages       int          `json:"numPages"`
	ExtractionMode string       `json:"extractionMode,omitempty"`
	Adjustments    []Adjustment `json:"adjustments,omitempty"`
	Content        any          `json:"content,omitempty"`
	Data           any          `json:"data,omitempty"`
}

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	Details     string `json:"details,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// GCSEvent is the storage.object.v1.finalized payload of the bucket trigger.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// WorkflowPayload is the argument handed to the downstream workflow.
type WorkflowPayload struct {
	DocumentID    string   `json:"documentId"`
	PageCount     int      `json:"pageCount"`
	DocumentCount int      `json:"documentCount"`
	ResultURI     string   `json:"resultUri"`
	DocumentURIs  []string `json:"documentUris,omitempty"`
}
