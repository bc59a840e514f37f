package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// Ledger records one AnalysisRecord per analyzed upload.
type Ledger struct {
	client     *firestore.Client
	collection string
}

func NewLedger(client *firestore.Client, collection string) *Ledger {
	return &Ledger{client: client, collection: collection}
}

// Start adds a PROCESSING record and returns its document ID.
func (l *Ledger) Start(ctx context.Context, rec models.AnalysisRecord) (string, error) {
	rec.Status = models.StatusProcessing
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	docRef, _, err := l.client.Collection(l.collection).Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to create analysis record: %w", err)
	}
	return docRef.ID, nil
}

// Complete marks a record COMPLETED with its summary fields and document index.
func (l *Ledger) Complete(ctx context.Context, id string, c models.Completion) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "extractionMode", Value: string(c.Mode)},
		{Path: "pageCount", Value: c.PageCount},
		{Path: "documentCount", Value: c.DocumentCount},
		{Path: "completedAt", Value: time.Now()},
	}
	if c.ResultURI != "" {
		updates = append(updates, firestore.Update{Path: "resultUri", Value: c.ResultURI})
	}
	if len(c.Documents) > 0 {
		updates = append(updates, firestore.Update{Path: "documents", Value: c.Documents})
	}
	if _, err := l.client.Collection(l.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to complete analysis record %s: %w", id, err)
	}
	return nil
}

// Fail marks a record FAILED with the error details.
func (l *Ledger) Fail(ctx context.Context, id, details string) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusFailed},
		{Path: "errorDetails", Value: details},
		{Path: "completedAt", Value: time.Now()},
	}
	if _, err := l.client.Collection(l.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to mark analysis record %s failed: %w", id, err)
	}
	return nil
}

// SetWorkflowExecution stores the execution name for traceability.
func (l *Ledger) SetWorkflowExecution(ctx context.Context, id, execution string) error {
	_, err := l.client.Collection(l.collection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "workflowExecutionId", Value: execution},
	})
	if err != nil {
		return fmt.Errorf("failed to record workflow execution for %s: %w", id, err)
	}
	return nil
}

// FindCompleted returns the ID of a completed record for fileHash, if any.
func (l *Ledger) FindCompleted(ctx context.Context, fileHash string) (string, bool, error) {
	iter := l.client.Collection(l.collection).
		Where("fileHash", "==", fileHash).
		Where("status", "==", models.StatusCompleted).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	return doc.Ref.ID, true, nil
}
