package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// Storage wraps the GCS operations used by the archive and the bucket trigger.
type Storage struct {
	client *storage.Client
}

func NewStorage(ctx context.Context) (*Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &Storage{client: client}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not a failure: every object name is derived from a content hash.
func (s *Storage) SaveToGCSAtomically(ctx context.Context, bucket, objectName string, content []byte, contentType string) error {
	writer := s.client.Bucket(bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ReadObject downloads a whole object into memory.
func (s *Storage) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// WriteObject uploads content, retrying transient failures with exponential backoff.
func (s *Storage) WriteObject(ctx context.Context, bucket, object string, content []byte, contentType string) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			w := s.client.Bucket(bucket).Object(object).NewWriter(writeCtx)
			w.ContentType = contentType
			if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
				_ = w.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("Upload failed, will retry.",
			"gcsObject", object,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", object, lastErr)
}

// Archive stores uploads and analysis results under their content hash.
type Archive struct {
	store         *Storage
	uploadBucket  string
	resultsBucket string
}

// NewArchive returns an archive writing uploads to uploadBucket and results to
// resultsBucket. Either bucket may be empty to skip that half.
func NewArchive(store *Storage, uploadBucket, resultsBucket string) *Archive {
	return &Archive{store: store, uploadBucket: uploadBucket, resultsBucket: resultsBucket}
}

// ArchiveUpload stores the original upload at <key>/<filename>.
func (a *Archive) ArchiveUpload(ctx context.Context, key string, file models.UploadedFile) (string, error) {
	if a.uploadBucket == "" {
		return "", nil
	}
	name := path.Base(file.Filename)
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	object := key + "/" + name
	if err := a.store.SaveToGCSAtomically(ctx, a.uploadBucket, object, file.Data, file.MediaType); err != nil {
		return "", err
	}
	return GCSURI(a.uploadBucket, object), nil
}

// SaveResult stores v as JSON at <key>/analysis.json.
func (a *Archive) SaveResult(ctx context.Context, key string, v any) (string, error) {
	if a.resultsBucket == "" {
		return "", nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	object := key + "/analysis.json"
	if err := a.store.WriteObject(ctx, a.resultsBucket, object, b, "application/json"); err != nil {
		return "", err
	}
	return GCSURI(a.resultsBucket, object), nil
}

func GCSURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}
