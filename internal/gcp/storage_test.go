package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

func TestIsPreconditionFailed(t *testing.T) {
	conflict := &googleapi.Error{Code: http.StatusPreconditionFailed}

	assert.True(t, isPreconditionFailed(conflict))
	assert.True(t, isPreconditionFailed(fmt.Errorf("close writer: %w", conflict)))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(errors.New("network down")))
	assert.False(t, isPreconditionFailed(nil))
}

func TestGCSURI(t *testing.T) {
	assert.Equal(t, "gs://results/abc123/analysis.json", GCSURI("results", "abc123/analysis.json"))
}

func TestArchiveDisabledBuckets(t *testing.T) {
	a := NewArchive(nil, "", "")

	uri, err := a.ArchiveUpload(context.Background(), "abc", models.UploadedFile{Data: []byte("x"), Filename: "a.pdf"})
	require.NoError(t, err)
	assert.Empty(t, uri)

	uri, err = a.SaveResult(context.Background(), "abc", map[string]int{"totalPages": 1})
	require.NoError(t, err)
	assert.Empty(t, uri)
}
