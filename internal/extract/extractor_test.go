package extract

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
	"github.com/Rmkrs13/document-analyzer-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceText = "INVOICE INV-2024-001\nACME Supplies Ltd, 1 Industrial Way, Leeds\nBill to: Jane Doe\nAmount due: 1250.00 GBP\nDue date: 2024-03-01"

func newExtractor() *Extractor {
	return New(common.ExtractConfig{MinTextChars: 50, MaxImageEdge: 100, JPEGQuality: 85})
}

func TestExtractTextPDF(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText)
	require.NoError(t, err)

	res, err := newExtractor().Extract(context.Background(), data, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, models.NativeText, res.Mode)
	assert.Equal(t, 1, res.PageCount)
	assert.Contains(t, res.Text, "INVOICE")
	assert.Contains(t, res.PagedText, "--- PAGE 1 ---")
	assert.Equal(t, MediaTypePDF, res.MediaType)
}

func TestExtractMultiPageTextPDF(t *testing.T) {
	data, err := testutil.TextPDF(invoiceText, "Page two of the invoice with terms and conditions.", invoiceText)
	require.NoError(t, err)

	res, err := newExtractor().Extract(context.Background(), data, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, models.NativeText, res.Mode)
	assert.Equal(t, 3, res.PageCount)
	assert.Contains(t, res.PagedText, "--- PAGE 3 ---")
}

func TestExtractScannedPDF(t *testing.T) {
	data, err := testutil.BlankPDF(4)
	require.NoError(t, err)

	res, err := newExtractor().Extract(context.Background(), data, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, models.VisualFallback, res.Mode)
	assert.Equal(t, 4, res.PageCount)
	assert.Equal(t, data, res.Data)
	assert.Equal(t, MediaTypePDF, res.MediaType)
}

func TestExtractShortTextPDFIsVisual(t *testing.T) {
	data, err := testutil.TextPDF("Scan 0001")
	require.NoError(t, err)

	res, err := newExtractor().Extract(context.Background(), data, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, models.VisualFallback, res.Mode)
	assert.Equal(t, 1, res.PageCount)
}

func TestExtractUnreadablePDF(t *testing.T) {
	_, err := newExtractor().Extract(context.Background(), []byte("%PDF-1.4 truncated garbage"), "application/pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrBadRequest))
}

func TestExtractImageDownscales(t *testing.T) {
	data, err := testutil.NoisePNG(400, 200)
	require.NoError(t, err)

	res, err := newExtractor().Extract(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, models.VisualFallback, res.Mode)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, "image/jpeg", res.MediaType)
	assert.Equal(t, "image/png", res.SourceType)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestExtractImageNeverEnlarges(t *testing.T) {
	data, err := testutil.NoisePNG(40, 30)
	require.NoError(t, err)

	res, err := newExtractor().Extract(context.Background(), data, "image/png")
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, 40)
	assert.LessOrEqual(t, cfg.Height, 30)
}

func TestExtractUndecodableImageKeepsOriginal(t *testing.T) {
	data := []byte("definitely not a png")

	res, err := newExtractor().Extract(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, models.VisualFallback, res.Mode)
	assert.Equal(t, data, res.Data)
	assert.Equal(t, "image/png", res.MediaType)
}

func TestExtractOversizedImageKeepsOriginal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()

	// Rewrite the IHDR dimensions to 20000x20000 and fix its checksum.
	binary.BigEndian.PutUint32(data[16:20], 20000)
	binary.BigEndian.PutUint32(data[20:24], 20000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 20000, cfg.Width)

	res, err := newExtractor().Extract(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, models.VisualFallback, res.Mode)
	assert.Equal(t, data, res.Data)
	assert.Equal(t, "image/png", res.MediaType)
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := newExtractor().Extract(context.Background(), []byte("hello"), "text/plain")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnsupportedMedia))
	assert.Equal(t, 400, common.StatusCode(common.KindOf(err)))
}

func TestExtractEmptyUpload(t *testing.T) {
	_, err := newExtractor().Extract(context.Background(), nil, "application/pdf")
	assert.True(t, errors.Is(err, common.ErrBadRequest))
}

func TestNormalizeMediaType(t *testing.T) {
	pdfData, err := testutil.TextPDF("x")
	require.NoError(t, err)
	pngData, err := testutil.NoisePNG(2, 2)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", NormalizeMediaType("Application/PDF; charset=binary", nil))
	assert.Equal(t, "image/jpeg", NormalizeMediaType("image/jpg", nil))
	assert.Equal(t, "application/pdf", NormalizeMediaType("application/octet-stream", pdfData))
	assert.Equal(t, "image/png", NormalizeMediaType("", pngData))
	assert.True(t, strings.HasPrefix(NormalizeMediaType("", []byte("plain words")), "text/plain"))
}

func TestMarkPages(t *testing.T) {
	assert.Equal(t, "--- PAGE 1 ---\nfirst\n\n--- PAGE 2 ---\nsecond\n\n", MarkPages([]string{" first ", "second\n"}))
}
