// Package extract decides how an upload is presented to the
// content-understanding step: as its own text layer, or visually.
package extract

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

const MediaTypePDF = "application/pdf"

// Extractor turns uploaded bytes into an ExtractionResult.
type Extractor struct {
	minTextChars int
	maxImageEdge int
	jpegQuality  int
}

func New(cfg common.ExtractConfig) *Extractor {
	return &Extractor{
		minTextChars: cfg.MinTextChars,
		maxImageEdge: cfg.MaxImageEdge,
		jpegQuality:  cfg.JPEGQuality,
	}
}

// Extract classifies data by media type. PDFs with fewer than minTextChars
// characters of text are treated as scans; images always are.
func (e *Extractor) Extract(ctx context.Context, data []byte, mediaType string) (*models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, common.BadRequest("uploaded file is empty")
	}

	mt := NormalizeMediaType(mediaType, data)
	switch {
	case mt == MediaTypePDF:
		return e.extractPDF(data)
	case strings.HasPrefix(mt, "image/"):
		out, outType := downscale(data, mt, e.maxImageEdge, e.jpegQuality)
		return &models.ExtractionResult{
			Mode:       models.VisualFallback,
			PageCount:  1,
			Data:       out,
			MediaType:  outType,
			SourceType: mt,
		}, nil
	default:
		return nil, common.UnsupportedMediaType(mt)
	}
}

func (e *Extractor) extractPDF(data []byte) (*models.ExtractionResult, error) {
	pages, textErr := readTextLayer(data)
	pageCount, countErr := countPages(data)
	if countErr != nil {
		if textErr != nil {
			slog.Warn("PDF is unreadable.", "pageCountError", countErr, "textError", textErr)
			return nil, common.NewError(common.KindBadRequest, "unreadable PDF", countErr)
		}
		slog.Warn("Falling back to text reader page count.", "error", countErr)
		pageCount = len(pages)
	}
	if pageCount < 1 {
		return nil, common.BadRequest("PDF has no pages")
	}
	if textErr != nil {
		slog.Warn("Could not read PDF text layer, treating as scanned.", "error", textErr)
	}

	text := JoinPages(pages)
	if len([]rune(strings.TrimSpace(text))) < e.minTextChars {
		slog.Info("PDF has no usable text layer.", "pageCount", pageCount)
		return &models.ExtractionResult{
			Mode:       models.VisualFallback,
			PageCount:  pageCount,
			Data:       data,
			MediaType:  MediaTypePDF,
			SourceType: MediaTypePDF,
		}, nil
	}
	return &models.ExtractionResult{
		Mode:       models.NativeText,
		Text:       text,
		PagedText:  MarkPages(pages),
		PageCount:  pageCount,
		Data:       data,
		MediaType:  MediaTypePDF,
		SourceType: MediaTypePDF,
	}, nil
}

// NormalizeMediaType strips parameters and lower-cases declared. An empty or
// generic binary type is replaced by the type sniffed from data.
func NormalizeMediaType(declared string, data []byte) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if mt == "" || mt == "application/octet-stream" {
		sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
		return sniffed
	}
	if mt == "image/jpg" {
		return "image/jpeg"
	}
	return mt
}
