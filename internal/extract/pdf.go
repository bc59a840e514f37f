package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// RelaxedConfig is the pdfcpu configuration used for every read. Uploaded
// files are often slightly out of spec, so validation is relaxed.
func RelaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// countPages returns the page count measured by pdfcpu.
func countPages(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), RelaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("pdfcpu page count: %w", err)
	}
	return n, nil
}

// readTextLayer returns the plain text of each page. The reader panics on
// some malformed files, which is reported as an error.
func readTextLayer(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf text reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := reader.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages[i-1] = text
	}
	return pages, nil
}

// JoinPages concatenates page texts separated by newlines.
func JoinPages(pages []string) string {
	return strings.Join(pages, "\n")
}

// MarkPages concatenates page texts, each preceded by a "--- PAGE n ---" line.
func MarkPages(pages []string) string {
	var b strings.Builder
	for i, p := range pages {
		fmt.Fprintf(&b, "--- PAGE %d ---\n%s\n\n", i+1, strings.TrimSpace(p))
	}
	return b.String()
}
