// Package sanitize repairs the loosely formatted JSON text returned by
// language models before it is parsed.
//
// The repair pipeline is a best-effort heuristic. It strips code fences,
// control characters and invalid escape sequences, and retries once after a
// fallback pass. It does not validate structure.
package sanitize

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
)

// Parse runs the repair pipeline and decodes the result into a generic value
// (map[string]any, []any, string, float64, bool or nil).
func Parse(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, common.MalformedResponse(raw, errEmpty)
	}

	content := ExtractFence(raw)
	content = CollapseBackslashes(content)
	content = StripControl(content)
	content = DropInvalidEscapes(content)
	slog.Debug("Sanitized model response.", "length", len(content))

	var v any
	firstErr := json.Unmarshal([]byte(content), &v)
	if firstErr == nil {
		return v, nil
	}
	slog.Debug("First parsing attempt failed.", "error", firstErr)

	content = EscapeDoubledBackslashes(content)
	content = UnescapeQuotedStructure(content)
	content = EscapeNewlines(content)
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, common.MalformedResponse(raw, err)
	}
	return v, nil
}

type sanitizeError string

func (e sanitizeError) Error() string { return string(e) }

const errEmpty = sanitizeError("empty response")
