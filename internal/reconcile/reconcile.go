// Package reconcile checks the structure returned by the content-understanding
// step and aligns its page accounting with the measured page count.
package reconcile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// Analysis validates a parsed multi-document answer, replaces its page total
// with groundTruth and applies the partition policy to the document ranges.
// Only totalPages and the page ranges are checked; every other key is kept
// as the model sent it.
func Analysis(parsed any, groundTruth int, policy Policy) (*models.AnalysisResult, []models.Adjustment, error) {
	if groundTruth < 1 {
		return nil, nil, common.NewError(common.KindInternal, "measured page count must be positive", nil)
	}
	if err := analysisSchema.Validate(parsed); err != nil {
		return nil, nil, common.InvalidStructure("invalid response structure from AI", err)
	}

	var result models.AnalysisResult
	if err := decode(parsed, &result); err != nil {
		return nil, nil, err
	}
	if result.TotalPages != groundTruth {
		slog.Info("Overriding model page count with measured value.", "claimed", result.TotalPages, "measured", groundTruth)
	}
	result.TotalPages = groundTruth

	var adjustments []models.Adjustment
	switch policy {
	case PolicyTrust:
		if violations := Check(result.Documents, groundTruth); len(violations) > 0 {
			slog.Warn("Document ranges do not partition the file.", "violations", violations)
		}
	case PolicyStrict:
		if violations := Check(result.Documents, groundTruth); len(violations) > 0 {
			return nil, nil, common.InvalidStructure("document ranges do not partition the file: "+strings.Join(violations, "; "), nil)
		}
	default:
		result.Documents, adjustments = Repair(result.Documents, groundTruth)
		for _, a := range adjustments {
			slog.Info("Adjusted document range.", "document", a.Document, "field", a.Field, "from", a.From, "to", a.To, "reason", a.Reason)
		}
	}
	return &result, adjustments, nil
}

// Single checks that a parsed single-document answer is an object and
// returns it unchanged.
func Single(parsed any) (models.SingleDocument, error) {
	if err := singleSchema.Validate(parsed); err != nil {
		return nil, common.InvalidStructure("invalid response structure from AI", err)
	}
	var doc models.SingleDocument
	if err := decode(parsed, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Boundaries validates a parsed boundary-only answer. Start pages are clamped
// to the file, sorted and de-duplicated, the first document always starts on
// page 1 and documents are renumbered from 1.
func Boundaries(parsed any, groundTruth int) (*models.BoundaryResult, error) {
	if groundTruth < 1 {
		return nil, common.NewError(common.KindInternal, "measured page count must be positive", nil)
	}
	if err := boundarySchema.Validate(parsed); err != nil {
		return nil, common.InvalidStructure("failed to parse document boundaries", err)
	}
	var claimed models.BoundaryResult
	if err := decode(parsed, &claimed); err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(claimed.DocumentBoundaries))
	starts := make([]int, 0, len(claimed.DocumentBoundaries))
	for _, b := range claimed.DocumentBoundaries {
		p := clamp(b.StartPage, 1, groundTruth)
		if !seen[p] {
			seen[p] = true
			starts = append(starts, p)
		}
	}
	sort.Ints(starts)
	starts[0] = 1

	result := &models.BoundaryResult{
		TotalPages:         groundTruth,
		TotalDocuments:     len(starts),
		DocumentBoundaries: make([]models.DocumentBoundary, len(starts)),
	}
	for i, p := range starts {
		result.DocumentBoundaries[i] = models.DocumentBoundary{DocumentNumber: i + 1, StartPage: p}
	}
	if result.TotalDocuments != claimed.TotalDocuments {
		slog.Info("Corrected document count.", "claimed", claimed.TotalDocuments, "actual", result.TotalDocuments)
	}
	return result, nil
}

// decode moves a generic JSON tree into a typed model.
func decode(parsed any, out any) error {
	b, err := json.Marshal(parsed)
	if err != nil {
		return common.InvalidStructure("invalid response structure from AI", fmt.Errorf("re-encode: %w", err))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return common.InvalidStructure("invalid response structure from AI", err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
