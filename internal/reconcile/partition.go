package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rmkrs13/document-analyzer-api/internal/common"
	"github.com/Rmkrs13/document-analyzer-api/internal/models"
)

// Policy decides what happens when document ranges do not partition the file.
type Policy string

const (
	// PolicyTrust passes ranges through and only logs violations.
	PolicyTrust Policy = "trust"
	// PolicyStrict rejects any violation as an invalid structure.
	PolicyStrict Policy = "strict"
	// PolicyRepair rewrites ranges into a partition anchored on start pages.
	PolicyRepair Policy = "repair"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyTrust, PolicyStrict, PolicyRepair:
		return p, nil
	case "":
		return PolicyRepair, nil
	default:
		return "", common.NewError(common.KindInternal, fmt.Sprintf("unknown boundary policy %q", s), nil)
	}
}

// Check lists every way docs fails to cover [1, total] exactly once in order.
// An empty result means the ranges are a partition.
func Check(docs []models.DocumentRecord, total int) []string {
	var violations []string
	prevEnd := 0
	for i, d := range docs {
		if d.StartPage > d.EndPage {
			violations = append(violations, fmt.Sprintf("document %d: start page %d after end page %d", i+1, d.StartPage, d.EndPage))
		}
		if d.StartPage < 1 || d.EndPage > total {
			violations = append(violations, fmt.Sprintf("document %d: range %d-%d outside 1-%d", i+1, d.StartPage, d.EndPage, total))
		}
		switch {
		case d.StartPage <= prevEnd:
			violations = append(violations, fmt.Sprintf("document %d: overlaps previous document at page %d", i+1, d.StartPage))
		case d.StartPage > prevEnd+1:
			violations = append(violations, fmt.Sprintf("document %d: pages %d-%d not covered", i+1, prevEnd+1, d.StartPage-1))
		}
		if d.EndPage > prevEnd {
			prevEnd = d.EndPage
		}
	}
	if len(docs) > 0 && prevEnd < total {
		violations = append(violations, fmt.Sprintf("pages %d-%d not covered", prevEnd+1, total))
	}
	return violations
}

// Repair turns docs into a partition of [1, total]. Start pages are trusted
// over end pages: each document ends where the next one starts, and the last
// document runs to the final page. Every change is reported.
func Repair(docs []models.DocumentRecord, total int) ([]models.DocumentRecord, []models.Adjustment) {
	type entry struct {
		index int
		rec   models.DocumentRecord
	}
	var adj []models.Adjustment
	note := func(index int, field string, from, to int, reason string) {
		if from != to {
			adj = append(adj, models.Adjustment{Document: index, Field: field, From: from, To: to, Reason: reason})
		}
	}

	entries := make([]entry, len(docs))
	for i, d := range docs {
		if d.StartPage > d.EndPage {
			note(i, "startPage", d.StartPage, d.EndPage, "inverted range swapped")
			note(i, "endPage", d.EndPage, d.StartPage, "inverted range swapped")
			d.StartPage, d.EndPage = d.EndPage, d.StartPage
		}
		s, e := clamp(d.StartPage, 1, total), clamp(d.EndPage, 1, total)
		note(i, "startPage", d.StartPage, s, "clamped to file")
		note(i, "endPage", d.EndPage, e, "clamped to file")
		d.StartPage, d.EndPage = s, e
		entries[i] = entry{index: i, rec: d}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].rec.StartPage < entries[b].rec.StartPage
	})

	kept := entries[:0]
	for i := range entries {
		e := &entries[i]
		switch {
		case len(kept) == 0:
			note(e.index, "startPage", e.rec.StartPage, 1, "first document starts on page 1")
			e.rec.StartPage = 1
		case e.rec.StartPage <= kept[len(kept)-1].rec.StartPage:
			next := kept[len(kept)-1].rec.StartPage + 1
			note(e.index, "startPage", e.rec.StartPage, next, "start moved after previous document")
			e.rec.StartPage = next
		}
		if e.rec.StartPage > total {
			note(e.index, "document", e.rec.StartPage, 0, "dropped: starts beyond last page")
			continue
		}
		kept = append(kept, *e)
	}

	out := make([]models.DocumentRecord, len(kept))
	for i := range kept {
		end := total
		reason := "last document runs to final page"
		if i+1 < len(kept) {
			end = kept[i+1].rec.StartPage - 1
			reason = "end aligned to next document"
		}
		note(kept[i].index, "endPage", kept[i].rec.EndPage, end, reason)
		kept[i].rec.EndPage = end
		out[i] = kept[i].rec
	}
	return out, adj
}
