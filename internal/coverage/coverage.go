// Package coverage aggregates per-category robustness scores into coverage
// reports and derives ranked gap lists from them.
package coverage

import (
	"sort"
	"time"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/matcher"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

// Aggregator evaluates documents against every category of a registry.
type Aggregator struct {
	registry *taxonomy.Registry
}

// NewAggregator returns an Aggregator bound to the given registry.
func NewAggregator(reg *taxonomy.Registry) *Aggregator {
	return &Aggregator{registry: reg}
}

// Evaluate scores doc against every registry category and assembles a
// CoverageReport. The scores map carries exactly the registry's category
// set; a category the document never mentions is present with score 0.0.
// Two evaluations of the same document differ only in Timestamp.
func (a *Aggregator) Evaluate(doc *document.GuidelineDocument) *schema.CoverageReport {
	cats := a.registry.Categories()
	report := &schema.CoverageReport{
		DocumentName: doc.Name,
		Scores:       make(map[string]schema.RobustnessScore, len(cats)),
		Timestamp:    time.Now().UTC(),
	}

	var total float64
	for _, cat := range cats {
		s := matcher.Score(doc, cat)
		report.Scores[cat.ID] = s
		total += s.Score
	}
	report.OverallCoverage = total / float64(len(cats))
	return report
}

// Gaps derives the ranked gap list for report against threshold. Gap size
// is threshold minus current score, clamped at zero; only categories with a
// positive gap appear. Ordering is priority tier first (high before low),
// then gap size descending, then category id for a stable total order.
// The list is a derived view — it is recomputed, never stored, when the
// report changes.
func (a *Aggregator) Gaps(report *schema.CoverageReport, threshold float64) []schema.GapEntry {
	var gaps []schema.GapEntry
	for _, cat := range a.registry.Categories() {
		s := report.Scores[cat.ID]
		gap := threshold - s.Score
		if gap <= 0 {
			continue
		}
		gaps = append(gaps, schema.GapEntry{
			CategoryID:   cat.ID,
			PriorityTier: cat.PriorityTier,
			CurrentScore: s.Score,
			GapSize:      gap,
		})
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		oi, oj := schema.TierOrdinal(gaps[i].PriorityTier), schema.TierOrdinal(gaps[j].PriorityTier)
		if oi != oj {
			return oi < oj
		}
		if gaps[i].GapSize != gaps[j].GapSize {
			return gaps[i].GapSize > gaps[j].GapSize
		}
		return gaps[i].CategoryID < gaps[j].CategoryID
	})
	for i := range gaps {
		gaps[i].PriorityRank = i + 1
	}
	return gaps
}
