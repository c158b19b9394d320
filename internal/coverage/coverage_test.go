package coverage

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

func mustRegistry(t *testing.T) *taxonomy.Registry {
	t.Helper()
	reg, err := taxonomy.Load()
	if err != nil {
		t.Fatalf("taxonomy.Load() unexpected error: %v", err)
	}
	return reg
}

func doc(name, text string) *document.GuidelineDocument {
	return &document.GuidelineDocument{Name: name, SourceText: text, DomainTag: "general", ByteSize: len(text)}
}

func TestEvaluate_TotalCoverage(t *testing.T) {
	reg := mustRegistry(t)
	agg := NewAggregator(reg)

	report := agg.Evaluate(doc("g1", "screening and follow-up for chronic patients"))
	if len(report.Scores) != taxonomy.TotalCategories {
		t.Fatalf("scores has %d keys, want %d", len(report.Scores), taxonomy.TotalCategories)
	}
	for _, cat := range reg.Categories() {
		if _, ok := report.Scores[cat.ID]; !ok {
			t.Errorf("registry category %q missing from report", cat.ID)
		}
	}
}

func TestEvaluate_EmptyDocument(t *testing.T) {
	reg := mustRegistry(t)
	agg := NewAggregator(reg)

	report := agg.Evaluate(doc("empty", "   \n\t"))
	if report.OverallCoverage != 0 {
		t.Errorf("overall coverage = %v, want 0.0", report.OverallCoverage)
	}
	for id, s := range report.Scores {
		if s.Score != 0 {
			t.Errorf("category %q score = %v, want 0.0", id, s.Score)
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	reg := mustRegistry(t)
	agg := NewAggregator(reg)
	d := doc("g1", "recommended dose adjustment with drug interaction screening and follow-up")

	a := agg.Evaluate(d)
	b := agg.Evaluate(d)
	if diff := cmp.Diff(a.Scores, b.Scores); diff != "" {
		t.Errorf("scores differ across evaluations (-a +b):\n%s", diff)
	}
	if a.OverallCoverage != b.OverallCoverage {
		t.Errorf("overall coverage %v != %v", a.OverallCoverage, b.OverallCoverage)
	}
}

func TestGaps_Ordering(t *testing.T) {
	reg := mustRegistry(t)
	agg := NewAggregator(reg)

	// Document mentions nothing: every category gaps at full threshold.
	report := agg.Evaluate(doc("empty", "unrelated prose"))
	gaps := agg.Gaps(report, 0.5)
	if len(gaps) != taxonomy.TotalCategories {
		t.Fatalf("gap list has %d entries, want %d", len(gaps), taxonomy.TotalCategories)
	}

	lastTier := -1
	for i, g := range gaps {
		if g.PriorityRank != i+1 {
			t.Errorf("gap %d priority rank = %d, want %d", i, g.PriorityRank, i+1)
		}
		tier := schema.TierOrdinal(g.PriorityTier)
		if tier < lastTier {
			t.Errorf("gap %d tier %q out of order", i, g.PriorityTier)
		}
		lastTier = tier
	}
	if gaps[0].PriorityTier != schema.TierHigh {
		t.Errorf("first gap tier = %q, want high", gaps[0].PriorityTier)
	}
}

func TestGaps_ClampAndFilter(t *testing.T) {
	reg := mustRegistry(t)
	agg := NewAggregator(reg)

	// Covers drug-drug-interaction above threshold.
	report := agg.Evaluate(doc("g1",
		"drug interaction concomitant use coadministration interacts with potentiate"))
	gaps := agg.Gaps(report, 0.5)
	for _, g := range gaps {
		if g.CategoryID == "drug-drug-interaction" {
			t.Errorf("covered category appears in gap list with gap %v", g.GapSize)
		}
		if g.GapSize <= 0 {
			t.Errorf("gap %q has non-positive gap size %v", g.CategoryID, g.GapSize)
		}
	}
	if len(gaps) != taxonomy.TotalCategories-1 {
		t.Errorf("gap list has %d entries, want %d", len(gaps), taxonomy.TotalCategories-1)
	}
}
