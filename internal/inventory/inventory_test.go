package inventory

import (
	"fmt"
	"testing"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/coverage"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

func testBuilder(t *testing.T, policy SyntheticPolicy) (*Builder, *coverage.Aggregator) {
	t.Helper()
	reg, err := taxonomy.Load()
	if err != nil {
		t.Fatalf("taxonomy.Load() unexpected error: %v", err)
	}
	b := NewBuilder(reg, policy)
	seq := 0
	b.newID = func() string {
		seq++
		return fmt.Sprintf("INV-%03d", seq)
	}
	return b, coverage.NewAggregator(reg)
}

func doc(text string) *document.GuidelineDocument {
	return &document.GuidelineDocument{Name: "cardio-guide", SourceText: text, DomainTag: "cardiology", ByteSize: len(text)}
}

func TestBuild_PositiveScoresGetEntries(t *testing.T) {
	b, agg := testBuilder(t, SyntheticNone)
	d := doc("a known drug interaction requires monitoring; screening is advised")
	report := agg.Evaluate(d)

	res := b.Build(report, d)
	if len(res.Entries) == 0 {
		t.Fatal("expected entries for positively scored categories")
	}
	seen := map[string]bool{}
	for _, e := range res.Entries {
		seen[e.CategoryID] = true
		if e.Synthetic {
			t.Errorf("entry %s synthetic under SyntheticNone policy", e.CategoryID)
		}
		if e.MatchScore != report.Scores[e.CategoryID].Score {
			t.Errorf("entry %s match score = %v, want %v",
				e.CategoryID, e.MatchScore, report.Scores[e.CategoryID].Score)
		}
	}
	if !seen["drug-drug-interaction"] || !seen["screening-recommendation"] {
		t.Errorf("expected entries for matched categories, got %v", seen)
	}
}

func TestBuild_FieldCompletion(t *testing.T) {
	b, agg := testBuilder(t, SyntheticAll)
	d := doc("dosage and follow-up guidance")
	report := agg.Evaluate(d)

	res := b.Build(report, d)
	for _, e := range res.Entries {
		if n := missingFields(e); n != 0 {
			t.Errorf("entry %s has %d empty metadata fields", e.CategoryID, n)
		}
	}
	if res.CompletionRate != 1.0 {
		t.Errorf("completion rate = %v, want 1.0", res.CompletionRate)
	}
	if res.Status != schema.ModeSuccess {
		t.Errorf("status = %q, want SUCCESS", res.Status)
	}
}

func TestBuild_SyntheticAll(t *testing.T) {
	b, agg := testBuilder(t, SyntheticAll)
	d := doc("entirely unrelated text")
	report := agg.Evaluate(d)

	res := b.Build(report, d)
	if len(res.Entries) != taxonomy.TotalCategories {
		t.Fatalf("entries = %d, want %d placeholders", len(res.Entries), taxonomy.TotalCategories)
	}
	for _, e := range res.Entries {
		if !e.Synthetic {
			t.Errorf("entry %s not flagged synthetic", e.CategoryID)
		}
		if e.MatchScore != 0 {
			t.Errorf("entry %s match score = %v, want 0", e.CategoryID, e.MatchScore)
		}
	}
}

func TestBuild_SyntheticHighPriorityOnly(t *testing.T) {
	b, agg := testBuilder(t, SyntheticHighPriority)
	d := doc("entirely unrelated text")
	report := agg.Evaluate(d)

	res := b.Build(report, d)
	if len(res.Entries) != 4 {
		t.Fatalf("entries = %d, want 4 high-tier placeholders", len(res.Entries))
	}
	for _, e := range res.Entries {
		if !e.Synthetic {
			t.Errorf("entry %s not flagged synthetic", e.CategoryID)
		}
	}
}

func TestCompletionRate_Partial(t *testing.T) {
	entries := []schema.InventoryEntry{
		{Identifier: "a"}, // mostly empty
	}
	if r := completionRate(entries); r != 0 {
		t.Errorf("completion rate = %v, want 0", r)
	}
}
