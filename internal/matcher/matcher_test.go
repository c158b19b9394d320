package matcher

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

var testCat = taxonomy.UsageScenarioCategory{
	ID:           "drug-drug-interaction",
	DisplayName:  "Drug-Drug Interaction Alert",
	PriorityTier: schema.TierHigh,
	MatchFeatures: []taxonomy.MatchFeature{
		{Phrase: "drug interaction", Weight: 6.0},
		{Phrase: "concomitant use", Weight: 1.5},
		{Phrase: "coadministration", Weight: 1.5},
		{Phrase: "interacts with", Weight: 1.0},
	},
}

func doc(text string) *document.GuidelineDocument {
	return &document.GuidelineDocument{Name: "test-doc", SourceText: text, DomainTag: "general", ByteSize: len(text)}
}

func TestScore_Deterministic(t *testing.T) {
	d := doc("Warfarin has a known drug interaction with amiodarone; concomitant use requires monitoring.")
	first := Score(d, testCat)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, Score(d, testCat)); diff != "" {
			t.Fatalf("Score not deterministic (-first +repeat):\n%s", diff)
		}
	}
}

func TestScore_Range(t *testing.T) {
	texts := []string{
		"",
		"no relevant content at all",
		"drug interaction",
		"drug interaction concomitant use coadministration interacts with",
	}
	for _, text := range texts {
		s := Score(doc(text), testCat)
		if s.Score < 0 || s.Score > 1 {
			t.Errorf("Score(%q) = %v, outside [0,1]", text, s.Score)
		}
	}
}

func TestScore_EmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		s := Score(doc(text), testCat)
		if s.Score != 0 {
			t.Errorf("Score(%q) = %v, want 0.0", text, s.Score)
		}
		if len(s.MatchedFeatures) != 0 {
			t.Errorf("Score(%q) matched features = %v, want none", text, s.MatchedFeatures)
		}
	}
}

func TestScore_CaseInsensitive(t *testing.T) {
	lower := Score(doc("a serious drug interaction"), testCat)
	upper := Score(doc("A SERIOUS DRUG INTERACTION"), testCat)
	if lower.Score != upper.Score {
		t.Errorf("case sensitivity: %v != %v", lower.Score, upper.Score)
	}
	if lower.Score == 0 {
		t.Error("expected a positive score")
	}
}

func TestScore_Normalization(t *testing.T) {
	// All features present: weight 10 of 10.
	full := Score(doc("drug interaction concomitant use coadministration interacts with"), testCat)
	if full.Score != 1.0 {
		t.Errorf("full match = %v, want 1.0", full.Score)
	}
	// Only the top feature: 6 of 10.
	top := Score(doc("there is a drug interaction here"), testCat)
	if top.Score != 0.6 {
		t.Errorf("top-feature match = %v, want 0.6", top.Score)
	}
}

func TestScore_MatchedFeatures(t *testing.T) {
	s := Score(doc("coadministration of these agents interacts with renal clearance"), testCat)
	want := []string{"coadministration", "interacts with"}
	if diff := cmp.Diff(want, s.MatchedFeatures); diff != "" {
		t.Errorf("matched features mismatch (-want +got):\n%s", diff)
	}
	if s.CategoryID != testCat.ID {
		t.Errorf("category id = %q, want %q", s.CategoryID, testCat.ID)
	}
}
