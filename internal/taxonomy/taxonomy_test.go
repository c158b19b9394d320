package taxonomy

import (
	"errors"
	"testing"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
)

func TestLoad(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got := len(reg.Categories()); got != TotalCategories {
		t.Errorf("Categories() = %d entries, want %d", got, TotalCategories)
	}
}

func TestLoad_TierPartition(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	tiers := map[schema.PriorityTier]int{}
	for _, c := range reg.Categories() {
		tiers[c.PriorityTier]++
	}
	if tiers[schema.TierHigh] != 4 {
		t.Errorf("high tier = %d, want 4", tiers[schema.TierHigh])
	}
	if tiers[schema.TierMedium] != 5 {
		t.Errorf("medium tier = %d, want 5", tiers[schema.TierMedium])
	}
	if tiers[schema.TierLow] != TotalCategories-9 {
		t.Errorf("low tier = %d, want %d", tiers[schema.TierLow], TotalCategories-9)
	}
}

func TestGet(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	c, err := reg.Get("drug-drug-interaction")
	if err != nil {
		t.Fatalf("Get(drug-drug-interaction) unexpected error: %v", err)
	}
	if c.PriorityTier != schema.TierHigh {
		t.Errorf("priority tier = %q, want high", c.PriorityTier)
	}
	if len(c.MatchFeatures) == 0 {
		t.Error("expected match features")
	}
}

func TestGet_Unknown(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	_, err = reg.Get("no-such-category")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(no-such-category) error = %v, want ErrNotFound", err)
	}
}

func TestParse_ZeroFeatures(t *testing.T) {
	def := []byte(`
categories:
  - id: empty-cat
    display_name: Empty
    priority_tier: high
    match_features: []
`)
	_, err := parse(def)
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("parse() error = %v, want ErrInvalidCategory", err)
	}
}

func TestParse_BadTier(t *testing.T) {
	def := []byte(`
categories:
  - id: bad-tier
    display_name: Bad
    priority_tier: urgent
    match_features:
      - {phrase: "x", weight: 1.0}
`)
	_, err := parse(def)
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("parse() error = %v, want ErrInvalidCategory", err)
	}
}

func TestParse_NonPositiveWeight(t *testing.T) {
	def := []byte(`
categories:
  - id: bad-weight
    display_name: Bad
    priority_tier: low
    match_features:
      - {phrase: "x", weight: 0}
`)
	_, err := parse(def)
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("parse() error = %v, want ErrInvalidCategory", err)
	}
}

func TestParse_WrongCount(t *testing.T) {
	def := []byte(`
categories:
  - id: only-one
    display_name: Only One
    priority_tier: high
    match_features:
      - {phrase: "x", weight: 1.0}
`)
	_, err := parse(def)
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("parse() error = %v, want ErrInvalidCategory", err)
	}
}

func TestTopFeature(t *testing.T) {
	c := UsageScenarioCategory{
		MatchFeatures: []MatchFeature{
			{Phrase: "minor", Weight: 1.0},
			{Phrase: "major", Weight: 5.0},
			{Phrase: "middle", Weight: 2.0},
		},
	}
	if got := c.TopFeature(); got != "major" {
		t.Errorf("TopFeature() = %q, want %q", got, "major")
	}
	if got := c.MaxWeight(); got != 8.0 {
		t.Errorf("MaxWeight() = %v, want 8.0", got)
	}
}
