// Package matcher provides deterministic local scoring of a guideline
// document against a single taxonomy category. No LLM calls are made here.
package matcher

import (
	"fmt"
	"strings"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

// Score computes the robustness score of doc against cat: a weighted
// case-insensitive phrase hit-count normalized by the category's maximum
// attainable weight, clamped to [0, 1]. Scoring is pure — identical inputs
// always yield identical scores.
//
// An empty or whitespace-only document scores 0.0; that is a data
// condition, not an error. A category with no features cannot reach this
// function: the registry rejects it at load time.
func Score(doc *document.GuidelineDocument, cat taxonomy.UsageScenarioCategory) schema.RobustnessScore {
	score := schema.RobustnessScore{CategoryID: cat.ID}

	if doc.IsEmpty() {
		score.Rationale = "document has no scoreable text"
		return score
	}

	text := strings.ToLower(doc.SourceText)
	var hit float64
	for _, f := range cat.MatchFeatures {
		if strings.Contains(text, strings.ToLower(f.Phrase)) {
			hit += f.Weight
			score.MatchedFeatures = append(score.MatchedFeatures, f.Phrase)
		}
	}

	max := cat.MaxWeight()
	s := hit / max
	if s > 1 {
		s = 1
	}
	if s < 0 {
		s = 0
	}
	score.Score = s
	score.Rationale = fmt.Sprintf("matched %d/%d features (weight %.1f of %.1f)",
		len(score.MatchedFeatures), len(cat.MatchFeatures), hit, max)
	return score
}
