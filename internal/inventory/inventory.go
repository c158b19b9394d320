// Package inventory expands a coverage report into the table-fidelity
// per-scenario metadata inventory.
package inventory

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

// SyntheticPolicy controls which zero-score categories receive a synthetic
// placeholder entry.
type SyntheticPolicy string

const (
	// SyntheticHighPriority emits placeholders only for high-tier
	// categories (default).
	SyntheticHighPriority SyntheticPolicy = "high-priority"
	// SyntheticAll emits a placeholder for every zero-score category.
	SyntheticAll SyntheticPolicy = "all"
	// SyntheticNone emits no placeholders.
	SyntheticNone SyntheticPolicy = "none"
)

// completionTarget is the minimum fraction of fully populated entries for
// the table build to count as SUCCESS rather than PARTIAL_SUCCESS.
const completionTarget = 0.95

// Builder expands coverage reports into inventory tables.
type Builder struct {
	registry *taxonomy.Registry
	policy   SyntheticPolicy
	// newID is swappable in tests so identifiers are stable.
	newID func() string
}

// NewBuilder returns a Builder with the given synthetic-placeholder policy.
func NewBuilder(reg *taxonomy.Registry, policy SyntheticPolicy) *Builder {
	return &Builder{
		registry: reg,
		policy:   policy,
		newID:    func() string { return uuid.NewString() },
	}
}

// Build emits one InventoryEntry per positively scored category plus
// synthetic placeholders per policy. Entries are built fresh from the
// report and go stale if it is recomputed. Every field of every entry is
// populated; the completion rate is measured anyway and a shortfall
// downgrades the result to PARTIAL_SUCCESS.
func (b *Builder) Build(report *schema.CoverageReport, doc *document.GuidelineDocument) *schema.TableResult {
	var entries []schema.InventoryEntry
	for _, cat := range b.registry.Categories() {
		s := report.Scores[cat.ID]
		switch {
		case s.Score > 0:
			entries = append(entries, b.entry(cat, doc, s, false))
		case b.synthesize(cat):
			entries = append(entries, b.entry(cat, doc, s, true))
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CategoryID < entries[j].CategoryID
	})

	res := &schema.TableResult{
		Entries:        entries,
		CompletionRate: completionRate(entries),
		Status:         schema.ModeSuccess,
	}
	if res.CompletionRate < completionTarget {
		res.Status = schema.ModePartialSuccess
	}
	return res
}

func (b *Builder) synthesize(cat taxonomy.UsageScenarioCategory) bool {
	switch b.policy {
	case SyntheticAll:
		return true
	case SyntheticHighPriority:
		return cat.PriorityTier == schema.TierHigh
	default:
		return false
	}
}

func (b *Builder) entry(cat taxonomy.UsageScenarioCategory, doc *document.GuidelineDocument, s schema.RobustnessScore, synthetic bool) schema.InventoryEntry {
	review := "auto-generated"
	trigger := fmt.Sprintf("guideline content matched %q", cat.TopFeature())
	inputs := "guideline excerpt"
	if synthetic {
		review = "placeholder-pending-generation"
		trigger = fmt.Sprintf("no guideline content matched; seeded from %q", cat.TopFeature())
		inputs = "category match features"
	}
	return schema.InventoryEntry{
		Identifier:       b.newID(),
		CategoryID:       cat.ID,
		CategoryName:     cat.DisplayName,
		ClinicalDomain:   doc.DomainTag,
		Persona:          personaFor(cat.PriorityTier),
		CareSetting:      settingFor(doc.DomainTag),
		TriggerEvent:     trigger,
		DataInputs:       inputs,
		ExpectedResponse: fmt.Sprintf("CDS surfaces a %s suggestion", cat.DisplayName),
		InteractionStyle: "non-interruptive card",
		EvidenceSource:   doc.Name,
		RiskLevel:        riskFor(cat.PriorityTier),
		ComplexityBand:   complexityFor(s.Score),
		ReviewStatus:     review,
		OriginDocument:   doc.Name,
		MatchScore:       s.Score,
		Synthetic:        synthetic,
	}
}

func personaFor(tier schema.PriorityTier) string {
	switch tier {
	case schema.TierHigh:
		return "attending physician"
	case schema.TierMedium:
		return "clinical pharmacist"
	default:
		return "registered nurse"
	}
}

func settingFor(domain string) string {
	switch domain {
	case "cardiology", "oncology":
		return "specialty clinic"
	case "pediatrics":
		return "pediatric ward"
	default:
		return "ambulatory care"
	}
}

func riskFor(tier schema.PriorityTier) string {
	switch tier {
	case schema.TierHigh:
		return "high"
	case schema.TierMedium:
		return "moderate"
	default:
		return "low"
	}
}

func complexityFor(score float64) string {
	switch {
	case score >= 0.66:
		return "rich"
	case score >= 0.33:
		return "moderate"
	default:
		return "sparse"
	}
}

// completionRate is the fraction of entries with all 15 metadata fields
// populated.
func completionRate(entries []schema.InventoryEntry) float64 {
	if len(entries) == 0 {
		return 1.0
	}
	complete := 0
	for _, e := range entries {
		if missingFields(e) == 0 {
			complete++
		}
	}
	return float64(complete) / float64(len(entries))
}

func missingFields(e schema.InventoryEntry) int {
	fields := []string{
		e.Identifier, e.CategoryID, e.CategoryName, e.ClinicalDomain,
		e.Persona, e.CareSetting, e.TriggerEvent, e.DataInputs,
		e.ExpectedResponse, e.InteractionStyle, e.EvidenceSource,
		e.RiskLevel, e.ComplexityBand, e.ReviewStatus, e.OriginDocument,
	}
	n := 0
	for _, f := range fields {
		if f == "" {
			n++
		}
	}
	return n
}
