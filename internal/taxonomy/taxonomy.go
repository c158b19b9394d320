// Package taxonomy holds the fixed catalog of CDS usage-scenario
// categories. The catalog is loaded once from an embedded definition and is
// read-only for the lifetime of the process, so it needs no synchronization.
package taxonomy

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
)

//go:embed definition.yaml
var builtinFS embed.FS

// ErrNotFound is returned by Registry.Get for an unknown category id. An
// unknown id is a programming error, not a data condition.
var ErrNotFound = errors.New("taxonomy: category not found")

// ErrInvalidCategory is returned at load time for a malformed category
// definition. It is fatal: a registry that fails to load blocks startup.
var ErrInvalidCategory = errors.New("taxonomy: invalid category")

// Expected tier partition. Fixed by policy; changing these is a taxonomy
// edit, never an evaluation-time concern.
const (
	TotalCategories = 23
	highCount       = 4
	mediumCount     = 5
)

// MatchFeature is one weighted phrase signal for a category.
type MatchFeature struct {
	Phrase string  `yaml:"phrase"`
	Weight float64 `yaml:"weight"`
}

// UsageScenarioCategory is one immutable entry of the taxonomy.
type UsageScenarioCategory struct {
	ID            string              `yaml:"id"`
	DisplayName   string              `yaml:"display_name"`
	PriorityTier  schema.PriorityTier `yaml:"priority_tier"`
	MatchFeatures []MatchFeature      `yaml:"match_features"`
}

// MaxWeight returns the sum of all feature weights, the maximum attainable
// raw match score for this category.
func (c UsageScenarioCategory) MaxWeight() float64 {
	var sum float64
	for _, f := range c.MatchFeatures {
		sum += f.Weight
	}
	return sum
}

// TopFeature returns the highest-weighted feature phrase, used when
// steering generation toward a category's strongest signal.
func (c UsageScenarioCategory) TopFeature() string {
	best := ""
	bestW := -1.0
	for _, f := range c.MatchFeatures {
		if f.Weight > bestW {
			best = f.Phrase
			bestW = f.Weight
		}
	}
	return best
}

// Registry is the loaded, validated category catalog.
type Registry struct {
	ordered []UsageScenarioCategory
	byID    map[string]UsageScenarioCategory
}

type definitionFile struct {
	Categories []UsageScenarioCategory `yaml:"categories"`
}

// Load parses and validates the embedded taxonomy definition. Any
// validation failure wraps ErrInvalidCategory and should abort the run.
func Load() (*Registry, error) {
	data, err := builtinFS.ReadFile("definition.yaml")
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read definition: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var def definitionFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("taxonomy: parse definition: %w", err)
	}

	r := &Registry{byID: make(map[string]UsageScenarioCategory, len(def.Categories))}
	tiers := map[schema.PriorityTier]int{}
	for _, c := range def.Categories {
		if err := validate(c); err != nil {
			return nil, err
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCategory, c.ID)
		}
		r.ordered = append(r.ordered, c)
		r.byID[c.ID] = c
		tiers[c.PriorityTier]++
	}

	if len(r.ordered) != TotalCategories {
		return nil, fmt.Errorf("%w: definition has %d categories, policy requires %d",
			ErrInvalidCategory, len(r.ordered), TotalCategories)
	}
	if tiers[schema.TierHigh] != highCount || tiers[schema.TierMedium] != mediumCount {
		return nil, fmt.Errorf("%w: tier partition %d/%d/%d, policy requires %d/%d/%d",
			ErrInvalidCategory,
			tiers[schema.TierHigh], tiers[schema.TierMedium], tiers[schema.TierLow],
			highCount, mediumCount, TotalCategories-highCount-mediumCount)
	}
	return r, nil
}

func validate(c UsageScenarioCategory) error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCategory)
	}
	if c.DisplayName == "" {
		return fmt.Errorf("%w: %s: missing display_name", ErrInvalidCategory, c.ID)
	}
	switch c.PriorityTier {
	case schema.TierHigh, schema.TierMedium, schema.TierLow:
	default:
		return fmt.Errorf("%w: %s: unknown priority_tier %q", ErrInvalidCategory, c.ID, c.PriorityTier)
	}
	// A category with zero match features can never be scored; reject it at
	// load time rather than surfacing a scoring-time surprise.
	if len(c.MatchFeatures) == 0 {
		return fmt.Errorf("%w: %s: no match features configured", ErrInvalidCategory, c.ID)
	}
	for _, f := range c.MatchFeatures {
		if strings.TrimSpace(f.Phrase) == "" {
			return fmt.Errorf("%w: %s: empty feature phrase", ErrInvalidCategory, c.ID)
		}
		if f.Weight <= 0 {
			return fmt.Errorf("%w: %s: feature %q has non-positive weight %v",
				ErrInvalidCategory, c.ID, f.Phrase, f.Weight)
		}
	}
	return nil
}

// Categories returns all categories in definition order. The returned slice
// must not be modified.
func (r *Registry) Categories() []UsageScenarioCategory {
	return r.ordered
}

// Get returns the category with the given id or an error wrapping
// ErrNotFound.
func (r *Registry) Get(id string) (UsageScenarioCategory, error) {
	c, ok := r.byID[id]
	if !ok {
		return UsageScenarioCategory{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c, nil
}
