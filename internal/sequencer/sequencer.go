// Package sequencer implements the sequential-fidelity gap-filling state
// machine: categories are visited in priority order, under-covered ones
// trigger targeted external generation, and every category ends a run in
// exactly one terminal state.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/coverage"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/generate"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/matcher"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

// Collaborator is the external scenario-generation dependency. The
// concrete implementation is generate.Generator; tests inject fakes.
type Collaborator interface {
	Generate(ctx context.Context, doc *document.GuidelineDocument, cat taxonomy.UsageScenarioCategory, constraints generate.Constraints) ([]schema.Scenario, error)
}

// Config carries the sequencer's tunables. Threshold and Budget are
// configuration, not constants: the source corpus shows scores without a
// documented cutoff, so both are owned by the caller.
type Config struct {
	// Threshold is the coverage target per category.
	Threshold float64
	// Budget caps external generation calls per run. Zero means no calls
	// are allowed; a negative value means unlimited.
	Budget int
}

// DefaultConfig is the sequencer configuration used when the caller does
// not override it.
var DefaultConfig = Config{Threshold: 0.5, Budget: 10}

// Sequencer drives one gap-filling run per document.
type Sequencer struct {
	registry *taxonomy.Registry
	agg      *coverage.Aggregator
	gen      Collaborator
	cfg      Config
	log      *zap.Logger
}

// New constructs a Sequencer. A nil logger is replaced with a no-op one.
func New(reg *taxonomy.Registry, agg *coverage.Aggregator, gen Collaborator, cfg Config, log *zap.Logger) *Sequencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{registry: reg, agg: agg, gen: gen, cfg: cfg, log: log}
}

// Run executes the state machine for doc. Generation failures and timeouts
// are never fatal: they skip the category and the run continues. The only
// error Run returns is the caller's context being cancelled between steps;
// in-flight generation calls finish or time out before the cancellation
// takes effect.
func (s *Sequencer) Run(ctx context.Context, doc *document.GuidelineDocument) (*schema.SequentialResult, error) {
	initial := s.agg.Evaluate(doc)
	order := s.visitOrder(initial)

	states := make(map[string]schema.CategoryState, len(order))
	for _, cat := range order {
		states[cat.ID] = schema.StatePending
	}

	// working is a run-local copy whose text grows with generated
	// scenarios, so re-scoring can observe the fill.
	working := *doc
	var residual []schema.ResidualGap
	calls := 0
	filled := 0

	for _, cat := range order {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sequencer: cancelled: %w", err)
		}

		states[cat.ID] = schema.StateEvaluating
		score := matcher.Score(&working, cat).Score

		if score >= s.cfg.Threshold {
			// Sufficient is transient: the category passes straight through
			// to Filled without a generation call.
			states[cat.ID] = schema.StateFilled
			filled++
			s.log.Debug("category sufficient",
				zap.String("category", cat.ID), zap.Float64("score", score))
			continue
		}

		states[cat.ID] = schema.StateNeedsGeneration

		if s.cfg.Budget >= 0 && calls >= s.cfg.Budget {
			states[cat.ID] = schema.StateSkipped
			residual = append(residual, schema.ResidualGap{
				CategoryID: cat.ID,
				FinalScore: score,
				Reason:     schema.SkipBudgetExhausted,
			})
			s.log.Info("generation budget exhausted",
				zap.String("category", cat.ID), zap.Int("calls", calls))
			continue
		}

		calls++
		scenarios, err := s.gen.Generate(ctx, &working, cat, generate.ConstraintsFor(doc.DomainTag))
		if err != nil {
			states[cat.ID] = schema.StateSkipped
			residual = append(residual, schema.ResidualGap{
				CategoryID:  cat.ID,
				FinalScore:  score,
				Reason:      schema.SkipGenerationFailed,
				FailureNote: err.Error(),
			})
			s.log.Warn("generation failed",
				zap.String("category", cat.ID),
				zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
				zap.Error(err))
			continue
		}

		working.SourceText += scenarioText(scenarios)
		working.ByteSize = len(working.SourceText)
		rescore := matcher.Score(&working, cat).Score

		if rescore >= s.cfg.Threshold {
			states[cat.ID] = schema.StateFilled
			filled++
			s.log.Info("gap filled",
				zap.String("category", cat.ID),
				zap.Float64("before", score), zap.Float64("after", rescore))
		} else {
			states[cat.ID] = schema.StateSkipped
			residual = append(residual, schema.ResidualGap{
				CategoryID: cat.ID,
				FinalScore: rescore,
				Reason:     schema.SkipBelowThreshold,
			})
			s.log.Info("generated scenarios did not clear threshold",
				zap.String("category", cat.ID), zap.Float64("score", rescore))
		}
	}

	// Done: every category must be terminal.
	for id, st := range states {
		if st != schema.StateFilled && st != schema.StateSkipped {
			return nil, fmt.Errorf("sequencer: category %s left in state %s", id, st)
		}
	}

	return &schema.SequentialResult{
		Report:          s.agg.Evaluate(&working),
		ResidualGaps:    residual,
		GenerationCalls: calls,
		FilledCount:     filled,
	}, nil
}

// visitOrder returns every registry category ordered by priority rank:
// tier first, then initial gap size descending, then id.
func (s *Sequencer) visitOrder(report *schema.CoverageReport) []taxonomy.UsageScenarioCategory {
	cats := append([]taxonomy.UsageScenarioCategory(nil), s.registry.Categories()...)
	sort.SliceStable(cats, func(i, j int) bool {
		oi, oj := schema.TierOrdinal(cats[i].PriorityTier), schema.TierOrdinal(cats[j].PriorityTier)
		if oi != oj {
			return oi < oj
		}
		gi := s.cfg.Threshold - report.Scores[cats[i].ID].Score
		gj := s.cfg.Threshold - report.Scores[cats[j].ID].Score
		if gi != gj {
			return gi > gj
		}
		return cats[i].ID < cats[j].ID
	})
	return cats
}

// scenarioText flattens generated scenarios into plain text appended to the
// working document for re-scoring.
func scenarioText(scenarios []schema.Scenario) string {
	var sb strings.Builder
	for _, sc := range scenarios {
		sb.WriteString("\n")
		sb.WriteString(sc.Title)
		sb.WriteString("\n")
		sb.WriteString(sc.Given)
		sb.WriteString("\n")
		sb.WriteString(sc.When)
		sb.WriteString("\n")
		sb.WriteString(sc.Then)
		sb.WriteString("\n")
	}
	return sb.String()
}
