// Package fidelity implements the orchestrator that runs one document at a
// requested fidelity level and degrades down the ladder on failure. The
// fallback path is a linear state machine with explicit recorded edges, so
// the path taken is always an inspectable trace, never a silent retry.
package fidelity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/coverage"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/generate"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/inventory"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/sequencer"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

// State is the orchestrator execution state for one (document, level) pair.
type State string

const (
	StateIdle           State = "IDLE"
	StateRunning        State = "RUNNING"
	StateSucceeded      State = "SUCCEEDED"
	StateFailedFallback State = "FAILED_FALLBACK"
	StateFailed         State = "FAILED"
)

// GenMode selects the generation flavor a ladder level needs.
type GenMode int

const (
	GenStandard GenMode = iota
	GenFHIR
	GenDraft
)

// CollaboratorFactory builds a generation collaborator for a mode. The CLI
// wires this to generate.New; tests substitute fakes.
type CollaboratorFactory func(mode GenMode) (sequencer.Collaborator, error)

// Orchestrator executes (document, requested fidelity) pairs. It holds only
// read-only collaborators, so one Orchestrator is safe to share across
// concurrent batch workers.
type Orchestrator struct {
	registry  *taxonomy.Registry
	agg       *coverage.Aggregator
	inv       *inventory.Builder
	seq       *sequencer.Sequencer
	newGen    CollaboratorFactory
	threshold float64
	budget    int
	log       *zap.Logger

	// attempt executes one ladder level. It is a field so tests can inject
	// level failures that the production components cannot produce.
	attempt func(ctx context.Context, doc *document.GuidelineDocument, level schema.FidelityLevel, run *schema.FidelityRun) error
}

// New constructs an Orchestrator. A nil logger is replaced with a no-op one.
func New(reg *taxonomy.Registry, agg *coverage.Aggregator, inv *inventory.Builder, seq *sequencer.Sequencer, newGen CollaboratorFactory, threshold float64, budget int, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		registry:  reg,
		agg:       agg,
		inv:       inv,
		seq:       seq,
		newGen:    newGen,
		threshold: threshold,
		budget:    budget,
		log:       log,
	}
	o.attempt = o.attemptLevel
	return o
}

// Execute runs doc at the requested level, falling back one rung at a time
// until a level succeeds or the ladder is exhausted. The returned
// FidelityRun is immutable: it records the requested level, the level that
// actually succeeded, and every fallback edge with its reason. The "none"
// floor succeeds by construction, so a hard-failed run can only come from
// an unknown level or batch cancellation.
func (o *Orchestrator) Execute(ctx context.Context, doc *document.GuidelineDocument, requested schema.FidelityLevel) schema.FidelityRun {
	start := time.Now()
	run := schema.FidelityRun{
		RequestedLevel: requested,
		DocumentName:   doc.Name,
	}

	idx := schema.LadderIndex(requested)
	if idx < 0 {
		run.Success = false
		run.Error = fmt.Sprintf("unknown fidelity level %q", requested)
		run.ExecutionTime = time.Since(start)
		return run
	}

	state := StateRunning
	for ; idx < len(schema.Ladder); idx++ {
		level := schema.Ladder[idx]
		o.log.Debug("attempting fidelity level",
			zap.String("document", doc.Name),
			zap.String("level", string(level)),
			zap.String("state", string(state)))

		err := o.attempt(ctx, doc, level, &run)
		if err == nil {
			state = StateSucceeded
			run.AchievedLevel = level
			run.Success = true
			break
		}

		if ctx.Err() != nil {
			// Batch-level cancellation: do not walk the ladder further.
			state = StateFailed
			run.Error = err.Error()
			break
		}

		if idx+1 >= len(schema.Ladder) {
			state = StateFailed
			run.Error = err.Error()
			break
		}

		state = StateFailedFallback
		next := schema.Ladder[idx+1]
		run.Fallbacks = append(run.Fallbacks, schema.Fallback{
			From:   level,
			To:     next,
			Reason: err.Error(),
		})
		o.log.Warn("fidelity level failed, degrading",
			zap.String("document", doc.Name),
			zap.String("from", string(level)),
			zap.String("to", string(next)),
			zap.Error(err))
	}

	run.ExecutionTime = time.Since(start)
	o.log.Info("fidelity run complete",
		zap.String("document", doc.Name),
		zap.String("requested", string(run.RequestedLevel)),
		zap.String("achieved", string(run.AchievedLevel)),
		zap.Bool("success", run.Success),
		zap.Int("fallbacks", len(run.Fallbacks)),
		zap.Duration("elapsed", run.ExecutionTime))
	return run
}

// attemptLevel runs one ladder level, filling run's payload on success.
func (o *Orchestrator) attemptLevel(ctx context.Context, doc *document.GuidelineDocument, level schema.FidelityLevel, run *schema.FidelityRun) error {
	clearPayload(run)
	switch level {
	case schema.FidelityFullFHIR:
		return o.generateLevel(ctx, doc, GenFHIR, false, run)
	case schema.FidelityFull:
		return o.generateLevel(ctx, doc, GenStandard, false, run)
	case schema.FidelitySequential:
		res, err := o.seq.Run(ctx, doc)
		if err != nil {
			return err
		}
		run.Sequential = res
		return nil
	case schema.FidelityTable:
		report := o.agg.Evaluate(doc)
		run.Table = o.inv.Build(report, doc)
		run.Coverage = report
		return nil
	case schema.FidelityEvaluationOnly:
		run.Coverage = o.agg.Evaluate(doc)
		return nil
	case schema.FidelityDraft:
		return o.generateLevel(ctx, doc, GenDraft, true, run)
	case schema.FidelityNone:
		// Explicit skip. The guaranteed floor: no work, no payload.
		return nil
	default:
		return fmt.Errorf("fidelity: unknown level %q", level)
	}
}

// generateLevel runs whole-document generation: scenarios for every gap
// category, high-tier only in draft mode, bounded by the generation budget.
// The level fails only when no gap category yields scenarios at all;
// individual call failures are recoverable.
func (o *Orchestrator) generateLevel(ctx context.Context, doc *document.GuidelineDocument, mode GenMode, highOnly bool, run *schema.FidelityRun) error {
	gen, err := o.newGen(mode)
	if err != nil {
		return fmt.Errorf("fidelity: collaborator: %w", err)
	}

	report := o.agg.Evaluate(doc)
	gaps := o.agg.Gaps(report, o.threshold)

	var scenarios []schema.Scenario
	calls := 0
	failures := 0
	attempted := 0
	for _, g := range gaps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("fidelity: cancelled: %w", err)
		}
		if highOnly && g.PriorityTier != schema.TierHigh {
			continue
		}
		if o.budget >= 0 && calls >= o.budget {
			break
		}
		cat, err := o.registry.Get(g.CategoryID)
		if err != nil {
			return err
		}
		attempted++
		calls++
		out, err := gen.Generate(ctx, doc, cat, generate.ConstraintsFor(doc.DomainTag))
		if err != nil {
			failures++
			o.log.Warn("generation call failed",
				zap.String("document", doc.Name),
				zap.String("category", cat.ID),
				zap.Error(err))
			continue
		}
		scenarios = append(scenarios, out...)
	}

	if attempted > 0 && failures == attempted {
		return fmt.Errorf("fidelity: %w: all %d generation calls failed", generate.ErrGeneration, attempted)
	}

	run.Generated = &schema.GeneratedResult{
		Scenarios: scenarios,
		Coverage:  report,
	}
	return nil
}

// clearPayload resets payload fields before a level attempt so that a
// fallback never leaks a partial higher-level payload into the final run.
func clearPayload(run *schema.FidelityRun) {
	run.Coverage = nil
	run.Table = nil
	run.Sequential = nil
	run.Generated = nil
}
