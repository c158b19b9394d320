package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/batch"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/coverage"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/fidelity"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/generate"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/inventory"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/render"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/sequencer"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

// Exit codes: 0 all pairs terminal success (fallback-degraded counts as
// success), 2 at least one hard Failed pair, 3 configuration error.
const (
	exitFailedPairs = 2
	exitConfig      = 3
)

type runFlags struct {
	fidelities    []string
	domain        string
	out           string
	perDoc        bool
	comprehensive bool
	summary       bool
	threshold     float64
	budget        int
	callTimeout   time.Duration
	concurrency   int
	provider      string
	model         string
	maxTokens     int
	temperature   float64
	synthetic     string
	strict        bool
	verbose       bool
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <guideline-file>...",
		Short: "Evaluate guideline documents across the requested fidelity levels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(args, f)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&f.fidelities, "fidelity", []string{string(schema.FidelitySequential)},
		"Requested fidelity levels (may be repeated): full-fhir, full, sequential, table, evaluation-only, draft, none")
	flags.StringVar(&f.domain, "domain", "", "Clinical domain tag override (default: inferred from path)")
	flags.StringVar(&f.out, "out", "coveval-reports", "Output directory for report files")
	flags.BoolVar(&f.perDoc, "per-doc-reports", true, "Write one JSON report per document")
	flags.BoolVar(&f.comprehensive, "comprehensive-report", true, "Write the batch-wide comprehensive JSON report")
	flags.BoolVar(&f.summary, "summary", true, "Write the human-readable Markdown summary")
	flags.Float64Var(&f.threshold, "threshold", sequencer.DefaultConfig.Threshold, "Coverage target per category")
	flags.IntVar(&f.budget, "generation-budget", sequencer.DefaultConfig.Budget, "Max generation calls per run (-1 for unlimited)")
	flags.DurationVar(&f.callTimeout, "call-timeout", 30*time.Second, "Per-call timeout for generation requests")
	flags.IntVar(&f.concurrency, "concurrency", 4, "Max (document, fidelity) pairs evaluated in parallel")
	flags.StringVar(&f.provider, "provider", "", "Generation provider: anthropic (default), openai, google, or mock")
	flags.StringVar(&f.model, "model", "claude-sonnet-4-20250514", "Generation model ID")
	flags.IntVar(&f.maxTokens, "max-tokens", 4096, "Max response tokens per generation call")
	flags.Float64Var(&f.temperature, "temperature", 0.2, "Generation temperature")
	flags.StringVar(&f.synthetic, "synthetic", string(inventory.SyntheticHighPriority),
		"Table-mode synthetic placeholder policy: none, high-priority, or all")
	flags.BoolVar(&f.strict, "strict", false, "Also fail the run when any pair succeeded only via fallback")
	flags.BoolVar(&f.verbose, "verbose", false, "Enable debug logging")

	return cmd
}

func runBatch(paths []string, f *runFlags) error {
	logger, err := newLogger(f.verbose)
	if err != nil {
		return exitErrorf(exitConfig, "coveval: logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Configuration errors abort the whole run before any pair starts.
	registry, err := taxonomy.Load()
	if err != nil {
		return exitErrorf(exitConfig, "coveval: %v", err)
	}

	levels, err := parseLevels(f.fidelities)
	if err != nil {
		return exitErrorf(exitConfig, "coveval: %v", err)
	}

	var docs []*document.GuidelineDocument
	for _, p := range paths {
		doc, err := document.Load(p, f.domain)
		if err != nil {
			return exitErrorf(exitConfig, "coveval: %v", err)
		}
		docs = append(docs, doc)
	}

	newGen := func(mode fidelity.GenMode) (sequencer.Collaborator, error) {
		return generate.New(generate.Options{
			Provider:     f.provider,
			Model:        f.model,
			MaxTokens:    f.maxTokens,
			Temperature:  f.temperature,
			CallTimeout:  f.callTimeout,
			FHIRBindings: mode == fidelity.GenFHIR,
			DraftOnly:    mode == fidelity.GenDraft,
		})
	}

	policy := inventory.SyntheticPolicy(f.synthetic)
	switch policy {
	case inventory.SyntheticNone, inventory.SyntheticHighPriority, inventory.SyntheticAll:
	default:
		return exitErrorf(exitConfig, "coveval: unknown synthetic policy %q", f.synthetic)
	}

	agg := coverage.NewAggregator(registry)
	inv := inventory.NewBuilder(registry, policy)

	// Levels that never call the collaborator must not demand an API key.
	var seqGen sequencer.Collaborator = unavailableCollaborator{}
	if needsGeneration(levels) {
		seqGen, err = newGen(fidelity.GenStandard)
		if err != nil {
			return exitErrorf(exitConfig, "coveval: %v", err)
		}
	}
	seq := sequencer.New(registry, agg, seqGen,
		sequencer.Config{Threshold: f.threshold, Budget: f.budget}, logger)
	orch := fidelity.New(registry, agg, inv, seq, newGen, f.threshold, f.budget, logger)
	runner := batch.NewRunner(orch, f.concurrency, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("batch starting",
		zap.Int("documents", len(docs)),
		zap.Int("levels", len(levels)),
		zap.Int("concurrency", f.concurrency))

	report := runner.Run(ctx, docs, levels)

	if err := render.WriteReports(f.out, report, render.Options{
		PerDocument:   f.perDoc,
		Comprehensive: f.comprehensive,
		Summary:       f.summary,
	}); err != nil {
		return exitErrorf(1, "coveval: %v", err)
	}

	logger.Info("batch complete",
		zap.Int("total", report.TotalPairs),
		zap.Int("succeeded", report.SucceededPairs),
		zap.Int("fallback", report.FallbackPairs),
		zap.Int("failed", report.FailedPairs))

	if report.FailedPairs > 0 {
		return exitErrorf(exitFailedPairs, "coveval: %d of %d pairs failed", report.FailedPairs, report.TotalPairs)
	}
	if f.strict && report.FallbackPairs > 0 {
		return exitErrorf(exitFailedPairs, "coveval: %d pairs degraded via fallback (--strict)", report.FallbackPairs)
	}
	return nil
}

// needsGeneration reports whether any requested level (or a level reachable
// from it by fallback) invokes the generation collaborator.
func needsGeneration(levels []schema.FidelityLevel) bool {
	for _, l := range levels {
		switch l {
		case schema.FidelityFullFHIR, schema.FidelityFull, schema.FidelitySequential, schema.FidelityDraft:
			return true
		}
	}
	return false
}

// unavailableCollaborator backs the sequencer when no generation level was
// requested; it is unreachable in that configuration but fails safe.
type unavailableCollaborator struct{}

func (unavailableCollaborator) Generate(context.Context, *document.GuidelineDocument, taxonomy.UsageScenarioCategory, generate.Constraints) ([]schema.Scenario, error) {
	return nil, generate.ErrGeneration
}

func parseLevels(names []string) ([]schema.FidelityLevel, error) {
	var levels []schema.FidelityLevel
	for _, n := range names {
		l := schema.FidelityLevel(n)
		if schema.LadderIndex(l) < 0 {
			return nil, fmt.Errorf("unknown fidelity level %q", n)
		}
		levels = append(levels, l)
	}
	return levels, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}
