// Package schema defines all canonical data types for the coverage
// evaluation output format. Field names are stable across runs so that
// emitted reports can be diffed externally.
package schema

import "time"

// FidelityLevel names one rung of the fidelity ladder.
type FidelityLevel string

const (
	FidelityFullFHIR       FidelityLevel = "full-fhir"
	FidelityFull           FidelityLevel = "full"
	FidelitySequential     FidelityLevel = "sequential"
	FidelityTable          FidelityLevel = "table"
	FidelityEvaluationOnly FidelityLevel = "evaluation-only"
	FidelityDraft          FidelityLevel = "draft"
	FidelityNone           FidelityLevel = "none"
)

// Ladder is the fallback order, highest fidelity first. A run that fails at
// Ladder[i] retries at Ladder[i+1]. FidelityNone is the floor and always
// succeeds.
var Ladder = []FidelityLevel{
	FidelityFullFHIR,
	FidelityFull,
	FidelitySequential,
	FidelityTable,
	FidelityEvaluationOnly,
	FidelityDraft,
	FidelityNone,
}

// LadderIndex returns the position of level in the ladder, or -1 for an
// unknown level.
func LadderIndex(level FidelityLevel) int {
	for i, l := range Ladder {
		if l == level {
			return i
		}
	}
	return -1
}

// PriorityTier classifies a usage-scenario category by clinical importance.
type PriorityTier string

const (
	TierHigh   PriorityTier = "high"
	TierMedium PriorityTier = "medium"
	TierLow    PriorityTier = "low"
)

// TierOrdinal returns the numeric rank of a tier for sorting. Lower sorts
// first: high=0, medium=1, low=2. Unknown tiers sort last.
func TierOrdinal(t PriorityTier) int {
	switch t {
	case TierHigh:
		return 0
	case TierMedium:
		return 1
	case TierLow:
		return 2
	default:
		return 3
	}
}

// CategoryState is the sequencer state of one category during a gap-filling
// run.
type CategoryState string

const (
	StatePending         CategoryState = "PENDING"
	StateEvaluating      CategoryState = "EVALUATING"
	StateSufficient      CategoryState = "SUFFICIENT"
	StateNeedsGeneration CategoryState = "NEEDS_GENERATION"
	StateFilled          CategoryState = "FILLED"
	StateSkipped         CategoryState = "SKIPPED"
)

// SkipReason records why a category ended a sequencer run in SKIPPED.
type SkipReason string

const (
	SkipGenerationFailed SkipReason = "GENERATION_FAILED"
	SkipBelowThreshold   SkipReason = "BELOW_THRESHOLD"
	SkipBudgetExhausted  SkipReason = "BUDGET_EXHAUSTED"
)

// ModeStatus is the outcome of a mode-specific payload build.
type ModeStatus string

const (
	ModeSuccess        ModeStatus = "SUCCESS"
	ModePartialSuccess ModeStatus = "PARTIAL_SUCCESS"
)

// RobustnessScore is the result of matching one document against one
// category. Produced fresh per evaluation and never mutated afterwards; a
// re-evaluation supersedes the old score rather than editing it.
type RobustnessScore struct {
	CategoryID      string   `json:"category_id"`
	Score           float64  `json:"score"`
	MatchedFeatures []string `json:"matched_features"`
	Rationale       string   `json:"rationale"`
}

// CoverageReport holds one document's scores against the full taxonomy.
// The scores map always carries exactly the registry's category set;
// unmatched categories are present with score 0.0, never omitted.
type CoverageReport struct {
	DocumentName    string                     `json:"document_name"`
	Scores          map[string]RobustnessScore `json:"scores"`
	OverallCoverage float64                    `json:"overall_coverage"`
	Timestamp       time.Time                  `json:"timestamp"`
}

// GapEntry describes one under-covered category. The gap list is a derived
// view of a CoverageReport, recomputed whenever the report changes.
type GapEntry struct {
	CategoryID   string       `json:"category_id"`
	PriorityTier PriorityTier `json:"priority_tier"`
	CurrentScore float64      `json:"current_score"`
	GapSize      float64      `json:"gap_size"`
	PriorityRank int          `json:"priority_rank"`
}

// InventoryEntry is one row of the table-fidelity scenario inventory: the
// 15 descriptive metadata fields plus the match score copied from the
// corresponding RobustnessScore at build time.
type InventoryEntry struct {
	Identifier       string  `json:"identifier"`
	CategoryID       string  `json:"category_id"`
	CategoryName     string  `json:"category_name"`
	ClinicalDomain   string  `json:"clinical_domain"`
	Persona          string  `json:"persona"`
	CareSetting      string  `json:"care_setting"`
	TriggerEvent     string  `json:"trigger_event"`
	DataInputs       string  `json:"data_inputs"`
	ExpectedResponse string  `json:"expected_response"`
	InteractionStyle string  `json:"interaction_style"`
	EvidenceSource   string  `json:"evidence_source"`
	RiskLevel        string  `json:"risk_level"`
	ComplexityBand   string  `json:"complexity_band"`
	ReviewStatus     string  `json:"review_status"`
	OriginDocument   string  `json:"origin_document"`
	MatchScore       float64 `json:"match_score"`
	Synthetic        bool    `json:"synthetic"`
}

// ResidualGap records a category left SKIPPED at the end of a sequencer run.
type ResidualGap struct {
	CategoryID  string     `json:"category_id"`
	FinalScore  float64    `json:"final_score"`
	Reason      SkipReason `json:"reason"`
	FailureNote string     `json:"failure_note,omitempty"`
}

// SequentialResult is the payload of a sequential-fidelity run: the updated
// coverage report, the categories left under-covered, and the number of
// external generation calls spent.
type SequentialResult struct {
	Report          *CoverageReport `json:"report"`
	ResidualGaps    []ResidualGap   `json:"residual_gaps"`
	GenerationCalls int             `json:"generation_calls"`
	FilledCount     int             `json:"filled_count"`
}

// TableResult is the payload of a table-fidelity run.
type TableResult struct {
	Entries        []InventoryEntry `json:"entries"`
	CompletionRate float64          `json:"completion_rate"`
	Status         ModeStatus       `json:"status"`
}

// Fallback records one degradation step taken by the orchestrator.
// Fallback is never silent; every step carries its reason.
type Fallback struct {
	From   FidelityLevel `json:"from"`
	To     FidelityLevel `json:"to"`
	Reason string        `json:"reason"`
}

// Scenario is one candidate test scenario returned by the generation
// collaborator. The engine treats its content as opaque.
type Scenario struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Title      string `json:"title"`
	Given      string `json:"given"`
	When       string `json:"when"`
	Then       string `json:"then"`
}

// GeneratedResult is the payload of a full, full-fhir, or draft run: the
// scenarios produced by the generation collaborator plus the coverage
// snapshot that seeded them.
type GeneratedResult struct {
	Scenarios []Scenario      `json:"scenarios"`
	Coverage  *CoverageReport `json:"coverage"`
}

// FidelityRun is one (document, fidelity) execution record, immutable after
// creation. Exactly one payload field is set, matching the level that
// actually succeeded; AchievedLevel never exceeds RequestedLevel without
// the fallback trail explaining the gap.
type FidelityRun struct {
	RequestedLevel FidelityLevel `json:"requested_level"`
	AchievedLevel  FidelityLevel `json:"achieved_level"`
	DocumentName   string        `json:"document_name"`
	ExecutionTime  time.Duration `json:"execution_time_ns"`
	Success        bool          `json:"success"`
	Fallbacks      []Fallback    `json:"fallbacks,omitempty"`
	Error          string        `json:"error,omitempty"`

	Coverage   *CoverageReport   `json:"coverage,omitempty"`
	Table      *TableResult      `json:"table,omitempty"`
	Sequential *SequentialResult `json:"sequential,omitempty"`
	Generated  *GeneratedResult  `json:"generated,omitempty"`
}

// DocumentReport is the per-document output file: every run of that
// document keyed by requested fidelity level.
type DocumentReport struct {
	DocumentName string                        `json:"document_name"`
	Runs         map[FidelityLevel]FidelityRun `json:"runs"`
}

// ComprehensiveReport aggregates all FidelityRun records for a batch.
// Computed once at batch completion and read-only thereafter. Runs are
// sorted by (document_name, fidelity_level) regardless of completion order.
type ComprehensiveReport struct {
	Tool           string        `json:"tool"`
	Version        string        `json:"version"`
	GeneratedAt    time.Time     `json:"generated_at"`
	TotalPairs     int           `json:"total_pairs"`
	SucceededPairs int           `json:"succeeded_pairs"`
	FallbackPairs  int           `json:"fallback_pairs"`
	FailedPairs    int           `json:"failed_pairs"`
	Runs           []FidelityRun `json:"runs"`
}
