// Package generate handles the external scenario-generation collaborator:
// provider communication, prompt construction, and response validation. The
// engine owns none of the generation logic itself; everything behind the
// Provider interface is a black box.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/document"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
	"github.com/hankh95/clinical-bdd-creator-sub001/internal/taxonomy"
)

// ErrGeneration is the sentinel for a failed generation call. Callers treat
// it as recoverable: a failed call skips the category or falls back a
// fidelity level, never aborts the run. Timeouts are wrapped into the same
// sentinel so both share one failure path.
var ErrGeneration = errors.New("generate: generation failed")

// Provider is the interface for generation backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// NewProvider is the factory for creating providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call
// site. Tests must restore the original value; use t.Cleanup to do so
// safely.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// Options configures a Generator.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	// CallTimeout bounds each external call. Zero means no per-call bound
	// beyond the caller's context.
	CallTimeout time.Duration
	// FHIRBindings asks the collaborator to attach FHIR resource references
	// to each scenario (full-fhir fidelity).
	FHIRBindings bool
	// DraftOnly relaxes the output contract to rough scenario sketches
	// (draft fidelity).
	DraftOnly bool
}

// Generator produces candidate scenarios for one document scoped to one
// category.
type Generator struct {
	provider Provider
	opts     Options
}

// New constructs a Generator, resolving the provider through NewProvider.
func New(opts Options) (*Generator, error) {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4096
	}
	p, err := NewProvider(opts.Provider, opts.Model)
	if err != nil {
		return nil, fmt.Errorf("generate: create provider: %w", err)
	}
	return &Generator{provider: p, opts: opts}, nil
}

// Generate asks the collaborator for candidate scenarios covering cat in
// the context of doc. Constraints carries the per-domain prompt addendum.
// All failures, including timeouts, wrap ErrGeneration.
func (g *Generator) Generate(ctx context.Context, doc *document.GuidelineDocument, cat taxonomy.UsageScenarioCategory, constraints Constraints) ([]schema.Scenario, error) {
	if g.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.CallTimeout)
		defer cancel()
	}

	sysPrompt := buildSystemPrompt(constraints, g.opts)
	userPrompt := buildUserPrompt(doc, cat)

	raw, err := g.provider.Complete(ctx, sysPrompt, userPrompt, g.opts.MaxTokens, g.opts.Temperature)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: call timed out after %s", ErrGeneration, g.opts.CallTimeout)
		}
		return nil, fmt.Errorf("%w: complete: %v", ErrGeneration, err)
	}

	scenarios, err := decodeScenarios(raw, cat.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return scenarios, nil
}

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences. The content
// group uses `.*?` to allow empty bodies inside fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line, used to strip orphaned
// opening fences from truncated responses.
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes leading/trailing markdown code fences that
// models sometimes wrap around JSON output.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// invalidJSONEscapeRe matches a backslash followed by any character that is
// not a valid JSON string escape. Models sometimes emit regex-like patterns
// unescaped inside JSON strings; the sanitizer double-escapes them so the
// parser accepts the response.
var invalidJSONEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

func fixInvalidJSONEscapes(s string) string {
	return invalidJSONEscapeRe.ReplaceAllString(s, `\\$1`)
}

type scenarioPayload struct {
	Scenarios []schema.Scenario `json:"scenarios"`
}

// decodeScenarios parses the raw collaborator response into scenarios.
// Fences are stripped and one escape-sanitizing reparse is attempted before
// giving up. Scenarios missing a category id inherit the requested one.
func decodeScenarios(raw, categoryID string) ([]schema.Scenario, error) {
	raw = stripMarkdownFences(raw)

	var payload scenarioPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		fixed := fixInvalidJSONEscapes(raw)
		if err2 := json.Unmarshal([]byte(fixed), &payload); err2 != nil {
			return nil, fmt.Errorf("decode response: %v", err)
		}
	}
	if len(payload.Scenarios) == 0 {
		return nil, errors.New("response contained no scenarios")
	}
	for i := range payload.Scenarios {
		if payload.Scenarios[i].CategoryID == "" {
			payload.Scenarios[i].CategoryID = categoryID
		}
	}
	return payload.Scenarios, nil
}

// buildSystemPrompt assembles the collaborator system prompt.
func buildSystemPrompt(constraints Constraints, opts Options) string {
	var sb strings.Builder

	sb.WriteString("You are a clinical-decision-support test scenario author.\n\n")
	sb.WriteString("Output ONLY valid JSON conforming to the schema below. " +
		"No prose, no markdown, no explanation outside the JSON.\n\n")
	sb.WriteString("Ground every scenario in the guideline excerpt provided. " +
		"Never invent clinical facts that the excerpt does not support.\n\n")

	if opts.FHIRBindings {
		sb.WriteString("For each scenario, reference the FHIR resource types " +
			"(e.g. MedicationRequest, Observation) that its data inputs map to " +
			"inside the given/when/then text.\n\n")
	}
	if opts.DraftOnly {
		sb.WriteString("Draft mode: one-sentence given/when/then sketches are " +
			"acceptable; completeness is not required.\n\n")
	}
	if constraints.PromptAddendum != "" {
		sb.WriteString(constraints.PromptAddendum)
		sb.WriteString("\n\n")
	}

	sb.WriteString(outputSchema)
	return sb.String()
}

// outputSchema is the JSON schema fragment shown to the collaborator.
const outputSchema = `Output schema (JSON only):
{
  "scenarios": [
    {
      "id": "SCN-001",
      "category_id": "<category id>",
      "title": "...",
      "given": "...",
      "when": "...",
      "then": "..."
    }
  ]
}
`

// excerptLimit bounds how much document text is sent per call.
const excerptLimit = 12000

// buildUserPrompt assembles the collaborator user prompt.
func buildUserPrompt(doc *document.GuidelineDocument, cat taxonomy.UsageScenarioCategory) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "TARGET CATEGORY: %s (%s)\n", cat.DisplayName, cat.ID)
	sb.WriteString("Category signals the scenarios should exercise:\n")
	for _, f := range cat.MatchFeatures {
		fmt.Fprintf(&sb, "  - %s\n", f.Phrase)
	}

	fmt.Fprintf(&sb, "\nGUIDELINE DOCUMENT %q (domain: %s):\n", doc.Name, doc.DomainTag)
	text := doc.SourceText
	if len(text) > excerptLimit {
		text = text[:excerptLimit]
	}
	sb.WriteString(text)

	sb.WriteString("\n\nProduce the JSON scenarios now.")
	return sb.String()
}

// ── Provider dispatch ─────────────────────────────────────────────────────────

// defaultNewProvider dispatches to the appropriate provider implementation.
func defaultNewProvider(providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic", "":
		return newAnthropicProvider(model)
	case "openai":
		return newOpenAIProvider(model)
	case "google":
		return newGoogleProvider(model)
	case "mock":
		return &MockProvider{}, nil
	default:
		return nil, fmt.Errorf("generate: unknown provider %q", providerName)
	}
}
