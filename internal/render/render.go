// Package render produces output files from assembled reports: one
// structured JSON report per document, one comprehensive JSON for the
// batch, and one human-readable Markdown summary.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hankh95/clinical-bdd-creator-sub001/internal/schema"
)

// RenderJSON produces a pretty-printed JSON representation of v. The output
// round-trips through json.Unmarshal back to an equal value.
func RenderJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("render: nil report")
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown produces the human-readable batch summary. Every run in
// the report appears in the output.
func RenderMarkdown(report *schema.ComprehensiveReport) string {
	if report == nil {
		return ""
	}
	var sb strings.Builder

	sb.WriteString("## Coverage Evaluation Summary\n\n")
	fmt.Fprintf(&sb, "**Pairs:** %d total | %d succeeded | %d via fallback | %d failed\n\n",
		report.TotalPairs, report.SucceededPairs, report.FallbackPairs, report.FailedPairs)

	sb.WriteString("| Document | Requested | Achieved | Success | Coverage | Fallbacks |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, run := range report.Runs {
		cov := "-"
		if c := runCoverage(run); c >= 0 {
			cov = fmt.Sprintf("%.3f", c)
		}
		ok := "yes"
		if !run.Success {
			ok = "no"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %d |\n",
			mdEscape(run.DocumentName), run.RequestedLevel, run.AchievedLevel,
			ok, cov, len(run.Fallbacks))
	}
	sb.WriteString("\n")

	for _, run := range report.Runs {
		if len(run.Fallbacks) == 0 && run.Sequential == nil {
			continue
		}
		fmt.Fprintf(&sb, "### %s @ %s\n\n", mdEscape(run.DocumentName), run.RequestedLevel)
		for _, fb := range run.Fallbacks {
			fmt.Fprintf(&sb, "- fallback %s → %s: %s\n", fb.From, fb.To, mdEscape(fb.Reason))
		}
		if seq := run.Sequential; seq != nil {
			fmt.Fprintf(&sb, "- generation calls: %d, filled: %d, residual gaps: %d\n",
				seq.GenerationCalls, seq.FilledCount, len(seq.ResidualGaps))
			for _, g := range seq.ResidualGaps {
				fmt.Fprintf(&sb, "  - %s: score %.3f (%s)\n", g.CategoryID, g.FinalScore, g.Reason)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// runCoverage extracts the overall coverage carried by a run's payload, or
// -1 when the payload has none (generated-only and none-level runs).
func runCoverage(run schema.FidelityRun) float64 {
	switch {
	case run.Sequential != nil && run.Sequential.Report != nil:
		return run.Sequential.Report.OverallCoverage
	case run.Coverage != nil:
		return run.Coverage.OverallCoverage
	case run.Generated != nil && run.Generated.Coverage != nil:
		return run.Generated.Coverage.OverallCoverage
	default:
		return -1
	}
}

// Options controls which files WriteReports emits.
type Options struct {
	PerDocument   bool
	Comprehensive bool
	Summary       bool
}

// WriteReports writes the selected report files into outDir, creating it if
// needed. File names are stable: <document>.json, comprehensive.json,
// summary.md.
func WriteReports(outDir string, report *schema.ComprehensiveReport, opts Options) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("render: create output dir: %w", err)
	}

	if opts.PerDocument {
		for _, dr := range batchDocuments(report) {
			b, err := RenderJSON(dr)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, dr.DocumentName+".json")
			if err := os.WriteFile(path, b, 0o644); err != nil {
				return fmt.Errorf("render: write %s: %w", path, err)
			}
		}
	}

	if opts.Comprehensive {
		b, err := RenderJSON(report)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, "comprehensive.json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return fmt.Errorf("render: write %s: %w", path, err)
		}
	}

	if opts.Summary {
		path := filepath.Join(outDir, "summary.md")
		if err := os.WriteFile(path, []byte(RenderMarkdown(report)), 0o644); err != nil {
			return fmt.Errorf("render: write %s: %w", path, err)
		}
	}

	return nil
}

// batchDocuments regroups runs per document in run order.
func batchDocuments(report *schema.ComprehensiveReport) []schema.DocumentReport {
	byDoc := map[string]*schema.DocumentReport{}
	var order []string
	for _, run := range report.Runs {
		dr, ok := byDoc[run.DocumentName]
		if !ok {
			dr = &schema.DocumentReport{
				DocumentName: run.DocumentName,
				Runs:         map[schema.FidelityLevel]schema.FidelityRun{},
			}
			byDoc[run.DocumentName] = dr
			order = append(order, run.DocumentName)
		}
		dr.Runs[run.RequestedLevel] = run
	}
	out := make([]schema.DocumentReport, 0, len(order))
	for _, name := range order {
		out = append(out, *byDoc[name])
	}
	return out
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
