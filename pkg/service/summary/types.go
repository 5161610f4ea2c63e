package summary

import (
	"context"

	"github.com/secmon-lab/anzen/pkg/kpi"
)

// Service generates a natural-language briefing from ledger indicators
type Service interface {
	// Summarize returns a structured summary of the report. The report is
	// sent as-is; callers decide which window of the ledger it covers.
	Summarize(ctx context.Context, input Input) (*Summary, error)
}

// Input is the material to be summarized
type Input struct {
	Report   *kpi.Report
	Language string // Output language (optional, e.g. "Spanish")
	Prompt   string // Custom instructions (optional, uses default if empty)
}

// Summary is the structured result of Summarize
type Summary struct {
	ExecutiveSummary   string   `json:"executive_summary"`
	TopRisks           []string `json:"top_risks"`
	RecommendedActions []string `json:"recommended_actions"`
	Checklist          []string `json:"checklist"`
}
