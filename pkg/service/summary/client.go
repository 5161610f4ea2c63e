package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/kpi"
)

type client struct {
	llmClient gollem.LLMClient
	maxHigh   int
}

// Option is a functional option for client configuration
type Option func(*client)

// WithMaxHighRisk limits how many high-risk incidents are quoted in the prompt
func WithMaxHighRisk(n int) Option {
	return func(c *client) {
		c.maxHigh = n
	}
}

// New creates a summary service backed by the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient: llmClient,
		maxHigh:   20,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) Summarize(ctx context.Context, input Input) (*Summary, error) {
	if input.Report == nil {
		return nil, goerr.New("report is required")
	}

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(responseSchema()),
		gollem.WithSessionSystemPrompt(buildSystemPrompt(input.Language)),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(c.buildUserPrompt(input)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate summary")
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.New("summary generation returned empty result")
	}

	var summary Summary
	if err := json.Unmarshal([]byte(resp.Texts[0]), &summary); err != nil {
		return nil, goerr.Wrap(err, "failed to parse summary JSON", goerr.V("response", resp.Texts[0]))
	}

	return &summary, nil
}

const defaultPrompt = "Write a short occupational safety briefing for the site manager based on the indicators below."

func buildSystemPrompt(language string) string {
	var sb strings.Builder

	sb.WriteString("You are an occupational health and safety analyst reviewing an incident ledger.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. executive_summary: two or three sentences on the overall situation. Plain text.\n")
	sb.WriteString("2. top_risks: the most significant risks, most severe first. Refer to areas and incident types from the data.\n")
	sb.WriteString("3. recommended_actions: concrete corrective or preventive actions.\n")
	sb.WriteString("4. checklist: short yes/no verification items for the next inspection.\n")
	sb.WriteString("5. Use only the figures provided. Do not invent incidents.\n")
	if language != "" {
		fmt.Fprintf(&sb, "\nYou MUST write all output in %s.\n", language)
	}

	return sb.String()
}

func (c *client) buildUserPrompt(input Input) string {
	r := input.Report
	var sb strings.Builder

	prompt := input.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}
	sb.WriteString(prompt)
	sb.WriteString("\n\n")

	sb.WriteString("## Totals\n\n")
	fmt.Fprintf(&sb, "- Incidents recorded: %d\n", r.TotalIncidents)
	fmt.Fprintf(&sb, "- Lost days: %d\n", r.LostDays)
	for _, t := range types.AllIncidentTypes() {
		fmt.Fprintf(&sb, "- %s: %d (rate %.1f%%)\n", t, r.TotalsByType[t], r.Rates[t])
	}

	sb.WriteString("\n## Risk distribution\n\n")
	for _, level := range types.AllRiskLevels() {
		fmt.Fprintf(&sb, "- %s: %d\n", level, r.RiskDistribution[level])
	}

	if len(r.Areas) > 0 {
		sb.WriteString("\n## Areas\n\n")
		for _, a := range r.Areas {
			fmt.Fprintf(&sb, "- %s: %d incidents, %d lost days\n", a.Area, a.Count, a.LostDays)
		}
	}

	if len(r.HighRisk) > 0 {
		sb.WriteString("\n## High-risk incidents\n\n")
		for i, rec := range r.HighRisk {
			if i >= c.maxHigh {
				fmt.Fprintf(&sb, "- ... and %d more\n", len(r.HighRisk)-c.maxHigh)
				break
			}
			fmt.Fprintf(&sb, "- %s %s [%s] score %d: %s\n",
				rec.Date.Format("2006-01-02"), rec.Area, rec.Type, rec.Score, oneLine(rec.Description))
		}
	}

	writeTraining(&sb, r.Training)

	return sb.String()
}

func writeTraining(sb *strings.Builder, t kpi.TrainingSummary) {
	if t.Months == 0 {
		return
	}
	sb.WriteString("\n## Training\n\n")
	fmt.Fprintf(sb, "- %d sessions and %d attendees over %d months\n", t.Sessions, t.Attendees, t.Months)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func responseSchema() *gollem.Parameter {
	list := func(desc string) *gollem.Parameter {
		return &gollem.Parameter{
			Type:        gollem.TypeArray,
			Description: desc,
			Items:       &gollem.Parameter{Type: gollem.TypeString},
			Required:    true,
		}
	}

	return &gollem.Parameter{
		Title:       "SafetySummary",
		Description: "Structured safety briefing derived from incident indicators",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"executive_summary": {
				Type:        gollem.TypeString,
				Description: "Two or three sentence overview in plain text",
				Required:    true,
			},
			"top_risks":           list("Most significant risks, most severe first"),
			"recommended_actions": list("Concrete corrective or preventive actions"),
			"checklist":           list("Yes/no verification items for the next inspection"),
		},
	}
}
