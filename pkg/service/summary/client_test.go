package summary_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/kpi"
	"github.com/secmon-lab/anzen/pkg/service/summary"
)

type mockSession struct {
	prompts           []string
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	for _, in := range input {
		if text, ok := in.(gollem.Text); ok {
			s.prompts = append(s.prompts, string(text))
		}
	}
	return s.generateContentFn(ctx, input...)
}

func (s *mockSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockClient struct {
	session      *mockSession
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return c.session, nil
}

func (c *mockClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func sampleReport() *kpi.Report {
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	s := &model.LedgerSnapshot{
		Incidents: []model.IncidentRecord{
			{Key: "k1", ID: "1", Date: date, Area: "Warehouse", Type: types.IncidentTypeAccident, LostDays: 3, Score: 20, Level: types.RiskLevelHigh, Description: "Fall from\nladder"},
			{Key: "k2", ID: "2", Date: date, Area: "Office", Type: types.IncidentTypeNearMiss, Score: 4, Level: types.RiskLevelLow},
		},
		Training: []model.TrainingRecord{
			{Month: model.MonthOf(date), Sessions: 2, Attendees: 18},
		},
	}
	return kpi.Build(s, 0)
}

func TestNew(t *testing.T) {
	_, err := summary.New(nil)
	gt.Value(t, err).NotNil()

	svc, err := summary.New(&mockClient{})
	gt.NoError(t, err).Required()
	gt.Value(t, svc).NotNil()
}

func TestSummarize(t *testing.T) {
	t.Run("parses structured response", func(t *testing.T) {
		session := &mockSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{Texts: []string{`{
					"executive_summary": "One serious fall in the warehouse.",
					"top_risks": ["Work at height"],
					"recommended_actions": ["Inspect ladders", "Refresh training"],
					"checklist": ["Ladders tagged?"]
				}`}}, nil
			},
		}
		svc, err := summary.New(&mockClient{session: session})
		gt.NoError(t, err).Required()

		got, err := svc.Summarize(context.Background(), summary.Input{Report: sampleReport()})
		gt.NoError(t, err).Required()
		gt.Value(t, got.ExecutiveSummary).Equal("One serious fall in the warehouse.")
		gt.Array(t, got.TopRisks).Length(1)
		gt.Array(t, got.RecommendedActions).Length(2)
		gt.Array(t, got.Checklist).Length(1)

		gt.Array(t, session.prompts).Length(1).Required()
		gt.String(t, session.prompts[0]).Contains("Warehouse")
		gt.String(t, session.prompts[0]).Contains("Fall from ladder")
	})

	t.Run("report is required", func(t *testing.T) {
		svc, err := summary.New(&mockClient{session: &mockSession{}})
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(context.Background(), summary.Input{})
		gt.Value(t, err).NotNil()
	})

	t.Run("empty response is an error", func(t *testing.T) {
		session := &mockSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{}, nil
			},
		}
		svc, err := summary.New(&mockClient{session: session})
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(context.Background(), summary.Input{Report: sampleReport()})
		gt.Value(t, err).NotNil()
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		session := &mockSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{Texts: []string{"not json"}}, nil
			},
		}
		svc, err := summary.New(&mockClient{session: session})
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(context.Background(), summary.Input{Report: sampleReport()})
		gt.Value(t, err).NotNil()
	})

	t.Run("session error is wrapped", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		svc, err := summary.New(&mockClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return nil, cause
			},
		})
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(context.Background(), summary.Input{Report: sampleReport()})
		gt.Error(t, err).Is(cause)
	})
}

func TestBuildPrompts(t *testing.T) {
	gt.String(t, summary.BuildSystemPrompt("Spanish")).Contains("You MUST write all output in Spanish")
	gt.Bool(t, summary.BuildSystemPrompt("") == summary.BuildSystemPrompt("")).True()

	prompt := summary.BuildUserPrompt(summary.Input{Report: sampleReport(), Prompt: "Custom instructions"}, 20)
	gt.String(t, prompt).Contains("Custom instructions")
	gt.String(t, prompt).Contains("Incidents recorded: 2")
	gt.String(t, prompt).Contains("2 sessions and 18 attendees over 1 months")

	truncated := summary.BuildUserPrompt(summary.Input{Report: sampleReport()}, 0)
	gt.String(t, truncated).Contains("... and 1 more")
}

func TestSummarize_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}

	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()
	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	svc, err := summary.New(llmClient)
	gt.NoError(t, err).Required()

	got, err := svc.Summarize(ctx, summary.Input{Report: sampleReport(), Language: "Spanish"})
	gt.NoError(t, err).Required()
	gt.String(t, got.ExecutiveSummary).NotEqual("")
	gt.Number(t, len(got.RecommendedActions)).GreaterOrEqual(1)
}
