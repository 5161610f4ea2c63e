package notion_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/service/notion"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			name:    "valid token",
			token:   "test-token",
			wantErr: false,
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := notion.New(tt.token)
			if tt.wantErr {
				gt.Value(t, err).NotNil()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, svc).NotNil()
		})
	}
}

func TestQueryHazards_Integration(t *testing.T) {
	token := os.Getenv("TEST_NOTION_API_TOKEN")
	if token == "" {
		t.Skip("TEST_NOTION_API_TOKEN environment variable not set")
	}

	dbID := os.Getenv("TEST_NOTION_DATABASE_ID")
	if dbID == "" {
		t.Skip("TEST_NOTION_DATABASE_ID environment variable not set")
	}

	svc, err := notion.New(token)
	gt.NoError(t, err).Required()

	count := 0
	for row, err := range svc.QueryHazards(context.Background(), dbID) {
		gt.NoError(t, err).Required()
		gt.String(t, row.PageID).NotEqual("")
		t.Logf("hazard %s: %s (%s x %s)", row.ID, row.Hazard, row.Probability, row.Severity)
		count++
	}
	t.Logf("read %d hazards", count)
}
