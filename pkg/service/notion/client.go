package notion

import (
	"context"
	"iter"

	"github.com/jomei/notionapi"
	"github.com/m-mizutani/goerr/v2"
)

// client implements Service interface
type client struct {
	api *notionapi.Client
}

// New creates a new Notion service with the provided API token
func New(token string) (Service, error) {
	if token == "" {
		return nil, goerr.New("Notion API token is required")
	}

	return &client{
		api: notionapi.NewClient(
			notionapi.Token(token),
			notionapi.WithRetry(3), // Retry up to 3 times on rate limit (HTTP 429)
		),
	}, nil
}

// QueryHazards pages through the database and yields one row per page
func (c *client) QueryHazards(ctx context.Context, dbID string) iter.Seq2[*HazardRow, error] {
	return func(yield func(*HazardRow, error) bool) {
		var cursor notionapi.Cursor

		for {
			resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), &notionapi.DatabaseQueryRequest{
				StartCursor: cursor,
				PageSize:    100,
			})
			if err != nil {
				yield(nil, goerr.Wrap(err, "failed to query hazard database", goerr.V("dbID", dbID)))
				return
			}

			for _, page := range resp.Results {
				if page.Archived {
					continue
				}
				if !yield(hazardFromProperties(page.ID.String(), page.URL, page.Properties), nil) {
					return
				}
			}

			if !resp.HasMore {
				break
			}
			cursor = resp.NextCursor
		}
	}
}
