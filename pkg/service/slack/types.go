package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service provides interface to Slack API for ledger notifications
type Service interface {
	// GetChannelNames retrieves channel names for the given IDs (with caching).
	// Channels that cannot be resolved are omitted from the result.
	GetChannelNames(ctx context.Context, ids []string) (map[string]string, error)

	// PostMessage posts a Block Kit message to a channel and returns the message timestamp.
	// The text parameter is used as a fallback for notifications.
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error)
}
