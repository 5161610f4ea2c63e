package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/service/slack"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken  string
	channelID string
	apiURL    string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token for ledger notifications",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("ANZEN_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel ID receiving high risk and sync conflict alerts",
			Category:    "Slack",
			Destination: &x.channelID,
			Sources:     cli.EnvVars("ANZEN_SLACK_CHANNEL_ID"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack API base URL (for testing)",
			Category:    "Slack",
			Hidden:      true,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("ANZEN_SLACK_API_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel-id", x.channelID),
	)
}

// IsConfigured checks if notifications can be sent
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure creates the notifier. Returns nil when Slack is not configured.
func (x *Slack) Configure(ctx context.Context) (*slack.Notifier, error) {
	if x.botToken == "" && x.channelID == "" {
		return nil, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrMissingArgument, "both slack-bot-token and slack-channel-id are required",
			goerr.V(OptionKey, "slack-bot-token/slack-channel-id"))
	}

	var opts []slack.Option
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}
	svc, err := slack.New(x.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}

	// Channel name lookup is best effort and only used for the startup log
	names, err := svc.GetChannelNames(ctx, []string{x.channelID})
	if err != nil {
		logging.From(ctx).Warn("failed to resolve slack channel name", "channel_id", x.channelID, "error", err)
	}
	logging.From(ctx).Info("Slack notifications enabled", "channel_id", x.channelID, "channel_name", names[x.channelID])

	return slack.NewNotifier(svc, x.channelID), nil
}
