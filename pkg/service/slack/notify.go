package slack

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/slack-go/slack"
)

// maxSectionTextBytes is Slack's limit for the text of a section block
const maxSectionTextBytes = 3000

// Notifier posts ledger events to a single channel
type Notifier struct {
	svc       Service
	channelID string
}

func NewNotifier(svc Service, channelID string) *Notifier {
	return &Notifier{svc: svc, channelID: channelID}
}

// ChannelID returns the destination channel
func (n *Notifier) ChannelID() string {
	return n.channelID
}

// NotifyHighRisk announces an incident whose derived level is High
func (n *Notifier) NotifyHighRisk(ctx context.Context, r *model.IncidentRecord) error {
	text := fmt.Sprintf("High risk incident recorded in %s (score %d)", r.Area, r.Score)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Date*\n"+r.Date.Format(time.DateOnly), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Type*\n"+r.Type.String(), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Area*\n"+r.Area, false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Score*\n%d (%s)", r.Score, r.Level), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Probability*\n"+r.Probability.String(), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Severity*\n"+r.Severity.String(), false, false),
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, ":rotating_light: High risk incident", true, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}
	if r.Description != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(r.Description, maxSectionTextBytes), false, false),
			nil, nil))
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, "Record "+r.Key.String()+" / ID "+r.ID, false, false)))

	if _, err := n.svc.PostMessage(ctx, n.channelID, blocks, text); err != nil {
		return goerr.Wrap(err, "failed to notify high risk incident", goerr.V("key", r.Key))
	}
	return nil
}

// NotifyConflict announces that a push was rejected because the mirror moved
func (n *Notifier) NotifyConflict(ctx context.Context, result *model.SyncResult) error {
	text := "Ledger sync conflict on " + result.Path

	body := fmt.Sprintf("The mirror at `%s` changed since it was last read.\nExpected version `%s`, nothing was overwritten. Pull the mirror and re-apply local changes.",
		result.Path, short(result.Previous.String()))

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, ":warning: Ledger sync conflict", true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(body, maxSectionTextBytes), false, false), nil, nil),
	}

	if _, err := n.svc.PostMessage(ctx, n.channelID, blocks, text); err != nil {
		return goerr.Wrap(err, "failed to notify sync conflict", goerr.V(model.PathKey, result.Path))
	}
	return nil
}

func short(v string) string {
	if v == "" {
		return "(none)"
	}
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

// truncateToMaxBytes cuts s to at most maxBytes without splitting a UTF-8 sequence
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
