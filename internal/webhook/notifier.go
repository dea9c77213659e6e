package webhook

import (
	"strings"

	"github.com/gabmichels/chloe-engine/internal/store"
)

// Notifier fans an escalation out to every configured channel. It satisfies
// the engine's Notifier interface; a Notifier with no channels is a no-op.
type Notifier struct {
	discord *Discord
	slack   *Slack
}

// NewNotifier creates a notifier for the configured webhook URLs.
// Empty URLs disable the corresponding channel.
func NewNotifier(discordURL, slackURL string) *Notifier {
	n := &Notifier{}
	if discordURL != "" {
		n.discord = NewDiscord(discordURL)
	}
	if slackURL != "" {
		n.slack = NewSlack(slackURL)
	}
	return n
}

// Configured reports whether any channel is set up
func (n *Notifier) Configured() bool {
	return n.discord != nil || n.slack != nil
}

// NotifyEscalation delivers the escalation to all configured channels,
// collecting failures instead of stopping at the first.
func (n *Notifier) NotifyEscalation(reason string, tasks []*store.Task) error {
	var errs []string
	if n.discord != nil {
		if err := n.discord.NotifyEscalation(reason, tasks); err != nil {
			errs = append(errs, "discord: "+err.Error())
		}
	}
	if n.slack != nil {
		if err := n.slack.NotifyEscalation(reason, tasks); err != nil {
			errs = append(errs, "slack: "+err.Error())
		}
	}
	if len(errs) > 0 {
		return &notifyError{msg: strings.Join(errs, "; ")}
	}
	return nil
}

type notifyError struct{ msg string }

func (e *notifyError) Error() string { return e.msg }
