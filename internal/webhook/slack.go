package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gabmichels/chloe-engine/internal/store"
)

// Slack handles Slack webhook notifications
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack webhook handler for the given URL
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

// SlackBlock represents a Slack Block Kit block
type SlackBlock struct {
	Type   string         `json:"type"`
	Text   *SlackTextObj  `json:"text,omitempty"`
	Fields []SlackTextObj `json:"fields,omitempty"`
}

// SlackTextObj represents a Slack text object
type SlackTextObj struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// SlackAttachment represents a Slack attachment (for colored sidebar)
type SlackAttachment struct {
	Color  string       `json:"color"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackPayload represents the webhook payload
type SlackPayload struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// NotifyEscalation posts an escalation decision to Slack
func (s *Slack) NotifyEscalation(reason string, tasks []*store.Task) error {
	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackTextObj{
				Type:  "plain_text",
				Text:  ":rotating_light: Chloe needs a human decision",
				Emoji: true,
			},
		},
		{
			Type: "section",
			Text: &SlackTextObj{Type: "mrkdwn", Text: reason},
		},
	}

	for _, task := range tasks {
		line := fmt.Sprintf("*#%d %s* — priority %s, status %s", task.ID, task.Title, task.Priority, task.Status)
		if task.Deadline != "" {
			line += fmt.Sprintf(", due %s", task.Deadline)
		}
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackTextObj{Type: "mrkdwn", Text: line},
		})
	}

	payload := SlackPayload{
		Text: "Chloe escalation: " + reason,
		Attachments: []SlackAttachment{
			{Color: "#FFA500", Blocks: blocks},
		},
	}
	return s.send(payload)
}

func (s *Slack) send(payload SlackPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", s.webhookURL, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
