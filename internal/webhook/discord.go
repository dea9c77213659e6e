// Package webhook posts escalation decisions to human notification channels.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gabmichels/chloe-engine/internal/store"
)

// Discord handles Discord webhook notifications
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord webhook handler for the given URL
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

// DiscordEmbed represents a Discord embed object
type DiscordEmbed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// DiscordPayload represents the webhook payload
type DiscordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// NotifyEscalation posts an escalation decision to Discord
func (d *Discord) NotifyEscalation(reason string, tasks []*store.Task) error {
	embed := DiscordEmbed{
		Title:       "🚨 Chloe needs a human decision",
		Description: reason,
		Color:       0xFFA500, // Orange
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &EmbedFooter{Text: "Chloe Decision Engine"},
	}

	for _, task := range tasks {
		value := fmt.Sprintf("priority %s, status %s", task.Priority, task.Status)
		if task.Deadline != "" {
			value += fmt.Sprintf(", due %s", task.Deadline)
		}
		embed.Fields = append(embed.Fields, EmbedField{
			Name:   fmt.Sprintf("#%d %s", task.ID, truncateField(task.Title, 200)),
			Value:  value,
			Inline: false,
		})
	}

	return d.send(DiscordPayload{Embeds: []DiscordEmbed{embed}})
}

func (d *Discord) send(payload DiscordPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", d.webhookURL, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
