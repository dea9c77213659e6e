package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gabmichels/chloe-engine/internal/store"
)

func sampleTasks() []*store.Task {
	return []*store.Task{
		{ID: 7, Title: "Sign the contract", Priority: store.PriorityHigh, Status: store.StatusBlocked, Deadline: "2026-09-01"},
	}
}

func TestDiscordNotifyEscalation(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	if err := d.NotifyEscalation("high-priority task is blocked", sampleTasks()); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	var payload DiscordPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(payload.Embeds))
	}
	embed := payload.Embeds[0]
	if embed.Description != "high-priority task is blocked" {
		t.Errorf("description = %q", embed.Description)
	}
	if len(embed.Fields) != 1 || !strings.Contains(embed.Fields[0].Name, "Sign the contract") {
		t.Errorf("fields = %+v", embed.Fields)
	}
	if !strings.Contains(embed.Fields[0].Value, "2026-09-01") {
		t.Errorf("field value misses the deadline: %q", embed.Fields[0].Value)
	}
}

func TestDiscordServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL)
	if err := d.NotifyEscalation("reason", nil); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestSlackNotifyEscalation(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(srv.URL)
	if err := s.NotifyEscalation("deadline within 24 hours", sampleTasks()); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	var payload SlackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if !strings.Contains(payload.Text, "deadline within 24 hours") {
		t.Errorf("fallback text = %q", payload.Text)
	}
	if len(payload.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(payload.Attachments))
	}
	// Header, reason section, one task section.
	if got := len(payload.Attachments[0].Blocks); got != 3 {
		t.Errorf("blocks = %d, want 3", got)
	}
}

func TestNotifierFansOut(t *testing.T) {
	var discordHits, slackHits int
	discordSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		discordHits++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer discordSrv.Close()
	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slackHits++
		w.WriteHeader(http.StatusOK)
	}))
	defer slackSrv.Close()

	n := NewNotifier(discordSrv.URL, slackSrv.URL)
	if !n.Configured() {
		t.Fatal("notifier should report configured")
	}
	if err := n.NotifyEscalation("reason", sampleTasks()); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}
	if discordHits != 1 || slackHits != 1 {
		t.Errorf("hits = discord %d, slack %d, want 1 each", discordHits, slackHits)
	}
}

func TestNotifierCollectsFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	n := NewNotifier(failing.URL, healthy.URL)
	err := n.NotifyEscalation("reason", nil)
	if err == nil {
		t.Fatal("expected an error from the failing channel")
	}
	if !strings.Contains(err.Error(), "discord") {
		t.Errorf("error = %q, should name the failing channel", err)
	}
}

func TestNotifierUnconfigured(t *testing.T) {
	n := NewNotifier("", "")
	if n.Configured() {
		t.Error("empty notifier reports configured")
	}
	if err := n.NotifyEscalation("reason", nil); err != nil {
		t.Errorf("no-op notifier returned %v", err)
	}
}
