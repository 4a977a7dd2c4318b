// Package slack implements an escalation.Dispatcher for Slack webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Strob0t/DealForge/internal/domain/decision"
	"github.com/Strob0t/DealForge/internal/port/escalation"
)

const providerName = "slack"

// Dispatcher sends escalations to Slack via incoming webhook.
type Dispatcher struct {
	webhookURL string
	httpClient *http.Client
}

// NewDispatcher creates a Slack dispatcher with the given webhook URL.
func NewDispatcher(webhookURL string) *Dispatcher {
	return &Dispatcher{
		webhookURL: webhookURL,
		httpClient: http.DefaultClient,
	}
}

func (d *Dispatcher) Name() string { return providerName }

// slackMessage is the Slack Block Kit message payload.
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Dispatch posts the full evidence bundle so a person can act without
// reading logs.
func (d *Dispatcher) Dispatch(ctx context.Context, e decision.Escalation) error {
	if d.webhookURL == "" {
		return escalation.ErrNotConfigured
	}

	header := fmt.Sprintf("[ESCALATION] %s", e.Reason)

	detail := e.Summary
	if e.Evidence != "" {
		detail += fmt.Sprintf("\n> %s", e.Evidence)
	}
	if !e.ProposedCPM.IsZero() || !e.TargetCPM.IsZero() {
		detail += fmt.Sprintf("\nProposed: $%s CPM — Target: $%s CPM",
			e.ProposedCPM.StringFixed(2), e.TargetCPM.StringFixed(2))
	}
	if e.SuggestedNext != "" {
		detail += fmt.Sprintf("\nSuggested: %s", e.SuggestedNext)
	}

	msg := slackMessage{
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: detail}},
			{Type: "context", Text: &slackText{Type: "mrkdwn",
				Text: fmt.Sprintf("_negotiation %s — campaign %s_", e.NegotiationID, e.CampaignID)}},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
