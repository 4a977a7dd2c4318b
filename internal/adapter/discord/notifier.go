// Package discord implements an escalation.Dispatcher for Discord webhooks.
package discord

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

const providerName = "discord"

// Dispatcher sends escalations to Discord via incoming webhook.
type Dispatcher struct {
	webhookURL string
	httpClient *http.Client
}

// NewDispatcher creates a Discord dispatcher with the given webhook URL.
func NewDispatcher(webhookURL string) *Dispatcher {
	return &Dispatcher{
		webhookURL: webhookURL,
		httpClient: http.DefaultClient,
	}
}

func (d *Dispatcher) Name() string { return providerName }

// discordWebhook is the Discord webhook payload with embeds.
type discordWebhook struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// Dispatch posts the full evidence bundle as a single embed.
func (d *Dispatcher) Dispatch(ctx context.Context, e decision.Escalation) error {
	if d.webhookURL == "" {
		return escalation.ErrNotConfigured
	}

	detail := e.Summary
	if e.Evidence != "" {
		detail += fmt.Sprintf("\n> %s", e.Evidence)
	}
	if !e.ProposedCPM.IsZero() || !e.TargetCPM.IsZero() {
		detail += fmt.Sprintf("\nProposed: $%s CPM / Target: $%s CPM",
			e.ProposedCPM.StringFixed(2), e.TargetCPM.StringFixed(2))
	}
	if e.SuggestedNext != "" {
		detail += fmt.Sprintf("\nSuggested: %s", e.SuggestedNext)
	}

	msg := discordWebhook{
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("[ESCALATION] %s", e.Reason),
			Description: detail,
			Color:       reasonColor(e.Reason),
			Footer: &discordFooter{
				Text: fmt.Sprintf("negotiation %s / campaign %s", e.NegotiationID, e.CampaignID),
			},
		}},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord returns 204 on success
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// reasonColor returns Discord embed colors per escalation reason severity.
func reasonColor(reason decision.Reason) int {
	switch reason {
	case decision.ReasonHallucination, decision.ReasonForbiddenPhrase, decision.ReasonMonetaryMismatch:
		return 0xE74C3C // red: the draft itself was unsafe
	case decision.ReasonCPMCeilingExceeded:
		return 0xF39C12 // orange: budget call needed
	default:
		return 0x3498DB // blue: routine human review
	}
}
