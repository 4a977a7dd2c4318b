// Package litellm provides the text-generation client backing intent
// classification and email composition, via the LiteLLM proxy's
// OpenAI-compatible chat completions API.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/domain/negotiation"
	"github.com/Strob0t/DealForge/internal/port/classifier"
	"github.com/Strob0t/DealForge/internal/resilience"
)

// Client talks to the LiteLLM proxy chat completions endpoint.
type Client struct {
	baseURL       string
	masterKey     string
	classifyModel string
	composeModel  string
	httpClient    *http.Client
	breaker       *resilience.Breaker
}

// NewClient creates a LiteLLM client using the given models for the two
// text-generation calls.
func NewClient(baseURL, masterKey, classifyModel, composeModel string) *Client {
	return &Client{
		baseURL:       baseURL,
		masterKey:     masterKey,
		classifyModel: classifyModel,
		composeModel:  composeModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

const classifySystemPrompt = `You classify influencer replies in a rate negotiation.
Respond with JSON only: {"intent": one of "accept", "reject", "counter", "question", "unclear",
"confidence": number between 0 and 1,
"proposed_cpm": the rate the influencer asks for as a plain number string, or "" if none}.`

// Classify sends the inbound reply to the classification model and parses the
// structured verdict.
func (c *Client) Classify(ctx context.Context, replyText string, nctx negotiation.Context) (classifier.Classification, error) {
	user := fmt.Sprintf("Current offer: $%s CPM. Deliverables: %s.\n\nReply:\n%s",
		nctx.NextCPM.StringFixed(2), strings.Join(nctx.Deliverables, ", "), replyText)

	raw, err := c.chatCompletion(ctx, c.classifyModel, classifySystemPrompt, user, true)
	if err != nil {
		return classifier.Classification{}, fmt.Errorf("classify: %w", err)
	}

	var result classifier.Classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return classifier.Classification{}, fmt.Errorf("classify: parse model output: %w", err)
	}

	switch result.Intent {
	case classifier.IntentAccept, classifier.IntentReject, classifier.IntentCounter,
		classifier.IntentQuestion, classifier.IntentUnclear:
	default:
		result.Intent = classifier.IntentUnclear
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}

const composeSystemPrompt = `You draft a short, friendly counter-offer email for an influencer
marketing negotiation. Quote exactly one dollar amount: the target rate you are given.
Never promise anything beyond the listed deliverables. No guarantees, no exclusivity,
no free extras. Plain text, no subject line.`

// Compose drafts a counter-offer email. brandReference is reusable campaign
// context the caller caches across negotiations.
func (c *Client) Compose(ctx context.Context, nctx negotiation.Context, targetCPM decimal.Decimal, brandReference string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Influencer: %s (%s, %d followers).\n", nctx.InfluencerName, nctx.Platform, nctx.AudienceSize)
	fmt.Fprintf(&b, "Deliverables: %s.\n", strings.Join(nctx.Deliverables, ", "))
	fmt.Fprintf(&b, "Target rate: $%s CPM.\n", targetCPM.StringFixed(2))
	if brandReference != "" {
		fmt.Fprintf(&b, "\nBrand reference:\n%s\n", brandReference)
	}
	if len(nctx.History) > 0 {
		b.WriteString("\nThread so far:\n")
		for _, round := range nctx.History {
			fmt.Fprintf(&b, "[%s] %s\n", round.Direction, round.Body)
		}
	}

	body, err := c.chatCompletion(ctx, c.composeModel, composeSystemPrompt, b.String(), false)
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	return body, nil
}

// chatMessage is one message in the chat completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) chatCompletion(ctx context.Context, model, system, user string, jsonMode bool) (string, error) {
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/v1/chat/completions", body)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.masterKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.masterKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("litellm API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
