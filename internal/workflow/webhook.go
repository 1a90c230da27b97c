package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxReplyBody = 1 << 20

var (
	ErrNotConfigured  = errors.New("workflow url is not configured")
	ErrWorkflowStatus = errors.New("workflow returned non-2xx status")
	ErrMalformedReply = errors.New("workflow reply is malformed")
)

// WebhookClient talks to the n8n chat and escalation webhooks.
type WebhookClient struct {
	httpClient  *http.Client
	chatURL     string
	escalateURL string
}

func NewWebhookClient(chatURL, escalateURL string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &WebhookClient{
		httpClient:  &http.Client{Timeout: timeout},
		chatURL:     strings.TrimSpace(chatURL),
		escalateURL: strings.TrimSpace(escalateURL),
	}
}

func (c *WebhookClient) Respond(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if c.chatURL == "" {
		return nil, ErrNotConfigured
	}
	raw, err := c.post(ctx, c.chatURL, req)
	if err != nil {
		return nil, err
	}
	return ParseChatReply(raw)
}

func (c *WebhookClient) Forward(ctx context.Context, req EscalationRequest) error {
	if c.escalateURL == "" {
		return ErrNotConfigured
	}
	_, err := c.post(ctx, c.escalateURL, req)
	return err
}

func (c *WebhookClient) post(ctx context.Context, url string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build workflow request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, fmt.Errorf("read workflow response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d: %s", ErrWorkflowStatus, resp.StatusCode, truncate(string(raw), 256))
	}
	return raw, nil
}

// ParseChatReply accepts an object or an array whose first element is the
// object. "reply" stands in for a missing "answer"; topic defaults to empty
// and canAnswer to true.
func ParseChatReply(raw []byte) (*ChatReply, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedReply)
	}

	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: empty array", ErrMalformedReply)
		}
		raw = items[0]
	}

	var parsed struct {
		Answer    string          `json:"answer"`
		Reply     string          `json:"reply"`
		Topic     string          `json:"topic"`
		CanAnswer json.RawMessage `json:"canAnswer"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	answer := parsed.Answer
	if strings.TrimSpace(answer) == "" {
		answer = parsed.Reply
	}
	return &ChatReply{
		Answer:    strings.TrimSpace(answer),
		Topic:     strings.TrimSpace(parsed.Topic),
		CanAnswer: parseCanAnswer(parsed.CanAnswer),
	}, nil
}

func parseCanAnswer(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
