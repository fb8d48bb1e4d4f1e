package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/summarize"
)

// Client talks to an external summarization service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ summarize.Summarizer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Name() string { return "ml-service" }

func (c *Client) Strategy() domain.Strategy { return domain.StrategyPrimary }

// Summarize posts the item and expects the three summary fields back.
func (c *Client) Summarize(ctx context.Context, item domain.Item) (domain.Summary, error) {
	payload := map[string]any{
		"id":       item.ID,
		"title":    item.Title,
		"source":   item.Source,
		"content":  item.Body,
		"tags":     item.Tags,
		"keywords": item.Keywords,
	}

	var resp struct {
		Summary    string `json:"summary"`
		Why        string `json:"why_it_matters"`
		Mitigation string `json:"practical_mitigation"`
	}

	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return domain.Summary{}, err
	}

	return domain.Summary{
		Text:         strings.TrimSpace(resp.Summary),
		WhyItMatters: strings.TrimSpace(resp.Why),
		Mitigation:   strings.TrimSpace(resp.Mitigation),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
