package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/summarize"
)

const (
	DefaultModel   = "llama3.1:8b"
	defaultAPIKey  = "ollama"
	maxPromptRunes = 2000
)

var errNoJSON = errors.New("no json object in model response")

// OllamaSummarizer asks a local Ollama model for a grounded summary through
// its OpenAI-compatible endpoint.
type OllamaSummarizer struct {
	client *openai.Client
	model  string
}

var _ summarize.Summarizer = (*OllamaSummarizer)(nil)

// NewOllamaSummarizer points the OpenAI client at baseURL, appending "/v1"
// unless it is already there. Ollama ignores the key, but the client
// requires a non-empty one.
func NewOllamaSummarizer(baseURL, model, apiKey string) *OllamaSummarizer {
	if apiKey == "" {
		apiKey = defaultAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		base := strings.TrimRight(baseURL, "/")
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		cfg.BaseURL = base
	}
	return &OllamaSummarizer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OllamaSummarizer) Name() string { return "ollama" }

func (o *OllamaSummarizer) Strategy() domain.Strategy { return domain.StrategyPrimary }

// Summarize sends the article prompt and parses the JSON object the model
// is instructed to reply with.
func (o *OllamaSummarizer) Summarize(ctx context.Context, item domain.Item) (domain.Summary, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(item),
			},
		},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Summary{}, fmt.Errorf("no response choices")
	}
	return ParseSummary(resp.Choices[0].Message.Content)
}

// BuildPrompt renders the summarization prompt for one item.
func BuildPrompt(item domain.Item) string {
	title := item.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf(promptTemplate, title, item.Source, truncateRunes(item.Body, maxPromptRunes))
}

const promptTemplate = `You are summarizing an AI security article for cybersecurity professionals.

Article Title: %s
Source: %s
Content: %s

Provide a JSON response with exactly these three fields:

1. "summary": 1-2 sentence summary of the article (grounded in the content above)
2. "why_it_matters": 1 sentence explaining why this matters to enterprise defenders
3. "practical_mitigation": 1-2 actionable insights or mitigations (if applicable, otherwise "No specific mitigation provided")

IMPORTANT:
- Base your response ONLY on the content provided
- If details are unclear, say "Details limited"
- Do not hallucinate or add information not in the source
- Keep responses concise and practical

Respond ONLY with valid JSON in this format:
{
  "summary": "...",
  "why_it_matters": "...",
  "practical_mitigation": "..."
}`

type modelSummary struct {
	Summary    string `json:"summary"`
	Why        string `json:"why_it_matters"`
	Mitigation string `json:"practical_mitigation"`
}

// ParseSummary extracts the outermost JSON object from a model reply.
// Replies missing any field yield summarize.ErrIncomplete.
func ParseSummary(reply string) (domain.Summary, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return domain.Summary{}, errNoJSON
	}

	var parsed modelSummary
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		return domain.Summary{}, fmt.Errorf("decode model json: %w", err)
	}

	summary := domain.Summary{
		Text:         strings.TrimSpace(parsed.Summary),
		WhyItMatters: strings.TrimSpace(parsed.Why),
		Mitigation:   strings.TrimSpace(parsed.Mitigation),
	}
	if !summary.Complete() {
		return domain.Summary{}, summarize.ErrIncomplete
	}
	return summary, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
