package summarize

import (
	"context"
	"fmt"
	"strings"

	"ThreatDigest/internal/domain"
)

const (
	fallbackSentences   = 2
	minSentenceLength   = 20
	fallbackPreviewRune = 200
	practicalThreshold  = 0.4
)

// TermExtractor lists actionable terms present in a body of text.
type TermExtractor interface {
	PracticalTerms(body string) []string
}

// FallbackMetadata derives a summary from the item's own fields. It never fails.
type FallbackMetadata struct {
	terms TermExtractor
}

// NewFallbackMetadata returns the metadata strategy; terms may be nil.
func NewFallbackMetadata(terms TermExtractor) *FallbackMetadata {
	return &FallbackMetadata{terms: terms}
}

func (f *FallbackMetadata) Name() string { return "metadata" }

func (f *FallbackMetadata) Strategy() domain.Strategy { return domain.StrategyFallback }

func (f *FallbackMetadata) Summarize(_ context.Context, item domain.Item) (domain.Summary, error) {
	return domain.Summary{
		Text:         FirstSentences(item.Body, fallbackSentences),
		WhyItMatters: f.whyItMatters(item),
		Mitigation:   f.mitigation(item),
	}, nil
}

func (f *FallbackMetadata) whyItMatters(item domain.Item) string {
	source := item.Source
	if source == "" {
		source = "an unnamed source"
	}
	if len(item.Tags) == 0 {
		return fmt.Sprintf("Security update from %s.", source)
	}
	return fmt.Sprintf("Touches %s, reported by %s.", humanList(item.Tags), source)
}

func (f *FallbackMetadata) mitigation(item domain.Item) string {
	var terms []string
	if f.terms != nil {
		terms = f.terms.PracticalTerms(item.Body)
	}
	if item.Scores.Practicality < practicalThreshold || len(terms) == 0 {
		return "Details limited - review full article for mitigation guidance."
	}
	return fmt.Sprintf("Article includes actionable guidance (%s); review and apply the recommended steps.", strings.Join(terms, ", "))
}

// FirstSentences returns up to n sentences of text, each longer than the
// minimum length, or a 200-character preview when no sentence ends.
func FirstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "No content available."
	}

	var (
		sentences []string
		current   strings.Builder
	)
	for _, r := range text {
		current.WriteRune(r)
		if strings.ContainsRune(".!?", r) && current.Len() > minSentenceLength {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
			if len(sentences) >= n {
				break
			}
		}
	}
	if len(sentences) > 0 {
		return strings.Join(sentences, " ")
	}

	runes := []rune(text)
	if len(runes) > fallbackPreviewRune {
		return string(runes[:fallbackPreviewRune]) + "..."
	}
	return text
}

func humanList(values []string) string {
	words := make([]string, len(values))
	for i, v := range values {
		words[i] = strings.ReplaceAll(v, "_", " ")
	}
	switch len(words) {
	case 1:
		return words[0]
	case 2:
		return words[0] + " and " + words[1]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}
