// Package normalize turns raw fetched records into domain items.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/textutil"
)

// itemNamespace seeds the name-based UUIDs used as item identifiers.
var itemNamespace = uuid.MustParse("6f1c4d2e-8a57-4b0e-9c3a-2d5e7f901b44")

var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
}

// Normalizer canonicalizes raw records.
type Normalizer struct {
	logger *slog.Logger
}

// New returns a Normalizer; a nil logger discards output.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{logger: logger}
}

// Normalize builds an Item from raw. It fails with *domain.ValidationError
// when the title or link is missing.
func (n *Normalizer) Normalize(raw domain.RawItem, fetchedAt time.Time) (domain.Item, error) {
	title := textutil.CollapseSpace(StripMarkup(raw.Title))
	if title == "" {
		return domain.Item{}, &domain.ValidationError{Field: "title", Ref: strings.TrimSpace(raw.Link)}
	}
	link := strings.TrimSpace(raw.Link)
	if link == "" {
		return domain.Item{}, &domain.ValidationError{Field: "url", Ref: title}
	}

	body := raw.Body
	if strings.TrimSpace(body) == "" {
		body = raw.Summary
	}
	body = textutil.CollapseSpace(StripMarkup(body))

	canonical := CanonicalURL(link)
	source := strings.TrimSpace(raw.SourceName)
	normalized := NormalizeText(title + " " + body)

	return domain.Item{
		ID:             ItemID(source, canonical),
		Title:          title,
		Body:           body,
		URL:            canonical,
		Source:         source,
		Category:       strings.TrimSpace(raw.Category),
		Tier:           domain.ParseTier(raw.Tier),
		PublishedAt:    n.publishedAt(raw, fetchedAt),
		FetchedAt:      fetchedAt,
		NormalizedText: normalized,
		Fingerprint:    Fingerprint(normalized),
	}, nil
}

func (n *Normalizer) publishedAt(raw domain.RawItem, fetchedAt time.Time) time.Time {
	if !raw.PublishedAt.IsZero() {
		return raw.PublishedAt
	}
	text := strings.TrimSpace(raw.PublishedText)
	if text == "" {
		return fetchedAt
	}
	parsed, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		n.logger.Warn("unparseable published timestamp, using fetch time", "value", text, "link", raw.Link, "error", err)
		return fetchedAt
	}
	return parsed
}

// StripMarkup returns the visible text of an HTML fragment.
func StripMarkup(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}

// NormalizeText lowercases and collapses whitespace.
func NormalizeText(s string) string {
	return strings.ToLower(textutil.CollapseSpace(s))
}

// Fingerprint is a pure function of the normalized text.
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ItemID derives a stable identifier from the source name and canonical URL.
func ItemID(source, canonicalURL string) string {
	return uuid.NewSHA1(itemNamespace, []byte(source+"\x00"+canonicalURL)).String()
}

// CanonicalURL lowercases scheme and host and removes fragments and
// tracking parameters. Unparseable input is returned trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	query := parsed.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if _, drop := trackingParams[lower]; drop || strings.HasPrefix(lower, "utm_") {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()
	if parsed.Path == "/" {
		parsed.Path = ""
	}
	return parsed.String()
}
