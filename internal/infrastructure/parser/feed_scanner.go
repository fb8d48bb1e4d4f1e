package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/scanner"
)

const maxFeedBytes = 8 << 20

// FeedScanner reads RSS 2.0 and Atom feeds.
type FeedScanner struct {
	client *http.Client
}

// NewFeedScanner wires an HTTP client with a default timeout.
func NewFeedScanner(client *http.Client) *FeedScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &FeedScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (f *FeedScanner) Name() string {
	return "rss"
}

type feedDocument struct {
	XMLName xml.Name
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Content     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string `xml:"pubDate"`
}

type atomEntry struct {
	Title string `xml:"title"`
	Links []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	Summary   string `xml:"summary"`
	Content   string `xml:"content"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
}

// Scan downloads the feed at the source locator. Published timestamps are
// passed through as text for the normalizer to parse; entries are not
// filtered by req.Since because feed dates are unreliable.
func (f *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawItem, error) {
	if req.Source.Locator == "" {
		return nil, fmt.Errorf("no feed url for source %s", req.Source.Name)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Source.Locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "ThreatDigest/1.0")
	httpReq.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	return parseFeed(io.LimitReader(resp.Body, maxFeedBytes))
}

func parseFeed(r io.Reader) ([]domain.RawItem, error) {
	var doc feedDocument
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	items := make([]domain.RawItem, 0, len(doc.Channel.Items)+len(doc.Entries))
	for _, it := range doc.Channel.Items {
		items = append(items, domain.RawItem{
			Title:         it.Title,
			Link:          strings.TrimSpace(it.Link),
			Body:          it.Content,
			Summary:       it.Description,
			PublishedText: it.PubDate,
		})
	}
	for _, entry := range doc.Entries {
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		items = append(items, domain.RawItem{
			Title:         entry.Title,
			Link:          atomLink(entry),
			Body:          entry.Content,
			Summary:       entry.Summary,
			PublishedText: published,
		})
	}
	return items, nil
}

func atomLink(entry atomEntry) string {
	for _, l := range entry.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(entry.Links) > 0 {
		return strings.TrimSpace(entry.Links[0].Href)
	}
	return ""
}
