package domain

import "time"

// Tier is the coarse trust classification of a source.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// ParseTier maps free-form tier text to a Tier, defaulting to medium.
func ParseTier(value string) Tier {
	switch Tier(normalizeWord(value)) {
	case TierHigh:
		return TierHigh
	case TierLow:
		return TierLow
	default:
		return TierMedium
	}
}

// Rank orders tiers for tie-breaking; higher is more trusted.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// RawItem is a record handed over by a fetch collaborator.
type RawItem struct {
	Title         string
	Link          string
	Body          string
	Summary       string
	PublishedAt   time.Time
	PublishedText string
	SourceName    string
	Category      string
	Tier          string
}

// Item is the internal, normalized representation that flows through the digest.
type Item struct {
	ID             string
	Title          string
	Body           string
	URL            string
	Source         string
	Category       string
	Tier           Tier
	PublishedAt    time.Time
	FetchedAt      time.Time
	NormalizedText string
	Fingerprint    string

	// Position in the batch handed to the digest; used as the last ranking key.
	Order int

	Tags        []string
	Keywords    []string
	ClusterID   string
	ClusterSize int

	Scores     Scores
	FinalScore float64
	Summary    *Summary
}

// Strategy names the summarization path that produced a summary.
type Strategy string

const (
	StrategyPrimary  Strategy = "primary"
	StrategyFallback Strategy = "fallback"
)

// Summary is written exactly once per item by a single strategy.
type Summary struct {
	Text         string
	WhyItMatters string
	Mitigation   string
	Strategy     Strategy
}

// Complete reports whether every text field is populated.
func (s Summary) Complete() bool {
	return s.Text != "" && s.WhyItMatters != "" && s.Mitigation != ""
}

// Cluster groups items sharing a topic within a single run.
type Cluster struct {
	ID               string
	ItemIDs          []string
	RepresentativeID string
}

// SourceDescriptor is the configured description of an upstream source.
type SourceDescriptor struct {
	Name     string
	Type     string
	Locator  string
	Category string
	Tier     Tier
	Enabled  bool
	Options  map[string]string
}
