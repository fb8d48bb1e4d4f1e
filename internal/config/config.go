package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ThreatDigest/internal/digest"
	"ThreatDigest/internal/domain"
	"ThreatDigest/internal/rank"
	"ThreatDigest/internal/scoring"
	"ThreatDigest/internal/summarize"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "THREAT_DIGEST_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	ollamaURLEnv      = "OLLAMA_URL"
	ollamaModelEnv    = "OLLAMA_MODEL"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Database      DatabaseConfig      `yaml:"database"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Summarization SummarizationConfig `yaml:"summarization"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Thresholds    ThresholdConfig     `yaml:"thresholds"`
	Taxonomy      map[string][]string `yaml:"taxonomy"`
	Sources       []SourceConfig      `yaml:"sources"`
}

// LoggingConfig selects the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// disables the archive.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	EnsureSchema bool   `yaml:"ensureSchema"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// SchedulerConfig defines when the digest should run.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
	Timezone       string `yaml:"timezone"`
	Cadence        string `yaml:"cadence"`
	RunOnStart     bool   `yaml:"runOnStart"`
}

// Location resolves the scheduler timezone, falling back to UTC.
func (s SchedulerConfig) Location() *time.Location {
	tz := s.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIBase  string `yaml:"apiBase"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SummarizationConfig describes the primary strategies and dispatch limits.
type SummarizationConfig struct {
	Ollama     OllamaConfig  `yaml:"ollama"`
	Service    ServiceConfig `yaml:"service"`
	Timeout    time.Duration `yaml:"timeout"`
	FanOut     int           `yaml:"fanOut"`
	PublicOnly bool          `yaml:"publicOnly"`
}

// OllamaConfig points at a local Ollama server. An empty URL disables it.
type OllamaConfig struct {
	URL    string `yaml:"url"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`
}

// ServiceConfig points at an optional remote summarization service.
type ServiceConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
}

// ScoringConfig tunes the five scorers and their weights.
type ScoringConfig struct {
	Weights             map[string]float64 `yaml:"weights"`
	HalfLife            time.Duration      `yaml:"halfLife"`
	RelevanceSaturation int                `yaml:"relevanceSaturation"`
	BreadthBonus        float64            `yaml:"breadthBonus"`
	ClusterBoost        float64            `yaml:"clusterBoost"`
	ImpactHigh          []string           `yaml:"impactHigh"`
	ImpactMedium        []string           `yaml:"impactMedium"`
	Practical           []string           `yaml:"practical"`
	Workers             int                `yaml:"workers"`
}

// ThresholdConfig holds similarity thresholds and public view filters.
type ThresholdConfig struct {
	Dedup              float64  `yaml:"dedup"`
	Cluster            float64  `yaml:"cluster"`
	MinRelevance       float64  `yaml:"minRelevance"`
	PublicLimit        int      `yaml:"publicLimit"`
	ExcludedCategories []string `yaml:"excludedCategories"`
}

// SourceConfig describes a single upstream with its scanner strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Category string            `yaml:"category"`
	Tier     string            `yaml:"tier"`
	Enabled  *bool             `yaml:"enabled"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	path := os.Getenv(configPathEnv)
	if path == "" {
		cfg := defaultConfig()
		cfg.applyEnvOverrides()
		return cfg
	}

	cfg, err := LoadFile(path)
	if err != nil {
		log.Printf("config: %v (falling back to defaults)", err)
		cfg = defaultConfig()
		cfg.applyEnvOverrides()
	}
	return cfg
}

// LoadFile merges the YAML file at path over the defaults and applies
// environment overrides.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}

	cfg := mergeConfig(defaultConfig(), fileCfg)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(ollamaURLEnv); v != "" {
		c.Summarization.Ollama.URL = v
	}

	if v := os.Getenv(ollamaModelEnv); v != "" {
		c.Summarization.Ollama.Model = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.Cadence != "" {
		base.Scheduler.Cadence = override.Scheduler.Cadence
	}
	base.Scheduler.RunOnStart = base.Scheduler.RunOnStart || override.Scheduler.RunOnStart

	if override.Notifications.Telegram.APIBase != "" {
		base.Notifications.Telegram.APIBase = override.Notifications.Telegram.APIBase
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	s := override.Summarization
	if s.Ollama.URL != "" {
		base.Summarization.Ollama.URL = s.Ollama.URL
	}
	if s.Ollama.Model != "" {
		base.Summarization.Ollama.Model = s.Ollama.Model
	}
	if s.Ollama.APIKey != "" {
		base.Summarization.Ollama.APIKey = s.Ollama.APIKey
	}
	if s.Service.URL != "" {
		base.Summarization.Service = s.Service
	}
	if s.Timeout > 0 {
		base.Summarization.Timeout = s.Timeout
	}
	if s.FanOut > 0 {
		base.Summarization.FanOut = s.FanOut
	}
	base.Summarization.PublicOnly = base.Summarization.PublicOnly || s.PublicOnly

	sc := override.Scoring
	if len(sc.Weights) > 0 {
		base.Scoring.Weights = sc.Weights
	}
	if sc.HalfLife > 0 {
		base.Scoring.HalfLife = sc.HalfLife
	}
	if sc.RelevanceSaturation > 0 {
		base.Scoring.RelevanceSaturation = sc.RelevanceSaturation
	}
	if sc.BreadthBonus > 0 {
		base.Scoring.BreadthBonus = sc.BreadthBonus
	}
	if sc.ClusterBoost > 0 {
		base.Scoring.ClusterBoost = sc.ClusterBoost
	}
	if len(sc.ImpactHigh) > 0 {
		base.Scoring.ImpactHigh = sc.ImpactHigh
	}
	if len(sc.ImpactMedium) > 0 {
		base.Scoring.ImpactMedium = sc.ImpactMedium
	}
	if len(sc.Practical) > 0 {
		base.Scoring.Practical = sc.Practical
	}
	if sc.Workers > 0 {
		base.Scoring.Workers = sc.Workers
	}

	th := override.Thresholds
	if th.Dedup != 0 {
		base.Thresholds.Dedup = th.Dedup
	}
	if th.Cluster != 0 {
		base.Thresholds.Cluster = th.Cluster
	}
	if th.MinRelevance != 0 {
		base.Thresholds.MinRelevance = th.MinRelevance
	}
	if th.PublicLimit != 0 {
		base.Thresholds.PublicLimit = th.PublicLimit
	}
	if len(th.ExcludedCategories) > 0 {
		base.Thresholds.ExcludedCategories = th.ExcludedCategories
	}

	if len(override.Taxonomy) > 0 {
		base.Taxonomy = override.Taxonomy
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

// DigestSettings converts the configuration into the immutable value the
// processing core is built from. Validation happens in digest.New.
func (c Config) DigestSettings() digest.Settings {
	sc := scoring.DefaultConfig()
	sc.Weights = make(map[domain.Dimension]float64, len(c.Scoring.Weights))
	for name, w := range c.Scoring.Weights {
		sc.Weights[domain.Dimension(strings.ToLower(strings.TrimSpace(name)))] = w
	}
	sc.HalfLife = c.Scoring.HalfLife
	sc.RelevanceSaturation = c.Scoring.RelevanceSaturation
	sc.BreadthBonus = c.Scoring.BreadthBonus
	sc.ClusterBoost = c.Scoring.ClusterBoost
	sc.ImpactHigh = c.Scoring.ImpactHigh
	sc.ImpactMedium = c.Scoring.ImpactMedium
	sc.Practical = c.Scoring.Practical
	sc.Taxonomy = c.Taxonomy

	return digest.Settings{
		Scoring:          sc,
		DedupThreshold:   c.Thresholds.Dedup,
		ClusterThreshold: c.Thresholds.Cluster,
		Filter: rank.Filter{
			MinRelevance:       c.Thresholds.MinRelevance,
			ExcludedCategories: c.Thresholds.ExcludedCategories,
			Limit:              c.Thresholds.PublicLimit,
		},
		ScoringWorkers: c.Scoring.Workers,
		Summarization: summarize.Options{
			Timeout: c.Summarization.Timeout,
			FanOut:  c.Summarization.FanOut,
		},
		SummarizePublicOnly: c.Summarization.PublicOnly,
	}
}

// SourceDescriptors lists configured sources; sources without an explicit
// enabled flag are enabled.
func (c Config) SourceDescriptors() []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, 0, len(c.Sources))
	for _, s := range c.Sources {
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		out = append(out, domain.SourceDescriptor{
			Name:     s.Name,
			Type:     s.Type,
			Locator:  s.URL,
			Category: s.Category,
			Tier:     domain.ParseTier(s.Tier),
			Enabled:  enabled,
			Options:  s.Options,
		})
	}
	return out
}

func defaultConfig() Config {
	sc := scoring.DefaultConfig()
	weights := make(map[string]float64, len(sc.Weights))
	for d, w := range sc.Weights {
		weights[string(d)] = w
	}

	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, Cadence: "daily"},
		Summarization: SummarizationConfig{
			Ollama:  OllamaConfig{URL: "http://localhost:11434", Model: "llama3.1:8b"},
			Timeout: summarize.DefaultTimeout,
			FanOut:  summarize.DefaultFanOut,
		},
		Scoring: ScoringConfig{
			Weights:             weights,
			HalfLife:            sc.HalfLife,
			RelevanceSaturation: sc.RelevanceSaturation,
			BreadthBonus:        sc.BreadthBonus,
			ClusterBoost:        sc.ClusterBoost,
			ImpactHigh:          sc.ImpactHigh,
			ImpactMedium:        sc.ImpactMedium,
			Practical:           sc.Practical,
			Workers:             4,
		},
		Thresholds: ThresholdConfig{
			Dedup:       0.8,
			Cluster:     0.5,
			PublicLimit: 10,
		},
		Taxonomy: defaultTaxonomy(),
		Sources: []SourceConfig{
			{Name: "arXiv cs.CR", Type: "arxiv", URL: "https://export.arxiv.org/list/cs.CR/pastweek", Category: "research", Tier: "high"},
			{Name: "Schneier on Security", Type: "rss", URL: "https://www.schneier.com/feed/atom/", Category: "blog", Tier: "high"},
			{Name: "The Hacker News", Type: "rss", URL: "https://feeds.feedburner.com/TheHackersNews", Category: "news", Tier: "medium"},
		},
	}
}

func defaultTaxonomy() map[string][]string {
	return map[string][]string{
		"agentic_security":   {"agent", "agentic", "tool calling", "function calling", "autonomous"},
		"prompt_injection":   {"prompt injection", "jailbreak", "prompt attack", "indirect injection"},
		"hitl":               {"human-in-the-loop", "hitl", "kill switch", "human oversight"},
		"observability":      {"observability", "tracing", "audit", "logging", "monitoring"},
		"shadow_ai":          {"shadow ai", "governance", "policy", "compliance"},
		"data_leakage":       {"data leakage", "data exfiltration", "privacy", "pii"},
		"model_supply_chain": {"model supply chain", "model security", "poisoning", "backdoor"},
		"vuln_exploit":       {"vulnerability", "exploit", "cve", "zero-day"},
		"regulatory":         {"regulation", "regulatory", "compliance", "gdpr", "ai act", "nist"},
	}
}
