package model

import (
	"runtime"
	"time"
)

// Config carries all settings for one verification run. It is constructed by
// the CLI (flags > CITECHECK_* env > config file > defaults) and passed into
// the verifier; nothing reads global state after construction.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Archive   ArchiveConfig   `mapstructure:"archive" yaml:"archive"`
	Matching  MatchingConfig  `mapstructure:"matching" yaml:"matching"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Oracle    OracleConfig    `mapstructure:"oracle" yaml:"oracle"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
}

// HTTPConfig controls live fetches.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxRedirects int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	// HTTPProxy and HTTPSProxy override the standard proxy environment
	// variables; empty means fall back to the environment.
	HTTPProxy  string `mapstructure:"http_proxy" yaml:"http_proxy"`
	HTTPSProxy string `mapstructure:"https_proxy" yaml:"https_proxy"`
}

// ArchiveConfig controls the local archive store and fetch fallback.
type ArchiveConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MinContentLen is the minimum byte length below which fetched content is
	// treated as unreliable and rejected.
	MinContentLen int `mapstructure:"min_content_len" yaml:"min_content_len"`
	// LocalOnly skips live fetches entirely; missing archives become NotFound.
	LocalOnly bool `mapstructure:"local_only" yaml:"local_only"`
	// CacheTTL bounds the in-memory cache of resolved texts within a run.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// MatchingConfig holds the matcher's tunables. The defaults are deliberate,
// not magic: see DefaultConfig.
type MatchingConfig struct {
	// PassThreshold is the minimum normalized score (0-100) for passed=true.
	PassThreshold int `mapstructure:"pass_threshold" yaml:"pass_threshold"`
	// DateToleranceDays is the window around the incident date within which a
	// date mention in the text counts as a proximity hit.
	DateToleranceDays int `mapstructure:"date_tolerance_days" yaml:"date_tolerance_days"`
}

// BatchConfig controls batching and intra-batch concurrency.
type BatchConfig struct {
	Size    int `mapstructure:"size" yaml:"size"`
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// RateLimitConfig enforces per-domain politeness: a minimum delay between
// requests to the same domain, so one slow domain never starves the others.
type RateLimitConfig struct {
	DomainDelay time.Duration `mapstructure:"domain_delay" yaml:"domain_delay"`
	Burst       int           `mapstructure:"burst" yaml:"burst"`
}

// OracleConfig configures the optional external judgment oracle. An empty
// Provider disables it.
type OracleConfig struct {
	Provider  string        `mapstructure:"provider" yaml:"provider"` // openai, anthropic, ollama
	Model     string        `mapstructure:"model" yaml:"model"`
	APIKey    string        `mapstructure:"-" yaml:"-"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// EscalationBand is how far below (and above) PassThreshold a heuristic
	// score may fall and still be escalated to the oracle for a second
	// opinion. Scores outside the band never invoke the oracle.
	EscalationBelow int `mapstructure:"escalation_below" yaml:"escalation_below"`
	EscalationAbove int `mapstructure:"escalation_above" yaml:"escalation_above"`
}

// Enabled reports whether an oracle provider is configured.
func (c OracleConfig) Enabled() bool {
	return c.Provider != ""
}

// OutputConfig controls report and progress output.
type OutputConfig struct {
	Verbose        bool   `mapstructure:"verbose" yaml:"verbose"`
	ReportPath     string `mapstructure:"report_path" yaml:"report_path"`
	CheckpointPath string `mapstructure:"checkpoint_path" yaml:"checkpoint_path"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "citecheck/0.2 (incident source verification)",
			MaxBodyBytes: 2_000_000,
			MaxRedirects: 3,
		},
		Archive: ArchiveConfig{
			Dir:           "archive",
			MinContentLen: 200,
			CacheTTL:      15 * time.Minute,
		},
		Matching: MatchingConfig{
			PassThreshold:     60,
			DateToleranceDays: 5,
		},
		Batch: BatchConfig{
			Size:    10,
			Workers: workers,
		},
		RateLimit: RateLimitConfig{
			DomainDelay: 2 * time.Second,
			Burst:       1,
		},
		Oracle: OracleConfig{
			Timeout:         30 * time.Second,
			MaxTokens:       500,
			EscalationBelow: 15,
			EscalationAbove: 10,
		},
		Output: OutputConfig{
			ReportPath:     "verification_report.json",
			CheckpointPath: "verification_checkpoint.json",
		},
	}
}
