package model

import (
	"runtime"
	"time"
)

// Config holds all runtime configuration. Values come from defaults,
// then ~/.factmesh/config.yaml, then FACTMESH_* environment variables,
// then command-line flags.
type Config struct {
	Tolerance    float64           `yaml:"tolerance" mapstructure:"tolerance"`
	Resolver     ResolverConfig    `yaml:"resolver" mapstructure:"resolver"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// ResolverConfig configures the optional model-assisted cell resolver
type ResolverConfig struct {
	Provider       string        `yaml:"provider" mapstructure:"provider"` // "openai" or "" for deterministic-only
	Model          string        `yaml:"model" mapstructure:"model"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"` // Override for OpenAI-compatible endpoints
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	BatchSize      int           `yaml:"batch_size" mapstructure:"batch_size"`             // Claims per request
	MaxContextRows int           `yaml:"max_context_rows" mapstructure:"max_context_rows"` // Rows of each table shown to the model
	CoreTables     int           `yaml:"core_tables" mapstructure:"core_tables"`           // Leading tables always included as context

	// Proxy settings for the resolver's HTTP client
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig configures resolver response caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // Disk cache location, default ~/.factmesh/cache
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig bounds outbound resolver requests
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig bounds parallel work in batch mode
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
	JSON          bool   `yaml:"json" mapstructure:"json"`         // Write the graph artifact
	Markdown      bool   `yaml:"markdown" mapstructure:"markdown"` // Write the markdown report
	HTML          bool   `yaml:"html" mapstructure:"html"`         // Write the dashboard
	GraphName     string `yaml:"graph_name" mapstructure:"graph_name"`
	ReportName    string `yaml:"report_name" mapstructure:"report_name"`
	DashboardName string `yaml:"dashboard_name" mapstructure:"dashboard_name"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Tolerance: 0.15,
		Resolver: ResolverConfig{
			Provider:       "",
			Model:          "gpt-4o-mini",
			Timeout:        60 * time.Second,
			BatchSize:      5,
			MaxContextRows: 30,
			CoreTables:     6,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
			JSON:          true,
			Markdown:      true,
			HTML:          true,
			GraphName:     "consistency_graph.json",
			ReportName:    "consistency_report.md",
			DashboardName: "verification_summary.html",
		},
	}
}
