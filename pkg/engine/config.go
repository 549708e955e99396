package engine

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/blasko/pkg/upstream/bnsv2"
	"github.com/germanamz/blasko/pkg/upstream/hiro"
	"github.com/germanamz/blasko/pkg/upstream/llama"
	"github.com/germanamz/blasko/pkg/upstream/velar"
)

// Config is the top-level engine configuration.
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Model        string             `yaml:"model"` // Provider name used for chat; the first provider when empty.
	Providers    []ProviderConfig   `yaml:"providers"`
	Server       ServerConfig       `yaml:"server"`
	Upstreams    UpstreamsConfig    `yaml:"upstreams"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	NFT          NFTConfig          `yaml:"nft"`
}

// RateLimitConfig controls per-provider rate limiting.
type RateLimitConfig struct {
	RPM        int           `yaml:"rpm"`         // Requests per minute (0 = no limit).
	Burst      int           `yaml:"burst"`       // Requests allowed at once (default 1).
	MaxRetries int           `yaml:"max_retries"` // Max retries on 429 (default 3).
	BaseDelay  time.Duration `yaml:"base_delay"`  // Initial backoff delay (e.g. "1s", "500ms").
	MaxDelay   time.Duration `yaml:"max_delay"`   // Cap on a single backoff delay.
}

func (r RateLimitConfig) enabled() bool {
	return r.RPM > 0 || r.MaxRetries > 0 || r.BaseDelay > 0 || r.MaxDelay > 0
}

// ProviderConfig describes an LLM provider instance.
type ProviderConfig struct {
	Name      string          `yaml:"name"`
	Kind      string          `yaml:"kind"`
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model     string          `yaml:"model"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	Keepalive time.Duration `yaml:"keepalive"`
}

// UpstreamConfig configures one upstream REST client.
type UpstreamConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	RPS        float64       `yaml:"rps"`
	Burst      int           `yaml:"burst"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheTTL   time.Duration `yaml:"cache_ttl"` // Used by llama and velar.
}

// DocsConfig configures the documentation fetcher.
type DocsConfig struct {
	UserAgent  string        `yaml:"user_agent"`
	RPS        float64       `yaml:"rps"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// UpstreamsConfig groups the upstream clients.
type UpstreamsConfig struct {
	Hiro  UpstreamConfig `yaml:"hiro"`
	Llama UpstreamConfig `yaml:"llama"`
	BNSv2 UpstreamConfig `yaml:"bnsv2"`
	Velar UpstreamConfig `yaml:"velar"`
	Docs  DocsConfig     `yaml:"docs"`
}

// OrchestratorConfig mirrors orchestrator.Options.
type OrchestratorConfig struct {
	Instructions       string        `yaml:"instructions"`
	MaxSteps           int           `yaml:"max_steps"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxConcurrentTools int           `yaml:"max_concurrent_tools"`
}

// NFTConfig bounds NFT metadata enrichment.
type NFTConfig struct {
	MaxItems    int           `yaml:"max_items"`
	MaxFanout   int           `yaml:"max_fanout"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

// LoadConfig reads a YAML file and returns a Config with defaults applied.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so API keys can live in the environment (or a .env file)
// instead of the config.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig expands environment variables in data, decodes it and applies
// defaults.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	cfg.ApplyDefaults()

	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Model == "" && len(c.Providers) > 0 {
		c.Model = c.Providers[0].Name
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Keepalive <= 0 {
		c.Server.Keepalive = 15 * time.Second
	}

	up := &c.Upstreams
	if up.Hiro.BaseURL == "" {
		up.Hiro.BaseURL = hiro.DefaultBaseURL
	}
	if up.Hiro.RPS == 0 {
		up.Hiro.RPS = 5
	}
	if up.Llama.BaseURL == "" {
		up.Llama.BaseURL = llama.DefaultBaseURL
	}
	if up.Llama.CacheTTL == 0 {
		up.Llama.CacheTTL = llama.DefaultProtocolsTTL
	}
	if up.BNSv2.BaseURL == "" {
		up.BNSv2.BaseURL = bnsv2.DefaultBaseURL
	}
	if up.Velar.BaseURL == "" {
		up.Velar.BaseURL = velar.DefaultBaseURL
	}
	if up.Velar.CacheTTL == 0 {
		up.Velar.CacheTTL = velar.DefaultTTL
	}
	if up.Docs.UserAgent == "" {
		up.Docs.UserAgent = "BlaskoBot"
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); c.LogLevel != "" && err != nil {
		return fmt.Errorf("engine: config: invalid log_level %q", c.LogLevel)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("engine: config: at least one provider is required")
	}

	providerNames := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("engine: config: provider name is required")
		}
		if p.Kind == "" {
			return fmt.Errorf("engine: config: provider %q: kind is required", p.Name)
		}
		if _, dup := providerNames[p.Name]; dup {
			return fmt.Errorf("engine: config: duplicate provider name %q", p.Name)
		}
		if p.RateLimit.RPM < 0 || p.RateLimit.Burst < 0 {
			return fmt.Errorf("engine: config: provider %q: rate_limit values must not be negative", p.Name)
		}
		providerNames[p.Name] = struct{}{}
	}

	if _, ok := providerNames[c.Model]; c.Model != "" && !ok {
		return fmt.Errorf("engine: config: model %q not found in providers", c.Model)
	}

	o := c.Orchestrator
	if o.MaxSteps < 0 || o.MaxConcurrentTools < 0 || o.RequestTimeout < 0 {
		return fmt.Errorf("engine: config: orchestrator values must not be negative")
	}

	n := c.NFT
	if n.MaxItems < 0 || n.MaxFanout < 0 || n.ItemTimeout < 0 {
		return fmt.Errorf("engine: config: nft values must not be negative")
	}

	for name, u := range map[string]UpstreamConfig{
		"hiro":  c.Upstreams.Hiro,
		"llama": c.Upstreams.Llama,
		"bnsv2": c.Upstreams.BNSv2,
		"velar": c.Upstreams.Velar,
	} {
		if u.RPS < 0 || u.Burst < 0 {
			return fmt.Errorf("engine: config: upstream %q: rate values must not be negative", name)
		}
	}

	return nil
}
