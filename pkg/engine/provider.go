package engine

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/providers/gemini"
	"github.com/germanamz/blasko/pkg/providers/openai"
)

// GrokBaseURL is the xAI endpoint, which speaks the Chat Completions API.
const GrokBaseURL = "https://api.x.ai"

// ProviderFactory creates a Streamer from a ProviderConfig. client is nil
// unless the engine was given a custom HTTP client.
type ProviderFactory func(cfg ProviderConfig, client *http.Client) (modeladapter.Streamer, error)

// DefaultProviders returns a fresh map of the built-in provider kinds.
// Callers may add entries before passing it in Options.Providers.
func DefaultProviders() map[string]ProviderFactory {
	return map[string]ProviderFactory{
		"gemini": newGemini,
		"openai": newOpenAI,
		"grok":   newGrok,
	}
}

func newGemini(cfg ProviderConfig, client *http.Client) (modeladapter.Streamer, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	a := gemini.New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	a.Client = client

	return a, nil
}

func newOpenAI(cfg ProviderConfig, client *http.Client) (modeladapter.Streamer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	a := openai.New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	a.Client = client

	return a, nil
}

func newGrok(cfg ProviderConfig, client *http.Client) (modeladapter.Streamer, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GrokBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "grok-4"
	}

	return newOpenAI(cfg, client)
}

// buildStreamer creates a Streamer from a ProviderConfig using the factory
// for its Kind. If rate limiting is configured, the streamer is wrapped with
// a RateLimitedStreamer.
func buildStreamer(factories map[string]ProviderFactory, cfg ProviderConfig, client *http.Client, logger *zap.Logger) (modeladapter.Streamer, error) {
	factory, ok := factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("engine: unknown provider kind %q", cfg.Kind)
	}

	s, err := factory(cfg, client)
	if err != nil {
		return nil, err
	}

	rl := cfg.RateLimit
	if !rl.enabled() {
		return s, nil
	}

	limited := modeladapter.NewRateLimitedStreamer(s, modeladapter.RateLimitOpts{
		RPM:        rl.RPM,
		Burst:      rl.Burst,
		MaxRetries: rl.MaxRetries,
		BaseDelay:  rl.BaseDelay,
		MaxDelay:   rl.MaxDelay,
	})
	limited.OnRetry(func(err error, wait time.Duration) {
		logger.Warn("model rate limited",
			zap.String("provider", cfg.Name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	return limited, nil
}
