package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/orchestrator"
	"github.com/germanamz/blasko/pkg/tools/mcpserver"
	"github.com/germanamz/blasko/pkg/tools/stacks"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/upstream/bnsv2"
	"github.com/germanamz/blasko/pkg/upstream/docs"
	"github.com/germanamz/blasko/pkg/upstream/hiro"
	"github.com/germanamz/blasko/pkg/upstream/llama"
	"github.com/germanamz/blasko/pkg/upstream/rest"
	"github.com/germanamz/blasko/pkg/upstream/velar"
)

// Name and Version identify the service on the MCP surface.
const (
	Name    = "blasko"
	Version = "0.1.0"
)

// Options carries the runtime dependencies that do not come from YAML.
type Options struct {
	Logger     *zap.Logger
	HTTPClient *http.Client               // Shared by upstream clients and providers; defaults per client when nil.
	Providers  map[string]ProviderFactory // DefaultProviders() when nil.
}

// Engine is the composition root: it builds the upstream clients, the tool
// registry, the model adapter, the orchestrator and the MCP server from
// configuration. It holds no per-request state and is safe for concurrent
// use.
type Engine struct {
	cfg    Config
	log    *zap.Logger
	events *EventBus
	tools  *toolbox.ToolBox
	model  modeladapter.Streamer
	orch   *orchestrator.Orchestrator
	mcp    *mcpserver.MCPServer
}

// New creates an Engine from cfg. Defaults are applied before validation.
func New(cfg Config, opts Options) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factories := opts.Providers
	if factories == nil {
		factories = DefaultProviders()
	}

	e := &Engine{
		cfg:    cfg,
		log:    logger,
		events: NewEventBus(),
		tools:  toolbox.New(),
	}

	pc, _ := cfg.provider(cfg.Model)
	model, err := buildStreamer(factories, pc, opts.HTTPClient, logger.Named("model"))
	if err != nil {
		return nil, fmt.Errorf("engine: provider %q: %w", pc.Name, err)
	}
	e.model = model

	deps, err := e.upstreams(opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	deps.Model = model

	if err := stacks.New(deps).Register(e.tools); err != nil {
		return nil, fmt.Errorf("engine: register tools: %w", err)
	}

	oc := cfg.Orchestrator
	e.orch = orchestrator.New(model, e.tools, orchestrator.Options{
		MaxSteps:           oc.MaxSteps,
		RequestTimeout:     oc.RequestTimeout,
		MaxConcurrentTools: oc.MaxConcurrentTools,
		Instructions:       oc.Instructions,
		Observer:           e.observe,
		Logger:             logger.Named("orchestrator"),
	})

	e.mcp = mcpserver.New(Name, Version, e.tools)

	logger.Info("engine ready",
		zap.String("provider", pc.Name),
		zap.String("kind", pc.Kind),
		zap.Int("tools", len(e.tools.Tools())),
	)

	return e, nil
}

func (c Config) provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

func (e *Engine) upstreams(client *http.Client) (stacks.Deps, error) {
	up := e.cfg.Upstreams
	restClient := func(service string, u UpstreamConfig) *rest.Client {
		return rest.New(rest.Options{
			Service:    service,
			BaseURL:    u.BaseURL,
			APIKey:     u.APIKey,
			RPS:        u.RPS,
			Burst:      u.Burst,
			MaxRetries: u.MaxRetries,
			Timeout:    u.Timeout,
			HTTPClient: client,
			Logger:     e.log.Named("upstream"),
		})
	}

	if up.Hiro.APIKey == "" {
		e.log.Warn("hiro api key not set, requests are unauthenticated")
	}

	index, err := docs.DefaultIndex()
	if err != nil {
		return stacks.Deps{}, fmt.Errorf("engine: %w", err)
	}
	docsClient := rest.New(rest.Options{
		Service:    "docs",
		Headers:    map[string]string{"Accept": "text/html"},
		RPS:        up.Docs.RPS,
		MaxRetries: up.Docs.MaxRetries,
		Timeout:    up.Docs.Timeout,
		HTTPClient: client,
		Logger:     e.log.Named("upstream"),
	})

	return stacks.Deps{
		Hiro:    hiro.New(restClient("hiro", up.Hiro)),
		Llama:   llama.New(restClient("llama", up.Llama), up.Llama.CacheTTL),
		BNS:     bnsv2.New(restClient("bnsv2", up.BNSv2)),
		Velar:   velar.New(restClient("velar", up.Velar), up.Velar.CacheTTL, e.log.Named("velar")),
		Docs:    index,
		Fetcher: docs.NewFetcher(docsClient, up.Docs.UserAgent),
		Fanout: stacks.FanoutOptions{
			MaxItems:    e.cfg.NFT.MaxItems,
			MaxFanout:   e.cfg.NFT.MaxFanout,
			ItemTimeout: e.cfg.NFT.ItemTimeout,
		},
		Logger: e.log.Named("tools"),
	}, nil
}

// observe forwards orchestrator tool notifications to the event bus.
func (e *Engine) observe(ev orchestrator.Event) {
	e.events.Publish(Event{
		Kind:           EventKind(ev.Kind),
		ConversationID: ev.ConversationID,
		Tool:           &ev,
	})
}

// Run executes one chat request and publishes its start and end on the
// event bus. Cancellation and timeouts are reported to emit as an abort
// chunk and are not treated as errors here.
func (e *Engine) Run(ctx context.Context, req orchestrator.Request, emit orchestrator.EmitFunc) error {
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	e.events.Publish(Event{Kind: EventRequestStart, ConversationID: req.ConversationID})

	err := e.orch.Run(ctx, req, emit)

	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		e.events.Publish(Event{Kind: EventError, ConversationID: req.ConversationID, Err: err})
	}
	e.events.Publish(Event{Kind: EventRequestEnd, ConversationID: req.ConversationID})

	return err
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// Tools returns the tool registry.
func (e *Engine) Tools() *toolbox.ToolBox { return e.tools }

// Model returns the configured model adapter.
func (e *Engine) Model() modeladapter.Streamer { return e.model }

// MCPServer returns the registry exposed over MCP.
func (e *Engine) MCPServer() *mcpserver.MCPServer { return e.mcp }

// Logger returns the engine logger.
func (e *Engine) Logger() *zap.Logger { return e.log }
