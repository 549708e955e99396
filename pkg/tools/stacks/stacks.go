// Package stacks provides the assistant's Stacks blockchain tools.
//
// Read tools query the Hiro, DefiLlama, BNSv2 and Velar APIs and reshape the
// responses. Write tools (send, multi-send, swap, bridge, stack, register a
// name) only describe a transaction; a browser wallet signs and broadcasts
// it.
package stacks

import (
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/upstream/bnsv2"
	"github.com/germanamz/blasko/pkg/upstream/docs"
	"github.com/germanamz/blasko/pkg/upstream/hiro"
	"github.com/germanamz/blasko/pkg/upstream/llama"
	"github.com/germanamz/blasko/pkg/upstream/velar"
)

// FanoutOptions bounds the NFT metadata enrichment.
type FanoutOptions struct {
	MaxItems    int           // Tokens enriched per collection (default 20).
	MaxFanout   int           // Concurrent metadata requests (default 4).
	ItemTimeout time.Duration // Deadline of one metadata request (default 5s).
}

func (o FanoutOptions) withDefaults() FanoutOptions {
	if o.MaxItems <= 0 {
		o.MaxItems = 20
	}
	if o.MaxFanout <= 0 {
		o.MaxFanout = 4
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 5 * time.Second
	}
	return o
}

// Deps are the clients the tools call. Model synthesises knowledge answers.
type Deps struct {
	Hiro    *hiro.Client
	Llama   *llama.Client
	BNS     *bnsv2.Client
	Velar   *velar.Client
	Docs    *docs.Index
	Fetcher *docs.Fetcher
	Model   modeladapter.Streamer
	Fanout  FanoutOptions
	Logger  *zap.Logger
}

// Stacks holds the tool handlers.
type Stacks struct {
	hiro    *hiro.Client
	llama   *llama.Client
	bns     *bnsv2.Client
	velar   *velar.Client
	docs    *docs.Index
	fetcher *docs.Fetcher
	model   modeladapter.Streamer
	fanout  FanoutOptions
	log     *zap.Logger
	now     func() time.Time
}

// New creates the tool set.
func New(d Deps) *Stacks {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Stacks{
		hiro:    d.Hiro,
		llama:   d.Llama,
		bns:     d.BNS,
		velar:   d.Velar,
		docs:    d.Docs,
		fetcher: d.Fetcher,
		model:   d.Model,
		fanout:  d.Fanout.withDefaults(),
		log:     logger,
		now:     time.Now,
	}
}

// Tools returns every tool in the order they are offered to the model.
func (s *Stacks) Tools() []toolbox.Tool {
	return []toolbox.Tool{
		s.sendTokenTool(),
		s.multiSendTool(),
		s.getTransactionTool(),
		s.getContractTool(),
		s.getAccountTool(),
		s.swapTokenTool(),
		s.getNftGalleryTool(),
		s.bridgeTokenTool(),
		s.stackStxTool(),
		s.resolveBNSTool(),
		s.reverseLookupBNSTool(),
		s.registerBNSTool(),
		s.getStacksTVLTool(),
		s.getTopProtocolsTool(),
		s.getDefiCategoriesTool(),
		s.getProtocolInfoTool(),
		s.getStacksKnowledgeTool(),
	}
}

// Register adds every tool to tb.
func (s *Stacks) Register(tb *toolbox.ToolBox) error {
	return tb.Register(s.Tools()...)
}
