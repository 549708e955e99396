// Package llama is a typed client for the DefiLlama TVL API.
package llama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/germanamz/blasko/pkg/cache"
	"github.com/germanamz/blasko/pkg/upstream/rest"
)

// DefaultBaseURL is the public DefiLlama API.
const DefaultBaseURL = "https://api.llama.fi"

// DefaultProtocolsTTL is how long the protocol list is reused.
const DefaultProtocolsTTL = 5 * time.Minute

// Number decodes a JSON number that upstream sometimes sends as a string
// or null. Anything unparseable decodes as zero.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// ChainTVLPoint is one day of a chain's TVL history.
type ChainTVLPoint struct {
	Date int64   `json:"date"`
	TVL  float64 `json:"tvl"`
}

// Protocol is an entry of the /protocols list.
type Protocol struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Chain       string   `json:"chain"`
	Chains      []string `json:"chains"`
	TVL         Number   `json:"tvl"`
	Change1d    Number   `json:"change_1d"`
	Change7d    Number   `json:"change_7d"`
	Change1m    Number   `json:"change_1m"`
	Mcap        Number   `json:"mcap"`
	Logo        string   `json:"logo"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Twitter     string   `json:"twitter"`
}

// OnChain reports whether the protocol is deployed on chain.
func (p Protocol) OnChain(chain string) bool {
	if p.Chain == chain {
		return true
	}
	for _, c := range p.Chains {
		if c == chain {
			return true
		}
	}
	return false
}

// TVLPoint is one sample of a protocol's TVL history.
type TVLPoint struct {
	Date              int64  `json:"date"`
	TotalLiquidityUSD Number `json:"totalLiquidityUSD"`
}

// ChainTVL is a protocol's history on one chain.
type ChainTVL struct {
	TVL []TVLPoint `json:"tvl"`
}

// ProtocolDetail is the response of /protocol/{slug}.
type ProtocolDetail struct {
	Name      string              `json:"name"`
	ChainTVLs map[string]ChainTVL `json:"chainTvls"`
	TVL       []TVLPoint          `json:"tvl"`
}

// Client calls DefiLlama and caches the protocol list.
type Client struct {
	rest      *rest.Client
	protocols *cache.TTL[[]Protocol]
}

// New creates a Client. A zero ttl uses DefaultProtocolsTTL.
func New(rc *rest.Client, ttl time.Duration) *Client {
	if ttl == 0 {
		ttl = DefaultProtocolsTTL
	}
	return &Client{
		rest:      rc,
		protocols: cache.NewTTL[[]Protocol](ttl),
	}
}

// HistoricalChainTVL returns the daily TVL of chain, oldest first.
func (c *Client) HistoricalChainTVL(ctx context.Context, chain string) ([]ChainTVLPoint, error) {
	var out []ChainTVLPoint
	if err := c.rest.GetJSON(ctx, "/v2/historicalChainTvl/"+url.PathEscape(chain), nil, &out); err != nil {
		return nil, fmt.Errorf("historical chain tvl: %w", err)
	}
	return out, nil
}

// Protocols returns every protocol DefiLlama tracks. The list is cached.
func (c *Client) Protocols(ctx context.Context) ([]Protocol, error) {
	return c.protocols.Get(ctx, func(ctx context.Context) ([]Protocol, error) {
		var out []Protocol
		if err := c.rest.GetJSON(ctx, "/protocols", nil, &out); err != nil {
			return nil, fmt.Errorf("protocols: %w", err)
		}
		return out, nil
	})
}

// ProtocolsOn returns the protocols deployed on chain.
func (c *Client) ProtocolsOn(ctx context.Context, chain string) ([]Protocol, error) {
	all, err := c.Protocols(ctx)
	if err != nil {
		return nil, err
	}

	var out []Protocol
	for _, p := range all {
		if p.OnChain(chain) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Protocol returns the detail of a protocol by slug.
func (c *Client) Protocol(ctx context.Context, slug string) (*ProtocolDetail, error) {
	var out ProtocolDetail
	if err := c.rest.GetJSON(ctx, "/protocol/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, fmt.Errorf("protocol %s: %w", slug, err)
	}
	return &out, nil
}
