// Package velar resolves swappable token symbols against the Velar DEX.
package velar

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/cache"
	"github.com/germanamz/blasko/pkg/upstream/rest"
)

// DefaultBaseURL is the Velar SDK API.
const DefaultBaseURL = "https://sdk-beta.velar.network"

// DefaultTTL is how long the supported symbol list is reused.
const DefaultTTL = 10 * time.Minute

// Token is a token the swap flow can route.
type Token struct {
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	ContractAddress string `json:"contractAddress"`
	Decimals        int    `json:"decimals"`
}

// knownTokens maps symbols to the contracts the swap router accepts. The
// Velar API only returns symbols.
var knownTokens = []Token{
	{Symbol: "STX", Name: "Stacks", ContractAddress: "SP1Y5YSTAHZ88XYK1VPDH24GY0HPX5J4JECTMY4A1.wstx", Decimals: 6},
	{Symbol: "VELAR", Name: "Velar", ContractAddress: "SP1Y5YSTAHZ88XYK1VPDH24GY0HPX5J4JECTMY4A1.velar-token", Decimals: 6},
	{Symbol: "WELSH", Name: "Welsh Corgi Coin", ContractAddress: "SP3NE50GEXFG9SZGTT51P40X2CKYSZ5CC4ZTZ7A2G.welshcorgicoin-token", Decimals: 6},
	{Symbol: "sBTC", Name: "sBTC", ContractAddress: "SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token", Decimals: 8},
	{Symbol: "USDA", Name: "USDA", ContractAddress: "SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR.usda-token", Decimals: 6},
	{Symbol: "xUSD", Name: "xUSD", ContractAddress: "SP2TZK01NKDC89J6TA56SA47SDF7RTHYEQ79AAB9A.Wrapped-USD", Decimals: 6},
	{Symbol: "ALEX", Name: "ALEX", ContractAddress: "SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9.age000-governance-token", Decimals: 8},
	{Symbol: "LEO", Name: "LEO", ContractAddress: "SP1AY6K3PQV5MRT6R4S671NWW2FRVPKM0BR162CT6.leo-token", Decimals: 6},
	{Symbol: "DIKO", Name: "DIKO", ContractAddress: "SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR.arkadiko-token", Decimals: 6},
	{Symbol: "stSTX", Name: "stSTX", ContractAddress: "SP4SZE494VC2YC5JYG7AYFQ44F5Q4PYV7DVMDPBG.ststx-token", Decimals: 6},
	{Symbol: "$ROO", Name: "$ROO", ContractAddress: "SP2C1WREHGM75C7TGFAEJPFKTFTEGZKF6DFT6E2GE.kangaroo", Decimals: 6},
	{Symbol: "NOT", Name: "NOT", ContractAddress: "SP32AEEF6WW5Y0NMJ1S8SBSZDAY8R5J32NBZFPKKZ.nope", Decimals: 6},
	{Symbol: "aeUSDC", Name: "aeUSDC", ContractAddress: "SP3Y2ZSH8P7D50B0VBTSX11S7XSG24M1VB9YFQA4K.token-aeusdc", Decimals: 6},
	{Symbol: "USDh", Name: "USDh", ContractAddress: "SPN5AKG35QZSK2M8GAMR4AFX45659RJHDW353HSG.usdh-token-v1", Decimals: 6},
}

// KnownTokens returns the static token table in display order.
func KnownTokens() []Token {
	out := make([]Token, len(knownTokens))
	copy(out, knownTokens)
	sortTokens(out)
	return out
}

// Known looks up a token of the static table by symbol, ignoring case.
func Known(symbol string) (Token, bool) {
	for _, t := range knownTokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// Client fetches the symbols Velar currently supports.
type Client struct {
	rest   *rest.Client
	tokens *cache.TTL[[]Token]
	log    *zap.Logger
}

// New creates a Client. A zero ttl uses DefaultTTL.
func New(rc *rest.Client, ttl time.Duration, logger *zap.Logger) *Client {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		rest:   rc,
		tokens: cache.NewTTL[[]Token](ttl),
		log:    logger,
	}
}

// SupportedTokens returns the known tokens Velar lists, STX first, then
// VELAR, then by symbol. When Velar is unreachable the full static table
// is returned.
func (c *Client) SupportedTokens(ctx context.Context) []Token {
	tokens, err := c.tokens.Get(ctx, c.load)
	if err != nil {
		c.log.Warn("velar symbols unavailable, using static table", zap.Error(err))
		return KnownTokens()
	}
	return tokens
}

// Resolve finds a supported token by symbol, ignoring case.
func (c *Client) Resolve(ctx context.Context, symbol string) (Token, bool) {
	for _, t := range c.SupportedTokens(ctx) {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

func (c *Client) load(ctx context.Context) ([]Token, error) {
	var raw map[string]json.RawMessage
	if err := c.rest.GetJSON(ctx, "/tokens/symbols", nil, &raw); err != nil {
		return nil, fmt.Errorf("velar symbols: %w", err)
	}

	symbols := raw
	if data, ok := raw["data"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err == nil {
			symbols = inner
		}
	}

	var out []Token
	for _, t := range knownTokens {
		if _, ok := symbols[t.Symbol]; ok {
			out = append(out, t)
		}
	}
	sortTokens(out)

	return out, nil
}

func sortTokens(tokens []Token) {
	rank := func(s string) int {
		switch s {
		case "STX":
			return 0
		case "VELAR":
			return 1
		}
		return 2
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		ri, rj := rank(tokens[i].Symbol), rank(tokens[j].Symbol)
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(tokens[i].Symbol) < strings.ToLower(tokens[j].Symbol)
	})
}
