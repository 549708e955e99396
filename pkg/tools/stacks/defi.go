package stacks

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
	"github.com/germanamz/blasko/pkg/upstream/llama"
)

const (
	chainStacks         = "Stacks"
	defaultTimeframe    = "30d"
	defaultTopProtocols = 10
	maxTopProtocols     = 20
	day                 = 24 * time.Hour
)

var timeframes = map[string]time.Duration{
	"7d":  7 * day,
	"30d": 30 * day,
	"90d": 90 * day,
	"1y":  365 * day,
	"all": 0,
}

// --- getStacksTVL ---

type getStacksTVLInput struct {
	Timeframe string `json:"timeframe"`
}

type stacksTVLOutput struct {
	Chain         string                `json:"chain"`
	CurrentTVL    float64               `json:"currentTVL"`
	TVLChange     float64               `json:"tvlChange"`
	TVLChange24h  float64               `json:"tvlChange24h"`
	Timeframe     string                `json:"timeframe"`
	HistoricalTVL []llama.ChainTVLPoint `json:"historicalTVL"`
}

func (s *Stacks) getStacksTVLTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getStacksTVL",
		Description: "Get Total Value Locked (TVL) data for the Stacks blockchain with historical chart data. Use this when the user asks about Stacks TVL, total value locked, or DeFi liquidity trends over time.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"timeframe": enum(`Timeframe of the historical data. Defaults to "30d".`, "7d", "30d", "90d", "1y", "all"),
		}),
		Handler: toolbox.Typed(s.getStacksTVL),
	}
}

func (s *Stacks) getStacksTVL(ctx context.Context, in getStacksTVLInput) (any, error) {
	timeframe := in.Timeframe
	if timeframe == "" {
		timeframe = defaultTimeframe
	}
	window, ok := timeframes[timeframe]
	if !ok {
		return nil, toolerr.Validation("timeframe", "unknown timeframe %q", timeframe)
	}

	points, err := s.llama.HistoricalChainTVL(ctx, chainStacks)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var cutoff int64
	if window > 0 {
		cutoff = now.Add(-window).Unix()
	}

	filtered := []llama.ChainTVLPoint{}
	for _, p := range points {
		if p.Date >= cutoff {
			filtered = append(filtered, p)
		}
	}

	out := stacksTVLOutput{
		Chain:         chainStacks,
		Timeframe:     timeframe,
		HistoricalTVL: filtered,
	}
	if len(filtered) == 0 {
		return out, nil
	}

	out.CurrentTVL = filtered[len(filtered)-1].TVL
	out.TVLChange = percentChange(filtered[0].TVL, out.CurrentTVL)

	// The first sample within the last day, else the one before the latest.
	dayAgo := now.Add(-day).Unix()
	ref := -1
	for i, p := range filtered {
		if p.Date >= dayAgo {
			ref = i
			break
		}
	}
	if ref < 0 && len(filtered) >= 2 {
		ref = len(filtered) - 2
	}
	if ref >= 0 {
		out.TVLChange24h = percentChange(filtered[ref].TVL, out.CurrentTVL)
	}

	return out, nil
}

func percentChange(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from * 100
}

// --- getTopProtocols ---

type getTopProtocolsInput struct {
	Limit *float64 `json:"limit"`
}

type protocolSummary struct {
	Name     string  `json:"name"`
	TVL      float64 `json:"tvl"`
	Category string  `json:"category"`
	Change1d float64 `json:"change_1d"`
	Change7d float64 `json:"change_7d"`
	Change1m float64 `json:"change_1m"`
	Mcap     float64 `json:"mcap"`
	Slug     string  `json:"slug"`
	Logo     *string `json:"logo"`
	URL      *string `json:"url"`
}

type topProtocolsOutput struct {
	Chain     string            `json:"chain"`
	Protocols []protocolSummary `json:"protocols"`
	Count     int               `json:"count"`
}

func (s *Stacks) getTopProtocolsTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getTopProtocols",
		Description: "Get the top DeFi protocols on the Stacks blockchain ranked by Total Value Locked (TVL). Use this when the user asks about top Stacks protocols, which DeFi apps are on Stacks, protocol rankings, or wants a list of DeFi projects.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"limit": {Type: "number", Description: "Number of top protocols to return (1-20). Defaults to 10."},
		}),
		Handler: toolbox.Typed(s.getTopProtocols),
	}
}

func (s *Stacks) getTopProtocols(ctx context.Context, in getTopProtocolsInput) (any, error) {
	limit := defaultTopProtocols
	if in.Limit != nil {
		// Any number is accepted and clamped, fractions rounding down.
		limit = int(min(max(math.Floor(*in.Limit), 1), maxTopProtocols))
	}

	protocols, err := s.llama.ProtocolsOn(ctx, chainStacks)
	if err != nil {
		return nil, err
	}

	summaries := make([]protocolSummary, 0, len(protocols))
	for _, p := range protocols {
		summaries = append(summaries, protocolSummary{
			Name:     p.Name,
			TVL:      float64(p.TVL),
			Category: orDefault(p.Category, "Unknown"),
			Change1d: float64(p.Change1d),
			Change7d: float64(p.Change7d),
			Change1m: float64(p.Change1m),
			Mcap:     float64(p.Mcap),
			Slug:     p.Slug,
			Logo:     nullable(p.Logo),
			URL:      nullable(p.URL),
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].TVL > summaries[j].TVL })

	if len(summaries) > limit {
		summaries = summaries[:limit]
	}

	return topProtocolsOutput{
		Chain:     chainStacks,
		Protocols: summaries,
		Count:     len(summaries),
	}, nil
}

// --- getDefiCategories ---

type defiCategory struct {
	Name       string   `json:"name"`
	TVL        float64  `json:"tvl"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
	Protocols  []string `json:"protocols"`
}

type defiCategoriesOutput struct {
	Chain         string         `json:"chain"`
	TotalTVL      float64        `json:"totalTVL"`
	Categories    []defiCategory `json:"categories"`
	CategoryCount int            `json:"categoryCount"`
}

func (s *Stacks) getDefiCategoriesTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getDefiCategories",
		Description: "Get the breakdown of DeFi categories on the Stacks blockchain (DEX, Lending, Yield, etc.) with their TVL distribution. Use this when the user asks about DeFi category distribution, types of DeFi on Stacks, or market composition.",
		InputSchema: object(nil),
		Handler:     toolbox.Typed(s.getDefiCategories),
	}
}

func (s *Stacks) getDefiCategories(ctx context.Context, _ struct{}) (any, error) {
	protocols, err := s.llama.ProtocolsOn(ctx, chainStacks)
	if err != nil {
		return nil, err
	}

	var total float64
	byName := make(map[string]*defiCategory)
	var order []string

	for _, p := range protocols {
		tvl := float64(p.TVL)
		total += tvl

		name := orDefault(p.Category, "Other")
		c, ok := byName[name]
		if !ok {
			c = &defiCategory{Name: name, Protocols: []string{}}
			byName[name] = c
			order = append(order, name)
		}
		c.TVL += tvl
		c.Count++
		c.Protocols = append(c.Protocols, p.Name)
	}

	categories := make([]defiCategory, 0, len(order))
	for _, name := range order {
		c := byName[name]
		if total > 0 {
			c.Percentage = c.TVL / total * 100
		}
		categories = append(categories, *c)
	}
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].TVL > categories[j].TVL })

	return defiCategoriesOutput{
		Chain:         chainStacks,
		TotalTVL:      total,
		Categories:    categories,
		CategoryCount: len(categories),
	}, nil
}

// --- getProtocolInfo ---

type getProtocolInfoInput struct {
	ProtocolName string `json:"protocolName"`
}

type protocolInfoOutput struct {
	Name          string                `json:"name"`
	Slug          string                `json:"slug"`
	Category      string                `json:"category"`
	TVL           float64               `json:"tvl"`
	Change1d      float64               `json:"change_1d"`
	Change7d      float64               `json:"change_7d"`
	Change1m      float64               `json:"change_1m"`
	Mcap          float64               `json:"mcap"`
	Logo          *string               `json:"logo"`
	URL           *string               `json:"url"`
	Description   string                `json:"description"`
	Twitter       *string               `json:"twitter"`
	HistoricalTVL []llama.ChainTVLPoint `json:"historicalTVL"`
	Chains        []string              `json:"chains"`
}

func (s *Stacks) getProtocolInfoTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getProtocolInfo",
		Description: "Get detailed information about a specific DeFi protocol on Stacks including TVL, historical data and metrics. Use this when the user asks about a specific protocol like ALEX, Velar or Arkadiko, or wants details about a particular DeFi project.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"protocolName": str(`Name or slug of the protocol (e.g. "alex", "velar", "arkadiko")`),
		}, "protocolName"),
		Handler: toolbox.Typed(s.getProtocolInfo),
	}
}

func (s *Stacks) getProtocolInfo(ctx context.Context, in getProtocolInfoInput) (any, error) {
	search := strings.ToLower(strings.TrimSpace(in.ProtocolName))
	if search == "" {
		return nil, toolerr.Validation("protocolName", "is required")
	}

	protocols, err := s.llama.ProtocolsOn(ctx, chainStacks)
	if err != nil {
		return nil, err
	}

	p, ok := findProtocol(protocols, search)
	if !ok {
		return nil, toolerr.Domain("protocol %q not found on the Stacks blockchain", in.ProtocolName)
	}

	chains := p.Chains
	if chains == nil {
		chains = []string{}
	}

	out := protocolInfoOutput{
		Name:          p.Name,
		Slug:          p.Slug,
		Category:      orDefault(p.Category, "Unknown"),
		TVL:           float64(p.TVL),
		Change1d:      float64(p.Change1d),
		Change7d:      float64(p.Change7d),
		Change1m:      float64(p.Change1m),
		Mcap:          float64(p.Mcap),
		Logo:          nullable(p.Logo),
		URL:           nullable(p.URL),
		Description:   p.Description,
		Twitter:       nullable(p.Twitter),
		HistoricalTVL: []llama.ChainTVLPoint{},
		Chains:        chains,
	}

	detail, err := s.llama.Protocol(ctx, p.Slug)
	if err != nil {
		s.log.Debug("protocol history unavailable", zap.String("slug", p.Slug), zap.Error(err))
		return out, nil
	}

	history := detail.TVL
	if st, ok := detail.ChainTVLs[chainStacks]; ok && len(st.TVL) > 0 {
		history = st.TVL
	}
	for _, pt := range history {
		out.HistoricalTVL = append(out.HistoricalTVL, llama.ChainTVLPoint{Date: pt.Date, TVL: float64(pt.TotalLiquidityUSD)})
	}
	sort.SliceStable(out.HistoricalTVL, func(i, j int) bool { return out.HistoricalTVL[i].Date < out.HistoricalTVL[j].Date })

	return out, nil
}

// findProtocol prefers an exact name or slug match over a substring match.
func findProtocol(protocols []llama.Protocol, search string) (llama.Protocol, bool) {
	for _, p := range protocols {
		if strings.ToLower(p.Name) == search || strings.ToLower(p.Slug) == search {
			return p, true
		}
	}
	for _, p := range protocols {
		if strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Slug), search) {
			return p, true
		}
	}
	return llama.Protocol{}, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
