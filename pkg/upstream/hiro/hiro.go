// Package hiro is a typed client for the Hiro Stacks API: balances,
// transactions, contracts, NFTs, PoX and BNS lookups.
package hiro

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/germanamz/blasko/pkg/upstream/rest"
)

// DefaultBaseURL is the public mainnet Hiro API.
const DefaultBaseURL = "https://api.hiro.so"

// Client calls the Hiro API through a rest.Client.
type Client struct {
	rest *rest.Client
}

// New creates a Client. The rest.Client carries base URL, API key and
// rate limit.
func New(rc *rest.Client) *Client {
	return &Client{rest: rc}
}

// Balances returns the STX, fungible and non-fungible balances of principal.
func (c *Client) Balances(ctx context.Context, principal string) (*Balances, error) {
	var out Balances
	if err := c.rest.GetJSON(ctx, "/extended/v1/address/"+url.PathEscape(principal)+"/balances", nil, &out); err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	return &out, nil
}

// AddressTransactions returns the most recent transactions of principal.
func (c *Client) AddressTransactions(ctx context.Context, principal string, limit int) (*TransactionList, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}

	var out TransactionList
	if err := c.rest.GetJSON(ctx, "/extended/v1/address/"+url.PathEscape(principal)+"/transactions", q, &out); err != nil {
		return nil, fmt.Errorf("address transactions: %w", err)
	}
	return &out, nil
}

// Transaction returns a single transaction by ID.
func (c *Client) Transaction(ctx context.Context, txID string) (*Transaction, error) {
	var out Transaction
	if err := c.rest.GetJSON(ctx, "/extended/v1/tx/"+url.PathEscape(txID), nil, &out); err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	return &out, nil
}

// Contract returns contract info for "<address>.<name>".
func (c *Client) Contract(ctx context.Context, contractID string) (*Contract, error) {
	var out Contract
	if err := c.rest.GetJSON(ctx, "/extended/v1/contract/"+url.PathEscape(contractID), nil, &out); err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}
	return &out, nil
}

// ContractSource returns the Clarity source of a contract.
func (c *Client) ContractSource(ctx context.Context, contractID string) (*ContractSource, error) {
	var out ContractSource
	if err := c.rest.GetJSON(ctx, "/extended/v1/contract/"+url.PathEscape(contractID)+"/source", nil, &out); err != nil {
		return nil, fmt.Errorf("contract source: %w", err)
	}
	return &out, nil
}

// NFTHoldings returns the NFTs held by principal.
func (c *Client) NFTHoldings(ctx context.Context, principal string, limit int) (*NFTHoldings, error) {
	q := url.Values{
		"principal": {principal},
		"limit":     {strconv.Itoa(limit)},
	}

	var out NFTHoldings
	if err := c.rest.GetJSON(ctx, "/extended/v1/tokens/nft/holdings", q, &out); err != nil {
		return nil, fmt.Errorf("nft holdings: %w", err)
	}
	return &out, nil
}

// CollectionMetadata returns metadata for an NFT contract.
func (c *Client) CollectionMetadata(ctx context.Context, contractID string) (*CollectionMetadata, error) {
	var out CollectionMetadata
	if err := c.rest.GetJSON(ctx, "/metadata/v1/nft/"+url.PathEscape(contractID), nil, &out); err != nil {
		return nil, fmt.Errorf("collection metadata: %w", err)
	}
	return &out, nil
}

// TokenMetadata returns metadata for one NFT of a contract.
func (c *Client) TokenMetadata(ctx context.Context, contractID, tokenID string) (*TokenMetadata, error) {
	var out TokenMetadata
	path := "/metadata/v1/nft/" + url.PathEscape(contractID) + "/" + url.PathEscape(tokenID)
	if err := c.rest.GetJSON(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("token metadata: %w", err)
	}
	return &out, nil
}

// PoxInfo returns the current Proof-of-Transfer state.
func (c *Client) PoxInfo(ctx context.Context) (*PoxInfo, error) {
	var out PoxInfo
	if err := c.rest.GetJSON(ctx, "/v2/pox", nil, &out); err != nil {
		return nil, fmt.Errorf("pox info: %w", err)
	}
	return &out, nil
}

// Name looks up a BNS name such as "alice.btc".
func (c *Client) Name(ctx context.Context, name string) (*NameInfo, error) {
	var out NameInfo
	if err := c.rest.GetJSON(ctx, "/v1/names/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, fmt.Errorf("name lookup: %w", err)
	}
	return &out, nil
}

// NamesOwned returns the BNS names owned by a Stacks address, most recent
// first.
func (c *Client) NamesOwned(ctx context.Context, address string) (*AddressNames, error) {
	var out AddressNames
	if err := c.rest.GetJSON(ctx, "/v1/addresses/stacks/"+url.PathEscape(address), nil, &out); err != nil {
		return nil, fmt.Errorf("names owned: %w", err)
	}
	return &out, nil
}
