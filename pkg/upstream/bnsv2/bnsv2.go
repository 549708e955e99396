// Package bnsv2 is a client for the BNSv2 name registry API.
package bnsv2

import (
	"context"
	"fmt"
	"net/url"

	"github.com/germanamz/blasko/pkg/upstream/rest"
)

// DefaultBaseURL is the public BNSv2 API.
const DefaultBaseURL = "https://api.bnsv2.com"

// Name is a registered BNSv2 name. Older records carry the owner in
// Address rather than Owner.
type Name struct {
	Owner         string `json:"owner"`
	Address       string `json:"address"`
	ExpireBlock   int64  `json:"expire_block"`
	RenewalHeight int64  `json:"renewal_height"`
	Status        string `json:"status"`
}

// OwnerAddress returns Owner, falling back to Address.
func (n Name) OwnerAddress() string {
	if n.Owner != "" {
		return n.Owner
	}
	return n.Address
}

// Client looks up BNSv2 names.
type Client struct {
	rest *rest.Client
}

// New creates a Client.
func New(rc *rest.Client) *Client {
	return &Client{rest: rc}
}

// Lookup returns the record of fullName ("alice.btc"). An unregistered
// name fails with a 404 *toolerr.UpstreamError.
func (c *Client) Lookup(ctx context.Context, fullName string) (*Name, error) {
	var out Name
	if err := c.rest.GetJSON(ctx, "/names/"+url.PathEscape(fullName), nil, &out); err != nil {
		return nil, fmt.Errorf("bnsv2 lookup %s: %w", fullName, err)
	}
	return &out, nil
}
