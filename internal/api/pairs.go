package api

import (
	"context"
	"net/url"
)

// GetPair fetches the current pairs document for a chain/address.
func (c *Client) GetPair(ctx context.Context, chain, address string) (*PairsResponse, error) {
	var resp PairsResponse
	path := "/" + url.PathEscape(chain) + "/" + url.PathEscape(address)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Pairs == nil {
		resp.Pairs = []Pair{}
	}
	return &resp, nil
}
