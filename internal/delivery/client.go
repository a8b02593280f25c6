// Package delivery is the client for the headless CMS delivery API. It turns a
// Query into an HTTP request, decodes the JSON response and materialises typed
// content items through a content.TypeProvider.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"navmenus/internal/content"
	"navmenus/pkg/platform/sentinel"
)

// Transport fetches raw response bodies for a query.
type Transport interface {
	Fetch(ctx context.Context, q Query) ([]byte, error)
}

// Response is a decoded items listing.
type Response struct {
	Items      []content.ContentItem
	Pagination Pagination
}

// Pagination mirrors the listing metadata of the delivery API.
type Pagination struct {
	Skip     int    `json:"skip"`
	Limit    int    `json:"limit"`
	Count    int    `json:"count"`
	NextPage string `json:"next_page"`
}

type listingResponse struct {
	Items          []content.RawItem          `json:"items"`
	ModularContent map[string]content.RawItem `json:"modular_content"`
	Pagination     Pagination                 `json:"pagination"`
}

// Client decodes delivery listings into typed items.
type Client struct {
	transport Transport
	types     *content.TypeProvider
	logger    *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithTypeProvider(p *content.TypeProvider) Option {
	return func(c *Client) {
		c.types = p
	}
}

// NewClient builds a client over transport.
func NewClient(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	c := &Client{
		transport: transport,
		types:     content.NewTypeProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetItems runs q and returns its items. Every call decodes a fresh object
// graph, so items from different calls never share pointers.
func (c *Client) GetItems(ctx context.Context, q Query) (*Response, error) {
	body, err := c.transport.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	var listing listingResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %v", sentinel.ErrBadResponse, err)
	}

	items, err := c.types.Build(listing.Items, listing.ModularContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrBadResponse, err)
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "delivery items fetched",
			"query", q.Key(),
			"items", len(items),
			"linked", len(listing.ModularContent),
		)
	}

	return &Response{Items: items, Pagination: listing.Pagination}, nil
}
