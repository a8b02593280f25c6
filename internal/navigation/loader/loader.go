// Package loader fetches the raw navigation tree from the delivery API.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"navmenus/internal/delivery"
	"navmenus/internal/navigation/models"
	"navmenus/pkg/platform/sentinel"
)

// MinDepth is the smallest fetch depth that can express a two-level menu.
const MinDepth = 2

// ContentClient is the delivery API as seen by the navigation packages.
type ContentClient interface {
	GetItems(ctx context.Context, q delivery.Query) (*delivery.Response, error)
}

// Loader fetches one navigation root at a fixed depth.
type Loader struct {
	client   ContentClient
	codename string
	maxDepth int
}

// New validates its arguments up front; a bad codename or depth is a
// configuration error, not something to discover per request.
func New(client ContentClient, codename string, maxDepth int) (*Loader, error) {
	if client == nil {
		return nil, errors.New("content client is required")
	}
	if strings.TrimSpace(codename) == "" {
		return nil, errors.New("navigation codename must not be empty")
	}
	if maxDepth < MinDepth {
		return nil, fmt.Errorf("max depth must be %d or higher, got %d", MinDepth, maxDepth)
	}
	return &Loader{client: client, codename: codename, maxDepth: maxDepth}, nil
}

// Codename returns the root codename this loader fetches.
func (l *Loader) Codename() string {
	return l.codename
}

// Query is the delivery query issued by Load.
func (l *Loader) Query() delivery.Query {
	return delivery.Query{
		delivery.Equals("system.type", models.ContentType),
		delivery.Equals("system.codename", l.codename),
		delivery.Limit(1),
		delivery.Depth(l.maxDepth),
	}
}

// Load returns the undecorated root, or sentinel.ErrNotFound when the API has
// no navigation item with the configured codename.
func (l *Loader) Load(ctx context.Context) (*models.NavigationItem, error) {
	resp, err := l.client.GetItems(ctx, l.Query())
	if err != nil {
		return nil, fmt.Errorf("fetch navigation %q: %w", l.codename, err)
	}
	for _, item := range resp.Items {
		if root, ok := item.(*models.NavigationItem); ok {
			return root, nil
		}
	}
	return nil, fmt.Errorf("navigation %q: %w", l.codename, sentinel.ErrNotFound)
}
