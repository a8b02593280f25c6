package testutil

import (
	"context"
	"sync"
	"time"

	"navmenus/internal/content"
	"navmenus/internal/delivery"
	"navmenus/internal/navigation/models"
)

// Tokens used by navigation fixtures.
const (
	RootToken     = "root"
	HomepageToken = "homepage"
)

// NodeOption customises a fixture navigation item.
type NodeOption func(*models.NavigationItem)

// Nav builds an undecorated navigation item.
func Nav(codename, slug string, opts ...NodeOption) *models.NavigationItem {
	n := &models.NavigationItem{
		Base:    content.Base{System: content.System{Codename: codename, Type: models.ContentType}},
		Title:   codename,
		URLSlug: slug,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Root builds the root item with the given children.
func Root(children ...*models.NavigationItem) *models.NavigationItem {
	return Nav("root", RootToken, Children(children...))
}

func Children(children ...*models.NavigationItem) NodeOption {
	return func(n *models.NavigationItem) {
		n.Children = append(n.Children, children...)
	}
}

// ContentItems attaches generic content items with the given codenames.
func ContentItems(codenames ...string) NodeOption {
	return func(n *models.NavigationItem) {
		for _, c := range codenames {
			n.ContentItems = append(n.ContentItems, Item(c, "page", time.Time{}))
		}
	}
}

func RedirectTo(target *models.NavigationItem) NodeOption {
	return func(n *models.NavigationItem) {
		n.RedirectToItem = []*models.NavigationItem{target}
	}
}

func ExternalRedirect(url string) NodeOption {
	return func(n *models.NavigationItem) {
		n.RedirectToURL = url
	}
}

func View(name string) NodeOption {
	return func(n *models.NavigationItem) {
		n.ViewName = name
	}
}

func Title(title string) NodeOption {
	return func(n *models.NavigationItem) {
		n.Title = title
	}
}

func AppearsIn(codenames ...string) NodeOption {
	return func(n *models.NavigationItem) {
		for _, c := range codenames {
			n.AppearsIn = append(n.AppearsIn, content.Option{Name: c, Codename: c})
		}
	}
}

// Item builds a generic content item.
func Item(codename, contentType string, lastModified time.Time) *content.Generic {
	return &content.Generic{Base: content.Base{System: content.System{
		Codename:     codename,
		Type:         contentType,
		LastModified: lastModified,
	}}}
}

// Article builds an article with a post date element; an empty date leaves the
// element out.
func Article(codename, postDate string) *content.Generic {
	a := Item(codename, "article", time.Time{})
	if postDate != "" {
		a.Elements = map[string]content.RawElement{
			"post_date": {Type: "date_time", Value: []byte(`"` + postDate + `"`)},
		}
	}
	return a
}

// FakeClient records queries and answers them with Respond.
type FakeClient struct {
	mu      sync.Mutex
	queries []delivery.Query
	Respond func(ctx context.Context, q delivery.Query) (*delivery.Response, error)
}

func (f *FakeClient) GetItems(ctx context.Context, q delivery.Query) (*delivery.Response, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.Respond == nil {
		return &delivery.Response{}, nil
	}
	return f.Respond(ctx, q)
}

// Queries returns the queries seen so far.
func (f *FakeClient) Queries() []delivery.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery.Query(nil), f.queries...)
}

// Items wraps items in a response.
func Items(items ...content.ContentItem) *delivery.Response {
	return &delivery.Response{Items: items}
}
