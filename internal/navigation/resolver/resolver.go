// Package resolver maps relative URL paths onto a decorated navigation tree.
package resolver

import (
	"errors"
	"strings"

	"navmenus/internal/content"
	"navmenus/internal/navigation/decorator"
	"navmenus/internal/navigation/models"
)

// Resolver walks a decorated tree one slug per level. It holds no state
// between calls and is safe for concurrent use.
type Resolver struct {
	homepageToken string
	rootLevel     int
}

type Option func(*Resolver)

// WithRootLevel skips the first n slugs of every path, for sites mounted
// below a fixed prefix.
func WithRootLevel(n int) Option {
	return func(r *Resolver) {
		r.rootLevel = n
	}
}

func New(homepageToken string, opts ...Option) (*Resolver, error) {
	if strings.TrimSpace(homepageToken) == "" {
		return nil, errors.New("homepage token must not be empty")
	}
	r := &Resolver{homepageToken: homepageToken}
	for _, opt := range opts {
		opt(r)
	}
	if r.rootLevel < 0 {
		return nil, errors.New("root level must be 0 or higher")
	}
	return r, nil
}

// Slugs strips one trailing separator and splits the path. The empty path
// yields a single empty slug.
func Slugs(urlPath string) []string {
	return strings.Split(strings.TrimSuffix(urlPath, "/"), "/")
}

// Resolve matches urlPath against the children of root.
func (r *Resolver) Resolve(root *models.NavigationItem, urlPath string) models.ResolveResult {
	if root == nil {
		panic("resolver: nil root")
	}

	slugs := Slugs(urlPath)
	if r.rootLevel >= len(slugs) {
		return models.Miss()
	}

	current := root
	viewName := root.ViewName
	for level := r.rootLevel; level < len(slugs); level++ {
		slug := slugs[level]
		if slug == "" {
			slug = r.homepageToken
		}

		match := matchChild(current, slug)
		if match == nil {
			return models.Miss()
		}
		if match.ViewName != "" {
			viewName = match.ViewName
		}
		current = match
	}

	return r.resolveContent(root, current, viewName)
}

func matchChild(node *models.NavigationItem, slug string) *models.NavigationItem {
	for _, child := range node.Children {
		if child.URLSlug == slug {
			return child
		}
	}
	return nil
}

// resolveContent follows local redirects from matched. Content reached
// through a redirect is never rendered in place; the caller is sent to the
// content node's own URL path instead. A chain that revisits any node is a
// miss.
func (r *Resolver) resolveContent(root, matched *models.NavigationItem, viewName string) models.ResolveResult {
	visited := map[*models.NavigationItem]struct{}{}
	current := matched
	redirected := false

	for {
		if current == nil {
			panic("resolver: nil navigation item")
		}
		visited[current] = struct{}{}

		switch {
		case current.HasContent():
			if redirected {
				return r.redirectTo(root, current)
			}
			return models.ResolveResult{
				Found:                true,
				ContentItemCodenames: content.Codenames(current.ContentItems),
				ViewName:             viewName,
			}
		case current.Redirect() != nil:
			next := current.Redirect()
			if _, seen := visited[next]; seen {
				return models.Miss()
			}
			current = next
			redirected = true
		case current.RedirectToURL != "":
			return models.ResolveResult{ExternalRedirect: current.RedirectToURL}
		default:
			return models.Miss()
		}
	}
}

// redirectTo answers a redirect onto target. The homepage is addressed by the
// empty path. A target without a path of its own, e.g. one referenced only by
// redirects, borrows the path of the tree node sharing its codename; when there
// is none the redirect leads nowhere and is a miss.
func (r *Resolver) redirectTo(root, target *models.NavigationItem) models.ResolveResult {
	if target.URLSlug == r.homepageToken {
		return models.ResolveResult{Found: true}
	}
	path := target.URLPath
	if path == "" {
		path = decorator.LocateURLPath(root, target)
	}
	if path == "" {
		return models.Miss()
	}
	return models.ResolveResult{Found: true, LocalRedirect: path}
}
