// Package decorator computes the derived attributes of a freshly loaded
// navigation tree: URL paths, parent links, ancestor chains and the URL paths
// of local redirect targets.
//
// Decoration runs in two phases. URL paths are computed first for the whole
// tree because a redirect may point into a branch that is not an ancestor of
// the redirecting node. Both phases fan out across sibling subtrees and guard
// against cycles with a per-branch ancestor chain compared by identity.
package decorator

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"navmenus/internal/navigation/models"
)

// Decorator decorates navigation trees. It is safe for concurrent use.
type Decorator struct {
	rootToken     string
	homepageToken string
	concurrency   int
}

type Option func(*Decorator)

// WithConcurrency caps the number of goroutines used per phase. Values below
// 2 decorate sequentially on the calling goroutine.
func WithConcurrency(n int) Option {
	return func(d *Decorator) {
		d.concurrency = n
	}
}

// New builds a decorator for the given sentinel slugs.
func New(rootToken, homepageToken string, opts ...Option) (*Decorator, error) {
	if strings.TrimSpace(rootToken) == "" {
		return nil, errors.New("root token must not be empty")
	}
	if strings.TrimSpace(homepageToken) == "" {
		return nil, errors.New("homepage token must not be empty")
	}
	d := &Decorator{
		rootToken:     rootToken,
		homepageToken: homepageToken,
		concurrency:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Decorate populates derived attributes in place and returns root. A tree is
// decorated once; decorating it again is a no-op.
func (d *Decorator) Decorate(ctx context.Context, root *models.NavigationItem) (*models.NavigationItem, error) {
	if root == nil {
		panic("decorator: nil root")
	}
	if root.Decorated {
		return root, nil
	}

	p := &pass{d: d, root: root}
	if err := p.run(ctx, func(g *errgroup.Group) { p.addURLPaths(ctx, g, nil, nil, root, "") }); err != nil {
		return nil, err
	}
	if err := p.run(ctx, func(g *errgroup.Group) { p.decorateItems(ctx, g, nil, nil, nil, root) }); err != nil {
		return nil, err
	}

	root.Decorated = true
	return root, nil
}

// URLPath returns the path segment contribution rules applied to one node.
func (d *Decorator) URLPath(slug, parentPath string) string {
	if slug == d.rootToken || slug == d.homepageToken {
		return ""
	}
	if parentPath == "" {
		return slug
	}
	return parentPath + "/" + slug
}

// pass holds the state of one decoration.
type pass struct {
	d    *Decorator
	root *models.NavigationItem

	// mu serialises writes to nodes reachable through more than one branch.
	mu sync.Mutex
	// routes holds, per node, the child indexes leading to the branch whose
	// values the node carries. The lowest route in pre-order wins, so a node
	// shared by several parents is decorated the same way at any concurrency.
	routes  map[*models.NavigationItem][]int
	errOnce sync.Once
	err     error
}

// claim reports whether route beats the route node was last written from.
// Callers hold mu.
func (p *pass) claim(node *models.NavigationItem, route []int) bool {
	if prev, ok := p.routes[node]; ok && slices.Compare(prev, route) <= 0 {
		return false
	}
	p.routes[node] = route
	return true
}

func (p *pass) run(ctx context.Context, start func(g *errgroup.Group)) error {
	p.routes = make(map[*models.NavigationItem][]int)
	g := &errgroup.Group{}
	if p.d.concurrency > 1 {
		g.SetLimit(p.d.concurrency)
	}
	start(g)
	_ = g.Wait()
	if p.err != nil {
		return p.err
	}
	return ctx.Err()
}

// spawn runs fn on the group when a slot is free and inline otherwise, so a
// task never blocks waiting for a slot held by its own ancestors.
func (p *pass) spawn(g *errgroup.Group, fn func()) {
	if p.d.concurrency > 1 && g.TryGo(func() error { fn(); return nil }) {
		return
	}
	fn()
}

func (p *pass) cancelled(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		p.errOnce.Do(func() { p.err = err })
		return true
	}
	return false
}

func (p *pass) addURLPaths(ctx context.Context, g *errgroup.Group, ancestors []*models.NavigationItem, route []int, node *models.NavigationItem, parentPath string) {
	if node == nil {
		panic("decorator: nil node")
	}
	if slices.Contains(ancestors, node) || p.cancelled(ctx) {
		return
	}

	path := p.d.URLPath(node.URLSlug, parentPath)
	p.mu.Lock()
	won := p.claim(node, route)
	if won {
		node.URLPath = path
	}
	p.mu.Unlock()
	if !won {
		return
	}

	next := append(slices.Clip(ancestors), node)
	for i, child := range node.Children {
		childRoute := append(slices.Clip(route), i)
		p.spawn(g, func() { p.addURLPaths(ctx, g, next, childRoute, child, path) })
	}
}

func (p *pass) decorateItems(ctx context.Context, g *errgroup.Group, parent *models.NavigationItem, ancestors []*models.NavigationItem, route []int, node *models.NavigationItem) {
	if node == nil {
		panic("decorator: nil node")
	}
	if slices.Contains(ancestors, node) || p.cancelled(ctx) {
		return
	}

	redirectPath := ""
	if target := node.Redirect(); target != nil {
		redirectPath = LocateURLPath(p.root, target)
	}

	p.mu.Lock()
	won := p.claim(node, route)
	if won {
		node.RedirectPath = redirectPath
		node.Parent = parent
		node.AllParents = slices.Clone(ancestors)
	}
	p.mu.Unlock()
	if !won {
		return
	}

	next := append(slices.Clip(ancestors), node)
	for i, child := range node.Children {
		childRoute := append(slices.Clip(route), i)
		p.spawn(g, func() { p.decorateItems(ctx, g, node, next, childRoute, child) })
	}
}

// LocateURLPath finds the URL path of the first node below root whose codename
// matches target's. The search is breadth first by level, visits every node
// once and returns "" when nothing matches.
func LocateURLPath(root, target *models.NavigationItem) string {
	if root == nil || target == nil {
		panic("decorator: nil root or target")
	}

	codename := target.Codename()
	visited := map[*models.NavigationItem]struct{}{root: {}}
	queue := make([]*models.NavigationItem, 0, len(root.Children))
	enqueue := func(children []*models.NavigationItem) {
		for _, c := range children {
			if _, seen := visited[c]; seen {
				continue
			}
			visited[c] = struct{}{}
			queue = append(queue, c)
		}
	}

	enqueue(root.Children)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.Codename() == codename {
			return n.URLPath
		}
		enqueue(n.Children)
	}
	return ""
}
