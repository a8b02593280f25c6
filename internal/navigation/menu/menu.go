// Package menu builds the cacheable menu view of a decorated navigation tree.
//
// The menu is a lightweight copy: nodes keep their display attributes and
// ancestor chain but drop content references. Mount points named by rules
// have their children replaced with generated nodes.
package menu

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"navmenus/internal/navigation/models"
)

// Generator produces the children of a mount point.
type Generator interface {
	Generate(ctx context.Context, mount *models.NavigationItem) ([]*models.NavigationItem, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, mount *models.NavigationItem) ([]*models.NavigationItem, error)

func (f GeneratorFunc) Generate(ctx context.Context, mount *models.NavigationItem) ([]*models.NavigationItem, error) {
	return f(ctx, mount)
}

// Rule binds a mount-point URL path such as "/blog" to a generator.
type Rule struct {
	MountPoint string
	Generator  Generator
}

type Augmenter struct {
	rules []Rule
}

// New validates rules and normalises their mount points to the URL path form
// used by decorated nodes.
func New(rules ...Rule) (*Augmenter, error) {
	a := &Augmenter{}
	for _, r := range rules {
		if r.Generator == nil {
			return nil, fmt.Errorf("menu rule %q has no generator", r.MountPoint)
		}
		mount := NormalizeMountPoint(r.MountPoint)
		if mount == "" {
			return nil, errors.New("menu rule mount point must not be empty")
		}
		a.rules = append(a.rules, Rule{MountPoint: mount, Generator: r.Generator})
	}
	return a, nil
}

// NormalizeMountPoint trims surrounding separators and whitespace.
func NormalizeMountPoint(mount string) string {
	return strings.Trim(strings.TrimSpace(mount), "/")
}

// Augment returns a new tree; root is not modified.
func (a *Augmenter) Augment(ctx context.Context, root *models.NavigationItem) (*models.NavigationItem, error) {
	if root == nil {
		panic("menu: nil root")
	}
	return a.copyNode(ctx, root, nil, nil)
}

func (a *Augmenter) rule(urlPath string) (Rule, bool) {
	for _, r := range a.rules {
		if strings.EqualFold(r.MountPoint, urlPath) {
			return r, true
		}
	}
	return Rule{}, false
}

// copyNode copies node under parent. originals holds the source nodes on the
// current branch and copies their counterparts.
func (a *Augmenter) copyNode(ctx context.Context, node, parent *models.NavigationItem, originals []*models.NavigationItem) (*models.NavigationItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := Copy(node)
	out.Parent = parent
	out.AllParents = ancestorsOf(parent)

	next := append(slices.Clip(originals), node)
	if r, ok := a.rule(node.URLPath); ok {
		generated, err := r.Generator.Generate(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("generating menu items for %q: %w", r.MountPoint, err)
		}
		out.Children = make([]*models.NavigationItem, 0, len(generated))
		for _, g := range generated {
			out.Children = append(out.Children, adopt(g, out))
		}
		return out, nil
	}

	out.Children = make([]*models.NavigationItem, 0, len(node.Children))
	for _, child := range node.Children {
		if child == nil {
			panic("menu: nil child")
		}
		if slices.Contains(next, child) {
			continue
		}
		c, err := a.copyNode(ctx, child, out, next)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, c)
	}
	return out, nil
}

// Copy returns a node holding only the display attributes of n.
func Copy(n *models.NavigationItem) *models.NavigationItem {
	out := &models.NavigationItem{
		Title:         n.Title,
		URLSlug:       n.URLSlug,
		URLPath:       n.URLPath,
		RedirectPath:  n.RedirectPath,
		RedirectToURL: n.RedirectToURL,
		ViewName:      n.ViewName,
		AppearsIn:     slices.Clone(n.AppearsIn),
		Decorated:     true,
	}
	out.System = n.System
	return out
}

func ancestorsOf(parent *models.NavigationItem) []*models.NavigationItem {
	if parent == nil {
		return nil
	}
	return append(slices.Clone(parent.AllParents), parent)
}

// adopt links a generated subtree under parent.
func adopt(n, parent *models.NavigationItem) *models.NavigationItem {
	n.Parent = parent
	n.AllParents = ancestorsOf(parent)
	n.Decorated = true
	for _, c := range n.Children {
		adopt(c, n)
	}
	return n
}
