package models

import (
	"navmenus/internal/content"
)

// ContentType is the delivery type codename of navigation items.
const ContentType = "navigation_item"

// Element codenames of the navigation_item content type.
const (
	ElementTitle                = "title"
	ElementURLSlug              = "url_slug"
	ElementContentItems         = "content_items"
	ElementChildNavigationItems = "child_navigation_items"
	ElementRedirectToItem       = "redirect_to_item"
	ElementRedirectToURL        = "redirect_to_url"
	ElementViewName             = "view_name"
	ElementAppearsIn            = "appears_in"
)

// NavigationItem is one node of the navigation graph. The graph may contain
// cycles through child or redirect references; all walkers guard against them.
type NavigationItem struct {
	content.Base

	Title          string
	URLSlug        string
	ContentItems   []content.ContentItem
	Children       []*NavigationItem
	RedirectToItem []*NavigationItem
	RedirectToURL  string
	ViewName       string
	AppearsIn      []content.Option

	// Set by the decorator; zero until the tree has been decorated.
	URLPath      string
	RedirectPath string
	Parent       *NavigationItem
	AllParents   []*NavigationItem
	Decorated    bool
}

// Codename is shorthand for Sys().Codename.
func (n *NavigationItem) Codename() string {
	return n.System.Codename
}

// Redirect returns the local redirect target, or nil.
func (n *NavigationItem) Redirect() *NavigationItem {
	if len(n.RedirectToItem) == 0 {
		return nil
	}
	return n.RedirectToItem[0]
}

// HasContent reports whether content items are attached directly to the node.
func (n *NavigationItem) HasContent() bool {
	return len(n.ContentItems) > 0
}

// Bind populates the item from its raw form. Linked navigation items keep the
// identity assigned by the decoding pass.
func (n *NavigationItem) Bind(raw content.RawItem, links content.Linker) error {
	n.System = raw.System
	n.Elements = raw.Elements
	n.Title = raw.Text(ElementTitle)
	n.URLSlug = raw.Text(ElementURLSlug)
	n.RedirectToURL = raw.Text(ElementRedirectToURL)
	n.ViewName = raw.Text(ElementViewName)
	n.AppearsIn = raw.MultipleChoice(ElementAppearsIn)
	n.ContentItems = links.Linked(raw.LinkedCodenames(ElementContentItems))
	n.Children = navigationItems(links.Linked(raw.LinkedCodenames(ElementChildNavigationItems)))
	n.RedirectToItem = navigationItems(links.Linked(raw.LinkedCodenames(ElementRedirectToItem)))
	return nil
}

func navigationItems(items []content.ContentItem) []*NavigationItem {
	out := make([]*NavigationItem, 0, len(items))
	for _, item := range items {
		if nav, ok := item.(*NavigationItem); ok {
			out = append(out, nav)
		}
	}
	return out
}

// RegisterType adds the navigation_item factory to a type provider.
func RegisterType(p *content.TypeProvider) {
	p.Register(ContentType, func() content.Item { return &NavigationItem{} })
}
