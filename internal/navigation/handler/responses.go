package handler

import (
	"slices"

	"navmenus/internal/content"
	"navmenus/internal/navigation/models"
	"navmenus/internal/navigation/service"
	"navmenus/internal/navigation/sitemap"
)

// MenuItem is the wire form of one menu node.
type MenuItem struct {
	Codename     string     `json:"codename"`
	Title        string     `json:"title"`
	URLPath      string     `json:"url_path"`
	RedirectPath string     `json:"redirect_path,omitempty"`
	ExternalURL  string     `json:"external_url,omitempty"`
	AppearsIn    []string   `json:"appears_in,omitempty"`
	Children     []MenuItem `json:"children,omitempty"`
}

// PageResponse is the page model of a resolved URL.
type PageResponse struct {
	View       string            `json:"view"`
	Navigation MenuItem          `json:"navigation"`
	Body       []content.RawItem `json:"body"`
}

type SitemapResponse struct {
	Entries []sitemap.Entry `json:"entries"`
}

// NewMenuItem converts a menu tree to its wire form, cutting cycles.
func NewMenuItem(root *models.NavigationItem) MenuItem {
	return menuItem(root, nil)
}

func menuItem(n *models.NavigationItem, ancestors []*models.NavigationItem) MenuItem {
	out := MenuItem{
		Codename:     n.Codename(),
		Title:        n.Title,
		URLPath:      n.URLPath,
		RedirectPath: n.RedirectPath,
		ExternalURL:  n.RedirectToURL,
	}
	for _, o := range n.AppearsIn {
		out.AppearsIn = append(out.AppearsIn, o.Codename)
	}
	next := append(slices.Clip(ancestors), n)
	for _, c := range n.Children {
		if slices.Contains(next, c) {
			continue
		}
		out.Children = append(out.Children, menuItem(c, next))
	}
	return out
}

func toPageResponse(p *service.Page) PageResponse {
	view := p.ViewName
	if view == "" {
		view = DefaultView
	}
	body := make([]content.RawItem, 0, len(p.Items))
	for _, item := range p.Items {
		body = append(body, content.RawOf(item))
	}
	return PageResponse{
		View:       view,
		Navigation: NewMenuItem(p.Menu),
		Body:       body,
	}
}
