// Package sitemap lists the addressable pages of a navigation tree together
// with the time their content last changed.
package sitemap

import (
	"time"

	"navmenus/internal/content"
	"navmenus/internal/navigation/models"
)

// Entry is one sitemap location.
type Entry struct {
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified"`
}

// Flatten returns every node below root in pre-order. Nodes reachable through
// several parents are listed once; cycles are cut.
func Flatten(root *models.NavigationItem) []*models.NavigationItem {
	if root == nil {
		panic("sitemap: nil root")
	}
	seen := map[*models.NavigationItem]struct{}{root: {}}
	var out []*models.NavigationItem
	var walk func(n *models.NavigationItem)
	walk = func(n *models.NavigationItem) {
		for _, c := range n.Children {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
			walk(c)
		}
	}
	walk(root)
	return out
}

// ContentCodenames collects the distinct codenames of content attached to
// nodes, in first-seen order.
func ContentCodenames(nodes []*models.NavigationItem) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, n := range nodes {
		if !n.HasContent() {
			continue
		}
		for _, c := range content.Codenames(n.ContentItems) {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// Build dates each node by the most recently modified of its content items as
// found in items. Nodes with no matching item are omitted.
func Build(nodes []*models.NavigationItem, items []content.ContentItem) []Entry {
	modified := make(map[string]time.Time, len(items))
	for _, item := range items {
		sys := item.Sys()
		if prev, ok := modified[sys.Codename]; !ok || sys.LastModified.After(prev) {
			modified[sys.Codename] = sys.LastModified
		}
	}

	var out []Entry
	for _, n := range nodes {
		if !n.HasContent() {
			continue
		}
		var (
			latest time.Time
			found  bool
		)
		for _, c := range content.Codenames(n.ContentItems) {
			t, ok := modified[c]
			if !ok {
				continue
			}
			if !found || t.After(latest) {
				latest, found = t, true
			}
		}
		if found {
			out = append(out, Entry{Path: n.URLPath, LastModified: latest})
		}
	}
	return out
}
