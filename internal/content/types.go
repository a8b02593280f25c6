package content

import (
	"fmt"
)

// Factory returns an empty item ready to be bound.
type Factory func() Item

// TypeProvider maps content type codenames to item factories.
type TypeProvider struct {
	factories map[string]Factory
}

// NewTypeProvider registers the built-in article type; callers add their own
// types with Register.
func NewTypeProvider() *TypeProvider {
	p := &TypeProvider{factories: make(map[string]Factory)}
	p.Register("article", func() Item { return &Article{} })
	return p
}

// Register adds or replaces the factory for a content type.
func (p *TypeProvider) Register(contentType string, f Factory) {
	p.factories[contentType] = f
}

func (p *TypeProvider) instantiate(contentType string) Item {
	if f, ok := p.factories[contentType]; ok {
		return f()
	}
	return &Generic{}
}

// Build instantiates and binds the given raw items and linked items. The
// returned slice follows the order of items; linked items are only reachable
// through references.
func (p *TypeProvider) Build(items []RawItem, linked map[string]RawItem) ([]ContentItem, error) {
	g := &graph{
		instances: make(map[string]Item, len(items)+len(linked)),
	}

	top := make([]Item, 0, len(items))
	for _, raw := range items {
		top = append(top, g.instantiate(p, raw))
	}
	for codename, raw := range linked {
		if raw.System.Codename == "" {
			raw.System.Codename = codename
		}
		g.instantiate(p, raw)
	}

	for _, pending := range g.pending {
		if err := pending.item.Bind(pending.raw, g); err != nil {
			return nil, fmt.Errorf("bind %s %q: %w", pending.raw.System.Type, pending.raw.System.Codename, err)
		}
	}

	out := make([]ContentItem, 0, len(top))
	for _, item := range top {
		out = append(out, item)
	}
	return out, nil
}

type pendingBind struct {
	item Item
	raw  RawItem
}

// graph holds one decoding pass. Instances are keyed by codename so every
// reference to the same codename resolves to the same pointer.
type graph struct {
	instances map[string]Item
	pending   []pendingBind
}

func (g *graph) instantiate(p *TypeProvider, raw RawItem) Item {
	if item, ok := g.instances[raw.System.Codename]; ok {
		return item
	}
	item := p.instantiate(raw.System.Type)
	g.instances[raw.System.Codename] = item
	g.pending = append(g.pending, pendingBind{item: item, raw: raw})
	return item
}

func (g *graph) Linked(codenames []string) []ContentItem {
	out := make([]ContentItem, 0, len(codenames))
	for _, codename := range codenames {
		if item, ok := g.instances[codename]; ok {
			out = append(out, item)
		}
	}
	return out
}
