// Package content models items returned by the delivery API.
//
// Every item exposes its system attributes through the ContentItem capability
// so callers can read codenames without knowing the concrete item type. Typed
// items are produced by a TypeProvider in two phases: every raw item is
// instantiated first, then bound to its elements and linked items. Linked
// references therefore share identity and may form cycles.
package content

import (
	"time"
)

// System holds the attributes every delivery item carries.
type System struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Codename     string    `json:"codename"`
	Language     string    `json:"language"`
	Type         string    `json:"type"`
	LastModified time.Time `json:"last_modified"`
}

// ContentItem is implemented by every fetched item.
type ContentItem interface {
	Sys() System
}

// Item is a typed item that can be populated from its raw form.
type Item interface {
	ContentItem
	Bind(raw RawItem, links Linker) error
}

// Linker resolves codenames of linked items to already instantiated items.
// Codenames outside the fetched depth are skipped.
type Linker interface {
	Linked(codenames []string) []ContentItem
}

// Codenames returns the system codename of each item, in order.
func Codenames(items []ContentItem) []string {
	if items == nil {
		panic("content: nil item list")
	}
	codenames := make([]string, 0, len(items))
	for _, item := range items {
		codenames = append(codenames, item.Sys().Codename)
	}
	return codenames
}

// Base carries the system attributes and raw elements shared by all items.
type Base struct {
	System   System
	Elements map[string]RawElement
}

func (b *Base) Sys() System {
	return b.System
}

// Element returns the raw element with the given codename.
func (b *Base) Element(name string) (RawElement, bool) {
	el, ok := b.Elements[name]
	return el, ok
}

// Raw returns the item in its delivery form.
func (b *Base) Raw() RawItem {
	return RawItem{System: b.System, Elements: b.Elements}
}

func (b *Base) bindBase(raw RawItem) {
	b.System = raw.System
	b.Elements = raw.Elements
}

// Generic is used for content types without a registered factory.
type Generic struct {
	Base
}

func (g *Generic) Bind(raw RawItem, _ Linker) error {
	g.bindBase(raw)
	return nil
}

// Article is a blog post.
type Article struct {
	Base
	Title    string
	Summary  string
	PostDate *time.Time
}

func (a *Article) Bind(raw RawItem, _ Linker) error {
	a.bindBase(raw)
	a.Title = raw.Text("title")
	a.Summary = raw.Text("summary")
	if t, ok := raw.DateTime("post_date"); ok {
		a.PostDate = &t
	}
	return nil
}

// ElementReader exposes raw elements of an item.
type ElementReader interface {
	Element(name string) (RawElement, bool)
}

// RawOf returns the delivery form of item. Items that do not keep their raw
// elements yield only their system attributes.
func RawOf(item ContentItem) RawItem {
	if r, ok := item.(interface{ Raw() RawItem }); ok {
		return r.Raw()
	}
	return RawItem{System: item.Sys()}
}

// DateTimeOf reads a date_time element from any item that exposes raw elements.
// The second result is false when the element is absent, empty or unparseable.
func DateTimeOf(item ContentItem, element string) (time.Time, bool) {
	r, ok := item.(ElementReader)
	if !ok {
		return time.Time{}, false
	}
	el, ok := r.Element(element)
	if !ok {
		return time.Time{}, false
	}
	return el.DateTime()
}
