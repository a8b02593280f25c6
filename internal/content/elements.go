package content

import (
	"encoding/json"
	"strings"
	"time"
)

// RawItem is an item as it appears on the wire.
type RawItem struct {
	System   System                `json:"system"`
	Elements map[string]RawElement `json:"elements"`
}

// RawElement is one element of a raw item. Value is decoded lazily by type.
type RawElement struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Option is a selected multiple choice value.
type Option struct {
	Name     string `json:"name"`
	Codename string `json:"codename"`
}

// Text returns a text, url_slug or custom element value, or "" when missing.
func (r RawItem) Text(name string) string {
	el, ok := r.Elements[name]
	if !ok {
		return ""
	}
	return el.Text()
}

// LinkedCodenames returns the codenames referenced by a modular_content element.
func (r RawItem) LinkedCodenames(name string) []string {
	el, ok := r.Elements[name]
	if !ok {
		return nil
	}
	return el.LinkedCodenames()
}

// MultipleChoice returns the selected options of a multiple_choice element.
func (r RawItem) MultipleChoice(name string) []Option {
	el, ok := r.Elements[name]
	if !ok {
		return nil
	}
	var opts []Option
	if err := json.Unmarshal(el.Value, &opts); err != nil {
		return nil
	}
	return opts
}

// DateTime returns a date_time element value.
func (r RawItem) DateTime(name string) (time.Time, bool) {
	el, ok := r.Elements[name]
	if !ok {
		return time.Time{}, false
	}
	return el.DateTime()
}

func (e RawElement) Text() string {
	var s string
	if err := json.Unmarshal(e.Value, &s); err != nil {
		return ""
	}
	return s
}

func (e RawElement) LinkedCodenames() []string {
	var codenames []string
	if err := json.Unmarshal(e.Value, &codenames); err != nil {
		return nil
	}
	return codenames
}

// DateTime parses the value as RFC 3339, falling back to a bare date.
func (e RawElement) DateTime() (time.Time, bool) {
	s := strings.TrimSpace(e.Text())
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
