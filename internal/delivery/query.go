package delivery

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Parameter is one filter or modifier of a delivery query.
type Parameter interface {
	apply(v url.Values)
}

// Query is an ordered set of parameters.
type Query []Parameter

// Values renders the query as URL values.
func (q Query) Values() url.Values {
	v := url.Values{}
	for _, p := range q {
		p.apply(v)
	}
	return v
}

// Key is a stable string identifying the query, used as a cache key.
func (q Query) Key() string {
	v := q.Values()
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		vals := append([]string(nil), v[k]...)
		sort.Strings(vals)
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(strings.Join(vals, ",")))
	}
	return b.String()
}

type equalsFilter struct{ field, value string }

func (f equalsFilter) apply(v url.Values) { v.Set(f.field, f.value) }

// Equals matches items whose field equals value.
func Equals(field, value string) Parameter { return equalsFilter{field, value} }

type rangeFilter struct{ field, lower, upper string }

func (f rangeFilter) apply(v url.Values) {
	v.Set(f.field+"[gte]", f.lower)
	v.Set(f.field+"[lt]", f.upper)
}

// Range matches lower <= field < upper.
func Range(field, lower, upper string) Parameter { return rangeFilter{field, lower, upper} }

type inFilter struct {
	field  string
	values []string
}

func (f inFilter) apply(v url.Values) { v.Set(f.field+"[in]", strings.Join(f.values, ",")) }

// In matches items whose field is one of values.
func In(field string, values ...string) Parameter { return inFilter{field, values} }

type depthParam int

func (d depthParam) apply(v url.Values) { v.Set("depth", strconv.Itoa(int(d))) }

// Depth limits how many levels of linked items are included.
func Depth(n int) Parameter { return depthParam(n) }

type limitParam int

func (l limitParam) apply(v url.Values) { v.Set("limit", strconv.Itoa(int(l))) }

// Limit caps the number of returned items.
func Limit(n int) Parameter { return limitParam(n) }

// SortOrder is the direction of an Order parameter.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

type orderParam struct {
	field string
	dir   SortOrder
}

func (o orderParam) apply(v url.Values) { v.Set("order", o.field+"["+string(o.dir)+"]") }

// Order sorts results by field.
func Order(field string, dir SortOrder) Parameter { return orderParam{field, dir} }

type elementsParam []string

func (e elementsParam) apply(v url.Values) { v.Set("elements", strings.Join(e, ",")) }

// Elements projects the response down to the named elements.
func Elements(names ...string) Parameter { return elementsParam(names) }
