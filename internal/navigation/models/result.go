package models

// ResolveResult is the outcome of resolving one URL path.
//
// When Found is true the result is either content (ContentItemCodenames set)
// or a local redirect (no codenames). A local redirect to the homepage has an
// empty LocalRedirect, the site root. An external redirect is reported with
// Found=false and ExternalRedirect set; a miss has every field empty.
type ResolveResult struct {
	Found                bool     `json:"found"`
	ContentItemCodenames []string `json:"content_item_codenames,omitempty"`
	ViewName             string   `json:"view_name,omitempty"`
	// LocalRedirect is a URL path without a leading slash; callers decide the final shape.
	LocalRedirect    string `json:"local_redirect,omitempty"`
	ExternalRedirect string `json:"external_redirect,omitempty"`
}

// ResultKind classifies a ResolveResult.
type ResultKind string

const (
	KindMiss             ResultKind = "miss"
	KindContent          ResultKind = "content"
	KindLocalRedirect    ResultKind = "local_redirect"
	KindExternalRedirect ResultKind = "external_redirect"
)

func (r ResolveResult) Kind() ResultKind {
	switch {
	case r.Found && len(r.ContentItemCodenames) > 0:
		return KindContent
	case r.Found:
		return KindLocalRedirect
	case r.ExternalRedirect != "":
		return KindExternalRedirect
	default:
		return KindMiss
	}
}

// Miss is the zero result.
func Miss() ResolveResult {
	return ResolveResult{}
}
