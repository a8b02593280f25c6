package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by the delivery client,
// response stores and the navigation loader. Services translate them into
// domain errors; handlers never see them directly.
//
// - ErrNotFound: the delivery API returned no item for a query
// - ErrUnavailable: the delivery API is unreachable or its circuit is open
// - ErrBadResponse: the delivery API answered with a body that cannot be decoded
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrBadResponse = errors.New("bad response")
)
