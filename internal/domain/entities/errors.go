package entities

import "errors"

// Failure kinds returned by the graph operations. Callers match them with
// errors.Is; the wrapping message carries the offending ids.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrPartialGraph   = errors.New("partial graph")
)
