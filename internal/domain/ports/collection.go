// Package ports defines interfaces for external service communication.
package ports

import "context"

// CollectionManager handles index collection lifecycle operations.
type CollectionManager interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// DeleteCollection removes the collection and all its data.
	DeleteCollection(ctx context.Context) error
}
