package mocks

import (
	"context"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
)

// MemberIndex is a mock implementation of ports.MemberIndex and
// ports.CollectionManager.
type MemberIndex struct {
	Docs map[string]ports.MemberDocument
	Hits []ports.MemberHit
	Err  error

	// Collection errors (separate from Err for fine-grained control)
	EnsureCollectionErr error
	DeleteCollectionErr error

	// Call tracking
	UpsertCallCount           int
	DeleteCallCount           int
	DeleteTreeCallCount       int
	EnsureCollectionCallCount int
	LastSearchTreeID          string
	LastSearchLimit           int
}

// NewMemberIndex creates a new mock MemberIndex.
func NewMemberIndex() *MemberIndex {
	return &MemberIndex{Docs: make(map[string]ports.MemberDocument)}
}

// EnsureCollection returns the configured error.
func (m *MemberIndex) EnsureCollection(_ context.Context, _ uint64) error {
	m.EnsureCollectionCallCount++
	return m.EnsureCollectionErr
}

// DeleteCollection returns the configured error.
func (m *MemberIndex) DeleteCollection(_ context.Context) error {
	return m.DeleteCollectionErr
}

// Upsert stores documents keyed by tree and member id.
func (m *MemberIndex) Upsert(_ context.Context, docs []ports.MemberDocument) error {
	m.UpsertCallCount++
	if m.Err != nil {
		return m.Err
	}
	for _, d := range docs {
		m.Docs[d.TreeID+"/"+d.MemberID] = d
	}
	return nil
}

// Delete removes documents.
func (m *MemberIndex) Delete(_ context.Context, treeID string, memberIDs []string) error {
	m.DeleteCallCount++
	if m.Err != nil {
		return m.Err
	}
	for _, id := range memberIDs {
		delete(m.Docs, treeID+"/"+id)
	}
	return nil
}

// DeleteTree removes all documents of a tree.
func (m *MemberIndex) DeleteTree(_ context.Context, treeID string) error {
	m.DeleteTreeCallCount++
	if m.Err != nil {
		return m.Err
	}
	for key, d := range m.Docs {
		if d.TreeID == treeID {
			delete(m.Docs, key)
		}
	}
	return nil
}

// Search returns the configured hits.
func (m *MemberIndex) Search(_ context.Context, treeID string, _ []float32, limit int) ([]ports.MemberHit, error) {
	m.LastSearchTreeID = treeID
	m.LastSearchLimit = limit
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Hits, nil
}
