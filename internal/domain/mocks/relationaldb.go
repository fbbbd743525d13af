package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

// TreeRepository is an in-memory mock implementation of ports.TreeRepository.
type TreeRepository struct {
	mu    sync.Mutex
	Trees map[string]*entities.Tree
	Audit []entities.AuditEntry
	Err   error

	// SaveErr fails SaveTree and SaveMembers only.
	SaveErr error

	// Call tracking
	SaveMembersCallCount int
	LastUpserts          []*entities.Member
	LastDeletedIDs       []string
}

// NewTreeRepository creates a new mock TreeRepository.
func NewTreeRepository() *TreeRepository {
	return &TreeRepository{Trees: make(map[string]*entities.Tree)}
}

// EnsureSchema returns the configured error.
func (m *TreeRepository) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close does nothing.
func (m *TreeRepository) Close() error {
	return nil
}

// SaveTree stores a copy of the tree.
func (m *TreeRepository) SaveTree(_ context.Context, tree *entities.Tree) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Trees[tree.ID] = copyTree(tree)
	return nil
}

// SaveMembers upserts and deletes members of a stored tree.
func (m *TreeRepository) SaveMembers(_ context.Context, treeID string, upserts []*entities.Member, deletedIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveMembersCallCount++
	m.LastUpserts = upserts
	m.LastDeletedIDs = deletedIDs
	if m.Err != nil {
		return m.Err
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	tree, ok := m.Trees[treeID]
	if !ok {
		return fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
	}

	deleted := make(map[string]bool, len(deletedIDs))
	for _, id := range deletedIDs {
		deleted[id] = true
	}
	kept := tree.Members[:0]
	for _, member := range tree.Members {
		if !deleted[member.ID] {
			kept = append(kept, member)
		}
	}
	tree.Members = kept

	for _, u := range upserts {
		replaced := false
		for i, member := range tree.Members {
			if member.ID == u.ID {
				tree.Members[i] = u.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			tree.Members = append(tree.Members, u.Clone())
		}
	}
	tree.UpdatedAt = time.Now()
	return nil
}

// FindTree returns a copy of the stored tree, or nil.
func (m *TreeRepository) FindTree(_ context.Context, treeID string) (*entities.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	tree, ok := m.Trees[treeID]
	if !ok {
		return nil, nil
	}
	return copyTree(tree), nil
}

// ListTrees returns summaries sorted by creation time.
func (m *TreeRepository) ListTrees(_ context.Context) ([]entities.TreeSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.TreeSummary, 0, len(m.Trees))
	for _, tree := range m.Trees {
		result = append(result, tree.Summary())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteTree removes a stored tree.
func (m *TreeRepository) DeleteTree(_ context.Context, treeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Trees[treeID]; !ok {
		return fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
	}
	delete(m.Trees, treeID)
	return nil
}

// LogAction records an audit entry.
func (m *TreeRepository) LogAction(_ context.Context, treeID, action, memberID string, details map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Audit = append(m.Audit, entities.AuditEntry{
		ID:        int64(len(m.Audit) + 1),
		TreeID:    treeID,
		Action:    action,
		MemberID:  memberID,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

// FindAuditLog returns audit entries for a tree, newest first.
func (m *TreeRepository) FindAuditLog(_ context.Context, treeID string, limit int) ([]entities.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for i := len(m.Audit) - 1; i >= 0; i-- {
		if m.Audit[i].TreeID != treeID {
			continue
		}
		result = append(result, m.Audit[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func copyTree(tree *entities.Tree) *entities.Tree {
	c := *tree
	c.Members = make([]*entities.Member, len(tree.Members))
	for i, member := range tree.Members {
		c.Members[i] = member.Clone()
	}
	return &c
}
