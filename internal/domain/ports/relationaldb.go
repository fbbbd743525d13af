package ports

import (
	"context"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

// TreeRepository persists family trees. Implementations must make every
// write atomic: a failed SaveTree or SaveMembers leaves the stored tree as
// it was.
type TreeRepository interface {
	// EnsureSchema creates the storage schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	// SaveTree writes a full tree snapshot, replacing any stored members.
	SaveTree(ctx context.Context, tree *entities.Tree) error

	// SaveMembers upserts the given members and deletes deletedIDs within one
	// tree. New members are appended after the existing ones.
	SaveMembers(ctx context.Context, treeID string, upserts []*entities.Member, deletedIDs []string) error

	// FindTree loads a tree with its members in stored order.
	// Returns nil if no tree exists.
	FindTree(ctx context.Context, treeID string) (*entities.Tree, error)

	// ListTrees returns summaries of all trees, oldest first.
	ListTrees(ctx context.Context) ([]entities.TreeSummary, error)

	// DeleteTree removes a tree and its members. Returns entities.ErrNotFound
	// when the tree does not exist.
	DeleteTree(ctx context.Context, treeID string) error

	// LogAction appends an entry to the tree's audit log.
	LogAction(ctx context.Context, treeID, action, memberID string, details map[string]any) error

	// FindAuditLog returns audit entries for a tree, newest first.
	FindAuditLog(ctx context.Context, treeID string, limit int) ([]entities.AuditEntry, error)
}
