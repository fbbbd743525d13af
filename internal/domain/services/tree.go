package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/lineage"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
)

// DefaultHistoryLimit caps audit listings when no limit is given.
const DefaultHistoryLimit = 50

// TreeService manages whole trees.
type TreeService struct {
	repo   ports.TreeRepository
	locks  *TreeLocks
	search *SearchService
	logger *slog.Logger
	now    func() time.Time
}

// NewTreeService creates a new TreeService. search may be nil.
func NewTreeService(repo ports.TreeRepository, locks *TreeLocks, search *SearchService, logger *slog.Logger) *TreeService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TreeService{
		repo:   repo,
		locks:  locks,
		search: search,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a new tree. Members are optional; when given they must
// already be a consistent graph.
func (s *TreeService) Create(ctx context.Context, name string, members []*entities.Member) (*entities.Tree, error) {
	return s.create(ctx, name, members, entities.ActionTreeCreated)
}

func (s *TreeService) create(ctx context.Context, name string, members []*entities.Member, action string) (*entities.Tree, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tree name is required", entities.ErrInvalidRequest)
	}
	if err := CheckMembers(members); err != nil {
		return nil, err
	}

	now := s.now()
	tree := &entities.Tree{
		ID:        uuid.NewString(),
		Name:      name,
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tree.Members == nil {
		tree.Members = []*entities.Member{}
	}

	if err := s.repo.SaveTree(ctx, tree); err != nil {
		return nil, fmt.Errorf("saving tree: %w", err)
	}
	s.logger.InfoContext(ctx, "tree stored", "tree", tree.ID, "name", tree.Name, "members", len(tree.Members))

	if err := s.repo.LogAction(ctx, tree.ID, action, "", map[string]any{"name": tree.Name, "members": len(tree.Members)}); err != nil {
		s.logger.WarnContext(ctx, "writing audit entry failed", "tree", tree.ID, "error", err)
	}
	if err := s.search.IndexMembers(ctx, tree.ID, tree.Members); err != nil {
		s.logger.WarnContext(ctx, "indexing members failed", "tree", tree.ID, "error", err)
	}
	return tree, nil
}

// Get loads a tree with its members.
func (s *TreeService) Get(ctx context.Context, treeID string) (*entities.Tree, error) {
	tree, err := s.repo.FindTree(ctx, treeID)
	if err != nil {
		return nil, fmt.Errorf("finding tree: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
	}
	return tree, nil
}

// List returns summaries of all trees.
func (s *TreeService) List(ctx context.Context) ([]entities.TreeSummary, error) {
	trees, err := s.repo.ListTrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing trees: %w", err)
	}
	return trees, nil
}

// Delete removes a tree and its members.
func (s *TreeService) Delete(ctx context.Context, treeID string) error {
	unlock := s.locks.Lock(treeID)
	defer unlock()

	if err := s.repo.DeleteTree(ctx, treeID); err != nil {
		return fmt.Errorf("deleting tree: %w", err)
	}
	s.logger.InfoContext(ctx, "tree deleted", "tree", treeID)

	if err := s.search.RemoveTree(ctx, treeID); err != nil {
		s.logger.WarnContext(ctx, "removing tree from index failed", "tree", treeID, "error", err)
	}
	return nil
}

// History returns the newest audit entries of a tree.
func (s *TreeService) History(ctx context.Context, treeID string, limit int) ([]entities.AuditEntry, error) {
	if _, err := s.Get(ctx, treeID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.repo.FindAuditLog(ctx, treeID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}

// CheckMembers verifies that members form a consistent graph with valid
// fields. Members are normalized in place.
func CheckMembers(members []*entities.Member) error {
	for i, m := range members {
		if m == nil || m.ID == "" {
			return fmt.Errorf("%w: member %d has no id", entities.ErrInvalidRequest, i+1)
		}
		if err := m.Fields().Validate(); err != nil {
			return fmt.Errorf("member %s: %w", m.ID, err)
		}
		m.Normalize()
	}
	if violations := lineage.Validate(members); len(violations) > 0 {
		return fmt.Errorf("%w: %d integrity violations, first: %s", entities.ErrInvalidRequest, len(violations), violations[0])
	}
	return nil
}
