package handlers

import (
	"context"
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
)

// TreeHandler handles tree operations at the application layer.
type TreeHandler struct {
	trees *services.TreeService
}

// NewTreeHandler creates a new TreeHandler.
func NewTreeHandler(trees *services.TreeService) *TreeHandler {
	return &TreeHandler{trees: trees}
}

// CreateTreeInput is the request body for creating a tree.
type CreateTreeInput struct {
	Name    string             `json:"name"`
	Members []*entities.Member `json:"members"`
}

// TreeListResult contains the result of listing trees.
type TreeListResult struct {
	Trees []entities.TreeSummary `json:"trees"`
	Total int                    `json:"total"`
}

// HandleCreate creates a tree, optionally seeded with members.
func (h *TreeHandler) HandleCreate(ctx context.Context, in CreateTreeInput) (*entities.Tree, error) {
	return h.trees.Create(ctx, in.Name, in.Members)
}

// HandleList returns summaries of all trees.
func (h *TreeHandler) HandleList(ctx context.Context) (*TreeListResult, error) {
	trees, err := h.trees.List(ctx)
	if err != nil {
		return nil, err
	}
	return &TreeListResult{Trees: trees, Total: len(trees)}, nil
}

// HandleGet returns a stored tree.
func (h *TreeHandler) HandleGet(ctx context.Context, treeID string) (*entities.Tree, error) {
	return h.trees.Get(ctx, treeID)
}

// HandleDelete removes a tree.
func (h *TreeHandler) HandleDelete(ctx context.Context, treeID string) error {
	return h.trees.Delete(ctx, treeID)
}

// HandleHistory returns the most recent audit entries of a tree.
func (h *TreeHandler) HandleHistory(ctx context.Context, treeID string, limit int) ([]entities.AuditEntry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", entities.ErrInvalidRequest)
	}
	return h.trees.History(ctx, treeID, limit)
}
