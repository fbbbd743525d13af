package handlers

import (
	"context"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
)

// SearchHandler handles member similarity search.
type SearchHandler struct {
	trees  *services.TreeService
	search *services.SearchService
}

// NewSearchHandler creates a new SearchHandler. search may be nil.
func NewSearchHandler(trees *services.TreeService, search *services.SearchService) *SearchHandler {
	return &SearchHandler{trees: trees, search: search}
}

// SearchResult contains the hits of one search.
type SearchResult struct {
	Query string            `json:"query"`
	Hits  []ports.MemberHit `json:"hits"`
}

// HandleSearch finds members of a tree similar to query.
func (h *SearchHandler) HandleSearch(ctx context.Context, treeID, query string, limit int) (*SearchResult, error) {
	if _, err := h.trees.Get(ctx, treeID); err != nil {
		return nil, err
	}
	hits, err := h.search.Search(ctx, treeID, query, limit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []ports.MemberHit{}
	}
	return &SearchResult{Query: query, Hits: hits}, nil
}
