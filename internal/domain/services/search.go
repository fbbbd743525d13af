package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
)

// DefaultSearchLimit is used when a search asks for no explicit limit.
const DefaultSearchLimit = 10

// SearchService keeps the member similarity index in step with stored
// trees. A nil *SearchService is valid and does nothing.
type SearchService struct {
	embedder    ports.Embedder
	index       ports.MemberIndex
	collections ports.CollectionManager
	vectorSize  uint64
}

// NewSearchService creates a new SearchService.
func NewSearchService(
	embedder ports.Embedder,
	index ports.MemberIndex,
	collections ports.CollectionManager,
	vectorSize uint64,
) *SearchService {
	return &SearchService{
		embedder:    embedder,
		index:       index,
		collections: collections,
		vectorSize:  vectorSize,
	}
}

// Enabled reports whether search is configured.
func (s *SearchService) Enabled() bool {
	return s != nil && s.embedder != nil && s.index != nil
}

// EnsureReady creates the backing collection if needed.
func (s *SearchService) EnsureReady(ctx context.Context) error {
	if !s.Enabled() || s.collections == nil {
		return nil
	}
	if err := s.collections.EnsureCollection(ctx, s.vectorSize); err != nil {
		return fmt.Errorf("ensuring member collection: %w", err)
	}
	return nil
}

// IndexMembers embeds and upserts members of a tree.
func (s *SearchService) IndexMembers(ctx context.Context, treeID string, members []*entities.Member) error {
	if !s.Enabled() || len(members) == 0 {
		return nil
	}

	texts := make([]string, len(members))
	for i, m := range members {
		texts[i] = MemberText(m)
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("generating embeddings: %w", err)
	}
	if len(embeddings) != len(members) {
		return fmt.Errorf("embedder returned %d embeddings for %d members", len(embeddings), len(members))
	}

	docs := make([]ports.MemberDocument, len(members))
	for i, m := range members {
		docs[i] = ports.MemberDocument{
			TreeID:    treeID,
			MemberID:  m.ID,
			Name:      m.Name,
			Surname:   m.Surname,
			Text:      texts[i],
			Embedding: embeddings[i],
		}
	}
	if err := s.index.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upserting members: %w", err)
	}
	return nil
}

// RemoveMembers drops members of a tree from the index.
func (s *SearchService) RemoveMembers(ctx context.Context, treeID string, memberIDs []string) error {
	if !s.Enabled() || len(memberIDs) == 0 {
		return nil
	}
	if err := s.index.Delete(ctx, treeID, memberIDs); err != nil {
		return fmt.Errorf("deleting members from index: %w", err)
	}
	return nil
}

// RemoveTree drops every member of a tree from the index.
func (s *SearchService) RemoveTree(ctx context.Context, treeID string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.index.DeleteTree(ctx, treeID); err != nil {
		return fmt.Errorf("deleting tree from index: %w", err)
	}
	return nil
}

// Search returns the members of a tree most similar to query.
func (s *SearchService) Search(ctx context.Context, treeID, query string, limit int) ([]ports.MemberHit, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("%w: member search is disabled", entities.ErrInvalidRequest)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", entities.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}
	hits, err := s.index.Search(ctx, treeID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching members: %w", err)
	}
	return hits, nil
}

// MemberText is the text embedded for a member.
func MemberText(m *entities.Member) string {
	var b strings.Builder
	b.WriteString(m.DisplayName())
	if m.Gender != "" {
		b.WriteString(", ")
		b.WriteString(string(m.Gender))
	}
	if m.DateOfBirth != "" {
		b.WriteString(", born ")
		b.WriteString(m.DateOfBirth)
	}
	b.WriteString(".")
	if d := strings.TrimSpace(m.Description); d != "" {
		b.WriteString(" ")
		b.WriteString(d)
	}
	return b.String()
}
