package ports

import (
	"context"
)

// MemberHit is one member search result.
type MemberHit struct {
	TreeID   string  `json:"treeId"`
	MemberID string  `json:"memberId"`
	Name     string  `json:"name"`
	Surname  string  `json:"surname"`
	Score    float32 `json:"score"`
}

// MemberDocument is the searchable form of a member.
type MemberDocument struct {
	TreeID    string
	MemberID  string
	Name      string
	Surname   string
	Text      string
	Embedding []float32
}

// MemberIndex stores member embeddings for similarity search.
type MemberIndex interface {
	// Upsert stores or replaces member documents.
	Upsert(ctx context.Context, docs []MemberDocument) error

	// Delete removes members of a tree from the index.
	Delete(ctx context.Context, treeID string, memberIDs []string) error

	// DeleteTree removes every member of a tree from the index.
	DeleteTree(ctx context.Context, treeID string) error

	// Search returns the members of a tree closest to the embedding.
	Search(ctx context.Context, treeID string, embedding []float32, limit int) ([]MemberHit, error)
}
