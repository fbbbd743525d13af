package entities

import "time"

// Tree is a named family tree and its members in insertion order.
type Tree struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []*Member `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TreeSummary is the listing view of a tree.
type TreeSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Member returns the member with the given id, or nil.
func (t *Tree) Member(id string) *Member {
	for _, m := range t.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Summary returns the listing view of t.
func (t *Tree) Summary() TreeSummary {
	return TreeSummary{
		ID:          t.ID,
		Name:        t.Name,
		MemberCount: len(t.Members),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
