package entities

import "time"

// Audit actions written by the services.
const (
	ActionTreeCreated   = "tree_created"
	ActionTreeImported  = "tree_imported"
	ActionMemberCreated = "member_created"
	ActionMemberUpdated = "member_updated"
	ActionMemberRemoved = "member_removed"
	ActionRelationAdded = "relation_added"
)

// AuditEntry represents a logged action against a tree.
type AuditEntry struct {
	ID        int64          `json:"id"`
	TreeID    string         `json:"tree_id"`
	Action    string         `json:"action"`
	MemberID  string         `json:"member_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
