// Package sqlite provides a SQLite implementation of the TreeRepository interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.TreeRepository using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: pragmas apply per connection and ":memory:" databases
	// are private to the connection that created them.
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Trees
	CREATE TABLE IF NOT EXISTS trees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Members (scalar fields, ordered within a tree)
	CREATE TABLE IF NOT EXISTS members (
		tree_id TEXT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		surname TEXT NOT NULL,
		gender TEXT NOT NULL,
		date_of_birth TEXT,
		description TEXT,
		PRIMARY KEY (tree_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_members_position ON members(tree_id, position);

	-- Relations (one row per entry of a member's relation list)
	CREATE TABLE IF NOT EXISTS relations (
		tree_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		list TEXT NOT NULL,
		position INTEGER NOT NULL,
		related_id TEXT NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (tree_id, member_id, list, position),
		FOREIGN KEY (tree_id, member_id) REFERENCES members(tree_id, id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_relations_related ON relations(tree_id, related_id);

	-- Audit log (tracks all actions)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tree_id TEXT NOT NULL,
		action TEXT NOT NULL,
		member_id TEXT,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_tree ON audit_log(tree_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveTree writes a full tree snapshot in one transaction.
func (r *Repository) SaveTree(ctx context.Context, tree *entities.Tree) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trees (id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				updated_at = excluded.updated_at
		`, tree.ID, tree.Name, tree.CreatedAt, tree.UpdatedAt)
		if err != nil {
			return fmt.Errorf("saving tree: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE tree_id = ?`, tree.ID); err != nil {
			return fmt.Errorf("clearing relations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE tree_id = ?`, tree.ID); err != nil {
			return fmt.Errorf("clearing members: %w", err)
		}

		for i, m := range tree.Members {
			if err := writeMember(ctx, tx, tree.ID, m, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveMembers upserts and deletes members of a tree in one transaction.
func (r *Repository) SaveMembers(ctx context.Context, treeID string, upserts []*entities.Member, deletedIDs []string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE trees SET updated_at = ? WHERE id = ?`, timeNow(), treeID)
		if err != nil {
			return fmt.Errorf("touching tree: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
		}

		for _, id := range deletedIDs {
			if err := deleteMember(ctx, tx, treeID, id); err != nil {
				return err
			}
		}

		for _, m := range upserts {
			position, err := memberPosition(ctx, tx, treeID, m.ID)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE tree_id = ? AND member_id = ?`, treeID, m.ID); err != nil {
				return fmt.Errorf("clearing relations of %s: %w", m.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE tree_id = ? AND id = ?`, treeID, m.ID); err != nil {
				return fmt.Errorf("replacing member %s: %w", m.ID, err)
			}
			if err := writeMember(ctx, tx, treeID, m, position); err != nil {
				return err
			}
		}
		return nil
	})
}

// memberPosition returns the stored position of a member, or the next free
// position for a new one.
func memberPosition(ctx context.Context, tx *sql.Tx, treeID, memberID string) (int, error) {
	var position int
	err := tx.QueryRowContext(ctx, `SELECT position FROM members WHERE tree_id = ? AND id = ?`, treeID, memberID).Scan(&position)
	if err == nil {
		return position, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("reading position of %s: %w", memberID, err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM members WHERE tree_id = ?`, treeID).Scan(&position); err != nil {
		return 0, fmt.Errorf("allocating position: %w", err)
	}
	return position, nil
}

func writeMember(ctx context.Context, tx *sql.Tx, treeID string, m *entities.Member, position int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO members (tree_id, id, position, name, surname, gender, date_of_birth, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, treeID, m.ID, position, m.Name, m.Surname, string(m.Gender), nullString(m.DateOfBirth), nullString(m.Description))
	if err != nil {
		return fmt.Errorf("saving member %s: %w", m.ID, err)
	}

	for _, list := range entities.AllLists {
		for i, rel := range m.Relations(list) {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO relations (tree_id, member_id, list, position, related_id, type)
				VALUES (?, ?, ?, ?, ?, ?)
			`, treeID, m.ID, string(list), i, rel.ID, string(rel.Type))
			if err != nil {
				return fmt.Errorf("saving %s of %s: %w", list, m.ID, err)
			}
		}
	}
	return nil
}

func deleteMember(ctx context.Context, tx *sql.Tx, treeID, memberID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE tree_id = ? AND member_id = ?`, treeID, memberID); err != nil {
		return fmt.Errorf("deleting relations of %s: %w", memberID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE tree_id = ? AND id = ?`, treeID, memberID); err != nil {
		return fmt.Errorf("deleting member %s: %w", memberID, err)
	}
	return nil
}

// FindTree loads a tree with its members in stored order.
// Returns nil if no tree exists.
func (r *Repository) FindTree(ctx context.Context, treeID string) (*entities.Tree, error) {
	var tree entities.Tree
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM trees WHERE id = ?
	`, treeID).Scan(&tree.ID, &tree.Name, &tree.CreatedAt, &tree.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning tree: %w", err)
	}

	members, byID, err := r.findMembers(ctx, treeID)
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, treeID, byID); err != nil {
		return nil, err
	}
	for _, m := range members {
		m.Normalize()
	}
	tree.Members = members
	return &tree, nil
}

func (r *Repository) findMembers(ctx context.Context, treeID string) ([]*entities.Member, map[string]*entities.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, surname, gender, date_of_birth, description
		FROM members
		WHERE tree_id = ?
		ORDER BY position
	`, treeID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	members := []*entities.Member{}
	byID := make(map[string]*entities.Member)
	for rows.Next() {
		var m entities.Member
		var gender string
		var dob, description sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Surname, &gender, &dob, &description); err != nil {
			return nil, nil, fmt.Errorf("scanning member: %w", err)
		}
		m.Gender = entities.Gender(gender)
		m.DateOfBirth = dob.String
		m.Description = description.String
		members = append(members, &m)
		byID[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating members: %w", err)
	}
	return members, byID, nil
}

func (r *Repository) attachRelations(ctx context.Context, treeID string, byID map[string]*entities.Member) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member_id, list, related_id, type
		FROM relations
		WHERE tree_id = ?
		ORDER BY member_id, list, position
	`, treeID)
	if err != nil {
		return fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID, list, relatedID, relType string
		if err := rows.Scan(&memberID, &list, &relatedID, &relType); err != nil {
			return fmt.Errorf("scanning relation: %w", err)
		}
		m, ok := byID[memberID]
		if !ok {
			continue
		}
		rel := entities.Relation{ID: relatedID, Type: entities.RelationType(relType)}
		switch entities.ListKind(list) {
		case entities.ListParents:
			m.Parents = append(m.Parents, rel)
		case entities.ListChildren:
			m.Children = append(m.Children, rel)
		case entities.ListSiblings:
			m.Siblings = append(m.Siblings, rel)
		case entities.ListSpouses:
			m.Spouses = append(m.Spouses, rel)
		default:
			return fmt.Errorf("unknown relation list %q for member %s", list, memberID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating relations: %w", err)
	}
	return nil
}

// ListTrees returns summaries of all trees, oldest first.
func (r *Repository) ListTrees(ctx context.Context) ([]entities.TreeSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, t.updated_at, COUNT(m.id)
		FROM trees t
		LEFT JOIN members m ON m.tree_id = t.id
		GROUP BY t.id
		ORDER BY t.created_at, t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying trees: %w", err)
	}
	defer rows.Close()

	summaries := []entities.TreeSummary{}
	for rows.Next() {
		var s entities.TreeSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning tree: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trees: %w", err)
	}
	return summaries, nil
}

// DeleteTree removes a tree, its members and its audit log.
func (r *Repository) DeleteTree(ctx context.Context, treeID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, query := range []string{
			`DELETE FROM relations WHERE tree_id = ?`,
			`DELETE FROM members WHERE tree_id = ?`,
			`DELETE FROM audit_log WHERE tree_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, query, treeID); err != nil {
				return fmt.Errorf("deleting tree data: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM trees WHERE id = ?`, treeID)
		if err != nil {
			return fmt.Errorf("deleting tree: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking deleted rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
		}
		return nil
	})
}

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, treeID, action, memberID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT INTO audit_log (tree_id, action, member_id, details, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, treeID, action, nullString(memberID), detailsJSON, timeNow())
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog returns audit entries for a tree, newest first. A limit of
// zero or less returns every entry.
func (r *Repository) FindAuditLog(ctx context.Context, treeID string, limit int) ([]entities.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tree_id, action, member_id, details, created_at
		FROM audit_log
		WHERE tree_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, treeID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := []entities.AuditEntry{}
	for rows.Next() {
		var entry entities.AuditEntry
		var memberID, details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.TreeID, &entry.Action, &memberID, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entry.MemberID = memberID.String
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}
	return entries, nil
}

// inTx runs fn in a transaction, committing on success.
func (r *Repository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
