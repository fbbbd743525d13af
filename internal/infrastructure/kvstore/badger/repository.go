// Package badger provides a BadgerDB implementation of the TreeRepository
// interface for single-process deployments without SQL.
//
// Key layout:
//
//	tree/<treeID>                 tree record with member order
//	member/<treeID>/<memberID>    member JSON
//	audit/<treeID>/<seq>          audit entry JSON, seq zero-padded
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
)

const (
	treePrefix   = "tree/"
	memberPrefix = "member/"
	auditPrefix  = "audit/"
	auditSeqKey  = "meta/audit_seq"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// treeRecord is the stored form of a tree without its members.
type treeRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Order     []string  `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository implements ports.TreeRepository using BadgerDB.
type Repository struct {
	db       *badger.DB
	auditSeq *badger.Sequence
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewRepository opens a Badger database. logger may be nil to silence
// Badger's own logging.
func NewRepository(cfg config.BadgerConfig, logger *slog.Logger) (*Repository, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	seq, err := db.GetSequence([]byte(auditSeqKey), 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening audit sequence: %w", err)
	}

	return &Repository{db: db, auditSeq: seq}, nil
}

// Close releases the audit sequence and closes the database.
func (r *Repository) Close() error {
	if err := r.auditSeq.Release(); err != nil {
		r.db.Close()
		return fmt.Errorf("releasing audit sequence: %w", err)
	}
	return r.db.Close()
}

// EnsureSchema is a no-op; Badger needs no schema.
func (r *Repository) EnsureSchema(_ context.Context) error {
	return nil
}

func treeKey(treeID string) []byte {
	return []byte(treePrefix + treeID)
}

func memberKeyPrefix(treeID string) []byte {
	return []byte(memberPrefix + treeID + "/")
}

func memberKey(treeID, memberID string) []byte {
	return []byte(memberPrefix + treeID + "/" + memberID)
}

func auditKeyPrefix(treeID string) []byte {
	return []byte(auditPrefix + treeID + "/")
}

// SaveTree writes a full tree snapshot in one transaction.
func (r *Repository) SaveTree(ctx context.Context, tree *entities.Tree) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, memberKeyPrefix(tree.ID)); err != nil {
			return err
		}

		rec := treeRecord{
			ID:        tree.ID,
			Name:      tree.Name,
			Order:     make([]string, 0, len(tree.Members)),
			CreatedAt: tree.CreatedAt,
			UpdatedAt: tree.UpdatedAt,
		}
		for _, m := range tree.Members {
			if err := setJSON(txn, memberKey(tree.ID, m.ID), m); err != nil {
				return fmt.Errorf("saving member %s: %w", m.ID, err)
			}
			rec.Order = append(rec.Order, m.ID)
		}
		if err := setJSON(txn, treeKey(tree.ID), rec); err != nil {
			return fmt.Errorf("saving tree: %w", err)
		}
		return nil
	})
}

// SaveMembers upserts and deletes members of a tree in one transaction.
func (r *Repository) SaveMembers(ctx context.Context, treeID string, upserts []*entities.Member, deletedIDs []string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		rec, err := getTree(txn, treeID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
		}

		deleted := make(map[string]bool, len(deletedIDs))
		for _, id := range deletedIDs {
			if err := txn.Delete(memberKey(treeID, id)); err != nil {
				return fmt.Errorf("deleting member %s: %w", id, err)
			}
			deleted[id] = true
		}
		order := rec.Order[:0]
		present := make(map[string]bool, len(rec.Order))
		for _, id := range rec.Order {
			if !deleted[id] {
				order = append(order, id)
				present[id] = true
			}
		}

		for _, m := range upserts {
			if err := setJSON(txn, memberKey(treeID, m.ID), m); err != nil {
				return fmt.Errorf("saving member %s: %w", m.ID, err)
			}
			if !present[m.ID] {
				order = append(order, m.ID)
				present[m.ID] = true
			}
		}

		rec.Order = order
		rec.UpdatedAt = timeNow()
		if err := setJSON(txn, treeKey(treeID), rec); err != nil {
			return fmt.Errorf("saving tree: %w", err)
		}
		return nil
	})
}

// FindTree loads a tree with its members in stored order.
// Returns nil if no tree exists.
func (r *Repository) FindTree(ctx context.Context, treeID string) (*entities.Tree, error) {
	var tree *entities.Tree
	err := r.db.View(func(txn *badger.Txn) error {
		rec, err := getTree(txn, treeID)
		if err != nil || rec == nil {
			return err
		}

		tree = &entities.Tree{
			ID:        rec.ID,
			Name:      rec.Name,
			Members:   make([]*entities.Member, 0, len(rec.Order)),
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		}
		for _, id := range rec.Order {
			var m entities.Member
			found, err := getJSON(txn, memberKey(treeID, id), &m)
			if err != nil {
				return fmt.Errorf("reading member %s: %w", id, err)
			}
			if !found {
				continue
			}
			m.Normalize()
			tree.Members = append(tree.Members, &m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding tree: %w", err)
	}
	return tree, nil
}

// ListTrees returns summaries of all trees, oldest first.
func (r *Repository) ListTrees(ctx context.Context) ([]entities.TreeSummary, error) {
	summaries := []entities.TreeSummary{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(treePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec treeRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decoding tree %s: %w", it.Item().Key(), err)
			}
			summaries = append(summaries, entities.TreeSummary{
				ID:          rec.ID,
				Name:        rec.Name,
				MemberCount: len(rec.Order),
				CreatedAt:   rec.CreatedAt,
				UpdatedAt:   rec.UpdatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing trees: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// DeleteTree removes a tree, its members and its audit log.
func (r *Repository) DeleteTree(ctx context.Context, treeID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		rec, err := getTree(txn, treeID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
		}
		if err := deletePrefix(txn, memberKeyPrefix(treeID)); err != nil {
			return err
		}
		if err := deletePrefix(txn, auditKeyPrefix(treeID)); err != nil {
			return err
		}
		if err := txn.Delete(treeKey(treeID)); err != nil {
			return fmt.Errorf("deleting tree: %w", err)
		}
		return nil
	})
}

// LogAction appends an entry to the tree's audit log.
func (r *Repository) LogAction(ctx context.Context, treeID, action, memberID string, details map[string]any) error {
	seq, err := r.auditSeq.Next()
	if err != nil {
		return fmt.Errorf("allocating audit id: %w", err)
	}
	entry := entities.AuditEntry{
		ID:        int64(seq) + 1,
		TreeID:    treeID,
		Action:    action,
		MemberID:  memberID,
		Details:   details,
		CreatedAt: timeNow(),
	}
	key := []byte(fmt.Sprintf("%s%020d", auditKeyPrefix(treeID), entry.ID))

	err = r.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, entry)
	})
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog returns audit entries for a tree, newest first. A limit of
// zero or less returns every entry.
func (r *Repository) FindAuditLog(ctx context.Context, treeID string, limit int) ([]entities.AuditEntry, error) {
	entries := []entities.AuditEntry{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true // Newest first

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := auditKeyPrefix(treeID)
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var entry entities.AuditEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decoding audit entry: %w", err)
			}
			entries = append(entries, entry)
			if limit > 0 && len(entries) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}

func getTree(txn *badger.Txn, treeID string) (*treeRecord, error) {
	var rec treeRecord
	found, err := getJSON(txn, treeKey(treeID), &rec)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func getJSON(txn *badger.Txn, key []byte, v any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	return txn.Set(key, data)
}

// deletePrefix removes every key with the given prefix.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	var keys [][]byte
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	return nil
}
