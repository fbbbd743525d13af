package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/lineage"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
)

// MemberOptions tunes a MemberService.
type MemberOptions struct {
	// ValidateOnWrite refuses any write that introduces an integrity
	// violation the tree did not already have.
	ValidateOnWrite bool

	// NewID allocates member ids. Nil uses random UUIDs.
	NewID func() string
}

// ApplyOptions controls ApplyRelation.
type ApplyOptions struct {
	DryRun bool // Compute the result without saving
}

// ValidationReport is the outcome of checking a stored tree.
type ValidationReport struct {
	TreeID         string              `json:"treeId"`
	Members        int                 `json:"members"`
	Violations     []lineage.Violation `json:"violations"`
	AncestryCycles [][]string          `json:"ancestryCycles"`
}

// Valid reports whether the tree has no findings.
func (r *ValidationReport) Valid() bool {
	return len(r.Violations) == 0 && len(r.AncestryCycles) == 0
}

// MemberService runs member operations against stored trees. Each write
// loads the tree, applies one lineage operation, then persists only the
// members it touched.
type MemberService struct {
	repo   ports.TreeRepository
	locks  *TreeLocks
	search *SearchService
	engine *lineage.Engine
	guard  bool
	logger *slog.Logger
}

// NewMemberService creates a new MemberService. search may be nil.
func NewMemberService(
	repo ports.TreeRepository,
	locks *TreeLocks,
	search *SearchService,
	logger *slog.Logger,
	opts MemberOptions,
) *MemberService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MemberService{
		repo:   repo,
		locks:  locks,
		search: search,
		engine: lineage.NewEngine(opts.NewID),
		guard:  opts.ValidateOnWrite,
		logger: logger,
	}
}

// mutation is what a write produced and must persist.
type mutation struct {
	upserts  []*entities.Member
	deleted  []string
	action   string
	memberID string
	details  map[string]any
}

// Create adds a standalone member to a tree.
func (s *MemberService) Create(ctx context.Context, treeID string, fields entities.MemberFields) (*entities.Member, error) {
	var created *entities.Member
	err := s.write(ctx, treeID, func(store *lineage.Store) (*mutation, error) {
		m, err := s.engine.CreateMember(store, fields)
		if err != nil {
			return nil, err
		}
		created = m
		return &mutation{
			upserts:  []*entities.Member{m},
			action:   entities.ActionMemberCreated,
			memberID: m.ID,
			details:  map[string]any{"name": m.DisplayName()},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ApplyRelation adds a relationship around req.FocusID together with its
// closure.
func (s *MemberService) ApplyRelation(ctx context.Context, treeID string, req lineage.Request, opts ApplyOptions) (*lineage.Result, error) {
	var result *lineage.Result
	err := s.write(ctx, treeID, func(store *lineage.Store) (*mutation, error) {
		r, err := s.engine.Apply(store, req)
		if err != nil {
			return nil, err
		}
		result = r
		if opts.DryRun {
			return nil, nil
		}
		return &mutation{
			upserts:  r.Updated,
			action:   entities.ActionRelationAdded,
			memberID: req.FocusID,
			details: map[string]any{
				"mode":      string(req.Mode),
				"type":      string(req.Type),
				"relatedId": relatedID(req, r),
				"created":   r.CreatedID != "",
				"updated":   len(r.Updated),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func relatedID(req lineage.Request, r *lineage.Result) string {
	if r.CreatedID != "" {
		return r.CreatedID
	}
	return req.RelatedMemberID
}

// Update merges patch into a member's scalar fields.
func (s *MemberService) Update(ctx context.Context, treeID, memberID string, patch entities.MemberPatch) (*entities.Member, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", entities.ErrInvalidRequest)
	}
	var updated *entities.Member
	err := s.write(ctx, treeID, func(store *lineage.Store) (*mutation, error) {
		m, err := lineage.UpdateMember(store, memberID, patch)
		if err != nil {
			return nil, err
		}
		updated = m
		return &mutation{
			upserts:  []*entities.Member{m},
			action:   entities.ActionMemberUpdated,
			memberID: m.ID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove deletes a member and every reference to it. It returns the
// members that lost a reference.
func (s *MemberService) Remove(ctx context.Context, treeID, memberID string) ([]*entities.Member, error) {
	var changed []*entities.Member
	err := s.write(ctx, treeID, func(store *lineage.Store) (*mutation, error) {
		m, err := store.Get(memberID)
		if err != nil {
			return nil, err
		}
		name := m.DisplayName()
		changed, err = lineage.RemoveMember(store, memberID)
		if err != nil {
			return nil, err
		}
		return &mutation{
			upserts:  changed,
			deleted:  []string{memberID},
			action:   entities.ActionMemberRemoved,
			memberID: memberID,
			details:  map[string]any{"name": name, "updated": len(changed)},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// RelationOptions returns the relation types to offer when adding a
// relative of a member in the given mode.
func (s *MemberService) RelationOptions(ctx context.Context, treeID, memberID string, mode entities.Mode) ([]entities.RelationType, error) {
	store, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	m, err := store.Get(memberID)
	if err != nil {
		return nil, err
	}
	offered := entities.OfferedTypes(m, mode)
	if offered == nil {
		return nil, fmt.Errorf("%w: unsupported mode %q", entities.ErrInvalidRequest, mode)
	}
	return offered, nil
}

// Validate checks a stored tree and reports every finding.
func (s *MemberService) Validate(ctx context.Context, treeID string) (*ValidationReport, error) {
	store, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	members := store.Members()
	report := &ValidationReport{
		TreeID:         treeID,
		Members:        len(members),
		Violations:     lineage.Validate(members),
		AncestryCycles: lineage.AncestryCycles(members),
	}
	if report.Violations == nil {
		report.Violations = []lineage.Violation{}
	}
	if report.AncestryCycles == nil {
		report.AncestryCycles = [][]string{}
	}
	return report, nil
}

// Path returns the shortest relation chain between two members.
func (s *MemberService) Path(ctx context.Context, treeID, fromID, toID string) ([]lineage.Step, error) {
	store, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}
	return lineage.Path(store.Members(), fromID, toID)
}

// load reads a tree into a store.
func (s *MemberService) load(ctx context.Context, treeID string) (*lineage.Store, error) {
	tree, err := s.repo.FindTree(ctx, treeID)
	if err != nil {
		return nil, fmt.Errorf("finding tree: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: tree %s", entities.ErrNotFound, treeID)
	}
	store, err := lineage.NewStore(tree.Members)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tree %s: %v", entities.ErrPartialGraph, treeID, err)
	}
	return store, nil
}

// write runs fn on a fresh snapshot of the tree while holding its lock and
// persists the result. A nil mutation persists nothing.
func (s *MemberService) write(ctx context.Context, treeID string, fn func(*lineage.Store) (*mutation, error)) error {
	unlock := s.locks.Lock(treeID)
	defer unlock()

	store, err := s.load(ctx, treeID)
	if err != nil {
		return err
	}

	var before []lineage.Violation
	if s.guard {
		before = lineage.Validate(store.Members())
	}

	mut, err := fn(store)
	if err != nil {
		return err
	}
	if mut == nil {
		return nil
	}

	if s.guard {
		if introduced := newViolations(before, lineage.Validate(store.Members())); len(introduced) > 0 {
			return fmt.Errorf("%w: operation would introduce %d integrity violations, first: %s", entities.ErrPartialGraph, len(introduced), introduced[0])
		}
	}

	if err := s.repo.SaveMembers(ctx, treeID, mut.upserts, mut.deleted); err != nil {
		return fmt.Errorf("saving members: %w", err)
	}
	s.logger.InfoContext(ctx, "tree updated", "tree", treeID, "action", mut.action, "member", mut.memberID, "saved", len(mut.upserts), "deleted", len(mut.deleted))

	if err := s.repo.LogAction(ctx, treeID, mut.action, mut.memberID, mut.details); err != nil {
		s.logger.WarnContext(ctx, "writing audit entry failed", "tree", treeID, "error", err)
	}
	if err := s.search.IndexMembers(ctx, treeID, mut.upserts); err != nil {
		s.logger.WarnContext(ctx, "indexing members failed", "tree", treeID, "error", err)
	}
	if err := s.search.RemoveMembers(ctx, treeID, mut.deleted); err != nil {
		s.logger.WarnContext(ctx, "removing members from index failed", "tree", treeID, "error", err)
	}
	return nil
}

func newViolations(before, after []lineage.Violation) []lineage.Violation {
	known := make(map[lineage.Violation]bool, len(before))
	for _, v := range before {
		known[v] = true
	}
	var introduced []lineage.Violation
	for _, v := range after {
		if !known[v] {
			introduced = append(introduced, v)
		}
	}
	return introduced
}
