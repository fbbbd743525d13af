package lineage

import (
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

// Edge is one directed relation to add: MemberID gains Relation in List.
type Edge struct {
	MemberID string
	List     entities.ListKind
	Relation entities.Relation
}

// Link returns the edge from a to b in list and its reciprocal, both typed t.
func Link(a string, list entities.ListKind, b string, t entities.RelationType) []Edge {
	return []Edge{
		{MemberID: a, List: list, Relation: entities.Relation{ID: b, Type: t}},
		{MemberID: b, List: list.Mirror(), Relation: entities.Relation{ID: a, Type: t}},
	}
}

// Applicator writes edges into a store, skipping edges whose target is
// already present in the list.
type Applicator struct {
	store *Store
}

// NewApplicator creates an Applicator over store.
func NewApplicator(store *Store) *Applicator {
	return &Applicator{store: store}
}

// Add applies a single edge. It reports whether the list changed.
func (a *Applicator) Add(e Edge) (bool, error) {
	if err := a.check(e); err != nil {
		return false, err
	}
	m, _ := a.store.Lookup(e.MemberID)
	return m.AddRelation(e.List, e.Relation), nil
}

// ApplyBatch applies edges in order. Every edge is checked before the first
// one is written, so a failing batch leaves the store untouched. It returns
// the ids of members whose lists changed, in first-change order.
func (a *Applicator) ApplyBatch(edges []Edge) ([]string, error) {
	for _, e := range edges {
		if err := a.check(e); err != nil {
			return nil, err
		}
	}

	var changed []string
	seen := make(map[string]bool)
	for _, e := range edges {
		m, _ := a.store.Lookup(e.MemberID)
		if m.AddRelation(e.List, e.Relation) && !seen[e.MemberID] {
			seen[e.MemberID] = true
			changed = append(changed, e.MemberID)
		}
	}
	return changed, nil
}

func (a *Applicator) check(e Edge) error {
	if !e.List.Valid() {
		return fmt.Errorf("%w: unknown relation list %q", entities.ErrInvalidRequest, e.List)
	}
	if e.MemberID == e.Relation.ID {
		return fmt.Errorf("%w: member %s cannot be related to itself", entities.ErrInvalidRequest, e.MemberID)
	}
	if !e.List.Allows(e.Relation.Type) {
		return fmt.Errorf("%w: relation type %q is not allowed in %s", entities.ErrInvalidRequest, e.Relation.Type, e.List)
	}
	if !a.store.Has(e.MemberID) {
		return fmt.Errorf("%w: member %s", entities.ErrNotFound, e.MemberID)
	}
	if !a.store.Has(e.Relation.ID) {
		return fmt.Errorf("%w: member %s", entities.ErrNotFound, e.Relation.ID)
	}
	return nil
}
