package lineage

import (
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

// CreateMember inserts a standalone member with empty relation lists.
// Gender defaults to male.
func (e *Engine) CreateMember(store *Store, fields entities.MemberFields) (*entities.Member, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	m := &entities.Member{
		ID:          e.newID(),
		Name:        fields.Name,
		Surname:     fields.Surname,
		Gender:      fields.Gender,
		DateOfBirth: fields.DateOfBirth,
		Description: fields.Description,
	}
	if m.Gender == "" {
		m.Gender = entities.GenderMale
	}
	if err := store.Insert(m); err != nil {
		return nil, fmt.Errorf("inserting member: %w", err)
	}
	return m.Clone(), nil
}

// UpdateMember merges patch into the member's scalar fields. Relation lists
// are never touched.
func UpdateMember(store *Store, id string, patch entities.MemberPatch) (*entities.Member, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	m, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	patch.ApplyTo(m)
	return m.Clone(), nil
}

// RemoveMember deletes a member after stripping every reference to it from
// the rest of the tree. It returns copies of the members that lost a
// reference.
func RemoveMember(store *Store, id string) ([]*entities.Member, error) {
	if !store.Has(id) {
		return nil, fmt.Errorf("%w: member %s", entities.ErrNotFound, id)
	}

	var changed []*entities.Member
	for _, m := range store.Members() {
		if m.ID == id {
			continue
		}
		if m.RemoveRelationsTo(id) > 0 {
			changed = append(changed, m.Clone())
		}
	}
	if err := store.Delete(id); err != nil {
		return nil, err
	}
	return changed, nil
}
