// Package lineage implements the family graph rules: member storage for one
// tree, relationship closure, edge application and integrity checks. It
// performs no I/O and never logs.
package lineage

import (
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

// Store holds the members of one tree keyed by id, remembering insertion
// order for serialization. A Store is not safe for concurrent use.
type Store struct {
	members map[string]*entities.Member
	order   []string
}

// NewStore builds a store over the given members. The members are owned by
// the store afterwards and are mutated in place.
func NewStore(members []*entities.Member) (*Store, error) {
	s := &Store{members: make(map[string]*entities.Member, len(members))}
	for _, m := range members {
		if err := s.Insert(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the member with the given id.
func (s *Store) Get(id string) (*entities.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", entities.ErrNotFound, id)
	}
	return m, nil
}

// Lookup returns the member with the given id and whether it exists.
func (s *Store) Lookup(id string) (*entities.Member, bool) {
	m, ok := s.members[id]
	return m, ok
}

// Has reports whether a member with the given id exists.
func (s *Store) Has(id string) bool {
	_, ok := s.members[id]
	return ok
}

// Insert adds a new member. Ids must be non-empty and unique.
func (s *Store) Insert(m *entities.Member) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("%w: member id is required", entities.ErrInvalidRequest)
	}
	if _, ok := s.members[m.ID]; ok {
		return fmt.Errorf("%w: duplicate member id %s", entities.ErrInvalidRequest, m.ID)
	}
	m.Normalize()
	s.members[m.ID] = m
	s.order = append(s.order, m.ID)
	return nil
}

// Delete removes the member with the given id. References held by other
// members are left alone; see RemoveMember.
func (s *Store) Delete(id string) error {
	if _, ok := s.members[id]; !ok {
		return fmt.Errorf("%w: member %s", entities.ErrNotFound, id)
	}
	delete(s.members, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Members returns all members in insertion order.
func (s *Store) Members() []*entities.Member {
	out := make([]*entities.Member, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.members[id])
	}
	return out
}

// Len returns the number of members.
func (s *Store) Len() int {
	return len(s.order)
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		members: make(map[string]*entities.Member, len(s.members)),
		order:   append([]string(nil), s.order...),
	}
	for id, m := range s.members {
		c.members[id] = m.Clone()
	}
	return c
}
