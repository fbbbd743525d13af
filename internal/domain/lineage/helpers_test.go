package lineage

import (
	"fmt"
	"testing"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/stretchr/testify/require"
)

// sequentialIDs returns an id generator yielding prefix1, prefix2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func person(id, name string, gender entities.Gender) *entities.Member {
	return &entities.Member{ID: id, Name: name, Surname: "Stone", Gender: gender}
}

func newTestStore(t *testing.T, members ...*entities.Member) *Store {
	t.Helper()
	s, err := NewStore(members)
	require.NoError(t, err)
	return s
}

// relate writes a reciprocal edge pair directly, bypassing closure.
func relate(t *testing.T, s *Store, a string, list entities.ListKind, b string, rt entities.RelationType) {
	t.Helper()
	_, err := NewApplicator(s).ApplyBatch(Link(a, list, b, rt))
	require.NoError(t, err)
}

func mustGet(t *testing.T, s *Store, id string) *entities.Member {
	t.Helper()
	m, err := s.Get(id)
	require.NoError(t, err)
	return m
}

func rel(id string, rt entities.RelationType) entities.Relation {
	return entities.Relation{ID: id, Type: rt}
}

func requireConsistent(t *testing.T, s *Store) {
	t.Helper()
	require.Empty(t, Validate(s.Members()))
}

func snapshot(s *Store) []*entities.Member {
	members := s.Members()
	out := make([]*entities.Member, len(members))
	for i, m := range members {
		out[i] = m.Clone()
	}
	return out
}
