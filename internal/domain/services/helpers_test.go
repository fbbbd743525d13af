package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/mocks"
)

type testEnv struct {
	repo     *mocks.TreeRepository
	index    *mocks.MemberIndex
	embedder *mocks.Embedder
	search   *SearchService
	trees    *TreeService
	members  *MemberService
}

func newTestEnv(t *testing.T, opts MemberOptions) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     mocks.NewTreeRepository(),
		index:    mocks.NewMemberIndex(),
		embedder: &mocks.Embedder{EmbeddingResult: []float32{0.1, 0.2, 0.3}},
	}
	if opts.NewID == nil {
		opts.NewID = sequentialIDs("m")
	}
	locks := NewTreeLocks()
	env.search = NewSearchService(env.embedder, env.index, env.index, 3)
	env.trees = NewTreeService(env.repo, locks, env.search, nil)
	env.members = NewMemberService(env.repo, locks, env.search, nil, opts)
	return env
}

// seed stores a tree directly in the repository, bypassing validation.
func (e *testEnv) seed(t *testing.T, id string, members ...*entities.Member) {
	t.Helper()
	for _, m := range members {
		m.Normalize()
	}
	require.NoError(t, e.repo.SaveTree(context.Background(), &entities.Tree{ID: id, Name: id, Members: members}))
}

func (e *testEnv) stored(t *testing.T, treeID, memberID string) *entities.Member {
	t.Helper()
	tree, err := e.repo.FindTree(context.Background(), treeID)
	require.NoError(t, err)
	require.NotNil(t, tree)
	m := tree.Member(memberID)
	require.NotNil(t, m, "member %s not stored", memberID)
	return m
}

// sequentialIDs is safe for concurrent use.
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func person(id, name string, gender entities.Gender) *entities.Member {
	return &entities.Member{ID: id, Name: name, Surname: "Reed", Gender: gender}
}

func rel(id string, t entities.RelationType) entities.Relation {
	return entities.Relation{ID: id, Type: t}
}

func ptr[T any](v T) *T {
	return &v
}
