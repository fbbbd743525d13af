package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

func TestTreeService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("empty tree", func(t *testing.T) {
		env := newTestEnv(t, MemberOptions{})

		tree, err := env.trees.Create(ctx, "  Reed family ", nil)
		require.NoError(t, err)

		assert.NotEmpty(t, tree.ID)
		assert.Equal(t, "Reed family", tree.Name)
		assert.NotNil(t, tree.Members)
		assert.False(t, tree.CreatedAt.IsZero())

		stored, err := env.trees.Get(ctx, tree.ID)
		require.NoError(t, err)
		assert.Equal(t, "Reed family", stored.Name)

		require.Len(t, env.repo.Audit, 1)
		assert.Equal(t, entities.ActionTreeCreated, env.repo.Audit[0].Action)
	})

	t.Run("with consistent members", func(t *testing.T) {
		env := newTestEnv(t, MemberOptions{})
		a := person("a", "Ann", entities.GenderFemale)
		b := person("b", "Ben", entities.GenderMale)
		a.Children = []entities.Relation{rel("b", entities.RelationAdopted)}
		b.Parents = []entities.Relation{rel("a", entities.RelationAdopted)}

		tree, err := env.trees.Create(ctx, "Reed", []*entities.Member{a, b})
		require.NoError(t, err)
		assert.Len(t, tree.Members, 2)
		assert.NotNil(t, tree.Members[0].Spouses)
		assert.Len(t, env.index.Docs, 2)
	})

	t.Run("refuses inconsistent members", func(t *testing.T) {
		env := newTestEnv(t, MemberOptions{})
		a := person("a", "Ann", entities.GenderFemale)
		a.Children = []entities.Relation{rel("b", entities.RelationBlood)}

		_, err := env.trees.Create(ctx, "Reed", []*entities.Member{a, person("b", "Ben", entities.GenderMale)})
		require.ErrorIs(t, err, entities.ErrInvalidRequest)
		assert.Contains(t, err.Error(), "1 integrity violations")
		assert.Empty(t, env.repo.Trees)
	})

	t.Run("validation errors", func(t *testing.T) {
		env := newTestEnv(t, MemberOptions{})
		tests := []struct {
			name    string
			tree    string
			members []*entities.Member
		}{
			{"empty name", "", nil},
			{"member without id", "Reed", []*entities.Member{{Name: "Ann"}}},
			{"bad gender", "Reed", []*entities.Member{{ID: "a", Gender: "other"}}},
			{"duplicate ids", "Reed", []*entities.Member{{ID: "a"}, {ID: "a"}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.trees.Create(ctx, tt.tree, tt.members)
				require.ErrorIs(t, err, entities.ErrInvalidRequest)
			})
		}
	})
}

func TestTreeService_GetListDelete(t *testing.T) {
	env := newTestEnv(t, MemberOptions{})
	ctx := context.Background()

	first, err := env.trees.Create(ctx, "First", nil)
	require.NoError(t, err)
	second, err := env.trees.Create(ctx, "Second", []*entities.Member{person("a", "Ann", entities.GenderFemale)})
	require.NoError(t, err)

	list, err := env.trees.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.trees.Get(ctx, "missing")
	require.ErrorIs(t, err, entities.ErrNotFound)

	require.NoError(t, env.trees.Delete(ctx, second.ID))
	assert.Equal(t, 1, env.index.DeleteTreeCallCount)
	assert.Empty(t, env.index.Docs)

	_, err = env.trees.Get(ctx, second.ID)
	require.ErrorIs(t, err, entities.ErrNotFound)
	require.ErrorIs(t, env.trees.Delete(ctx, second.ID), entities.ErrNotFound)

	list, err = env.trees.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestTreeService_History(t *testing.T) {
	env := newTestEnv(t, MemberOptions{})
	ctx := context.Background()

	tree, err := env.trees.Create(ctx, "Reed", nil)
	require.NoError(t, err)
	_, err = env.members.Create(ctx, tree.ID, entities.MemberFields{Name: "Ann"})
	require.NoError(t, err)

	entries, err := env.trees.History(ctx, tree.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entities.ActionMemberCreated, entries[0].Action)
	assert.Equal(t, entities.ActionTreeCreated, entries[1].Action)

	entries, err = env.trees.History(ctx, tree.ID, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = env.trees.History(ctx, "missing", 0)
	require.ErrorIs(t, err, entities.ErrNotFound)
}

func TestTreeService_WithoutSearch(t *testing.T) {
	env := newTestEnv(t, MemberOptions{})
	trees := NewTreeService(env.repo, NewTreeLocks(), nil, nil)
	ctx := context.Background()

	tree, err := trees.Create(ctx, "Reed", []*entities.Member{person("a", "Ann", entities.GenderFemale)})
	require.NoError(t, err)
	require.NoError(t, trees.Delete(ctx, tree.ID))
	assert.Empty(t, env.embedder.Texts)
}
