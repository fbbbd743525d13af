package lineage

import (
	"testing"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(members []*entities.Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}

func TestEngine_ParentThenSibling(t *testing.T) {
	s := newTestStore(t, person("A", "Adam", entities.GenderMale))
	engine := NewEngine(sequentialIDs("m"))

	res, err := engine.Apply(s, Request{FocusID: "A", Mode: entities.ModeParent, Type: entities.RelationBlood})
	require.NoError(t, err)
	require.Equal(t, "m1", res.CreatedID)
	assert.Equal(t, []string{"A", "m1"}, ids(res.Updated))

	b := mustGet(t, s, "m1")
	assert.Equal(t, entities.GenderMale, b.Gender)
	assert.Equal(t, "Adam's parent", b.Name)
	assert.Equal(t, "Stone", b.Surname)
	assert.Equal(t, []entities.Relation{rel("m1", entities.RelationBlood)}, mustGet(t, s, "A").Parents)
	assert.Equal(t, []entities.Relation{rel("A", entities.RelationBlood)}, b.Children)

	res, err = engine.Apply(s, Request{FocusID: "A", Mode: entities.ModeSibling, Type: entities.RelationBlood})
	require.NoError(t, err)
	require.Equal(t, "m2", res.CreatedID)
	assert.Equal(t, []string{"A", "m2", "m1"}, ids(res.Updated))

	a := mustGet(t, s, "A")
	c := mustGet(t, s, "m2")
	assert.Equal(t, []entities.Relation{rel("m2", entities.RelationBlood)}, a.Siblings)
	assert.Equal(t, []entities.Relation{rel("A", entities.RelationBlood)}, c.Siblings)
	assert.Equal(t, []entities.Relation{rel("m1", entities.RelationBlood)}, c.Parents)
	assert.Equal(t, []entities.Relation{rel("A", entities.RelationBlood), rel("m2", entities.RelationBlood)}, b.Children)
	requireConsistent(t, s)
}

func TestEngine_SiblingClosure(t *testing.T) {
	s := newTestStore(t,
		person("F", "Finn", entities.GenderMale),
		person("S1", "Sara", entities.GenderFemale),
		person("S2", "Sam", entities.GenderMale),
		person("P1", "Paul", entities.GenderMale),
		person("P2", "Pia", entities.GenderFemale),
	)
	relate(t, s, "F", entities.ListSiblings, "S1", entities.RelationBlood)
	relate(t, s, "F", entities.ListParents, "P1", entities.RelationBlood)
	relate(t, s, "F", entities.ListParents, "P2", entities.RelationAdopted)

	res, err := NewEngine(nil).Apply(s, Request{
		FocusID:         "F",
		Mode:            entities.ModeSibling,
		Type:            entities.RelationBlood,
		RelatedMemberID: "S2",
	})
	require.NoError(t, err)
	assert.Empty(t, res.CreatedID)
	assert.ElementsMatch(t, []string{"F", "S2", "P1", "P2", "S1"}, ids(res.Updated))

	s2 := mustGet(t, s, "S2")
	assert.Equal(t, []entities.Relation{rel("P1", entities.RelationBlood), rel("P2", entities.RelationAdopted)}, s2.Parents)
	assert.Equal(t, []entities.Relation{rel("F", entities.RelationBlood), rel("S1", entities.RelationBlood)}, s2.Siblings)

	s1 := mustGet(t, s, "S1")
	_, ok := s1.FindRelation(entities.ListSiblings, "S2")
	assert.True(t, ok)
	assert.Empty(t, s1.Parents, "siblings of focus do not gain parents in sibling mode")
	requireConsistent(t, s)
}

func TestEngine_ParentDerivesSiblingTypes(t *testing.T) {
	tests := []struct {
		name        string
		siblingType entities.RelationType
		parentType  entities.RelationType
		expected    entities.RelationType
	}{
		{"half sibling blood parent", entities.RelationHalf, entities.RelationBlood, entities.RelationAdopted},
		{"half sibling adopted parent", entities.RelationHalf, entities.RelationAdopted, entities.RelationBlood},
		{"blood sibling blood parent", entities.RelationBlood, entities.RelationBlood, entities.RelationBlood},
		{"blood sibling adopted parent", entities.RelationBlood, entities.RelationAdopted, entities.RelationAdopted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, person("F", "Finn", entities.GenderMale), person("S", "Sue", entities.GenderFemale))
			relate(t, s, "F", entities.ListSiblings, "S", tt.siblingType)

			res, err := NewEngine(sequentialIDs("p")).Apply(s, Request{FocusID: "F", Mode: entities.ModeParent, Type: tt.parentType})
			require.NoError(t, err)

			parent, ok := mustGet(t, s, "S").FindRelation(entities.ListParents, res.CreatedID)
			require.True(t, ok)
			assert.Equal(t, tt.expected, parent.Type)
			focusParent, _ := mustGet(t, s, "F").FindRelation(entities.ListParents, res.CreatedID)
			assert.Equal(t, tt.parentType, focusParent.Type)
			requireConsistent(t, s)
		})
	}
}

func TestEngine_ParentKeepsExistingSiblingEdge(t *testing.T) {
	s := newTestStore(t,
		person("F", "Finn", entities.GenderMale),
		person("S", "Sue", entities.GenderFemale),
		person("P", "Pat", entities.GenderMale),
	)
	relate(t, s, "F", entities.ListSiblings, "S", entities.RelationHalf)
	relate(t, s, "S", entities.ListParents, "P", entities.RelationBlood)

	_, err := NewEngine(nil).Apply(s, Request{FocusID: "F", Mode: entities.ModeParent, Type: entities.RelationBlood, RelatedMemberID: "P"})
	require.NoError(t, err)

	assert.Equal(t, []entities.Relation{rel("P", entities.RelationBlood)}, mustGet(t, s, "S").Parents)
	requireConsistent(t, s)
}

func TestEngine_SpouseChildSplit(t *testing.T) {
	setup := func(t *testing.T) *Store {
		s := newTestStore(t,
			person("F", "Finn", entities.GenderMale),
			person("C1", "Cal", entities.GenderMale),
			person("C2", "Cleo", entities.GenderFemale),
			person("C3", "Cora", entities.GenderFemale),
		)
		for _, c := range []string{"C1", "C2", "C3"} {
			relate(t, s, "F", entities.ListChildren, c, entities.RelationBlood)
		}
		return s
	}

	t.Run("selected children are blood, others adopted", func(t *testing.T) {
		s := setup(t)
		res, err := NewEngine(sequentialIDs("sp")).Apply(s, Request{
			FocusID:           "F",
			Mode:              entities.ModeSpouse,
			Type:              entities.RelationMarried,
			ChildrenForSpouse: []string{"C1"},
		})
		require.NoError(t, err)

		sp := mustGet(t, s, res.CreatedID)
		assert.Equal(t, entities.GenderFemale, sp.Gender)
		assert.Equal(t, "Finn's spouse", sp.Name)
		assert.Empty(t, sp.Surname)
		assert.Equal(t, []entities.Relation{rel("F", entities.RelationMarried)}, sp.Spouses)
		assert.Equal(t, []entities.Relation{
			rel("C1", entities.RelationBlood),
			rel("C2", entities.RelationAdopted),
			rel("C3", entities.RelationAdopted),
		}, sp.Children)

		c2 := mustGet(t, s, "C2")
		assert.Equal(t, []entities.Relation{rel("F", entities.RelationBlood), rel(res.CreatedID, entities.RelationAdopted)}, c2.Parents)
		requireConsistent(t, s)
	})

	t.Run("omitted selection links no children", func(t *testing.T) {
		s := setup(t)
		res, err := NewEngine(sequentialIDs("sp")).Apply(s, Request{FocusID: "F", Mode: entities.ModeSpouse, Type: entities.RelationDivorced})
		require.NoError(t, err)

		sp := mustGet(t, s, res.CreatedID)
		assert.Empty(t, sp.Children)
		assert.Len(t, mustGet(t, s, "C1").Parents, 1)
		assert.Equal(t, []string{"F", res.CreatedID}, ids(res.Updated))
	})

	t.Run("empty selection adopts every child", func(t *testing.T) {
		s := setup(t)
		res, err := NewEngine(sequentialIDs("sp")).Apply(s, Request{
			FocusID:           "F",
			Mode:              entities.ModeSpouse,
			Type:              entities.RelationMarried,
			ChildrenForSpouse: []string{},
		})
		require.NoError(t, err)

		for _, r := range mustGet(t, s, res.CreatedID).Children {
			assert.Equal(t, entities.RelationAdopted, r.Type, r.ID)
		}
		assert.Len(t, mustGet(t, s, res.CreatedID).Children, 3)
	})

	t.Run("selection must name children of focus", func(t *testing.T) {
		s := setup(t)
		before := snapshot(s)
		_, err := NewEngine(nil).Apply(s, Request{
			FocusID:           "F",
			Mode:              entities.ModeSpouse,
			Type:              entities.RelationMarried,
			ChildrenForSpouse: []string{"C1", "stranger"},
		})
		require.ErrorIs(t, err, entities.ErrInvalidRequest)
		assert.Equal(t, before, snapshot(s))
	})
}

func TestEngine_ChildWithSpouse(t *testing.T) {
	setup := func(t *testing.T) *Store {
		s := newTestStore(t, person("F", "Finn", entities.GenderMale), person("W", "Wren", entities.GenderFemale))
		relate(t, s, "F", entities.ListSpouses, "W", entities.RelationMarried)
		return s
	}

	t.Run("spouse gains blood link", func(t *testing.T) {
		s := setup(t)
		res, err := NewEngine(sequentialIDs("c")).Apply(s, Request{
			FocusID:          "F",
			Mode:             entities.ModeChild,
			Type:             entities.RelationAdopted,
			SpouseIDForChild: "W",
		})
		require.NoError(t, err)

		child := mustGet(t, s, res.CreatedID)
		assert.Equal(t, []entities.Relation{rel("F", entities.RelationAdopted), rel("W", entities.RelationBlood)}, child.Parents)
		assert.Equal(t, []entities.Relation{rel(res.CreatedID, entities.RelationBlood)}, mustGet(t, s, "W").Children)
		assert.Equal(t, []string{"F", res.CreatedID, "W"}, ids(res.Updated))
		requireConsistent(t, s)
	})

	t.Run("none skips spouse", func(t *testing.T) {
		s := setup(t)
		res, err := NewEngine(sequentialIDs("c")).Apply(s, Request{
			FocusID:          "F",
			Mode:             entities.ModeChild,
			Type:             entities.RelationBlood,
			SpouseIDForChild: NoSpouse,
		})
		require.NoError(t, err)
		assert.Len(t, mustGet(t, s, res.CreatedID).Parents, 1)
		assert.Empty(t, mustGet(t, s, "W").Children)
	})

	t.Run("unknown spouse", func(t *testing.T) {
		s := setup(t)
		_, err := NewEngine(nil).Apply(s, Request{
			FocusID:          "F",
			Mode:             entities.ModeChild,
			Type:             entities.RelationBlood,
			SpouseIDForChild: "ghost",
		})
		require.ErrorIs(t, err, entities.ErrNotFound)
		assert.Equal(t, 2, s.Len(), "no member is created on failure")
	})
}

func TestEngine_Idempotent(t *testing.T) {
	s := newTestStore(t,
		person("F", "Finn", entities.GenderMale),
		person("S1", "Sara", entities.GenderFemale),
		person("S2", "Sam", entities.GenderMale),
		person("P", "Pat", entities.GenderMale),
	)
	relate(t, s, "F", entities.ListSiblings, "S1", entities.RelationBlood)
	relate(t, s, "F", entities.ListParents, "P", entities.RelationBlood)

	req := Request{FocusID: "F", Mode: entities.ModeSibling, Type: entities.RelationBlood, RelatedMemberID: "S2"}
	engine := NewEngine(nil)

	_, err := engine.Apply(s, req)
	require.NoError(t, err)
	once := snapshot(s)

	_, err = engine.Apply(s, req)
	require.NoError(t, err)
	assert.Equal(t, once, snapshot(s))
}

func TestEngine_DoesNotChangeExistingType(t *testing.T) {
	s := newTestStore(t, person("F", "Finn", entities.GenderMale), person("S", "Sue", entities.GenderFemale))
	relate(t, s, "F", entities.ListSiblings, "S", entities.RelationHalf)

	_, err := NewEngine(nil).Apply(s, Request{FocusID: "F", Mode: entities.ModeSibling, Type: entities.RelationBlood, RelatedMemberID: "S"})
	require.NoError(t, err)
	assert.Equal(t, []entities.Relation{rel("S", entities.RelationHalf)}, mustGet(t, s, "F").Siblings)
}

func TestEngine_AllowsThirdBloodParent(t *testing.T) {
	s := newTestStore(t, person("F", "Finn", entities.GenderMale))
	engine := NewEngine(sequentialIDs("p"))
	for i := 0; i < 3; i++ {
		_, err := engine.Apply(s, Request{FocusID: "F", Mode: entities.ModeParent, Type: entities.RelationBlood})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mustGet(t, s, "F").BloodParentCount())
}

func TestEngine_NewMemberDefaults(t *testing.T) {
	t.Run("parent gender opposes first existing parent", func(t *testing.T) {
		s := newTestStore(t, person("F", "Finn", entities.GenderMale), person("M", "Max", entities.GenderMale))
		relate(t, s, "F", entities.ListParents, "M", entities.RelationBlood)

		res, err := NewEngine(sequentialIDs("n")).Apply(s, Request{FocusID: "F", Mode: entities.ModeParent, Type: entities.RelationBlood})
		require.NoError(t, err)
		assert.Equal(t, entities.GenderFemale, mustGet(t, s, res.CreatedID).Gender)
	})

	t.Run("explicit fields win", func(t *testing.T) {
		s := newTestStore(t, person("F", "Finn", entities.GenderMale))

		res, err := NewEngine(sequentialIDs("n")).Apply(s, Request{
			FocusID: "F",
			Mode:    entities.ModeChild,
			Type:    entities.RelationBlood,
			NewMember: &entities.MemberFields{
				Name:        "Ivy",
				Gender:      entities.GenderFemale,
				DateOfBirth: "2001-02-03",
			},
		})
		require.NoError(t, err)

		child := mustGet(t, s, res.CreatedID)
		assert.Equal(t, "Ivy", child.Name)
		assert.Equal(t, "Stone", child.Surname)
		assert.Equal(t, entities.GenderFemale, child.Gender)
		assert.Equal(t, "2001-02-03", child.DateOfBirth)
	})

	t.Run("invalid fields are rejected", func(t *testing.T) {
		s := newTestStore(t, person("F", "Finn", entities.GenderMale))

		_, err := NewEngine(nil).Apply(s, Request{
			FocusID:   "F",
			Mode:      entities.ModeChild,
			Type:      entities.RelationBlood,
			NewMember: &entities.MemberFields{DateOfBirth: "03/02/2001"},
		})
		require.ErrorIs(t, err, entities.ErrInvalidRequest)
		assert.Equal(t, 1, s.Len())
	})
}

func TestEngine_RequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"missing focus", Request{FocusID: "ghost", Mode: entities.ModeParent, Type: entities.RelationBlood}, entities.ErrNotFound},
		{"missing related", Request{FocusID: "F", Mode: entities.ModeSibling, Type: entities.RelationBlood, RelatedMemberID: "ghost"}, entities.ErrNotFound},
		{"self relation", Request{FocusID: "F", Mode: entities.ModeSpouse, Type: entities.RelationMarried, RelatedMemberID: "F"}, entities.ErrInvalidRequest},
		{"type illegal for mode", Request{FocusID: "F", Mode: entities.ModeParent, Type: entities.RelationMarried}, entities.ErrInvalidRequest},
		{"half parent", Request{FocusID: "F", Mode: entities.ModeParent, Type: entities.RelationHalf}, entities.ErrInvalidRequest},
		{"missing type", Request{FocusID: "F", Mode: entities.ModeSpouse}, entities.ErrInvalidRequest},
		{"unknown mode", Request{FocusID: "F", Mode: "cousin", Type: entities.RelationBlood}, entities.ErrInvalidRequest},
		{"spouse children outside spouse mode", Request{FocusID: "F", Mode: entities.ModeParent, Type: entities.RelationBlood, ChildrenForSpouse: []string{}}, entities.ErrInvalidRequest},
		{"spouse for child outside child mode", Request{FocusID: "F", Mode: entities.ModeSibling, Type: entities.RelationBlood, SpouseIDForChild: "O"}, entities.ErrInvalidRequest},
		{"related id with new member", Request{FocusID: "F", Mode: entities.ModeSibling, Type: entities.RelationBlood, RelatedMemberID: "O", NewMember: &entities.MemberFields{}}, entities.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, person("F", "Finn", entities.GenderMale), person("O", "Otto", entities.GenderMale))
			before := snapshot(s)

			_, err := NewEngine(nil).Apply(s, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, snapshot(s))
		})
	}
}

func TestEngine_PartialGraph(t *testing.T) {
	tests := []struct {
		name string
		list entities.ListKind
		req  Request
	}{
		{"parent mode with dangling sibling", entities.ListSiblings, Request{Mode: entities.ModeParent, Type: entities.RelationBlood}},
		{"sibling mode with dangling parent", entities.ListParents, Request{Mode: entities.ModeSibling, Type: entities.RelationBlood}},
		{"sibling mode with dangling sibling", entities.ListSiblings, Request{Mode: entities.ModeSibling, Type: entities.RelationHalf}},
		{"spouse mode with dangling child", entities.ListChildren, Request{Mode: entities.ModeSpouse, Type: entities.RelationMarried, ChildrenForSpouse: []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			focus := person("F", "Finn", entities.GenderMale)
			s := newTestStore(t, focus)
			focus.AddRelation(tt.list, rel("ghost", entities.RelationBlood))
			before := snapshot(s)

			req := tt.req
			req.FocusID = "F"
			_, err := NewEngine(sequentialIDs("n")).Apply(s, req)
			require.ErrorIs(t, err, entities.ErrPartialGraph)
			assert.Equal(t, before, snapshot(s))
			assert.False(t, s.Has("n1"))
		})
	}
}

func TestEngine_PlanDoesNotMutate(t *testing.T) {
	s := newTestStore(t, person("F", "Finn", entities.GenderMale), person("S", "Sue", entities.GenderFemale))
	relate(t, s, "F", entities.ListSiblings, "S", entities.RelationBlood)
	before := snapshot(s)

	plan, err := NewEngine(sequentialIDs("n")).Plan(s, Request{FocusID: "F", Mode: entities.ModeParent, Type: entities.RelationAdopted})
	require.NoError(t, err)
	require.NotNil(t, plan.Created)
	assert.Equal(t, "n1", plan.RelatedID)
	assert.Len(t, plan.Edges, 4)
	assert.Equal(t, before, snapshot(s))
}

func TestEngine_CreateMember(t *testing.T) {
	s := newTestStore(t)
	engine := NewEngine(sequentialIDs("m"))

	m, err := engine.CreateMember(s, entities.MemberFields{Name: "Root"})
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, entities.GenderMale, m.Gender)
	assert.Empty(t, m.Parents)
	assert.True(t, s.Has("m1"))

	_, err = engine.CreateMember(s, entities.MemberFields{Gender: "other"})
	require.ErrorIs(t, err, entities.ErrInvalidRequest)
	assert.Equal(t, 1, s.Len())
}
