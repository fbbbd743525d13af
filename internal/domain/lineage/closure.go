package lineage

import (
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/google/uuid"
)

// NoSpouse is the sentinel accepted for Request.SpouseIDForChild meaning the
// new child belongs to the focus member only.
const NoSpouse = "none"

// Request describes one relationship to add around a focus member.
type Request struct {
	FocusID string
	Mode    entities.Mode
	Type    entities.RelationType

	// RelatedMemberID links to an existing member. When empty a new member
	// is created, seeded from NewMember if given.
	RelatedMemberID string
	NewMember       *entities.MemberFields

	// ChildrenForSpouse selects which of the focus member's children are
	// blood children of a new spouse; the rest become adopted. Nil skips
	// child linking entirely. Spouse mode only.
	ChildrenForSpouse []string

	// SpouseIDForChild also links the child to this member by blood.
	// Child mode only.
	SpouseIDForChild string
}

// Plan is the computed outcome of a request before it touches the store.
type Plan struct {
	Created   *entities.Member
	RelatedID string
	Edges     []Edge
}

// Result is what Apply returns to the caller.
type Result struct {
	// Updated holds copies of every touched member: focus, related member,
	// then any member changed by closure, in first-change order.
	Updated   []*entities.Member
	CreatedID string
}

// Engine computes and applies relationship closures.
type Engine struct {
	newID func() string
}

// NewEngine creates an Engine. A nil newID uses random UUIDs.
func NewEngine(newID func() string) *Engine {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{newID: newID}
}

// Apply computes the closure of req and writes it to store. Either every edge
// is applied or the store is left unchanged.
func (e *Engine) Apply(store *Store, req Request) (*Result, error) {
	plan, err := e.Plan(store, req)
	if err != nil {
		return nil, err
	}

	if plan.Created != nil {
		if err := store.Insert(plan.Created); err != nil {
			return nil, err
		}
	}

	changed, err := NewApplicator(store).ApplyBatch(plan.Edges)
	if err != nil {
		if plan.Created != nil {
			_ = store.Delete(plan.Created.ID)
		}
		return nil, err
	}

	touched := append([]string{req.FocusID, plan.RelatedID}, changed...)
	result := &Result{}
	seen := make(map[string]bool, len(touched))
	for _, id := range touched {
		if seen[id] {
			continue
		}
		seen[id] = true
		m, _ := store.Lookup(id)
		result.Updated = append(result.Updated, m.Clone())
	}
	if plan.Created != nil {
		result.CreatedID = plan.Created.ID
	}
	return result, nil
}

// Plan computes the member to create, if any, and every edge implied by req
// without mutating store.
func (e *Engine) Plan(store *Store, req Request) (*Plan, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	focus, err := store.Get(req.FocusID)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	if req.RelatedMemberID != "" {
		if req.RelatedMemberID == req.FocusID {
			return nil, fmt.Errorf("%w: member %s cannot be related to itself", entities.ErrInvalidRequest, req.FocusID)
		}
		if !store.Has(req.RelatedMemberID) {
			return nil, fmt.Errorf("%w: related member %s", entities.ErrNotFound, req.RelatedMemberID)
		}
		plan.RelatedID = req.RelatedMemberID
	} else {
		created, err := e.newRelative(store, focus, req.Mode, req.NewMember)
		if err != nil {
			return nil, err
		}
		plan.Created = created
		plan.RelatedID = created.ID
	}

	var edges []Edge
	switch req.Mode {
	case entities.ModeParent:
		edges, err = parentClosure(store, focus, plan.RelatedID, req.Type)
	case entities.ModeChild:
		edges, err = childClosure(store, focus, plan.RelatedID, req.Type, req.SpouseIDForChild)
	case entities.ModeSibling:
		edges, err = siblingClosure(store, focus, plan.RelatedID, req.Type)
	case entities.ModeSpouse:
		edges, err = spouseClosure(store, focus, plan.RelatedID, req.Type, req.ChildrenForSpouse)
	}
	if err != nil {
		return nil, err
	}
	plan.Edges = edges
	return plan, nil
}

func checkRequest(req Request) error {
	switch req.Mode {
	case entities.ModeParent, entities.ModeChild, entities.ModeSibling, entities.ModeSpouse:
	default:
		return fmt.Errorf("%w: unsupported mode %q", entities.ErrInvalidRequest, req.Mode)
	}
	if req.Type == "" {
		return fmt.Errorf("%w: relation type is required for %s mode", entities.ErrInvalidRequest, req.Mode)
	}
	if !req.Mode.Allows(req.Type) {
		return fmt.Errorf("%w: relation type %q is not valid for %s mode", entities.ErrInvalidRequest, req.Type, req.Mode)
	}
	if req.FocusID == "" {
		return fmt.Errorf("%w: focus member id is required", entities.ErrInvalidRequest)
	}
	if req.RelatedMemberID != "" && req.NewMember != nil {
		return fmt.Errorf("%w: related member id and new member fields are mutually exclusive", entities.ErrInvalidRequest)
	}
	if req.ChildrenForSpouse != nil && req.Mode != entities.ModeSpouse {
		return fmt.Errorf("%w: children for spouse only applies to spouse mode", entities.ErrInvalidRequest)
	}
	if req.SpouseIDForChild != "" && req.SpouseIDForChild != NoSpouse && req.Mode != entities.ModeChild {
		return fmt.Errorf("%w: spouse for child only applies to child mode", entities.ErrInvalidRequest)
	}
	if req.NewMember != nil {
		if err := req.NewMember.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// resolve checks an id taken from one of focus's own lists. A miss means
// the stored graph is already inconsistent.
func resolve(store *Store, focus *entities.Member, list entities.ListKind, id string) error {
	if !store.Has(id) {
		return fmt.Errorf("%w: %s entry %s of member %s does not exist", entities.ErrPartialGraph, list, id, focus.ID)
	}
	return nil
}

func parentClosure(store *Store, focus *entities.Member, parentID string, t entities.RelationType) ([]Edge, error) {
	edges := Link(focus.ID, entities.ListParents, parentID, t)
	for _, s := range focus.Siblings {
		if err := resolve(store, focus, entities.ListSiblings, s.ID); err != nil {
			return nil, err
		}
		if s.ID == parentID {
			continue
		}
		derived := entities.DeriveSiblingParentType(s.Type, t)
		edges = append(edges, Link(s.ID, entities.ListParents, parentID, derived)...)
	}
	return edges, nil
}

func childClosure(store *Store, focus *entities.Member, childID string, t entities.RelationType, spouseID string) ([]Edge, error) {
	edges := Link(focus.ID, entities.ListChildren, childID, t)
	if spouseID == "" || spouseID == NoSpouse {
		return edges, nil
	}
	if spouseID == childID || spouseID == focus.ID {
		return nil, fmt.Errorf("%w: spouse for child must be a third member", entities.ErrInvalidRequest)
	}
	if !store.Has(spouseID) {
		return nil, fmt.Errorf("%w: spouse %s", entities.ErrNotFound, spouseID)
	}
	return append(edges, Link(spouseID, entities.ListChildren, childID, entities.RelationBlood)...), nil
}

func siblingClosure(store *Store, focus *entities.Member, siblingID string, t entities.RelationType) ([]Edge, error) {
	edges := Link(focus.ID, entities.ListSiblings, siblingID, t)
	for _, p := range focus.Parents {
		if err := resolve(store, focus, entities.ListParents, p.ID); err != nil {
			return nil, err
		}
		if p.ID == siblingID {
			continue
		}
		edges = append(edges, Link(p.ID, entities.ListChildren, siblingID, p.Type)...)
	}
	for _, other := range focus.Siblings {
		if err := resolve(store, focus, entities.ListSiblings, other.ID); err != nil {
			return nil, err
		}
		if other.ID == siblingID {
			continue
		}
		edges = append(edges, Link(other.ID, entities.ListSiblings, siblingID, t)...)
	}
	return edges, nil
}

func spouseClosure(store *Store, focus *entities.Member, spouseID string, t entities.RelationType, selected []string) ([]Edge, error) {
	edges := Link(focus.ID, entities.ListSpouses, spouseID, t)
	if selected == nil {
		return edges, nil
	}

	blood := make(map[string]bool, len(selected))
	for _, id := range selected {
		if _, ok := focus.FindRelation(entities.ListChildren, id); !ok {
			return nil, fmt.Errorf("%w: %s is not a child of member %s", entities.ErrInvalidRequest, id, focus.ID)
		}
		blood[id] = true
	}

	for _, c := range focus.Children {
		if err := resolve(store, focus, entities.ListChildren, c.ID); err != nil {
			return nil, err
		}
		if c.ID == spouseID {
			continue
		}
		childType := entities.RelationAdopted
		if blood[c.ID] {
			childType = entities.RelationBlood
		}
		edges = append(edges, Link(spouseID, entities.ListChildren, c.ID, childType)...)
	}
	return edges, nil
}

// newRelative builds the member created on the far side of a relation.
func (e *Engine) newRelative(store *Store, focus *entities.Member, mode entities.Mode, fields *entities.MemberFields) (*entities.Member, error) {
	m := &entities.Member{
		ID:     e.newID(),
		Name:   fmt.Sprintf("%s's %s", placeholderName(focus), mode),
		Gender: entities.GenderMale,
	}
	if store.Has(m.ID) {
		return nil, fmt.Errorf("generated member id %s already exists", m.ID)
	}

	switch mode {
	case entities.ModeParent:
		m.Surname = focus.Surname
		if len(focus.Parents) > 0 {
			if p, ok := store.Lookup(focus.Parents[0].ID); ok {
				m.Gender = p.Gender.Opposite()
			}
		}
	case entities.ModeSpouse:
		m.Gender = focus.Gender.Opposite()
	default:
		m.Surname = focus.Surname
	}

	if fields != nil {
		if fields.Name != "" {
			m.Name = fields.Name
		}
		if fields.Surname != "" {
			m.Surname = fields.Surname
		}
		if fields.Gender != "" {
			m.Gender = fields.Gender
		}
		m.DateOfBirth = fields.DateOfBirth
		m.Description = fields.Description
	}
	m.Normalize()
	return m, nil
}

func placeholderName(m *entities.Member) string {
	if m.Name != "" {
		return m.Name
	}
	return "Member"
}
