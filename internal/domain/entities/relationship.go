package entities

import (
	"fmt"
	"strings"
)

// RelationType classifies an edge between two members. Its meaning depends
// on the list the edge sits in.
type RelationType string

const (
	RelationBlood    RelationType = "blood"
	RelationAdopted  RelationType = "adopted"
	RelationHalf     RelationType = "half"
	RelationMarried  RelationType = "married"
	RelationDivorced RelationType = "divorced"
)

// ListKind names one of the four relation lists carried by every member.
type ListKind string

const (
	ListParents  ListKind = "parents"
	ListChildren ListKind = "children"
	ListSiblings ListKind = "siblings"
	ListSpouses  ListKind = "spouses"
)

// AllLists is the fixed iteration order of the relation lists.
var AllLists = []ListKind{ListParents, ListChildren, ListSiblings, ListSpouses}

// Mirror returns the list that holds the reciprocal edge.
func (l ListKind) Mirror() ListKind {
	switch l {
	case ListParents:
		return ListChildren
	case ListChildren:
		return ListParents
	default:
		return l
	}
}

// Valid reports whether l is one of the four relation lists.
func (l ListKind) Valid() bool {
	switch l {
	case ListParents, ListChildren, ListSiblings, ListSpouses:
		return true
	}
	return false
}

// Allows reports whether an edge of type t may be stored in list l.
// Parent and child lists tolerate half for data produced elsewhere, even
// though no mode writes it there.
func (l ListKind) Allows(t RelationType) bool {
	switch l {
	case ListParents, ListChildren:
		return t == RelationBlood || t == RelationAdopted || t == RelationHalf
	case ListSiblings:
		return t == RelationBlood || t == RelationHalf
	case ListSpouses:
		return t == RelationMarried || t == RelationDivorced
	}
	return false
}

// Mode selects which side of a new relationship the related member is on.
type Mode string

const (
	ModeParent  Mode = "parent"
	ModeChild   Mode = "child"
	ModeSibling Mode = "sibling"
	ModeSpouse  Mode = "spouse"
)

// AllModes lists every supported mode.
var AllModes = []Mode{ModeParent, ModeChild, ModeSibling, ModeSpouse}

// List returns the focus member's list that receives the related member.
func (m Mode) List() ListKind {
	switch m {
	case ModeParent:
		return ListParents
	case ModeChild:
		return ListChildren
	case ModeSibling:
		return ListSiblings
	case ModeSpouse:
		return ListSpouses
	}
	return ""
}

// RelationTypes returns the relation types a request in this mode may carry.
func (m Mode) RelationTypes() []RelationType {
	switch m {
	case ModeParent, ModeChild:
		return []RelationType{RelationBlood, RelationAdopted}
	case ModeSibling:
		return []RelationType{RelationBlood, RelationHalf}
	case ModeSpouse:
		return []RelationType{RelationMarried, RelationDivorced}
	}
	return nil
}

// Allows reports whether t is a legal relation type for the mode.
func (m Mode) Allows(t RelationType) bool {
	for _, candidate := range m.RelationTypes() {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeParent:
		return ModeParent, nil
	case ModeChild:
		return ModeChild, nil
	case ModeSibling:
		return ModeSibling, nil
	case ModeSpouse:
		return ModeSpouse, nil
	}
	return "", fmt.Errorf("%w: invalid mode: %s (valid: parent, child, sibling, spouse)", ErrInvalidRequest, s)
}

// ParseRelationType converts a string into a RelationType.
func ParseRelationType(s string) (RelationType, error) {
	switch RelationType(strings.ToLower(strings.TrimSpace(s))) {
	case RelationBlood:
		return RelationBlood, nil
	case RelationAdopted:
		return RelationAdopted, nil
	case RelationHalf:
		return RelationHalf, nil
	case RelationMarried:
		return RelationMarried, nil
	case RelationDivorced:
		return RelationDivorced, nil
	}
	return "", fmt.Errorf("%w: invalid relation type: %s (valid: blood, adopted, half, married, divorced)", ErrInvalidRequest, s)
}

// DeriveSiblingParentType returns the type of the link between a sibling S
// and a new parent P of member M, given the sibling type between M and S and
// the type of the link between M and P.
func DeriveSiblingParentType(siblingType, parentType RelationType) RelationType {
	switch siblingType {
	case RelationBlood:
		if parentType == RelationBlood {
			return RelationBlood
		}
		return RelationAdopted
	case RelationHalf:
		if parentType == RelationBlood {
			return RelationAdopted
		}
		return RelationBlood
	}
	return RelationAdopted
}

// OfferedTypes returns the relation types that should be offered when adding
// a relative to member in the given mode. A member that already has two blood
// parents is only offered adopted parents.
func OfferedTypes(member *Member, mode Mode) []RelationType {
	if mode == ModeParent && member != nil && member.BloodParentCount() >= 2 {
		return []RelationType{RelationAdopted}
	}
	return mode.RelationTypes()
}
