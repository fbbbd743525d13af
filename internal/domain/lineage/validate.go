package lineage

import (
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

// ViolationKind classifies an integrity finding.
type ViolationKind string

const (
	ViolationAsymmetric   ViolationKind = "asymmetric"
	ViolationTypeMismatch ViolationKind = "type_mismatch"
	ViolationDuplicate    ViolationKind = "duplicate"
	ViolationSelfEdge     ViolationKind = "self_edge"
	ViolationDangling     ViolationKind = "dangling"
	ViolationIllegalType  ViolationKind = "illegal_type"
	ViolationDuplicateID  ViolationKind = "duplicate_id"
)

// Violation locates one broken invariant.
type Violation struct {
	MemberID  string            `json:"memberId"`
	List      entities.ListKind `json:"list,omitempty"`
	RelatedID string            `json:"relatedId,omitempty"`
	Kind      ViolationKind     `json:"kind"`
	Detail    string            `json:"detail"`
}

func (v Violation) String() string {
	if v.List == "" {
		return fmt.Sprintf("%s: member %s: %s", v.Kind, v.MemberID, v.Detail)
	}
	return fmt.Sprintf("%s: member %s %s -> %s: %s", v.Kind, v.MemberID, v.List, v.RelatedID, v.Detail)
}

// Validate checks symmetry, uniqueness, self-edges, referential integrity
// and list type legality over all members. Every violation is reported, in
// member order, then list order, then relation order.
func Validate(members []*entities.Member) []Violation {
	byID := make(map[string]*entities.Member, len(members))
	var out []Violation

	for _, m := range members {
		if _, dup := byID[m.ID]; dup {
			out = append(out, Violation{
				MemberID: m.ID,
				Kind:     ViolationDuplicateID,
				Detail:   "member id appears more than once",
			})
			continue
		}
		byID[m.ID] = m
	}

	for _, m := range members {
		if byID[m.ID] != m {
			continue
		}
		for _, list := range entities.AllLists {
			seen := make(map[string]bool)
			for _, r := range m.Relations(list) {
				out = append(out, checkRelation(byID, m, list, r, seen)...)
			}
		}
	}
	return out
}

func checkRelation(byID map[string]*entities.Member, m *entities.Member, list entities.ListKind, r entities.Relation, seen map[string]bool) []Violation {
	at := func(kind ViolationKind, format string, args ...any) Violation {
		return Violation{
			MemberID:  m.ID,
			List:      list,
			RelatedID: r.ID,
			Kind:      kind,
			Detail:    fmt.Sprintf(format, args...),
		}
	}

	var out []Violation
	if seen[r.ID] {
		out = append(out, at(ViolationDuplicate, "more than one entry for the same member"))
		return out
	}
	seen[r.ID] = true

	if !list.Allows(r.Type) {
		out = append(out, at(ViolationIllegalType, "type %q is not allowed in %s", r.Type, list))
	}
	if r.ID == m.ID {
		out = append(out, at(ViolationSelfEdge, "member is related to itself"))
		return out
	}

	other, ok := byID[r.ID]
	if !ok {
		out = append(out, at(ViolationDangling, "related member does not exist"))
		return out
	}

	back, ok := other.FindRelation(list.Mirror(), m.ID)
	switch {
	case !ok:
		out = append(out, at(ViolationAsymmetric, "no reciprocal entry in %s of %s", list.Mirror(), r.ID))
	case back.Type != r.Type:
		out = append(out, at(ViolationTypeMismatch, "reciprocal entry has type %q, expected %q", back.Type, r.Type))
	}
	return out
}
