package entities

import (
	"fmt"
	"strings"
)

// Gender of a member. Only used to default the gender of generated relatives.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Opposite returns the other gender. Unknown values map to male.
func (g Gender) Opposite() Gender {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

// ParseGender converts a string into a Gender.
func ParseGender(s string) (Gender, error) {
	switch Gender(strings.ToLower(strings.TrimSpace(s))) {
	case GenderMale:
		return GenderMale, nil
	case GenderFemale:
		return GenderFemale, nil
	}
	return "", fmt.Errorf("%w: invalid gender: %s (valid: male, female)", ErrInvalidRequest, s)
}

// Relation is a typed reference from one member to another.
type Relation struct {
	ID   string       `json:"id" yaml:"id"`
	Type RelationType `json:"type" yaml:"type"`
}

// Member is one person in a family tree.
type Member struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Surname     string     `json:"surname" yaml:"surname"`
	Gender      Gender     `json:"gender" yaml:"gender"`
	DateOfBirth string     `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty"` // ISO-8601 date
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Parents     []Relation `json:"parents" yaml:"parents"`
	Children    []Relation `json:"children" yaml:"children"`
	Siblings    []Relation `json:"siblings" yaml:"siblings"`
	Spouses     []Relation `json:"spouses" yaml:"spouses"`
}

// DisplayName joins name and surname.
func (m *Member) DisplayName() string {
	return strings.TrimSpace(m.Name + " " + m.Surname)
}

// Relations returns the list of the given kind.
func (m *Member) Relations(l ListKind) []Relation {
	switch l {
	case ListParents:
		return m.Parents
	case ListChildren:
		return m.Children
	case ListSiblings:
		return m.Siblings
	case ListSpouses:
		return m.Spouses
	}
	return nil
}

func (m *Member) list(l ListKind) *[]Relation {
	switch l {
	case ListParents:
		return &m.Parents
	case ListChildren:
		return &m.Children
	case ListSiblings:
		return &m.Siblings
	case ListSpouses:
		return &m.Spouses
	}
	return nil
}

// FindRelation returns the entry for id in list l.
func (m *Member) FindRelation(l ListKind, id string) (Relation, bool) {
	for _, r := range m.Relations(l) {
		if r.ID == id {
			return r, true
		}
	}
	return Relation{}, false
}

// AddRelation appends r to list l unless an entry for r.ID is already present.
// The type of an existing entry is never changed. Reports whether r was added.
func (m *Member) AddRelation(l ListKind, r Relation) bool {
	list := m.list(l)
	if list == nil {
		return false
	}
	if _, ok := m.FindRelation(l, r.ID); ok {
		return false
	}
	*list = append(*list, r)
	return true
}

// RemoveRelationsTo strips every reference to id from all four lists and
// returns how many entries were removed.
func (m *Member) RemoveRelationsTo(id string) int {
	removed := 0
	for _, l := range AllLists {
		list := m.list(l)
		kept := (*list)[:0]
		for _, r := range *list {
			if r.ID == id {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		*list = kept
	}
	return removed
}

// BloodParentCount returns the number of blood parents.
func (m *Member) BloodParentCount() int {
	n := 0
	for _, r := range m.Parents {
		if r.Type == RelationBlood {
			n++
		}
	}
	return n
}

// Normalize replaces nil relation lists with empty ones so members always
// serialize with all four arrays present.
func (m *Member) Normalize() {
	for _, l := range AllLists {
		if list := m.list(l); *list == nil {
			*list = []Relation{}
		}
	}
}

// Clone returns a deep copy of m.
func (m *Member) Clone() *Member {
	c := *m
	c.Parents = append([]Relation{}, m.Parents...)
	c.Children = append([]Relation{}, m.Children...)
	c.Siblings = append([]Relation{}, m.Siblings...)
	c.Spouses = append([]Relation{}, m.Spouses...)
	return &c
}

// Fields returns the editable scalar fields of m.
func (m *Member) Fields() MemberFields {
	return MemberFields{
		Name:        m.Name,
		Surname:     m.Surname,
		Gender:      m.Gender,
		DateOfBirth: m.DateOfBirth,
		Description: m.Description,
	}
}

// MemberFields are the editable scalar fields of a member.
type MemberFields struct {
	Name        string `json:"name" yaml:"name" validate:"max=200"`
	Surname     string `json:"surname" yaml:"surname" validate:"max=200"`
	Gender      Gender `json:"gender" yaml:"gender" validate:"omitempty,oneof=male female"`
	DateOfBirth string `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=4000"`
}

// MemberPatch is a shallow update. Nil fields are left untouched.
type MemberPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Surname     *string `json:"surname,omitempty" validate:"omitempty,max=200"`
	Gender      *Gender `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	DateOfBirth *string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
}

// Empty reports whether the patch changes nothing.
func (p MemberPatch) Empty() bool {
	return p.Name == nil && p.Surname == nil && p.Gender == nil && p.DateOfBirth == nil && p.Description == nil
}

// ApplyTo merges the patch into m. Relation lists are never touched.
func (p MemberPatch) ApplyTo(m *Member) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Surname != nil {
		m.Surname = *p.Surname
	}
	if p.Gender != nil {
		m.Gender = *p.Gender
	}
	if p.DateOfBirth != nil {
		m.DateOfBirth = *p.DateOfBirth
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
}
