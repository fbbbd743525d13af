package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/lineage"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun      bool   // Validate without saving
	DefaultName string // Tree name used when the source carries none
}

// ImportError represents a problem with one member of an imported tree.
type ImportError struct {
	Tree     string // Tree name
	Line     int    // Member position in the source (1-indexed, 0 if unknown)
	MemberID string
	Message  string
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: member %d: %s", e.Tree, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Tree, e.Message)
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Trees   []entities.TreeSummary
	Skipped int
	Errors  []ImportError
}

// ImportService turns parsed trees into stored trees. A tree with any
// error is skipped as a whole.
type ImportService struct {
	trees *TreeService
}

// NewImportService creates a new import service.
func NewImportService(trees *TreeService) *ImportService {
	return &ImportService{trees: trees}
}

// Import validates and stores each raw tree.
func (s *ImportService) Import(ctx context.Context, raw []parsers.RawTree, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	for i := range raw {
		name := raw[i].Name
		if name == "" {
			name = opts.DefaultName
		}
		if name == "" {
			name = fmt.Sprintf("Imported tree %d", i+1)
		}

		members, errs := convertMembers(name, raw[i].Members)
		if len(errs) == 0 {
			errs = checkImported(name, raw[i].Members, members)
		}
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			result.Skipped++
			continue
		}

		if opts.DryRun {
			result.Trees = append(result.Trees, entities.TreeSummary{Name: name, MemberCount: len(members)})
			continue
		}

		tree, err := s.trees.create(ctx, name, members, entities.ActionTreeImported)
		if err != nil {
			if errors.Is(err, entities.ErrInvalidRequest) {
				result.Errors = append(result.Errors, ImportError{Tree: name, Message: err.Error()})
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("storing tree %s: %w", name, err)
		}
		result.Trees = append(result.Trees, tree.Summary())
	}

	return result, nil
}

// convertMembers parses raw fields into members.
func convertMembers(tree string, raw []parsers.RawMember) ([]*entities.Member, []ImportError) {
	members := make([]*entities.Member, 0, len(raw))
	var errs []ImportError

	for i := range raw {
		r := &raw[i]
		line := r.LineNum
		if line == 0 {
			line = i + 1
		}
		fail := func(format string, args ...any) {
			errs = append(errs, ImportError{Tree: tree, Line: line, MemberID: r.ID, Message: fmt.Sprintf(format, args...)})
		}

		if r.ID == "" {
			fail("missing required field: id")
			continue
		}
		gender := entities.GenderMale
		if r.Gender != "" {
			g, err := entities.ParseGender(r.Gender)
			if err != nil {
				fail("%v", err)
				continue
			}
			gender = g
		}

		m := &entities.Member{
			ID:          r.ID,
			Name:        r.Name,
			Surname:     r.Surname,
			Gender:      gender,
			DateOfBirth: r.DateOfBirth,
			Description: r.Description,
		}
		ok := true
		for _, l := range []struct {
			kind entities.ListKind
			rels []parsers.RawRelation
		}{
			{entities.ListParents, r.Parents},
			{entities.ListChildren, r.Children},
			{entities.ListSiblings, r.Siblings},
			{entities.ListSpouses, r.Spouses},
		} {
			rels, err := convertRelations(l.rels)
			if err != nil {
				fail("%s: %v", l.kind, err)
				ok = false
				break
			}
			setList(m, l.kind, rels)
		}
		if !ok {
			continue
		}
		if err := m.Fields().Validate(); err != nil {
			fail("%v", err)
			continue
		}
		m.Normalize()
		members = append(members, m)
	}

	return members, errs
}

func convertRelations(raw []parsers.RawRelation) ([]entities.Relation, error) {
	rels := make([]entities.Relation, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			return nil, errors.New("relation without id")
		}
		t, err := entities.ParseRelationType(r.Type)
		if err != nil {
			return nil, err
		}
		rels = append(rels, entities.Relation{ID: r.ID, Type: t})
	}
	return rels, nil
}

func setList(m *entities.Member, l entities.ListKind, rels []entities.Relation) {
	switch l {
	case entities.ListParents:
		m.Parents = rels
	case entities.ListChildren:
		m.Children = rels
	case entities.ListSiblings:
		m.Siblings = rels
	case entities.ListSpouses:
		m.Spouses = rels
	}
}

// checkImported reports every integrity violation of a converted tree
// against the source position of the offending member.
func checkImported(tree string, raw []parsers.RawMember, members []*entities.Member) []ImportError {
	lines := make(map[string]int, len(raw))
	for i := range raw {
		if _, seen := lines[raw[i].ID]; !seen {
			line := raw[i].LineNum
			if line == 0 {
				line = i + 1
			}
			lines[raw[i].ID] = line
		}
	}

	var errs []ImportError
	for _, v := range lineage.Validate(members) {
		errs = append(errs, ImportError{Tree: tree, Line: lines[v.MemberID], MemberID: v.MemberID, Message: v.String()})
	}
	return errs
}
