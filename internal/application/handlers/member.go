package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/lineage"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
)

// MemberHandler handles member and relation operations.
type MemberHandler struct {
	members *services.MemberService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(members *services.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// MemberInput carries member fields as entered by a user.
type MemberInput struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth"`
	Description string `json:"description"`
}

// Fields converts the input into member fields. An empty gender is left
// for the lineage package to default.
func (in MemberInput) Fields() (entities.MemberFields, error) {
	fields := entities.MemberFields{
		Name:        strings.TrimSpace(in.Name),
		Surname:     strings.TrimSpace(in.Surname),
		DateOfBirth: strings.TrimSpace(in.DateOfBirth),
		Description: in.Description,
	}
	if strings.TrimSpace(in.Gender) != "" {
		g, err := entities.ParseGender(in.Gender)
		if err != nil {
			return entities.MemberFields{}, err
		}
		fields.Gender = g
	}
	return fields, nil
}

// MemberUpdateInput carries a partial member update. Nil fields are kept.
type MemberUpdateInput struct {
	Name        *string `json:"name,omitempty"`
	Surname     *string `json:"surname,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Patch converts the input into a member patch.
func (in MemberUpdateInput) Patch() (entities.MemberPatch, error) {
	patch := entities.MemberPatch{
		Name:        in.Name,
		Surname:     in.Surname,
		DateOfBirth: in.DateOfBirth,
		Description: in.Description,
	}
	if in.Gender != nil {
		g, err := entities.ParseGender(*in.Gender)
		if err != nil {
			return entities.MemberPatch{}, err
		}
		patch.Gender = &g
	}
	return patch, nil
}

// RelateInput describes one relation to add around a focus member.
type RelateInput struct {
	Mode              string       `json:"mode"`
	RelationType      string       `json:"relationType"`
	RelatedMemberID   string       `json:"relatedMemberId,omitempty"`
	NewMember         *MemberInput `json:"newMember,omitempty"`
	ChildrenForSpouse []string     `json:"childrenForSpouse,omitempty"`
	SpouseIDForChild  string       `json:"spouseIdForChild,omitempty"`
	DryRun            bool         `json:"dryRun,omitempty"`
}

// RelateResult is the outcome of HandleRelate.
type RelateResult struct {
	UpdatedMembers  []*entities.Member `json:"updatedMembers"`
	CreatedMemberID string             `json:"createdMemberId,omitempty"`
	DryRun          bool               `json:"dryRun,omitempty"`
}

// RemoveResult is the outcome of HandleRemove.
type RemoveResult struct {
	RemovedID      string             `json:"removedId"`
	UpdatedMembers []*entities.Member `json:"updatedMembers"`
}

// OptionsResult lists the relation types offered for a mode.
type OptionsResult struct {
	MemberID string                  `json:"memberId"`
	Mode     entities.Mode           `json:"mode"`
	Types    []entities.RelationType `json:"types"`
}

// HandleAdd creates a member with no relations.
func (h *MemberHandler) HandleAdd(ctx context.Context, treeID string, in MemberInput) (*entities.Member, error) {
	fields, err := in.Fields()
	if err != nil {
		return nil, err
	}
	return h.members.Create(ctx, treeID, fields)
}

// HandleUpdate changes scalar fields of a member.
func (h *MemberHandler) HandleUpdate(ctx context.Context, treeID, memberID string, in MemberUpdateInput) (*entities.Member, error) {
	patch, err := in.Patch()
	if err != nil {
		return nil, err
	}
	return h.members.Update(ctx, treeID, memberID, patch)
}

// HandleRemove deletes a member and every reference to it.
func (h *MemberHandler) HandleRemove(ctx context.Context, treeID, memberID string) (*RemoveResult, error) {
	changed, err := h.members.Remove(ctx, treeID, memberID)
	if err != nil {
		return nil, err
	}
	if changed == nil {
		changed = []*entities.Member{}
	}
	return &RemoveResult{RemovedID: memberID, UpdatedMembers: changed}, nil
}

// HandleRelate adds a relation around focusID and everything it implies.
func (h *MemberHandler) HandleRelate(ctx context.Context, treeID, focusID string, in RelateInput) (*RelateResult, error) {
	req, err := in.request(focusID)
	if err != nil {
		return nil, err
	}

	res, err := h.members.ApplyRelation(ctx, treeID, req, services.ApplyOptions{DryRun: in.DryRun})
	if err != nil {
		return nil, err
	}
	return &RelateResult{
		UpdatedMembers:  res.Updated,
		CreatedMemberID: res.CreatedID,
		DryRun:          in.DryRun,
	}, nil
}

func (in RelateInput) request(focusID string) (lineage.Request, error) {
	mode, err := entities.ParseMode(in.Mode)
	if err != nil {
		return lineage.Request{}, err
	}
	if strings.TrimSpace(in.RelationType) == "" {
		return lineage.Request{}, fmt.Errorf("%w: relation type is required", entities.ErrInvalidRequest)
	}
	relType, err := entities.ParseRelationType(in.RelationType)
	if err != nil {
		return lineage.Request{}, err
	}

	req := lineage.Request{
		FocusID:           focusID,
		Mode:              mode,
		Type:              relType,
		RelatedMemberID:   strings.TrimSpace(in.RelatedMemberID),
		ChildrenForSpouse: in.ChildrenForSpouse,
		SpouseIDForChild:  strings.TrimSpace(in.SpouseIDForChild),
	}
	if in.NewMember != nil {
		fields, err := in.NewMember.Fields()
		if err != nil {
			return lineage.Request{}, err
		}
		req.NewMember = &fields
	}
	return req, nil
}

// HandleOptions returns the relation types offered to memberID for mode.
func (h *MemberHandler) HandleOptions(ctx context.Context, treeID, memberID, mode string) (*OptionsResult, error) {
	m, err := entities.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	types, err := h.members.RelationOptions(ctx, treeID, memberID, m)
	if err != nil {
		return nil, err
	}
	return &OptionsResult{MemberID: memberID, Mode: m, Types: types}, nil
}

// HandleValidate checks the integrity of a stored tree.
func (h *MemberHandler) HandleValidate(ctx context.Context, treeID string) (*services.ValidationReport, error) {
	return h.members.Validate(ctx, treeID)
}

// HandlePath returns the shortest relation chain between two members.
func (h *MemberHandler) HandlePath(ctx context.Context, treeID, fromID, toID string) ([]lineage.Step, error) {
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("%w: both from and to are required", entities.ErrInvalidRequest)
	}
	steps, err := h.members.Path(ctx, treeID, fromID, toID)
	if err != nil {
		return nil, err
	}
	if steps == nil {
		steps = []lineage.Step{}
	}
	return steps, nil
}
