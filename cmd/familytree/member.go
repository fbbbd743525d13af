package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

type memberFlags struct {
	name        string
	surname     string
	gender      string
	dateOfBirth string
	description string
}

func (f *memberFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Given name")
	cmd.Flags().StringVarP(&f.surname, "surname", "s", "", "Surname")
	cmd.Flags().StringVarP(&f.gender, "gender", "g", "", "Gender (male, female)")
	cmd.Flags().StringVar(&f.dateOfBirth, "dob", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Free-form description")
}

func (f *memberFlags) input() handlers.MemberInput {
	return handlers.MemberInput{
		Name:        f.name,
		Surname:     f.surname,
		Gender:      f.gender,
		DateOfBirth: f.dateOfBirth,
		Description: f.description,
	}
}

// update builds a partial update from the flags the user actually set.
func (f *memberFlags) update(cmd *cobra.Command) handlers.MemberUpdateInput {
	var in handlers.MemberUpdateInput
	set := func(flag string, value string, dst **string) {
		if cmd.Flags().Changed(flag) {
			v := value
			*dst = &v
		}
	}
	set("name", f.name, &in.Name)
	set("surname", f.surname, &in.Surname)
	set("gender", f.gender, &in.Gender)
	set("dob", f.dateOfBirth, &in.DateOfBirth)
	set("description", f.description, &in.Description)
	return in
}

func newMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage tree members",
	}

	cmd.AddCommand(
		newMemberAddCmd(),
		newMemberUpdateCmd(),
		newMemberRemoveCmd(),
	)

	return cmd
}

func newMemberAddCmd() *cobra.Command {
	var flags memberFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member with no relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(func(d *Deps) error {
				treeID, err := resolveTree(d)
				if err != nil {
					return err
				}
				m, err := d.Members.HandleAdd(ctx, treeID, flags.input())
				if err != nil {
					return err
				}
				fmt.Printf("Added member %s: %s\n", m.ID, m.DisplayName())
				return nil
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func newMemberUpdateCmd() *cobra.Command {
	var flags memberFlags

	cmd := &cobra.Command{
		Use:   "update MEMBER_ID",
		Short: "Change a member's name, surname or other details",
		Long:  "Changes only the fields given as flags. Relations are never touched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := flags.update(cmd)
			return withDeps(func(d *Deps) error {
				treeID, err := resolveTree(d)
				if err != nil {
					return err
				}
				m, err := d.Members.HandleUpdate(ctx, treeID, args[0], in)
				if err != nil {
					return err
				}
				fmt.Printf("Updated member %s: %s\n", m.ID, m.DisplayName())
				return nil
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func newMemberRemoveCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "remove MEMBER_ID",
		Short: "Remove a member and every reference to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !force && !confirmAction(fmt.Sprintf("Remove member %s?", args[0])) {
				fmt.Println("Cancelled.")
				return nil
			}
			return withDeps(func(d *Deps) error {
				treeID, err := resolveTree(d)
				if err != nil {
					return err
				}
				result, err := d.Members.HandleRemove(ctx, treeID, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Removed member %s, updated %d relatives\n", result.RemovedID, len(result.UpdatedMembers))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// printRelations writes the four relation lists of m, skipping empty ones.
func printRelations(m *entities.Member) {
	for _, list := range entities.AllLists {
		rels := m.Relations(list)
		if len(rels) == 0 {
			continue
		}
		parts := make([]string, len(rels))
		for i, r := range rels {
			parts[i] = fmt.Sprintf("%s (%s)", r.ID, r.Type)
		}
		fmt.Printf("    %-9s %s\n", list+":", strings.Join(parts, ", "))
	}
}
