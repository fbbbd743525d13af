package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
)

type relateFlags struct {
	related  string
	children []string
	spouse   string
	dryRun   bool
	member   memberFlags
}

func newRelateCmd() *cobra.Command {
	var flags relateFlags

	cmd := &cobra.Command{
		Use:   "relate MEMBER_ID MODE TYPE",
		Short: "Add a relative to a member",
		Long: `Adds a relationship around a member and every relationship it implies.
Without --with a new member is created on the other side.

Modes and their relation types:
  parent   blood, adopted
  child    blood, adopted
  sibling  blood, half
  spouse   married, divorced

Examples:
  familytree relate m1 parent blood --name Ada
  familytree relate m1 sibling half --with m7
  familytree relate m1 spouse married --with m2 --children m3,m4
  familytree relate m1 child adopted --spouse m2 --dry-run`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelate(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.related, "with", "w", "", "Link to an existing member instead of creating one")
	cmd.Flags().StringSliceVar(&flags.children, "children", nil, "Spouse mode: children of MEMBER_ID who are blood children of the spouse")
	cmd.Flags().StringVar(&flags.spouse, "spouse", "", "Child mode: also make this member a blood parent of the child")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Show the result without saving")
	flags.member.register(cmd)

	return cmd
}

func runRelate(cmd *cobra.Command, args []string, flags relateFlags) error {
	ctx := cmd.Context()

	in := handlers.RelateInput{
		Mode:             args[1],
		RelationType:     args[2],
		RelatedMemberID:  flags.related,
		SpouseIDForChild: flags.spouse,
		DryRun:           flags.dryRun,
	}
	if cmd.Flags().Changed("children") {
		in.ChildrenForSpouse = flags.children
		if in.ChildrenForSpouse == nil {
			in.ChildrenForSpouse = []string{}
		}
	}
	if flags.related == "" {
		newMember := flags.member.input()
		in.NewMember = &newMember
	}

	return withDeps(func(d *Deps) error {
		treeID, err := resolveTree(d)
		if err != nil {
			return err
		}

		result, err := d.Members.HandleRelate(ctx, treeID, args[0], in)
		if err != nil {
			return fmt.Errorf("adding relation: %w", err)
		}

		if result.DryRun {
			fmt.Println("Dry run: nothing was saved")
		}
		if result.CreatedMemberID != "" {
			fmt.Printf("Created member %s\n", result.CreatedMemberID)
		}
		fmt.Printf("Updated %d members:\n", len(result.UpdatedMembers))
		for _, m := range result.UpdatedMembers {
			fmt.Printf("  %s  %s\n", m.ID, m.DisplayName())
			printRelations(m)
		}
		return nil
	})
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options MEMBER_ID MODE",
		Short: "List the relation types offered for a new relative",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(func(d *Deps) error {
				treeID, err := resolveTree(d)
				if err != nil {
					return err
				}
				result, err := d.Members.HandleOptions(ctx, treeID, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Relation types for a new %s of %s:\n", result.Mode, result.MemberID)
				for _, t := range result.Types {
					fmt.Printf("  %s\n", t)
				}
				return nil
			})
		},
	}
}
