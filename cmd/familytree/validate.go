package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the selected tree for relationship inconsistencies",
		Long:  "Reports missing reciprocal entries, mismatched types, duplicates, self references, dangling references and ancestry cycles. Exits non-zero when anything is found.",
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		treeID, err := resolveTree(d)
		if err != nil {
			return err
		}

		report, err := d.Members.HandleValidate(ctx, treeID)
		if err != nil {
			return err
		}

		if report.Valid() {
			fmt.Printf("Tree %s is consistent (%d members)\n", report.TreeID, report.Members)
			return nil
		}

		if len(report.Violations) > 0 {
			fmt.Printf("Violations (%d):\n", len(report.Violations))
			for _, v := range report.Violations {
				fmt.Printf("  %s\n", v)
			}
		}
		if len(report.AncestryCycles) > 0 {
			fmt.Printf("Ancestry cycles (%d):\n", len(report.AncestryCycles))
			for _, cycle := range report.AncestryCycles {
				fmt.Printf("  %s\n", strings.Join(cycle, " -> "))
			}
		}
		return fmt.Errorf("tree %s has %d violations and %d ancestry cycles", report.TreeID, len(report.Violations), len(report.AncestryCycles))
	})
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path FROM_ID TO_ID",
		Short: "Show the shortest relation chain between two members",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(func(d *Deps) error {
				treeID, err := resolveTree(d)
				if err != nil {
					return err
				}
				steps, err := d.Members.HandlePath(ctx, treeID, args[0], args[1])
				if err != nil {
					return err
				}
				if len(steps) == 0 {
					fmt.Printf("No relation chain between %s and %s\n", args[0], args[1])
					return nil
				}
				for i, s := range steps {
					fmt.Printf("%d. %s -[%s %s]-> %s\n", i+1, s.From, s.List, s.Type, s.To)
				}
				return nil
			})
		},
	}
}
