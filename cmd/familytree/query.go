package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find members by similarity",
		Long:  "Searches member names and descriptions of the selected tree. Requires search.enabled in the config.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(func(d *Deps) error {
				treeID, err := resolveTree(d)
				if err != nil {
					return err
				}
				result, err := d.Search.HandleSearch(ctx, treeID, args[0], limit)
				if err != nil {
					return err
				}
				if len(result.Hits) == 0 {
					fmt.Println("No matching members found.")
					return nil
				}
				fmt.Printf("Found %d members:\n\n", len(result.Hits))
				for i, hit := range result.Hits {
					fmt.Printf("%d. %s %s (%s) score %.2f\n", i+1, hit.Name, hit.Surname, hit.MemberID, hit.Score)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultSearchLimit, "Maximum number of results")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent changes to the selected tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(func(d *Deps) error {
				treeID, err := resolveTree(d)
				if err != nil {
					return err
				}
				entries, err := d.Trees.HandleHistory(ctx, treeID, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Println("No history recorded.")
					return nil
				}
				for _, e := range entries {
					fmt.Printf("%s  %-16s %-36s %v\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.MemberID, e.Details)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultHistoryLimit, "Maximum number of entries")

	return cmd
}
