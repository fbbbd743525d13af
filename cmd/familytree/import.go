package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
)

type importFlags struct {
	format string
	dryRun bool
	name   string
	alias  bool
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import trees from JSON, YAML or CSV",
		Long:  "Imports one or more trees from a structured file. Each tree must already be consistent; trees with errors are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, yaml, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "Name for unnamed trees (default: file name)")
	cmd.Flags().BoolVar(&flags.alias, "alias", true, "Register an alias for each imported tree")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		opts := handlers.ImportOptions{
			Format: flags.format,
			DryRun: flags.dryRun,
			Name:   flags.name,
		}

		fmt.Printf("Importing %s...\n", filePath)

		result, err := d.Imports.Handle(ctx, filePath, opts)
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		// Display errors
		if len(result.Errors) > 0 {
			fmt.Printf("\nValidation errors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("  %s\n", e.Error())
			}
		}

		fmt.Println()
		for _, t := range result.Trees {
			if flags.dryRun {
				fmt.Printf("Would import %q with %d members\n", t.Name, t.MemberCount)
				continue
			}
			fmt.Printf("Imported %q (%s) with %d members\n", t.Name, t.ID, t.MemberCount)
			if flags.alias {
				name, err := addAlias(d.BasePath, t.Name, config.AliasEntry{TreeID: t.ID}, false)
				if err != nil {
					fmt.Printf("Warning: could not save alias for %s: %v\n", t.ID, err)
					continue
				}
				fmt.Printf("  alias: %s\n", name)
			}
		}

		if result.Skipped > 0 {
			fmt.Printf("%d trees skipped\n", result.Skipped)
		}
		return nil
	})
}
