package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
)

func newTreesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trees",
		Short: "Manage family trees",
		RunE:  runTreesList,
	}

	cmd.AddCommand(
		newTreesListCmd(),
		newTreesCreateCmd(),
		newTreesShowCmd(),
		newTreesDeleteCmd(),
		newTreesUseCmd(),
		newTreesAliasCmd(),
	)

	return cmd
}

func newTreesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all trees",
		RunE:  runTreesList,
	}
}

func runTreesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		result, err := d.Trees.HandleList(ctx)
		if err != nil {
			return err
		}

		if result.Total == 0 {
			fmt.Println("No trees stored.")
			fmt.Println("Use 'familytree trees create NAME' to create a tree.")
			return nil
		}

		names := aliasesByTree(d.Aliases)
		current := d.Aliases.Resolve("")

		fmt.Printf("  %-36s %-20s %-8s %s\n", "ID", "NAME", "MEMBERS", "ALIASES")
		fmt.Printf("  %-36s %-20s %-8s %s\n", "--", "----", "-------", "-------")
		for _, t := range result.Trees {
			marker := " "
			if t.ID == current {
				marker = "*"
			}
			fmt.Printf("%s %-36s %-20s %-8d %s\n", marker, t.ID, t.Name, t.MemberCount, strings.Join(names[t.ID], ", "))
		}
		return nil
	})
}

func newTreesCreateCmd() *cobra.Command {
	var (
		alias       string
		description string
		use         bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new empty tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreesCreate(cmd, args[0], alias, description, use)
		},
	}

	cmd.Flags().StringVarP(&alias, "alias", "a", "", "Local alias for the tree (default: derived from NAME)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Alias description")
	cmd.Flags().BoolVar(&use, "use", false, "Make the new tree the current tree")

	return cmd
}

func runTreesCreate(cmd *cobra.Command, name, alias, description string, use bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		tree, err := d.Trees.HandleCreate(ctx, handlers.CreateTreeInput{Name: name})
		if err != nil {
			return err
		}

		if alias == "" {
			alias = name
		}
		saved, err := addAlias(d.BasePath, alias, config.AliasEntry{TreeID: tree.ID, Description: description}, use)
		if err != nil {
			return fmt.Errorf("saving alias: %w", err)
		}

		fmt.Printf("Created tree %q (%s) with alias %q\n", tree.Name, tree.ID, saved)
		return nil
	})
}

func newTreesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the members of the selected tree",
		RunE:  runTreesShow,
	}
}

func runTreesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		treeID, err := resolveTree(d)
		if err != nil {
			return err
		}
		tree, err := d.Trees.HandleGet(ctx, treeID)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s), %d members\n\n", tree.Name, tree.ID, len(tree.Members))
		for _, m := range tree.Members {
			fmt.Printf("%s  %s [%s]\n", m.ID, m.DisplayName(), m.Gender)
			printRelations(m)
		}
		return nil
	})
}

func newTreesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete TREE",
		Short: "Delete a tree and all its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreesDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runTreesDelete(cmd *cobra.Command, ref string, force bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		treeID := d.Aliases.Resolve(ref)
		tree, err := d.Trees.HandleGet(ctx, treeID)
		if err != nil {
			return err
		}

		if !force && !confirmAction(fmt.Sprintf("Delete tree %q with %d members?", tree.Name, len(tree.Members))) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := d.Trees.HandleDelete(ctx, treeID); err != nil {
			return err
		}
		if err := removeAlias(d.BasePath, treeID); err != nil {
			fmt.Printf("Warning: could not remove aliases for %s: %v\n", treeID, err)
		}

		fmt.Printf("Deleted tree %q\n", tree.Name)
		return nil
	})
}

func newTreesUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use TREE",
		Short: "Set the tree commands act on by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			if err := useTree(cwd, args[0]); err != nil {
				return err
			}
			fmt.Printf("Now using tree %q\n", args[0])
			return nil
		},
	}
}

func newTreesAliasCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "alias NAME TREE_ID",
		Short: "Give a tree a local name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			name, err := addAlias(cwd, args[0], config.AliasEntry{TreeID: args[1], Description: description}, false)
			if err != nil {
				return err
			}
			fmt.Printf("Alias %q now points at %s\n", name, args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Alias description")

	return cmd
}

// addAlias registers an alias in the workspace and returns its sanitized name.
func addAlias(basePath, name string, entry config.AliasEntry, makeCurrent bool) (string, error) {
	if !config.Exists(basePath) {
		return "", fmt.Errorf("familytree not initialized in %s (run 'familytree init' first)", basePath)
	}
	aliases, err := config.LoadAliases(basePath)
	if err != nil {
		return "", err
	}

	saved := aliases.Add(name, entry)
	if makeCurrent {
		aliases.Current = saved
	}

	if err := aliases.Save(basePath); err != nil {
		return "", err
	}
	return saved, nil
}

// removeAlias drops every alias for a tree id or alias name.
func removeAlias(basePath, ref string) error {
	aliases, err := config.LoadAliases(basePath)
	if err != nil {
		return err
	}
	id := aliases.Resolve(ref)
	if aliases.Current != "" && aliases.Resolve("") == id {
		aliases.Current = ""
	}
	aliases.Remove(id)
	aliases.Remove(ref)
	return aliases.Save(basePath)
}

// useTree sets the current tree. ref may be an alias or a tree id.
func useTree(basePath, ref string) error {
	aliases, err := config.LoadAliases(basePath)
	if err != nil {
		return err
	}
	if _, ok := aliases.Aliases[config.SanitizeName(ref)]; ok {
		ref = config.SanitizeName(ref)
	}
	aliases.Current = ref
	return aliases.Save(basePath)
}

// aliasesByTree groups alias names by tree id.
func aliasesByTree(aliases *config.TreeAliases) map[string][]string {
	byTree := make(map[string][]string)
	for _, name := range aliases.Names() {
		id := aliases.Aliases[name].TreeID
		byTree[id] = append(byTree[id], name)
	}
	return byTree
}

func confirmAction(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/N]: ", prompt)
	response, _ := reader.ReadString('\n') // Error ignored: EOF/error treated as "no"
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
