// Package main provides the entry point for the familytree CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0-dev"
	globalTree string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "familytree",
		Short:         "A family tree store that keeps relationships consistent",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalTree, "tree", "t", "", "Tree alias or id to operate on (default: current tree)")

	rootCmd.AddCommand(
		newInitCmd(),
		newTreesCmd(),
		newMemberCmd(),
		newRelateCmd(),
		newOptionsCmd(),
		newValidateCmd(),
		newPathCmd(),
		newExportCmd(),
		newImportCmd(),
		newSearchCmd(),
		newHistoryCmd(),
		newServeCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
