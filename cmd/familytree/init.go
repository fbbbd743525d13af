package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/logging"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new family tree workspace",
		Long:  "Creates a .familytree directory with default configuration and sets up the tree store.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	initHandler := handlers.NewInitHandler()
	result, err := initHandler.Handle(ctx, cwd)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", result.ConfigPath)

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	repo, err := openRepository(cwd, cfg, logging.Discard())
	if err != nil {
		return err
	}
	defer repo.Close()

	search, closeSearch, err := openSearch(cfg)
	if err != nil {
		return err
	}
	defer closeSearch()

	if err := initHandler.Prepare(ctx, repo, search); err != nil {
		return err
	}

	fmt.Printf("Created %s store: %s\n", result.Driver, result.StoragePath)
	if search.Enabled() {
		fmt.Printf("Created Qdrant collection: %s\n", cfg.Qdrant.Collection)
	}
	fmt.Println("Family tree workspace initialized successfully!")

	return nil
}
