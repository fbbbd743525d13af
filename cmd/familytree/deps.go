package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/handlers"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/ports"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/config"
	embedder "github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/embedder/openai"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/kvstore/badger"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/logging"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/relationaldb/sqlite"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/vectordb/qdrant"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	BasePath string
	Config   *config.Config
	Aliases  *config.TreeAliases
	Logger   *slog.Logger

	Trees   *handlers.TreeHandler
	Members *handlers.MemberHandler
	Imports *handlers.ImportHandler
	Search  *handlers.SearchHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	repo   ports.TreeRepository
	search *services.SearchService
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(fn func(*Deps) error) error {
	return withInternalDeps(func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including low-level components.
func withInternalDeps(fn func(*internalDeps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	aliases, err := config.LoadAliases(cwd)
	if err != nil {
		return fmt.Errorf("loading aliases: %w", err)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	repo, err := openRepository(cwd, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	search, closeSearch, err := openSearch(cfg)
	if err != nil {
		return err
	}
	defer closeSearch()

	ctx := context.Background()
	if err := handlers.NewInitHandler().Prepare(ctx, repo, search); err != nil {
		return err
	}

	locks := services.NewTreeLocks()
	treeService := services.NewTreeService(repo, locks, search, logger)
	memberService := services.NewMemberService(repo, locks, search, logger, services.MemberOptions{
		ValidateOnWrite: cfg.Graph.ValidateOnWrite,
	})

	deps := &internalDeps{
		Deps: Deps{
			BasePath: cwd,
			Config:   cfg,
			Aliases:  aliases,
			Logger:   logger,
			Trees:    handlers.NewTreeHandler(treeService),
			Members:  handlers.NewMemberHandler(memberService),
			Imports:  handlers.NewImportHandler(services.NewImportService(treeService)),
			Search:   handlers.NewSearchHandler(treeService, search),
		},
		repo:   repo,
		search: search,
	}

	return fn(deps)
}

// openRepository opens the tree store selected by the storage driver.
func openRepository(basePath string, cfg *config.Config, logger *slog.Logger) (ports.TreeRepository, error) {
	switch cfg.Storage.Driver {
	case config.DriverBadger:
		badgerCfg := cfg.Storage.Badger
		badgerCfg.Path = config.ResolvePath(basePath, badgerCfg.Path)
		repo, err := badger.NewRepository(badgerCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating badger repository: %w", err)
		}
		return repo, nil
	case config.DriverSQLite, "":
		sqliteCfg := cfg.Storage.SQLite
		sqliteCfg.Path = config.ResolvePath(basePath, sqliteCfg.Path)
		repo, err := sqlite.NewRepository(sqliteCfg)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite repository: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
}

// openSearch connects the embedder and the member index when search is
// enabled. A disabled search returns a nil service.
func openSearch(cfg *config.Config) (*services.SearchService, func(), error) {
	if !cfg.Search.Enabled {
		return nil, func() {}, nil
	}

	emb, err := embedder.NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	index, err := qdrant.NewRepository(cfg.Qdrant)
	if err != nil {
		return nil, nil, fmt.Errorf("creating qdrant repository: %w", err)
	}

	search := services.NewSearchService(emb, index, index, embedder.VectorSize)
	return search, func() { index.Close() }, nil
}

// resolveTree returns the tree id selected by --tree or the current tree.
func resolveTree(d *Deps) (string, error) {
	id := d.Aliases.Resolve(globalTree)
	if id == "" {
		return "", errors.New("tree is required (use --tree flag or 'familytree trees use NAME')")
	}
	return id, nil
}
