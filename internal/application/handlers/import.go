package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/parsers"
)

// ImportHandler handles importing trees from files.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string // "json", "yaml", "csv", or "auto"
	DryRun bool   // Validate without saving
	Name   string // Tree name override for unnamed trees
}

// Handle imports trees from a file.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*services.ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}
	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	if opts.Name == "" {
		opts.Name = parsers.TreeNameFromFile(filePath)
	}
	return h.importFrom(ctx, parser, file, opts)
}

// HandleReader imports trees from r in the given format.
func (h *ImportHandler) HandleReader(ctx context.Context, r io.Reader, opts ImportOptions) (*services.ImportResult, error) {
	parser := parsers.ForFormat(opts.Format)
	if parser == nil {
		return nil, fmt.Errorf("unsupported format: %s", opts.Format)
	}
	return h.importFrom(ctx, parser, r, opts)
}

func (h *ImportHandler) importFrom(ctx context.Context, parser parsers.Parser, r io.Reader, opts ImportOptions) (*services.ImportResult, error) {
	rawTrees, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	return h.service.Import(ctx, rawTrees, services.ImportOptions{
		DryRun:      opts.DryRun,
		DefaultName: opts.Name,
	})
}
