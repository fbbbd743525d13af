package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/infrastructure/parsers"
)

type exportFlags struct {
	format string
	output string
}

type exporter struct {
	format string
	output string
}

// csvHeader matches the columns read by the CSV importer.
var csvHeader = []string{"id", "name", "surname", "gender", "dateOfBirth", "description", "parents", "children", "siblings", "spouses"}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the selected tree to file",
		Long:  "Exports a tree to JSON, CSV, or markdown format. JSON and CSV output can be imported again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "json", "Output format (json, csv, markdown)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	if !slices.Contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}

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

		e := &exporter{
			format: flags.format,
			output: flags.output,
		}
		return e.export(tree)
	})
}

func (e *exporter) export(tree *entities.Tree) (err error) {
	var w io.Writer
	var f *os.File

	if e.output != "" {
		f, err = os.OpenFile(e.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("creating file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing file: %w", cerr)
			}
		}()
		w = f
	} else {
		w = os.Stdout
	}

	if err := e.formatTree(w, tree); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if e.output != "" {
		fmt.Printf("Exported %d members to %s\n", len(tree.Members), e.output)
	}

	return nil
}

func (e *exporter) formatTree(w io.Writer, tree *entities.Tree) error {
	switch e.format {
	case "json":
		return formatJSON(w, tree)
	case "csv":
		return formatCSV(w, tree)
	case "markdown":
		return formatMarkdown(w, tree)
	default:
		return fmt.Errorf("unknown format: %s", e.format)
	}
}

func formatJSON(w io.Writer, tree *entities.Tree) error {
	type exportTree struct {
		Name    string             `json:"name"`
		Members []*entities.Member `json:"members"`
	}

	members := tree.Members
	if members == nil {
		members = []*entities.Member{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportTree{Name: tree.Name, Members: members})
}

func formatCSV(w io.Writer, tree *entities.Tree) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, m := range tree.Members {
		row := []string{
			m.ID,
			m.Name,
			m.Surname,
			string(m.Gender),
			m.DateOfBirth,
			m.Description,
			relationCell(m.Parents),
			relationCell(m.Children),
			relationCell(m.Siblings),
			relationCell(m.Spouses),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func relationCell(rels []entities.Relation) string {
	raw := make([]parsers.RawRelation, len(rels))
	for i, r := range rels {
		raw[i] = parsers.RawRelation{ID: r.ID, Type: string(r.Type)}
	}
	return parsers.FormatRelationCell(raw)
}

func formatMarkdown(w io.Writer, tree *entities.Tree) error {
	if _, err := fmt.Fprintf(w, "# %s\n\nTotal: %d members\n\n", escapeMarkdown(tree.Name), len(tree.Members)); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "| Name | Gender | Born | Parents | Children | Siblings | Spouses |\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "|------|--------|------|---------|----------|----------|---------|\n"); err != nil {
		return err
	}

	names := make(map[string]string, len(tree.Members))
	for _, m := range tree.Members {
		names[m.ID] = m.DisplayName()
	}
	describe := func(rels []entities.Relation) string {
		parts := make([]string, len(rels))
		for i, r := range rels {
			name := names[r.ID]
			if name == "" {
				name = r.ID
			}
			parts[i] = fmt.Sprintf("%s (%s)", name, r.Type)
		}
		return escapeMarkdown(strings.Join(parts, ", "))
	}

	for _, m := range tree.Members {
		if _, err := fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s |\n",
			escapeMarkdown(m.DisplayName()),
			m.Gender,
			m.DateOfBirth,
			describe(m.Parents),
			describe(m.Children),
			describe(m.Siblings),
			describe(m.Spouses),
		); err != nil {
			return err
		}
	}

	return nil
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
