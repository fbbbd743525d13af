// Package parsers reads family trees from exchange formats.
package parsers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// RawRelation is a relation entry as found in the source.
type RawRelation struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`
}

// RawMember is a member parsed from an external source before validation.
type RawMember struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Surname     string        `json:"surname" yaml:"surname"`
	Gender      string        `json:"gender" yaml:"gender"`
	DateOfBirth string        `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Parents     []RawRelation `json:"parents" yaml:"parents"`
	Children    []RawRelation `json:"children" yaml:"children"`
	Siblings    []RawRelation `json:"siblings" yaml:"siblings"`
	Spouses     []RawRelation `json:"spouses" yaml:"spouses"`
	LineNum     int           `json:"-" yaml:"-"` // Position in source (set by parser)
}

// RawTree is a named list of members. Name is empty when the format
// carries no tree name.
type RawTree struct {
	Name    string      `json:"name" yaml:"name"`
	Members []RawMember `json:"members" yaml:"members"`
}

// Parser defines the interface for parsing trees from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawTree, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "yaml", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "yaml", "yml":
		return &YAMLParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ForFormat(ext)
}

// TreeNameFromFile derives a default tree name from a file path.
func TreeNameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func numberMembers(trees []RawTree) {
	for t := range trees {
		for i := range trees[t].Members {
			trees[t].Members[i].LineNum = i + 1
		}
	}
}

func errUnsupportedShape(kind string) error {
	return fmt.Errorf("parsing %s: expected a member array, a {name, members} object or a map of tree names to member arrays", kind)
}
