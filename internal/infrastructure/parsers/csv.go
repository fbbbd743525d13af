package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVColumns is the column order written by the CSV exporter.
var CSVColumns = []string{"id", "name", "surname", "gender", "dateOfBirth", "description", "parents", "children", "siblings", "spouses"}

// CSVParser parses a single tree from CSV, one member per row.
// Relation cells hold "id:type" pairs separated by ";".
type CSVParser struct{}

// Parse reads CSV from the reader and returns the parsed tree.
func (p *CSVParser) Parse(r io.Reader) ([]RawTree, error) {
	reader := csv.NewReader(r)

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	members, err := p.readRecords(reader, colIndex)
	if err != nil {
		return nil, err
	}
	return []RawTree{{Members: members}}, nil
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	for _, col := range []string{"id", "name"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawMembers.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawMember, error) {
	var members []RawMember
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		member, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, nil
}

// parseRecord converts a CSV record to a RawMember.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawMember, error) {
	member := RawMember{
		ID:          getColumn(record, colIndex, "id"),
		Name:        getColumn(record, colIndex, "name"),
		Surname:     getColumn(record, colIndex, "surname"),
		Gender:      getColumn(record, colIndex, "gender"),
		DateOfBirth: getColumn(record, colIndex, "dateOfBirth"),
		Description: getColumn(record, colIndex, "description"),
		LineNum:     lineNum,
	}

	lists := []struct {
		col  string
		dest *[]RawRelation
	}{
		{"parents", &member.Parents},
		{"children", &member.Children},
		{"siblings", &member.Siblings},
		{"spouses", &member.Spouses},
	}
	for _, l := range lists {
		rels, err := ParseRelationCell(getColumn(record, colIndex, l.col))
		if err != nil {
			return RawMember{}, fmt.Errorf("line %d: %s: %w", lineNum, l.col, err)
		}
		*l.dest = rels
	}

	return member, nil
}

// ParseRelationCell splits "id:type;id:type" into relations.
func ParseRelationCell(cell string) ([]RawRelation, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return []RawRelation{}, nil
	}
	parts := strings.Split(cell, ";")
	rels := make([]RawRelation, 0, len(parts))
	for _, part := range parts {
		id, relType, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || id == "" || relType == "" {
			return nil, fmt.Errorf("invalid relation %q (want id:type)", part)
		}
		rels = append(rels, RawRelation{ID: id, Type: relType})
	}
	return rels, nil
}

// FormatRelationCell is the inverse of ParseRelationCell.
func FormatRelationCell(rels []RawRelation) string {
	parts := make([]string, len(rels))
	for i, r := range rels {
		parts[i] = r.ID + ":" + r.Type
	}
	return strings.Join(parts, ";")
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
