package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// JSONParser parses trees from JSON. It accepts a bare member array, a
// {name, members} object, or an object mapping tree names to member arrays.
type JSONParser struct{}

// Parse reads JSON from the reader and returns parsed trees.
func (p *JSONParser) Parse(r io.Reader) ([]RawTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("parsing JSON: empty input")
	}

	var trees []RawTree
	switch data[0] {
	case '[':
		var members []RawMember
		if err := json.Unmarshal(data, &members); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		trees = []RawTree{{Members: members}}
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		if _, ok := probe["members"]; ok {
			var tree RawTree
			if err := json.Unmarshal(data, &tree); err != nil {
				return nil, fmt.Errorf("parsing JSON: %w", err)
			}
			trees = []RawTree{tree}
			break
		}
		names := make([]string, 0, len(probe))
		for name := range probe {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			var members []RawMember
			if err := json.Unmarshal(probe[name], &members); err != nil {
				return nil, fmt.Errorf("parsing JSON tree %q: %w", name, err)
			}
			trees = append(trees, RawTree{Name: name, Members: members})
		}
	default:
		return nil, errUnsupportedShape("JSON")
	}

	numberMembers(trees)
	return trees, nil
}
