package parsers

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLParser parses trees from YAML using the same shapes as JSONParser.
type YAMLParser struct{}

// Parse reads YAML from the reader and returns parsed trees.
func (p *YAMLParser) Parse(r io.Reader) ([]RawTree, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parsing YAML: empty input")
		}
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}

	var trees []RawTree
	switch doc.Kind {
	case yaml.SequenceNode:
		var members []RawMember
		if err := doc.Decode(&members); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		trees = []RawTree{{Members: members}}
	case yaml.MappingNode:
		if hasKey(doc, "members") {
			var tree RawTree
			if err := doc.Decode(&tree); err != nil {
				return nil, fmt.Errorf("parsing YAML: %w", err)
			}
			trees = []RawTree{tree}
			break
		}
		for i := 0; i+1 < len(doc.Content); i += 2 {
			name := doc.Content[i].Value
			var members []RawMember
			if err := doc.Content[i+1].Decode(&members); err != nil {
				return nil, fmt.Errorf("parsing YAML tree %q: %w", name, err)
			}
			trees = append(trees, RawTree{Name: name, Members: members})
		}
	default:
		return nil, errUnsupportedShape("YAML")
	}

	numberMembers(trees)
	return trees, nil
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
