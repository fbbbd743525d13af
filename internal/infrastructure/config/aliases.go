package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TreeAliases holds local names for tree ids and the tree CLI commands act
// on by default (read/write).
type TreeAliases struct {
	Current string                `yaml:"current,omitempty"`
	Aliases map[string]AliasEntry `yaml:"aliases,omitempty"`
}

// AliasEntry holds configuration for a named tree.
type AliasEntry struct {
	TreeID      string `yaml:"tree_id"`
	Description string `yaml:"description,omitempty"`
}

// LoadAliases loads tree aliases from the .familytree directory.
func LoadAliases(basePath string) (*TreeAliases, error) {
	data, err := os.ReadFile(AliasesFilePath(basePath))
	if os.IsNotExist(err) {
		// Return empty config if file doesn't exist
		return &TreeAliases{Aliases: make(map[string]AliasEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading aliases file: %w", err)
	}

	var a TreeAliases
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing aliases file: %w", err)
	}

	if a.Aliases == nil {
		a.Aliases = make(map[string]AliasEntry)
	}

	return &a, nil
}

// Save writes the aliases to the aliases file.
func (a *TreeAliases) Save(basePath string) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling aliases: %w", err)
	}

	if err := os.WriteFile(AliasesFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing aliases file: %w", err)
	}

	return nil
}

// Add registers an alias. The name is sanitized and returned.
func (a *TreeAliases) Add(name string, entry AliasEntry) string {
	if a.Aliases == nil {
		a.Aliases = make(map[string]AliasEntry)
	}
	name = SanitizeName(name)
	a.Aliases[name] = entry
	return name
}

// Remove drops an alias and any aliases pointing at the same tree id when
// name is a tree id.
func (a *TreeAliases) Remove(name string) {
	for alias, entry := range a.Aliases {
		if alias == name || entry.TreeID == name {
			delete(a.Aliases, alias)
		}
	}
	if a.Current == name {
		a.Current = ""
	}
}

// Resolve returns the tree id for an alias, or ref unchanged when no alias
// matches. An empty ref resolves to the current tree.
func (a *TreeAliases) Resolve(ref string) string {
	if ref == "" {
		ref = a.Current
	}
	if entry, ok := a.Aliases[SanitizeName(ref)]; ok && ref != "" {
		return entry.TreeID
	}
	return ref
}

// Names returns alias names in sorted order.
func (a *TreeAliases) Names() []string {
	names := make([]string, 0, len(a.Aliases))
	for name := range a.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe lists up to five aliases for error messages.
func (a *TreeAliases) Describe() string {
	names := a.Names()
	if len(names) == 0 {
		return "none"
	}
	if len(names) > 5 {
		return strings.Join(names[:5], ", ") + ", ..."
	}
	return strings.Join(names, ", ")
}
