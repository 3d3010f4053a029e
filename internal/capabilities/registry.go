// Package capabilities defines the closed capability vocabulary shared by
// the permission evaluator and its collaborators.
package capabilities

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// vocabularyFile mirrors the embedded YAML layout
type vocabularyFile struct {
	ItemCapabilities []string `yaml:"item_capabilities"`
	PageCapabilities []string `yaml:"page_capabilities"`
	AddCapabilities  []string `yaml:"add_capabilities"`
}

// Registry holds the fixed capability vocabulary. Immutable after load, so
// concurrent readers need no locking.
type Registry struct {
	item     map[string]bool
	page     map[string]bool
	itemList []string
	add      []string
}

// NewRegistry loads the embedded vocabulary file
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/capabilities.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read capability vocabulary: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capability vocabulary: %w", err)
	}

	r := &Registry{
		item:     make(map[string]bool, len(file.ItemCapabilities)),
		page:     make(map[string]bool, len(file.PageCapabilities)),
		itemList: file.ItemCapabilities,
		add:      file.AddCapabilities,
	}
	for _, name := range file.ItemCapabilities {
		r.item[name] = true
	}
	for _, name := range file.PageCapabilities {
		r.page[name] = true
	}

	for _, name := range file.AddCapabilities {
		if !r.item[name] {
			return nil, fmt.Errorf("add capability %q is not in the item vocabulary", name)
		}
	}

	return r, nil
}

// Known reports whether the capability name is part of the vocabulary
func (r *Registry) Known(capability string) bool {
	return r.item[capability] || r.page[capability]
}

// IsPageLevel reports whether the capability is checked without an item
// anchor.
func (r *Registry) IsPageLevel(capability string) bool {
	return r.page[capability]
}

// AddFamily returns the capabilities that gate the Add affordance on a
// parent. The slice is shared; callers must not mutate it.
func (r *Registry) AddFamily() []string {
	return r.add
}

// ItemCapabilities returns the item-scoped vocabulary in the order it is
// defined in the YAML file. The slice is shared; callers must not mutate it.
func (r *Registry) ItemCapabilities() []string {
	return r.itemList
}
