package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalogYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Parse decodes a catalog from YAML bytes, applies defaults and validates it.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("catalog: definition payload is empty")
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("catalog: decode definition: %w", err)
	}
	cat.normalize()
	cat.applyDefaults()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// UnmarshalYAML decodes the policy and records which optional keys were
// present.
func (p *ScoringPolicy) UnmarshalYAML(node *yaml.Node) error {
	type plain ScoringPolicy
	if err := node.Decode((*plain)(p)); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "sufficiency_threshold" {
			p.sufficiencySet = true
		}
	}
	return nil
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	cat, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return cat, nil
}

// Default returns the embedded reference catalog: six phases of two
// questions each, measured against a 200 point ceiling per phase.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(defaultCatalogYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", defaultErr))
	}
	return defaultCatalog
}

// LoadOrDefault loads the catalog at path, or the embedded default when path
// is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
