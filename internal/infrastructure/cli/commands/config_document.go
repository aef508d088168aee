package commands

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/shai-agent/internal/domain"
)

// configDocument is a domain.Config as a YAML node tree addressed by dotted
// keys such as "search.confidence_floor". Only keys the config already has
// can be read or written.
type configDocument struct {
	root yaml.Node
}

func newConfigDocument(cfg domain.Config) (*configDocument, error) {
	doc := &configDocument{}
	if err := doc.root.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return doc, nil
}

func (d *configDocument) lookup(key string) (*yaml.Node, error) {
	node := &d.root
	for _, part := range strings.Split(key, ".") {
		child := mappingValue(node, part)
		if child == nil {
			return nil, fmt.Errorf("unknown config key %q", key)
		}
		node = child
	}
	return node, nil
}

// Get renders the value at key as YAML.
func (d *configDocument) Get(key string) (string, error) {
	node, err := d.lookup(key)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	return string(out), nil
}

// Set replaces the value at key. raw is parsed as YAML unless the current
// value is a string, in which case it is kept verbatim.
func (d *configDocument) Set(key, raw string) error {
	node, err := d.lookup(key)
	if err != nil {
		return err
	}
	*node = parseValue(raw, node)
	return nil
}

// Config decodes the tree back into a domain.Config.
func (d *configDocument) Config() (domain.Config, error) {
	var cfg domain.Config
	if err := d.root.Decode(&cfg); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func parseValue(raw string, current *yaml.Node) yaml.Node {
	literal := yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: raw}
	if current.Kind == yaml.ScalarNode && current.Tag == "!!str" {
		return literal
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil || len(doc.Content) == 0 {
		return literal
	}
	return *doc.Content[0]
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
