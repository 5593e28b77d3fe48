package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Document is a flattened view of a configuration document, mapping
// dotted keys such as sarsa.epsilon.start to scalar values. Lists are
// stored as []interface{}.
type Document map[string]interface{}

// Flatten parses data as YAML and returns its flattened view
func Flatten(data []byte) (Document, error) {
	root, err := parseNode(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	doc := make(Document)
	if err := flatten(root, "", doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return doc, nil
}

// Get returns the value stored under key
func (d Document) Get(key string) (interface{}, bool) {
	v, ok := d[key]
	return v, ok
}

// Keys returns the keys of the document in sorted order
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseNode parses data into the mapping node at the document root
func parseNode(data []byte) (*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	node := root.Content[0]
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: document root must be a mapping",
			node.Line)
	}
	return node, nil
}

func flatten(node *yaml.Node, prefix string, doc Document) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(node.Content[i+1], key, doc); err != nil {
				return err
			}
		}

	case yaml.AliasNode:
		return flatten(node.Alias, prefix, doc)

	default:
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %v: %w", node.Line, prefix, err)
		}
		doc[prefix] = v
	}
	return nil
}
