// Package answers loads a YAML file of preseeded prompt answers.
//
// The file is a flat mapping from field key to scalar value:
//
//	controller_addr: 192.168.1.10
//	network_count: 8
//	db_password: s3cret
//
// Values are returned verbatim; validation is left to the collector.
package answers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Answers maps normalized field keys to their preseeded values.
type Answers struct {
	values map[string]string
}

// Load reads the answers file at path.
func Load(path string) (*Answers, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	defer f.Close()

	a, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("answers: %s: %w", path, err)
	}
	return a, nil
}

// Parse decodes an answers document. An empty document yields no answers.
func Parse(r io.Reader) (*Answers, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Answers{values: map[string]string{}}, nil
		}
		return nil, err
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}

	values := make(map[string]string, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: value of %q must be a scalar", v.Line, k.Value)
		}
		key := NormalizeKey(k.Value)
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		values[key] = v.Value
	}
	return &Answers{values: values}, nil
}

// NormalizeKey lowercases key and maps dashes to underscores.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// Lookup returns the preseeded value for key. A nil receiver has no
// answers.
func (a *Answers) Lookup(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.values[NormalizeKey(key)]
	return v, ok
}

// Len returns the number of preseeded answers.
func (a *Answers) Len() int {
	if a == nil {
		return 0
	}
	return len(a.values)
}
