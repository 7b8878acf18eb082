// Package catalog loads named binstruct definitions from YAML documents.
//
// A catalog document maps struct names to lists of [format, name] pairs:
//
//	structs:
//	  gif_header:
//	    - [a3, magic]
//	    - [S, width]
//	    - [C, ~]         # anonymous
//	    - [L<, ":size"]  # leading ':' marks a symbolic name
//	    - [C, '\:flags'] # leading backslash keeps a textual ":flags"
//
// Definitions are validated when the catalog is loaded, so a Catalog never
// holds a definition that fails to compile.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/binstruct/pkg/binstruct"
)

// ErrStructNotFound is returned when a catalog has no struct by the requested name
var ErrStructNotFound = errors.New("struct not found")

// Catalog is an ordered set of named definitions
type Catalog struct {
	registry *binstruct.Registry
	names    []string
	raws     map[string]binstruct.RawDefinition
}

// Option configures a Catalog
type Option func(*Catalog)

// WithRegistry compiles definitions through r instead of binstruct.Default
func WithRegistry(r *binstruct.Registry) Option {
	return func(c *Catalog) {
		if r != nil {
			c.registry = r
		}
	}
}

type document struct {
	Structs yaml.Node `yaml:"structs"`
}

// New returns an empty catalog
func New(opts ...Option) *Catalog {
	c := &Catalog{
		registry: binstruct.Default,
		raws:     make(map[string]binstruct.RawDefinition),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads and parses the catalog at path
func Load(path string, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, opts...)
}

// Parse parses a catalog document. Struct order follows the document.
func Parse(data []byte, opts ...Option) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := New(opts...)
	if doc.Structs.Kind == 0 {
		return c, nil
	}
	if doc.Structs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: structs must be a mapping", doc.Structs.Line)
	}

	content := doc.Structs.Content
	for i := 0; i+1 < len(content); i += 2 {
		key, value := content[i], content[i+1]

		var fields [][]*string
		if err := value.Decode(&fields); err != nil {
			return nil, fmt.Errorf("line %d: struct %q: %w", value.Line, key.Value, err)
		}

		raw, err := rawDefinition(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: struct %q: %w", value.Line, key.Value, err)
		}
		if err := c.Add(key.Value, raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	return c, nil
}

func rawDefinition(fields [][]*string) (binstruct.RawDefinition, error) {
	raw := make(binstruct.RawDefinition, 0, len(fields)*2)
	for i, f := range fields {
		if len(f) != 2 || f[0] == nil {
			return nil, fmt.Errorf("%w: field %d must be [format, name]", binstruct.ErrMalformedDefinition, i)
		}
		var name any
		if f[1] != nil {
			name = binstruct.ParseName(*f[1])
		}
		raw = append(raw, *f[0], name)
	}
	return raw, nil
}

// Add validates raw and stores it under name
func (c *Catalog) Add(name string, raw binstruct.RawDefinition) error {
	if name == "" {
		return fmt.Errorf("%w: empty struct name", binstruct.ErrMalformedDefinition)
	}
	if _, exists := c.raws[name]; exists {
		return fmt.Errorf("duplicate struct %q", name)
	}
	if _, err := c.registry.Struct(raw); err != nil {
		return fmt.Errorf("struct %q: %w", name, err)
	}
	c.names = append(c.names, name)
	c.raws[name] = raw
	return nil
}

// Names returns struct names in document order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of structs
func (c *Catalog) Len() int {
	return len(c.names)
}

// Lookup returns the compiled struct for name
func (c *Catalog) Lookup(name string) (*binstruct.Struct, error) {
	raw, ok := c.raws[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStructNotFound, name)
	}
	return c.registry.Struct(raw)
}

// Raw returns the flat definition stored under name
func (c *Catalog) Raw(name string) (binstruct.RawDefinition, bool) {
	raw, ok := c.raws[name]
	return raw, ok
}
