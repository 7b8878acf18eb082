package binstruct

import (
	"fmt"
	"strings"
)

// NameKind distinguishes textual from symbolic field names
type NameKind uint8

const (
	NoName NameKind = iota
	TextName
	SymbolName
)

// Name is a field name. Two names are equal only if kind and value match,
// so Text("size") and Sym("size") are distinct keys.
type Name struct {
	Kind  NameKind
	Value string
}

// Text returns a textual field name
func Text(s string) Name { return Name{Kind: TextName, Value: s} }

// Sym returns a symbolic field name
func Sym(s string) Name { return Name{Kind: SymbolName, Value: s} }

// IsZero reports whether the name is absent (an anonymous slot)
func (n Name) IsZero() bool { return n.Kind == NoName }

// A textual name that starts with ':' or a backslash gets a leading backslash.
// A textual name that starts with ':' or '\\' is escaped with a leading '\\'.
func (n Name) String() string {
	switch n.Kind {
	case SymbolName:
		return ":" + n.Value
	case TextName:
		if strings.HasPrefix(n.Value, ":") || strings.HasPrefix(n.Value, `\`) {
			return `\` + n.Value
		}
		return n.Value
	}
	return "~"
}

// ParseName is the inverse of String for textual and symbolic names.
func ParseName(s string) Name {
	switch {
	case strings.HasPrefix(s, `\:`), strings.HasPrefix(s, `\\`):
		return Text(s[1:])
	case len(s) > 1 && s[0] == ':':
		return Sym(s[1:])
	}
	return Text(s)
}

// RawDefinition is the flat literal form of a definition: alternating format
// strings and names. A name is nil (anonymous), a string (textual) or a Name.
//
//	binstruct.RawDefinition{"a3", "magic", "S", binstruct.Sym("width"), "C", nil}
type RawDefinition []any

// Field is one (token, name) pair of a definition
type Field struct {
	Token Token
	Name  Name
}

// Definition is a validated, immutable record layout
type Definition struct {
	fields []Field
	size   int
}

// NewDefinition validates raw and builds a Definition from it.
func NewDefinition(raw RawDefinition) (*Definition, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d elements", ErrMalformedDefinition, len(raw))
	}

	d := &Definition{fields: make([]Field, 0, len(raw)/2)}
	for i := 0; i < len(raw); i += 2 {
		format, ok := raw[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: format at %d is %T, not string", ErrMalformedDefinition, i, raw[i])
		}
		name, err := toName(raw[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: name at %d: %v", ErrMalformedDefinition, i+1, err)
		}
		tok, err := ParseToken(format)
		if err != nil {
			return nil, err
		}
		d.fields = append(d.fields, Field{Token: tok, Name: name})
		d.size += tok.Size()
		if int64(d.size) > MaxSize {
			return nil, fmt.Errorf("%w: definition spans more than %d bytes at %q", ErrInvalidCount, uint64(MaxSize), format)
		}
	}
	return d, nil
}

// MustDefinition is like NewDefinition but panics on error.
func MustDefinition(raw RawDefinition) *Definition {
	d, err := NewDefinition(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func toName(v any) (Name, error) {
	switch n := v.(type) {
	case nil:
		return Name{}, nil
	case string:
		return Text(n), nil
	case Name:
		return n, nil
	}
	return Name{}, fmt.Errorf("unsupported name type %T", v)
}

// Size is the static byte size of one record. It depends on the definition
// alone: Star fields add nothing and 'X' fields subtract.
func (d *Definition) Size() int {
	return d.size
}

// Len returns the number of fields
func (d *Definition) Len() int {
	return len(d.fields)
}

// Fields returns a copy of the fields in definition order
func (d *Definition) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Raw returns the flat literal form of the definition.
func (d *Definition) Raw() RawDefinition {
	raw := make(RawDefinition, 0, len(d.fields)*2)
	for _, f := range d.fields {
		var name any
		if !f.Name.IsZero() {
			name = f.Name
		}
		raw = append(raw, f.Token.String(), name)
	}
	return raw
}

// Equal reports element-wise, order-sensitive equality of token literals and names.
func (d *Definition) Equal(other *Definition) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.fields) != len(other.fields) {
		return false
	}
	for i, f := range d.fields {
		o := other.fields[i]
		if f.Token.literal != o.Token.literal || f.Name != o.Name {
			return false
		}
	}
	return true
}

// Format returns the concatenated token literals of one record.
func (d *Definition) Format() string {
	var b strings.Builder
	for _, f := range d.fields {
		b.WriteString(f.Token.literal)
	}
	return b.String()
}

