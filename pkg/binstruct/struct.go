package binstruct

import (
	"fmt"
	"iter"
	"sync"
)

// Record maps field names to values. Integers decode as uint64 or int64
// (slices of those for repeated tokens) and byte strings as string.
type Record map[Name]any

// Strings returns the record keyed by bare name values.
func (r Record) Strings() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k.Value] = v
	}
	return out
}

// Struct is a codec bound to one Definition.
//
// A Struct is owned by one goroutine at a time while its definition is being
// replaced; Size, Decode, Encode and the read-only accessors are safe for
// concurrent use otherwise.
type Struct struct {
	def   *Definition
	cache *plan
}

// plan is the decode plan derived from a definition: the flat format of one
// record and the parallel name list.
type plan struct {
	once   sync.Once
	format string
	tokens []Token
	names  []Name
}

// New validates raw and returns a Struct bound to it.
func New(raw RawDefinition) (*Struct, error) {
	s := &Struct{}
	if err := s.SetDefinition(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// Must is like New but panics on error. It simplifies package-level layouts.
func Must(raw RawDefinition) *Struct {
	s, err := New(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// NewFromDefinition binds an already validated definition.
func NewFromDefinition(def *Definition) *Struct {
	return &Struct{def: def, cache: &plan{}}
}

// Clone returns a distinct Struct over the same definition. Replacing the
// definition of either leaves the other alone.
func (s *Struct) Clone() *Struct {
	return &Struct{def: s.def, cache: s.cache}
}

// SetDefinition replaces the definition and resets derived state. The
// Struct is left unchanged when raw is invalid.
func (s *Struct) SetDefinition(raw RawDefinition) error {
	def, err := NewDefinition(raw)
	if err != nil {
		return err
	}
	s.def = def
	s.cache = &plan{}
	return nil
}

// Definition returns the bound definition
func (s *Struct) Definition() *Definition {
	return s.def
}

// Size returns the static byte size of one record
func (s *Struct) Size() int {
	if s.def == nil {
		return 0
	}
	return s.def.Size()
}

// MaxRecords is the number of records that start within dataLen bytes, and
// at least one. Structs without a positive static size can only place one.
func (s *Struct) MaxRecords(dataLen int) int {
	size := s.Size()
	if size <= 0 || dataLen <= size {
		return 1
	}
	return (dataLen + size - 1) / size
}

func (s *Struct) decodePlan() (*plan, error) {
	if s.def == nil {
		return nil, fmt.Errorf("%w: no definition set", ErrMalformedDefinition)
	}
	p := s.cache
	p.once.Do(func() {
		p.format = s.def.Format()
		p.tokens = make([]Token, len(s.def.fields))
		p.names = make([]Name, len(s.def.fields))
		for i, f := range s.def.fields {
			p.tokens[i] = f.Token
			p.names[i] = f.Name
		}
	})
	return p, nil
}

// Format returns the flat format of one record, e.g. "a3a3SSaCC".
func (s *Struct) Format() string {
	p, err := s.decodePlan()
	if err != nil {
		return ""
	}
	return p.format
}

// Decode decodes one record from data. Short input is not an error:
// fields past the end of data decode to zero or the empty string.
func (s *Struct) Decode(data []byte) (Record, error) {
	recs, err := s.decode(data, 1)
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// DecodeN decodes n consecutive records from data.
func (s *Struct) DecodeN(data []byte, n int) ([]Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: record count %d", ErrInvalidCount, n)
	}
	return s.decode(data, n)
}

func (s *Struct) decode(data []byte, n int) ([]Record, error) {
	if data == nil {
		return nil, ErrNullInput
	}
	p, err := s.decodePlan()
	if err != nil {
		return nil, err
	}

	values, err := p.unpack(data, n)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, n)
	for i := range recs {
		recs[i] = p.redistribute(&values)
	}
	return recs, nil
}

// unpack runs the plan n times over one cursor and returns the flat value
// sequence: one value per non-directive slot.
func (p *plan) unpack(data []byte, n int) ([]any, error) {
	r := &reader{data: data}
	// Size the buffer by what data can fill; append grows it past that.
	hint := len(data) + len(p.tokens)
	if len(p.tokens) > 0 && n <= hint/len(p.tokens) {
		hint = n * len(p.tokens)
	}
	values := make([]any, 0, hint)
	for i := 0; i < n; i++ {
		for _, t := range p.tokens {
			v, ok, err := unpackField(t, r)
			if err != nil {
				return nil, err
			}
			if ok {
				values = append(values, v)
			}
		}
	}
	return values, nil
}

// redistribute moves one record's worth of values off the front of values.
// Directive slots take nothing even when named; anonymous slots drop theirs.
func (p *plan) redistribute(values *[]any) Record {
	rec := make(Record)
	for i, name := range p.names {
		if p.tokens[i].IsSkip() {
			continue
		}
		var v any
		if len(*values) > 0 {
			v = (*values)[0]
			*values = (*values)[1:]
		}
		if name.IsZero() {
			continue
		}
		rec[name] = v
	}
	return rec
}

// Encode encodes one record.
func (s *Struct) Encode(rec Record) ([]byte, error) {
	return s.AppendEncode(nil, rec)
}

// EncodeAll encodes recs back to back, in order.
func (s *Struct) EncodeAll(recs []Record) ([]byte, error) {
	var out []byte
	for _, rec := range recs {
		var err error
		if out, err = s.AppendEncode(out, rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AppendEncode appends the encoding of rec to dst. Named fields must be
// present in rec; anonymous fields are filled with "0" or 0.
func (s *Struct) AppendEncode(dst []byte, rec Record) ([]byte, error) {
	if s.def == nil {
		return nil, fmt.Errorf("%w: no definition set", ErrMalformedDefinition)
	}
	w := &writer{buf: dst, start: len(dst)}
	for _, f := range s.def.fields {
		var v any
		switch {
		case f.Token.IsSkip():
		case !f.Name.IsZero():
			val, ok := rec[f.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingField, f.Name)
			}
			v = val
		default:
			v = filler(f.Token)
		}
		if err := packField(w, f.Token, v); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return w.buf, nil
}

// filler is the value encoded for an anonymous slot
func filler(t Token) any {
	if t.IsString() {
		return "0"
	}
	if !t.count.Star && t.count.N != 1 {
		return make([]int, t.count.N)
	}
	return 0
}

// Equal reports whether both structs have element-wise equal definitions.
func (s *Struct) Equal(other *Struct) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.def.Equal(other.def)
}

// All returns the (token, name) pairs of the definition in order. The
// sequence can be ranged over any number of times.
func (s *Struct) All() iter.Seq2[Token, Name] {
	return func(yield func(Token, Name) bool) {
		if s.def == nil {
			return
		}
		for _, f := range s.def.fields {
			if !yield(f.Token, f.Name) {
				return
			}
		}
	}
}

// RecordFrom builds a Record for s from a map keyed by bare name values.
// Keys that match no field are ignored.
func (s *Struct) RecordFrom(m map[string]any) Record {
	rec := make(Record, len(m))
	for _, name := range s.Names() {
		if v, ok := m[name.Value]; ok {
			rec[name] = v
		}
	}
	return rec
}

// Names returns the names of value-carrying fields, in order.
func (s *Struct) Names() []Name {
	var names []Name
	for t, n := range s.All() {
		if n.IsZero() || t.IsSkip() {
			continue
		}
		names = append(names, n)
	}
	return names
}
