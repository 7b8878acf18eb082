package binstruct

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry caches compiled Structs by the structural value of their raw
// definition, so equal definitions built in different places share one Struct.
type Registry struct {
	mu      sync.RWMutex
	structs map[string]*Struct
	logger  *zap.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithLogger sets the logger used for cache activity. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		structs: make(map[string]*Struct),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the process-wide registry behind Sizeof, Decode, DecodeN and Encode.
var Default = NewRegistry()

// Struct returns a Struct for raw, validating and building it on first use.
// Every call returns a fresh Struct over the shared cached definition, so
// SetDefinition on the result never reaches the cache.
func (r *Registry) Struct(raw RawDefinition) (*Struct, error) {
	key, ok := rawKey(raw)
	if !ok {
		// Let validation report what is wrong with it.
		_, err := NewDefinition(raw)
		return nil, err
	}

	r.mu.RLock()
	s, found := r.structs[key]
	r.mu.RUnlock()
	if found {
		return s.Clone(), nil
	}

	s, err := New(raw)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, found := r.structs[key]; found {
		return existing.Clone(), nil
	}
	r.structs[key] = s
	r.logger.Debug("compiled struct definition",
		zap.String("format", s.Format()),
		zap.Int("size", s.Size()),
		zap.Int("cached", len(r.structs)))
	return s.Clone(), nil
}

// Len returns the number of cached definitions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.structs)
}

// Clear empties the registry. Lookups racing with Clear may rebuild an entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	n := len(r.structs)
	r.structs = make(map[string]*Struct)
	r.mu.Unlock()
	r.logger.Debug("cleared struct registry", zap.Int("evicted", n))
}

// rawKey encodes raw canonically. ok is false when raw cannot be a valid
// definition.
func rawKey(raw RawDefinition) (string, bool) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < len(raw); i += 2 {
		format, ok := raw[i].(string)
		if !ok {
			return "", false
		}
		name, err := toName(raw[i+1])
		if err != nil {
			return "", false
		}
		writeKeyPart(&b, format)
		b.WriteByte(byte('0' + name.Kind))
		writeKeyPart(&b, name.Value)
	}
	return b.String(), true
}

func writeKeyPart(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

type registryKey struct{}

// WithRegistry returns a context carrying r
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// RegistryFrom returns the registry carried by ctx, or Default.
func RegistryFrom(ctx context.Context) *Registry {
	if r, ok := ctx.Value(registryKey{}).(*Registry); ok && r != nil {
		return r
	}
	return Default
}

// Sizeof returns the size of raw using the Default registry.
func Sizeof(raw RawDefinition) (int, error) {
	s, err := Default.Struct(raw)
	if err != nil {
		return 0, err
	}
	return s.Size(), nil
}

// Decode decodes one record of raw from data using the Default registry.
func Decode(raw RawDefinition, data []byte) (Record, error) {
	s, err := Default.Struct(raw)
	if err != nil {
		return nil, err
	}
	return s.Decode(data)
}

// DecodeN decodes n records of raw from data using the Default registry.
func DecodeN(raw RawDefinition, data []byte, n int) ([]Record, error) {
	s, err := Default.Struct(raw)
	if err != nil {
		return nil, err
	}
	return s.DecodeN(data, n)
}

// Encode encodes rec as raw using the Default registry.
func Encode(raw RawDefinition, rec Record) ([]byte, error) {
	s, err := Default.Struct(raw)
	if err != nil {
		return nil, err
	}
	return s.Encode(rec)
}
