// Package storage persists encoded binstruct records in a pebble database.
//
// Records are grouped by struct name. Each record is stored under
// "<struct>/<ksuid>", so records of one struct list in creation order.
// Values are framed with a checksummed header and validated on read.
package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// ErrRecordNotFound is returned when no record exists for a struct and id
var ErrRecordNotFound = errors.New("record not found")

const keySeparator = '/'

// RecordStore is a pebble-backed store of encoded records
type RecordStore struct {
	db     *pebble.DB
	logger *zap.Logger
	sync   bool
}

// Option configures a RecordStore
type Option func(*RecordStore)

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *RecordStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSync makes every write durable before it returns
func WithSync(sync bool) Option {
	return func(s *RecordStore) {
		s.sync = sync
	}
}

// NewRecordStore opens or creates the database at path
func NewRecordStore(path string, opts ...Option) (*RecordStore, error) {
	s := &RecordStore{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	s.db = db
	s.logger.Debug("opened record store", zap.String("path", path))
	return s, nil
}

func (s *RecordStore) writeOptions() *pebble.WriteOptions {
	if s.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func structPrefix(structName string) []byte {
	prefix := make([]byte, 0, len(structName)+1)
	prefix = append(prefix, structName...)
	return append(prefix, keySeparator)
}

func recordKey(structName string, id ksuid.KSUID) []byte {
	return append(structPrefix(structName), id.Bytes()...)
}

func validateStructName(structName string) error {
	if structName == "" {
		return errors.New("struct name is required")
	}
	return nil
}

// Create stores data as a new record of structName and returns its id
func (s *RecordStore) Create(structName string, data []byte) (ksuid.KSUID, error) {
	if err := validateStructName(structName); err != nil {
		return ksuid.Nil, err
	}
	value, err := newEnvelope(data).marshal()
	if err != nil {
		return ksuid.Nil, fmt.Errorf("failed to create record: %w", err)
	}
	id := ksuid.New()
	if err := s.db.Set(recordKey(structName, id), value, s.writeOptions()); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to create record: %w", err)
	}
	s.logger.Debug("created record",
		zap.String("struct", structName),
		zap.Stringer("id", id),
		zap.Int("bytes", len(data)))
	return id, nil
}

// Read returns a copy of the record's encoded bytes
func (s *RecordStore) Read(structName string, id ksuid.KSUID) ([]byte, error) {
	data, closer, err := s.db.Get(recordKey(structName, id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, structName, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	defer closer.Close()

	e, err := unmarshalEnvelope(data)
	if err != nil {
		s.logger.Warn("stored record failed validation",
			zap.String("struct", structName),
			zap.Stringer("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read record %s/%s: %w", structName, id, err)
	}
	out := make([]byte, len(e.Data))
	copy(out, e.Data)
	return out, nil
}

func (s *RecordStore) exists(key []byte) (bool, error) {
	_, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

// Update replaces the bytes of an existing record
func (s *RecordStore) Update(structName string, id ksuid.KSUID, data []byte) error {
	key := recordKey(structName, id)
	ok, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, structName, id)
	}
	value, err := newEnvelope(data).marshal()
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if err := s.db.Set(key, value, s.writeOptions()); err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

// Delete removes a record
func (s *RecordStore) Delete(structName string, id ksuid.KSUID) error {
	key := recordKey(structName, id)
	ok, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, structName, id)
	}
	if err := s.db.Delete(key, s.writeOptions()); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	s.logger.Debug("deleted record", zap.String("struct", structName), zap.Stringer("id", id))
	return nil
}

// List returns the ids of structName's records in ksuid order
func (s *RecordStore) List(structName string) ([]ksuid.KSUID, error) {
	prefix := structPrefix(structName)
	upper := append(bytes.Clone(prefix[:len(prefix)-1]), keySeparator+1)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer iter.Close()

	var ids []ksuid.KSUID
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		// Skip records of a struct whose name extends this one past the separator.
		if len(key) != len(prefix)+len(ksuid.Nil) {
			continue
		}
		id, err := ksuid.FromBytes(key[len(prefix):])
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}
		ids = append(ids, id)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return ids, nil
}

// Close flushes and closes the database
func (s *RecordStore) Close() error {
	return s.db.Close()
}
