// Package interchange converts decoded records to and from JSON and CBOR.
//
// Records are exchanged as objects keyed by bare field names. Byte string
// values that are not valid UTF-8 are carried as byte strings: a CBOR byte
// string, or base64 text in JSON.
package interchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/ssargent/binstruct/pkg/binstruct"
)

// ContentTypeCBOR is the media type of CBOR encoded record lists
const ContentTypeCBOR = "application/cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding: sorted keys, smallest integers.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("interchange: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("interchange: CBOR decoder initialization failed: " + err.Error())
	}
}

// ToMap converts rec to a map keyed by bare field names.
func ToMap(rec binstruct.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for name, v := range rec {
		if s, ok := v.(string); ok && !utf8.ValidString(s) {
			v = []byte(s)
		}
		out[name.Value] = v
	}
	return out
}

// FromMap builds a record for s from a map keyed by bare field names.
// Every value-carrying field of s must be present; extra keys are ignored.
func FromMap(s *binstruct.Struct, m map[string]any) (binstruct.Record, error) {
	for _, name := range s.Names() {
		if _, ok := m[name.Value]; !ok {
			return nil, fmt.Errorf("%w: %s", binstruct.ErrMissingField, name)
		}
	}
	return s.RecordFrom(m), nil
}

// MarshalJSON encodes recs as a JSON array of objects
func MarshalJSON(recs []binstruct.Record) ([]byte, error) {
	maps := make([]map[string]any, len(recs))
	for i, rec := range recs {
		maps[i] = ToMap(rec)
	}
	return json.Marshal(maps)
}

// UnmarshalJSON decodes a JSON object or array of objects into records for s.
// Numbers are kept exact, so 64-bit values survive the trip.
func UnmarshalJSON(s *binstruct.Struct, data []byte) ([]binstruct.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		data = append(append([]byte{'['}, data...), ']')
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var maps []map[string]any
	if err := dec.Decode(&maps); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return fromMaps(s, maps)
}

// MarshalCBOR encodes recs as a deterministic CBOR array of maps
func MarshalCBOR(recs []binstruct.Record) ([]byte, error) {
	maps := make([]map[string]any, len(recs))
	for i, rec := range recs {
		maps[i] = ToMap(rec)
	}
	return encMode.Marshal(maps)
}

// UnmarshalCBOR decodes a CBOR array of maps into records for s
func UnmarshalCBOR(s *binstruct.Struct, data []byte) ([]binstruct.Record, error) {
	var maps []map[string]any
	if err := decMode.Unmarshal(data, &maps); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return fromMaps(s, maps)
}

func fromMaps(s *binstruct.Struct, maps []map[string]any) ([]binstruct.Record, error) {
	recs := make([]binstruct.Record, len(maps))
	for i, m := range maps {
		rec, err := FromMap(s, m)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		recs[i] = rec
	}
	return recs, nil
}
