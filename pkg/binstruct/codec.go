package binstruct

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// reader is the decode cursor. It never fails on short input: reads past the
// end come back short or empty.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

// take returns up to n bytes from the cursor and advances past them
func (r *reader) take(n int) []byte {
	if n > r.remaining() {
		n = r.remaining()
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) rewind(n int) error {
	if n > r.pos {
		return fmt.Errorf("%w: rewind %d at offset %d", ErrCursorUnderflow, n, r.pos)
	}
	r.pos -= n
	return nil
}

// writer is the encode cursor for one record. Rewinding truncates the
// output; it may not move before the start of the record.
type writer struct {
	buf   []byte
	start int
}

func (w *writer) rewind(n int) error {
	if len(w.buf)-n < w.start {
		return fmt.Errorf("%w: rewind %d at offset %d", ErrCursorUnderflow, n, len(w.buf)-w.start)
	}
	w.buf = w.buf[:len(w.buf)-n]
	return nil
}

// unpackField decodes one slot. ok is false for cursor directives, which
// never produce a value.
func unpackField(t Token, r *reader) (v any, ok bool, err error) {
	info := t.info()
	switch info.kind {
	case kindSkip:
		n := t.count.N
		if t.count.Star {
			n = r.remaining()
		}
		r.take(n)
		return nil, false, nil
	case kindRewind:
		if t.count.Star {
			return nil, false, nil
		}
		return nil, false, r.rewind(t.count.N)
	case kindString:
		n := t.count.N
		if t.count.Star {
			n = r.remaining()
		}
		return trimString(r.take(n), info.trim), true, nil
	case kindInt:
		return unpackInts(t, info, r), true, nil
	}
	return nil, false, fmt.Errorf("%w: %c", ErrUnsupportedFormat, t.typ)
}

func trimString(b []byte, rule trim) string {
	switch rule {
	case trimNUL:
		b = bytes.TrimRight(b, "\x00")
	case trimNULSpace:
		b = bytes.TrimRight(b, "\x00 ")
	}
	return string(b)
}

// unpackInts decodes a scalar for a plain token and a slice for repeated ones.
// A repeated token on short input yields only the elements the input reaches,
// a trailing partial element decoding to zero.
func unpackInts(t Token, info typeInfo, r *reader) any {
	order := t.order()
	if !t.count.Star && t.count.N == 1 {
		return readInt(r.take(info.size), info, order)
	}

	n := t.count.N
	if t.count.Star {
		n = r.remaining() / info.size
	} else if avail := (r.remaining() + info.size - 1) / info.size; n > avail {
		// Elements wholly past the end of the input are dropped.
		n = avail
	}
	if info.signed {
		out := make([]int64, n)
		for i := range out {
			out[i] = readInt(r.take(info.size), info, order).(int64)
		}
		return out
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = readInt(r.take(info.size), info, order).(uint64)
	}
	return out
}

// readInt decodes one element; a short element decodes to zero.
func readInt(b []byte, info typeInfo, order byteOrder) any {
	var u uint64
	if len(b) == info.size {
		switch info.size {
		case 1:
			u = uint64(b[0])
		case 2:
			u = uint64(order.Uint16(b))
		case 4:
			u = uint64(order.Uint32(b))
		case 8:
			u = order.Uint64(b)
		}
	}
	if !info.signed {
		return u
	}
	switch info.size {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	case 4:
		return int64(int32(u))
	}
	return int64(u)
}

// packField appends the encoding of v for token t.
func packField(w *writer, t Token, v any) error {
	info := t.info()
	switch info.kind {
	case kindSkip:
		if !t.count.Star {
			w.buf = append(w.buf, make([]byte, t.count.N)...)
		}
		return nil
	case kindRewind:
		if t.count.Star {
			return nil
		}
		return w.rewind(t.count.N)
	case kindString:
		b, err := toBytes(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, t, err)
		}
		w.buf = appendString(w.buf, b, t, info)
		return nil
	case kindInt:
		elems, err := intElements(v, t)
		if err != nil {
			return err
		}
		order := t.order()
		for _, e := range elems {
			u, err := toUint64(e)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidValue, t, err)
			}
			w.buf = appendInt(w.buf, u, info.size, order)
		}
		return nil
	}
	return fmt.Errorf("%w: %c", ErrUnsupportedFormat, t.typ)
}

func appendString(dst, b []byte, t Token, info typeInfo) []byte {
	if t.count.Star {
		dst = append(dst, b...)
		if info.trim == trimNUL {
			dst = append(dst, 0)
		}
		return dst
	}
	n := t.count.N
	if len(b) >= n {
		return append(dst, b[:n]...)
	}
	dst = append(dst, b...)
	for i := len(b); i < n; i++ {
		dst = append(dst, info.pad)
	}
	return dst
}

func appendInt(dst []byte, u uint64, size int, order byteOrder) []byte {
	switch size {
	case 1:
		return append(dst, byte(u))
	case 2:
		return order.AppendUint16(dst, uint16(u))
	case 4:
		return order.AppendUint32(dst, uint32(u))
	}
	return order.AppendUint64(dst, u)
}

// intElements expands the value of an integer slot into its elements.
// A plain token takes one scalar; repeated tokens take a slice.
func intElements(v any, t Token) ([]any, error) {
	if !t.count.Star && t.count.N == 1 {
		return []any{v}, nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		if t.count.Star {
			return []any{v}, nil
		}
		return nil, fmt.Errorf("%w: %s wants %d elements, got %T", ErrInvalidValue, t, t.count.N, v)
	}

	n := rv.Len()
	if !t.count.Star {
		if n < t.count.N {
			return nil, fmt.Errorf("%w: %s wants %d elements, got %d", ErrInvalidValue, t, t.count.N, n)
		}
		n = t.count.N
	}
	out := make([]any, n)
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func toBytes(v any) ([]byte, error) {
	switch s := v.(type) {
	case string:
		return []byte(s), nil
	case []byte:
		return s, nil
	}
	return nil, fmt.Errorf("want string or []byte, got %T", v)
}

// toUint64 converts any Go integer to its two's complement bit pattern.
func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case int:
		return uint64(n), nil
	case int8:
		return uint64(n), nil
	case int16:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uintptr:
		return uint64(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		if n < 0 {
			return uint64(int64(n)), nil
		}
		return uint64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return uint64(i), nil
		}
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s is not an integer", n)
		}
		return u, nil
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}
