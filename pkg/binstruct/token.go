package binstruct

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Endian selects the byte order of an integer field
type Endian uint8

const (
	EndianNative Endian = iota // host byte order
	EndianLittle               // '<' modifier
	EndianBig                  // '>' modifier
)

func (e Endian) String() string {
	switch e {
	case EndianLittle:
		return "little"
	case EndianBig:
		return "big"
	default:
		return "native"
	}
}

// Count is the repeat count of a format token
type Count struct {
	N    int  // Fixed count, meaningless when Star is set
	Star bool // '*': all remaining data
}

func (c Count) String() string {
	if c.Star {
		return "*"
	}
	return strconv.Itoa(c.N)
}

// kind is the codec variant a type character dispatches to
type kind uint8

const (
	kindUnknown kind = iota
	kindUnsupported
	kindString
	kindInt
	kindSkip
	kindRewind
)

// trim is the decode-side trimming rule of a string type
type trim uint8

const (
	trimNone trim = iota
	trimNUL
	trimNULSpace
)

type typeInfo struct {
	kind   kind
	size   int
	signed bool
	fixed  Endian // EndianNative unless the type has an inherent byte order
	endian bool   // accepts an endian modifier
	pad    byte
	trim   trim
}

var typeTable [256]typeInfo

func init() {
	strs := []struct {
		typ  byte
		pad  byte
		trim trim
	}{
		{'A', ' ', trimNULSpace},
		{'a', 0, trimNone},
		{'Z', 0, trimNUL},
	}
	for _, s := range strs {
		typeTable[s.typ] = typeInfo{kind: kindString, size: 1, pad: s.pad, trim: s.trim}
	}

	ints := []struct {
		typ    byte
		size   int
		signed bool
		fixed  Endian
		endian bool
	}{
		{'C', 1, false, EndianNative, false},
		{'c', 1, true, EndianNative, false},
		{'S', 2, false, EndianNative, true},
		{'s', 2, true, EndianNative, true},
		{'I', 4, false, EndianNative, true},
		{'i', 4, true, EndianNative, true},
		{'L', 4, false, EndianNative, true},
		{'l', 4, true, EndianNative, true},
		{'Q', 8, false, EndianNative, true},
		{'q', 8, true, EndianNative, true},
		{'n', 2, false, EndianBig, false},
		{'N', 4, false, EndianBig, false},
		{'v', 2, false, EndianLittle, false},
		{'V', 4, false, EndianLittle, false},
	}
	for _, i := range ints {
		typeTable[i.typ] = typeInfo{kind: kindInt, size: i.size, signed: i.signed, fixed: i.fixed, endian: i.endian}
	}

	typeTable['x'] = typeInfo{kind: kindSkip, size: 1}
	typeTable['X'] = typeInfo{kind: kindRewind, size: -1}

	// Recognized, but bit, float, pointer and encoded-string formats have no
	// fixed element size and are not implemented.
	for _, c := range []byte("BbEeGgHhMmPpUuw") {
		typeTable[c] = typeInfo{kind: kindUnsupported}
	}
}

// MaxSize bounds the byte size of a token and of a whole definition.
const MaxSize = math.MaxUint32

// Token is one parsed format token: <type><modifier?><count?>
type Token struct {
	literal string
	typ     byte
	endian  Endian
	count   Count
}

// ParseToken parses and validates a single format token such as "a3", "Q>" or "S*".
func ParseToken(format string) (Token, error) {
	if format == "" {
		return Token{}, fmt.Errorf("%w: empty format", ErrUnrecognizedFormat)
	}

	typ := format[0]
	info := typeTable[typ]
	switch info.kind {
	case kindUnknown:
		return Token{}, fmt.Errorf("%w: %c", ErrUnrecognizedFormat, typ)
	case kindUnsupported:
		return Token{}, fmt.Errorf("%w: %c", ErrUnsupportedFormat, typ)
	}

	t := Token{literal: format, typ: typ}
	rest := format[1:]
	if rest != "" {
		switch c := rest[0]; {
		case c == '<' || c == '>':
			if !info.endian {
				return Token{}, fmt.Errorf("%w: %c for endian modifier %c", ErrUnsupportedAttribute, typ, c)
			}
			t.endian = EndianLittle
			if c == '>' {
				t.endian = EndianBig
			}
			rest = rest[1:]
		case isModifier(c):
			return Token{}, fmt.Errorf("%w: %c in %q", ErrInvalidModifier, c, format)
		}
	}

	count, err := parseCount(rest)
	if err != nil {
		return Token{}, err
	}
	if elem := abs(info.size); !count.Star && elem > 0 && uint64(count.N) > MaxSize/uint64(elem) {
		return Token{}, fmt.Errorf("%w: %q spans more than %d bytes", ErrInvalidCount, format, uint64(MaxSize))
	}
	t.count = count
	return t, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// isModifier reports whether c sits in modifier position: punctuation other
// than the count characters. Letters and signs are read as (bad) counts.
func isModifier(c byte) bool {
	switch {
	case c == '*', c == '-', c == '+':
		return false
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return false
	}
	return c > ' ' && c < 0x7f
}

func parseCount(s string) (Count, error) {
	switch s {
	case "":
		return Count{N: 1}, nil
	case "*":
		return Count{Star: true}, nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Count{}, fmt.Errorf("%w: %s", ErrInvalidCount, s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Count{}, fmt.Errorf("%w: %s", ErrInvalidCount, s)
	}
	return Count{N: n}, nil
}

// MustParseToken is like ParseToken but panics on error.
func MustParseToken(format string) Token {
	t, err := ParseToken(format)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the token literal
func (t Token) String() string { return t.literal }

// Type returns the type character
func (t Token) Type() byte { return t.typ }

// Endian returns the explicit endian modifier, EndianNative when absent
func (t Token) Endian() Endian { return t.endian }

// Count returns the repeat count
func (t Token) Count() Count { return t.count }

// ElementSize returns the byte size of one element; -1 for 'X'.
func (t Token) ElementSize() int { return typeTable[t.typ].size }

// Size returns the static byte contribution of the token. Star counts
// contribute nothing, whatever they consume at runtime.
func (t Token) Size() int {
	if t.count.Star {
		return 0
	}
	return t.ElementSize() * t.count.N
}

// IsSkip reports whether the token is a cursor directive ('x' or 'X')
func (t Token) IsSkip() bool {
	k := typeTable[t.typ].kind
	return k == kindSkip || k == kindRewind
}

// IsString reports whether the token is a byte string format
func (t Token) IsString() bool {
	return typeTable[t.typ].kind == kindString
}

func (t Token) info() typeInfo {
	return typeTable[t.typ]
}

// order resolves the byte order of an integer token.
func (t Token) order() byteOrder {
	e := t.info().fixed
	if e == EndianNative {
		e = t.endian
	}
	switch e {
	case EndianLittle:
		return binary.LittleEndian
	case EndianBig:
		return binary.BigEndian
	default:
		return binary.NativeEndian
	}
}
