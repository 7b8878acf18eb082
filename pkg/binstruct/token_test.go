package binstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken_Valid(t *testing.T) {
	testCases := []struct {
		format   string
		typ      byte
		endian   Endian
		count    Count
		size     int
		isSkip   bool
		isString bool
	}{
		{format: "C", typ: 'C', count: Count{N: 1}, size: 1},
		{format: "a0", typ: 'a', count: Count{N: 0}, size: 0, isString: true},
		{format: "a3", typ: 'a', count: Count{N: 3}, size: 3, isString: true},
		{format: "A12", typ: 'A', count: Count{N: 12}, size: 12, isString: true},
		{format: "Z*", typ: 'Z', count: Count{Star: true}, size: 0, isString: true},
		{format: "S", typ: 'S', count: Count{N: 1}, size: 2},
		{format: "s<", typ: 's', endian: EndianLittle, count: Count{N: 1}, size: 2},
		{format: "L>", typ: 'L', endian: EndianBig, count: Count{N: 1}, size: 4},
		{format: "Q>2", typ: 'Q', endian: EndianBig, count: Count{N: 2}, size: 16},
		{format: "Q<2", typ: 'Q', endian: EndianLittle, count: Count{N: 2}, size: 16},
		{format: "i>*", typ: 'i', endian: EndianBig, count: Count{Star: true}, size: 0},
		{format: "N", typ: 'N', count: Count{N: 1}, size: 4},
		{format: "n2", typ: 'n', count: Count{N: 2}, size: 4},
		{format: "V", typ: 'V', count: Count{N: 1}, size: 4},
		{format: "v", typ: 'v', count: Count{N: 1}, size: 2},
		{format: "x4", typ: 'x', count: Count{N: 4}, size: 4, isSkip: true},
		{format: "X", typ: 'X', count: Count{N: 1}, size: -1, isSkip: true},
		{format: "X3", typ: 'X', count: Count{N: 3}, size: -3, isSkip: true},
		{format: "a4294967295", typ: 'a', count: Count{N: 4294967295}, size: 4294967295, isString: true},
		{format: "Q536870911", typ: 'Q', count: Count{N: 536870911}, size: 4294967288},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			tok, err := ParseToken(tc.format)
			require.NoError(t, err)

			assert.Equal(t, tc.format, tok.String())
			assert.Equal(t, tc.typ, tok.Type())
			assert.Equal(t, tc.endian, tok.Endian())
			assert.Equal(t, tc.count, tok.Count())
			assert.Equal(t, tc.size, tok.Size())
			assert.Equal(t, tc.isSkip, tok.IsSkip())
			assert.Equal(t, tc.isString, tok.IsString())
		})
	}
}

func TestParseToken_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		format string
		want   error
	}{
		{"empty", "", ErrUnrecognizedFormat},
		{"unrecognized format", "D", ErrUnrecognizedFormat},
		{"unrecognized big endian format", "Y>", ErrUnrecognizedFormat},
		{"unrecognized little endian format", "Y<", ErrUnrecognizedFormat},
		{"unsupported utf8", "U", ErrUnsupportedFormat},
		{"unsupported bits", "b5", ErrUnsupportedFormat},
		{"unsupported hex", "H2", ErrUnsupportedFormat},
		{"unsupported double", "E", ErrUnsupportedFormat},
		{"unsupported pointer", "p", ErrUnsupportedFormat},
		{"unsupported base64", "m", ErrUnsupportedFormat},
		{"unsupported ber", "w", ErrUnsupportedFormat},
		{"negative count", "a-1", ErrInvalidCount},
		{"non-numeric count", "aX", ErrInvalidCount},
		{"trailing junk", "S2x", ErrInvalidCount},
		{"double modifier", "Q<>", ErrInvalidCount},
		{"string wider than 32 bits", "a4294967296", ErrInvalidCount},
		{"quad count overflows size", "Q2305843009213693952", ErrInvalidCount},
		{"huge quad count", "Q4611686018427387904", ErrInvalidCount},
		{"huge skip", "x4611686018427387904", ErrInvalidCount},
		{"huge rewind", "X4294967296", ErrInvalidCount},
		{"count beyond int", "C99999999999999999999999", ErrInvalidCount},
		{"big endian on string", "A>", ErrUnsupportedAttribute},
		{"little endian on string", "A<", ErrUnsupportedAttribute},
		{"endian on byte", "C>", ErrUnsupportedAttribute},
		{"endian on network order", "N<", ErrUnsupportedAttribute},
		{"endian on little endian type", "v>", ErrUnsupportedAttribute},
		{"invalid modifier", "Q_", ErrInvalidModifier},
		{"invalid bang modifier", "S!", ErrInvalidModifier},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.format)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestToken_Order(t *testing.T) {
	assert.Equal(t, "BigEndian", MustParseToken("N").order().String())
	assert.Equal(t, "BigEndian", MustParseToken("n").order().String())
	assert.Equal(t, "LittleEndian", MustParseToken("V").order().String())
	assert.Equal(t, "LittleEndian", MustParseToken("v").order().String())
	assert.Equal(t, "BigEndian", MustParseToken("L>").order().String())
	assert.Equal(t, "LittleEndian", MustParseToken("q<").order().String())
	assert.Equal(t, "NativeEndian", MustParseToken("S").order().String())
}

func TestMustParseToken_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseToken("D") })
}
