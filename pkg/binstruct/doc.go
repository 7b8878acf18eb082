// Package binstruct provides declarative encoding and decoding of fixed
// binary record layouts.
//
// A layout is written as a flat list of format/name pairs, much like a C
// struct written in a tiny string language:
//
//	gifHeader := binstruct.Must(binstruct.RawDefinition{
//	    "a3", "magic",
//	    "a3", "version",
//	    "S",  "width",
//	    "S",  "height",
//	    "a",  "flags",
//	    "C",  "bg_color_index",
//	    "C",  "pixel_aspect_ratio",
//	})
//
// # Format Tokens
//
// Each format is <type><modifier?><count?>:
//
//	A  byte string, space padded; trailing NULs and spaces removed on decode
//	a  byte string, NUL padded; nothing removed on decode
//	Z  byte string, NUL padded; trailing NULs removed on decode
//	C  c   8-bit unsigned / signed integer
//	S  s  16-bit unsigned / signed integer, native byte order
//	I  i  32-bit unsigned / signed integer, native byte order
//	L  l  32-bit unsigned / signed integer, native byte order
//	Q  q  64-bit unsigned / signed integer, native byte order
//	n  N  16 / 32-bit unsigned integer, big endian (network order)
//	v  V  16 / 32-bit unsigned integer, little endian
//	x     skip forward one byte
//	X     skip back one byte
//
// The modifiers '<' (little endian) and '>' (big endian) are accepted on
// S s I i L l Q q only. The count is empty (1), a decimal number, or '*'
// (all remaining data). The bit, hex, float, pointer, UTF-8, BER and
// encoded-string formats of the same family are recognized but rejected with
// ErrUnsupportedFormat.
//
// # Size
//
// Size is a static property of the definition: the sum of element size
// times count over all fields. '*' fields contribute 0 and 'X' fields
// subtract, so a layout can re-read bytes it already consumed.
//
// # Names
//
// A name is nil (an anonymous slot), a string, or a Name built with Text or
// Sym. Anonymous slots consume bytes on decode without producing a key and
// encode as "0" (strings) or 0 (integers). The directives x and X never carry
// a value, named or not.
//
// # Registry
//
// Registry caches compiled Structs by definition value. The package-level
// Sizeof, Decode, DecodeN and Encode use the Default registry:
//
//	size, err := binstruct.Sizeof(binstruct.RawDefinition{"L", "magic", "x4", nil})
//
// # Thread Safety
//
// Definitions are immutable. A Struct may be shared between goroutines as
// long as SetDefinition is not called concurrently. Registry is safe for
// concurrent use.
package binstruct
