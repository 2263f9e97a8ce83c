package vm

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/unicode/norm"
)

// JSString is the dual-encoded string payload described in spec.md §3:
// pure-ASCII content is stored as UTF-8 (one byte per code unit, so
// `length` and byte length coincide and indexing is a plain slice), while
// any string containing a non-ASCII code point or a lone surrogate is
// upgraded to UTF-16 code-unit storage so that `length` and indexing stay
// code-unit accurate even for WTF-16 lone surrogates that UTF-8 cannot
// represent at all.
type JSString struct {
	GCHeader
	ascii string  // valid iff wide == nil
	wide  []uint16 // UTF-16 code units, including any lone surrogates
}

const smallStringCap = 16 // small-string threshold; no inline small-string storage uses it

func NewString(s string) Value {
	box := newJSString(s)
	return Value{typ: TypeString, obj: unsafe.Pointer(box)}
}

func newJSString(s string) *JSString {
	if isASCII(s) {
		return &JSString{ascii: s}
	}
	return &JSString{wide: utf16.Encode([]rune(s))}
}

// NewStringFromUTF16 builds a string directly from UTF-16 code units,
// preserving lone surrogates a compiler/host may hand in verbatim (e.g.
// from JSON.parse of a `\uD800` escape with no matching low surrogate).
func NewStringFromUTF16(units []uint16) Value {
	box := &JSString{wide: append([]uint16(nil), units...)}
	if asciiFromUTF16(units) {
		runes := make([]rune, len(units))
		for i, u := range units {
			runes[i] = rune(u)
		}
		box.ascii = string(runes)
		box.wide = nil
	}
	return Value{typ: TypeString, obj: unsafe.Pointer(box)}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func asciiFromUTF16(units []uint16) bool {
	for _, u := range units {
		if u >= 0x80 {
			return false
		}
	}
	return true
}

func (v Value) AsJSString() *JSString { return (*JSString)(v.obj) }

// Length returns the UTF-16 code-unit count, per spec.md §3.
func (s *JSString) Length() int {
	if s.wide != nil {
		return len(s.wide)
	}
	return len(s.ascii) // ASCII storage: one byte == one code unit
}

// CodeUnitAt returns the UTF-16 code unit at index i, or 0 with false if
// out of range.
func (s *JSString) CodeUnitAt(i int) (uint16, bool) {
	if i < 0 || i >= s.Length() {
		return 0, false
	}
	if s.wide != nil {
		return s.wide[i], true
	}
	return uint16(s.ascii[i]), true
}

// String renders the JS string as a Go string. Lone surrogates (which
// cannot round-trip through valid UTF-8) are replaced with U+FFFD, the
// same lossy fallback Go's own utf16.Decode uses.
func (s *JSString) String() string {
	if s.wide == nil {
		return s.ascii
	}
	return string(utf16.Decode(s.wide))
}

// Concat implements string `+`, promoting to wide storage if either side
// requires it.
func (s *JSString) Concat(other *JSString) *JSString {
	if s.wide == nil && other.wide == nil {
		return &JSString{ascii: s.ascii + other.ascii}
	}
	units := append(append([]uint16(nil), s.units()...), other.units()...)
	return &JSString{wide: units}
}

func (s *JSString) units() []uint16 {
	if s.wide != nil {
		return s.wide
	}
	return utf16.Encode([]rune(s.ascii))
}

// NormalizedNFC returns the Unicode NFC-normalized form, used by
// String.prototype.normalize and by case-insensitive identifier
// comparisons elsewhere in the engine built on this core.
func (s *JSString) NormalizedNFC() string {
	return norm.NFC.String(s.String())
}

// HasLoneSurrogate reports whether this string needs WTF-16 storage.
func (s *JSString) HasLoneSurrogate() bool {
	if s.wide == nil {
		return false
	}
	for i := 0; i < len(s.wide); i++ {
		u := s.wide[i]
		if u >= 0xD800 && u <= 0xDBFF { // high surrogate
			if i+1 >= len(s.wide) || s.wide[i+1] < 0xDC00 || s.wide[i+1] > 0xDFFF {
				return true
			}
		} else if u >= 0xDC00 && u <= 0xDFFF { // unpaired low surrogate
			if i == 0 || s.wide[i-1] < 0xD800 || s.wide[i-1] > 0xDBFF {
				return true
			}
		}
	}
	return false
}

func (s *JSString) Compare(other *JSString) int {
	return strings.Compare(s.String(), other.String())
}
