// Package unicodedata is the text-analysis collaborator: Unicode
// script/bidi analysis, assumed provided by a caller-supplied
// collaborator rather than built into the core shaping driver. It
// supplies the minimal per-codepoint properties the shape pipeline
// driver needs to seed a buffer.Buffer and choose a shaping direction:
// bidi class, joining type (the binary transparent/non-transparent
// distinction package aat's kerning passes key on), and shape/char
// class (base vs combining mark).
//
// Grounded on npillmayer-opentype/otshape's use of
// golang.org/x/text/unicode/bidi for direction (Params.Direction
// bidi.Direction), the one dependency the broader pack agrees on for
// this job.
package unicodedata

import (
	"sort"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/bidi"

	"github.com/kirawi/shapecore/buffer"
)

// BidiClass returns r's bidirectional character type.
func BidiClass(r rune) bidi.Class {
	p, _ := bidi.LookupRune(r)
	return p.Class()
}

// IsRTLClass reports whether class is one of the right-to-left
// directional types (R, AL) bidi.LookupRune can return, the condition
// a caller seeding Buffer.IsRTL checks per codepoint or per run.
func IsRTLClass(c bidi.Class) bool {
	return c == bidi.R || c == bidi.AL
}

// JoiningType returns buffer.TransparentJoiningType for codepoints the
// legacy kerning passes must skip over (combining marks and
// default-ignorable format controls), and 0 otherwise. This is a
// deliberate scope cut from full five-value Arabic joining-type
// classification (U/R/D/T/C): the only use of joining type in this
// module is the binary "skip for kerning iteration" test in the
// classic-kern and kerx format-0/format-1 passes, so a finer
// classification has no consumer here and is not built.
func JoiningType(r rune) uint8 {
	if isTransparent(r) {
		return buffer.TransparentJoiningType
	}
	return 0
}

func isTransparent(r rune) bool {
	switch {
	case unicode.Is(unicode.Mn, r), unicode.Is(unicode.Me, r):
		return true
	case unicode.Is(unicode.Cf, r):
		return true
	}
	return false
}

// ShapeClass returns the buffer.ShapeClass a freshly seeded glyph
// should carry: Mark for combining characters, Base otherwise.
// Ligature and Component are never produced here — those are assigned
// later, by morx ligature/insertion passes mutating the buffer in
// place (package aat), not by text analysis.
func ShapeClass(r rune) buffer.ShapeClass {
	if isTransparent(r) {
		return buffer.ShapeClassMark
	}
	return buffer.ShapeClassBase
}

// CharClass returns the AAT-facing character class findBase
// (package aat) keys on: CharClassBase for ordinary codepoints,
// CharClassMark for combining marks. This mirrors ShapeClass's
// base/mark split rather than introducing a separate taxonomy, since
// the only consumer of char_class in this module (classic kern
// format-1 mark attachment's base search) needs exactly that
// distinction.
func CharClass(r rune) buffer.CharClass {
	if isTransparent(r) {
		return buffer.CharClassMark
	}
	return buffer.CharClassBase
}

// Script returns r's Unicode script, looked up against
// language.ScriptRanges (the same sorted rune-range table
// fontscan/rune_coverage.go's scriptsFromRanges walks for a whole
// coverage set; here a single rune only needs one binary search).
// language.Unknown is returned for unassigned or unrecognized runes.
func Script(r rune) language.Script {
	ranges := language.ScriptRanges
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].End >= r })
	if i < len(ranges) && ranges[i].Start <= r {
		return ranges[i].Script
	}
	return language.Unknown
}

// IsWhitespace reports whether r is Unicode whitespace.
func IsWhitespace(r rune) bool {
	return unicode.IsSpace(r)
}

// IsEmoji reports whether r falls within one of the Unicode emoji
// blocks (misc symbols, dingbats, transport/map symbols, supplemental
// symbols, and the two skin-tone/regional-indicator ranges). The
// standard library carries no Emoji range table of its own, and
// nothing in the retrieved pack wires a dedicated emoji-detection
// library, so this is a direct range check rather than a table
// lookup.
func IsEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r == 0x2764 || r == 0xFE0F: // heavy heart, variation selector-16
		return true
	}
	return false
}
