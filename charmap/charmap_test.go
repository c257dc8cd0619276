package charmap

import "testing"

func putU16(b []byte, off int, v uint16) {
	b[off] = byte(v >> 8)
	b[off+1] = byte(v)
}

func putU32(b []byte, off int, v uint32) {
	b[off] = byte(v >> 24)
	b[off+1] = byte(v >> 16)
	b[off+2] = byte(v >> 8)
	b[off+3] = byte(v)
}

// buildFormat12Subtable assembles a format-12 cmap subtable body
// (format/reserved/length/language/numGroups header plus one
// (start, end, startGlyph) group), the byte layout mapFormat12 reads.
func buildFormat12Subtable(start, end, startGlyph uint32) []byte {
	group := make([]byte, 12)
	putU32(group, 0, start)
	putU32(group, 4, end)
	putU32(group, 8, startGlyph)

	sub := make([]byte, 16+len(group))
	putU16(sub, 0, 12) // format
	putU32(sub, 4, uint32(len(sub)))
	putU32(sub, 12, 1) // numGroups
	copy(sub[16:], group)
	return sub
}

func buildFormat0Subtable(glyphs [256]byte) []byte {
	sub := make([]byte, 6+256)
	putU16(sub, 0, 0) // format
	copy(sub[6:], glyphs[:])
	return sub
}

// testCharmap wraps a bare subtable (no surrounding 'cmap' directory
// needed — New's directory-scan logic is exercised separately by the
// scoring test below) as a Charmap the way New would have, so Map's
// format dispatch can be tested without a real sfnt font fixture. The
// subtable sits at offset 4, after a zeroed stand-in for the 'cmap'
// header, since offset 0 is the "no subtable" proxy.
func testCharmap(fmtCode format, sub []byte) Charmap {
	data := append(make([]byte, 4), sub...)
	return Charmap{data: data, proxy: Proxy{offset: 4, fmt: fmtCode}}
}

func TestMapFormat12ResolvesCodepoint(t *testing.T) {
	sub := buildFormat12Subtable(0x41, 0x5A, 5) // 'A'-'Z' -> glyphs 5..30
	cm := testCharmap(formatSegmented32, sub)

	if got := cm.Map('A'); got != 5 {
		t.Errorf("Map('A') = %d, want 5", got)
	}
	if got := cm.Map('M'); got != 5+('M'-'A') {
		t.Errorf("Map('M') = %d, want %d", got, 5+('M'-'A'))
	}
	if got := cm.Map('a'); got != 0 {
		t.Errorf("Map('a') = %d, want 0 (.notdef, outside mapped range)", got)
	}
}

func TestMapFormat0ResolvesCodepoint(t *testing.T) {
	var glyphs [256]byte
	glyphs['A'] = 9
	sub := buildFormat0Subtable(glyphs)
	cm := testCharmap(formatByteEncoding, sub)

	if got := cm.Map('A'); got != 9 {
		t.Errorf("Map('A') = %d, want 9", got)
	}
	if got := cm.Map('Z'); got != 0 {
		t.Errorf("Map('Z') = %d, want 0 (unmapped byte)", got)
	}
}

func TestMapOnEmptyCharmapNeverFails(t *testing.T) {
	var cm Charmap
	if got := cm.Map('A'); got != 0 {
		t.Errorf("Map on zero-value Charmap = %d, want 0", got)
	}
}

func TestMapSymbolEncodingRemapsIntoPUA(t *testing.T) {
	var glyphs [256]byte
	glyphs[0x41] = 3 // codepoint 0xF041 in the PUA-remapped table
	sub := buildFormat0Subtable(glyphs)

	// Under symbol encoding Map remaps the lookup key before format
	// dispatch, so 'A' (0x41) is looked up as 0xF041, which format 0's
	// byte-indexed table cannot hold: the byte-0x41 entry is not reached.
	cm := testCharmap(formatByteEncoding, sub)
	cm.proxy.isSymbol = true
	if got := cm.Map('A'); got != 0 {
		t.Errorf("Map('A') under symbol encoding = %d, want 0 (0xF041 is out of format-0's byte range)", got)
	}
}

func TestScoreSubtablePrefersUnicodeFormat12OverBMP(t *testing.T) {
	score12, _ := scoreSubtable(0, 0, formatSegmented32)
	score4, _ := scoreSubtable(3, 1, formatSegmentMapping)
	if score12 <= score4 {
		t.Errorf("format-12 score %d not greater than BMP format-4 score %d", score12, score4)
	}
}

func TestScoreSubtableFlagsWindowsSymbolEncoding(t *testing.T) {
	_, isSymbol := scoreSubtable(3, 0, formatByteEncoding)
	if !isSymbol {
		t.Error("platform 3 / encoding 0 should be flagged as symbol encoding")
	}
}
