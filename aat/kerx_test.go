package aat

import (
	"testing"

	"github.com/kirawi/shapecore/buffer"
)

func buildKerxFormat0(pairs [][3]uint16) []byte {
	data := make([]byte, 16+len(pairs)*6)
	putU16(data, 2, uint16(len(pairs))) // nPairs is a uint32 at offset 0; high half stays 0
	off := 16
	for _, p := range pairs {
		putU16(data, off, p[0])
		putU16(data, off+2, p[1])
		putU16(data, off+4, p[2])
		off += 6
	}
	return data
}

func TestParseKerxOnShortInputYieldsNoSubtables(t *testing.T) {
	tbl := ParseKerx([]byte{0, 0, 0, 0})
	if len(tbl.Subtables) != 0 {
		t.Fatalf("got %d subtables for truncated input, want 0", len(tbl.Subtables))
	}
}

func TestApplyKerxFormat0AddsScaledAdvance(t *testing.T) {
	data := buildKerxFormat0([][3]uint16{{5, 6, 0x10000 - 40}})
	buf := seedBuf([]buffer.GID{5, 6})
	scale := func(v int16) float32 { return float32(v) / 1000 }

	applyKerxFormat0(data, buf, scale)

	want := float32(-40) / 1000
	if buf.Pos[0].Advance != want {
		t.Fatalf("Pos[0].Advance = %v, want %v", buf.Pos[0].Advance, want)
	}
}

func TestApplyKerxFormat0SkipsTransparentGlyphs(t *testing.T) {
	data := buildKerxFormat0([][3]uint16{{5, 6, 40}})
	buf := seedBuf([]buffer.GID{5, 9, 6})
	buf.Info[1].JoiningType = buffer.TransparentJoiningType
	scale := func(v int16) float32 { return float32(v) / 1000 }

	applyKerxFormat0(data, buf, scale)

	want := float32(40) / 1000
	if buf.Pos[0].Advance != want {
		t.Fatalf("Pos[0].Advance = %v, want %v (transparent glyph at index 1 skipped, pair still found between 0 and 2)", buf.Pos[0].Advance, want)
	}
}

// TestApplyKerxFormat2ClassPairLookup exercises the class-table +
// 2D-array dispatch shared with classic kern format 2, using format-8
// trimmed-array lookup tables for the left/right class tables.
func TestApplyKerxFormat2ClassPairLookup(t *testing.T) {
	// left/right class tables: format 8, covering glyphs 5 and 6.
	classTable := make([]byte, 10)
	putU16(classTable, 0, 8)
	putU16(classTable, 2, 5) // firstGlyph
	putU16(classTable, 4, 2) // glyphCount
	putU16(classTable, 6, 0) // class(5) = 0
	putU16(classTable, 8, 1) // class(6) = 1

	rowWidth := 2 * 2 // 2 right-classes * 2 bytes
	leftOff := 16
	rightOff := leftOff + len(classTable)
	arrayOff := rightOff + len(classTable)
	data := make([]byte, arrayOff+4*rowWidth)
	putU32(data, 0, uint32(rowWidth))
	putU32(data, 4, uint32(leftOff))
	putU32(data, 8, uint32(rightOff))
	putU32(data, 12, uint32(arrayOff))
	copy(data[leftOff:], classTable)
	copy(data[rightOff:], classTable)
	// class(left=0) x class(right=1) -> kern value 30
	putU16(data, arrayOff+0*rowWidth+1*2, uint16(int16(30)))

	buf := seedBuf([]buffer.GID{5, 6})
	scale := func(v int16) float32 { return float32(v) / 1000 }
	applyKerxFormat2(data, buf, scale)

	want := float32(30) / 1000
	if buf.Pos[0].Advance != want {
		t.Fatalf("Pos[0].Advance = %v, want %v", buf.Pos[0].Advance, want)
	}
}

// TestApplyKerxFormat1ContextualKernsFirstGlyphOnly builds a minimal
// format-1 state table over two glyphs (standing in for "AV"): the
// first glyph is pushed, and the entry reached on the second glyph
// pops it and applies a kern value, leaving the second glyph's own
// advance untouched.
func TestApplyKerxFormat1ContextualKernsFirstGlyphOnly(t *testing.T) {
	const (
		classOff = 16
		stateOff = 26
		entryOff = 62
		kernOff  = 74
	)
	data := make([]byte, kernOff+2)
	putU32(data, 0, 6) // nClasses: 4 reserved + 2 user classes
	putU32(data, 4, classOff)
	putU32(data, 8, stateOff)
	putU32(data, 12, entryOff)

	// format-8 class table covering gid 20 ("A", class 4) and gid 21
	// ("V", class 5).
	putU16(data, classOff, 8)
	putU16(data, classOff+2, 20)
	putU16(data, classOff+4, 2)
	putU16(data, classOff+6, 4)
	putU16(data, classOff+8, 5)

	// state0, class4 ("A") -> entry1 (push, advance to state2)
	putU16(data, stateOff+4*2, 1)
	// state2, class5 ("V") -> entry2 (pop and kern, back to state0)
	putU16(data, stateOff+2*6*2+5*2, 2)

	// entry0: default no-op
	// entry1: newState=2, flags=kerx1Push
	putU16(data, entryOff+1*4, 2)
	putU16(data, entryOff+1*4+2, kerx1Push)
	// entry2: newState=0, flags=kernOff (no push/reset bits set)
	putU16(data, entryOff+2*4, 0)
	putU16(data, entryOff+2*4+2, kernOff)

	// kern value list: one entry, last bit set, value 100.
	putU16(data, kernOff, 101)

	buf := seedBuf([]buffer.GID{20, 21})
	scale := func(v int16) float32 { return float32(v) / 1000 }
	applyKerxFormat1(data, buf, scale)

	want := float32(100) / 1000
	if buf.Pos[0].Advance != want {
		t.Fatalf("Pos[0].Advance = %v, want %v", buf.Pos[0].Advance, want)
	}
	if buf.Pos[1].Advance != 0 {
		t.Fatalf("Pos[1].Advance = %v, want 0 (second glyph's own advance is untouched)", buf.Pos[1].Advance)
	}
}

// TestApplyKerxDisableKernSkipsFormat0 exercises the disable-kern
// flag on a format-0 subtable: it contributes nothing when disableKern
// is set and its pair value when it is not. Format 4 is not exercised
// here.
func TestApplyKerxDisableKernSkipsFormat0(t *testing.T) {
	tbl := KerxTable{Subtables: []KerxSubtable{
		{Kind: KerxFormat0, Data: buildKerxFormat0([][3]uint16{{5, 6, 40}})},
	}}
	scale := func(v int16) float32 { return float32(v) / 1000 }

	disabled := seedBuf([]buffer.GID{5, 6})
	ApplyKerx(tbl, disabled, nil, false, true, scale, scale)
	if disabled.Pos[0].Advance != 0 {
		t.Fatalf("disableKern=true: Pos[0].Advance = %v, want 0", disabled.Pos[0].Advance)
	}

	enabled := seedBuf([]buffer.GID{5, 6})
	ApplyKerx(tbl, enabled, nil, false, false, scale, scale)
	want := float32(40) / 1000
	if enabled.Pos[0].Advance != want {
		t.Fatalf("disableKern=false: Pos[0].Advance = %v, want %v", enabled.Pos[0].Advance, want)
	}
}
