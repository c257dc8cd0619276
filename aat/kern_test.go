package aat

import (
	"testing"

	"github.com/kirawi/shapecore/buffer"
)

// buildClassicKernFormat0 assembles a minimal classic 'kern' table
// (version-0 header) with one horizontal format-0 subtable containing
// the given (left, right, value) pairs, sorted ascending as format 0
// requires.
func buildClassicKernFormat0(pairs [][3]uint16) []byte {
	pairBytes := make([]byte, 0, len(pairs)*6)
	for _, p := range pairs {
		rec := make([]byte, 6)
		putU16(rec, 0, p[0])
		putU16(rec, 2, p[1])
		putU16(rec, 4, p[2])
		pairBytes = append(pairBytes, rec...)
	}
	subData := make([]byte, 8+len(pairBytes))
	putU16(subData, 0, uint16(len(pairs)))
	copy(subData[8:], pairBytes)

	header := make([]byte, 6)
	putU16(header, 2, uint16(len(header)+len(subData))) // length
	putU16(header, 4, 0x0001)                            // format 0, horizontal bit set, no cross-stream

	table := make([]byte, 4)
	putU16(table, 2, 1) // nTables
	table = append(table, header...)
	table = append(table, subData...)
	return table
}

func seedBuf(gids []buffer.GID) *buffer.Buffer {
	b := buffer.New()
	n := len(gids)
	clusters := make([]uint32, n)
	ranges := make([][2]uint32, n)
	joining := make([]uint8, n)
	shapes := make([]buffer.ShapeClass, n)
	chars := make([]buffer.CharClass, n)
	userData := make([]uint32, n)
	info := make([]buffer.ClusterInfo, n)
	for i := range gids {
		clusters[i] = uint32(i)
		ranges[i] = [2]uint32{uint32(i), uint32(i + 1)}
		chars[i] = buffer.CharClassBase
	}
	b.Seed(gids, clusters, ranges, joining, shapes, chars, userData, info)
	return b
}

func TestApplyKernFormat0AddsAdvance(t *testing.T) {
	data := buildClassicKernFormat0([][3]uint16{{5, 6, 0x10000 - 50}})
	tbl := ParseKern(data)
	if len(tbl.Subtables) != 1 {
		t.Fatalf("got %d subtables, want 1", len(tbl.Subtables))
	}

	buf := seedBuf([]buffer.GID{5, 6})
	scale := func(v int16) float32 { return float32(v) / 1000 }
	ApplyKern(tbl, buf, false, scale)

	want := float32(-50) / 1000
	if buf.Pos[0].Advance != want {
		t.Fatalf("Pos[0].Advance = %v, want %v", buf.Pos[0].Advance, want)
	}
}

func TestApplyKernFormat0NoMatchLeavesAdvanceZero(t *testing.T) {
	data := buildClassicKernFormat0([][3]uint16{{5, 6, 100}})
	tbl := ParseKern(data)

	buf := seedBuf([]buffer.GID{1, 2})
	scale := func(v int16) float32 { return float32(v) / 1000 }
	ApplyKern(tbl, buf, false, scale)

	if buf.Pos[0].Advance != 0 {
		t.Fatalf("Pos[0].Advance = %v, want 0 for unmatched pair", buf.Pos[0].Advance)
	}
}

func TestFindBaseRespectsDirectionAndClusterBoundary(t *testing.T) {
	buf := seedBuf([]buffer.GID{1, 2, 3})
	buf.Info[1].CharClass = buffer.CharClassMark
	buf.Info[0].Cluster = 1 // all three glyphs share the mark's cluster
	buf.Info[2].Cluster = 1

	// LTR: base search walks backward from the mark.
	base, dist, ok := findBase(buf, 1, false)
	if !ok || base != 0 || dist != 1 {
		t.Fatalf("findBase(ltr) = (%d,%d,%v), want (0,1,true)", base, dist, ok)
	}

	// RTL: base search walks forward from the mark.
	base, dist, ok = findBase(buf, 1, true)
	if !ok || base != 2 || dist != 1 {
		t.Fatalf("findBase(rtl) = (%d,%d,%v), want (2,1,true)", base, dist, ok)
	}
}

func TestFindBaseFailsAcrossClusterBoundary(t *testing.T) {
	buf := seedBuf([]buffer.GID{1, 2})
	buf.Info[0].CharClass = buffer.CharClassMark
	buf.Info[0].Cluster = 5 // different cluster than index 1
	_, _, ok := findBase(buf, 0, true) // forward walk reaches index 1, in another cluster
	if ok {
		t.Fatal("expected findBase to fail when no base shares the mark's cluster")
	}
}

// TestApplyClassicKernValueNoopsForNonMarkGlyph pins the classic-kern
// format-1 mark-attachment rule directly: a glyph that is not
// transparent (not a mark) must be left entirely untouched, never
// receive an advance bump.
func TestApplyClassicKernValueNoopsForNonMarkGlyph(t *testing.T) {
	buf := seedBuf([]buffer.GID{1, 2})
	scale := func(v int16) float32 { return float32(v) / 1000 }

	applyClassicKernValue(buf, 0, 500, false, false, scale)

	if buf.Pos[0].Advance != 0 {
		t.Fatalf("Pos[0].Advance = %v, want 0: a non-mark glyph must not receive a kern-format-1 advance", buf.Pos[0].Advance)
	}
	if buf.Pos[0].Flags&buffer.PosFlagMarkAttach != 0 {
		t.Fatal("expected no mark-attach flag on a non-mark glyph")
	}
}

// buildClassicKernFormat1 assembles a minimal classic 'kern' table with
// one horizontal format-1 subtable: two glyphs, the second (a mark)
// pushed and immediately popped by the same state-table entry, driving
// applyClassicKernValue's findBase/PositionMark path end to end.
func buildClassicKernFormat1() []byte {
	const (
		classOff = 8
		stateOff = 18
		entryOff = 54
		kernOff  = 66
	)
	sub := make([]byte, kernOff+2)
	putU16(sub, 0, 6) // nClasses
	putU16(sub, 2, classOff)
	putU16(sub, 4, stateOff)
	putU16(sub, 6, entryOff)

	// format-8 class table: gid 30 ("a", class 4), gid 31 (grave, class 5).
	putU16(sub, classOff, 8)
	putU16(sub, classOff+2, 30)
	putU16(sub, classOff+4, 2)
	putU16(sub, classOff+6, 4)
	putU16(sub, classOff+8, 5)

	// state0, class4 ("a") -> entry0 (default, no-op, stay in state0)
	// state0, class5 (grave) -> entry1 (push self, kern, back to state0)
	putU16(sub, stateOff+5*2, 1)

	// entry1: newState=0, flags = kerx1Push | kernOff
	putU16(sub, entryOff+1*4, 0)
	putU16(sub, entryOff+1*4+2, kerx1Push|kernOff)

	// kern value list: one entry, last bit set, value 100.
	putU16(sub, kernOff, 101)

	header := make([]byte, 6)
	putU16(header, 2, uint16(len(header)+len(sub))) // length
	putU16(header, 4, 0x0101)                        // format 1, horizontal, no cross-stream

	table := make([]byte, 4)
	putU16(table, 2, 1) // nTables
	table = append(table, header...)
	table = append(table, sub...)
	return table
}

// TestApplyKernFormat1AttachesMarkToBase exercises the classic-kern
// mark-attachment end-to-end path for a base glyph followed by a
// combining mark: the mark gets MARK_ATTACH and an x-offset equal to
// the kerning delta, while the base's own advance is untouched.
func TestApplyKernFormat1AttachesMarkToBase(t *testing.T) {
	data := buildClassicKernFormat1()
	tbl := ParseKern(data)

	buf := seedBuf([]buffer.GID{30, 31})
	buf.Info[1].Cluster = 0 // the mark shares its base's cluster
	buf.Info[1].JoiningType = buffer.TransparentJoiningType
	buf.Info[1].CharClass = buffer.CharClassMark
	scale := func(v int16) float32 { return float32(v) / 1000 }
	ApplyKern(tbl, buf, false, scale)

	if buf.Pos[1].Flags&buffer.PosFlagMarkAttach == 0 {
		t.Fatal("expected MARK_ATTACH flag on the combining mark")
	}
	want := float32(100) / 1000
	if buf.Pos[1].XOffset != want {
		t.Fatalf("Pos[1].XOffset = %v, want %v", buf.Pos[1].XOffset, want)
	}
	if buf.Pos[1].Base != -1 {
		t.Fatalf("Pos[1].Base = %d, want -1 (one glyph back to the base)", buf.Pos[1].Base)
	}
	if buf.Pos[0].Advance != 0 {
		t.Fatalf("Pos[0].Advance = %v, want 0 (the base's own advance is untouched)", buf.Pos[0].Advance)
	}
}
