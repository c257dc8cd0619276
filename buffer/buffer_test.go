package buffer

import "testing"

func seedSimple(t *testing.T, n int) *Buffer {
	t.Helper()
	b := New()
	gids := make([]GID, n)
	clusters := make([]uint32, n)
	ranges := make([][2]uint32, n)
	joining := make([]uint8, n)
	shapes := make([]ShapeClass, n)
	chars := make([]CharClass, n)
	userData := make([]uint32, n)
	info := make([]ClusterInfo, n)
	for i := range gids {
		gids[i] = GID(i + 1)
		clusters[i] = uint32(i)
		ranges[i] = [2]uint32{uint32(i), uint32(i + 1)}
		chars[i] = CharClassBase
	}
	b.Seed(gids, clusters, ranges, joining, shapes, chars, userData, info)
	return b
}

func TestSeedKeepsInfoAndPosInSync(t *testing.T) {
	b := seedSimple(t, 5)
	if len(b.Info) != len(b.Pos) {
		t.Fatalf("len(Info)=%d len(Pos)=%d, want equal", len(b.Info), len(b.Pos))
	}
	if len(b.Info) != 5 {
		t.Fatalf("len(Info)=%d, want 5", len(b.Info))
	}
}

func TestEnsureOrderIsIdempotentAndReversible(t *testing.T) {
	b := seedSimple(t, 4)
	original := append([]GlyphRecord{}, b.Info...)

	b.EnsureOrder(true)
	b.EnsureOrder(true) // idempotent
	if !b.IsReversed() {
		t.Fatal("expected reversed order after EnsureOrder(true)")
	}

	b.EnsureOrder(false)
	if b.IsReversed() {
		t.Fatal("expected logical order after EnsureOrder(false)")
	}
	for i := range original {
		if b.Info[i].GlyphID != original[i].GlyphID {
			t.Fatalf("round trip did not restore order at %d: got %d want %d", i, b.Info[i].GlyphID, original[i].GlyphID)
		}
	}
}

func TestMultiplyPreservesClusterAndLength(t *testing.T) {
	b := seedSimple(t, 3)
	b.Multiply(1, []GID{10, 11, 12})
	if len(b.Info) != 5 || len(b.Pos) != 5 {
		t.Fatalf("len(Info)=%d len(Pos)=%d, want 5/5", len(b.Info), len(b.Pos))
	}
	for _, i := range []int{1, 2, 3} {
		if b.Info[i].Cluster != 1 {
			t.Fatalf("Info[%d].Cluster = %d, want 1", i, b.Info[i].Cluster)
		}
	}
}

func TestSubstituteLigatureCollapsesComponents(t *testing.T) {
	b := seedSimple(t, 3)
	b.SubstituteLigature([]int{0, 1, 2}, 99)
	if len(b.Info) != 1 {
		t.Fatalf("len(Info)=%d, want 1 after collapsing 3 glyphs", len(b.Info))
	}
	if b.Info[0].GlyphID != 99 {
		t.Fatalf("GlyphID = %d, want 99", b.Info[0].GlyphID)
	}
	if b.Info[0].Flags&FlagLigated == 0 {
		t.Fatal("expected FlagLigated set on surviving glyph")
	}

	var clusters []Cluster
	b.EmitClusters(func(c Cluster) { clusters = append(clusters, c) })
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if !clusters[0].IsLigature() {
		t.Fatal("expected the surviving cluster to report IsLigature")
	}
	if clusters[0].Source != ([2]uint32{0, 3}) {
		t.Fatalf("ligature Source = %v, want [0,3]", clusters[0].Source)
	}
}

func TestPositionMarkDoesNotOverwriteExistingAttachment(t *testing.T) {
	b := seedSimple(t, 2)
	b.PositionMark(1, 0, 1, 2)
	b.PositionMark(1, 0, 100, 200)
	if b.Pos[1].XOffset != 1 || b.Pos[1].YOffset != 2 {
		t.Fatalf("second PositionMark call overwrote the first: got (%v,%v)", b.Pos[1].XOffset, b.Pos[1].YOffset)
	}
	if !b.HasMarks() {
		t.Fatal("expected HasMarks() true after PositionMark")
	}
}

func TestEmitClustersEmitsEmptyClusterForControlOnlySource(t *testing.T) {
	b := New()
	// Two source codepoints; only the second produces a glyph (the
	// first models a deleted/control codepoint contributing no glyph).
	b.Seed(
		[]GID{7},
		[]uint32{1},
		[][2]uint32{{1, 2}},
		[]uint8{0},
		[]ShapeClass{ShapeClassBase},
		[]CharClass{CharClassBase},
		[]uint32{0},
		[]ClusterInfo{{}},
	)
	b.sourceRanges = [][2]uint32{{0, 1}, {1, 2}}

	var clusters []Cluster
	b.EmitClusters(func(c Cluster) { clusters = append(clusters, c) })
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if !clusters[0].IsEmpty() {
		t.Fatal("expected cluster 0 to be glyph-empty")
	}
	if clusters[1].IsEmpty() || clusters[1].Glyphs[0].ID != 7 {
		t.Fatalf("cluster 1 = %+v, want one glyph with id 7", clusters[1])
	}
}

func TestResetClearsContentsButKeepsCapacity(t *testing.T) {
	b := seedSimple(t, 8)
	cap0 := cap(b.Info)
	b.Reset()
	if len(b.Info) != 0 || len(b.Pos) != 0 {
		t.Fatalf("Reset left len(Info)=%d len(Pos)=%d, want 0/0", len(b.Info), len(b.Pos))
	}
	if cap(b.Info) != cap0 {
		t.Fatalf("Reset shrank capacity from %d to %d", cap0, cap(b.Info))
	}
}

func TestShouldReverse(t *testing.T) {
	cases := []struct{ isRTL, wants, want bool }{
		{true, true, false},
		{true, false, true},
		{false, true, true},
		{false, false, false},
	}
	for _, c := range cases {
		if got := ShouldReverse(c.isRTL, c.wants); got != c.want {
			t.Errorf("ShouldReverse(%v,%v) = %v, want %v", c.isRTL, c.wants, got, c.want)
		}
	}
}
