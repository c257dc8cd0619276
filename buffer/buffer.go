// Package buffer implements the shaping buffer: a mutable
// dual-representation sequence of glyphs with positions, cluster
// back-references, and a logical/visual ordering discipline. It is
// the component every legacy-engine pass (package aat) and the shape
// pipeline driver (package shaping) mutate directly.
package buffer

import (
	"golang.org/x/text/language"

	"github.com/kirawi/shapecore/font"
)

// ShapeClass categorizes a glyph for mark-attachment purposes.
type ShapeClass uint8

const (
	ShapeClassBase ShapeClass = iota
	ShapeClassLigature
	ShapeClassMark
	ShapeClassComponent
)

// CharClass is a per-glyph base/mark classification set by text
// analysis, separate from ShapeClass. The legacy engine reads it only
// in the mark-attachment base search (findBase in package aat); its
// state machines take glyph classes from each subtable's class table.
type CharClass uint8

const (
	CharClassEndOfText CharClass = 0
	CharClassOutOfBounds CharClass = 1
	CharClassDeletedGlyph CharClass = 2
	CharClassBase CharClass = 4
	// CharClassMark is the text-analysis-assigned class for combining
	// marks: anything other than CharClassBase is sufficient for
	// findBase (package aat) to skip over it, so this is the one
	// distinguished non-base value package unicodedata assigns.
	CharClassMark CharClass = 5
	// Values 6..(n) beyond that are font/table defined; only the
	// reserved values above are interpreted generically by the legacy
	// engine.
)

// ClusterInfo carries per-cluster text-analysis metadata, inherited
// from the cluster's first character the way UserData is: script, and
// whitespace/emoji flags.
type ClusterInfo struct {
	Script     language.Script
	Whitespace bool
	Emoji      bool
}

// TransparentJoiningType marks a glyph as transparent/mark for the
// purposes of legacy kerning iteration.
const TransparentJoiningType uint8 = 6

// GlyphFlags are buffer-local bits set by legacy engine passes.
type GlyphFlags uint16

const (
	// FlagMarkAttach is set by PositionMark: the glyph's position
	// carries an attachment to another glyph in the buffer.
	FlagMarkAttach GlyphFlags = 1 << iota
	// FlagLigated marks a glyph produced by SubstituteLigature.
	FlagLigated
	// FlagMultiplied marks a glyph produced by Multiply (insertion).
	FlagMultiplied
)

// PositionFlags mirror GlyphFlags onto the position record, since
// mark-attachment state is naturally a property of position.
type PositionFlags uint8

const (
	PosFlagMarkAttach PositionFlags = 1 << iota
)

// GlyphRecord is one element of the buffer's glyph sequence.
type GlyphRecord struct {
	GlyphID     GID
	Cluster     uint32
	JoiningType uint8
	ShapeClass  ShapeClass
	CharClass   CharClass
	Flags       GlyphFlags
	UserData    uint32
	Info        ClusterInfo
}

// GID is the 16-bit glyph id type used by every public-facing API.
type GID = font.GID

// PositionRecord is the parallel position entry for one GlyphRecord.
type PositionRecord struct {
	Advance float32
	XOffset float32
	YOffset float32
	// Base is the signed distance (in buffer indices) from this glyph
	// to the attachment base it was positioned against by
	// PositionMark; 0 when FlagMarkAttach is unset.
	Base  int16
	Flags PositionFlags
}

// Buffer holds the in-flight glyph and position sequences for one
// shaping call, plus the order-tracking bits a multi-pass legacy
// engine needs between subtable applications.
type Buffer struct {
	Info []GlyphRecord
	Pos  []PositionRecord

	// IsRTL is input-derived and fixed for the duration of one
	// shaping call.
	IsRTL bool
	// reversed is true when the buffer is currently in visual
	// (right-to-left display) order rather than logical order.
	reversed bool

	// hasMarks records whether any PositionMark call has occurred,
	// enabling downstream finalization.
	hasMarks bool

	// sourceRanges maps an original per-codepoint cluster id (assigned
	// 1:1 at Seed time) to its source range; never mutated after Seed.
	sourceRanges [][2]uint32
	// ligComponents maps a *surviving* cluster id to the source ranges
	// of every codepoint it absorbed, populated only when
	// SubstituteLigature merges two or more distinct cluster ids
	//.
	ligComponents map[uint32][][2]uint32
	// consumedClusters marks original cluster ids that were folded
	// into another (smaller) surviving cluster id by
	// SubstituteLigature, so EmitClusters can tell "no glyph realizes
	// this id because it was merged elsewhere" apart from "no glyph
	// realizes this id because it was deleted outright".
	consumedClusters map[uint32]bool
}

// New returns an empty Buffer ready for Reset.
func New() *Buffer {
	return &Buffer{}
}

// Reset clears the buffer's contents but keeps backing array capacity,
// so a shaping.Context can reuse one Buffer across many Shape calls
// without reallocating.
func (b *Buffer) Reset() {
	b.Info = b.Info[:0]
	b.Pos = b.Pos[:0]
	b.sourceRanges = b.sourceRanges[:0]
	for k := range b.ligComponents {
		delete(b.ligComponents, k)
	}
	for k := range b.consumedClusters {
		delete(b.consumedClusters, k)
	}
	b.IsRTL = false
	b.reversed = false
	b.hasMarks = false
}

// HasMarks reports whether any mark attachment occurred during this
// shaping call.
func (b *Buffer) HasMarks() bool { return b.hasMarks }

// invariant: len(Info) == len(Pos) must hold after every exported
// mutation below.

// Seed replaces the buffer's contents with one glyph per input
// codepoint's already-resolved nominal glyph id, recording cluster
// index, joining type, shape class, user data and cluster info for
// each. gids, clusters, sourceRanges, joining, classes, charClasses,
// userData and info must all have equal length; clusters[i]
// is the cluster id (conventionally i itself, or a shared id for
// codepoints that merge into one cluster before shaping, e.g.
// grapheme clusters) and sourceRanges[i] its [start,end) source range.
func (b *Buffer) Seed(gids []GID, clusters []uint32, sourceRanges [][2]uint32, joining []uint8, classes []ShapeClass, charClasses []CharClass, userData []uint32, info []ClusterInfo) {
	b.Info = b.Info[:0]
	b.Pos = b.Pos[:0]
	b.sourceRanges = b.sourceRanges[:0]
	for k := range b.ligComponents {
		delete(b.ligComponents, k)
	}
	for k := range b.consumedClusters {
		delete(b.consumedClusters, k)
	}

	maxCluster := uint32(0)
	for i, gid := range gids {
		b.Info = append(b.Info, GlyphRecord{
			GlyphID:     gid,
			Cluster:     clusters[i],
			JoiningType: joining[i],
			ShapeClass:  classes[i],
			CharClass:   charClasses[i],
			UserData:    userData[i],
			Info:        info[i],
		})
		b.Pos = append(b.Pos, PositionRecord{})
		if clusters[i] > maxCluster {
			maxCluster = clusters[i]
		}
	}
	b.sourceRanges = make([][2]uint32, maxCluster+1)
	for i, rng := range sourceRanges {
		b.sourceRanges[clusters[i]] = rng
	}
	b.reversed = false
}

// sourceRangeOf looks up the source range recorded at Seed time for
// cluster id c (a zero range when c is out of range). Ligature
// component ranges are kept separately in ligComponents.
func (b *Buffer) sourceRangeOf(c uint32) [2]uint32 {
	if int(c) < len(b.sourceRanges) {
		return b.sourceRanges[c]
	}
	return [2]uint32{}
}

// Substitute overwrites the glyph id of record i, leaving position
// data intact — the plain one-for-one substitution case.
func (b *Buffer) Substitute(i int, gid GID) {
	b.Info[i].GlyphID = gid
}

// mergeClusters folds the cluster indices of buffer positions
// [start, end) down to the minimum cluster value among them, the morx
// rearrangement/ligature convention grounded on
// ot_aat_layout.go's buffer.mergeClusters, required so that a later
// SubstituteLigature sees a single contiguous cluster id to collapse.
func (b *Buffer) mergeClusters(start, end int) {
	if end <= start || end > len(b.Info) {
		return
	}
	minCluster := b.Info[start].Cluster
	for i := start + 1; i < end; i++ {
		if b.Info[i].Cluster < minCluster {
			minCluster = b.Info[i].Cluster
		}
	}
	if b.consumedClusters == nil {
		b.consumedClusters = make(map[uint32]bool)
	}
	for i := start; i < end; i++ {
		if b.Info[i].Cluster != minCluster {
			b.consumedClusters[b.Info[i].Cluster] = true
		}
		b.Info[i].Cluster = minCluster
	}
}

// MergeClusters exposes mergeClusters to package aat, which needs it
// for morx rearrangement and ligature bookkeeping.
func (b *Buffer) MergeClusters(start, end int) { b.mergeClusters(start, end) }

// SubstituteLigature collapses components (absolute buffer indices,
// ascending) into a single glyph gid placed at the position of
// components[0]; the surviving glyph's cluster becomes a ligature
// cluster whose Components record the source ranges of every distinct
// cluster merged into it (only when there are two or more).
func (b *Buffer) SubstituteLigature(components []int, gid GID) {
	if len(components) == 0 {
		return
	}

	// Gather the pre-collapse source ranges of every distinct merged
	// cluster, flattening any component that was itself already a
	// ligature from an earlier pass.
	var ranges [][2]uint32
	seen := make(map[uint32]bool, len(components))
	for _, idx := range components {
		cluster := b.Info[idx].Cluster
		if seen[cluster] {
			continue
		}
		seen[cluster] = true
		if prior, ok := b.ligComponents[cluster]; ok {
			ranges = append(ranges, prior...)
		} else {
			ranges = append(ranges, b.sourceRangeOf(cluster))
		}
	}

	first := components[0]
	survivingCluster := b.Info[first].Cluster
	b.Info[first].GlyphID = gid
	b.Info[first].Flags |= FlagLigated
	b.Info[first].ShapeClass = ShapeClassLigature

	if len(seen) >= 2 {
		if b.ligComponents == nil {
			b.ligComponents = make(map[uint32][][2]uint32)
		}
		b.ligComponents[survivingCluster] = ranges
	}

	if b.consumedClusters == nil {
		b.consumedClusters = make(map[uint32]bool)
	}
	for _, idx := range components[1:] {
		cluster := b.Info[idx].Cluster
		if cluster != survivingCluster {
			b.consumedClusters[cluster] = true
		}
	}

	// Remove every component index after the first, in descending
	// order so earlier removals don't shift later indices.
	for i := len(components) - 1; i >= 1; i-- {
		idx := components[i]
		b.Info = append(b.Info[:idx], b.Info[idx+1:]...)
		b.Pos = append(b.Pos[:idx], b.Pos[idx+1:]...)
	}
}

// Multiply replaces the glyph at index i with len(gids) contiguous
// glyphs carrying the given ids, for AAT insertion subtables. Each
// inherits i's cluster index, joining type, classes, user data and
// cluster info; i's own flags are not carried over, and each new
// entry has only FlagMultiplied set. New position records are zero.
func (b *Buffer) Multiply(i int, gids []GID) {
	if len(gids) == 0 {
		return
	}
	orig := b.Info[i]
	newInfo := make([]GlyphRecord, len(gids))
	newPos := make([]PositionRecord, len(gids))
	for j, gid := range gids {
		newInfo[j] = GlyphRecord{
			GlyphID:     gid,
			Cluster:     orig.Cluster,
			JoiningType: orig.JoiningType,
			ShapeClass:  orig.ShapeClass,
			CharClass:   orig.CharClass,
			UserData:    orig.UserData,
			Info:        orig.Info,
			Flags:       FlagMultiplied,
		}
	}
	tailInfo := append([]GlyphRecord{}, b.Info[i+1:]...)
	tailPos := append([]PositionRecord{}, b.Pos[i+1:]...)
	b.Info = append(b.Info[:i], newInfo...)
	b.Info = append(b.Info, tailInfo...)
	b.Pos = append(b.Pos[:i], newPos...)
	b.Pos = append(b.Pos, tailPos...)
}

// PositionMark attaches glyph i to the glyph at absolute index base,
// recording the (x, y) offset and marking FlagMarkAttach on both the
// glyph and position records. It does not overwrite an
// already-attached glyph.
func (b *Buffer) PositionMark(i, base int, x, y float32) {
	if b.Pos[i].Flags&PosFlagMarkAttach != 0 {
		return
	}
	b.Info[i].Flags |= FlagMarkAttach
	b.Pos[i].Flags |= PosFlagMarkAttach
	b.Pos[i].Base = int16(base - i)
	b.Pos[i].XOffset = x
	b.Pos[i].YOffset = y
	b.hasMarks = true
}

// IsReversed reports whether the buffer is currently in visual
// (right-to-left display) order.
func (b *Buffer) IsReversed() bool { return b.reversed }

// EnsureOrder reverses both sequences iff the buffer's current order
// does not match the requested orientation (reverse == true means
// visual/RTL-display order); otherwise it is a no-op. Calling it twice
// in a row with the same argument is idempotent, and EnsureOrder(true)
// followed by EnsureOrder(false) restores the original sequence
// exactly.
func (b *Buffer) EnsureOrder(reverse bool) {
	if b.reversed == reverse {
		return
	}
	reverseSlice(b.Info)
	reverseSlice(b.Pos)
	b.reversed = reverse
}

func reverseSlice[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// ShouldReverse answers the per-subtable question "should the buffer
// be in reversed order before I run", given the subtable's own
// declared wantReverse bit and the buffer's is_rtl flag.
func ShouldReverse(isRTL, wantsRTLProcessing bool) bool {
	return isRTL != wantsRTLProcessing
}
