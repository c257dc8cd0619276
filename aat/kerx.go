package aat

import "github.com/kirawi/shapecore/buffer"

// KerxKind is the closed tagged variant of kerx subtable formats:
// Format0, Format1, Format2, and Format4.
type KerxKind uint8

const (
	KerxFormat0 KerxKind = 0
	KerxFormat1 KerxKind = 1
	KerxFormat2 KerxKind = 2
	KerxFormat4 KerxKind = 4
)

// KerxSubtable is one chain entry of a 'kerx' table.
type KerxSubtable struct {
	Kind        KerxKind
	Vertical    bool
	CrossStream bool
	WantsReverse bool // "variation"/descending bit, mirrors morx's coverage convention
	Data        []byte
}

// KerxTable is the parsed 'kerx' table: subtables applied in file
// order.
type KerxTable struct {
	Subtables []KerxSubtable
}

// ParseKerx decodes a 'kerx' table. Malformed input yields fewer
// subtables rather than an error.
func ParseKerx(data []byte) KerxTable {
	if len(data) < 8 {
		return KerxTable{}
	}
	nTables := be32(data, 4)
	var out KerxTable
	off := 8
	for i := uint32(0); i < nTables; i++ {
		if off+12 > len(data) {
			break
		}
		length := be32(data, off)
		coverage := be32(data, off+4)
		if length < 12 || uint64(off)+uint64(length) > uint64(len(data)) {
			break
		}
		out.Subtables = append(out.Subtables, KerxSubtable{
			Kind:         KerxKind(coverage & 0xFF),
			Vertical:     coverage&0x80000000 != 0,
			CrossStream:  coverage&0x40000000 != 0,
			WantsReverse: coverage&0x20000000 != 0,
			Data:         data[off+12 : off+int(length)],
		})
		off += int(length)
	}
	return out
}

// ApplyKerx runs every subtable of t against buf in file order.
// Vertical and cross-stream subtables are skipped outright (this
// module only shapes horizontally, and cross-stream kerning is
// perpendicular to text flow) by applying that filter uniformly
// before dispatching on kind. disableKern additionally skips formats
// 0/1/2 but never format 4.
func ApplyKerx(t KerxTable, buf *buffer.Buffer, ankr []byte, isRTL, disableKern bool, emScaleX, emScaleY func(int16) float32) {
	for _, st := range t.Subtables {
		if st.Vertical || st.CrossStream {
			continue
		}
		buf.EnsureOrder(buffer.ShouldReverse(isRTL, st.WantsReverse))
		if st.Kind != KerxFormat4 && disableKern {
			continue
		}
		switch st.Kind {
		case KerxFormat0:
			applyKerxFormat0(st.Data, buf, emScaleX)
		case KerxFormat1:
			applyKerxFormat1(st.Data, buf, emScaleX)
		case KerxFormat2:
			applyKerxFormat2(st.Data, buf, emScaleX)
		case KerxFormat4:
			applyKerxFormat4(st.Data, buf, ankr, emScaleX, emScaleY)
		}
	}
	buf.EnsureOrder(false)
}

// --- Format 0: ordered pair kerning ---

func applyKerxFormat0(data []byte, buf *buffer.Buffer, emScaleX func(int16) float32) {
	if len(data) < 16 {
		return
	}
	nPairs := int(be32(data, 0))
	base := 16
	leftIndex, leftGID := -1, buffer.GID(0)
	for i := range buf.Info {
		if buf.Info[i].JoiningType == buffer.TransparentJoiningType {
			continue
		}
		rightGID := buf.Info[i].GlyphID
		if leftIndex >= 0 {
			if v, ok := lookupKernPair(data, base, nPairs, leftGID, rightGID); ok && v != 0 {
				buf.Pos[leftIndex].Advance += emScaleX(v)
			}
		}
		leftIndex, leftGID = i, rightGID
	}
}

func lookupKernPair(data []byte, base, nPairs int, left, right buffer.GID) (int16, bool) {
	key := uint32(left)<<16 | uint32(right)
	lo, hi := 0, nPairs-1
	for lo <= hi {
		mid := (lo + hi) / 2
		rec := base + mid*6
		if rec+6 > len(data) {
			return 0, false
		}
		k := uint32(be16(data, rec))<<16 | uint32(be16(data, rec+2))
		switch {
		case k < key:
			lo = mid + 1
		case k > key:
			hi = mid - 1
		default:
			return int16(be16(data, rec+4)), true
		}
	}
	return 0, false
}

// --- Format 1: contextual FSM kerning ---

const (
	kerx1Push        = 0x8000
	kerx1DontAdvance = 0x4000
	kerx1Reset       = 0x2000
	kerx1OffsetMask  = 0x3FFF
)

func applyKerxFormat1(data []byte, buf *buffer.Buffer, emScaleX func(int16) float32) {
	h := parseSTXHeader(data)
	if h.nClasses == 0 {
		return
	}
	n := len(buf.Info)
	idx, state := 0, uint32(StateStartOfText)
	var stack [8]int
	depth := 0

	for idx <= n {
		class := uint32(ClassEndOfText)
		if idx < n {
			class = classOf(h.classTable, buf.Info[idx].GlyphID)
		}
		entryIdx := h.entryIndex(state, class)
		rec := h.entry(entryIdx, 4)
		if rec == nil {
			return
		}
		common := parseCommonEntry(rec)

		if common.flags&kerx1Reset != 0 {
			depth = 0
		}
		if common.flags&kerx1Push != 0 && idx < n {
			if depth < len(stack) {
				stack[depth] = idx
				depth++
			} else {
				depth = 0
			}
		}
		if kernOff := int(common.flags & kerx1OffsetMask); kernOff != 0 && depth != 0 {
			last := false
			for !last && depth != 0 {
				depth--
				glyphIdx := stack[depth]
				if glyphIdx >= len(buf.Pos) {
					continue
				}
				if kernOff+2 > len(data) {
					break
				}
				raw := be16(data, kernOff)
				last = raw&1 != 0
				v := int16(raw &^ 1)
				buf.Pos[glyphIdx].Advance += emScaleX(v)
				kernOff += 2
			}
		}

		state = common.newState
		if common.flags&dontAdvanceFlag == 0 {
			idx++
		} else if idx >= n {
			break
		}
	}
}

// --- Format 2: class-pair kerning ---

func applyKerxFormat2(data []byte, buf *buffer.Buffer, emScaleX func(int16) float32) {
	if len(data) < 16 {
		return
	}
	rowWidth := int(be32(data, 0))
	leftOff := int(be32(data, 4))
	rightOff := int(be32(data, 8))
	arrayOff := int(be32(data, 12))
	if leftOff >= len(data) || rightOff >= len(data) || arrayOff >= len(data) {
		return
	}
	leftTable := data[leftOff:]
	rightTable := data[rightOff:]

	leftIndex, leftGID := -1, buffer.GID(0)
	for i := range buf.Info {
		if buf.Info[i].JoiningType == buffer.TransparentJoiningType {
			continue
		}
		rightGID := buf.Info[i].GlyphID
		if leftIndex >= 0 {
			lc := classOf(leftTable, leftGID)
			rc := classOf(rightTable, rightGID)
			if lc != ClassOutOfBounds && rc != ClassOutOfBounds {
				rec := arrayOff + int(lc)*rowWidth + int(rc)*2
				if rec+2 <= len(data) {
					if v := int16(be16(data, rec)); v != 0 {
						buf.Pos[leftIndex].Advance += emScaleX(v)
					}
				}
			}
		}
		leftIndex, leftGID = i, rightGID
	}
}

// --- Format 4: anchor-based mark attachment ---

const (
	kerx4SetMark = 0x8000
	kerx4OffsetMask = 0x3FFF
)

func applyKerxFormat4(data []byte, buf *buffer.Buffer, ankr []byte, emScaleX, emScaleY func(int16) float32) {
	if len(data) < 20 {
		return
	}
	h := parseSTXHeader(data)
	if h.nClasses == 0 {
		return
	}
	flagsWord := be32(data, 16)
	actionType := uint8(flagsWord >> 30)
	actionTableOff := int(flagsWord & 0x00FFFFFF)

	n := len(buf.Info)
	idx, state := 0, uint32(StateStartOfText)
	mark, markSet := -1, false

	for idx <= n {
		class := uint32(ClassEndOfText)
		if idx < n {
			class = classOf(h.classTable, buf.Info[idx].GlyphID)
		}
		entryIdx := h.entryIndex(state, class)
		rec := h.entry(entryIdx, 4)
		if rec == nil {
			return
		}
		common := parseCommonEntry(rec)

		if common.flags&kerx4SetMark != 0 {
			mark, markSet = idx, true
		}
		// A fully-set 14-bit field is the "no action" sentinel, matching
		// the all-ones convention used throughout this package's other
		// index-shaped entry fields.
		if actionIdx := common.flags & kerx4OffsetMask; markSet && actionIdx != kerx4OffsetMask && idx < n && idx != mark {
			applyAnchorAction(buf, data, ankr, actionTableOff, actionType, int(actionIdx), mark, idx, emScaleX, emScaleY)
		}

		state = common.newState
		if common.flags&dontAdvanceFlag == 0 {
			idx++
		} else if idx >= n {
			break
		}
	}
}

func applyAnchorAction(buf *buffer.Buffer, data, ankr []byte, actionTableOff int, actionType uint8, actionIdx, mark, cur int, emScaleX, emScaleY func(int16) float32) {
	switch actionType {
	case 1: // anchor point actions: index into the 'ankr' table
		rec := actionTableOff + actionIdx*4
		if rec+4 > len(data) || ankr == nil {
			return
		}
		markAnchorIdx := be16(data, rec)
		curAnchorIdx := be16(data, rec+2)
		mx, my, ok1 := ankrAnchor(ankr, buf.Info[mark].GlyphID, markAnchorIdx)
		cx, cy, ok2 := ankrAnchor(ankr, buf.Info[cur].GlyphID, curAnchorIdx)
		if !ok1 || !ok2 {
			return
		}
		buf.PositionMark(cur, mark, emScaleX(mx)-emScaleX(cx), emScaleY(my)-emScaleY(cy))
	case 2: // control point coordinate actions: values baked directly into the table
		rec := actionTableOff + actionIdx*8
		if rec+8 > len(data) {
			return
		}
		markX := int16(be16(data, rec))
		markY := int16(be16(data, rec+2))
		curX := int16(be16(data, rec+4))
		curY := int16(be16(data, rec+6))
		buf.PositionMark(cur, mark, emScaleX(markX)-emScaleX(curX), emScaleY(markY)-emScaleY(curY))
	default:
		// Control-point (glyph-outline) actions need contour access this
		// module's font layer does not provide; skipped.
	}
}

// ankrAnchor resolves anchor point index for gid in an 'ankr' table:
// header {version,flags,lookupTableOffset,glyphDataTableOffset}, a
// glyph->offset AAT Lookup Table, then per-glyph {nPoints, points...}
// records in the glyph data table.
func ankrAnchor(ankr []byte, gid buffer.GID, index uint16) (x, y int16, ok bool) {
	if len(ankr) < 12 {
		return 0, 0, false
	}
	lookupOff := be32(ankr, 4)
	glyphDataOff := be32(ankr, 8)
	if int(lookupOff) >= len(ankr) || int(glyphDataOff) >= len(ankr) {
		return 0, 0, false
	}
	rel := classOf(ankr[lookupOff:], gid)
	if rel == ClassOutOfBounds {
		return 0, 0, false
	}
	rec := int(glyphDataOff) + int(rel)
	if rec+4 > len(ankr) {
		return 0, 0, false
	}
	nPoints := be32(ankr, rec)
	if uint32(index) >= nPoints {
		return 0, 0, false
	}
	pOff := rec + 4 + int(index)*4
	if pOff+4 > len(ankr) {
		return 0, 0, false
	}
	return int16(be16(ankr, pOff)), int16(be16(ankr, pOff+2)), true
}
