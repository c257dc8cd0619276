package aat

import "github.com/kirawi/shapecore/buffer"

// KernSubtable is one subtable of a classic (pre-AAT) 'kern' table.
type KernSubtable struct {
	Format      uint8
	Horizontal  bool
	CrossStream bool
	Data        []byte
}

// KernTable is the parsed classic 'kern' table.
type KernTable struct {
	Subtables []KernSubtable
}

// ParseKern decodes a classic 'kern' table (OpenType version-0
// header: version uint16, nTables uint16). Malformed input yields
// fewer subtables rather than an error.
func ParseKern(data []byte) KernTable {
	if len(data) < 4 {
		return KernTable{}
	}
	nTables := be16(data, 2)
	var out KernTable
	off := 4
	for i := uint16(0); i < nTables; i++ {
		if off+6 > len(data) {
			break
		}
		length := int(be16(data, off+2))
		coverage := be16(data, off+4)
		if length < 6 || off+length > len(data) {
			break
		}
		out.Subtables = append(out.Subtables, KernSubtable{
			Format:      uint8(coverage >> 8),
			Horizontal:  coverage&0x1 != 0,
			CrossStream: coverage&0x4 != 0,
			Data:        data[off+6 : off+length],
		})
		off += length
	}
	return out
}

// ApplyKern runs every horizontal subtable of t against buf in file
// order. isRTL selects the base-search direction used by format-1
// mark attachment, and also the buffer order format 1 runs in
// (grounded on original_source's apply_kern: ensure_order(is_rtl)
// before every subtable, with format 0 immediately resetting to
// logical order since the classic table is always defined in logical
// order).
func ApplyKern(t KernTable, buf *buffer.Buffer, isRTL bool, emScaleX func(int16) float32) {
	for _, st := range t.Subtables {
		if !st.Horizontal {
			continue
		}
		buf.EnsureOrder(isRTL)
		switch st.Format {
		case 0:
			buf.EnsureOrder(false)
			applyKernFormat0(st.Data, buf, emScaleX)
		case 1:
			applyKernFormat1(st.Data, buf, st.CrossStream, isRTL, emScaleX)
		}
	}
	buf.EnsureOrder(false)
}

func applyKernFormat0(data []byte, buf *buffer.Buffer, emScaleX func(int16) float32) {
	if len(data) < 8 {
		return
	}
	nPairs := int(be16(data, 0))
	base := 8
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

// classic format-1 entries share the same Push/DontAdvance/offset
// convention as kerx format 1, but the STX header itself uses 16-bit
// fields.
type stxHeader16 struct {
	nClasses   uint16
	classTable []byte
	stateArray []byte
	entryTable []byte
}

func parseSTXHeader16(data []byte) stxHeader16 {
	if len(data) < 8 {
		return stxHeader16{}
	}
	nClasses := be16(data, 0)
	classOff := be16(data, 2)
	stateOff := be16(data, 4)
	entryOff := be16(data, 6)
	h := stxHeader16{nClasses: nClasses}
	if int(classOff) < len(data) {
		h.classTable = data[classOff:]
	}
	if int(stateOff) < len(data) {
		h.stateArray = data[stateOff:]
	}
	if int(entryOff) < len(data) {
		h.entryTable = data[entryOff:]
	}
	return h
}

func (h stxHeader16) entryIndex(state, class uint16) uint16 {
	if h.nClasses == 0 {
		return 0
	}
	off := int(state)*int(h.nClasses)*2 + int(class)*2
	return be16(h.stateArray, off)
}

func applyKernFormat1(data []byte, buf *buffer.Buffer, crossStream, isRTL bool, emScaleX func(int16) float32) {
	h := parseSTXHeader16(data)
	if h.nClasses == 0 {
		return
	}
	n := len(buf.Info)
	idx, state := 0, uint16(StateStartOfText)
	var stack [8]int
	depth := 0

	for idx <= n {
		class := uint16(ClassEndOfText)
		if idx < n {
			class = uint16(classOf(h.classTable, buf.Info[idx].GlyphID))
		}
		entryIdx := h.entryIndex(state, class)
		rec := h.entry(entryIdx)
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
				if kernOff+2 > len(data) {
					break
				}
				raw := be16(data, kernOff)
				last = raw&1 != 0
				v := int16(raw &^ 1)
				applyClassicKernValue(buf, glyphIdx, v, crossStream, isRTL, emScaleX)
				kernOff += 2
			}
		}

		state = uint16(common.newState)
		if common.flags&dontAdvanceFlag == 0 {
			idx++
		} else if idx >= n {
			break
		}
	}
}

func (h stxHeader16) entry(idx uint16) []byte {
	const entrySize = 4
	off := int(idx) * entrySize
	if off+entrySize > len(h.entryTable) {
		return nil
	}
	return h.entryTable[off : off+entrySize]
}

// applyClassicKernValue implements the classic-kern mark-attachment
// rule: it only acts on transparent (mark) glyphs, every other glyph
// is left untouched. A cross-stream subtable sets positions[index].y
// directly (only when currently zero); otherwise the kerning value
// becomes an x-offset attached to a base glyph located by findBase.
func applyClassicKernValue(buf *buffer.Buffer, idx int, v int16, crossStream, isRTL bool, emScaleX func(int16) float32) {
	if idx >= len(buf.Info) || buf.Info[idx].JoiningType != buffer.TransparentJoiningType {
		return
	}
	if crossStream {
		if buf.Pos[idx].YOffset == 0 {
			buf.Pos[idx].YOffset = emScaleX(v)
		}
		return
	}
	base, dist, ok := findBase(buf, idx, isRTL)
	if !ok || dist >= 255 {
		return
	}
	buf.PositionMark(idx, base, emScaleX(v), 0)
}

// findBase walks from i while remaining within i's cluster, in the
// direction resolved at call time: forward when the buffer is RTL,
// backward otherwise — grounded on swash/src/shape/aat.rs's
// find_base(is_rtl, ...) call site, not the subtable's own declared
// processing order.
// It returns the first glyph whose CharClass is Base, or ok=false if
// a different cluster is reached first.
func findBase(buf *buffer.Buffer, i int, isRTL bool) (base, distance int, ok bool) {
	cluster := buf.Info[i].Cluster
	step := -1
	if isRTL {
		step = 1
	}
	for j := i + step; j >= 0 && j < len(buf.Info); j += step {
		if buf.Info[j].Cluster != cluster {
			return 0, 0, false
		}
		if buf.Info[j].CharClass == buffer.CharClassBase {
			d := j - i
			if d < 0 {
				d = -d
			}
			return j, d, true
		}
	}
	return 0, 0, false
}
