package aat

import "github.com/kirawi/shapecore/buffer"

// MorxKind is the closed tagged variant of morx subtable kinds:
// tagged-union dispatch rather than subtype polymorphism. Values
// match the Apple 'morx' subtable-type byte.
type MorxKind uint8

const (
	MorxRearrangement MorxKind = 0
	MorxContextual    MorxKind = 1
	MorxLigature      MorxKind = 2
	MorxNonContextual MorxKind = 4
	MorxInsertion     MorxKind = 5
)

const dontAdvanceFlag uint16 = 0x4000

// FeatureKey is a translated AAT (selector, setting) pair, the form
// the legacy engine consumes after the shape pipeline driver
// translates user-requested OpenType (tag, value) feature settings
//. Callers must pass Keys
// sorted ascending by (Selector, Setting) for O(log n) lookup.
type FeatureKey struct {
	Selector, Setting uint16
}

func (k FeatureKey) less(o FeatureKey) bool {
	if k.Selector != o.Selector {
		return k.Selector < o.Selector
	}
	return k.Setting < o.Setting
}

func searchFeatureKey(sorted []FeatureKey, want FeatureKey) bool {
	lo, hi := 0, len(sorted)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case sorted[mid].less(want):
			lo = mid + 1
		case want.less(sorted[mid]):
			hi = mid - 1
		default:
			return true
		}
	}
	return false
}

// MorxFeature is one chain feature entry: a (selector, setting) key
// plus the flag bits it enables/disables when present in the caller's
// requested feature set.
type MorxFeature struct {
	Key           FeatureKey
	EnableFlags   uint32
	DisableFlags  uint32
}

// MorxSubtable is one subtable within a chain: its kind, coverage
// bits, the feature-mask it requires, and its raw STX payload.
type MorxSubtable struct {
	Kind            MorxKind
	Vertical        bool
	WantsReverse    bool // "descending" coverage bit: process with buffer reversed
	SubFeatureFlags uint32
	Data            []byte // STX header + kind-specific payload, subtable-relative
}

// MorxChain is one chain of a morx table: default flags, its features,
// and the subtables to run in file order.
type MorxChain struct {
	DefaultFlags uint32
	Features     []MorxFeature
	Subtables    []MorxSubtable
}

// MorxTable is the parsed 'morx' table: a sequence of chains, each
// processed independently in file order.
type MorxTable struct {
	Chains []MorxChain
}

// ParseMorx decodes a 'morx' table binary format.
// Malformed input yields a table with fewer (possibly zero) chains
// rather than an error
func ParseMorx(data []byte) MorxTable {
	if len(data) < 8 {
		return MorxTable{}
	}
	nChains := be32(data, 4)
	var out MorxTable
	off := 8
	for c := uint32(0); c < nChains; c++ {
		if off+16 > len(data) {
			break
		}
		defaultFlags := be32(data, off)
		chainLength := be32(data, off+4)
		nFeatures := be32(data, off+8)
		nSubtables := be32(data, off+12)
		if chainLength == 0 || uint64(off)+uint64(chainLength) > uint64(len(data)) {
			break
		}
		chainData := data[off : off+int(chainLength)]

		chain := MorxChain{DefaultFlags: defaultFlags}
		fOff := 16
		for i := uint32(0); i < nFeatures; i++ {
			if fOff+12 > len(chainData) {
				break
			}
			chain.Features = append(chain.Features, MorxFeature{
				Key:          FeatureKey{Selector: be16(chainData, fOff), Setting: be16(chainData, fOff+2)},
				EnableFlags:  be32(chainData, fOff+4),
				DisableFlags: be32(chainData, fOff+8),
			})
			fOff += 12
		}

		sOff := fOff
		for i := uint32(0); i < nSubtables; i++ {
			if sOff+12 > len(chainData) {
				break
			}
			length := be32(chainData, sOff)
			coverage := be32(chainData, sOff+4)
			subFeatureFlags := be32(chainData, sOff+8)
			if length < 12 || uint64(sOff)+uint64(length) > uint64(len(chainData)) {
				break
			}
			chain.Subtables = append(chain.Subtables, MorxSubtable{
				Kind:            MorxKind(coverage & 0xFF),
				Vertical:        coverage&0x80000000 != 0,
				WantsReverse:    coverage&0x40000000 != 0,
				SubFeatureFlags: subFeatureFlags,
				Data:            chainData[sOff+12 : sOff+int(length)],
			})
			sOff += int(length)
		}
		out.Chains = append(out.Chains, chain)
		off += int(chainLength)
	}
	return out
}

// EffectiveFlags computes the chain's effective feature-selector flags
// given the caller's sorted requested keys formula:
// flags := (default AND NOT feature.disable) OR feature.enable,
// applied in chain-file iteration order for every feature whose key is
// present — swash's simpler global-flags algorithm, not HarfBuzz's
// per-range mask approach.
func (c MorxChain) EffectiveFlags(requested []FeatureKey) uint32 {
	flags := c.DefaultFlags
	for _, f := range c.Features {
		if searchFeatureKey(requested, f.Key) {
			flags = flags&^f.DisableFlags | f.EnableFlags
		}
	}
	return flags
}

// ApplyMorx runs every chain of t against buf in file order, with
// chains and their subtables applied in strict ascending order.
// requested must be sorted ascending. isRTL is the buffer's
// input-derived direction used to decide each subtable's processing
// order via buffer.ShouldReverse.
func ApplyMorx(t MorxTable, buf *buffer.Buffer, requested []FeatureKey, isRTL bool) {
	for _, chain := range t.Chains {
		effective := chain.EffectiveFlags(requested)
		for _, st := range chain.Subtables {
			if st.Vertical {
				continue // horizontal-only shaping, the common policy extended to morx
			}
			if st.SubFeatureFlags&effective == 0 {
				continue
			}
			buf.EnsureOrder(buffer.ShouldReverse(isRTL, st.WantsReverse))
			applyMorxSubtable(st, buf)
		}
	}
	// Restore logical order at the end of morx processing.
	buf.EnsureOrder(false)
}

func applyMorxSubtable(st MorxSubtable, buf *buffer.Buffer) {
	switch st.Kind {
	case MorxRearrangement:
		applyRearrangement(st.Data, buf)
	case MorxContextual:
		applyContextual(st.Data, buf)
	case MorxLigature:
		applyLigature(st.Data, buf)
	case MorxNonContextual:
		applyNonContextual(st.Data, buf)
	case MorxInsertion:
		applyInsertion(st.Data, buf)
	}
}

// --- Rearrangement ---

// mapRearrangement is the 15-verb rearrangement table ("Ax→xA,
// AxD→DxA, etc."); grounded verbatim on
// harfbuzz/ot_aat_layout.go's mapRearrangement, itself the HarfBuzz
// port of Apple's documented verb table. Each nibble pair encodes how
// many glyphs move from the start/end side (0-2, with 3 meaning
// "move 2 and flip them").
var mapRearrangement = [16]int{
	0x00, 0x10, 0x01, 0x11, 0x20, 0x30, 0x02, 0x03,
	0x12, 0x13, 0x21, 0x31, 0x22, 0x32, 0x23, 0x33,
}

const (
	rearrMarkFirst = 0x8000
	rearrMarkLast  = 0x2000
	rearrVerb      = 0x000F
)

func applyRearrangement(data []byte, buf *buffer.Buffer) {
	h := parseSTXHeader(data)
	if h.nClasses == 0 {
		return
	}
	n := len(buf.Info)
	idx, state := 0, uint32(StateStartOfText)
	markStart, markEnd := -1, -1

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

		if common.flags&rearrMarkFirst != 0 {
			markStart = idx
		}
		if common.flags&rearrMarkLast != 0 {
			markEnd = min(idx+1, n)
		}
		if verb := common.flags & rearrVerb; verb != 0 && markStart >= 0 && markStart < markEnd {
			rearrange(buf, markStart, markEnd, int(mapRearrangement[verb]))
		}

		state = common.newState
		if common.flags&dontAdvanceFlag == 0 {
			idx++
		} else if idx >= n {
			break
		}
	}
}

func rearrange(buf *buffer.Buffer, start, end, m int) {
	if end-start > maxContextLength {
		return
	}
	l := min(2, m>>4)
	r := min(2, m&0x0F)
	reverseL := m>>4 == 3
	reverseR := m&0x0F == 3
	if end-start < l+r {
		return
	}

	buf.MergeClusters(start, end)
	info := buf.Info
	pos := buf.Pos
	var bufInfo [4]buffer.GlyphRecord
	var bufPos [4]buffer.PositionRecord

	copy(bufInfo[:], info[start:start+l])
	copy(bufPos[:], pos[start:start+l])
	copy(bufInfo[2:], info[end-r:end])
	copy(bufPos[2:], pos[end-r:end])

	if l != r {
		copy(info[start+r:], info[start+l:end-r])
		copy(pos[start+r:], pos[start+l:end-r])
	}

	copy(info[start:start+r], bufInfo[2:])
	copy(pos[start:start+r], bufPos[2:])
	copy(info[end-l:end], bufInfo[:])
	copy(pos[end-l:end], bufPos[:])

	if reverseL {
		info[end-1], info[end-2] = info[end-2], info[end-1]
		pos[end-1], pos[end-2] = pos[end-2], pos[end-1]
	}
	if reverseR {
		info[start], info[start+1] = info[start+1], info[start]
		pos[start], pos[start+1] = pos[start+1], pos[start]
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// --- Contextual substitution ---

const contextSetMark uint16 = 0x8000

func applyContextual(data []byte, buf *buffer.Buffer) {
	if len(data) < 20 {
		return
	}
	h := parseSTXHeader(data)
	// The per-entry substitution-table list offset immediately follows
	// the 16-byte STX header; both it and every offset it contains are
	// relative to the start of this subtable's data.
	substListOff := be32(data, 16)

	n := len(buf.Info)
	idx, state := 0, uint32(StateStartOfText)
	mark := -1

	for idx <= n {
		class := uint32(ClassEndOfText)
		if idx < n {
			class = classOf(h.classTable, buf.Info[idx].GlyphID)
		}
		entryIdx := h.entryIndex(state, class)
		rec := h.entry(entryIdx, 8)
		if rec == nil {
			return
		}
		common := parseCommonEntry(rec)
		markIdx := be16(rec, 4)
		curIdx := be16(rec, 6)

		if common.flags&contextSetMark != 0 {
			mark = idx
		}
		if idx < n {
			if curIdx != 0xFFFF {
				if gid, ok := substitutionAt(data, substListOff, curIdx, buf.Info[idx].GlyphID); ok {
					buf.Substitute(idx, gid)
				}
			}
			if markIdx != 0xFFFF && mark >= 0 && mark < n {
				if gid, ok := substitutionAt(data, substListOff, markIdx, buf.Info[mark].GlyphID); ok {
					buf.Substitute(mark, gid)
				}
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

// substitutionAt resolves one entry of the contextual subtable's
// per-glyph substitution-table list (at listOff, relative to the start
// of the subtable's data): each entry is itself the subtable-relative
// offset of an AAT Lookup Table (format 6/8, same as classOf) mapping
// the input glyph to its replacement. A malformed or out-of-range
// index yields no substitution.
func substitutionAt(data []byte, listOff uint32, tableIndex uint16, gid buffer.GID) (buffer.GID, bool) {
	entryAddr := int(listOff) + int(tableIndex)*4
	if entryAddr+4 > len(data) || entryAddr < 0 {
		return 0, false
	}
	entryOff := be32(data, entryAddr)
	if int(entryOff) >= len(data) {
		return 0, false
	}
	g := classOf(data[entryOff:], gid)
	if g == ClassOutOfBounds {
		return 0, false
	}
	return buffer.GID(g), true
}

// --- Non-contextual substitution ---

func applyNonContextual(data []byte, buf *buffer.Buffer) {
	for i := range buf.Info {
		if g := classOf(data, buf.Info[i].GlyphID); g != ClassOutOfBounds {
			buf.Substitute(i, buffer.GID(g))
		}
	}
}

// --- Ligature ---

const (
	ligSetComponent = 0x8000
	ligPerformAction = 0x2000
)

func applyLigature(data []byte, buf *buffer.Buffer) {
	if len(data) < 28 {
		return
	}
	h := parseSTXHeader(data)
	ligActionOff := be32(data, 16)
	componentOff := be32(data, 20)
	ligatureOff := be32(data, 24)
	if int(ligActionOff) >= len(data) || int(componentOff) >= len(data) || int(ligatureOff) >= len(data) {
		return
	}

	n := len(buf.Info)
	idx, state := 0, uint32(StateStartOfText)
	var componentStack []int

	for idx <= n {
		class := uint32(ClassEndOfText)
		if idx < n {
			class = classOf(h.classTable, buf.Info[idx].GlyphID)
		}
		entryIdx := h.entryIndex(state, class)
		rec := h.entry(entryIdx, 6)
		if rec == nil {
			return
		}
		common := parseCommonEntry(rec)
		ligActionIdx := be16(rec, 4)

		if common.flags&ligSetComponent != 0 && idx < n {
			componentStack = append(componentStack, idx)
			if len(componentStack) > maxContextLength {
				componentStack = componentStack[len(componentStack)-maxContextLength:]
			}
		}
		if common.flags&ligPerformAction != 0 && ligActionIdx != 0xFFFF {
			performLigatureAction(buf, data, int(ligActionOff), int(componentOff), int(ligatureOff), ligActionIdx, componentStack)
			componentStack = componentStack[:0]
		}

		// Unlike every other morx/kerx subtable kind, ligature always
		// advances by one glyph per iteration: dontAdvanceFlag is not
		// honored here.
		state = common.newState
		idx++
	}
}

// performLigatureAction walks the ligature-action list starting at
// actionIdx, accumulating a ligature-component offset sum per Apple's
// morx ligature algorithm, until an action with the "last" bit is
// seen, then looks up the resulting ligature glyph and collapses the
// buffer's component indices into it.
func performLigatureAction(buf *buffer.Buffer, data []byte, ligActionOff, componentOff, ligatureOff int, startIdx uint16, components []int) {
	const (
		ligActionLast   = 0x80000000
		ligActionStore  = 0x40000000
		ligActionOffset = 0x3FFFFFFF
	)
	if len(components) == 0 {
		return
	}
	var ligatureIndex uint32
	stackTop := len(components) - 1
	for i := int(startIdx); ; i++ {
		actionOff := ligActionOff + i*4
		if actionOff+4 > len(data) || stackTop < 0 {
			return
		}
		action := be32(data, actionOff)
		offset := action & ligActionOffset
		// sign-extend the 30-bit offset
		if offset&0x20000000 != 0 {
			offset |= 0xC0000000
		}
		compIdx := components[stackTop]
		gid := buf.Info[compIdx].GlyphID
		compOff := componentOff + 2*int(int32(offset)+int32(gid))
		if compOff+2 > len(data) {
			return
		}
		ligatureIndex += uint32(be16(data, compOff))
		stackTop--

		if action&ligActionStore != 0 || action&ligActionLast != 0 {
			ligOff := ligatureOff + 2*int(ligatureIndex)
			if ligOff+2 > len(data) {
				return
			}
			ligGID := buffer.GID(be16(data, ligOff))
			used := components[stackTop+1:]
			buf.SubstituteLigature(used, ligGID)
			ligatureIndex = 0
		}
		if action&ligActionLast != 0 {
			return
		}
	}
}

// --- Insertion ---

const (
	insSetMark            = 0x8000
	insCurrentInsertBefore = 0x0800
	insMarkedInsertBefore  = 0x0400
	insCurrentInsertCount  = 0x03E0
	insMarkedInsertCount   = 0x001F
)

func applyInsertion(data []byte, buf *buffer.Buffer) {
	if len(data) < 20 {
		return
	}
	h := parseSTXHeader(data)
	insertionActionOff := int(be32(data, 16))
	if insertionActionOff >= len(data) {
		return
	}

	idx, state := 0, uint32(StateStartOfText)
	mark := -1

	for idx <= len(buf.Info) {
		n := len(buf.Info)
		class := uint32(ClassEndOfText)
		if idx < n {
			class = classOf(h.classTable, buf.Info[idx].GlyphID)
		}
		entryIdx := h.entryIndex(state, class)
		rec := h.entry(entryIdx, 8)
		if rec == nil {
			return
		}
		common := parseCommonEntry(rec)
		curInsertIdx := be16(rec, 4)
		markedInsertIdx := be16(rec, 6)

		if common.flags&insSetMark != 0 {
			mark = idx
		}
		if curInsertIdx != 0xFFFF {
			count := int(common.flags&insCurrentInsertCount) >> 5
			before := common.flags&insCurrentInsertBefore != 0
			idx += insertGlyphs(buf, data, idx, insertionActionOff, int(curInsertIdx), count, before)
		}
		if markedInsertIdx != 0xFFFF && mark >= 0 {
			count := int(common.flags & insMarkedInsertCount)
			before := common.flags&insMarkedInsertBefore != 0
			shift := insertGlyphs(buf, data, mark, insertionActionOff, int(markedInsertIdx), count, before)
			if mark <= idx {
				idx += shift
			}
		}

		state = common.newState
		if common.flags&dontAdvanceFlag == 0 {
			idx++
		} else if idx >= len(buf.Info) {
			break
		}
	}
}

// insertGlyphs inserts count glyphs, read from data's insertion-glyph
// list at actionOff+listIdx, before or after the glyph currently at
// index at. It returns how many buffer slots
// were added, so callers tracking a running index can keep it in
// sync with the now-longer buffer.
func insertGlyphs(buf *buffer.Buffer, data []byte, at, actionOff, listIdx, count int, before bool) int {
	if count <= 0 || at >= len(buf.Info) {
		return 0
	}
	base := buf.Info[at].GlyphID
	inserted := make([]buffer.GID, 0, count+1)
	if before {
		for i := 0; i < count; i++ {
			inserted = append(inserted, buffer.GID(be16(data, actionOff+2*(listIdx+i))))
		}
		inserted = append(inserted, base)
	} else {
		inserted = append(inserted, base)
		for i := 0; i < count; i++ {
			inserted = append(inserted, buffer.GID(be16(data, actionOff+2*(listIdx+i))))
		}
	}
	buf.Multiply(at, inserted)
	return count
}
