// Package aat implements the legacy (Apple Advanced Typography)
// glyph-transformation engine: morx (extended glyph metamorphosis) and
// kerx/kern (kerning and mark attachment). Each state-machine subtable
// kind runs its own loop over the shared STX header, class lookup and
// entry helpers in this file; there is no common driver interface.
//
// Grounded primarily on original_source/src/shape/aat.rs
// (apply_morx/apply_kerx/apply_kern/find_base) for exact semantics.
package aat

import (
	"encoding/binary"

	"github.com/kirawi/shapecore/buffer"
)

func be16(b []byte, off int) uint16 {
	if off < 0 || off+2 > len(b) {
		return 0
	}
	return binary.BigEndian.Uint16(b[off:])
}

func be32(b []byte, off int) uint32 {
	if off < 0 || off+4 > len(b) {
		return 0
	}
	return binary.BigEndian.Uint32(b[off:])
}

// Reserved AAT state-machine states, common to every subtable kind.
const (
	StateStartOfText = 0
	StateStartOfLine = 1
	firstUserState   = 2
)

// Reserved AAT glyph classes, common to every class table.
const (
	ClassEndOfText    = 0
	ClassOutOfBounds  = 1
	ClassDeletedGlyph = 2
	ClassEndOfLine    = 3
	firstUserClass    = 4
)

// stxHeader is the fixed 16-byte "extended state table" (STX) header
// shared by morx and kerx subtables: class count plus three
// subtable-relative offsets.
type stxHeader struct {
	nClasses   uint32
	classTable []byte // AAT Lookup Table (format 6 or 8 supported, see classOf)
	stateArray []byte
	entryTable []byte
}

// parseSTXHeader reads the header at the start of data (a subtable's
// own byte range, already sliced by the caller past its fixed
// preamble). Malformed headers yield a zero stxHeader: its class
// lookups yield ClassOutOfBounds, entryIndex yields entry 0, and entry
// yields nil, which ends the caller's loop.
func parseSTXHeader(data []byte) stxHeader {
	if len(data) < 16 {
		return stxHeader{}
	}
	nClasses := be32(data, 0)
	classOff := be32(data, 4)
	stateOff := be32(data, 8)
	entryOff := be32(data, 12)
	h := stxHeader{nClasses: nClasses}
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

// classOf maps a glyph id to its state-machine class using an AAT
// Lookup Table. Only formats 6 (sorted binary-search array) and 8
// (trimmed fixed-range array) are supported — the two formats
// actually emitted by the font tools that produce morx/kerx tables in
// practice; this is a deliberate scope cut rather than exhaustive
// coverage of every historical AAT lookup-table format.
// Unsupported formats and out-of-range glyphs both yield
// ClassOutOfBounds, the safe degrade value.
func classOf(classTable []byte, gid buffer.GID) uint32 {
	if len(classTable) < 2 {
		return ClassOutOfBounds
	}
	switch be16(classTable, 0) {
	case 6:
		return lookupFormat6(classTable, gid)
	case 8:
		return lookupFormat8(classTable, gid)
	default:
		return ClassOutOfBounds
	}
}

func lookupFormat6(data []byte, gid buffer.GID) uint32 {
	if len(data) < 12 {
		return ClassOutOfBounds
	}
	nUnits := int(be16(data, 4))
	base := 12
	lo, hi := 0, nUnits-1
	for lo <= hi {
		mid := (lo + hi) / 2
		rec := base + mid*4
		if rec+4 > len(data) {
			return ClassOutOfBounds
		}
		g := be16(data, rec)
		switch {
		case gid < g:
			hi = mid - 1
		case gid > g:
			lo = mid + 1
		default:
			return uint32(be16(data, rec+2))
		}
	}
	return ClassOutOfBounds
}

func lookupFormat8(data []byte, gid buffer.GID) uint32 {
	// data still carries the 2-byte format selector classOf dispatched
	// on, same convention as lookupFormat6: firstGlyph/glyphCount/values
	// start after it, not at offset 0.
	if len(data) < 6 {
		return ClassOutOfBounds
	}
	first := be16(data, 2)
	count := be16(data, 4)
	if gid < first || uint32(gid) >= uint32(first)+uint32(count) {
		return ClassOutOfBounds
	}
	off := 6 + int(gid-first)*2
	return uint32(be16(data, off))
}

// entryIndex looks up the entry-table index for (state, class) in the
// state array, a flat [numStates][nClasses]uint16 matrix.
func (h stxHeader) entryIndex(state, class uint32) uint16 {
	if h.nClasses == 0 {
		return 0
	}
	off := int(state*h.nClasses+class) * 2
	return be16(h.stateArray, off)
}

// entry returns the raw entry-table record at idx, sized entrySize
// bytes (callers interpret the kind-specific payload past the common
// newState+flags header).
func (h stxHeader) entry(idx uint16, entrySize int) []byte {
	off := int(idx) * entrySize
	if off+entrySize > len(h.entryTable) {
		return nil
	}
	return h.entryTable[off : off+entrySize]
}

// commonEntry is the header every AAT state-table entry record starts
// with: the next state to transition to, and kind-specific flag bits.
type commonEntry struct {
	newState uint32
	flags    uint16
}

func parseCommonEntry(rec []byte) commonEntry {
	if len(rec) < 4 {
		return commonEntry{}
	}
	return commonEntry{newState: uint32(be16(rec, 0)), flags: be16(rec, 2)}
}

// maxContextLength bounds rearrangement spans and the ligature
// component stack to
// avoid pathological or malformed tables creating unbounded work,
// matching the defensive bound HarfBuzz's AAT port applies.
const maxContextLength = 40
