// Package charmap implements codepoint-to-glyph lookup backed by an
// sfnt 'cmap' subtable, via a cheap (offset, format, symbol-flag)
// proxy that can be re-materialized without re-parsing the font.
// Grounded on original_source/src/charmap.rs (CharmapProxy, Charmap)
// for the contract, and on the cmap format-4/format-12 binary-search
// decoders found in the example pack's npillmayer-tyse cmap.go for the
// Go encoding/binary idiom.
package charmap

import (
	"encoding/binary"

	"github.com/kirawi/shapecore/font"
)

// format identifies which cmap subtable layout a Proxy refers to.
type format uint16

const (
	formatByteEncoding   format = 0
	formatSegmentMapping format = 4
	formatTrimmedTable   format = 6
	formatSegmented32    format = 12
	formatManyToOne      format = 13
	formatVariation      format = 14
)

// Proxy is a cheap handle: the byte offset of a cmap subtable within
// the font's 'cmap' table, its format, and whether its encoding is
// symbol-only (platform 3, encoding 0) — which makes Map remap
// codepoints below U+0100 into U+F0xx before the lookup, whatever the
// subtable's format. It is only valid against the font it was
// materialized from.
type Proxy struct {
	offset   uint32
	fmt      format
	isSymbol bool
}

// Charmap is a Proxy bound to the font's raw 'cmap' table bytes,
// ready for Map/Enumerate/MapVariant.
type Charmap struct {
	data  []byte // the whole 'cmap' table
	proxy Proxy
}

const cmapTag = 0x636d6170 // "cmap"

// New locates the best encoding subtable in f's 'cmap' table and
// returns a Charmap over it. If no usable subtable exists, New returns
// a Charmap whose Map always yields 0, never an error —
// the charmap component never fails.
func New(f *font.Font) Charmap {
	data, ok := f.TableData(font.Tag(cmapTag))
	if !ok || len(data) < 4 {
		return Charmap{}
	}
	numTables := be16(data, 2)
	var best Proxy
	bestScore := -1
	for i := uint16(0); i < numTables; i++ {
		rec := 4 + int(i)*8
		if rec+8 > len(data) {
			break
		}
		platformID := be16(data, rec)
		encodingID := be16(data, rec+2)
		off := be32(data, rec+4)
		if int(off) >= len(data) {
			continue
		}
		fmtCode := format(be16(data, int(off)))
		score, isSymbol := scoreSubtable(platformID, encodingID, fmtCode)
		if score > bestScore {
			bestScore = score
			best = Proxy{offset: off, fmt: fmtCode, isSymbol: isSymbol}
		}
	}
	return Charmap{data: data, proxy: best}
}

// scoreSubtable ranks candidate subtables by platform/encoding
// priority: Unicode full (format 12) and BMP (format 4, platform 3/1
// or 0/*) are preferred over symbol (3/0) and legacy Mac Roman (1/0).
func scoreSubtable(platformID, encodingID uint16, fmt format) (score int, isSymbol bool) {
	switch {
	case platformID == 0: // Unicode
		if fmt == formatSegmented32 {
			return 5, false
		}
		return 4, false
	case platformID == 3 && encodingID == 10: // Windows UCS-4
		return 5, false
	case platformID == 3 && encodingID == 1: // Windows BMP
		return 4, false
	case platformID == 3 && encodingID == 0: // Windows symbol
		return 2, true
	case platformID == 1 && encodingID == 0: // Mac Roman
		return 1, false
	}
	return 0, false
}

// Map resolves codepoint to a nominal glyph id, returning 0
// (.notdef) when absent or when the Charmap has no usable subtable
//.
func (c Charmap) Map(codepoint rune) font.GID {
	if c.data == nil || c.proxy.offset == 0 {
		return 0
	}
	r := uint32(codepoint)
	if c.proxy.isSymbol && r < 0x100 {
		// Windows symbol-encoded fonts remap ASCII into the PUA range
		// starting at U+F000.
		r += 0xF000
	}
	sub := c.data[c.proxy.offset:]
	switch c.proxy.fmt {
	case formatByteEncoding:
		return mapFormat0(sub, r)
	case formatSegmentMapping:
		return mapFormat4(sub, r)
	case formatTrimmedTable:
		return mapFormat6(sub, r)
	case formatSegmented32:
		return mapFormat12(sub, r)
	case formatManyToOne:
		return mapFormat13(sub, r)
	default:
		return 0
	}
}

// MapVariant resolves a (base rune, variation-selector rune) pair via
// a format-14 subtable if the font carries one, distinct from the
// main Map path. ok is false when there is no format-14 subtable or
// no entry for the pair. A selector record without a non-default UVS
// table yields (0, true), meaning "use Map(base)"; the default-UVS
// table is not read.
func (c Charmap) MapVariant(base, selector rune) (gid font.GID, ok bool) {
	vs := c.findFormat14()
	if vs == nil {
		return 0, false
	}
	return mapFormat14(vs, uint32(base), uint32(selector))
}

func (c Charmap) findFormat14() []byte {
	if c.data == nil || len(c.data) < 4 {
		return nil
	}
	numTables := be16(c.data, 2)
	for i := uint16(0); i < numTables; i++ {
		rec := 4 + int(i)*8
		if rec+8 > len(c.data) {
			break
		}
		off := be32(c.data, rec+4)
		if int(off)+2 > len(c.data) {
			continue
		}
		if format(be16(c.data, int(off))) == formatVariation {
			return c.data[off:]
		}
	}
	return nil
}

// Enumerate walks the bound subtable yielding every mapped
// (codepoint, glyph id) pair; ordering is subtable-defined.
func (c Charmap) Enumerate(yield func(codepoint rune, gid font.GID)) {
	if c.data == nil || c.proxy.offset == 0 {
		return
	}
	sub := c.data[c.proxy.offset:]
	switch c.proxy.fmt {
	case formatByteEncoding:
		enumerateFormat0(sub, yield)
	case formatSegmentMapping:
		enumerateFormat4(sub, yield)
	case formatTrimmedTable:
		enumerateFormat6(sub, yield)
	case formatSegmented32:
		enumerateFormat12(sub, yield)
	case formatManyToOne:
		enumerateFormat13(sub, yield)
	}
}

func be16(b []byte, off int) uint16 {
	if off+2 > len(b) {
		return 0
	}
	return binary.BigEndian.Uint16(b[off:])
}

func be32(b []byte, off int) uint32 {
	if off+4 > len(b) {
		return 0
	}
	return binary.BigEndian.Uint32(b[off:])
}
