package charmap

import "github.com/kirawi/shapecore/font"

// Formats 0, 4, 6, 12, 13, 14 of the sfnt 'cmap' table.
// Format 4 and 12 follow a binary-search idiom common to cmap
// decoders; formats 0, 6, 13, 14 use the same bounds-checked
// encoding/binary style against the OpenType spec's wire layout.

// mapFormat0: byte encoding table — a flat 256-entry glyph id array,
// valid only for codepoints < 256.
func mapFormat0(sub []byte, r uint32) font.GID {
	if r >= 256 || len(sub) < 6+256 {
		return 0
	}
	return font.GID(sub[6+r])
}

func enumerateFormat0(sub []byte, yield func(rune, font.GID)) {
	if len(sub) < 6+256 {
		return
	}
	for i := 0; i < 256; i++ {
		if g := sub[6+i]; g != 0 {
			yield(rune(i), font.GID(g))
		}
	}
}

// mapFormat4: segment mapping to delta values, BMP only.
func mapFormat4(sub []byte, r uint32) font.GID {
	if r > 0xFFFF || len(sub) < 14 {
		return 0
	}
	segCountX2 := int(be16(sub, 6))
	segCount := segCountX2 / 2
	endBase := 14
	startBase := endBase + segCountX2 + 2
	deltaBase := startBase + segCountX2
	rangeBase := deltaBase + segCountX2
	if rangeBase+segCountX2 > len(sub) {
		return 0
	}

	// Classic "obscure indexing trick" binary search over end codes.
	lo, hi := 0, segCount-1
	idx := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		end := be16(sub, endBase+mid*2)
		if uint32(end) < r {
			lo = mid + 1
		} else {
			idx = mid
			hi = mid - 1
		}
	}
	if idx < 0 {
		return 0
	}
	start := be16(sub, startBase+idx*2)
	if r < uint32(start) {
		return 0
	}
	delta := int16(be16(sub, deltaBase+idx*2))
	rangeOffset := be16(sub, rangeBase+idx*2)
	if rangeOffset == 0 {
		return font.GID(uint16(r) + uint16(delta))
	}
	glyphOff := rangeBase + idx*2 + int(rangeOffset) + 2*int(uint16(r)-start)
	if glyphOff+2 > len(sub) {
		return 0
	}
	g := be16(sub, glyphOff)
	if g == 0 {
		return 0
	}
	return font.GID(uint16(g) + uint16(delta))
}

func enumerateFormat4(sub []byte, yield func(rune, font.GID)) {
	if len(sub) < 14 {
		return
	}
	segCountX2 := int(be16(sub, 6))
	segCount := segCountX2 / 2
	endBase := 14
	startBase := endBase + segCountX2 + 2
	for i := 0; i < segCount; i++ {
		start := be16(sub, startBase+i*2)
		end := be16(sub, endBase+i*2)
		if start == 0xFFFF && end == 0xFFFF {
			continue
		}
		for cp := uint32(start); cp <= uint32(end); cp++ {
			if g := mapFormat4(sub, cp); g != 0 {
				yield(rune(cp), g)
			}
			if cp == 0xFFFF {
				break
			}
		}
	}
}

// mapFormat6: trimmed table mapping — a contiguous run of codepoints
// starting at firstCode.
func mapFormat6(sub []byte, r uint32) font.GID {
	if len(sub) < 10 {
		return 0
	}
	first := uint32(be16(sub, 6))
	count := uint32(be16(sub, 8))
	if r < first || r >= first+count {
		return 0
	}
	off := 10 + int(r-first)*2
	return font.GID(be16(sub, off))
}

func enumerateFormat6(sub []byte, yield func(rune, font.GID)) {
	if len(sub) < 10 {
		return
	}
	first := be16(sub, 6)
	count := be16(sub, 8)
	for i := uint16(0); i < count; i++ {
		if g := be16(sub, 10+int(i)*2); g != 0 {
			yield(rune(uint32(first)+uint32(i)), font.GID(g))
		}
	}
}

// mapFormat12: segmented coverage, 32-bit codepoints, groups of
// (startCharCode, endCharCode, startGlyphID).
func mapFormat12(sub []byte, r uint32) font.GID {
	if len(sub) < 16 {
		return 0
	}
	numGroups := int(be32(sub, 12))
	base := 16
	lo, hi := 0, numGroups-1
	for lo <= hi {
		mid := (lo + hi) / 2
		rec := base + mid*12
		if rec+12 > len(sub) {
			return 0
		}
		start := be32(sub, rec)
		end := be32(sub, rec+4)
		switch {
		case r < start:
			hi = mid - 1
		case r > end:
			lo = mid + 1
		default:
			startGlyph := be32(sub, rec+8)
			return font.GID(startGlyph + (r - start))
		}
	}
	return 0
}

func enumerateFormat12(sub []byte, yield func(rune, font.GID)) {
	if len(sub) < 16 {
		return
	}
	numGroups := int(be32(sub, 12))
	base := 16
	for i := 0; i < numGroups; i++ {
		rec := base + i*12
		if rec+12 > len(sub) {
			return
		}
		start := be32(sub, rec)
		end := be32(sub, rec+4)
		startGlyph := be32(sub, rec+8)
		for cp := start; cp <= end; cp++ {
			yield(rune(cp), font.GID(startGlyph+(cp-start)))
			if cp == 0xFFFFFFFF {
				break
			}
		}
	}
}

// mapFormat13: many-to-one range mapping — every codepoint in a group
// maps to the same glyph id (used for last-resort fallback fonts).
func mapFormat13(sub []byte, r uint32) font.GID {
	if len(sub) < 16 {
		return 0
	}
	numGroups := int(be32(sub, 12))
	base := 16
	lo, hi := 0, numGroups-1
	for lo <= hi {
		mid := (lo + hi) / 2
		rec := base + mid*12
		if rec+12 > len(sub) {
			return 0
		}
		start := be32(sub, rec)
		end := be32(sub, rec+4)
		switch {
		case r < start:
			hi = mid - 1
		case r > end:
			lo = mid + 1
		default:
			return font.GID(be32(sub, rec+8))
		}
	}
	return 0
}

func enumerateFormat13(sub []byte, yield func(rune, font.GID)) {
	if len(sub) < 16 {
		return
	}
	numGroups := int(be32(sub, 12))
	base := 16
	for i := 0; i < numGroups; i++ {
		rec := base + i*12
		if rec+12 > len(sub) {
			return
		}
		start := be32(sub, rec)
		end := be32(sub, rec+4)
		gid := font.GID(be32(sub, rec+8))
		for cp := start; cp <= end; cp++ {
			yield(rune(cp), gid)
			if cp == 0xFFFFFFFF {
				break
			}
		}
	}
}

// mapFormat14: Unicode variation sequences. Only the "non-default UVS"
// table is consulted for an explicit glyph id. A selector record with
// no non-default table yields (0, true), meaning "use the regular
// Map(base) result"; the default-UVS table is not read, so this holds
// whether or not base is listed there. A selector without a record, or
// a base absent from the non-default table, yields (0, false).
func mapFormat14(sub []byte, base, selector uint32) (font.GID, bool) {
	if len(sub) < 10 {
		return 0, false
	}
	numRecords := int(be32(sub, 6))
	recBase := 10
	for i := 0; i < numRecords; i++ {
		rec := recBase + i*11
		if rec+11 > len(sub) {
			break
		}
		varSelector := be24(sub, rec)
		if uint32(varSelector) != selector {
			continue
		}
		nonDefaultOff := be32(sub, rec+7)
		if nonDefaultOff == 0 {
			return 0, true // default: caller should use Map(base)
		}
		if int(nonDefaultOff) >= len(sub) {
			return 0, false
		}
		uvs := sub[nonDefaultOff:]
		if len(uvs) < 4 {
			return 0, false
		}
		numUVS := int(be32(uvs, 0))
		uvsBase := 4
		lo, hi := 0, numUVS-1
		for lo <= hi {
			mid := (lo + hi) / 2
			r := uvsBase + mid*5
			if r+5 > len(uvs) {
				return 0, false
			}
			uc := be24(uvs, r)
			switch {
			case base < uc:
				hi = mid - 1
			case base > uc:
				lo = mid + 1
			default:
				return font.GID(be16(uvs, r+3)), true
			}
		}
		return 0, false
	}
	return 0, false
}

func be24(b []byte, off int) uint32 {
	if off+3 > len(b) {
		return 0
	}
	return uint32(b[off])<<16 | uint32(b[off+1])<<8 | uint32(b[off+2])
}
