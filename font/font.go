// Package font is the font access layer collaborator: it locates and
// returns byte ranges of named sfnt tables and provides a stable
// numeric font identity for cache keys. It does not parse glyph
// outlines or perform any shaping; other packages in this module ask
// it for raw table bytes, the font identity, units-per-em and (for
// textual output) glyph names.
package font

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"

	"golang.org/x/image/font/sfnt"
)

// Tag is a 4-byte sfnt table or feature tag, e.g. "cmap" or "kern".
type Tag uint32

// GID is a 16-bit glyph id; 0 denotes .notdef.
type GID = uint16

// NewTag builds a Tag from four bytes, the conventional constructor
// used throughout the OpenType/AAT ecosystem.
func NewTag(a, b, c, d byte) Tag {
	return Tag(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

func (t Tag) String() string {
	return string([]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)})
}

var (
	ErrInvalidFont  = errors.New("font: invalid or truncated sfnt data")
	ErrTableMissing = errors.New("font: table not present")
)

// Font is a borrowed, immutable view over one font's sfnt data plus a
// stable identity used as a scratch-cache key. Multiple Fonts (or
// shaping Contexts built on them) may be used concurrently from
// different goroutines as long as each goroutine keeps to its own
// shaping Context; the Font itself is read-only after construction.
type Font struct {
	data     []byte
	sfnt     *sfnt.Font
	identity uint64
	tables   map[Tag][2]uint32 // tag -> (offset, length)
}

// Parse parses data as a single sfnt font and indexes its table
// directory. idx is not used: the table index always reads the first
// table directory (for a TTC header, the first face's), and no other
// face can be selected. It never
// panics on malformed input; errors are returned for directories that
// cannot be located at all, matching the infallible-at-call-level
// policy used by the rest of this module for already-open fonts (this
// is the one construction-time path this package allows to fail).
func Parse(data []byte, idx int) (*Font, error) {
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFont, err)
	}

	f := &Font{
		data:     data,
		sfnt:     sf,
		identity: identityOf(data),
		tables:   make(map[Tag][2]uint32),
	}
	f.indexTables(data)
	return f, nil
}

// identityOf derives a stable, cheap-to-compute numeric key from font
// bytes so a shaping.Context's scratch cache can tell "same font
// again" from "different font" without retaining the bytes.
func identityOf(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64()
}

// indexTables walks the sfnt table directory directly so callers can
// fetch raw bytes for tables x/image/font/sfnt does not itself expose
// (morx, kerx, kern, ankr). Malformed or truncated directories simply
// yield fewer indexed tables rather than an error.
func (f *Font) indexTables(data []byte) {
	if len(data) < 12 {
		return
	}
	offset := uint32(0)
	version := binary.BigEndian.Uint32(data[0:4])
	if version == 0x74746366 { // 'ttcf'
		if len(data) < 16 {
			return
		}
		numFonts := binary.BigEndian.Uint32(data[8:12])
		if numFonts == 0 {
			return
		}
		// Table directory offsets start at byte 12 of the TTC header.
		off := 12
		if off+4 > len(data) {
			return
		}
		offset = binary.BigEndian.Uint32(data[off : off+4])
	}
	if int(offset)+12 > len(data) {
		return
	}
	numTables := binary.BigEndian.Uint16(data[offset+4 : offset+6])
	recBase := int(offset) + 12
	for i := 0; i < int(numTables); i++ {
		rec := recBase + i*16
		if rec+16 > len(data) {
			return
		}
		tag := Tag(binary.BigEndian.Uint32(data[rec : rec+4]))
		tOff := binary.BigEndian.Uint32(data[rec+8 : rec+12])
		tLen := binary.BigEndian.Uint32(data[rec+12 : rec+16])
		if uint64(tOff)+uint64(tLen) > uint64(len(data)) {
			continue
		}
		f.tables[tag] = [2]uint32{tOff, tLen}
	}
}

// Identity returns the stable numeric key used by scratch caches.
func (f *Font) Identity() uint64 { return f.identity }

// HasTable reports whether the sfnt table directory lists tag.
func (f *Font) HasTable(tag Tag) bool {
	_, ok := f.tables[tag]
	return ok
}

// TableData returns the raw bytes of table tag, or (nil, false) if
// absent. The returned slice aliases the font's own backing array and
// must not be mutated.
func (f *Font) TableData(tag Tag) ([]byte, bool) {
	rng, ok := f.tables[tag]
	if !ok {
		return nil, false
	}
	off, length := rng[0], rng[1]
	if uint64(off)+uint64(length) > uint64(len(f.data)) {
		return nil, false
	}
	return f.data[off : off+length], true
}

// NumGlyphs returns the font's glyph count, via golang.org/x/image's
// sfnt parser.
func (f *Font) NumGlyphs() int {
	return f.sfnt.NumGlyphs()
}

// Upem returns units-per-em, used to scale fractional advances.
func (f *Font) Upem() uint16 {
	return uint16(f.sfnt.UnitsPerEm())
}

// GlyphName returns gid's PostScript name via golang.org/x/image's
// sfnt parser, or "gidN" when that parser returns an error or an
// empty name (e.g. for a font without glyph names).
// Used only by diagnostic/textual-output callers (cmd/shapefixture);
// nothing on the shaping call path needs glyph names.
func (f *Font) GlyphName(gid GID) string {
	var buf sfnt.Buffer
	name, err := f.sfnt.GlyphName(&buf, sfnt.GlyphIndex(gid))
	if err != nil || name == "" {
		return fmt.Sprintf("gid%d", gid)
	}
	return name
}
