package font

import (
	"encoding/binary"
	"testing"
)

func putU16(b []byte, off int, v uint16) { binary.BigEndian.PutUint16(b[off:], v) }
func putU32(b []byte, off int, v uint32) { binary.BigEndian.PutUint32(b[off:], v) }

// buildSfntDirectory assembles a bare sfnt table directory (no actual
// table bodies beyond what's needed to exercise indexTables' bounds
// checks) with one record for tag at (tOff, tLen).
func buildSfntDirectory(tag Tag, tOff, tLen uint32, totalLen int) []byte {
	data := make([]byte, totalLen)
	putU32(data, 0, 0x00010000) // sfnt version 1.0
	putU16(data, 4, 1)          // numTables
	rec := 12
	putU32(data, rec, uint32(tag))
	putU32(data, rec+8, tOff)
	putU32(data, rec+12, tLen)
	return data
}

func TestNewTagAndString(t *testing.T) {
	tag := NewTag('m', 'o', 'r', 'x')
	if got := tag.String(); got != "morx" {
		t.Errorf("tag.String() = %q, want %q", got, "morx")
	}
}

func TestIndexTablesFindsWellFormedTable(t *testing.T) {
	data := buildSfntDirectory(NewTag('m', 'o', 'r', 'x'), 28, 4, 32)
	f := &Font{data: data, tables: make(map[Tag][2]uint32)}
	f.indexTables(data)

	if !f.HasTable(NewTag('m', 'o', 'r', 'x')) {
		t.Fatal("expected morx table to be indexed")
	}
	got, ok := f.TableData(NewTag('m', 'o', 'r', 'x'))
	if !ok || len(got) != 4 {
		t.Fatalf("TableData = (%v,%v), want 4 bytes, ok", got, ok)
	}
}

func TestIndexTablesSkipsOutOfRangeRecord(t *testing.T) {
	// table claims to run past the end of the buffer: must be dropped,
	// not indexed with a truncated/OOB range.
	data := buildSfntDirectory(NewTag('k', 'e', 'r', 'x'), 1000, 4, 32)
	f := &Font{data: data, tables: make(map[Tag][2]uint32)}
	f.indexTables(data)

	if f.HasTable(NewTag('k', 'e', 'r', 'x')) {
		t.Fatal("out-of-range table record should not be indexed")
	}
}

func TestIndexTablesOnTruncatedDirectoryIndexesNothing(t *testing.T) {
	f := &Font{data: []byte{0, 1}, tables: make(map[Tag][2]uint32)}
	f.indexTables([]byte{0, 1})
	if len(f.tables) != 0 {
		t.Fatalf("got %d tables from a 2-byte directory, want 0", len(f.tables))
	}
}

func TestTableDataMissingTagReturnsFalse(t *testing.T) {
	f := &Font{data: []byte{}, tables: make(map[Tag][2]uint32)}
	if _, ok := f.TableData(NewTag('c', 'm', 'a', 'p')); ok {
		t.Fatal("expected ok=false for an unindexed tag")
	}
}

func TestIdentityOfIsStableAndContentDependent(t *testing.T) {
	a := identityOf([]byte("font-bytes-one"))
	b := identityOf([]byte("font-bytes-one"))
	c := identityOf([]byte("font-bytes-two"))
	if a != b {
		t.Error("identityOf should be deterministic for identical input")
	}
	if a == c {
		t.Error("identityOf should differ for different input")
	}
}
