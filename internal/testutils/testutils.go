// Package testutils collects the small test helpers every package's
// _test.go files share: require-style assertions and enumeration of
// the bundled font fixtures shipped by go-text/typesetting-utils.
//
// Grounded on the call sites in font/opentype/writer_test.go
// (tu.Assert, tu.AssertNoErr, tu.Filenames) — the testutils package
// those call sites reference was not itself present in the retrieved
// pack, so this is authored fresh from those call sites rather than
// copied.
package testutils

import (
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	td "github.com/go-text/typesetting-utils/opentype"
)

// Assert fails the test immediately if ok is false.
func Assert(t testing.TB, ok bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.True(t, ok, msgAndArgs...)
}

// AssertNoErr fails the test immediately if err is non-nil.
func AssertNoErr(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.NoError(t, err, msgAndArgs...)
}

// Filenames returns every embedded fixture path under category (e.g.
// "common") within go-text/typesetting-utils's bundled font corpus,
// sorted by fs.WalkDir's usual lexical order. category must equal a
// whole path component, following the observed
// tu.Filenames(t, "common") call convention.
func Filenames(t testing.TB, category string) []string {
	t.Helper()
	var out []string
	err := fs.WalkDir(td.Files, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, part := range strings.Split(path.Dir(p), "/") {
			if part == category {
				out = append(out, p)
				break
			}
		}
		return nil
	})
	AssertNoErr(t, err)
	return out
}
