package font

// VarCoord is a normalized variation-axis coordinate in 2.14
// fixed-point range [-1, 1], represented as float32 for Go ergonomics.
// Conversion to/from the wire 2.14 format happens only at the binary
// boundary inside the font access layer's own (out of scope) table
// parsing; this module's callers only ever see the normalized float.
type VarCoord float32

// Variation is a single user-requested variation-axis setting, keyed
// by the axis tag (e.g. "wght").
type Variation struct {
	Tag   Tag
	Value float32
}
