package aat

import "sort"

// featureTag is a 4-byte OpenType feature tag, e.g. "liga".
type featureTag uint32

func tag(s string) featureTag {
	var t featureTag
	for i := 0; i < 4; i++ {
		t <<= 8
		if i < len(s) {
			t |= featureTag(s[i])
		} else {
			t |= ' '
		}
	}
	return t
}

// featureMapping is one row of the fixed OpenType-tag -> AAT
// (selector, setting) translation table: a fixed mapping where
// unknown OpenType tags yield no selector. Grounded verbatim on
// harfbuzz/ot_aat_layout.go's featureMappings table (Apple's own
// published tag/type/selector data, carried over unit-for-unit); the
// original source's mnemonic selector names are resolved here to
// their integer values so the table stands alone without reproducing
// a giant const block of one-off selector names.
type featureMapping struct {
	tag              featureTag
	aatType          uint16
	selectorEnabled  uint16
	selectorDisabled uint16
}

var featureMappings = []featureMapping{
	{tag("afrc"), 11, 1, 0},
	{tag("c2pc"), 38, 2, 0},
	{tag("c2sc"), 38, 1, 0},
	{tag("calt"), 36, 0, 1},
	{tag("case"), 33, 0, 1},
	{tag("clig"), 1, 18, 19},
	{tag("cpsp"), 33, 2, 3},
	{tag("cswh"), 36, 4, 5},
	{tag("dlig"), 1, 4, 5},
	{tag("expt"), 20, 10, 16},
	{tag("frac"), 11, 2, 0},
	{tag("fwid"), 22, 1, 7},
	{tag("halt"), 22, 6, 7},
	{tag("hist"), 40, 0, 1},
	{tag("hkna"), 34, 0, 1},
	{tag("hlig"), 1, 20, 21},
	{tag("hngl"), 23, 1, 0},
	{tag("hojo"), 20, 12, 16},
	{tag("hwid"), 22, 2, 7},
	{tag("ital"), 32, 2, 3},
	{tag("jp04"), 20, 11, 16},
	{tag("jp78"), 20, 2, 16},
	{tag("jp83"), 20, 3, 16},
	{tag("jp90"), 20, 4, 16},
	{tag("liga"), 1, 2, 3},
	{tag("lnum"), 21, 1, 2},
	{tag("mgrk"), 15, 10, 11},
	{tag("nlck"), 20, 13, 16},
	{tag("onum"), 21, 0, 2},
	{tag("ordn"), 10, 3, 0},
	{tag("palt"), 22, 5, 7},
	{tag("pcap"), 37, 2, 0},
	{tag("pkna"), 22, 0, 7},
	{tag("pnum"), 6, 1, 4},
	{tag("pwid"), 22, 0, 7},
	{tag("qwid"), 22, 4, 7},
	{tag("rlig"), 1, 0, 1},
	{tag("ruby"), 28, 2, 3},
	{tag("sinf"), 10, 4, 0},
	{tag("smcp"), 37, 1, 0},
	{tag("smpl"), 20, 1, 16},
	{tag("ss01"), 35, 2, 3},
	{tag("ss02"), 35, 4, 5},
	{tag("ss03"), 35, 6, 7},
	{tag("ss04"), 35, 8, 9},
	{tag("ss05"), 35, 10, 11},
	{tag("ss06"), 35, 12, 13},
	{tag("ss07"), 35, 14, 15},
	{tag("ss08"), 35, 16, 17},
	{tag("ss09"), 35, 18, 19},
	{tag("ss10"), 35, 20, 21},
	{tag("ss11"), 35, 22, 23},
	{tag("ss12"), 35, 24, 25},
	{tag("ss13"), 35, 26, 27},
	{tag("ss14"), 35, 28, 29},
	{tag("ss15"), 35, 30, 31},
	{tag("ss16"), 35, 32, 33},
	{tag("ss17"), 35, 34, 35},
	{tag("ss18"), 35, 36, 37},
	{tag("ss19"), 35, 38, 39},
	{tag("ss20"), 35, 40, 41},
	{tag("subs"), 10, 2, 0},
	{tag("sups"), 10, 1, 0},
	{tag("swsh"), 36, 2, 3},
	{tag("titl"), 19, 4, 0},
	{tag("tnam"), 20, 14, 16},
	{tag("tnum"), 6, 0, 4},
	{tag("trad"), 20, 0, 16},
	{tag("twid"), 22, 3, 7},
	{tag("unic"), 3, 14, 15},
	{tag("valt"), 22, 5, 7},
	{tag("vert"), 4, 0, 1},
	{tag("vhal"), 22, 6, 7},
	{tag("vkna"), 34, 2, 3},
	{tag("vpal"), 22, 5, 7},
	{tag("vrt2"), 4, 0, 1},
	{tag("vrtr"), 4, 2, 3},
	{tag("zero"), 14, 4, 5},
}

func init() {
	sort.Slice(featureMappings, func(i, j int) bool { return featureMappings[i].tag < featureMappings[j].tag })
}

func findFeatureMapping(t featureTag) (featureMapping, bool) {
	lo, hi := 0, len(featureMappings)
	for lo < hi {
		mid := (lo + hi) / 2
		if featureMappings[mid].tag < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(featureMappings) && featureMappings[lo].tag == t {
		return featureMappings[lo], true
	}
	return featureMapping{}, false
}

// RequestedFeature is a caller-facing (tag, value) pair, the shape
// OpenType feature requests arrive in from a caller.
type RequestedFeature struct {
	Tag   string // 4-character OpenType feature tag, e.g. "liga"
	Value uint32 // 0 disables, nonzero enables (OpenType convention)
}

// TranslateFeatures converts OpenType (tag, value) requests to the AAT
// (selector, setting) keys morx chain processing binary-searches
// against, sorted ascending for that lookup. Unknown tags are
// silently dropped.
func TranslateFeatures(requested []RequestedFeature) []FeatureKey {
	keys := make([]FeatureKey, 0, len(requested))
	for _, f := range requested {
		m, ok := findFeatureMapping(tag(f.Tag))
		if !ok {
			continue
		}
		setting := m.selectorDisabled
		if f.Value != 0 {
			setting = m.selectorEnabled
		}
		keys = append(keys, FeatureKey{Selector: m.aatType, Setting: setting})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}
