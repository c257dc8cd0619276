// Package shaping is the shape pipeline driver: it configures one
// shaping call from a Builder, seeds a buffer.Buffer via charmap and
// the text-analysis collaborator, selects between the modern
// (GSUB/GPOS, abstracted) and legacy (morx/kerx/kern) engines, and
// emits clusters to a consumer callback.
//
// Engine-selection policy is grounded on harfbuzz/ot_shaper.go
// (otShapePlanner.compile): morx runs when present and there is no
// modern substitution, otherwise modern substitution runs; kerx runs when
// present and not (both modern substitution and modern positioning
// are present); otherwise modern positioning; otherwise classic kern.
// This module implements the legacy side of that table in full and
// the modern side only via the ModernEngine interface.
package shaping

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kirawi/shapecore/aat"
	"github.com/kirawi/shapecore/buffer"
	"github.com/kirawi/shapecore/charmap"
	"github.com/kirawi/shapecore/font"
	"github.com/kirawi/shapecore/unicodedata"
)

// ModernEngine is the abstracted contract for the modern OpenType
// layout engine (GSUB/GPOS), explicitly out of scope for this module
// and supplied by the host application when it
// wants modern-table shaping alongside the legacy engine implemented
// here.
type ModernEngine interface {
	// HasSubstitution reports whether the bound font/script/language
	// combination has a usable GSUB lookup set.
	HasSubstitution() bool
	// HasPositioning reports whether it has a usable GPOS lookup set.
	HasPositioning() bool
	// Substitute runs GSUB against buf.
	Substitute(buf *buffer.Buffer)
	// Position runs GPOS against buf.
	Position(buf *buffer.Buffer)
}

// Builder is the configuration surface for a shaping Context: font,
// size, direction, variation coordinates, requested features, an
// optional modern engine, and kern/debug switches. It has no script
// setting: each codepoint's script comes from unicodedata.Script.
type Builder struct {
	Font *font.Font

	// Size is the nominal point size; shaping itself is size-agnostic
	// (advances stay in font units scaled to the em), so this is
	// carried only for consumers that need it alongside cluster output.
	Size float32

	// IsRTL selects the base shaping direction for this call. Per-run
	// direction must be resolved by the caller (typically via
	// unicodedata.BidiClass/IsRTLClass) before Shape is invoked; this
	// module does not itself run bidi paragraph analysis.
	IsRTL bool

	// Variations are user-requested variable-font axis settings.
	// Shape does not read them; no pass in this module applies them.
	Variations []font.Variation

	// Features are OpenType (tag, value) feature requests, translated
	// to AAT (selector, setting) keys for the legacy engine via
	// aat.TranslateFeatures.
	Features []aat.RequestedFeature

	// Modern is the optional modern-engine collaborator; nil means
	// "this font/call has no modern-engine support", forcing the
	// legacy engine whenever legacy tables are present.
	Modern ModernEngine

	// DisableKern suppresses the kerx engine's kerning contribution
	// (formats 0/1/2) while still running its format-4 mark-attachment
	// pass, mirroring the disable-kern feature flag a caller can
	// request independently of whether a modern engine is configured.
	DisableKern bool

	// Debug gates structured diagnostic logging of engine-selection
	// decisions, backed by zerolog. Nothing else is logged.
	Debug bool
}

var (
	// ErrNoFont is returned by NewContext when the Builder has no Font
	// configured; this is the one construction-time failure path this
	// package allows, ahead of Shape's otherwise infallible contract.
	ErrNoFont = fmt.Errorf("shaping: builder has no font")
)

// tag constants for the legacy tables this driver looks for.
var (
	tagMorx = font.NewTag('m', 'o', 'r', 'x')
	tagKerx = font.NewTag('k', 'e', 'r', 'x')
	tagKern = font.NewTag('k', 'e', 'r', 'n')
	tagAnkr = font.NewTag('a', 'n', 'k', 'r')
)

// scratchEntry is one font's worth of pre-parsed legacy tables and a
// sorted feature-key translation, cached by font identity so repeated
// Shape calls against the same font re-parse nothing.
type scratchEntry struct {
	morx        aat.MorxTable
	hasMorx     bool
	kerx        aat.KerxTable
	hasKerx     bool
	kern        aat.KernTable
	hasKern     bool
	ankr        []byte
	featureKeys []aat.FeatureKey
}

// Context is a built, reusable shaping session for one Builder
// configuration. It owns a scratch buffer.Buffer and is not safe for
// concurrent use: callers needing concurrency create one
// Context per goroutine, each against the same immutable *font.Font.
type Context struct {
	b      *Builder
	buf    *buffer.Buffer
	logger zerolog.Logger
	cache  map[uint64]*scratchEntry
}

// NewContext builds a Context from b. Building is the one fallible
// path in this package; Shape itself never returns an error.
func NewContext(b *Builder) (*Context, error) {
	if b.Font == nil {
		return nil, ErrNoFont
	}
	c := &Context{
		b:     b,
		buf:   buffer.New(),
		cache: make(map[uint64]*scratchEntry),
	}
	if b.Debug {
		c.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		c.logger = zerolog.Nop()
	}
	return c, nil
}

func (c *Context) entry() *scratchEntry {
	id := c.b.Font.Identity()
	if e, ok := c.cache[id]; ok {
		return e
	}
	e := &scratchEntry{featureKeys: aat.TranslateFeatures(c.b.Features)}
	if data, ok := c.b.Font.TableData(tagMorx); ok {
		e.morx, e.hasMorx = aat.ParseMorx(data), true
	}
	if data, ok := c.b.Font.TableData(tagKerx); ok {
		e.kerx, e.hasKerx = aat.ParseKerx(data), true
	}
	if data, ok := c.b.Font.TableData(tagKern); ok {
		e.kern, e.hasKern = aat.ParseKern(data), true
	}
	if data, ok := c.b.Font.TableData(tagAnkr); ok {
		e.ankr = data
	}
	c.cache[id] = e
	return e
}

// emScale returns a closure converting font-unit int16 deltas (as
// produced by kerx/kern value tables) to the em-relative float32 unit
// every buffer.PositionRecord field uses.
func emScale(upem uint16) func(int16) float32 {
	if upem == 0 {
		upem = 1000
	}
	scale := 1.0 / float32(upem)
	return func(v int16) float32 { return float32(v) * scale }
}

// Shape runs one shaping call: seeds buf from codepoints via charmap
// and the text-analysis collaborator, selects and runs the legacy
// and/or modern engine passes, restores logical order, and emits
// clusters via emit. It never returns an error; malformed tables and
// absent engines silently degrade to "do nothing" for that pass.
func (c *Context) Shape(codepoints []rune, emit func(buffer.Cluster)) {
	cm := charmap.New(c.b.Font)
	n := len(codepoints)
	gids := make([]font.GID, n)
	clusters := make([]uint32, n)
	sourceRanges := make([][2]uint32, n)
	joining := make([]uint8, n)
	shapeClasses := make([]buffer.ShapeClass, n)
	charClasses := make([]buffer.CharClass, n)
	userData := make([]uint32, n)
	info := make([]buffer.ClusterInfo, n)

	for i, r := range codepoints {
		gids[i] = cm.Map(r)
		clusters[i] = uint32(i)
		sourceRanges[i] = [2]uint32{uint32(i), uint32(i + 1)}
		joining[i] = unicodedata.JoiningType(r)
		shapeClasses[i] = unicodedata.ShapeClass(r)
		charClasses[i] = unicodedata.CharClass(r)
		info[i] = buffer.ClusterInfo{
			Script:     unicodedata.Script(r),
			Whitespace: unicodedata.IsWhitespace(r),
			Emoji:      unicodedata.IsEmoji(r),
		}
	}

	c.buf.Seed(gids, clusters, sourceRanges, joining, shapeClasses, charClasses, userData, info)
	c.buf.IsRTL = c.b.IsRTL

	e := c.entry()
	scale := emScale(c.b.Font.Upem())

	hasModernSubst := c.b.Modern != nil && c.b.Modern.HasSubstitution()
	hasModernPos := c.b.Modern != nil && c.b.Modern.HasPositioning()

	// morx runs only when no modern substitution is available;
	// otherwise the modern engine substitutes.
	if e.hasMorx && !hasModernSubst {
		c.logger.Debug().Msg("engine: morx substitution")
		aat.ApplyMorx(e.morx, c.buf, e.featureKeys, c.b.IsRTL)
	} else if hasModernSubst {
		c.logger.Debug().Msg("engine: modern substitution")
		c.b.Modern.Substitute(c.buf)
	}

	applyKerx := e.hasKerx && !(hasModernSubst && hasModernPos)
	switch {
	case applyKerx:
		c.logger.Debug().Msg("engine: kerx positioning")
		aat.ApplyKerx(e.kerx, c.buf, e.ankr, c.b.IsRTL, c.b.DisableKern, scale, scale)
	case hasModernPos:
		c.logger.Debug().Msg("engine: modern positioning")
		c.b.Modern.Position(c.buf)
	case e.hasKern:
		c.logger.Debug().Msg("engine: classic kern positioning")
		aat.ApplyKern(e.kern, c.buf, c.b.IsRTL, scale)
	}

	c.buf.EnsureOrder(false)
	c.buf.EmitClusters(emit)
}
