// Command shapefixture is the one test-harness CLI this module ships,
// the sole exception to an otherwise config-free core ("no CLI, no
// environment variables, no persisted state"): given a font file and
// a codepoint list, it runs one shaping call and prints the
// `[name@x,y|name@x,y|…]` textual representation used for fixture
// comparison.
//
// Grounded on boxesandglue-textshape/harfbuzz-tests/runner_test.go's
// output conventions, used here in the inverse direction: that file
// parses harfbuzz's own `.tests` fixture corpus, this command emits
// the equivalent line rather than parsing one, since consuming
// harfbuzz's fixture format is out of this module's scope.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/kirawi/shapecore/aat"
	"github.com/kirawi/shapecore/buffer"
	"github.com/kirawi/shapecore/font"
	"github.com/kirawi/shapecore/shaping"
)

var (
	flagRTL      bool
	flagSize     float32
	flagDebug    bool
	flagFeatures string
	flagText     bool
)

func main() {
	root := &cobra.Command{
		Use:   "shapefixture <font-path> <codepoints>",
		Short: "Shape a codepoint list against a font and print its fixture line",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}
	root.Flags().BoolVar(&flagRTL, "rtl", false, "shape right-to-left")
	root.Flags().Float32Var(&flagSize, "size", 12, "nominal point size, passed to the shaping Builder (not printed)")
	root.Flags().BoolVar(&flagDebug, "debug", false, "log engine-selection decisions to stderr")
	root.Flags().StringVar(&flagFeatures, "features", "", "comma-separated tag=value feature requests, e.g. liga=1,smcp=0")
	root.Flags().BoolVar(&flagText, "text", false, "treat <codepoints> as a literal UTF-8 string (NFC-normalized) instead of a codepoint list")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	fontPath, codepointArg := args[0], args[1]

	data, err := os.ReadFile(fontPath)
	if err != nil {
		return fmt.Errorf("shapefixture: reading font: %w", err)
	}
	f, err := font.Parse(data, 0)
	if err != nil {
		return fmt.Errorf("shapefixture: parsing font: %w", err)
	}

	codepoints, err := parseCodepoints(codepointArg)
	if err != nil {
		return err
	}

	b := &shaping.Builder{
		Font:     f,
		Size:     flagSize,
		IsRTL:    flagRTL,
		Features: parseFeatures(flagFeatures),
		Debug:    flagDebug,
	}
	ctx, err := shaping.NewContext(b)
	if err != nil {
		return fmt.Errorf("shapefixture: %w", err)
	}

	var glyphs []buffer.Glyph
	ctx.Shape(codepoints, func(c buffer.Cluster) {
		glyphs = append(glyphs, c.Glyphs...)
	})

	fmt.Println(formatFixtureLine(f, glyphs))
	return nil
}

// parseCodepoints accepts either a literal string (--text) or a
// comma-separated list of "U+XXXX"/"0xXXXX"/decimal codepoints.
func parseCodepoints(arg string) ([]rune, error) {
	if flagText {
		return []rune(norm.NFC.String(arg)), nil
	}
	var out []rune
	for _, tok := range strings.Split(arg, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		base := 10
		if rest, ok := strings.CutPrefix(tok, "U+"); ok {
			tok, base = rest, 16
		} else if rest, ok := strings.CutPrefix(tok, "u+"); ok {
			tok, base = rest, 16
		} else if rest, ok := strings.CutPrefix(tok, "0x"); ok {
			tok, base = rest, 16
		} else if rest, ok := strings.CutPrefix(tok, "0X"); ok {
			tok, base = rest, 16
		}
		v, err := strconv.ParseInt(tok, base, 32)
		if err != nil {
			return nil, fmt.Errorf("shapefixture: bad codepoint %q: %w", tok, err)
		}
		out = append(out, rune(v))
	}
	return out, nil
}

func parseFeatures(s string) []aat.RequestedFeature {
	if s == "" {
		return nil
	}
	var out []aat.RequestedFeature
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		parts := strings.SplitN(tok, "=", 2)
		value := uint32(1)
		if len(parts) == 2 {
			if v, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
				value = uint32(v)
			}
		}
		out = append(out, aat.RequestedFeature{Tag: parts[0], Value: value})
	}
	return out
}

// formatFixtureLine renders glyphs as "[name@x,y|name@x,y|…]", the
// fixture-comparison format this harness emits.
func formatFixtureLine(f *font.Font, glyphs []buffer.Glyph) string {
	parts := make([]string, len(glyphs))
	for i, g := range glyphs {
		parts[i] = fmt.Sprintf("%s@%g,%g", f.GlyphName(g.ID), g.X, g.Y)
	}
	return "[" + strings.Join(parts, "|") + "]"
}
