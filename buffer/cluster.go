package buffer

// Glyph is the consumer-facing view of one shaped glyph, the output
// counterpart of GlyphRecord/PositionRecord combined. Grounded on
// original_source/src/shape/cluster.rs's `Glyph` (id, x, y, advance,
// data).
type Glyph struct {
	ID      GID
	X, Y    float32
	Advance float32
	Data    uint32
}

// Cluster is one atomic unit of shaping output: the consumer-facing
// correspondence between a source range and the glyphs that realize
// it. Info carries the script/whitespace/emoji metadata inherited from
// the cluster's first character. Components is populated only for
// ligature clusters.
type Cluster struct {
	Source     [2]uint32
	Info       ClusterInfo
	Glyphs     []Glyph
	Components [][2]uint32
	UserData   uint32
}

// IsEmpty reports a cluster with no realizing glyphs (e.g. a control
// character that contributes no advance), supplemented from
// original_source/src/shape/cluster.rs.
func (c Cluster) IsEmpty() bool { return len(c.Glyphs) == 0 }

// IsSimple reports a one-glyph, non-ligature cluster.
func (c Cluster) IsSimple() bool { return len(c.Glyphs) == 1 && len(c.Components) == 0 }

// IsLigature reports a cluster formed by merging two or more source
// clusters into one glyph.
func (c Cluster) IsLigature() bool { return len(c.Components) >= 2 }

// IsComplex reports a cluster realized by more than one glyph that is
// not itself a ligature (e.g. base + mark, or an inserted sequence).
func (c Cluster) IsComplex() bool { return len(c.Glyphs) > 1 && len(c.Components) == 0 }

// Advance sums the advances of every glyph in the cluster.
func (c Cluster) Advance() float32 {
	var total float32
	for _, g := range c.Glyphs {
		total += g.Advance
	}
	return total
}

// EmitClusters walks the buffer in its current order (callers should
// EnsureOrder(false) first) and groups contiguous runs of glyphs
// sharing a Cluster id into output Clusters, invoking emit once per
// cluster in left-to-right buffer order. Each cluster's Glyphs slice
// is newly allocated on every call, not taken from reusable buffer
// storage; Components, when set, is the buffer's own recorded slice
// for that ligature, not a copy.
func (b *Buffer) EmitClusters(emit func(Cluster)) {
	n := len(b.Info)
	nextID := uint32(0)
	i := 0
	for i < n || int(nextID) < len(b.sourceRanges) {
		if i >= n || b.Info[i].Cluster != nextID {
			// No glyph currently carries id nextID: either it was
			// folded into an earlier surviving ligature id (skip,
			// already represented) or it is a genuinely glyph-empty
			// cluster (emit empty).
			if !b.consumedClusters[nextID] && int(nextID) < len(b.sourceRanges) {
				emit(Cluster{Source: b.sourceRangeOf(nextID)})
			}
			nextID++
			continue
		}

		cluster := b.Info[i].Cluster
		j := i
		for j < n && b.Info[j].Cluster == cluster {
			j++
		}
		glyphs := make([]Glyph, j-i)
		for k := i; k < j; k++ {
			glyphs[k-i] = Glyph{
				ID:      b.Info[k].GlyphID,
				X:       b.Pos[k].XOffset,
				Y:       b.Pos[k].YOffset,
				Advance: b.Pos[k].Advance,
				Data:    b.Info[k].UserData,
			}
		}
		out := Cluster{
			Source:   b.sourceRangeOf(cluster),
			Info:     b.Info[i].Info,
			Glyphs:   glyphs,
			UserData: b.Info[i].UserData,
		}
		if comps, ok := b.ligComponents[cluster]; ok {
			out.Components = comps
			// A ligature's source range spans the union of its
			// components.
			start, end := comps[0][0], comps[0][1]
			for _, c := range comps[1:] {
				if c[0] < start {
					start = c[0]
				}
				if c[1] > end {
					end = c[1]
				}
			}
			out.Source = [2]uint32{start, end}
		}
		emit(out)
		i = j
		nextID = cluster + 1
	}
}
