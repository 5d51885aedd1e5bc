package engine

import (
	"context"
	"image"
	"strings"
)

// Template is a dependency-free seven-segment matcher. It splits the
// binarized buffer into glyphs by column projection and scores each
// glyph's segment activations against the ten digit patterns. Useful
// as an offline fallback and as a deterministic backend in tests.
type Template struct {
	// OnRatio is the minimum foreground ratio for a segment to count
	// as lit.
	OnRatio float64
}

// NewTemplate returns the matcher with the standard activation ratio.
func NewTemplate() *Template { return &Template{OnRatio: 0.3} }

// Name implements Engine.
func (*Template) Name() string { return "template" }

// Close implements Engine.
func (*Template) Close() error { return nil }

// segment indices within a glyph cell.
const (
	segTop = iota
	segTopLeft
	segTopRight
	segMiddle
	segBottomLeft
	segBottomRight
	segBottom
	segCount
)

// digitPatterns lists the lit segments for each digit 0-9.
var digitPatterns = [10][]int{
	{segTop, segTopLeft, segTopRight, segBottomLeft, segBottomRight, segBottom},
	{segTopRight, segBottomRight},
	{segTop, segTopRight, segMiddle, segBottomLeft, segBottom},
	{segTop, segTopRight, segMiddle, segBottomRight, segBottom},
	{segTopLeft, segTopRight, segMiddle, segBottomRight},
	{segTop, segTopLeft, segMiddle, segBottomRight, segBottom},
	{segTop, segTopLeft, segMiddle, segBottomLeft, segBottomRight, segBottom},
	{segTop, segTopRight, segBottomRight},
	{segTop, segTopLeft, segTopRight, segMiddle, segBottomLeft, segBottomRight, segBottom},
	{segTop, segTopLeft, segTopRight, segMiddle, segBottomRight, segBottom},
}

// Recognize implements Engine. Segmentation parameters do not apply;
// the matcher always splits glyphs itself.
func (t *Template) Recognize(ctx context.Context, img image.Image, _ Params) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	mask := foregroundMask(img)
	glyphs := splitGlyphs(mask)
	if len(glyphs) == 0 {
		return Result{}, nil
	}

	maxH := 0
	for _, g := range glyphs {
		if g.h() > maxH {
			maxH = g.h()
		}
	}

	var text strings.Builder
	total := 0.0
	scored := 0
	for _, g := range glyphs {
		// A short blob near the baseline is the decimal point.
		if g.h() < (2*maxH)/5 && g.y0 > maxH/2 {
			text.WriteByte('.')
			continue
		}
		digit, conf := t.classify(g)
		if digit < 0 {
			continue
		}
		text.WriteByte(byte('0' + digit))
		total += conf
		scored++
	}
	if scored == 0 {
		return Result{}, nil
	}
	return Result{Text: text.String(), Confidence: total / float64(scored)}, nil
}

// classify scores the glyph's segment states against every digit
// pattern, penalizing lit segments outside the pattern. Returns -1
// when nothing matches.
func (t *Template) classify(g glyph) (int, float64) {
	// A glyph much taller than wide has no horizontal segments at all;
	// column splitting trims "1" down to its right-hand strokes.
	if g.w()*5 < g.h()*2 {
		conf := g.onRatio(0, 0, g.w(), g.h()) * 100
		if conf > 100 {
			conf = 100
		}
		return 1, conf
	}
	states := g.segmentStates(t.OnRatio)
	bestDigit, bestScore, bestConf := -1, 0.0, 0.0
	for digit, pattern := range digitPatterns {
		score := 0.0
		expected := make([]bool, segCount)
		for _, s := range pattern {
			expected[s] = true
			if states[s] {
				score++
			} else {
				score -= 0.5
			}
		}
		for s, on := range states {
			if on && !expected[s] {
				score -= 0.5
			}
		}
		if score > bestScore {
			bestDigit, bestScore = digit, score
			bestConf = score / float64(len(pattern)) * 100
		}
	}
	if bestDigit < 0 {
		return -1, 0
	}
	if bestConf > 100 {
		bestConf = 100
	}
	return bestDigit, bestConf
}

// glyph is a foreground mask cell holding one display glyph.
type glyph struct {
	mask   [][]bool
	x0, x1 int // column span within the buffer
	y0, y1 int // trimmed row span within the buffer
}

func (g glyph) w() int { return g.x1 - g.x0 }
func (g glyph) h() int { return g.y1 - g.y0 }

func (g glyph) onRatio(x0, y0, x1, y1 int) float64 {
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	on := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if g.mask[g.y0+y][g.x0+x] {
				on++
			}
		}
	}
	return float64(on) / float64((x1-x0)*(y1-y0))
}

// segmentStates samples the seven canonical segment regions of the cell.
func (g glyph) segmentStates(onRatio float64) [segCount]bool {
	w, h := g.w(), g.h()
	regions := [segCount][4]int{
		segTop:         {w / 4, 0, 3 * w / 4, h / 4},
		segTopLeft:     {0, 0, w / 4, h / 2},
		segTopRight:    {3 * w / 4, 0, w, h / 2},
		segMiddle:      {w / 4, h / 3, 3 * w / 4, 2 * h / 3},
		segBottomLeft:  {0, h / 2, w / 4, h},
		segBottomRight: {3 * w / 4, h / 2, w, h},
		segBottom:      {w / 4, 3 * h / 4, 3 * w / 4, h},
	}
	var states [segCount]bool
	for i, r := range regions {
		states[i] = g.onRatio(r[0], r[1], r[2], r[3]) > onRatio
	}
	return states
}

// foregroundMask binarizes the buffer and normalizes polarity so that
// glyph strokes are true. The minority value is taken as foreground,
// which handles both dark-on-light LCDs and light-on-dark panels.
func foregroundMask(img image.Image) [][]bool {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := make([][]bool, h)
	on := 0
	for y := range h {
		mask[y] = make([]bool, w)
		for x := range w {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			if lum > 127 {
				mask[y][x] = true
				on++
			}
		}
	}
	if on*2 > w*h {
		for y := range h {
			for x := range w {
				mask[y][x] = !mask[y][x]
			}
		}
	}
	return mask
}

// splitGlyphs partitions the mask into glyph cells separated by empty
// column runs, trimming empty rows per cell.
func splitGlyphs(mask [][]bool) []glyph {
	if len(mask) == 0 {
		return nil
	}
	h, w := len(mask), len(mask[0])
	colHasInk := make([]bool, w)
	for x := range w {
		for y := range h {
			if mask[y][x] {
				colHasInk[x] = true
				break
			}
		}
	}

	var glyphs []glyph
	start := -1
	for x := 0; x <= w; x++ {
		ink := x < w && colHasInk[x]
		switch {
		case ink && start < 0:
			start = x
		case !ink && start >= 0:
			if g, ok := trimRows(mask, start, x); ok {
				glyphs = append(glyphs, g)
			}
			start = -1
		}
	}
	return glyphs
}

func trimRows(mask [][]bool, x0, x1 int) (glyph, bool) {
	h := len(mask)
	y0, y1 := -1, -1
	for y := range h {
		for x := x0; x < x1; x++ {
			if mask[y][x] {
				if y0 < 0 {
					y0 = y
				}
				y1 = y + 1
				break
			}
		}
	}
	if y0 < 0 {
		return glyph{}, false
	}
	return glyph{mask: mask, x0: x0, x1: x1, y0: y0, y1: y1}, true
}
