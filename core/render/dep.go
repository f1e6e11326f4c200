// Package render draws annotated sentences in the markup layouts of spaCy's
// displaCy visualizer: an SVG dependency tree and manual-mode entity HTML.
//
// Layout constants and formulas match displaCy so diagrams produced here and
// by displaCy itself look and colorize the same.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/colordep/core/annotation"
	"github.com/FocuswithJustin/colordep/core/encoding"
	"github.com/FocuswithJustin/colordep/core/errors"
)

// DefaultID is the SVG id used when DepOptions.ID is empty. Output stays
// deterministic for identical input.
const DefaultID = "colordep"

// Page colors and font of the dependency SVG.
const (
	textColor  = "#000000"
	background = "#ffffff"
	fontFamily = "Arial, sans-serif"
)

// DepOptions controls the dependency SVG.
type DepOptions struct {
	ID      string
	Compact bool

	// Lang is the xml:lang of the SVG, "en" when empty.
	Lang string

	// RTL lays the sentence out right to left.
	RTL bool
}

func (o DepOptions) withDefaults() DepOptions {
	if o.ID == "" {
		o.ID = DefaultID
	}
	if o.Lang == "" {
		o.Lang = "en"
	}
	return o
}

// geometry holds displaCy's spacing for one render.
type geometry struct {
	offsetX      float64
	distance     float64
	arrowSpacing float64
	arrowWidth   float64
	arrowStroke  float64
	wordSpacing  float64
	compact      bool
}

func newGeometry(compact bool) geometry {
	g := geometry{
		offsetX:      50,
		distance:     175,
		arrowSpacing: 20,
		arrowWidth:   10,
		arrowStroke:  2,
		wordSpacing:  45,
		compact:      compact,
	}
	if compact {
		g.distance = 150
		g.arrowSpacing = 12
		g.arrowWidth = 6
	}
	return g
}

// Dependencies renders s as a displaCy dependency SVG. The word row shows
// token text and the category tag; root edges draw no arc.
func Dependencies(s *annotation.Sentence, opts DepOptions) (string, error) {
	if s == nil || len(s.Tokens) == 0 {
		return "", errors.NewValidation("sentence", "no tokens to render")
	}
	for i, e := range s.Edges {
		if e.Source < 0 || e.Source >= len(s.Tokens) || e.Target < 0 || e.Target >= len(s.Tokens) {
			return "", errors.NewValidation(fmt.Sprintf("edges[%d]", i), "edge references a missing token")
		}
	}
	opts = opts.withDefaults()
	g := newGeometry(opts.Compact)

	arcs := s.Arcs()
	levels := arcLevels(arcs)
	highest := 0
	for _, l := range levels {
		if l > highest {
			highest = l
		}
	}

	offsetY := g.distance/2*float64(highest) + g.arrowStroke
	width := g.offsetX + float64(len(s.Tokens))*g.distance
	height := offsetY + 3*g.wordSpacing
	dir := "ltr"
	if opts.RTL {
		dir = "rtl"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" xml:lang="%s" id="%s" class="displacy" width="%s" height="%s" direction="%s" style="max-width: none; height: %spx; color: %s; background: %s; font-family: %s; direction: %s">`,
		attr(opts.Lang), attr(opts.ID), num(width), num(height), dir, num(height),
		textColor, background, fontFamily, dir)

	y := offsetY + g.wordSpacing
	for i, tok := range s.Tokens {
		x := g.offsetX + float64(i)*g.distance
		if opts.RTL {
			x = width - x
		}
		fmt.Fprintf(&b, "\n"+`<text class="displacy-token" fill="currentColor" text-anchor="middle" y="%s">`+"\n"+
			`    <tspan class="displacy-word" fill="currentColor" x="%s">%s</tspan>`+"\n"+
			`    <tspan class="displacy-tag" dy="2em" fill="currentColor" x="%s">%s</tspan>`+"\n"+
			`</text>`+"\n",
			num(y), num(x), encoding.EscapeXMLText(tok.Text), num(x), encoding.EscapeXMLText(tok.Category))
	}

	for i, arc := range arcs {
		b.WriteString(g.arc(opts, i, arc, levels[i], highest, offsetY, width))
	}
	b.WriteString("</svg>")
	return b.String(), nil
}

func (g geometry) arc(opts DepOptions, i int, arc annotation.Arc, level, highest int, offsetY, width float64) string {
	xStart := g.offsetX + float64(arc.Start)*g.distance + g.arrowSpacing
	xEnd := g.offsetX + float64(arc.End-arc.Start)*g.distance + float64(arc.Start)*g.distance -
		g.arrowSpacing*float64(highest-level)/4
	if opts.RTL {
		xStart = width - xStart
		xEnd = width - xEnd
	}
	y := offsetY
	yCurve := offsetY - float64(level)*g.distance/2
	if g.compact {
		yCurve = offsetY - float64(level)*g.distance/6
	}
	if yCurve == 0 && highest > 5 {
		yCurve = -g.distance
	}

	direction := arc.Direction
	side := "left"
	if opts.RTL {
		side = "right"
		if direction == annotation.Left {
			direction = annotation.Right
		} else {
			direction = annotation.Left
		}
	}

	id := fmt.Sprintf("arrow-%s-%d", attr(opts.ID), i)
	return fmt.Sprintf(`<g class="displacy-arrow">`+"\n"+
		`    <path class="displacy-arc" id="%s" stroke-width="%spx" d="%s" fill="none" stroke="currentColor"/>`+"\n"+
		`    <text dy="1.25em" style="font-size: 0.8em; letter-spacing: 1px">`+"\n"+
		`        <textPath xlink:href="#%s" class="displacy-label" startOffset="50%%" side="%s" fill="currentColor" text-anchor="middle">%s</textPath>`+"\n"+
		`    </text>`+"\n"+
		`    <path class="displacy-arrowhead" d="%s" fill="currentColor"/>`+"\n"+
		`</g>`+"\n",
		id, num(g.arrowStroke), g.arcPath(xStart, y, yCurve, xEnd),
		id, side, encoding.EscapeXMLText(arc.Label),
		g.arrowhead(direction, xStart, y, xEnd))
}

func (g geometry) arcPath(x, y, curve, end float64) string {
	if g.compact {
		return fmt.Sprintf("M%s,%s %s,%s %s,%s %s,%s", num(x), num(y), num(x), num(curve), num(end), num(curve), num(end), num(y))
	}
	return fmt.Sprintf("M%s,%s C%s,%s %s,%s %s,%s", num(x), num(y), num(x), num(curve), num(end), num(curve), num(end), num(y))
}

func (g geometry) arrowhead(direction annotation.Direction, x, y, end float64) string {
	var p1, p2, p3 float64
	if direction == annotation.Left {
		p1, p2, p3 = x, x-g.arrowWidth+2, x+g.arrowWidth-2
	} else {
		p1, p2, p3 = end, end+g.arrowWidth-2, end-g.arrowWidth+2
	}
	return fmt.Sprintf("M%s,%s L%s,%s %s,%s", num(p1), num(y+2), num(p2), num(y-g.arrowWidth), num(p3), num(y-g.arrowWidth))
}

// arcLevels assigns each arc a height so that nested arcs clear the arcs they
// span. Shorter arcs are placed first; ties break on start position.
func arcLevels(arcs []annotation.Arc) []int {
	levels := make([]int, len(arcs))
	if len(arcs) == 0 {
		return levels
	}
	length := 0
	for _, a := range arcs {
		if a.End > length {
			length = a.End
		}
	}
	maxLevel := make([]int, length)

	order := make([]int, len(arcs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		la, lb := arcs[order[a]].End-arcs[order[a]].Start, arcs[order[b]].End-arcs[order[b]].Start
		if la != lb {
			return la < lb
		}
		return arcs[order[a]].Start < arcs[order[b]].Start
	})

	for _, idx := range order {
		a := arcs[idx]
		level := 0
		for i := a.Start; i < a.End; i++ {
			if maxLevel[i] > level {
				level = maxLevel[i]
			}
		}
		level++
		for i := a.Start; i < a.End; i++ {
			maxLevel[i] = level
		}
		levels[idx] = level
	}
	return levels
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func attr(s string) string {
	return encoding.EscapeXMLAttr(s)
}
