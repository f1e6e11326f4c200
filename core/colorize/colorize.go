// Package colorize re-colors rendered dependency and part-of-speech diagrams.
//
// A Colorizer parses renderer markup, paints every token whose category is
// known to the palette and every relation arc, and serializes the tree back.
// Anything it cannot parse is handed back untouched with a Degraded status;
// a diagram without colors is still a usable diagram.
//
// Unknown POS categories leave the token alone. Unknown relations get the
// dependency fallback color, so every arc is painted.
package colorize

import (
	"strings"

	"github.com/FocuswithJustin/colordep/core/markup"
	"github.com/FocuswithJustin/colordep/core/palette"
)

// Styling attributes written by the colorizer.
const (
	AttrFill   = "fill"
	AttrStroke = "stroke"
)

// Status reports how a colorize pass ended.
type Status int

const (
	// OK means the markup was parsed and recolored.
	OK Status = iota
	// Degraded means the input was returned unchanged.
	Degraded
)

func (s Status) String() string {
	if s == Degraded {
		return "degraded"
	}
	return "ok"
}

// Result is the outcome of Colorize. Markup is always usable: the recolored
// tree when Status is OK, the original input when Degraded.
type Result struct {
	Markup string
	Status Status
	// Reason explains a Degraded result.
	Reason string
	// Tokens is the number of tokens painted.
	Tokens int
	// Skipped is the number of tokens left alone (no or unknown category).
	Skipped int
	// Arcs is the number of arcs painted.
	Arcs int
}

// Degraded reports whether the input came back unchanged.
func (r Result) Degraded() bool {
	return r.Status == Degraded
}

// Colorizer applies a palette to diagram markup. It holds no per-request
// state and is safe for concurrent use.
type Colorizer struct {
	policy *palette.Policy
	shape  Shape
}

// Option configures a Colorizer.
type Option func(*Colorizer)

// WithShape selects the renderer markup layout. The default is DisplacyShape.
func WithShape(s Shape) Option {
	return func(c *Colorizer) {
		c.shape = s
	}
}

// New returns a Colorizer for policy. A nil policy means palette.Default().
func New(policy *palette.Policy, opts ...Option) *Colorizer {
	if policy == nil {
		policy = palette.Default()
	}
	c := &Colorizer{policy: policy, shape: DisplacyShape{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultColorizer = New(nil)

// Colorize recolors markup with the default palette.
func Colorize(markupText string) Result {
	return defaultColorizer.Colorize(markupText)
}

// Colorize parses markupText, recolors it and serializes it again. It never
// fails: unparseable input is returned as-is with Status Degraded.
func (c *Colorizer) Colorize(markupText string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Markup: markupText, Status: Degraded, Reason: "internal error while coloring"}
		}
	}()

	doc, err := markup.ParseString(markupText)
	if err != nil {
		return Result{Markup: markupText, Status: Degraded, Reason: err.Error()}
	}
	res = c.Apply(doc)
	res.Markup = doc.String()
	return res
}

// Apply recolors doc in place. The returned Result has an empty Markup.
func (c *Colorizer) Apply(doc *markup.Document) Result {
	res := Result{Status: OK}

	for _, tok := range c.shape.Tokens(doc) {
		if c.paintToken(tok) {
			res.Tokens++
		} else {
			res.Skipped++
		}
	}

	for _, arc := range c.shape.Arcs(doc) {
		c.paintArc(arc)
		res.Arcs++
	}
	return res
}

func (c *Colorizer) paintToken(tok *markup.Node) bool {
	label, ok := c.shape.CategoryLabel(tok)
	if !ok {
		return false
	}
	color, known := c.policy.Lookup(palette.POS, label)
	if !known {
		return false
	}
	// tspans default to currentColor, so each one gets its own fill.
	tok.SetAttr(AttrFill, color)
	for _, d := range tok.Descendants() {
		d.SetAttr(AttrFill, color)
	}
	return true
}

func (c *Colorizer) paintArc(arc *markup.Node) {
	parts := c.shape.ArcParts(arc)

	var label string
	if parts.Label != nil {
		label = strings.TrimSpace(parts.Label.Text())
	}
	color := c.policy.ColorFor(palette.Dependency, label)

	if parts.Path != nil {
		parts.Path.SetAttr(AttrStroke, color)
	}
	if parts.Arrowhead != nil {
		parts.Arrowhead.SetAttr(AttrFill, color)
	}
	if parts.Label != nil {
		parts.Label.SetAttr(AttrFill, color)
	}
}
