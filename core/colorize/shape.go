package colorize

import (
	"strings"

	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/colordep/core/markup"
)

// Shape locates the parts of a rendered diagram that carry linguistic labels.
// Each renderer markup layout gets its own Shape so a layout change stays in
// one place.
type Shape interface {
	// Tokens returns every token-label element in document order.
	Tokens(doc *markup.Document) []*markup.Node
	// CategoryLabel returns the trimmed category text of a token element, or
	// false when the element has no category sub-element.
	CategoryLabel(token *markup.Node) (string, bool)
	// Arcs returns every relation-arc group in document order.
	Arcs(doc *markup.Document) []*markup.Node
	// ArcParts returns the styled parts of one arc group. Any part may be nil.
	ArcParts(arc *markup.Node) ArcParts
}

// ArcParts are the elements of a single relation arc.
type ArcParts struct {
	Path      *markup.Node // stroked curve
	Label     *markup.Node // text along the curve
	Arrowhead *markup.Node // filled marker at the dependent's end
}

// classTest matches elements whose class list contains name.
func classTest(name string) string {
	return "contains(concat(' ', normalize-space(@class), ' '), ' " + name + " ')"
}

var (
	displacyTokens    = xpath.MustCompile(`//*[local-name()='text'][` + classTest("displacy-token") + `]`)
	displacyArcs      = xpath.MustCompile(`//*[local-name()='g'][` + classTest("displacy-arrow") + `]`)
	displacyArc       = xpath.MustCompile(`.//*[local-name()='path'][` + classTest("displacy-arc") + `]`)
	displacyLabel     = xpath.MustCompile(`.//*[local-name()='textPath']`)
	displacyArrowhead = xpath.MustCompile(`.//*[local-name()='path'][` + classTest("displacy-arrowhead") + `]`)
)

// DisplacyShape reads the SVG layout emitted by displaCy's dependency
// visualizer:
//
//	<text class="displacy-token"><tspan>word</tspan><tspan>TAG</tspan></text>
//	<g class="displacy-arrow">
//	  <path class="displacy-arc"/>
//	  <text><textPath>rel</textPath></text>
//	  <path class="displacy-arrowhead"/>
//	</g>
type DisplacyShape struct{}

// Tokens implements Shape.
func (DisplacyShape) Tokens(doc *markup.Document) []*markup.Node {
	return doc.Select(displacyTokens)
}

// CategoryLabel implements Shape. The category is the second child element.
func (DisplacyShape) CategoryLabel(token *markup.Node) (string, bool) {
	children := token.Children()
	if len(children) < 2 {
		return "", false
	}
	return strings.TrimSpace(children[1].Text()), true
}

// Arcs implements Shape.
func (DisplacyShape) Arcs(doc *markup.Document) []*markup.Node {
	return doc.Select(displacyArcs)
}

// ArcParts implements Shape.
func (DisplacyShape) ArcParts(arc *markup.Node) ArcParts {
	return ArcParts{
		Path:      arc.SelectFirst(displacyArc),
		Label:     arc.SelectFirst(displacyLabel),
		Arrowhead: arc.SelectFirst(displacyArrowhead),
	}
}
