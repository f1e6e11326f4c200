// Package annotation defines the annotated-sentence model produced by an
// upstream NLP pipeline and the span list consumed by a renderer's manual
// mode.
//
// Offsets are rune (code point) offsets into Sentence.Text, matching the
// character offsets emitted by common pipelines.
package annotation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/colordep/core/errors"
)

// RootRelation is the relation label carried by a sentence's root token.
const RootRelation = "ROOT"

// Token is a single lexical unit.
type Token struct {
	Text     string `json:"text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Category string `json:"category"`
}

// Edge is a directed dependency from a head token (Source) to its dependent
// (Target). A root edge has Source == Target.
type Edge struct {
	Source   int    `json:"source"`
	Target   int    `json:"target"`
	Relation string `json:"relation"`
}

// IsRoot reports whether e attaches its token to itself.
func (e Edge) IsRoot() bool {
	return e.Source == e.Target
}

// Sentence is one analyzed input.
type Sentence struct {
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens"`
	Edges  []Edge  `json:"edges,omitempty"`
}

// Span is a manual-mode annotation: a labeled character range.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// BuildSpans returns one span per token, in token order. Tokens are expected
// to be ordered and non-overlapping already; nothing is sorted or checked
// here, the renderer rejects malformed lists.
func BuildSpans(tokens []Token) []Span {
	spans := make([]Span, len(tokens))
	for i, tok := range tokens {
		spans[i] = Span{Start: tok.Start, End: tok.End, Label: tok.Category}
	}
	return spans
}

// Validate checks that every token's offsets address its text inside
// Sentence.Text and that edges reference existing tokens.
func (s *Sentence) Validate() error {
	if len(s.Tokens) == 0 {
		return errors.NewValidation("tokens", "sentence has no tokens")
	}
	runes := []rune(s.Text)
	for i, tok := range s.Tokens {
		field := fmt.Sprintf("tokens[%d]", i)
		if tok.Start < 0 || tok.End < tok.Start || tok.End > len(runes) {
			return errors.NewValidation(field, fmt.Sprintf("offsets [%d,%d) outside text of length %d", tok.Start, tok.End, len(runes)))
		}
		if n := utf8.RuneCountInString(tok.Text); tok.End-tok.Start != n {
			return errors.NewValidation(field, fmt.Sprintf("span length %d does not match %q", tok.End-tok.Start, tok.Text))
		}
		if got := string(runes[tok.Start:tok.End]); got != tok.Text {
			return errors.NewValidation(field, fmt.Sprintf("text at [%d,%d) is %q, token says %q", tok.Start, tok.End, got, tok.Text))
		}
	}
	for i, e := range s.Edges {
		if e.Source < 0 || e.Source >= len(s.Tokens) || e.Target < 0 || e.Target >= len(s.Tokens) {
			return errors.NewValidation(fmt.Sprintf("edges[%d]", i), fmt.Sprintf("edge %d->%d references a missing token", e.Source, e.Target))
		}
	}
	return nil
}

// Direction is the side of an arc that carries the arrowhead.
type Direction string

const (
	// Left arcs point at their start token.
	Left Direction = "left"
	// Right arcs point at their end token.
	Right Direction = "right"
)

// Arc is an edge in renderer terms: Start < End are token indices and the
// arrowhead sits on the dependent's side.
type Arc struct {
	Start     int
	End       int
	Label     string
	Direction Direction
}

// Arcs converts edges into renderer arcs. Root edges have no visible arc and
// are skipped.
func (s *Sentence) Arcs() []Arc {
	arcs := make([]Arc, 0, len(s.Edges))
	for _, e := range s.Edges {
		switch {
		case e.Target < e.Source:
			arcs = append(arcs, Arc{Start: e.Target, End: e.Source, Label: e.Relation, Direction: Left})
		case e.Target > e.Source:
			arcs = append(arcs, Arc{Start: e.Source, End: e.Target, Label: e.Relation, Direction: Right})
		}
	}
	return arcs
}

// Root returns the index of the first token whose edge marks it as root.
func (s *Sentence) Root() (int, bool) {
	for _, e := range s.Edges {
		if e.IsRoot() || strings.EqualFold(e.Relation, RootRelation) {
			return e.Target, true
		}
	}
	return 0, false
}
