package render

import (
	"strings"
	"testing"

	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/colordep/core/annotation"
	"github.com/FocuswithJustin/colordep/core/errors"
	"github.com/FocuswithJustin/colordep/core/markup"
)

func appleIs() *annotation.Sentence {
	return &annotation.Sentence{
		Text: "Apple is",
		Tokens: []annotation.Token{
			{Text: "Apple", Start: 0, End: 5, Category: "PROPN"},
			{Text: "is", Start: 6, End: 8, Category: "AUX"},
		},
		Edges: []annotation.Edge{
			{Source: 1, Target: 0, Relation: "nsubj"},
			{Source: 1, Target: 1, Relation: "ROOT"},
		},
	}
}

func TestDependenciesGeometry(t *testing.T) {
	svg, err := Dependencies(appleIs(), DepOptions{})
	if err != nil {
		t.Fatalf("Dependencies failed: %v", err)
	}
	for _, want := range []string{
		`id="colordep" class="displacy" width="400" height="224.5"`,
		`<text class="displacy-token" fill="currentColor" text-anchor="middle" y="134.5">`,
		`<tspan class="displacy-word" fill="currentColor" x="225">is</tspan>`,
		`<tspan class="displacy-tag" dy="2em" fill="currentColor" x="50">PROPN</tspan>`,
		`d="M70,89.5 C70,2 225,2 225,89.5"`,
		`d="M70,91.5 L62,79.5 78,79.5"`,
		`xlink:href="#arrow-colordep-0"`,
		`>nsubj</textPath>`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("output missing %s\n%s", want, svg)
		}
	}
	if strings.Count(svg, `class="displacy-arrow"`) != 1 {
		t.Error("root edge should not draw an arc")
	}
}

func TestDependenciesParses(t *testing.T) {
	s := appleIs()
	s.Tokens[0].Text = "A&B <Co>"
	svg, err := Dependencies(s, DepOptions{Compact: true, ID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := markup.ParseString(svg)
	if err != nil {
		t.Fatalf("output is not well-formed: %v", err)
	}
	word := doc.SelectFirst(xpath.MustCompile(`//*[local-name()='tspan']`))
	if word == nil {
		t.Fatal("no tspan")
	}
	if got := word.Text(); got != "A&B <Co>" {
		t.Errorf("word = %q", got)
	}
	if !strings.Contains(svg, `d="M62,`) || strings.Contains(svg, " C") {
		t.Errorf("compact arcs should use straight segments:\n%s", svg)
	}
}

func TestDependenciesRightToLeft(t *testing.T) {
	svg, err := Dependencies(appleIs(), DepOptions{RTL: true, Lang: "he"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`xml:lang="he"`,
		`direction="rtl"`,
		`<tspan class="displacy-word" fill="currentColor" x="350">Apple</tspan>`,
		`<tspan class="displacy-word" fill="currentColor" x="175">is</tspan>`,
		`d="M330,89.5 C330,2 175,2 175,89.5"`,
		`d="M175,91.5 L183,79.5 167,79.5"`,
		`side="right"`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("output missing %s\n%s", want, svg)
		}
	}

	html, err := Spans("ab", []annotation.Span{{Start: 0, End: 2, Label: "X"}}, SpanOptions{RTL: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "direction: rtl") {
		t.Errorf("spans not right to left: %s", html)
	}
}

func TestDependenciesDeterministic(t *testing.T) {
	a, _ := Dependencies(appleIs(), DepOptions{})
	b, _ := Dependencies(appleIs(), DepOptions{})
	if a != b {
		t.Error("same input rendered differently")
	}
}

func TestDependenciesErrors(t *testing.T) {
	if _, err := Dependencies(&annotation.Sentence{}, DepOptions{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("empty sentence: err = %v", err)
	}
	s := appleIs()
	s.Edges = append(s.Edges, annotation.Edge{Source: 0, Target: 9})
	if _, err := Dependencies(s, DepOptions{}); err == nil {
		t.Error("dangling edge should fail")
	}
}

func TestArcLevels(t *testing.T) {
	arcs := []annotation.Arc{
		{Start: 0, End: 2},
		{Start: 0, End: 1},
		{Start: 1, End: 2},
		{Start: 2, End: 5},
	}
	got := arcLevels(arcs)
	want := []int{2, 1, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("level[%d] = %d, want %d (all: %v)", i, got[i], want[i], got)
		}
	}
	if len(arcLevels(nil)) != 0 {
		t.Error("no arcs should give no levels")
	}
}

func TestSpans(t *testing.T) {
	text := "Apple is\nhere"
	spans := []annotation.Span{{Start: 0, End: 5, Label: "PROPN"}, {Start: 6, End: 8, Label: "aux"}}
	html, err := Spans(text, spans, SpanOptions{
		Colors:  map[string]string{"PROPN": "#d1495b", "AUX": "#30638e"},
		Default: "#eeeeee",
	})
	if err != nil {
		t.Fatalf("Spans failed: %v", err)
	}
	if n := strings.Count(html, `<mark class="entity"`); n != 2 {
		t.Errorf("got %d marks, want 2", n)
	}
	if strings.Contains(html, "#30638e") {
		t.Error("labels must match case exactly")
	}
	for _, want := range []string{
		`background: #d1495b;`,
		`background: #eeeeee;`,
		`vertical-align: middle; margin-left: 0.5rem">PROPN</span>`,
		`<br/>here</div>`,
		`<div class="entities" style="line-height: 2.5; direction: ltr">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %s\n%s", want, html)
		}
	}
}

func TestSpansDefaultColorAndEscaping(t *testing.T) {
	html, err := Spans("<b>", []annotation.Span{{Start: 0, End: 3, Label: "X&Y"}}, SpanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "background: "+DefaultSpanColor) {
		t.Error("default color not used")
	}
	if strings.Contains(html, "<b>") || !strings.Contains(html, "X&amp;Y") {
		t.Errorf("text not escaped: %s", html)
	}
}

func TestSpansRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		spans []annotation.Span
	}{
		{"overlap", []annotation.Span{{Start: 0, End: 4}, {Start: 3, End: 6}}},
		{"out of order", []annotation.Span{{Start: 5, End: 6}, {Start: 0, End: 1}}},
		{"past end", []annotation.Span{{Start: 0, End: 99}}},
		{"negative", []annotation.Span{{Start: -1, End: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Spans("abcdefgh", tt.spans, SpanOptions{}); !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}
