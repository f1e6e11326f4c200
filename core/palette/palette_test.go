package palette

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/colordep/core/errors"
)

func TestColorForKnownLabels(t *testing.T) {
	p := Default()
	for _, kind := range []Kind{POS, Dependency} {
		for label, want := range p.Colors(kind) {
			if got := p.ColorFor(kind, label); got != want {
				t.Errorf("ColorFor(%s, %q) = %q, want %q", kind, label, got, want)
			}
			if _, ok := p.Lookup(kind, label); !ok {
				t.Errorf("Lookup(%s, %q) reported unknown", kind, label)
			}
		}
	}
}

func TestColorForFallback(t *testing.T) {
	tests := []struct {
		kind  Kind
		label string
		want  string
	}{
		{POS, "", POSFallback},
		{POS, "NOT_A_TAG", POSFallback},
		{POS, "propn", POSFallback}, // POS keys are case-sensitive
		{Dependency, "", DependencyFallback},
		{Dependency, "made-up-relation", DependencyFallback},
	}
	for _, tt := range tests {
		if got := ColorFor(tt.kind, tt.label); got != tt.want {
			t.Errorf("ColorFor(%s, %q) = %q, want %q", tt.kind, tt.label, got, tt.want)
		}
		if _, ok := Default().Lookup(tt.kind, tt.label); ok {
			t.Errorf("Lookup(%s, %q) should report unknown", tt.kind, tt.label)
		}
	}
}

func TestFallbacksAreIndependent(t *testing.T) {
	if Default().Fallback(POS) == Default().Fallback(Dependency) {
		t.Error("POS and dependency fallbacks should differ")
	}
	if ColorFor(Dependency, "root") == DependencyFallback {
		t.Error("root must not resolve to the fallback color")
	}
}

func TestDependencyCaseInsensitive(t *testing.T) {
	pairs := [][2]string{
		{"ROOT", "root"},
		{"NSubj", "nsubj"},
		{"Pobj", "pobj"},
		{"ＲＯＯＴ", "root"}, // full-width forms fold too
	}
	for _, pair := range pairs {
		if a, b := ColorFor(Dependency, pair[0]), ColorFor(Dependency, pair[1]); a != b {
			t.Errorf("ColorFor(dep, %q) = %q, ColorFor(dep, %q) = %q", pair[0], a, pair[1], b)
		}
	}
	if ColorFor(Dependency, "ROOT") != RootColor {
		t.Errorf("ROOT should resolve to the root color")
	}
}

func TestEveryColorValid(t *testing.T) {
	p := Default()
	for _, kind := range []Kind{POS, Dependency} {
		if !ValidColor(p.Fallback(kind)) {
			t.Errorf("%s fallback %q is not a valid color", kind, p.Fallback(kind))
		}
		for label, c := range p.Colors(kind) {
			if !ValidColor(c) {
				t.Errorf("%s %q has invalid color %q", kind, label, c)
			}
		}
	}
}

func TestColorsReturnsCopy(t *testing.T) {
	colors := Default().Colors(POS)
	colors["PROPN"] = "#000000"
	if ColorFor(POS, "PROPN") == "#000000" {
		t.Fatal("mutating Colors() result changed the default policy")
	}
}

func TestLabelsSorted(t *testing.T) {
	labels := Default().Labels(POS)
	for i := 1; i < len(labels); i++ {
		if labels[i-1] > labels[i] {
			t.Fatalf("labels not sorted: %v", labels)
		}
	}
	if len(labels) != len(Default().Colors(POS)) {
		t.Errorf("Labels() length %d, want %d", len(labels), len(Default().Colors(POS)))
	}
}

func TestWith(t *testing.T) {
	before := ColorFor(Dependency, "nsubj")

	p, err := Default().With(
		Override{Kind: Dependency, Label: "NSUBJ", Color: "crimson"},
		Override{Kind: POS, Label: "PROPN", Color: "#123"},
		Override{Kind: Dependency, Fallback: true, Color: "#abcdef"},
	)
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}

	if got := p.ColorFor(Dependency, "nsubj"); got != "crimson" {
		t.Errorf("override nsubj = %q, want crimson", got)
	}
	if got := p.ColorFor(POS, "PROPN"); got != "#123" {
		t.Errorf("override PROPN = %q, want #123", got)
	}
	if got := p.ColorFor(Dependency, "unknown"); got != "#abcdef" {
		t.Errorf("override fallback = %q, want #abcdef", got)
	}
	if got := ColorFor(Dependency, "nsubj"); got != before {
		t.Errorf("default policy changed: %q -> %q", before, got)
	}

	if _, err := Default().With(Override{Kind: POS, Label: "NOUN", Color: "not a color!"}); err == nil {
		t.Error("expected error for invalid color")
	}
	if _, err := Default().With(Override{Kind: POS, Color: "red"}); err == nil {
		t.Error("expected error for empty label")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"pos": POS, "DEP": Dependency, "dependency": Dependency} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseKind("ner"); err == nil {
		t.Error("ParseKind(ner) should fail")
	}
}

func TestValidColor(t *testing.T) {
	valid := []string{"#fff", "#ffff", "#a1b2c3", "#a1b2c3d4", "crimson", "SteelBlue", "transparent", "currentColor", "rgb(1, 2, 3)", "hsla(120, 50%, 50%, 0.3)"}
	invalid := []string{"", "#ff", "#12345", "#ggg", "red;", "url(x)", "rgb(1,2)", "12px", "bogus", "notacolor", "crimsonx"}
	for _, c := range valid {
		if !ValidColor(c) {
			t.Errorf("ValidColor(%q) = false, want true", c)
		}
	}
	for _, c := range invalid {
		if ValidColor(c) {
			t.Errorf("ValidColor(%q) = true, want false", c)
		}
	}
}

func TestParsePalette(t *testing.T) {
	src := `// project palette
pos PROPN = "#1f77b4"
pos "NOUN" = gold
dep nsubj:pass = rgb(10, 20, 30)
fallback dep = #999
fallback pos = lightgray
`
	overrides, err := ParsePalette("test.pal", strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParsePalette failed: %v", err)
	}

	want := []Override{
		{Kind: POS, Label: "PROPN", Color: "#1f77b4"},
		{Kind: POS, Label: "NOUN", Color: "gold"},
		{Kind: Dependency, Label: "nsubj:pass", Color: "rgb(10, 20, 30)"},
		{Kind: Dependency, Color: "#999", Fallback: true},
		{Kind: POS, Color: "lightgray", Fallback: true},
	}
	if len(overrides) != len(want) {
		t.Fatalf("got %d overrides, want %d: %+v", len(overrides), len(want), overrides)
	}
	for i := range want {
		if overrides[i] != want[i] {
			t.Errorf("override %d = %+v, want %+v", i, overrides[i], want[i])
		}
	}
}

func TestParsePaletteErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantLine int
	}{
		{"bad color", "pos NOUN = red\npos VERB = #12\n", 2},
		{"unknown color name", "pos NOUN = red\n\ndep nsubj = bogus\n", 3},
		{"fallback with label", "fallback dep nsubj = red\n", 1},
		{"missing label", "\n\ndep = red\n", 3},
		{"unknown kind", "ner PERSON = red\n", 1},
		{"missing equals", "pos NOUN red\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePalette("bad.pal", strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *errors.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %T: %v", err, err)
			}
			if perr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", perr.Line, tt.wantLine, err)
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Error("palette errors should unwrap to ErrInvalidInput")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	p, err := Load("inline", strings.NewReader("dep ROOT = black\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := p.ColorFor(Dependency, "root"); got != "black" {
		t.Errorf("root = %q, want black", got)
	}
	if got := p.ColorFor(POS, "VERB"); got != ColorFor(POS, "VERB") {
		t.Errorf("untouched entries should keep default colors, got %q", got)
	}

	if _, err := LoadFile("does/not/exist.pal"); err == nil {
		t.Error("LoadFile on a missing path should fail")
	}
}

func TestFormatLoadsBack(t *testing.T) {
	custom, err := Default().With(
		Override{Kind: Dependency, Label: "nsubj:pass", Color: "rgb(1, 2, 3)"},
		Override{Kind: POS, Label: "$", Color: "#000"},
		Override{Kind: POS, Fallback: true, Color: "white"},
	)
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := Format(&b, custom); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(b.String(), `pos "$" = "#000"`) {
		t.Errorf("labels that are not identifiers should be quoted:\n%s", b.String())
	}

	loaded, err := Load("formatted", strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("formatted palette does not load: %v\n%s", err, b.String())
	}
	for _, kind := range []Kind{POS, Dependency} {
		if loaded.Fallback(kind) != custom.Fallback(kind) {
			t.Errorf("%s fallback = %q, want %q", kind, loaded.Fallback(kind), custom.Fallback(kind))
		}
		want := custom.Colors(kind)
		got := loaded.Colors(kind)
		if len(got) != len(want) {
			t.Errorf("%s: %d labels, want %d", kind, len(got), len(want))
		}
		for label, color := range want {
			if got[label] != color {
				t.Errorf("%s %s = %q, want %q", kind, label, got[label], color)
			}
		}
	}
}
