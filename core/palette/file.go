package palette

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/image/colornames"

	"github.com/FocuswithJustin/colordep/core/errors"
)

// paletteFile is the participle grammar for palette override files.
// Examples:
//
//	// comments run to end of line
//	pos PROPN = "#1f77b4"
//	dep nsubj = crimson
//	fallback dep = #999
//
//nolint:govet // participle grammar tags are not standard struct tags
type paletteFile struct {
	Entries []*paletteEntry `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type paletteEntry struct {
	Pos      lexer.Position
	Fallback bool   `@"fallback"?`
	Kind     string `@("pos" | "dep")`
	Label    string `( @Ident | @String )?`
	Color    string `"=" @(Hex | Color | Ident | String)`
}

// paletteLexer tokenizes palette files. Hex colors are matched before
// comments so "#abc" is never mistaken for anything else.
var paletteLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Hex", Pattern: `#[0-9A-Fa-f]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Color", Pattern: `(?:rgba?|hsla?)\([^)]*\)`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_:.\-]*`},
	{Name: "Punct", Pattern: `=`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var paletteParser = participle.MustBuild[paletteFile](
	participle.Lexer(paletteLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
)

var (
	hexColor  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColor = regexp.MustCompile(`^(?:rgba?|hsla?)\(\s*[0-9.]+%?\s*(?:,\s*[0-9.]+%?\s*){2,3}\)$`)
)

// colorKeywords are accepted alongside the named colors.
var colorKeywords = map[string]bool{"transparent": true, "currentcolor": true}

// ValidColor reports whether s is a hex color, a CSS color name or an
// rgb()/hsl() function usable by a browser. Names are case-insensitive.
func ValidColor(s string) bool {
	return hexColor.MatchString(s) || namedColor(s) || funcColor.MatchString(s)
}

func namedColor(s string) bool {
	name := strings.ToLower(s)
	if _, ok := colornames.Map[name]; ok {
		return true
	}
	return colorKeywords[name]
}

// ParsePalette reads palette overrides from r.
func ParsePalette(name string, r io.Reader) ([]Override, error) {
	parsed, err := paletteParser.Parse(name, r)
	if err != nil {
		perr := &errors.ParseError{Format: "palette", Path: name, Message: err.Error()}
		if pe, ok := err.(participle.Error); ok {
			perr.Line = pe.Position().Line
			perr.Message = pe.Message()
		}
		return nil, perr
	}

	overrides := make([]Override, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		kind, err := ParseKind(e.Kind)
		if err != nil {
			return nil, &errors.ParseError{Format: "palette", Path: name, Line: e.Pos.Line, Message: err.Error()}
		}
		label := strings.TrimSpace(e.Label)
		switch {
		case e.Fallback && label != "":
			return nil, &errors.ParseError{Format: "palette", Path: name, Line: e.Pos.Line,
				Message: "fallback entries take no label"}
		case !e.Fallback && label == "":
			return nil, &errors.ParseError{Format: "palette", Path: name, Line: e.Pos.Line,
				Message: "missing " + kind.String() + " label"}
		}
		if !ValidColor(e.Color) {
			return nil, &errors.ParseError{Format: "palette", Path: name, Line: e.Pos.Line,
				Message: "invalid color " + e.Color}
		}
		overrides = append(overrides, Override{Kind: kind, Label: label, Color: e.Color, Fallback: e.Fallback})
	}
	return overrides, nil
}

// Load returns the default policy with the overrides read from r applied.
func Load(name string, r io.Reader) (*Policy, error) {
	overrides, err := ParsePalette(name, r)
	if err != nil {
		return nil, err
	}
	return Default().With(overrides...)
}

// LoadFile is Load on the contents of path.
func LoadFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	return Load(path, f)
}

var bareLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_:.\-]*$`)

// Format writes p in palette file syntax, one kind after the other with the
// fallback first. The output loads back into an identical policy.
func Format(w io.Writer, p *Policy) error {
	var b strings.Builder
	for i, kind := range []Kind{POS, Dependency} {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "fallback %s = %q\n", kind, p.Fallback(kind))
		colors := p.Colors(kind)
		for _, label := range p.Labels(kind) {
			name := label
			if !bareLabel.MatchString(name) || name == "fallback" || name == "pos" || name == "dep" {
				name = strconv.Quote(name)
			}
			fmt.Fprintf(&b, "%s %s = %q\n", kind, name, colors[label])
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.NewIO("write", "palette", err)
	}
	return nil
}
