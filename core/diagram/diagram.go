// Package diagram turns an annotated sentence into a colorful standalone
// page, in one of two modes: a dependency tree with colored arcs or a
// part-of-speech strip with one highlighted span per token.
package diagram

import (
	"context"
	"strings"

	"github.com/FocuswithJustin/colordep/core/annotation"
	"github.com/FocuswithJustin/colordep/core/colorize"
	"github.com/FocuswithJustin/colordep/core/document"
	"github.com/FocuswithJustin/colordep/core/errors"
	"github.com/FocuswithJustin/colordep/core/palette"
	"github.com/FocuswithJustin/colordep/core/render"
	"github.com/FocuswithJustin/colordep/internal/logging"
)

// Mode selects the diagram variant.
type Mode string

const (
	// ModeDependency draws a dependency tree.
	ModeDependency Mode = "dep"
	// ModePOS highlights part-of-speech tags without arcs.
	ModePOS Mode = "pos"
)

// Modes lists the supported modes.
var Modes = []Mode{ModeDependency, ModePOS}

// ParseMode accepts "dep"/"dependency" and "pos".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dep", "dependency", "":
		return ModeDependency, nil
	case "pos":
		return ModePOS, nil
	}
	return "", errors.NewUnsupported("mode", s)
}

// Title is the default page title for m.
func (m Mode) Title() string {
	if m == ModePOS {
		return "POS Tags"
	}
	return "Dependency Graph"
}

// Options tune a render. The zero value uses the default palette and
// displaCy layout.
type Options struct {
	Policy  *palette.Policy
	Title   string
	ID      string
	Compact bool
	Shape   colorize.Shape

	// Lang tags the dependency SVG. RTL lays out both modes right to left.
	Lang string
	RTL  bool
}

func (o Options) policy() *palette.Policy {
	if o.Policy == nil {
		return palette.Default()
	}
	return o.Policy
}

// Result is a rendered diagram.
type Result struct {
	Mode  Mode
	Title string
	// Body is the diagram markup placed inside the page.
	Body string
	// Document is the complete HTML page.
	Document string
	// Spans is set in POS mode.
	Spans []annotation.Span
	// Colorize is set in dependency mode.
	Colorize colorize.Result
}

// Degraded reports whether the diagram was delivered without colors.
func (r *Result) Degraded() bool {
	return r.Colorize.Degraded()
}

// Render dispatches on mode.
func Render(ctx context.Context, mode Mode, s *annotation.Sentence, opts Options) (*Result, error) {
	switch mode {
	case ModeDependency:
		return Dependency(ctx, s, opts)
	case ModePOS:
		return PartOfSpeech(ctx, s, opts)
	}
	return nil, errors.NewUnsupported("mode", string(mode))
}

// Dependency renders s as a dependency SVG, recolors it and packages it.
// Markup that cannot be recolored is packaged as rendered.
func Dependency(ctx context.Context, s *annotation.Sentence, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	svg, err := render.Dependencies(s, render.DepOptions{
		ID:      opts.ID,
		Compact: opts.Compact,
		Lang:    opts.Lang,
		RTL:     opts.RTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render dependency diagram")
	}

	var copts []colorize.Option
	if opts.Shape != nil {
		copts = append(copts, colorize.WithShape(opts.Shape))
	}
	colored := colorize.New(opts.policy(), copts...).Colorize(svg)
	if colored.Degraded() {
		logging.ColorizeDegraded(ctx, colored.Reason, "mode", string(ModeDependency))
	}

	res := finish(ModeDependency, opts, colored.Markup)
	res.Colorize = colored
	logging.DiagramRendered(ctx, string(res.Mode), len(s.Tokens), res.Degraded(),
		"arcs", colored.Arcs, "colored_tokens", colored.Tokens)
	return res, nil
}

// PartOfSpeech builds one span per token and renders them as highlighted
// text. Span ordering problems are reported by the span renderer.
func PartOfSpeech(ctx context.Context, s *annotation.Sentence, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.NewValidation("sentence", "missing")
	}
	policy := opts.policy()
	spans := annotation.BuildSpans(s.Tokens)
	html, err := render.Spans(s.Text, spans, render.SpanOptions{
		Colors:  policy.Colors(palette.POS),
		Default: policy.Fallback(palette.POS),
		RTL:     opts.RTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render part-of-speech diagram")
	}

	res := finish(ModePOS, opts, html)
	res.Spans = spans
	logging.DiagramRendered(ctx, string(res.Mode), len(s.Tokens), false, "spans", len(spans))
	return res, nil
}

func finish(mode Mode, opts Options, body string) *Result {
	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = mode.Title()
	}
	title = document.Title(title)
	return &Result{
		Mode:     mode,
		Title:    title,
		Body:     body,
		Document: document.Package(body, title),
	}
}
