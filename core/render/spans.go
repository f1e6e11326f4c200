package render

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/colordep/core/annotation"
	"github.com/FocuswithJustin/colordep/core/encoding"
	"github.com/FocuswithJustin/colordep/core/errors"
)

// DefaultSpanColor is the background of spans whose label has no color.
const DefaultSpanColor = "#ddd"

// SpanOptions controls manual-mode HTML.
type SpanOptions struct {
	// Colors maps labels to backgrounds. Labels match exactly.
	Colors  map[string]string
	Default string
	RTL     bool
}

func (o SpanOptions) color(label string) string {
	if c, ok := o.Colors[label]; ok {
		return c
	}
	if o.Default != "" {
		return o.Default
	}
	return DefaultSpanColor
}

// Spans renders text with each span highlighted as a labeled <mark>. Spans
// must be in order and must not overlap; anything else is rejected rather
// than repaired. Offsets are rune offsets into text.
func Spans(text string, spans []annotation.Span, opts SpanOptions) (string, error) {
	runes := []rune(text)
	prev := 0
	for i, sp := range spans {
		field := fmt.Sprintf("spans[%d]", i)
		switch {
		case sp.Start < 0 || sp.End < sp.Start || sp.End > len(runes):
			return "", errors.NewValidation(field, fmt.Sprintf("[%d,%d) outside text of length %d", sp.Start, sp.End, len(runes)))
		case sp.Start < prev:
			return "", errors.NewValidation(field, fmt.Sprintf("[%d,%d) overlaps or precedes the previous span ending at %d", sp.Start, sp.End, prev))
		}
		prev = sp.End
	}

	dir := "ltr"
	if opts.RTL {
		dir = "rtl"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="entities" style="line-height: 2.5; direction: %s">`, dir)
	offset := 0
	for _, sp := range spans {
		b.WriteString(plain(string(runes[offset:sp.Start])))
		fmt.Fprintf(&b, "\n"+`<mark class="entity" style="background: %s; padding: 0.45em 0.6em; margin: 0 0.25em; line-height: 1; border-radius: 0.35em;">`+"\n"+
			`    %s`+"\n"+
			`    <span style="font-size: 0.8em; font-weight: bold; line-height: 1; border-radius: 0.35em; vertical-align: middle; margin-left: 0.5rem">%s</span>`+"\n"+
			`</mark>`+"\n",
			encoding.EscapeHTML(opts.color(sp.Label)), encoding.EscapeHTML(string(runes[sp.Start:sp.End])), encoding.EscapeHTML(sp.Label))
		offset = sp.End
	}
	b.WriteString(plain(string(runes[offset:])))
	b.WriteString("</div>")
	return b.String(), nil
}

// plain escapes text between spans and keeps its line breaks.
func plain(s string) string {
	return strings.ReplaceAll(encoding.EscapeHTML(s), "\n", "<br/>")
}
