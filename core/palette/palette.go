// Package palette maps part-of-speech categories and dependency relations to
// display colors.
//
// A Policy holds two independent tables, one per Kind, each with its own
// fallback color. Lookups never fail: a label missing from a table resolves to
// that table's fallback. Dependency relations are matched case-insensitively;
// POS categories must match the tagset exactly.
//
// Policies are immutable once built. The default policy is shared process-wide;
// overrides produce a new Policy via With.
package palette

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind selects which table a label is resolved against.
type Kind int

const (
	// POS resolves part-of-speech categories (case-sensitive).
	POS Kind = iota
	// Dependency resolves dependency relation labels (case-insensitive).
	Dependency
)

// String returns the short name used in palette files and flags.
func (k Kind) String() string {
	switch k {
	case POS:
		return "pos"
	case Dependency:
		return "dep"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses "pos" or "dep".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pos":
		return POS, nil
	case "dep", "dependency":
		return Dependency, nil
	}
	return POS, fmt.Errorf("unknown palette kind %q", s)
}

// Default fallback colors.
const (
	POSFallback        = "#dddddd"
	DependencyFallback = "#555555"
	// RootColor emphasizes the sentence root relation.
	RootColor = "#d62728"
)

var posColors = map[string]string{
	"ADJ":   "#66a182",
	"ADP":   "#6a4c93",
	"ADV":   "#8d96a3",
	"AUX":   "#30638e",
	"CCONJ": "#c9a227",
	"DET":   "#1982c4",
	"INTJ":  "#f3722c",
	"NOUN":  "#edae49",
	"NUM":   "#ff595e",
	"PART":  "#4d908e",
	"PRON":  "#6a994e",
	"PROPN": "#d1495b",
	"PUNCT": "#7f7f7f",
	"SCONJ": "#c05299",
	"SYM":   "#577590",
	"VERB":  "#00798c",
	"X":     "#a0a0a0",
}

var dependencyColors = map[string]string{
	"root":      RootColor,
	"nsubj":     "#1f77b4",
	"nsubjpass": "#6baed6",
	"csubj":     "#17becf",
	"expl":      "#9ecae1",
	"dobj":      "#ff7f0e",
	"obj":       "#ff7f0e",
	"iobj":      "#fdae6b",
	"attr":      "#bcbd22",
	"agent":     "#8c6d31",
	"prep":      "#9467bd",
	"pobj":      "#a55194",
	"pcomp":     "#ce6dbd",
	"aux":       "#8c564b",
	"auxpass":   "#c49c94",
	"det":       "#7f7f7f",
	"predet":    "#969696",
	"amod":      "#2ca02c",
	"advmod":    "#74c476",
	"npadvmod":  "#8ca252",
	"nummod":    "#637939",
	"quantmod":  "#b5cf6b",
	"compound":  "#e377c2",
	"conj":      "#f768a1",
	"cc":        "#bdbdbd",
	"xcomp":     "#3182bd",
	"ccomp":     "#08519c",
	"acomp":     "#e7ba52",
	"advcl":     "#ad494a",
	"acl":       "#d6616b",
	"relcl":     "#e7969c",
	"appos":     "#843c39",
	"mark":      "#7b4173",
	"neg":       "#e6550d",
	"poss":      "#de9ed6",
	"case":      "#9c9ede",
	"nmod":      "#5254a3",
	"prt":       "#6b6ecf",
	"dative":    "#393b79",
	"punct":     "#969696",
	"dep":       "#636363",
}

// table is one label -> color mapping with its fallback.
type table struct {
	colors   map[string]string
	fallback string
	foldCase bool
}

func (t *table) key(label string) string {
	if t.foldCase {
		return NormalizeRelation(label)
	}
	return label
}

func (t *table) lookup(label string) (string, bool) {
	c, ok := t.colors[t.key(label)]
	return c, ok
}

// NormalizeRelation folds a relation label to the form used as a table key:
// compatibility-normalized and lowercased.
func NormalizeRelation(label string) string {
	return strings.ToLower(norm.NFKC.String(label))
}

// Policy resolves labels to colors. The zero value is not usable; start from
// Default and derive variants with With.
type Policy struct {
	pos table
	dep table
}

var defaultPolicy = &Policy{
	pos: table{colors: posColors, fallback: POSFallback},
	dep: table{colors: dependencyColors, fallback: DependencyFallback, foldCase: true},
}

// Default returns the built-in policy.
func Default() *Policy {
	return defaultPolicy
}

// ColorFor resolves label against the default policy.
func ColorFor(kind Kind, label string) string {
	return defaultPolicy.ColorFor(kind, label)
}

// Kinds other than POS resolve against the dependency table.
func (p *Policy) table(kind Kind) *table {
	if kind == POS {
		return &p.pos
	}
	return &p.dep
}

// Lookup returns the mapped color for label and whether the table knows it.
func (p *Policy) Lookup(kind Kind, label string) (string, bool) {
	return p.table(kind).lookup(label)
}

// ColorFor returns the mapped color for label, or the fallback for kind.
func (p *Policy) ColorFor(kind Kind, label string) string {
	t := p.table(kind)
	if c, ok := t.lookup(label); ok {
		return c
	}
	return t.fallback
}

// Fallback returns the color used for labels absent from kind's table.
func (p *Policy) Fallback(kind Kind) string {
	return p.table(kind).fallback
}

// Colors returns a copy of kind's table.
func (p *Policy) Colors(kind Kind) map[string]string {
	src := p.table(kind).colors
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Labels returns the sorted labels of kind's table.
func (p *Policy) Labels(kind Kind) []string {
	src := p.table(kind).colors
	labels := make([]string, 0, len(src))
	for k := range src {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// Override replaces one color in a policy. With Fallback set, Label is
// ignored and the table's fallback color is replaced.
type Override struct {
	Kind     Kind
	Label    string
	Color    string
	Fallback bool
}

// With returns a new policy with overrides applied in order. The receiver is
// left untouched.
func (p *Policy) With(overrides ...Override) (*Policy, error) {
	next := &Policy{
		pos: table{colors: p.Colors(POS), fallback: p.pos.fallback, foldCase: p.pos.foldCase},
		dep: table{colors: p.Colors(Dependency), fallback: p.dep.fallback, foldCase: p.dep.foldCase},
	}
	for _, o := range overrides {
		if !ValidColor(o.Color) {
			return nil, fmt.Errorf("invalid color %q for %s %s", o.Color, o.Kind, o.Label)
		}
		t := next.table(o.Kind)
		if o.Fallback {
			t.fallback = o.Color
			continue
		}
		if strings.TrimSpace(o.Label) == "" {
			return nil, fmt.Errorf("empty %s label", o.Kind)
		}
		t.colors[t.key(o.Label)] = o.Color
	}
	return next, nil
}
