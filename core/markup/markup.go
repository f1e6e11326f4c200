// Package markup parses, queries, edits and re-serializes XML-family markup
// such as the SVG emitted by diagram renderers.
//
// Parsing is backed by xmlquery and queries by antchfx/xpath. Serialization
// is namespace-aware and writes text nodes verbatim, so a parse/serialize
// round trip keeps prefixes (xlink:href, xml:lang), namespace declarations,
// attribute order and whitespace.
//
// Security Notes:
//   - External entities are never fetched; encoding/xml does not resolve
//     them. Only the predefined XML entities and the HTML named entities are
//     expanded.
package markup

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html/charset"

	"github.com/FocuswithJustin/colordep/core/errors"
)

// Document is a parsed markup tree.
type Document struct {
	root *xmlquery.Node
	// declared records whether the source carried an <?xml ...?> prolog.
	// The parser synthesizes one when it is missing.
	declared bool
}

// Node is an element (or other node) inside a Document.
type Node struct {
	node *xmlquery.Node
}

// Attribute is a qualified attribute as it appears in source.
type Attribute struct {
	Name  string
	Value string
}

var utf8BOM = []byte("\xef\xbb\xbf")

// Parse parses data. Input that is not well-formed, or that has no element,
// yields a ParseError.
func Parse(data []byte) (*Document, error) {
	opts := xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:        true,
			Entity:        xml.HTMLEntity,
			CharsetReader: charset.NewReaderLabel,
		},
	}
	root, err := xmlquery.ParseWithOptions(bytes.NewReader(data), opts)
	if err != nil {
		return nil, &errors.ParseError{Format: "markup", Message: err.Error()}
	}

	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	doc := &Document{root: root, declared: bytes.HasPrefix(trimmed, []byte("<?xml"))}
	if doc.Root() == nil {
		return nil, errors.NewParse("markup", "", "no root element")
	}
	return doc, nil
}

// ParseString is Parse on a string.
func ParseString(s string) (*Document, error) {
	return Parse([]byte(s))
}

// Root returns the document element.
func (d *Document) Root() *Node {
	if d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// Select evaluates a compiled expression against the whole document.
func (d *Document) Select(e *xpath.Expr) []*Node {
	return wrap(xmlquery.QuerySelectorAll(d.root, e))
}

// SelectFirst returns the first match of e, or nil.
func (d *Document) SelectFirst(e *xpath.Expr) *Node {
	if n := xmlquery.QuerySelector(d.root, e); n != nil {
		return &Node{node: n}
	}
	return nil
}

func wrap(nodes []*xmlquery.Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = &Node{node: n}
	}
	return out
}

// String returns the serialized document.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Write(&buf)
	return buf.String()
}

// Write serializes the document to w.
//
// Without an <?xml ...?> prolog the parser links whatever precedes the
// document element (a doctype, comments, whitespace) as siblings of the
// document node instead of children, so those are written first.
func (d *Document) Write(w io.Writer) error {
	if d.root == nil {
		return nil
	}
	s := &serializer{w: w, skipDecl: !d.declared}
	for n := d.root.NextSibling; n != nil; n = n.NextSibling {
		s.node(n)
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		s.node(child)
	}
	return s.err
}

// Name returns the element's qualified name as written in source.
func (n *Node) Name() string {
	if n == nil || n.node == nil {
		return ""
	}
	return qualified(n.node.Prefix, n.node.Data)
}

// Text returns the concatenated text content of n and its descendants.
func (n *Node) Text() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.InnerText()
}

// Attr returns the value of the named attribute, or "". Prefixed names
// such as "xlink:href" are matched by prefix.
func (n *Node) Attr(name string) string {
	if n == nil || n.node == nil {
		return ""
	}
	for _, a := range n.node.Attr {
		if attrName(a) == name {
			return a.Value
		}
	}
	return ""
}

// SetAttr sets or adds an unprefixed attribute. Existing attributes keep
// their position.
func (n *Node) SetAttr(name, value string) {
	if n == nil || n.node == nil {
		return
	}
	n.node.SetAttr(name, value)
}

// Attrs returns the attributes in document order.
func (n *Node) Attrs() []Attribute {
	if n == nil || n.node == nil {
		return nil
	}
	out := make([]Attribute, len(n.node.Attr))
	for i, a := range n.node.Attr {
		out[i] = Attribute{Name: attrName(a), Value: a.Value}
	}
	return out
}

// Children returns the child elements.
func (n *Node) Children() []*Node {
	if n == nil || n.node == nil {
		return nil
	}
	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// Descendants returns every element below n in document order.
func (n *Node) Descendants() []*Node {
	var out []*Node
	n.Walk(func(d *Node) bool {
		if d.node != n.node {
			out = append(out, d)
		}
		return true
	})
	return out
}

// Walk visits n and its descendant elements depth-first. Returning false
// from fn skips that element's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || n.node == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

// Select evaluates e relative to n.
func (n *Node) Select(e *xpath.Expr) []*Node {
	if n == nil || n.node == nil {
		return nil
	}
	return wrap(xmlquery.QuerySelectorAll(n.node, e))
}

// SelectFirst returns the first match of e relative to n, or nil.
func (n *Node) SelectFirst(e *xpath.Expr) *Node {
	if n == nil || n.node == nil {
		return nil
	}
	if m := xmlquery.QuerySelector(n.node, e); m != nil {
		return &Node{node: m}
	}
	return nil
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// attrName rebuilds the source spelling of an attribute name. After parsing,
// Name.Space holds the bound prefix, "xmlns" for prefixed declarations, or
// the raw namespace when no prefix could be resolved.
func attrName(a xmlquery.Attr) string {
	switch a.Name.Space {
	case "":
		return a.Name.Local
	case xmlNamespace:
		return "xml:" + a.Name.Local
	}
	return a.Name.Space + ":" + a.Name.Local
}
