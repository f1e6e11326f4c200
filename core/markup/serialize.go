package markup

import (
	"io"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/colordep/core/encoding"
)

// serializer writes nodes exactly as structured, with no indentation
// changes. Elements without children are written self-closing.
type serializer struct {
	w        io.Writer
	skipDecl bool
	err      error
}

func (s *serializer) write(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

func (s *serializer) node(n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			s.node(child)
		}

	case xmlquery.DeclarationNode:
		if s.skipDecl {
			return
		}
		s.write("<?" + n.Data)
		s.attrs(n.Attr)
		s.write("?>")

	case xmlquery.ProcessingInstruction:
		s.write("<?" + n.ProcInst.Target)
		if n.ProcInst.Inst != "" {
			s.write(" " + n.ProcInst.Inst)
		}
		s.write("?>")

	case xmlquery.NotationNode:
		s.write("<!" + n.Data + ">")

	case xmlquery.CommentNode:
		s.write("<!--" + n.Data + "-->")

	case xmlquery.CharDataNode:
		s.write("<![CDATA[" + n.Data + "]]>")

	case xmlquery.TextNode:
		s.write(encoding.EscapeXMLText(n.Data))

	case xmlquery.ElementNode:
		name := qualified(n.Prefix, n.Data)
		s.write("<" + name)
		s.attrs(n.Attr)
		if n.FirstChild == nil {
			s.write("/>")
			return
		}
		s.write(">")
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			s.node(child)
		}
		s.write("</" + name + ">")
	}
}

func (s *serializer) attrs(attrs []xmlquery.Attr) {
	for _, a := range attrs {
		s.write(" " + attrName(a) + `="` + encoding.EscapeXMLAttr(a.Value) + `"`)
	}
}
