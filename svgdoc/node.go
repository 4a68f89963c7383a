package svgdoc

import (
	"encoding/xml"
	"strings"
)

// Node is a child of an Element: either an *Element or a Text.
type Node interface {
	isNode()
}

// Text is a run of character data, kept as found in
// the source (entities expanded, no whitespace normalization).
type Text string

func (Text) isNode() {}

// Element is a node of the document tree.
// It is not modified once the document is parsed.
type Element struct {
	name     xml.Name
	attrs    []xml.Attr
	children []Node
	parent   *Element
}

func (*Element) isNode() {}

// Name returns the namespace qualified tag of the element.
func (e *Element) Name() xml.Name { return e.name }

// Parent returns the parent element, or nil for the root.
func (e *Element) Parent() *Element { return e.parent }

// Attrs returns a copy of the attributes, in source order.
func (e *Element) Attrs() []xml.Attr {
	return append([]xml.Attr(nil), e.attrs...)
}

// Attr returns the value of the first attribute with the
// given local name, whatever its namespace.
func (e *Element) Attr(local string) (string, bool) {
	for _, attr := range e.attrs {
		if attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

// AttrNS returns the value of the attribute with the given
// namespace and local name.
func (e *Element) AttrNS(space, local string) (string, bool) {
	for _, attr := range e.attrs {
		if attr.Name.Space == space && attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

// Children returns a copy of the child nodes, in source order.
func (e *Element) Children() []Node {
	return append([]Node(nil), e.children...)
}

// Elements returns the child elements, skipping text.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, child := range e.children {
		if el, ok := child.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// Text returns the concatenation of the direct text children.
func (e *Element) Text() string {
	var b strings.Builder
	for _, child := range e.children {
		if t, ok := child.(Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// Walk calls fn for e and its descendant elements, in depth-first
// pre-order. When fn returns false, the children of the
// element are skipped.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, child := range e.children {
		if el, ok := child.(*Element); ok {
			el.Walk(fn)
		}
	}
}

// Descendants returns the number of elements below e.
func (e *Element) Descendants() int {
	n := -1 // do not count e
	e.Walk(func(*Element) bool { n++; return true })
	return n
}

// Document is a parsed SVG (or any XML) document.
type Document struct {
	root *Element
}

// Root returns the root element, never nil.
func (d *Document) Root() *Element { return d.root }

// ElementCount returns the number of elements in the document.
func (d *Document) ElementCount() int { return 1 + d.root.Descendants() }

// Find returns the elements with the given local name,
// in document order.
func (d *Document) Find(local string) []*Element {
	var out []*Element
	d.root.Walk(func(e *Element) bool {
		if e.name.Local == local {
			out = append(out, e)
		}
		return true
	})
	return out
}

// FindByID returns the first element whose 'id' attribute is `id`, or nil.
func (d *Document) FindByID(id string) *Element {
	var found *Element
	d.root.Walk(func(e *Element) bool {
		if found != nil {
			return false
		}
		if v, ok := e.Attr("id"); ok && v == id {
			found = e
			return false
		}
		return true
	})
	return found
}
