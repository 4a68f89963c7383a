package svgdoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	xmlNamespace   = "http://www.w3.org/XML/1998/namespace"
	xmlnsNamespace = "http://www.w3.org/2000/xmlns/"

	// once past the entity expansion limit, the decoded text may
	// not exceed this multiple of the input read
	amplificationFactor = 5
)

// openElement is an entry of the builder stack
type openElement struct {
	el       *Element
	rawName  xml.Name          // name as found in the source, to match the closing tag
	bindings map[string]string // namespace prefixes declared on this element
}

// treeBuilder consumes raw decoder events and builds
// the element tree. It is responsible for the structural
// checks : balanced tags, single root.
type treeBuilder struct {
	stack    []openElement
	root     *Element
	maxDepth int

	maxExpansion int64
	decoded      int64 // bytes of character data and attribute values
}

func (b *treeBuilder) top() *Element {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1].el
}

// lookup resolves a namespace prefix, "" being the default namespace.
func (b *treeBuilder) lookup(prefix string) (string, bool) {
	switch prefix {
	case "xml":
		return xmlNamespace, true
	case "xmlns":
		return xmlnsNamespace, true
	}
	for i := len(b.stack) - 1; i >= 0; i-- {
		if uri, ok := b.stack[i].bindings[prefix]; ok {
			return uri, true
		}
	}
	return "", prefix == "" // no default namespace
}

// account adds the text decoded from `tok` to the document
// budget, `consumed` being the number of input bytes read so far.
// References to entities are expanded by the decoder, so that a few
// input bytes may produce a large text.
func (b *treeBuilder) account(tok xml.Token, offset, consumed int64) error {
	switch tok := tok.(type) {
	case xml.CharData:
		b.decoded += int64(len(tok))
	case xml.StartElement:
		for _, attr := range tok.Attr {
			b.decoded += int64(len(attr.Value))
		}
	default:
		return nil
	}
	if b.decoded > b.maxExpansion && b.decoded > amplificationFactor*consumed {
		return &MalformedError{
			Offset: offset,
			Msg:    fmt.Sprintf("%s (%d bytes decoded from %d)", errAmplification, b.decoded, consumed),
			Err:    errAmplification,
		}
	}
	return nil
}

func (b *treeBuilder) startElement(se xml.StartElement, offset int64) error {
	if b.root != nil && len(b.stack) == 0 {
		return &MalformedError{Offset: offset, Msg: errMultipleRoots.Error(), Err: errMultipleRoots}
	}
	if len(b.stack) >= b.maxDepth {
		return &MalformedError{Offset: offset, Msg: fmt.Sprintf("element nesting exceeds %d", b.maxDepth)}
	}

	parent := b.top()
	entry := openElement{rawName: se.Name}
	for _, attr := range se.Attr {
		switch {
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			if entry.bindings == nil {
				entry.bindings = make(map[string]string)
			}
			entry.bindings[""] = attr.Value
		case attr.Name.Space == "xmlns":
			if attr.Value == "" {
				return &MalformedError{Offset: offset, Msg: fmt.Sprintf("empty namespace for prefix %q", attr.Name.Local)}
			}
			if entry.bindings == nil {
				entry.bindings = make(map[string]string)
			}
			entry.bindings[attr.Name.Local] = attr.Value
		}
	}
	// the bindings of the element are in scope for its own names
	b.stack = append(b.stack, entry)

	el := &Element{parent: parent}
	space, ok := b.lookup(se.Name.Space)
	if !ok {
		return &MalformedError{Offset: offset, Msg: fmt.Sprintf("undeclared namespace prefix %q", se.Name.Space)}
	}
	el.name = xml.Name{Space: space, Local: se.Name.Local}

	el.attrs = make([]xml.Attr, 0, len(se.Attr))
	index := make(map[xml.Name]int, len(se.Attr))
	for _, attr := range se.Attr {
		name := attr.Name
		switch {
		case name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns"):
			// declarations are kept as written
		case name.Space != "":
			uri, ok := b.lookup(name.Space)
			if !ok {
				return &MalformedError{Offset: offset, Msg: fmt.Sprintf("undeclared namespace prefix %q", name.Space)}
			}
			name.Space = uri
		}
		if i, ok := index[name]; ok { // the last value wins
			el.attrs[i].Value = attr.Value
			continue
		}
		index[name] = len(el.attrs)
		el.attrs = append(el.attrs, xml.Attr{Name: name, Value: attr.Value})
	}

	b.stack[len(b.stack)-1].el = el
	if el.parent == nil {
		b.root = el
	} else {
		el.parent.children = append(el.parent.children, el)
	}
	return nil
}

func (b *treeBuilder) endElement(ee xml.EndElement, offset int64) error {
	if len(b.stack) == 0 {
		return &UnbalancedError{Tag: qualified(ee.Name), Offset: offset}
	}
	open := b.stack[len(b.stack)-1]
	if open.rawName != ee.Name {
		return &UnbalancedError{Tag: qualified(ee.Name), Expected: qualified(open.rawName), Offset: offset}
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

func (b *treeBuilder) charData(data []byte, offset int64) error {
	parent := b.top()
	if parent == nil {
		if len(bytes.TrimSpace(data)) != 0 {
			return &MalformedError{Offset: offset, Msg: errTextOutside.Error(), Err: errTextOutside}
		}
		return nil
	}
	// adjacent runs (text and CDATA sections) are merged in one node
	if n := len(parent.children); n > 0 {
		if t, ok := parent.children[n-1].(Text); ok {
			parent.children[n-1] = t + Text(data)
			return nil
		}
	}
	parent.children = append(parent.children, Text(data))
	return nil
}

func (b *treeBuilder) finish(offset int64) (*Document, error) {
	if len(b.stack) != 0 {
		open := b.stack[len(b.stack)-1]
		return nil, &UnbalancedError{Tag: qualified(open.rawName), Offset: offset, Unclosed: true}
	}
	if b.root == nil {
		return nil, &MalformedError{Offset: offset, Msg: errNoRoot.Error(), Err: errNoRoot}
	}
	return &Document{root: b.root}, nil
}
