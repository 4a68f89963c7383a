// Provides parsing of SVG documents into an element tree.
// Attribute values are kept as raw strings : interpreting them
// (see svgpath for the path data) is left to the consumers of the tree.
//
// Parsing is strict : a document which is not well-formed, or whose
// tags are not balanced, is rejected as a whole.
package svgdoc

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// Parse reads an XML document from `stream` and builds its tree.
// The returned error is an *MalformedError or an *UnbalancedError,
// unless `opts` is invalid; no partial Document is ever returned.
// Documents declaring a non UTF-8 encoding are transcoded.
func Parse(stream io.Reader, opts Options) (*Document, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	refs := &surrogateScanner{r: stream}
	decoder := xml.NewDecoder(refs)
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Strict = true

	builder := &treeBuilder{
		maxDepth:     resolved.maxDepth,
		maxExpansion: int64(resolved.maxEntityExpansion),
	}
	seenDoctype := false
	for {
		offset := decoder.InputOffset()
		// raw tokens : the balance of the tags is checked by the builder
		t, err := decoder.RawToken()
		if err != nil {
			if err == io.EOF {
				return builder.finish(decoder.InputOffset())
			}
			return nil, newMalformed(offset, err)
		}
		end := decoder.InputOffset()
		if pos, ok := refs.check(t, offset, end); ok {
			return nil, &MalformedError{Offset: pos, Msg: errSurrogateRef.Error(), Err: errSurrogateRef}
		}
		if err := builder.account(t, offset, end); err != nil {
			return nil, err
		}
		// Inspect the type of the XML token
		switch tok := t.(type) {
		case xml.StartElement:
			err = builder.startElement(tok, offset)
		case xml.EndElement:
			err = builder.endElement(tok, offset)
		case xml.CharData:
			err = builder.charData(tok, offset)
		case xml.Directive:
			if !isDoctype(string(tok)) {
				continue
			}
			switch {
			case builder.root != nil:
				err = &MalformedError{Offset: offset, Msg: errLateDoctype.Error(), Err: errLateDoctype}
			case seenDoctype:
				err = &MalformedError{Offset: offset, Msg: errDoubleDoctype.Error(), Err: errDoubleDoctype}
			default:
				seenDoctype = true
				err = declareEntities(decoder, string(tok), resolved, offset)
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// declareEntities registers the internal entities of the
// doctype on the decoder.
func declareEntities(decoder *xml.Decoder, doctype string, opts resolvedOptions, offset int64) error {
	decls, err := scanEntityDecls(doctype)
	if err != nil {
		return newMalformed(offset, err)
	}
	table, err := entityTable(decls, opts)
	if err != nil {
		return newMalformed(offset, err)
	}
	decoder.Entity = table
	return nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string, opts Options) (*Document, error) {
	return Parse(strings.NewReader(s), opts)
}

// ParseFile reads the document from the named file.
func ParseFile(name string, opts Options) (*Document, error) {
	fin, errf := os.Open(name)
	if errf != nil {
		return nil, errf
	}
	defer fin.Close()
	return Parse(fin, opts)
}
