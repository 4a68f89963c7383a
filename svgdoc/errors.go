package svgdoc

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned (wrapped) by Options.Validate.
var ErrInvalidOptions = errors.New("svgdoc: invalid options")

var (
	errNoRoot        = errors.New("no root element")
	errMultipleRoots = errors.New("multiple root elements")
	errTextOutside   = errors.New("character data outside the root element")
	errLateDoctype   = errors.New("DOCTYPE declaration after the root element")
	errDoubleDoctype = errors.New("multiple DOCTYPE declarations")
	errAmplification = errors.New("entity expansion amplifies the input beyond the limit")
	errSurrogateRef  = errors.New("character reference to a surrogate code point")
)

// MalformedError is returned when the input is not well-formed XML:
// tokenizer errors, invalid encoding, premature end of input,
// missing or repeated root element or exceeded limits.
type MalformedError struct {
	Offset int64 // byte offset in the input, approximative for decoder errors
	Line   int   // 1-based line, or 0 when unknown
	Msg    string
	Err    error // underlying error, if any
}

func (e *MalformedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("svgdoc: malformed document at line %d (offset %d): %s", e.Line, e.Offset, e.Msg)
	}
	return fmt.Sprintf("svgdoc: malformed document at offset %d: %s", e.Offset, e.Msg)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// UnbalancedError is returned when the element structure is not
// balanced : a closing tag not matching the innermost open element,
// a closing tag without open element, or elements still open at the end
// of the input.
type UnbalancedError struct {
	// Tag is the offending closing tag, or the innermost
	// unclosed element when the input ends too early.
	Tag string
	// Expected is the name of the innermost open element,
	// empty if there was none.
	Expected string
	Offset   int64
	// Unclosed is true when the input ended with open elements.
	Unclosed bool
}

func (e *UnbalancedError) Error() string {
	switch {
	case e.Unclosed:
		return fmt.Sprintf("svgdoc: element <%s> not closed at end of input (offset %d)", e.Tag, e.Offset)
	case e.Expected == "":
		return fmt.Sprintf("svgdoc: unexpected closing tag </%s> at offset %d", e.Tag, e.Offset)
	default:
		return fmt.Sprintf("svgdoc: element <%s> closed by </%s> at offset %d", e.Expected, e.Tag, e.Offset)
	}
}

func newMalformed(offset int64, err error) *MalformedError {
	out := &MalformedError{Offset: offset, Msg: err.Error(), Err: err}
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) {
		out.Line, out.Msg = syntax.Line, syntax.Msg
	}
	return out
}

// qualified returns the source form of a raw (not translated) name.
func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
