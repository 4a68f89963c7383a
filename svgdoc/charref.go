package svgdoc

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	refNone = iota
	refAmp
	refHash
	refDigits
)

// surrogateScanner records the offsets of the character references
// to surrogate code points (such as &#xD800;) found in the stream.
// The decoder replaces them with U+FFFD instead of failing.
type surrogateScanner struct {
	r   io.Reader
	pos int64 // bytes read so far

	state int
	start int64 // offset of the pending '&'
	hex   bool
	value int64

	found []int64
}

func (s *surrogateScanner) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	for i, c := range p[:n] {
		s.scan(c, s.pos+int64(i))
	}
	s.pos += int64(n)
	return n, err
}

func digitValue(c byte, hex bool) (int64, bool) {
	switch {
	case '0' <= c && c <= '9':
		return int64(c - '0'), true
	case hex && 'a' <= c && c <= 'f':
		return int64(c-'a') + 10, true
	case hex && 'A' <= c && c <= 'F':
		return int64(c-'A') + 10, true
	}
	return 0, false
}

func (s *surrogateScanner) scan(c byte, at int64) {
	switch s.state {
	case refAmp:
		if c == '#' {
			s.state, s.hex, s.value = refHash, false, 0
			return
		}
	case refHash:
		if c == 'x' {
			s.state, s.hex = refDigits, true
			return
		}
		s.state = refDigits
		fallthrough
	case refDigits:
		if d, ok := digitValue(c, s.hex); ok {
			if s.value <= unicode.MaxRune {
				base := int64(10)
				if s.hex {
					base = 16
				}
				s.value = s.value*base + d
			}
			return
		}
		if c == ';' && 0xD800 <= s.value && s.value <= 0xDFFF {
			s.found = append(s.found, s.start)
		}
	}
	s.state = refNone
	if c == '&' {
		s.state, s.start = refAmp, at
	}
}

// check returns the offset of a surrogate reference decoded in `tok`,
// which spans [start, end) in the stream. Offsets before `end` are
// then discarded.
func (s *surrogateScanner) check(tok xml.Token, start, end int64) (int64, bool) {
	var (
		offset int64
		ok     bool
	)
	for _, pos := range s.found {
		if start <= pos && pos < end && hasReplacementChar(tok) {
			offset, ok = pos, true
			break
		}
	}
	i := 0
	for i < len(s.found) && s.found[i] < end {
		i++
	}
	s.found = s.found[i:]
	return offset, ok
}

// hasReplacementChar is true if the text decoded in `tok`
// contains U+FFFD
func hasReplacementChar(tok xml.Token) bool {
	switch tok := tok.(type) {
	case xml.CharData:
		return bytes.ContainsRune(tok, utf8.RuneError)
	case xml.StartElement:
		for _, attr := range tok.Attr {
			if strings.ContainsRune(attr.Value, utf8.RuneError) {
				return true
			}
		}
	}
	return false
}
