package svgdoc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// This file handles the entities declared in the internal
// subset of a DOCTYPE directive, such as
//	<!DOCTYPE svg [ <!ENTITY hello "Hello World!"> ]>

// entityDecl is one general entity declaration
type entityDecl struct {
	name     string
	value    string // literal value, before expansion
	external bool   // SYSTEM or PUBLIC entity, never loaded
}

var predefinedEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"apos": "'",
	"quot": `"`,
}

func isXMLSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func trimLeftSpace(s string) string {
	i := 0
	for i < len(s) && isXMLSpace(s[i]) {
		i++
	}
	return s[i:]
}

// skipDecl returns what follows the end of the current
// declaration, ignoring quoted '>'.
func skipDecl(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return s[i+1:]
		}
	}
	return ""
}

// isDoctype returns true for a DOCTYPE directive content.
func isDoctype(directive string) bool {
	return strings.HasPrefix(trimLeftSpace(directive), "DOCTYPE")
}

// scanEntityDecls returns the general entities declared
// in the doctype directive, in source order.
// Parameter entities are ignored.
func scanEntityDecls(doctype string) ([]entityDecl, error) {
	const keyword = "<!ENTITY"
	var decls []entityDecl
	s := doctype
	for {
		i := strings.Index(s, keyword)
		if i < 0 {
			return decls, nil
		}
		s = trimLeftSpace(s[i+len(keyword):])
		if strings.HasPrefix(s, "%") { // parameter entity
			s = skipDecl(s)
			continue
		}
		end := strings.IndexFunc(s, func(r rune) bool { return r < utf8.RuneSelf && (isXMLSpace(byte(r)) || r == '>') })
		if end <= 0 {
			return nil, fmt.Errorf("missing name in entity declaration")
		}
		decl := entityDecl{name: s[:end]}
		s = trimLeftSpace(s[end:])
		if s != "" && (s[0] == '"' || s[0] == '\'') {
			closing := strings.IndexByte(s[1:], s[0])
			if closing < 0 {
				return nil, fmt.Errorf("unterminated value for entity %q", decl.name)
			}
			decl.value = s[1 : 1+closing]
			s = s[2+closing:]
		} else {
			decl.external = true
		}
		decls = append(decls, decl)
		s = skipDecl(s)
	}
}

// expandEntityValue resolves the character references and the
// references to already declared entities found in `raw`.
// An expansion larger than `limit` is an error.
func expandEntityValue(raw string, known map[string]string, limit int) (string, error) {
	var b strings.Builder
	for raw != "" {
		i := strings.IndexByte(raw, '&')
		if i < 0 {
			b.WriteString(raw)
			raw = ""
		} else {
			b.WriteString(raw[:i])
			raw = raw[i:]
			end := strings.IndexByte(raw, ';')
			if end < 0 {
				return "", fmt.Errorf("unterminated reference in entity value")
			}
			ref := raw[1:end]
			raw = raw[end+1:]
			switch {
			case strings.HasPrefix(ref, "#"):
				r, ok := parseCharRef(ref[1:])
				if !ok {
					return "", fmt.Errorf("invalid character reference &%s;", ref)
				}
				b.WriteRune(r)
			case predefinedEntities[ref] != "":
				b.WriteString(predefinedEntities[ref])
			default:
				v, ok := known[ref]
				if !ok {
					return "", fmt.Errorf("reference to undeclared entity &%s;", ref)
				}
				b.WriteString(v)
			}
		}
		if b.Len() > limit {
			return "", fmt.Errorf("entity expansion exceeds %d bytes", limit)
		}
	}
	return b.String(), nil
}

// parseCharRef decodes the content of &#...; without the '#'
func parseCharRef(s string) (rune, bool) {
	var (
		n   uint64
		err error
	)
	if strings.HasPrefix(s, "x") {
		n, err = strconv.ParseUint(s[1:], 16, 32)
	} else {
		n, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil || !utf8.ValidRune(rune(n)) {
		return 0, false
	}
	return rune(n), true
}

// entityTable builds the substitution table handed to the
// xml.Decoder. When expansion is disabled, every declared
// internal entity maps to its own reference, so that it is
// kept as literal text. External entities are never added:
// referencing them is an error in strict mode.
func entityTable(decls []entityDecl, opts resolvedOptions) (map[string]string, error) {
	table := make(map[string]string, len(decls))
	for _, decl := range decls {
		if decl.external {
			continue
		}
		if _, ok := table[decl.name]; ok { // the first declaration is binding
			continue
		}
		if !opts.internalEntities {
			table[decl.name] = "&" + decl.name + ";"
			continue
		}
		v, err := expandEntityValue(decl.value, table, opts.maxEntityExpansion)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", decl.name, err)
		}
		table[decl.name] = v
	}
	return table, nil
}
