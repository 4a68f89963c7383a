package svgdoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const svgNS = "http://www.w3.org/2000/svg"

func mustParse(t *testing.T, input string, opts Options) *Document {
	t.Helper()
	doc, err := ParseString(input, opts)
	if err != nil {
		t.Fatalf("unexpected error for %q: %s", input, err)
	}
	return doc
}

func TestEmptySVG(t *testing.T) {
	doc := mustParse(t, `<svg xmlns="http://www.w3.org/2000/svg"></svg>`, Options{})
	root := doc.Root()
	if root == nil {
		t.Fatal("missing root")
	}
	if exp := (xml.Name{Space: svgNS, Local: "svg"}); root.Name() != exp {
		t.Errorf("expected %v, got %v", exp, root.Name())
	}
	if root.Parent() != nil {
		t.Error("root should not have a parent")
	}
	if doc.ElementCount() != 1 {
		t.Errorf("unexpected element count %d", doc.ElementCount())
	}
}

const doctypeSVG = `<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.0//EN" "http://www.w3.org/TR/2001/REC-SVG-20010904/DTD/svg10.dtd" [` +
	`  <!ENTITY hello "Hello World!">` +
	`]>` +
	`<svg xmlns="http://www.w3.org/2000/svg">` +
	`</svg>`

func TestEntitiesDeclared(t *testing.T) {
	for _, allow := range []bool{true, false} {
		doc := mustParse(t, doctypeSVG, NewOptions().WithInternalEntities(allow))
		if doc.Root() == nil {
			t.Fatal("missing root")
		}
	}
}

func TestEntityExpansion(t *testing.T) {
	input := `<!DOCTYPE svg [
		<!ENTITY hello "Hello World!">
		<!ENTITY greet 'Say &hello; &#x21;'>
		<!ENTITY % param "ignored">
	]>
	<svg><title>&greet;</title><text id="&hello;">&lt;&hello;&gt;</text></svg>`

	doc := mustParse(t, input, NewOptions())
	title := doc.Find("title")[0]
	if got := title.Text(); got != "Say Hello World! !" {
		t.Errorf("unexpected expansion %q", got)
	}
	text := doc.Find("text")[0]
	if got := text.Text(); got != "<Hello World!>" {
		t.Errorf("unexpected expansion %q", got)
	}
	if id, _ := text.Attr("id"); id != "Hello World!" {
		t.Errorf("unexpected attribute expansion %q", id)
	}

	// with expansion disabled, the references are kept as is
	doc = mustParse(t, input, NewOptions().WithInternalEntities(false))
	if got := doc.Find("title")[0].Text(); got != "&greet;" {
		t.Errorf("entity should not be expanded, got %q", got)
	}
	text = doc.Find("text")[0]
	if got := text.Text(); got != "<&hello;>" {
		t.Errorf("entity should not be expanded, got %q", got)
	}
	if strings.Contains(text.Text(), "Hello World!") {
		t.Error("entity substituted while disabled")
	}
	if id, _ := text.Attr("id"); id != "&hello;" {
		t.Errorf("entity should not be expanded, got %q", id)
	}
}

func TestEntityBomb(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE lolz [<!ENTITY lol0 "lol">`)
	for i := 1; i < 10; i++ {
		ref := fmt.Sprintf("&lol%d;", i-1)
		fmt.Fprintf(&b, `<!ENTITY lol%d "%s">`, i, strings.Repeat(ref, 10))
	}
	b.WriteString(`]><svg>&lol9;</svg>`)

	_, err := ParseString(b.String(), NewOptions().WithMaxEntityExpansion(1000))
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected a malformed error, got %v", err)
	}

	// no expansion, no bomb
	doc := mustParse(t, b.String(), NewOptions().WithInternalEntities(false))
	if got := doc.Root().Text(); got != "&lol9;" {
		t.Errorf("unexpected text %q", got)
	}
}

// amplifiedDoctype declares a3, a 1e6 bytes entity, in a few bytes
func amplifiedDoctype() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE svg [<!ENTITY a0 "%s">`, strings.Repeat("x", 1000))
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, `<!ENTITY a%d "%s">`, i, strings.Repeat(fmt.Sprintf("&a%d;", i-1), 10))
	}
	b.WriteString(`]>`)
	return b.String()
}

func TestEntityAmplification(t *testing.T) {
	doctype := amplifiedDoctype()

	// each entity is under the default limit
	doc := mustParse(t, doctype+`<svg>&a3;</svg>`, Options{})
	if got := len(doc.Root().Text()); got != 1000000 {
		t.Errorf("unexpected text length %d", got)
	}

	for _, input := range []string{
		doctype + `<svg>&a3;&a3;</svg>`,
		doctype + `<svg><g id="&a3;"/><g id="&a3;"/></svg>`,
		doctype + `<svg><g id="&a3;">&a3;</g></svg>`,
	} {
		_, err := ParseString(input, Options{})
		var malformed *MalformedError
		if !errors.As(err, &malformed) || !errors.Is(err, errAmplification) {
			t.Errorf("expected an amplification error, got %v", err)
		}
	}

	// the budget also applies to a lower limit
	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE svg [<!ENTITY e "%s">]><svg>`, strings.Repeat("y", 50))
	b.WriteString(strings.Repeat("&e;", 40))
	b.WriteString(`</svg>`)
	_, err := ParseString(b.String(), NewOptions().WithMaxEntityExpansion(100))
	if !errors.Is(err, errAmplification) {
		t.Errorf("expected an amplification error, got %v", err)
	}
	// without expansion the references are kept as written
	doc = mustParse(t, b.String(), NewOptions().WithInternalEntities(false).WithMaxEntityExpansion(100))
	if got := doc.Root().Text(); got != strings.Repeat("&e;", 40) {
		t.Errorf("unexpected text %q", got)
	}

	// large documents without entities are not limited
	large := `<svg>` + strings.Repeat("<g>z</g>", 200000) + `</svg>`
	mustParse(t, large, NewOptions().WithMaxEntityExpansion(10))
}

func TestSurrogateReference(t *testing.T) {
	for _, test := range []struct {
		input  string
		offset int64
	}{
		{`<svg>&#xD800;</svg>`, 5},
		{`<svg>ab&#55296;</svg>`, 7},
		{`<svg><g id="a&#xdfff;"/></svg>`, 13},
	} {
		_, err := ParseString(test.input, Options{})
		var malformed *MalformedError
		if !errors.As(err, &malformed) || !errors.Is(err, errSurrogateRef) {
			t.Errorf("%q: expected a malformed error, got %v", test.input, err)
			continue
		}
		if malformed.Offset != test.offset {
			t.Errorf("%q: expected offset %d, got %d", test.input, test.offset, malformed.Offset)
		}
	}

	for _, input := range []string{
		`<svg>&#xD7FF;&#xE000;&#x10000;</svg>`,
		"<svg>\uFFFD</svg>",
		`<svg><![CDATA[&#xD800;]]></svg>`,
		`<svg><!-- &#xD800; -->&#xFFFD;</svg>`,
	} {
		mustParse(t, input, Options{})
	}
}

func TestUndeclaredEntity(t *testing.T) {
	for _, input := range []string{
		`<svg>&nope;</svg>`,
		`<!DOCTYPE svg [<!ENTITY ext SYSTEM "http://example.com/ext.xml">]><svg>&ext;</svg>`,
		`<!DOCTYPE svg [<!ENTITY a "&b;">]><svg>&a;</svg>`,
	} {
		_, err := ParseString(input, Options{})
		var malformed *MalformedError
		if !errors.As(err, &malformed) {
			t.Errorf("%q: expected a malformed error, got %v", input, err)
		}
	}
}

func TestUnbalanced(t *testing.T) {
	for _, test := range []struct {
		input    string
		tag      string
		expected string
		unclosed bool
	}{
		{`<svg xmlns="http://www.w3.org/2000/svg"></svg></svg>`, "svg", "", false},
		{`<svg><g></svg>`, "svg", "g", false},
		{`<svg><g><path></g></path></svg>`, "g", "path", false},
		{`<svg><g></g>`, "svg", "", true},
		{`<svg><svg:g xmlns:svg="http://www.w3.org/2000/svg"></g></svg>`, "g", "svg:g", false},
	} {
		doc, err := ParseString(test.input, Options{})
		if doc != nil {
			t.Errorf("%q: no partial document expected", test.input)
		}
		var unbalanced *UnbalancedError
		if !errors.As(err, &unbalanced) {
			t.Errorf("%q: expected an unbalanced error, got %v", test.input, err)
			continue
		}
		if unbalanced.Tag != test.tag || unbalanced.Expected != test.expected || unbalanced.Unclosed != test.unclosed {
			t.Errorf("%q: unexpected error %+v", test.input, unbalanced)
		}
	}
}

func TestUnbalancedOffset(t *testing.T) {
	input := `<svg><g></svg>`
	_, err := ParseString(input, Options{})
	var unbalanced *UnbalancedError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("expected an unbalanced error, got %v", err)
	}
	if exp := int64(strings.Index(input, "</svg>")); unbalanced.Offset != exp {
		t.Errorf("expected offset %d, got %d", exp, unbalanced.Offset)
	}
}

func TestMalformed(t *testing.T) {
	for _, input := range []string{
		``,
		`   `,
		`<svg`,
		`<svg><g`,
		`<svg width=10></svg>`,
		`<svg></svg><svg></svg>`,
		`text<svg></svg>`,
		`<svg></svg>trailing`,
		`<svg><p:g></p:g></svg>`,
		`<svg p:width="1"></svg>`,
		"<svg>\xff\xfe</svg>",
		`<svg></svg><!DOCTYPE svg>`,
	} {
		doc, err := ParseString(input, Options{})
		if doc != nil {
			t.Errorf("%q: no partial document expected", input)
		}
		var malformed *MalformedError
		if !errors.As(err, &malformed) {
			t.Errorf("%q: expected a malformed error, got %v", input, err)
		}
	}
}

func TestMalformedLine(t *testing.T) {
	_, err := ParseString("<svg>\n<g>\n<path d=></g></svg>", Options{})
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected a malformed error, got %v", err)
	}
	if malformed.Line != 3 {
		t.Errorf("expected error on line 3, got %d", malformed.Line)
	}
}

func TestTree(t *testing.T) {
	input := `<?xml version="1.0"?>
<!-- comment -->
<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="100">
  <title>A <![CDATA[<b>]]> title</title>
  <g id="group" fill="red" fill="blue" stroke="black">
    <path id="p1" d="M 0 0 L 10 10"/>
    <?pi ignored?>
    <use xlink:href="#p1" xml:space="preserve"/>
  </g>
  <other:item xmlns:other="urn:other" other:attr="v"/>
</svg>`
	doc := mustParse(t, input, Options{})
	root := doc.Root()

	// svg, title, g, path, use, other:item
	if n := doc.ElementCount(); n != 6 {
		t.Errorf("expected 6 elements, got %d", n)
	}
	if n := root.Descendants(); n != 5 {
		t.Errorf("expected 5 descendants, got %d", n)
	}

	title := doc.Find("title")[0]
	if got := title.Text(); got != "A <b> title" {
		t.Errorf("unexpected title %q", got)
	}
	if len(title.Children()) != 1 {
		t.Errorf("adjacent text should be merged, got %d nodes", len(title.Children()))
	}

	g := doc.FindByID("group")
	if g == nil || g.Parent() != root {
		t.Fatal("missing group")
	}
	attrs := g.Attrs()
	if len(attrs) != 3 || attrs[0].Name.Local != "id" || attrs[1].Name.Local != "fill" || attrs[2].Name.Local != "stroke" {
		t.Errorf("unexpected attributes %v", attrs)
	}
	if fill, _ := g.Attr("fill"); fill != "blue" {
		t.Errorf("the last duplicate attribute should win, got %q", fill)
	}
	if len(g.Elements()) != 2 {
		t.Errorf("unexpected children %v", g.Elements())
	}
	// whitespace text nodes are kept
	if len(g.Children()) != 5 {
		t.Errorf("expected 5 child nodes, got %d", len(g.Children()))
	}

	use := doc.Find("use")[0]
	if href, ok := use.AttrNS("http://www.w3.org/1999/xlink", "href"); !ok || href != "#p1" {
		t.Errorf("unexpected href %q", href)
	}
	if href, _ := use.Attr("href"); href != "#p1" {
		t.Errorf("unexpected href %q", href)
	}
	if _, ok := use.AttrNS(xmlNamespace, "space"); !ok {
		t.Error("missing xml:space attribute")
	}
	if use.Name().Space != svgNS {
		t.Errorf("default namespace should apply, got %q", use.Name().Space)
	}

	item := doc.Find("item")[0]
	if item.Name().Space != "urn:other" {
		t.Errorf("unexpected namespace %q", item.Name().Space)
	}
	if v, _ := item.AttrNS("urn:other", "attr"); v != "v" {
		t.Errorf("unexpected attribute %q", v)
	}

	if doc.FindByID("missing") != nil {
		t.Error("unexpected element")
	}
}

func TestAcyclic(t *testing.T) {
	doc := mustParse(t, `<svg><g><g><path/><path/></g><rect/></g><circle/></svg>`, Options{})
	seen := map[*Element]bool{}
	doc.Root().Walk(func(e *Element) bool {
		if seen[e] {
			t.Fatalf("element %v visited twice", e.Name())
		}
		seen[e] = true
		for _, child := range e.Elements() {
			if child.Parent() != e {
				t.Errorf("wrong parent for %v", child.Name())
			}
		}
		return true
	})
	if len(seen) != 7 {
		t.Errorf("expected 7 elements, got %d", len(seen))
	}
}

func TestWalkPrune(t *testing.T) {
	doc := mustParse(t, `<svg><defs><path/><path/></defs><path/></svg>`, Options{})
	var visited []string
	doc.Root().Walk(func(e *Element) bool {
		visited = append(visited, e.Name().Local)
		return e.Name().Local != "defs"
	})
	if got := strings.Join(visited, ","); got != "svg,defs,path" {
		t.Errorf("unexpected walk %s", got)
	}
	if n := len(doc.Find("path")); n != 3 {
		t.Errorf("expected 3 paths, got %d", n)
	}
}

func TestImmutableAccessors(t *testing.T) {
	doc := mustParse(t, `<svg a="1"><g/></svg>`, Options{})
	attrs := doc.Root().Attrs()
	attrs[0].Value = "2"
	if v, _ := doc.Root().Attr("a"); v != "1" {
		t.Error("Attrs should return a copy")
	}
	children := doc.Root().Children()
	children[0] = Text("x")
	if _, ok := doc.Root().Children()[0].(*Element); !ok {
		t.Error("Children should return a copy")
	}
}

func TestCharset(t *testing.T) {
	input := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><svg><title>caf\xe9</title></svg>"
	doc := mustParse(t, input, Options{})
	if got := doc.Find("title")[0].Text(); got != "café" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestMaxDepth(t *testing.T) {
	input := strings.Repeat("<g>", 10) + strings.Repeat("</g>", 10)
	if _, err := ParseString(input, NewOptions().WithMaxDepth(10)); err != nil {
		t.Errorf("unexpected error %s", err)
	}
	_, err := ParseString(input, NewOptions().WithMaxDepth(9))
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Errorf("expected a malformed error, got %v", err)
	}
}

func TestOptions(t *testing.T) {
	if !NewOptions().AllowInternalEntities() {
		t.Error("internal entities should be allowed by default")
	}
	if NewOptions().WithInternalEntities(false).AllowInternalEntities() {
		t.Error("internal entities should be disabled")
	}
	for _, opts := range []Options{
		NewOptions().WithMaxDepth(-1),
		NewOptions().WithMaxEntityExpansion(-1),
	} {
		if err := opts.Validate(); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("expected invalid options, got %v", err)
		}
		if _, err := ParseString("<svg/>", opts); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("expected invalid options, got %v", err)
		}
	}
	if err := NewOptions().WithMaxDepth(0).Validate(); err != nil {
		t.Errorf("unexpected error %s", err)
	}
}

type failingReader struct{}

var errRead = errors.New("read failure")

func (failingReader) Read([]byte) (int, error) { return 0, errRead }

func TestReaderError(t *testing.T) {
	_, err := Parse(io.MultiReader(strings.NewReader("<svg>"), failingReader{}), Options{})
	if !errors.Is(err, errRead) {
		t.Errorf("expected the read error to be wrapped, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "icon.svg")
	err := os.WriteFile(name, []byte(`<svg xmlns="http://www.w3.org/2000/svg"><path d="M0 0 L 1 1"/></svg>`), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := ParseFile(name, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Find("path")) != 1 {
		t.Error("missing path")
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.svg"), Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
}

func TestConcurrentParse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		allow := i%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := `<!DOCTYPE svg [<!ENTITY e "x">]><svg>&e;</svg>`
			for n := 0; n < 50; n++ {
				doc, err := ParseString(input, NewOptions().WithInternalEntities(allow))
				if err != nil {
					t.Error(err)
					return
				}
				exp := "&e;"
				if allow {
					exp = "x"
				}
				if got := doc.Root().Text(); got != exp {
					t.Errorf("expected %q, got %q", exp, got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
