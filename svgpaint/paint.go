// Package svgpaint extracts, from a parsed document, the flat painting
// instructions shared by the render backends: the path geometry and
// its fill and stroke parameters, read from the raw attributes.
package svgpaint

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"strconv"
	"strings"

	"github.com/benoitkugler/svgkit/svgdoc"
	"github.com/benoitkugler/svgkit/svgpath"
	"golang.org/x/image/colornames"
)

// ErrorMode sets how the renderers react to
// unparsable attributes or path data
type ErrorMode uint8

const (
	// IgnoreErrorMode skips the problems silently
	IgnoreErrorMode ErrorMode = iota
	// WarnErrorMode logs a warning for each problem
	WarnErrorMode
	// StrictErrorMode returns the first problem as an error
	StrictErrorMode
)

var errParamMismatch = errors.New("param mismatch")

// LineCap is the shape of the end of open sub-paths.
type LineCap uint8

const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

// LineJoin is the shape of the corners of stroked paths.
type LineJoin uint8

const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

// StrokeOptions are the parameters of a stroke.
// The zero value is a butt capped, miter joined stroke,
// with no width.
type StrokeOptions struct {
	Width      float64
	MiterLimit float64 // 0 means 4
	Cap        LineCap
	Join       LineJoin
}

// Item is one path to paint.
type Item struct {
	ID   string
	Path svgpath.Path

	Fill    color.Color // nil to disable filling
	NonZero bool        // fill rule

	Stroke color.Color // nil to disable stroking
	StrokeOptions
}

// defaultItem returns the initial SVG values
func defaultItem() Item {
	return Item{
		Fill:          color.NRGBA{0, 0, 0, 0xFF},
		NonZero:       true,
		StrokeOptions: StrokeOptions{Width: 1, MiterLimit: 4},
	}
}

// handle applies the error mode to `err`, returning
// a non nil error only in strict mode.
func (mode ErrorMode) handle(err error) error {
	if err == nil {
		return nil
	}
	switch mode {
	case StrictErrorMode:
		return err
	case WarnErrorMode:
		log.Println(err)
	}
	return nil
}

// Items returns the painting instructions of the shapes
// of the document, in document order. Presentation attributes
// are inherited from the ancestors of each shape.
func Items(doc *svgdoc.Document, mode ErrorMode) ([]Item, error) {
	c := cursor{errorMode: mode}
	if err := c.visit(doc.Root(), defaultItem()); err != nil {
		return nil, err
	}
	return c.items, nil
}

// elements whose content is not rendered in place
var notRendered = map[string]bool{
	"defs":     true,
	"symbol":   true,
	"clipPath": true,
	"mask":     true,
	"marker":   true,
	"pattern":  true,
}

// cursor walks the element tree, the style of each
// level being passed down the recursion
type cursor struct {
	errorMode ErrorMode
	items     []Item
}

func (c *cursor) visit(el *svgdoc.Element, inherited Item) error {
	tag := el.Name().Local
	if notRendered[tag] {
		return nil
	}
	style := inherited
	style.ID, _ = el.Attr("id")
	style.Path = nil
	if err := c.readStyle(el, &style); err != nil {
		return err
	}

	if sf, ok := shapeFuncs[tag]; ok {
		path, err := sf(el)
		if err = c.errorMode.handle(elementError(el, err)); err != nil {
			return err
		}
		if len(path) != 0 {
			style.Path = path
			c.items = append(c.items, style)
		}
	}

	for _, child := range el.Elements() {
		if err := c.visit(child, style); err != nil {
			return err
		}
	}
	return nil
}

// readStyle applies the presentation attributes and
// the 'style' declarations of `el`.
func (c *cursor) readStyle(el *svgdoc.Element, style *Item) error {
	for _, attr := range el.Attrs() {
		k, v := attr.Name.Local, attr.Value
		if k == "style" {
			for _, decl := range strings.Split(v, ";") {
				kv := strings.SplitN(decl, ":", 2)
				if len(kv) != 2 {
					continue
				}
				err := style.readStyleAttr(strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1]))
				if err = c.errorMode.handle(elementError(el, err)); err != nil {
					return err
				}
			}
			continue
		}
		if err := c.errorMode.handle(elementError(el, style.readStyleAttr(k, v))); err != nil {
			return err
		}
	}
	return nil
}

func elementError(el *svgdoc.Element, err error) error {
	if err == nil {
		return nil
	}
	if id, ok := el.Attr("id"); ok {
		return fmt.Errorf("%s %q: %w", el.Name().Local, id, err)
	}
	return fmt.Errorf("%s: %w", el.Name().Local, err)
}

// readStyleAttr handles one presentation attribute.
// Unknown keys are ignored, and invalid values leave
// the current one unchanged.
func (item *Item) readStyleAttr(k, v string) error {
	switch k {
	case "fill", "stroke":
		col, err := ParseColor(v)
		if err != nil {
			return err
		}
		if k == "fill" {
			item.Fill = col
		} else {
			item.Stroke = col
		}
	case "fill-rule":
		switch v {
		case "nonzero":
			item.NonZero = true
		case "evenodd":
			item.NonZero = false
		default:
			return fmt.Errorf("invalid fill-rule %q", v)
		}
	case "stroke-width", "stroke-miterlimit":
		f, err := ParseLength(v)
		if err != nil {
			return err
		}
		if f < 0 {
			return fmt.Errorf("negative %s %q", k, v)
		}
		if k == "stroke-width" {
			item.Width = f
		} else {
			item.MiterLimit = f
		}
	case "stroke-linecap":
		switch v {
		case "butt":
			item.Cap = ButtCap
		case "round":
			item.Cap = RoundCap
		case "square":
			item.Cap = SquareCap
		default:
			return fmt.Errorf("invalid stroke-linecap %q", v)
		}
	case "stroke-linejoin":
		switch v {
		case "miter":
			item.Join = MiterJoin
		case "round":
			item.Join = RoundJoin
		case "bevel":
			item.Join = BevelJoin
		default:
			return fmt.Errorf("invalid stroke-linejoin %q", v)
		}
	}
	return nil
}

// ParseLength reads a user space length, accepting
// an optional 'px' unit.
func ParseLength(v string) (float64, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	return strconv.ParseFloat(v, 64)
}

// ParseColor parses an SVG color string in all forms
// including all SVG1.1 names, obtained from the colornames package.
// A nil color and no error is returned for 'none'.
func ParseColor(colorStr string) (color.Color, error) {
	colorStr = strings.TrimSpace(colorStr)
	v := strings.ToLower(colorStr)
	if v == "none" {
		// nil signals that the function (fill or stroke) is off;
		// not the same as black
		return nil, nil
	}
	if cn, ok := colornames.Map[v]; ok {
		return color.NRGBA{cn.R, cn.G, cn.B, cn.A}, nil
	}
	if cStr := strings.TrimPrefix(v, "rgb("); cStr != v {
		cStr = strings.TrimSuffix(cStr, ")")
		vals := strings.Split(cStr, ",")
		if len(vals) != 3 {
			return nil, errParamMismatch
		}
		var cvals [3]uint8
		for i := range cvals {
			var err error
			cvals[i], err = parseColorValue(vals[i])
			if err != nil {
				return nil, err
			}
		}
		return color.NRGBA{cvals[0], cvals[1], cvals[2], 0xFF}, nil
	}
	if strings.HasPrefix(v, "#") {
		r, g, b, err := parseColorNum(v[1:])
		if err != nil {
			return nil, err
		}
		return color.NRGBA{r, g, b, 0xFF}, nil
	}
	return nil, fmt.Errorf("invalid color %q", colorStr)
}

// parseColorNum reads the hexadecimal form, e.g. FBD9BD or FB9
func parseColorNum(colorStr string) (r, g, b uint8, err error) {
	switch len(colorStr) {
	case 6:
	case 3:
		// SVG specs say duplicate characters in case of 3 digit hex number
		colorStr = string([]byte{colorStr[0], colorStr[0],
			colorStr[1], colorStr[1], colorStr[2], colorStr[2]})
	default:
		return 0, 0, 0, fmt.Errorf("invalid hexadecimal color #%s", colorStr)
	}
	for _, v := range []struct {
		c *uint8
		s string
	}{
		{&r, colorStr[0:2]},
		{&g, colorStr[2:4]},
		{&b, colorStr[4:6]},
	} {
		t, err := strconv.ParseUint(v.s, 16, 8)
		if err != nil {
			return 0, 0, 0, err
		}
		*v.c = uint8(t)
	}
	return r, g, b, nil
}

func parseColorValue(v string) (uint8, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "%") {
		n, err := strconv.ParseFloat(strings.TrimSpace(v[:len(v)-1]), 64)
		if err != nil {
			return 0, err
		}
		return clampByte(n * 0xFF / 100), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return clampByte(float64(n)), nil
}

func clampByte(f float64) uint8 {
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f + 0.5)
}

// Viewport returns the size of the drawing, read from the 'width' and
// 'height' attributes of the root, falling back to its 'viewBox', and
// finally to 100x100.
func Viewport(doc *svgdoc.Document) (w, h float64) {
	root := doc.Root()
	var box [4]float64
	if vb, ok := root.Attr("viewBox"); ok {
		fields := strings.FieldsFunc(vb, func(r rune) bool { return r == ',' || r == ' ' })
		if len(fields) == 4 {
			for i, f := range fields {
				box[i], _ = strconv.ParseFloat(f, 64)
			}
		}
	}
	w, h = box[2], box[3]
	if v, ok := root.Attr("width"); ok {
		if f, err := ParseLength(v); err == nil && f > 0 {
			w = f
		}
	}
	if v, ok := root.Attr("height"); ok {
		if f, err := ParseLength(v); err == nil && f > 0 {
			h = f
		}
	}
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = 100
	}
	return w, h
}
