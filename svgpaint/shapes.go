package svgpaint

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benoitkugler/svgkit/svgdoc"
	"github.com/benoitkugler/svgkit/svgpath"
)

// shapeFunc builds the outline of a basic shape.
// A nil Path means nothing has to be drawn.
type shapeFunc func(el *svgdoc.Element) (svgpath.Path, error)

var shapeFuncs = map[string]shapeFunc{
	"path":     pathF,
	"rect":     rectF,
	"circle":   circleF,
	"ellipse":  circleF, // circleF handles ellipse also
	"line":     lineF,
	"polyline": polylineF,
	"polygon":  polygonF,
}

// readNumbers stores the value of the attributes found in `attrs`;
// missing attributes leave their target unchanged
func readNumbers(el *svgdoc.Element, attrs map[string]*float64) error {
	for _, attr := range el.Attrs() {
		target, ok := attrs[attr.Name.Local]
		if !ok {
			continue
		}
		f, err := ParseLength(attr.Value)
		if err != nil {
			return err
		}
		*target = f
	}
	return nil
}

// splitOnCommaOrSpace returns a list of strings after splitting the input on comma and space delimiters
func splitOnCommaOrSpace(s string) []string {
	return strings.FieldsFunc(s,
		func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})
}

func pathF(el *svgdoc.Element) (svgpath.Path, error) {
	d, ok := el.Attr("d")
	if !ok {
		return nil, errors.New("missing path data")
	}
	var err error
	// the path is truncated at the first error, which is then reported
	path := svgpath.ParseReport(d, func(diag svgpath.Diagnostic) {
		err = errors.New(diag.String())
	})
	return path, err
}

func rectF(el *svgdoc.Element) (svgpath.Path, error) {
	var x, y, w, h, rx, ry float64
	err := readNumbers(el, map[string]*float64{
		"x": &x, "y": &y, "width": &w, "height": &h, "rx": &rx, "ry": &ry,
	})
	if err != nil {
		return nil, err
	}
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("negative size %gx%g", w, h)
	}
	if w == 0 || h == 0 { // not drawn, but not an error
		return nil, nil
	}
	// a single radius is used for both axis
	_, hasRx := el.Attr("rx")
	_, hasRy := el.Attr("ry")
	if hasRx && !hasRy {
		ry = rx
	} else if hasRy && !hasRx {
		rx = ry
	}
	rx, ry = math.Min(math.Abs(rx), w/2), math.Min(math.Abs(ry), h/2)
	rounded := rx > 0 && ry > 0
	if !rounded {
		rx, ry = 0, 0
	}

	var p svgpath.Path
	corner := func(end svgpath.Point) {
		if rounded {
			p.ArcTo(rx, ry, 0, false, true, end)
		}
	}
	p.Start(svgpath.Point{X: x + rx, Y: y})
	p.Line(svgpath.Point{X: x + w - rx, Y: y})
	corner(svgpath.Point{X: x + w, Y: y + ry})
	p.Line(svgpath.Point{X: x + w, Y: y + h - ry})
	corner(svgpath.Point{X: x + w - rx, Y: y + h})
	p.Line(svgpath.Point{X: x + rx, Y: y + h})
	corner(svgpath.Point{X: x, Y: y + h - ry})
	if rounded {
		p.Line(svgpath.Point{X: x, Y: y + ry})
		corner(svgpath.Point{X: x + rx, Y: y})
	}
	p.Stop(true)
	return p, nil
}

func circleF(el *svgdoc.Element) (svgpath.Path, error) {
	var cx, cy, rx, ry float64
	attrs := map[string]*float64{"cx": &cx, "cy": &cy}
	if el.Name().Local == "circle" {
		attrs["r"] = &rx
	} else {
		attrs["rx"], attrs["ry"] = &rx, &ry
	}
	if err := readNumbers(el, attrs); err != nil {
		return nil, err
	}
	if el.Name().Local == "circle" {
		ry = rx
	}
	if rx < 0 || ry < 0 {
		return nil, fmt.Errorf("negative radius %g, %g", rx, ry)
	}
	if rx == 0 || ry == 0 { // not drawn, but not an error
		return nil, nil
	}

	var p svgpath.Path
	p.Start(svgpath.Point{X: cx + rx, Y: cy})
	p.ArcTo(rx, ry, 0, false, true, svgpath.Point{X: cx, Y: cy + ry})
	p.ArcTo(rx, ry, 0, false, true, svgpath.Point{X: cx - rx, Y: cy})
	p.ArcTo(rx, ry, 0, false, true, svgpath.Point{X: cx, Y: cy - ry})
	p.ArcTo(rx, ry, 0, false, true, svgpath.Point{X: cx + rx, Y: cy})
	p.Stop(true)
	return p, nil
}

func lineF(el *svgdoc.Element) (svgpath.Path, error) {
	var x1, x2, y1, y2 float64
	err := readNumbers(el, map[string]*float64{"x1": &x1, "y1": &y1, "x2": &x2, "y2": &y2})
	if err != nil {
		return nil, err
	}
	var p svgpath.Path
	p.Start(svgpath.Point{X: x1, Y: y1})
	p.Line(svgpath.Point{X: x2, Y: y2})
	return p, nil
}

func polylineF(el *svgdoc.Element) (svgpath.Path, error) {
	v, _ := el.Attr("points")
	fields := splitOnCommaOrSpace(v)
	if len(fields)%2 != 0 {
		return nil, errors.New("polygon has odd number of points")
	}
	points := make([]float64, len(fields))
	for i, f := range fields {
		var err error
		points[i], err = strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
	}
	if len(points) < 4 { // not drawn, but not an error
		return nil, nil
	}
	var p svgpath.Path
	p.Start(svgpath.Point{X: points[0], Y: points[1]})
	for i := 2; i < len(points)-1; i += 2 {
		p.Line(svgpath.Point{X: points[i], Y: points[i+1]})
	}
	return p, nil
}

func polygonF(el *svgdoc.Element) (svgpath.Path, error) {
	p, err := polylineF(el)
	if len(p) != 0 {
		p.Stop(true)
	}
	return p, err
}
