// Implements an abstract representation of
// svg paths, reduced to absolute moves, lines,
// cubic curves and closes, which can then be consumed
// by painting drivers.
package svgpath

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/math/fixed"
)

// Point is a location in user space.
type Point struct{ X, Y float64 }

func (p Point) add(dx, dy float64) Point { return Point{p.X + dx, p.Y + dy} }

// lerp returns the point at t along the segment p->q.
func (p Point) lerp(q Point, t float64) Point {
	return Point{p.X + t*(q.X-p.X), p.Y + t*(q.Y-p.Y)}
}

// reflect returns the reflection of p about c.
func (p Point) reflect(c Point) Point { return Point{2*c.X - p.X, 2*c.Y - p.Y} }

func (p Point) fixed() fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.Int26_6(p.X * 64), Y: fixed.Int26_6(p.Y * 64)}
}

type pathCommand uint8

// Human readable path constants
const (
	pathMoveTo pathCommand = iota
	pathLineTo
	pathCubicTo
	pathClose
)

// Operation groups the normalized path primitives.
// It is implemented by MoveTo, LineTo, CubicTo and Close.
type Operation interface {
	command() pathCommand
}

// MoveTo starts a new sub-path.
type MoveTo Point

// LineTo draws a straight segment from the current point.
type LineTo Point

// CubicTo draws a cubic Bézier curve from the current point,
// with control points [0] and [1], ending at [2].
type CubicTo [3]Point

// Close joins the current point to the start of the sub-path.
type Close struct{}

func (MoveTo) command() pathCommand  { return pathMoveTo }
func (LineTo) command() pathCommand  { return pathLineTo }
func (CubicTo) command() pathCommand { return pathCubicTo }
func (Close) command() pathCommand   { return pathClose }

// Path describes a sequence of primitive operations.
// When not empty, the first operation is always a MoveTo and
// every coordinate is absolute.
type Path []Operation

// Format returns the canonical text form of the path,
// with coordinates rounded to `prec` decimals and written
// without trailing zeros. A negative `prec` uses the shortest
// representation that parses back to the exact same value.
// Coordinates are computed in float64 and rounded once, so that
// a quarter circle of radius 100 has its control points at
// 55.22847, where a float32 computation would give 55.22848.
func (p Path) Format(prec int) string {
	var b strings.Builder
	writePoints := func(letter byte, pts ...Point) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(letter)
		for _, pt := range pts {
			b.WriteByte(' ')
			b.WriteString(formatFloat(pt.X, prec))
			b.WriteByte(' ')
			b.WriteString(formatFloat(pt.Y, prec))
		}
	}
	for _, op := range p {
		switch op := op.(type) {
		case MoveTo:
			writePoints('M', Point(op))
		case LineTo:
			writePoints('L', Point(op))
		case CubicTo:
			writePoints('C', op[0], op[1], op[2])
		case Close:
			writePoints('Z')
		}
	}
	return b.String()
}

func formatFloat(v float64, prec int) string {
	if prec >= 0 {
		pow := math.Pow10(prec)
		v = math.Round(v*pow) / pow
	}
	if v == 0 { // also turns -0 into 0
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ToSVGPath returns a string representation of the path,
// using 5 decimals.
func (p Path) ToSVGPath() string { return p.Format(5) }

// String returns a readable representation of a Path.
func (p Path) String() string {
	return p.ToSVGPath()
}

// Clear zeros the path slice
func (p *Path) Clear() {
	*p = (*p)[:0]
}

// Start starts a new curve at the given point.
func (p *Path) Start(a Point) {
	*p = append(*p, MoveTo(a))
}

// Line adds a linear segment to the current curve.
func (p *Path) Line(b Point) {
	*p = append(*p, LineTo(b))
}

// QuadBezier adds a quadratic segment to the current curve,
// elevated to its cubic equivalent.
func (p *Path) QuadBezier(b, c Point) {
	c1, c2 := liftQuad(p.currentPoint(), b, c)
	p.CubeBezier(c1, c2, c)
}

// CubeBezier adds a cubic segment to the current curve.
func (p *Path) CubeBezier(b, c, d Point) {
	*p = append(*p, CubicTo{b, c, d})
}

// ArcTo adds the cubic curves approximating the elliptical
// arc going from the current point to `end`, with the
// same parameters as the 'A' path command.
// A degenerate arc (null radius or end point equal to
// the current point) is added as a line.
func (p *Path) ArcTo(rx, ry, rotDeg float64, largeArc, sweep bool, end Point) {
	start := p.currentPoint()
	if rx == 0 || ry == 0 || start == end {
		p.Line(end)
		return
	}
	p.addArc(start, end, rx, ry, rotDeg, largeArc, sweep)
}

// Stop joins the ends of the path
func (p *Path) Stop(closeLoop bool) {
	if closeLoop {
		*p = append(*p, Close{})
	}
}

// currentPoint returns the pen position at the end of the path.
func (p Path) currentPoint() Point {
	closed := false
	for i := len(p) - 1; i >= 0; i-- {
		switch op := p[i].(type) {
		case MoveTo:
			return Point(op)
		case LineTo:
			if !closed {
				return Point(op)
			}
		case CubicTo:
			if !closed {
				return op[2]
			}
		case Close:
			closed = true
		}
	}
	return Point{}
}

// liftQuad returns the control points of the cubic curve
// equivalent to the quadratic curve (p0, q, p1).
func liftQuad(p0, q, p1 Point) (c1, c2 Point) {
	return p0.lerp(q, 2./3), p1.lerp(q, 2./3)
}

// Adder interface for types that can accumulate path commands,
// such as rasterx scanners or pdf writers.
type Adder interface {
	// Start starts a new curve at the given point.
	Start(a fixed.Point26_6)
	// Line adds a line segment to the path
	Line(b fixed.Point26_6)
	// QuadBezier adds a quadratic bezier curve to the path
	QuadBezier(b, c fixed.Point26_6)
	// CubeBezier adds a cubic bezier curve to the path
	CubeBezier(b, c, d fixed.Point26_6)
	// Closes the path to the start point if closeLoop is true
	Stop(closeLoop bool)
}

// AddTo adds the Path p to q.
func (p Path) AddTo(q Adder) {
	for _, op := range p {
		switch op := op.(type) {
		case MoveTo:
			q.Stop(false) // implicit close if currently in path.
			q.Start(Point(op).fixed())
		case LineTo:
			q.Line(Point(op).fixed())
		case CubicTo:
			q.CubeBezier(op[0].fixed(), op[1].fixed(), op[2].fixed())
		case Close:
			q.Stop(true)
		}
	}
	q.Stop(false)
}
