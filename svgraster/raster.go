// Implements a raster backend to render SVG paths,
// by wrapping rasterx.
package svgraster

import (
	"image"
	"image/color"
	"io"

	"github.com/benoitkugler/svgkit/svgdoc"
	"github.com/benoitkugler/svgkit/svgpaint"
	"github.com/benoitkugler/svgkit/svgpath"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

var _ svgpath.Adder = (*Renderer)(nil) // assert interface conformance

// Renderer forwards the path commands to a filler and a dasher,
// drawing on the same scanner.
type Renderer struct {
	dasher  *rasterx.Dasher // to avoid shared state
	filler  *rasterx.Filler // we use separated instance
	nonZero bool            // fill rule, strokes always use non zero
}

// NewRenderer returns a renderer with default values.
// In addition to rasterizing lines like a Scanner,
// it can also rasterize quadratic and cubic bezier curves.
// The initial fill rule is non zero.
func NewRenderer(width, height int, scanner rasterx.Scanner) *Renderer {
	rd := &Renderer{dasher: rasterx.NewDasher(width, height, scanner), filler: rasterx.NewFiller(width, height, scanner)}
	rd.SetWinding(true)
	return rd
}

// RasterDocument uses a ScannerGV instance to render the
// paths of the document into an image of size w x h and returns it.
// Document coordinates are used as pixel coordinates.
func RasterDocument(doc *svgdoc.Document, w, h int, mode svgpaint.ErrorMode) (*image.RGBA, error) {
	items, err := svgpaint.Items(doc, mode)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	renderer := NewRenderer(w, h, scanner)
	for _, item := range items {
		renderer.SetWinding(item.NonZero)
		if item.Fill != nil {
			renderer.FillPath(item.Path, item.Fill)
		}
		if item.Stroke != nil && item.Width > 0 {
			renderer.StrokePath(item.Path, item.Stroke, item.StrokeOptions)
		}
	}
	return img, nil
}

// RasterSVG parses the document read from `stream`
// and renders it, using its width and height (or viewBox)
// as image size.
func RasterSVG(stream io.Reader, mode svgpaint.ErrorMode) (*image.RGBA, error) {
	doc, err := svgdoc.Parse(stream, svgdoc.Options{})
	if err != nil {
		return nil, err
	}
	w, h := svgpaint.Viewport(doc)
	return RasterDocument(doc, int(w+0.5), int(h+0.5), mode)
}

func (rd *Renderer) Clear() {
	rd.dasher.Clear()
	rd.filler.Clear()
}

// SetWinding sets the fill rule used by Fill.
func (rd *Renderer) SetWinding(useNonZeroWinding bool) {
	rd.nonZero = useNonZeroWinding
	rd.filler.SetWinding(useNonZeroWinding)
}

var (
	joinToJoin = [...]rasterx.JoinMode{
		svgpaint.MiterJoin: rasterx.Miter,
		svgpaint.RoundJoin: rasterx.Round,
		svgpaint.BevelJoin: rasterx.Bevel,
	}

	capToFunc = [...]rasterx.CapFunc{
		svgpaint.ButtCap:   rasterx.ButtCap,
		svgpaint.RoundCap:  rasterx.RoundCap,
		svgpaint.SquareCap: rasterx.SquareCap,
	}
)

// SetStrokeOptions configures the dasher. It must be called
// before the path is added.
func (rd *Renderer) SetStrokeOptions(options svgpaint.StrokeOptions) {
	miter := options.MiterLimit
	if miter <= 0 {
		miter = 4
	}
	rd.dasher.SetStroke(
		fixed.Int26_6(options.Width*64), fixed.Int26_6(miter*64),
		capToFunc[options.Cap], capToFunc[options.Cap], rasterx.RoundGap,
		joinToJoin[options.Join], nil, 0,
	)
}

func (rd *Renderer) Start(a fixed.Point26_6) {
	rd.filler.Start(a)
	rd.dasher.Start(a)
}

func (rd *Renderer) Line(b fixed.Point26_6) {
	rd.filler.Line(b)
	rd.dasher.Line(b)
}

func (rd *Renderer) QuadBezier(b fixed.Point26_6, c fixed.Point26_6) {
	rd.filler.QuadBezier(b, c)
	rd.dasher.QuadBezier(b, c)
}

func (rd *Renderer) CubeBezier(b fixed.Point26_6, c fixed.Point26_6, d fixed.Point26_6) {
	rd.filler.CubeBezier(b, c, d)
	rd.dasher.CubeBezier(b, c, d)
}

func (rd *Renderer) Stop(closeLoop bool) {
	rd.filler.Stop(closeLoop)
	rd.dasher.Stop(closeLoop)
}

// Fill draws the interior of the accumulated path.
func (rd *Renderer) Fill(c color.Color) {
	rd.filler.SetColor(c)
	rd.filler.Draw()
}

// Stroke draws the outline of the accumulated path.
func (rd *Renderer) Stroke(c color.Color) {
	// the scanner is shared with the filler
	rd.dasher.SetWinding(true)
	rd.dasher.SetColor(c)
	rd.dasher.Draw()
	rd.filler.SetWinding(rd.nonZero)
}

// FillPath draws the interior of `p` with the color `c`.
func (rd *Renderer) FillPath(p svgpath.Path, c color.Color) {
	rd.Clear()
	p.AddTo(rd)
	rd.Fill(c)
}

// StrokePath draws the outline of `p` with the color `c`.
func (rd *Renderer) StrokePath(p svgpath.Path, c color.Color, options svgpaint.StrokeOptions) {
	rd.Clear()
	rd.SetStrokeOptions(options)
	p.AddTo(rd)
	rd.Stroke(c)
}
