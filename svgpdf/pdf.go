// Implements a PDF backend to render SVG paths,
// by wrapping github.com/jung-kurt/gofpdf.
package svgpdf

import (
	"image/color"
	"io"

	"github.com/benoitkugler/svgkit/svgdoc"
	"github.com/benoitkugler/svgkit/svgpaint"
	"github.com/benoitkugler/svgkit/svgpath"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/math/fixed"
)

var _ svgpath.Adder = (*Renderer)(nil) // assert interface conformance

// Renderer writes path commands on the current page of a gofpdf document.
// Coordinates are used as is, in the unit of the document.
type Renderer struct {
	pdf         *gofpdf.Fpdf
	boundingBox svgpath.Rect // of the last path drawn
}

// NewRenderer return a renderer which will
// write to the given `pdf`.
func NewRenderer(pdf *gofpdf.Fpdf) *Renderer {
	return &Renderer{pdf: pdf}
}

// WriteDocument renders the paths of the document on a single page,
// sized after the document width and height, and writes the PDF file to `w`.
func WriteDocument(doc *svgdoc.Document, w io.Writer, mode svgpaint.ErrorMode) error {
	items, err := svgpaint.Items(doc, mode)
	if err != nil {
		return err
	}
	width, height := svgpaint.Viewport(doc)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.AddPage()

	renderer := NewRenderer(pdf)
	for _, item := range items {
		if item.Fill != nil {
			renderer.FillPath(item.Path, item.Fill, item.NonZero)
		}
		if item.Stroke != nil && item.Width > 0 {
			renderer.StrokePath(item.Path, item.Stroke, item.StrokeOptions)
		}
	}
	return pdf.Output(w)
}

func fixedTof(a fixed.Point26_6) (float64, float64) {
	return float64(a.X) / 64, float64(a.Y) / 64
}

func (rd *Renderer) Start(a fixed.Point26_6) {
	rd.pdf.MoveTo(fixedTof(a))
}

func (rd *Renderer) Line(b fixed.Point26_6) {
	rd.pdf.LineTo(fixedTof(b))
}

func (rd *Renderer) QuadBezier(b fixed.Point26_6, c fixed.Point26_6) {
	cx, cy := fixedTof(b)
	x, y := fixedTof(c)
	rd.pdf.CurveTo(cx, cy, x, y)
}

func (rd *Renderer) CubeBezier(b fixed.Point26_6, c fixed.Point26_6, d fixed.Point26_6) {
	cx0, cy0 := fixedTof(b)
	cx1, cy1 := fixedTof(c)
	x, y := fixedTof(d)
	rd.pdf.CurveBezierCubicTo(cx0, cy0, cx1, cy1, x, y)
}

func (rd *Renderer) Stop(closeLoop bool) {
	if closeLoop {
		rd.pdf.ClosePath()
	}
}

// BoundingBox returns the bounding box of the last path drawn.
func (rd *Renderer) BoundingBox() svgpath.Rect { return rd.boundingBox }

// returns the 8-bit components and the opacity of `c`
func toNRGBA(c color.Color) (r, g, b int, alpha float64) {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return int(nc.R), int(nc.G), int(nc.B), float64(nc.A) / 0xFF
}

// FillPath fills `p` with the color `c`, using the
// non zero winding rule or the even-odd rule.
func (rd *Renderer) FillPath(p svgpath.Path, c color.Color, nonZero bool) {
	r, g, b, alpha := toNRGBA(c)
	rd.pdf.SetFillColor(r, g, b)
	rd.pdf.SetAlpha(alpha, "Normal")
	p.AddTo(rd)
	styleStr := "f*"
	if nonZero {
		styleStr = "f"
	}
	rd.pdf.DrawPath(styleStr)
	rd.boundingBox = p.Bounds()
}

var (
	capStyles  = [...]string{svgpaint.ButtCap: "butt", svgpaint.RoundCap: "round", svgpaint.SquareCap: "square"}
	joinStyles = [...]string{svgpaint.MiterJoin: "miter", svgpaint.RoundJoin: "round", svgpaint.BevelJoin: "bevel"}
)

// StrokePath draws the outline of `p` with the color `c`.
// The miter limit is not supported.
func (rd *Renderer) StrokePath(p svgpath.Path, c color.Color, options svgpaint.StrokeOptions) {
	r, g, b, alpha := toNRGBA(c)
	rd.pdf.SetDrawColor(r, g, b)
	rd.pdf.SetAlpha(alpha, "Normal")
	rd.pdf.SetLineWidth(options.Width)
	rd.pdf.SetLineCapStyle(capStyles[options.Cap])
	rd.pdf.SetLineJoinStyle(joinStyles[options.Join])
	p.AddTo(rd)
	rd.pdf.DrawPath("D")
	rd.boundingBox = p.Bounds()
}
