package capture

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Sizes are canonical pixels and scale with the frame
const (
	defaultThickness = 3
	highlightAlpha   = 100
	textPadding      = 5
	numberRadius     = 20
	circleRadius     = 30
	arrowOffset      = 100
	arrowHead        = 15
	blurCell         = 12
)

var palette = map[string]color.RGBA{
	"red":    {R: 255, A: 255},
	"blue":   {B: 255, A: 255},
	"green":  {G: 255, A: 255},
	"yellow": {R: 255, G: 255, A: 255},
	"orange": {R: 255, G: 165, A: 255},
	"purple": {R: 255, B: 255, A: 255},
	"black":  {A: 255},
	"white":  {R: 255, G: 255, B: 255, A: 255},
}

var defaultColors = map[workflow.AnnotationKind]string{
	workflow.AnnotateArrow:     "red",
	workflow.AnnotateBox:       "red",
	workflow.AnnotateHighlight: "yellow",
	workflow.AnnotateText:      "black",
	workflow.AnnotateNumber:    "blue",
	workflow.AnnotateCircle:    "red",
}

// Marks are drawn onto a screenshot after cropping
type Marks struct {
	Annotations []workflow.Annotation
	// Anchor stands in for arrow and number positions left unset,
	// usually the point the step clicked
	Anchor *workflow.Point
}

// Annotate returns a copy of img with anns drawn on it. img's top-left pixel
// sits at origin in device pixels of a frame captured at scale.
func Annotate(img image.Image, anns []workflow.Annotation, origin image.Point, scale float64, anchor *workflow.Point) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 1
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	c := &canvas{img: out, origin: origin, scale: scale}
	for i, a := range anns {
		if err := c.annotate(a, anchor); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i+1, err)
		}
	}
	return out, nil
}

type canvas struct {
	img    *image.RGBA
	origin image.Point
	scale  float64
}

func (c *canvas) annotate(a workflow.Annotation, anchor *workflow.Point) error {
	col := colorOf(a)
	thick := a.Thickness
	if thick == 0 {
		thick = defaultThickness
	}
	t := c.px(thick)

	switch a.Kind {
	case workflow.AnnotateBox, workflow.AnnotateHighlight, workflow.AnnotateBlur:
		if a.Region == nil || a.Region.Empty() {
			return fmt.Errorf("%w: %s needs a region", errors.ErrInvalidArgument, a.Kind)
		}
		r := c.rect(*a.Region)
		switch a.Kind {
		case workflow.AnnotateBox:
			c.stroke(r, t, col)
		case workflow.AnnotateHighlight:
			c.fill(r, color.NRGBA{R: col.R, G: col.G, B: col.B, A: highlightAlpha})
		default:
			c.pixelate(r)
		}

	case workflow.AnnotateText:
		if a.Position == nil {
			return fmt.Errorf("%w: text needs a position", errors.ErrInvalidArgument)
		}
		p := c.pt(*a.Position)
		size := labelSize(a.Label)
		pad := c.px(textPadding)
		box := image.Rect(p.X-pad, p.Y-pad, p.X+size.X+pad, p.Y+size.Y+pad)
		c.fill(box, color.White)
		c.stroke(box, c.px(2), col)
		c.label(p, a.Label, col)

	case workflow.AnnotateCircle:
		if a.Position == nil {
			return fmt.Errorf("%w: circle needs a position", errors.ErrInvalidArgument)
		}
		r := float64(c.px(orDefault(a.Radius, circleRadius)))
		c.ring(c.pt(*a.Position), r-float64(t), r, col)

	case workflow.AnnotateNumber, workflow.AnnotateArrow:
		pos := a.Position
		if pos == nil {
			pos = anchor
		}
		if pos == nil {
			return fmt.Errorf("%w: %s needs a position or a point target", errors.ErrInvalidArgument, a.Kind)
		}
		if a.Kind == workflow.AnnotateNumber {
			c.number(*pos, a, col)
		} else {
			c.arrow(*pos, a.Label, t, col)
		}

	default:
		return fmt.Errorf("%w: unknown annotation type %q", errors.ErrInvalidArgument, a.Kind)
	}
	return nil
}

func (c *canvas) number(pos workflow.Point, a workflow.Annotation, col color.RGBA) {
	center := c.pt(pos)
	r := float64(c.px(orDefault(a.Radius, numberRadius)))
	c.ring(center, 0, r, col)
	c.ring(center, r-float64(c.px(2)), r, color.White)
	if a.Label != "" {
		size := labelSize(a.Label)
		c.label(center.Sub(size.Div(2)), a.Label, color.White)
	}
}

// arrow points at tip from the upper left
func (c *canvas) arrow(tip workflow.Point, label string, t int, col color.RGBA) {
	head := c.pt(tip)
	tail := c.pt(workflow.Point{X: tip.X - arrowOffset, Y: tip.Y - arrowOffset})
	c.line(tail, head, t, col)

	angle := math.Atan2(float64(head.Y-tail.Y), float64(head.X-tail.X))
	length := float64(c.px(arrowHead))
	for _, side := range []float64{-math.Pi / 6, math.Pi / 6} {
		end := image.Pt(
			head.X-int(math.Round(length*math.Cos(angle+side))),
			head.Y-int(math.Round(length*math.Sin(angle+side))),
		)
		c.line(head, end, t, col)
	}

	if label != "" {
		size := labelSize(label)
		c.label(image.Pt(tail.X-size.X/2, tail.Y-size.Y-c.px(textPadding)), label, col)
	}
}

func (c *canvas) pt(p workflow.Point) image.Point {
	return image.Pt(
		int(math.Round(float64(p.X)*c.scale))-c.origin.X,
		int(math.Round(float64(p.Y)*c.scale))-c.origin.Y,
	)
}

func (c *canvas) rect(r workflow.Rect) image.Rectangle {
	return image.Rectangle{
		Min: c.pt(workflow.Point{X: r.X, Y: r.Y}),
		Max: c.pt(workflow.Point{X: r.X + r.Width, Y: r.Y + r.Height}),
	}
}

// px scales a canonical length, never below one pixel
func (c *canvas) px(n int) int {
	return max(1, int(math.Round(float64(n)*c.scale)))
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *canvas) stroke(r image.Rectangle, t int, col color.Color) {
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), col)
	c.fill(image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), col)
	c.fill(image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), col)
	c.fill(image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), col)
}

func (c *canvas) line(a, b image.Point, t int, col color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	n := max(abs(dx), abs(dy), 1)
	off := t / 2
	for i := 0; i <= n; i++ {
		x, y := a.X+dx*i/n, a.Y+dy*i/n
		c.fill(image.Rect(x-off, y-off, x-off+t, y-off+t), col)
	}
}

// ring paints every pixel whose distance from center lies in [inner, outer]
func (c *canvas) ring(center image.Point, inner, outer float64, col color.Color) {
	r := int(math.Ceil(outer))
	box := image.Rect(center.X-r, center.Y-r, center.X+r+1, center.Y+r+1).Intersect(c.img.Bounds())
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			d := math.Hypot(float64(x-center.X), float64(y-center.Y))
			if d >= inner && d <= outer {
				c.img.Set(x, y, col)
			}
		}
	}
}

// pixelate scales the region down to blurCell sized blocks and back up
func (c *canvas) pixelate(r image.Rectangle) {
	r = r.Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	cell := c.px(blurCell)
	small := image.NewRGBA(image.Rect(0, 0, max(1, r.Dx()/cell), max(1, r.Dy()/cell)))
	xdraw.CatmullRom.Scale(small, small.Bounds(), c.img, r, xdraw.Src, nil)
	xdraw.BiLinear.Scale(c.img, r, small, small.Bounds(), xdraw.Src, nil)
}

// label draws s with its top-left corner at p
func (c *canvas) label(p image.Point, s string, col color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(p.X, p.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func labelSize(s string) image.Point {
	face := basicfont.Face7x13
	return image.Pt(font.MeasureString(face, s).Ceil(), face.Metrics().Height.Ceil())
}

func colorOf(a workflow.Annotation) color.RGBA {
	if col, ok := palette[a.Color]; ok {
		return col
	}
	return palette[defaultColors[a.Kind]]
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
