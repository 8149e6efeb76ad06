// Package render rasterizes the particle animation into an in-memory image
// for headless output.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/couchcryptid/wind-stream-service/internal/stream"
)

// Canvas is a stream.Surface backed by an RGBA image.
type Canvas struct {
	img       *image.RGBA
	raster    *vector.Rasterizer
	mode      stream.CompositeMode
	lineWidth float64

	path   []segment
	cursor [2]float64
	open   bool
}

type segment struct {
	x0, y0, x1, y1 float64
}

// NewCanvas creates a transparent canvas.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img:       image.NewRGBA(image.Rect(0, 0, width, height)),
		raster:    vector.NewRasterizer(width, height),
		lineWidth: 1,
	}
}

// Image returns the backing image. It is live; later draws modify it.
func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) CompositeMode() stream.CompositeMode { return c.mode }

func (c *Canvas) SetCompositeMode(m stream.CompositeMode) { c.mode = m }

func (c *Canvas) SetLineWidth(w float64) { c.lineWidth = w }

// FillRect paints the rectangle in the current composite mode. Under
// DestinationIn every covered pixel is scaled by the color's alpha, which is
// how the animation fades its trails.
func (c *Canvas) FillRect(x, y, w, h float64, col color.Color) {
	r := image.Rect(int(math.Floor(x)), int(math.Floor(y)), int(math.Ceil(x+w)), int(math.Ceil(y+h))).Intersect(c.img.Rect)
	if r.Empty() {
		return
	}

	switch c.mode {
	case stream.DestinationIn:
		_, _, _, a := col.RGBA()
		c.scale(r, a)
	default:
		draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
	}
}

// scale multiplies every channel of the premultiplied pixels in r by a/0xffff,
// truncating so repeated fades reach zero.
func (c *Canvas) scale(r image.Rectangle, a uint32) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := c.img.Pix[c.img.PixOffset(r.Min.X, y):c.img.PixOffset(r.Max.X, y)]
		for i := range row {
			row[i] = uint8(uint32(row[i]) * a / 0xffff)
		}
	}
}

func (c *Canvas) BeginPath() {
	c.path = c.path[:0]
	c.open = false
}

func (c *Canvas) MoveTo(x, y float64) {
	c.cursor = [2]float64{x, y}
	c.open = true
}

func (c *Canvas) LineTo(x, y float64) {
	if c.open {
		c.path = append(c.path, segment{c.cursor[0], c.cursor[1], x, y})
	}
	c.cursor = [2]float64{x, y}
	c.open = true
}

// Stroke draws every segment of the current path with col as an
// anti-aliased band lineWidth wide with square caps. Integer coordinates
// address pixel centers.
func (c *Canvas) Stroke(col color.Color) {
	if len(c.path) == 0 {
		return
	}
	b := c.img.Rect
	c.raster.Reset(b.Dx(), b.Dy())
	half := max(c.lineWidth, 1) / 2
	for _, s := range c.path {
		c.addBand(s, half)
	}
	c.raster.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

// addBand adds s to the rasterizer as a rectangle extended by half past both
// ends. Every band winds the same way so overlaps never cancel.
func (c *Canvas) addBand(s segment, half float64) {
	ax, ay := s.x0+0.5, s.y0+0.5
	bx, by := s.x1+0.5, s.y1+0.5
	ux, uy := 1.0, 0.0
	if l := math.Hypot(bx-ax, by-ay); l > 0 {
		ux, uy = (bx-ax)/l, (by-ay)/l
	}
	ax, ay = ax-ux*half, ay-uy*half
	bx, by = bx+ux*half, by+uy*half
	nx, ny := -uy*half, ux*half

	c.raster.MoveTo(float32(ax+nx), float32(ay+ny))
	c.raster.LineTo(float32(bx+nx), float32(by+ny))
	c.raster.LineTo(float32(bx-nx), float32(by-ny))
	c.raster.LineTo(float32(ax-nx), float32(ay-ny))
	c.raster.ClosePath()
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
