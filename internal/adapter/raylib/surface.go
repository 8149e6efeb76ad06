// Package raylib draws the particle animation into a raylib render texture.
//
// Every call into raylib must come from the goroutine that opened the
// window, so frames are driven through a stream.FrameQueue pumped from the
// render loop rather than from timer goroutines.
package raylib

import (
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/couchcryptid/wind-stream-service/internal/stream"
)

// Surface is a stream.Surface backed by a render texture that keeps the
// trails between frames.
type Surface struct {
	target    rl.RenderTexture2D
	width     int32
	height    int32
	mode      stream.CompositeMode
	lineWidth float32

	path   []rl.Vector2 // start/end pairs
	cursor rl.Vector2
	open   bool
}

// NewSurface allocates a width x height render texture cleared to black.
// The window must already be open.
func NewSurface(width, height int) *Surface {
	s := &Surface{
		target:    rl.LoadRenderTexture(int32(width), int32(height)),
		width:     int32(width),
		height:    int32(height),
		lineWidth: 1,
	}
	s.Clear()
	return s
}

// Clear wipes the trails.
func (s *Surface) Clear() {
	rl.BeginTextureMode(s.target)
	rl.ClearBackground(rl.Black)
	rl.EndTextureMode()
}

// Begin redirects drawing into the texture. Frames must run between Begin and End.
func (s *Surface) Begin() { rl.BeginTextureMode(s.target) }

// End restores drawing to the window.
func (s *Surface) End() { rl.EndTextureMode() }

// Present draws the texture onto the window at (x, y).
func (s *Surface) Present(x, y float32) {
	// Render textures are stored bottom-up.
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(s.width), Height: -float32(s.height)}
	rl.DrawTextureRec(s.target.Texture, src, rl.Vector2{X: x, Y: y}, rl.White)
}

// Unload frees the texture.
func (s *Surface) Unload() { rl.UnloadRenderTexture(s.target) }

func (s *Surface) CompositeMode() stream.CompositeMode { return s.mode }

func (s *Surface) SetCompositeMode(m stream.CompositeMode) { s.mode = m }

func (s *Surface) SetLineWidth(w float64) { s.lineWidth = float32(w) }

// FillRect paints the rectangle. Under DestinationIn the existing pixels are
// scaled by the fill alpha using multiplied blending, then lowered by one
// level when the multiply alone would leave faint channels unchanged.
func (s *Surface) FillRect(x, y, w, h float64, c color.Color) {
	rect := rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(w), Height: float32(h)}
	if s.mode == stream.DestinationIn {
		rl.BeginBlendMode(rl.BlendMultiplied)
		rl.DrawRectangleRec(rect, fadeColor(c))
		rl.EndBlendMode()
		if residue, ok := residueColor(c); ok {
			// dst.rgb -= src.rgb, dst.a unchanged.
			rl.SetBlendFactorsSeparate(rl.One, rl.One, rl.Zero, rl.One, rl.FuncReverseSubtract, rl.FuncAdd)
			rl.BeginBlendMode(rl.BlendCustomSeparate)
			rl.DrawRectangleRec(rect, residue)
			rl.EndBlendMode()
		}
		return
	}
	rl.DrawRectangleRec(rect, toColor(c))
}

func (s *Surface) BeginPath() {
	s.path = s.path[:0]
	s.open = false
}

func (s *Surface) MoveTo(x, y float64) {
	s.cursor = rl.Vector2{X: float32(x), Y: float32(y)}
	s.open = true
}

func (s *Surface) LineTo(x, y float64) {
	p := rl.Vector2{X: float32(x), Y: float32(y)}
	if s.open {
		s.path = append(s.path, s.cursor, p)
	}
	s.cursor = p
	s.open = true
}

func (s *Surface) Stroke(c color.Color) {
	col := toColor(c)
	for i := 0; i+1 < len(s.path); i += 2 {
		rl.DrawLineEx(s.path[i], s.path[i+1], s.lineWidth, col)
	}
}

func toColor(c color.Color) rl.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return rl.NewColor(n.R, n.G, n.B, n.A)
}

// fadeColor maps a destination-in fill of alpha a to the black tint that,
// under multiplied blending (dst*src + dst*(1-srcA)), leaves dst*a.
func fadeColor(c color.Color) rl.Color {
	_, _, _, a := c.RGBA()
	return rl.NewColor(0, 0, 0, uint8(0xff-a>>8))
}

// stallLimit is the smallest 8-bit channel value that a multiply by a/255,
// rounded to nearest, actually lowers. Values below it keep their level
// forever. It is 256 when nothing is lowered.
func stallLimit(a uint8) int {
	for v := 1; v <= 0xff; v++ {
		if int(math.Round(float64(v)*float64(a)/0xff)) < v {
			return v
		}
	}
	return 0x100
}

// residueColor returns the one-level subtraction applied after a fade of
// alpha c, or false when the fade either keeps or clears every pixel.
func residueColor(c color.Color) (rl.Color, bool) {
	_, _, _, a := c.RGBA()
	if lim := stallLimit(uint8(a >> 8)); lim <= 1 || lim > 0xff {
		return rl.Color{}, false
	}
	return rl.NewColor(1, 1, 1, 0), true
}
