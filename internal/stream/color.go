package stream

import (
	"image/color"
	"math"
)

const (
	minGray = 85
	maxGray = 255
)

// ColorScale quantizes speed into gray buckets from dim (slow) to white (fast).
type ColorScale struct {
	colors   []color.RGBA
	maxSpeed float64
}

// NewColorScale creates (255-85)/step + 1 buckets saturating at maxSpeed.
func NewColorScale(step int, maxSpeed float64) ColorScale {
	step = max(step, 1)
	colors := make([]color.RGBA, 0, (maxGray-minGray)/step+1)
	for j := minGray; j <= maxGray; j += step {
		g := uint8(j)
		colors = append(colors, color.RGBA{R: g, G: g, B: g, A: 0xff})
	}
	return ColorScale{colors: colors, maxSpeed: maxSpeed}
}

// Len returns the number of buckets.
func (s ColorScale) Len() int { return len(s.colors) }

// Color returns the display color of bucket i.
func (s ColorScale) Color(i int) color.RGBA { return s.colors[i] }

// IndexFor maps a speed to its bucket. The index never decreases as m grows
// and is the last bucket for every m >= maxSpeed.
func (s ColorScale) IndexFor(m float64) int {
	if !(m > 0) {
		return 0
	}
	return int(math.Floor(math.Min(m, s.maxSpeed) / s.maxSpeed * float64(len(s.colors)-1)))
}
