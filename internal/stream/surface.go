package stream

import "image/color"

// CompositeMode selects how a fill combines with existing surface content.
type CompositeMode int

const (
	// SourceOver paints new content over existing content.
	SourceOver CompositeMode = iota
	// DestinationIn keeps existing content only where it overlaps the new
	// content, scaled by the new content's alpha.
	DestinationIn
)

func (m CompositeMode) String() string {
	switch m {
	case SourceOver:
		return "source-over"
	case DestinationIn:
		return "destination-in"
	default:
		return "unknown"
	}
}

// Surface is the drawing target of the animation.
type Surface interface {
	CompositeMode() CompositeMode
	SetCompositeMode(m CompositeMode)
	FillRect(x, y, w, h float64, c color.Color)

	SetLineWidth(w float64)
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke(c color.Color)
}

// Bounds is the pixel rectangle [X0, X1) x [Y0, Y1) animated on a surface.
type Bounds struct {
	X0, Y0, X1, Y1 int
}

// Width returns X1-X0.
func (b Bounds) Width() int { return b.X1 - b.X0 }

// Height returns Y1-Y0.
func (b Bounds) Height() int { return b.Y1 - b.Y0 }
