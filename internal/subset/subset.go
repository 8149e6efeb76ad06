// Package subset cuts a geographic window out of a forecast snapshot.
//
// Bounds are mapped to grid indices with an inverse affine transform and
// clamped per axis, so a window entirely outside the grid collapses onto the
// nearest edge index instead of failing. Below the full-resolution zoom the
// window is thinned by a power-of-two stride; thinning picks grid points, it
// never averages them.
package subset

import (
	"math"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
)

// maxStride bounds thin-out at the minimum zoom: 2^(9-5).
const maxStride = 1 << (domain.FullResolutionZoom - domain.MinZoom)

// Result is the extracted window. len(U) == len(V) == Header.Nx*Header.Ny always.
type Result struct {
	Header domain.GridHeader
	U      []float64
	V      []float64

	// Rect is the clamped index rectangle before thinning.
	Rect   domain.IndexRect
	Stride int

	// Degenerate is set when the clamped rectangle has no extent along an
	// axis. The result is still valid, possibly 1-wide or empty.
	Degenerate bool
}

// Locate maps a bounding box onto clamped grid indices. The north-west corner
// rounds down and the south-east corner rounds up; each index is clamped into
// the grid independently.
func Locate(h domain.GridHeader, q domain.BoundsQuery) domain.IndexRect {
	return domain.IndexRect{
		X1: clampIndex(math.Floor((q.LngW-h.Lo1)/h.Dx), h.Nx),
		Y1: clampIndex(math.Floor((h.La1-q.LatN)/h.Dy), h.Ny),
		X2: clampIndex(math.Ceil((q.LngE-h.Lo1)/h.Dx), h.Nx),
		Y2: clampIndex(math.Ceil((h.La1-q.LatS)/h.Dy), h.Ny),
	}
}

// Stride returns the thin-out step for a zoom level: 1 at or above the
// full-resolution zoom, doubling per level below it. Zooms under the minimum
// are treated as the minimum.
func Stride(zoom int) int {
	z := max(zoom, domain.MinZoom)
	if z >= domain.FullResolutionZoom {
		return 1
	}
	return min(1<<(domain.FullResolutionZoom-z), maxStride)
}

// Extract returns the part of s inside q at the resolution implied by zoom.
// The output header is recomputed from the indices actually sampled, not from
// the requested bounds.
func Extract(s domain.Snapshot, q domain.BoundsQuery, zoom int) Result {
	h := s.Header
	rect := Locate(h, q)
	t := Stride(zoom)

	cols := samples(rect.X1, rect.X2, t)
	rows := samples(rect.Y1, rect.Y2, t)

	// Last sampled index per axis: the largest multiple of t from the origin
	// that stays inside the rectangle.
	x2, y2 := rect.X2, rect.Y2
	if cols > 0 {
		x2 = rect.X1 + (cols-1)*t
	}
	if rows > 0 {
		y2 = rect.Y1 + (rows-1)*t
	}

	return Result{
		Header: domain.GridHeader{
			La1: h.La1 - h.Dy*float64(rect.Y1),
			Lo1: h.Lo1 + h.Dx*float64(rect.X1),
			La2: h.La1 - h.Dy*float64(y2),
			Lo2: h.Lo1 + h.Dx*float64(x2),
			Dx:  h.Dx * float64(t),
			Dy:  h.Dy * float64(t),
			Nx:  cols,
			Ny:  rows,
		},
		U:          extractComponent(s.U, h.Nx, rect, t, cols, rows),
		V:          extractComponent(s.V, h.Nx, rect, t, cols, rows),
		Rect:       rect,
		Stride:     t,
		Degenerate: rect.X1 >= rect.X2 || rect.Y1 >= rect.Y2,
	}
}

// extractComponent copies the sampled points of one row-major component array.
func extractComponent(data []float64, nx int, rect domain.IndexRect, t, cols, rows int) []float64 {
	out := make([]float64, 0, cols*rows)
	for r := 0; r < rows; r++ {
		base := (rect.Y1 + r*t) * nx
		if t == 1 {
			out = append(out, data[base+rect.X1:base+rect.X1+cols]...)
			continue
		}
		for c := 0; c < cols; c++ {
			out = append(out, data[base+rect.X1+c*t])
		}
	}
	return out
}

// samples counts the indices lo, lo+t, lo+2t, ... that do not pass hi.
func samples(lo, hi, t int) int {
	if hi < lo {
		return 0
	}
	return (hi-lo)/t + 1
}

// clampIndex clamps a fractional index into [0, n-1] before converting, so
// out-of-range and non-finite values never reach the int conversion.
func clampIndex(f float64, n int) int {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > float64(n-1):
		return n - 1
	default:
		return int(f)
	}
}
