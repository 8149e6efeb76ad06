// Package field answers point queries against a wind grid.
package field

import (
	"fmt"
	"math"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
)

// Field wraps a dense row-major u/v grid. It is read-only after construction
// and safe for concurrent queries.
type Field struct {
	h    domain.GridHeader
	u, v []float64
}

// New builds a Field, rejecting headers that disagree with the arrays.
func New(h domain.GridHeader, u, v []float64) (*Field, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("build field: %w", err)
	}
	if len(u) != h.Size() || len(v) != h.Size() {
		return nil, fmt.Errorf("build field: %w: want %d values, got u=%d v=%d",
			domain.ErrMalformedSnapshot, h.Size(), len(u), len(v))
	}
	return &Field{h: h, u: u, v: v}, nil
}

// FromSnapshot builds a Field over a snapshot's arrays without copying them.
func FromSnapshot(s domain.Snapshot) (*Field, error) {
	return New(s.Header, s.U, s.V)
}

// Header returns the grid header the field was built from.
func (f *Field) Header() domain.GridHeader {
	return f.h
}

// Contains reports whether (lat, lng) lies inside the grid's coverage,
// edges included.
func (f *Field) Contains(lat, lng float64) bool {
	return f.h.La2 <= lat && lat <= f.h.La1 && f.h.Lo1 <= lng && lng <= f.h.Lo2
}

// Nearest returns the stored vector of the grid point whose cell contains
// (lat, lng), cells being centred on grid points. ok is false outside coverage.
func (f *Field) Nearest(lat, lng float64) (vec domain.Vector, ok bool) {
	if !f.Contains(lat, lng) {
		return domain.Vector{}, false
	}
	x := int(math.Floor((lng - (f.h.Lo1 - f.h.Dx/2)) / f.h.Dx))
	y := int(math.Floor(((f.h.La1 + f.h.Dy/2) - lat) / f.h.Dy))
	return f.at(x, y), true
}

// Interpolated returns the bilinear blend of the four grid points around
// (lat, lng). At a grid point it returns that point's vector exactly. ok is
// false outside coverage; the field never extrapolates.
func (f *Field) Interpolated(lat, lng float64) (vec domain.Vector, ok bool) {
	if !f.Contains(lat, lng) {
		return domain.Vector{}, false
	}

	x := int(math.Floor((lng - f.h.Lo1) / f.h.Dx))
	y := int(math.Floor((f.h.La1 - lat) / f.h.Dy))
	dx := (lng - (f.h.Lo1 + f.h.Dx*float64(x))) / f.h.Dx
	dy := ((f.h.La1 - f.h.Dy*float64(y)) - lat) / f.h.Dy

	return bilinear(dx, dy, f.at(x, y), f.at(x+1, y), f.at(x, y+1), f.at(x+1, y+1)), true
}

// at returns the vector at grid point (x, y), clamping to the last row and
// column. Clamping only matters on the south and east edges, where the
// neighbour's weight is zero.
func (f *Field) at(x, y int) domain.Vector {
	x = min(max(x, 0), f.h.Nx-1)
	y = min(max(y, 0), f.h.Ny-1)
	n := y*f.h.Nx + x
	return domain.Vector{U: f.u[n], V: f.v[n]}
}

// bilinear weights p00 (NW), p10 (NE), p01 (SW), p11 (SE) by the fractional
// offsets from the NW corner.
func bilinear(x, y float64, p00, p10, p01, p11 domain.Vector) domain.Vector {
	rx, ry := 1-x, 1-y
	a, b, c, d := rx*ry, x*ry, rx*y, x*y
	return domain.Vector{
		U: p00.U*a + p10.U*b + p01.U*c + p11.U*d,
		V: p00.V*a + p10.V*b + p01.V*c + p11.V*d,
	}
}
