package domain

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// Forecast and zoom limits accepted by the wind query.
const (
	MinForecastTime = 0
	MaxForecastTime = 15

	MinZoom            = 5
	MaxZoom            = 13
	DefaultZoom        = 9
	FullResolutionZoom = 9
)

// GridHeader describes a lattice's geographic extent, resolution, and dimensions.
type GridHeader struct {
	La1 float64 `json:"la1"`
	Lo1 float64 `json:"lo1"`
	La2 float64 `json:"la2"`
	Lo2 float64 `json:"lo2"`
	Dx  float64 `json:"dx"`
	Dy  float64 `json:"dy"`
	Nx  int     `json:"nx"`
	Ny  int     `json:"ny"`
}

// Size returns the number of grid points, nx*ny.
func (h GridHeader) Size() int {
	return h.Nx * h.Ny
}

// Validate checks the header invariants: a non-empty lattice with positive
// spacing whose origin is the north-west corner.
func (h GridHeader) Validate() error {
	if h.Nx < 1 || h.Ny < 1 {
		return fmt.Errorf("%w: grid dimensions %dx%d", ErrMalformedSnapshot, h.Nx, h.Ny)
	}
	if !(h.Dx > 0) || !(h.Dy > 0) || math.IsInf(h.Dx, 0) || math.IsInf(h.Dy, 0) {
		return fmt.Errorf("%w: grid spacing dx=%g dy=%g", ErrMalformedSnapshot, h.Dx, h.Dy)
	}
	if !validCorner(h.La1, h.Lo1) || !validCorner(h.La2, h.Lo2) {
		return fmt.Errorf("%w: corner outside the globe (%g,%g)-(%g,%g)", ErrMalformedSnapshot, h.La1, h.Lo1, h.La2, h.Lo2)
	}
	if h.La1 < h.La2 {
		return fmt.Errorf("%w: la1 %g south of la2 %g", ErrMalformedSnapshot, h.La1, h.La2)
	}
	if h.Lo1 > h.Lo2 {
		return fmt.Errorf("%w: lo1 %g east of lo2 %g", ErrMalformedSnapshot, h.Lo1, h.Lo2)
	}
	return nil
}

// validCorner reports whether a corner is a real coordinate. Longitudes are
// wrapped first because many models publish on a 0-360 axis.
func validCorner(lat, lng float64) bool {
	return s2.LatLngFromDegrees(lat, math.Remainder(lng, 360)).IsValid()
}

// IndexRect is an inclusive rectangle of grid indices.
type IndexRect struct {
	X1, Y1, X2, Y2 int
}

// Width returns the number of columns covered, or zero for an inverted rectangle.
func (r IndexRect) Width() int {
	return max(r.X2-r.X1+1, 0)
}

// Height returns the number of rows covered, or zero for an inverted rectangle.
func (r IndexRect) Height() int {
	return max(r.Y2-r.Y1+1, 0)
}

// Vector is a wind sample in grid units (u eastward, v northward).
type Vector struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// Magnitude returns the vector's length.
func (v Vector) Magnitude() float64 {
	return math.Hypot(v.U, v.V)
}
