// Package projection maps geographic coordinates onto a drawing surface.
package projection

import (
	"errors"
	"math"
)

// ErrDegenerateCalibration means the calibration points do not span both axes.
var ErrDegenerateCalibration = errors.New("calibration points must differ in latitude, longitude, x and y")

// Calibration pins a geographic point to a surface pixel.
type Calibration struct {
	Lat, Lng float64
	X, Y     float64
}

// Projection is an affine map between (lat, lng) and surface (x, y).
// Surface y grows downward while latitude grows northward, so the vertical
// scale is negative for any calibration with the northern point on top.
type Projection struct {
	origin Calibration
	sx, sy float64 // pixels per degree of longitude and latitude
}

// New builds a projection from two calibration pairs.
func New(p0, p1 Calibration) (*Projection, error) {
	dLat, dLng := p1.Lat-p0.Lat, p1.Lng-p0.Lng
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	if dLat == 0 || dLng == 0 || dx == 0 || dy == 0 {
		return nil, ErrDegenerateCalibration
	}
	for _, v := range []float64{dLat, dLng, dx, dy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrDegenerateCalibration
		}
	}
	return &Projection{
		origin: p0,
		sx:     dx / dLng,
		sy:     -(dy / (p0.Lat - p1.Lat)),
	}, nil
}

// ForBounds maps the north-west corner to the surface origin and the
// south-east corner to (width, height).
func ForBounds(latN, lngW, latS, lngE, width, height float64) (*Projection, error) {
	return New(
		Calibration{Lat: latN, Lng: lngW, X: 0, Y: 0},
		Calibration{Lat: latS, Lng: lngE, X: width, Y: height},
	)
}

// Project maps a geographic point to surface coordinates.
func (p *Projection) Project(lat, lng float64) (x, y float64) {
	x = p.origin.X + p.sx*(lng-p.origin.Lng)
	y = p.origin.Y + p.sy*(lat-p.origin.Lat)
	return x, y
}

// Unproject is the inverse of Project.
func (p *Projection) Unproject(x, y float64) (lat, lng float64) {
	lat = p.origin.Lat + (y-p.origin.Y)/p.sy
	lng = p.origin.Lng + (x-p.origin.X)/p.sx
	return lat, lng
}
