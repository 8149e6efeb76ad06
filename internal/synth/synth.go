// Package synth generates smooth synthetic wind forecasts for local runs and
// tests.
package synth

import (
	"fmt"
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
)

// DefaultHeader is a 481x505 grid at 1/16 by 1/20 degree covering the
// western Pacific off East Asia.
var DefaultHeader = domain.GridHeader{
	La1: 47.6, Lo1: 120,
	La2: 47.6 - 504*0.05, Lo2: 120 + 480*0.0625,
	Dx: 0.0625, Dy: 0.05,
	Nx: 481, Ny: 505,
}

// Params shapes the generated field.
type Params struct {
	Seed      int64
	Westerly  float64 // mean eastward flow, m/s
	Amplitude float64 // peak turbulent component, m/s
	Scale     float64 // noise features per degree
	Drift     float64 // noise time step per forecast hour
}

// DefaultParams returns parameters giving speeds mostly within the 0-17 m/s
// range the animation colors.
func DefaultParams() Params {
	return Params{Seed: 1, Westerly: 6, Amplitude: 9, Scale: 0.15, Drift: 0.2}
}

// Generator produces snapshots on a fixed grid.
type Generator struct {
	header domain.GridHeader
	params Params
	noise  opensimplex.Noise
}

// New creates a generator for h.
func New(h domain.GridHeader, p Params) (*Generator, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("synthetic grid: %w", err)
	}
	return &Generator{header: h, params: p, noise: opensimplex.New(p.Seed)}, nil
}

// Snapshot builds the field for one forecast hour. The same seed and hour
// always give the same field.
func (g *Generator) Snapshot(forecastTime int) (domain.Snapshot, error) {
	h := g.header
	p := g.params
	u := make([]float64, h.Size())
	v := make([]float64, h.Size())
	t := float64(forecastTime) * p.Drift

	for y := 0; y < h.Ny; y++ {
		lat := h.La1 - float64(y)*h.Dy
		// Westerlies strengthen toward the pole side of the grid.
		band := p.Westerly * (0.5 + 0.5*math.Sin(lat*math.Pi/90))
		for x := 0; x < h.Nx; x++ {
			lng := h.Lo1 + float64(x)*h.Dx
			nx, ny := lng*p.Scale, lat*p.Scale
			i := y*h.Nx + x
			u[i] = band + p.Amplitude*g.noise.Eval3(nx, ny, t)
			v[i] = p.Amplitude * g.noise.Eval3(nx+31.7, ny-17.3, t)
		}
	}
	return domain.NewSnapshot(forecastTime, h, u, v)
}
