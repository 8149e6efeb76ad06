package stream

import (
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
)

// Sampler is the vector field a lattice is built from.
type Sampler interface {
	Interpolated(lat, lng float64) (domain.Vector, bool)
}

// Unprojector maps surface pixels back to geographic coordinates.
type Unprojector interface {
	Unproject(x, y float64) (lat, lng float64)
}

// cell is one lattice entry: a surface-space velocity and its magnitude.
type cell struct {
	u, v, m float64
	ok      bool
}

// lattice caches field samples at surface resolution. It is built once per
// SetField and never modified afterwards.
type lattice struct {
	b     Bounds
	cells []cell
}

// buildLattice samples every other pixel along both axes and copies each
// sample into the 2x2 block it anchors. Vertical velocity is negated because
// surface y grows downward.
func buildLattice(b Bounds, f Sampler, p Unprojector, scale float64) *lattice {
	l := &lattice{b: b, cells: make([]cell, max(b.Width(), 0)*max(b.Height(), 0))}
	if len(l.cells) == 0 {
		return l
	}

	rows := (b.Height() + 1) / 2
	parallelRange(0, rows, func(i int) {
		y := b.Y0 + 2*i
		for x := b.X0; x < b.X1; x += 2 {
			lat, lng := p.Unproject(float64(x), float64(y))
			var c cell
			if vec, ok := f.Interpolated(lat, lng); ok {
				u, v := vec.U*scale, -vec.V*scale
				c = cell{u: u, v: v, m: math.Hypot(u, v), ok: true}
			}
			l.fillBlock(x, y, c)
		}
	})
	return l
}

func (l *lattice) fillBlock(x, y int, c cell) {
	w := l.b.Width()
	for yy := y; yy < min(y+2, l.b.Y1); yy++ {
		row := (yy - l.b.Y0) * w
		for xx := x; xx < min(x+2, l.b.X1); xx++ {
			l.cells[row+xx-l.b.X0] = c
		}
	}
}

// at returns the cell at the rounded position. Positions off the lattice,
// and every position of a nil lattice, are undefined.
func (l *lattice) at(x, y float64) cell {
	if l == nil {
		return cell{}
	}
	xi, yi := math.Round(x), math.Round(y)
	if !(xi >= float64(l.b.X0) && xi < float64(l.b.X1) && yi >= float64(l.b.Y0) && yi < float64(l.b.Y1)) {
		return cell{}
	}
	return l.cells[(int(yi)-l.b.Y0)*l.b.Width()+int(xi)-l.b.X0]
}

func (l *lattice) defined(x, y float64) bool {
	return l.at(x, y).ok
}

// randomPoint picks a uniformly random surface pixel, retrying while the
// pick is undefined. After attempts retries the last pick is kept even if it
// is undefined.
func (l *lattice) randomPoint(b Bounds, rng *rand.Rand, attempts int) (x, y float64) {
	for try := 0; ; try++ {
		x = float64(b.X0 + rng.IntN(max(b.Width(), 1)))
		y = float64(b.Y0 + rng.IntN(max(b.Height(), 1)))
		if l.defined(x, y) || try >= attempts {
			return x, y
		}
	}
}
