// Package export writes grid data in tabular form.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/gocarina/gocsv"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
)

// Point is one grid sample.
type Point struct {
	Row   int     `csv:"row"`
	Col   int     `csv:"col"`
	Lat   float64 `csv:"lat"`
	Lng   float64 `csv:"lng"`
	U     float64 `csv:"u"`
	V     float64 `csv:"v"`
	Speed float64 `csv:"speed"`
}

// Points lists every grid point of h with its components, north row first.
func Points(h domain.GridHeader, u, v []float64) ([]Point, error) {
	if len(u) != h.Size() || len(v) != h.Size() {
		return nil, fmt.Errorf("%w: header %dx%d with u=%d v=%d values",
			domain.ErrMalformedSnapshot, h.Nx, h.Ny, len(u), len(v))
	}
	out := make([]Point, 0, h.Size())
	for y := 0; y < h.Ny; y++ {
		for x := 0; x < h.Nx; x++ {
			i := y*h.Nx + x
			out = append(out, Point{
				Row:   y,
				Col:   x,
				Lat:   h.La1 - float64(y)*h.Dy,
				Lng:   h.Lo1 + float64(x)*h.Dx,
				U:     u[i],
				V:     v[i],
				Speed: math.Hypot(u[i], v[i]),
			})
		}
	}
	return out, nil
}

// WriteCSV writes the grid points of h as CSV with a header row.
func WriteCSV(w io.Writer, h domain.GridHeader, u, v []float64) error {
	pts, err := Points(h, u, v)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(pts, w); err != nil {
		return fmt.Errorf("write points csv: %w", err)
	}
	return nil
}
