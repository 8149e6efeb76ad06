// Command validate runs end-to-end integrity checks over snapshot JSON files:
// each file must parse, a full-extent extraction must return the stored grid
// unchanged, thinned extractions must keep their headers consistent with
// their arrays, the field must reproduce stored values at grid points, and
// the window projection must round-trip.
//
// Usage:
//
//	go run ./cmd/validate data/forecast/snapshot_*.json
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/field"
	"github.com/couchcryptid/wind-stream-service/internal/projection"
	"github.com/couchcryptid/wind-stream-service/internal/subset"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// sampleTarget limits point checks on large grids to roughly 100x100 points.
const sampleTarget = 100

const tolerance = 1e-9

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: validate snapshot.json [snapshot.json ...]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(flag.Args()))
}

type loaded struct {
	path string
	snap domain.Snapshot
}

func run(paths []string) int {
	fmt.Println("=== Wind Snapshot Integrity Validation ===")
	fmt.Println()

	parse := &phase{name: "Phase 1: snapshot parsing"}
	var snaps []loaded
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			parse.errorf("%s: %v", path, err)
			continue
		}
		s, err := domain.ParseSnapshot(data)
		if err != nil {
			parse.errorf("%s: %v", path, err)
			continue
		}
		stats := s.Stats()
		fmt.Printf("  %s: forecast %d, %dx%d, speed mean %.2f max %.2f m/s\n",
			path, s.ForecastTime, s.Header.Nx, s.Header.Ny, stats.Mean, stats.Max)
		snaps = append(snaps, loaded{path: path, snap: s})
	}

	phases := []*phase{
		parse,
		validateExtraction(snaps),
		validateField(snaps),
		validateProjection(snaps),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Snapshots: %d of %d files parsed\n", len(snaps), len(paths))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func fullBounds(h domain.GridHeader) domain.BoundsQuery {
	return domain.BoundsQuery{LatN: h.La1, LngW: h.Lo1, LatS: h.La2, LngE: h.Lo2}
}

// validateExtraction checks the full-extent identity and the header/array
// agreement of every thinned extraction.
func validateExtraction(snaps []loaded) *phase {
	p := &phase{name: "Phase 2: grid extraction"}
	for _, l := range snaps {
		s := l.snap
		full := subset.Extract(s, fullBounds(s.Header), domain.FullResolutionZoom)
		if full.Header.Nx != s.Header.Nx || full.Header.Ny != s.Header.Ny {
			p.errorf("%s: full extent gave %dx%d, want %dx%d", l.path,
				full.Header.Nx, full.Header.Ny, s.Header.Nx, s.Header.Ny)
		}
		if !slices.Equal(full.U, s.U) || !slices.Equal(full.V, s.V) {
			p.errorf("%s: full extent did not return the stored arrays", l.path)
		}

		for zoom := domain.MinZoom; zoom < domain.FullResolutionZoom; zoom++ {
			r := subset.Extract(s, fullBounds(s.Header), zoom)
			if len(r.U) != r.Header.Size() || len(r.V) != r.Header.Size() {
				p.errorf("%s: zoom %d header %dx%d with u=%d v=%d", l.path, zoom,
					r.Header.Nx, r.Header.Ny, len(r.U), len(r.V))
				continue
			}
			if len(r.U) > 0 && (r.U[0] != s.U[0] || r.V[0] != s.V[0]) {
				p.errorf("%s: zoom %d does not start at the grid origin", l.path, zoom)
			}
		}
	}
	return p
}

// validateField checks that both query modes return stored values at grid points.
func validateField(snaps []loaded) *phase {
	p := &phase{name: "Phase 3: vector field at grid points"}
	for _, l := range snaps {
		s := l.snap
		f, err := field.FromSnapshot(s)
		if err != nil {
			p.errorf("%s: %v", l.path, err)
			continue
		}
		h := s.Header
		stepX := max(1, h.Nx/sampleTarget)
		stepY := max(1, h.Ny/sampleTarget)
		for y := 0; y < h.Ny; y += stepY {
			for x := 0; x < h.Nx; x += stepX {
				// Clamp so rounding in the header corners cannot push an edge point outside.
				lat := max(h.La1-float64(y)*h.Dy, h.La2)
				lng := min(h.Lo1+float64(x)*h.Dx, h.Lo2)
				i := y*h.Nx + x

				got, ok := f.Interpolated(lat, lng)
				if !ok || !near(got.U, s.U[i]) || !near(got.V, s.V[i]) {
					p.errorf("%s: interpolated (%d,%d) = %+v ok=%v, stored (%g,%g)",
						l.path, x, y, got, ok, s.U[i], s.V[i])
				}
				got, ok = f.Nearest(lat, lng)
				if !ok || got.U != s.U[i] || got.V != s.V[i] {
					p.errorf("%s: nearest (%d,%d) = %+v ok=%v, stored (%g,%g)",
						l.path, x, y, got, ok, s.U[i], s.V[i])
				}
			}
		}
		if _, ok := f.Interpolated(h.La1+h.Dy, h.Lo1); ok {
			p.errorf("%s: point north of the grid reported as covered", l.path)
		}
	}
	return p
}

// validateProjection checks that a window projection maps the grid corners
// onto the surface corners and inverts cleanly.
func validateProjection(snaps []loaded) *phase {
	p := &phase{name: "Phase 4: window projection"}
	const width, height = 1024, 768
	for _, l := range snaps {
		h := l.snap.Header
		if h.Nx < 2 || h.Ny < 2 {
			continue
		}
		proj, err := projection.ForBounds(h.La1, h.Lo1, h.La2, h.Lo2, width, height)
		if err != nil {
			p.errorf("%s: %v", l.path, err)
			continue
		}
		if x, y := proj.Project(h.La2, h.Lo2); !near(x, width) || !near(y, height) {
			p.errorf("%s: south-east corner projected to (%g,%g)", l.path, x, y)
		}
		lat, lng := proj.Unproject(width/2, height/2)
		if x, y := proj.Project(lat, lng); !near(x, width/2) || !near(y, height/2) {
			p.errorf("%s: centre round trip gave (%g,%g)", l.path, x, y)
		}
	}
	return p
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*max(1, math.Abs(b))
}
