// Package domain models gridded surface-wind forecasts and the queries made against them.
//
// # Grid Conventions
//
// A forecast snapshot is a regular latitude/longitude lattice holding the two
// horizontal wind components, u (eastward) and v (northward), in m/s. The
// lattice is described by a [GridHeader]:
//
//	(lo1, la1) ─────────── (lo2, la1)
//	    │   row 0, x = 0 .. nx-1   │
//	    │   row 1                  │
//	    │   ...                    │
//	(lo1, la2) ─────────── (lo2, la2)
//
// The origin (lo1, la1) is the north-west grid point. Column index x grows
// eastward in steps of dx degrees; row index y grows southward in steps of dy
// degrees, so la1 ≥ la2 always holds. Component arrays are flat and row-major:
// the value for grid point (x, y) lives at index y*nx + x.
//
// # Coverage
//
// A point is covered when la2 ≤ lat ≤ la1 and lo1 ≤ lng ≤ lo2. Queries outside
// coverage produce no vector at all; they are never reported as calm (0, 0)
// wind.
//
// # Forecast Hours and Zoom
//
// Snapshots are keyed by forecast index 0-15. Clients request a bounding box
// at a map zoom level 5-13; below [FullResolutionZoom] the server thins the
// grid by a power-of-two stride (see package subset).
//
// # Storage Layout
//
// Upstream decoders have produced both one-array-per-forecast-hour and
// one-document-per-row layouts. This service only accepts the former: the
// storage collaborator must hand back whole component arrays, and
// [ParseSnapshot] rejects any payload whose shape does not match its header.
package domain
