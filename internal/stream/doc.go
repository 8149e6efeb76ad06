// Package stream animates a wind field as particle streamlines.
//
// A [Controller] samples a vector field through a projection onto a coarse
// lattice covering the drawing surface, then advances particles across that
// lattice on a fixed cadence. Each frame is one evolve step followed by one
// draw step:
//
//   - evolve ages every particle, respawns the expired ones at random
//     defined points, and records a segment from each particle's position to
//     its destination in the color bucket matching its local speed;
//   - draw fades the previous frame toward transparency, strokes every
//     non-empty bucket as a single path, and commits particle positions.
//
// Frames never overlap: the next frame is scheduled only after the current
// one returns. A panic inside a frame is recovered, logged, and the loop
// keeps going.
package stream
