package stream

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wind-stream-service/internal/observability"
)

// Options tunes the animation.
type Options struct {
	ParticleMultiplier float64       // particles per surface column at density 1
	MaxAge             int           // frames a particle lives before respawning
	FramePeriod        time.Duration // delay between the end of one frame and the next
	MaxSpeed           float64       // speed at which the color scale saturates
	ColorStep          int           // gray-level step between buckets
	FadeAlpha          float64       // fraction of the previous frame kept each frame
	LineWidth          float64
	SpawnAttempts      int // retries when respawning onto an undefined point
}

// DefaultOptions returns the standard animation tuning.
func DefaultOptions() Options {
	return Options{
		ParticleMultiplier: 7,
		MaxAge:             100,
		FramePeriod:        40 * time.Millisecond,
		MaxSpeed:           17,
		ColorStep:          10,
		FadeAlpha:          0.97,
		LineWidth:          1,
		SpawnAttempts:      30,
	}
}

// Particle is one advected point. (XT, YT) is the pending destination
// recorded by evolve and committed by draw.
type Particle struct {
	X, Y   float64
	XT, YT float64
	Age    int
}

// Segment is a recorded particle move.
type Segment struct {
	X0, Y0, X1, Y1 float64
}

// Bucket is the set of segments stroked in one color during a frame.
type Bucket struct {
	Color    color.RGBA
	Segments []Segment
}

// RenderFault wraps a panic recovered from one frame.
type RenderFault struct {
	Frame uint64
	Value any
}

func (e *RenderFault) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Frame, e.Value)
}

// Controller owns the particles, color buckets, and lattice cache of one
// animation and drives its frame loop.
type Controller struct {
	bounds  Bounds
	opts    Options
	colors  ColorScale
	fade    color.RGBA
	sched   Scheduler
	rng     *rand.Rand
	logger  *slog.Logger
	metrics *observability.Metrics

	// lattice is swapped whole; a frame reads either the old or the new one.
	lattice atomic.Pointer[lattice]

	mu        sync.Mutex
	particles []Particle
	buckets   [][]int // particle indices per color bucket
	surface   Surface
	running   bool
	gen       uint64 // bumped whenever the pending frame is invalidated
	fieldGen  uint64 // bumped by every SetField; only the latest installs its lattice
	stopFrame func() bool
	frames    uint64
}

// NewController creates a stopped controller for the surface area b. A nil
// rng is seeded from the wall clock.
func NewController(b Bounds, opts Options, sched Scheduler, rng *rand.Rand, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>32))
	}
	colors := NewColorScale(opts.ColorStep, opts.MaxSpeed)
	return &Controller{
		bounds:  b,
		opts:    opts,
		colors:  colors,
		fade:    color.RGBA{A: uint8(math.Round(opts.FadeAlpha * 0xff))},
		sched:   sched,
		rng:     rng,
		logger:  logger,
		metrics: metrics,
		buckets: make([][]int, colors.Len()),
	}
}

// SetField cancels the pending frame, discards the lattice, and builds a new
// one from f seen through p, with velocities multiplied by scale (0 means 1).
// A frame already executing finishes against the lattice it started with. If
// the animation is running it resumes on the new lattice. When calls overlap,
// the most recent call's lattice wins regardless of which build finishes first.
func (c *Controller) SetField(f Sampler, p Unprojector, scale float64) {
	if scale == 0 {
		scale = 1
	}

	c.mu.Lock()
	c.cancelPendingLocked()
	c.lattice.Store(nil)
	c.fieldGen++
	token := c.fieldGen
	c.mu.Unlock()

	start := time.Now()
	l := buildLattice(c.bounds, f, p, scale)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.fieldGen {
		// A later SetField owns the lattice now.
		c.logger.Debug("lattice discarded", "duration", time.Since(start))
		return
	}
	c.lattice.Store(l)
	c.logger.Debug("lattice built", "width", c.bounds.Width(), "height", c.bounds.Height(), "duration", time.Since(start))

	// A Start during the build already has a frame pending.
	if c.running && c.stopFrame == nil {
		c.scheduleLocked()
	}
}

// Start spawns width*multiplier*density particles at random ages, runs the
// first frame on s immediately, and keeps scheduling frames until Stop.
// Calling Start again restarts the animation with fresh particles.
func (c *Controller) Start(s Surface, density float64) {
	if density <= 0 {
		density = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelPendingLocked()

	l := c.lattice.Load()
	n := int(math.Round(float64(c.bounds.Width()) * c.opts.ParticleMultiplier * density))
	c.particles = make([]Particle, n)
	for i := range c.particles {
		p := &c.particles[i]
		p.X, p.Y = l.randomPoint(c.bounds, c.rng, c.opts.SpawnAttempts)
		p.Age = c.rng.IntN(c.opts.MaxAge + 1)
	}
	c.metrics.ParticlesActive.Set(float64(n))
	c.logger.Info("animation started", "particles", n, "density", density)

	s.SetLineWidth(c.opts.LineWidth)
	c.surface = s
	c.running = true
	c.frameLocked()
}

// Stop halts the loop at the next frame boundary. A frame already executing
// completes.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.cancelPendingLocked()
	c.running = false
	c.surface = nil
	c.metrics.ParticlesActive.Set(0)
	c.logger.Info("animation stopped", "frames", c.frames)
}

// Running reports whether frames are being scheduled.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Frames returns the number of frames run since the controller was created.
func (c *Controller) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Evolve runs one simulation step without drawing.
func (c *Controller) Evolve() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evolveLocked()
}

// Draw renders the segments recorded by the last Evolve onto s.
func (c *Controller) Draw(s Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drawLocked(s)
}

// Particles returns a copy of the particle list.
func (c *Controller) Particles() []Particle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Particle(nil), c.particles...)
}

// Buckets returns the segments recorded by the last Evolve, one entry per
// color bucket.
func (c *Controller) Buckets() []Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Bucket, len(c.buckets))
	for i, idx := range c.buckets {
		out[i].Color = c.colors.Color(i)
		for _, j := range idx {
			p := c.particles[j]
			out[i].Segments = append(out[i].Segments, Segment{X0: p.X, Y0: p.Y, X1: p.XT, Y1: p.YT})
		}
	}
	return out
}

// ColorScale returns the speed buckets used for drawing.
func (c *Controller) ColorScale() ColorScale {
	return c.colors
}

func (c *Controller) cancelPendingLocked() {
	if c.stopFrame != nil {
		c.stopFrame()
		c.stopFrame = nil
	}
	c.gen++
}

func (c *Controller) scheduleLocked() {
	gen := c.gen
	c.stopFrame = c.sched.AfterFunc(c.opts.FramePeriod, func() { c.frame(gen) })
}

// frame is the scheduled entry point. Frames from an invalidated generation
// are dropped.
func (c *Controller) frame(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || gen != c.gen {
		return
	}
	c.stopFrame = nil
	c.frameLocked()
}

// frameLocked runs one evolve/draw cycle and schedules the next one, even
// when the cycle faulted.
func (c *Controller) frameLocked() {
	start := time.Now()
	if err := c.cycleLocked(); err != nil {
		c.metrics.FrameFaults.Inc()
		c.logger.Error("animation frame failed", "frame", c.frames, "error", err)
	}
	c.frames++
	c.metrics.FramesRendered.Inc()
	c.metrics.FrameDuration.Observe(time.Since(start).Seconds())

	if c.running {
		c.scheduleLocked()
	}
}

func (c *Controller) cycleLocked() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderFault{Frame: c.frames, Value: r}
		}
	}()
	c.evolveLocked()
	c.drawLocked(c.surface)
	return nil
}

// evolveLocked advances every particle one step and rebuilds the buckets.
func (c *Controller) evolveLocked() {
	for i := range c.buckets {
		c.buckets[i] = c.buckets[i][:0]
	}

	l := c.lattice.Load()
	for i := range c.particles {
		p := &c.particles[i]
		if p.Age > c.opts.MaxAge {
			p.X, p.Y = l.randomPoint(c.bounds, c.rng, c.opts.SpawnAttempts)
			p.Age = 0
		}

		v := l.at(p.X, p.Y)
		if !v.ok {
			// Off the data: expire so the next step respawns it.
			p.Age = c.opts.MaxAge
		} else {
			xt, yt := p.X+v.u, p.Y+v.v
			if l.defined(xt, yt) {
				p.XT, p.YT = xt, yt
				b := c.colors.IndexFor(v.m)
				c.buckets[b] = append(c.buckets[b], i)
			} else {
				// Crossing into a void: move without drawing.
				p.X, p.Y = xt, yt
			}
		}
		p.Age++
	}
}

// drawLocked fades the surface, strokes each non-empty bucket as one path,
// and commits the recorded destinations.
func (c *Controller) drawLocked(s Surface) {
	prev := s.CompositeMode()
	s.SetCompositeMode(DestinationIn)
	s.FillRect(float64(c.bounds.X0), float64(c.bounds.Y0), float64(c.bounds.Width()), float64(c.bounds.Height()), c.fade)
	s.SetCompositeMode(prev)

	for i, idx := range c.buckets {
		if len(idx) == 0 {
			continue
		}
		s.BeginPath()
		for _, j := range idx {
			p := &c.particles[j]
			s.MoveTo(p.X, p.Y)
			s.LineTo(p.XT, p.YT)
			p.X, p.Y = p.XT, p.YT
		}
		s.Stroke(c.colors.Color(i))
	}
}
