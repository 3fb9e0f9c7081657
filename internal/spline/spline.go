// Package spline implements an arc-length-parameterized Catmull-Rom curve:
// the Path Engine of the rhythm engine core.
package spline

import (
	"fmt"
	"math"
	"sort"
)

// Vec2 is a 2D point or vector.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// lutSamples is the number of uniform-parameter samples used to build the
// arc-length lookup table, roughly matching spec.md's "S ≈ 1000 for a full path".
const lutSamples = 1000

// lutEntry is one (accumulated_distance, parameter_t) pair.
type lutEntry struct {
	dist float64
	t    float64
}

// Spline is an immutable Catmull-Rom curve over >=4 control points, with a
// precomputed arc-length lookup table providing uniform-speed traversal.
type Spline struct {
	points []Vec2
	lut    []lutEntry
	length float64
}

// New builds a Catmull-Rom spline and its arc-length LUT from control points.
// Returns an error if fewer than 4 control points are given (spec.md §7 asset error).
func New(points []Vec2) (*Spline, error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("spline: need at least 4 control points, got %d", len(points))
	}

	s := &Spline{points: append([]Vec2(nil), points...)}
	s.buildLUT()
	return s, nil
}

// segmentCount is the number of Catmull-Rom segments: one per interior gap.
func (s *Spline) segmentCount() int {
	return len(s.points) - 3
}

// segmentIndex maps a global parameter u in [0, segmentCount()] to the
// segment index and local parameter in [0,1].
func (s *Spline) segmentIndex(u float64) (int, float64) {
	n := s.segmentCount()
	if u <= 0 {
		return 0, 0
	}
	if u >= float64(n) {
		return n - 1, 1
	}
	idx := int(u)
	if idx >= n {
		idx = n - 1
	}
	return idx, u - float64(idx)
}

// catmullRomPoint evaluates the Catmull-Rom curve at segment index i
// (using control points i, i+1, i+2, i+3 with a virtual "p0..p3" window)
// and local parameter t in [0,1].
func (s *Spline) catmullRomPoint(i int, t float64) Vec2 {
	p0, p1, p2, p3 := s.points[i], s.points[i+1], s.points[i+2], s.points[i+3]
	t2 := t * t
	t3 := t2 * t

	x := 0.5 * ((2 * p1.X) +
		(-p0.X+p2.X)*t +
		(2*p0.X-5*p1.X+4*p2.X-p3.X)*t2 +
		(-p0.X+3*p1.X-3*p2.X+p3.X)*t3)
	y := 0.5 * ((2 * p1.Y) +
		(-p0.Y+p2.Y)*t +
		(2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*t2 +
		(-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*t3)
	return Vec2{x, y}
}

// catmullRomTangent evaluates the first derivative of the segment at t.
func (s *Spline) catmullRomTangent(i int, t float64) Vec2 {
	p0, p1, p2, p3 := s.points[i], s.points[i+1], s.points[i+2], s.points[i+3]
	t2 := t * t

	x := 0.5 * ((-p0.X + p2.X) +
		2*(2*p0.X-5*p1.X+4*p2.X-p3.X)*t +
		3*(-p0.X+3*p1.X-3*p2.X+p3.X)*t2)
	y := 0.5 * ((-p0.Y + p2.Y) +
		2*(2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*t +
		3*(-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*t2)
	return Vec2{x, y}
}

// rawPosition evaluates the curve at uniform global parameter u in
// [0, segmentCount()], without arc-length correction.
func (s *Spline) rawPosition(u float64) Vec2 {
	i, t := s.segmentIndex(u)
	return s.catmullRomPoint(i, t)
}

func (s *Spline) rawTangent(u float64) Vec2 {
	i, t := s.segmentIndex(u)
	return s.catmullRomTangent(i, t)
}

// buildLUT samples the curve uniformly in parameter space and accumulates
// Euclidean distance to produce the arc-length table. Invariants: distances
// strictly nondecreasing, entries[0] == (0, 0).
func (s *Spline) buildLUT() {
	n := s.segmentCount()
	s.lut = make([]lutEntry, 0, lutSamples+1)

	prev := s.rawPosition(0)
	s.lut = append(s.lut, lutEntry{dist: 0, t: 0})

	acc := 0.0
	for i := 1; i <= lutSamples; i++ {
		u := float64(n) * float64(i) / float64(lutSamples)
		p := s.rawPosition(u)
		dx := p.X - prev.X
		dy := p.Y - prev.Y
		acc += math.Sqrt(dx*dx + dy*dy)
		s.lut = append(s.lut, lutEntry{dist: acc, t: u})
		prev = p
	}

	s.length = acc
}

// Length returns the total arc length of the curve.
func (s *Spline) Length() float64 { return s.length }

// clampProgress clamps progress to [0,1], per spec.md §4.1 edge cases.
func clampProgress(p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	return p
}

// paramAt resolves normalized arc-length progress in [0,1] to a global
// Catmull-Rom parameter u, via binary search on the LUT followed by linear
// interpolation between adjacent entries.
func (s *Spline) paramAt(progress float64) float64 {
	progress = clampProgress(progress)
	if len(s.lut) == 0 {
		return 0
	}
	target := progress * s.length

	idx := sort.Search(len(s.lut), func(i int) bool {
		return s.lut[i].dist >= target
	})

	if idx <= 0 {
		return s.lut[0].t
	}
	if idx >= len(s.lut) {
		return s.lut[len(s.lut)-1].t
	}

	lo, hi := s.lut[idx-1], s.lut[idx]
	span := hi.dist - lo.dist
	if span <= 0 {
		// Degenerate sample pair: return the lower t per spec.md §4.1.
		return lo.t
	}
	frac := (target - lo.dist) / span
	return lo.t + frac*(hi.t-lo.t)
}

// Position returns the curve position at normalized arc-length progress in
// [0,1]. progress <= 0 returns the first position; progress >= 1 returns the
// last; both are clamped silently, never erroring.
func (s *Spline) Position(progress float64) Vec2 {
	return s.rawPosition(s.paramAt(progress))
}

// Tangent returns the curve's (unnormalized) derivative at progress,
// suitable for orienting a note or camera along the track.
func (s *Spline) Tangent(progress float64) Vec2 {
	return s.rawTangent(s.paramAt(progress))
}
