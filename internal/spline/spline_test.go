package spline

import (
	"math"
	"testing"
)

func straightLine() []Vec2 {
	return []Vec2{
		{0, 0}, {0, 0}, {100, 0}, {200, 0}, {300, 0}, {300, 0},
	}
}

func TestNewRequiresFourPoints(t *testing.T) {
	tests := []struct {
		name    string
		points  []Vec2
		wantErr bool
	}{
		{"empty", nil, true},
		{"three points", []Vec2{{0, 0}, {1, 0}, {2, 0}}, true},
		{"four points", []Vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.points)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProgressEdgeCases(t *testing.T) {
	s, err := New(straightLine())
	if err != nil {
		t.Fatal(err)
	}

	first := s.Position(0)
	last := s.Position(1)
	if first.X > 1 {
		t.Errorf("progress 0 should be near start, got %v", first)
	}
	if math.Abs(last.X-300) > 1 {
		t.Errorf("progress 1 should be near end, got %v", last)
	}

	// Clamped silently, not erroring.
	below := s.Position(-5)
	above := s.Position(5)
	if below != first {
		t.Errorf("negative progress should clamp to first position, got %v want %v", below, first)
	}
	if above != last {
		t.Errorf("progress > 1 should clamp to last position, got %v want %v", above, last)
	}
}

// TestLUTCorrectness checks spec.md's invariant: for any p in [0,1], the
// chord length from position(0) to position(p) along uniform subdivisions is
// within 1% of p * total_length, for a straight-line spline where arc length
// is exact.
func TestLUTCorrectness(t *testing.T) {
	s, err := New(straightLine())
	if err != nil {
		t.Fatal(err)
	}

	total := s.Length()
	for _, p := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1.0} {
		pos := s.Position(p)
		start := s.Position(0)
		dx := pos.X - start.X
		dy := pos.Y - start.Y
		chord := math.Sqrt(dx*dx + dy*dy)
		want := p * total
		tolerance := 0.01*total + 1e-6
		if math.Abs(chord-want) > tolerance {
			t.Errorf("p=%v: chord length %v, want ~%v (tolerance %v)", p, chord, want, tolerance)
		}
	}
}

// TestDeterminism checks that Position is a pure function of control points
// and progress.
func TestDeterminism(t *testing.T) {
	points := []Vec2{{0, 0}, {50, 80}, {150, -40}, {250, 60}, {350, 0}}
	s1, _ := New(points)
	s2, _ := New(points)

	for _, p := range []float64{0, 0.3, 0.6, 1} {
		if s1.Position(p) != s2.Position(p) {
			t.Errorf("position not deterministic at p=%v: %v vs %v", p, s1.Position(p), s2.Position(p))
		}
	}
}

func TestUniformSpeedOnCurve(t *testing.T) {
	// A curved path where parameter-uniform sampling would bunch samples at
	// high curvature; arc-length progress should still space positions
	// roughly evenly.
	points := []Vec2{
		{0, 0}, {0, 0}, {10, 100}, {20, 0}, {400, 10}, {400, 10},
	}
	s, err := New(points)
	if err != nil {
		t.Fatal(err)
	}

	prev := s.Position(0)
	total := s.Length()
	const steps = 20
	for i := 1; i <= steps; i++ {
		p := float64(i) / steps
		cur := s.Position(p)
		dx := cur.X - prev.X
		dy := cur.Y - prev.Y
		d := math.Sqrt(dx*dx + dy*dy)
		want := total / steps
		if d > want*3+1 {
			t.Errorf("step %d: distance %v far from expected uniform step %v", i, d, want)
		}
		prev = cur
	}
}
