package judgment

import (
	"testing"

	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/inputevents"
)

// identityProgress treats beat as progress directly, which is all these
// unit tests need; the session aggregate supplies the real spline mapping.
func identityProgress(beat float64) float64 { return beat }

func TestHoldHeldThrough(t *testing.T) {
	notes := []chart.ChartNote{
		{Beat: 4, Type: chart.NoteType{Kind: chart.KindHold, EndBeat: 8}},
	}
	q := NewQueue(notes, identityProgress)
	q.Spawn(4 - SpawnVisibilityRange)

	results := q.HandleInputs([]inputevents.Event{inputevents.TapInput(4.0)}, 4.0, 120, 0)
	if len(results) != 1 || results[0].Grade != Great {
		t.Fatalf("head judgment = %+v, want one Great", results)
	}

	var tail []Result
	for _, beat := range []float64{5, 6, 7, 8.05, 8.105, 8.25} {
		tail = append(tail, q.HandleInputs(nil, beat, 120, 0)...)
		tail = append(tail, q.DrainMisses(beat, 120, 0)...)
	}
	var sawTailGreat bool
	for _, r := range tail {
		if r.Grade == Great {
			sawTailGreat = true
		}
	}
	if !sawTailGreat {
		t.Errorf("expected a held-through tail Great once current_beat passes end_beat+GOOD_WINDOW, got %+v", tail)
	}
	if len(q.Active()) != 0 {
		t.Errorf("hold should have despawned, active = %+v", q.Active())
	}
}

func TestRestPass(t *testing.T) {
	notes := []chart.ChartNote{
		{Beat: 10, Type: chart.NoteType{Kind: chart.KindRest}},
	}
	q := NewQueue(notes, identityProgress)
	q.Spawn(10 - SpawnVisibilityRange)

	results := q.DrainMisses(10.2, 120, 0)
	if len(results) != 1 || results[0].Grade != Great {
		t.Fatalf("rest pass = %+v, want one Great", results)
	}
	if len(q.Active()) != 0 {
		t.Errorf("rest should have despawned")
	}
}

func TestRestTappedIsMiss(t *testing.T) {
	notes := []chart.ChartNote{
		{Beat: 10, Type: chart.NoteType{Kind: chart.KindRest}},
	}
	q := NewQueue(notes, identityProgress)
	q.Spawn(10 - SpawnVisibilityRange)

	results := q.HandleInputs([]inputevents.Event{inputevents.TapInput(10.0)}, 10.0, 120, 0)
	if len(results) != 1 || results[0].Grade != Miss {
		t.Fatalf("tapped rest = %+v, want one Miss", results)
	}
}

func TestUnpressedHoldMissesTwice(t *testing.T) {
	notes := []chart.ChartNote{
		{Beat: 4, Type: chart.NoteType{Kind: chart.KindHold, EndBeat: 8}},
	}
	q := NewQueue(notes, identityProgress)
	q.Spawn(4 - SpawnVisibilityRange)

	results := q.DrainMisses(4.2, 120, 0)
	if len(results) != 2 {
		t.Fatalf("unpressed hold past miss window = %+v, want two Misses", results)
	}
	for _, r := range results {
		if r.Grade != Miss {
			t.Errorf("expected Miss, got %v", r.Grade)
		}
	}
}

func TestTapGradeThresholds(t *testing.T) {
	notes := []chart.ChartNote{{Beat: 1, Type: chart.NoteType{Kind: chart.KindTap}}}

	// bpm=60 => 1 beat = 1 second, so beat delta in seconds == beat delta in beats.
	for _, tc := range []struct {
		deltaSec float64
		want     Grade
	}{
		{0.010, Great},
		{0.040, Cool},
		{0.080, Good},
	} {
		q := NewQueue(notes, identityProgress)
		q.Spawn(1 - SpawnVisibilityRange)
		results := q.HandleInputs([]inputevents.Event{inputevents.TapInput(1 + tc.deltaSec)}, 1+tc.deltaSec, 60, 0)
		if len(results) != 1 || results[0].Grade != tc.want {
			t.Errorf("delta %vs: got %+v, want %v", tc.deltaSec, results, tc.want)
		}
	}
}

func TestMissBeyondGoodWindow(t *testing.T) {
	notes := []chart.ChartNote{{Beat: 1, Type: chart.NoteType{Kind: chart.KindTap}}}
	q := NewQueue(notes, identityProgress)
	q.Spawn(1 - SpawnVisibilityRange)

	results := q.HandleInputs([]inputevents.Event{inputevents.TapInput(1.2)}, 1.2, 60, 0)
	if len(results) != 0 {
		t.Fatalf("input far outside window should not match: %+v", results)
	}
	results = q.DrainMisses(1.2, 60, 0)
	if len(results) != 1 || results[0].Grade != Miss {
		t.Fatalf("drained miss = %+v", results)
	}
}

func TestCriticalPriorityOverTap(t *testing.T) {
	notes := []chart.ChartNote{
		{Beat: 2, Type: chart.NoteType{Kind: chart.KindCritical}},
	}
	q := NewQueue(notes, identityProgress)
	q.Spawn(2 - SpawnVisibilityRange)

	results := q.HandleInputs([]inputevents.Event{inputevents.CriticalInput(2.0)}, 2.0, 120, 0)
	if len(results) != 1 || results[0].Grade != Great {
		t.Fatalf("critical input = %+v", results)
	}
}

func TestSlideDirectionMustMatch(t *testing.T) {
	notes := []chart.ChartNote{
		{Beat: 2, Type: chart.NoteType{Kind: chart.KindSlide, Direction: chart.DirN}},
	}
	q := NewQueue(notes, identityProgress)
	q.Spawn(2 - SpawnVisibilityRange)

	wrong := q.HandleInputs([]inputevents.Event{inputevents.SlideInput(2.0, chart.DirE)}, 2.0, 120, 0)
	if len(wrong) != 0 {
		t.Fatalf("wrong direction should not match: %+v", wrong)
	}
	right := q.HandleInputs([]inputevents.Event{inputevents.SlideInput(2.0, chart.DirN)}, 2.0, 120, 0)
	if len(right) != 1 || right[0].Grade != Great {
		t.Fatalf("matching direction slide = %+v", right)
	}
}

func TestSpawnVisibility(t *testing.T) {
	notes := []chart.ChartNote{{Beat: 10, Type: chart.NoteType{Kind: chart.KindTap}}}
	q := NewQueue(notes, identityProgress)

	spawned := q.Spawn(10 - SpawnVisibilityRange - 0.01)
	if len(spawned) != 0 {
		t.Fatalf("note should not spawn yet: %+v", spawned)
	}
	spawned = q.Spawn(10 - SpawnVisibilityRange)
	if len(spawned) != 1 {
		t.Fatalf("note should spawn at the visibility boundary: %+v", spawned)
	}
}

func TestDroppedHoldReleaseEarly(t *testing.T) {
	notes := []chart.ChartNote{
		{Beat: 4, Type: chart.NoteType{Kind: chart.KindHold, EndBeat: 8}},
	}
	q := NewQueue(notes, identityProgress)
	q.Spawn(4 - SpawnVisibilityRange)

	q.HandleInputs([]inputevents.Event{inputevents.TapInput(4.0)}, 4.0, 120, 0)
	results := q.HandleInputs([]inputevents.Event{inputevents.ReleaseInput(6.0)}, 6.0, 120, 0)
	if len(results) != 1 || results[0].Grade != Miss {
		t.Fatalf("early release = %+v, want Miss (Dropped)", results)
	}
}
