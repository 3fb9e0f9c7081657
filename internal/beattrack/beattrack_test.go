package beattrack

import (
	"math"
	"testing"
)

func pulseEnvelope(framesPerSecond, bpm float64, n int) []float64 {
	env := make([]float64, n)
	period := 60 / bpm * framesPerSecond
	for i := range env {
		phase := math.Mod(float64(i), period)
		if phase < 1 {
			env[i] = 1.0
		}
	}
	return env
}

func TestEstimateBPMRecoversKnownTempo(t *testing.T) {
	framesPerSecond := 44100.0 / 512
	env := pulseEnvelope(framesPerSecond, 128, 2000)
	got := EstimateBPM(env, framesPerSecond)
	if math.Abs(got-128) > 1.0 {
		t.Errorf("EstimateBPM = %v, want close to 128", got)
	}
}

func TestEstimateBPMWithinRange(t *testing.T) {
	framesPerSecond := 44100.0 / 512
	env := pulseEnvelope(framesPerSecond, 90, 2000)
	got := EstimateBPM(env, framesPerSecond)
	if got < MinBPM || got > MaxBPM {
		t.Errorf("EstimateBPM returned %v, out of [%v,%v] range", got, MinBPM, MaxBPM)
	}
}

func TestPlaceBeatsSpacing(t *testing.T) {
	framesPerSecond := 44100.0 / 512
	bpm := 120.0
	env := pulseEnvelope(framesPerSecond, bpm, 2000)
	grid := PlaceBeats(env, framesPerSecond, bpm)

	if len(grid.Beats) < 4 {
		t.Fatalf("expected several placed beats, got %d", len(grid.Beats))
	}
	expectedPeriod := 60 / bpm
	for i := 1; i < len(grid.Beats); i++ {
		gap := grid.Beats[i] - grid.Beats[i-1]
		if math.Abs(gap-expectedPeriod) > expectedPeriod*0.3 {
			t.Errorf("beat gap %d = %v, want near %v", i, gap, expectedPeriod)
		}
	}
}

func TestTimeBeatRoundTrip(t *testing.T) {
	grid := BeatGrid{Beats: []float64{0.5, 1.0, 1.5, 2.0, 2.5}, BPM: 120}
	for _, beat := range []float64{0, 0.5, 1.5, 2.0, 3.5, -1.0} {
		tm := grid.BeatToTime(beat)
		back := grid.TimeToBeat(tm)
		if math.Abs(back-beat) > 1e-6 {
			t.Errorf("round trip beat %v -> time %v -> beat %v", beat, tm, back)
		}
	}
}

func TestTimeToBeatExtrapolatesPastEnd(t *testing.T) {
	grid := BeatGrid{Beats: []float64{0.5, 1.0, 1.5}, BPM: 120}
	got := grid.TimeToBeat(3.0)
	if got <= 2 {
		t.Errorf("TimeToBeat(3.0) = %v, expected extrapolation beyond last beat index", got)
	}
}
