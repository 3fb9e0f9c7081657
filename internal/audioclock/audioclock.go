// Package audioclock defines the external audio-clock collaborator contract
// consumed by the Song Conductor (spec.md §6), plus a deterministic fake used
// by tests and fixtures.
package audioclock

import "time"

// Sample is a single reading from an audio clock: ticks advancing at the
// song's ticks-per-minute rate, plus a sub-tick fractional part.
type Sample struct {
	Ticks    uint64
	Fraction float64
}

// Beats returns ticks+fraction as the raw audio beat count.
func (s Sample) Beats() float64 {
	return float64(s.Ticks) + s.Fraction
}

// Clock is the collaborator the Conductor reads from on demand. The engine
// never owns audio decoding or playback; Clock is implemented by whatever
// hosts audio I/O (out of scope per spec.md §1).
type Clock interface {
	Time() Sample
	Start()
	Pause()
	Resume()
}

// Fake is a deterministic, manually-advanced Clock for tests and for the
// offline fixtures package — it never touches real audio I/O.
type Fake struct {
	bpm     float64
	seconds float64
	paused  bool
}

// NewFake creates a fake clock at the given BPM, starting at zero elapsed time.
func NewFake(bpm float64) *Fake {
	return &Fake{bpm: bpm}
}

// Advance moves the fake clock forward by dt seconds of wall time, unless paused.
func (f *Fake) Advance(dt float64) {
	if f.paused {
		return
	}
	f.seconds += dt
}

// Time reports the current beat position as ticks+fraction, derived from
// elapsed seconds and bpm: beats = seconds * bpm / 60.
func (f *Fake) Time() Sample {
	beats := f.seconds * f.bpm / 60
	whole := uint64(beats)
	return Sample{Ticks: whole, Fraction: beats - float64(whole)}
}

func (f *Fake) Start()   { f.paused = false }
func (f *Fake) Pause()   { f.paused = true }
func (f *Fake) Resume()  { f.paused = false }

// SetBPM changes the fake clock's tick rate, as if a new song section started.
func (f *Fake) SetBPM(bpm float64) { f.bpm = bpm }

// Wall is a real-time Clock driven by the process's wall clock, for hosts
// that have no external audio-I/O process of their own (cmd/enginesvc
// running standalone) but still need ticks-per-minute bookkeeping
// consistent with spec.md §6's Clock contract.
type Wall struct {
	bpm       float64
	started   time.Time
	pausedAt  time.Time
	paused    bool
	pausedAcc time.Duration
}

// NewWall creates a real-time clock at the given BPM.
func NewWall(bpm float64) *Wall {
	return &Wall{bpm: bpm, started: time.Now(), paused: true}
}

func (w *Wall) Start() {
	w.started = time.Now()
	w.paused = false
}

func (w *Wall) Pause() {
	if !w.paused {
		w.pausedAt = time.Now()
		w.paused = true
	}
}

func (w *Wall) Resume() {
	if w.paused {
		w.pausedAcc += time.Since(w.pausedAt)
		w.paused = false
	}
}

func (w *Wall) Time() Sample {
	elapsed := time.Since(w.started) - w.pausedAcc
	if w.paused {
		elapsed = w.pausedAt.Sub(w.started) - w.pausedAcc
	}
	beats := elapsed.Seconds() * w.bpm / 60
	if beats < 0 {
		beats = 0
	}
	whole := uint64(beats)
	return Sample{Ticks: whole, Fraction: beats - float64(whole)}
}
