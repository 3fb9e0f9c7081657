// Package judgment implements the note scheduler, hit matching, and hold/
// rest state machines described in spec.md §4.3. It owns no wall-clock or
// audio state of its own; callers drive it with current_beat, bpm, and the
// per-frame input event batch.
package judgment

import (
	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/inputevents"
)

// SpawnVisibilityRange is the normalized spline-progress distance at which a
// note enters the active set (spec.md §4.3 "Scheduling").
const SpawnVisibilityRange = 0.25

// Timing windows, in milliseconds of |Δt| between input beat and target beat.
const (
	GreatWindowMs = 20.0
	CoolWindowMs  = 50.0
	GoodWindowMs  = 100.0
	MissWindowMs  = 100.0
)

// Grade is the outcome of a judged note.
type Grade int

const (
	Great Grade = iota
	Cool
	Good
	Miss
)

func (g Grade) String() string {
	switch g {
	case Great:
		return "Great"
	case Cool:
		return "Cool"
	case Good:
		return "Good"
	default:
		return "Miss"
	}
}

// Result is a JudgmentResult: the outcome emitted for one note event plus
// the spline position it occurred at (spec.md §4.3).
type Result struct {
	Grade    Grade
	Position float64
	Beat     float64
}

// Note is a live runtime note instance (spec.md §3). SplineProgress is fixed
// at spawn; State is only meaningful for Hold notes.
type Note struct {
	TargetBeat     float64
	Type           chart.NoteType
	SplineProgress float64
	State          chart.HoldState

	headGrade Grade // recorded when a hold's head is judged
}

// msDelta converts a beat delta to milliseconds at the given bpm
// (spec.md §4.2/§4.3: |Δbeat|·60000/bpm).
func msDelta(deltaBeats, bpm float64) float64 {
	if deltaBeats < 0 {
		deltaBeats = -deltaBeats
	}
	if bpm == 0 {
		return 0
	}
	return deltaBeats * 60000 / bpm
}

func beatsForMs(ms, bpm float64) float64 {
	return ms * bpm / 60000
}

// classify maps a timing delta in milliseconds to a grade, or reports the
// hit as outside the judgable window entirely.
func classify(absMs float64) (Grade, bool) {
	switch {
	case absMs <= GreatWindowMs:
		return Great, true
	case absMs <= CoolWindowMs:
		return Cool, true
	case absMs <= GoodWindowMs:
		return Good, true
	default:
		return Miss, false
	}
}

// Queue owns the scheduler's unspawned note list and the live active set. It
// is created once per song and discarded at song end, mirroring the
// Conductor's lifetime (spec.md §3).
type Queue struct {
	source   []chart.ChartNote
	nextIdx  int
	active   []*Note
	progress ProgressFunc

	TotalNotes int
}

// ProgressFunc maps a note's target beat to its fixed spline-progress value
// at spawn time. The session aggregate supplies this from the Path Engine.
type ProgressFunc func(targetBeat float64) float64

// NewQueue builds a scheduler over a chart's notes, which must already be
// sorted by beat (the chart package's load-time invariant). Unimplemented
// note kinds are skipped with the caller expected to have logged a warning
// at load time; they are never scheduled.
func NewQueue(notes []chart.ChartNote, progress ProgressFunc) *Queue {
	implemented := make([]chart.ChartNote, 0, len(notes))
	for _, n := range notes {
		if n.Type.Kind.IsImplemented() {
			implemented = append(implemented, n)
		}
	}
	return &Queue{source: implemented, progress: progress, TotalNotes: len(implemented)}
}

// Spawn moves notes whose progress has come within SpawnVisibilityRange of
// the playhead into the active set, returning the newly spawned notes.
func (q *Queue) Spawn(playheadProgress float64) []*Note {
	var spawned []*Note
	for q.nextIdx < len(q.source) {
		cn := q.source[q.nextIdx]
		p := q.progress(cn.Beat)
		if p-playheadProgress > SpawnVisibilityRange {
			break
		}
		n := &Note{TargetBeat: cn.Beat, Type: cn.Type, SplineProgress: p}
		if n.Type.Kind == chart.KindHold || n.Type.Kind == chart.KindSlideHold || n.Type.Kind == chart.KindCriticalHold {
			n.State = chart.HoldPending
		}
		q.active = append(q.active, n)
		spawned = append(spawned, n)
		q.nextIdx++
	}
	return spawned
}

// Active returns the live note set, for rendering and HUD reporting.
func (q *Queue) Active() []*Note { return q.active }

// despawn removes a note from the active set by pointer identity.
func (q *Queue) despawn(target *Note) {
	for i, n := range q.active {
		if n == target {
			q.active = append(q.active[:i], q.active[i+1:]...)
			return
		}
	}
}

// HandleInputs consumes one frame's input batch against the active set, in
// the priority order mandated by spec.md §4.3 "Hit matching": Critical,
// then directional Slide, then Tap (which also covers Rest and hold heads).
// Results are emitted in a deterministic order: per input kind, in the order
// inputs were received.
func (q *Queue) HandleInputs(inputs []inputevents.Event, currentBeat, bpm, playheadProgress float64) []Result {
	var results []Result

	for _, ev := range inputs {
		if ev.Kind != inputevents.Critical {
			continue
		}
		if n, grade, ok := q.matchNearest(ev.Beat, bpm, chart.KindCritical, chart.DirNone, false); ok {
			q.despawn(n)
			results = append(results, Result{Grade: grade, Position: playheadProgress, Beat: ev.Beat})
		}
	}

	for _, ev := range inputs {
		if ev.Kind != inputevents.Slide {
			continue
		}
		if n, grade, ok := q.matchNearest(ev.Beat, bpm, chart.KindSlide, ev.Direction, true); ok {
			q.despawn(n)
			results = append(results, Result{Grade: grade, Position: playheadProgress, Beat: ev.Beat})
		}
	}

	for _, ev := range inputs {
		if ev.Kind != inputevents.Tap {
			continue
		}
		results = append(results, q.handleTap(ev, bpm, playheadProgress)...)
	}

	for _, ev := range inputs {
		if ev.Kind != inputevents.Release {
			continue
		}
		results = append(results, q.handleRelease(ev, bpm, playheadProgress)...)
	}

	q.checkHeldThrough(currentBeat, bpm, playheadProgress, &results)

	return results
}

// matchNearest finds the closest-in-time unconsumed active note of the
// given kind (and, if matchDir, direction) within the Good window.
func (q *Queue) matchNearest(inputBeat, bpm float64, kind chart.NoteKindTag, dir chart.Direction, matchDir bool) (*Note, Grade, bool) {
	var best *Note
	var bestAbsMs float64
	var bestGrade Grade

	for _, n := range q.active {
		if n.Type.Kind != kind {
			continue
		}
		if matchDir && n.Type.Direction != dir {
			continue
		}
		absMs := msDelta(inputBeat-n.TargetBeat, bpm)
		grade, ok := classify(absMs)
		if !ok {
			continue
		}
		if best == nil || absMs < bestAbsMs {
			best, bestAbsMs, bestGrade = n, absMs, grade
		}
	}
	if best == nil {
		return nil, Miss, false
	}
	return best, bestGrade, true
}

// handleTap matches a Tap input against Tap, Rest, and Pending hold heads.
func (q *Queue) handleTap(ev inputevents.Event, bpm, playheadProgress float64) []Result {
	var best *Note
	var bestAbsMs float64
	var bestGrade Grade

	for _, n := range q.active {
		matches := n.Type.Kind == chart.KindTap || n.Type.Kind == chart.KindRest ||
			((n.Type.Kind == chart.KindHold || n.Type.Kind == chart.KindSlideHold || n.Type.Kind == chart.KindCriticalHold) && n.State == chart.HoldPending)
		if !matches {
			continue
		}
		absMs := msDelta(ev.Beat-n.TargetBeat, bpm)
		grade, ok := classify(absMs)
		if !ok {
			continue
		}
		if best == nil || absMs < bestAbsMs {
			best, bestAbsMs, bestGrade = n, absMs, grade
		}
	}
	if best == nil {
		return nil
	}

	switch {
	case best.Type.Kind == chart.KindRest:
		// Rests reward non-action; a tap within window is a Miss.
		q.despawn(best)
		return []Result{{Grade: Miss, Position: playheadProgress, Beat: ev.Beat}}
	case best.Type.Kind == chart.KindHold || best.Type.Kind == chart.KindSlideHold || best.Type.Kind == chart.KindCriticalHold:
		best.State = chart.HoldHeld
		best.headGrade = bestGrade
		return []Result{{Grade: bestGrade, Position: playheadProgress, Beat: ev.Beat}}
	default:
		q.despawn(best)
		return []Result{{Grade: bestGrade, Position: playheadProgress, Beat: ev.Beat}}
	}
}

// handleRelease drives a Held hold toward Completed or Dropped depending on
// how close the release lands to the hold's end_beat (spec.md §4.3 "Hold
// state machine").
func (q *Queue) handleRelease(ev inputevents.Event, bpm, playheadProgress float64) []Result {
	for _, n := range q.active {
		if n.State != chart.HoldHeld {
			continue
		}
		absMs := msDelta(ev.Beat-n.Type.EndBeat, bpm)
		if absMs <= GoodWindowMs {
			n.State = chart.HoldCompleted
			q.despawn(n)
			return []Result{{Grade: Great, Position: playheadProgress, Beat: ev.Beat}}
		}
		// Released earlier than the tail window: dropped, tail scored Miss.
		n.State = chart.HoldDropped
		q.despawn(n)
		return []Result{{Grade: Miss, Position: playheadProgress, Beat: ev.Beat}}
	}
	return nil
}

// checkHeldThrough auto-completes holds whose input remains pressed well
// past end_beat (spec.md §4.3: "Held while input remains pressed and
// current_beat > end_beat + GOOD_WINDOW: auto-Completed as Great"). Since
// this package does not track continuous press state itself, the caller is
// expected to have already converted a still-pressed input into a no-op for
// that note this frame; this check only fires on the beat threshold.
func (q *Queue) checkHeldThrough(currentBeat, bpm, playheadProgress float64, results *[]Result) {
	goodBeats := beatsForMs(GoodWindowMs, bpm)
	for _, n := range append([]*Note(nil), q.active...) {
		if n.State != chart.HoldHeld {
			continue
		}
		if currentBeat > n.Type.EndBeat+goodBeats {
			n.State = chart.HoldCompleted
			q.despawn(n)
			*results = append(*results, Result{Grade: Great, Position: playheadProgress, Beat: currentBeat})
		}
	}
}

// DrainMisses despawns and judges every live note whose miss window has
// elapsed (spec.md §4.3 "Miss detection"), and must run after HandleInputs
// each frame.
func (q *Queue) DrainMisses(currentBeat, bpm, playheadProgress float64) []Result {
	missBeats := beatsForMs(MissWindowMs, bpm)
	var results []Result

	for _, n := range append([]*Note(nil), q.active...) {
		if currentBeat < n.TargetBeat+missBeats {
			continue
		}
		switch {
		case n.Type.Kind == chart.KindRest:
			q.despawn(n)
			results = append(results, Result{Grade: Great, Position: playheadProgress, Beat: currentBeat})
		case (n.Type.Kind == chart.KindHold || n.Type.Kind == chart.KindSlideHold || n.Type.Kind == chart.KindCriticalHold) && n.State == chart.HoldPending:
			q.despawn(n)
			results = append(results,
				Result{Grade: Miss, Position: playheadProgress, Beat: currentBeat},
				Result{Grade: Miss, Position: playheadProgress, Beat: currentBeat},
			)
		case n.State == chart.HoldHeld:
			// The hold state machine owns the tail judgment; skip.
			continue
		default:
			q.despawn(n)
			results = append(results, Result{Grade: Miss, Position: playheadProgress, Beat: currentBeat})
		}
	}
	return results
}
