// Package session implements the Session aggregate described in spec.md §9
// Design Notes: Conductor, Spline, Playhead, the note Queue/Judgment, and
// Scoring as fields of one value created on song start and destroyed on
// exit, rather than module-level singletons with null checks scattered
// through every system.
package session

import (
	"fmt"
	"log/slog"

	"github.com/cartomix/rhythmengine/internal/audioclock"
	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/conductor"
	"github.com/cartomix/rhythmengine/internal/inputevents"
	"github.com/cartomix/rhythmengine/internal/judgment"
	"github.com/cartomix/rhythmengine/internal/scoring"
	"github.com/cartomix/rhythmengine/internal/spline"
)

// ObservableState is the renderer/HUD-facing snapshot of spec.md §6
// "Observable state".
type ObservableState struct {
	CurrentBeat float64
	BPM         float64
	Chain       int
	ChainTier   scoring.Tier
	Score       scoring.Result
	GreatCount  int
	CoolCount   int
	GoodCount   int
	MissCount   int
	LiveNotes   []LiveNote
	Judgments   []judgment.Result
}

// LiveNote is one active note's renderer-facing state.
type LiveNote struct {
	TargetBeat     float64
	Kind           chart.NoteKindTag
	SplineProgress float64
	State          chart.HoldState
}

// Session owns every runtime entity for one song play: the beat clock, the
// visual path, the note queue/judgment machine, and the running score. It
// is constructed when a song starts Playing and torn down on exit
// (spec.md §5 "Cancellation and timeouts").
type Session struct {
	logger    *slog.Logger
	conductor *conductor.Conductor
	spline    *spline.Spline
	queue     *judgment.Queue
	chain     scoring.Chain

	pathStartBeat, pathEndBeat float64

	totalNotes int
	counts     scoring.Counts

	playing bool
}

// New constructs a Session from a loaded chart and an audio clock
// collaborator. The chart's CatmullRom path segments are concatenated into
// a single evaluable spline; charts must have at least 4 control points in
// total (spec.md §7 asset error: "<4 control points").
func New(logger *slog.Logger, c *chart.Chart, clock audioclock.Clock, audioOffsetMs float64) (*Session, error) {
	var points []spline.Vec2
	startBeat, endBeat := 0.0, 0.0
	for i, seg := range c.PathSegments {
		if seg.Kind != chart.SegmentCatmullRom {
			continue
		}
		points = append(points, seg.Points...)
		if i == 0 {
			startBeat = seg.StartBeat
		}
		endBeat = seg.EndBeat
	}
	if endBeat <= startBeat {
		endBeat = startBeat + 1
	}

	sp, err := spline.New(points)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	initialBPM := 120.0
	var timingPoints []conductor.TimingPoint
	if len(c.TimingPoints) > 0 {
		initialBPM = c.TimingPoints[0].BPM
		for _, tp := range c.TimingPoints[1:] {
			timingPoints = append(timingPoints, conductor.TimingPoint{Beat: tp.Beat, BPM: tp.BPM})
		}
	}
	cond := conductor.New(logger, clock, initialBPM, timingPoints, audioOffsetMs)

	s := &Session{
		logger:        logger,
		conductor:     cond,
		spline:        sp,
		pathStartBeat: startBeat,
		pathEndBeat:   endBeat,
	}
	s.queue = judgment.NewQueue(c.Notes, s.beatToProgress)
	s.totalNotes = s.queue.TotalNotes

	return s, nil
}

// beatToProgress maps an absolute beat position onto the path's [0,1]
// arc-length parameter. Both the playhead and every note's fixed spawn
// progress are computed through this same function, so a note spawns
// exactly when the playhead's progress comes within SpawnVisibilityRange of
// the note's (spec.md §4.3).
func (s *Session) beatToProgress(beat float64) float64 {
	span := s.pathEndBeat - s.pathStartBeat
	if span <= 0 {
		return 0
	}
	p := (beat - s.pathStartBeat) / span
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Start begins playback: the audio clock starts ticking and notes become
// eligible to spawn.
func (s *Session) Start() {
	s.playing = true
	s.conductor.Start()
}

// Stop tears down tracking state; the caller is responsible for stopping
// the underlying audio clock as part of runtime teardown.
func (s *Session) Stop() {
	s.playing = false
	s.conductor.Stop()
}

// Tick runs one frame of the ordered pipeline mandated by spec.md §5:
// Conductor → Spawn → Input → Hit-check → Score → Render-state. It must be
// called once per render step while playing.
func (s *Session) Tick(now float64, inputs []inputevents.Event) ObservableState {
	if !s.playing {
		return s.snapshot(nil)
	}

	currentBeat := s.conductor.Tick(now)
	bpm := s.conductor.BPM()
	playheadProgress := s.beatToProgress(currentBeat)

	s.queue.Spawn(playheadProgress)

	var results []judgment.Result
	results = append(results, s.queue.HandleInputs(inputs, currentBeat, bpm, playheadProgress)...)
	results = append(results, s.queue.DrainMisses(currentBeat, bpm, playheadProgress)...)

	for _, r := range results {
		s.applyResult(r)
	}

	return s.snapshot(results)
}

func (s *Session) applyResult(r judgment.Result) {
	switch r.Grade {
	case judgment.Great:
		s.counts.Great++
	case judgment.Cool:
		s.counts.Cool++
	case judgment.Good:
		s.counts.Good++
	default:
		s.counts.MissCount++
	}
	s.chain.Advance(r.Grade == judgment.Miss)
}

// State returns the current observable snapshot without advancing the
// conductor or running the spawn/input/judgment pipeline. Used by read-only
// state queries that must not perturb the conductor's wall-clock regression
// window (spec.md §6 "Observable state").
func (s *Session) State() ObservableState {
	return s.snapshot(nil)
}

func (s *Session) snapshot(results []judgment.Result) ObservableState {
	s.counts.TotalNotes = s.totalNotes
	s.counts.MaxChain = s.chain.Max()

	var live []LiveNote
	for _, n := range s.queue.Active() {
		live = append(live, LiveNote{
			TargetBeat:     n.TargetBeat,
			Kind:           n.Type.Kind,
			SplineProgress: n.SplineProgress,
			State:          n.State,
		})
	}

	return ObservableState{
		CurrentBeat: s.conductor.CurrentBeat(),
		BPM:         s.conductor.BPM(),
		Chain:       s.chain.Current(),
		ChainTier:   s.chain.Tier(),
		Score:       scoring.Score(s.counts, false),
		GreatCount:  s.counts.Great,
		CoolCount:   s.counts.Cool,
		GoodCount:   s.counts.Good,
		MissCount:   s.counts.MissCount,
		LiveNotes:   live,
		Judgments:   results,
	}
}

// Finish computes the final score with the clear bonus applied, for the
// results screen (spec.md §4.4: "clear_bonus = 50_000 on reaching the
// results screen").
func (s *Session) Finish() scoring.Result {
	s.counts.TotalNotes = s.totalNotes
	s.counts.MaxChain = s.chain.Max()
	return scoring.Score(s.counts, true)
}
