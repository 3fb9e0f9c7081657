// Package conductor implements the Song Conductor: a drift-correcting beat
// clock mapping wall-clock time to musical beat position (spec.md §4.2).
package conductor

import (
	"log/slog"
	"math"

	"github.com/cartomix/rhythmengine/internal/audioclock"
)

const (
	windowCapacity     = 15
	minRegressionSpan  = 0.10 // seconds
	driftThresholdSecs = 0.050
	driftFrames        = 3
	slopeWarnTolerance = 0.10 // 10% deviation from bpm/60 is logged, not corrected
)

// TimingPoint is a tempo change anchored to a beat position.
type TimingPoint struct {
	Beat float64
	BPM  float64
}

type sample struct {
	x float64 // wall-clock seconds
	y float64 // audio beats
}

// Conductor tracks current_beat from an audio clock with drift correction.
// It is created at song start and discarded at song end (spec.md §3).
type Conductor struct {
	logger *slog.Logger
	clock  audioclock.Clock

	currentBeat float64
	bpm         float64
	playing     bool

	window       []sample
	slope        float64
	intercept    float64
	driftCounter int

	timingPoints []TimingPoint

	audioOffsetMs float64
}

// New creates a Conductor for a song starting at the given initial BPM, with
// remaining tempo changes to apply as current_beat crosses their thresholds.
func New(logger *slog.Logger, clock audioclock.Clock, initialBPM float64, timingPoints []TimingPoint, audioOffsetMs float64) *Conductor {
	return &Conductor{
		logger:        logger,
		clock:         clock,
		bpm:           initialBPM,
		timingPoints:  append([]TimingPoint(nil), timingPoints...),
		audioOffsetMs: audioOffsetMs,
	}
}

// CurrentBeat returns the most recently computed beat position.
func (c *Conductor) CurrentBeat() float64 { return c.currentBeat }

// BPM returns the conductor's current tempo.
func (c *Conductor) BPM() float64 { return c.bpm }

// Playing reports whether the conductor has been started.
func (c *Conductor) Playing() bool { return c.playing }

// Start begins tracking the audio clock.
func (c *Conductor) Start() {
	c.playing = true
	c.clock.Start()
}

// Stop tears down the conductor's tracking state. The clock itself is
// stopped by its owner as part of runtime teardown (spec.md §5).
func (c *Conductor) Stop() {
	c.playing = false
}

// audioBeats converts a raw clock sample into user-offset-adjusted beats,
// per spec.md §4.2: audio_beats = raw_clock_beats + audio_offset_ms*bpm/60000.
func (c *Conductor) audioBeats(raw audioclock.Sample) float64 {
	return raw.Beats() + c.audioOffsetMs*c.bpm/60000
}

// Tick advances the conductor by reading the audio clock once, at wall-clock
// time `now` (seconds since an arbitrary but consistent epoch for this
// session). It is the single entry point driving all the invariants in
// spec.md §4.2 and must be called every render step while playing.
func (c *Conductor) Tick(now float64) float64 {
	if c.clock == nil || !c.playing {
		return c.currentBeat
	}

	raw := c.clock.Time()
	audioBeats := c.audioBeats(raw)

	c.advanceTimingPoints(audioBeats, now, audioBeats)

	c.window = append(c.window, sample{x: now, y: audioBeats})
	if len(c.window) > windowCapacity {
		c.window = c.window[len(c.window)-windowCapacity:]
	}

	span := c.windowSpan()
	if span < minRegressionSpan {
		// Warm-up: regression is unstable while the clock updates in
		// discrete buffer chunks, so skip it entirely.
		c.slope = c.bpm / 60
		c.intercept = audioBeats - c.slope*now
		c.currentBeat = math.Max(c.currentBeat, audioBeats)
		c.driftCounter = 0
		return c.currentBeat
	}

	slope, intercept := c.fitRegression()
	c.checkSlopeSanity(slope)

	predicted := slope*now + intercept
	c.currentBeat = math.Max(c.currentBeat, predicted)
	c.slope = slope
	c.intercept = intercept

	c.checkDrift(predicted, audioBeats, now)

	return c.currentBeat
}

func (c *Conductor) windowSpan() float64 {
	if len(c.window) == 0 {
		return 0
	}
	return c.window[len(c.window)-1].x - c.window[0].x
}

// fitRegression fits beat = slope*wall_time + intercept over the current
// window, centering x values on the window's first x to avoid catastrophic
// cancellation from large wall-clock offsets (spec.md §4.2 "Numerical
// care" — do not remove this centering, it is load-bearing).
func (c *Conductor) fitRegression() (slope, intercept float64) {
	n := float64(len(c.window))
	if n == 0 {
		return c.bpm / 60, 0
	}
	if n == 1 {
		s := c.window[0]
		if s.x == 0 {
			return 0, s.y
		}
		return s.y / s.x, 0
	}

	x0 := c.window[0].x

	var sumX, sumY, sumXY, sumXX float64
	for _, s := range c.window {
		xc := s.x - x0
		sumX += xc
		sumY += s.y
		sumXY += xc * s.y
		sumXX += xc * xc
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return c.bpm / 60, c.window[len(c.window)-1].y - (c.bpm/60)*c.window[len(c.window)-1].x
	}

	slope = (n*sumXY - sumX*sumY) / denom
	meanX := sumX / n
	meanY := sumY / n
	// Restore the original origin: intercept = mean(y) - slope*(mean(x_centered) + x0).
	intercept = meanY - slope*(meanX+x0)
	return slope, intercept
}

func (c *Conductor) checkSlopeSanity(slope float64) {
	expected := c.bpm / 60
	if expected == 0 {
		return
	}
	deviation := math.Abs(slope-expected) / expected
	if deviation > slopeWarnTolerance && c.logger != nil {
		c.logger.Warn("conductor: regression slope deviates from bpm/60",
			"slope", slope, "expected", expected, "deviation", deviation)
	}
}

// checkDrift compares predicted vs raw audio beats; after driftFrames
// consecutive frames over threshold, performs a hard resync.
func (c *Conductor) checkDrift(predicted, audioBeats, now float64) {
	deltaBeats := predicted - audioBeats
	driftSeconds := math.Abs(deltaBeats) * 60 / c.bpm

	if driftSeconds > driftThresholdSecs {
		c.driftCounter++
		if c.driftCounter >= driftFrames {
			if c.logger != nil {
				c.logger.Warn("conductor: drift threshold exceeded, hard resync",
					"drift_seconds", driftSeconds, "frames", c.driftCounter)
			}
			c.resync(now, audioBeats)
		}
		return
	}
	c.driftCounter = 0
}

// resync clears the window, seeds it with the current sample, and forces
// current_beat to the audio clock's value. Used both for drift recovery and
// timing-point advancement (spec.md §4.2 — both reseed identically).
func (c *Conductor) resync(now, audioBeats float64) {
	c.window = []sample{{x: now, y: audioBeats}}
	c.slope = c.bpm / 60
	c.intercept = audioBeats - c.slope*now
	c.driftCounter = 0
	c.currentBeat = audioBeats
}

// advanceTimingPoints pops timing points whose beat threshold current_beat
// has crossed, updating bpm and re-seeding the window identically to a hard
// resync for each pop.
func (c *Conductor) advanceTimingPoints(currentBeatEstimate, now, audioBeats float64) {
	for len(c.timingPoints) > 0 && currentBeatEstimate >= c.timingPoints[0].Beat {
		tp := c.timingPoints[0]
		c.timingPoints = c.timingPoints[1:]
		c.bpm = tp.BPM
		c.resync(now, audioBeats)
		if c.logger != nil {
			c.logger.Info("conductor: timing point reached", "beat", tp.Beat, "bpm", tp.BPM)
		}
	}
}
