package chartgen

import (
	"fmt"

	"github.com/cartomix/rhythmengine/internal/beattrack"
	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/onset"
	"github.com/cartomix/rhythmengine/internal/stft"
)

// Version identifies the generation pipeline's algorithm revision, recorded
// alongside a generated chart's catalog entry so charts produced by a later
// pipeline revision are never mistaken for a bit-identical reproduction of
// an older one (spec.md §8 scenario 6).
const Version = "1"

// Seed is the fixed PRNG seed mandated by spec.md §9 ("the offline generator
// seeds a deterministic xorshift64 at 42"), recorded in the catalog for the
// same reason as Version.
const Seed = 42

// Options configures one chart-generation run, mirroring the CLI flags of
// spec.md §6.
type Options struct {
	BPMOverride   float64 // 0 means estimate from audio
	Sensitivity   float64
	MinIntervalMs float64
	ScreenWidth   float64
	ScreenHalfHeight float64
}

// DefaultOptions matches the CLI's documented flag defaults.
func DefaultOptions() Options {
	return Options{
		Sensitivity:      onset.DefaultSensitivity,
		MinIntervalMs:    onset.DefaultMinIntervalMs,
		ScreenWidth:      1920,
		ScreenHalfHeight: 540,
	}
}

// Generate runs the full offline pipeline of spec.md §4.5 over decoded mono
// PCM and produces one Chart for the requested difficulty.
func Generate(samples []float64, sampleRate int, difficulty chart.Difficulty, opts Options) (*chart.Chart, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("chartgen: no audio samples")
	}

	analyzer := stft.NewAnalyzer()
	spectrogram := analyzer.Compute(samples, sampleRate)
	if len(spectrogram.Frames) == 0 {
		return nil, fmt.Errorf("chartgen: audio too short to analyze (need at least %d samples)", stft.Window)
	}

	flux := onset.Flux(spectrogram)
	onsets := onset.Detect(spectrogram, flux, opts.Sensitivity, opts.MinIntervalMs)

	framesPerSecond := float64(sampleRate) / float64(stft.Hop)
	bpm := opts.BPMOverride
	var grid beattrack.BeatGrid
	if bpm > 0 {
		envelope := beattrack.Smooth(flux, framesPerSecond)
		grid = beattrack.PlaceBeats(envelope, framesPerSecond, bpm)
	} else {
		envelope := beattrack.Smooth(flux, framesPerSecond)
		bpm = beattrack.EstimateBPM(envelope, framesPerSecond)
		grid = beattrack.PlaceBeats(envelope, framesPerSecond, bpm)
	}

	quantized := Quantize(onsets, grid, difficulty.GridResolution())
	filtered := Filter(quantized, difficulty)
	notes := AssignTypes(filtered, difficulty)

	var lastBeat float64
	if len(notes) > 0 {
		lastBeat = notes[len(notes)-1].Beat
	}

	pathSeg := SynthesizePath(spectrogram, grid, lastBeat, opts.ScreenWidth, opts.ScreenHalfHeight)

	durationSeconds := float64(len(samples)) / float64(sampleRate)
	notesPerSecond := float64(len(notes)) / durationSeconds

	c := &chart.Chart{
		Difficulty:     difficulty,
		Rating:         Rating(notesPerSecond),
		TimingPoints:   []chart.TimingPoint{{Beat: 0, BPM: bpm}},
		PathSegments:   []chart.PathSegment{pathSeg},
		Notes:          notes,
		TravelBeats:    chart.DefaultTravelBeats,
		LookAheadBeats: chart.DefaultLookAheadBeats,
		TimeSignature:  chart.DefaultTimeSignature,
	}
	return c, nil
}
