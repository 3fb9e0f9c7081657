package chartgen

import (
	"math"

	"github.com/cartomix/rhythmengine/internal/beattrack"
	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/spline"
	"github.com/cartomix/rhythmengine/internal/stft"
)

// pathNoiseSeed is fixed by spec.md §9: "Perlin at 42".
const pathNoiseSeed = 42

const (
	bassLoHz, bassHiHz = 20.0, 250.0
	highLoHz, highHiHz = 4000.0, 20000.0

	bassWeight  = 0.3
	bassSweepPx = 200.0
	highWeight  = 0.0 // folded into the oscillation amplitude below
	highOscPx   = 50.0
	noiseWeight = 0.5

	meanReversion = 0.97
	noiseOctaves  = 3
	noisePersistence = 0.5
	noiseLacunarity  = 2.0
)

// SynthesizePath walks the chart one beat at a time from beat 0 through
// lastBeat, producing one CatmullRom control point per beat plus one
// (minimum 4), per spec.md §4.5.7. X advances linearly across the screen
// width; Y accumulates bass/high-frequency energy and fBm Perlin noise,
// mean-reverts, and is soft-clamped by tanh.
func SynthesizePath(spec stft.Spectrogram, grid beattrack.BeatGrid, lastBeat, screenWidth, screenHalfHeight float64) chart.PathSegment {
	numPoints := int(math.Ceil(lastBeat)) + 1
	if numPoints < 4 {
		numPoints = 4
	}

	noise := newPerlin1D(pathNoiseSeed)
	yLimit := 0.4 * screenHalfHeight

	points := make([]spline.Vec2, numPoints)
	y := 0.0
	framesPerSecond := float64(spec.SampleRate) / float64(stft.Hop)

	for i := 0; i < numPoints; i++ {
		beat := float64(i)
		x := screenWidth * beat / float64(numPoints-1)

		frame := frameForBeat(beat, grid, framesPerSecond, len(spec.Frames))
		bass, high, rms := bandEnergies(spec, frame)

		y *= meanReversion
		y += bass * bassWeight * bassSweepPx
		y += math.Sin(2*math.Pi*2*beat) * high * highOscPx
		y += noise.fbm(beat, noiseOctaves, noisePersistence, noiseLacunarity) * rms * noiseWeight * yLimit

		clamped := math.Tanh(y/yLimit) * yLimit
		points[i] = spline.Vec2{X: x, Y: clamped}
	}

	return chart.PathSegment{
		Kind:      chart.SegmentCatmullRom,
		Points:    points,
		StartBeat: 0,
		EndBeat:   lastBeat,
	}
}

func frameForBeat(beat float64, grid beattrack.BeatGrid, framesPerSecond float64, numFrames int) int {
	seconds := grid.BeatToTime(beat)
	f := int(math.Round(seconds * framesPerSecond))
	if f < 0 {
		f = 0
	}
	if numFrames > 0 && f >= numFrames {
		f = numFrames - 1
	}
	return f
}

func bandEnergies(spec stft.Spectrogram, frame int) (bass, high, rms float64) {
	if frame < 0 || frame >= len(spec.Frames) {
		return 0, 0, 0
	}
	f := spec.Frames[frame]
	bass = stft.BandEnergy(f, bassLoHz, bassHiHz, spec.SampleRate)
	high = stft.BandEnergy(f, highLoHz, highHiHz, spec.SampleRate)
	if frame < len(spec.TimeRMS) {
		rms = spec.TimeRMS[frame]
	}
	return bass, high, rms
}
