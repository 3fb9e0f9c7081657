// Package beattrack estimates tempo and beat placements from an onset-
// strength envelope (spec.md §4.5.3), and provides the bidirectional
// time↔beat conversion the rest of the chart-generation pipeline relies on.
package beattrack

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// smoothWindowSeconds is the moving-average window applied to the raw onset
// envelope before tempo estimation (spec.md §4.5.3: "~50 ms").
const smoothWindowSeconds = 0.050

// Tempo bounds and the Gaussian prior centered on 120 BPM (spec.md §4.5.3).
const (
	MinBPM          = 60.0
	MaxBPM          = 200.0
	GaussianCenter  = 120.0
	GaussianSigma   = 40.0
)

// Smooth applies a centered moving average of smoothWindowSeconds to the
// raw envelope.
func Smooth(envelope []float64, framesPerSecond float64) []float64 {
	n := len(envelope)
	if n == 0 {
		return nil
	}
	half := int(smoothWindowSeconds * framesPerSecond / 2)
	if half < 1 {
		half = 1
	}
	out := make([]float64, n)
	for i := range envelope {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= n {
			hi = n - 1
		}
		out[i] = floats.Sum(envelope[lo:hi+1]) / float64(hi-lo+1)
	}
	return out
}

// EstimateBPM finds the tempo (rounded to the nearest 0.5 BPM) that
// maximizes Gaussian-weighted autocorrelation of the envelope over lags in
// [MinBPM, MaxBPM] (spec.md §4.5.3 "Tempo estimation").
func EstimateBPM(envelope []float64, framesPerSecond float64) float64 {
	n := len(envelope)
	if n < 2 {
		return GaussianCenter
	}

	bestBPM := GaussianCenter
	bestScore := math.Inf(-1)

	// Scan in 0.5 BPM steps across the allowed range.
	for bpm := MinBPM; bpm <= MaxBPM; bpm += 0.5 {
		periodSeconds := 60.0 / bpm
		lag := int(math.Round(periodSeconds * framesPerSecond))
		if lag <= 0 || lag >= n {
			continue
		}

		var corr float64
		count := 0
		for i := 0; i+lag < n; i++ {
			corr += envelope[i] * envelope[i+lag]
			count++
		}
		if count == 0 {
			continue
		}
		corr /= float64(count)

		weight := gaussian(bpm, GaussianCenter, GaussianSigma)
		score := corr * weight
		if score > bestScore {
			bestScore = score
			bestBPM = bpm
		}
	}

	return math.Round(bestBPM*2) / 2
}

func gaussian(x, mean, sigma float64) float64 {
	d := (x - mean) / sigma
	return math.Exp(-0.5 * d * d)
}

// BeatGrid is the output of beat placement: beat onset times in seconds,
// evenly informed by the estimated tempo but individually fit to the
// envelope, plus the tempo itself.
type BeatGrid struct {
	Beats []float64 // seconds
	BPM   float64
}

// PlaceBeats runs the greedy DP beat placement of spec.md §4.5.3: the
// anchor is the strongest envelope peak within the first two beat periods,
// and each subsequent beat is the best-scoring candidate within a ±25%
// period window of the expected position.
func PlaceBeats(envelope []float64, framesPerSecond, bpm float64) BeatGrid {
	n := len(envelope)
	if n == 0 || bpm <= 0 {
		return BeatGrid{BPM: bpm}
	}
	period := 60.0 / bpm // seconds
	periodFrames := period * framesPerSecond

	anchorEnd := int(math.Min(float64(n-1), 2*periodFrames))
	anchorFrame := 0
	best := math.Inf(-1)
	for i := 0; i <= anchorEnd; i++ {
		if envelope[i] > best {
			best = envelope[i]
			anchorFrame = i
		}
	}

	beats := []float64{float64(anchorFrame) / framesPerSecond}

	cur := float64(anchorFrame)
	tolerance := 0.25 * periodFrames
	for {
		expected := cur + periodFrames
		lo := int(math.Round(expected - tolerance))
		hi := int(math.Round(expected + tolerance))
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		if lo > hi {
			break
		}

		bestFrame := -1
		bestScore := math.Inf(-1)
		for f := lo; f <= hi; f++ {
			deviation := (float64(f) - expected) / periodFrames
			score := envelope[f] - 2*deviation*deviation
			if score > bestScore {
				bestScore = score
				bestFrame = f
			}
		}
		if bestFrame < 0 {
			break
		}
		beats = append(beats, float64(bestFrame)/framesPerSecond)
		cur = float64(bestFrame)
		if cur+periodFrames > float64(n-1) {
			break
		}
	}

	return BeatGrid{Beats: beats, BPM: bpm}
}

// TimeToBeat converts a wall-clock time to a fractional beat index by
// linear interpolation between the nearest beats, extrapolating beyond
// either end using the period of the first or last beat interval.
func (g BeatGrid) TimeToBeat(seconds float64) float64 {
	if len(g.Beats) == 0 {
		return 0
	}
	if len(g.Beats) == 1 {
		return (seconds - g.Beats[0]) * g.BPM / 60
	}
	if seconds <= g.Beats[0] {
		period := g.Beats[1] - g.Beats[0]
		if period == 0 {
			return 0
		}
		return (seconds - g.Beats[0]) / period
	}
	last := len(g.Beats) - 1
	if seconds >= g.Beats[last] {
		period := g.Beats[last] - g.Beats[last-1]
		if period == 0 {
			return float64(last)
		}
		return float64(last) + (seconds-g.Beats[last])/period
	}
	for i := 1; i < len(g.Beats); i++ {
		if seconds <= g.Beats[i] {
			period := g.Beats[i] - g.Beats[i-1]
			if period == 0 {
				return float64(i - 1)
			}
			frac := (seconds - g.Beats[i-1]) / period
			return float64(i-1) + frac
		}
	}
	return float64(last)
}

// BeatToTime converts a fractional beat index back to wall-clock seconds,
// the inverse of TimeToBeat.
func (g BeatGrid) BeatToTime(beat float64) float64 {
	if len(g.Beats) == 0 {
		return 0
	}
	if len(g.Beats) == 1 {
		return g.Beats[0] + beat*60/g.BPM
	}
	last := len(g.Beats) - 1
	if beat <= 0 {
		period := g.Beats[1] - g.Beats[0]
		return g.Beats[0] + beat*period
	}
	if beat >= float64(last) {
		period := g.Beats[last] - g.Beats[last-1]
		return g.Beats[last] + (beat-float64(last))*period
	}
	lo := int(math.Floor(beat))
	frac := beat - float64(lo)
	period := g.Beats[lo+1] - g.Beats[lo]
	return g.Beats[lo] + frac*period
}
