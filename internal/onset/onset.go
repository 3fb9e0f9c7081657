// Package onset implements the spectral-flux onset detector of spec.md
// §4.5.2: per-frame flux, normalization, and peak picking against a local
// mean/stddev window with a silence gate and minimum-interval gate.
package onset

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cartomix/rhythmengine/internal/stft"
)

// SilenceGateDB is the RMS floor below which a frame can never be an onset
// (spec.md §4.5.2: 10^(-74/20)).
var SilenceGateDB = math.Pow(10, -74.0/20.0)

// DefaultSensitivity and DefaultMinIntervalMs are the chart generator CLI's
// defaults (spec.md §6).
const (
	DefaultSensitivity  = 1.5
	DefaultMinIntervalMs = 50.0
)

// peakWindowSeconds is the centered window used for local mean/stddev
// (spec.md §4.5.2: "~0.5 s").
const peakWindowSeconds = 0.5

// Flux computes the normalized spectral flux envelope from a spectrogram:
// flux[i] = Σ max(0, |X_i[k]| − |X_{i−1}[k]|), normalized to [0,1].
func Flux(spec stft.Spectrogram) []float64 {
	n := len(spec.Frames)
	if n == 0 {
		return nil
	}
	flux := make([]float64, n)
	for i := 1; i < n; i++ {
		var sum float64
		prev, cur := spec.Frames[i-1], spec.Frames[i]
		for k := range cur {
			d := cur[k] - prev[k]
			if d > 0 {
				sum += d
			}
		}
		flux[i] = sum
	}

	max := 0.0
	for _, f := range flux {
		if f > max {
			max = f
		}
	}
	if max > 0 {
		for i := range flux {
			flux[i] /= max
		}
	}
	return flux
}

// Onset is one detected onset: its frame index, the time it occurs at, and
// the flux strength at that frame (used downstream for quantization and
// difficulty filtering).
type Onset struct {
	Frame    int
	Seconds  float64
	Strength float64
}

// Detect picks onsets from a flux envelope using a centered local mean/
// stddev window, a local-maximum test, the silence gate, and a minimum
// inter-onset interval (spec.md §4.5.2).
func Detect(spec stft.Spectrogram, flux []float64, sensitivity, minIntervalMs float64) []Onset {
	n := len(flux)
	if n == 0 {
		return nil
	}
	if sensitivity <= 0 {
		sensitivity = DefaultSensitivity
	}
	if minIntervalMs <= 0 {
		minIntervalMs = DefaultMinIntervalMs
	}

	framesPerSecond := float64(spec.SampleRate) / float64(stft.Hop)
	halfWindow := int(peakWindowSeconds * framesPerSecond / 2)
	minIntervalFrames := int(minIntervalMs / 1000 * framesPerSecond)

	var onsets []Onset
	lastOnsetFrame := -1 << 30

	for i := 0; i < n; i++ {
		lo := i - halfWindow
		if lo < 0 {
			lo = 0
		}
		hi := i + halfWindow
		if hi >= n {
			hi = n - 1
		}
		window := flux[lo : hi+1]
		mean, std := stat.MeanStdDev(window, nil)

		if flux[i] <= mean+sensitivity*std {
			continue
		}
		if i > 0 && flux[i] < flux[i-1] {
			continue
		}
		if i < n-1 && flux[i] < flux[i+1] {
			continue
		}
		if i < len(spec.TimeRMS) && spec.TimeRMS[i] <= SilenceGateDB {
			continue
		}
		if i-lastOnsetFrame < minIntervalFrames {
			continue
		}

		onsets = append(onsets, Onset{
			Frame:    i,
			Seconds:  stft.FrameToSeconds(i, spec.SampleRate),
			Strength: flux[i],
		})
		lastOnsetFrame = i
	}
	return onsets
}
