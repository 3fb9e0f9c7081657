// Package stft computes the short-time Fourier transform used by the
// offline chart generator (spec.md §4.5.1): Hann-windowed real FFT frames
// over mono PCM, plus the small frame/bin conversion utilities the onset
// and beat-tracking stages build on.
package stft

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Window and Hop are fixed by spec.md §4.5.1.
const (
	Window = 2048
	Hop    = 512
)

// Spectrogram is the magnitude spectrum of every analysis frame, plus the
// sample rate needed to convert frames/bins to seconds/Hz.
type Spectrogram struct {
	Frames     [][]float64 // magnitude, Window/2+1 bins per frame
	TimeRMS    []float64   // time-domain RMS of the unwindowed samples per frame
	SampleRate int
}

// Analyzer computes Hann-windowed real FFT frames over mono PCM.
type Analyzer struct {
	fft    *fourier.FFT
	window []float64
}

// NewAnalyzer builds a reusable Hann window and FFT plan for Window-sized
// frames.
func NewAnalyzer() *Analyzer {
	window := make([]float64, Window)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(Window-1)))
	}
	return &Analyzer{fft: fourier.NewFFT(Window), window: window}
}

// Compute slides a Window-sample, Hop-stride frame across mono samples and
// returns the magnitude spectrogram. Samples shorter than Window yield an
// empty spectrogram.
func (a *Analyzer) Compute(samples []float64, sampleRate int) Spectrogram {
	var frames [][]float64
	var timeRMS []float64
	if len(samples) < Window {
		return Spectrogram{SampleRate: sampleRate}
	}

	windowed := make([]float64, Window)
	for start := 0; start+Window <= len(samples); start += Hop {
		var sumSq float64
		for i := 0; i < Window; i++ {
			s := samples[start+i]
			sumSq += s * s
			windowed[i] = s * a.window[i]
		}
		coeffs := a.fft.Coefficients(nil, windowed)
		mags := make([]float64, len(coeffs))
		for i, c := range coeffs {
			mags[i] = cmplxAbs(c)
		}
		frames = append(frames, mags)
		timeRMS = append(timeRMS, math.Sqrt(sumSq/float64(Window)))
	}
	return Spectrogram{Frames: frames, TimeRMS: timeRMS, SampleRate: sampleRate}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// FrameToSeconds converts a frame index to the wall-clock time (seconds) at
// its first sample.
func FrameToSeconds(frame, sampleRate int) float64 {
	return float64(frame*Hop) / float64(sampleRate)
}

// BinToHz converts an FFT bin index to the frequency (Hz) it represents.
func BinToHz(bin, sampleRate int) float64 {
	return float64(bin) * float64(sampleRate) / float64(Window)
}

// BandEnergy returns the RMS magnitude over the bins spanning [loHz, hiHz].
func BandEnergy(frame []float64, loHz, hiHz float64, sampleRate int) float64 {
	loBin := int(math.Ceil(loHz * Window / float64(sampleRate)))
	hiBin := int(math.Floor(hiHz * Window / float64(sampleRate)))
	if loBin < 0 {
		loBin = 0
	}
	if hiBin >= len(frame) {
		hiBin = len(frame) - 1
	}
	if hiBin < loBin {
		return 0
	}

	var sumSq float64
	n := 0
	for b := loBin; b <= hiBin; b++ {
		sumSq += frame[b] * frame[b]
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n))
}

// RMS returns the root-mean-square of a frame's magnitude bins. The onset
// silence gate uses Spectrogram.TimeRMS, not this function.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sumSq float64
	for _, m := range frame {
		sumSq += m * m
	}
	return math.Sqrt(sumSq / float64(len(frame)))
}
