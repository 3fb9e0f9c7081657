package fixtures

import "math"

// ClickTrack synthesizes a mono PCM click track at a fixed BPM: one
// exponentially-decaying click per beat, starting at beat 0, for the
// requested duration. This is the rhythm-engine analogue of the teacher's
// DJ click-track fixture (internal/fixtures/generator.go, renderClickTrack):
// same envelope shape, driven by BPM/beats instead of a DJ cue sheet, so
// that internal/beattrack and internal/chartgen tests have audio with a
// known, exact ground-truth tempo and onset grid.
func ClickTrack(bpm float64, durationSeconds float64, sampleRate int) []float64 {
	data := make([]float64, int(durationSeconds*float64(sampleRate)))
	beatSeconds := 60.0 / bpm
	for beat := 0.0; beat*beatSeconds < durationSeconds; beat++ {
		offset := int(beat * beatSeconds * float64(sampleRate))
		expDecayClick(data, offset, sampleRate, 0.9)
	}
	return data
}

// TempoRampClickTrack synthesizes a click track whose tempo ramps linearly
// from startBPM to endBPM over the requested duration, for exercising
// internal/beattrack's tempo-tracking under a changing grid. Adapted from
// the teacher's renderTempoRamp fixture.
func TempoRampClickTrack(startBPM, endBPM, durationSeconds float64, sampleRate int) []float64 {
	data := make([]float64, int(durationSeconds*float64(sampleRate)))
	t := 0.0
	beatIndex := 0.0
	for t < durationSeconds {
		progress := t / durationSeconds
		bpm := startBPM + (endBPM-startBPM)*progress
		offset := int(t * float64(sampleRate))
		expDecayClick(data, offset, sampleRate, 0.9)
		t += 60.0 / bpm
		beatIndex++
	}
	return data
}

// BassPulseTrack synthesizes a low-frequency pulse plus a broadband
// transient every beat, approximating the low/high spectral-band split
// internal/chartgen.SynthesizePath reacts to (bass drives the vertical
// amplitude band, high-band energy drives path "snap" intensity). Adapted
// from the teacher's renderChord/renderClubNoise fixtures, replacing
// musical chord tones with a two-band energy signal since only band
// energy, not pitch, matters to path synthesis.
func BassPulseTrack(bpm float64, durationSeconds float64, sampleRate int) []float64 {
	n := int(durationSeconds * float64(sampleRate))
	data := make([]float64, n)
	beatSeconds := 60.0 / bpm
	const bassHz = 80.0
	const noiseSeed = 1469598103934665603
	state := uint64(noiseSeed)
	for i := 0; i < n; i++ {
		tSec := float64(i) / float64(sampleRate)
		phase := math.Mod(tSec, beatSeconds) / beatSeconds
		env := math.Exp(-6 * phase)
		bass := env * math.Sin(2*math.Pi*bassHz*tSec)

		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		noise := (float64(state%2000)/1000.0 - 1.0) * env * 0.3

		data[i] = 0.6*bass + noise
	}
	return data
}
