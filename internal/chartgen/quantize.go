package chartgen

import (
	"math"
	"sort"

	"github.com/cartomix/rhythmengine/internal/beattrack"
	"github.com/cartomix/rhythmengine/internal/chart"
	"github.com/cartomix/rhythmengine/internal/onset"
)

// QuantizedNote is one onset snapped to the rhythmic grid, still untyped.
// Synthetic marks notes inserted by the per-measure minimum-note rule
// rather than detected from audio (spec.md §9 Open Question (b)).
type QuantizedNote struct {
	Beat      float64
	Strength  float64
	Synthetic bool
}

// Quantize converts detected onsets into beat-grid-snapped notes (spec.md
// §4.5.4): each onset's continuous beat position snaps to the nearest
// 1/gridResolution multiple, then colliding positions are deduped, keeping
// the stronger onset.
func Quantize(onsets []onset.Onset, grid beattrack.BeatGrid, gridResolution float64) []QuantizedNote {
	byBeat := make(map[float64]QuantizedNote)
	for _, o := range onsets {
		beat := grid.TimeToBeat(o.Seconds)
		snapped := math.Round(beat*gridResolution) / gridResolution
		if existing, ok := byBeat[snapped]; !ok || o.Strength > existing.Strength {
			byBeat[snapped] = QuantizedNote{Beat: snapped, Strength: o.Strength}
		}
	}

	out := make([]QuantizedNote, 0, len(byBeat))
	for _, n := range byBeat {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Beat < out[j].Beat })
	return out
}

// BeatWeight is the rhythmic-position weight used by the difficulty filter
// (spec.md §4.5.5): 1.0 on downbeats, 0.8 on other whole beats, 0.5 on
// half-beats, 0.3 on finer subdivisions.
func BeatWeight(beat float64) float64 {
	const eps = 1e-6
	frac := beat - math.Floor(beat)
	isWhole := frac < eps || frac > 1-eps
	if isWhole {
		wholeBeat := math.Round(beat)
		if math.Mod(wholeBeat, 4) == 0 {
			return 1.0
		}
		return 0.8
	}
	if math.Abs(frac-0.5) < eps {
		return 0.5
	}
	return 0.3
}

// Filter applies the difficulty filter and post-filter rules of spec.md
// §4.5.5, in order: importance-percentile retention, minimum inter-note gap
// enforcement, then per-measure minimum-note insertion.
func Filter(notes []QuantizedNote, difficulty chart.Difficulty) []QuantizedNote {
	if len(notes) == 0 {
		return enforceMinimumPerMeasure(nil, 0)
	}

	scores := make([]float64, len(notes))
	for i, n := range notes {
		scores[i] = n.Strength * BeatWeight(n.Beat)
	}
	threshold := percentile(scores, difficulty.ImportancePercentile())

	retained := make([]QuantizedNote, 0, len(notes))
	for i, n := range notes {
		if scores[i] >= threshold {
			retained = append(retained, n)
		}
	}

	retained = enforceMinGap(retained, difficulty.MinGapBeats())

	lastBeat := notes[len(notes)-1].Beat
	retained = enforceMinimumPerMeasure(retained, lastBeat)

	sort.Slice(retained, func(i, j int) bool { return retained[i].Beat < retained[j].Beat })
	return retained
}

// percentile returns the score value at the given percentile (0=min,
// 1=max) via linear interpolation over the sorted score list.
func percentile(scores []float64, p float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// enforceMinGap removes the weaker of any two notes closer together than
// minGapBeats, scanning left to right (spec.md §4.5.5 post-filter rule 1).
func enforceMinGap(notes []QuantizedNote, minGapBeats float64) []QuantizedNote {
	if len(notes) == 0 {
		return notes
	}
	sorted := append([]QuantizedNote(nil), notes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Beat < sorted[j].Beat })

	out := []QuantizedNote{sorted[0]}
	for _, n := range sorted[1:] {
		last := &out[len(out)-1]
		if n.Beat-last.Beat < minGapBeats {
			if n.Strength > last.Strength {
				*last = n
			}
			continue
		}
		out = append(out, n)
	}
	return out
}

// enforceMinimumPerMeasure ensures every 4-beat measure up to lastBeat has
// at least one note, inserting a synthetic downbeat note with strength 0.5
// into any empty measure (spec.md §4.5.5 post-filter rule 2).
func enforceMinimumPerMeasure(notes []QuantizedNote, lastBeat float64) []QuantizedNote {
	if lastBeat <= 0 && len(notes) == 0 {
		return notes
	}
	occupied := make(map[int]bool)
	for _, n := range notes {
		occupied[int(n.Beat/4)] = true
	}

	numMeasures := int(math.Floor(lastBeat/4)) + 1
	out := append([]QuantizedNote(nil), notes...)
	for m := 0; m < numMeasures; m++ {
		if occupied[m] {
			continue
		}
		out = append(out, QuantizedNote{Beat: float64(m * 4), Strength: 0.5, Synthetic: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Beat < out[j].Beat })
	return out
}

// Rating computes the difficulty's 1-10 rating from notes-per-second
// (spec.md §4.5.5 "Rating").
func Rating(notesPerSecond float64) int {
	v := 2.5*math.Log2(math.Max(1, 1.5*notesPerSecond)) + 1
	r := int(math.Round(v))
	if r < 1 {
		return 1
	}
	if r > 10 {
		return 10
	}
	return r
}
