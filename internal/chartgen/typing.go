package chartgen

import (
	"github.com/cartomix/rhythmengine/internal/chart"
)

// typingSeed is fixed by spec.md §9: "the offline generator seeds
// xorshift64 at 42" for note-type assignment.
const typingSeed = 42

// rapidPairBeats marks onsets at most a 16th note apart as a rapid
// pair, which always stays Tap regardless of strength (spec.md §4.5.6).
const rapidPairBeats = 1.0 / 4 // a 16th note at the chart's quarter-note beat unit

const (
	strongThreshold = 0.7
	midLow          = 0.3
	midHigh         = 0.7
	holdDurationBeats = 2.0
)

// slideFraction is the difficulty-scaled fraction of mid-strength notes
// that become Slides (spec.md §4.5.6: "a difficulty-scaled fraction of
// mid-strength notes become Slides"). Higher difficulties read busier, so
// the fraction scales up with difficulty tier.
func slideFraction(d chart.Difficulty) float64 {
	switch d {
	case chart.DifficultyEasy:
		return 0.05
	case chart.DifficultyNormal:
		return 0.15
	case chart.DifficultyHard:
		return 0.25
	case chart.DifficultyExpert:
		return 0.35
	default:
		return 0.15
	}
}

var slideDirections = [...]chart.Direction{
	chart.DirN, chart.DirNE, chart.DirE, chart.DirSE,
	chart.DirS, chart.DirSW, chart.DirW, chart.DirNW,
}

// AssignTypes walks the filtered, quantized notes in beat order and assigns
// a concrete note kind to each, per the policy in spec.md §4.5.6. The PRNG
// is seeded fresh each call so the same filtered note sequence always
// yields the same typed chart.
func AssignTypes(notes []QuantizedNote, difficulty chart.Difficulty) []chart.ChartNote {
	rng := newXorshift64(typingSeed)
	out := make([]chart.ChartNote, 0, len(notes))
	frac := slideFraction(difficulty)

	for i, n := range notes {
		kind := chart.KindTap
		var dir chart.Direction
		var endBeat float64

		rapid := false
		if i+1 < len(notes) {
			if notes[i+1].Beat-n.Beat <= rapidPairBeats {
				rapid = true
			}
		}

		downbeat := BeatWeight(n.Beat) >= 1.0

		switch {
		case rapid:
			kind = chart.KindTap
		case downbeat && n.Strength >= strongThreshold:
			if rng.float64() < 0.5 {
				kind = chart.KindCritical
			} else {
				kind = chart.KindHold
				endBeat = n.Beat + holdDurationBeats
				if i+1 < len(notes) && notes[i+1].Beat < endBeat {
					endBeat = notes[i+1].Beat
				}
			}
		case n.Strength >= midLow && n.Strength < midHigh:
			if rng.float64() < frac {
				kind = chart.KindSlide
				dir = slideDirections[rng.intn(len(slideDirections))]
			} else {
				kind = chart.KindTap
			}
		default:
			kind = chart.KindTap
		}

		nt := chart.NoteType{Kind: kind, Direction: dir, EndBeat: endBeat}
		if n.Synthetic {
			nt.Raw = map[string]string{"synthetic": "true"}
		}
		out = append(out, chart.ChartNote{Beat: n.Beat, Type: nt})
	}
	return out
}
