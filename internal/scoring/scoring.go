// Package scoring implements the play-score, chain, and grade-rank formulas
// of spec.md §4.4. Scoring is a deterministic pure function of the sequence
// of judgments plus total_notes: recomputing from counts, rather than
// trusting a running sum, avoids floating drift across long songs.
package scoring

import "math"

// Chain tiers and their per-non-miss chain increment.
type Tier int

const (
	Normal Tier = iota
	Fever
	Trance
)

func (t Tier) String() string {
	switch t {
	case Fever:
		return "Fever"
	case Trance:
		return "Trance"
	default:
		return "Normal"
	}
}

// tierFor returns the tier in effect for a chain value, evaluated before it
// advances (spec.md §4.4 "Chain tiers").
func tierFor(chain int) Tier {
	switch {
	case chain >= 100:
		return Trance
	case chain >= 10:
		return Fever
	default:
		return Normal
	}
}

func increment(tier Tier) int {
	switch tier {
	case Fever:
		return 2
	case Trance:
		return 4
	default:
		return 1
	}
}

const (
	maxScore  = 1_000_000
	clearBonusValue = 50_000
	maxChainBonus   = 100_000
)

// Counts is the fully-reduced outcome of a play: how many judgments landed
// in each grade, the best chain reached, and total note count. Scoring only
// needs this tuple, never the raw judgment sequence.
type Counts struct {
	Great, Cool, Good, MissCount int
	MaxChain                     int
	TotalNotes                   int
}

// Chain tracks the running chain counter and max chain across a play,
// advancing per spec.md §4.4. Call Advance once per judgment in emitted
// order.
type Chain struct {
	current int
	max     int
}

// Advance applies one judgment's effect on the chain: a Miss resets to
// zero, anything else advances by the tier multiplier in effect before the
// advance.
func (c *Chain) Advance(missed bool) {
	if missed {
		c.current = 0
		return
	}
	tier := tierFor(c.current)
	c.current += increment(tier)
	if c.current > c.max {
		c.max = c.current
	}
}

// Tier reports the tier in effect for the current chain value.
func (c *Chain) Tier() Tier { return tierFor(c.current) }

// Current returns the running chain count.
func (c *Chain) Current() int { return c.current }

// Max returns the highest chain reached so far.
func (c *Chain) Max() int { return c.max }

// Result is the fully composed score breakdown for a completed play.
type Result struct {
	PlayScore  int
	ChainBonus int
	ClearBonus int
	Total      int
	Grade      string
}

// Score computes the final score breakdown from judgment counts, per
// spec.md §4.4. clearBonusAwarded is false mid-song (no results screen yet)
// and true once play reaches the results screen.
func Score(c Counts, clearBonusAwarded bool) Result {
	if c.TotalNotes <= 0 {
		if clearBonusAwarded {
			return Result{ClearBonus: clearBonusValue, Total: clearBonusValue, Grade: Rank(clearBonusValue)}
		}
		return Result{Grade: Rank(0)}
	}

	base := 850_000.0 / float64(c.TotalNotes)
	playScore := round(float64(c.Great)*base*1.0) +
		round(float64(c.Cool)*base*0.8) +
		round(float64(c.Good)*base*0.5)

	chainBonus := round(100_000 * float64(c.MaxChain) / float64(c.TotalNotes))
	if chainBonus > maxChainBonus {
		chainBonus = maxChainBonus
	}

	clearBonus := 0
	if clearBonusAwarded {
		clearBonus = clearBonusValue
	}

	total := playScore + chainBonus + clearBonus
	return Result{
		PlayScore:  playScore,
		ChainBonus: chainBonus,
		ClearBonus: clearBonus,
		Total:      total,
		Grade:      Rank(total),
	}
}

func round(f float64) int {
	return int(math.Round(f))
}

// Rank maps a total score to its letter grade (spec.md §4.4 "Grade rank").
func Rank(total int) string {
	switch {
	case total >= 1_000_000:
		return "S++"
	case total >= 980_000:
		return "S+"
	case total >= 950_000:
		return "S"
	case total >= 900_000:
		return "A"
	case total >= 800_000:
		return "B"
	case total >= 700_000:
		return "C"
	default:
		return "D"
	}
}
