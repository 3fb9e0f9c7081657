// Package chart defines the declarative chart data model (spec.md §3,
// "Static/chart entities") and its text/JSON serialization (spec.md §6).
package chart

import (
	"math"

	"github.com/cartomix/rhythmengine/internal/spline"
)

// Direction is one of the 8 cardinal/diagonal slide directions.
type Direction int

const (
	DirNone Direction = iota
	DirN
	DirNE
	DirE
	DirSE
	DirS
	DirSW
	DirW
	DirNW
)

var directionNames = map[Direction]string{
	DirNone: "None",
	DirN:    "N",
	DirNE:   "NE",
	DirE:    "E",
	DirSE:   "SE",
	DirS:    "S",
	DirSW:   "SW",
	DirW:    "W",
	DirNW:   "NW",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "None"
}

// ParseDirection maps a variant name back to a Direction, defaulting to
// DirNone for unrecognized input.
func ParseDirection(name string) Direction {
	for d, n := range directionNames {
		if n == name {
			return d
		}
	}
	return DirNone
}

// ToVec2 returns the unit vector for a direction; DirNone returns (0,0).
func (d Direction) ToVec2() spline.Vec2 {
	switch d {
	case DirN:
		return spline.Vec2{X: 0, Y: 1}
	case DirNE:
		return spline.Vec2{X: 0.7071067811865476, Y: 0.7071067811865476}
	case DirE:
		return spline.Vec2{X: 1, Y: 0}
	case DirSE:
		return spline.Vec2{X: 0.7071067811865476, Y: -0.7071067811865476}
	case DirS:
		return spline.Vec2{X: 0, Y: -1}
	case DirSW:
		return spline.Vec2{X: -0.7071067811865476, Y: -0.7071067811865476}
	case DirW:
		return spline.Vec2{X: -1, Y: 0}
	case DirNW:
		return spline.Vec2{X: -0.7071067811865476, Y: 0.7071067811865476}
	default:
		return spline.Vec2{X: 0, Y: 0}
	}
}

// FromVec2 classifies an input vector into the nearest of the 8 directions,
// or DirNone for the zero vector. Round-trips with ToVec2 for every non-zero
// direction (spec.md §8 invariant).
func FromVec2(v spline.Vec2) Direction {
	if v.X == 0 && v.Y == 0 {
		return DirNone
	}
	best := DirNone
	bestDot := -2.0
	for d := DirN; d <= DirNW; d++ {
		u := d.ToVec2()
		dot := u.X*v.X + u.Y*v.Y
		// Normalize v's contribution out of the comparison by only using dot
		// product direction (magnitude of v doesn't matter for classification).
		mag := v.X*v.X + v.Y*v.Y
		if mag > 0 {
			dot = dot / math.Sqrt(mag)
		}
		if dot > bestDot {
			bestDot = dot
			best = d
		}
	}
	return best
}

// HoldState is the lifecycle state of a live Hold note instance.
type HoldState int

const (
	HoldPending HoldState = iota
	HoldHeld
	HoldCompleted
	HoldDropped
)

func (s HoldState) String() string {
	switch s {
	case HoldPending:
		return "Pending"
	case HoldHeld:
		return "Held"
	case HoldCompleted:
		return "Completed"
	case HoldDropped:
		return "Dropped"
	default:
		return "Pending"
	}
}

// NoteKindTag discriminates the ChartNote tagged union.
type NoteKindTag string

const (
	KindTap         NoteKindTag = "Tap"
	KindSlide       NoteKindTag = "Slide"
	KindHold        NoteKindTag = "Hold"
	KindRest        NoteKindTag = "Rest"
	KindCritical    NoteKindTag = "Critical"
	// Reserved, not-yet-implemented variants. The chart model must still
	// round-trip these: deserialize, skip at runtime, reserialize unchanged
	// (spec.md §9 "Tagged unions for notes").
	KindScratch     NoteKindTag = "Scratch"
	KindBeat        NoteKindTag = "Beat"
	KindDualSlide   NoteKindTag = "DualSlide"
	KindAdLib       NoteKindTag = "AdLib"
	KindSlideHold   NoteKindTag = "SlideHold"
	KindCriticalHold NoteKindTag = "CriticalHold"
)

// implementedKinds lists the note kinds the runtime acts on; judgment.NewQueue
// skips the other kinds, while the chart keeps their data.
var implementedKinds = map[NoteKindTag]bool{
	KindTap: true, KindSlide: true, KindHold: true, KindRest: true, KindCritical: true,
}

// IsImplemented reports whether the runtime acts on this note kind, or
// merely preserves it across load/save.
func (k NoteKindTag) IsImplemented() bool { return implementedKinds[k] }

// NoteType is the declarative, tagged-union note description stored in a
// chart file (spec.md §3 ChartNote.note_type). EndBeat and Direction are only
// meaningful for Hold/SlideHold/CriticalHold and Slide/DualSlide respectively;
// Raw preserves any additional fields for reserved variants so they survive a
// load/save round trip unchanged.
type NoteType struct {
	Kind      NoteKindTag
	Direction Direction         // Slide, DualSlide
	EndBeat   float64           // Hold, SlideHold, CriticalHold
	Raw       map[string]string // reserved-variant passthrough fields
}

// ChartNote is one declarative note entry in a chart file. Invariant: a
// Chart's Notes slice is sorted by Beat on load.
type ChartNote struct {
	Beat float64
	Type NoteType
}

// EventKind tags the declarative camera/visual Event union, forwarded to the
// renderer unchanged (spec.md §3).
type EventKind string

// Event is a beat-anchored camera/visual cue. Params carries kind-specific
// fields opaquely, since the engine core never interprets them.
type Event struct {
	Beat   float64
	Kind   EventKind
	Params map[string]string
}

// TimingPoint is a tempo change anchored to a beat position (spec.md §3).
type TimingPoint struct {
	Beat float64
	BPM  float64
}

// PathSegmentKind tags the PathSegment union. The engine only evaluates
// CatmullRom; the others are reserved for future editor support and are
// preserved but not evaluated.
type PathSegmentKind string

const (
	SegmentCatmullRom PathSegmentKind = "CatmullRom"
	SegmentBezier     PathSegmentKind = "Bezier"
	SegmentArc        PathSegmentKind = "Arc"
	SegmentLinear     PathSegmentKind = "Linear"
)

// PathSegment is one piece of the chart's visual path.
type PathSegment struct {
	Kind      PathSegmentKind
	Points    []spline.Vec2 // CatmullRom control points
	StartBeat float64
	EndBeat   float64
	Raw       map[string]string // reserved-variant passthrough (Bezier/Arc/Linear params)
}

// Difficulty is one of the four supported difficulty tiers.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyNormal  Difficulty = "normal"
	DifficultyHard    Difficulty = "hard"
	DifficultyExpert  Difficulty = "expert"
)

// GridResolution returns the quantization grid resolution for this
// difficulty (spec.md §4.5.4).
func (d Difficulty) GridResolution() float64 {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyNormal:
		return 2
	case DifficultyHard:
		return 4
	case DifficultyExpert:
		return 8
	default:
		return 2
	}
}

// ImportancePercentile returns the retention percentile threshold for the
// difficulty filter (spec.md §4.5.5).
func (d Difficulty) ImportancePercentile() float64 {
	switch d {
	case DifficultyEasy:
		return 0.80
	case DifficultyNormal:
		return 0.50
	case DifficultyHard:
		return 0.20
	case DifficultyExpert:
		return 0.00
	default:
		return 0.50
	}
}

// MinGapBeats returns the minimum inter-note gap in beats for this
// difficulty (spec.md §4.5.5 post-filter rule 1).
func (d Difficulty) MinGapBeats() float64 {
	switch d {
	case DifficultyEasy:
		return 1.0
	case DifficultyNormal:
		return 0.5
	case DifficultyHard:
		return 0.25
	case DifficultyExpert:
		return 0.125
	default:
		return 0.5
	}
}

// TimeSignature is a (beats-per-measure, beat-unit) pair; defaults to (4,4).
type TimeSignature struct {
	Beats int
	Unit  int
}

// DefaultTimeSignature is the chart-file default when omitted.
var DefaultTimeSignature = TimeSignature{Beats: 4, Unit: 4}

const (
	// DefaultTravelBeats / DefaultLookAheadBeats are the chart-file defaults
	// when a chart omits these fields (spec.md §6).
	DefaultTravelBeats    = 3.0
	DefaultLookAheadBeats = 3.0
)

// Chart is the full declarative description of one difficulty of a song
// (spec.md §3). Once loaded for playback the chart is treated as immutable.
type Chart struct {
	Difficulty      Difficulty
	Rating          int
	TimingPoints    []TimingPoint
	PathSegments    []PathSegment
	Notes           []ChartNote
	Events          []Event
	TravelBeats     float64
	LookAheadBeats  float64
	TimeSignature   TimeSignature
}

// Metadata is the per-song-directory metadata file (spec.md §6).
type Metadata struct {
	Title               string
	Artist              string
	Charter             string
	AudioFile           string
	PreviewStartMs      int
	PreviewDurationMs   int
	Source              string
	Difficulties        []Difficulty
}

// DefaultPreviewDurationMs is the metadata-file default when omitted.
const DefaultPreviewDurationMs = 15000
