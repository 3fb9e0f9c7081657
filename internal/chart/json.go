package chart

import (
	"encoding/json"

	"github.com/cartomix/rhythmengine/internal/spline"
)

// jsonNoteType mirrors NoteType for JSON interchange (spec.md §6: "JSON
// export is also supported for interchange; the internal structure is
// identical, only the serialization is JSON").
type jsonNoteType struct {
	Kind      NoteKindTag       `json:"kind"`
	Direction string            `json:"direction,omitempty"`
	EndBeat   *float64          `json:"end_beat,omitempty"`
	Raw       map[string]string `json:"raw,omitempty"`
}

type jsonNote struct {
	Beat float64      `json:"beat"`
	Type jsonNoteType `json:"note_type"`
}

type jsonSegment struct {
	Kind      PathSegmentKind   `json:"kind"`
	Points    []jsonPoint       `json:"points,omitempty"`
	StartBeat float64           `json:"start_beat"`
	EndBeat   float64           `json:"end_beat"`
	Raw       map[string]string `json:"raw,omitempty"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonEvent struct {
	Beat   float64           `json:"beat"`
	Kind   EventKind         `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

type jsonTimingPoint struct {
	Beat float64 `json:"beat"`
	BPM  float64 `json:"bpm"`
}

type jsonChart struct {
	Difficulty     Difficulty        `json:"difficulty"`
	Rating         int               `json:"rating"`
	TimingPoints   []jsonTimingPoint `json:"timing_points"`
	PathSegments   []jsonSegment     `json:"path_segments"`
	Notes          []jsonNote        `json:"notes"`
	Events         []jsonEvent       `json:"events"`
	TravelBeats    float64           `json:"travel_beats"`
	LookAheadBeats float64           `json:"look_ahead_beats"`
	TimeSignature  [2]int            `json:"time_signature"`
}

// MarshalJSON renders the chart to its JSON interchange representation.
func MarshalJSON(c *Chart) ([]byte, error) {
	jc := jsonChart{
		Difficulty:     c.Difficulty,
		Rating:         c.Rating,
		TravelBeats:    c.TravelBeats,
		LookAheadBeats: c.LookAheadBeats,
		TimeSignature:  [2]int{c.TimeSignature.Beats, c.TimeSignature.Unit},
	}
	for _, tp := range c.TimingPoints {
		jc.TimingPoints = append(jc.TimingPoints, jsonTimingPoint{Beat: tp.Beat, BPM: tp.BPM})
	}
	for _, seg := range c.PathSegments {
		js := jsonSegment{Kind: seg.Kind, StartBeat: seg.StartBeat, EndBeat: seg.EndBeat, Raw: seg.Raw}
		for _, p := range seg.Points {
			js.Points = append(js.Points, jsonPoint{X: p.X, Y: p.Y})
		}
		jc.PathSegments = append(jc.PathSegments, js)
	}
	for _, n := range c.Notes {
		jn := jsonNote{Beat: n.Beat, Type: jsonNoteType{Kind: n.Type.Kind, Raw: n.Type.Raw}}
		if n.Type.Direction != DirNone {
			jn.Type.Direction = n.Type.Direction.String()
		}
		if n.Type.Kind == KindHold || n.Type.Kind == KindSlideHold || n.Type.Kind == KindCriticalHold {
			eb := n.Type.EndBeat
			jn.Type.EndBeat = &eb
		}
		jc.Notes = append(jc.Notes, jn)
	}
	for _, e := range c.Events {
		jc.Events = append(jc.Events, jsonEvent{Beat: e.Beat, Kind: e.Kind, Params: e.Params})
	}
	return json.MarshalIndent(jc, "", "  ")
}

// UnmarshalJSON parses the JSON interchange representation back into a Chart.
func UnmarshalJSON(data []byte) (*Chart, error) {
	var jc jsonChart
	if err := json.Unmarshal(data, &jc); err != nil {
		return nil, err
	}

	c := &Chart{
		Difficulty:     jc.Difficulty,
		Rating:         jc.Rating,
		TravelBeats:    jc.TravelBeats,
		LookAheadBeats: jc.LookAheadBeats,
		TimeSignature:  TimeSignature{Beats: jc.TimeSignature[0], Unit: jc.TimeSignature[1]},
	}
	if c.TravelBeats == 0 {
		c.TravelBeats = DefaultTravelBeats
	}
	if c.LookAheadBeats == 0 {
		c.LookAheadBeats = DefaultLookAheadBeats
	}
	if c.TimeSignature == (TimeSignature{}) {
		c.TimeSignature = DefaultTimeSignature
	}

	for _, tp := range jc.TimingPoints {
		c.TimingPoints = append(c.TimingPoints, TimingPoint{Beat: tp.Beat, BPM: tp.BPM})
	}
	for _, js := range jc.PathSegments {
		seg := PathSegment{Kind: js.Kind, StartBeat: js.StartBeat, EndBeat: js.EndBeat, Raw: js.Raw}
		for _, p := range js.Points {
			seg.Points = append(seg.Points, spline.Vec2{X: p.X, Y: p.Y})
		}
		c.PathSegments = append(c.PathSegments, seg)
	}
	for _, jn := range jc.Notes {
		nt := NoteType{Kind: jn.Type.Kind, Raw: jn.Type.Raw}
		if jn.Type.Direction != "" {
			nt.Direction = ParseDirection(jn.Type.Direction)
		}
		if jn.Type.EndBeat != nil {
			nt.EndBeat = *jn.Type.EndBeat
		}
		c.Notes = append(c.Notes, ChartNote{Beat: jn.Beat, Type: nt})
	}
	for _, je := range jc.Events {
		c.Events = append(c.Events, Event{Beat: je.Beat, Kind: je.Kind, Params: je.Params})
	}

	return c, nil
}
