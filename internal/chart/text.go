package chart

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cartomix/rhythmengine/internal/spline"
)

// Marshal serializes a Chart to the textual tagged-union chart file format
// (spec.md §6). Enum variant names are preserved exactly; defaulted fields
// are always written explicitly so round-tripping never depends on a
// reader's default being in sync with the writer's.
func Marshal(c *Chart) string {
	var b strings.Builder

	fmt.Fprintf(&b, "difficulty: %s\n", c.Difficulty)
	fmt.Fprintf(&b, "rating: %d\n", c.Rating)
	fmt.Fprintf(&b, "travel_beats: %s\n", formatFloat(c.TravelBeats))
	fmt.Fprintf(&b, "look_ahead_beats: %s\n", formatFloat(c.LookAheadBeats))
	fmt.Fprintf(&b, "time_signature: %d/%d\n", c.TimeSignature.Beats, c.TimeSignature.Unit)

	b.WriteString("\n[timing]\n")
	for _, tp := range c.TimingPoints {
		fmt.Fprintf(&b, "%s %s\n", formatFloat(tp.Beat), formatFloat(tp.BPM))
	}

	b.WriteString("\n[path]\n")
	for _, seg := range c.PathSegments {
		switch seg.Kind {
		case SegmentCatmullRom:
			fmt.Fprintf(&b, "CatmullRom start=%s end=%s\n", formatFloat(seg.StartBeat), formatFloat(seg.EndBeat))
			for _, p := range seg.Points {
				fmt.Fprintf(&b, "  %s %s\n", formatFloat(p.X), formatFloat(p.Y))
			}
		default:
			fmt.Fprintf(&b, "%s start=%s end=%s%s\n", seg.Kind, formatFloat(seg.StartBeat), formatFloat(seg.EndBeat), formatRaw(seg.Raw))
		}
	}

	b.WriteString("\n[notes]\n")
	for _, n := range c.Notes {
		fmt.Fprintf(&b, "%s %s%s\n", formatFloat(n.Beat), n.Type.Kind, formatNoteFields(n.Type))
	}

	b.WriteString("\n[events]\n")
	for _, e := range c.Events {
		fmt.Fprintf(&b, "%s %s%s\n", formatFloat(e.Beat), e.Kind, formatRaw(e.Params))
	}

	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatNoteFields(t NoteType) string {
	var parts []string
	if t.Kind == KindSlide || t.Kind == KindDualSlide {
		parts = append(parts, "dir="+t.Direction.String())
	}
	if t.Kind == KindHold || t.Kind == KindSlideHold || t.Kind == KindCriticalHold {
		parts = append(parts, "end="+formatFloat(t.EndBeat))
	}
	for _, k := range sortedRaw(t.Raw) {
		parts = append(parts, k+"="+t.Raw[k])
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func formatRaw(raw map[string]string) string {
	if len(raw) == 0 {
		return ""
	}
	var parts []string
	for _, k := range sortedRaw(raw) {
		parts = append(parts, k+"="+raw[k])
	}
	return " " + strings.Join(parts, " ")
}

// sortedRaw returns raw's keys in sorted order so Marshal output is
// stable across runs (important for the chart-generator determinism
// invariant, spec.md §8 scenario 6).
func sortedRaw(raw map[string]string) []string {
	if raw == nil {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unmarshal parses the textual chart file format. Unknown note/event/segment
// variants are preserved in Raw rather than rejected, so editor output
// round-trips across versions (spec.md §9).
func Unmarshal(r io.Reader) (*Chart, error) {
	c := &Chart{
		TravelBeats:    DefaultTravelBeats,
		LookAheadBeats: DefaultLookAheadBeats,
		TimeSignature:  DefaultTimeSignature,
	}

	section := ""
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
			continue
		}

		if section == "" {
			if err := parseHeaderLine(c, trimmed); err != nil {
				return nil, fmt.Errorf("chart: line %d: %w", lineNo, err)
			}
			continue
		}

		switch section {
		case "timing":
			tp, err := parseTimingLine(trimmed)
			if err != nil {
				return nil, fmt.Errorf("chart: line %d: %w", lineNo, err)
			}
			c.TimingPoints = append(c.TimingPoints, tp)
		case "path":
			if err := parsePathLine(c, line, trimmed); err != nil {
				return nil, fmt.Errorf("chart: line %d: %w", lineNo, err)
			}
		case "notes":
			note, err := parseNoteLine(trimmed)
			if err != nil {
				return nil, fmt.Errorf("chart: line %d: %w", lineNo, err)
			}
			c.Notes = append(c.Notes, note)
		case "events":
			ev, err := parseEventLine(trimmed)
			if err != nil {
				return nil, fmt.Errorf("chart: line %d: %w", lineNo, err)
			}
			c.Events = append(c.Events, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Invariant: notes sorted by beat on load.
	sort.SliceStable(c.Notes, func(i, j int) bool { return c.Notes[i].Beat < c.Notes[j].Beat })

	return c, nil
}

func parseHeaderLine(c *Chart, line string) error {
	k, v, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("malformed header line %q", line)
	}
	k = strings.TrimSpace(k)
	v = strings.TrimSpace(v)
	switch k {
	case "difficulty":
		c.Difficulty = Difficulty(v)
	case "rating":
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Rating = n
	case "travel_beats":
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.TravelBeats = f
	case "look_ahead_beats":
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.LookAheadBeats = f
	case "time_signature":
		num, den, ok := strings.Cut(v, "/")
		if !ok {
			return fmt.Errorf("malformed time_signature %q", v)
		}
		beats, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return err
		}
		unit, err := strconv.Atoi(strings.TrimSpace(den))
		if err != nil {
			return err
		}
		c.TimeSignature = TimeSignature{Beats: beats, Unit: unit}
	}
	return nil
}

func parseTimingLine(line string) (TimingPoint, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return TimingPoint{}, fmt.Errorf("malformed timing line %q", line)
	}
	beat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return TimingPoint{}, err
	}
	bpm, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return TimingPoint{}, err
	}
	return TimingPoint{Beat: beat, BPM: bpm}, nil
}

func parsePathLine(c *Chart, rawLine, trimmed string) error {
	indented := strings.HasPrefix(rawLine, " ") || strings.HasPrefix(rawLine, "\t")
	if indented {
		if len(c.PathSegments) == 0 {
			return fmt.Errorf("control point before segment header")
		}
		fields := strings.Fields(trimmed)
		if len(fields) != 2 {
			return fmt.Errorf("malformed control point %q", trimmed)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return err
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return err
		}
		seg := &c.PathSegments[len(c.PathSegments)-1]
		seg.Points = append(seg.Points, spline.Vec2{X: x, Y: y})
		return nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 1 {
		return fmt.Errorf("malformed path segment header %q", trimmed)
	}
	kind := PathSegmentKind(fields[0])
	attrs := parseAttrs(fields[1:])
	seg := PathSegment{Kind: kind, Raw: map[string]string{}}
	for k, v := range attrs {
		switch k {
		case "start":
			f, err := strconv.ParseFloat(v, 64)
			if err == nil {
				seg.StartBeat = f
			}
		case "end":
			f, err := strconv.ParseFloat(v, 64)
			if err == nil {
				seg.EndBeat = f
			}
		default:
			seg.Raw[k] = v
		}
	}
	if len(seg.Raw) == 0 {
		seg.Raw = nil
	}
	c.PathSegments = append(c.PathSegments, seg)
	return nil
}

func parseNoteLine(line string) (ChartNote, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ChartNote{}, fmt.Errorf("malformed note line %q", line)
	}
	beat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return ChartNote{}, err
	}
	kind := NoteKindTag(fields[1])
	attrs := parseAttrs(fields[2:])

	nt := NoteType{Kind: kind, Raw: map[string]string{}}
	for k, v := range attrs {
		switch k {
		case "dir":
			nt.Direction = ParseDirection(v)
		case "end":
			f, err := strconv.ParseFloat(v, 64)
			if err == nil {
				nt.EndBeat = f
			}
		default:
			nt.Raw[k] = v
		}
	}
	if len(nt.Raw) == 0 {
		nt.Raw = nil
	}
	return ChartNote{Beat: beat, Type: nt}, nil
}

func parseEventLine(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("malformed event line %q", line)
	}
	beat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Event{}, err
	}
	attrs := parseAttrs(fields[2:])
	if len(attrs) == 0 {
		attrs = nil
	}
	return Event{Beat: beat, Kind: EventKind(fields[1]), Params: attrs}, nil
}

func parseAttrs(fields []string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		attrs[k] = v
	}
	return attrs
}
