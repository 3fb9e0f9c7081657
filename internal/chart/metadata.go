package chart

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MarshalMetadata serializes a song directory's metadata file in the same
// key: value textual style as the chart header (spec.md §6).
func MarshalMetadata(m *Metadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "title: %s\n", m.Title)
	fmt.Fprintf(&b, "artist: %s\n", m.Artist)
	fmt.Fprintf(&b, "charter: %s\n", m.Charter)
	fmt.Fprintf(&b, "audio_file: %s\n", m.AudioFile)
	fmt.Fprintf(&b, "preview_start_ms: %d\n", m.PreviewStartMs)
	fmt.Fprintf(&b, "preview_duration_ms: %d\n", m.PreviewDurationMs)
	if m.Source != "" {
		fmt.Fprintf(&b, "source: %s\n", m.Source)
	}
	diffs := make([]string, len(m.Difficulties))
	for i, d := range m.Difficulties {
		diffs[i] = string(d)
	}
	fmt.Fprintf(&b, "difficulties: %s\n", strings.Join(diffs, ","))
	return b.String()
}

// UnmarshalMetadata parses the textual metadata file format.
func UnmarshalMetadata(r io.Reader) (*Metadata, error) {
	m := &Metadata{PreviewDurationMs: DefaultPreviewDurationMs}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("metadata: line %d: malformed line %q", lineNo, line)
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch k {
		case "title":
			m.Title = v
		case "artist":
			m.Artist = v
		case "charter":
			m.Charter = v
		case "audio_file":
			m.AudioFile = v
		case "source":
			m.Source = v
		case "preview_start_ms":
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("metadata: line %d: %w", lineNo, err)
			}
			m.PreviewStartMs = n
		case "preview_duration_ms":
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("metadata: line %d: %w", lineNo, err)
			}
			m.PreviewDurationMs = n
		case "difficulties":
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					m.Difficulties = append(m.Difficulties, Difficulty(part))
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

type jsonMetadata struct {
	Title             string   `json:"title"`
	Artist            string   `json:"artist"`
	Charter           string   `json:"charter"`
	AudioFile         string   `json:"audio_file"`
	PreviewStartMs    int      `json:"preview_start_ms"`
	PreviewDurationMs int      `json:"preview_duration_ms"`
	Source            string   `json:"source,omitempty"`
	Difficulties      []string `json:"difficulties"`
}

// MarshalMetadataJSON renders the metadata file's JSON interchange form.
func MarshalMetadataJSON(m *Metadata) ([]byte, error) {
	jm := jsonMetadata{
		Title:             m.Title,
		Artist:            m.Artist,
		Charter:           m.Charter,
		AudioFile:         m.AudioFile,
		PreviewStartMs:    m.PreviewStartMs,
		PreviewDurationMs: m.PreviewDurationMs,
		Source:            m.Source,
	}
	for _, d := range m.Difficulties {
		jm.Difficulties = append(jm.Difficulties, string(d))
	}
	return json.MarshalIndent(jm, "", "  ")
}

// UnmarshalMetadataJSON parses the metadata file's JSON interchange form.
func UnmarshalMetadataJSON(data []byte) (*Metadata, error) {
	var jm jsonMetadata
	if err := json.Unmarshal(data, &jm); err != nil {
		return nil, err
	}
	m := &Metadata{
		Title:             jm.Title,
		Artist:            jm.Artist,
		Charter:           jm.Charter,
		AudioFile:         jm.AudioFile,
		PreviewStartMs:    jm.PreviewStartMs,
		PreviewDurationMs: jm.PreviewDurationMs,
		Source:            jm.Source,
	}
	if m.PreviewDurationMs == 0 {
		m.PreviewDurationMs = DefaultPreviewDurationMs
	}
	for _, d := range jm.Difficulties {
		m.Difficulties = append(m.Difficulties, Difficulty(d))
	}
	return m, nil
}
