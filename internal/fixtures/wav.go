// Package fixtures generates and decodes small deterministic WAV files used
// by tests and by the chart-generator CLI's audio decode path. Adapted from
// the teacher's DJ-fixture WAV writer (internal/fixtures/generator.go in
// the source repo): same RIFF/PCM framing, repurposed to emit rhythm-game
// test audio (click tracks, bass-pulse tracks) instead of DJ harmonic sets.
package fixtures

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// WriteWAV writes mono 16-bit PCM WAV samples (each in [-1, 1]) to path.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeWAV(f, samples, sampleRate)
}

// EncodeWAV writes mono 16-bit PCM WAV framing to w.
func EncodeWAV(w io.Writer, samples []float64, sampleRate int) error {
	buf := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf[i] = int16(s * 32767)
	}

	byteRate := sampleRate * 2
	blockAlign := int16(2)
	bitsPerSample := int16(16)
	dataSize := len(buf) * 2
	riffSize := 36 + dataSize

	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(riffSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	for _, v := range []any{
		uint32(16), uint16(1), uint16(1), uint32(sampleRate), uint32(byteRate), blockAlign, bitsPerSample,
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dataSize)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

// ReadWAV decodes a mono 16-bit PCM WAV file into float64 samples in
// [-1, 1] plus its sample rate. This is a minimal decoder: it accepts
// exactly the PCM/mono/16-bit framing WriteWAV produces and the chart
// generator CLI requires; it does not handle arbitrary WAV variants
// (float PCM, extended fmt chunks, multi-channel) since nothing in this
// module produces those.
func ReadWAV(r io.Reader) (samples []float64, sampleRate int, err error) {
	var riffHeader [12]byte
	if _, err := io.ReadFull(r, riffHeader[:]); err != nil {
		return nil, 0, fmt.Errorf("fixtures: read RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("fixtures: not a RIFF/WAVE file")
	}

	var numChannels, bitsPerSample uint16
	var foundFmt, foundData bool

	for !foundData {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			return nil, 0, fmt.Errorf("fixtures: read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("fixtures: read fmt chunk: %w", err)
			}
			numChannels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			foundFmt = true
		case "data":
			if !foundFmt {
				return nil, 0, fmt.Errorf("fixtures: data chunk before fmt chunk")
			}
			if numChannels != 1 || bitsPerSample != 16 {
				return nil, 0, fmt.Errorf("fixtures: unsupported WAV format (channels=%d bits=%d), need mono 16-bit", numChannels, bitsPerSample)
			}
			n := int(chunkSize) / 2
			samples = make([]float64, n)
			for i := 0; i < n; i++ {
				var v int16
				if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
					return nil, 0, fmt.Errorf("fixtures: read sample %d: %w", i, err)
				}
				samples[i] = float64(v) / 32768.0
			}
			foundData = true
		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, 0, fmt.Errorf("fixtures: skip chunk %q: %w", chunkID, err)
			}
		}
	}

	return samples, sampleRate, nil
}

// expDecayClick renders one 10ms exponentially-decaying click into data at
// the given sample offset.
func expDecayClick(data []float64, offset, sampleRate int, amplitude float64) {
	clickLen := int(0.01 * float64(sampleRate))
	for j := 0; j < clickLen && offset+j < len(data); j++ {
		data[offset+j] += amplitude * math.Exp(-4*float64(j)/float64(clickLen))
	}
}
