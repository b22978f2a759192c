package render

import (
	"encoding/binary"
	"strings"
)

var waveformLevels = []rune("▁▂▃▄▅▆▇█")

// Waveform renders 16-bit PCM samples as a fixed-width amplitude bar
// strip. Used by the audio renderer for WAV voice clips; other audio
// containers fall back to a plain progress bar.
func Waveform(pcm []byte, width int) string {
	if width <= 0 || len(pcm) < 2 {
		return strings.Repeat(string(waveformLevels[0]), max(width, 0))
	}

	sampleCount := len(pcm) / 2
	perColumn := sampleCount / width
	if perColumn == 0 {
		perColumn = 1
	}

	var b strings.Builder
	for col := 0; col < width; col++ {
		start := col * perColumn
		if start >= sampleCount {
			b.WriteRune(waveformLevels[0])
			continue
		}
		end := start + perColumn
		if end > sampleCount {
			end = sampleCount
		}

		// Peak amplitude within the column's window
		var peak int
		for i := start; i < end; i++ {
			s := int(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}

		level := peak * (len(waveformLevels) - 1) / 32767
		b.WriteRune(waveformLevels[level])
	}
	return b.String()
}

// PCMFromWAV extracts the raw sample data from a WAV container so the
// waveform can be drawn for fetched voice clips. Returns nil when the
// payload is not a plain RIFF/WAVE file.
func PCMFromWAV(wav []byte) []byte {
	if len(wav) < 44 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil
	}

	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if id == "data" {
			if size < 0 || body+size > len(wav) {
				size = len(wav) - body
			}
			return wav[body : body+size]
		}
		off = body + size
	}
	return nil
}

// ProgressBar renders playback or upload progress as a fixed-width bar.
// fraction is clamped to [0, 1].
func ProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(fraction * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
