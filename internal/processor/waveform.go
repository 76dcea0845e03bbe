// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package processor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// WaveformGenerator downsamples an audio file to a fixed number of peak
// samples via ffmpeg's astats/silencedetect-free "volumedetect"-style PCM
// dump, grounded on the same exec.CommandContext + stderr-capture idiom
// used for encoding elsewhere in the pack.
type WaveformGenerator struct {
	ffmpegPath string
	points     int
}

func NewWaveformGenerator(ffmpegPath string, points int) *WaveformGenerator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if points <= 0 {
		points = 1000
	}
	return &WaveformGenerator{ffmpegPath: ffmpegPath, points: points}
}

// Waveform is the JSON shape uploaded to object storage as a track's
// waveformObjectKey.
type Waveform struct {
	Points  int       `json:"points"`
	Samples []float64 `json:"samples"`
}

// Generate decodes path to raw signed 16-bit PCM via ffmpeg, downsamples it
// into g.points peak values in [0,1], and returns the JSON-encoded
// waveform body ready to upload.
func (g *WaveformGenerator) Generate(ctx context.Context, path string) ([]byte, error) {
	args := []string{
		"-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", "11025",
		"-f", "s16le",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, g.ffmpegPath, args...)

	var pcm, stderr bytes.Buffer
	cmd.Stdout = &pcm
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg waveform decode failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	samples := downsamplePCM16(pcm.Bytes(), g.points)
	body, err := json.Marshal(Waveform{Points: len(samples), Samples: samples})
	if err != nil {
		return nil, fmt.Errorf("marshal waveform: %w", err)
	}
	return body, nil
}

// downsamplePCM16 buckets little-endian signed 16-bit PCM samples into n
// evenly-sized windows and returns each window's peak absolute amplitude
// normalized to [0,1].
func downsamplePCM16(pcm []byte, n int) []float64 {
	frameCount := len(pcm) / 2
	if frameCount == 0 || n <= 0 {
		return nil
	}
	if n > frameCount {
		n = frameCount
	}

	peaks := make([]float64, n)
	windowSize := frameCount / n
	if windowSize == 0 {
		windowSize = 1
	}

	for i := 0; i < n; i++ {
		start := i * windowSize
		end := start + windowSize
		if i == n-1 {
			end = frameCount
		}
		var peak int16
		for f := start; f < end && f < frameCount; f++ {
			sample := int16(uint16(pcm[2*f]) | uint16(pcm[2*f+1])<<8)
			if sample < 0 {
				sample = -sample
			}
			if sample > peak {
				peak = sample
			}
		}
		peaks[i] = float64(peak) / float64(1<<15)
	}
	return peaks
}

// durationString is a small helper kept for log lines; ffprobe reports
// duration as a decimal-string float, not a Go duration.
func durationString(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 2, 64) + "s"
}
