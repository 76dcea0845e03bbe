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

// probeFormat is the "format" object of ffprobe's JSON output.
type probeFormat struct {
	Duration string            `json:"duration"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

// probeStream is one entry of ffprobe's "streams" array; only the first
// audio stream is used.
type probeStream struct {
	CodecType        string `json:"codec_type"`
	CodecName        string `json:"codec_name"`
	CodecLongName    string `json:"codec_long_name"`
	SampleRate       string `json:"sample_rate"`
	Channels         int    `json:"channels"`
	BitsPerSample    int    `json:"bits_per_sample"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// ProbeResult is the subset of ffprobe output the processor validates and
// persists onto a Track.
type ProbeResult struct {
	DurationSeconds float64
	SampleRate      int
	Channels        int
	BitrateKbps     int
	CodecShort      string
	CodecLong       string
	BitDepth        int
	Tags            map[string]string
}

// Prober runs ffprobe against a local file and parses its JSON output.
type Prober struct {
	ffprobePath string
}

func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Probe extracts technical metadata from the file at path. ctx should carry
// the per-call timeout from config.ProcessorConfig.ProcessTimeout; a
// context deadline exceeded surfaces as a FailureFfprobeTimeout once
// classified by the caller.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0",
		path,
	}
	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var audio *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "audio" {
			audio = &out.Streams[i]
			break
		}
	}
	if audio == nil {
		return nil, fmt.Errorf("no audio stream found")
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	sampleRate, err := strconv.Atoi(audio.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("parse sample rate %q: %w", audio.SampleRate, err)
	}

	bitrateKbps := 0
	if out.Format.BitRate != "" {
		if bps, err := strconv.Atoi(out.Format.BitRate); err == nil {
			bitrateKbps = bps / 1000
		}
	}

	bitDepth := audio.BitsPerSample
	if bitDepth == 0 && audio.BitsPerRawSample != "" {
		if v, err := strconv.Atoi(audio.BitsPerRawSample); err == nil {
			bitDepth = v
		}
	}

	return &ProbeResult{
		DurationSeconds: duration,
		SampleRate:      sampleRate,
		Channels:        audio.Channels,
		BitrateKbps:     bitrateKbps,
		CodecShort:      audio.CodecName,
		CodecLong:       audio.CodecLongName,
		BitDepth:        bitDepth,
		Tags:            out.Format.Tags,
	}, nil
}
