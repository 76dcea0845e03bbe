// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package processor

import (
	"testing"

	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/domain"
)

func testConfig() config.ProcessorConfig {
	return config.ProcessorConfig{
		MaxDurationSeconds: 3 * 60 * 60,
		MinDurationSeconds: 0.5,
		AllowedCodecs:      []string{"flac", "mp3", "pcm_s16le"},
	}
}

func TestValidateProbe(t *testing.T) {
	cfg := testConfig()

	cases := []struct {
		name string
		r    ProbeResult
		want domain.FailureReason
	}{
		{"valid", ProbeResult{DurationSeconds: 120, SampleRate: 44100, Channels: 2, CodecShort: "mp3"}, ""},
		{"zero duration", ProbeResult{DurationSeconds: 0, SampleRate: 44100, Channels: 2, CodecShort: "mp3"}, domain.FailureInvalidDuration},
		{"too short", ProbeResult{DurationSeconds: 0.1, SampleRate: 44100, Channels: 2, CodecShort: "mp3"}, domain.FailureInvalidDuration},
		{"too long", ProbeResult{DurationSeconds: 4 * 60 * 60, SampleRate: 44100, Channels: 2, CodecShort: "mp3"}, domain.FailureDurationExceeded},
		{"zero sample rate", ProbeResult{DurationSeconds: 120, SampleRate: 0, Channels: 2, CodecShort: "mp3"}, domain.FailureInvalidSampleRate},
		{"zero channels", ProbeResult{DurationSeconds: 120, SampleRate: 44100, Channels: 0, CodecShort: "mp3"}, domain.FailureInvalidChannels},
		{"too many channels", ProbeResult{DurationSeconds: 120, SampleRate: 44100, Channels: 9, CodecShort: "mp3"}, domain.FailureInvalidChannels},
		{"unsupported codec", ProbeResult{DurationSeconds: 120, SampleRate: 44100, Channels: 2, CodecShort: "opus"}, domain.FailureUnsupportedCodec},
		{"codec case insensitive", ProbeResult{DurationSeconds: 120, SampleRate: 44100, Channels: 2, CodecShort: "MP3"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := validateProbe(&tc.r, cfg)
			if got != tc.want {
				t.Errorf("validateProbe() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDownsamplePCM16(t *testing.T) {
	// 4 frames, max amplitude at position 2 (little-endian 0x7FFF).
	pcm := []byte{
		0x00, 0x00,
		0x00, 0x00,
		0xFF, 0x7F,
		0x00, 0x00,
	}
	peaks := downsamplePCM16(pcm, 2)
	if len(peaks) != 2 {
		t.Fatalf("len(peaks) = %d, want 2", len(peaks))
	}
	if peaks[0] != 0 {
		t.Errorf("peaks[0] = %v, want 0", peaks[0])
	}
	if peaks[1] <= 0.9 {
		t.Errorf("peaks[1] = %v, want near 1.0", peaks[1])
	}
}

func TestDownsamplePCM16Empty(t *testing.T) {
	if peaks := downsamplePCM16(nil, 10); peaks != nil {
		t.Errorf("downsamplePCM16(nil) = %v, want nil", peaks)
	}
}
