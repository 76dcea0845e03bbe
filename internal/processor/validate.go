// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package processor

import (
	"strings"

	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/domain"
)

// validateProbe checks an extracted ProbeResult against cfg's bounds,
// returning "" when valid or the FailureReason the Track should record.
func validateProbe(r *ProbeResult, cfg config.ProcessorConfig) domain.FailureReason {
	if r.DurationSeconds <= 0 {
		return domain.FailureInvalidDuration
	}
	if r.DurationSeconds > cfg.MaxDurationSeconds {
		return domain.FailureDurationExceeded
	}
	if cfg.MinDurationSeconds > 0 && r.DurationSeconds < cfg.MinDurationSeconds {
		return domain.FailureInvalidDuration
	}
	if r.SampleRate <= 0 {
		return domain.FailureInvalidSampleRate
	}
	if r.Channels < 1 || r.Channels > 8 {
		return domain.FailureInvalidChannels
	}
	if !codecAllowed(cfg.AllowedCodecs, r.CodecShort) {
		return domain.FailureUnsupportedCodec
	}
	return ""
}

func codecAllowed(allowlist []string, codec string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	for _, c := range allowlist {
		if strings.ToLower(c) == codec {
			return true
		}
	}
	return false
}
