// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package bus

// Topics is the environment-prefixed set of topics every worker publishes
// to or consumes from.
type Topics struct {
	AudioEvents    string // AudioUploaded, consumed by the audio processor
	TrackDeletions string // TrackDeleted, consumed by streaming invalidation / lifecycle
	Telemetry      string // playback events, partitioned by trackId
	ObjectEvents   string // object-created notifications, consumed by the ingestor
	DLQ            string // single environment-wide dead-letter topic
}

// NewTopics derives the full Topics set from the configured prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = "novatune"
	}
	return Topics{
		AudioEvents:    prefix + "-audio-events",
		TrackDeletions: prefix + "-track-deletions",
		Telemetry:      prefix + "-telemetry",
		ObjectEvents:   prefix + "-minio-events",
		DLQ:            prefix + "-dlq",
	}
}
