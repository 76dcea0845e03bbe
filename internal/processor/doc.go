// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package processor implements the audio processor worker: it consumes
// AudioUploaded notifications, shells out to ffprobe and ffmpeg to extract
// technical metadata and generate waveform peaks, and promotes a Track
// from Processing to Ready or Failed.
package processor
