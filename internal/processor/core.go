// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/logging"
)

// Objects is the subset of objectstore.Client the processor depends on.
type Objects interface {
	GetObject(ctx context.Context, objectKey string) (io.ReadCloser, string, error)
	PutObject(ctx context.Context, objectKey, contentType string, body io.Reader, contentLength int64) error
}

// Core implements the audio processor worker's per-message contract
// (spec §4.6): fetch, probe, validate, generate a waveform, and promote
// the Track to Ready or Failed.
type Core struct {
	db       *docstore.Client
	objects  Objects
	prober   *Prober
	waveform *WaveformGenerator
	cfg      config.ProcessorConfig
}

func NewCore(db *docstore.Client, objects Objects, cfg config.ProcessorConfig) *Core {
	return &Core{
		db:       db,
		objects:  objects,
		prober:   NewProber(cfg.FfprobePath),
		waveform: NewWaveformGenerator(cfg.FfmpegPath, cfg.WaveformPoints),
		cfg:      cfg,
	}
}

// Handle is the bus.EnvelopeHandlerFunc the worker's consume loop invokes
// for every AudioUploaded message.
func (c *Core) Handle(ctx context.Context, env *bus.Envelope) error {
	if env.Type != bus.TypeAudioUploaded {
		logging.Debug().Str("type", env.Type).Msg("processor: ignoring non audio-uploaded envelope")
		return nil
	}
	var payload bus.AudioUploadedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("processor: decode audio-uploaded payload: %w", err)
	}
	return c.process(ctx, payload)
}

func (c *Core) process(ctx context.Context, payload bus.AudioUploadedPayload) error {
	track, err := c.db.Tracks().Get(ctx, payload.TrackID)
	if err != nil {
		if err == docstore.ErrNotFound {
			logging.Warn().Str("trackId", payload.TrackID).Msg("processor: track not found, orphaned notification")
			return nil
		}
		return fmt.Errorf("processor: load track %s: %w", payload.TrackID, err)
	}
	if track.Status != domain.TrackStatusProcessing {
		logging.Debug().Str("trackId", track.ID).Str("status", string(track.Status)).Msg("processor: track already processed, skipping redelivered notification")
		return nil
	}

	timeout := c.cfg.ProcessTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	procCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tmpPath, err := c.fetchToTemp(procCtx, payload.ObjectKey)
	if err != nil {
		// A fetch failure is a transient object-store blip, not a property
		// of the uploaded file: re-raise so the bus retries with backoff
		// and eventually DLQs, instead of terminally failing a valid
		// upload on one storage hiccup (spec §4.6 retry policy).
		return fmt.Errorf("processor: fetch object %s: %w", payload.ObjectKey, err)
	}
	defer os.Remove(tmpPath)

	probed, err := c.prober.Probe(procCtx, tmpPath)
	if err != nil {
		reason := domain.FailureCorruptedFile
		if errors.Is(procCtx.Err(), context.DeadlineExceeded) {
			reason = domain.FailureFfprobeTimeout
		}
		return c.fail(ctx, track, reason, fmt.Errorf("probe: %w", err))
	}

	if reason := validateProbe(probed, c.cfg); reason != "" {
		return c.fail(ctx, track, reason, fmt.Errorf("validation failed: %s", reason))
	}

	logging.Info().Str("trackId", track.ID).Str("duration", durationString(probed.DurationSeconds)).Msg("processor: probe succeeded")

	waveformBody, err := c.waveform.Generate(procCtx, tmpPath)
	if err != nil {
		reason := domain.FailureUnknownError
		if errors.Is(procCtx.Err(), context.DeadlineExceeded) {
			reason = domain.FailureFfmpegTimeout
		}
		return c.fail(ctx, track, reason, fmt.Errorf("waveform: %w", err))
	}

	waveformKey := waveformObjectKey(track.UserID, track.ID)
	if err := c.objects.PutObject(procCtx, waveformKey, "application/json", bytes.NewReader(waveformBody), int64(len(waveformBody))); err != nil {
		// Same reasoning as the fetch failure above: a store-side PutObject
		// error is transient, so re-raise for the bus to retry rather than
		// terminally failing the track.
		return fmt.Errorf("processor: upload waveform for track %s: %w", track.ID, err)
	}

	now := time.Now().UTC()
	track.Metadata = &domain.TrackMetadata{
		SampleRate:  probed.SampleRate,
		Channels:    probed.Channels,
		BitrateKbps: probed.BitrateKbps,
		CodecShort:  probed.CodecShort,
		CodecLong:   probed.CodecLong,
		BitDepth:    probed.BitDepth,
		Tags:        probed.Tags,
	}
	track.DurationSeconds = probed.DurationSeconds
	track.WaveformObjectKey = waveformKey
	track.Status = domain.TrackStatusReady
	track.ProcessedAt = &now
	track.UpdatedAt = now

	if err := c.saveTrack(ctx, track); err != nil {
		return fmt.Errorf("processor: save ready track %s: %w", track.ID, err)
	}
	logging.Info().Str("trackId", track.ID).Msg("processor: track ready")
	return nil
}

// waveformObjectKey mirrors the audio object key shape so the lifecycle
// worker can derive it without a stored pointer if one is ever lost.
func waveformObjectKey(userID, trackID string) string {
	return fmt.Sprintf("waveform/%s/%s.json", userID, trackID)
}

func (c *Core) fetchToTemp(ctx context.Context, objectKey string) (string, error) {
	body, _, err := c.objects.GetObject(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "novatune-audio-*")
	if err != nil {
		return "", fmt.Errorf("create scoped temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return tmp.Name(), nil
}

// fail marks track Failed with reason and always returns nil: a terminal
// validation failure is not retried by the bus, matching spec §4.6's
// "Terminal validation failures do not retry."
func (c *Core) fail(ctx context.Context, track *domain.Track, reason domain.FailureReason, cause error) error {
	now := time.Now().UTC()
	track.Status = domain.TrackStatusFailed
	track.FailureReason = reason
	track.ProcessedAt = &now
	track.UpdatedAt = now
	if err := c.saveTrack(ctx, track); err != nil {
		return fmt.Errorf("processor: save failed track %s: %w", track.ID, err)
	}
	logging.Warn().Err(cause).Str("trackId", track.ID).Str("reason", string(reason)).Msg("processor: track processing failed")
	return nil
}

// saveTrack applies track's already-computed final state under optimistic
// concurrency, retrying once by reloading the current version and
// reapplying this call's fields on top of it.
func (c *Core) saveTrack(ctx context.Context, track *domain.Track) error {
	expected := track.Version
	track.Version = expected + 1
	err := c.db.Tracks().Update(ctx, track, expected)
	if err != nil && err == docstore.ErrConcurrency {
		current, getErr := c.db.Tracks().Get(ctx, track.ID)
		if getErr != nil {
			return getErr
		}
		expected = current.Version
		track.Version = expected + 1
		return c.db.Tracks().Update(ctx, track, expected)
	}
	return err
}
