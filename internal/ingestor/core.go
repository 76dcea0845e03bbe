// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package ingestor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/domain"
	"github.com/novatune/backend/internal/logging"
	"github.com/novatune/backend/internal/outbox"
	"github.com/novatune/backend/internal/upload"
)

// Objects is the subset of objectstore.Client the ingestor depends on.
type Objects interface {
	HeadSize(ctx context.Context, objectKey string) (int64, error)
	GetObject(ctx context.Context, objectKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, objectKey string) error
}

// Core turns one object-created notification into a Track row, grounded on
// the session reserved by Upload.Initiate.
type Core struct {
	db      *docstore.Client
	objects Objects
	outbox  outbox.Store
	topics  bus.Topics
}

func NewCore(db *docstore.Client, objects Objects, outboxStore outbox.Store, topics bus.Topics) *Core {
	return &Core{db: db, objects: objects, outbox: outboxStore, topics: topics}
}

// Handle is the bus.EnvelopeHandlerFunc the worker's consume loop invokes
// for every ObjectCreated message.
func (c *Core) Handle(ctx context.Context, env *bus.Envelope) error {
	if env.Type != bus.TypeObjectCreated {
		logging.Debug().Str("type", env.Type).Msg("ingestor: ignoring non object-created envelope")
		return nil
	}
	var payload bus.ObjectCreatedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("ingestor: decode object-created payload: %w", err)
	}
	return c.ingest(ctx, payload, env.CorrelationID)
}

// trackIDFromKey extracts trackId from "audio/{userId}/{trackId}/{nonce}".
// Keys that don't match this shape belong to something other than a
// reserved upload and are orphans this worker leaves alone.
func trackIDFromKey(objectKey string) (userID, trackID string, ok bool) {
	parts := strings.Split(objectKey, "/")
	if len(parts) != 4 || parts[0] != "audio" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func (c *Core) ingest(ctx context.Context, payload bus.ObjectCreatedPayload, correlationID string) error {
	userID, trackID, ok := trackIDFromKey(payload.ObjectKey)
	if !ok {
		logging.Warn().Str("objectKey", payload.ObjectKey).Msg("ingestor: object key does not match audio/{userId}/{trackId}/{nonce}, treating as orphan")
		return nil
	}

	session, err := c.db.UploadSessions().GetByTrackID(ctx, trackID)
	if err != nil {
		if err == docstore.ErrNotFound {
			logging.Warn().Str("trackId", trackID).Str("objectKey", payload.ObjectKey).Msg("ingestor: no upload session reserved this track, orphaned object")
			return nil
		}
		return fmt.Errorf("ingestor: load upload session for track %s: %w", trackID, err)
	}

	// Idempotency: a track already exists for this reservation (redelivery
	// after a successful run that crashed before the ack landed).
	if existing, err := c.db.Tracks().Get(ctx, trackID); err == nil && existing != nil {
		logging.Debug().Str("trackId", trackID).Msg("ingestor: track already created, skipping redelivered notification")
		return nil
	} else if err != nil && err != docstore.ErrNotFound {
		return fmt.Errorf("ingestor: check existing track %s: %w", trackID, err)
	}

	now := time.Now().UTC()
	if session.Expired(now) || session.Status != domain.UploadStatusPending {
		session.Status = domain.UploadStatusFailed
		if updErr := c.db.UploadSessions().Update(ctx, session); updErr != nil {
			logging.Error().Err(updErr).Str("trackId", trackID).Msg("ingestor: mark expired session failed")
		}
		if delErr := c.objects.Delete(ctx, payload.ObjectKey); delErr != nil {
			logging.Warn().Err(delErr).Str("objectKey", payload.ObjectKey).Msg("ingestor: best-effort delete of orphaned object failed")
		}
		return nil
	}

	actualSize, err := c.objects.HeadSize(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("ingestor: head object %s: %w", payload.ObjectKey, err)
	}
	if actualSize > session.MaxAllowedSizeBytes {
		return c.failSession(ctx, session, payload.ObjectKey, "uploaded object exceeds the size reserved at upload initiation")
	}
	if payload.ContentType != "" && !strings.EqualFold(payload.ContentType, session.ExpectedMimeType) {
		return c.failSession(ctx, session, payload.ObjectKey, "uploaded object's content type does not match the reservation")
	}

	checksum, err := c.checksum(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("ingestor: checksum object %s: %w", payload.ObjectKey, err)
	}

	title := session.Title
	if title == "" {
		title = upload.TitleFromFileName(session.FileName)
	}

	track := &domain.Track{
		ID:               trackID,
		UserID:           userID,
		Title:            title,
		Artist:           session.Artist,
		ObjectKey:        payload.ObjectKey,
		FileSizeBytes:    actualSize,
		MimeType:         session.ExpectedMimeType,
		Checksum:         checksum,
		Status:           domain.TrackStatusProcessing,
		ModerationStatus: domain.ModerationNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	session.Status = domain.UploadStatusCompleted

	audioUploaded := bus.AudioUploadedPayload{
		TrackID:       trackID,
		UserID:        userID,
		ObjectKey:     payload.ObjectKey,
		MimeType:      track.MimeType,
		FileSize:      actualSize,
		Checksum:      checksum,
		CorrelationID: correlationID,
		Timestamp:     now,
	}
	body, err := json.Marshal(audioUploaded)
	if err != nil {
		return fmt.Errorf("ingestor: marshal audio-uploaded payload: %w", err)
	}
	msg := &outbox.Message{
		ID:            domain.NewID(),
		Type:          bus.TypeAudioUploaded,
		Topic:         c.topics.AudioEvents,
		PartitionKey:  userID,
		Payload:       body,
		CorrelationID: correlationID,
		Status:        outbox.StatusPending,
		CreatedAt:     now,
	}

	// Track creation, the session's Completed transition, the user's usage
	// counters, and the AudioUploaded outbox row all land in one
	// TransactWriteItems call (spec §4.5 step 5): a crash or lost ack
	// between any two of these is invisible to redelivery, since either
	// all four happened (the idempotency check above short-circuits, and
	// the outbox row already exists to be forwarded) or none did (the
	// handler retries from scratch). Only the user item's version can
	// lose a race against another concurrent upload for the same user, so
	// that's the only piece worth retrying — refreshed and reattempted on
	// ErrConcurrency.
	if err := c.createTrackWithUsage(ctx, track, session, userID, actualSize, msg); err != nil {
		return fmt.Errorf("ingestor: create track %s: %w", trackID, err)
	}

	logging.Info().Str("trackId", trackID).Str("userId", userID).Int64("fileSize", actualSize).Msg("ingestor: track created from upload")
	return nil
}

func (c *Core) failSession(ctx context.Context, session *domain.UploadSession, objectKey, reason string) error {
	session.Status = domain.UploadStatusFailed
	if err := c.db.UploadSessions().Update(ctx, session); err != nil {
		return fmt.Errorf("ingestor: mark session failed: %w", err)
	}
	if err := c.objects.Delete(ctx, objectKey); err != nil {
		logging.Warn().Err(err).Str("objectKey", objectKey).Msg("ingestor: best-effort delete of rejected object failed")
	}
	logging.Warn().Str("trackId", session.TrackID).Str("reason", reason).Msg("ingestor: rejected upload")
	return nil
}

func (c *Core) checksum(ctx context.Context, objectKey string) (string, error) {
	body, _, err := c.objects.GetObject(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer body.Close()

	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", fmt.Errorf("hash object bytes: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// createTrackWithUsage commits the track, session, user-counter, and outbox
// writes in a single document-store transaction (docstore.Tracks.
// CreateWithOutbox), reloading and retrying only the user counter under an
// optimistic-concurrency loop when it loses a race against another upload
// for the same user — matching the teacher's load-modify-retry pattern for
// contended counters, but scoped to the one item in the transaction that
// can actually contend.
func (c *Core) createTrackWithUsage(ctx context.Context, track *domain.Track, session *domain.UploadSession, userID string, fileSize int64, msg *outbox.Message) error {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		user, err := c.db.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		expectedVersion := user.Version
		updated := *user
		updated.TrackCount++
		updated.StorageUsedBytes += fileSize
		updated.Version = expectedVersion + 1

		err = c.db.Tracks().CreateWithOutbox(ctx, track, session, &updated, expectedVersion, msg)
		if err == nil {
			return nil
		}
		if err == docstore.ErrConcurrency {
			continue
		}
		return err
	}
	return fmt.Errorf("exceeded %d attempts creating track with usage counters", maxAttempts)
}
