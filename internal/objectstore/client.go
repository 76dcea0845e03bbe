// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/novatune/backend/internal/config"
)

// Client issues presigned S3 requests against the bucket holding audio
// originals and generated waveforms. It never transfers object bytes
// itself — Put/Get return a URL the caller hands to the end client.
type Client struct {
	raw     *s3.Client
	presign *s3.PresignClient
	bucket  string
	putTTL  time.Duration
	getTTL  time.Duration
}

// New constructs a Client from an s3.Client and the bucket/TTL settings in
// cfg.
func New(s3Client *s3.Client, cfg config.S3Config) *Client {
	return &Client{
		raw:     s3Client,
		presign: s3.NewPresignClient(s3Client),
		bucket:  cfg.Bucket,
		putTTL:  cfg.PresignPutTTL,
		getTTL:  cfg.PresignGetTTL,
	}
}

// PresignedRequest is a URL plus the deadline it stops working at, returned
// to the client for a direct PUT or GET against the bucket.
type PresignedRequest struct {
	URL       string
	ExpiresAt time.Time
}

// PresignUpload issues a time-limited PUT URL for objectKey. contentType is
// enforced by the presigned policy so a client cannot swap in an
// unexpected MIME type after the ingestor has reserved the key.
func (c *Client) PresignUpload(ctx context.Context, objectKey, contentType string, contentLength int64) (*PresignedRequest, error) {
	now := time.Now()
	input := &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &objectKey,
		ContentType:   &contentType,
		ContentLength: &contentLength,
	}
	out, err := c.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(c.putTTL))
	if err != nil {
		return nil, fmt.Errorf("objectstore: presign upload %s: %w", objectKey, err)
	}
	return &PresignedRequest{URL: out.URL, ExpiresAt: now.Add(c.putTTL)}, nil
}

// PresignDownload issues a time-limited GET URL for objectKey, used both for
// stream issuance (internal/track.IssueStreamUrl) and for serving a track's
// waveform.
func (c *Client) PresignDownload(ctx context.Context, objectKey string) (*PresignedRequest, error) {
	now := time.Now()
	input := &s3.GetObjectInput{Bucket: &c.bucket, Key: &objectKey}
	out, err := c.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(c.getTTL))
	if err != nil {
		return nil, fmt.Errorf("objectstore: presign download %s: %w", objectKey, err)
	}
	return &PresignedRequest{URL: out.URL, ExpiresAt: now.Add(c.getTTL)}, nil
}

// Delete removes an object outright (lifecycle worker reclaiming storage
// for a hard-deleted track's audio and waveform).
func (c *Client) Delete(ctx context.Context, objectKey string) error {
	_, err := c.raw.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &c.bucket, Key: &objectKey})
	if err != nil {
		return fmt.Errorf("objectstore: delete %s: %w", objectKey, err)
	}
	return nil
}

// HeadSize returns the size in bytes of an already-uploaded object, used by
// the ingestor to verify the client actually uploaded what it reserved.
func (c *Client) HeadSize(ctx context.Context, objectKey string) (int64, error) {
	out, err := c.raw.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &c.bucket, Key: &objectKey})
	if err != nil {
		return 0, fmt.Errorf("objectstore: head %s: %w", objectKey, err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("objectstore: head %s: missing content-length", objectKey)
	}
	return *out.ContentLength, nil
}

// GetObject opens a stream of the object's bytes. This is the one
// exception to the package's no-proxying rule: the ingestor reads the
// stream itself to compute a checksum, it never forwards those bytes
// anywhere. Callers must Close the returned reader.
func (c *Client) GetObject(ctx context.Context, objectKey string) (io.ReadCloser, string, error) {
	out, err := c.raw.GetObject(ctx, &s3.GetObjectInput{Bucket: &c.bucket, Key: &objectKey})
	if err != nil {
		return nil, "", fmt.Errorf("objectstore: get %s: %w", objectKey, err)
	}
	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// PutObject writes body to objectKey directly, bypassing the presign flow.
// Used only by the audio processor to store a generated waveform — the
// only object this service ever creates itself rather than a client
// uploading it.
func (c *Client) PutObject(ctx context.Context, objectKey, contentType string, body io.Reader, contentLength int64) error {
	_, err := c.raw.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &objectKey,
		Body:          body,
		ContentType:   &contentType,
		ContentLength: &contentLength,
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", objectKey, err)
	}
	return nil
}
