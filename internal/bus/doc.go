// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Package bus wraps Watermill's NATS JetStream publisher with circuit
// breaker protection and reconnection handling. It carries the Envelope
// schema used by the transactional outbox (internal/outbox) and by every
// worker binary that consumes `-audio-events`, `-track-deletions`,
// `-telemetry`, `-minio-events`, and the `-dlq` topic.
//
// # Usage
//
//	pub, err := bus.NewPublisher(bus.DefaultPublisherConfig(natsURL), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pub.Close()
//
//	env := bus.NewEnvelope(bus.TypeAudioUploaded, topic, userID, correlationID, payload)
//	if err := pub.PublishEnvelope(ctx, env); err != nil {
//		log.Fatal(err)
//	}
//
// Per-key ordering is a property of the bus (and of the outbox relay's
// ascending scan over pending rows), not of this package directly: the
// publisher does not reorder messages it is handed.
package bus
