// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package bus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/novatune/backend/internal/metrics"
)

// Subscriber wraps a Watermill JetStream subscriber for one of the four
// worker processes (ingestor, processor, telemetry, lifecycle). Each worker
// gets its own durable consumer so a slow processor does not hold back
// telemetry, and so each can be redeployed or restarted independently.
type Subscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a durable JetStream subscriber bound to cfg. When
// cfg.StreamName is set the subscriber binds to an existing stream instead
// of auto-provisioning one, which is required for wildcard topics (NATS
// stream names cannot themselves contain wildcards).
func NewSubscriber(cfg SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("subscriber reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{subscriber: sub, config: cfg, logger: logger}, nil
}

// Close gracefully shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// EnvelopeHandlerFunc processes one decoded Envelope. Returning an error
// nacks the underlying message, which JetStream redelivers up to
// SubscriberConfig.MaxDeliver times before giving up silently; callers that
// need a dead-letter record should publish a DLQEnvelope themselves once
// they decide a message is unrecoverable (see PublishDLQ).
type EnvelopeHandlerFunc func(ctx context.Context, env *Envelope) error

// Run subscribes to topic and invokes fn for every message until ctx is
// canceled or the subscription closes. This is the shape every worker's
// consume loop runs: ingestor on an object-notification topic, processor on
// AudioUploaded, telemetry on playback events, lifecycle on TrackDeleted.
func (s *Subscriber) Run(ctx context.Context, topic string, fn EnvelopeHandlerFunc) error {
	messages, err := s.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.handle(ctx, topic, msg, fn)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, topic string, msg *message.Message, fn EnvelopeHandlerFunc) {
	env, err := DeserializeEnvelope(msg.Payload)
	if err != nil {
		s.logger.Error("discarding undecodable message", err, watermill.LogFields{
			"topic": topic, "uuid": msg.UUID,
		})
		// A message that doesn't even deserialize will never succeed on
		// redelivery; acking drops it rather than burning MaxDeliver
		// attempts on a message that can never be fixed by retrying.
		msg.Ack()
		return
	}

	if err := fn(ctx, env); err != nil {
		s.logger.Error("envelope handler failed, nacking for redelivery", err, watermill.LogFields{
			"topic": topic, "messageId": env.MessageID, "type": env.Type,
		})
		metrics.RecordNATSParseFailed()
		msg.Nack()
		return
	}

	metrics.RecordNATSProcessed()
	msg.Ack()
}

// PublishDLQ records a message a worker has given up on after exhausting
// its own retry policy. dlqTopic is the single environment-wide dead-letter
// topic (Topics.DLQ).
func PublishDLQ(ctx context.Context, pub *Publisher, dlqTopic string, env *Envelope, retryCount int, cause error) error {
	payload, marshalErr := SerializeEnvelope(env)
	if marshalErr != nil {
		payload = nil
	}
	dlq := DLQEnvelope{
		OriginalTopic: env.Topic,
		OriginalKey:   env.Key,
		PayloadJSON:   string(payload),
		ErrorMessage:  cause.Error(),
		RetryCount:    retryCount,
		FailedAt:      env.Timestamp,
	}
	body, err := json.Marshal(dlq)
	if err != nil {
		return fmt.Errorf("bus: marshal dlq envelope: %w", err)
	}
	msg := message.NewMessage(env.MessageID, body)
	return pub.Publish(ctx, dlqTopic, msg)
}
