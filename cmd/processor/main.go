// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Command processor consumes AudioUploaded events, runs ffprobe/ffmpeg over
// the uploaded file, and promotes or fails the corresponding Track.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/novatune/backend/internal/bootstrap"
	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/logging"
	"github.com/novatune/backend/internal/objectstore"
	"github.com/novatune/backend/internal/processor"
	"github.com/novatune/backend/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	logging.Info().Msg("starting novatune processor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dynamoClient, err := bootstrap.NewDynamoDBClient(ctx, cfg.DynamoDB)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct dynamodb client")
	}
	s3Client, err := bootstrap.NewS3Client(ctx, cfg.S3)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct s3 client")
	}

	db := docstore.NewClient(dynamoClient, cfg.DynamoDB.TableName)
	objects := objectstore.New(s3Client, cfg.S3)
	topics := bus.NewTopics(cfg.Server.Environment)

	wmLogger := bootstrap.NewWatermillLogger(logging.Logger())
	subscriber, err := bus.NewSubscriber(bus.DefaultSubscriberConfig(cfg.NATS.URL), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct bus subscriber")
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing bus subscriber")
		}
	}()

	core := processor.NewCore(db, objects, cfg.Processor)
	worker := processor.NewWorker(subscriber, core, topics)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct supervisor tree")
	}
	tree.AddMessagingService(worker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	logging.Info().Msg("novatune processor stopped gracefully")
}
