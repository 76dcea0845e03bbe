// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Command lifecycle runs the periodic sweep that permanently deletes tracks
// whose soft-delete grace period has elapsed: it removes the object-store
// originals and waveforms, cascades the removal into every playlist that
// references the track, and deletes the Track row itself.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/novatune/backend/internal/bootstrap"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/lifecycle"
	"github.com/novatune/backend/internal/logging"
	"github.com/novatune/backend/internal/objectstore"
	"github.com/novatune/backend/internal/playlist"
	"github.com/novatune/backend/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	logging.Info().Msg("starting novatune lifecycle")

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
	playlists := playlist.NewCore(db, cfg.Playlist)

	core := lifecycle.NewCore(db, objects, playlists, cfg.Lifecycle)
	worker := lifecycle.NewWorker(core, cfg.Lifecycle.SweepInterval)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct supervisor tree")
	}
	tree.AddDataService(worker)

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

	logging.Info().Msg("novatune lifecycle stopped gracefully")
}
