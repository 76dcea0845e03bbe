// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

// Command api serves the NovaTune HTTP surface: account management,
// track/playlist CRUD, upload initiation, playback telemetry ingestion, and
// the admin console. It also hosts the transactional outbox relay, since the
// writes that enqueue outbox rows (track deletion, in this process) and the
// writes that publish them share one document-store table regardless of
// which process performs them.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/novatune/backend/internal/admin"
	"github.com/novatune/backend/internal/api"
	"github.com/novatune/backend/internal/audit"
	"github.com/novatune/backend/internal/auth"
	"github.com/novatune/backend/internal/bootstrap"
	"github.com/novatune/backend/internal/bus"
	"github.com/novatune/backend/internal/cache"
	"github.com/novatune/backend/internal/config"
	"github.com/novatune/backend/internal/docstore"
	"github.com/novatune/backend/internal/logging"
	"github.com/novatune/backend/internal/objectstore"
	"github.com/novatune/backend/internal/outbox"
	"github.com/novatune/backend/internal/playlist"
	"github.com/novatune/backend/internal/ratelimit"
	"github.com/novatune/backend/internal/streaming"
	"github.com/novatune/backend/internal/supervisor"
	supervisorservices "github.com/novatune/backend/internal/supervisor/services"
	"github.com/novatune/backend/internal/track"
	"github.com/novatune/backend/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	logging.Info().Msg("starting novatune api")

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
	redisCache, err := cache.New(cfg.Redis)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct cache client")
	}
	defer func() {
		if err := redisCache.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing cache client")
		}
	}()

	topics := bus.NewTopics(cfg.Server.Environment)
	wmLogger := bootstrap.NewWatermillLogger(logging.Logger())
	publisher, err := bus.NewPublisher(bus.DefaultPublisherConfig(cfg.NATS.URL), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct bus publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing bus publisher")
		}
	}()

	outboxStore := docstore.NewOutboxStore(db)
	forwarder, err := outbox.NewForwarder(outboxStore, publisher, outbox.DefaultForwarderConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct outbox forwarder")
	}

	subscriber, err := bus.NewSubscriber(bus.DefaultSubscriberConfig(cfg.NATS.URL), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct bus subscriber")
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing bus subscriber")
		}
	}()

	invalidator := streaming.NewInvalidator(redisCache)
	invalidationWorker := streaming.NewWorker(subscriber, invalidator, topics)

	jwtManager, err := auth.NewJWTManager(cfg.Auth, cfg.Security.JWTSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct jwt manager")
	}
	passwordHasher := auth.NewPasswordHasher(cfg.Auth)
	lockoutManager := auth.NewLockoutManager(auth.NewMemoryLockoutStore(), auth.DefaultLockoutConfig())
	loginLimiter := ratelimit.NewManager()
	auditEventLogger := audit.NewLogger(audit.NewMemoryStore(10000), audit.DefaultConfig())

	authCore := auth.NewCore(db, jwtManager, passwordHasher, lockoutManager, loginLimiter, invalidator, auditEventLogger, cfg.Auth)
	trackCore := track.NewCore(db, objects, redisCache, outboxStore, topics, cfg.Track)
	playlistCore := playlist.NewCore(db, cfg.Playlist)
	uploadCore := upload.NewCore(db, objects, cfg.Upload)

	chainStore := docstore.NewDynamoChainStore(db)
	adminCore := admin.NewCore(db, trackCore, invalidator, chainStore, cfg.Admin, cfg.Lifecycle.DeletionGracePeriod)

	jwtAuthenticator := auth.NewJWTAuthenticator(jwtManager)
	authMiddleware := auth.NewMiddleware(jwtAuthenticator, cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow, cfg.Security.RateLimitDisabled, cfg.Security.CORSOrigins, cfg.Security.TrustedProxies)
	chiMiddleware := api.NewChiMiddlewareFromAuth(cfg.Security.CORSOrigins, cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow, cfg.Security.RateLimitDisabled)

	router := api.NewRouter(
		authMiddleware,
		chiMiddleware,
		api.NewAuthHandlers(authCore),
		api.NewTrackHandlers(trackCore, cfg.Lifecycle.DeletionGracePeriod),
		api.NewPlaylistHandlers(playlistCore),
		api.NewUploadHandlers(uploadCore),
		api.NewTelemetryHandlers(publisher, topics),
		api.NewAdminHandlers(adminCore),
		api.NewHealthHandlers(db),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct supervisor tree")
	}

	tree.AddDataService(forwarder)
	tree.AddMessagingService(invalidationWorker)
	tree.AddAPIService(supervisorservices.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("http server, outbox forwarder, and invalidation worker added to supervisor tree")

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

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("novatune api stopped gracefully")
}
