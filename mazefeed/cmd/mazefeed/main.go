package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/awsford/deeplens-maze-solver/common/logging"
	"github.com/awsford/deeplens-maze-solver/common/messaging"
	natsclient "github.com/awsford/deeplens-maze-solver/common/messaging/nats"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/config"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/credentials"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/feed"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/handlers"
	feednats "github.com/awsford/deeplens-maze-solver/mazefeed/internal/nats"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/objectstore"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "override listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("mazefeed"))
	logging.SetDefault(logger)

	slog.Info("Starting maze feed service",
		slog.Int("port", cfg.Server.Port),
		slog.String("topic", cfg.Feed.Topic),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("credentials_mode", cfg.Credentials.Mode),
		slog.String("log_level", cfg.Logging.Level),
	)

	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	ctx := context.Background()

	creds, closeCreds, err := buildCredentials(cfg, logger.Logger)
	if err != nil {
		slog.Error("Failed to set up credentials", logging.Error(err))
		os.Exit(1)
	}
	defer closeCreds()

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to set up object storage", logging.Error(err))
		os.Exit(1)
	}

	store := feed.NewStore(feed.StoreOptions{
		MaxListeners:   cfg.Feed.MaxStreamClients,
		ListenerBuffer: cfg.Feed.StreamBuffer,
	})
	resolver := feed.NewImageResolver(creds, objects, feed.ResolverConfig{
		Prefix:  cfg.Storage.Prefix,
		Timeout: cfg.Feed.ResolveTimeout,
		Logger:  logger.Logger,
	})
	aggregator := feed.NewAggregator(resolver, store, feed.Options{
		DedupKey: cfg.DedupField(),
		Logger:   logger.Logger,
	})

	// Transport errors arrive on NATS goroutines, possibly before the
	// subscriber exists.
	var subscriberRef atomic.Pointer[feednats.FeedSubscriber]

	natsCfg := natsclient.Config{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.Name,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
		Timeout:       cfg.NATS.Timeout,
		Username:      cfg.NATS.Username,
		Password:      cfg.NATS.Password,
		Token:         cfg.NATS.Token,
		Logger:        logger.Logger,
		ErrorHandler: func(err error) {
			if s := subscriberRef.Load(); s != nil {
				s.ReportError(err)
			}
		},
	}

	var (
		natsClient messaging.Client
		replayer   feednats.Replayer
	)
	if cfg.Feed.Replay.Enabled {
		jsClient, err := natsclient.NewJetStreamClient(natsCfg)
		if err != nil {
			slog.Error("Failed to connect to NATS", slog.String("url", cfg.NATS.URL), logging.Error(err))
			os.Exit(1)
		}
		streamCfg := natsclient.MazeEventsStream
		streamCfg.Name = cfg.Feed.Replay.Stream
		streamCfg.Subjects = []string{messaging.TopicToSubject(cfg.Feed.Topic)}
		if _, err := jsClient.CreateOrUpdateStream(ctx, streamCfg); err != nil {
			slog.Error("Failed to prepare replay stream", logging.Error(err))
			os.Exit(1)
		}
		natsClient, replayer = jsClient, jsClient
	} else {
		client, err := natsclient.NewClient(natsCfg)
		if err != nil {
			slog.Error("Failed to connect to NATS", slog.String("url", cfg.NATS.URL), logging.Error(err))
			os.Exit(1)
		}
		natsClient = client
	}
	slog.Info("Connected to NATS", slog.String("url", cfg.NATS.URL), slog.Bool("replay", replayer != nil))

	subscriber := feednats.NewFeedSubscriber(natsClient, aggregator.HandleMessage, feednats.Config{
		Topic:  cfg.Feed.Topic,
		Replay: replayer,
		Stream: cfg.Feed.Replay.Stream,
		Logger: logger.Logger,
	})
	subscriberRef.Store(subscriber)

	subscribeCtx, stopSubscribeCtx := context.WithCancel(ctx)
	defer stopSubscribeCtx()
	if err := subscriber.Start(subscribeCtx); err != nil {
		slog.Error("Failed to subscribe to maze events", logging.Error(err))
		os.Exit(1)
	}

	router := server.NewRouter(server.RouterConfig{
		FeedHandler:    handlers.NewFeedHandler(store, logger.Logger),
		HealthHandler:  handlers.NewHealthHandler(natsClient, subscriber, store),
		Auth:           handlers.NewBearerAuth(cfg.Auth.JWTSecret),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
	})

	// Cancelled before Shutdown so open feed streams return.
	baseCtx, cancelBase := context.WithCancel(ctx)
	defer cancelBase()

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Maze feed listening", slog.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutdown signal received")

	// Stop the subscription first so no new events arrive
	if err := subscriber.Stop(); err != nil {
		slog.Warn("Subscriber shutdown error", logging.Error(err))
	}
	stopSubscribeCtx()

	aggregator.Close()
	aggregator.Wait()
	slog.Info("Feed aggregator stopped", slog.Int("records", store.Len()))

	cancelBase()
	shutdownTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownTimeout); err != nil {
		slog.Warn("Graceful shutdown failed", logging.Error(err))
	}

	if err := natsClient.Drain(); err != nil {
		slog.Warn("Error draining NATS connection", logging.Error(err))
	}
}

func buildCredentials(cfg *config.Config, logger *slog.Logger) (credentials.Source, func(), error) {
	var source credentials.Source
	switch cfg.Credentials.Mode {
	case "oauth2":
		source = credentials.NewOAuth2Source(credentials.OAuth2Config{
			TokenURL:     cfg.Credentials.OAuth2.TokenURL,
			ClientID:     cfg.Credentials.OAuth2.ClientID,
			ClientSecret: cfg.Credentials.OAuth2.ClientSecret,
			Scopes:       cfg.Credentials.OAuth2.Scopes,
		})
	case "session":
		source = credentials.NewSessionSource(
			cfg.Credentials.Session.URL,
			cfg.Credentials.Session.Username,
			cfg.Credentials.Session.Password,
		)
	default:
		// A static token never changes, there is nothing to cache.
		return credentials.Static(cfg.Credentials.StaticToken), func() {}, nil
	}

	var (
		cacheStore credentials.Store
		closeFn    = func() {}
	)
	if cfg.Credentials.Cache.Backend == "redis" {
		redisStore, err := credentials.NewRedisStore(cfg.Credentials.Cache.RedisURL, cfg.Credentials.Cache.Key)
		if err != nil {
			return nil, nil, err
		}
		cacheStore = redisStore
		closeFn = func() { _ = redisStore.Close() }
	}

	cache := credentials.NewCache(source, cacheStore, credentials.CacheOptions{
		DefaultTTL: cfg.Credentials.Cache.DefaultTTL,
		Skew:       cfg.Credentials.Cache.Skew,
		Logger:     logger,
	})
	return cache, closeFn, nil
}

func buildObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.Storage.Backend {
	case "gateway":
		return objectstore.NewGateway(cfg.Storage.Gateway.URL), nil
	default:
		return objectstore.NewS3(ctx, objectstore.S3Config{
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			PresignExpiry:   cfg.Storage.S3.PresignExpiry,
		})
	}
}
