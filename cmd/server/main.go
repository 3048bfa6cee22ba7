package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "torrenthub/internal/api/http"
	"torrenthub/internal/app"
	"torrenthub/internal/client/qbittorrent"
	"torrenthub/internal/domain/ports"
	"torrenthub/internal/metrics"
	mongorepo "torrenthub/internal/repository/mongo"
	"torrenthub/internal/search"
	"torrenthub/internal/sources/apibay"
	"torrenthub/internal/sources/torznab"
	"torrenthub/internal/storage/localfs"
	"torrenthub/internal/telemetry"
	"torrenthub/internal/usecase"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "torrenthub")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "torrenthub"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("mongoDatabase", cfg.MongoDatabase),
		slog.String("qbittorrentHost", cfg.QBittorrentHost),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasTorznab", strings.TrimSpace(cfg.TorznabEndpoint) != ""),
		slog.Duration("searchTimeout", cfg.SearchTimeout),
		slog.Duration("refreshInterval", cfg.RefreshInterval),
	)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelConnect()
	mongoClient, err := mongorepo.Connect(connectCtx, cfg.MongoURI,
		options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	if err := mongoClient.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Error("mongo not reachable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	downloadStore := mongorepo.NewDownloadRepository(mongoClient, cfg.MongoDatabase, "downloads")
	if err := downloadStore.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("ensure indexes failed", slog.String("error", err.Error()))
	}
	prefsStore := mongorepo.NewPreferencesRepository(mongoClient, cfg.MongoDatabase, "preferences", cfg.DefaultDownloadPath)

	torrentClient := qbittorrent.New(qbittorrent.Config{
		Host:     cfg.QBittorrentHost,
		Username: cfg.QBittorrentUsername,
		Password: cfg.QBittorrentPassword,
		Timeout:  cfg.QBittorrentTimeout,
	}, logger)
	if err := torrentClient.Login(connectCtx); err != nil {
		// The client retries authentication on the first real call.
		logger.Warn("qbittorrent login failed, continuing", slog.String("error", err.Error()))
	}

	engine := search.NewEngine(
		buildSources(cfg),
		prefsStore,
		buildResponseCache(cfg, logger),
		logger,
		search.Config{Timeout: cfg.SearchTimeout},
	)

	downloads := apihttp.Downloads{
		Add:    usecase.AddDownload{Store: downloadStore, Client: torrentClient, Prefs: prefsStore},
		Status: usecase.GetDownloadStatus{Store: downloadStore, Client: torrentClient},
		Pause:  usecase.PauseDownload{Store: downloadStore, Client: torrentClient},
		Resume: usecase.ResumeDownload{Store: downloadStore, Client: torrentClient},
		Remove: usecase.RemoveDownload{Store: downloadStore, Client: torrentClient, FS: localfs.New()},
		List:   usecase.ListDownloads{Store: downloadStore},
	}
	preferences := apihttp.Preferences{
		Get:            usecase.GetPreferences{Store: prefsStore},
		Update:         usecase.UpdatePreferences{Store: prefsStore},
		FavoritePath:   usecase.EditFavoritePath{Store: prefsStore},
		FavoriteSource: usecase.EditFavoriteSource{Store: prefsStore},
	}

	apiServer := apihttp.NewServer(engine, downloads, preferences, apihttp.WithLogger(logger))
	defer apiServer.Close()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Websocket connections (/ws) stay open indefinitely; keep the
		// write timeout disabled and rely on per-connection deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresh := usecase.RefreshDownloads{
		Store:    downloadStore,
		Client:   torrentClient,
		Notifier: apiServer.Notifier(),
		Logger:   logger,
	}
	go runRefreshLoop(rootCtx, refresh, cfg.RefreshInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("torrenthub started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("torrenthub stopped")
}

// runRefreshLoop reconciles active downloads against the torrent client on
// a fixed interval until the context is cancelled.
func runRefreshLoop(ctx context.Context, refresh usecase.RefreshDownloads, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out, err := refresh.Execute(ctx)
			if err != nil {
				logger.Warn("refresh cycle failed", slog.String("error", err.Error()))
				continue
			}
			metrics.DownloadsRefreshedTotal.Add(float64(out.UpdatedCount))
			metrics.DownloadRefreshErrorsTotal.Add(float64(out.ErrorCount))
			if out.UpdatedCount > 0 || out.ErrorCount > 0 {
				logger.Debug("refresh cycle finished",
					slog.Int("updated", out.UpdatedCount),
					slog.Int("errors", out.ErrorCount),
				)
			}
		}
	}
}

func buildSources(cfg app.Config) []ports.Source {
	httpClient := func() *http.Client {
		return &http.Client{
			Timeout:   cfg.SearchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	sources := []ports.Source{
		apibay.New(apibay.Config{
			Endpoint:  cfg.PirateBayEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    httpClient(),
		}),
	}
	if strings.TrimSpace(cfg.TorznabEndpoint) != "" {
		sources = append(sources, torznab.New(torznab.Config{
			Name:      cfg.TorznabName,
			Endpoint:  cfg.TorznabEndpoint,
			APIKey:    cfg.TorznabAPIKey,
			UserAgent: cfg.UserAgent,
			Client:    httpClient(),
		}))
	}
	return sources
}

func buildResponseCache(cfg app.Config, logger *slog.Logger) *search.ResponseCache {
	if cfg.CacheDisabled {
		logger.Info("search cache disabled")
		return nil
	}

	var backend search.CacheBackend
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache", slog.String("error", err.Error()))
		} else {
			redisClient := redis.NewClient(redisOpts)
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				logger.Warn("redis not reachable, using in-memory cache", slog.String("error", err.Error()))
			} else {
				logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
				backend = search.NewRedisCacheBackend(redisClient)
			}
		}
	}
	if backend == nil {
		backend = search.NewMemoryCacheBackend(0)
	}
	return search.NewResponseCache(backend, cfg.SearchCacheTTL, logger)
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
