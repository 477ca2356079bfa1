package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/proxydeck/internal/cache"
	"github.com/MrSnakeDoc/proxydeck/internal/config"
	"github.com/MrSnakeDoc/proxydeck/internal/domain"
	"github.com/MrSnakeDoc/proxydeck/internal/httpserver"
	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/proxydeck/internal/logger"
	"github.com/MrSnakeDoc/proxydeck/internal/redis"
	"github.com/MrSnakeDoc/proxydeck/internal/source"
	filesource "github.com/MrSnakeDoc/proxydeck/internal/source/file"
	"github.com/MrSnakeDoc/proxydeck/internal/source/npm"
	sqlitesource "github.com/MrSnakeDoc/proxydeck/internal/source/sqlite"
	redisstore "github.com/MrSnakeDoc/proxydeck/internal/store/redis"
	"github.com/MrSnakeDoc/proxydeck/internal/titles"
	"github.com/MrSnakeDoc/proxydeck/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	cache       *cache.Cache
	redisClient *goredis.Client
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	fetcher, adminURL := buildSource(cfg, loggerClient)

	// Display-name overrides live next to the process, not in the source.
	titlesStore := titles.NewStore(cfg.TitlesPath)
	if err := titlesStore.Load(); err != nil {
		loggerClient.Warn("failed to load title overrides, starting empty",
			logger.Error(err))
	}

	// Optional snapshot mirror. Unreachable Redis degrades to no mirror;
	// the in-memory snapshot is the source of truth either way.
	var redisClient *goredis.Client
	var mirror cache.Mirror
	if cfg.RedisAddr != "" {
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDialTimeout,
			ReadTimeout:    cfg.RedisReadTimeout,
			WriteTimeout:   cfg.RedisWriteTimeout,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
		}, loggerClient)
		if err != nil {
			loggerClient.Warn("redis unavailable, snapshot mirroring disabled",
				logger.Error(err))
		} else {
			redisClient = client
			mirror = redisstore.NewMirror(client)
		}
	}

	snapCache := cache.New(cache.Config{
		Interval:        cfg.PollInterval,
		FetchTimeout:    cfg.FetchTimeout,
		PageTitle:       cfg.PageTitle,
		PublicHTTPPort:  cfg.PublicHTTPPort,
		PublicHTTPSPort: cfg.PublicHTTPSPort,
	}, fetcher, mirror, loggerClient)

	// Seed from the mirror so a restart serves known data before the
	// first poll completes.
	if redisClient != nil {
		seedCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		snap, err := redisstore.NewMirror(redisClient).LoadSnapshot(seedCtx)
		cancel()
		switch {
		case err != nil:
			loggerClient.Warn("failed to load mirrored snapshot", logger.Error(err))
		case snap != nil:
			snapCache.Seed(snap)
			loggerClient.Info("seeded cache from mirrored snapshot",
				logger.String("version", snap.Version),
				logger.Int("count", len(snap.Services)))
		}
	}

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		Cache:            snapCache,
		Titles:           titlesStore,
		AdminURL:         adminURL,
		IncludeRedirects: cfg.IncludeRedirects,
		IncludeStreams:   cfg.IncludeStreams,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		cache:       snapCache,
		redisClient: redisClient,
	}
}

// buildSource picks the data source by configuration priority: the
// proxy-manager API, then its SQLite database, then a YAML hosts file,
// then an empty source so the service still boots.
func buildSource(cfg *config.Config, log logger.Logger) (cache.Fetcher, func(domain.Kind, string) string) {
	if cfg.NPMBaseURL != "" {
		client, err := npm.New(cfg.NPMBaseURL, cfg.NPMEmail, cfg.NPMPassword)
		if err != nil {
			log.Errorf("failed to build npm client: %v", err)
			os.Exit(1)
		}
		log.Info("using npm api data source", logger.String("base_url", cfg.NPMBaseURL))
		return client, client.AdminEditURL
	}

	if cfg.SQLitePath != "" {
		reader, err := sqlitesource.NewReader(cfg.SQLitePath)
		if err != nil {
			log.Errorf("failed to build sqlite reader: %v", err)
			os.Exit(1)
		}
		log.Info("using sqlite data source", logger.String("path", cfg.SQLitePath))
		return reader, nil
	}

	if cfg.HostsFile != "" {
		log.Info("using yaml hosts file data source", logger.String("path", cfg.HostsFile))
		return filesource.NewReader(cfg.HostsFile), nil
	}

	log.Warn("no data source configured, serving an empty snapshot")
	return source.NullReader{}, nil
}

func (a *App) Run() error {
	a.logger.Infof("starting proxydeck %s (commit=%s, built=%s, go=%s) on %s",
		version.Version, version.Commit, version.BuildDate, version.GoVersion, a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// First poll happens synchronously inside Start; a failure is logged
	// and the empty (or seeded) snapshot keeps serving.
	if err := a.cache.Start(ctx); err != nil {
		return fmt.Errorf("failed to start snapshot cache: %w", err)
	}
	a.logger.Info("snapshot cache started",
		logger.Duration("interval", a.cfg.PollInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.cache.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		}
	}

	a.logger.Info("proxydeck stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
