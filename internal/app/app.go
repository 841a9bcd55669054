// Package app wires configuration, store, scheduler, sinks and the HTTP
// server into one runnable monitor.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/subwatch/subwatch/internal/config"
	"github.com/subwatch/subwatch/internal/crtsh"
	"github.com/subwatch/subwatch/internal/httpserver"
	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/liveness"
	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/monitor"
	"github.com/subwatch/subwatch/internal/notify"
	"github.com/subwatch/subwatch/internal/redis"
	"github.com/subwatch/subwatch/internal/store/postgres"
	redisstore "github.com/subwatch/subwatch/internal/store/redis"
	"github.com/subwatch/subwatch/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	scheduler   *monitor.Scheduler
	db          *sql.DB
	redisClient *goredis.Client
	natsSink    *notify.NATSSink
}

func New(configFile string) *App {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	if err := cfg.Validate(); err != nil {
		loggerClient.Fatal("invalid configuration", logger.Error(err))
	}

	// Postgres is mandatory - fail fast if unavailable
	loggerClient.Infof("Connecting to Postgres at %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := postgres.Open(cfg.DSN())
	if err != nil {
		loggerClient.Fatal("failed to connect to postgres", logger.Error(err))
	}
	store := postgres.New(db, loggerClient)
	if err := store.Migrate(context.Background(), cfg.DefaultDomain()); err != nil {
		loggerClient.Fatal("failed to run migrations", logger.Error(err))
	}

	// Redis is optional: without it every liveness check hits the network.
	var redisClient *goredis.Client
	var livenessCache *redisstore.Cache
	if cfg.RedisAddr != "" {
		redisClient, err = redis.New(redis.ConnectOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, loggerClient)
		if err != nil {
			loggerClient.Warn("redis unavailable, liveness caching disabled", logger.Error(err))
			redisClient = nil
		} else {
			livenessCache = redisstore.NewCache(redisClient)
		}
	}

	checker := liveness.New(cfg.DNSResolver, cfg.ProbeTimeout, livenessCache,
		cfg.LivenessCacheTTL, loggerClient)

	sinks, natsSink := buildSinks(cfg, loggerClient)
	notifier := notify.New(loggerClient, sinks...)

	source := crtsh.New(cfg.CrtshBaseURL, cfg.FetchTimeout, cfg.FetchMinGap, loggerClient)

	mon := monitor.New(source, store, notifier, loggerClient)
	scheduler := monitor.NewScheduler(mon, cfg.Domains, cfg.Interval, loggerClient)
	scheduler.OnChange(func(domains []string, interval time.Duration) {
		st := config.State{
			Domains:         domains,
			IntervalSeconds: int(interval / time.Second),
		}
		if err := config.SaveState(cfg.StateFile, st); err != nil {
			loggerClient.Warn("failed to persist runtime state", logger.Error(err))
		}
	})

	d := deps.Deps{
		Logger:      loggerClient,
		StartTime:   time.Now(),
		Version:     version.Version,
		Commit:      version.Commit,
		BuildDate:   version.BuildDate,
		GoVersion:   version.GoVersion,
		Scheduler:   scheduler,
		Records:     store,
		Liveness:    checker,
		DB:          db,
		RedisClient: redisClient,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		scheduler:   scheduler,
		db:          db,
		redisClient: redisClient,
		natsSink:    natsSink,
	}
}

// buildSinks assembles the notification sinks the configuration enables.
// Validate already guaranteed at least one.
func buildSinks(cfg *config.Config, log logger.Logger) ([]notify.Sink, *notify.NATSSink) {
	var sinks []notify.Sink
	var natsSink *notify.NATSSink

	if cfg.TelegramEnabled() {
		sinks = append(sinks, notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Info("telegram sink enabled")
	}
	if cfg.DiscordWebhookURL != "" {
		sinks = append(sinks, notify.NewDiscord(cfg.DiscordWebhookURL))
		log.Info("discord sink enabled")
	}
	if cfg.NATSURL != "" {
		sink, err := notify.NewNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			log.Warn("nats sink unavailable", logger.Error(err))
		} else {
			sinks = append(sinks, sink)
			natsSink = sink
			log.Info("nats sink enabled", logger.String("subject", cfg.NATSSubject))
		}
	}
	return sinks, natsSink
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting subwatch v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Infof("subwatch %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedulerDone := make(chan struct{})
	go func() {
		a.scheduler.Run(ctx)
		close(schedulerDone)
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Wait for in-flight cycles before tearing down the stores they use.
	select {
	case <-schedulerDone:
	case <-time.After(a.cfg.ShutdownTimeout):
		a.logger.Warn("scheduler did not stop in time")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.natsSink != nil {
		a.natsSink.Close()
		a.logger.Info("✅ NATS connection closed")
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warnf("failed to close postgres: %v", err)
	}

	a.logger.Info("✅ subwatch stopped cleanly")
	return nil
}
