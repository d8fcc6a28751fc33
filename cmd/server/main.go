package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/course-watcher/internal/bot"
	"github.com/example/course-watcher/internal/config"
	"github.com/example/course-watcher/internal/database"
	"github.com/example/course-watcher/internal/handler"
	"github.com/example/course-watcher/internal/history"
	"github.com/example/course-watcher/internal/limiter"
	"github.com/example/course-watcher/internal/notifier"
	"github.com/example/course-watcher/internal/queue"
	"github.com/example/course-watcher/internal/registry"
	"github.com/example/course-watcher/internal/repository"
	"github.com/example/course-watcher/internal/router"
	"github.com/example/course-watcher/internal/scheduler"
	"github.com/example/course-watcher/internal/service"
	"github.com/example/course-watcher/internal/upstream"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Storage: MySQL when configured, otherwise in-memory.
	var (
		reg  registry.Registry
		hist history.Store
	)
	if cfg.PersistenceConfigured() {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		if err := database.InitSchema(ctx, db); err != nil {
			log.Fatalf("database: %v", err)
		}
		reg = repository.NewWatchRepo(db, cfg.MaxWatchesPerUser)
		hist = repository.NewHistoryRepo(db)
		log.Printf("storage: mysql at %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	} else {
		reg = registry.NewMemory(cfg.MaxWatchesPerUser)
		hist = history.NewMemory()
		log.Printf("storage: in-memory (no DB_HOST configured)")
	}

	// Rate limiter: Redis when reachable, in-process otherwise.
	var lim limiter.Limiter
	if rdb := config.NewRedisClient(); rdb != nil {
		lim = limiter.NewRedis(rdb, cfg.RatePerMinute, time.Minute)
		log.Printf("limiter: redis-backed, %d/min", cfg.RatePerMinute)
	} else {
		lim = limiter.NewWindow(cfg.RatePerMinute, time.Minute)
		log.Printf("limiter: in-process, %d/min", cfg.RatePerMinute)
	}

	// Upstream session and fetcher.
	session := upstream.NewSession(upstream.SessionOptions{
		BaseURL:    cfg.UpstreamBaseURL,
		Username:   cfg.UpstreamUser,
		Password:   cfg.UpstreamPass,
		TTL:        cfg.SessionTTL,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.RequestTimeout,
	})
	fetcher := upstream.NewFetcher(session, upstream.FetcherOptions{
		BaseURL:    cfg.UpstreamBaseURL,
		Year:       cfg.TermYear,
		Semester:   cfg.TermSemester,
		MaxRetries: cfg.MaxRetries,
	})

	// A failed initial login is degraded mode, not a startup failure; the
	// scheduler and the next user query both retry naturally.
	if err := session.EnsureActive(ctx); err != nil {
		log.Printf("startup: initial login failed, running degraded: %v", err)
	}

	line := notifier.NewLineClient(notifier.LineOptions{AccessToken: cfg.ChannelToken})

	// Events stays a nil interface when no broker is configured.
	var events scheduler.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartResolvedConsumer(cfg.AMQPURL); err != nil {
				log.Printf("resolved-consumer: %v", err)
			}
		}()
	}

	monitor := service.NewMonitor(fetcher, session, reg, hist)

	sched := scheduler.New(scheduler.Options{
		Session:  session,
		Source:   fetcher,
		Registry: reg,
		History:  hist,
		Notifier: line,
		Events:   events,
		Interval: cfg.PollInterval,
		Pause:    cfg.EntryPause,
	})
	go sched.Run(ctx)
	go scheduler.PruneLoop(ctx, hist, cfg.HistoryRetention, time.Hour)

	processor := bot.NewProcessor(monitor, lim, bot.Limits{
		PollIntervalSec: int(cfg.PollInterval / time.Second),
		MaxPerUser:      cfg.MaxWatchesPerUser,
		RatePerMinute:   cfg.RatePerMinute,
	})

	e := echo.New()
	statusHandler := handler.NewStatusHandler(monitor)
	homeHandler := handler.NewHomeHandler(statusHandler,
		int(cfg.PollInterval/time.Second), cfg.MaxWatchesPerUser, cfg.RatePerMinute)
	webhookHandler := handler.NewWebhookHandler(cfg.ChannelSecret, processor, line)
	router.RegisterRoutes(e, homeHandler, statusHandler, webhookHandler)

	if cfg.AdminConfigured() {
		admin := handler.NewAdminHandler(cfg.AdminUser, cfg.AdminPassHash,
			cfg.JWTSecret, cfg.AccessTTLMin, reg, hist)
		router.RegisterAdmin(e, admin, cfg.JWTSecret)
		log.Printf("admin API enabled for user %s", cfg.AdminUser)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
