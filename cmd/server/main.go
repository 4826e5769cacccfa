package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"meeting-scheduler/internal/app"
	"meeting-scheduler/internal/calendar"
	"meeting-scheduler/internal/config"
	"meeting-scheduler/internal/followup"
	"meeting-scheduler/internal/notify"
	"meeting-scheduler/internal/scheduling"
	"meeting-scheduler/internal/server"
	"meeting-scheduler/internal/store/postgres"
	"meeting-scheduler/internal/store/sqlite"
	"meeting-scheduler/internal/telemetry"
)

const serviceName = "meeting-scheduler"

// backend is what both stores provide.
type backend interface {
	scheduling.Store
	calendar.TokenStore
	Ping(ctx context.Context) error
}

func main() {
	logger := telemetry.NewLogger(serviceName)
	if err := run(logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conf, loc, err := config.Load()
	if err != nil {
		return err
	}

	otelShutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Enabled:     conf.OTelEnabled,
		ServiceName: serviceName,
		Endpoint:    conf.OTelEndpoint,
		SampleRatio: conf.OTelSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	db, closeDB, err := openStore(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	checks := []app.ReadyCheck{{Name: "db", Check: db.Ping}}

	var rdb *redis.Client
	if conf.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		})
		defer rdb.Close()
		checks = append(checks, app.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	google := calendar.NewGoogle(calendar.Config{
		ClientID:     conf.GoogleClientID,
		ClientSecret: conf.GoogleClientSecret,
		RedirectURL:  conf.GoogleRedirectURL,
		StateSecret:  []byte(conf.OAuthStateSecret),
		Location:     loc,
	}, db, logger)

	engineOpts := scheduling.Options{
		Location:    loc,
		BusyTimeout: conf.BusyTimeout,
		Logger:      logger,
	}
	followOpts := followup.Options{
		EventTimeout: conf.EventTimeout,
		Logger:       logger,
	}
	appOpts := app.Options{
		Auth:   app.AuthMiddleware(conf.StaticTokens, conf.JWTHMACSecret),
		Logger: logger,
	}
	if google != nil {
		engineOpts.Busy = google
		followOpts.Events = google
		appOpts.Calendar = google
		if rdb != nil {
			cached := calendar.NewCachedBusy(google, rdb, conf.BusyCacheTTL, logger)
			engineOpts.Busy = cached
			followOpts.Cache = cached
			appOpts.BusyCache = cached
		}
	} else {
		logger.Info("google calendar not configured")
	}

	engine := scheduling.New(db, engineOpts)

	var notifiers notify.Multi
	if conf.SMTPHost != "" {
		notifiers = append(notifiers, notify.NewMailer(notify.SMTPConfig{
			Host:     conf.SMTPHost,
			Port:     conf.SMTPPort,
			Username: conf.SMTPUsername,
			Password: conf.SMTPPassword,
			From:     conf.SMTPFrom,
			Every:    conf.MailInterval,
		}))
	}
	if brokers := notify.SplitBrokers(conf.KafkaBrokers); len(brokers) > 0 {
		pub := notify.NewPublisher(brokers)
		defer pub.Close()
		notifiers = append(notifiers, pub)
		checks = append(checks, app.ReadyCheck{Name: "kafka", Check: notify.ReadyCheck(brokers)})
	}
	async := notify.NewAsync(notifiers, 0, logger)
	defer func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		if err := async.Wait(waitCtx); err != nil {
			logger.Warn("pending notifications abandoned", "err", err)
		}
	}()

	followOpts.Recorder = engine
	followOpts.Notifier = async

	if rdb != nil {
		appOpts.BookingLimiter = app.NewRedisLimiter(rdb, conf.RateLimitPerMinute)
	} else {
		appOpts.BookingLimiter = app.NewMemoryLimiter(conf.RateLimitPerMinute)
	}
	appOpts.Engine = engine
	appOpts.Followup = followup.New(followOpts)
	appOpts.Checks = checks

	gin.SetMode(gin.ReleaseMode)
	router := app.New(appOpts).Router()

	return server.Run(ctx, conf.Port, router, conf.ShutdownTimeout, logger)
}

// openStore picks Postgres when DATABASE_URL is set and SQLite otherwise.
func openStore(ctx context.Context, conf config.Config, logger *slog.Logger) (backend, func(), error) {
	if conf.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, conf.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("using postgres store")
		return pg, pg.Close, nil
	}

	lite, err := sqlite.Open(conf.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using sqlite store", "path", conf.SQLitePath)
	return lite, func() { _ = lite.Close() }, nil
}
