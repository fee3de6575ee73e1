package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/config"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/cryptox"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/logging"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/media"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/minio"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/ports"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/postgres"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/repository/resetstore"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/service"
	httpx "github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/transport/http"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/transport/mail"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/transport/queue"
	"github.com/Bintou284/gestion-ecole-en-ligne-sub001/internal/util"
)

const (
	serviceName     = "school-api"
	swaggerSpecPath = "docs/swagger.yaml"
	shutdownTimeout = 10 * time.Second
)

// app holds the process-wide resources shared by every command.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	db     *sqlx.DB
	closer io.Closer
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log, closer := logging.New(cfg.LogLevel, cfg.LogstashTCPAddr, serviceName)

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			_ = closer.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &app{cfg: cfg, log: log, db: db, closer: closer}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
	_ = a.closer.Close()
}

func (a *app) notificationSubject() string {
	return a.cfg.NotificationQueue + ".events"
}

// resetStore picks the password reset backend. A Redis store that cannot be
// reached falls back to process memory.
func (a *app) resetStore(ctx context.Context) (ports.PasswordResetStore, func()) {
	switch a.cfg.PasswordResetStore {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		store, shared := resetstore.New(ctx, client, resetstore.DefaultRetention)
		if !shared {
			a.log.Warn().Str("addr", a.cfg.RedisAddr).Msg("redis unreachable, password reset tokens kept in memory")
		}
		return store, func() { _ = client.Close() }
	case "memory":
		a.log.Warn().Msg("password reset tokens kept in memory")
		return resetstore.NewMemory(), func() {}
	default:
		return postgres.NewPasswordResetRepo(a.db), func() {}
	}
}

func (a *app) newConsumer(js nats.JetStreamContext, users ports.UserRepository, notifications ports.NotificationRepository) (*queue.Consumer, error) {
	projector := service.NewNotificationProjector(users, notifications, a.cfg.NotificationMaxDeliver, a.log)
	return queue.NewConsumer(js, queue.ConsumerConfig{
		Stream:     a.cfg.NotificationQueue,
		Subject:    a.notificationSubject(),
		Durable:    a.cfg.NotificationConsumer,
		MaxDeliver: a.cfg.NotificationMaxDeliver,
		RetryDelay: a.cfg.NotificationRetryDelay,
	}, projector.Handle, a.log)
}

// startNotifications declares the notification stream and, with withConsumer,
// runs the projector. A broker that is down only delays both: publishes fail
// and are logged until the stream exists.
func (a *app) startNotifications(ctx context.Context, js nats.JetStreamContext, withConsumer bool, users ports.UserRepository, notifications ports.NotificationRepository) {
	var consumer *queue.Consumer
	err := queue.Retry(ctx, time.Second, func() error {
		if !withConsumer {
			return queue.EnsureStream(js, a.cfg.NotificationQueue, a.notificationSubject())
		}
		var err error
		consumer, err = a.newConsumer(js, users, notifications)
		return err
	}, func(err error, wait time.Duration) {
		a.log.Warn().Err(err).Dur("retry_in", wait).Msg("notification stream unavailable")
	})
	if err != nil || consumer == nil {
		return
	}
	if err := consumer.Run(ctx); err != nil {
		a.log.Error().Err(err).Msg("notification consumer stopped")
	}
}

func runServe(parent context.Context, withConsumer bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	users := postgres.NewUserRepo(a.db)
	notifications := postgres.NewNotificationRepo(a.db)
	formations := postgres.NewFormationRepo(a.db)
	courses := postgres.NewCourseRepo(a.db)
	resources := postgres.NewCourseResourceRepo(a.db)
	schedules := postgres.NewScheduleRepo(a.db)
	profiles := postgres.NewStudentProfileRepo(a.db)
	bank := postgres.NewBankDetailsRepo(a.db)

	nc, js, err := queue.Connect(cfg.NATSURL, serviceName)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer queue.Close(nc)
	publisher := queue.NewPublisher(js, a.notificationSubject(), queue.DefaultPublishTimeout, queue.WithConnection(nc))
	notifier := service.NewNotificationService(publisher, notifications, log)

	store, closeStore := a.resetStore(ctx)
	defer closeStore()

	// Background workers use the database, the broker and the reset store;
	// they are joined before any of those is closed.
	var workers sync.WaitGroup
	defer workers.Wait()
	defer stop()
	workers.Add(1)
	go func() {
		defer workers.Done()
		a.startNotifications(ctx, js, withConsumer, users, notifications)
	}()

	minioClient, err := minio.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		return fmt.Errorf("minio client: %w", err)
	}
	storage := minio.NewStorage(minioClient, cfg.MinIOPublicURL)
	if err := storage.EnsureBuckets(ctx, cfg.MinIOBucketResources, cfg.MinIOBucketAvatars); err != nil {
		return fmt.Errorf("ensure buckets: %w", err)
	}

	mailer := mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPUseTLS)
	if !mailer.Configured() {
		log.Warn().Msg("smtp not configured, activation and reset emails will fail")
	}

	// A missing key only breaks the bank details endpoints, on first use.
	cipher, err := cryptox.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		log.Warn().Err(err).Msg("bank details encryption disabled")
		cipher = nil
	}

	jwtManager := util.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := service.NewAuthService(users, jwtManager, mailer, notifier, service.AuthConfig{
		GoogleAudience: cfg.GoogleAudience,
		BcryptCost:     cfg.BcryptCost,
		ActivationTTL:  cfg.ActivationTTL,
		FrontendURL:    cfg.FrontendBaseURL,
	}, log)
	resetSvc := service.NewPasswordResetService(users, store, mailer, service.PasswordResetConfig{
		TTL:         cfg.PasswordResetTTL,
		BcryptCost:  cfg.BcryptCost,
		FrontendURL: cfg.FrontendBaseURL,
	}, log)
	courseSvc := service.NewCourseService(formations, courses, resources, users, storage, notifier, service.CourseConfig{
		ResourceBucket:   cfg.MinIOBucketResources,
		ResourceMaxBytes: cfg.ResourceMaxBytes,
	}, log)
	scheduleSvc := service.NewScheduleService(schedules, courses, profiles, users, notifier, log)
	profileSvc := service.NewProfileService(profiles, bank, formations, storage, media.NewScaleProcessor(cfg.AvatarMaxDimension), cipher, service.ProfileConfig{
		AvatarBucket:       cfg.MinIOBucketAvatars,
		AvatarMaxBytes:     cfg.AvatarMaxBytes,
		AvatarMaxDimension: cfg.AvatarMaxDimension,
	}, log)

	e := httpx.NewRouter(cfg.AllowOrigins, log)
	httpx.RegisterSwagger(e, swaggerSpecPath)
	api := httpx.API(e)
	httpx.RegisterAuth(api, authSvc, resetSvc, httpx.RateLimit{PerMinute: cfg.LoginRateLimitPerMin, Burst: cfg.LoginRateLimitBurst}, log)
	httpx.RegisterNotifications(api, authSvc, notifier, log)
	httpx.RegisterCourses(api, authSvc, courseSvc, cfg.ResourceMaxBytes, log)
	httpx.RegisterSchedules(api, authSvc, scheduleSvc, log)
	httpx.RegisterProfiles(api, authSvc, profileSvc, cfg.AvatarMaxBytes, log)

	workers.Add(1)
	go func() {
		defer workers.Done()
		sweepResets(ctx, resetSvc, cfg.ResetSweepInterval, log)
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func runConsume(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	nc, js, err := queue.Connect(a.cfg.NATSURL, serviceName)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer queue.Close(nc)

	var consumer *queue.Consumer
	err = queue.Retry(ctx, time.Second, func() error {
		var err error
		consumer, err = a.newConsumer(js, postgres.NewUserRepo(a.db), postgres.NewNotificationRepo(a.db))
		return err
	}, func(err error, wait time.Duration) {
		a.log.Warn().Err(err).Dur("retry_in", wait).Msg("notification stream unavailable")
	})
	if err != nil {
		// Retry only gives up on shutdown.
		return nil
	}
	return consumer.Run(ctx)
}

func runMigrate(ctx context.Context) error {
	cfg := config.Load()
	log, closer := logging.New(cfg.LogLevel, cfg.LogstashTCPAddr, serviceName)
	defer closer.Close()

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}

func runSweepResets(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	store, closeStore := a.resetStore(ctx)
	defer closeStore()
	svc := service.NewPasswordResetService(postgres.NewUserRepo(a.db), store, nil, service.PasswordResetConfig{TTL: a.cfg.PasswordResetTTL}, a.log)
	removed, err := svc.CleanExpiredTokens(ctx)
	if err != nil {
		return err
	}
	a.log.Info().Int("removed", removed).Msg("expired password reset tokens removed")
	return nil
}

func sweepResets(ctx context.Context, svc *service.PasswordResetService, every time.Duration, log zerolog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.CleanExpiredTokens(ctx); err != nil {
				log.Warn().Err(err).Msg("password reset sweep failed")
			}
		}
	}
}
