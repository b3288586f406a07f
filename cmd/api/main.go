package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-patient-monitor/internal/application/alert"
	"github.com/go-patient-monitor/internal/application/auth"
	"github.com/go-patient-monitor/internal/application/device"
	"github.com/go-patient-monitor/internal/application/generator"
	"github.com/go-patient-monitor/internal/application/notification"
	"github.com/go-patient-monitor/internal/application/realtime"
	"github.com/go-patient-monitor/internal/application/vitals"
	"github.com/go-patient-monitor/internal/config"
	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/infrastructure/channel"
	"github.com/go-patient-monitor/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-patient-monitor/internal/infrastructure/jwt"
	"github.com/go-patient-monitor/internal/infrastructure/memory"
	"github.com/go-patient-monitor/internal/infrastructure/readings"
	redisinfra "github.com/go-patient-monitor/internal/infrastructure/redis"
	s3infra "github.com/go-patient-monitor/internal/infrastructure/s3"
	"github.com/go-patient-monitor/internal/infrastructure/smtp"
	"github.com/go-patient-monitor/internal/infrastructure/sns"
	"github.com/go-patient-monitor/internal/protocol"
	transporthttp "github.com/go-patient-monitor/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}
	authSvc := auth.NewService(auth.Account{
		UserID:       "caregiver-1",
		Email:        cfg.AuthEmail,
		PasswordHash: cfg.AuthPasswordHash,
		Role:         cfg.AuthRole,
	}, jwtProvider, logger)

	blob, err := newAlertBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("alert store backend: %w", err)
	}
	store := alert.NewStore(blob, cfg.AlertStoreKey, logger)
	if err := store.Load(ctx); err != nil {
		// Loading is retried on first use; the service still starts.
		logger.Warn("initial alert load failed", "err", err)
	}
	unread := alert.NewUnreadCounter(ctx, store, func(n int) {
		logger.Debug("unread alerts changed", "count", n)
	})
	defer unread.Close()
	if !unread.Seeded() {
		logger.Warn("unread counter unavailable until storage recovers")
		go seedUnreadCounter(ctx, unread, logger)
	}

	deviceSvc := device.NewService(newDeviceRepo(ctx, cfg, logger), logger)
	vitalsSvc := vitals.NewService("Home")
	gen := generator.New(logger)
	defer gen.Stop()

	hub := transporthttp.NewHub(jwtProvider, logger)
	defer hub.Close()
	cancelAlerts := store.Subscribe(hub.AlertObserver(store))
	defer cancelAlerts()
	cancelDevices := deviceSvc.Subscribe(hub.DeviceObserver)
	defer cancelDevices()

	var publishers []notification.Publisher
	if cfg.SNSTopicARN != "" {
		publisher, err := sns.NewTopicPublisher(cfg)
		if err != nil {
			return fmt.Errorf("sns publisher: %w", err)
		}
		publishers = append(publishers, publisher)
	}
	if cfg.SMTPHost != "" {
		publishers = append(publishers, smtp.NewMailer(cfg))
	}
	for _, publisher := range publishers {
		notifier := notification.NewService(publisher, domain.Severity(cfg.NotifyMinSeverity), logger)
		cancelNotify := store.Subscribe(notifier.Observe)
		defer func() {
			cancelNotify()
			notifier.Wait()
		}()
	}

	if cfg.DemoSeed {
		if _, err := gen.SeedDemo(ctx, store); err != nil {
			logger.Warn("demo seed failed", "err", err)
		}
	}

	if cfg.ChannelURL != "" {
		client := channel.NewClient(cfg.ChannelURL, channel.Options{
			Logger:         logger,
			ConnectTimeout: cfg.ChannelConnectTimeout,
			Reconnect: channel.ReconnectPolicy{
				MaxRetries: cfg.ChannelReconnect.MaxRetries,
				BaseDelay:  cfg.ChannelReconnect.BaseDelay,
				MaxDelay:   cfg.ChannelReconnect.MaxDelay,
			},
			OnError: func(event protocol.EventName, err error) {
				logger.Warn("event listener failed", "event", event, "err", err)
			},
		})
		bridge := realtime.NewBridge(store, deviceSvc, logger)
		detach := bridge.Attach(client)
		defer func() {
			detach()
			client.Disconnect()
		}()

		token, err := authSvc.ServiceToken()
		if err != nil {
			return fmt.Errorf("channel credential: %w", err)
		}
		if err := client.Connect(ctx, token); err != nil {
			logger.Warn("event channel not connected", "url", cfg.ChannelURL, "err", err)
		}
	}

	deps := &transporthttp.Deps{
		Logger:    logger,
		Alerts:    store,
		Unread:    unread,
		Generator: gen,
		Devices:   deviceSvc,
		Vitals:    vitalsSvc,
		Auth:      authSvc,
		Verifier:  jwtProvider,
		Hub:       hub,
	}
	if cfg.ReadingsAPIURL != "" {
		deps.Readings = readings.NewClient(cfg.ReadingsAPIURL, readingsToken(authSvc, logger))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newAlertBlobStore(ctx context.Context, cfg *config.Config) (alert.BlobStore, error) {
	switch cfg.AlertStoreBackend {
	case "memory":
		return memory.NewBlobStore(), nil
	case "s3":
		return s3infra.NewStore(s3infra.NewClient(cfg), cfg.S3BucketName), nil
	case "redis":
		client, err := redisinfra.Connect(ctx, cfg.RedisURL, 5, time.Second, 30*time.Second)
		if err != nil {
			return nil, err
		}
		return redisinfra.NewStore(client), nil
	}
	return nil, fmt.Errorf("unknown ALERT_STORE_BACKEND %q", cfg.AlertStoreBackend)
}

type deviceRepo interface {
	List(ctx context.Context) ([]domain.Device, error)
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	Put(ctx context.Context, d *domain.Device) error
	Update(ctx context.Context, deviceID string, updates map[string]interface{}) error
	Delete(ctx context.Context, deviceID string) (bool, error)
}

// newDeviceRepo falls back to the in-memory fleet when DynamoDB cannot be
// configured.
func newDeviceRepo(ctx context.Context, cfg *config.Config, logger *slog.Logger) deviceRepo {
	if cfg.DeviceStoreBackend == "dynamo" {
		client, err := dynamo.NewClient(ctx, cfg)
		if err == nil {
			// Creates the tables if they don't exist.
			dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
			return dynamo.NewDeviceRepo(client, cfg.DynamoTables.Devices)
		}
		logger.Error("dynamo device store unavailable, using in-memory devices", "err", err)
	}
	return memory.NewDeviceRepo(memory.MockDevices(time.Now())...)
}

// seedUnreadCounter refreshes the counter until one read succeeds so the badge
// shows a real count rather than zero. A committed change also seeds it.
func seedUnreadCounter(ctx context.Context, unread *alert.UnreadCounter, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for !unread.Seeded() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := unread.Refresh(ctx); err != nil {
				logger.Warn("unread counter still unavailable", "err", err)
			}
		}
	}
	logger.Info("unread counter seeded", "count", unread.Count())
}

// readingsToken prefers the signed-in caregiver's credential and falls back to
// a service credential for the configured account.
func readingsToken(authSvc auth.Service, logger *slog.Logger) func() string {
	return func() string {
		if tok := authSvc.Token(); tok != "" {
			return tok
		}
		tok, err := authSvc.ServiceToken()
		if err != nil {
			logger.Warn("readings credential unavailable", "err", err)
			return ""
		}
		return tok
	}
}
