package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/api"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/auth"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/config"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/kv"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/notify"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store/postgres"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/vault"
	"github.com/Jeffreasy/LaventeCareAuthSystems/pkg/logger"
)

func main() {
	// We mask errors because in production these files won't exist and we
	// rely on system env vars, exactly as the teacher's main.go does.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Logger isn't set up yet; this is a startup-fatal config error.
		os.Stderr.WriteString("config_load_failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Setup(cfg.Environment)
	log.Info("application_startup", "env", cfg.Environment)

	sentryDSN := os.Getenv("SENTRY_DSN")
	if sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              sentryDSN,
			TracesSampleRate: 1.0,
			Environment:      cfg.Environment,
		}); err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry_initialized")
		}
	} else {
		log.Warn("sentry_dsn_missing", "details", "skipping_init")
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("database_connected")

	rdb, err := kv.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis_connect_failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	log.Info("redis_connected")

	if cfg.JWTSecret == "" {
		log.Warn("jwt_secret_missing", "details", "dev_mode_unsafe")
	}

	// Durable stores (C2).
	userStore := postgres.NewUserStore(pool)
	refreshStore := postgres.NewRefreshTokenStore(pool)
	preauthStore := postgres.NewPreAuthSessionStore(pool)
	vaultStore := postgres.NewVaultStore(pool)

	// KV stores (C1).
	otpStore := kv.NewOtpStore(rdb)
	rateLimitStore := kv.NewRateLimitStore(rdb)
	tokenValueStore := kv.NewTokenValueStore(rdb)

	// Email gateway (C3): SMTP in production or whenever SMTP_HOST is set, a
	// logging stand-in otherwise.
	var mailer interface {
		SendOTP(ctx context.Context, to, code string) error
		SendLockoutUnlock(ctx context.Context, to, unlockURL string) error
	}
	if cfg.Environment == "production" || cfg.SMTPHost != "" {
		smtpMailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFromEmail,
		}, log)
		if err != nil {
			log.Error("smtp_mailer_init_failed", "error", err)
			os.Exit(1)
		}
		mailer = smtpMailer
	} else {
		mailer = &notify.DevMailer{Logger: log}
	}

	tokenProvider := auth.NewJWTProvider(cfg.JWTSecret)
	fp := auth.NewFingerprinter(cfg.JWTSecret)

	preauth := auth.NewPreAuthSessionService(preauthStore)
	otpService := auth.NewOtpService(otpStore, rateLimitStore, mailer)
	loginLimiter := auth.NewLoginRateLimiter(rateLimitStore, tokenValueStore, mailer, fp)

	authService := auth.NewAuthService(userStore, refreshStore, preauth, otpService, loginLimiter, tokenProvider, fp)
	vaultService := vault.NewService(vaultStore)

	server := api.NewServer(pool, authService, vaultService, tokenProvider, log, cfg.AppURL, cfg.IsProduction())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server_listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server_startup_failed", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown_signal_received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful_shutdown_failed", "error", err)
			if err := srv.Close(); err != nil {
				log.Error("server_force_close_failed", "error", err)
			}
		}

		pool.Close()
		rdb.Close()
		log.Info("server_shutdown_complete")
	}
}
