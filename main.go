package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"callmail/internal/audio"
	"callmail/internal/common/logging"
	"callmail/internal/config"
	"callmail/internal/handlers"
	"callmail/internal/middleware"
	"callmail/internal/notify"
	"callmail/internal/server"
	"callmail/internal/signature"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal("Invalid configuration", err)
	}

	verifier := signature.NewVerifier(&signature.Config{
		Secret:    cfg.WebhookSecret,
		Header:    cfg.SignatureHeader,
		Tolerance: cfg.GetSignatureTolerance(),
	}, logger)

	fetcher := audio.NewFetcher(audio.Config{
		BaseURL:   cfg.VoiceAPIBaseURL,
		APIKey:    cfg.VoiceAPIKey,
		KeyHeader: cfg.VoiceAPIKeyHeader,
		Timeout:   cfg.GetAudioFetchTimeout(),
	}, logger)
	if !cfg.AudioConfigured() {
		logger.Warn("Voice API key not set, audio fetches will fail and reports will be skipped")
	}

	mailer := notify.NewMailer(notify.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		FromName:   cfg.SMTPFromName,
		To:         cfg.SMTPTo,
		UseTLS:     cfg.SMTPUseTLS,
		UseSSL:     cfg.SMTPUseSSL,
		SkipVerify: cfg.SMTPSkipVerify,
		Timeout:    cfg.GetSMTPTimeout(),
	}, logger)

	var monitor *notify.Monitor
	if cfg.MailConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := mailer.Verify(ctx); err != nil {
			logger.Warn("SMTP connectivity check failed, deliveries may not go through",
				logging.Err(err))
		}
		cancel()

		monitor = notify.NewMonitor(mailer, cfg.MailHealthSchedule, logger)
		if err := monitor.Start(); err != nil {
			fatal("Failed to start mail health monitor", err)
		}
	} else {
		logger.Warn("SMTP settings incomplete, webhooks will be accepted but reports will not be delivered")
	}

	h := handlers.New(verifier, fetcher, mailer, cfg, monitor, logger)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware, middleware.LoggingMiddleware)

	// HandleWebhook enforces the method itself so rejected verbs still get
	// the documented JSON error body.
	router.HandleFunc("/webhook", h.HandleWebhook)
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	srv := server.New(router, cfg.Port, logger)
	if err := srv.Start(); err != nil {
		fatal("Server failed to start", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down", logging.String("signal", sig.String()))

	if monitor != nil {
		monitor.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
		return
	}

	logger.Info("Server exited")
}

// fatal logs the error and exits. os.Exit skips deferred calls, so the
// log buffer is flushed here explicitly.
func fatal(msg string, err error) {
	logging.Error(msg, err)
	logging.MustSync()
	os.Exit(1)
}
