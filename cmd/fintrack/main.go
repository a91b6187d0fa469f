package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/grpcserver"
	apphttp "fintrack/internal/http"
	"fintrack/internal/live"
	applog "fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentApp)

	ctx, stop := cli.GracefulShutdown(logger.Logger)
	defer stop()

	result := cli.OpenStore(ctx, logger.Logger, cfg)
	defer cli.CloseStore(logger.Logger, result)
	store := result.Store

	// The AMQP mirror is optional; without it the server still works.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events will not be published", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	var sender notify.OTPSender = notify.LogSender{}
	if cfg.MailEnabled() {
		sender = notify.NewMailSender(notify.MailConfig{
			Host:          cfg.SMTPHost,
			Port:          cfg.SMTPPort,
			Username:      cfg.SMTPUsername,
			Password:      cfg.SMTPPassword,
			From:          cfg.SMTPFrom,
			GatewayDomain: cfg.SMSGatewayDomain,
			FallbackTo:    cfg.OTPFallbackEmail,
		})
		logger.Info("OTP delivery over SMTP", "host", cfg.SMTPHost)
	} else {
		logger.Warn("SMTP_HOST not set, OTP codes are only logged")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL)
	hub := live.NewHub()
	defer hub.Close()

	authSvc := services.NewAuthService(store, store, tokens, sender, services.AuthConfig{
		OTPTTL:      cfg.OTPTTL,
		OTPLength:   cfg.OTPLength,
		PhonePrefix: cfg.PhonePrefix,
	})
	txSvc := services.NewTransactionService(store, hub, publisher)

	caches := cache.NewManager()
	txSvc.RegisterCaches(caches)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         authSvc,
		Transactions: txSvc,
		Tokens:       tokens,
		Hub:          hub,
		Store:        store,
		Logger:       logger,
	}, apphttp.Options{
		SecureCookies:          cfg.SecureCookies,
		FeedLimit:              cfg.FeedLimit,
		RateLimitPerMinute:     cfg.RateLimitPerMinute,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		PhonePrefix:            cfg.PhonePrefix,
	})
	// No WriteTimeout: /events responses stay open.
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var grpcSrv *grpcserver.Server
	if cfg.GRPCPort != "" {
		grpcSrv = grpcserver.New(":" + cfg.GRPCPort)
		g.Go(grpcSrv.Start)
		g.Go(func() error {
			grpcSrv.Watch(gctx, 10*time.Second, srv.Ready)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if grpcSrv != nil {
			grpcSrv.Stop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
