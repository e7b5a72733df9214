package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/blobclient"
	"github.com/yourorg/ctk-wopi/pkg/config"
	"github.com/yourorg/ctk-wopi/pkg/events"
	"github.com/yourorg/ctk-wopi/pkg/httpservice"
	"github.com/yourorg/ctk-wopi/pkg/logging"
	"github.com/yourorg/ctk-wopi/pkg/telemetry"
	"github.com/yourorg/ctk-wopi/pkg/wopi"
)

const shutdownTimeout = 30 * time.Second

func main() {
	settings, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(settings.LoggerVerbosity, settings.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	if err := run(settings, logger); err != nil {
		logger.Error("Service stopped with error", logging.NewField("error", err))
		logging.Sync(logger)
		os.Exit(1)
	}
}

func run(settings *config.Settings, logger logging.Logger) error {
	logger.Info("Starting ctk-wopi",
		logging.NewField("version", settings.AppVersion),
		logging.NewField("account_url", settings.AccountURL()),
	)

	blobs, err := blobclient.NewAzureBlobClient(settings.AccountURL(), settings.StorageSAS.Value(), logger)
	if err != nil {
		return fmt.Errorf("failed to create blob client: %w", err)
	}

	publisher, err := newPublisher(settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := publisher.Close(ctx); err != nil {
			logger.Warn("Failed to close event publisher", logging.NewField("error", err))
		}
	}()

	nr, err := telemetry.NewNewRelicClient(telemetry.NewRelicConfig{
		LicenseKey:  settings.NewRelicLicenseKey.Value(),
		AppName:     settings.NewRelicAppName,
		ServiceName: logging.LoggerName,
		Version:     settings.AppVersion,
	}, logger)
	if err != nil {
		return err
	}
	defer nr.Shutdown(10 * time.Second)

	server, err := httpservice.NewServer(httpservice.ServerConfig{
		Port:                 settings.HTTPPort,
		ReadTimeout:          settings.HTTPReadTimeout,
		WriteTimeout:         settings.HTTPWriteTimeout,
		IdleTimeout:          settings.HTTPIdleTimeout,
		Logger:               logger,
		RateLimitRPS:         settings.RateLimitRPS,
		RateLimitBurst:       settings.RateLimitBurst,
		MaxBodySize:          settings.MaxBodySizeBytes,
		SlowRequestThreshold: settings.SlowRequestThreshold,
		Telemetry:            nr,
		Middleware:           []gin.HandlerFunc{nr.TransactionMiddleware()},
	}, wopi.NewHandler(blobs, publisher, settings, logger))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("Shutdown signal received", logging.NewField("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newPublisher(settings *config.Settings, logger logging.Logger) (events.Publisher, error) {
	if !settings.ServiceBusEnabled() {
		logger.Info("Service Bus not configured, file events are dropped")
		return events.NopPublisher{}, nil
	}

	publisher, err := events.NewServiceBusPublisher(events.ServiceBusConfig{
		Namespace: settings.ServiceBusNamespace,
		KeyName:   settings.ServiceBusKeyName,
		KeyValue:  settings.ServiceBusKeyValue.Value(),
		Queue:     settings.ServiceBusQueue,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	return publisher, nil
}
