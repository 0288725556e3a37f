package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"unistay/internal/notifications/consumer"
	notificationrepo "unistay/internal/notifications/repository"
	notificationservice "unistay/internal/notifications/service"
	"unistay/pkg/config"
	"unistay/pkg/kafka"
	kafka_config "unistay/pkg/kafka/config"
	kafka_middleware "unistay/pkg/kafka/middleware"
	"unistay/pkg/metrics"

	"github.com/joho/godotenv"
)

const ServiceName = "unistay-notifier"

func main() {
	_ = godotenv.Load()

	cfg := config.LoadWorker(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	service := notificationservice.NewNotificationService(notificationrepo.NewMongoNotificationRepository(cfg), cfg.Log)
	handler := consumer.NewBookingEvents(service, cfg.Log)

	bookingEvents, err := kafka.NewConsumer(kafkaCfg, cfg.Log, cfg.BookingEventsTopic, kafkaCfg.NotifierGroup, kafkaCfg.DLQTopic, handler.Handle)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		bookingEvents.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		bookingEvents.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	metricsServer := &http.Server{Addr: ":" + cfg.Port, Handler: metrics.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Notifier consuming booking events",
		"topic", cfg.BookingEventsTopic,
		"group", kafkaCfg.NotifierGroup,
		"dlq", kafkaCfg.DLQTopic,
	)
	if err := bookingEvents.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Booking events consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutting down notifier")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Metrics server shutdown failed", "error", err)
	}
	if err := bookingEvents.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
}
