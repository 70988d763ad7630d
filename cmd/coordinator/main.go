package main

import (
	"context"

	"reservd/internal/coordinator/events"
	"reservd/internal/coordinator/handler"
	"reservd/internal/coordinator/repository"
	"reservd/internal/coordinator/service"
	"reservd/internal/coordinator/validator"
	"reservd/pkg/app"
	"reservd/pkg/clock"
	"reservd/pkg/config"
	"reservd/pkg/contracts"
	"reservd/pkg/kafka"
	kafka_config "reservd/pkg/kafka/config"
	kafka_middleware "reservd/pkg/kafka/middleware"
)

const ServiceName = "coordinator"

type handlers struct {
	health contracts.Handler
	api    contracts.Handler
	stream contracts.Handler
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting reservation coordinator service")

	directory, sink := initServices(cfg)
	h := initHandlers(cfg, directory)

	consumerCancel := startBookingConsumer(cfg, directory)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, h.health, h.api, h.stream)
	serverApp.OnShutdown(func() {
		if consumerCancel != nil {
			consumerCancel()
		}
		directory.Shutdown()
		if sink != nil {
			if err := sink.Close(); err != nil {
				cfg.Log.Error("Failed to close allocation publisher", "error", err)
			}
		}
	})
	serverApp.Run()
}

func initServices(cfg *config.Config) (*service.Directory, *events.AllocationPublisher) {
	repo := repository.NewMongoSnapshotRepository(cfg)

	var sink *events.AllocationPublisher
	var directorySink service.EventSink
	if cfg.KafkaEnabled {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}

		producer, err := kafka.NewProducer(kafkaCfg, cfg.AllocationTopic, cfg.AllocationTopic+".dlq")
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

		sink = events.NewAllocationPublisher(cfg, producer)
		directorySink = sink
		cfg.Log.Info("Allocation event publishing enabled", "topic", cfg.AllocationTopic)
	}

	directory := service.NewDirectory(cfg, repo, clock.NewSystem(), directorySink)

	cfg.Log.Info("Coordinator directory initialized", "database", cfg.MongoDatabaseName)
	return directory, sink
}

func initHandlers(cfg *config.Config, directory *service.Directory) handlers {
	reservationValidator := validator.NewReservationValidator(cfg.Log)

	return handlers{
		health: handler.NewHealthHandler(cfg.Client.Mongo, directory, cfg.Log),
		api:    handler.NewReservationHandler(directory, reservationValidator, cfg.Log),
		stream: handler.NewSubscribeHandler(directory, cfg.Log),
	}
}

func startBookingConsumer(cfg *config.Config, directory *service.Directory) context.CancelFunc {
	if !cfg.KafkaEnabled {
		return nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	consumer, err := events.NewBookingEventConsumer(cfg, kafkaCfg, directory)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking event consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		cfg.Log.Info("Booking event consumer started", "topic", cfg.BookingEventsTopic)
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			cfg.Log.Error("Booking event consumer stopped", "error", err)
		}
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close booking event consumer", "error", err)
		}
	}()

	return cancel
}
