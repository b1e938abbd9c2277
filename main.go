package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"productos/internal/config"
	"productos/internal/database"
	"productos/internal/events"
	"productos/internal/models"
	"productos/internal/repositories"
	"productos/internal/server"
	"productos/pkg/kafka"
	"productos/pkg/rabbitmq"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	setupLogging(cfg)

	// --- Store ---
	store, closeStore := newStore(cfg)
	defer closeStore()

	// --- Event publisher ---
	publisher := newPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}()

	app := server.NewApp(store, publisher, cfg.APIPrefix)

	// --- Start HTTP Server ---
	log.Printf("Starting server on %s", cfg.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

func setupLogging(cfg config.Config) {
	log.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// newStore builds the configured product store. Database trouble is logged
// and the service starts anyway; requests fail until the database is back.
func newStore(cfg config.Config) (server.Store, func()) {
	if cfg.Store == config.StoreMemory {
		store := repositories.NewMemoryProductRepository()
		for _, product := range models.SeedProducts() {
			if err := store.Create(context.Background(), &product); err != nil {
				log.Printf("Error seeding product %s: %v", product.Name, err)
			}
		}
		log.Println("Using in-memory product store")
		return store, func() {}
	}

	driver, dsn := cfg.Database()
	db, err := database.Open(driver, dsn, cfg.DBDebug)
	if err != nil {
		// Without a handle there is nothing to retry against.
		log.Fatalf("Failed to initialize %s database: %v", driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	seeded, err := database.Prepare(ctx, db)
	switch {
	case err != nil:
		log.WithField("driver", driver).WithError(err).Error("Database is not ready; requests will fail until it is reachable")
	case seeded:
		log.WithField("driver", driver).Info("Database connected; inserted sample products")
	default:
		log.WithField("driver", driver).Info("Database connected")
	}

	return repositories.NewGORMProductRepository(db), func() {
		if err := database.Close(db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}

// newPublisher connects the configured broker. A broker that cannot be
// reached disables events rather than stopping the service.
func newPublisher(cfg config.Config) events.Publisher {
	switch cfg.EventsBroker {
	case config.BrokerRabbitMQ:
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue})
		if err != nil {
			log.WithError(err).Error("Product events disabled")
			return events.NopPublisher{}
		}
		return events.NewBrokerPublisher(client)
	case config.BrokerKafka:
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.WithError(err).Error("Product events disabled")
			return events.NopPublisher{}
		}
		return events.NewBrokerPublisher(producer)
	default:
		return events.NopPublisher{}
	}
}
