package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"userhub/internal/config"
	"userhub/internal/database"
	"userhub/internal/models/dto"
	"userhub/internal/repositories"
	"userhub/internal/server"
	"userhub/internal/services"
	"userhub/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; relying on existing environment")
	}
	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Initialize Repository ---
	repo, closeStore, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize user store: %v", err)
	}
	defer closeStore()

	// --- Initialize RabbitMQ Client (optional) ---
	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient

		if cfg.EventsConsume {
			log.Println("Starting RabbitMQ consumer for user events...")
			if err := mqClient.ConsumeUserEvents(rabbitmq.LogUserEvent); err != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", err)
			}
		}
	} else {
		log.Println("RABBITMQ_URL not set; user events are disabled")
	}

	srv := server.New(cfg, repo, publisher)

	seedUser(srv.Users, cfg)

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.App.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := srv.App.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// openRepository returns the configured user store and a function that
// releases it.
func openRepository(cfg config.Config) (repositories.UserRepository, func(), error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		log.Println("Using in-memory user store; data is lost on restart")
		return repositories.NewMemoryUserRepository(), func() {}, nil
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.DBLogLevel)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return repositories.NewGORMUserRepository(db), closeDB, nil
}

// seedUser creates the configured initial account so a fresh install can
// log in. An existing account with the same email is left alone.
func seedUser(users *services.UserService, cfg config.Config) {
	if cfg.SeedUserEmail == "" || cfg.SeedUserPassword == "" {
		return
	}
	_, err := users.CreateUser(context.Background(), dto.CreateUserRequest{
		Firstname: "Admin",
		Lastname:  "User",
		Email:     cfg.SeedUserEmail,
		Phone:     "0000000000",
		Password:  cfg.SeedUserPassword,
	})
	switch {
	case err == nil:
		log.Printf("Seeded user: %s", cfg.SeedUserEmail)
	case errors.Is(err, services.ErrEmailTaken):
		log.Printf("Seed user %s already exists", cfg.SeedUserEmail)
	default:
		log.Printf("Error seeding user %s: %v", cfg.SeedUserEmail, err)
	}
}
