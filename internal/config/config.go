package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration sourced from the environment.
type Config struct {
	AppPort            string
	DatabaseDriver     string
	DatabaseDSN        string
	DBLogLevel         string
	JWTSecret          string
	JWTIssuer          string
	JWTTTL             time.Duration
	BcryptCost         int
	CORSAllowedOrigins string
	RabbitMQURL        string
	RabbitMQQueue      string
	EventsConsume      bool
	SeedUserEmail      string
	SeedUserPassword   string
}

// Supported values for DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "userhub.db")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "userhub")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 0)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "user_events")
	v.SetDefault("EVENTS_CONSUME", false)
	v.SetDefault("SEED_USER_EMAIL", "")
	v.SetDefault("SEED_USER_PASSWORD", "")
}

// Load reads configuration from v (defaults plus environment) and validates it.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		AppPort:            v.GetString("APP_PORT"),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		DatabaseDSN:        strings.TrimSpace(v.GetString("DATABASE_DSN")),
		DBLogLevel:         strings.ToLower(strings.TrimSpace(v.GetString("DB_LOG_LEVEL"))),
		JWTSecret:          strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTIssuer:          strings.TrimSpace(v.GetString("JWT_ISSUER")),
		JWTTTL:             v.GetDuration("JWT_TTL"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		CORSAllowedOrigins: strings.TrimSpace(v.GetString("CORS_ALLOWED_ORIGINS")),
		RabbitMQURL:        strings.TrimSpace(v.GetString("RABBITMQ_URL")),
		RabbitMQQueue:      strings.TrimSpace(v.GetString("RABBITMQ_QUEUE")),
		EventsConsume:      v.GetBool("EVENTS_CONSUME"),
		SeedUserEmail:      strings.TrimSpace(v.GetString("SEED_USER_EMAIL")),
		SeedUserPassword:   v.GetString("SEED_USER_PASSWORD"),
	}

	if !strings.Contains(cfg.AppPort, ":") {
		cfg.AppPort = ":" + cfg.AppPort
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL must be a positive duration, got %q", v.GetString("JWT_TTL"))
	}
	switch cfg.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
		if cfg.DatabaseDSN == "" {
			return Config{}, errors.New("DATABASE_DSN is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.BcryptCost != 0 && (cfg.BcryptCost < 4 || cfg.BcryptCost > 31) {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cfg.BcryptCost)
	}

	return cfg, nil
}

// EventsEnabled reports whether user events should be published.
func (c Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}
