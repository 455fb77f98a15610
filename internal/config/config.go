package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Log configures the zap logger shared by both binaries.
type Log struct {
	Level      string `env:"LOG_LEVEL" env-default:"info"`
	Format     string `env:"LOG_FORMAT" env-default:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" env-default:"7"`
}

// Gateway is the configuration of the backend service.
type Gateway struct {
	Address        string        `env:"GATEWAY_ADDRESS" env-default:":8008"`
	DatabasePath   string        `env:"GATEWAY_DB_PATH" env-default:"taskboard.db"`
	PublicURL      string        `env:"GATEWAY_PUBLIC_URL" env-default:"http://localhost:8008"`
	APIKey         string        `env:"GATEWAY_API_KEY" env-default:"taskboard-anon-key"`
	JWTSecret      string        `env:"JWT_SECRET" env-default:"development-insecure-secret-change-me"`
	JWTIssuer      string        `env:"JWT_ISSUER" env-default:"taskboard-gateway"`
	JWTAudience    string        `env:"JWT_AUDIENCE" env-default:"taskboard-clients"`
	TokenTTL       time.Duration `env:"JWT_TTL" env-default:"24h"`
	MaxUploadBytes int64         `env:"GATEWAY_MAX_UPLOAD_BYTES" env-default:"5242880"`
	Log            Log
}

// App is the configuration of the taskboard application.
type App struct {
	Address        string        `env:"TASKBOARD_ADDRESS" env-default:"127.0.0.1:5173"`
	GatewayURL     string        `env:"GATEWAY_URL" env-required:"true"`
	GatewayAPIKey  string        `env:"GATEWAY_API_KEY" env-required:"true"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" env-default:"0s"`
	Language       string        `env:"TASKBOARD_LANG" env-default:"en"`

	// Email and Password sign in the terminal board.
	Email    string `env:"TASKBOARD_EMAIL"`
	Password string `env:"TASKBOARD_PASSWORD"`

	Log Log
}

// LoadGateway reads the gateway configuration from the environment,
// after loading an optional .env file.
func LoadGateway() (Gateway, error) {
	var cfg Gateway
	if err := load(&cfg); err != nil {
		return Gateway{}, err
	}
	if cfg.TokenTTL <= 0 {
		return Gateway{}, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}

// LoadApp reads the application configuration.
func LoadApp() (App, error) {
	var cfg App
	if err := load(&cfg); err != nil {
		return App{}, err
	}
	return cfg, nil
}

func load(cfg any) error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(".env")

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("cannot read env: %w", err)
	}
	return nil
}
