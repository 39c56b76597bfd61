package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Addr          string `env:"ADDR" envDefault:":13370"`
	DataDir       string `env:"DATA_DIR" envDefault:"data"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"y2k2025"`

	// Optional WiFi credentials surfaced by /api/local-ip so the TV lobby
	// can render a join-the-network QR code next to the game QR code.
	WifiSSID     string `env:"WIFI_SSID"`
	WifiPassword string `env:"WIFI_PASSWORD"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set vars directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
