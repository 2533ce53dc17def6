package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"PROBE_URL" default:"ws://localhost:10000"`
	AdminAddr string `envconfig:"PROBE_ADMIN_ADDR" default:"localhost:10001"`
	// PROBE_COLOURS enables colorized output for better readability
	Colours bool          `envconfig:"PROBE_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`
	Name    string        `envconfig:"PROBE_NAME" default:"probe"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
