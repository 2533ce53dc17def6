package internal

import (
	"dispatch-lab/store"
	"fmt"
	"os"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=10000"`
	AdminPort            int           `env:"ADMIN_PORT,default=10001"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	ProcessingDelay      time.Duration `env:"PROCESSING_DELAY,default=2s"`
	LoopBufferSize       int           `env:"LOOP_BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=10s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=64"`
	LatencyThreshold     time.Duration `env:"LATENCY_THRESHOLD,default=100ms"`
	ReportInterval       time.Duration `env:"REPORT_INTERVAL,default=0s"`
	StoreBackend         string        `env:"STORE_BACKEND,default=memory"`
	ModerationEnabled    bool          `env:"MODERATION_ENABLED,default=false"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

// LoadConfig reads the process environment.
func LoadConfig() (Config, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return ParseConfig(es)
}

// ParseConfig applies defaults to es and validates the result.
func ParseConfig(es env.EnvSet) (Config, error) {
	var config Config
	if err := env.Unmarshal(es, &config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return config, nil
}

// Validate checks what the env tags cannot express.
func (c Config) Validate() error {
	if c.ProcessingDelay < 0 {
		return fmt.Errorf("PROCESSING_DELAY must not be negative, got %s", c.ProcessingDelay)
	}
	for name, size := range map[string]int{
		"LOOP_BUFFER_SIZE":       c.LoopBufferSize,
		"CONNECTION_BUFFER_SIZE": c.ConnectionBufferSize,
	} {
		if size <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, size)
		}
	}
	switch store.Backend(c.StoreBackend) {
	case store.MemoryBackend, store.BadgerBackend:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q",
			store.MemoryBackend, store.BadgerBackend, c.StoreBackend)
	}
	if c.ModerationEnabled {
		if _, err := CharacterRune(c.CharReplacement); err != nil {
			return err
		}
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
