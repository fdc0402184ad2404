// Package config loads jsonforge service and CLI settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/solatis/jsonforge/internal/core/auth"
	"github.com/solatis/jsonforge/internal/types"
)

// Config is the full runtime configuration.
type Config struct {
	Transform TransformConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Server    ServerConfig
	DB        DBConfig
	Log       LogConfig
}

// TransformConfig controls the rule pipeline.
type TransformConfig struct {
	RulesFile       string
	MaxDocumentSize int
}

// HTTPConfig controls the client behind the http supplier and fetch function.
type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// RedisConfig enables the redis supplier and redisLookup function when Addr
// is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ServerConfig controls the gRPC and HTTP listeners.
type ServerConfig struct {
	Host            string
	GRPCPort        int
	HTTPPort        int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DBConfig enables the run journal when URL is set.
type DBConfig struct {
	URL string
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Transform: TransformConfig{MaxDocumentSize: types.MaxDocumentSize},
		HTTP:      HTTPConfig{Timeout: 10 * time.Second, UserAgent: "jsonforge"},
		Redis:     RedisConfig{Prefix: "jsonforge:"},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			GRPCPort:        50051,
			HTTPPort:        8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// APIKeys reads the API keys accepted by the service from JF_API_KEY and
// JF_API_KEY_1, JF_API_KEY_2, ... (numbered keys allow rotation). Returns a
// map of key ID to key. No keys means authentication is disabled.
func APIKeys() (map[string]string, error) {
	keys := make(map[string]string)
	add := func(name, val string) error {
		keyID, _, err := auth.ParseAPIKey(val)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, exists := keys[keyID]; exists {
			return fmt.Errorf("duplicate key_id '%s' found in environment variables (check JF_API_KEY and JF_API_KEY_* for conflicts)", keyID)
		}
		keys[keyID] = val
		return nil
	}

	if val := os.Getenv("JF_API_KEY"); val != "" {
		if err := add("JF_API_KEY", val); err != nil {
			return nil, err
		}
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("JF_API_KEY_%d", i)
		val := os.Getenv(name)
		if val == "" {
			break
		}
		if err := add(name, val); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
