package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/solatis/jsonforge/internal/types"
)

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"rules":        "transform.rules_file",
	"host":         "server.host",
	"grpc-port":    "server.grpc_port",
	"http-port":    "server.http_port",
	"db-url":       "db.url",
	"redis-addr":   "redis.addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"http-timeout": "http.timeout",
}

// LoadConfig loads configuration with precedence
// flags > environment (JF_ prefix) > config file > defaults.
// flags may be nil; only flags that were set on the command line override.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("JF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// API keys are environment-only.
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Transform: TransformConfig{
			RulesFile:       v.GetString("transform.rules_file"),
			MaxDocumentSize: v.GetInt("transform.max_document_size"),
		},
		HTTP: HTTPConfig{
			Timeout:   v.GetDuration("http.timeout"),
			UserAgent: v.GetString("http.user_agent"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			GRPCPort:        v.GetInt("server.grpc_port"),
			HTTPPort:        v.GetInt("server.http_port"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		DB:  DBConfig{URL: v.GetString("db.url")},
		Log: LogConfig{Level: v.GetString("log.level"), Format: v.GetString("log.format")},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("transform.rules_file", d.Transform.RulesFile)
	v.SetDefault("transform.max_document_size", d.Transform.MaxDocumentSize)
	v.SetDefault("http.timeout", d.HTTP.Timeout.String())
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())
	v.SetDefault("db.url", d.DB.URL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func validateConfig(cfg *Config) error {
	for name, port := range map[string]int{"grpc_port": cfg.Server.GRPCPort, "http_port": cfg.Server.HTTPPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s must be between 0 and 65535, got %d", name, port)
		}
	}
	if cfg.Transform.MaxDocumentSize <= 0 || cfg.Transform.MaxDocumentSize > types.MaxDocumentSize {
		return fmt.Errorf("max_document_size must be between 1 and %d, got %d", types.MaxDocumentSize, cfg.Transform.MaxDocumentSize)
	}
	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %v", cfg.HTTP.Timeout)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative, got %d", cfg.Redis.DB)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("api_key") || v.InConfig("api_keys") || v.InConfig("server.api_key") {
		return fmt.Errorf("API keys not allowed in config files (use JF_API_KEY environment variable)")
	}
	return nil
}
