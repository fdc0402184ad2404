package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/solatis/jsonforge/internal/core/auth"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jsonforge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testKey(id string) string {
	return auth.FormatAPIKey(strings.Repeat(id, 32), strings.Repeat("0", 64))
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		want := Default()
		if cfg.Server != want.Server {
			t.Errorf("server = %+v, want %+v", cfg.Server, want.Server)
		}
		if cfg.HTTP.Timeout != 10*time.Second || cfg.Transform.MaxDocumentSize != want.Transform.MaxDocumentSize {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.Redis.Addr != "" || cfg.DB.URL != "" {
			t.Errorf("optional collaborators enabled by default: %+v", cfg)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("JF_SERVER_GRPC_PORT", "9999")
		t.Setenv("JF_REDIS_ADDR", "localhost:6379")
		t.Setenv("JF_HTTP_TIMEOUT", "2s")

		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.GRPCPort != 9999 || cfg.Redis.Addr != "localhost:6379" || cfg.HTTP.Timeout != 2*time.Second {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("file then environment then flags", func(t *testing.T) {
		path := writeConfig(t, "server:\n  grpc_port: 7000\n  http_port: 7001\ntransform:\n  rules_file: file.yaml\n")
		t.Setenv("JF_SERVER_HTTP_PORT", "8000")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("rules", "", "")
		flags.Int("grpc-port", 0, "")
		if err := flags.Parse([]string{"--rules", "flag.yaml"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(path, flags)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.GRPCPort != 7000 {
			t.Errorf("grpc_port = %d, want file value 7000 (flag not set)", cfg.Server.GRPCPort)
		}
		if cfg.Server.HTTPPort != 8000 {
			t.Errorf("http_port = %d, want env value 8000", cfg.Server.HTTPPort)
		}
		if cfg.Transform.RulesFile != "flag.yaml" {
			t.Errorf("rules_file = %q, want flag value", cfg.Transform.RulesFile)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		for env, val := range map[string]string{
			"JF_SERVER_GRPC_PORT":            "70000",
			"JF_TRANSFORM_MAX_DOCUMENT_SIZE": "0",
			"JF_LOG_FORMAT":                  "xml",
			"JF_REDIS_DB":                    "-1",
		} {
			t.Run(env, func(t *testing.T) {
				t.Setenv(env, val)
				if _, err := LoadConfig("", nil); err == nil {
					t.Errorf("expected error for %s=%s", env, val)
				}
			})
		}
	})

	t.Run("document limit above ceiling", func(t *testing.T) {
		t.Setenv("JF_TRANSFORM_MAX_DOCUMENT_SIZE", "8388608")
		if _, err := LoadConfig("", nil); err == nil {
			t.Error("expected error for max_document_size above the built-in ceiling")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("api key in file rejected", func(t *testing.T) {
		path := writeConfig(t, "api_key: "+testKey("a")+"\n")
		_, err := LoadConfig(path, nil)
		if err == nil || !strings.Contains(err.Error(), "JF_API_KEY") {
			t.Fatalf("err = %v, want rejection naming JF_API_KEY", err)
		}
	})

	t.Run("api key in environment allowed", func(t *testing.T) {
		t.Setenv("JF_API_KEY", testKey("a"))
		if _, err := LoadConfig("", nil); err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
	})
}

func TestAPIKeys(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		keys, err := APIKeys()
		if err != nil || len(keys) != 0 {
			t.Fatalf("APIKeys() = %v, %v", keys, err)
		}
	})

	t.Run("single and numbered", func(t *testing.T) {
		t.Setenv("JF_API_KEY", testKey("a"))
		t.Setenv("JF_API_KEY_1", testKey("b"))
		t.Setenv("JF_API_KEY_2", testKey("c"))

		keys, err := APIKeys()
		if err != nil {
			t.Fatalf("APIKeys failed: %v", err)
		}
		if len(keys) != 3 {
			t.Errorf("expected 3 keys, got %d", len(keys))
		}
		if keys[strings.Repeat("b", 32)] != testKey("b") {
			t.Errorf("key b not found: %v", keys)
		}
	})

	t.Run("numbering stops at first gap", func(t *testing.T) {
		t.Setenv("JF_API_KEY_1", testKey("a"))
		t.Setenv("JF_API_KEY_3", testKey("c"))
		keys, err := APIKeys()
		if err != nil || len(keys) != 1 {
			t.Fatalf("APIKeys() = %v, %v", keys, err)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Setenv("JF_API_KEY", "invalid_format")
		if _, err := APIKeys(); err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("duplicate key id", func(t *testing.T) {
		t.Setenv("JF_API_KEY", testKey("a"))
		t.Setenv("JF_API_KEY_1", auth.FormatAPIKey(strings.Repeat("a", 32), strings.Repeat("1", 64)))
		if _, err := APIKeys(); err == nil {
			t.Error("expected error for duplicate key id")
		}
	})
}
