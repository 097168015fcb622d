package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:            "8501",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DataBackend:     "csv",
		CSVPath:         "ocorrencias_ride.csv",
		SQLiteDBPath:    "./data/ocorrencias.db",
		LogLevel:        "info",
		LogFormat:       "text",
		CacheSize:       16,
		CacheTTL:        time.Minute,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errorString string
	}{
		{name: "valid csv backend config", mutate: func(*Config) {}},
		{name: "valid sqlite backend config", mutate: func(c *Config) { c.DataBackend = "sqlite" }},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "memory" },
			errorString: "invalid data backend 'memory': must be one of [csv sqlite sheets]",
		},
		{
			name:        "csv backend missing path",
			mutate:      func(c *Config) { c.CSVPath = " " },
			errorString: "CSV path cannot be empty",
		},
		{
			name: "sqlite backend missing database path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = ""
			},
			errorString: "SQLite database path cannot be empty",
		},
		{
			name: "sheets backend missing spreadsheet id",
			mutate: func(c *Config) {
				c.DataBackend = "sheets"
				c.GoogleServiceAccountJSON = "{}"
			},
			errorString: "Google Spreadsheet ID is required",
		},
		{
			name: "sheets backend missing service account file",
			mutate: func(c *Config) {
				c.DataBackend = "sheets"
				c.GoogleSpreadsheetID = "id"
				c.GoogleServiceAccountFile = "/does/not/exist.json"
			},
			errorString: "Google service account file does not exist",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			errorString: "invalid log level 'loud'",
		},
		{
			name:        "invalid cache size",
			mutate:      func(c *Config) { c.CacheSize = 0 },
			errorString: "invalid cache size 0",
		},
		{
			name:        "invalid rate limit burst",
			mutate:      func(c *Config) { c.RateLimitBurst = 0 },
			errorString: "invalid rate limit burst 0",
		},
		{
			name:        "invalid shutdown timeout",
			mutate:      func(c *Config) { c.ShutdownTimeout = 0 },
			errorString: "invalid shutdown timeout",
		},
		{name: "valid trusted proxies", mutate: func(c *Config) { c.TrustedProxies = []string{"100.64.0.0/10", " fd00::/8"} }},
		{
			name:        "invalid trusted proxy",
			mutate:      func(c *Config) { c.TrustedProxies = []string{"100.64.0.1"} },
			errorString: "invalid trusted proxy '100.64.0.1': must be a CIDR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errorString == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errorString)
			}
			if !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("expected error containing %q, got %q", tt.errorString, err.Error())
			}
		})
	}
}

func TestConfig_ValidateAccumulates(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "x"
	cfg.LogFormat = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"invalid port", "invalid log format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %q", want, err.Error())
		}
	}
}

func TestConfig_ValidateTimeoutOrderIsStable(t *testing.T) {
	cfg := validConfig()
	cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout = 0, 0, 0

	want := "- invalid read timeout 0s: must be positive\n" +
		"- invalid write timeout 0s: must be positive\n" +
		"- invalid shutdown timeout 0s: must be positive"
	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.HasSuffix(err.Error(), want) {
			t.Fatalf("run %d: unexpected order:\n%s", i, err.Error())
		}
	}
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_TTL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" || cfg.CacheTTL != 2*time.Minute {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.DataBackend != "csv" || cfg.CSVPath != "ocorrencias_ride.csv" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Addr() != ":9000" {
		t.Fatalf("addr=%q", cfg.Addr())
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_FORMAT=json\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("LOG_FORMAT")
	})
	// godotenv never overrides existing variables.
	_ = os.Unsetenv("LOG_FORMAT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected .env value, got %q", cfg.LogFormat)
	}
}
