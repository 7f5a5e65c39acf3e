package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "STORE_DRIVER", "BCRYPT_COST", "AUTH_RATE_LIMIT", "AUTH_RATE_WINDOW", "ALLOWED_ORIGINS", "JWT_SECRET"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "5000" {
		t.Errorf("ServerPort = %q, want 5000", cfg.ServerPort)
	}
	if cfg.Driver != DriverMongo {
		t.Errorf("Driver = %q, want %q", cfg.Driver, DriverMongo)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.AuthRateLimit != 5 || cfg.AuthRateWindow != 15*time.Minute {
		t.Errorf("rate limit = %d/%v", cfg.AuthRateLimit, cfg.AuthRateWindow)
	}
	if cfg.JWTSecret != "" {
		t.Errorf("JWTSecret should stay empty when unset")
	}
}

func TestLoad_ParsesValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("AUTH_RATE_WINDOW", "30s")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver != DriverSQLite {
		t.Errorf("Driver = %q", cfg.Driver)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
	if cfg.AuthRateWindow != 30*time.Second {
		t.Errorf("AuthRateWindow = %v", cfg.AuthRateWindow)
	}
	if cfg.BcryptCost != 4 {
		t.Errorf("BcryptCost = %d", cfg.BcryptCost)
	}
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("BCRYPT_COST", "ten")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric BCRYPT_COST")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"mongo ok", Config{ServerPort: "5000", Driver: DriverMongo, MongoURI: "mongodb://localhost:27017"}, false},
		{"mongo missing uri", Config{ServerPort: "5000", Driver: DriverMongo}, true},
		{"postgres missing db", Config{ServerPort: "5000", Driver: DriverPostgres, PostgresHost: "h", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p"}, true},
		{"sqlite ok", Config{ServerPort: "5000", Driver: DriverSQLite, SQLitePath: "x.db"}, false},
		{"unknown driver", Config{ServerPort: "5000", Driver: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TASKBOARD_TEST_VALUE=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TASKBOARD_TEST_VALUE", "")
	os.Unsetenv("TASKBOARD_TEST_VALUE")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TASKBOARD_TEST_VALUE"); got != "from-dotenv" {
		t.Fatalf("TASKBOARD_TEST_VALUE = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be skipped, got %v", err)
	}
}
