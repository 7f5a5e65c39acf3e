package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServerPort string
	Driver     string

	MongoURI    string
	MongoDBName string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	SQLitePath string

	// JWTSecret may be empty; login then fails with a configuration error.
	JWTSecret  string
	BcryptCost int

	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; nobody else can.
	TrustedProxies []string

	LogLevel string
	LogFile  string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// LoadDotEnv reads .env from the working directory when one exists.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "5000"),
		Driver:           strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "taskboard"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     os.Getenv("POSTGRES_PORT"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		SQLitePath:       getEnv("SQLITE_PATH", "taskboard.db"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AllowedOrigins:   splitList(os.Getenv("ALLOWED_ORIGINS")),
		TrustedProxies:   splitList(os.Getenv("TRUSTED_PROXIES")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimit, err = getInt("AUTH_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.AuthRateWindow, err = getDuration("AUTH_RATE_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the variables the selected store driver needs.
func (c *Config) Validate() error {
	var required map[string]string
	switch c.Driver {
	case DriverMongo:
		required = map[string]string{"MONGO_URI": c.MongoURI}
	case DriverPostgres:
		required = map[string]string{
			"POSTGRES_HOST":     c.PostgresHost,
			"POSTGRES_PORT":     c.PostgresPort,
			"POSTGRES_USER":     c.PostgresUser,
			"POSTGRES_PASSWORD": c.PostgresPassword,
			"POSTGRES_DB":       c.PostgresDB,
		}
	case DriverSQLite:
		required = map[string]string{"SQLITE_PATH": c.SQLitePath}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want mongo, postgres or sqlite)", c.Driver)
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("environment variable %s must be set", name)
		}
	}
	if c.ServerPort == "" {
		return errors.New("environment variable SERVER_PORT must be set")
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
