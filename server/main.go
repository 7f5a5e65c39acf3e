package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chepyr/taskboard/internal/auth"
	"github.com/chepyr/taskboard/internal/config"
	"github.com/chepyr/taskboard/internal/db"
	"github.com/chepyr/taskboard/internal/handlers"
	"github.com/chepyr/taskboard/internal/logging"
	"github.com/chepyr/taskboard/internal/realtime"
	"github.com/chepyr/taskboard/internal/services"
	"github.com/sirupsen/logrus"
)

const (
	mongoConnectTimeout = 10 * time.Second
	shutdownTimeout     = 5 * time.Second
	socketRateLimit     = 30
	socketRateWindow    = time.Minute
)

type stores struct {
	users db.UserRepositoryInterface
	tasks db.TaskRepositoryInterface
	close func()
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.Fatalf("Error loading .env file: %v", err)
	}

	cfg := validateEnv()
	log, err := logging.New(logging.Options{Service: "taskboard-api", Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; login and authenticated routes will fail")
	}

	st := initDB(cfg, log)
	defer st.close()

	handler := initHandlers(cfg, st, log)
	server := initServer(cfg, handler)
	startServer(server, handler, log)
}

func validateEnv() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func initDB(cfg *config.Config, log *logrus.Entry) stores {
	ctx := context.Background()
	log = log.WithField("driver", cfg.Driver)

	switch cfg.Driver {
	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI, mongoConnectTimeout)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		database := client.Database(cfg.MongoDBName)
		if err := db.EnsureIndexes(ctx, database); err != nil {
			log.Fatalf("Failed to create indexes: %v", err)
		}
		log.Info("Connected to MongoDB")
		return stores{
			users: db.NewMongoUserRepository(database),
			tasks: db.NewMongoTaskRepository(database),
			close: func() { _ = client.Disconnect(context.Background()) },
		}

	case config.DriverPostgres:
		conn, err := db.Connect("postgres", cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Migrate(ctx, conn); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Info("Connected to Postgres")
		return sqlStores(conn)

	default:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		log.WithField("path", cfg.SQLitePath).Info("Opened SQLite database")
		return sqlStores(conn)
	}
}

func sqlStores(conn *sql.DB) stores {
	return stores{
		users: db.NewUserRepository(conn),
		tasks: db.NewTaskRepository(conn),
		close: func() { conn.Close() },
	}
}

func initHandlers(cfg *config.Config, st stores, log *logrus.Entry) *handlers.Handler {
	origins := handlers.NewOriginPolicy(cfg.AllowedOrigins)
	proxies, err := handlers.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.DefaultTokenTTL)
	hub := realtime.NewHub(log.WithField("component", "hub"), origins.CheckOrigin)

	return &handlers.Handler{
		Auth:          services.NewAuthService(st.users, auth.NewPasswordHasher(cfg.BcryptCost), tokens, log),
		Tasks:         services.NewTaskService(st.tasks, st.users, hub, log),
		Tokens:        tokens,
		Hub:           hub,
		AuthLimiter:   handlers.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow),
		SocketLimiter: handlers.NewRateLimiter(socketRateLimit, socketRateWindow),
		Origins:       origins,
		Proxies:       proxies,
		Log:           log,
	}
}

func initServer(cfg *config.Config, handler *handlers.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handlers.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func startServer(server *http.Server, handler *handlers.Handler, log *logrus.Entry) {
	log.Infof("Starting server on %s", server.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	// Hijacked socket connections are not tracked by Shutdown.
	handler.Hub.Shutdown()
	handler.AuthLimiter.Stop()
	handler.SocketLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Info("Server stopped")
}
