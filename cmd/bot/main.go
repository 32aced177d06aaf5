package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"switchboard/internal/bot"
	"switchboard/internal/config"
	"switchboard/internal/function"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Switchboard")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	bots, err := config.LoadBots(cfg.BotsDir)
	if err != nil {
		logger.Fatal("Failed to load bot configs", zap.Error(err))
	}

	logger.Info("Configuration loaded", zap.Int("bots", len(bots)))

	// Run migrations on a bootstrap connection
	bootstrap, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := runMigrations(bootstrap, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	bootstrap.Close()

	logger.Info("Database migrations completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build bot instances; each one owns its storage handle
	var instances []*bot.Instance
	for _, bc := range bots {
		db, err := connectDatabase(cfg.DSN(), logger)
		if err != nil {
			logger.Fatal("Failed to connect to database",
				zap.String("bot", bc.Name),
				zap.Error(err),
			)
		}

		inst, err := bot.New(ctx, bc, db, function.Builtins(), logger)
		if err != nil {
			logger.Fatal("Failed to build bot instance",
				zap.String("bot", bc.Name),
				zap.Error(err),
			)
		}
		instances = append(instances, inst)
	}

	// Start instances in parallel; they share no state
	for _, inst := range instances {
		inst := inst
		go func() {
			if err := inst.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Bot instance stopped",
					zap.String("bot", inst.Name()),
					zap.Error(err),
				)
			}
		}()
	}

	logger.Info("All bot instances started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bots...")

	cancel()
	for _, inst := range instances {
		if err := inst.Close(); err != nil {
			logger.Warn("Failed to close instance",
				zap.String("bot", inst.Name()),
				zap.Error(err),
			)
		}
	}

	logger.Info("All bots stopped gracefully")
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		// Connection successful
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
