package bot

import (
	"context"
	"database/sql"
	"fmt"

	"switchboard/internal/config"
	"switchboard/internal/dispatcher"
	"switchboard/internal/function"
	"switchboard/internal/registry"
	"switchboard/internal/repository/postgres"
	"switchboard/internal/transport"
	slacktransport "switchboard/internal/transport/slack"
	"switchboard/internal/transport/telegram"

	"go.uber.org/zap"
)

// Instance is one isolated routing domain: its own storage handle, its own
// registry and dispatcher, and its own transport connection. Instances share
// nothing with each other.
type Instance struct {
	name      string
	db        *sql.DB
	transport transport.Transport
	logger    *zap.Logger
}

// New builds a bot instance from its config. The instance takes ownership of
// db. Configuration errors (duplicate commands, broken transport setup) are
// fatal; a single function that fails to load is not.
func New(ctx context.Context, cfg config.BotConfig, db *sql.DB, factories map[string]function.Factory, logger *zap.Logger) (*Instance, error) {
	logger = logger.With(zap.String("bot", cfg.Name))

	reg, err := registry.Load(cfg.Functions, factories, logger)
	if err != nil {
		return nil, fmt.Errorf("load functions: %w", err)
	}

	stateRepo := postgres.NewStateRepo(db, cfg.Name)
	permRepo := postgres.NewPermissionRepo(db, cfg.Name)
	usageRepo := postgres.NewUsageRepo(db, cfg.Name)

	if err := permRepo.SyncRules(ctx, cfg.Access.Rules()); err != nil {
		return nil, fmt.Errorf("sync access rules: %w", err)
	}

	disp := dispatcher.New(cfg.Name, reg, stateRepo, permRepo, usageRepo, logger)

	var tr transport.Transport
	switch cfg.Transport {
	case config.TransportSlack:
		tr, err = slacktransport.New(cfg.BotToken(), cfg.AppToken(), disp, logger)
	case config.TransportTelegram:
		tr, err = telegram.New(cfg.BotToken(), disp, logger)
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	logger.Info("Bot instance ready",
		zap.String("transport", cfg.Transport),
		zap.Int("functions", reg.Len()),
	)

	return &Instance{
		name:      cfg.Name,
		db:        db,
		transport: tr,
		logger:    logger,
	}, nil
}

// Name returns the instance name.
func (i *Instance) Name() string {
	return i.name
}

// Run connects the transport and blocks until the context is cancelled.
func (i *Instance) Run(ctx context.Context) error {
	i.logger.Info("Bot instance started")
	return i.transport.Run(ctx)
}

// Close releases the instance's storage handle.
func (i *Instance) Close() error {
	return i.db.Close()
}
