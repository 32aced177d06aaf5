package repository

import (
	"context"

	"switchboard/internal/domain"
)

// StateRepository persists each user's current function selection for one
// bot instance. An empty function name means no function is selected.
type StateRepository interface {
	CurrentFunction(ctx context.Context, userID string) (string, error)

	// SwitchFunction atomically records the new selection and the switch
	// usage log entry. Concurrent switches for the same user must serialize;
	// no torn state may be observable afterwards.
	SwitchFunction(ctx context.Context, userID, fromFunction, toFunction string) error

	TouchLastActive(ctx context.Context, userID string) error
}

// PermissionRepository evaluates and administers function access rules for
// one bot instance.
type PermissionRepository interface {
	// IsAllowed reports whether the user may use the function. The check must
	// observe a consistent snapshot of admin, open-function and allow-list
	// data. Order: admin, open, allow-list, deny.
	IsAllowed(ctx context.Context, userID, functionName string) (bool, error)

	IsAdmin(ctx context.Context, userID string) (bool, error)

	// AllowedFunctions filters all down to the functions the user may use,
	// preserving the order of all.
	AllowedFunctions(ctx context.Context, userID string, all []string) ([]string, error)

	// SyncRules replaces the instance's ruleset in one transaction. Called
	// once at startup; rule changes take effect on the next request.
	SyncRules(ctx context.Context, rules domain.AccessRules) error
}

// UsageRepository appends and aggregates usage log entries for one bot
// instance. Entries are append-only and never read by routing logic.
type UsageRepository interface {
	Append(ctx context.Context, entry domain.UsageEntry) error
	UserStats(ctx context.Context, userID string) (domain.UserStats, error)
	FunctionStats(ctx context.Context, functionName string) (domain.FunctionStats, error)
}
