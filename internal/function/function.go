package function

import (
	"context"

	"switchboard/internal/domain"

	"go.uber.org/zap"
)

// Handler is the contract every function must implement.
//
// A function instance is constructed once per bot instance and reused for all
// users, so it must not hold per-user mutable state internally. All per-user
// state belongs in storage.
type Handler interface {
	// Describe returns the function's static metadata.
	Describe() domain.FunctionDescriptor

	// HandleMessage processes one inbound message from a user. The event map
	// carries opaque transport metadata (channel, timestamps) for logging.
	// A returned error means the handler failed unexpectedly; user-visible
	// errors belong in the Response with ResultError.
	HandleMessage(ctx context.Context, userID, text string, event map[string]string) (domain.Response, error)

	// WelcomeMessage is sent to the user after switching to this function.
	WelcomeMessage() string
}

// Activator is an optional capability. OnActivate runs after the user's
// selection has been switched to this function; a non-empty return value is
// sent to the user before the welcome message.
type Activator interface {
	OnActivate(ctx context.Context, userID string) (string, error)
}

// Deactivator is an optional capability. OnDeactivate runs before the user's
// selection is switched away from this function. Failures are logged and
// otherwise ignored.
type Deactivator interface {
	OnDeactivate(ctx context.Context, userID string) error
}

// Factory constructs a handler at bot instance startup.
type Factory func(logger *zap.Logger) (Handler, error)

// Builtins returns the factory table of functions shipped with the binary.
// Bot configs reference these by name.
func Builtins() map[string]Factory {
	return map[string]Factory{
		"echo":   NewEcho,
		"whoami": NewWhoami,
	}
}
