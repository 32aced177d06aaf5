package registry

import (
	"errors"
	"fmt"
	"strings"

	"switchboard/internal/domain"
	"switchboard/internal/function"

	"go.uber.org/zap"
)

var (
	// ErrDuplicateName means the same function name appears twice in one
	// bot instance's configuration.
	ErrDuplicateName = errors.New("duplicate function name")

	// ErrDuplicateCommand means two loaded functions claim the same slash
	// command.
	ErrDuplicateCommand = errors.New("duplicate slash command")
)

// Registry holds the functions loaded for one bot instance, in load order.
type Registry struct {
	handlers  map[string]function.Handler
	byCommand map[string]string
	order     []string
	logger    *zap.Logger
}

// Load builds a registry from the instance's ordered function list and the
// factory table. A single function that cannot be built is logged and left
// out; duplicate names or slash commands are configuration errors and abort
// the whole load.
func Load(names []string, factories map[string]function.Factory, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		handlers:  make(map[string]function.Handler),
		byCommand: make(map[string]string),
		logger:    logger,
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		seen[name] = true

		factory, ok := factories[name]
		if !ok {
			logger.Error("Unknown function in configuration, skipping",
				zap.String("function", name),
			)
			continue
		}

		h, err := factory(logger)
		if err != nil {
			logger.Error("Failed to load function, skipping",
				zap.String("function", name),
				zap.Error(err),
			)
			continue
		}

		desc := h.Describe()
		if err := validateDescriptor(name, desc); err != nil {
			logger.Error("Function descriptor is invalid, skipping",
				zap.String("function", name),
				zap.Error(err),
			)
			continue
		}

		if owner, taken := r.byCommand[desc.SlashCommand]; taken {
			return nil, fmt.Errorf("%w: %s claimed by both %q and %q",
				ErrDuplicateCommand, desc.SlashCommand, owner, name)
		}

		r.handlers[name] = h
		r.byCommand[desc.SlashCommand] = name
		r.order = append(r.order, name)

		logger.Info("Loaded function",
			zap.String("function", name),
			zap.String("command", desc.SlashCommand),
		)
	}

	return r, nil
}

func validateDescriptor(name string, desc domain.FunctionDescriptor) error {
	if desc.Name != name {
		return fmt.Errorf("descriptor name %q does not match registered name %q", desc.Name, name)
	}
	if !strings.HasPrefix(desc.SlashCommand, "/") || len(desc.SlashCommand) < 2 {
		return fmt.Errorf("slash command %q is not of the form /name", desc.SlashCommand)
	}
	return nil
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (function.Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// ByCommand resolves a slash command to the owning function's name.
func (r *Registry) ByCommand(command string) (string, bool) {
	name, ok := r.byCommand[command]
	return name, ok
}

// Names returns loaded function names in load order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List returns descriptors of all loaded functions in load order. Help output
// is rendered from this, so the order must be deterministic.
func (r *Registry) List() []domain.FunctionDescriptor {
	out := make([]domain.FunctionDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handlers[name].Describe())
	}
	return out
}

// Len returns the number of loaded functions.
func (r *Registry) Len() int {
	return len(r.order)
}
