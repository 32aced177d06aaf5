package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"switchboard/internal/domain"
	"switchboard/internal/function"
	"switchboard/internal/registry"
	"switchboard/internal/repository"

	"go.uber.org/zap"
)

// User-visible texts are deliberately generic; diagnostic detail goes to the
// internal log only.
const (
	// MsgNoFunction is the fixed guidance for users without a selection.
	MsgNoFunction = "No function selected. Use /bot-help to see available options."

	// MsgHandlerFailure is returned when a function fails unexpectedly.
	MsgHandlerFailure = "Something went wrong while handling your message. Please try again or contact an administrator."

	// MsgStorageFailure is returned when a routing decision cannot be made.
	MsgStorageFailure = "Something went wrong. Please try again later."

	// MsgNoAccess is returned for global commands the user may not run.
	MsgNoAccess = "You don't have access to this command."
)

// Dispatcher routes inbound messages and slash commands for one bot instance.
// Per user, the routing state machine has two states: unselected and active
// on some function; transitions are persisted through the state repository.
type Dispatcher struct {
	instance string
	registry *registry.Registry
	state    repository.StateRepository
	perms    repository.PermissionRepository
	usage    repository.UsageRepository
	logger   *zap.Logger
	locks    *userLocks
}

// New creates a dispatcher for one bot instance.
func New(
	instance string,
	reg *registry.Registry,
	state repository.StateRepository,
	perms repository.PermissionRepository,
	usage repository.UsageRepository,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		instance: instance,
		registry: reg,
		state:    state,
		perms:    perms,
		usage:    usage,
		logger:   logger,
		locks:    newUserLocks(),
	}
}

// HandleCommand routes one slash command and returns the ordered responses.
func (d *Dispatcher) HandleCommand(ctx context.Context, userID, command, args string) []string {
	unlock := d.locks.lock(userID)
	defer unlock()

	switch command {
	case "/bot-help":
		return d.helpCommand(ctx, userID)
	case "/bot-status":
		return d.statusCommand(ctx, userID)
	case "/bot-stats":
		return d.statsCommand(ctx, userID, args)
	}

	if name, ok := d.registry.ByCommand(command); ok {
		return d.switchFunction(ctx, userID, name)
	}

	// Unrecognized commands route like ordinary text.
	text := command
	if args != "" {
		text = command + " " + args
	}
	return d.routeMessage(ctx, userID, text, nil)
}

// HandleMessage routes one ordinary inbound message and returns the ordered
// responses.
func (d *Dispatcher) HandleMessage(ctx context.Context, userID, text string, event map[string]string) []string {
	unlock := d.locks.lock(userID)
	defer unlock()

	return d.routeMessage(ctx, userID, text, event)
}

// routeMessage forwards text to the user's current function, if any. Callers
// must hold the user's lock.
func (d *Dispatcher) routeMessage(ctx context.Context, userID, text string, event map[string]string) []string {
	current, err := d.state.CurrentFunction(ctx, userID)
	if err != nil {
		d.logger.Error("Failed to read user state",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}

	if current == "" {
		return []string{MsgNoFunction}
	}

	h, ok := d.registry.Get(current)
	if !ok {
		// Stale selection from an earlier configuration; treated as
		// unselected, the row itself stays.
		d.logger.Warn("User state references an unloaded function",
			zap.String("user_id", userID),
			zap.String("function", current),
		)
		return []string{MsgNoFunction}
	}

	resp, failure := d.invoke(ctx, h, userID, text, event)
	if failure != nil {
		d.logger.Error("Function handler failed",
			zap.String("user_id", userID),
			zap.String("function", current),
			zap.Error(failure),
		)
		d.logUsage(ctx, userID, current, domain.EventError, "", map[string]any{
			"error": failure.Error(),
		})
		return []string{MsgHandlerFailure}
	}

	eventType := domain.EventMessage
	metadata := resp.Metadata
	if resp.Result == domain.ResultError {
		eventType = domain.EventError
		if resp.Error != "" {
			if metadata == nil {
				metadata = make(map[string]any)
			}
			metadata["error"] = resp.Error
		}
	}

	d.logUsage(ctx, userID, current, eventType, text, metadata)

	if err := d.state.TouchLastActive(ctx, userID); err != nil {
		d.logger.Warn("Failed to update last active",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return resp.Messages
}

// invoke calls the handler and converts panics into errors, so a misbehaving
// function cannot take the instance down.
func (d *Dispatcher) invoke(ctx context.Context, h function.Handler, userID, text string, event map[string]string) (resp domain.Response, failure error) {
	defer func() {
		if r := recover(); r != nil {
			failure = fmt.Errorf("handler panic: %v", r)
		}
	}()

	resp, failure = h.HandleMessage(ctx, userID, text, event)
	return resp, failure
}

// switchFunction performs the permission check and the state transition for
// a function-switch command. Callers must hold the user's lock.
//
// Re-issuing the already-active function's command still fires the
// deactivation and activation hooks for that function. Handlers that need
// true idempotence must check internally.
func (d *Dispatcher) switchFunction(ctx context.Context, userID, name string) []string {
	h, ok := d.registry.Get(name)
	if !ok {
		return []string{MsgNoFunction}
	}

	allowed, err := d.perms.IsAllowed(ctx, userID, name)
	if err != nil {
		// Fail closed: no permission decision, no switch.
		d.logger.Error("Permission check failed",
			zap.String("user_id", userID),
			zap.String("function", name),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}
	if !allowed {
		d.logger.Warn("Access denied",
			zap.String("user_id", userID),
			zap.String("function", name),
		)
		d.logUsage(ctx, userID, name, domain.EventDenial, "", nil)
		return []string{fmt.Sprintf(
			"You don't have access to %s. Please contact an administrator if you need access.", name)}
	}

	current, err := d.state.CurrentFunction(ctx, userID)
	if err != nil {
		d.logger.Error("Failed to read user state",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}

	if current != "" {
		if prev, ok := d.registry.Get(current); ok {
			if deact, ok := prev.(function.Deactivator); ok {
				if err := deact.OnDeactivate(ctx, userID); err != nil {
					d.logger.Warn("Deactivation hook failed",
						zap.String("user_id", userID),
						zap.String("function", current),
						zap.Error(err),
					)
				}
			}
		}
	}

	if err := d.state.SwitchFunction(ctx, userID, current, name); err != nil {
		d.logger.Error("Failed to switch function",
			zap.String("user_id", userID),
			zap.String("function", name),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}

	d.logger.Info("User switched function",
		zap.String("user_id", userID),
		zap.String("from", current),
		zap.String("to", name),
	)

	var out []string
	if act, ok := h.(function.Activator); ok {
		msg, err := act.OnActivate(ctx, userID)
		if err != nil {
			d.logger.Warn("Activation hook failed",
				zap.String("user_id", userID),
				zap.String("function", name),
				zap.Error(err),
			)
		} else if msg != "" {
			out = append(out, msg)
		}
	}
	out = append(out, h.WelcomeMessage())
	return out
}

// logUsage appends a usage entry without failing the request. Logging is
// fire-and-forget relative to the response path.
func (d *Dispatcher) logUsage(ctx context.Context, userID, functionName string, event domain.EventType, preview string, metadata map[string]any) {
	entry := domain.UsageEntry{
		BotInstance:    d.instance,
		UserID:         userID,
		FunctionName:   functionName,
		Event:          event,
		MessagePreview: preview,
		Metadata:       metadata,
	}
	if err := d.usage.Append(ctx, entry); err != nil {
		d.logger.Error("Failed to write usage log",
			zap.String("user_id", userID),
			zap.String("function", functionName),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) helpCommand(ctx context.Context, userID string) []string {
	allowed, err := d.perms.AllowedFunctions(ctx, userID, d.registry.Names())
	if err != nil {
		d.logger.Error("Failed to list allowed functions",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}

	if len(allowed) == 0 {
		return []string{"You don't have access to any functions. Please contact an administrator."}
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	var b strings.Builder
	b.WriteString("Available functions:\n")
	for _, desc := range d.registry.List() {
		if !allowedSet[desc.Name] {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n  Command: %s\n  %s\n", desc.DisplayName, desc.SlashCommand, desc.Description)
	}

	current, err := d.state.CurrentFunction(ctx, userID)
	if err != nil {
		// Help still succeeds without the current-function footer.
		d.logger.Warn("Failed to read user state for help",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{b.String()}
	}

	if h, ok := d.registry.Get(current); current != "" && ok {
		fmt.Fprintf(&b, "\nCurrent function: %s", h.Describe().DisplayName)
	} else {
		b.WriteString("\nNo function selected. Use a command above to get started.")
	}

	return []string{b.String()}
}

func (d *Dispatcher) statusCommand(ctx context.Context, userID string) []string {
	current, err := d.state.CurrentFunction(ctx, userID)
	if err != nil {
		d.logger.Error("Failed to read user state",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}

	if current == "" {
		return []string{MsgNoFunction}
	}

	h, ok := d.registry.Get(current)
	if !ok {
		return []string{"Your selected function is no longer available. Use /bot-help to see options."}
	}

	return []string{fmt.Sprintf("You're currently using %s. Type help for function-specific help.", h.Describe().DisplayName)}
}

// statsCommand reports usage statistics. Admin only; with an argument it
// reports the named function, otherwise the caller's own usage.
func (d *Dispatcher) statsCommand(ctx context.Context, userID, args string) []string {
	admin, err := d.perms.IsAdmin(ctx, userID)
	if err != nil {
		d.logger.Error("Failed to check admin status",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}
	if !admin {
		return []string{MsgNoAccess}
	}

	name := strings.TrimSpace(args)
	if name != "" {
		stats, err := d.usage.FunctionStats(ctx, name)
		if err != nil {
			d.logger.Error("Failed to read function stats",
				zap.String("function", name),
				zap.Error(err),
			)
			return []string{MsgStorageFailure}
		}
		return []string{fmt.Sprintf(
			"Stats for %s:\n  Messages: %d\n  Unique users: %d\n  Errors: %d",
			name, stats.MessageCount, stats.UniqueUsers, stats.ErrorCount)}
	}

	stats, err := d.usage.UserStats(ctx, userID)
	if err != nil {
		d.logger.Error("Failed to read user stats",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{MsgStorageFailure}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your stats:\n  Messages: %d\n", stats.MessageCount)
	for _, desc := range d.registry.List() {
		if count, ok := stats.ByFunction[desc.Name]; ok {
			fmt.Fprintf(&b, "  %s: %d\n", desc.Name, count)
		}
	}
	if stats.LastActive != nil {
		fmt.Fprintf(&b, "  Last active: %s", stats.LastActive.Format("2006-01-02 15:04:05"))
	}
	return []string{b.String()}
}
