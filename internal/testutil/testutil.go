package testutil

import (
	"context"
	"sync"

	"switchboard/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// StubFunction is a configurable function handler for tests. It records hook
// invocations and can be told to respond, error, or panic.
type StubFunction struct {
	Descriptor domain.FunctionDescriptor
	Welcome    string

	// HandleFunc, if set, overrides the default success response.
	HandleFunc func(ctx context.Context, userID, text string, event map[string]string) (domain.Response, error)

	// ActivateMessage is returned by OnActivate when non-empty.
	ActivateMessage string

	// Recorder, if set, additionally records hook firings across stubs.
	Recorder *HookRecorder

	mu          sync.Mutex
	activations []string
	deactivated []string
	hookOrder   []string
}

// NewStubFunction creates a stub with a descriptor derived from name.
func NewStubFunction(name string) *StubFunction {
	return &StubFunction{
		Descriptor: domain.FunctionDescriptor{
			Name:         name,
			DisplayName:  name,
			SlashCommand: "/" + name,
			Description:  "stub function " + name,
			HelpText:     "stub help for " + name,
		},
		Welcome: "welcome to " + name,
	}
}

func (s *StubFunction) Describe() domain.FunctionDescriptor {
	return s.Descriptor
}

func (s *StubFunction) HandleMessage(ctx context.Context, userID, text string, event map[string]string) (domain.Response, error) {
	if s.HandleFunc != nil {
		return s.HandleFunc(ctx, userID, text, event)
	}
	return domain.Response{
		Result:   domain.ResultSuccess,
		Messages: []string{"handled: " + text},
	}, nil
}

func (s *StubFunction) WelcomeMessage() string {
	return s.Welcome
}

func (s *StubFunction) OnActivate(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	s.activations = append(s.activations, userID)
	s.hookOrder = append(s.hookOrder, "activate:"+s.Descriptor.Name)
	s.mu.Unlock()
	s.Recorder.record("activate:" + s.Descriptor.Name)
	return s.ActivateMessage, nil
}

func (s *StubFunction) OnDeactivate(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.deactivated = append(s.deactivated, userID)
	s.hookOrder = append(s.hookOrder, "deactivate:"+s.Descriptor.Name)
	s.mu.Unlock()
	s.Recorder.record("deactivate:" + s.Descriptor.Name)
	return nil
}

// HookRecorder collects hook firings from multiple stubs in one sequence.
type HookRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *HookRecorder) record(event string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns the recorded hook firings in order.
func (r *HookRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Activations returns the users OnActivate ran for, in order.
func (s *StubFunction) Activations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.activations))
	copy(out, s.activations)
	return out
}

// Deactivations returns the users OnDeactivate ran for, in order.
func (s *StubFunction) Deactivations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deactivated))
	copy(out, s.deactivated)
	return out
}

// HookOrder returns the hook invocations observed by this stub, in order.
func (s *StubFunction) HookOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.hookOrder))
	copy(out, s.hookOrder)
	return out
}
