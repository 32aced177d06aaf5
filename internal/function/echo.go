package function

import (
	"context"
	"strings"

	"switchboard/internal/domain"

	"go.uber.org/zap"
)

// Echo repeats every message back to the sender. It implements the optional
// activation hooks so the full contract is exercised by at least one builtin.
type Echo struct {
	logger *zap.Logger
}

// NewEcho creates the echo function.
func NewEcho(logger *zap.Logger) (Handler, error) {
	return &Echo{logger: logger}, nil
}

func (e *Echo) Describe() domain.FunctionDescriptor {
	return domain.FunctionDescriptor{
		Name:         "echo",
		DisplayName:  "Echo",
		SlashCommand: "/echo",
		Description:  "Repeats your messages back to you",
		HelpText:     "Send any text and I will repeat it back to you.",
	}
}

func (e *Echo) HandleMessage(ctx context.Context, userID, text string, event map[string]string) (domain.Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Response{Result: domain.ResultNoAction}, nil
	}

	return domain.Response{
		Result:   domain.ResultSuccess,
		Messages: []string{text},
		Metadata: map[string]any{"length": len(text)},
	}, nil
}

func (e *Echo) WelcomeMessage() string {
	return "Echo is active. Anything you send me, I send right back."
}

func (e *Echo) OnActivate(ctx context.Context, userID string) (string, error) {
	e.logger.Info("Echo activated", zap.String("user_id", userID))
	return "", nil
}

func (e *Echo) OnDeactivate(ctx context.Context, userID string) error {
	e.logger.Info("Echo deactivated", zap.String("user_id", userID))
	return nil
}
