package function

import (
	"context"
	"fmt"

	"switchboard/internal/domain"

	"go.uber.org/zap"
)

// Whoami tells users their own identifier. It implements only the mandatory
// capability set; activation hooks fall back to the registry's no-op defaults.
type Whoami struct{}

// NewWhoami creates the whoami function.
func NewWhoami(_ *zap.Logger) (Handler, error) {
	return &Whoami{}, nil
}

func (w *Whoami) Describe() domain.FunctionDescriptor {
	return domain.FunctionDescriptor{
		Name:         "whoami",
		DisplayName:  "Who Am I",
		SlashCommand: "/whoami",
		Description:  "Shows the user identifier the bot sees for you",
		HelpText:     "Send any message and I will reply with your user identifier.",
	}
}

func (w *Whoami) HandleMessage(ctx context.Context, userID, text string, event map[string]string) (domain.Response, error) {
	return domain.Response{
		Result:   domain.ResultSuccess,
		Messages: []string{fmt.Sprintf("You are %s.", userID)},
	}, nil
}

func (w *Whoami) WelcomeMessage() string {
	return "Who Am I is active. Send anything to see your user identifier."
}
