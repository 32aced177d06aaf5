package slack

import (
	"context"
	"fmt"

	"switchboard/internal/transport"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

// Transport connects a bot instance to Slack over socket mode. It forwards
// DMs and slash commands to the router and delivers the responses in order.
type Transport struct {
	api    *slack.Client
	client *socketmode.Client
	router transport.Router
	logger *zap.Logger
}

// New creates a Slack socket mode transport.
func New(botToken, appToken string, router transport.Router, logger *zap.Logger) (*Transport, error) {
	if botToken == "" {
		return nil, fmt.Errorf("slack bot token is empty")
	}
	if appToken == "" {
		return nil, fmt.Errorf("slack app token is empty")
	}

	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	return &Transport{
		api:    api,
		client: socketmode.New(api),
		router: router,
		logger: logger,
	}, nil
}

// Run starts the socket mode connection and the event loop.
func (t *Transport) Run(ctx context.Context) error {
	go t.consumeEvents(ctx)
	return t.client.RunContext(ctx)
}

func (t *Transport) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-t.client.Events:
			if !ok {
				return
			}
			t.handleEvent(ctx, evt)
		}
	}
}

func (t *Transport) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			t.client.Ack(*evt.Request)
		}
		t.handleEventsAPI(ctx, apiEvent)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		if evt.Request != nil {
			t.client.Ack(*evt.Request)
		}
		replies := t.router.HandleCommand(ctx, cmd.UserID, cmd.Command, cmd.Text)
		t.deliver(cmd.ChannelID, replies)

	case socketmode.EventTypeConnectionError:
		t.logger.Warn("Slack connection error", zap.Any("event", evt.Data))
	}
}

func (t *Transport) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	switch inner := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Only direct messages from humans are routed.
		if inner.BotID != "" || inner.ChannelType != "im" {
			return
		}
		if inner.User == "" || inner.Text == "" {
			return
		}
		event := map[string]string{
			"channel":      inner.Channel,
			"channel_type": inner.ChannelType,
			"ts":           inner.TimeStamp,
		}
		replies := t.router.HandleMessage(ctx, inner.User, inner.Text, event)
		t.deliver(inner.Channel, replies)

	case *slackevents.AppMentionEvent:
		t.deliver(inner.Channel, []string{"DM me to get started, or use /bot-help to see available functions."})
	}
}

// deliver sends each message separately, preserving order.
func (t *Transport) deliver(channel string, messages []string) {
	for _, msg := range messages {
		if _, _, err := t.api.PostMessage(channel, slack.MsgOptionText(msg, false)); err != nil {
			t.logger.Error("Failed to deliver message",
				zap.String("channel", channel),
				zap.Error(err),
			)
		}
	}
}
