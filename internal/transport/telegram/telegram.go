package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"switchboard/internal/transport"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Transport connects a bot instance to Telegram with a long poller. Slash
// commands and ordinary text both arrive as text updates and are split here.
type Transport struct {
	bot    *tele.Bot
	router transport.Router
	logger *zap.Logger

	// Set once by Run before polling starts; handlers inherit it so
	// cancellation reaches the dispatcher and storage calls.
	runCtx context.Context
}

// New creates a Telegram transport.
func New(token string, router transport.Router, logger *zap.Logger) (*Transport, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	t := &Transport{
		bot:    bot,
		router: router,
		logger: logger,
	}
	bot.Handle(tele.OnText, t.handleText)
	return t, nil
}

// Run starts polling and blocks until the context is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	t.runCtx = ctx
	go func() {
		<-ctx.Done()
		t.bot.Stop()
	}()

	t.bot.Start()
	return nil
}

func (t *Transport) handleText(c tele.Context) error {
	userID := strconv.FormatInt(c.Sender().ID, 10)
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return nil
	}

	ctx := t.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	var replies []string
	if strings.HasPrefix(text, "/") {
		command, args, _ := strings.Cut(text, " ")
		replies = t.router.HandleCommand(ctx, userID, command, strings.TrimSpace(args))
	} else {
		event := map[string]string{
			"chat_id":    strconv.FormatInt(c.Chat().ID, 10),
			"message_id": strconv.Itoa(c.Message().ID),
		}
		replies = t.router.HandleMessage(ctx, userID, text, event)
	}

	for _, msg := range replies {
		if err := c.Send(msg); err != nil {
			t.logger.Error("Failed to deliver message",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}
