package bot

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/rs/zerolog/log"
)

type Bot struct {
	Instance *telego.Bot
	Handler  *Handler
}

func NewBot(instance *telego.Bot, handler *Handler) *Bot {
	return &Bot{
		Instance: instance,
		Handler:  handler,
	}
}

// Start long-polls Telegram until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	handler.Use(recoverPanics)

	// /start and /status
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		if update.Message.From == nil {
			return nil
		}
		b.Handler.HandleStatus(ctx.Context(), update.Message.From.ID)
		return nil
	}, th.Or(th.CommandEqual("start"), th.CommandEqual("status")))

	// Transaction hashes
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message.From == nil {
			return nil
		}
		b.Handler.HandleText(ctx.Context(), message.From.ID, message.Text)
		return nil
	}, th.AnyMessageWithText())

	log.Info().Msg("Telegram bot started")
	return handler.Start()
}

// recoverPanics keeps one bad update from taking the process down.
func recoverPanics(ctx *th.Context, update telego.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int("update_id", update.UpdateID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic in update handler")
			err = nil
		}
	}()
	return ctx.Next(update)
}
