// Package notify delivers messages to Telegram users.
package notify

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Notifier sends text to a user. parseMode is a Telegram parse mode
// ("Markdown", "HTML") or empty for plain text.
type Notifier interface {
	Send(ctx context.Context, userID int64, text, parseMode string) error
}

type TelegramNotifier struct {
	Bot *telego.Bot
}

func NewTelegramNotifier(bot *telego.Bot) *TelegramNotifier {
	return &TelegramNotifier{Bot: bot}
}

func (n *TelegramNotifier) Send(ctx context.Context, userID int64, text, parseMode string) error {
	msg := tu.Message(tu.ID(userID), text)
	if parseMode != "" {
		msg = msg.WithParseMode(parseMode)
	}
	if _, err := n.Bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message to %d: %w", userID, err)
	}
	return nil
}
