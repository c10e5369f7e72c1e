package bot

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"cryptopay-bot/internal/chain"
	"cryptopay-bot/internal/ledger"
	"cryptopay-bot/internal/messages"
	"cryptopay-bot/internal/notify"
	"cryptopay-bot/internal/payment"
)

// Handler holds the command logic independent of the Telegram client.
type Handler struct {
	Store     ledger.Store
	Processor *payment.Processor
	Notifier  notify.Notifier
	Messages  messages.Catalog

	now func() time.Time
}

func NewHandler(store ledger.Store, processor *payment.Processor, notifier notify.Notifier, catalog messages.Catalog) *Handler {
	return &Handler{
		Store:     store,
		Processor: processor,
		Notifier:  notifier,
		Messages:  catalog,
		now:       time.Now,
	}
}

// StatusText describes the user's current subscription.
func (h *Handler) StatusText(ctx context.Context, userID int64) string {
	sub, err := h.Store.GetSubscription(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load subscription")
		return h.Messages.Rejection(payment.ErrStoreUnavailable)
	}
	switch {
	case sub == nil:
		return h.Messages.NoSubscription()
	case sub.Active(h.now()):
		return h.Messages.Active(sub.EndDate)
	default:
		return h.Messages.Expired()
	}
}

func (h *Handler) HandleStatus(ctx context.Context, userID int64) {
	h.reply(ctx, userID, h.StatusText(ctx, userID))
}

// HandleText routes messages that look like a transaction hash to the
// payment processor. Anything else is ignored.
func (h *Handler) HandleText(ctx context.Context, userID int64, text string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, chain.ReferencePrefix) {
		return false
	}

	receipt, err := h.Processor.Submit(ctx, userID, text)
	if err != nil {
		h.reply(ctx, userID, h.Messages.Rejection(err))
		return true
	}
	h.reply(ctx, userID, h.Messages.Extended(receipt.Tier, receipt.NewEndDate))
	return true
}

func (h *Handler) reply(ctx context.Context, userID int64, text string) {
	if err := h.Notifier.Send(ctx, userID, text, messages.ParseMode); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to send reply")
	}
}
