// Package messages holds the user-facing texts.
package messages

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cryptopay-bot/internal/payment"
)

// ParseMode is the Telegram parse mode all texts are written for.
const ParseMode = "Markdown"

const dateLayout = "02.01.2006"

type Catalog struct {
	Wallet       string
	Network      string
	MonthlyPrice decimal.Decimal
	YearlyPrice  decimal.Decimal
}

func (c Catalog) instructions() string {
	return fmt.Sprintf("Для продления переведите необходимую сумму на адрес `%s` в сети %s:\n\n"+
		"- `%s ETH` для подписки на месяц\n"+
		"- `%s ETH` для подписки на год\n\n"+
		"Затем отправьте хэш транзакции в этот чат.",
		c.Wallet, c.Network, c.MonthlyPrice.String(), c.YearlyPrice.String())
}

func (c Catalog) NoSubscription() string {
	return "*У вас нет активной подписки.*\n\n" + c.instructions()
}

func (c Catalog) Expired() string {
	return "*Ваша подписка истекла.*\n\n" + c.instructions()
}

func (c Catalog) Active(endDate time.Time) string {
	return fmt.Sprintf("Ваша подписка активна до %s (UTC).", endDate.UTC().Format(dateLayout))
}

// DaysLeft is the reminder for 1, 2 or 3 remaining days.
func (c Catalog) DaysLeft(days int) string {
	head := fmt.Sprintf("*Ваша подписка истекает через %d %s.*", days, dayWord(days))
	if days == 1 {
		head = "*Ваша подписка истекает завтра.*"
	}
	return head + "\n\n" + c.instructions()
}

func (c Catalog) Extended(tier payment.Tier, endDate time.Time) string {
	period := "месяц"
	if tier == payment.TierYearly {
		period = "год"
	}
	return fmt.Sprintf("Подписка успешно продлена на %s!\nДействует до %s (UTC).", period, endDate.UTC().Format(dateLayout))
}

// Rejection maps a failed submission to its reply.
func (c Catalog) Rejection(err error) string {
	switch {
	case errors.Is(err, payment.ErrInvalidFormat):
		return "Пожалуйста, отправьте корректный хэш транзакции: \"0x\" и 64 шестнадцатеричных символа."
	case errors.Is(err, payment.ErrAlreadyUsed):
		return "Эта транзакция уже была использована."
	case errors.Is(err, payment.ErrNotFound):
		return "Транзакция не найдена."
	case errors.Is(err, payment.ErrWrongNetwork):
		return "Неверная сеть."
	case errors.Is(err, payment.ErrWrongRecipient):
		return "Неверный адрес получателя."
	case errors.Is(err, payment.ErrInsufficientAmount):
		return "Недостаточная сумма для продления подписки."
	case payment.IsTransient(err):
		return "Сервис временно недоступен. Попробуйте отправить хэш транзакции ещё раз позже."
	default:
		return "Произошла ошибка при проверке транзакции."
	}
}

func dayWord(n int) string {
	switch {
	case n%10 == 1 && n%100 != 11:
		return "день"
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 12 || n%100 > 14):
		return "дня"
	default:
		return "дней"
	}
}
