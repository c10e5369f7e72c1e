package messages

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cryptopay-bot/internal/payment"
)

var testCatalog = Catalog{
	Wallet:       "0x52908400098527886E0F7030069857D2E4169EE7",
	Network:      "Sepolia",
	MonthlyPrice: decimal.RequireFromString("0.01"),
	YearlyPrice:  decimal.RequireFromString("0.1"),
}

func TestInstructionsCarryPaymentDetails(t *testing.T) {
	for _, text := range []string{testCatalog.NoSubscription(), testCatalog.Expired(), testCatalog.DaysLeft(2)} {
		assert.Contains(t, text, testCatalog.Wallet)
		assert.Contains(t, text, "Sepolia")
		assert.Contains(t, text, "`0.01 ETH`")
		assert.Contains(t, text, "`0.1 ETH`")
	}
}

func TestDaysLeft(t *testing.T) {
	assert.Contains(t, testCatalog.DaysLeft(1), "*Ваша подписка истекает завтра.*")
	assert.Contains(t, testCatalog.DaysLeft(2), "*Ваша подписка истекает через 2 дня.*")
	assert.Contains(t, testCatalog.DaysLeft(3), "*Ваша подписка истекает через 3 дня.*")
}

func TestDayWord(t *testing.T) {
	tests := map[int]string{1: "день", 2: "дня", 4: "дня", 5: "дней", 11: "дней", 12: "дней", 21: "день", 22: "дня"}
	for n, want := range tests {
		assert.Equal(t, want, dayWord(n), n)
	}
}

func TestActiveAndExtended(t *testing.T) {
	end := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Ваша подписка активна до 10.04.2026 (UTC).", testCatalog.Active(end))
	assert.Contains(t, testCatalog.Extended(payment.TierMonthly, end), "на месяц")
	assert.Contains(t, testCatalog.Extended(payment.TierYearly, end), "на год")
	assert.Contains(t, testCatalog.Extended(payment.TierYearly, end), "10.04.2026")
}

func TestRejection(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{payment.ErrAlreadyUsed, "Эта транзакция уже была использована."},
		{payment.ErrNotFound, "Транзакция не найдена."},
		{payment.ErrWrongNetwork, "Неверная сеть."},
		{payment.ErrWrongRecipient, "Неверный адрес получателя."},
		{payment.ErrInsufficientAmount, "Недостаточная сумма для продления подписки."},
		{errors.New("boom"), "Произошла ошибка при проверке транзакции."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, testCatalog.Rejection(tt.err), tt.err.Error())
	}

	transient := testCatalog.Rejection(fmt.Errorf("%w: timeout", payment.ErrOracleUnavailable))
	assert.Contains(t, transient, "временно недоступен")
}
