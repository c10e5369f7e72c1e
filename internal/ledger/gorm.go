package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cryptopay-bot/internal/models"
)

const pgUniqueViolation = "23505"

// GormStore is the PostgreSQL-backed Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", userID, err)
	}
	return &sub, nil
}

func (s *GormStore) UpsertSubscription(ctx context.Context, userID int64, endDate time.Time) error {
	sub := models.Subscription{UserID: userID, EndDate: endDate.UTC()}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"end_date", "updated_at"}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("upsert subscription %d: %w", userID, err)
	}
	return nil
}

// LockSubscription takes a transaction-scoped advisory lock keyed by user.
// Row locks cannot be used because the row may not exist yet.
func (s *GormStore) LockSubscription(ctx context.Context, userID int64) error {
	if err := s.DB.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", userID).Error; err != nil {
		return fmt.Errorf("lock subscription %d: %w", userID, err)
	}
	return nil
}

func (s *GormStore) HasConsumedTransaction(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.ConsumedTransaction{}).
		Where("reference = ?", reference).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check transaction %s: %w", reference, err)
	}
	return count > 0, nil
}

func (s *GormStore) RecordConsumedTransaction(ctx context.Context, tx models.ConsumedTransaction) error {
	err := s.DB.WithContext(ctx).Create(&tx).Error
	if isDuplicateKey(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", tx.Reference, err)
	}
	return nil
}

func (s *GormStore) ListExpired(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := s.DB.WithContext(ctx).Where("end_date < ?", now).Order("end_date").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	return subs, nil
}

func (s *GormStore) ListExpiringWithin(ctx context.Context, now time.Time, horizon time.Duration) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.DB.WithContext(ctx).
		Where("end_date >= ? AND end_date <= ?", now, now.Add(horizon)).
		Order("end_date").Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list expiring subscriptions: %w", err)
	}
	return subs, nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
