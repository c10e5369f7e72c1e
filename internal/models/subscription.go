package models

import (
	"time"
)

type Subscription struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    int64     `gorm:"uniqueIndex;not null"` // Telegram user ID
	EndDate   time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether access is still granted at t.
func (s *Subscription) Active(t time.Time) bool {
	return s != nil && s.EndDate.After(t)
}
