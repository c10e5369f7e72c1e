package models

import (
	"time"
)

// ConsumedTransaction marks an on-chain payment as already credited.
type ConsumedTransaction struct {
	Reference string `gorm:"primaryKey;size:66"` // normalized tx hash
	UserID    int64  `gorm:"not null;index"`
	Tier      string `gorm:"size:16"`
	Amount    string `gorm:"size:78"` // ETH, decimal string
	CreatedAt time.Time
}
