package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const dedupTTL = 48 * time.Hour

// Marks records which notices were already delivered.
type Marks interface {
	// Mark returns false when key was already set.
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, key string) error
}

type RedisMarks struct {
	Redis *redis.Client
}

func (m *RedisMarks) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.Redis.SetNX(ctx, key, "true", ttl).Result()
}

func (m *RedisMarks) Unmark(ctx context.Context, key string) error {
	return m.Redis.Del(ctx, key).Err()
}

// DailyDedup drops a notice identical to one already sent to the same user
// on the same UTC day. It fails open: if marks cannot be read the notice is
// sent anyway.
type DailyDedup struct {
	next  Notifier
	marks Marks
	now   func() time.Time
}

func NewDailyDedup(next Notifier, marks Marks) *DailyDedup {
	return &DailyDedup{next: next, marks: marks, now: time.Now}
}

func (d *DailyDedup) Send(ctx context.Context, userID int64, text, parseMode string) error {
	key := fmt.Sprintf("notice_%d_%s_%x", userID, d.now().UTC().Format("20060102"), xxhash.Sum64String(text))

	fresh, err := d.marks.Mark(ctx, key, dedupTTL)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Notice dedup unavailable, sending anyway")
		return d.next.Send(ctx, userID, text, parseMode)
	}
	if !fresh {
		log.Debug().Int64("user_id", userID).Msg("Notice already sent today")
		return nil
	}

	if err := d.next.Send(ctx, userID, text, parseMode); err != nil {
		if uerr := d.marks.Unmark(ctx, key); uerr != nil {
			log.Warn().Err(uerr).Str("key", key).Msg("Failed to clear notice mark")
		}
		return err
	}
	return nil
}
