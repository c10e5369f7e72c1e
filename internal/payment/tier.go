package payment

import (
	"time"
)

type Tier string

const (
	TierMonthly Tier = "monthly"
	TierYearly  Tier = "yearly"
)

func (t Tier) months() int {
	if t == TierYearly {
		return 12
	}
	return 1
}

// addMonths moves t by n calendar months. A day-of-month that does not exist
// in the target month is clamped to its last day (Jan 31 -> Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
