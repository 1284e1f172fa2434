package service

import "time"

// DefaultFreshnessWindow is the maximum allowed age of a notification
// before it is treated as a replay.
const DefaultFreshnessWindow = 5 * time.Minute

// IsFresh reports whether an event timestamp falls inside the freshness
// window ending at now. Future-dated timestamps are rejected; forward clock
// skew is not tolerated, since accepting it would widen the replay surface.
func IsFresh(eventTime, now time.Time, window time.Duration) bool {
	if eventTime.After(now) {
		return false
	}
	return !eventTime.Before(now.Add(-window))
}
