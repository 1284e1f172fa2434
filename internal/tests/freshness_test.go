package tests

import (
	"testing"
	"time"

	"bookpay/internal/service"
)

func TestIsFresh_Boundaries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	tests := []struct {
		name      string
		eventTime time.Time
		want      bool
	}{
		{name: "current", eventTime: now, want: true},
		{name: "one second old", eventTime: now.Add(-time.Second), want: true},
		{name: "exactly at window edge", eventTime: now.Add(-window), want: true},
		{name: "one second past window", eventTime: now.Add(-window - time.Second), want: false},
		{name: "one second in the future", eventTime: now.Add(time.Second), want: false},
		{name: "far future", eventTime: now.Add(time.Hour), want: false},
		{name: "far past", eventTime: now.Add(-24 * time.Hour), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := service.IsFresh(tc.eventTime, now, window); got != tc.want {
				t.Errorf("IsFresh(%v) = %v, want %v", tc.eventTime, got, tc.want)
			}
		})
	}
}
