package main

import (
	"context"
	"time"
)

// untilNextHour returns the wait until the next top of the hour in now's location
func untilNextHour(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location())
	return next.Sub(now)
}

// runHourly calls fn at the top of every hour until ctx ends
func runHourly(ctx context.Context, fn func()) {
	for {
		t := time.NewTimer(untilNextHour(time.Now()))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			fn()
		}
	}
}
