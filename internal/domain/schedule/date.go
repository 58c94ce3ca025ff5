package schedule

import "time"

// DateOnly truncates t to a calendar date: midnight UTC. Due dates carry no
// time component, so every date that enters the scheduling code goes through
// this first.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
