package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time so date rules can be tested.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Today returns the UTC calendar date of c.Now() truncated to midnight.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// DateOf strips the time of day from t, keeping its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
