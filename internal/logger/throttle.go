package logger

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Throttle lets at most one log line through per interval and counts what it drops.
// The clock is explicit so callers (and tests) control time.
type Throttle struct {
	limiter    *rate.Limiter
	now        func() time.Time
	suppressed atomic.Int64
}

func NewThrottle(every time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(every), 1),
		now:     now,
	}
}

// Allow reports whether a line may be emitted now.
func (t *Throttle) Allow() bool {
	if t.limiter.AllowN(t.now(), 1) {
		return true
	}
	t.suppressed.Add(1)
	return false
}

// Debugf logs at debug level when allowed, tagging the entry with the number of
// lines dropped since the last emitted one.
func (t *Throttle) Debugf(entry *logrus.Entry, format string, args ...any) {
	if !t.Allow() {
		return
	}
	entry.WithField("suppressed", t.suppressed.Swap(0)).Debugf(format, args...)
}
