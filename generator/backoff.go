package generator

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sourceRetryAfter = "retry-after"
	sourceBackoff    = "backoff"
)

// RetryPolicy bounds rate-limit retries. MaxRetries counts retries after the
// first attempt; MaxDelay caps the exponential fallback only, never a
// server-supplied Retry-After.
type RetryPolicy struct {
	MaxRetries int
	MaxDelay   time.Duration
}

// DefaultRetryPolicy allows five retries with the fallback capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		MaxDelay:   30 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	return p
}

// Delay returns how long to wait before retry number attempt (1-indexed) and
// where the value came from. A parseable Retry-After header wins; otherwise
// the delay is min(MaxDelay, 2^attempt seconds).
func (p RetryPolicy) Delay(attempt int, retryAfter string, now time.Time) (time.Duration, string) {
	if d, ok := parseRetryAfter(retryAfter, now); ok {
		return d, sourceRetryAfter
	}
	return p.exponential(attempt), sourceBackoff
}

func (p RetryPolicy) exponential(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// 2^30 seconds already exceeds any sane cap
	if attempt >= 30 {
		return p.MaxDelay
	}
	d := time.Duration(1<<attempt) * time.Second
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// parseRetryAfter accepts a positive integer number of seconds or an absolute
// timestamp (RFC 3339 or HTTP-date). Timestamps in the past yield zero.
// Zero, negative and unparseable values report ok=false.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	at, err := time.Parse(time.RFC3339, v)
	if err != nil {
		at, err = http.ParseTime(v)
		if err != nil {
			return 0, false
		}
	}

	until := at.Sub(now)
	if until < 0 {
		return 0, true
	}
	return until, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
