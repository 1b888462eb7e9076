package generator

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
		ok     bool
	}{
		{name: "integer seconds", header: "3", want: 3 * time.Second, ok: true},
		{name: "padded integer", header: "  7 ", want: 7 * time.Second, ok: true},
		{name: "beyond backoff cap", header: "120", want: 120 * time.Second, ok: true},
		{name: "future rfc3339", header: now.Add(10 * time.Second).Format(time.RFC3339), want: 10 * time.Second, ok: true},
		{name: "past rfc3339", header: now.Add(-time.Minute).Format(time.RFC3339), want: 0, ok: true},
		{name: "future http date", header: now.Add(5 * time.Second).Format(http.TimeFormat), want: 5 * time.Second, ok: true},
		{name: "past http date", header: now.Add(-time.Hour).Format(http.TimeFormat), want: 0, ok: true},
		{name: "empty", header: "", ok: false},
		{name: "zero", header: "0", ok: false},
		{name: "negative", header: "-4", ok: false},
		{name: "garbage", header: "soon", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tc.header, now)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := DefaultRetryPolicy()
	now := time.Now()

	t.Run("exponential fallback is capped", func(t *testing.T) {
		want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
		for i, w := range want {
			d, source := policy.Delay(i+1, "", now)
			assert.Equal(t, w, d, "attempt %d", i+1)
			assert.Equal(t, sourceBackoff, source)
		}
	})

	t.Run("retry-after wins even above the cap", func(t *testing.T) {
		d, source := policy.Delay(1, "45", now)
		assert.Equal(t, 45*time.Second, d)
		assert.Equal(t, sourceRetryAfter, source)
	})

	t.Run("unparseable header falls through", func(t *testing.T) {
		d, source := policy.Delay(3, "later please", now)
		assert.Equal(t, 8*time.Second, d)
		assert.Equal(t, sourceBackoff, source)
	})

	t.Run("huge attempt does not overflow", func(t *testing.T) {
		d, _ := policy.Delay(90, "", now)
		assert.Equal(t, 30*time.Second, d)
	})
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepContext(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
