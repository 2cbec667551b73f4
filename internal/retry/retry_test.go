package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parmira/forensic"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

type statusError int

func (e statusError) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusError) StatusCode() int { return int(e) }

func fast(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		got, err := Do(ctx, fast(3), nil, func() (string, error) {
			calls++
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		var retries []Attempt
		got, err := Do(ctx, fast(3), func(a Attempt) { retries = append(retries, a) }, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, forensic.NewProviderError("overloaded", 503, nil)
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
		require.Len(t, retries, 2)
		assert.Equal(t, 1, retries[0].Number)
		assert.Equal(t, 3, retries[0].MaxAttempts)
		assert.Equal(t, 503, forensic.StatusCodeOf(retries[1].Err))
	})

	t.Run("permanent error is returned at once", func(t *testing.T) {
		calls := 0
		denied := forensic.NewProviderError("denied", 401, nil)
		_, err := Do(ctx, fast(5), nil, func() (int, error) {
			calls++
			return 0, denied
		})
		assert.Same(t, denied, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		calls := 0
		_, err := Do(ctx, fast(3), nil, func() (int, error) {
			calls++
			return 0, timeoutError{}
		})
		assert.ErrorIs(t, err, timeoutError{})
		assert.Equal(t, 3, calls)
	})

	t.Run("zero attempts means one", func(t *testing.T) {
		calls := 0
		_, err := Do(ctx, Config{}, nil, func() (int, error) {
			calls++
			return 0, timeoutError{}
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancellation stops backoff", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cfg := Config{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}
		_, err := Do(cctx, cfg, func(Attempt) { cancel() }, func() (int, error) {
			return 0, timeoutError{}
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("retry after overrides shorter backoff", func(t *testing.T) {
		var delay time.Duration
		calls := 0
		_, err := Do(ctx, fast(2), func(a Attempt) { delay = a.Delay }, func() (int, error) {
			calls++
			if calls == 1 {
				return 0, &forensic.Error{Msg: "slow down", Cat: forensic.ErrorTransient, Code: 429, RetryDelay: 20 * time.Millisecond}
			}
			return 1, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 20*time.Millisecond, delay)
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", forensic.NewProviderError("rate", 429, nil), true},
		{"server error", forensic.NewProviderError("boom", 500, nil), true},
		{"bad request", forensic.NewProviderError("bad", 400, nil), false},
		{"unauthorized", forensic.NewProviderError("auth", 401, nil), false},
		{"sdk status 502", statusError(502), true},
		{"sdk status 404", statusError(404), false},
		{"net timeout", fmt.Errorf("dial: %w", timeoutError{}), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"temporary dns", &net.DNSError{Err: "try again", IsTemporary: true}, true},
		{"decode failure", &forensic.DecodeError{Segments: 1}, false},
		{"no image", &forensic.GenerationError{Model: "m", Err: forensic.ErrNoImage}, false},
		{"plain error", errors.New("something"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestConfigDelay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(0))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 300*time.Millisecond, cfg.Delay(2), "capped at MaxDelay")
	assert.Equal(t, 100*time.Millisecond, cfg.Delay(-1))

	jittered := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, Jitter: 0.1}
	for i := 0; i < 20; i++ {
		d := jittered.Delay(0)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}

	assert.Equal(t, 3, DefaultConfig().MaxAttempts)
	assert.Equal(t, 1, Disabled().MaxAttempts)
	assert.Equal(t, 5, DefaultConfig().WithMaxAttempts(5).MaxAttempts)
}
