package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"classified", Errorf(NotFound, "ZZZZ", "no data"), NotFound},
		{"wrapped", errorsWrap(Errorf(MalformedResponse, "AAPL", "bad json")), MalformedResponse},
		{"unclassified", errors.New("boom"), NetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func errorsWrap(err error) error {
	return &wrapped{err}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "outer: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: RateLimited, Key: "AAPL", Err: &HTTPError{StatusCode: 429, Message: "Too Many Requests"}}
	want := "fetch AAPL: rate_limited: http 429: Too Many Requests"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != 429 {
		t.Errorf("errors.As(*HTTPError) failed for %v", err)
	}
	if !err.IsRetryable() {
		t.Error("rate limited error should be retryable")
	}
}

func TestKindRetryable(t *testing.T) {
	want := map[Kind]bool{
		NotFound:          false,
		RateLimited:       true,
		NetworkError:      true,
		MalformedResponse: false,
	}
	for _, k := range Kinds {
		if got := k.Retryable(); got != want[k] {
			t.Errorf("%s.Retryable() = %v, want %v", k, got, want[k])
		}
	}
}

func TestRetrierDelay(t *testing.T) {
	r := Retrier{MaxRetries: 8, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	var prev time.Duration
	for i, w := range want {
		got := r.Delay(i + 1)
		if got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
		if got < prev {
			t.Errorf("Delay(%d) = %v decreased from %v", i+1, got, prev)
		}
		prev = got
	}
}

func newTestRetrier(maxRetries int) (Retrier, *[]time.Duration) {
	var slept []time.Duration
	r := Retrier{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		},
	}
	return r, &slept
}

func TestRetrierDo(t *testing.T) {
	t.Run("success first try", func(t *testing.T) {
		r, slept := newTestRetrier(3)
		calls := 0
		err := r.Do(context.Background(), "AAPL", func(context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if calls != 1 || len(*slept) != 0 {
			t.Errorf("calls = %d, sleeps = %d, want 1, 0", calls, len(*slept))
		}
	})

	t.Run("not found is not retried", func(t *testing.T) {
		r, _ := newTestRetrier(3)
		calls := 0
		err := r.Do(context.Background(), "ZZZZ", func(context.Context) error {
			calls++
			return Errorf(NotFound, "ZZZZ", "no data")
		})
		if KindOf(err) != NotFound {
			t.Errorf("KindOf(err) = %q, want %q", KindOf(err), NotFound)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("malformed is not retried", func(t *testing.T) {
		r, _ := newTestRetrier(3)
		calls := 0
		_ = r.Do(context.Background(), "X", func(context.Context) error {
			calls++
			return Errorf(MalformedResponse, "X", "bad")
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("network error recovers", func(t *testing.T) {
		r, slept := newTestRetrier(3)
		calls := 0
		err := r.Do(context.Background(), "MSFT", func(context.Context) error {
			calls++
			if calls < 3 {
				return Errorf(NetworkError, "MSFT", "status 500")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		want := []time.Duration{time.Second, 2 * time.Second}
		if len(*slept) != len(want) {
			t.Fatalf("sleeps = %v, want %v", *slept, want)
		}
		for i := range want {
			if (*slept)[i] != want[i] {
				t.Errorf("sleep[%d] = %v, want %v", i, (*slept)[i], want[i])
			}
		}
	})

	t.Run("rate limited exhausts to network error", func(t *testing.T) {
		r, slept := newTestRetrier(5)
		calls := 0
		err := r.Do(context.Background(), "AAPL", func(context.Context) error {
			calls++
			return Errorf(RateLimited, "AAPL", "status 429")
		})
		if calls != 6 {
			t.Errorf("calls = %d, want 6", calls)
		}
		if len(*slept) != 5 {
			t.Errorf("sleeps = %d, want 5", len(*slept))
		}
		if KindOf(err) != NetworkError {
			t.Errorf("KindOf(err) = %q, want %q", KindOf(err), NetworkError)
		}
		if !strings.Contains(err.Error(), "rate limited") {
			t.Errorf("error %q should mention rate limiting", err)
		}
	})

	t.Run("network error exhausted keeps kind", func(t *testing.T) {
		r, _ := newTestRetrier(2)
		calls := 0
		err := r.Do(context.Background(), "AAPL", func(context.Context) error {
			calls++
			return errors.New("connection reset")
		})
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		if KindOf(err) != NetworkError {
			t.Errorf("KindOf(err) = %q, want %q", KindOf(err), NetworkError)
		}
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		r, _ := newTestRetrier(5)
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := r.Do(ctx, "AAPL", func(context.Context) error {
			calls++
			cancel()
			return Errorf(NetworkError, "AAPL", "timeout")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestRetryValue(t *testing.T) {
	r, _ := newTestRetrier(1)
	calls := 0
	got, err := Retry(context.Background(), r, "GDPC1", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Errorf(NetworkError, "GDPC1", "eof")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Retry() = %d, want 42", got)
	}
}

func TestThrottle(t *testing.T) {
	t.Run("nil throttle never blocks", func(t *testing.T) {
		var th *Throttle
		if err := th.Wait(context.Background()); err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	})

	t.Run("unlimited", func(t *testing.T) {
		th := NewThrottle(0, 0)
		start := time.Now()
		for i := 0; i < 100; i++ {
			if err := th.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("unlimited throttle took %v", elapsed)
		}
	})

	t.Run("spaces requests", func(t *testing.T) {
		th := NewThrottle(20, 1)
		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := th.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		// first token is immediate, the next two wait 50ms each
		if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
			t.Errorf("3 waits at 20/s took %v, want >= 90ms", elapsed)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		th := NewThrottle(0.001, 1)
		_ = th.Wait(context.Background())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := th.Wait(ctx); err == nil {
			t.Error("Wait() on cancelled context should fail")
		}
	})
}
