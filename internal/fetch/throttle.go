package fetch

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle spaces out outbound requests. One Throttle is shared by every
// worker talking to the same provider. A nil Throttle never blocks.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows perSecond requests per second with the given burst.
// perSecond <= 0 disables throttling.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if perSecond <= 0 {
		return &Throttle{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}

// Limit returns the configured requests per second.
func (t *Throttle) Limit() float64 {
	if t == nil || t.limiter == nil {
		return float64(rate.Inf)
	}
	return float64(t.limiter.Limit())
}
