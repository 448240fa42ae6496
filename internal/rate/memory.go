package rate

import (
	"context"
	"math"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	xrate "golang.org/x/time/rate"
)

// MemoryLimiter es un token bucket por key (Max hits por Window, ráfaga Max).
// Los buckets sin uso se descartan tras unas ventanas.
type MemoryLimiter struct {
	Max     int64
	Window  time.Duration
	buckets *gocache.Cache
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	idle := 5 * window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &MemoryLimiter{
		Max:     int64(max),
		Window:  window,
		buckets: gocache.New(idle, 2*idle),
	}
}

func (l *MemoryLimiter) bucket(key string) *xrate.Limiter {
	key = strings.ReplaceAll(key, " ", "_")
	if v, ok := l.buckets.Get(key); ok {
		l.buckets.SetDefault(key, v)
		return v.(*xrate.Limiter)
	}
	lim := xrate.NewLimiter(xrate.Limit(float64(l.Max)/l.Window.Seconds()), int(l.Max))
	// Add falla si otro goroutine ganó la carrera; usamos el suyo.
	if err := l.buckets.Add(key, lim, gocache.DefaultExpiration); err != nil {
		if v, ok := l.buckets.Get(key); ok {
			return v.(*xrate.Limiter)
		}
	}
	return lim
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	lim := l.bucket(key)
	now := time.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Result{Allowed: false, RetryAfter: l.Window}, nil
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return Result{
			Allowed:    false,
			RetryAfter: time.Duration(math.Ceil(delay.Seconds())) * time.Second,
			WindowTTL:  l.Window,
		}, nil
	}
	remaining := int64(math.Floor(lim.TokensAt(now)))
	return Result{
		Allowed:     true,
		Remaining:   max(remaining, 0),
		CurrentHits: l.Max - max(remaining, 0),
		WindowTTL:   l.Window,
	}, nil
}
