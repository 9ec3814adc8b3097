// Package ratelimit caps how many calls may start inside a trailing window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const DefaultWindow = time.Minute

// Limiter admits at most limit calls in any trailing window. Callers wait
// their turn on a one-slot channel, so blocked callers are served in arrival
// order and may give up through their context.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error

	turn chan struct{}

	mu       sync.Mutex
	admitted []time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleep replaces the context-aware sleep used while waiting for a slot.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// New returns a limiter for rpm calls per window. rpm <= 0 disables limiting.
func New(rpm int, opts ...Option) *Limiter {
	l := &Limiter{
		limit:  rpm,
		window: DefaultWindow,
		now:    time.Now,
		sleep:  Sleep,
		turn:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Admit blocks until a call may start, then records it.
func (l *Limiter) Admit(ctx context.Context) error {
	if l == nil || l.limit <= 0 {
		return ctx.Err()
	}
	select {
	case l.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.turn }()

	for {
		wait := l.tryAdmit()
		if wait <= 0 {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAdmit records an admission and returns 0, or returns how long until
// the oldest admission leaves the window.
func (l *Limiter) tryAdmit() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.evict(now)
	if len(l.admitted) < l.limit {
		l.admitted = append(l.admitted, now)
		return 0
	}
	wait := l.window - now.Sub(l.admitted[0])
	if wait <= 0 {
		// evict guarantees this cannot happen with a monotonic clock
		wait = time.Millisecond
	}
	return wait
}

func (l *Limiter) evict(now time.Time) {
	i := 0
	for i < len(l.admitted) && now.Sub(l.admitted[i]) >= l.window {
		i++
	}
	if i > 0 {
		l.admitted = append(l.admitted[:0], l.admitted[i:]...)
	}
}

// InWindow reports admissions currently inside the window.
func (l *Limiter) InWindow() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return len(l.admitted)
}

// Limit returns the configured calls per window.
func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.limit
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
