package worker

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"
)

// PacingPolicy describes the human-like delay taken before each remote call.
type PacingPolicy struct {
	ShortMin  time.Duration
	ShortMax  time.Duration
	SlowMin   time.Duration
	SlowMax   time.Duration
	SlowEvery int
	LongEvery int
	LongPause time.Duration
}

// DefaultPacingPolicy returns the canonical pacing: 0.5-1.5s per call, 2-4s on
// every 3rd call, and a flat 30s pause on every 20th call.
func DefaultPacingPolicy() PacingPolicy {
	return PacingPolicy{
		ShortMin:  500 * time.Millisecond,
		ShortMax:  1500 * time.Millisecond,
		SlowMin:   2 * time.Second,
		SlowMax:   4 * time.Second,
		SlowEvery: 3,
		LongEvery: 20,
		LongPause: 30 * time.Second,
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RandomDuration returns a uniform duration in [min, max].
func RandomDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}

// Pacer serializes remote calls behind a delay computed from a running call
// counter. All remote calls of one run share a single Pacer.
type Pacer struct {
	policy PacingPolicy
	sleep  SleepFunc

	mu    sync.Mutex
	calls int
	rng   *rand.Rand
}

// NewPacer creates a pacer. A nil sleep uses SleepContext.
func NewPacer(policy PacingPolicy, sleep SleepFunc) *Pacer {
	if sleep == nil {
		sleep = SleepContext
	}
	return &Pacer{
		policy: policy,
		sleep:  sleep,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DelayFor computes the delay for the n-th call (1-based). The long pause
// replaces, not adds to, the regular delay.
func (p *Pacer) DelayFor(n int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delayLocked(n)
}

func (p *Pacer) delayLocked(n int) time.Duration {
	if p.policy.LongEvery > 0 && n%p.policy.LongEvery == 0 {
		return p.policy.LongPause
	}
	if p.policy.SlowEvery > 0 && n%p.policy.SlowEvery == 0 {
		return RandomDuration(p.rng, p.policy.SlowMin, p.policy.SlowMax)
	}
	return RandomDuration(p.rng, p.policy.ShortMin, p.policy.ShortMax)
}

// Wait advances the call counter and sleeps for the computed delay.
func (p *Pacer) Wait(ctx context.Context) (time.Duration, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	delay := p.delayLocked(n)
	p.mu.Unlock()

	if p.policy.LongEvery > 0 && n%p.policy.LongEvery == 0 {
		log.Printf("[Pacer] call %d: long pause %s", n, delay)
	}
	if err := p.sleep(ctx, delay); err != nil {
		return 0, err
	}
	return delay, nil
}

// Calls returns how many times Wait has been entered.
func (p *Pacer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
