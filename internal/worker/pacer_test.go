package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestPacerDelayFor(t *testing.T) {
	p := NewPacer(DefaultPacingPolicy(), nil)

	tests := []struct {
		name     string
		call     int
		min, max time.Duration
	}{
		{"regular call", 1, 500 * time.Millisecond, 1500 * time.Millisecond},
		{"every third call is slower", 3, 2 * time.Second, 4 * time.Second},
		{"sixth call is slower", 6, 2 * time.Second, 4 * time.Second},
		{"twentieth call takes the long pause", 20, 30 * time.Second, 30 * time.Second},
		{"sixtieth call is a multiple of both", 60, 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				d := p.DelayFor(tt.call)
				if d < tt.min || d > tt.max {
					t.Fatalf("DelayFor(%d) = %s, want within [%s, %s]", tt.call, d, tt.min, tt.max)
				}
			}
		})
	}
}

func TestPacerWaitCountsCalls(t *testing.T) {
	rec := &recordingSleeper{}
	p := NewPacer(DefaultPacingPolicy(), rec.sleep)

	for i := 0; i < 20; i++ {
		if _, err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	if p.Calls() != 20 {
		t.Errorf("Calls() = %d, want 20", p.Calls())
	}
	if len(rec.delays) != 20 {
		t.Fatalf("sleeper called %d times, want 20", len(rec.delays))
	}
	if rec.delays[19] != 30*time.Second {
		t.Errorf("20th delay = %s, want 30s", rec.delays[19])
	}
	if rec.delays[2] < 2*time.Second || rec.delays[2] > 4*time.Second {
		t.Errorf("3rd delay = %s, want 2-4s", rec.delays[2])
	}
}

func TestPacerWaitHonoursCancellation(t *testing.T) {
	p := NewPacer(DefaultPacingPolicy(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled context = %v, want context.Canceled", err)
	}
}

func TestRandomDurationBounds(t *testing.T) {
	p := NewPacer(DefaultPacingPolicy(), nil)
	for i := 0; i < 100; i++ {
		d := RandomDuration(p.rng, time.Second, 2*time.Second)
		if d < time.Second || d > 2*time.Second {
			t.Fatalf("RandomDuration out of range: %s", d)
		}
	}
	if d := RandomDuration(p.rng, 5*time.Second, time.Second); d != 5*time.Second {
		t.Errorf("inverted range should return min, got %s", d)
	}
}
