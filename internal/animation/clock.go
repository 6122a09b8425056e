package animation

import (
	"context"
	"time"
)

// Clock paces animation frames
type Clock interface {
	// Sleep blocks for d or until ctx is done, in which case it returns ctx.Err()
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on the wall clock
type RealClock struct{}

// Sleep implements Clock
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
