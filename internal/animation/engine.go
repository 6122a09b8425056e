// Package animation renders printer state onto a single LED strip.
//
// Every animation blocks until its last frame is shown. Cancelling the context aborts
// the animation at the next frame boundary and leaves the strip as last shown.
package animation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fkcurrie/klipper-led-golang/internal/colormath"
	"github.com/fkcurrie/klipper-led-golang/internal/config"
	"github.com/fkcurrie/klipper-led-golang/internal/types"
)

// Speed selects the per-step delay of a fade
type Speed int

const (
	Slow Speed = iota
	Fast
)

func (s Speed) String() string {
	if s == Fast {
		return "fast"
	}
	return "slow"
}

// fadeHoldSteps is how many step delays a fade holds at full brightness
const fadeHoldSteps = 5

// ghostTrail is the number of lit pixels in a ghost chase
const ghostTrail = 4

// remainderEpsilon absorbs floating point noise at the leading edge of a progress bar
const remainderEpsilon = 1e-9

// Engine renders animations onto a strip.
// With Animation.Reverse set, every animation is mirrored, chases included,
// so pixel 0 is the last LED on the strip.
type Engine struct {
	strip      types.Strip
	clock      Clock
	brightness int
	reverse    bool
	chaseDelay time.Duration
	fadeSlow   time.Duration
	fadeFast   time.Duration
}

// NewEngine creates a new animation engine for the given strip
func NewEngine(strip types.Strip, cfg *config.Config, clock Clock) *Engine {
	if clock == nil {
		clock = RealClock{}
	}
	return &Engine{
		strip:      strip,
		clock:      clock,
		brightness: cfg.Strip.Brightness,
		reverse:    cfg.Animation.Reverse,
		chaseDelay: cfg.Animation.ChaseDelay,
		fadeSlow:   cfg.Animation.FadeSlowDelay,
		fadeFast:   cfg.Animation.FadeFastDelay,
	}
}

// StaticColor fills the strip with color scaled to brightness
func (e *Engine) StaticColor(ctx context.Context, color colormath.Color, brightness int) error {
	if err := e.strip.SetBrightness(e.brightness); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}
	if err := e.fill(colormath.ScaleBrightness(color, float64(brightness))); err != nil {
		return err
	}
	return e.show()
}

// ProgressBar draws percent of the strip in progress and the rest in base.
// The pixel at the leading edge is blended by the fractional part.
func (e *Engine) ProgressBar(ctx context.Context, percent float64, base, progress colormath.Color) error {
	if err := e.strip.SetBrightness(e.brightness); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}

	n := e.strip.PixelCount()
	whole, remainder := splitProgress(percent, n)
	tween := colormath.MixWeighted(progress, base, remainder)

	for i := 0; i < n; i++ {
		c := base
		switch {
		case i < whole:
			c = progress
		case i == whole && remainder > 0:
			c = tween
		}
		if err := e.set(i, colormath.ScaleBrightness(c, float64(e.brightness))); err != nil {
			return err
		}
	}

	return e.show()
}

// splitProgress returns the number of fully lit pixels and the fraction of the next one
func splitProgress(percent float64, n int) (int, float64) {
	if math.IsNaN(percent) {
		percent = 0
	}
	percent = math.Max(0, math.Min(100, percent))

	filled := percent * float64(n) / 100
	whole := int(math.Floor(filled))
	remainder := filled - float64(whole)

	switch {
	case remainder < remainderEpsilon:
		remainder = 0
	case remainder > 1-remainderEpsilon:
		whole++
		remainder = 0
	}
	if whole >= n {
		return n, 0
	}
	return whole, remainder
}

// Fade ramps the whole strip from dark up to full brightness, holds, and ramps back down
func (e *Engine) Fade(ctx context.Context, color colormath.Color, speed Speed) error {
	delay := e.fadeSlow
	if speed == Fast {
		delay = e.fadeFast
	}

	if err := e.strip.SetBrightness(0); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}
	if err := e.fill(color); err != nil {
		return err
	}
	if err := e.show(); err != nil {
		return err
	}

	for b := 0; b < e.brightness; b++ {
		if err := e.brightnessStep(ctx, b, delay); err != nil {
			return err
		}
	}

	if err := e.clock.Sleep(ctx, fadeHoldSteps*delay); err != nil {
		return err
	}

	for b := e.brightness; b >= 0; b-- {
		if err := e.brightnessStep(ctx, b, delay); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) brightnessStep(ctx context.Context, brightness int, delay time.Duration) error {
	if err := e.strip.SetBrightness(brightness); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}
	if err := e.show(); err != nil {
		return err
	}
	return e.clock.Sleep(ctx, delay)
}

// Chase moves a single lit pixel across the strip and one step past its end.
// A reversed chase runs from the far end and clears the strip when done.
func (e *Engine) Chase(ctx context.Context, color colormath.Color, reverse bool) error {
	if err := e.strip.SetBrightness(e.brightness); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}

	n := e.strip.PixelCount()
	lit := colormath.ScaleBrightness(color, float64(e.brightness))

	for step := 0; step <= n; step++ {
		head := step
		if reverse {
			head = n - step
		}
		for p := 0; p < n; p++ {
			c := colormath.Black
			if p == head {
				c = lit
			}
			if err := e.set(p, c); err != nil {
				return err
			}
		}
		if err := e.frame(ctx); err != nil {
			return err
		}
	}

	if reverse {
		return e.Clear(ctx)
	}
	return nil
}

// ChaseGhost is a chase with a fading four pixel trail behind the head.
// It runs until the trail has left the strip.
func (e *Engine) ChaseGhost(ctx context.Context, color colormath.Color, reverse bool) error {
	if err := e.strip.SetBrightness(e.brightness); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}

	n := e.strip.PixelCount()
	quarter := float64(e.brightness) / ghostTrail

	// levels[d] is the brightness of the pixel d places below the moving index
	var levels [ghostTrail]colormath.Color
	for d := 0; d < ghostTrail; d++ {
		share := ghostTrail - d
		if reverse {
			share = d + 1
		}
		levels[d] = colormath.ScaleBrightness(color, quarter*float64(share))
	}

	steps := n + ghostTrail + 1
	for step := 0; step < steps; step++ {
		head := step
		if reverse {
			head = steps - 1 - step
		}
		for p := 0; p < n; p++ {
			c := colormath.Black
			if d := head - p; d >= 0 && d < ghostTrail {
				c = levels[d]
			}
			if err := e.set(p, c); err != nil {
				return err
			}
		}
		if err := e.frame(ctx); err != nil {
			return err
		}
	}

	if reverse {
		return e.Clear(ctx)
	}
	return nil
}

// Bounce runs a chase to the end of the strip and back
func (e *Engine) Bounce(ctx context.Context, color colormath.Color) error {
	if err := e.Chase(ctx, color, false); err != nil {
		return err
	}
	return e.Chase(ctx, color, true)
}

// GhostBounce runs a ghost chase to the end of the strip and back
func (e *Engine) GhostBounce(ctx context.Context, color colormath.Color) error {
	if err := e.ChaseGhost(ctx, color, false); err != nil {
		return err
	}
	return e.ChaseGhost(ctx, color, true)
}

// Clear turns every pixel off
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.fill(colormath.Black); err != nil {
		return err
	}
	return e.show()
}

// set writes a logical pixel, mirrored when the strip is mounted reversed
func (e *Engine) set(i int, c colormath.Color) error {
	if e.reverse {
		i = e.strip.PixelCount() - 1 - i
	}
	if err := e.strip.SetPixelRGB(i, c.R, c.G, c.B); err != nil {
		return fmt.Errorf("failed to set pixel %d: %w", i, err)
	}
	return nil
}

func (e *Engine) fill(c colormath.Color) error {
	for i := 0; i < e.strip.PixelCount(); i++ {
		if err := e.set(i, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) show() error {
	if err := e.strip.Show(); err != nil {
		return fmt.Errorf("failed to show strip: %w", err)
	}
	return nil
}

// frame shows the buffer and waits one chase step
func (e *Engine) frame(ctx context.Context) error {
	if err := e.show(); err != nil {
		return err
	}
	return e.clock.Sleep(ctx, e.chaseDelay)
}
