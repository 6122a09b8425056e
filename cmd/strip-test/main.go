// Command strip-test plays every animation once so the strip wiring and colors can be checked.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fkcurrie/klipper-led-golang/internal/animation"
	"github.com/fkcurrie/klipper-led-golang/internal/colormath"
	"github.com/fkcurrie/klipper-led-golang/internal/config"
	"github.com/fkcurrie/klipper-led-golang/pkg/ledstrip"
)

func main() {
	count := flag.Int("leds", 0, "Number of LEDs, 0 for the default")
	pause := flag.Duration("pause", 2*time.Second, "Pause after each static pattern")
	reverse := flag.Bool("reverse", false, "Mirror the strip")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *count > 0 {
		cfg.Strip.LedCount = *count
	}
	cfg.Animation.Reverse = *reverse
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	strip, err := ledstrip.Open(cfg.Strip.LedStrip())
	if err != nil {
		log.Fatalf("Failed to open LED strip: %v", err)
	}
	defer strip.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := animation.NewEngine(strip, cfg, nil)
	err = playAll(ctx, engine, cfg.Colors, *pause, animation.RealClock{})
	if clearErr := engine.Clear(context.Background()); clearErr != nil {
		log.WithError(clearErr).Error("Failed to clear strip")
	}
	if err != nil && ctx.Err() == nil {
		strip.Close()
		log.Fatal(err)
	}
	log.Info("Test completed")
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// playAll runs the test patterns in order, pausing after each static one
func playAll(ctx context.Context, e *animation.Engine, p config.Palette, pause time.Duration, clock animation.Clock) error {
	hold := func(f func(ctx context.Context) error) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			if err := f(ctx); err != nil {
				return err
			}
			return clock.Sleep(ctx, pause)
		}
	}
	static := func(c colormath.Color) func(ctx context.Context) error {
		return hold(func(ctx context.Context) error { return e.StaticColor(ctx, c, 255) })
	}
	bar := func(percent float64, base, progress colormath.Color) func(ctx context.Context) error {
		return hold(func(ctx context.Context) error { return e.ProgressBar(ctx, percent, base, progress) })
	}

	steps := []step{
		{"red", static(colormath.RGB(255, 0, 0))},
		{"green", static(colormath.RGB(0, 255, 0))},
		{"blue", static(colormath.RGB(0, 0, 255))},
		{"bed heating 55%", bar(55, p.BedHeatingBase, p.BedHeatingProgress)},
		{"hotend heating 30%", bar(30, p.HotendHeatingBase, p.HotendHeatingProgress)},
		{"print 75%", bar(75, p.PrintBase, p.PrintProgress)},
		{"standby fade", func(ctx context.Context) error { return e.Fade(ctx, p.Standby, animation.Fast) }},
		{"error fade", func(ctx context.Context) error { return e.Fade(ctx, p.Error, animation.Slow) }},
		{"paused bounce", func(ctx context.Context) error { return e.Bounce(ctx, p.Paused) }},
		{"complete ghost bounce", func(ctx context.Context) error { return e.GhostBounce(ctx, p.Complete) }},
	}

	for _, s := range steps {
		log.WithField("pattern", s.name).Info("Playing")
		if err := s.run(ctx); err != nil {
			return err
		}
	}
	return nil
}
