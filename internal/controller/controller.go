// Package controller polls the printer and picks the animation for its state.
package controller

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fkcurrie/klipper-led-golang/internal/animation"
	"github.com/fkcurrie/klipper-led-golang/internal/colormath"
	"github.com/fkcurrie/klipper-led-golang/internal/config"
	"github.com/fkcurrie/klipper-led-golang/internal/moonraker"
	"github.com/fkcurrie/klipper-led-golang/internal/types"
)

// Printer is the status source polled on every tick
type Printer interface {
	State(ctx context.Context) (types.PrinterState, error)
	Snapshot(ctx context.Context) (types.PrinterSnapshot, error)
	PowerStatus(ctx context.Context) (types.PowerStatus, error)
	PowerOff(ctx context.Context) (string, error)
}

// Animator renders the state animations
type Animator interface {
	ProgressBar(ctx context.Context, percent float64, base, progress colormath.Color) error
	Fade(ctx context.Context, color colormath.Color, speed animation.Speed) error
	Bounce(ctx context.Context, color colormath.Color) error
	GhostBounce(ctx context.Context, color colormath.Color) error
	Clear(ctx context.Context) error
}

// Notifier is told about every change of the observed state
type Notifier interface {
	Notify(ctx context.Context, change types.StateChange) error
}

// Baseline holds the temperatures at the start of a print.
// Heating progress is measured from here rather than from zero.
type Baseline struct {
	Bed      float64
	Extruder float64
}

// HeatingPercent returns how far temp has come from base towards target.
// The result is not clamped.
func HeatingPercent(temp, target, base float64) int {
	if target == 0 {
		return 0
	}
	if target == base {
		if temp >= target {
			return 100
		}
		return 0
	}
	return int(math.Floor((temp - base) * 100 / (target - base)))
}

// PrintPercent converts a progress fraction to a rounded percentage
func PrintPercent(progress float64) int {
	return int(math.RoundToEven(progress * 100))
}

// Controller represents the polling state machine
type Controller struct {
	cfg      *config.Config
	printer  Printer
	animator Animator
	notifier Notifier
	clock    animation.Clock
	now      func() time.Time

	idle     time.Duration
	counter  int
	previous types.PrinterState
	baseline *Baseline
}

// Option configures a Controller
type Option func(*Controller)

// WithNotifier reports state changes to n
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithClock replaces the wall clock used between polls
func WithClock(clock animation.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// New creates a new controller
func New(cfg *config.Config, printer Printer, animator Animator, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		printer:  printer,
		animator: animator,
		clock:    animation.RealClock{},
		now:      time.Now,
		previous: types.StateNone,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IdleTime returns how long the current inactive state has been held
func (c *Controller) IdleTime() time.Duration {
	return c.idle
}

// ShutdownCounter returns the number of complete polls counted towards power off
func (c *Controller) ShutdownCounter() int {
	return c.counter
}

// Baseline returns the captured baseline, if any
func (c *Controller) Baseline() (Baseline, bool) {
	if c.baseline == nil {
		return Baseline{}, false
	}
	return *c.baseline, true
}

// Run polls until ctx is cancelled, then clears the strip.
// It returns nil on cancellation and an error if the printer or strip fail.
func (c *Controller) Run(ctx context.Context) error {
	defer c.clear()

	log.WithFields(log.Fields{
		"interval":     c.cfg.PollInterval,
		"idle_timeout": c.cfg.IdleTimeout,
	}).Info("Starting status loop")

	for {
		if err := c.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.clock.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil
		}
	}
}

func (c *Controller) clear() {
	if err := c.animator.Clear(context.Background()); err != nil {
		log.WithError(err).Error("Failed to clear strip")
	}
}

// Step runs a single poll
func (c *Controller) Step(ctx context.Context) error {
	state, err := c.printer.State(ctx)
	if err != nil {
		if !c.transient(err, "Failed to query printer state") {
			return fmt.Errorf("failed to query printer state: %w", err)
		}
		state = types.StateNone
	}

	if state != c.previous {
		c.notify(ctx, state)
	}

	if err := c.render(ctx, state); err != nil {
		return err
	}

	if !state.Active() && state == c.previous {
		c.idle += c.cfg.PollInterval
		if c.idle > c.cfg.IdleTimeout {
			if err := c.animator.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear strip: %w", err)
			}
		}
	} else {
		c.idle = 0
	}

	c.previous = state
	return nil
}

// render plays the animation for state, if any
func (c *Controller) render(ctx context.Context, state types.PrinterState) error {
	switch {
	case state == types.StatePrinting:
		return c.printing(ctx)
	case state == types.StateStandby && c.idle < c.cfg.IdleTimeout:
		return c.animator.Fade(ctx, c.cfg.Colors.Standby, animation.Fast)
	case state == types.StatePaused && c.idle < c.cfg.IdleTimeout:
		return c.animator.Bounce(ctx, c.cfg.Colors.Paused)
	case state == types.StateError && c.idle < c.cfg.IdleTimeout:
		return c.animator.Fade(ctx, c.cfg.Colors.Error, animation.Fast)
	case state == types.StateComplete:
		return c.complete(ctx)
	}
	return nil
}

func (c *Controller) printing(ctx context.Context) error {
	snap, err := c.printer.Snapshot(ctx)
	if err != nil {
		if !c.transient(err, "Failed to query printer snapshot") {
			return fmt.Errorf("failed to query printer snapshot: %w", err)
		}
		return nil
	}

	if c.baseline == nil {
		c.baseline = &Baseline{Bed: snap.Bed.Temperature, Extruder: snap.Extruder.Temperature}
		log.WithFields(log.Fields{
			"bed":      c.baseline.Bed,
			"extruder": c.baseline.Extruder,
		}).Debug("Captured baseline temperatures")
	}

	bed := HeatingPercent(snap.Bed.Temperature, snap.Bed.Target, c.baseline.Bed)
	extruder := HeatingPercent(snap.Extruder.Temperature, snap.Extruder.Target, c.baseline.Extruder)
	done := PrintPercent(snap.Progress)

	log.WithFields(log.Fields{
		"bed":            bed,
		"bed_power":      snap.Bed.PowerPercent(),
		"extruder":       extruder,
		"extruder_power": snap.Extruder.PowerPercent(),
		"progress":       done,
	}).Debug("Printing")

	colors := c.cfg.Colors
	switch {
	case done < 1 && bed < 100:
		return c.animator.ProgressBar(ctx, float64(bed), colors.BedHeatingBase, colors.BedHeatingProgress)
	case done < 1 && bed >= 99 && extruder < 100:
		return c.animator.ProgressBar(ctx, float64(extruder), colors.HotendHeatingBase, colors.HotendHeatingProgress)
	case done == 0 && bed >= 100 && extruder >= 100:
		return c.animator.Clear(ctx)
	case done > 0 && done < 100:
		return c.animator.ProgressBar(ctx, float64(done), colors.PrintBase, colors.PrintProgress)
	}
	return nil
}

func (c *Controller) complete(ctx context.Context) error {
	c.baseline = nil

	power, err := c.printer.PowerStatus(ctx)
	if err != nil {
		if !c.transient(err, "Failed to query power status") {
			return fmt.Errorf("failed to query power status: %w", err)
		}
		return nil
	}
	if power != types.PowerOn {
		return nil
	}

	if err := c.animator.GhostBounce(ctx, c.cfg.Colors.Complete); err != nil {
		return err
	}
	c.counter++

	if !c.cfg.Shutdown.Enabled || c.counter < c.cfg.Shutdown.CompleteCycles {
		return nil
	}
	c.counter = 0

	snap, err := c.printer.Snapshot(ctx)
	if err != nil {
		if !c.transient(err, "Failed to query temperatures") {
			return fmt.Errorf("failed to query temperatures: %w", err)
		}
		return nil
	}

	log.WithFields(log.Fields{
		"bed":      math.Round(snap.Bed.Temperature*100) / 100,
		"extruder": math.Round(snap.Extruder.Temperature*100) / 100,
	}).Info("Checking temperatures for power off")

	if snap.Bed.Temperature >= c.cfg.Shutdown.BedTempOff || snap.Extruder.Temperature >= c.cfg.Shutdown.HotendTempOff {
		return nil
	}

	if err := c.animator.Clear(ctx); err != nil {
		return err
	}
	ack, err := c.printer.PowerOff(ctx)
	if err != nil {
		if !c.transient(err, "Failed to power off printer") {
			return fmt.Errorf("failed to power off printer: %w", err)
		}
		return nil
	}
	log.WithField("status", ack).Info("Printer powered off")
	return nil
}

func (c *Controller) notify(ctx context.Context, state types.PrinterState) {
	log.WithFields(log.Fields{
		"previous": c.previous,
		"current":  state,
	}).Info("Printer state changed")

	if c.notifier == nil {
		return
	}
	change := types.StateChange{Previous: c.previous, Current: state, At: c.now()}
	if err := c.notifier.Notify(ctx, change); err != nil {
		log.WithError(err).Warn("Failed to publish state change")
	}
}

// transient logs err and reports whether the poll may continue
func (c *Controller) transient(err error, msg string) bool {
	if !moonraker.IsTransient(err) {
		return false
	}
	log.WithError(err).Warn(msg)
	return true
}
