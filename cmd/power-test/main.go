// Command power-test toggles the strip power-enable line to check its wiring.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fkcurrie/klipper-led-golang/pkg/gpio"
)

func main() {
	chip := flag.String("chip", "gpiochip0", "GPIO chip of the power line")
	offset := flag.Int("line", 5, "Line offset on the chip")
	activeLow := flag.Bool("active-low", false, "Line is active low")
	interval := flag.Duration("interval", time.Second, "Toggle interval")
	flag.Parse()

	power, err := gpio.RequestPowerLine(*chip, *offset, *activeLow)
	if err != nil {
		log.Fatalf("Failed to request power line: %v", err)
	}
	defer power.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{"chip": *chip, "line": *offset}).Info("Toggling strip power")
	if err := toggle(ctx, power, *interval); err != nil {
		log.WithError(err).Error("Toggle failed")
	}
	if err := power.Disable(); err != nil {
		log.WithError(err).Error("Failed to disable power")
	}
	log.Info("Shutting down")
}

// toggle flips the line every interval until ctx is done
func toggle(ctx context.Context, power *gpio.PowerLine, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	on := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			on = !on
			set := power.Disable
			if on {
				set = power.Enable
			}
			if err := set(); err != nil {
				return err
			}
			log.WithField("on", on).Debug("Set strip power")
		}
	}
}
