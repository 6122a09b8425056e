//go:build !pi

package ledstrip

import (
	log "github.com/sirupsen/logrus"
)

// openEngine falls back to an in-memory strip when not built for the Raspberry Pi
func openEngine(cfg *Config) (Engine, error) {
	log.WithFields(log.Fields{
		"leds":    cfg.LedCount,
		"gpio":    cfg.GPIOPin,
		"channel": cfg.Channel,
	}).Warn("Built without the pi tag, rendering to memory")
	return NewMemoryEngine(cfg.LedCount), nil
}
