package gpio

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
)

const consumer = "klipper-led"

// Line is the part of a gpiocdev line used to drive an output
type Line interface {
	SetValue(value int) error
	Close() error
}

// PowerLine represents a GPIO output that switches the LED strip supply.
// A nil *PowerLine is valid and does nothing.
type PowerLine struct {
	line Line
	mu   sync.Mutex
}

// RequestPowerLine requests offset on chip as an output, initially off
func RequestPowerLine(chip string, offset int, activeLow bool) (*PowerLine, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsOutput(0),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	log.WithFields(log.Fields{"chip": chip, "offset": offset}).Debug("Requesting strip power line")
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to request line %s:%d: %w", chip, offset, err)
	}
	return NewPowerLine(line), nil
}

// NewPowerLine wraps an already requested line
func NewPowerLine(line Line) *PowerLine {
	return &PowerLine{line: line}
}

// Enable drives the line active
func (p *PowerLine) Enable() error {
	return p.set(1)
}

// Disable drives the line inactive
func (p *PowerLine) Disable() error {
	return p.set(0)
}

func (p *PowerLine) set(value int) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.line == nil {
		return fmt.Errorf("power line closed")
	}
	if err := p.line.SetValue(value); err != nil {
		return fmt.Errorf("failed to set power line to %d: %w", value, err)
	}
	return nil
}

// Close releases the line
func (p *PowerLine) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.line == nil {
		return nil
	}
	err := p.line.Close()
	p.line = nil
	return err
}
