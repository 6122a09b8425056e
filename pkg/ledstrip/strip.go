package ledstrip

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/fkcurrie/klipper-led-golang/pkg/gpio"
)

// Engine is the part of the ws281x driver the strip relies on
type Engine interface {
	Init() error
	Render() error
	Wait() error
	Fini()
	Leds(channel int) []uint32
	SetBrightness(channel int, brightness int)
}

// Config holds the configuration for the LED strip
type Config struct {
	LedCount   int
	GPIOPin    int
	Frequency  int
	DMA        int
	Invert     bool
	Brightness int
	Channel    int
	StripType  string

	// PowerChip is the gpiochip of an optional supply enable line; empty disables it
	PowerChip      string
	PowerLine      int
	PowerActiveLow bool
}

// Strip represents a WS281x LED strip on one channel
type Strip struct {
	engine     Engine
	channel    int
	count      int
	brightness int
	power      *gpio.PowerLine
	closed     bool
	mu         sync.Mutex
}

// ErrClosed is returned when rendering to a closed strip
var ErrClosed = errors.New("strip closed")

// Open initializes the hardware strip described by cfg
func Open(cfg *Config) (*Strip, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	var power *gpio.PowerLine
	if cfg.PowerChip != "" {
		line, err := gpio.RequestPowerLine(cfg.PowerChip, cfg.PowerLine, cfg.PowerActiveLow)
		if err != nil {
			return nil, fmt.Errorf("failed to request strip power line: %w", err)
		}
		power = line
	}

	engine, err := openEngine(cfg)
	if err != nil {
		power.Close()
		return nil, fmt.Errorf("failed to create ws281x engine: %w", err)
	}

	s, err := New(engine, cfg)
	if err != nil {
		power.Close()
		return nil, err
	}
	s.power = power

	if err := power.Enable(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to enable strip power: %w", err)
	}
	return s, nil
}

// New wraps an engine and initializes it
func New(engine Engine, cfg *Config) (*Strip, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if err := engine.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize ws281x: %w", err)
	}
	if got := len(engine.Leds(cfg.Channel)); got < cfg.LedCount {
		engine.Fini()
		return nil, fmt.Errorf("engine exposes %d leds on channel %d, want %d", got, cfg.Channel, cfg.LedCount)
	}
	engine.SetBrightness(cfg.Channel, cfg.Brightness)

	return &Strip{
		engine:     engine,
		channel:    cfg.Channel,
		count:      cfg.LedCount,
		brightness: cfg.Brightness,
	}, nil
}

// NewMemory creates a strip backed by a MemoryEngine
func NewMemory(count int) *Strip {
	s, err := New(NewMemoryEngine(count), &Config{LedCount: count, Brightness: 255})
	if err != nil {
		// only reachable with count < 1
		panic(err)
	}
	return s
}

func validate(cfg *Config) error {
	if cfg.LedCount < 1 {
		return fmt.Errorf("invalid led count: %d", cfg.LedCount)
	}
	if cfg.Brightness < 0 || cfg.Brightness > 255 {
		return fmt.Errorf("brightness must be between 0 and 255")
	}
	if cfg.Channel < 0 || cfg.Channel > 1 {
		return fmt.Errorf("invalid channel: %d", cfg.Channel)
	}
	return nil
}

// PixelCount returns the number of pixels on the strip
func (s *Strip) PixelCount() int {
	return s.count
}

// SetPixelRGB sets a pixel in the buffer; it is shown on the next Show
func (s *Strip) SetPixelRGB(index int, r, g, b uint8) error {
	if index < 0 || index >= s.count {
		return fmt.Errorf("index out of bounds: %d", index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.engine.Leds(s.channel)[index] = uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	return nil
}

// PixelRGB returns the buffered color of a pixel
func (s *Strip) PixelRGB(index int) (r, g, b uint8, err error) {
	if index < 0 || index >= s.count {
		return 0, 0, 0, fmt.Errorf("index out of bounds: %d", index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, 0, 0, ErrClosed
	}
	v := s.engine.Leds(s.channel)[index]
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// SetBrightness sets the global brightness of the strip
func (s *Strip) SetBrightness(brightness int) error {
	if brightness < 0 || brightness > 255 {
		return fmt.Errorf("brightness must be between 0 and 255")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.engine.SetBrightness(s.channel, brightness)
	s.brightness = brightness
	return nil
}

// Brightness returns the current global brightness
func (s *Strip) Brightness() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness
}

// Show renders the buffer to the strip
func (s *Strip) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.engine.Render(); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	return nil
}

// Clear turns all pixels off and renders
func (s *Strip) Clear() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	leds := s.engine.Leds(s.channel)
	for i := 0; i < s.count; i++ {
		leds[i] = 0
	}
	s.mu.Unlock()

	return s.Show()
}

// Close releases the driver and drops strip power
func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.engine.Wait(); err != nil {
		log.WithError(err).Warn("Failed to wait for last render")
	}
	s.engine.Fini()

	if s.power != nil {
		if err := s.power.Disable(); err != nil {
			log.WithError(err).Warn("Failed to disable strip power")
		}
		return s.power.Close()
	}
	return nil
}
