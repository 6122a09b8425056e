package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fkcurrie/klipper-led-golang/internal/colormath"
	"github.com/fkcurrie/klipper-led-golang/pkg/ledstrip"
)

// Transport selects how the status client talks to Moonraker
type Transport string

const (
	TransportHTTP      Transport = "http"
	TransportWebsocket Transport = "websocket"
)

// Config represents the application configuration
type Config struct {
	Strip     StripConfig
	Animation AnimationConfig
	Colors    Palette
	Printer   PrinterConfig
	Shutdown  ShutdownConfig
	MQTT      MQTTConfig

	// PollInterval is the delay between two status polls
	PollInterval time.Duration
	// IdleTimeout is how long an unchanged, inactive state is shown before the strip goes dark
	IdleTimeout time.Duration
}

// StripConfig represents the LED strip hardware configuration
type StripConfig struct {
	LedCount   int
	GPIOPin    int
	Frequency  int
	DMA        int
	Invert     bool
	Brightness int
	Channel    int
	// StripType is "grb", "rgb" or "grbw"
	StripType string

	// PowerChip and PowerLine name an optional GPIO output that enables the strip supply.
	// An empty PowerChip disables it.
	PowerChip      string
	PowerLine      int
	PowerActiveLow bool
}

// LedStrip returns the driver configuration for the strip, power line included
func (s StripConfig) LedStrip() *ledstrip.Config {
	return &ledstrip.Config{
		LedCount:       s.LedCount,
		GPIOPin:        s.GPIOPin,
		Frequency:      s.Frequency,
		DMA:            s.DMA,
		Invert:         s.Invert,
		Brightness:     s.Brightness,
		Channel:        s.Channel,
		StripType:      s.StripType,
		PowerChip:      s.PowerChip,
		PowerLine:      s.PowerLine,
		PowerActiveLow: s.PowerActiveLow,
	}
}

// AnimationConfig represents the animation timing and direction
type AnimationConfig struct {
	Reverse       bool
	ChaseDelay    time.Duration
	FadeSlowDelay time.Duration
	FadeFastDelay time.Duration
}

// Palette holds the color for each visualized state
type Palette struct {
	BedHeatingBase        colormath.Color
	BedHeatingProgress    colormath.Color
	HotendHeatingBase     colormath.Color
	HotendHeatingProgress colormath.Color
	PrintBase             colormath.Color
	PrintProgress         colormath.Color
	Standby               colormath.Color
	Complete              colormath.Color
	Paused                colormath.Color
	Error                 colormath.Color
}

// PrinterConfig represents the connection to the Moonraker API
type PrinterConfig struct {
	Endpoint       string
	Transport      Transport
	RequestTimeout time.Duration
	PowerDevice    string
}

// ShutdownConfig controls powering off the printer after a completed print
type ShutdownConfig struct {
	Enabled bool
	// BedTempOff and HotendTempOff are in degrees Celsius
	BedTempOff    float64
	HotendTempOff float64
	// CompleteCycles is the number of complete-state polls to wait before checking temperatures
	CompleteCycles int
}

// MQTTConfig represents the optional state change publisher. An empty Broker disables it.
type MQTTConfig struct {
	Broker  string
	Topic   string
	Timeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Strip: StripConfig{
			LedCount:   10,
			GPIOPin:    10, // 18 uses PWM, 10 uses SPI
			Frequency:  800000,
			DMA:        10,
			Invert:     false,
			Brightness: 255,
			Channel:    0, // 1 for GPIOs 13, 19, 41, 45 or 53
			StripType:  "grb",
			PowerLine:  -1,
		},
		Animation: AnimationConfig{
			Reverse:       false,
			ChaseDelay:    10 * time.Millisecond,
			FadeSlowDelay: 50 * time.Millisecond,
			FadeFastDelay: 5 * time.Millisecond,
		},
		Colors: Palette{
			BedHeatingBase:        colormath.RGB(0, 0, 255),
			BedHeatingProgress:    colormath.RGB(238, 130, 238),
			HotendHeatingBase:     colormath.RGB(238, 130, 238),
			HotendHeatingProgress: colormath.RGB(255, 0, 0),
			PrintBase:             colormath.RGB(0, 0, 0),
			PrintProgress:         colormath.RGB(0, 255, 0),
			Standby:               colormath.RGB(255, 0, 255),
			Complete:              colormath.RGB(235, 227, 9),
			Paused:                colormath.RGB(0, 255, 0),
			Error:                 colormath.RGB(255, 0, 0),
		},
		Printer: PrinterConfig{
			Endpoint:       "http://localhost:7125",
			Transport:      TransportHTTP,
			RequestTimeout: 5 * time.Second,
			PowerDevice:    "printer",
		},
		Shutdown: ShutdownConfig{
			Enabled:        true,
			BedTempOff:     50,
			HotendTempOff:  40,
			CompleteCycles: 10,
		},
		MQTT: MQTTConfig{
			Topic:   "klipper-led/state",
			Timeout: 5 * time.Second,
		},
		PollInterval: 2 * time.Second,
		IdleTimeout:  300 * time.Second,
	}
}

// Validate checks the configuration for values the hardware or loop cannot use
func (c *Config) Validate() error {
	if c.Strip.LedCount < 1 {
		return fmt.Errorf("led count must be at least 1, got %d", c.Strip.LedCount)
	}
	if c.Strip.Brightness < 0 || c.Strip.Brightness > 255 {
		return fmt.Errorf("brightness must be between 0 and 255, got %d", c.Strip.Brightness)
	}
	if c.Strip.Channel != 0 && c.Strip.Channel != 1 {
		return fmt.Errorf("channel must be 0 or 1, got %d", c.Strip.Channel)
	}
	switch c.Strip.StripType {
	case "grb", "rgb", "grbw":
	default:
		return fmt.Errorf("unknown strip type %q", c.Strip.StripType)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %v", c.IdleTimeout)
	}
	if c.Printer.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.Printer.RequestTimeout)
	}
	switch c.Printer.Transport {
	case TransportHTTP, TransportWebsocket:
	default:
		return fmt.Errorf("unknown transport %q", c.Printer.Transport)
	}
	if _, err := url.Parse(c.Printer.Endpoint); err != nil {
		return fmt.Errorf("invalid printer endpoint: %w", err)
	}
	if c.MQTT.Broker != "" && c.MQTT.Timeout <= 0 {
		return fmt.Errorf("mqtt timeout must be positive, got %v", c.MQTT.Timeout)
	}
	if c.Shutdown.CompleteCycles < 1 {
		return fmt.Errorf("complete cycles must be at least 1, got %d", c.Shutdown.CompleteCycles)
	}
	return nil
}
