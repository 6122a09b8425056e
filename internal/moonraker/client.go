// Package moonraker queries printer state from the Moonraker API in front of Klipper.
package moonraker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fkcurrie/klipper-led-golang/internal/config"
	"github.com/fkcurrie/klipper-led-golang/internal/types"
)

const (
	methodObjectsQuery = "printer.objects.query"
	methodPowerDevices = "machine.device_power.devices"
	methodPowerOff     = "machine.device_power.off"
)

var (
	// ErrMalformed is returned when a response lacks the expected fields
	ErrMalformed = errors.New("malformed response")
	// ErrAPI is returned when Moonraker answers with an error
	ErrAPI = errors.New("moonraker error")
	// ErrClosed is returned by calls on a closed connection
	ErrClosed = errors.New("connection closed")
)

// Params are the arguments of an API method. A nil value is sent as a bare key.
type Params map[string]any

// Caller issues a single API method and decodes its result
type Caller interface {
	Call(ctx context.Context, method string, params Params, result any) error
	Close() error
}

// Client represents a Moonraker client
type Client struct {
	caller  Caller
	timeout time.Duration
	device  string
}

// NewClient creates a client on top of caller. Every request is bounded by timeout.
func NewClient(caller Caller, timeout time.Duration, powerDevice string) *Client {
	return &Client{
		caller:  caller,
		timeout: timeout,
		device:  powerDevice,
	}
}

// Dial connects to Moonraker using the configured transport
func Dial(ctx context.Context, cfg config.PrinterConfig) (*Client, error) {
	var caller Caller
	switch cfg.Transport {
	case config.TransportWebsocket:
		dialCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		ws, err := DialWebsocket(dialCtx, cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		caller = ws
	default:
		h, err := NewHTTPCaller(cfg.Endpoint, nil)
		if err != nil {
			return nil, err
		}
		caller = h
	}
	return NewClient(caller, cfg.RequestTimeout, cfg.PowerDevice), nil
}

// Close closes the underlying transport
func (c *Client) Close() error {
	return c.caller.Close()
}

// IsTransient reports whether err should only skip the current poll
func IsTransient(err error) bool {
	if errors.Is(err, ErrMalformed) || errors.Is(err, ErrAPI) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) call(ctx context.Context, method string, params Params, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.caller.Call(ctx, method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

type objectsResult struct {
	Status map[string]json.RawMessage `json:"status"`
}

// queryObjects fetches the named printer objects into the matching dst values
func (c *Client) queryObjects(ctx context.Context, dst map[string]any) error {
	objects := make(map[string]any, len(dst))
	for name := range dst {
		objects[name] = nil
	}

	var res objectsResult
	if err := c.call(ctx, methodObjectsQuery, Params{"objects": objects}, &res); err != nil {
		return err
	}

	for name, v := range dst {
		raw, ok := res.Status[name]
		if !ok {
			return fmt.Errorf("%w: missing object %s", ErrMalformed, name)
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
		}
	}
	return nil
}

// State returns the print_stats state
func (c *Client) State(ctx context.Context) (types.PrinterState, error) {
	var stats struct {
		State *string `json:"state"`
	}
	if err := c.queryObjects(ctx, map[string]any{"print_stats": &stats}); err != nil {
		return types.StateNone, err
	}
	if stats.State == nil {
		return types.StateNone, fmt.Errorf("%w: missing print_stats.state", ErrMalformed)
	}
	return types.PrinterState(*stats.State), nil
}

type heaterResult struct {
	Temperature *float64 `json:"temperature"`
	Target      *float64 `json:"target"`
	Power       *float64 `json:"power"`
}

func (h heaterResult) status(name string) (types.HeaterStatus, error) {
	if h.Temperature == nil || h.Target == nil || h.Power == nil {
		return types.HeaterStatus{}, fmt.Errorf("%w: incomplete %s", ErrMalformed, name)
	}
	return types.HeaterStatus{
		Temperature: *h.Temperature,
		Target:      *h.Target,
		Power:       *h.Power,
	}, nil
}

// Snapshot returns bed and extruder heaters and the print progress
func (c *Client) Snapshot(ctx context.Context) (types.PrinterSnapshot, error) {
	var (
		bed, extruder heaterResult
		display       struct {
			Progress *float64 `json:"progress"`
		}
	)
	err := c.queryObjects(ctx, map[string]any{
		"heater_bed":     &bed,
		"extruder":       &extruder,
		"display_status": &display,
	})
	if err != nil {
		return types.PrinterSnapshot{}, err
	}

	snap := types.PrinterSnapshot{Timestamp: time.Now()}
	if snap.Bed, err = bed.status("heater_bed"); err != nil {
		return types.PrinterSnapshot{}, err
	}
	if snap.Extruder, err = extruder.status("extruder"); err != nil {
		return types.PrinterSnapshot{}, err
	}
	if display.Progress == nil {
		return types.PrinterSnapshot{}, fmt.Errorf("%w: missing display_status.progress", ErrMalformed)
	}
	snap.Progress = *display.Progress
	return snap, nil
}

// PowerStatus returns the status of the configured power device
func (c *Client) PowerStatus(ctx context.Context) (types.PowerStatus, error) {
	var res struct {
		Devices []struct {
			Device string `json:"device"`
			Status string `json:"status"`
		} `json:"devices"`
	}
	if err := c.call(ctx, methodPowerDevices, Params{"device": c.device}, &res); err != nil {
		return types.PowerUnknown, err
	}

	for _, d := range res.Devices {
		if d.Device == c.device {
			return types.PowerStatus(d.Status), nil
		}
	}
	if len(res.Devices) == 1 {
		return types.PowerStatus(res.Devices[0].Status), nil
	}
	return types.PowerUnknown, fmt.Errorf("%w: power device %q not found", ErrMalformed, c.device)
}

// PowerOff switches the configured power device off and returns its reported status
func (c *Client) PowerOff(ctx context.Context) (string, error) {
	var res map[string]any
	if err := c.call(ctx, methodPowerOff, Params{c.device: nil}, &res); err != nil {
		return "", err
	}
	return fmt.Sprint(res[c.device]), nil
}
