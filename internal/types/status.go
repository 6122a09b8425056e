package types

import (
	"math"
	"time"
)

// PrinterState represents the print_stats state reported by Klipper
type PrinterState string

const (
	// Possible printer states
	StatePrinting PrinterState = "printing"
	StateStandby  PrinterState = "standby"
	StatePaused   PrinterState = "paused"
	StateComplete PrinterState = "complete"
	StateError    PrinterState = "error"
	StateCanceled PrinterState = "cancelled"

	// StateNone marks a poll whose response could not be used
	StateNone PrinterState = ""
)

// Active reports whether the state keeps the idle timer reset
func (s PrinterState) Active() bool {
	return s == StatePrinting || s == StateComplete
}

func (s PrinterState) String() string {
	if s == StateNone {
		return "none"
	}
	return string(s)
}

// HeaterStatus represents a single heater as reported by the status API
type HeaterStatus struct {
	Temperature float64
	Target      float64
	// Power is the PWM duty fraction in [0,1]
	Power float64
}

// PowerPercent returns the heater duty as a rounded percentage
func (h HeaterStatus) PowerPercent() int {
	return int(math.RoundToEven(h.Power * 100))
}

// PrinterSnapshot represents the heaters and print progress at one poll
type PrinterSnapshot struct {
	Bed      HeaterStatus
	Extruder HeaterStatus
	// Progress is the print completion fraction in [0,1]
	Progress  float64
	Timestamp time.Time
}

// PowerStatus represents the state of a switchable power device
type PowerStatus string

const (
	PowerOn      PowerStatus = "on"
	PowerOff     PowerStatus = "off"
	PowerUnknown PowerStatus = ""
)

// StateChange is emitted when the observed printer state differs from the previous poll
type StateChange struct {
	Previous PrinterState `json:"previous"`
	Current  PrinterState `json:"current"`
	At       time.Time    `json:"at"`
}
