package ledstrip

import (
	"fmt"
	"sync"
)

// MemoryEngine is an Engine that keeps the strip in memory.
// It is used off the Raspberry Pi and in tests.
type MemoryEngine struct {
	mu         sync.Mutex
	leds       [2][]uint32
	brightness [2]int
	renders    int
	closed     bool
}

// NewMemoryEngine creates a memory engine with count leds on each channel
func NewMemoryEngine(count int) *MemoryEngine {
	return &MemoryEngine{
		leds: [2][]uint32{make([]uint32, count), make([]uint32, count)},
	}
}

// Init implements Engine
func (m *MemoryEngine) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	return nil
}

// Render implements Engine
func (m *MemoryEngine) Render() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("render after fini")
	}
	m.renders++
	return nil
}

// Wait implements Engine
func (m *MemoryEngine) Wait() error {
	return nil
}

// Fini implements Engine
func (m *MemoryEngine) Fini() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// Leds implements Engine
func (m *MemoryEngine) Leds(channel int) []uint32 {
	return m.leds[channel]
}

// SetBrightness implements Engine
func (m *MemoryEngine) SetBrightness(channel int, brightness int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brightness[channel] = brightness
}

// Renders returns how many times the buffer was rendered
func (m *MemoryEngine) Renders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renders
}

// ChannelBrightness returns the brightness last set on channel
func (m *MemoryEngine) ChannelBrightness(channel int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brightness[channel]
}
