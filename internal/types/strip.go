package types

// Strip represents a single addressable LED strip
type Strip interface {
	// PixelCount returns the number of pixels on the strip
	PixelCount() int
	// SetPixelRGB sets the pixel at index in the in-memory buffer
	SetPixelRGB(index int, r, g, b uint8) error
	// SetBrightness sets the global brightness applied on Show
	SetBrightness(brightness int) error
	// Show commits the buffer to the hardware
	Show() error
	// Close releases the strip
	Close() error
}
