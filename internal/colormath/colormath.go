// Package colormath holds the integer color arithmetic used to render onto the strip.
//
// Rounding is half-to-even throughout, so Average(1, 2) == 2 and Average(2, 3) == 2.
// Brightness scaling truncates, matching what the hardware receives.
package colormath

import (
	"fmt"
	"math"
)

// Color is an 8-bit RGB triple
type Color struct {
	R, G, B uint8
}

// RGB builds a Color from channel values
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Black is the color of an unlit pixel
var Black = Color{}

func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Average returns the mean of a and b rounded half-to-even
func Average(a, b int) int {
	return int(math.RoundToEven(float64(a+b) / 2))
}

// Mix returns the unweighted per-channel average of a and b
func Mix(a, b Color) Color {
	return Color{
		R: clampChannel(float64(Average(int(a.R), int(b.R)))),
		G: clampChannel(float64(Average(int(a.G), int(b.G)))),
		B: clampChannel(float64(Average(int(a.B), int(b.B)))),
	}
}

// MixWeighted blends a and b with weightOfA in [0,1] applied to a and the remainder to b
func MixWeighted(a, b Color, weightOfA float64) Color {
	w := clampUnit(weightOfA)
	blend := func(x, y uint8) uint8 {
		return clampChannel(math.RoundToEven(float64(x)*w + float64(y)*(1-w)))
	}
	return Color{
		R: blend(a.R, b.R),
		G: blend(a.G, b.G),
		B: blend(a.B, b.B),
	}
}

// ScaleBrightness scales every channel by brightness/255, truncating.
// brightness is clamped to [0,255]; fractional values are allowed.
func ScaleBrightness(c Color, brightness float64) Color {
	b := math.Max(0, math.Min(255, brightness))
	if math.IsNaN(brightness) {
		b = 0
	}
	scale := func(x uint8) uint8 {
		return clampChannel(math.Floor(float64(x) * b / 255))
	}
	return Color{
		R: scale(c.R),
		G: scale(c.G),
		B: scale(c.B),
	}
}

func clampChannel(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
