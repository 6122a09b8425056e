package colormath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		a, b int
		want int
	}{
		{10, 20, 15},
		{1, 2, 2},
		{2, 3, 2},
		{0, 255, 128},
		{254, 255, 254},
		{0, 0, 0},
		{255, 255, 255},
	}

	for _, tt := range tests {
		if got := Average(tt.a, tt.b); got != tt.want {
			t.Errorf("Average(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMix(t *testing.T) {
	assert.Equal(t, RGB(128, 0, 128), Mix(RGB(0, 0, 255), RGB(255, 0, 0)))
	assert.Equal(t, RGB(15, 15, 15), Mix(RGB(10, 10, 10), RGB(20, 20, 20)))
}

func TestMixWeighted(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Color
		weight float64
		want   Color
	}{
		{"half green over black", RGB(0, 255, 0), Black, 0.5, RGB(0, 128, 0)},
		{"violet over blue", RGB(238, 130, 238), RGB(0, 0, 255), 0.5, RGB(119, 65, 246)},
		{"quarter", RGB(200, 100, 0), RGB(0, 0, 200), 0.25, RGB(50, 25, 150)},
		{"all of a", RGB(1, 2, 3), RGB(9, 9, 9), 1, RGB(1, 2, 3)},
		{"none of a", RGB(1, 2, 3), RGB(9, 9, 9), 0, RGB(9, 9, 9)},
		{"weight above one clamps", RGB(1, 2, 3), RGB(9, 9, 9), 1.5, RGB(1, 2, 3)},
		{"negative weight clamps", RGB(1, 2, 3), RGB(9, 9, 9), -1, RGB(9, 9, 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MixWeighted(tt.a, tt.b, tt.weight))
		})
	}
}

func TestMixWeightedStaysInRange(t *testing.T) {
	for w := 0.0; w <= 1.0; w += 0.05 {
		got := MixWeighted(RGB(255, 255, 0), RGB(255, 0, 255), w)
		assert.Equal(t, uint8(255), got.R, "weight %v", w)
		assert.LessOrEqual(t, got.G, uint8(255))
	}
}

func TestScaleBrightness(t *testing.T) {
	c := RGB(255, 128, 7)

	assert.Equal(t, Black, ScaleBrightness(c, 0))
	assert.Equal(t, c, ScaleBrightness(c, 255))
	assert.Equal(t, RGB(128, 64, 3), ScaleBrightness(c, 128))
	assert.Equal(t, RGB(63, 32, 1), ScaleBrightness(c, 63.75))
	assert.Equal(t, c, ScaleBrightness(c, 300))
	assert.Equal(t, Black, ScaleBrightness(c, -5))
}

func TestScaleBrightnessTruncates(t *testing.T) {
	for x := 0; x <= 255; x += 17 {
		for b := 0; b <= 255; b += 15 {
			c := RGB(uint8(x), uint8(x), uint8(x))
			want := uint8(x * b / 255)
			got := ScaleBrightness(c, float64(b))
			if got.R != want {
				t.Fatalf("ScaleBrightness(%v, %d) = %v, want %d", c, b, got, want)
			}
		}
	}
}
