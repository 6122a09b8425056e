package main

import (
	"testing"

	"github.com/fkcurrie/klipper-led-golang/internal/colormath"
)

func TestParseColorArgs(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantColor      colormath.Color
		wantBrightness int
		wantErr        bool
	}{
		{
			name:           "rgb",
			args:           []string{"255", "0", "128"},
			wantColor:      colormath.RGB(255, 0, 128),
			wantBrightness: 255,
		},
		{
			name:           "rgb with brightness",
			args:           []string{"10", "20", "30", "64"},
			wantColor:      colormath.RGB(10, 20, 30),
			wantBrightness: 64,
		},
		{
			name:           "hex",
			args:           []string{"#ebe309"},
			wantColor:      colormath.RGB(235, 227, 9),
			wantBrightness: 255,
		},
		{
			name:           "hex with brightness",
			args:           []string{"#ff00ff", "0"},
			wantColor:      colormath.RGB(255, 0, 255),
			wantBrightness: 0,
		},
		{name: "missing blue", args: []string{"1", "2"}, wantErr: true},
		{name: "out of range", args: []string{"1", "2", "256"}, wantErr: true},
		{name: "negative", args: []string{"-1", "2", "3"}, wantErr: true},
		{name: "bad brightness", args: []string{"1", "2", "3", "bright"}, wantErr: true},
		{name: "extra", args: []string{"1", "2", "3", "4", "5"}, wantErr: true},
		{name: "bad hex", args: []string{"#zzzzzz"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			color, brightness, err := parseColorArgs(tt.args, 255)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseColorArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if color != tt.wantColor {
				t.Errorf("color = %v, want %v", color, tt.wantColor)
			}
			if brightness != tt.wantBrightness {
				t.Errorf("brightness = %d, want %d", brightness, tt.wantBrightness)
			}
		})
	}
}
