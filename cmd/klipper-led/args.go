package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/fkcurrie/klipper-led-golang/internal/colormath"
)

// parseColorArgs reads "R G B [brightness]" or "#rrggbb [brightness]"
func parseColorArgs(args []string, defaultBrightness int) (colormath.Color, int, error) {
	var (
		color colormath.Color
		rest  []string
	)

	if strings.HasPrefix(args[0], "#") {
		c, err := colorful.Hex(args[0])
		if err != nil {
			return colormath.Color{}, 0, fmt.Errorf("invalid color %q: %w", args[0], err)
		}
		r, g, b := c.RGB255()
		color = colormath.RGB(r, g, b)
		rest = args[1:]
	} else {
		if len(args) < 3 {
			return colormath.Color{}, 0, fmt.Errorf("expected R G B, got %d values", len(args))
		}
		var rgb [3]uint8
		for i := range rgb {
			v, err := parseByte(args[i])
			if err != nil {
				return colormath.Color{}, 0, err
			}
			rgb[i] = v
		}
		color = colormath.RGB(rgb[0], rgb[1], rgb[2])
		rest = args[3:]
	}

	brightness := defaultBrightness
	switch len(rest) {
	case 0:
	case 1:
		v, err := parseByte(rest[0])
		if err != nil {
			return colormath.Color{}, 0, err
		}
		brightness = int(v)
	default:
		return colormath.Color{}, 0, fmt.Errorf("unexpected arguments: %s", strings.Join(rest[1:], " "))
	}

	return color, brightness, nil
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: must be between 0 and 255", s)
	}
	return uint8(v), nil
}
