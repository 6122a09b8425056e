//go:build pi

package ledstrip

import (
	"fmt"

	ws2811 "github.com/rpi-ws281x/rpi-ws281x-go"
)

// openEngine creates the rpi_ws281x driver for the configured channel
func openEngine(cfg *Config) (Engine, error) {
	stripType, err := stripeType(cfg.StripType)
	if err != nil {
		return nil, err
	}

	opt := ws2811.DefaultOptions
	opt.Frequency = cfg.Frequency
	opt.DmaNum = cfg.DMA

	// Copy the default channel so DefaultOptions is left untouched
	ch := ws2811.DefaultOptions.Channels[0]
	ch.GpioPin = cfg.GPIOPin
	ch.LedCount = cfg.LedCount
	ch.Brightness = cfg.Brightness
	ch.StripeType = stripType
	ch.Invert = cfg.Invert

	opt.Channels = make([]ws2811.ChannelOption, cfg.Channel+1)
	opt.Channels[cfg.Channel] = ch

	dev, err := ws2811.MakeWS2811(&opt)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func stripeType(name string) (int, error) {
	switch name {
	case "", "grb":
		return ws2811.WS2811StripGRB, nil
	case "rgb":
		return ws2811.WS2811StripRGB, nil
	case "grbw":
		return ws2811.SK6812StripGRBW, nil
	}
	return 0, fmt.Errorf("unknown strip type %q", name)
}
