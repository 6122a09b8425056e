// Command klipper-led shows the state of a Klipper printer on a WS281x LED strip.
//
// Without arguments it polls Moonraker until interrupted. Given a color it sets the
// strip once and exits:
//
//	klipper-led 255 0 128 [brightness]
//	klipper-led '#ff0080' [brightness]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/fkcurrie/klipper-led-golang/internal/animation"
	"github.com/fkcurrie/klipper-led-golang/internal/config"
	"github.com/fkcurrie/klipper-led-golang/internal/controller"
	"github.com/fkcurrie/klipper-led-golang/internal/moonraker"
	"github.com/fkcurrie/klipper-led-golang/internal/notify"
	"github.com/fkcurrie/klipper-led-golang/pkg/ledstrip"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-debug] [R G B | #rrggbb] [brightness]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	strip, err := ledstrip.Open(cfg.Strip.LedStrip())
	if err != nil {
		log.Fatalf("Failed to open LED strip: %v", err)
	}
	defer strip.Close()

	engine := animation.NewEngine(strip, cfg, nil)

	if flag.NArg() > 0 {
		if err := setColor(engine, cfg, flag.Args()); err != nil {
			strip.Close()
			log.Fatal(err)
		}
		return
	}

	if err := run(cfg, engine); err != nil {
		strip.Close()
		log.Fatal(err)
	}
	log.Info("Shutting down")
}

func setColor(engine *animation.Engine, cfg *config.Config, args []string) error {
	color, brightness, err := parseColorArgs(args, cfg.Strip.Brightness)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"color": color, "brightness": brightness}).Info("Setting static color")
	return engine.StaticColor(context.Background(), color, brightness)
}

func run(cfg *config.Config, engine *animation.Engine) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := moonraker.Dial(ctx, cfg.Printer)
	if err != nil {
		return fmt.Errorf("failed to connect to Moonraker: %w", err)
	}
	defer client.Close()

	log.WithFields(log.Fields{
		"endpoint":  cfg.Printer.Endpoint,
		"transport": cfg.Printer.Transport,
	}).Info("Connected to Moonraker")

	var opts []controller.Option
	if cfg.MQTT.Broker != "" {
		publisher, err := notify.Dial(cfg.MQTT)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, controller.WithNotifier(publisher))
	}

	return controller.New(cfg, client, engine, opts...).Run(ctx)
}
