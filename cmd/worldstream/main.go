package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"worldstream/internal/config"
	"worldstream/internal/simulation"
)

func main() {
	var cfgPath, previewPath string
	flag.StringVar(&cfgPath, "config", "", "path to world configuration file (JSON or YAML)")
	flag.StringVar(&previewPath, "preview", "", "write a PNG of the final window to this path")
	flag.Parse()

	cfg, fromEnv, err := configFromEnv()
	if err != nil {
		log.Fatalf("environment config: %v", err)
	}
	if !fromEnv {
		if cfg, err = config.Load(cfgPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	sim, err := simulation.New(cfg, nil)
	if err != nil {
		log.Fatalf("initialise world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("simulation exited with error: %v", err)
	}

	if previewPath != "" {
		if err := sim.SavePreview(previewPath); err != nil {
			log.Fatalf("save preview: %v", err)
		}
		log.Printf("wrote preview to %s", previewPath)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
