// Package main is the entry point of the FleetTrack server.
// It loads settings and the fleet catalog, constructs the simulation, traffic adapter
// and HTTP server, and runs them until interrupted.
package main

import (
	"FleetTrack/configs"
	"FleetTrack/internal/config"
	"FleetTrack/internal/core"
	"FleetTrack/internal/util"
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := flag.String("c", "", "path to configuration file (defaults to $FLEETTRACK_CONFIG)")
	printConfig := flag.Bool("print-config", false, "print the annotated sample configuration and exit")
	flag.Parse()

	if *printConfig {
		_, _ = os.Stdout.Write(configs.Sample)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	settings := cfg.Settings()
	if err := util.SetupLogger(settings.Log.Level, settings.Log.Format); err != nil {
		logrus.Fatalf("failed to set up logger: %v", err)
	}
	log := util.Component("main")
	log.WithField("config", cfg.Path()).Info("using config")

	catalog, err := config.LoadCatalog(settings.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	sys, err := core.NewSystem(settings, catalog)
	if err != nil {
		log.Fatalf("failed to create system: %v", err)
	}
	cfg.Watch(sys.Engine().Reconfigure)

	if err := sys.StartAll(context.Background()); err != nil {
		log.Fatalf("failed to start system: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- sys.Wait() }()

	// wait for Ctrl+C, SIGTERM or a component failure
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-done:
		if err != nil {
			log.WithError(err).Error("component failed")
		}
	}

	log.Info("shutting down system...")
	sys.StopAll()
	log.Info("system stopped cleanly")
}
