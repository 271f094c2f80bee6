// Headless simulator: runs the fleet on a synthetic clock and writes one telemetry
// line per vehicle per tick to stdout, a serial device, or a socat PTY pair.
// Use this to feed receivers and parsers without running the HTTP server.
package main

import (
	"FleetTrack/internal/config"
	"FleetTrack/internal/core"
	"FleetTrack/internal/parser"
	"FleetTrack/internal/sink"
	"FleetTrack/internal/util"
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := flag.String("c", "", "path to configuration file")
	ticks := flag.Int("ticks", 60, "number of ticks to simulate (0 runs until interrupted)")
	format := flag.String("format", "", "telemetry format: json, csv or nmea (defaults to server.stream_format)")
	dev := flag.String("dev", "", "serial device to write into instead of stdout")
	baud := flag.Int("baud", 9600, "baud rate for -dev")
	virtual := flag.String("virtual", "", "create a socat PTY pair <path>,<peer> and write into <path>")
	realtime := flag.Bool("realtime", false, "sleep one tick interval between ticks")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	settings := cfg.Settings()
	if err := util.SetupLogger(settings.Log.Level, settings.Log.Format); err != nil {
		logrus.Fatalf("failed to set up logger: %v", err)
	}
	log := util.Component("simulation")

	if *format == "" {
		*format = settings.Server.StreamFormat
	}
	codec, err := parser.New(*format)
	if err != nil {
		log.Fatalf("telemetry format: %v", err)
	}

	catalog, err := config.LoadCatalog(settings.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	engine, _, _, err := core.BuildEngine(settings, catalog)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out, closeOut := openSink(ctx, log, *dev, *baud, *virtual)
	defer closeOut()

	interval := settings.Simulation.TickInterval
	now := time.Now().UTC()
	log.WithField("format", codec.Format()).WithField("vehicles", engine.Vehicles()).Info("simulating")
	for i := 0; *ticks == 0 || i < *ticks; i++ {
		if *realtime {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
		now = now.Add(interval)
		snap, err := engine.Tick(ctx, now, interval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("tick failed, stopping")
			return
		}
		for _, rec := range snap.Vehicles {
			line, err := parser.EncodeRecord(codec, rec)
			if err != nil {
				log.WithError(err).WithField("vehicle", rec.ID).Warn("encode telemetry")
				continue
			}
			if err := out.WriteLine(line); err != nil {
				log.WithError(err).Error("write telemetry")
				return
			}
		}
	}
}

func openSink(ctx context.Context, log *logrus.Entry, dev string, baud int, virtual string) (sink.Sink, func()) {
	if virtual != "" {
		device, peer, ok := splitPair(virtual)
		if !ok {
			log.Fatalf("-virtual wants <path>,<peer>, got %q", virtual)
		}
		vp, err := sink.NewVirtualPair(ctx, device, peer, 3*time.Second)
		if err != nil {
			log.Fatalf("virtual serial: %v", err)
		}
		log.Infof("read telemetry from %s", peer)
		dev = vp.Device
		s, err := sink.OpenSerial(dev, baud)
		if err != nil {
			_ = vp.Close()
			log.Fatalf("open serial: %v", err)
		}
		return s, func() {
			closeSink(log, s)
			if err := vp.Close(); err != nil {
				log.WithError(err).Warn("close virtual serial")
			}
		}
	}
	if dev != "" {
		s, err := sink.OpenSerial(dev, baud)
		if err != nil {
			log.Fatalf("open serial: %v", err)
		}
		return s, func() { closeSink(log, s) }
	}
	s := sink.NewWriter(os.Stdout)
	return s, func() { closeSink(log, s) }
}

func closeSink(log *logrus.Entry, s sink.Sink) {
	if err := s.Close(); err != nil {
		log.WithError(err).Warn("close output")
	}
}

func splitPair(s string) (string, string, bool) {
	device, peer, ok := strings.Cut(s, ",")
	return device, peer, ok && device != "" && peer != ""
}
