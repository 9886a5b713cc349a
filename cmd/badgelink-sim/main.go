// Command badgelink-sim runs a room full of badges on an in-memory radio
// medium and reports who paired with whom.
//
// Badges are placed at random in a square room; the link RSSI between two
// badges follows their distance. Bitmasks are random.
//
// Usage:
//
//	badgelink-sim [flags]
//
// Flags:
//
//	-n int               Number of badges (default 6)
//	-area float          Side of the room in meters (default 8)
//	-bytes int           Bitmask size in bytes (default 2)
//	-threshold int       Similarity threshold 0-100 (default 50)
//	-loss float          Frame loss probability (default 0)
//	-seed uint           Placement and bitmask seed (default 1)
//	-duration duration   How long to run (default 5s)
//	-protocol-log string Write a protocol capture to this file
//	-metrics string      Serve Prometheus metrics on this address while running
//	-log-level string    Log level (default "warn")
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/metrics"
)

func main() {
	config := DefaultSimConfig()

	var (
		duration    time.Duration
		protocolLog string
		metricsAddr string
		logLevel    string
	)
	flag.IntVar(&config.Badges, "n", config.Badges, "Number of badges")
	flag.Float64Var(&config.Area, "area", config.Area, "Side of the room in meters")
	flag.IntVar(&config.BitmaskBytes, "bytes", config.BitmaskBytes, "Bitmask size in bytes")
	flag.IntVar(&config.Pairing.SimilarityThreshold, "threshold", config.Pairing.SimilarityThreshold, "Similarity threshold 0-100")
	flag.Float64Var(&config.Loss, "loss", 0, "Frame loss probability")
	flag.Uint64Var(&config.Seed, "seed", config.Seed, "Placement and bitmask seed")
	flag.DurationVar(&duration, "duration", 5*time.Second, "How long to run")
	flag.StringVar(&protocolLog, "protocol-log", "", "Write a protocol capture to this file")
	flag.StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address while running")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "badgelink-sim: invalid log level %q\n", logLevel)
		os.Exit(2)
	}
	config.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if protocolLog != "" {
		fl, err := log.NewFileLogger(protocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "badgelink-sim: %v\n", err)
			os.Exit(1)
		}
		defer fl.Close()
		config.ProtocolLogger = fl
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		rec := metrics.NewRecorder("badgelink_sim")
		config.Metrics = rec
		if err := serveMetrics(ctx, metricsAddr, rec); err != nil {
			fmt.Fprintf(os.Stderr, "badgelink-sim: %v\n", err)
			os.Exit(1)
		}
	}

	sim, err := NewSimulation(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "badgelink-sim: %v\n", err)
		os.Exit(2)
	}
	printRoom(sim)

	runCtx, stop := context.WithTimeout(ctx, duration)
	defer stop()
	results, err := sim.Run(runCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "badgelink-sim: %v\n", err)
		os.Exit(1)
	}
	printResults(sim, results)
}

func printRoom(sim *Simulation) {
	fmt.Println("Badges:")
	for _, b := range sim.Badges() {
		fmt.Printf("  %s  (%4.1f, %4.1f)  bitmask %s\n", b.Address, b.X, b.Y, hex.EncodeToString(b.Bitmask))
	}
	fmt.Println()
}

func printResults(sim *Simulation, results []Result) {
	fmt.Println("Final state:")
	for _, r := range results {
		fmt.Printf("  %s  %-9s", r.Address, r.State)
		if r.Partner != nil {
			fmt.Printf("  partner %s  similarity %3d%%  zone %s", r.Partner, r.Similarity, r.Zone)
		}
		fmt.Printf("  sessions %d\n", r.Pairings)
	}

	pairs := Pairs(results)
	fmt.Printf("\n%d pair(s), %d state change(s)\n", len(pairs), len(sim.Transitions()))
	for _, p := range pairs {
		fmt.Printf("  %s <-> %s\n", p[0], p[1])
	}
}

func serveMetrics(ctx context.Context, addr string, rec *metrics.Recorder) error {
	handler, err := metrics.Handler(rec)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "badgelink-sim: metrics: %v\n", err)
		}
	}()
	context.AfterFunc(ctx, func() { srv.Close() })
	return nil
}
