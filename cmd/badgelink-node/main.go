// Command badgelink-node runs one badge on the local network.
//
// The badge radio is emulated over UDP multicast, so any number of nodes on
// the same link (or the same host) discover and pair with each other. A
// companion app connects over WebSocket to set the interest bitmask, read
// the partner key and exchange relay URLs.
//
// Usage:
//
//	badgelink-node [flags]
//
// Flags:
//
//	-config string       Configuration file path (YAML)
//	-state-dir string    Directory for the key, state and protocol log
//	-address string      Radio address (derived from the key if empty)
//	-bitmask string      Interest bitmask in hex
//	-group string        Multicast group (default "239.255.66.76:4766")
//	-companion string    Companion WebSocket listen address (default ":4767")
//	-metrics string      Prometheus listen address (disabled if empty)
//	-protocol-log        Capture protocol events to the state directory
//	-no-mdns             Do not advertise over mDNS
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-interactive         Start the interactive console
//
// Examples:
//
//	# Two badges on one host
//	badgelink-node -state-dir /tmp/a -bitmask f0f0 -companion :4767
//	badgelink-node -state-dir /tmp/b -bitmask f0f1 -companion :4768
//
//	# With a config file and metrics
//	badgelink-node -config /etc/badgelink/badge.yaml -metrics :9477
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/badgelink/badgelink-go/cmd/badgelink-node/interactive"
	"github.com/badgelink/badgelink-go/pkg/config"
)

// Flags holds the command-line settings. Set flags override the file.
type Flags struct {
	ConfigFile  string
	StateDir    string
	Address     string
	Bitmask     string
	Group       string
	Companion   string
	Metrics     string
	ProtocolLog bool
	NoMDNS      bool
	LogLevel    string
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.StateDir, "state-dir", "", "Directory for the key, state and protocol log")
	flag.StringVar(&flags.Address, "address", "", "Radio address (derived from the key if empty)")
	flag.StringVar(&flags.Bitmask, "bitmask", "", "Interest bitmask in hex")
	flag.StringVar(&flags.Group, "group", "", "Multicast group host:port")
	flag.StringVar(&flags.Companion, "companion", "", "Companion WebSocket listen address")
	flag.StringVar(&flags.Metrics, "metrics", "", "Prometheus listen address (disabled if empty)")
	flag.BoolVar(&flags.ProtocolLog, "protocol-log", false, "Capture protocol events to the state directory")
	flag.BoolVar(&flags.NoMDNS, "no-mdns", false, "Do not advertise over mDNS")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the interactive console")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "badgelink-node: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var console *interactive.Console
	var out io.Writer = os.Stderr
	if flags.Interactive {
		console, err = interactive.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "badgelink-node: %v\n", err)
			os.Exit(1)
		}
		// Log through readline so output does not break the prompt.
		out = console.Stdout()
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	d, err := newDaemon(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if console != nil {
		console.Attach(d, d.browser, d.identity(), d.history.Pairings)
		go console.Run(ctx, cancel)
	}

	if err := d.run(ctx); err != nil {
		logger.Error("badge stopped", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the file, if any, and applies the flags that were set.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flags.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(flags.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "state-dir":
			cfg.Device.StateDir = flags.StateDir
		case "address":
			cfg.Device.Address = flags.Address
		case "bitmask":
			cfg.Device.Bitmask = flags.Bitmask
		case "group":
			cfg.Radio.Group = flags.Group
		case "companion":
			cfg.Companion.Address = flags.Companion
		case "metrics":
			cfg.Metrics.Enabled = flags.Metrics != ""
			cfg.Metrics.Address = flags.Metrics
		case "protocol-log":
			cfg.Log.Protocol = flags.ProtocolLog
		case "no-mdns":
			enabled := !flags.NoMDNS
			cfg.Discovery.Enabled = &enabled
		case "log-level":
			cfg.Log.Level = flags.LogLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
