package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/badgelink/badgelink-go/cmd/badgelink-node/interactive"
	"github.com/badgelink/badgelink-go/pkg/companion"
	"github.com/badgelink/badgelink-go/pkg/config"
	"github.com/badgelink/badgelink-go/pkg/discovery"
	"github.com/badgelink/badgelink-go/pkg/keys"
	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/metrics"
	"github.com/badgelink/badgelink-go/pkg/node"
	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/transport"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"golang.org/x/sync/errgroup"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "badgelink"

// daemon owns the components of one badge.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	keys       *keys.KeyPair
	radio      *transport.UDPRadio
	node       *node.Node
	history    *history
	server     *companion.Server
	advertiser *discovery.MDNSAdvertiser
	adverts    *advertQueue
	browser    *discovery.MDNSBrowser
	recorder   *metrics.Recorder
	protoLog   *log.FileLogger
}

func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	d := &daemon{
		cfg:     cfg,
		logger:  logger,
		browser: discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig()),
	}

	kp, created, err := keys.NewStore(cfg.KeyPath()).LoadOrGenerate()
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	d.keys = kp
	if created {
		logger.Info("generated badge key", "path", cfg.KeyPath(), "fingerprint", kp.Public.Fingerprint())
	}

	addr := cfg.LocalAddress()
	if addr.IsZero() {
		addr = kp.Public.Address()
	}

	if d.history, err = openHistory(cfg.StatePath(), cfg.Device.HistorySize, logger); err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	d.history.setAddress(addr)

	udp := cfg.UDPConfig()
	udp.Logger = logger.With("component", "radio")
	if d.radio, err = transport.ListenUDP(udp, addr); err != nil {
		return nil, err
	}

	nc := cfg.NodeConfig(addr)
	nc.Logger = logger.With("component", "pairing")
	if cfg.Metrics.Enabled {
		d.recorder = metrics.NewRecorder(metricsNamespace)
		nc.Pairing.Metrics = d.recorder
	}
	if cfg.Log.Protocol {
		if d.protoLog, err = log.NewFileLogger(cfg.ProtocolLogPath()); err != nil {
			d.radio.Close()
			return nil, err
		}
		nc.Pairing.ProtocolLogger = d.protoLog
	}

	if cfg.CompanionEnabled() {
		sc := cfg.ServerConfig()
		sc.Logger = logger.With("component", "companion")
		d.server = companion.NewServer(sc)
	}
	if cfg.DiscoveryEnabled() {
		d.advertiser = discovery.NewMDNSAdvertiser(cfg.AdvertiserConfig())
		d.adverts = newAdvertQueue()
	}

	if d.node, err = node.New(nc, d.radio, d); err != nil {
		d.closeResources()
		return nil, err
	}
	d.node.OnStateChange(d.stateChanged)
	if d.server != nil {
		d.server.SetController(d)
	}

	logger.Info("badge ready",
		"address", addr,
		"fingerprint", kp.Public.Fingerprint(),
		"group", udp.Group)
	return d, nil
}

// run starts every component and blocks until ctx is done or one fails.
func (d *daemon) run(ctx context.Context) error {
	if d.server != nil {
		if err := d.server.Start(); err != nil {
			d.closeResources()
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.node.Run(ctx) })
	g.Go(func() error { return d.radio.Run(ctx) })
	g.Go(func() error { return d.configure(ctx) })

	if d.server != nil {
		g.Go(func() error {
			<-ctx.Done()
			return d.server.Close()
		})
	}

	if d.advertiser != nil {
		info := &discovery.BadgeInfo{
			Address: d.radio.LocalAddress(),
			Port:    d.companionPort(),
			State:   wire.StateSearching.String(),
		}
		if err := d.advertiser.Advertise(ctx, info); err != nil {
			// mDNS is optional; the radio works without it.
			d.logger.Warn("mDNS advertising failed", "error", err)
		} else {
			g.Go(func() error { return d.adverts.run(ctx, d.updateAdvert) })
			g.Go(func() error {
				<-ctx.Done()
				d.advertiser.Stop()
				return nil
			})
		}
	}

	if d.recorder != nil {
		g.Go(func() error { return d.serveMetrics(ctx) })
	}

	err := g.Wait()
	d.history.close(time.Now())
	d.closeResources()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// configure hands the key and the stored or configured bitmask to the
// machine once the node runs.
func (d *daemon) configure(ctx context.Context) error {
	if err := d.node.SetLocalPublicKey(ctx, d.keys.Public.String()); err != nil {
		return fmt.Errorf("set public key: %w", err)
	}

	bitmask, _ := d.cfg.LocalBitmask()
	if len(bitmask) == 0 {
		bitmask = d.history.Bitmask()
	}
	if len(bitmask) == 0 {
		d.logger.Info("waiting for the companion app to set a bitmask")
		return nil
	}
	if err := d.SetLocalBitmask(ctx, bitmask); err != nil {
		return fmt.Errorf("set bitmask: %w", err)
	}
	return nil
}

func (d *daemon) serveMetrics(ctx context.Context) error {
	handler, err := metrics.Handler(d.recorder)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              d.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	d.logger.Info("metrics listening", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func (d *daemon) companionPort() uint16 {
	if d.server == nil || d.server.Addr() == nil {
		return 0
	}
	if tcp, ok := d.server.Addr().(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return 0
}

func (d *daemon) closeResources() {
	if err := d.radio.Close(); err != nil {
		d.logger.Debug("radio close", "error", err)
	}
	if d.protoLog != nil {
		if err := d.protoLog.Close(); err != nil {
			d.logger.Warn("protocol log close", "error", err)
		}
	}
}

// stateChanged runs on the node worker.
func (d *daemon) stateChanged(tr pairing.Transition) {
	d.history.transition(tr)
	if d.server != nil {
		d.server.StateChanged(tr)
	}
	if d.adverts != nil {
		d.adverts.push(advertState{state: tr.To.String(), partner: tr.Partner})
	}
}

func (d *daemon) updateAdvert(s advertState) {
	if err := d.advertiser.Update(s.state, s.partner); err != nil && !errors.Is(err, discovery.ErrNotAdvertising) {
		d.logger.Debug("mDNS update failed", "error", err)
	}
}

// PartnerKeyAvailable implements pairing.Notifier.
func (d *daemon) PartnerKeyAvailable(key string) {
	if secret, err := d.keys.SessionSecretText(key); err != nil {
		d.logger.Warn("partner key is not an X25519 key", "error", err)
	} else {
		d.logger.Info("session secret derived", "secret_fingerprint", keys.Fingerprint(secret))
	}
	if d.server != nil {
		d.server.PartnerKeyAvailable(key)
	}
}

// RelayURLReceived implements pairing.Notifier.
func (d *daemon) RelayURLReceived(url string) {
	d.history.relayURL(url)
	if d.server != nil {
		d.server.RelayURLReceived(url)
	}
}

// The companion server and the console drive the node through the daemon so
// bitmask changes are persisted.

func (d *daemon) SetLocalBitmask(ctx context.Context, b []byte) error {
	if err := d.node.SetLocalBitmask(ctx, b); err != nil {
		return err
	}
	d.history.setBitmask(b)
	return nil
}

func (d *daemon) SetLocalPublicKey(ctx context.Context, key string) error {
	return d.node.SetLocalPublicKey(ctx, key)
}

func (d *daemon) SetRelayURL(ctx context.Context, url string) error {
	return d.node.SetRelayURL(ctx, url)
}

func (d *daemon) Reset(ctx context.Context) error {
	return d.node.Reset(ctx)
}

func (d *daemon) Status(ctx context.Context) (pairing.Status, error) {
	return d.node.Status(ctx)
}

// identity describes the badge for the console.
func (d *daemon) identity() interactive.Identity {
	return interactive.Identity{
		Address:     d.radio.LocalAddress(),
		PublicKey:   d.keys.Public.String(),
		Fingerprint: d.keys.Public.Fingerprint(),
		StatePath:   d.cfg.StatePath(),
	}
}

var (
	_ pairing.Notifier     = (*daemon)(nil)
	_ companion.Controller = (*daemon)(nil)
)
