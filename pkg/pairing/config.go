package pairing

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/badgelink/badgelink-go/pkg/liveness"
	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/benbjohnson/clock"
)

// Protocol defaults.
const (
	DefaultSimilarityThreshold = 50
	DefaultRebroadcastInterval = 250 * time.Millisecond
	DefaultPairingTimeout      = 2 * time.Second
	DefaultHeartbeatInterval   = liveness.DefaultInterval
	DefaultMaxMissedHeartbeats = liveness.DefaultMaxMissed

	// DefaultMinProximityRSSI is the weakest signal accepted for pairing,
	// the boundary of the FAR display zone.
	DefaultMinProximityRSSI int8 = -80
)

// Machine errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrEmptyBitmask  = errors.New("bitmask is empty")
	ErrEmptyKey      = errors.New("public key is empty")
	ErrEmptyURL      = errors.New("relay URL is empty")
	ErrNotPaired     = errors.New("not paired")
	ErrNotReady      = errors.New("local bitmask and key not configured")
)

// Config configures a Machine.
type Config struct {
	// LocalAddress is this device's link-layer address.
	LocalAddress wire.Address

	// SimilarityThreshold is the minimum matcher score (0-100) for answering
	// a HELLO. Zero answers every HELLO that carries a bitmask.
	SimilarityThreshold int

	// RebroadcastInterval is the HELLO period while SEARCHING.
	RebroadcastInterval time.Duration

	// PairingTimeout bounds the time spent in PROPOSING.
	PairingTimeout time.Duration

	// HeartbeatInterval is the heartbeat period while PAIRED.
	HeartbeatInterval time.Duration

	// MaxMissedHeartbeats is the number of silent intervals that end a
	// session.
	MaxMissedHeartbeats int

	// MinProximityRSSI is the weakest RSSI accepted for ACCEPT and for a
	// competing PROPOSAL. It is used as given; DefaultConfig sets -80.
	MinProximityRSSI int8

	// Limits are the codec ceilings.
	Limits wire.Limits

	// Clock is the time source. Nil uses the wall clock.
	Clock clock.Clock

	// Logger is the optional logger for operational output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives protocol capture events. Optional.
	ProtocolLogger log.Logger

	// Metrics receives counters. Optional.
	Metrics Metrics
}

// DefaultConfig returns a Config with the protocol defaults for addr.
func DefaultConfig(addr wire.Address) Config {
	return Config{
		LocalAddress:        addr,
		SimilarityThreshold: DefaultSimilarityThreshold,
		RebroadcastInterval: DefaultRebroadcastInterval,
		PairingTimeout:      DefaultPairingTimeout,
		HeartbeatInterval:   DefaultHeartbeatInterval,
		MaxMissedHeartbeats: DefaultMaxMissedHeartbeats,
		MinProximityRSSI:    DefaultMinProximityRSSI,
		Limits:              wire.DefaultLimits(),
	}
}

// withDefaults fills zero durations, limits and collaborators.
// SimilarityThreshold and MinProximityRSSI are meaningful at zero and are
// left alone.
func (c Config) withDefaults() Config {
	if c.RebroadcastInterval == 0 {
		c.RebroadcastInterval = DefaultRebroadcastInterval
	}
	if c.PairingTimeout == 0 {
		c.PairingTimeout = DefaultPairingTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.MaxMissedHeartbeats == 0 {
		c.MaxMissedHeartbeats = DefaultMaxMissedHeartbeats
	}
	c.Limits = c.Limits.WithDefaults()
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	return c
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.LocalAddress.IsZero() || c.LocalAddress.IsBroadcast() {
		return fmt.Errorf("%w: local address %s", ErrInvalidConfig, c.LocalAddress)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 100 {
		return fmt.Errorf("%w: similarity threshold %d", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if c.RebroadcastInterval < 0 || c.PairingTimeout < 0 || c.HeartbeatInterval < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidConfig)
	}
	if c.MaxMissedHeartbeats < 0 {
		return fmt.Errorf("%w: max missed heartbeats %d", ErrInvalidConfig, c.MaxMissedHeartbeats)
	}
	// PROPOSAL and ACCEPT carry both segments.
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
