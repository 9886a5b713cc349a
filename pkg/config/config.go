// Package config loads the badge daemon configuration from YAML.
//
// Every field is optional. Missing values take the package defaults, so an
// empty file is a valid configuration.
//
//	device:
//	  address: "24:6f:28:00:00:01"
//	  bitmask: "f00f"
//	  state_dir: /var/lib/badgelink
//	pairing:
//	  similarity_threshold: 50
//	  heartbeat_interval: 1s
//	radio:
//	  group: "239.255.66.76:4766"
//	companion:
//	  address: ":4767"
//	metrics:
//	  enabled: true
//	  address: ":9477"
package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/badgelink/badgelink-go/pkg/companion"
	"github.com/badgelink/badgelink-go/pkg/discovery"
	"github.com/badgelink/badgelink-go/pkg/node"
	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/transport"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"gopkg.in/yaml.v3"
)

// File names inside the state directory.
const (
	KeyFileName   = "badge.key"
	StateFileName = "state.json"
	LogFileName   = "protocol.blog"
)

// Defaults not owned by another package.
const (
	DefaultStateDir       = ".badgelink"
	DefaultMetricsAddress = ":9477"
	DefaultLogLevel       = "info"
)

// maxBitmaskLen is the largest bitmask that fits a datagram.
const maxBitmaskLen = wire.DefaultMaxPacketSize - wire.HeaderSize

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the daemon configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Pairing   PairingConfig   `yaml:"pairing"`
	Radio     RadioConfig     `yaml:"radio"`
	Node      NodeConfig      `yaml:"node"`
	Companion CompanionConfig `yaml:"companion"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// DeviceConfig identifies the badge.
type DeviceConfig struct {
	// Address is the radio address. Empty derives one from the public key.
	Address string `yaml:"address"`

	// Bitmask is the interest bitmask in hex. Empty waits for the companion
	// app to set it.
	Bitmask string `yaml:"bitmask"`

	// StateDir holds the key file, the state file and the protocol log.
	StateDir string `yaml:"state_dir"`

	// HistorySize bounds the stored pairing history.
	HistorySize int `yaml:"history_size"`
}

// PairingConfig mirrors pairing.Config.
type PairingConfig struct {
	SimilarityThreshold *int          `yaml:"similarity_threshold"`
	RebroadcastInterval time.Duration `yaml:"rebroadcast_interval"`
	PairingTimeout      time.Duration `yaml:"pairing_timeout"`
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	MaxMissedHeartbeats int           `yaml:"max_missed_heartbeats"`
	MinProximityRSSI    *int8         `yaml:"min_proximity_rssi"`
	MaxBitmaskLen       int           `yaml:"max_bitmask_len"`
	MaxStringLen        int           `yaml:"max_string_len"`
}

// RadioConfig mirrors transport.UDPConfig.
type RadioConfig struct {
	Group       string `yaml:"group"`
	Interface   string `yaml:"interface"`
	Loopback    *bool  `yaml:"loopback"`
	TTL         int    `yaml:"ttl"`
	NominalRSSI int8   `yaml:"nominal_rssi"`
	NoiseFloor  int8   `yaml:"noise_floor"`
	MaxPeers    int    `yaml:"max_peers"`
}

// NodeConfig mirrors node.Config.
type NodeConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	MailboxSize  int           `yaml:"mailbox_size"`
}

// CompanionConfig configures the companion-app server.
type CompanionConfig struct {
	Enabled        *bool    `yaml:"enabled"`
	Address        string   `yaml:"address"`
	Path           string   `yaml:"path"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DiscoveryConfig configures mDNS advertising.
type DiscoveryConfig struct {
	Enabled   *bool         `yaml:"enabled"`
	Interface string        `yaml:"interface"`
	TTL       time.Duration `yaml:"ttl"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LogConfig configures operational and protocol logging.
type LogConfig struct {
	Level string `yaml:"level"`

	// Protocol enables the CBOR protocol capture in the state directory.
	Protocol bool `yaml:"protocol"`
}

// Default returns the configuration with every default filled in.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and validates a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
func int8Ptr(n int8) *int8 { return &n }

func (c *Config) applyDefaults() {
	if c.Device.StateDir == "" {
		c.Device.StateDir = defaultStateDir()
	}

	p := pairing.DefaultConfig(wire.ZeroAddress)
	if c.Pairing.SimilarityThreshold == nil {
		c.Pairing.SimilarityThreshold = intPtr(p.SimilarityThreshold)
	}
	if c.Pairing.RebroadcastInterval == 0 {
		c.Pairing.RebroadcastInterval = p.RebroadcastInterval
	}
	if c.Pairing.PairingTimeout == 0 {
		c.Pairing.PairingTimeout = p.PairingTimeout
	}
	if c.Pairing.HeartbeatInterval == 0 {
		c.Pairing.HeartbeatInterval = p.HeartbeatInterval
	}
	if c.Pairing.MaxMissedHeartbeats == 0 {
		c.Pairing.MaxMissedHeartbeats = p.MaxMissedHeartbeats
	}
	if c.Pairing.MinProximityRSSI == nil {
		c.Pairing.MinProximityRSSI = int8Ptr(p.MinProximityRSSI)
	}
	if c.Pairing.MaxBitmaskLen == 0 {
		c.Pairing.MaxBitmaskLen = p.Limits.MaxBitmaskLen
	}
	if c.Pairing.MaxStringLen == 0 {
		c.Pairing.MaxStringLen = p.Limits.MaxStringLen
	}

	r := transport.DefaultUDPConfig()
	if c.Radio.Group == "" {
		c.Radio.Group = r.Group
	}
	if c.Radio.Loopback == nil {
		c.Radio.Loopback = boolPtr(r.Loopback)
	}
	if c.Radio.TTL == 0 {
		c.Radio.TTL = r.TTL
	}
	if c.Radio.NominalRSSI == 0 {
		c.Radio.NominalRSSI = r.NominalRSSI
	}
	if c.Radio.NoiseFloor == 0 {
		c.Radio.NoiseFloor = r.NoiseFloor
	}
	if c.Radio.MaxPeers == 0 {
		c.Radio.MaxPeers = r.MaxPeers
	}

	if c.Node.TickInterval == 0 {
		c.Node.TickInterval = node.DefaultTickInterval
	}
	if c.Node.MailboxSize == 0 {
		c.Node.MailboxSize = node.DefaultMailboxSize
	}

	if c.Companion.Enabled == nil {
		c.Companion.Enabled = boolPtr(true)
	}
	if c.Companion.Address == "" {
		c.Companion.Address = companion.DefaultAddress
	}
	if c.Companion.Path == "" {
		c.Companion.Path = companion.DefaultPath
	}

	if c.Discovery.Enabled == nil {
		c.Discovery.Enabled = boolPtr(true)
	}
	if c.Discovery.TTL == 0 {
		c.Discovery.TTL = discovery.DefaultAdvertiserConfig().TTL
	}

	if c.Metrics.Address == "" {
		c.Metrics.Address = DefaultMetricsAddress
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultStateDir
	}
	return filepath.Join(home, DefaultStateDir)
}

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	if c.Device.Address != "" {
		addr, err := wire.ParseAddress(c.Device.Address)
		if err != nil {
			return fmt.Errorf("%w: device.address: %v", ErrInvalid, err)
		}
		if addr.IsZero() || addr.IsBroadcast() {
			return fmt.Errorf("%w: device.address %s is not a unicast address", ErrInvalid, addr)
		}
	}
	if _, err := c.LocalBitmask(); err != nil {
		return err
	}
	if c.Device.HistorySize < 0 {
		return fmt.Errorf("%w: device.history_size %d", ErrInvalid, c.Device.HistorySize)
	}

	if t := c.Pairing.SimilarityThreshold; t != nil && (*t < 0 || *t > 100) {
		return fmt.Errorf("%w: pairing.similarity_threshold %d not in 0-100", ErrInvalid, *t)
	}
	if c.Pairing.RebroadcastInterval < 0 || c.Pairing.PairingTimeout < 0 || c.Pairing.HeartbeatInterval < 0 {
		return fmt.Errorf("%w: pairing intervals must not be negative", ErrInvalid)
	}
	if c.Pairing.MaxMissedHeartbeats < 0 {
		return fmt.Errorf("%w: pairing.max_missed_heartbeats %d", ErrInvalid, c.Pairing.MaxMissedHeartbeats)
	}
	if c.Pairing.MaxBitmaskLen < 0 || c.Pairing.MaxBitmaskLen > maxBitmaskLen {
		return fmt.Errorf("%w: pairing.max_bitmask_len %d not in 0-%d", ErrInvalid, c.Pairing.MaxBitmaskLen, maxBitmaskLen)
	}
	if c.Pairing.MaxStringLen < 0 {
		return fmt.Errorf("%w: pairing.max_string_len %d", ErrInvalid, c.Pairing.MaxStringLen)
	}
	limits := wire.Limits{MaxBitmaskLen: c.Pairing.MaxBitmaskLen, MaxStringLen: c.Pairing.MaxStringLen}
	if err := limits.Validate(); err != nil {
		return fmt.Errorf("%w: pairing.max_bitmask_len plus max_string_len: %w", ErrInvalid, err)
	}

	if c.Radio.TTL < 0 || c.Radio.TTL > 255 {
		return fmt.Errorf("%w: radio.ttl %d", ErrInvalid, c.Radio.TTL)
	}
	if c.Radio.MaxPeers < 0 {
		return fmt.Errorf("%w: radio.max_peers %d", ErrInvalid, c.Radio.MaxPeers)
	}
	if c.Node.TickInterval < 0 || c.Node.MailboxSize < 0 {
		return fmt.Errorf("%w: node settings must not be negative", ErrInvalid)
	}
	if !strings.HasPrefix(c.Companion.Path, "/") {
		return fmt.Errorf("%w: companion.path %q must start with /", ErrInvalid, c.Companion.Path)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// LocalAddress returns the configured address, or the zero address when it
// is to be derived.
func (c *Config) LocalAddress() wire.Address {
	if c.Device.Address == "" {
		return wire.ZeroAddress
	}
	addr, _ := wire.ParseAddress(c.Device.Address)
	return addr
}

// LocalBitmask decodes the configured bitmask. It is nil when unset.
func (c *Config) LocalBitmask() ([]byte, error) {
	s := strings.TrimSpace(c.Device.Bitmask)
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: device.bitmask: %v", ErrInvalid, err)
	}
	if len(b) > maxBitmaskLen {
		return nil, fmt.Errorf("%w: device.bitmask is %d bytes, limit %d", ErrInvalid, len(b), maxBitmaskLen)
	}
	return b, nil
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return level, nil
}

// KeyPath returns the key file location.
func (c *Config) KeyPath() string {
	return filepath.Join(c.Device.StateDir, KeyFileName)
}

// StatePath returns the state file location.
func (c *Config) StatePath() string {
	return filepath.Join(c.Device.StateDir, StateFileName)
}

// ProtocolLogPath returns the protocol capture location.
func (c *Config) ProtocolLogPath() string {
	return filepath.Join(c.Device.StateDir, LogFileName)
}

// PairingConfig converts to a pairing.Config for addr.
func (c *Config) PairingConfig(addr wire.Address) pairing.Config {
	p := pairing.DefaultConfig(addr)
	if c.Pairing.SimilarityThreshold != nil {
		p.SimilarityThreshold = *c.Pairing.SimilarityThreshold
	}
	p.RebroadcastInterval = c.Pairing.RebroadcastInterval
	p.PairingTimeout = c.Pairing.PairingTimeout
	p.HeartbeatInterval = c.Pairing.HeartbeatInterval
	p.MaxMissedHeartbeats = c.Pairing.MaxMissedHeartbeats
	if c.Pairing.MinProximityRSSI != nil {
		p.MinProximityRSSI = *c.Pairing.MinProximityRSSI
	}
	p.Limits.MaxBitmaskLen = c.Pairing.MaxBitmaskLen
	p.Limits.MaxStringLen = c.Pairing.MaxStringLen
	return p
}

// UDPConfig converts to a transport.UDPConfig.
func (c *Config) UDPConfig() transport.UDPConfig {
	u := transport.DefaultUDPConfig()
	u.Group = c.Radio.Group
	u.Interface = c.Radio.Interface
	u.Loopback = *c.Radio.Loopback
	u.TTL = c.Radio.TTL
	u.NominalRSSI = c.Radio.NominalRSSI
	u.NoiseFloor = c.Radio.NoiseFloor
	u.MaxPeers = c.Radio.MaxPeers
	return u
}

// NodeConfig converts to a node.Config for addr.
func (c *Config) NodeConfig(addr wire.Address) node.Config {
	n := node.DefaultConfig()
	n.Pairing = c.PairingConfig(addr)
	n.TickInterval = c.Node.TickInterval
	n.MailboxSize = c.Node.MailboxSize
	return n
}

// ServerConfig converts to a companion.ServerConfig.
func (c *Config) ServerConfig() companion.ServerConfig {
	s := companion.DefaultServerConfig()
	s.Address = c.Companion.Address
	s.Path = c.Companion.Path
	s.AllowedOrigins = c.Companion.AllowedOrigins
	return s
}

// AdvertiserConfig converts to a discovery.AdvertiserConfig.
func (c *Config) AdvertiserConfig() discovery.AdvertiserConfig {
	a := discovery.DefaultAdvertiserConfig()
	a.Interface = c.Discovery.Interface
	a.TTL = c.Discovery.TTL
	return a
}

// CompanionEnabled reports whether the companion server runs.
func (c *Config) CompanionEnabled() bool {
	return c.Companion.Enabled == nil || *c.Companion.Enabled
}

// DiscoveryEnabled reports whether the badge is advertised over mDNS.
func (c *Config) DiscoveryEnabled() bool {
	return c.Discovery.Enabled == nil || *c.Discovery.Enabled
}
