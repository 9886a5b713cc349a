package discovery

import (
	"errors"
	"time"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Service constants for mDNS.
const (
	// ServiceType is the service type badges register.
	ServiceType = "_badgelink._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the default companion port.
	DefaultPort = 4767

	// ProtocolVersion is advertised in the TXT record.
	ProtocolVersion = "1"

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyAddress = "addr"
	TXTKeyState   = "state"
	TXTKeyVersion = "ver"
	TXTKeyPartner = "partner"
)

// Discovery errors.
var (
	ErrMissingRequired   = errors.New("missing required TXT field")
	ErrInvalidAddress    = errors.New("invalid badge address")
	ErrInvalidName       = errors.New("invalid instance name")
	ErrNotAdvertising    = errors.New("not advertising")
	ErrAlreadyAdvertised = errors.New("already advertising")
)

// BadgeInfo is what a badge advertises.
type BadgeInfo struct {
	// Name is the mDNS instance name.
	Name string

	// Address is the badge radio address.
	Address wire.Address

	// Port is the companion WebSocket port.
	Port uint16

	// State is the pairing state name.
	State string

	// Partner is set while PAIRED.
	Partner wire.Address

	// Version is the protocol version.
	Version string
}

// BadgeService is a badge found via mDNS.
type BadgeService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	BadgeInfo
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: 120 * time.Second,
	}
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface restricts browsing to one interface. Empty means all.
	Interface string

	// Timeout bounds FindAll.
	Timeout time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Timeout: 3 * time.Second}
}
