package pairing

import (
	"bytes"
	"time"

	"github.com/badgelink/badgelink-go/pkg/keyexchange"
	"github.com/badgelink/badgelink-go/pkg/liveness"
	"github.com/badgelink/badgelink-go/pkg/proximity"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Stats are cumulative machine counters.
type Stats struct {
	PacketsSent     uint64 `json:"packetsSent"`
	PacketsReceived uint64 `json:"packetsReceived"`
	PacketsDropped  uint64 `json:"packetsDropped"`
	PacketsIgnored  uint64 `json:"packetsIgnored"`
	EncodeFailures  uint64 `json:"encodeFailures"`
	Pairings        uint64 `json:"pairings"`
	Timeouts        uint64 `json:"timeouts"`
}

// Status is a point-in-time copy of the machine state.
type Status struct {
	Ready        bool         `json:"ready"`
	State        string       `json:"state"`
	LocalAddress wire.Address `json:"localAddress"`
	LocalBitmask []byte       `json:"localBitmask,omitempty"`

	Partner        *wire.Address `json:"partner,omitempty"`
	PartnerKey     string        `json:"partnerKey,omitempty"`
	PartnerBitmask []byte        `json:"partnerBitmask,omitempty"`
	Similarity     int           `json:"similarity"`
	ProposalRSSI   int8          `json:"proposalRssi,omitempty"`
	PartnerRSSI    int8          `json:"partnerRssi,omitempty"`

	SessionID string     `json:"sessionId,omitempty"`
	PairedAt  *time.Time `json:"pairedAt,omitempty"`

	Zone      string  `json:"zone"`
	DistanceM float64 `json:"distanceM,omitempty"`

	Heartbeat   liveness.Stats       `json:"heartbeat"`
	KeyExchange keyexchange.Snapshot `json:"keyExchange"`
	Stats       Stats                `json:"stats"`
}

// Status returns a snapshot of the machine.
func (m *Machine) Status() Status {
	now := m.now()
	s := Status{
		Ready:        m.ready,
		State:        m.state.String(),
		LocalAddress: m.config.LocalAddress,
		LocalBitmask: bytes.Clone(m.localBitmask),
		ProposalRSSI: m.proposalRSSI,
		PartnerRSSI:  m.partnerRSSI,
		SessionID:    m.sessionID,
		Zone:         proximity.ZoneUnknown.String(),
		KeyExchange:  m.exchange.Snapshot(),
		Stats:        m.stats,
	}

	if m.state != wire.StateSearching {
		partner := m.partner
		s.Partner = &partner
		s.PartnerBitmask = bytes.Clone(m.partnerBitmask)
		s.Similarity = m.similarity()
	}
	if m.state == wire.StatePaired {
		pairedAt := m.pairedAt
		s.PairedAt = &pairedAt
		s.PartnerKey = m.partnerKey
		s.Heartbeat = m.monitor.Stats()

		zone := m.tracker.Zone(now)
		s.Zone = zone.String()
		if zone != proximity.ZoneUnknown {
			s.DistanceM = proximity.EstimateDistance(m.tracker.Average())
		}
	}
	return s
}

// Stats returns the cumulative counters.
func (m *Machine) Stats() Stats {
	return m.stats
}

// PartnerZone returns the smoothed proximity zone of the partner while
// PAIRED, ZoneUnknown otherwise.
func (m *Machine) PartnerZone() proximity.Zone {
	if m.state != wire.StatePaired {
		return proximity.ZoneUnknown
	}
	return m.tracker.Zone(m.now())
}
