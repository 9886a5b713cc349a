package pairing

import (
	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Tick runs the periodic part of the protocol. It is called by the scheduler
// at a fixed sub-second cadence.
func (m *Machine) Tick() {
	if !m.ready {
		return
	}
	now := m.now()

	switch m.state {
	case wire.StateSearching:
		if m.lastAction.IsZero() || now.Sub(m.lastAction) >= m.config.RebroadcastInterval {
			pkt := m.newPacket(wire.MsgHello, wire.BroadcastAddress)
			pkt.Bitmask = m.localBitmask
			if m.broadcast(pkt) == nil {
				m.lastAction = now
			}
		}

	case wire.StateProposing:
		if now.Sub(m.lastAction) >= m.config.PairingTimeout {
			m.enterSearching("proposal timeout")
		}

	case wire.StatePaired:
		if m.monitor.Check(now) {
			m.stats.Timeouts++
			m.enterSearching("heartbeat timeout")
			return
		}
		if m.monitor.Due(now) {
			pkt := m.newPacket(wire.MsgHeartbeat, m.partner)
			pkt.Seq = m.monitor.RecordSent(now)
			_ = m.unicast(m.partner, pkt)
		}
		m.exchange.Run(exchangeActions{m})
	}
}

// exchangeActions binds the key exchange to the machine.
type exchangeActions struct {
	m *Machine
}

func (a exchangeActions) SendKey() error {
	pkt := a.m.newPacket(wire.MsgKeyExchange, a.m.partner)
	pkt.Text, pkt.HasText = a.m.localKey, true
	return a.m.unicast(a.m.partner, pkt)
}

func (a exchangeActions) SendURL(url string) error {
	pkt := a.m.newPacket(wire.MsgRelayURL, a.m.partner)
	pkt.Text, pkt.HasText = url, true
	return a.m.unicast(a.m.partner, pkt)
}

func (a exchangeActions) NotifyKey() {
	a.m.info("partner key available", "partner", a.m.partner, "session", a.m.sessionID)
	a.m.logNotification(log.NotificationPartnerKey, a.m.partnerKey)
	a.m.notifier.PartnerKeyAvailable(a.m.partnerKey)
}

func (a exchangeActions) NotifyURL(url string) {
	a.m.info("relay URL received", "partner", a.m.partner, "url", url)
	a.m.logNotification(log.NotificationRelayURL, url)
	a.m.notifier.RelayURLReceived(url)
}

// newPacket fills the common header fields.
func (m *Machine) newPacket(t wire.MessageType, partner wire.Address) *wire.Packet {
	return &wire.Packet{
		Header: wire.Header{
			Type:     t,
			Sender:   m.config.LocalAddress,
			Partner:  partner,
			UptimeMS: m.uptimeMS(),
			State:    m.state,
			LastRSSI: m.partnerRSSI,
		},
	}
}

// encode marshals pkt. A failure is logged and counted; the caller skips the
// send for this round.
func (m *Machine) encode(pkt *wire.Packet) ([]byte, error) {
	data, err := wire.Marshal(pkt, m.config.Limits)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("packet encode failed", "type", pkt.Type.String(), "error", err)
		}
		m.stats.EncodeFailures++
		m.config.Metrics.PacketDropped(DropEncodeFailed)
		return nil, err
	}
	return data, nil
}

func (m *Machine) transmit(dst wire.Address, pkt *wire.Packet, data []byte) {
	if !dst.IsBroadcast() {
		m.transport.RegisterPeer(dst)
	}
	m.transport.Send(dst, data)

	m.stats.PacketsSent++
	m.config.Metrics.PacketSent(pkt.Type)
	m.logPacket(log.DirectionOut, dst, pkt, 0, nil)
}

func (m *Machine) unicast(dst wire.Address, pkt *wire.Packet) error {
	data, err := m.encode(pkt)
	if err != nil {
		return err
	}
	m.transmit(dst, pkt, data)
	return nil
}

func (m *Machine) broadcast(pkt *wire.Packet) error {
	return m.unicast(wire.BroadcastAddress, pkt)
}
