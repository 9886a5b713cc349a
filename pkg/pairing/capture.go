package pairing

import (
	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/match"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

func (m *Machine) similarity() int {
	return match.Similarity(m.localBitmask, m.partnerBitmask)
}

func (m *Machine) event(dir log.Direction, layer log.Layer, cat log.Category, peer wire.Address) log.Event {
	e := log.Event{
		Timestamp: m.now(),
		SessionID: m.sessionID,
		Direction: dir,
		Layer:     layer,
		Category:  cat,
		LocalAddr: m.config.LocalAddress.String(),
	}
	if !peer.IsZero() {
		e.PeerAddr = peer.String()
	}
	return e
}

func (m *Machine) logFrame(src wire.Address, data []byte, rssi int8) {
	e := m.event(log.DirectionIn, log.LayerRadio, log.CategoryPacket, src)
	e.Frame = log.NewFrameEvent(data, rssi)
	m.config.ProtocolLogger.Log(e)
}

func (m *Machine) logPacket(dir log.Direction, peer wire.Address, pkt *wire.Packet, rssi int8, score *int) {
	e := m.event(dir, log.LayerWire, log.CategoryPacket, peer)
	e.Packet = &log.PacketEvent{
		Type:        pkt.Type,
		Seq:         pkt.Seq,
		SenderState: pkt.State,
		UptimeMS:    pkt.UptimeMS,
		RSSI:        rssi,
		BitmaskLen:  len(pkt.Bitmask),
		Text:        pkt.Text,
		Similarity:  score,
	}
	if !pkt.Partner.IsZero() {
		e.Packet.Partner = pkt.Partner.String()
	}
	m.config.ProtocolLogger.Log(e)
}

func (m *Machine) logDrop(src wire.Address, reason string, size int, detail string) {
	e := m.event(log.DirectionIn, log.LayerWire, log.CategoryDrop, src)
	e.Drop = &log.DropEvent{Reason: reason, Size: size, Detail: detail}
	m.config.ProtocolLogger.Log(e)
}

func (m *Machine) logStateChange(tr Transition) {
	e := m.event(log.DirectionIn, log.LayerPairing, log.CategoryState, tr.Partner)
	e.StateChange = &log.StateChangeEvent{
		OldState: tr.From.String(),
		NewState: tr.To.String(),
		Reason:   tr.Reason,
	}
	if !tr.Partner.IsZero() {
		e.StateChange.Partner = tr.Partner.String()
	}
	m.config.ProtocolLogger.Log(e)
}

func (m *Machine) logNotification(kind log.NotificationKind, value string) {
	e := m.event(log.DirectionOut, log.LayerPairing, log.CategoryNotification, m.partner)
	e.Notification = &log.NotificationEvent{Kind: kind, Value: value}
	m.config.ProtocolLogger.Log(e)
}
