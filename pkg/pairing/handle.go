package pairing

import (
	"errors"

	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/match"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Drop reasons reported to Metrics and the protocol log.
const (
	DropNotReady       = "not_ready"
	DropShortPacket    = "short_packet"
	DropTagMismatch    = "tag_mismatch"
	DropBitmaskOverrun = "bitmask_overrun"
	DropBitmaskTooLong = "bitmask_too_long"
	DropMalformed      = "malformed"
	DropUnknownType    = "unknown_type"
	DropSelf           = "self"
	DropSenderMismatch = "sender_mismatch"
	DropNotAddressed   = "not_addressed"
	DropEncodeFailed   = "encode_failed"
	DropLowSimilarity  = "low_similarity"
	DropWeakSignal     = "weak_signal"
	DropMissingPayload = "missing_payload"
	DropKeyMismatch    = "key_mismatch"
	DropUnexpected     = "unexpected"
)

func decodeDropReason(err error) string {
	switch {
	case errors.Is(err, wire.ErrShortPacket):
		return DropShortPacket
	case errors.Is(err, wire.ErrTagMismatch):
		return DropTagMismatch
	case errors.Is(err, wire.ErrBitmaskOverrun):
		return DropBitmaskOverrun
	case errors.Is(err, wire.ErrBitmaskTooLong):
		return DropBitmaskTooLong
	default:
		return DropMalformed
	}
}

// inbound is a decoded packet with its link-layer metadata.
type inbound struct {
	*wire.Packet
	src  wire.Address
	rssi int8
}

func (in *inbound) hasKey() bool {
	return in.HasText && in.Text != ""
}

func (in *inbound) hasBitmask() bool {
	return len(in.Bitmask) > 0
}

// HandleRecv processes a datagram delivered by the transport. data is only
// read during the call. Malformed or unexpected input is dropped without any
// state change.
func (m *Machine) HandleRecv(src, dst wire.Address, data []byte, rssi, noise int8) {
	m.logFrame(src, data, rssi)

	if !m.ready {
		m.drop(src, DropNotReady, len(data), "")
		return
	}

	pkt, err := wire.Decode(data, m.config.Limits)
	if err != nil {
		m.drop(src, decodeDropReason(err), len(data), err.Error())
		return
	}
	if !pkt.Type.Valid() {
		m.drop(src, DropUnknownType, len(data), pkt.Type.String())
		return
	}

	if src.IsZero() {
		src = pkt.Sender
	}
	if src == m.config.LocalAddress || pkt.Sender == m.config.LocalAddress {
		m.drop(src, DropSelf, len(data), "")
		return
	}
	if pkt.Sender != src {
		m.drop(src, DropSenderMismatch, len(data), pkt.Sender.String())
		return
	}
	if dst != m.config.LocalAddress && !dst.IsBroadcast() {
		m.drop(src, DropNotAddressed, len(data), dst.String())
		return
	}

	in := &inbound{Packet: pkt, src: src, rssi: rssi}

	var score *int
	if pkt.Type == wire.MsgHello && in.hasBitmask() {
		s := match.Similarity(m.localBitmask, pkt.Bitmask)
		score = &s
		m.config.Metrics.SimilarityObserved(s)
	}

	m.stats.PacketsReceived++
	m.config.Metrics.PacketReceived(pkt.Type)
	m.logPacket(log.DirectionIn, src, pkt, rssi, score)
	m.debug("packet received",
		"type", pkt.Type.String(),
		"from", src,
		"rssi", rssi,
		"noise", noise,
		"state", m.state.String())

	switch m.state {
	case wire.StateSearching:
		m.handleSearching(in, score)
	case wire.StateProposing:
		m.handleProposing(in)
	case wire.StatePaired:
		m.handlePaired(in)
	}
}

func (m *Machine) handleSearching(in *inbound, score *int) {
	switch in.Type {
	case wire.MsgHello:
		if score == nil {
			m.ignore(in, DropMissingPayload)
			return
		}
		if *score < m.config.SimilarityThreshold {
			m.ignore(in, DropLowSimilarity)
			return
		}
		pkt := m.newPacket(wire.MsgProposal, in.src)
		pkt.Bitmask = m.localBitmask
		pkt.Text, pkt.HasText = m.localKey, true
		if err := m.unicast(in.src, pkt); err != nil {
			return
		}
		m.enterProposing(in.src, in.Bitmask, in.rssi)

	case wire.MsgProposal:
		if !in.hasKey() || !in.hasBitmask() {
			m.ignore(in, DropMissingPayload)
			return
		}
		m.acceptProposal(in, "proposal received")

	default:
		m.ignore(in, DropUnexpected)
	}
}

func (m *Machine) handleProposing(in *inbound) {
	fromPartner := in.src == m.partner

	switch in.Type {
	case wire.MsgAccept:
		if !fromPartner {
			m.ignore(in, DropUnexpected)
			return
		}
		if !in.hasKey() {
			m.ignore(in, DropMissingPayload)
			return
		}
		if in.rssi < m.config.MinProximityRSSI {
			m.ignore(in, DropWeakSignal)
			return
		}
		var bitmask []byte
		if in.hasBitmask() {
			bitmask = in.Bitmask
		}
		m.enterPaired(in.src, in.Text, bitmask, in.rssi, "accepted")

	case wire.MsgReject:
		if !fromPartner {
			m.ignore(in, DropUnexpected)
			return
		}
		m.enterSearching("rejected")

	case wire.MsgProposal:
		if fromPartner {
			m.handleMutualProposal(in)
			return
		}
		m.handleCompetingProposal(in)

	default:
		m.ignore(in, DropUnexpected)
	}
}

// handleMutualProposal resolves two devices proposing to each other. The
// lower address accepts; the higher one waits for that ACCEPT.
func (m *Machine) handleMutualProposal(in *inbound) {
	if !in.hasKey() || !in.hasBitmask() {
		m.ignore(in, DropMissingPayload)
		return
	}
	if in.src.Compare(m.config.LocalAddress) <= 0 {
		m.debug("mutual proposal, awaiting accept", "partner", in.src)
		return
	}
	m.acceptProposal(in, "mutual proposal")
}

// handleCompetingProposal decides between the current proposal and one from
// a third party.
func (m *Machine) handleCompetingProposal(in *inbound) {
	if !in.hasKey() || !in.hasBitmask() {
		m.reject(in.src, DropMissingPayload)
		return
	}
	if in.rssi < m.config.MinProximityRSSI {
		m.reject(in.src, DropWeakSignal)
		return
	}

	if !m.challengerWins(in.src, in.rssi) {
		m.reject(in.src, "tie-break lost")
		return
	}
	m.acceptProposal(in, "tie-break won")
}

// challengerWins reports whether a proposal from addr at rssi beats the
// current proposal.
func (m *Machine) challengerWins(addr wire.Address, rssi int8) bool {
	if rssi != m.proposalRSSI {
		return rssi > m.proposalRSSI
	}
	return addr.Compare(m.partner) > 0
}

func (m *Machine) handlePaired(in *inbound) {
	fromPartner := in.src == m.partner

	switch in.Type {
	case wire.MsgHeartbeat:
		if !fromPartner {
			m.ignore(in, DropUnexpected)
			return
		}
		now := m.now()
		m.monitor.RecordReceived(in.Seq, in.rssi, now)
		m.partnerRSSI = in.rssi
		m.tracker.Update(in.rssi, now)

	case wire.MsgKeyExchange:
		if !fromPartner {
			m.ignore(in, DropUnexpected)
			return
		}
		if in.hasKey() && in.Text != m.partnerKey {
			m.ignore(in, DropKeyMismatch)
			return
		}
		m.exchange.Confirm()

	case wire.MsgRelayURL:
		if !fromPartner {
			m.ignore(in, DropUnexpected)
			return
		}
		if !in.hasKey() {
			m.ignore(in, DropMissingPayload)
			return
		}
		m.exchange.ReceiveURL(in.Text)

	case wire.MsgProposal:
		if !fromPartner {
			m.reject(in.src, "already paired")
			return
		}
		// The partner missed our ACCEPT and is still proposing.
		pkt := m.newPacket(wire.MsgAccept, in.src)
		pkt.Bitmask = m.localBitmask
		pkt.Text, pkt.HasText = m.localKey, true
		_ = m.unicast(in.src, pkt)

	default:
		m.ignore(in, DropUnexpected)
	}
}

// acceptProposal answers a PROPOSAL with ACCEPT and enters PAIRED. Nothing
// changes when the ACCEPT cannot be encoded.
func (m *Machine) acceptProposal(in *inbound, reason string) {
	pkt := m.newPacket(wire.MsgAccept, in.src)
	pkt.State = wire.StatePaired
	pkt.Bitmask = m.localBitmask
	pkt.Text, pkt.HasText = m.localKey, true

	data, err := m.encode(pkt)
	if err != nil {
		return
	}
	m.enterPaired(in.src, in.Text, in.Bitmask, in.rssi, reason)
	m.transmit(in.src, pkt, data)
}

func (m *Machine) reject(dst wire.Address, reason string) {
	m.debug("rejecting proposal", "from", dst, "reason", reason)
	_ = m.unicast(dst, m.newPacket(wire.MsgReject, dst))
}

// ignore records a well-formed packet that has no effect in this state.
func (m *Machine) ignore(in *inbound, reason string) {
	m.debug("packet ignored",
		"type", in.Type.String(),
		"from", in.src,
		"state", m.state.String(),
		"reason", reason)
	m.config.Metrics.PacketDropped(reason)
	m.stats.PacketsIgnored++
}

func (m *Machine) drop(src wire.Address, reason string, size int, detail string) {
	m.debug("packet dropped", "from", src, "reason", reason, "size", size)
	m.stats.PacketsDropped++
	m.config.Metrics.PacketDropped(reason)
	m.logDrop(src, reason, size, detail)
}
