package pairing

import "github.com/badgelink/badgelink-go/pkg/wire"

// Transport sends datagrams on the radio. Sends are best effort and must not
// block. The data slice is owned by the transport after the call.
type Transport interface {
	Send(dst wire.Address, data []byte)

	// RegisterPeer makes dst reachable for unicast. It is idempotent.
	RegisterPeer(addr wire.Address)
}

// Notifier receives the results of the key exchange.
type Notifier interface {
	// PartnerKeyAvailable is called once per session after the partner
	// confirmed our key.
	PartnerKeyAvailable(key string)

	// RelayURLReceived is called once per relay URL received from the
	// partner.
	RelayURLReceived(url string)
}

// Metrics receives protocol counters. It is satisfied by *metrics.Recorder.
type Metrics interface {
	PacketSent(t wire.MessageType)
	PacketReceived(t wire.MessageType)
	PacketDropped(reason string)
	StateChanged(from, to wire.State)
	SimilarityObserved(score int)
}

type noopNotifier struct{}

func (noopNotifier) PartnerKeyAvailable(string) {}
func (noopNotifier) RelayURLReceived(string) {}

type noopMetrics struct{}

func (noopMetrics) PacketSent(wire.MessageType) {}
func (noopMetrics) PacketReceived(wire.MessageType) {}
func (noopMetrics) PacketDropped(string) {}
func (noopMetrics) StateChanged(wire.State, wire.State) {}
func (noopMetrics) SimilarityObserved(int) {}
