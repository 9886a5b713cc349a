package wire

import "fmt"

// MessageType identifies the purpose of a packet.
type MessageType uint8

const (
	// MsgHello is a broadcast announcing availability with the local bitmask.
	MsgHello MessageType = 0

	// MsgProposal proposes pairing to a specific device (bitmask + key).
	MsgProposal MessageType = 1

	// MsgAccept accepts a proposal (bitmask + key).
	MsgAccept MessageType = 2

	// MsgReject rejects a proposal.
	MsgReject MessageType = 3

	// MsgHeartbeat is the periodic liveness packet between paired partners.
	MsgHeartbeat MessageType = 4

	// MsgKeyExchange confirms receipt of the partner's public key.
	MsgKeyExchange MessageType = 5

	// MsgRelayURL carries an auxiliary URL to the partner.
	MsgRelayURL MessageType = 6
)

var messageTypeNames = [...]string{
	"HELLO",
	"PROPOSAL",
	"ACCEPT",
	"REJECT",
	"HEARTBEAT",
	"KEY_EXCHANGE",
	"RELAY_URL",
}

// String returns the message type name.
func (t MessageType) String() string {
	if int(t) < len(messageTypeNames) {
		return messageTypeNames[t]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// Valid reports whether t is a defined message type.
func (t MessageType) Valid() bool {
	return int(t) < len(messageTypeNames)
}

// State is the pairing state a sender reports in its header.
type State uint8

const (
	// StateSearching is looking for peers and broadcasting HELLO.
	StateSearching State = 0

	// StateProposing has sent a proposal and awaits a response.
	StateProposing State = 1

	// StatePaired has an established partner.
	StatePaired State = 2
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSearching:
		return "SEARCHING"
	case StateProposing:
		return "PROPOSING"
	case StatePaired:
		return "PAIRED"
	default:
		return "UNKNOWN"
	}
}
