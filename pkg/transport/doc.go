// Package transport carries pairing packets between badges.
//
// A badge radio sends short datagrams to one peer or to everyone in range,
// and reports signal strength with every received frame. Two radios
// implement that contract here:
//
//   - [MemRadio] attaches to an in-memory [Medium]. Links have a configurable
//     RSSI and loss rate, which makes it the radio for tests and the room
//     simulator.
//   - [UDPRadio] emulates the radio over IPv4 multicast so badges running as
//     separate processes can pair on a LAN. UDP has no signal strength, so a
//     nominal RSSI is reported.
//
// # Envelope
//
// UDP frames are wrapped in a 15 byte [Envelope] header:
//
//	┌───────┬─────────┬────────────┬─────────────┬─────────────┐
//	│ "BL"  │ version │ source (6) │ dest (6)    │ payload ... │
//	└───────┴─────────┴────────────┴─────────────┴─────────────┘
//
// Receivers drop envelopes addressed to neither themselves nor broadcast.
//
// # Peer Table
//
// Unicast needs the destination registered first. [PeerTable] is a bounded
// LRU; the least recently used peer is evicted when it is full.
package transport
