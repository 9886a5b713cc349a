// Package wire defines the datagram format of the badgelink pairing protocol.
//
// Every packet is a single connectionless datagram made of a fixed 26 byte
// header followed by two variable-length segments:
//
//	┌──────────────────────────────┐
//	│ Header (26 bytes, packed LE) │
//	├──────────────────────────────┤
//	│ Bitmask (BitmaskLen bytes)   │
//	├──────────────────────────────┤
//	│ Trailing string (optional)   │
//	└──────────────────────────────┘
//
// # Header Layout
//
//	offset size field
//	     0    1 protocol tag (ProtocolTag)
//	     1    1 message type
//	     2    6 sender address
//	     8    6 partner address
//	    14    4 sender uptime in milliseconds
//	    18    1 sender state
//	    19    1 last RSSI (signed)
//	    20    4 sequence number
//	    24    2 bitmask length
//
// # Trailing String
//
// The trailing string carries the sender's public key (PROPOSAL, ACCEPT,
// KEY_EXCHANGE) or a relay URL (RELAY_URL). It is not length-prefixed: its
// length is whatever remains after the header and the bitmask. The encoder
// terminates it with a single NUL byte so that firmware peers can treat it as
// a C string; the decoder reads it as one too, stopping at the first NUL,
// and enforces the configured ceiling.
//
// # Failure Handling
//
// Decode reports malformed datagrams with sentinel errors. Callers are
// expected to drop such packets without any state change.
package wire
