// Package pairing implements the badge pairing state machine.
//
// Two badges that come within radio range discover each other, agree to pair
// without any coordinator, and then keep the session alive with heartbeats
// while exchanging public keys.
//
// # States
//
//	SEARCHING ──HELLO match──▶ PROPOSING ──ACCEPT──▶ PAIRED
//	    ▲  │                        │                  │
//	    │  └──────PROPOSAL──────────┼─────────────────▶│
//	    │                           │                  │
//	    └────timeout / REJECT───────┘                  │
//	    └────────────────heartbeat timeout / Reset─────┘
//
// While SEARCHING the machine broadcasts HELLO with its interest bitmask.
// A HELLO whose bitmask is similar enough (pkg/match) is answered with a
// unicast PROPOSAL carrying the bitmask and public key. The receiver of a
// PROPOSAL answers ACCEPT and both sides are PAIRED.
//
// # Tie-Break
//
// A PROPOSING machine that receives a PROPOSAL from a third party keeps the
// stronger signal: the newcomer wins when its RSSI is higher than the RSSI
// the current proposal was based on, or when the RSSI is equal and its
// address is higher. When two machines propose to each other at the same
// time, the lower address accepts and the higher one waits for that ACCEPT.
// Both rules are evaluated identically on both sides, so exactly one pair
// forms.
//
// # Concurrency
//
// A Machine is not safe for concurrent use. HandleRecv, Tick and the setters
// must be called from one goroutine; pkg/node provides such a worker.
package pairing
