// Package keys manages the badge key pair.
//
// Badges exchange X25519 public keys during pairing. The text form of a
// public key is its base58 encoding, which is what travels in PROPOSAL,
// ACCEPT and KEY_EXCHANGE packets. A Store loads the private key from disk or
// generates one on first start. SessionSecret derives a shared secret with a
// partner using HKDF-SHA256.
package keys
