// Package discovery advertises badges on the local network over mDNS and
// finds them again.
//
// A badge daemon registers a "_badgelink._tcp" service whose port is its
// companion WebSocket endpoint. The TXT record carries the radio address,
// the current pairing state and the protocol version, so a companion app can
// find its badge without scanning:
//
//	adv := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
//	_ = adv.Advertise(ctx, &discovery.BadgeInfo{Name: "badge-0a", Address: addr, Port: 4767})
//	defer adv.Stop()
//
// The advertised state is refreshed with Update whenever the pairing state
// changes.
package discovery
