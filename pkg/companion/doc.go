// Package companion links a badge to its companion app.
//
// The app speaks a newline-delimited text protocol, the same one the badge
// firmware exposes over its BLE UART service. Writes may arrive in arbitrary
// chunks; a Reassembler rebuilds lines and resets when a line outgrows its
// buffer. Here the link runs over WebSocket text or binary messages.
//
// Commands (app to badge):
//
//	ping                 answered with "pong"
//	BITMASK:<hex>        set the interest bitmask
//	KEY:<text>           set the local public key
//	URL:<text>           send a relay URL to the current partner
//	STATUS               answered with a STATUS line
//	RESET                abandon the current pairing
//
// Notifications (badge to app):
//
//	PARTNER_KEY:<text>          partner confirmed the key exchange
//	RELAY_URL:<text>            partner sent a relay URL
//	STATE:<state>[:<partner>]   pairing state changed
//	OK, ERR:<reason>            command results
package companion
