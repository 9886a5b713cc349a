// Package log provides structured protocol capture for badgelink nodes.
//
// This package defines the Logger interface and Event types for recording
// what a pairing node sees and does: datagrams on the radio, decoded packets,
// pairing state changes, dropped input and notifications handed to the
// companion link. It is separate from operational logging (slog). Protocol
// capture is a complete machine-readable trace for debugging and replay.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For field capture: write to a binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/badgelink/node.blog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Radio: raw datagram bytes (FrameEvent)
//   - Wire: decoded packets (PacketEvent)
//   - Pairing: state changes (StateChangeEvent), notifications
//     (NotificationEvent)
//
// Dropped input has its own DropEvent at the layer that rejected it.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .blog extension.
// The badgelink-log tool provides viewing and filtering.
package log
