package log

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.LocalAddr != "" {
		attrs = append(attrs, slog.String("local", event.LocalAddr))
	}
	if event.PeerAddr != "" {
		attrs = append(attrs, slog.String("peer", event.PeerAddr))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.String("frame", hex.EncodeToString(event.Frame.Data)),
			slog.Bool("truncated", event.Frame.Truncated),
		)
		if event.Frame.RSSI != 0 {
			attrs = append(attrs, slog.Int("rssi", int(event.Frame.RSSI)))
		}
	case event.Packet != nil:
		attrs = append(attrs,
			slog.String("msg_type", event.Packet.Type.String()),
			slog.String("sender_state", event.Packet.SenderState.String()),
			slog.Uint64("seq", uint64(event.Packet.Seq)),
			slog.Int("bitmask_len", event.Packet.BitmaskLen),
		)
		if event.Packet.Partner != "" {
			attrs = append(attrs, slog.String("partner", event.Packet.Partner))
		}
		if event.Packet.RSSI != 0 {
			attrs = append(attrs, slog.Int("rssi", int(event.Packet.RSSI)))
		}
		if event.Packet.Text != "" {
			attrs = append(attrs, slog.String("text", event.Packet.Text))
		}
		if event.Packet.Similarity != nil {
			attrs = append(attrs, slog.Int("similarity", *event.Packet.Similarity))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
		if event.StateChange.Partner != "" {
			attrs = append(attrs, slog.String("partner", event.StateChange.Partner))
		}
	case event.Notification != nil:
		attrs = append(attrs,
			slog.String("kind", event.Notification.Kind.String()),
			slog.String("value", event.Notification.Value),
		)
	case event.Drop != nil:
		attrs = append(attrs,
			slog.String("drop_reason", event.Drop.Reason),
			slog.Int("size", event.Drop.Size),
		)
		if event.Drop.Detail != "" {
			attrs = append(attrs, slog.String("detail", event.Drop.Detail))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
