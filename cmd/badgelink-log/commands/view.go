// Package commands implements the badgelink-log CLI commands.
package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// timeFormat is used for every timestamp the tool prints.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer       *log.Layer
	Direction   *log.Direction
	Category    *log.Category
	MessageType *wire.MessageType
	Peer        string
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		PeerAddr:    f.Peer,
		Direction:   f.Direction,
		Layer:       f.Layer,
		Category:    f.Category,
		MessageType: f.MessageType,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// timestamp [session] DIRECTION LAYER Label peer
	ts := event.Timestamp.UTC().Format(timeFormat)
	session := shortenSessionID(event.SessionID)
	if session == "" {
		session = "-"
	}

	fmt.Fprintf(w, "%s [%s] %-3s %-7s %s", ts, session, event.Direction, event.Layer, eventLabel(event))
	if event.PeerAddr != "" {
		fmt.Fprintf(w, " peer=%s", event.PeerAddr)
	}
	fmt.Fprintln(w)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Packet != nil:
		formatPacketDetails(w, event.Packet)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Notification != nil:
		fmt.Fprintf(w, "  Value: %s\n", event.Notification.Value)
	case event.Drop != nil:
		formatDropDetails(w, event.Drop)
	}

	fmt.Fprintln(w)
}

func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Packet != nil:
		return event.Packet.Type.String()
	case event.StateChange != nil:
		return "State"
	case event.Notification != nil:
		return event.Notification.Kind.String()
	case event.Drop != nil:
		return "Drop"
	default:
		return "Unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes", frame.Size)
	if frame.RSSI != 0 {
		fmt.Fprintf(w, "  RSSI: %d dBm", frame.RSSI)
	}
	fmt.Fprintln(w)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatPacketDetails(w io.Writer, p *log.PacketEvent) {
	fmt.Fprintf(w, "  Sender state: %s  Seq: %d  Uptime: %dms\n", p.SenderState, p.Seq, p.UptimeMS)
	if p.Partner != "" {
		fmt.Fprintf(w, "  Partner: %s\n", p.Partner)
	}
	if p.RSSI != 0 {
		fmt.Fprintf(w, "  RSSI: %d dBm\n", p.RSSI)
	}
	if p.BitmaskLen > 0 {
		fmt.Fprintf(w, "  Bitmask: %d bytes", p.BitmaskLen)
		if p.Similarity != nil {
			fmt.Fprintf(w, "  Similarity: %d%%", *p.Similarity)
		}
		fmt.Fprintln(w)
	}
	if p.Text != "" {
		fmt.Fprintf(w, "  Text: %s\n", p.Text)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Partner != "" {
		fmt.Fprintf(w, "  Partner: %s\n", sc.Partner)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatDropDetails(w io.Writer, d *log.DropEvent) {
	fmt.Fprintf(w, "  Reason: %s", d.Reason)
	if d.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes", d.Size)
	}
	fmt.Fprintln(w)
	if d.Detail != "" {
		fmt.Fprintf(w, "  Detail: %s\n", d.Detail)
	}
}

// ParseLayerFlag parses a layer string (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "radio":
		return log.LayerRadio, nil
	case "wire":
		return log.LayerWire, nil
	case "pairing":
		return log.LayerPairing, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be radio, wire, or pairing)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "packet":
		return log.CategoryPacket, nil
	case "notification":
		return log.CategoryNotification, nil
	case "state":
		return log.CategoryState, nil
	case "drop":
		return log.CategoryDrop, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be packet, notification, state, or drop)", s)
	}
}

// ParseTypeFlag parses a message type name such as "hello" or "key_exchange".
func ParseTypeFlag(s string) (wire.MessageType, error) {
	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for t := wire.MsgHello; t.Valid(); t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("invalid message type: %s", s)
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
