package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	PacketsByType     map[wire.MessageType]int
	DropsByReason     map[string]int
	Sessions          map[string]*SessionStats
	Peers             map[string]int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}

	// current is the session the last PAIRED entry opened.
	current string
}

// SessionStats holds statistics for a single pairing session.
type SessionStats struct {
	Partner    string
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Heartbeats int
	EndReason  string
}

// CollectStats reads every event of the log file.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		PacketsByType:     make(map[wire.MessageType]int),
		DropsByReason:     make(map[string]int),
		Sessions:          make(map[string]*SessionStats),
		Peers:             make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.PeerAddr != "" && event.Direction == log.DirectionIn {
		s.Peers[event.PeerAddr]++
	}
	if event.Packet != nil {
		s.PacketsByType[event.Packet.Type]++
	}
	if event.Drop != nil {
		s.DropsByReason[event.Drop.Reason]++
	}

	if sc := event.StateChange; sc != nil && sc.OldState == wire.StatePaired.String() {
		// Leaving PAIRED is logged after the session ID was cleared.
		if sess := s.Sessions[s.current]; sess != nil {
			sess.EndReason = sc.Reason
		}
		s.current = ""
	}
	if event.SessionID == "" {
		return
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = sess
	}
	s.current = event.SessionID
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if sess.Partner == "" && event.PeerAddr != "" {
		sess.Partner = event.PeerAddr
	}
	if event.Packet != nil && event.Packet.Type == wire.MsgHeartbeat {
		sess.Heartbeats++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Badge Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryPacket, log.CategoryState, log.CategoryNotification, log.CategoryDrop} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.PacketsByType) > 0 {
		fmt.Fprintln(w, "Packets by Type:")
		for t := wire.MsgHello; t.Valid(); t++ {
			if count := stats.PacketsByType[t]; count > 0 {
				fmt.Fprintf(w, "  %-14s %d\n", t.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	if len(stats.DropsByReason) > 0 {
		fmt.Fprintln(w, "Drops by Reason:")
		reasons := make([]string, 0, len(stats.DropsByReason))
		for r := range stats.DropsByReason {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-18s %d\n", r+":", stats.DropsByReason[r])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Peers heard: %d\n", len(stats.Peers))
	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) == 0 {
		return
	}

	type sessionInfo struct {
		id    string
		stats *SessionStats
	}
	sessions := make([]sessionInfo, 0, len(stats.Sessions))
	for id, ss := range stats.Sessions {
		sessions = append(sessions, sessionInfo{id, ss})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
	})

	fmt.Fprintln(w)
	for _, s := range sessions {
		duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, %d heartbeats, duration %s\n",
			shortenSessionID(s.id), s.stats.Events, s.stats.Heartbeats, duration)
		if s.stats.Partner != "" {
			fmt.Fprintf(w, "             Partner: %s\n", s.stats.Partner)
		}
		if s.stats.EndReason != "" {
			fmt.Fprintf(w, "             Ended: %s\n", s.stats.EndReason)
		}
	}
}
