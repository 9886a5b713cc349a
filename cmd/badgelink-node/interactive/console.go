// Package interactive provides the interactive console of badgelink-node.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/badgelink/badgelink-go/pkg/discovery"
	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/persistence"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/chzyer/readline"
)

const (
	defaultNearbyTimeout = 3 * time.Second
	commandTimeout       = 2 * time.Second
)

// Badge is the part of the node the console drives.
type Badge interface {
	SetLocalBitmask(ctx context.Context, b []byte) error
	SetRelayURL(ctx context.Context, url string) error
	Reset(ctx context.Context) error
	Status(ctx context.Context) (pairing.Status, error)
}

// Browser finds other badges.
type Browser interface {
	FindAll(ctx context.Context) (map[string]*discovery.BadgeService, error)
}

// Identity describes the local badge.
type Identity struct {
	Address     wire.Address
	PublicKey   string
	Fingerprint string
	StatePath   string
}

// Console handles interactive mode for badgelink-node.
type Console struct {
	rl       *readline.Instance
	out      io.Writer
	badge    Badge
	browser  Browser
	id       Identity
	pairings func() []persistence.PairingRecord
}

// New creates the console. Call Attach before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "badge> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the prompt. Use it for log
// output.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Attach connects the console to the badge.
func (c *Console) Attach(badge Badge, browser Browser, id Identity, pairings func() []persistence.PairingRecord) {
	c.badge = badge
	c.browser = browser
	c.id = id
	c.pairings = pairings
}

// Run reads commands until quit, EOF or ctx is done. Quitting calls cancel.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Exec(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the console should
// exit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "status", "s":
		c.cmdStatus(ctx)
	case "bitmask", "b":
		c.cmdBitmask(ctx, args)
	case "url", "u":
		c.cmdURL(ctx, args)
	case "reset":
		c.cmdReset(ctx)
	case "nearby", "n":
		c.cmdNearby(ctx, args)
	case "history", "h":
		c.cmdHistory()
	case "whoami", "id":
		c.cmdWhoami()
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Badge Commands:
  status             - Show pairing state, partner and proximity
  bitmask <hex>      - Set the interest bitmask
  url <relay-url>    - Send a relay URL to the partner
  reset              - End the current pairing
  nearby [seconds]   - List badges advertised over mDNS
  history            - Show stored pairings
  whoami             - Show address and key
  help               - Show this help
  quit               - Exit`)
}

func (c *Console) cmdStatus(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	st, err := c.badge.Status(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "State:      %s\n", st.State)
	if !st.Ready {
		fmt.Fprintln(c.out, "Ready:      no (bitmask or key missing)")
	}
	fmt.Fprintf(c.out, "Bitmask:    %s\n", hex.EncodeToString(st.LocalBitmask))
	if st.Partner != nil {
		fmt.Fprintf(c.out, "Partner:    %s\n", st.Partner)
		fmt.Fprintf(c.out, "Similarity: %d%%\n", st.Similarity)
	}
	if st.PairedAt != nil {
		fmt.Fprintf(c.out, "Paired:     %s ago (session %s)\n", time.Since(*st.PairedAt).Round(time.Second), st.SessionID)
		fmt.Fprintf(c.out, "Proximity:  %s", st.Zone)
		if st.DistanceM > 0 {
			fmt.Fprintf(c.out, " (~%.1f m)", st.DistanceM)
		}
		fmt.Fprintln(c.out)
		fmt.Fprintf(c.out, "Heartbeats: seq %d, partner seq %d, missed %d\n", st.Heartbeat.LocalSeq, st.Heartbeat.PartnerSeq, st.Heartbeat.Missed)
		kx := st.KeyExchange
		fmt.Fprintf(c.out, "Keys:       sent=%t confirmed=%t\n", kx.KeySent, kx.KeyConfirmed)
		if kx.IncomingURL != "" {
			fmt.Fprintf(c.out, "Relay URL:  %s\n", kx.IncomingURL)
		}
	}
	fmt.Fprintf(c.out, "Packets:    sent %d, received %d, dropped %d\n",
		st.Stats.PacketsSent, st.Stats.PacketsReceived, st.Stats.PacketsDropped)
}

func (c *Console) cmdBitmask(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: bitmask <hex>")
		return
	}
	b, err := hex.DecodeString(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid hex: %v\n", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := c.badge.SetLocalBitmask(ctx, b); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Bitmask set (%d bytes)\n", len(b))
}

func (c *Console) cmdURL(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: url <relay-url>")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := c.badge.SetRelayURL(ctx, args[0]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Relay URL queued")
}

func (c *Console) cmdReset(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := c.badge.Reset(ctx); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Pairing reset, searching")
}

func (c *Console) cmdNearby(ctx context.Context, args []string) {
	if c.browser == nil {
		fmt.Fprintln(c.out, "Discovery is not available")
		return
	}
	timeout := defaultNearbyTimeout
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintln(c.out, "Usage: nearby [seconds]")
			return
		}
		timeout = time.Duration(secs) * time.Second
	}

	fmt.Fprintf(c.out, "Browsing for %s...\n", timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := c.browser.FindAll(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	var list []*discovery.BadgeService
	for _, svc := range found {
		if svc.Address == c.id.Address {
			continue
		}
		list = append(list, svc)
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No badges found")
		return
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Address.Compare(list[j].Address) < 0
	})
	for _, svc := range list {
		fmt.Fprintf(c.out, "  %s  %-10s", svc.Address, svc.State)
		if !svc.Partner.IsZero() {
			fmt.Fprintf(c.out, " with %s", svc.Partner)
		}
		fmt.Fprintf(c.out, "  %s:%d\n", svc.Host, svc.Port)
	}
}

func (c *Console) cmdHistory() {
	if c.pairings == nil {
		return
	}
	recs := c.pairings()
	if len(recs) == 0 {
		fmt.Fprintln(c.out, "No pairings yet")
		return
	}
	for _, r := range recs {
		end := "running"
		if !r.EndedAt.IsZero() {
			end = fmt.Sprintf("%s (%s)", r.EndedAt.Sub(r.PairedAt).Round(time.Second), r.EndReason)
		}
		fmt.Fprintf(c.out, "  %s  %s  %3d%%  %s\n",
			r.PairedAt.Format(time.DateTime), r.Partner, r.Similarity, end)
		if r.RelayURL != "" {
			fmt.Fprintf(c.out, "      relay: %s\n", r.RelayURL)
		}
	}
}

func (c *Console) cmdWhoami() {
	fmt.Fprintf(c.out, "Address:     %s\n", c.id.Address)
	fmt.Fprintf(c.out, "Public key:  %s\n", c.id.PublicKey)
	fmt.Fprintf(c.out, "Fingerprint: %s\n", c.id.Fingerprint)
	if c.id.StatePath != "" {
		fmt.Fprintf(c.out, "State file:  %s\n", c.id.StatePath)
	}
}
