package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/transport"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// Defaults.
const (
	DefaultTickInterval = 50 * time.Millisecond
	DefaultMailboxSize  = 64
	DefaultWarnInterval = 5 * time.Second
)

// Node errors.
var (
	ErrMailboxFull = errors.New("node mailbox full")
	ErrStopped     = errors.New("node stopped")
	ErrRunning     = errors.New("node already running")
)

// Config configures a Node.
type Config struct {
	// Pairing configures the machine. A zero LocalAddress is replaced by
	// the radio's address. Clock and Logger default to the node's.
	Pairing pairing.Config

	// TickInterval is the machine tick cadence.
	TickInterval time.Duration

	// MailboxSize bounds the number of pending events.
	MailboxSize int

	// WarnInterval limits mailbox overflow warnings.
	WarnInterval time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns the default node configuration.
func DefaultConfig() Config {
	return Config{
		Pairing:      pairing.DefaultConfig(wire.ZeroAddress),
		TickInterval: DefaultTickInterval,
		MailboxSize:  DefaultMailboxSize,
		WarnInterval: DefaultWarnInterval,
	}
}

type event struct {
	// receive
	src, dst    wire.Address
	data        []byte
	rssi, noise int8

	// call runs fn on the worker and closes done.
	fn   func(*pairing.Machine)
	done chan struct{}
}

// Node drives a pairing machine from one goroutine.
type Node struct {
	config  Config
	radio   transport.Radio
	machine *pairing.Machine
	clock   clock.Clock
	logger  *slog.Logger

	mailbox chan event
	warn    rate.Sometimes
	running atomic.Bool
	stopped chan struct{}

	dropped  atomic.Uint64
	received atomic.Uint64
}

// New creates a node and installs its receive callback on radio.
func New(config Config, radio transport.Radio, notifier pairing.Notifier) (*Node, error) {
	if radio == nil {
		return nil, fmt.Errorf("%w: nil radio", pairing.ErrInvalidConfig)
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.MailboxSize <= 0 {
		config.MailboxSize = DefaultMailboxSize
	}
	if config.WarnInterval <= 0 {
		config.WarnInterval = DefaultWarnInterval
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	pc := config.Pairing
	if pc.LocalAddress.IsZero() {
		pc.LocalAddress = radio.LocalAddress()
	}
	if pc.LocalAddress != radio.LocalAddress() {
		return nil, fmt.Errorf("%w: local address %s differs from radio %s",
			pairing.ErrInvalidConfig, pc.LocalAddress, radio.LocalAddress())
	}
	if pc.Clock == nil {
		pc.Clock = config.Clock
	}
	if pc.Logger == nil {
		pc.Logger = config.Logger
	}

	m, err := pairing.NewMachine(pc, radio, notifier)
	if err != nil {
		return nil, err
	}

	n := &Node{
		config:  config,
		radio:   radio,
		machine: m,
		clock:   config.Clock,
		logger:  config.Logger,
		mailbox: make(chan event, config.MailboxSize),
		warn:    rate.Sometimes{First: 1, Interval: config.WarnInterval},
		stopped: make(chan struct{}),
	}
	radio.SetReceiver(n.Deliver)
	return n, nil
}

// OnStateChange registers fn with the machine. fn runs on the worker
// goroutine. It must be called before Run.
func (n *Node) OnStateChange(fn func(pairing.Transition)) {
	n.machine.OnStateChange(fn)
}

// LocalAddress returns the node's radio address.
func (n *Node) LocalAddress() wire.Address {
	return n.radio.LocalAddress()
}

// Deliver queues a received frame. data is copied. It never blocks.
func (n *Node) Deliver(src, dst wire.Address, data []byte, rssi, noise int8) {
	n.received.Add(1)
	n.post(event{src: src, dst: dst, data: bytes.Clone(data), rssi: rssi, noise: noise})
}

func (n *Node) post(ev event) bool {
	select {
	case n.mailbox <- ev:
		return true
	default:
		n.dropped.Add(1)
		n.warn.Do(func() {
			if n.logger != nil {
				n.logger.Warn("node mailbox full, event dropped",
					"capacity", cap(n.mailbox),
					"dropped", n.dropped.Load())
			}
		})
		return false
	}
}

// Run processes ticks and mailbox events until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	if n.running.Swap(true) {
		return ErrRunning
	}
	defer close(n.stopped)

	ticker := n.clock.Ticker(n.config.TickInterval)
	defer ticker.Stop()

	if n.logger != nil {
		n.logger.Info("node started",
			"address", n.radio.LocalAddress(),
			"tick", n.config.TickInterval)
	}

	for {
		select {
		case <-ctx.Done():
			if n.logger != nil {
				n.logger.Info("node stopped", "address", n.radio.LocalAddress())
			}
			return nil
		case <-ticker.C:
			n.machine.Tick()
		case ev := <-n.mailbox:
			n.handle(ev)
		}
	}
}

func (n *Node) handle(ev event) {
	if ev.fn != nil {
		ev.fn(n.machine)
		close(ev.done)
		return
	}
	n.machine.HandleRecv(ev.src, ev.dst, ev.data, ev.rssi, ev.noise)
}

// call runs fn on the worker and waits for it.
func (n *Node) call(ctx context.Context, fn func(*pairing.Machine)) error {
	done := make(chan struct{})
	if !n.post(event{fn: fn, done: done}) {
		return ErrMailboxFull
	}
	select {
	case <-done:
		return nil
	case <-n.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetLocalBitmask sets the interest bitmask.
func (n *Node) SetLocalBitmask(ctx context.Context, b []byte) error {
	b = bytes.Clone(b)
	var err error
	if cerr := n.call(ctx, func(m *pairing.Machine) { err = m.SetLocalBitmask(b) }); cerr != nil {
		return cerr
	}
	return err
}

// SetLocalPublicKey sets the local public key text.
func (n *Node) SetLocalPublicKey(ctx context.Context, key string) error {
	var err error
	if cerr := n.call(ctx, func(m *pairing.Machine) { err = m.SetLocalPublicKey(key) }); cerr != nil {
		return cerr
	}
	return err
}

// SetRelayURL queues a relay URL for the current partner.
func (n *Node) SetRelayURL(ctx context.Context, url string) error {
	var err error
	if cerr := n.call(ctx, func(m *pairing.Machine) { err = m.SetRelayURL(url) }); cerr != nil {
		return cerr
	}
	return err
}

// Reset returns the machine to SEARCHING.
func (n *Node) Reset(ctx context.Context) error {
	return n.call(ctx, func(m *pairing.Machine) { m.Reset() })
}

// Status returns a snapshot of the machine.
func (n *Node) Status(ctx context.Context) (pairing.Status, error) {
	var s pairing.Status
	err := n.call(ctx, func(m *pairing.Machine) { s = m.Status() })
	return s, err
}

// Stats are node counters.
type Stats struct {
	FramesReceived uint64 `json:"framesReceived"`
	MailboxDropped uint64 `json:"mailboxDropped"`
	MailboxDepth   int    `json:"mailboxDepth"`
}

// Stats returns the node counters. It is safe to call from any goroutine.
func (n *Node) Stats() Stats {
	return Stats{
		FramesReceived: n.received.Load(),
		MailboxDropped: n.dropped.Load(),
		MailboxDepth:   len(n.mailbox),
	}
}
