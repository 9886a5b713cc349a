package transport

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

// Medium defaults.
const (
	DefaultMediumRSSI = -55
	DefaultNoiseFloor = -95
)

// Medium errors.
var (
	ErrAddressInUse   = errors.New("address already attached")
	ErrInvalidAddress = errors.New("invalid radio address")
	ErrRadioClosed    = errors.New("radio closed")
)

// LinkConfig describes the channel between two radios.
type LinkConfig struct {
	// RSSI reported to the receiver.
	RSSI int8

	// Loss is the probability in [0, 1] that a frame is not delivered.
	Loss float64
}

// MediumConfig configures an in-memory medium.
type MediumConfig struct {
	// DefaultRSSI applies to links without an explicit LinkConfig.
	DefaultRSSI int8

	// NoiseFloor is reported with every frame.
	NoiseFloor int8

	// MaxPeers bounds every radio's peer table.
	MaxPeers int

	// Immediate delivers frames from inside Send. Otherwise frames are
	// queued until Flush. Immediate delivery needs receivers that do not
	// send from the callback, such as node mailboxes.
	Immediate bool

	// Seed makes frame loss reproducible.
	Seed uint64

	Logger *slog.Logger
}

// DefaultMediumConfig returns a lossless queued medium.
func DefaultMediumConfig() MediumConfig {
	return MediumConfig{
		DefaultRSSI: DefaultMediumRSSI,
		NoiseFloor:  DefaultNoiseFloor,
		MaxPeers:    DefaultMaxPeers,
	}
}

type linkKey struct {
	a, b wire.Address
}

func newLinkKey(a, b wire.Address) linkKey {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return linkKey{a, b}
}

type frame struct {
	src, dst wire.Address
	data     []byte
}

// Medium is a shared broadcast channel connecting MemRadios. Every attached
// radio hears broadcasts; unicast frames reach only their destination.
type Medium struct {
	config MediumConfig

	mu      sync.Mutex
	radios  []*MemRadio
	links   map[linkKey]LinkConfig
	rng     *rand.Rand
	pending []frame
}

// NewMedium creates an empty medium.
func NewMedium(config MediumConfig) *Medium {
	if config.DefaultRSSI == 0 {
		config.DefaultRSSI = DefaultMediumRSSI
	}
	if config.NoiseFloor == 0 {
		config.NoiseFloor = DefaultNoiseFloor
	}
	return &Medium{
		config: config,
		links:  make(map[linkKey]LinkConfig),
		rng:    rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
	}
}

// Attach creates a radio with the given address.
func (m *Medium) Attach(addr wire.Address) (*MemRadio, error) {
	if addr.IsZero() || addr.IsBroadcast() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.radios {
		if r.addr == addr {
			return nil, fmt.Errorf("%w: %s", ErrAddressInUse, addr)
		}
	}

	r := &MemRadio{
		medium: m,
		addr:   addr,
		peers:  NewPeerTable(m.config.MaxPeers, nil),
	}
	m.radios = append(m.radios, r)
	return r, nil
}

// SetLink configures the channel between a and b in both directions.
func (m *Medium) SetLink(a, b wire.Address, link LinkConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[newLinkKey(a, b)] = link
}

// Pending returns the number of queued frames.
func (m *Medium) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush delivers the frames queued so far, in send order. Frames sent by
// receivers during the flush stay queued for the next call. It returns the
// number of frames flushed.
func (m *Medium) Flush() int {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, f := range batch {
		m.deliver(f)
	}
	return len(batch)
}

func (m *Medium) transmit(f frame) {
	if m.config.Immediate {
		m.deliver(f)
		return
	}
	m.mu.Lock()
	m.pending = append(m.pending, f)
	m.mu.Unlock()
}

type delivery struct {
	radio *MemRadio
	rssi  int8
}

func (m *Medium) deliver(f frame) {
	m.mu.Lock()
	var targets []delivery
	for _, r := range m.radios {
		if r.addr == f.src || (r.addr != f.dst && !f.dst.IsBroadcast()) {
			continue
		}
		link, ok := m.links[newLinkKey(f.src, r.addr)]
		if !ok {
			link = LinkConfig{RSSI: m.config.DefaultRSSI}
		}
		if link.Loss > 0 && m.rng.Float64() < link.Loss {
			r.countLost()
			continue
		}
		targets = append(targets, delivery{radio: r, rssi: link.RSSI})
	}
	m.mu.Unlock()

	for _, d := range targets {
		d.radio.receive(f.src, f.dst, f.data, d.rssi, m.config.NoiseFloor)
	}
}

func (m *Medium) detach(r *MemRadio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.radios {
		if x == r {
			m.radios = append(m.radios[:i], m.radios[i+1:]...)
			return
		}
	}
}

// MemRadio is a radio attached to a Medium.
type MemRadio struct {
	medium *Medium
	addr   wire.Address
	peers  *PeerTable

	mu     sync.Mutex
	recv   Receiver
	closed bool
	stats  RadioStats
}

// LocalAddress implements Radio.
func (r *MemRadio) LocalAddress() wire.Address {
	return r.addr
}

// SetReceiver implements Radio.
func (r *MemRadio) SetReceiver(fn Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recv = fn
}

// RegisterPeer implements pairing.Transport.
func (r *MemRadio) RegisterPeer(addr wire.Address) {
	r.peers.Register(addr)
}

// Peers returns the radio's peer table.
func (r *MemRadio) Peers() *PeerTable {
	return r.peers
}

// Send implements pairing.Transport. Unicast to an unregistered peer is
// dropped, as the radio driver would.
func (r *MemRadio) Send(dst wire.Address, data []byte) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if !dst.IsBroadcast() && !r.peers.Contains(dst) {
		r.stats.UnknownPeerDrops++
		r.mu.Unlock()
		if l := r.medium.config.Logger; l != nil {
			l.Debug("unicast to unregistered peer dropped", "src", r.addr, "dst", dst)
		}
		return
	}
	r.stats.FramesSent++
	r.mu.Unlock()

	r.medium.transmit(frame{src: r.addr, dst: dst, data: bytes.Clone(data)})
}

func (r *MemRadio) receive(src, dst wire.Address, data []byte, rssi, noise int8) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.stats.FramesReceived++
	fn := r.recv
	r.mu.Unlock()

	r.peers.Seen(src, rssi)
	if fn != nil {
		fn(src, dst, data, rssi, noise)
	}
}

func (r *MemRadio) countLost() {
	r.mu.Lock()
	r.stats.FramesLost++
	r.mu.Unlock()
}

// Stats returns the radio counters.
func (r *MemRadio) Stats() RadioStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close detaches the radio from the medium.
func (r *MemRadio) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRadioClosed
	}
	r.closed = true
	r.mu.Unlock()

	r.medium.detach(r)
	return nil
}

var _ Radio = (*MemRadio)(nil)
