package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/badgelink/badgelink-go/pkg/wire"
	"golang.org/x/net/ipv4"
)

// UDP radio defaults.
const (
	DefaultMulticastGroup = "239.255.66.76:4766"
	DefaultNominalRSSI    = -55
)

// UDPConfig configures a UDPRadio.
type UDPConfig struct {
	// Group is the IPv4 multicast group and port all badges share.
	Group string

	// Interface selects the network interface by name. Empty uses the
	// system default.
	Interface string

	// Loopback enables delivery to other radios on the same host.
	Loopback bool

	// TTL of outgoing datagrams. Zero keeps frames on the local link.
	TTL int

	// NominalRSSI is reported for every received frame; UDP carries no
	// signal strength.
	NominalRSSI int8

	// NoiseFloor is reported with every frame.
	NoiseFloor int8

	// MaxPeers bounds the unicast peer table.
	MaxPeers int

	Logger *slog.Logger
}

// DefaultUDPConfig returns a loopback-enabled configuration on the default
// group.
func DefaultUDPConfig() UDPConfig {
	return UDPConfig{
		Group:       DefaultMulticastGroup,
		Loopback:    true,
		TTL:         1,
		NominalRSSI: DefaultNominalRSSI,
		NoiseFloor:  DefaultNoiseFloor,
		MaxPeers:    DefaultMaxPeers,
	}
}

// UDPRadio emulates the badge radio over UDP multicast. Every frame is sent
// to the group inside an Envelope; receivers filter by destination.
type UDPRadio struct {
	config UDPConfig
	addr   wire.Address
	group  *net.UDPAddr
	conn   *net.UDPConn
	pc     *ipv4.PacketConn
	peers  *PeerTable

	mu     sync.Mutex
	recv   Receiver
	stats  RadioStats
	closed atomic.Bool
}

// ListenUDP joins the multicast group and returns a radio sending from
// addr. Call Run to start receiving.
func ListenUDP(config UDPConfig, addr wire.Address) (*UDPRadio, error) {
	if addr.IsZero() || addr.IsBroadcast() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if config.Group == "" {
		config.Group = DefaultMulticastGroup
	}
	if config.NominalRSSI == 0 {
		config.NominalRSSI = DefaultNominalRSSI
	}
	if config.NoiseFloor == 0 {
		config.NoiseFloor = DefaultNoiseFloor
	}

	group, err := net.ResolveUDPAddr("udp4", config.Group)
	if err != nil {
		return nil, fmt.Errorf("resolve group: %w", err)
	}
	if !group.IP.IsMulticast() {
		return nil, fmt.Errorf("group %s is not a multicast address", group.IP)
	}

	var ifi *net.Interface
	if config.Interface != "" {
		ifi, err = net.InterfaceByName(config.Interface)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", config.Interface, err)
		}
	}

	conn, err := net.ListenMulticastUDP("udp4", ifi, group)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", group, err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastLoopback(config.Loopback); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set loopback: %w", err)
	}
	if config.TTL > 0 {
		if err := pc.SetMulticastTTL(config.TTL); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set ttl: %w", err)
		}
	}
	if ifi != nil {
		if err := pc.SetMulticastInterface(ifi); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set interface: %w", err)
		}
	}

	return &UDPRadio{
		config: config,
		addr:   addr,
		group:  group,
		conn:   conn,
		pc:     pc,
		peers:  NewPeerTable(config.MaxPeers, nil),
	}, nil
}

// LocalAddress implements Radio.
func (r *UDPRadio) LocalAddress() wire.Address {
	return r.addr
}

// Group returns the multicast group address.
func (r *UDPRadio) Group() *net.UDPAddr {
	return r.group
}

// SetReceiver implements Radio.
func (r *UDPRadio) SetReceiver(fn Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recv = fn
}

// RegisterPeer implements pairing.Transport.
func (r *UDPRadio) RegisterPeer(addr wire.Address) {
	r.peers.Register(addr)
}

// Peers returns the radio's peer table.
func (r *UDPRadio) Peers() *PeerTable {
	return r.peers
}

// Send implements pairing.Transport.
func (r *UDPRadio) Send(dst wire.Address, data []byte) {
	if r.closed.Load() {
		return
	}
	if !dst.IsBroadcast() && !r.peers.Contains(dst) {
		r.count(func(s *RadioStats) { s.UnknownPeerDrops++ })
		r.debug("unicast to unregistered peer dropped", "dst", dst)
		return
	}

	env := Envelope{Src: r.addr, Dst: dst, Payload: data}
	buf, err := env.MarshalBinary()
	if err == nil {
		_, err = r.conn.WriteToUDP(buf, r.group)
	}
	if err != nil {
		r.count(func(s *RadioStats) { s.SendErrors++ })
		if r.config.Logger != nil {
			r.config.Logger.Warn("radio send failed", "dst", dst, "error", err)
		}
		return
	}
	r.count(func(s *RadioStats) { s.FramesSent++ })
}

// Run reads datagrams until ctx is done or the radio is closed.
func (r *UDPRadio) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { r.conn.Close() })
	defer stop()

	buf := make([]byte, MaxEnvelopeSize+1)
	for {
		n, _, from, err := r.pc.ReadFrom(buf)
		if err != nil {
			if r.closed.Load() || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("radio read: %w", err)
		}
		r.handleDatagram(buf[:n], from)
	}
}

func (r *UDPRadio) handleDatagram(data []byte, from net.Addr) {
	var env Envelope
	if err := env.UnmarshalBinary(data); err != nil {
		r.debug("datagram ignored", "from", from, "error", err)
		return
	}
	if env.Src == r.addr {
		return
	}
	if env.Dst != r.addr && !env.Dst.IsBroadcast() {
		return
	}

	r.mu.Lock()
	r.stats.FramesReceived++
	fn := r.recv
	r.mu.Unlock()

	r.peers.Seen(env.Src, r.config.NominalRSSI)
	if fn != nil {
		fn(env.Src, env.Dst, bytes.Clone(env.Payload), r.config.NominalRSSI, r.config.NoiseFloor)
	}
}

// Stats returns the radio counters.
func (r *UDPRadio) Stats() RadioStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close leaves the group and stops Run.
func (r *UDPRadio) Close() error {
	if r.closed.Swap(true) {
		return ErrRadioClosed
	}
	return r.conn.Close()
}

func (r *UDPRadio) count(fn func(*RadioStats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *UDPRadio) debug(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}

var _ Radio = (*UDPRadio)(nil)
