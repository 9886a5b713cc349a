package pairing

import (
	"sync"
	"testing"

	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

var (
	addrA = wire.Address{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
	addrB = wire.Address{0xBB, 0xBB, 0xBB, 0xBB, 0xBB, 0xBB}
	addrC = wire.Address{0xCC, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC}
	addrX = wire.Address{0x24, 0x6f, 0x28, 0x00, 0x00, 0x01}
	addrY = wire.Address{0x24, 0x6f, 0x28, 0x00, 0x00, 0x02}
	addrZ = wire.Address{0x24, 0x6f, 0x28, 0x00, 0x00, 0x03}
)

type sentPacket struct {
	dst wire.Address
	pkt *wire.Packet
	raw []byte
}

// fakeTransport records sends and decodes them for inspection.
type fakeTransport struct {
	t      *testing.T
	limits wire.Limits
	sent   []sentPacket
	peers  map[wire.Address]bool
}

func newFakeTransport(t *testing.T) *fakeTransport {
	return &fakeTransport{t: t, limits: wire.DefaultLimits(), peers: make(map[wire.Address]bool)}
}

func (f *fakeTransport) Send(dst wire.Address, data []byte) {
	p, err := wire.Decode(data, f.limits)
	require.NoError(f.t, err, "machine sent an undecodable packet")
	f.sent = append(f.sent, sentPacket{dst: dst, pkt: p, raw: data})
}

func (f *fakeTransport) RegisterPeer(addr wire.Address) {
	f.peers[addr] = true
}

func (f *fakeTransport) ofType(t wire.MessageType) []sentPacket {
	var out []sentPacket
	for _, s := range f.sent {
		if s.pkt.Type == t {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeTransport) last() sentPacket {
	f.t.Helper()
	require.NotEmpty(f.t, f.sent, "nothing sent")
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) clear() {
	f.sent = nil
}

type fakeNotifier struct {
	keys []string
	urls []string
}

func (n *fakeNotifier) PartnerKeyAvailable(key string) { n.keys = append(n.keys, key) }
func (n *fakeNotifier) RelayURLReceived(url string) { n.urls = append(n.urls, url) }

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) byCategory(cat log.Category) []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []log.Event
	for _, e := range c.events {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	m         *Machine
	clock     *clock.Mock
	transport *fakeTransport
	notifier  *fakeNotifier
}

func keyFor(addr wire.Address) string {
	return "pk-" + addr.String()
}

// newHarness returns a ready machine with bitmask 0xF0.
func newHarness(t *testing.T, addr wire.Address, mutate ...func(*Config)) *harness {
	t.Helper()
	mock := clock.NewMock()

	config := DefaultConfig(addr)
	config.Clock = mock
	for _, fn := range mutate {
		fn(&config)
	}

	h := &harness{
		clock:     mock,
		transport: newFakeTransport(t),
		notifier:  &fakeNotifier{},
	}
	m, err := NewMachine(config, h.transport, h.notifier)
	require.NoError(t, err)
	h.transport.limits = m.Config().Limits
	require.NoError(t, m.SetLocalBitmask([]byte{0xF0}))
	require.NoError(t, m.SetLocalPublicKey(keyFor(addr)))
	require.True(t, m.Ready())
	h.m = m
	return h
}

func packet(t wire.MessageType, from, to wire.Address, bitmask []byte, text string) *wire.Packet {
	p := &wire.Packet{
		Header:  wire.Header{Type: t, Sender: from, Partner: to},
		Bitmask: bitmask,
	}
	if text != "" {
		p.Text, p.HasText = text, true
	}
	return p
}

func (h *harness) deliver(t *testing.T, p *wire.Packet, rssi int8) {
	t.Helper()
	data, err := wire.Marshal(p, h.m.Config().Limits)
	require.NoError(t, err)

	dst := h.m.LocalAddress()
	if p.Type == wire.MsgHello {
		dst = wire.BroadcastAddress
	}
	h.m.HandleRecv(p.Sender, dst, data, rssi, -95)
}

func (h *harness) hello(t *testing.T, from wire.Address, bitmask []byte, rssi int8) {
	t.Helper()
	h.deliver(t, packet(wire.MsgHello, from, wire.BroadcastAddress, bitmask, ""), rssi)
}

func (h *harness) proposal(t *testing.T, from wire.Address, rssi int8) {
	t.Helper()
	h.deliver(t, packet(wire.MsgProposal, from, h.m.LocalAddress(), []byte{0xF0}, keyFor(from)), rssi)
}

func (h *harness) accept(t *testing.T, from wire.Address, rssi int8) {
	t.Helper()
	h.deliver(t, packet(wire.MsgAccept, from, h.m.LocalAddress(), []byte{0xF0}, keyFor(from)), rssi)
}

// pairWith drives the machine into PAIRED with partner through HELLO and
// ACCEPT.
func (h *harness) pairWith(t *testing.T, partner wire.Address) {
	t.Helper()
	h.hello(t, partner, []byte{0xF0}, -55)
	require.Equal(t, wire.StateProposing, h.m.State())
	h.accept(t, partner, -55)
	require.Equal(t, wire.StatePaired, h.m.State())
	h.transport.clear()
}

// link connects machines through queued in-order delivery at a fixed RSSI.
type link struct {
	t        *testing.T
	rssi     int8
	machines map[wire.Address]*Machine
	queues   map[wire.Address]*linkTransport
}

type linkTransport struct {
	from    wire.Address
	pending []linkFrame
}

type linkFrame struct {
	from, dst wire.Address
	data      []byte
}

func (lt *linkTransport) Send(dst wire.Address, data []byte) {
	lt.pending = append(lt.pending, linkFrame{from: lt.from, dst: dst, data: data})
}

func (lt *linkTransport) RegisterPeer(wire.Address) {}

func newLink(t *testing.T, rssi int8) *link {
	return &link{
		t:        t,
		rssi:     rssi,
		machines: make(map[wire.Address]*Machine),
		queues:   make(map[wire.Address]*linkTransport),
	}
}

func (l *link) add(addr wire.Address, mock *clock.Mock) *Machine {
	l.t.Helper()
	lt := &linkTransport{from: addr}
	config := DefaultConfig(addr)
	config.Clock = mock
	m, err := NewMachine(config, lt, nil)
	require.NoError(l.t, err)
	require.NoError(l.t, m.SetLocalBitmask([]byte{0xF0}))
	require.NoError(l.t, m.SetLocalPublicKey(keyFor(addr)))
	l.machines[addr] = m
	l.queues[addr] = lt
	return m
}

// step delivers everything queued by the machines in order, returning the
// delivered frames. New sends are queued for the next step.
func (l *link) step(order ...wire.Address) []linkFrame {
	var batch []linkFrame
	for _, addr := range order {
		q := l.queues[addr]
		batch = append(batch, q.pending...)
		q.pending = nil
	}
	for _, f := range batch {
		for addr, m := range l.machines {
			if addr == f.from {
				continue
			}
			if f.dst == addr || f.dst.IsBroadcast() {
				m.HandleRecv(f.from, f.dst, f.data, l.rssi, -95)
			}
		}
	}
	return batch
}
