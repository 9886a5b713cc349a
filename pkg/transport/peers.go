package transport

import (
	"sync"
	"time"

	"github.com/badgelink/badgelink-go/pkg/wire"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxPeers is the number of unicast peers a radio keeps, matching
// the ESP-NOW peer list limit.
const DefaultMaxPeers = 20

// Peer is an entry of the peer table.
type Peer struct {
	Address  wire.Address
	AddedAt  time.Time
	LastSeen time.Time
	RSSI     int8
}

// PeerTable is a bounded registry of unicast peers. When full, registering
// a new peer evicts the least recently used one.
type PeerTable struct {
	mu      sync.Mutex
	cache   *lru.Cache[wire.Address, *Peer]
	now     func() time.Time
	evicted int
}

// NewPeerTable creates a table holding at most size peers. A size of zero
// or less selects DefaultMaxPeers.
func NewPeerTable(size int, now func() time.Time) *PeerTable {
	if size <= 0 {
		size = DefaultMaxPeers
	}
	if now == nil {
		now = time.Now
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[wire.Address, *Peer](size)
	return &PeerTable{cache: cache, now: now}
}

// Register adds addr. Registering a known peer marks it as recently used.
// The broadcast address is never stored.
func (t *PeerTable) Register(addr wire.Address) {
	if addr.IsBroadcast() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.cache.Get(addr); ok {
		return
	}
	now := t.now()
	if t.cache.Add(addr, &Peer{Address: addr, AddedAt: now, LastSeen: now}) {
		t.evicted++
	}
}

// Contains reports whether addr may receive unicast.
func (t *PeerTable) Contains(addr wire.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Contains(addr)
}

// Seen records a frame received from addr, if it is registered.
func (t *PeerTable) Seen(addr wire.Address, rssi int8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.cache.Peek(addr); ok {
		p.LastSeen = t.now()
		p.RSSI = rssi
	}
}

// Remove deletes addr.
func (t *PeerTable) Remove(addr wire.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Remove(addr)
}

// Len returns the number of registered peers.
func (t *PeerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}

// Evicted returns how many peers were pushed out by newer ones.
func (t *PeerTable) Evicted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evicted
}

// Peers returns copies of all entries, least recently used first.
func (t *PeerTable) Peers() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Peer, 0, t.cache.Len())
	for _, p := range t.cache.Values() {
		out = append(out, *p)
	}
	return out
}
