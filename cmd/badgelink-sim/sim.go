package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/badgelink/badgelink-go/pkg/keys"
	"github.com/badgelink/badgelink-go/pkg/log"
	"github.com/badgelink/badgelink-go/pkg/match"
	"github.com/badgelink/badgelink-go/pkg/node"
	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/proximity"
	"github.com/badgelink/badgelink-go/pkg/transport"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"golang.org/x/sync/errgroup"
)

// SimConfig describes a simulated room.
type SimConfig struct {
	Badges       int
	Area         float64 // side of the square room in meters
	BitmaskBytes int
	Loss         float64
	Seed         uint64
	TickInterval time.Duration

	Pairing        pairing.Config
	Metrics        pairing.Metrics
	ProtocolLogger log.Logger
	Logger         *slog.Logger
}

// DefaultSimConfig returns a small room with six badges.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Badges:       6,
		Area:         8,
		BitmaskBytes: 2,
		Seed:         1,
		TickInterval: node.DefaultTickInterval,
		Pairing:      pairing.DefaultConfig(wire.ZeroAddress),
	}
}

// Badge is one simulated device.
type Badge struct {
	Address wire.Address
	X, Y    float64
	Bitmask []byte
	Key     *keys.KeyPair
	Node    *node.Node
}

// Result is the state of one badge after a run.
type Result struct {
	Address    wire.Address
	State      string
	Partner    *wire.Address
	Similarity int
	Zone       string
	Pairings   uint64
}

// Simulation runs badges on a shared in-memory medium.
type Simulation struct {
	config SimConfig
	medium *transport.Medium
	badges []*Badge

	mu     sync.Mutex
	events []pairing.Transition
}

// NewSimulation places the badges and attaches them to the medium.
func NewSimulation(config SimConfig) (*Simulation, error) {
	if config.Badges < 2 {
		return nil, fmt.Errorf("need at least 2 badges, got %d", config.Badges)
	}
	if config.BitmaskBytes <= 0 {
		config.BitmaskBytes = 2
	}

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15))

	mc := transport.DefaultMediumConfig()
	mc.Immediate = true
	mc.Seed = config.Seed
	mc.Logger = config.Logger
	s := &Simulation{config: config, medium: transport.NewMedium(mc)}

	for i := range config.Badges {
		addr := wire.Address{0x02, 0xBA, 0xD6, 0x00, byte(i >> 8), byte(i + 1)}
		b, err := s.newBadge(addr, rng)
		if err != nil {
			return nil, err
		}
		s.badges = append(s.badges, b)
	}

	for i, a := range s.badges {
		for _, b := range s.badges[i+1:] {
			s.medium.SetLink(a.Address, b.Address, transport.LinkConfig{
				RSSI: proximity.RSSIAt(math.Hypot(a.X-b.X, a.Y-b.Y)),
				Loss: config.Loss,
			})
		}
	}
	return s, nil
}

func (s *Simulation) newBadge(addr wire.Address, rng *rand.Rand) (*Badge, error) {
	radio, err := s.medium.Attach(addr)
	if err != nil {
		return nil, err
	}

	kp, err := keys.Generate(nil)
	if err != nil {
		return nil, err
	}

	bitmask := make([]byte, s.config.BitmaskBytes)
	for i := range bitmask {
		bitmask[i] = byte(rng.UintN(256))
	}

	nc := node.DefaultConfig()
	nc.Pairing = s.config.Pairing
	nc.Pairing.LocalAddress = addr
	nc.Pairing.Metrics = s.config.Metrics
	nc.Pairing.ProtocolLogger = s.config.ProtocolLogger
	nc.TickInterval = s.config.TickInterval
	if s.config.Logger != nil {
		nc.Logger = s.config.Logger.With("badge", addr.String())
	}

	n, err := node.New(nc, radio, nil)
	if err != nil {
		return nil, err
	}
	n.OnStateChange(s.record)

	return &Badge{
		Address: addr,
		X:       rng.Float64() * s.config.Area,
		Y:       rng.Float64() * s.config.Area,
		Bitmask: bitmask,
		Key:     kp,
		Node:    n,
	}, nil
}

func (s *Simulation) record(tr pairing.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, tr)
}

// Badges returns the simulated badges.
func (s *Simulation) Badges() []*Badge {
	return s.badges
}

// Transitions returns every recorded state change.
func (s *Simulation) Transitions() []pairing.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pairing.Transition(nil), s.events...)
}

// Run starts all badges, lets them pair until ctx is done and returns their
// final state.
func (s *Simulation) Run(ctx context.Context) ([]Result, error) {
	// The nodes outlive ctx until the final snapshot is taken.
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	for _, b := range s.badges {
		g.Go(func() error { return b.Node.Run(gctx) })
	}
	abort := func(err error) ([]Result, error) {
		stop()
		_ = g.Wait()
		return nil, err
	}
	for _, b := range s.badges {
		if err := b.Node.SetLocalPublicKey(ctx, b.Key.Public.String()); err != nil {
			return abort(err)
		}
		if err := b.Node.SetLocalBitmask(ctx, b.Bitmask); err != nil {
			return abort(err)
		}
	}

	<-ctx.Done()

	results := make([]Result, 0, len(s.badges))
	snap, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, b := range s.badges {
		st, err := b.Node.Status(snap)
		if err != nil {
			return abort(err)
		}
		results = append(results, Result{
			Address:    b.Address,
			State:      st.State,
			Partner:    st.Partner,
			Similarity: st.Similarity,
			Zone:       st.Zone,
			Pairings:   st.Stats.Pairings,
		})
	}

	stop()
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Similarity returns the matcher score between two badges.
func (s *Simulation) Similarity(a, b *Badge) int {
	return match.Similarity(a.Bitmask, b.Bitmask)
}

// Pairs returns the mutually consistent pairs in results, ordered by the
// first address.
func Pairs(results []Result) [][2]wire.Address {
	byAddr := make(map[wire.Address]Result, len(results))
	for _, r := range results {
		byAddr[r.Address] = r
	}

	var pairs [][2]wire.Address
	for _, r := range results {
		if r.State != wire.StatePaired.String() || r.Partner == nil {
			continue
		}
		other, ok := byAddr[*r.Partner]
		if !ok || other.State != wire.StatePaired.String() || other.Partner == nil || *other.Partner != r.Address {
			continue
		}
		if r.Address.Compare(other.Address) < 0 {
			pairs = append(pairs, [2]wire.Address{r.Address, other.Address})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0].Compare(pairs[j][0]) < 0 })
	return pairs
}
