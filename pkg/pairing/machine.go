package pairing

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/badgelink/badgelink-go/pkg/keyexchange"
	"github.com/badgelink/badgelink-go/pkg/liveness"
	"github.com/badgelink/badgelink-go/pkg/proximity"
	"github.com/badgelink/badgelink-go/pkg/wire"
	"github.com/google/uuid"
)

// Transition describes a state change.
type Transition struct {
	From      wire.State
	To        wire.State
	Partner   wire.Address
	SessionID string
	Reason    string
	At        time.Time

	// PartnerKey and Similarity are set when entering PAIRED.
	PartnerKey string
	Similarity int
}

// Machine is the pairing context of one device.
type Machine struct {
	config    Config
	transport Transport
	notifier  Notifier
	logger    *slog.Logger
	started   time.Time

	ready        bool
	state        wire.State
	localBitmask []byte
	localKey     string

	partner        wire.Address
	partnerBitmask []byte
	partnerKey     string
	proposalRSSI   int8
	partnerRSSI    int8

	// lastAction is the last HELLO broadcast while SEARCHING, or the
	// PROPOSING entry time.
	lastAction time.Time

	sessionID string
	pairedAt  time.Time

	monitor  *liveness.Monitor
	exchange keyexchange.Exchange
	tracker  *proximity.Tracker

	onStateChange []func(Transition)
	stats         Stats
}

// NewMachine creates an inert machine. It starts SEARCHING once both the
// local bitmask and the local public key have been set.
func NewMachine(config Config, transport Transport, notifier Notifier) (*Machine, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	m := &Machine{
		config:    config,
		transport: transport,
		notifier:  notifier,
		logger:    config.Logger,
		started:   config.Clock.Now(),
		state:     wire.StateSearching,
		monitor: liveness.NewMonitor(liveness.Config{
			Interval:  config.HeartbeatInterval,
			MaxMissed: config.MaxMissedHeartbeats,
		}),
		tracker: proximity.NewTracker(proximity.TrackerConfig{}),
	}
	return m, nil
}

// Config returns the effective configuration.
func (m *Machine) Config() Config {
	return m.config
}

// OnStateChange registers fn to be called after every state change,
// including the initial entry into SEARCHING.
func (m *Machine) OnStateChange(fn func(Transition)) {
	m.onStateChange = append(m.onStateChange, fn)
}

// SetLocalBitmask sets the interest bitmask advertised in HELLO. The machine
// keeps its own copy. Changing the bitmask of a ready machine does not reset
// a running session.
func (m *Machine) SetLocalBitmask(b []byte) error {
	if len(b) == 0 {
		return ErrEmptyBitmask
	}
	if len(b) > m.config.Limits.MaxBitmaskLen {
		return fmt.Errorf("%w: %d > %d", wire.ErrBitmaskTooLong, len(b), m.config.Limits.MaxBitmaskLen)
	}
	if !bytes.Equal(b, m.localBitmask) {
		m.localBitmask = bytes.Clone(b)
	}
	m.checkReady()
	return nil
}

// SetLocalPublicKey sets the key sent in PROPOSAL, ACCEPT and KEY_EXCHANGE.
func (m *Machine) SetLocalPublicKey(key string) error {
	if err := m.validateText(key, ErrEmptyKey); err != nil {
		return err
	}
	m.localKey = key
	m.checkReady()
	return nil
}

// SetRelayURL queues url for delivery to the current partner. It is only
// accepted while PAIRED and is forgotten when the session ends.
func (m *Machine) SetRelayURL(url string) error {
	if err := m.validateText(url, ErrEmptyURL); err != nil {
		return err
	}
	if m.state != wire.StatePaired || !m.ready {
		return ErrNotPaired
	}
	m.exchange.SetOutgoingURL(url)
	return nil
}

func (m *Machine) validateText(s string, errEmpty error) error {
	if s == "" {
		return errEmpty
	}
	if len(s) > m.config.Limits.MaxStringLen {
		return fmt.Errorf("%w: %d > %d", wire.ErrStringTooLong, len(s), m.config.Limits.MaxStringLen)
	}
	if !utf8.ValidString(s) {
		return wire.ErrInvalidString
	}
	return nil
}

// checkReady enters SEARCHING on the not-ready to ready edge only.
func (m *Machine) checkReady() {
	if m.ready || len(m.localBitmask) == 0 || m.localKey == "" {
		return
	}
	m.ready = true
	m.info("pairing ready", "local", m.config.LocalAddress)
	m.enterSearching("ready")
}

// Ready reports whether the local bitmask and key are configured.
func (m *Machine) Ready() bool {
	return m.ready
}

// State returns the current state.
func (m *Machine) State() wire.State {
	return m.state
}

// LocalAddress returns the configured local address.
func (m *Machine) LocalAddress() wire.Address {
	return m.config.LocalAddress
}

// PartnerAddress returns the partner address while PAIRED.
func (m *Machine) PartnerAddress() (wire.Address, bool) {
	if m.state != wire.StatePaired {
		return wire.ZeroAddress, false
	}
	return m.partner, true
}

// PartnerPublicKey returns the partner key while PAIRED.
func (m *Machine) PartnerPublicKey() (string, bool) {
	if m.state != wire.StatePaired {
		return "", false
	}
	return m.partnerKey, true
}

// PartnerBitmask returns a copy of the partner bitmask while PAIRED.
func (m *Machine) PartnerBitmask() ([]byte, bool) {
	if m.state != wire.StatePaired {
		return nil, false
	}
	return bytes.Clone(m.partnerBitmask), true
}

// SessionID returns the identifier of the current PAIRED session.
func (m *Machine) SessionID() string {
	return m.sessionID
}

// Reset abandons any proposal or session and returns to SEARCHING.
func (m *Machine) Reset() {
	if !m.ready {
		return
	}
	m.enterSearching("manual reset")
}

func (m *Machine) now() time.Time {
	return m.config.Clock.Now()
}

func (m *Machine) uptimeMS() uint32 {
	return uint32(m.config.Clock.Since(m.started).Milliseconds())
}

func (m *Machine) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Machine) info(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Machine) enterSearching(reason string) {
	m.partner = wire.ZeroAddress
	m.partnerBitmask = nil
	m.partnerKey = ""
	m.proposalRSSI = 0
	m.partnerRSSI = 0
	m.sessionID = ""
	m.pairedAt = time.Time{}
	m.lastAction = time.Time{}
	m.monitor.Reset(m.now())
	m.exchange.Reset(true)
	m.tracker.Reset()

	m.setState(wire.StateSearching, reason)
}

func (m *Machine) enterProposing(partner wire.Address, bitmask []byte, rssi int8) {
	m.partner = partner
	m.partnerBitmask = bytes.Clone(bitmask)
	m.partnerKey = ""
	m.proposalRSSI = rssi
	m.lastAction = m.now()

	m.setState(wire.StateProposing, "hello matched")
}

// enterPaired starts a new session. A nil bitmask keeps the known one.
func (m *Machine) enterPaired(partner wire.Address, key string, bitmask []byte, rssi int8, reason string) {
	now := m.now()

	m.partner = partner
	m.partnerKey = key
	if bitmask != nil {
		m.partnerBitmask = bytes.Clone(bitmask)
	}
	m.partnerRSSI = rssi
	m.sessionID = uuid.NewString()
	m.pairedAt = now
	m.monitor.Reset(now)
	m.exchange.Activate()
	m.tracker.Reset()
	m.tracker.Update(rssi, now)
	m.stats.Pairings++

	m.setState(wire.StatePaired, reason)
}

func (m *Machine) setState(to wire.State, reason string) {
	from := m.state
	m.state = to

	tr := Transition{
		From:      from,
		To:        to,
		Partner:   m.partner,
		SessionID: m.sessionID,
		Reason:    reason,
		At:        m.now(),
	}
	if to == wire.StatePaired {
		tr.PartnerKey = m.partnerKey
		tr.Similarity = m.similarity()
	}

	m.info("pairing state changed",
		"from", from.String(),
		"to", to.String(),
		"partner", m.partner,
		"reason", reason)
	m.logStateChange(tr)
	m.config.Metrics.StateChanged(from, to)

	for _, fn := range m.onStateChange {
		fn(tr)
	}
}
