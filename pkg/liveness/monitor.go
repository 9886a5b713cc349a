package liveness

import "time"

// Liveness constants.
const (
	// DefaultInterval is the default interval between heartbeats.
	DefaultInterval = 1 * time.Second

	// DefaultMaxMissed is the default number of silent intervals before the
	// session is declared dead.
	DefaultMaxMissed = 5
)

// Config configures heartbeat behavior.
type Config struct {
	// Interval is the time between outbound heartbeats.
	Interval time.Duration

	// MaxMissed is the number of intervals without an inbound heartbeat
	// after which the session expires.
	MaxMissed int
}

// DefaultConfig returns the default heartbeat configuration.
func DefaultConfig() Config {
	return Config{
		Interval:  DefaultInterval,
		MaxMissed: DefaultMaxMissed,
	}
}

// DetectionDelay is the silence after which a session expires.
func (c Config) DetectionDelay() time.Duration {
	return c.Interval * time.Duration(c.MaxMissed)
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxMissed <= 0 {
		c.MaxMissed = DefaultMaxMissed
	}
	return c
}

// Monitor holds heartbeat counters for one session.
type Monitor struct {
	config Config

	localSeq     uint32
	partnerSeq   uint32
	partnerRSSI  int8
	lastSent     time.Time
	lastReceived time.Time
	missed       int
}

// NewMonitor creates a monitor. Zero config fields take their defaults.
func NewMonitor(config Config) *Monitor {
	return &Monitor{config: config.withDefaults()}
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.config
}

// Reset starts a new session at now. The partner is treated as heard at now
// so that a fresh session gets the full detection delay.
func (m *Monitor) Reset(now time.Time) {
	m.localSeq = 0
	m.partnerSeq = 0
	m.partnerRSSI = 0
	m.lastSent = now
	m.lastReceived = now
	m.missed = 0
}

// RecordSent stamps an outbound heartbeat and returns its sequence number.
func (m *Monitor) RecordSent(now time.Time) uint32 {
	m.localSeq++
	m.lastSent = now
	return m.localSeq
}

// RecordReceived stamps an inbound heartbeat from the partner.
func (m *Monitor) RecordReceived(seq uint32, rssi int8, now time.Time) {
	m.partnerSeq = seq
	m.partnerRSSI = rssi
	m.lastReceived = now
	m.missed = 0
}

// Due reports whether the next outbound heartbeat should be sent.
func (m *Monitor) Due(now time.Time) bool {
	return now.Sub(m.lastSent) >= m.config.Interval
}

// Check refreshes the missed counter and reports whether the session has
// expired at now.
func (m *Monitor) Check(now time.Time) bool {
	silence := now.Sub(m.lastReceived)
	if silence < 0 {
		silence = 0
	}
	m.missed = int(silence / m.config.Interval)
	return silence >= m.config.DetectionDelay()
}

// Missed returns the number of whole intervals since the last inbound
// heartbeat, as of the last Check.
func (m *Monitor) Missed() int {
	return m.missed
}

// PartnerRSSI returns the RSSI of the last inbound heartbeat.
func (m *Monitor) PartnerRSSI() int8 {
	return m.partnerRSSI
}

// Stats returns current heartbeat statistics.
func (m *Monitor) Stats() Stats {
	return Stats{
		LocalSeq:     m.localSeq,
		PartnerSeq:   m.partnerSeq,
		PartnerRSSI:  m.partnerRSSI,
		LastSent:     m.lastSent,
		LastReceived: m.lastReceived,
		Missed:       m.missed,
	}
}

// Stats contains heartbeat statistics.
type Stats struct {
	LocalSeq     uint32
	PartnerSeq   uint32
	PartnerRSSI  int8
	LastSent     time.Time
	LastReceived time.Time
	Missed       int
}
