package proximity

import "time"

// Tracker defaults.
const (
	DefaultSamples = 5
	DefaultTimeout = 1 * time.Second
)

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	// Samples is the moving average window.
	Samples int

	// Timeout is the silence after which the zone becomes ZoneUnknown.
	Timeout time.Duration
}

// Tracker smooths RSSI samples from one peer. It is not safe for concurrent
// use.
type Tracker struct {
	config TrackerConfig

	samples []int8
	next    int
	count   int
	sum     int

	average  int8
	zone     Zone
	lastSeen time.Time
}

// NewTracker creates a tracker. Zero config fields take their defaults.
func NewTracker(config TrackerConfig) *Tracker {
	if config.Samples <= 0 {
		config.Samples = DefaultSamples
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Tracker{
		config:  config,
		samples: make([]int8, config.Samples),
	}
}

// Update adds a sample observed at now and returns the new zone.
func (t *Tracker) Update(rssi int8, now time.Time) Zone {
	if t.count == len(t.samples) {
		t.sum -= int(t.samples[t.next])
	} else {
		t.count++
	}
	t.samples[t.next] = rssi
	t.sum += int(rssi)
	t.next = (t.next + 1) % len(t.samples)

	t.average = int8(t.sum / t.count)
	t.zone = ZoneFor(t.average)
	t.lastSeen = now
	return t.zone
}

// Zone returns the current zone, ZoneUnknown after Timeout without samples.
func (t *Tracker) Zone(now time.Time) Zone {
	if t.count == 0 || now.Sub(t.lastSeen) > t.config.Timeout {
		return ZoneUnknown
	}
	return t.zone
}

// Average returns the smoothed RSSI. It is zero before the first sample.
func (t *Tracker) Average() int8 {
	return t.average
}

// Reset drops all samples.
func (t *Tracker) Reset() {
	clear(t.samples)
	t.next = 0
	t.count = 0
	t.sum = 0
	t.average = 0
	t.zone = ZoneUnknown
	t.lastSeen = time.Time{}
}
