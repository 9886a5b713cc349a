package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", config.Interval, DefaultInterval)
	}
	if config.MaxMissed != DefaultMaxMissed {
		t.Errorf("MaxMissed = %d, want %d", config.MaxMissed, DefaultMaxMissed)
	}
	if got := config.DetectionDelay(); got != 5*time.Second {
		t.Errorf("DetectionDelay = %v, want 5s", got)
	}
}

func TestNewMonitorDefaults(t *testing.T) {
	m := NewMonitor(Config{})
	assert.Equal(t, DefaultConfig(), m.Config())

	m = NewMonitor(Config{Interval: 100 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, m.Config().Interval)
	assert.Equal(t, DefaultMaxMissed, m.Config().MaxMissed)
}

func TestMonitorSequence(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.Reset(epoch)

	assert.Equal(t, uint32(1), m.RecordSent(epoch.Add(time.Second)))
	assert.Equal(t, uint32(2), m.RecordSent(epoch.Add(2*time.Second)))

	m.Reset(epoch)
	assert.Equal(t, uint32(1), m.RecordSent(epoch))
}

func TestMonitorDue(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.Reset(epoch)

	assert.False(t, m.Due(epoch.Add(999*time.Millisecond)))
	assert.True(t, m.Due(epoch.Add(time.Second)))

	m.RecordSent(epoch.Add(time.Second))
	assert.False(t, m.Due(epoch.Add(1500*time.Millisecond)))
	assert.True(t, m.Due(epoch.Add(2*time.Second)))
}

func TestMonitorExpiry(t *testing.T) {
	tests := []struct {
		name       string
		elapsed    time.Duration
		wantMissed int
		wantDead   bool
	}{
		{"just reset", 0, 0, false},
		{"one interval", time.Second, 1, false},
		{"just under", 4999 * time.Millisecond, 4, false},
		{"at delay", 5 * time.Second, 5, true},
		{"long silence", 30 * time.Second, 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(DefaultConfig())
			m.Reset(epoch)

			dead := m.Check(epoch.Add(tt.elapsed))
			assert.Equal(t, tt.wantDead, dead)
			assert.Equal(t, tt.wantMissed, m.Missed())
		})
	}
}

func TestMonitorReceiveResetsMissed(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.Reset(epoch)

	m.Check(epoch.Add(3 * time.Second))
	assert.Equal(t, 3, m.Missed())

	m.RecordReceived(7, -55, epoch.Add(3*time.Second))
	assert.Equal(t, 0, m.Missed())
	assert.False(t, m.Check(epoch.Add(7*time.Second)))
	assert.True(t, m.Check(epoch.Add(8*time.Second)))

	stats := m.Stats()
	assert.Equal(t, uint32(7), stats.PartnerSeq)
	assert.Equal(t, int8(-55), stats.PartnerRSSI)
	assert.Equal(t, epoch.Add(3*time.Second), stats.LastReceived)
}

func TestMonitorClockSkew(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.Reset(epoch)

	assert.False(t, m.Check(epoch.Add(-time.Minute)))
	assert.Equal(t, 0, m.Missed())
}
