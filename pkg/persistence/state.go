package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// DefaultHistorySize is the number of pairing records kept when the caller
// does not choose a limit.
const DefaultHistorySize = 50

// DeviceState contains the persisted state of a badge.
type DeviceState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// LocalAddress is the radio address the badge used.
	LocalAddress string `json:"local_address,omitempty"`

	// Bitmask is the interest bitmask last configured by the companion.
	Bitmask []byte `json:"bitmask,omitempty"`

	// Pairings is the pairing history, oldest first.
	Pairings []PairingRecord `json:"pairings,omitempty"`
}

// PairingRecord describes one PAIRED session.
type PairingRecord struct {
	SessionID  string    `json:"session_id"`
	Partner    string    `json:"partner"`
	PartnerKey string    `json:"partner_key,omitempty"`
	Similarity int       `json:"similarity"`
	PairedAt   time.Time `json:"paired_at"`

	// EndedAt is zero while the session is running.
	EndedAt   time.Time `json:"ended_at,omitempty"`
	EndReason string    `json:"end_reason,omitempty"`

	// RelayURL is the last relay URL received from the partner.
	RelayURL string `json:"relay_url,omitempty"`
}

// AddPairing appends rec, keeping at most limit records.
func (s *DeviceState) AddPairing(rec PairingRecord, limit int) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	s.Pairings = append(s.Pairings, rec)
	if n := len(s.Pairings) - limit; n > 0 {
		s.Pairings = append([]PairingRecord(nil), s.Pairings[n:]...)
	}
}

// Pairing returns the record for sessionID, or nil.
func (s *DeviceState) Pairing(sessionID string) *PairingRecord {
	for i := len(s.Pairings) - 1; i >= 0; i-- {
		if s.Pairings[i].SessionID == sessionID {
			return &s.Pairings[i]
		}
	}
	return nil
}

// EndPairing marks the session as finished. Unknown or already ended
// sessions are left alone.
func (s *DeviceState) EndPairing(sessionID string, at time.Time, reason string) bool {
	rec := s.Pairing(sessionID)
	if rec == nil || !rec.EndedAt.IsZero() {
		return false
	}
	rec.EndedAt = at
	rec.EndReason = reason
	return true
}

// DeviceStateStore manages persistence of device state to a JSON file.
type DeviceStateStore struct {
	mu   sync.Mutex
	path string
}

// NewDeviceStateStore creates a new device state store.
func NewDeviceStateStore(path string) *DeviceStateStore {
	return &DeviceStateStore{path: path}
}

// Path returns the state file path.
func (s *DeviceStateStore) Path() string {
	return s.path
}

// Save persists the device state to disk. The file is replaced atomically.
func (s *DeviceStateStore) Save(state *DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the device state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *DeviceStateStore) Load() (*DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &DeviceState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Clear removes the state file.
func (s *DeviceStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
