package main

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/badgelink/badgelink-go/pkg/persistence"
	"github.com/badgelink/badgelink-go/pkg/wire"
)

// history keeps the persisted device state current.
type history struct {
	mu      sync.Mutex
	store   *persistence.DeviceStateStore
	state   *persistence.DeviceState
	limit   int
	current string
	logger  *slog.Logger
}

func openHistory(path string, limit int, logger *slog.Logger) (*history, error) {
	store := persistence.NewDeviceStateStore(path)
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &persistence.DeviceState{Version: persistence.StateVersion}
	}
	return &history{store: store, state: state, limit: limit, logger: logger}, nil
}

// Bitmask returns the last stored bitmask.
func (h *history) Bitmask() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return bytes.Clone(h.state.Bitmask)
}

// Pairings returns a copy of the stored history.
func (h *history) Pairings() []persistence.PairingRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]persistence.PairingRecord(nil), h.state.Pairings...)
}

func (h *history) setAddress(addr wire.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.LocalAddress == addr.String() {
		return
	}
	h.state.LocalAddress = addr.String()
	h.save()
}

func (h *history) setBitmask(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if bytes.Equal(h.state.Bitmask, b) {
		return
	}
	h.state.Bitmask = bytes.Clone(b)
	h.save()
}

func (h *history) transition(tr pairing.Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case tr.To == wire.StatePaired:
		h.state.AddPairing(persistence.PairingRecord{
			SessionID:  tr.SessionID,
			Partner:    tr.Partner.String(),
			PartnerKey: tr.PartnerKey,
			Similarity: tr.Similarity,
			PairedAt:   tr.At,
		}, h.limit)
		h.current = tr.SessionID
	case tr.From == wire.StatePaired && h.current != "":
		h.state.EndPairing(h.current, tr.At, tr.Reason)
		h.current = ""
	default:
		return
	}
	h.save()
}

func (h *history) relayURL(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rec := h.state.Pairing(h.current); rec != nil {
		rec.RelayURL = url
		h.save()
	}
}

// close ends a running session, for shutdown.
func (h *history) close(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != "" {
		h.state.EndPairing(h.current, at, "shutdown")
		h.current = ""
	}
	h.save()
}

func (h *history) save() {
	if err := h.store.Save(h.state); err != nil && h.logger != nil {
		h.logger.Warn("failed to save state", "path", h.store.Path(), "error", err)
	}
}
