package main

import (
	"context"

	"github.com/badgelink/badgelink-go/pkg/wire"
)

// advertState is what the mDNS TXT record shows about pairing.
type advertState struct {
	state   string
	partner wire.Address
}

// advertQueue hands state to the advertiser goroutine. It holds at most
// one pending update; a newer one replaces it.
type advertQueue struct {
	ch chan advertState
}

func newAdvertQueue() *advertQueue {
	return &advertQueue{ch: make(chan advertState, 1)}
}

// push never blocks. Only one goroutine may push.
func (q *advertQueue) push(s advertState) {
	for {
		select {
		case q.ch <- s:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// run applies updates with apply until ctx is done.
func (q *advertQueue) run(ctx context.Context, apply func(advertState)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-q.ch:
			apply(s)
		}
	}
}
