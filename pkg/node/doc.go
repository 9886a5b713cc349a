// Package node runs a pairing machine on a radio.
//
// A Node owns one pairing.Machine and drives it from a single worker
// goroutine. Received frames, ticks, configuration changes and status
// queries all pass through a bounded FIFO mailbox, so the machine is never
// touched concurrently and the radio receive path never blocks. When the
// mailbox is full the event is dropped and a rate-limited warning is logged.
//
//	radio, _ := transport.ListenUDP(transport.DefaultUDPConfig(), addr)
//	n, _ := node.New(node.DefaultConfig(), radio, notifier)
//	go radio.Run(ctx)
//	_ = n.Run(ctx)
package node
