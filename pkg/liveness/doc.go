// Package liveness tracks heartbeats for a paired session.
//
// A Monitor is a passive record: the owner stamps outbound and inbound
// heartbeats and asks, on its own schedule, whether a heartbeat is due and
// whether the partner has gone silent for longer than
// Interval * MaxMissed. The Monitor runs no goroutines and is not safe for
// concurrent use.
package liveness
