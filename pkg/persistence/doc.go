// Package persistence stores badge runtime state that must survive restarts.
//
// The state file is JSON and holds the last local configuration (address and
// interest bitmask) plus a bounded history of pairing sessions. Key material
// is stored separately by the keys package.
package persistence
