// Package rxmsg defines the message type delivered to the receiver
// task (§4.5) from its two producers — the demod task (Baseband) and
// the hub's HTTP handlers (SetControlFreq, ResetStats) — factored into
// its own package so neither producer needs to import the other.
package rxmsg

import (
	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/kchmck/p25rx/internal/pool"
)

// Kind tags the variant carried by an Event.
type Kind uint8

const (
	Baseband Kind = iota
	SetControlFreq
	ResetStats
)

// Event is a message delivered to the receiver task.
type Event struct {
	Kind Kind

	// Baseband payload: a checked-out float buffer owned by the
	// receiver until it calls Release.
	Baseband *pool.FloatHandle

	// SetControlFreq payload.
	ControlFreq p25const.Hz
}
