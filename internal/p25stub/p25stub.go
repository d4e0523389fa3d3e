// Package p25stub is a minimal stand-in for the external P25 Phase-1
// protocol decoder (§1, §6): it satisfies receiver.Decoder without
// performing any real C4FM bit-sync, NID framing, or trellis/Golay/
// Hamming FEC, which is explicitly out of scope for this core. It
// exists only so cmd/p25rx links and the receiver task's dispatch
// plumbing is exercisable end-to-end without a real decoder attached.
package p25stub

import "github.com/kchmck/p25rx/internal/p25proto"

// Decoder discards every sample and never emits an event. Swap in a
// real P25 Phase-1 decoder implementation to receive live traffic.
type Decoder struct{}

// New returns a no-op Decoder.
func New() *Decoder { return &Decoder{} }

// Feed always reports no event.
func (*Decoder) Feed(sample float32) (p25proto.Event, bool) {
	return p25proto.Event{}, false
}

// Resync is a no-op: there is no bit-sync state to drop.
func (*Decoder) Resync() {}
