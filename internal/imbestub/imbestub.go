// Package imbestub is a minimal stand-in for the external IMBE
// vocoder (§1, §6): it satisfies audio.Vocoder by emitting silence,
// so cmd/p25rx links and runs end-to-end without a real IMBE
// implementation, which is explicitly out of scope for this core.
package imbestub

// Vocoder always decodes to silence. It exists only to exercise the
// audio task's frame/flush/reset plumbing in tests and demos; it is
// not a protocol implementation.
type Vocoder struct{}

// New returns a silence-generating Vocoder.
func New() *Vocoder { return &Vocoder{} }

// Decode ignores bits and returns 160 zero samples.
func (*Vocoder) Decode(bits [][]byte) [160]int16 {
	return [160]int16{}
}

// Reset is a no-op: there is no state to discard.
func (*Vocoder) Reset() {}
