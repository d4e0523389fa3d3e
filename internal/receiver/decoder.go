package receiver

import "github.com/kchmck/p25rx/internal/p25proto"

// Decoder is the boundary to the external P25 Phase-1 protocol
// decoder (§1): it consumes real baseband samples one at a time and
// emits decoded protocol events. Resync tells the decoder to drop its
// current bit/frame synchronization and re-acquire, used after the
// policy engine detects it has followed a stale NID off a call.
//
// internal/p25stub provides a minimal stand-in satisfying this
// interface so cmd/p25rx links and runs end-to-end without a real P25
// Phase-1 decoder implementation, which is out of scope (§1).
type Decoder interface {
	Feed(sample float32) (p25proto.Event, bool)
	Resync()
}
