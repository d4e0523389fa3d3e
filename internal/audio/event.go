// Package audio implements the audio-output task (§4.8): it owns the
// IMBE vocoder boundary and writes decoded PCM at the vocoder's native
// 8 kHz, without resampling, to a file, FIFO, or stdout.
package audio

import "github.com/kchmck/p25rx/internal/p25proto"

// EventKind tags the variant carried by an Event.
type EventKind uint8

const (
	// EventVoiceFrame carries one IMBE frame to decode and write.
	EventVoiceFrame EventKind = iota
	// EventEndTransmission flushes the sink and reinitializes the
	// vocoder, emitted whenever the receiver runs switch_control: on a
	// policy ReturnControl (call termination, watchdog or pause
	// timeout) and on encrypted traffic.
	EventEndTransmission
)

// Event is a message delivered to the audio task by the receiver task.
type Event struct {
	Kind  EventKind
	Frame p25proto.VoiceFrame
}
