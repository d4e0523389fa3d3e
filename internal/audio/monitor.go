package audio

import (
	"log"

	"gopkg.in/hraban/opus.v2"
)

// Monitor receives a copy of every decoded voice frame's PCM samples,
// independent of the primary Sink (SPEC_FULL.md §4.8 expansion). A nil
// Monitor is the default: the audio task only ever writes the primary
// sink.
type Monitor interface {
	PublishPCM(samples [160]int16)
}

// Broadcaster forwards an encoded audio frame to whatever transport
// fans it out to live listeners. internal/hub implements this against
// its /monitor/audio WebSocket subscriber set.
type Broadcaster interface {
	BroadcastAudio(frame []byte)
}

// OpusMonitor is a Monitor that Opus-encodes each frame and hands it
// to a Broadcaster. Encoding errors are logged and the frame is
// dropped; a bad frame never blocks or aborts the audio task, matching
// the "monitor tap never touches primary latency" rule.
type OpusMonitor struct {
	enc *opus.Encoder
	bus Broadcaster
	out []byte
}

// NewOpusMonitor builds an OpusMonitor encoding 8 kHz mono PCM for
// voice (opus.AppVoIP tunes the encoder for speech over music).
func NewOpusMonitor(bus Broadcaster) (*OpusMonitor, error) {
	enc, err := opus.NewEncoder(8000, 1, opus.AppVoIP)
	if err != nil {
		return nil, err
	}
	return &OpusMonitor{enc: enc, bus: bus, out: make([]byte, 4000)}, nil
}

func (m *OpusMonitor) PublishPCM(samples [160]int16) {
	n, err := m.enc.Encode(samples[:], m.out)
	if err != nil {
		log.Printf("audio: monitor opus encode: %v", err)
		return
	}
	frame := make([]byte, n)
	copy(frame, m.out[:n])
	m.bus.BroadcastAudio(frame)
}
