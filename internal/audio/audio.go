package audio

import (
	"encoding/binary"
	"io"
	"log"
	"math"
)

// Vocoder is the boundary to the external IMBE vocoder (§1): it turns
// one voice frame's bit-chunks into 160 audio samples and can be
// reinitialized to discard its internal state between calls.
//
// internal/imbestub provides a minimal silence-generating stand-in
// satisfying this interface so cmd/p25rx links without a real IMBE
// implementation, which is out of scope (§1).
type Vocoder interface {
	Decode(bits [][]byte) [160]int16
	Reset()
}

// Sink is the output destination for decoded PCM: a file, a FIFO, or
// stdout (§4.8, §6). Exactly one scaled little-endian float32 stream
// is written; Flush is called on every EndTransmission.
type Sink interface {
	io.Writer
	Flush() error
}

// nopFlusher adapts a plain io.Writer (e.g. os.Stdout) to Sink.
type nopFlusher struct{ io.Writer }

func (nopFlusher) Flush() error { return nil }

// NewSink wraps w as a Sink when it doesn't already implement Flush.
func NewSink(w io.Writer) Sink {
	if s, ok := w.(Sink); ok {
		return s
	}
	return nopFlusher{w}
}

const sampleScale = 1.0 / 8192.0

// Task is the audio task's state: the vocoder, output sink, and an
// optional monitor tap.
type Task struct {
	vocoder Vocoder
	sink    Sink
	monitor Monitor
	buf     [160 * 4]byte // scratch for little-endian f32 encoding
}

// NewTask builds an audio Task.
func NewTask(vocoder Vocoder, sink Sink) *Task {
	return &Task{vocoder: vocoder, sink: sink}
}

// SetMonitor attaches a monitor tap (SPEC_FULL.md §4.8 expansion). It
// receives a copy of every frame's PCM alongside the primary sink
// write and never affects the primary write path.
func (t *Task) SetMonitor(m Monitor) { t.monitor = m }

// Run consumes Events until in is closed. Write failures are fatal
// (§4.8): a broken sink makes the whole pipeline pointless to keep
// running.
func (t *Task) Run(in <-chan Event) {
	for ev := range in {
		switch ev.Kind {
		case EventVoiceFrame:
			t.decodeAndWrite(ev.Frame.Bits)
		case EventEndTransmission:
			if err := t.sink.Flush(); err != nil {
				log.Fatalf("audio: sink flush failed: %v", err)
			}
			t.vocoder.Reset()
		}
	}
}

func (t *Task) decodeAndWrite(bits [][]byte) {
	samples := t.vocoder.Decode(bits)
	for i, s := range samples {
		f := float32(s) * sampleScale
		binary.LittleEndian.PutUint32(t.buf[i*4:], math.Float32bits(f))
	}
	if _, err := t.sink.Write(t.buf[:]); err != nil {
		log.Fatalf("audio: sink write failed: %v", err)
	}
	if t.monitor != nil {
		t.monitor.PublishPCM(samples)
	}
}
