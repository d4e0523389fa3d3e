// Package demod implements the demodulation task (§4.4): the fixed
// 8-step pipeline that turns raw 8-bit I/Q byte blocks into 48 kHz
// real baseband float samples.
package demod

import (
	"log"
	"math"

	"github.com/kchmck/p25rx/internal/hub"
	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/kchmck/p25rx/internal/pool"
	"github.com/kchmck/p25rx/internal/rxmsg"
)

const (
	decimateLowpassTaps = 63
	bandpassTapCount    = 63
	deemphasisTapCount  = 15
	bandpassHalfWidthHz = 6250.0
)

// Pipeline holds the per-task DSP state: the shared LUT plus this
// task's own filter instances (each filter's tail state must not be
// shared across concurrent demod tasks).
type Pipeline struct {
	lut *[65536]complex64

	decimate  *ComplexFIR
	bandpass  *ComplexFIR
	deemph    *FIR
	avg       *FIR // optional moving-average smoothing stage
	prevPhase complex64

	// spectrum is the optional FFT tap (SPEC_FULL.md §4.4 expansion);
	// nil disables it entirely.
	spectrum *SpectrumTap

	// complexScratch is reused across calls to Process so the hot path
	// never allocates, mirroring the sample-buffer pool's own no-alloc
	// discipline (§4.1).
	complexScratch []complex64

	blockCount uint64
}

// NewPipeline builds a Pipeline against the shared LUT. smooth enables
// the optional moving-average stage discussed in SPEC_FULL.md's
// open-question resolution: off by default, since the upstream source
// disagreed with itself about whether this stage belongs in the chain.
func NewPipeline(lut *[65536]complex64, smooth bool) *Pipeline {
	p := &Pipeline{
		lut:      lut,
		decimate: NewComplexFIR(lowpassTaps(p25const.BasebandSampleRate/2, p25const.InputSampleRate, decimateLowpassTaps)),
		bandpass: NewComplexFIR(bandpassTaps(0, bandpassHalfWidthHz, p25const.BasebandSampleRate, bandpassTapCount)),
		deemph:   NewFIR(deemphasisTaps(p25const.BasebandSampleRate, deemphasisTapCount)),
		prevPhase: 1,
		complexScratch: make([]complex64, p25const.BufBytes/2),
	}
	if smooth {
		p.avg = NewFIR(rectTaps(3))
	}
	return p
}

// SetSpectrumTap attaches an optional magnitude-spectrum tap over the
// post-decimation baseband (SPEC_FULL.md §4.4 expansion). A nil tap
// (the default) disables spectrum publishing entirely.
func (p *Pipeline) SetSpectrumTap(tap *SpectrumTap) {
	p.spectrum = tap
}

// Task runs the demod pipeline: it reads raw byte-buffer handles from
// in, converts each to a baseband float buffer, and forwards that
// buffer to the receiver task via out. Signal power is published to
// the hub at most once every p25const.PowerThrottleBlocks blocks; the
// optional spectrum tap set by SetSpectrumTap publishes alongside it
// at the same cadence. floats is the pool Task checks baseband
// buffers out of before handing them to the receiver.
func (p *Pipeline) Task(in <-chan *pool.ByteHandle, out chan<- rxmsg.Event, events chan<- hub.Event, floats *pool.FloatPool) {
	for raw := range in {
		fb := floats.Checkout()
		if fb == nil {
			log.Fatal("demod: float pool exhausted, pipeline stalled")
		}

		n := p.Process(raw.Buf, fb.Buf[:0], events)
		raw.Release()

		fb.Buf = fb.Buf[:n]
		out <- rxmsg.Event{Kind: rxmsg.Baseband, Baseband: fb}
	}
}

// Process runs one block through the 8-step pipeline (§4.4) and
// returns the number of baseband samples written into dst[:cap(dst)].
// dst must have capacity for ceil(len(raw)/2 / DecimationFactor)
// samples (3277 for a full p25const.BufBytes block); events may be nil
// to skip power-throttling (used by tests).
func (p *Pipeline) Process(raw []byte, dst []float32, events chan<- hub.Event) int {
	// Step 1: LUT lookup, 8-bit I/Q byte pairs -> normalized complex64.
	n := len(raw) / 2
	complexBuf := p.complexScratch[:n]
	for i := 0; i < n; i++ {
		idx := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		complexBuf[i] = p.lut[idx]
	}

	// Step 2: decimate-by-5 lowpass FIR.
	decimated := p.decimate.Apply(complexBuf, p25const.DecimationFactor)

	// Step 3: channel bandpass FIR, in place.
	channel := p.bandpass.Apply(decimated, 1)

	if p.spectrum != nil {
		p.spectrum.Observe(channel, events)
	}

	// Step 4: signal power, throttled to 1 in PowerThrottleBlocks.
	p.blockCount++
	if events != nil && p.blockCount%p25const.PowerThrottleBlocks == 0 {
		dbm := PowerDBm(channel, p25const.LoadResistance)
		select {
		case events <- hub.Event{Tag: hub.TagSigPower, SigPowerDBm: dbm}:
		default:
		}
	}

	// Step 5: FM demodulate (quadrature phase-difference method),
	// producing real baseband scaled so that full deviation maps to
	// amplitude 1.0.
	dst = dst[:len(channel)]
	scale := float32(p25const.BasebandSampleRate) / float32(2*math.Pi*p25const.FMDeviation)
	prev := p.prevPhase
	for i, z := range channel {
		diff := z * complex64(complex(real(prev), -imag(prev)))
		dst[i] = float32(math.Atan2(float64(imag(diff)), float64(real(diff)))) * scale
		prev = z
	}
	p.prevPhase = prev

	// Step 6: de-emphasis FIR, in place.
	p.deemph.Apply(dst)

	// Step 7 (optional): moving-average smoothing, in place.
	if p.avg != nil {
		p.avg.Apply(dst)
	}

	// Step 8: forward to the receiver task (handled by the caller).
	return len(dst)
}
