package demod

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/kchmck/p25rx/internal/hub"
)

// SpectrumTap computes a magnitude spectrum over the post-decimation
// baseband, throttled the same way as the signal-power publish
// (SPEC_FULL.md §4.4 expansion: additive, never read by the policy or
// talkgroup engines, purely an SSE/monitoring convenience).
type SpectrumTap struct {
	fft   *fourier.CmplxFFT
	n     int
	count uint64
	mag   []float32
}

// NewSpectrumTap builds a tap over an n-point FFT. n should match (or
// evenly divide) the decimated block length.
func NewSpectrumTap(n int) *SpectrumTap {
	return &SpectrumTap{
		fft: fourier.NewCmplxFFT(n),
		n:   n,
		mag: make([]float32, n),
	}
}

// Observe feeds one decimated complex block through the tap. It
// publishes a spectrum event at most once every
// p25const.PowerThrottleBlocks calls, same cadence as signal power.
func (s *SpectrumTap) Observe(block []complex64, events chan<- hub.Event) {
	s.count++
	if s.count%16 != 0 || events == nil {
		return
	}
	if len(block) < s.n {
		return
	}

	in := make([]complex128, s.n)
	for i := 0; i < s.n; i++ {
		in[i] = complex(float64(real(block[i])), float64(imag(block[i])))
	}
	out := s.fft.Coefficients(nil, in)

	for i, c := range out {
		s.mag[i] = float32(abs(c))
	}

	spectrum := make([]float32, s.n)
	copy(spectrum, s.mag)

	select {
	case events <- hub.Event{Tag: hub.TagSpectrum, Spectrum: spectrum}:
	default:
	}
}

func abs(c complex128) float64 {
	re := real(c)
	im := imag(c)
	return math.Sqrt(re*re + im*im)
}
