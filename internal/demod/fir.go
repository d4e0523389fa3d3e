package demod

import "math"

// FIR is a direct-form finite-impulse-response filter over real
// float32 samples, keeping its own tail state so it can be applied
// block-by-block without discontinuities at block boundaries.
type FIR struct {
	taps  []float32
	state []float32
}

// NewFIR creates a filter with the given (compile-time) coefficients.
func NewFIR(taps []float32) *FIR {
	return &FIR{
		taps:  taps,
		state: make([]float32, len(taps)-1),
	}
}

// Apply filters in, writing the result back into in (in-place, per
// §4.4's "in place" steps). Tail state carries across calls.
func (f *FIR) Apply(in []float32) {
	n := len(f.taps)
	if n == 0 {
		return
	}
	// Work against a view combining prior tail state + the new block
	// so the first n-1 outputs see correct history.
	ext := make([]float32, len(f.state)+len(in))
	copy(ext, f.state)
	copy(ext[len(f.state):], in)

	for i := range in {
		var acc float32
		base := i + len(f.state)
		for k := 0; k < n; k++ {
			acc += f.taps[k] * ext[base-k]
		}
		in[i] = acc
	}

	if len(f.state) > 0 {
		copy(f.state, ext[len(ext)-len(f.state):])
	}
}

// ComplexFIR is the complex64 analogue of FIR, used for the
// decimating lowpass and channel-bandpass stages that run ahead of FM
// demodulation.
type ComplexFIR struct {
	taps  []float32 // real-valued lowpass taps
	state []complex64
}

// NewComplexFIR creates a complex-sample filter with real-valued taps.
func NewComplexFIR(taps []float32) *ComplexFIR {
	return &ComplexFIR{
		taps:  taps,
		state: make([]complex64, len(taps)-1),
	}
}

// Apply filters in-place. Set decimate > 1 to also decimate, writing
// only every decimate'th output sample and returning the shortened
// slice (spec §4.4 step 2: decimate-by-5).
func (f *ComplexFIR) Apply(in []complex64, decimate int) []complex64 {
	n := len(f.taps)
	if n == 0 {
		if decimate <= 1 {
			return in
		}
		return decimateInPlace(in, decimate)
	}

	ext := make([]complex64, len(f.state)+len(in))
	copy(ext, f.state)
	copy(ext[len(f.state):], in)

	out := in[:0]
	for i := range in {
		if decimate > 1 && i%decimate != 0 {
			continue
		}
		var acc complex64
		base := i + len(f.state)
		for k := 0; k < n; k++ {
			acc += complex64(complex(f.taps[k], 0)) * ext[base-k]
		}
		out = append(out, acc)
	}

	if len(f.state) > 0 {
		copy(f.state, ext[len(ext)-len(f.state):])
	}
	return out
}

func decimateInPlace(in []complex64, decimate int) []complex64 {
	out := in[:0]
	for i := 0; i < len(in); i += decimate {
		out = append(out, in[i])
	}
	return out
}

// lowpassTaps returns windowed-sinc lowpass coefficients for the given
// normalized cutoff (cutoff/sampleRate) and tap count. Computed once
// at startup and treated as compile-time constant data thereafter,
// per §4.4's "Filter coefficients are a compile-time constant".
func lowpassTaps(cutoffHz, sampleRateHz float64, numTaps int) []float32 {
	taps := make([]float32, numTaps)
	fc := cutoffHz / sampleRateHz
	m := float64(numTaps - 1)
	var sum float64
	for i := 0; i < numTaps; i++ {
		n := float64(i) - m/2
		var h float64
		if n == 0 {
			h = 2 * fc
		} else {
			h = math.Sin(2*math.Pi*fc*n) / (math.Pi * n)
		}
		// Hamming window.
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/m)
		h *= w
		taps[i] = float32(h)
		sum += h
	}
	// Normalize for unity DC gain.
	if sum != 0 {
		for i := range taps {
			taps[i] = float32(float64(taps[i]) / sum)
		}
	}
	return taps
}

// bandpassTaps derives a bandpass filter from two lowpass prototypes
// (spectral inversion/combination), used for the P25-channel bandpass
// stage (§4.4 step 3).
func bandpassTaps(loHz, hiHz, sampleRateHz float64, numTaps int) []float32 {
	lo := lowpassTaps(loHz, sampleRateHz, numTaps)
	hi := lowpassTaps(hiHz, sampleRateHz, numTaps)
	taps := make([]float32, numTaps)
	for i := range taps {
		taps[i] = hi[i] - lo[i]
	}
	return taps
}

// rectTaps returns a length-n rectangular moving-average window.
func rectTaps(n int) []float32 {
	taps := make([]float32, n)
	v := float32(1.0 / float64(n))
	for i := range taps {
		taps[i] = v
	}
	return taps
}

// deemphasisTaps approximates the on-air pre-emphasis's inverse as a
// short FIR (a single-pole RC de-emphasis truncated and windowed),
// matching the network's conventional 530 us P25 C4FM time constant.
func deemphasisTaps(sampleRateHz float64, numTaps int) []float32 {
	const tauSeconds = 530e-6
	taps := make([]float32, numTaps)
	var sum float64
	for i := 0; i < numTaps; i++ {
		t := float64(i) / sampleRateHz
		h := math.Exp(-t / tauSeconds)
		taps[i] = float32(h)
		sum += h
	}
	if sum != 0 {
		for i := range taps {
			taps[i] = float32(float64(taps[i]) / sum)
		}
	}
	return taps
}
