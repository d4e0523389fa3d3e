package demod

import "math"

// PowerDBm computes signal power in dBm given a slice of complex
// samples and a load resistance R, per §4.4 step 4 / §8:
//
//	P_dBm = 30 + 10*log10(mean(|z|^2) / R)
func PowerDBm(samples []complex64, r float64) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sumSq float64
	for _, z := range samples {
		re := float64(real(z))
		im := float64(imag(z))
		sumSq += re*re + im*im
	}
	mean := sumSq / float64(len(samples))
	return 30 + 10*math.Log10(mean/r)
}
