package demod

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// power_dbm(x, R) with R=50, x ≡ (1,0) over 16 samples ≈ 13.01 dBm — §8.
func TestPowerDBmReferenceValue(t *testing.T) {
	samples := make([]complex64, 16)
	for i := range samples {
		samples[i] = complex(1, 0)
	}
	got := PowerDBm(samples, 50)
	require.InDelta(t, 13.01, got, 0.01)
}

func TestPowerDBmZeroSignal(t *testing.T) {
	samples := make([]complex64, 4)
	got := PowerDBm(samples, 50)
	require.True(t, got < -100, "zero-power signal must read as a very low dBm, got %v", got)
}
