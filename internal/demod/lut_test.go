package demod

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// LUT[b_lo | b_hi<<8] = Complex((b_lo-127.5)/127.5, (b_hi-127.5)/127.5) — §8.
func TestLUTMapping(t *testing.T) {
	lut := BuildLUT()

	cases := []struct{ lo, hi byte }{
		{0, 0},
		{255, 255},
		{127, 128},
		{128, 127},
		{0, 255},
		{255, 0},
	}

	for _, c := range cases {
		idx := uint16(c.lo) | uint16(c.hi)<<8
		want := complex((float32(c.lo)-127.5)/127.5, (float32(c.hi)-127.5)/127.5)
		require.Equal(t, want, lut[idx])
	}
}

func TestLUTCovers65536Entries(t *testing.T) {
	lut := BuildLUT()
	require.Len(t, lut, 65536)
}
