package pool

import (
	"testing"

	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/stretchr/testify/require"
)

func TestBytePoolCapacity(t *testing.T) {
	p := NewBytePool(4)

	var handles []*ByteHandle
	for i := 0; i < 4; i++ {
		h := p.Checkout()
		require.NotNil(t, h)
		require.Len(t, h.Buf, p25const.BufBytes)
		handles = append(handles, h)
	}

	// The fifth checkout must fail: capacity is exhausted.
	require.Nil(t, p.Checkout())
	require.Equal(t, 4, p.Outstanding())

	handles[0].Release()
	require.Equal(t, 3, p.Outstanding())

	// A drop-then-checkout always succeeds.
	h := p.Checkout()
	require.NotNil(t, h)
	require.Equal(t, 4, p.Outstanding())
}

func TestBytePoolReleaseIdempotent(t *testing.T) {
	p := NewBytePool(1)
	h := p.Checkout()
	require.NotNil(t, h)
	h.Release()
	h.Release() // must not double-free the slot
	require.Equal(t, 0, p.Outstanding())
	require.NotNil(t, p.Checkout())
}

func TestFloatPoolCapacity(t *testing.T) {
	p := NewFloatPool(2)
	h1 := p.Checkout()
	h2 := p.Checkout()
	require.NotNil(t, h1)
	require.NotNil(t, h2)
	require.Nil(t, p.Checkout())

	h1.Release()
	require.Equal(t, 1, p.Outstanding())
	require.NotNil(t, p.Checkout())
}

func TestBytePoolNeverExceedsCapacityUnderReuse(t *testing.T) {
	p := NewBytePool(3)
	for i := 0; i < 1000; i++ {
		h := p.Checkout()
		require.NotNil(t, h)
		require.LessOrEqual(t, p.Outstanding(), 3)
		h.Release()
	}
	require.Equal(t, 0, p.Outstanding())
}
