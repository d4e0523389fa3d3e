// Package p25const holds the constants and shared primitive types used
// across the receiver core: buffer sizing, policy timeouts, and the
// channel-parameters map extracted from trunking control traffic.
package p25const

// Buffer sizing for the sample-block pool (§3).
const (
	// BufBytes is the size in bytes of a raw I/Q byte buffer.
	BufBytes = 32768
	// BufSamples is the size in float32 samples of a baseband buffer.
	BufSamples = 16384
	// PoolCapacity is the maximum number of outstanding checkouts of
	// either buffer kind. Exhaustion is a fatal pipeline stall.
	PoolCapacity = 16
)

// Policy timer thresholds, counted in baseband samples (§4.6).
const (
	SelectSamples   = 10
	WatchdogSamples = 20
	PauseSamples    = 30
)

// DSP constants (§4.4).
const (
	// DecimationFactor converts the 240 kHz tuner rate to 48 kHz.
	DecimationFactor = 5
	// InputSampleRate is the tuner's native complex sample rate in Hz.
	InputSampleRate = 240000
	// BasebandSampleRate is the output rate after decimation, in Hz.
	BasebandSampleRate = 48000
	// FMDeviation is the C4FM deviation used by the FM demodulator, Hz.
	FMDeviation = 5000
	// LoadResistance is R in the signal-power dBm formula.
	LoadResistance = 50.0
	// PowerThrottleBlocks publishes signal power at most once per this
	// many demodulated blocks.
	PowerThrottleBlocks = 16
)

// Hz is a frequency in hertz.
type Hz uint32

// ChannelParams describes one trunking channel-id's frequency plan, as
// extracted from a "channel-params update" TSBK.
type ChannelParams struct {
	BaseRxFreq Hz
	TxOffset   int32
	Spacing    Hz
	Bandwidth  Hz
}

// RxFreq computes the receive frequency for a given channel number
// within this channel-id's plan.
func (c ChannelParams) RxFreq(number uint16) Hz {
	return c.BaseRxFreq + Hz(uint32(number)*uint32(c.Spacing))
}

// ChannelParamsMap maps a 4-bit channel-id to its frequency plan.
// Mutated only by the receiver task.
type ChannelParamsMap map[uint8]ChannelParams

// Lookup turns a (channel-id, channel-number) pair into an absolute
// receive frequency. The second return value is false when the
// channel-id hasn't been seen in a channel-params update yet.
func (m ChannelParamsMap) Lookup(id uint8, number uint16) (Hz, bool) {
	cp, ok := m[id]
	if !ok {
		return 0, false
	}
	return cp.RxFreq(number), true
}
