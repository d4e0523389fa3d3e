// Package tuner defines the boundary to the external tuner device
// driver (§1): a Reader that delivers raw byte chunks via callback,
// and a Controller serializing all device-touching calls onto the
// control task (§4.3), so no other task ever touches the device
// directly.
package tuner

import "github.com/kchmck/p25rx/internal/p25const"

// Reader binds an async read callback. Implementations call fn
// repeatedly with freshly-read byte slices until Close or a fatal
// device error.
type Reader interface {
	Start(fn func([]byte)) error
	Close() error
}

// Controller is the device's tunable-parameter surface. SetTunerGain
// takes a specific dB value; AGC is switched with EnableAGC.
type Controller interface {
	SetCenterFreq(freq p25const.Hz) error
	SetTunerGain(gain float64) error
	SetSampleRate(rate uint32) error
	SetPPM(ppm int) error
	EnableAGC(enabled bool) error
}

// AutoGain is the gain value that requests AGC instead of a fixed gain;
// cmd/p25rx maps it to EnableAGC(true).
const AutoGain = -1000.0

// MessageKind tags the variant carried by a Message.
type MessageKind uint8

const (
	// MessageSetFreq retunes the device (§4.3).
	MessageSetFreq MessageKind = iota
)

// Message is the single control message type the control task
// consumes (§4.3): `{ SetFreq(Hz) }`.
type Message struct {
	Kind MessageKind
	Freq p25const.Hz
}

// Task is the control task's single-consumer loop: it serializes every
// control message onto ctrl, fatal-logging on a device error since a
// dead tuner makes the whole pipeline pointless to keep running.
func Task(messages <-chan Message, ctrl Controller, fatal func(error)) {
	for msg := range messages {
		switch msg.Kind {
		case MessageSetFreq:
			if err := ctrl.SetCenterFreq(msg.Freq); err != nil {
				fatal(err)
				return
			}
		}
	}
}
