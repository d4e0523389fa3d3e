// Package policy implements the trunking state machine (§4.6): when
// to stay on the control channel, when to follow a call to a traffic
// channel, and when to return. Timers are counted in baseband samples,
// never wall-clock time, so replay runs are deterministic.
package policy

import "github.com/kchmck/p25rx/internal/p25proto"

// State tags which variant a Policy is currently in.
type State uint8

const (
	StateControl State = iota
	StateTraffic
	StatePaused
)

// Event is the reaction a state transition asks the receiver to take.
type Event uint8

const (
	EventNone Event = iota
	EventChooseTalkgroup
	EventReturnControl
	EventResync
)

// Policy is the trunking state machine. Zero value is not valid; use
// New.
type Policy struct {
	state State
	timer int64 // sample count accumulated toward the current state's timeout

	seenVoice bool // only meaningful in StateTraffic

	selectSamples   int64
	watchdogSamples int64
	pauseSamples    int64
}

// Config carries the three timer thresholds (§4.6). All three are
// required; the defaults are p25const.SelectSamples, WatchdogSamples
// and PauseSamples, which internal/config substitutes for zero values.
type Config struct {
	SelectSamples   int64
	WatchdogSamples int64
	PauseSamples    int64
}

// New creates a Policy starting in StateControl with a zeroed timer.
func New(cfg Config) *Policy {
	return &Policy{
		state:           StateControl,
		selectSamples:   cfg.SelectSamples,
		watchdogSamples: cfg.WatchdogSamples,
		pauseSamples:    cfg.PauseSamples,
	}
}

// State returns the current state variant.
func (p *Policy) State() State { return p.state }

// EnterTraffic forces the state to StateTraffic with a fresh watchdog
// timer, as if a call had just been selected. init controls the
// initial seenVoice flag (the receiver always passes true, per the
// ChooseTalkgroup reaction — exposed as a parameter because both the
// receiver's own reaction path and tests construct this transition).
func (p *Policy) EnterTraffic(init bool) {
	p.state = StateTraffic
	p.timer = 0
	p.seenVoice = init
}

// EnterControl forces the state back to StateControl with a zeroed
// timer, as switch_control() does.
func (p *Policy) EnterControl() {
	p.state = StateControl
	p.timer = 0
}

// OnElapsed advances the current state's timer by n samples and
// returns the reaction event, if any.
func (p *Policy) OnElapsed(n int64) Event {
	p.timer += n

	switch p.state {
	case StateControl:
		if p.timer >= p.selectSamples {
			p.timer = 0
			return EventChooseTalkgroup
		}
	case StateTraffic:
		if p.timer >= p.watchdogSamples {
			return EventReturnControl
		}
	case StatePaused:
		if p.timer >= p.pauseSamples {
			return EventReturnControl
		}
	}
	return EventNone
}

// OnNID feeds a decoded NID into the state machine and returns the
// reaction event, if any. Table per §4.6.
func (p *Policy) OnNID(nid p25proto.NID) Event {
	switch p.state {
	case StateControl:
		// nid while on control channel: no change.
		return EventNone

	case StateTraffic:
		if p.seenVoice {
			switch {
			case nid.IsVoiceTerminator():
				// Ignore leftover terminators while a voice frame
				// was already confirmed seen this watchdog window.
				return EventNone
			case nid.IsVoiceContinuation():
				p.timer = 0
				p.seenVoice = false
				return EventNone
			case nid.DUID == p25proto.DUIDTrunkingSignaling:
				return EventResync
			}
			return EventNone
		}

		// seenVoice == false
		switch {
		case nid.IsVoiceTerminator():
			p.state = StatePaused
			p.timer = 0
			return EventNone
		case nid.IsVoiceContinuation():
			p.timer = 0
			return EventNone
		}
		return EventNone

	case StatePaused:
		if nid.IsVoiceContinuation() {
			p.state = StateTraffic
			p.timer = 0
			p.seenVoice = true
			return EventNone
		}
		return EventNone
	}
	return EventNone
}

// OnCallTerm feeds a call-termination link-control opcode into the
// state machine. Ignored on the control channel; forces a return from
// either Traffic or Paused.
func (p *Policy) OnCallTerm() Event {
	switch p.state {
	case StateTraffic, StatePaused:
		return EventReturnControl
	default:
		return EventNone
	}
}
