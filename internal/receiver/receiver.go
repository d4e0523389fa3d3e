package receiver

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kchmck/p25rx/internal/audio"
	"github.com/kchmck/p25rx/internal/hub"
	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/kchmck/p25rx/internal/p25proto"
	"github.com/kchmck/p25rx/internal/policy"
	"github.com/kchmck/p25rx/internal/rxmsg"
	"github.com/kchmck/p25rx/internal/talkgroup"
	"github.com/kchmck/p25rx/internal/tuner"
)

// Stats tallies decoder errors in an in-process count, cleared by a
// ResetStats message, and in a Prometheus counter for scraping
// (SPEC_FULL.md §4.9 expansion).
type Stats struct {
	decoderErrors prometheus.Counter
	count         uint64
}

// NewStats registers a decoder-error counter against reg.
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{
		decoderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p25rx",
			Subsystem: "receiver",
			Name:      "decoder_errors_total",
			Help:      "Number of protocol decoder Error events observed.",
		}),
	}
	reg.MustRegister(s.decoderErrors)
	return s
}

// reset clears the in-process error tally when /stats/reset is requested.
// The Prometheus counter itself is intentionally left monotonic, since
// resetting a Prometheus counter mid-process defeats rate()/increase()
// queries against it.
func (s *Stats) reset() {
	s.count = 0
}

func (s *Stats) recordError() {
	s.count++
	s.decoderErrors.Inc()
}

// Task is the receiver task's state: the P25 decoder, the policy
// engine, the talkgroup selector, the channel-params map, and the
// collaborator channels it publishes to.
type Task struct {
	decoder  Decoder
	pol      *policy.Policy
	selector *talkgroup.Selector
	channels p25const.ChannelParamsMap

	ctlFreq p25const.Hz
	curFreq p25const.Hz

	currentGroup    uint16
	hasCurrentGroup bool

	// hopping, when true, suppresses actually retuning on
	// ChooseTalkgroup: the receiver still tracks which talkgroup it
	// would have followed, for monitor-only deployments (§4.5).
	hopping bool

	stats *Stats

	control chan<- tuner.Message
	events  chan<- hub.Event
	audioCh chan<- audio.Event
}

// NewTask builds a receiver Task. ctlFreq is the control channel's
// starting frequency.
func NewTask(decoder Decoder, pol *policy.Policy, selector *talkgroup.Selector, ctlFreq p25const.Hz, hopping bool, stats *Stats, control chan<- tuner.Message, events chan<- hub.Event, audioCh chan<- audio.Event) *Task {
	return &Task{
		decoder:  decoder,
		pol:      pol,
		selector: selector,
		channels: make(p25const.ChannelParamsMap),
		ctlFreq:  ctlFreq,
		curFreq:  ctlFreq,
		hopping:  hopping,
		stats:    stats,
		control:  control,
		events:   events,
		audioCh:  audioCh,
	}
}

// Run consumes rxmsg.Events until in is closed.
func (t *Task) Run(in <-chan rxmsg.Event) {
	for ev := range in {
		switch ev.Kind {
		case rxmsg.Baseband:
			t.processBlock(ev.Baseband.Buf)
			ev.Baseband.Release()
		case rxmsg.SetControlFreq:
			t.setControlFreq(ev.ControlFreq)
		case rxmsg.ResetStats:
			t.stats.reset()
			t.events <- hub.Event{Tag: hub.TagUpdateStats, Payload: map[string]bool{"reset": true}}
		}
	}
}

// processBlock feeds one demodulated block through the decoder one
// sample at a time, dispatching each emitted protocol event, then
// advances the policy/selector timers by the block length (§4.5).
func (t *Task) processBlock(block []float32) {
	t.selector.RecordElapsed(uint32(len(block)))

	for _, sample := range block {
		pev, ok := t.decoder.Feed(sample)
		if !ok {
			continue
		}
		t.dispatch(pev)
	}

	if polEv := t.pol.OnElapsed(int64(len(block))); polEv != policy.EventNone {
		t.react(polEv)
	}
}

func (t *Task) dispatch(ev p25proto.Event) {
	switch ev.Kind {
	case p25proto.EventError:
		t.stats.recordError()

	case p25proto.EventNID:
		if polEv := t.pol.OnNID(ev.NID); polEv != policy.EventNone {
			t.react(polEv)
		}

	case p25proto.EventVoiceHeader:
		if ev.VoiceHeader.Algorithm != p25proto.AlgUnencrypted {
			t.markEncrypted(ev.VoiceHeader.Talkgroup, ev.VoiceHeader.Algorithm)
			t.switchControl()
		}

	case p25proto.EventCryptoControl:
		if ev.CryptoControl.Algorithm != p25proto.AlgUnencrypted {
			t.markEncrypted(ev.CryptoControl.Talkgroup, ev.CryptoControl.Algorithm)
			t.switchControl()
		}

	case p25proto.EventVoiceFrame:
		t.audioCh <- audio.Event{Kind: audio.EventVoiceFrame, Frame: ev.VoiceFrame}

	case p25proto.EventLinkControl:
		t.handleLinkControl(ev.LinkControl)

	case p25proto.EventVoiceTerm:
		t.handleLinkControl(ev.VoiceTermLC)

	case p25proto.EventTrunkingControl:
		t.handleTSBK(ev.TSBK)
	}
}

func (t *Task) handleLinkControl(lc p25proto.LinkControl) {
	t.events <- hub.Event{Tag: hub.TagLinkControl, LinkControl: lc}

	switch lc.Opcode {
	case p25proto.LCOpcodeCallTermination:
		if polEv := t.pol.OnCallTerm(); polEv != policy.EventNone {
			t.react(polEv)
		}
	case p25proto.LCOpcodeGroupVoiceUpdate:
		t.harvestCandidates(lc.Candidates)
		t.attemptPreempt()
	}
}

func (t *Task) handleTSBK(tsbk p25proto.TSBK) {
	if !tsbk.Accept() {
		return
	}
	t.events <- hub.Event{Tag: hub.TagTrunkingControl, TrunkingControl: tsbk}

	switch tsbk.Opcode {
	case p25proto.TSBKOpcodeGroupVoiceGrant:
		if freq, ok := t.channels.Lookup(tsbk.ChannelID, tsbk.ChannelNumber); ok {
			t.selector.AddTalkgroup(tsbk.Talkgroup, freq)
		}
	case p25proto.TSBKOpcodeGroupVoiceUpdate:
		t.harvestCandidates(tsbk.Candidates)
	case p25proto.TSBKOpcodeChannelParamsUpdate:
		cp := p25const.ChannelParams{
			BaseRxFreq: p25const.Hz(tsbk.BaseRxFreqHz),
			TxOffset:   tsbk.TxOffsetHz,
			Spacing:    p25const.Hz(tsbk.SpacingHz),
			Bandwidth:  p25const.Hz(tsbk.BandwidthHz),
		}
		t.channels[tsbk.ChannelID] = cp
		t.events <- hub.Event{Tag: hub.TagUpdateChannelParams, ChannelID: tsbk.ChannelID, ChannelParams: cp}
	}
}

func (t *Task) harvestCandidates(candidates []p25proto.CandidateChannel) {
	for _, c := range candidates {
		if freq, ok := t.channels.Lookup(c.ChannelID, c.ChannelNumber); ok {
			t.selector.AddTalkgroup(c.Talkgroup, freq)
		}
	}
}

func (t *Task) attemptPreempt() {
	tg, freq, ok := t.selector.SelectPreempt()
	if !ok {
		return
	}
	t.selectTalkgroup(tg, freq)
}

func (t *Task) markEncrypted(tg uint16, alg p25proto.CryptoAlgorithm) {
	if t.selector.RecordEncrypted(tg) {
		t.events <- hub.Event{Tag: hub.TagUpdateEncrypted, EncryptedTG: tg, EncryptedAlg: alg}
	}
}

// react applies a policy Event's side effects (§4.5 "Policy
// reactions").
func (t *Task) react(ev policy.Event) {
	switch ev {
	case policy.EventResync:
		t.decoder.Resync()

	case policy.EventReturnControl:
		t.switchControl()

	case policy.EventChooseTalkgroup:
		tg, freq, ok := t.selector.SelectIdle()
		if !ok {
			return
		}
		t.selectTalkgroup(tg, freq)
	}
}

// selectTalkgroup commits to following tg at freq (§4.5): it updates
// current_group, retunes (unless hopping/monitor-only), enters
// Traffic, and publishes UpdateTalkGroup.
func (t *Task) selectTalkgroup(tg uint16, freq p25const.Hz) {
	if _, ok := t.selector.SelectTG(tg); !ok {
		return
	}
	t.currentGroup = tg
	t.hasCurrentGroup = true

	if !t.hopping {
		t.curFreq = freq
		t.control <- tuner.Message{Kind: tuner.MessageSetFreq, Freq: freq}
	}

	t.pol.EnterTraffic(true)
	t.events <- hub.Event{Tag: hub.TagTalkGroup, TalkGroup: tg}
}

// switchControl returns to the control channel (§4.5): flush audio,
// reset current_freq, retune, resync the decoder, and enter Control.
func (t *Task) switchControl() {
	t.audioCh <- audio.Event{Kind: audio.EventEndTransmission}

	t.curFreq = t.ctlFreq
	t.hasCurrentGroup = false
	if !t.hopping {
		t.control <- tuner.Message{Kind: tuner.MessageSetFreq, Freq: t.ctlFreq}
	}
	t.events <- hub.Event{Tag: hub.TagCurFreq, CurFreq: t.ctlFreq}

	t.decoder.Resync()
	t.pol.EnterControl()
}

// setControlFreq retunes to a brand-new control channel, discarding
// channel-params and transient selector state because the site may
// have changed entirely (§4.5).
func (t *Task) setControlFreq(freq p25const.Hz) {
	t.ctlFreq = freq
	t.curFreq = freq
	t.channels = make(p25const.ChannelParamsMap)
	t.selector.ClearState()
	t.hasCurrentGroup = false

	t.control <- tuner.Message{Kind: tuner.MessageSetFreq, Freq: freq}
	t.events <- hub.Event{Tag: hub.TagCtlFreq, CtlFreq: freq}

	t.decoder.Resync()
	t.pol.EnterControl()
}
