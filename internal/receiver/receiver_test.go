package receiver

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kchmck/p25rx/internal/audio"
	"github.com/kchmck/p25rx/internal/hub"
	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/kchmck/p25rx/internal/p25proto"
	"github.com/kchmck/p25rx/internal/policy"
	"github.com/kchmck/p25rx/internal/talkgroup"
	"github.com/kchmck/p25rx/internal/tuner"
)

// scriptedDecoder emits a fixed queue of events, one per Feed call,
// ignoring the sample value. It never needs Resync to do anything.
type scriptedDecoder struct {
	events []p25proto.Event
	pos    int
}

func (d *scriptedDecoder) Feed(sample float32) (p25proto.Event, bool) {
	if d.pos >= len(d.events) {
		return p25proto.Event{}, false
	}
	ev := d.events[d.pos]
	d.pos++
	return ev, true
}

func (d *scriptedDecoder) Resync() {}

func newTestTask(t *testing.T, decoder Decoder) (*Task, chan tuner.Message, chan hub.Event, chan audio.Event) {
	t.Helper()
	control := make(chan tuner.Message, 16)
	events := make(chan hub.Event, 16)
	audioCh := make(chan audio.Event, 16)

	pol := policy.New(policy.Config{SelectSamples: 10, WatchdogSamples: 20, PauseSamples: 30})
	sel := talkgroup.New(nil, nil, nil, talkgroup.DefaultWeights)
	stats := NewStats(prometheus.NewRegistry())

	task := NewTask(decoder, pol, sel, 851_000_000, false, stats, control, events, audioCh)
	return task, control, events, audioCh
}

func TestGroupVoiceGrantAddsCandidateAfterChannelParams(t *testing.T) {
	decoder := &scriptedDecoder{events: []p25proto.Event{
		{Kind: p25proto.EventTrunkingControl, TSBK: p25proto.TSBK{
			Opcode: p25proto.TSBKOpcodeChannelParamsUpdate, CRCValid: true,
			ChannelID: 1, BaseRxFreqHz: 851_012_500, SpacingHz: 12500,
		}},
		{Kind: p25proto.EventTrunkingControl, TSBK: p25proto.TSBK{
			Opcode: p25proto.TSBKOpcodeGroupVoiceGrant, CRCValid: true,
			ChannelID: 1, ChannelNumber: 3, Talkgroup: 100,
		}},
	}}
	task, _, events, _ := newTestTask(t, decoder)

	task.processBlock(make([]float32, len(decoder.events)))

	tg, freq, ok := task.selector.SelectIdle()
	require.True(t, ok)
	require.Equal(t, uint16(100), tg)
	require.Equal(t, p25const.Hz(851_012_500+3*12500), freq)

	// Every accepted TSBK publishes a TrunkingControl HubEvent (2, one
	// per script entry); ChannelParamsUpdate additionally publishes its
	// own StateEvent.
	require.Len(t, events, 3)
}

func TestEncryptedVoiceHeaderForcesSwitchControl(t *testing.T) {
	decoder := &scriptedDecoder{events: []p25proto.Event{
		{Kind: p25proto.EventVoiceHeader, VoiceHeader: p25proto.VoiceHeader{
			Algorithm: 0xAA, Talkgroup: 200,
		}},
	}}
	task, control, events, audioCh := newTestTask(t, decoder)
	task.pol.EnterTraffic(true)

	task.processBlock(make([]float32, len(decoder.events)))

	require.True(t, task.selector.IsEncrypted(200))
	require.Equal(t, policy.StateControl, task.pol.State())

	require.Len(t, control, 1)
	msg := <-control
	require.Equal(t, task.ctlFreq, msg.Freq)

	flush := <-audioCh
	require.Equal(t, audio.EventEndTransmission, flush.Kind)

	var sawEncrypted, sawCurFreq bool
	for len(events) > 0 {
		ev := <-events
		switch ev.Tag {
		case hub.TagUpdateEncrypted:
			sawEncrypted = true
			require.Equal(t, uint16(200), ev.EncryptedTG)
		case hub.TagCurFreq:
			sawCurFreq = true
		}
	}
	require.True(t, sawEncrypted)
	require.True(t, sawCurFreq)
}

func TestChooseTalkgroupEntersTrafficAndRetunes(t *testing.T) {
	task, control, events, _ := newTestTask(t, &scriptedDecoder{})
	task.selector.AddTalkgroup(42, 852_000_000)

	task.react(policy.EventChooseTalkgroup)

	require.Equal(t, policy.StateTraffic, task.pol.State())
	require.Equal(t, p25const.Hz(852_000_000), task.curFreq)

	msg := <-control
	require.Equal(t, p25const.Hz(852_000_000), msg.Freq)

	ev := <-events
	require.Equal(t, hub.TagTalkGroup, ev.Tag)
	require.Equal(t, uint16(42), ev.TalkGroup)
}

func TestHoppingSuppressesRetune(t *testing.T) {
	control := make(chan tuner.Message, 16)
	events := make(chan hub.Event, 16)
	audioCh := make(chan audio.Event, 16)
	pol := policy.New(policy.Config{SelectSamples: 10, WatchdogSamples: 20, PauseSamples: 30})
	sel := talkgroup.New(nil, nil, nil, talkgroup.DefaultWeights)
	stats := NewStats(prometheus.NewRegistry())
	task := NewTask(&scriptedDecoder{}, pol, sel, 851_000_000, true, stats, control, events, audioCh)

	task.selector.AddTalkgroup(7, 852_500_000)
	task.react(policy.EventChooseTalkgroup)

	require.Equal(t, p25const.Hz(851_000_000), task.curFreq, "hopping mode must not retune")
	require.Len(t, control, 0)
}
