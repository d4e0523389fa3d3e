package policy

import (
	"testing"

	"github.com/kchmck/p25rx/internal/p25proto"
	"github.com/stretchr/testify/require"
)

// Literal thresholds from spec §8's concrete scenarios.
func testConfig() Config {
	return Config{SelectSamples: 10, WatchdogSamples: 20, PauseSamples: 30}
}

func nid(d p25proto.DUID) p25proto.NID { return p25proto.NID{DUID: d} }

// Scenario 1.
func TestScenario1ControlSelectWindow(t *testing.T) {
	p := New(testConfig())
	require.Equal(t, EventNone, p.OnElapsed(9))
	require.Equal(t, EventChooseTalkgroup, p.OnElapsed(1))
	require.Equal(t, EventNone, p.OnElapsed(9))
	require.Equal(t, EventChooseTalkgroup, p.OnElapsed(1))
}

// Scenario 2.
func TestScenario2IgnoreLeftoverTerminators(t *testing.T) {
	p := New(testConfig())
	p.EnterTraffic(true)
	require.Equal(t, EventNone, p.OnElapsed(5))
	require.Equal(t, EventNone, p.OnNID(nid(p25proto.DUIDLCTerminator)))
	require.Equal(t, EventNone, p.OnNID(nid(p25proto.DUIDSimpleTerminator)))
	require.Equal(t, EventReturnControl, p.OnElapsed(15))
}

// Scenario 3.
func TestScenario3ResyncOnTrunkingSignaling(t *testing.T) {
	p := New(testConfig())
	p.EnterTraffic(true)
	require.Equal(t, EventResync, p.OnNID(nid(p25proto.DUIDTrunkingSignaling)))
}

// Scenario 4.
func TestScenario4FullRoundTrip(t *testing.T) {
	p := New(testConfig())
	p.EnterTraffic(true)
	require.Equal(t, EventNone, p.OnElapsed(5))
	require.Equal(t, EventNone, p.OnNID(nid(p25proto.DUIDHeader)))
	require.Equal(t, EventNone, p.OnElapsed(19))
	require.Equal(t, EventNone, p.OnNID(nid(p25proto.DUIDLCFrameGroup)))
	require.Equal(t, EventNone, p.OnElapsed(19))
	require.Equal(t, EventNone, p.OnNID(nid(p25proto.DUIDCCFrameGroup)))
	require.Equal(t, EventNone, p.OnElapsed(19))
	require.Equal(t, EventNone, p.OnNID(nid(p25proto.DUIDSimpleTerminator)))
	require.Equal(t, StatePaused, p.State())
	require.Equal(t, EventNone, p.OnElapsed(29))
	require.Equal(t, EventNone, p.OnNID(nid(p25proto.DUIDHeader)))
	require.Equal(t, StateTraffic, p.State())
	require.Equal(t, EventNone, p.OnElapsed(19))
	require.Equal(t, EventReturnControl, p.OnElapsed(1))
}

func TestEnterTrafficWatchdogRoundTrip(t *testing.T) {
	p := New(testConfig())
	p.EnterTraffic(true)
	require.Equal(t, EventNone, p.OnElapsed(19))
	require.Equal(t, EventReturnControl, p.OnElapsed(1))
}

func TestControlIgnoresCallTerm(t *testing.T) {
	p := New(testConfig())
	require.Equal(t, EventNone, p.OnCallTerm())
	require.Equal(t, StateControl, p.State())
}

func TestCallTermReturnsControlFromTrafficOrPaused(t *testing.T) {
	p := New(testConfig())
	p.EnterTraffic(true)
	require.Equal(t, EventReturnControl, p.OnCallTerm())

	p2 := New(testConfig())
	p2.EnterTraffic(false)
	require.Equal(t, EventNone, p2.OnNID(nid(p25proto.DUIDSimpleTerminator)))
	require.Equal(t, StatePaused, p2.State())
	require.Equal(t, EventReturnControl, p2.OnCallTerm())
}

func TestEnterControlResetsTimer(t *testing.T) {
	p := New(testConfig())
	p.EnterTraffic(true)
	p.OnElapsed(15)
	p.EnterControl()
	require.Equal(t, StateControl, p.State())
	require.Equal(t, EventNone, p.OnElapsed(9))
	require.Equal(t, EventChooseTalkgroup, p.OnElapsed(1))
}
