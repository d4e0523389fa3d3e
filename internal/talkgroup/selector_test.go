package talkgroup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 5.
func TestScenario5SelectIdle(t *testing.T) {
	s := New(nil, nil, nil, DefaultWeights)
	s.AddTalkgroup(10, 42)

	tg, freq, ok := s.SelectIdle()
	require.True(t, ok)
	require.Equal(t, uint16(10), tg)
	require.EqualValues(t, 42, freq)

	_, ok = s.SelectTG(tg)
	require.True(t, ok)

	_, _, ok = s.SelectIdle()
	require.False(t, ok)
}

// Scenario 6.
func TestScenario6PreemptOverridesIdle(t *testing.T) {
	s := New([]uint16{20}, nil, nil, DefaultWeights)
	s.AddTalkgroup(10, 800)
	s.AddTalkgroup(20, 200)

	tg, freq, ok := s.SelectPreempt()
	require.True(t, ok)
	require.Equal(t, uint16(20), tg)
	require.EqualValues(t, 200, freq)

	_, ok = s.SelectTG(tg)
	require.True(t, ok)

	_, _, ok = s.SelectIdle()
	require.False(t, ok)
}

func TestEncryptedTalkgroupBlacklistIsPermanentAndIdempotent(t *testing.T) {
	s := New(nil, nil, nil, DefaultWeights)
	first := s.RecordEncrypted(7)
	require.True(t, first)
	second := s.RecordEncrypted(7)
	require.False(t, second)

	s.AddTalkgroup(7, 1234)
	_, _, ok := s.SelectIdle()
	require.False(t, ok, "add_talkgroup on an encrypted tg must be a no-op")
	require.True(t, s.IsEncrypted(7))
}

func TestClearStateResetsEncryptedAndCandidates(t *testing.T) {
	s := New(nil, nil, nil, DefaultWeights)
	s.RecordEncrypted(7)
	s.AddTalkgroup(8, 100)
	s.ClearState()

	require.False(t, s.IsEncrypted(7))
	_, _, ok := s.SelectIdle()
	require.False(t, ok)

	// Previously-encrypted tg can be added again after a site reset.
	s.AddTalkgroup(7, 555)
	tg, _, ok := s.SelectIdle()
	require.True(t, ok)
	require.Equal(t, uint16(7), tg)
}

// Scoring monotonicity: with only the age term active, the candidate
// added earlier (smaller stored "age when added" timestamp) has a
// larger elapsed-age gap and thus a smaller age term — it loses to a
// candidate added more recently. See DESIGN.md Open Question 4b.
func TestScoringAgeMonotonicity(t *testing.T) {
	s := New(nil, nil, nil, Weights{Prio: 0, Age: 1, Recent: 0})
	s.AddTalkgroup(1, 100) // added at elapsed=0
	s.RecordElapsed(50)
	s.AddTalkgroup(2, 200) // added at elapsed=50

	tg, _, ok := s.SelectIdle()
	require.True(t, ok)
	require.Equal(t, uint16(2), tg, "the more-recently-added candidate must win when only the age term is active")
}

func TestPriorityWeightDominatesWhenAgeWeightIsZero(t *testing.T) {
	s := New(nil, nil, map[uint16]float64{1: 5.0}, Weights{Prio: 1, Age: 0, Recent: 0})
	s.AddTalkgroup(1, 100)
	s.RecordElapsed(1000)
	s.AddTalkgroup(2, 200)

	tg, _, ok := s.SelectIdle()
	require.True(t, ok)
	require.Equal(t, uint16(1), tg)
}

func TestFilterRejectsExcludedTalkgroups(t *testing.T) {
	s := New(nil, denyFilter{deny: 99}, nil, DefaultWeights)
	s.AddTalkgroup(99, 1)
	s.AddTalkgroup(1, 2)

	_, _, ok := s.SelectIdle()
	require.True(t, ok)

	tg, _, _ := s.SelectIdle()
	require.Equal(t, uint16(1), tg)
}

type denyFilter struct{ deny uint16 }

func (d denyFilter) Allow(tg uint16) bool { return tg != d.deny }

func TestWrapAroundElapsedCounterIsBenign(t *testing.T) {
	s := New(nil, nil, nil, DefaultWeights)
	s.elapsed = ^uint32(0) - 2 // near overflow
	s.AddTalkgroup(1, 10)
	s.RecordElapsed(5) // wraps past zero
	s.AddTalkgroup(2, 20)

	// Must not panic and must still produce a deterministic winner.
	_, _, ok := s.SelectIdle()
	require.True(t, ok)
}
