// Package talkgroup implements the candidate-ranking talkgroup
// selector (§4.7): which call to follow onto a traffic channel, which
// call is allowed to preempt one already in progress, and the
// permanent per-site blacklist of talkgroups observed encrypted.
package talkgroup

import (
	"github.com/kchmck/p25rx/internal/p25const"
)

// Weights are the scoring formula's feature weights (§4.7).
type Weights struct {
	Prio   float64
	Age    float64
	Recent float64
}

// DefaultWeights matches the formula's implicit defaults: priority
// dominates, age and recency are tiebreakers.
var DefaultWeights = Weights{Prio: 1.0, Age: 0.5, Recent: 0.25}

// Filter decides whether a talkgroup may be added as a candidate at
// all. A nil Filter admits everything.
type Filter interface {
	Allow(tg uint16) bool
}

type candidate struct {
	tg  uint16
	age uint32 // elapsed-counter value when this candidate was added
}

// Selector holds the candidate/preempt lists and the permanent
// encrypted blacklist for one control-channel "site" lifetime. Call
// ClearState when the control frequency changes.
type Selector struct {
	candidates []candidate
	preempt    []candidate

	freqByTG map[uint16]p25const.Hz
	// preemptSet marks which talkgroups are authorized to preempt an
	// in-progress call.
	preemptSet map[uint16]struct{}

	encrypted map[uint16]struct{}
	recent    uint16
	hasRecent bool

	elapsed uint32

	filter   Filter
	priority map[uint16]float64
	weights  Weights
}

// New creates a Selector. preemptTGs lists talkgroups authorized to
// preempt an in-progress call; filter and priority may be nil/empty.
func New(preemptTGs []uint16, filter Filter, priority map[uint16]float64, weights Weights) *Selector {
	s := &Selector{
		freqByTG:   make(map[uint16]p25const.Hz),
		preemptSet: make(map[uint16]struct{}, len(preemptTGs)),
		encrypted:  make(map[uint16]struct{}),
		filter:     filter,
		priority:   priority,
		weights:    weights,
	}
	for _, tg := range preemptTGs {
		s.preemptSet[tg] = struct{}{}
	}
	return s
}

// AddTalkgroup records a candidate sighting. A no-op if tg is
// permanently blacklisted as encrypted or rejected by the filter.
// Re-adding an already-candidate talkgroup just refreshes its
// remembered frequency; its age-at-insertion is not reset.
func (s *Selector) AddTalkgroup(tg uint16, freq p25const.Hz) {
	if _, bad := s.encrypted[tg]; bad {
		return
	}
	if s.filter != nil && !s.filter.Allow(tg) {
		return
	}

	_, known := s.freqByTG[tg]
	s.freqByTG[tg] = freq

	if !known {
		s.candidates = append(s.candidates, candidate{tg: tg, age: s.elapsed})
		if _, isPreempt := s.preemptSet[tg]; isPreempt {
			s.preempt = append(s.preempt, candidate{tg: tg, age: s.elapsed})
		}
	}
}

// RecordElapsed advances the internal sample counter by n, using
// wrap-around (2's complement) arithmetic so a counter overflow is
// benign as long as recorded ages don't span half the counter range.
func (s *Selector) RecordElapsed(n uint32) {
	s.elapsed += n
}

// wrapAge computes elapsed-age via modular subtraction, matching the
// spec's wrap-around requirement.
func wrapAge(elapsed, age uint32) uint32 {
	return elapsed - age
}

func (s *Selector) score(c candidate, oldestAge uint32) float64 {
	prio := 1.0
	if p, ok := s.priority[c.tg]; ok {
		prio = p
	}

	ageTerm := 0.0
	if oldestAge != 0 {
		ageTerm = 1.0 - float64(wrapAge(s.elapsed, c.age))/float64(oldestAge)
	}

	recentTerm := 0.0
	if s.hasRecent && c.tg == s.recent {
		recentTerm = 1.0
	}

	return s.weights.Prio*prio + s.weights.Age*ageTerm + s.weights.Recent*recentTerm
}

// oldestAge returns elapsed - min(age) over list, the denominator in
// the age-normalization term.
func (s *Selector) oldestAge(list []candidate) uint32 {
	if len(list) == 0 {
		return 0
	}
	minAge := list[0].age
	for _, c := range list[1:] {
		if wrapAge(s.elapsed, c.age) > wrapAge(s.elapsed, minAge) {
			minAge = c.age
		}
	}
	return wrapAge(s.elapsed, minAge)
}

// argmax returns the (tg, freq) of the highest-scoring candidate in
// list, with ties broken by insertion order (first occurrence wins).
func (s *Selector) argmax(list []candidate) (uint16, p25const.Hz, bool) {
	if len(list) == 0 {
		return 0, 0, false
	}
	oldest := s.oldestAge(list)
	bestIdx := 0
	bestScore := s.score(list[0], oldest)
	for i := 1; i < len(list); i++ {
		sc := s.score(list[i], oldest)
		if sc > bestScore {
			bestScore = sc
			bestIdx = i
		}
	}
	tg := list[bestIdx].tg
	return tg, s.freqByTG[tg], true
}

// SelectIdle returns the argmax candidate over the full candidate
// list, or ok=false if there are none.
func (s *Selector) SelectIdle() (tg uint16, freq p25const.Hz, ok bool) {
	return s.argmax(s.candidates)
}

// SelectPreempt returns the argmax candidate over the preempt-eligible
// list only.
func (s *Selector) SelectPreempt() (tg uint16, freq p25const.Hz, ok bool) {
	return s.argmax(s.preempt)
}

// SelectTG commits to following tg: looks up its remembered
// frequency, clears the candidate/preempt lists and age map, marks tg
// as the most-recently-selected talkgroup, and zeroes the elapsed
// counter.
func (s *Selector) SelectTG(tg uint16) (p25const.Hz, bool) {
	freq, ok := s.freqByTG[tg]
	if !ok {
		return 0, false
	}
	s.candidates = nil
	s.preempt = nil
	s.freqByTG = make(map[uint16]p25const.Hz)
	s.recent = tg
	s.hasRecent = true
	s.elapsed = 0
	return freq, true
}

// RecordEncrypted permanently blacklists tg (until ClearState) and
// reports whether this is the first time tg has been marked
// encrypted (callers use that to decide whether to publish an
// UpdateEncrypted event).
func (s *Selector) RecordEncrypted(tg uint16) (firstTime bool) {
	if _, already := s.encrypted[tg]; already {
		return false
	}
	s.encrypted[tg] = struct{}{}
	return true
}

// IsEncrypted reports whether tg is on the permanent blacklist.
func (s *Selector) IsEncrypted(tg uint16) bool {
	_, ok := s.encrypted[tg]
	return ok
}

// EncryptedTalkgroups returns a snapshot of the encrypted blacklist.
func (s *Selector) EncryptedTalkgroups() []uint16 {
	out := make([]uint16, 0, len(s.encrypted))
	for tg := range s.encrypted {
		out = append(out, tg)
	}
	return out
}

// ClearState clears candidates, the encrypted blacklist, the recent
// marker, and the elapsed counter. Called whenever the control
// frequency changes, since the site may have changed entirely.
func (s *Selector) ClearState() {
	s.candidates = nil
	s.preempt = nil
	s.freqByTG = make(map[uint16]p25const.Hz)
	s.encrypted = make(map[uint16]struct{})
	s.hasRecent = false
	s.recent = 0
	s.elapsed = 0
}
