// Package hub implements the HTTP + Server-Sent-Events task (§4.9):
// the hub's own state snapshot, the tagged event stream published by
// the receiver and demod tasks, and the bounded set of SSE
// subscribers that mirror it out to HTTP clients.
package hub

import (
	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/kchmck/p25rx/internal/p25proto"
)

// Tag is the SSE "event" discriminator (§4.9). Values match the
// spec's literal tag strings.
type Tag string

const (
	TagCtlFreq         Tag = "ctlFreq"
	TagCurFreq         Tag = "curFreq"
	TagTalkGroup       Tag = "talkGroup"
	TagSigPower        Tag = "sigPower"
	TagRFSSStatus      Tag = "rfssStatus"
	TagNetworkStatus   Tag = "networkStatus"
	TagAltControl      Tag = "altControl"
	TagAdjacentSite    Tag = "adjacentSite"
	TagSrcUnit         Tag = "srcUnit"
	TagUpdateEncrypted Tag = "updateEncrypted"
	TagUpdateStats     Tag = "updateStats"
	TagLocReg          Tag = "locReg"
	TagUnitReg         Tag = "unitReg"
	TagUnitDereg       Tag = "unitDereg"
	TagLinkControl     Tag = "linkControl"
	TagTrunkingControl Tag = "trunkingControl"
	// TagUpdateChannelParams is a StateEvent (§3/§4.5): it refreshes the
	// hub's internal channels snapshot but is not itself one of the
	// SSE-published tags in §4.9's literal list.
	TagUpdateChannelParams Tag = "updateChannelParams"
	// TagSpectrum is an additive, non-spec tag carrying the optional
	// demod spectrum tap (SPEC_FULL.md §4.4 expansion). Subscribers
	// that only know the spec's tag set simply ignore it.
	TagSpectrum Tag = "spectrum"
)

// Event is the tagged message the demod/receiver tasks publish to the
// hub over a single channel (the diagram's "events, state" arrow).
// Exactly one payload field is meaningful, selected by Tag.
type Event struct {
	Tag Tag

	CtlFreq         p25const.Hz
	CurFreq         p25const.Hz
	TalkGroup       uint16
	SigPowerDBm     float64
	Spectrum        []float32
	LinkControl     p25proto.LinkControl
	TrunkingControl p25proto.TSBK

	// UpdateEncrypted payload.
	EncryptedTG  uint16
	EncryptedAlg p25proto.CryptoAlgorithm

	// UpdateChannelParams payload — hub refreshes its channels
	// snapshot from this.
	ChannelID     uint8
	ChannelParams p25const.ChannelParams

	// AltControl payload: channel numbers resolved against the
	// channels snapshot (under ChannelID) at publish time; unknown ids
	// are silently skipped by the hub (§4.9). AdjacentSiteChannel is
	// published as the raw channel number; it is not resolved against
	// the snapshot and is never skipped.
	AltControlChannels  []uint16
	AdjacentSiteChannel uint16

	// Free-form fields for events the core doesn't interpret beyond
	// forwarding (rfssStatus/networkStatus/srcUnit/locReg/unitReg/
	// unitDereg/updateStats): carried as opaque JSON-able payloads.
	Payload any
}
