// Package p25proto defines the tagged event enum the P25 protocol
// decoder boundary emits (§6), plus the small set of opaque field
// accessors the receiver needs. The core never reaches into decoder
// internals beyond this package.
package p25proto

// DUID identifies the kind of data unit a NID frames.
type DUID uint8

const (
	DUIDUnknown DUID = iota
	DUIDHeader
	DUIDSimpleTerminator
	DUIDLCTerminator
	DUIDLCFrameGroup
	DUIDCCFrameGroup
	DUIDTrunkingSignaling
	DUIDPacketData
)

// NID is the Network Identifier word: framing preamble identifying
// the kind of data unit that follows.
type NID struct {
	DUID DUID
	NAC  uint16
}

// IsVoiceTerminator reports whether this NID frames either flavor of
// voice-call terminator (simple or link-control).
func (n NID) IsVoiceTerminator() bool {
	return n.DUID == DUIDSimpleTerminator || n.DUID == DUIDLCTerminator
}

// IsVoiceContinuation reports whether this NID frames a voice header
// or an in-call voice frame (LC or CC variant) — i.e. evidence the
// call is still live.
func (n NID) IsVoiceContinuation() bool {
	switch n.DUID {
	case DUIDHeader, DUIDLCFrameGroup, DUIDCCFrameGroup:
		return true
	default:
		return false
	}
}

// CryptoAlgorithm identifies the encryption algorithm named by a
// voice header or crypto-control word. Unencrypted traffic carries
// AlgUnencrypted.
type CryptoAlgorithm uint8

const AlgUnencrypted CryptoAlgorithm = 0x80

// VoiceHeader is the per-call header emitted once at call setup.
type VoiceHeader struct {
	Algorithm  CryptoAlgorithm
	Talkgroup  uint16
}

// CryptoControl is a crypto-control word, emitted alongside link
// control on encrypted calls.
type CryptoControl struct {
	Algorithm CryptoAlgorithm
	Talkgroup uint16
}

// VoiceFrame is one IMBE-encoded voice frame: raw bit-chunks plus a
// per-bit error count, as delivered to the IMBE vocoder boundary.
type VoiceFrame struct {
	Bits       [][]byte
	ErrorCount []int
}

// LCOpcode identifies a link-control word's opcode.
type LCOpcode uint8

const (
	LCOpcodeGroupVoice LCOpcode = iota
	LCOpcodeCallTermination
	LCOpcodeGroupVoiceUpdate
	LCOpcodeOther
)

// CandidateChannel is one (channel-id, channel-number, talkgroup)
// tuple harvested from a group-voice-update link-control word or TSBK.
type CandidateChannel struct {
	ChannelID     uint8
	ChannelNumber uint16
	Talkgroup     uint16
}

// LinkControl is a decoded link-control word.
type LinkControl struct {
	Opcode     LCOpcode
	Candidates []CandidateChannel // populated for GroupVoiceUpdate
}

// TSBKOpcode identifies a trunking signaling block's opcode.
type TSBKOpcode uint8

const (
	TSBKOpcodeGroupVoiceGrant TSBKOpcode = iota
	TSBKOpcodeGroupVoiceUpdate
	TSBKOpcodeChannelParamsUpdate
	TSBKOpcodeUnknown
)

// TSBK is a decoded trunking signaling block. It carries its
// manufacturer id and CRC status; Accept decides whether it is
// dispatched.
type TSBK struct {
	Opcode        TSBKOpcode
	Manufacturer  uint8
	CRCValid      bool
	ChannelID     uint8
	ChannelNumber uint16
	Talkgroup     uint16
	Candidates    []CandidateChannel // populated for GroupVoiceUpdate

	// Populated for ChannelParamsUpdate.
	BaseRxFreqHz uint32
	TxOffsetHz   int32
	SpacingHz    uint32
	BandwidthHz  uint32
}

// Accept reports whether this TSBK should be dispatched at all: it
// must carry manufacturer id zero, a valid CRC, and a recognized
// opcode (§4.5).
func (t TSBK) Accept() bool {
	return t.Manufacturer == 0 && t.CRCValid && t.Opcode != TSBKOpcodeUnknown
}

// EventKind tags the variant carried by an Event.
type EventKind uint8

const (
	EventError EventKind = iota
	EventNID
	EventVoiceHeader
	EventVoiceFrame
	EventLinkControl
	EventTrunkingControl
	EventCryptoControl
	EventVoiceTerm
)

// Event is the decoder's tagged output. Exactly one of the typed
// fields is meaningful, selected by Kind.
type Event struct {
	Kind EventKind

	Err           error
	NID           NID
	VoiceHeader   VoiceHeader
	VoiceFrame    VoiceFrame
	LinkControl   LinkControl
	TSBK          TSBK
	CryptoControl CryptoControl
	VoiceTermLC   LinkControl // VoiceTerm carries an LC, per §4.5
}
