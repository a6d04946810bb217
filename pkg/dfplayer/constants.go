// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package dfplayer implements the host side of the DFPlayer serial protocol.
//
// DFPlayer-class MP3 modules exchange fixed 10-byte frames over a UART:
//
//	7E FF 06 CMD FB PH PL CH CL EF
//
// This package provides frame encoding and checksum validation, a
// resynchronizing byte-stream decoder, the command catalog, a dispatcher for
// fire-and-forget control actions, and a client that correlates a single
// in-flight query with its response.
package dfplayer

import "time"

// Protocol framing bytes
const (
	StartByte   = 0x7E
	VersionByte = 0xFF
	LengthByte  = 0x06
	EndByte     = 0xEF
)

// FrameSize is the size of every frame in both directions.
const FrameSize = 10

// Frame offsets
const (
	offStart = iota
	offVersion
	offLength
	offCommand
	offFeedback
	offParamMSB
	offParamLSB
	offChecksumMSB
	offChecksumLSB
	offEnd
)

// Feedback flag values
const (
	NoFeedback = 0
	Feedback   = 1
)

// Control commands (Host → Module) 0x01-0x1A
const (
	CmdNext            = 0x01
	CmdPrevious        = 0x02
	CmdPlayTrack       = 0x03
	CmdVolumeUp        = 0x04
	CmdVolumeDown      = 0x05
	CmdVolume          = 0x06
	CmdEQ              = 0x07
	CmdLoopTrack       = 0x08
	CmdPlaybackSource  = 0x09
	CmdStandby         = 0x0A
	CmdNormal          = 0x0B
	CmdReset           = 0x0C
	CmdPlay            = 0x0D
	CmdPause           = 0x0E
	CmdPlayFolder      = 0x0F
	CmdVolumeGain      = 0x10
	CmdRepeatPlay      = 0x11
	CmdPlayMP3Folder   = 0x12
	CmdInsertAdvert    = 0x13
	CmdPlayLargeFolder = 0x14
	CmdStopAdvert      = 0x15
	CmdStop            = 0x16
	CmdRepeatFolder    = 0x17
	CmdRandomAll       = 0x18
	CmdRepeatCurrent   = 0x19
	CmdSetDAC          = 0x1A
)

// Unsolicited events (Module → Host) 0x3A-0x3F
const (
	CmdMediumPlugged      = 0x3A
	CmdMediumRemoved      = 0x3B
	CmdTrackFinishedUSB   = 0x3C
	CmdTrackFinishedSD    = 0x3D
	CmdTrackFinishedFlash = 0x3E
	CmdDeviceOnline       = 0x3F
)

// Replies (Module → Host)
const (
	CmdError = 0x40
	CmdAck   = 0x41
)

// Queries (Host → Module, answered with the same code) 0x3F-0x4F
const (
	QueryOnlineDevice = 0x3F
	QueryStatus       = 0x42
	QueryVolume       = 0x43
	QueryEQ           = 0x44
	QueryMode         = 0x45
	QueryVersion      = 0x46
	QueryUSBTracks    = 0x47
	QuerySDTracks     = 0x48
	QueryFlashTracks  = 0x49
	QueryUSBTrack     = 0x4B
	QuerySDTrack      = 0x4C
	QueryFlashTrack   = 0x4D
	QueryFolderTracks = 0x4E
	QueryFolders      = 0x4F
)

// EQ presets
const (
	EQNormal = iota
	EQPop
	EQRock
	EQJazz
	EQClassic
	EQBass
)

// MaxEQ is the highest valid EQ preset.
const MaxEQ = EQBass

// Playback sources for CmdPlaybackSource
const (
	SourceUSB   = 1
	SourceSD    = 2
	SourceAux   = 3
	SourceSleep = 4
	SourceFlash = 5
)

// Parameter limits
const (
	MaxVolume = 30
	MaxGain   = 31

	// gainOffset is added to the requested gain in the CmdVolumeGain LSB.
	gainOffset = 0x10

	// Large-folder addressing packs folder<<12 | track.
	MaxLargeFolder = 15
	MaxLargeTrack  = 0xFFF
)

// Repeat-play parameters for CmdRepeatPlay
const (
	repeatPlayStop  = 0
	repeatPlayStart = 1
)

// Defaults
const (
	DefaultQueryTimeout = 500 * time.Millisecond
	DefaultSendInterval = 20 * time.Millisecond
)

// DecoderState is the decoder's position within the 10-byte frame.
type DecoderState int

// Decoder states, one per frame offset
const (
	AwaitStart DecoderState = iota
	AwaitVersion
	AwaitLength
	AwaitCommand
	AwaitFeedback
	AwaitParamMSB
	AwaitParamLSB
	AwaitChecksumMSB
	AwaitChecksumLSB
	AwaitEnd
)

var decoderStateNames = [...]string{
	"AWAIT_START",
	"AWAIT_VERSION",
	"AWAIT_LENGTH",
	"AWAIT_COMMAND",
	"AWAIT_FEEDBACK",
	"AWAIT_PARAM_MSB",
	"AWAIT_PARAM_LSB",
	"AWAIT_CHECKSUM_MSB",
	"AWAIT_CHECKSUM_LSB",
	"AWAIT_END",
}

// String returns the state name
func (s DecoderState) String() string {
	if s < 0 || int(s) >= len(decoderStateNames) {
		return "UNKNOWN"
	}
	return decoderStateNames[s]
}

// Medium identifies a storage medium in events and per-medium queries
type Medium int

// Medium values as reported in event parameters
const (
	MediumUSB   Medium = 0x01
	MediumSD    Medium = 0x02
	MediumPC    Medium = 0x04
	MediumFlash Medium = 0x08
)

// String returns the medium name
func (m Medium) String() string {
	switch m {
	case MediumUSB:
		return "USB"
	case MediumSD:
		return "SD"
	case MediumPC:
		return "PC"
	case MediumFlash:
		return "FLASH"
	default:
		return "UNKNOWN"
	}
}
