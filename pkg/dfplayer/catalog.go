// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"errors"
	"fmt"
	"sort"
)

// Catalog lookup failures. These are caller mistakes, distinct from an
// argument failing its validity rule.
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrArgCount      = errors.New("wrong number of arguments")
)

// ParamEncoding describes how action arguments map onto the parameter bytes
type ParamEncoding int

// Parameter encodings
const (
	// ParamNone sends a fixed sentinel (CommandSpec.Fixed)
	ParamNone ParamEncoding = iota
	// ParamU16 sends one 16-bit big-endian value
	ParamU16
	// ParamBytes sends two independent bytes (MSB, LSB)
	ParamBytes
	// ParamPacked sends folder<<12 | track&0xFFF
	ParamPacked
	// ParamGain sends MSB 0 and LSB gainOffset + gain
	ParamGain
)

// String returns the encoding name used in listings
func (e ParamEncoding) String() string {
	switch e {
	case ParamNone:
		return "none"
	case ParamU16:
		return "u16"
	case ParamBytes:
		return "bytes"
	case ParamPacked:
		return "packed"
	case ParamGain:
		return "gain"
	default:
		return "unknown"
	}
}

// CommandSpec is one catalog entry
type CommandSpec struct {
	Name        string
	Code        uint8
	Encoding    ParamEncoding
	Fixed       [2]uint8 // MSB, LSB sent by ParamNone
	ArgNames    []string
	Valid       func(args []int) bool // nil accepts any in-range argument
	Query       bool
	Description string
}

// Args returns the number of arguments the command takes
func (s CommandSpec) Args() int {
	return len(s.ArgNames)
}

// Params encodes args into the parameter bytes.
// ok is false when an argument fails the command's validity rule or does
// not fit its wire field. The argument count must already be correct.
func (s CommandSpec) Params(args []int) (msb, lsb uint8, ok bool) {
	if s.Valid != nil && !s.Valid(args) {
		return 0, 0, false
	}

	switch s.Encoding {
	case ParamNone:
		return s.Fixed[0], s.Fixed[1], true

	case ParamU16:
		if !inRange(args[0], 0xFFFF) {
			return 0, 0, false
		}
		return uint8(args[0] >> 8), uint8(args[0]), true

	case ParamBytes:
		if !inRange(args[0], 0xFF) || !inRange(args[1], 0xFF) {
			return 0, 0, false
		}
		return uint8(args[0]), uint8(args[1]), true

	case ParamPacked:
		if !inRange(args[0], MaxLargeFolder) || !inRange(args[1], MaxLargeTrack) {
			return 0, 0, false
		}
		packed := uint16(args[0])<<12 | uint16(args[1])&0xFFF
		return uint8(packed >> 8), uint8(packed), true

	case ParamGain:
		if !inRange(args[0], MaxGain) {
			return 0, 0, false
		}
		return 0, uint8(gainOffset + args[0]), true
	}

	return 0, 0, false
}

// Frame builds the command frame for args.
// ok is false when the arguments are invalid; no frame should be sent.
func (s CommandSpec) Frame(feedback uint8, args []int) (Frame, bool) {
	msb, lsb, ok := s.Params(args)
	if !ok {
		return Frame{}, false
	}
	return Encode(s.Code, feedback, msb, lsb), true
}

// Usage returns the name followed by its argument placeholders
func (s CommandSpec) Usage() string {
	usage := s.Name
	for _, arg := range s.ArgNames {
		usage += " <" + arg + ">"
	}
	return usage
}

func inRange(v, max int) bool {
	return v >= 0 && v <= max
}

func atMost(max int) func([]int) bool {
	return func(args []int) bool { return inRange(args[0], max) }
}

// Catalog maps action and query names to command specs.
// Actions and queries are separate namespaces ("volume" is both).
type Catalog struct {
	actions map[string]CommandSpec
	queries map[string]CommandSpec
}

// NewCatalog creates a catalog from specs. Later specs replace earlier ones
// with the same name and kind.
func NewCatalog(specs ...CommandSpec) *Catalog {
	c := &Catalog{
		actions: make(map[string]CommandSpec),
		queries: make(map[string]CommandSpec),
	}
	for _, s := range specs {
		if s.Query {
			c.queries[s.Name] = s
		} else {
			c.actions[s.Name] = s
		}
	}
	return c
}

// Lookup returns the action named name
func (c *Catalog) Lookup(name string) (CommandSpec, bool) {
	s, ok := c.actions[name]
	return s, ok
}

// LookupQuery returns the query named name
func (c *Catalog) LookupQuery(name string) (CommandSpec, bool) {
	s, ok := c.queries[name]
	return s, ok
}

// Actions returns the control actions ordered by code, then name
func (c *Catalog) Actions() []CommandSpec {
	return sortedSpecs(c.actions)
}

// Queries returns the queries ordered by code
func (c *Catalog) Queries() []CommandSpec {
	return sortedSpecs(c.queries)
}

// Build resolves an action and encodes its frame with the feedback flag
// cleared. ok is false when an argument fails its validity rule; err is
// set only for unknown names and wrong argument counts.
func (c *Catalog) Build(name string, args ...int) (frame Frame, ok bool, err error) {
	s, found := c.actions[name]
	if !found {
		return Frame{}, false, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return buildSpec(s, args)
}

// BuildQuery resolves a query and encodes its request frame
func (c *Catalog) BuildQuery(name string, args ...int) (frame Frame, ok bool, err error) {
	s, found := c.queries[name]
	if !found {
		return Frame{}, false, fmt.Errorf("%w: query %q", ErrUnknownAction, name)
	}
	return buildSpec(s, args)
}

func buildSpec(s CommandSpec, args []int) (Frame, bool, error) {
	if len(args) != s.Args() {
		return Frame{}, false, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, s.Name, s.Args(), len(args))
	}
	frame, ok := s.Frame(NoFeedback, args)
	return frame, ok, nil
}

func sortedSpecs(m map[string]CommandSpec) []CommandSpec {
	specs := make([]CommandSpec, 0, len(m))
	for _, s := range m {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].Code != specs[j].Code {
			return specs[i].Code < specs[j].Code
		}
		return specs[i].Name < specs[j].Name
	})
	return specs
}

func action(name string, code uint8, msb, lsb uint8, desc string) CommandSpec {
	return CommandSpec{Name: name, Code: code, Encoding: ParamNone, Fixed: [2]uint8{msb, lsb}, Description: desc}
}

func query(name string, code uint8, desc string) CommandSpec {
	return CommandSpec{Name: name, Code: code, Encoding: ParamNone, Query: true, Description: desc}
}

// DefaultCatalog returns the DFPlayer command set
func DefaultCatalog() *Catalog {
	return NewCatalog(
		// Control actions
		action("next", CmdNext, 0, 1, "Play the next track"),
		action("previous", CmdPrevious, 0, 1, "Play the previous track"),
		CommandSpec{Name: "play-track", Code: CmdPlayTrack, Encoding: ParamU16, ArgNames: []string{"track"},
			Description: "Play a track by global index"},
		action("volume-up", CmdVolumeUp, 0, 1, "Increase volume by one step"),
		action("volume-down", CmdVolumeDown, 0, 1, "Decrease volume by one step"),
		CommandSpec{Name: "volume", Code: CmdVolume, Encoding: ParamU16, ArgNames: []string{"level"},
			Valid: atMost(MaxVolume), Description: "Set volume (0-30)"},
		CommandSpec{Name: "eq", Code: CmdEQ, Encoding: ParamU16, ArgNames: []string{"preset"},
			Valid: atMost(MaxEQ), Description: "Select EQ preset (0 normal, 1 pop, 2 rock, 3 jazz, 4 classic, 5 bass)"},
		CommandSpec{Name: "loop-track", Code: CmdLoopTrack, Encoding: ParamU16, ArgNames: []string{"track"},
			Description: "Loop a track by global index"},
		CommandSpec{Name: "source", Code: CmdPlaybackSource, Encoding: ParamU16, ArgNames: []string{"source"},
			Valid:       func(args []int) bool { return args[0] >= SourceUSB && args[0] <= SourceFlash },
			Description: "Select playback source (1 USB, 2 SD, 3 AUX, 4 sleep, 5 flash)"},
		action("standby", CmdStandby, 0, 1, "Enter standby"),
		action("normal", CmdNormal, 0, 1, "Leave standby"),
		action("reset", CmdReset, 0, 1, "Reset the module"),
		action("resume", CmdPlay, 0, 1, "Resume playback"),
		action("play", CmdPlay, 0, 1, "Resume playback"),
		action("pause", CmdPause, 0, 1, "Pause playback"),
		CommandSpec{Name: "play-folder", Code: CmdPlayFolder, Encoding: ParamBytes, ArgNames: []string{"folder", "track"},
			Description: "Play a track in a numbered folder (folder and track 0-255)"},
		CommandSpec{Name: "gain", Code: CmdVolumeGain, Encoding: ParamGain, ArgNames: []string{"gain"},
			Description: "Set output gain (0-31)"},
		action("repeat-play-start", CmdRepeatPlay, 0, repeatPlayStart, "Start repeat play of all tracks"),
		action("repeat-play-stop", CmdRepeatPlay, 0, repeatPlayStop, "Stop repeat play"),
		CommandSpec{Name: "play-mp3-folder", Code: CmdPlayMP3Folder, Encoding: ParamU16, ArgNames: []string{"track"},
			Description: "Play a track from the MP3 folder"},
		CommandSpec{Name: "advert", Code: CmdInsertAdvert, Encoding: ParamU16, ArgNames: []string{"track"},
			Description: "Interrupt playback with an advertisement track"},
		CommandSpec{Name: "play-large-folder", Code: CmdPlayLargeFolder, Encoding: ParamPacked, ArgNames: []string{"folder", "track"},
			Description: "Play a track in a large folder (folder 0-15, track 0-4095)"},
		action("advert-stop", CmdStopAdvert, 0, 0, "Stop the advertisement and resume"),
		action("stop", CmdStop, 0, 0, "Stop playback"),
		CommandSpec{Name: "repeat-folder", Code: CmdRepeatFolder, Encoding: ParamU16, ArgNames: []string{"folder"},
			Description: "Repeat all tracks in a folder"},
		action("random-all", CmdRandomAll, 0, 0, "Play all tracks in random order"),
		action("repeat-current-start", CmdRepeatCurrent, 0, 0, "Repeat the current track"),
		action("repeat-current-stop", CmdRepeatCurrent, 0, 1, "Stop repeating the current track"),
		action("dac-on", CmdSetDAC, 0, 0, "Enable the DAC"),
		action("dac-off", CmdSetDAC, 0, 1, "Disable the DAC"),
		action("sleep", CmdPlaybackSource, 0, SourceSleep, "Enter sleep mode"),
		action("wake", CmdPlaybackSource, 0, SourceSD, "Wake from sleep mode"),

		// Queries
		query("online-device", QueryOnlineDevice, "Online storage devices"),
		query("status", QueryStatus, "Playback status (bit 0 set while playing)"),
		query("volume", QueryVolume, "Current volume"),
		query("eq", QueryEQ, "Current EQ preset"),
		query("mode", QueryMode, "Current playback mode"),
		query("version", QueryVersion, "Firmware version"),
		query("usb-tracks", QueryUSBTracks, "Number of tracks on USB"),
		query("sd-tracks", QuerySDTracks, "Number of tracks on SD"),
		query("flash-tracks", QueryFlashTracks, "Number of tracks on flash"),
		query("usb-current", QueryUSBTrack, "Current track on USB"),
		query("sd-current", QuerySDTrack, "Current track on SD"),
		query("flash-current", QueryFlashTrack, "Current track on flash"),
		CommandSpec{Name: "folder-tracks", Code: QueryFolderTracks, Encoding: ParamU16, ArgNames: []string{"folder"},
			Query: true, Description: "Number of tracks in a folder"},
		query("folders", QueryFolders, "Number of folders"),
	)
}
