// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"context"
	"fmt"
	"strings"
)

// MaxFolders is the highest numbered folder the module addresses
const MaxFolders = 99

// Player is the typed host API over a Client.
// Control methods follow the catalog's policy: invalid arguments are
// silently ignored.
type Player struct {
	client *Client
}

// NewPlayer wraps a client
func NewPlayer(client *Client) *Player {
	return &Player{client: client}
}

// Client returns the underlying client
func (p *Player) Client() *Client {
	return p.client
}

// Playback

func (p *Player) Next(ctx context.Context) error     { return p.client.Issue(ctx, "next") }
func (p *Player) Previous(ctx context.Context) error { return p.client.Issue(ctx, "previous") }
func (p *Player) Resume(ctx context.Context) error   { return p.client.Issue(ctx, "resume") }
func (p *Player) Pause(ctx context.Context) error    { return p.client.Issue(ctx, "pause") }
func (p *Player) Stop(ctx context.Context) error     { return p.client.Issue(ctx, "stop") }

// PlayTrack plays a track by its global index
func (p *Player) PlayTrack(ctx context.Context, track int) error {
	return p.client.Issue(ctx, "play-track", track)
}

// LoopTrack plays a track by its global index on repeat
func (p *Player) LoopTrack(ctx context.Context, track int) error {
	return p.client.Issue(ctx, "loop-track", track)
}

// PlayFolder plays track (1-255) in folder (1-99)
func (p *Player) PlayFolder(ctx context.Context, folder, track int) error {
	return p.client.Issue(ctx, "play-folder", folder, track)
}

// PlayLargeFolder plays track (0-4095) in folder (0-15)
func (p *Player) PlayLargeFolder(ctx context.Context, folder, track int) error {
	return p.client.Issue(ctx, "play-large-folder", folder, track)
}

// PlayMP3Folder plays a track from the "mp3" folder
func (p *Player) PlayMP3Folder(ctx context.Context, track int) error {
	return p.client.Issue(ctx, "play-mp3-folder", track)
}

// PlayAdvert interrupts the current track with one from the "advert" folder
func (p *Player) PlayAdvert(ctx context.Context, track int) error {
	return p.client.Issue(ctx, "advert", track)
}

func (p *Player) StopAdvert(ctx context.Context) error { return p.client.Issue(ctx, "advert-stop") }

// RepeatFolder repeats every track in folder
func (p *Player) RepeatFolder(ctx context.Context, folder int) error {
	return p.client.Issue(ctx, "repeat-folder", folder)
}

func (p *Player) RandomAll(ctx context.Context) error { return p.client.Issue(ctx, "random-all") }

func (p *Player) StartRepeatPlay(ctx context.Context) error {
	return p.client.Issue(ctx, "repeat-play-start")
}

func (p *Player) StopRepeatPlay(ctx context.Context) error {
	return p.client.Issue(ctx, "repeat-play-stop")
}

func (p *Player) StartRepeatCurrent(ctx context.Context) error {
	return p.client.Issue(ctx, "repeat-current-start")
}

func (p *Player) StopRepeatCurrent(ctx context.Context) error {
	return p.client.Issue(ctx, "repeat-current-stop")
}

// Sound

func (p *Player) VolumeUp(ctx context.Context) error   { return p.client.Issue(ctx, "volume-up") }
func (p *Player) VolumeDown(ctx context.Context) error { return p.client.Issue(ctx, "volume-down") }

// SetVolume sets the volume (0-30)
func (p *Player) SetVolume(ctx context.Context, level int) error {
	return p.client.Issue(ctx, "volume", level)
}

// SetEQ selects an EQ preset (EQNormal-EQBass)
func (p *Player) SetEQ(ctx context.Context, preset int) error {
	return p.client.Issue(ctx, "eq", preset)
}

// SetGain sets the output gain (0-31)
func (p *Player) SetGain(ctx context.Context, gain int) error {
	return p.client.Issue(ctx, "gain", gain)
}

func (p *Player) EnableDAC(ctx context.Context) error  { return p.client.Issue(ctx, "dac-on") }
func (p *Player) DisableDAC(ctx context.Context) error { return p.client.Issue(ctx, "dac-off") }

// Device

// SetSource selects the playback source (SourceUSB-SourceFlash)
func (p *Player) SetSource(ctx context.Context, source int) error {
	return p.client.Issue(ctx, "source", source)
}

func (p *Player) Standby(ctx context.Context) error { return p.client.Issue(ctx, "standby") }
func (p *Player) Normal(ctx context.Context) error  { return p.client.Issue(ctx, "normal") }
func (p *Player) Reset(ctx context.Context) error   { return p.client.Issue(ctx, "reset") }
func (p *Player) Sleep(ctx context.Context) error   { return p.client.Issue(ctx, "sleep") }
func (p *Player) Wake(ctx context.Context) error    { return p.client.Issue(ctx, "wake") }

// Queries

// IsPlaying reports status bit 0
func (p *Player) IsPlaying(ctx context.Context) (bool, error) {
	status, err := p.client.Ask(ctx, QueryStatus, 0, 0)
	if err != nil {
		return false, err
	}
	return status&1 != 0, nil
}

func (p *Player) Status(ctx context.Context) (uint16, error) {
	return p.client.Ask(ctx, QueryStatus, 0, 0)
}

func (p *Player) Volume(ctx context.Context) (uint16, error) {
	return p.client.Ask(ctx, QueryVolume, 0, 0)
}

func (p *Player) EQ(ctx context.Context) (uint16, error) {
	return p.client.Ask(ctx, QueryEQ, 0, 0)
}

func (p *Player) Mode(ctx context.Context) (uint16, error) {
	return p.client.Ask(ctx, QueryMode, 0, 0)
}

func (p *Player) Version(ctx context.Context) (uint16, error) {
	return p.client.Ask(ctx, QueryVersion, 0, 0)
}

func (p *Player) OnlineDevices(ctx context.Context) (uint16, error) {
	return p.client.Ask(ctx, QueryOnlineDevice, 0, 0)
}

// TrackCount returns the number of tracks on a medium (USB, SD or flash)
func (p *Player) TrackCount(ctx context.Context, m Medium) (uint16, error) {
	switch m {
	case MediumUSB:
		return p.client.Ask(ctx, QueryUSBTracks, 0, 0)
	case MediumSD:
		return p.client.Ask(ctx, QuerySDTracks, 0, 0)
	case MediumFlash:
		return p.client.Ask(ctx, QueryFlashTracks, 0, 0)
	}
	return 0, fmt.Errorf("%w: no track count for medium %s", ErrInvalidArgument, m)
}

// CurrentTrack returns the current track on a medium (USB, SD or flash)
func (p *Player) CurrentTrack(ctx context.Context, m Medium) (uint16, error) {
	switch m {
	case MediumUSB:
		return p.client.Ask(ctx, QueryUSBTrack, 0, 0)
	case MediumSD:
		return p.client.Ask(ctx, QuerySDTrack, 0, 0)
	case MediumFlash:
		return p.client.Ask(ctx, QueryFlashTrack, 0, 0)
	}
	return 0, fmt.Errorf("%w: no current track for medium %s", ErrInvalidArgument, m)
}

func (p *Player) Folders(ctx context.Context) (uint16, error) {
	return p.client.Ask(ctx, QueryFolders, 0, 0)
}

// FolderTracks returns the number of tracks in folder
func (p *Player) FolderTracks(ctx context.Context, folder uint16) (uint16, error) {
	return p.client.Ask(ctx, QueryFolderTracks, uint8(folder>>8), uint8(folder))
}

// SweepResult is the outcome of one query in a status sweep
type SweepResult struct {
	Name  string
	Value uint16
	Err   error
}

// SweepStatus is the outcome of a full status sweep
type SweepStatus struct {
	Results      []SweepResult
	FolderTracks []SweepResult // index i is folder i+1
}

// Get returns the value of a successful query in the sweep
func (s *SweepStatus) Get(name string) (uint16, bool) {
	for _, r := range s.Results {
		if r.Name == name {
			return r.Value, r.Err == nil
		}
	}
	return 0, false
}

// Playing reports status bit 0, false if the status query failed
func (s *SweepStatus) Playing() bool {
	status, ok := s.Get("status")
	return ok && status&1 != 0
}

// Failures returns the number of failed queries
func (s *SweepStatus) Failures() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	for _, r := range s.FolderTracks {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// String returns a formatted status report
func (s *SweepStatus) String() string {
	var b strings.Builder
	b.WriteString("=== Module Status ===\n")
	for _, r := range s.Results {
		writeSweepLine(&b, r.Name, r)
	}
	for i, r := range s.FolderTracks {
		writeSweepLine(&b, fmt.Sprintf("  folder %02d", i+1), r)
	}
	b.WriteString("=====================\n")
	return b.String()
}

func writeSweepLine(b *strings.Builder, label string, r SweepResult) {
	if r.Err != nil {
		fmt.Fprintf(b, "%-16s error: %v\n", label, r.Err)
		return
	}
	switch r.Name {
	case "status":
		fmt.Fprintf(b, "%-16s 0x%04X (playing: %t)\n", label, r.Value, r.Value&1 != 0)
	case "eq":
		fmt.Fprintf(b, "%-16s %d (%s)\n", label, r.Value, formatEQ(r.Value))
	default:
		fmt.Fprintf(b, "%-16s %d\n", label, r.Value)
	}
}

// sweepQueries lists the status sweep in the order it runs
var sweepQueries = []string{
	"volume",
	"status",
	"mode",
	"eq",
	"version",
	"usb-tracks",
	"sd-tracks",
	"flash-tracks",
	"usb-current",
	"sd-current",
	"flash-current",
	"folders",
}

// StatusSweep runs every status query in turn, then counts the tracks in
// each folder. A failed query is recorded and the sweep continues; only
// context cancellation stops it early.
func (p *Player) StatusSweep(ctx context.Context) (*SweepStatus, error) {
	status := &SweepStatus{}

	for _, name := range sweepQueries {
		value, err := p.client.Query(ctx, name)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status, ctxErr
		}
		status.Results = append(status.Results, SweepResult{Name: name, Value: value, Err: err})
	}

	folders, ok := status.Get("folders")
	if !ok {
		return status, nil
	}
	if folders > MaxFolders {
		folders = MaxFolders
	}
	for folder := uint16(1); folder <= folders; folder++ {
		value, err := p.FolderTracks(ctx, folder)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status, ctxErr
		}
		status.FolderTracks = append(status.FolderTracks, SweepResult{Name: "folder-tracks", Value: value, Err: err})
	}
	return status, nil
}
