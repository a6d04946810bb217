// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Test Helpers
// ============================================================

// feedAll runs data through a fresh decoder
func feedAll(data []byte) ([]Frame, []error) {
	return NewDecoder().Feed(data)
}

// ============================================================
// Checksum Tests
// ============================================================

func TestCalculateChecksum_Empty(t *testing.T) {
	if sum := CalculateChecksum(nil); sum != 0 {
		t.Errorf("Checksum of empty data should be 0, got 0x%04X", sum)
	}
}

func TestCalculateChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"next", []byte{0xFF, 0x06, 0x01, 0x00, 0x00, 0x01}, 0xFEF9},
		{"volume 30", []byte{0xFF, 0x06, 0x06, 0x00, 0x00, 0x1E}, 0xFED7},
		{"play 300", []byte{0xFF, 0x06, 0x0D, 0x00, 0x01, 0x2C}, 0xFEC1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if sum := CalculateChecksum(tt.data); sum != tt.expected {
				t.Errorf("Checksum mismatch: expected 0x%04X, got 0x%04X", tt.expected, sum)
			}
		})
	}
}

func TestCalculateChecksum_SumsToZero(t *testing.T) {
	data := []byte{0xFF, 0x06, 0x4E, 0x00, 0x00, 0x03}
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	if sum+CalculateChecksum(data) != 0 {
		t.Error("Data sum plus checksum should wrap to zero")
	}
}

// ============================================================
// Frame Tests
// ============================================================

func TestEncode_PlayScenarioBytes(t *testing.T) {
	frame := Encode(CmdPlay, NoFeedback, 0x01, 0x2C)
	expected := []byte{0x7E, 0xFF, 0x06, 0x0D, 0x00, 0x01, 0x2C, 0xFE, 0xC1, 0xEF}

	if got := frame.Bytes(); !bytes.Equal(got, expected) {
		t.Errorf("Wire bytes mismatch:\nexpected % X\ngot      % X", expected, got)
	}
	if frame.Value() != 300 {
		t.Errorf("Expected value 300, got %d", frame.Value())
	}
}

func TestEncodeValue(t *testing.T) {
	frame := EncodeValue(CmdPlayTrack, Feedback, 0x1234)
	if frame.ParamMSB != 0x12 || frame.ParamLSB != 0x34 {
		t.Errorf("Expected params 12 34, got %02X %02X", frame.ParamMSB, frame.ParamLSB)
	}
	if !frame.RequestsFeedback() {
		t.Error("Expected feedback flag to be set")
	}
}

func TestFrame_ChecksumSymmetry(t *testing.T) {
	// The checksum written by the encoder is the one the decoder computes
	for cmd := 0; cmd <= 0xFF; cmd += 7 {
		for _, param := range []uint16{0, 1, 0x00FF, 0x0100, 0x7E7E, 0xFFFF} {
			frame := EncodeValue(uint8(cmd), NoFeedback, param)
			raw := frame.Bytes()
			written := uint16(raw[offChecksumMSB])<<8 | uint16(raw[offChecksumLSB])
			if written != ChecksumOf(frame) {
				t.Fatalf("cmd 0x%02X param 0x%04X: written 0x%04X, recomputed 0x%04X",
					cmd, param, written, ChecksumOf(frame))
			}
		}
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	for cmd := 0; cmd <= 0xFF; cmd++ {
		for _, fb := range []uint8{NoFeedback, Feedback} {
			frame := Encode(uint8(cmd), fb, uint8(cmd*3), uint8(255-cmd))
			parsed, err := ParseFrame(frame.Bytes())
			if err != nil {
				t.Fatalf("cmd 0x%02X: parse error: %v", cmd, err)
			}
			if parsed != frame {
				t.Fatalf("cmd 0x%02X: round trip mismatch: %+v != %+v", cmd, parsed, frame)
			}
		}
	}
}

func TestFrame_AppendBytes(t *testing.T) {
	buf := []byte{0xAA}
	buf = Encode(CmdNext, NoFeedback, 0, 1).AppendBytes(buf)
	if len(buf) != 1+FrameSize {
		t.Fatalf("Expected %d bytes, got %d", 1+FrameSize, len(buf))
	}
	if buf[0] != 0xAA || buf[1] != StartByte || buf[len(buf)-1] != EndByte {
		t.Errorf("Unexpected layout: % X", buf)
	}
}

func TestParseFrame_WrongLength(t *testing.T) {
	if _, err := ParseFrame([]byte{0x7E, 0xFF}); err == nil {
		t.Error("Expected error for short frame")
	}
}

func TestParseFrame_BadStart(t *testing.T) {
	raw := Encode(CmdNext, NoFeedback, 0, 1).Bytes()
	raw[0] = 0x00
	_, err := ParseFrame(raw)
	if !errors.Is(err, ErrBadStart) {
		t.Errorf("Expected ErrBadStart, got %v", err)
	}
}

func TestFrame_String(t *testing.T) {
	s := Encode(CmdVolume, NoFeedback, 0, 20).String()
	if !strings.Contains(s, "SET_VOLUME") || !strings.Contains(s, "0x0014") {
		t.Errorf("Unexpected frame string: %s", s)
	}
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{0x7E, 0xFF, 0x06})
	if d.State() != AwaitCommand {
		t.Fatalf("Expected AwaitCommand, got %s", d.State())
	}
	if len(d.RawBytes()) != 3 {
		t.Errorf("Expected 3 raw bytes, got %d", len(d.RawBytes()))
	}

	d.Reset()
	if d.State() != AwaitStart {
		t.Errorf("Expected AwaitStart after reset, got %s", d.State())
	}
	if len(d.RawBytes()) != 0 {
		t.Error("Expected raw bytes to be cleared after reset")
	}
}

func TestDecoder_SimpleFrame(t *testing.T) {
	want := Encode(QueryVolume, NoFeedback, 0x00, 0x19)
	d := NewDecoder()

	raw := want.Bytes()
	for i, b := range raw {
		frame, err := d.DecodeByte(b)
		if err != nil {
			t.Fatalf("Byte %d: unexpected error: %v", i, err)
		}
		if i < len(raw)-1 && frame != nil {
			t.Fatalf("Byte %d: frame completed early", i)
		}
		if i == len(raw)-1 {
			if frame == nil {
				t.Fatal("Expected frame on end marker")
			}
			if *frame != want {
				t.Errorf("Frame mismatch: %+v != %+v", *frame, want)
			}
		}
	}
	if d.State() != AwaitStart {
		t.Errorf("Expected AwaitStart after frame, got %s", d.State())
	}
}

func TestDecoder_StateProgression(t *testing.T) {
	d := NewDecoder()
	raw := Encode(CmdNext, NoFeedback, 0, 1).Bytes()
	for i, b := range raw[:FrameSize-1] {
		d.DecodeByte(b)
		if d.State() != DecoderState(i+1) {
			t.Fatalf("After byte %d: expected %s, got %s", i, DecoderState(i+1), d.State())
		}
	}
}

func TestDecoder_BackToBackFrames(t *testing.T) {
	var stream []byte
	for i := 0; i < 5; i++ {
		stream = append(stream, EncodeValue(QuerySDTrack, NoFeedback, uint16(i)).Bytes()...)
	}

	frames, errs := feedAll(stream)
	if len(errs) != 0 {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(frames) != 5 {
		t.Fatalf("Expected 5 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Value() != uint16(i) {
			t.Errorf("Frame %d: expected value %d, got %d", i, i, f.Value())
		}
	}
}

func TestDecoder_SkipsGarbageBeforeStart(t *testing.T) {
	want := Encode(CmdTrackFinishedSD, NoFeedback, 0, 7)
	stream := append([]byte{0x00, 0x12, 0xEF, 0xFF}, want.Bytes()...)

	d := NewDecoder()
	frames, errs := d.Feed(stream)
	if len(errs) != 0 {
		t.Fatalf("Garbage before start should not produce errors, got %v", errs)
	}
	if len(frames) != 1 || frames[0] != want {
		t.Fatalf("Expected one frame %+v, got %+v", want, frames)
	}
	if d.SkippedBytes() != 4 {
		t.Errorf("Expected 4 skipped bytes, got %d", d.SkippedBytes())
	}
}

func TestDecoder_Resync(t *testing.T) {
	want := Encode(QueryVolume, NoFeedback, 0, 15)

	// 7E then 00 fails the version check; AA is garbage
	stream := []byte{0x00, 0x55, 0x7E, 0x00, 0xAA}
	stream = append(stream, want.Bytes()...)

	frames, errs := feedAll(stream)
	if len(frames) != 1 || frames[0] != want {
		t.Fatalf("Expected one frame %+v, got %+v", want, frames)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrBadVersion) {
		t.Fatalf("Expected one ErrBadVersion, got %v", errs)
	}
}

func TestDecoder_RejectionReasons(t *testing.T) {
	valid := Encode(QueryStatus, NoFeedback, 0x02, 0x01).Bytes()

	tests := []struct {
		name   string
		offset int
		value  byte
		err    error
		state  DecoderState
	}{
		{"bad version", offVersion, 0xFE, ErrBadVersion, AwaitVersion},
		{"bad length", offLength, 0x07, ErrBadLength, AwaitLength},
		{"bad checksum", offChecksumLSB, valid[offChecksumLSB] ^ 0x01, ErrChecksum, AwaitChecksumLSB},
		{"bad end marker", offEnd, 0xEE, ErrBadEndMarker, AwaitEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append([]byte(nil), valid...)
			raw[tt.offset] = tt.value

			d := NewDecoder()
			frames, errs := d.Feed(raw[:tt.offset+1])
			if len(frames) != 0 {
				t.Fatalf("Expected no frames, got %d", len(frames))
			}
			if len(errs) != 1 {
				t.Fatalf("Expected one error, got %v", errs)
			}
			if !errors.Is(errs[0], tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, errs[0])
			}
			var decErr *DecodeError
			if !errors.As(errs[0], &decErr) {
				t.Fatalf("Expected *DecodeError, got %T", errs[0])
			}
			if decErr.State != tt.state {
				t.Errorf("Expected state %s, got %s", tt.state, decErr.State)
			}
			if d.State() != AwaitStart {
				t.Errorf("Decoder should return to AwaitStart, got %s", d.State())
			}
		})
	}
}

func TestDecoder_ChecksumErrorValues(t *testing.T) {
	frame := Encode(QueryVolume, NoFeedback, 0, 10)
	raw := frame.Bytes()
	raw[offChecksumMSB] = 0x00
	raw[offChecksumLSB] = 0x00

	_, errs := feedAll(raw)
	if len(errs) != 1 {
		t.Fatalf("Expected one error, got %v", errs)
	}
	var decErr *DecodeError
	if !errors.As(errs[0], &decErr) {
		t.Fatalf("Expected *DecodeError, got %T", errs[0])
	}
	if decErr.Received != 0 || decErr.Calculated != frame.Checksum() {
		t.Errorf("Expected received 0x0000 calculated 0x%04X, got 0x%04X 0x%04X",
			frame.Checksum(), decErr.Received, decErr.Calculated)
	}
	if !strings.Contains(decErr.Error(), "checksum mismatch") {
		t.Errorf("Unexpected error text: %s", decErr.Error())
	}
}

func TestDecoder_FailingByteNotReexamined(t *testing.T) {
	// A start marker in the version slot fails the frame and is consumed
	want := Encode(CmdAck, NoFeedback, 0, 0)
	stream := append([]byte{0x7E, 0x7E}, want.Bytes()[1:]...)

	frames, errs := feedAll(stream)
	if len(frames) != 0 {
		t.Errorf("Expected no frames, got %+v", frames)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrBadVersion) {
		t.Errorf("Expected one ErrBadVersion, got %v", errs)
	}
}

func TestDecoder_SingleBitFlipRejected(t *testing.T) {
	valid := Encode(CmdPlay, NoFeedback, 0x01, 0x2C).Bytes()

	for offset := 0; offset < FrameSize; offset++ {
		for bit := 0; bit < 8; bit++ {
			raw := append([]byte(nil), valid...)
			raw[offset] ^= 1 << bit

			frames, errs := feedAll(raw)
			if len(frames) != 0 {
				t.Fatalf("offset %d bit %d: corrupted frame accepted", offset, bit)
			}
			if offset >= offCommand && offset <= offChecksumLSB {
				if len(errs) != 1 || !errors.Is(errs[0], ErrChecksum) {
					t.Fatalf("offset %d bit %d: expected checksum error, got %v", offset, bit, errs)
				}
			}
		}
	}
}

func TestDecoder_InvalidState(t *testing.T) {
	d := NewDecoder()
	d.state = DecoderState(99)
	_, err := d.DecodeByte(0x00)
	if err == nil {
		t.Error("Expected error for invalid state")
	}
	if d.State() != AwaitStart {
		t.Errorf("Expected AwaitStart after invalid state, got %s", d.State())
	}
}

func TestDecoderState_String(t *testing.T) {
	if AwaitChecksumMSB.String() != "AWAIT_CHECKSUM_MSB" {
		t.Errorf("Unexpected name: %s", AwaitChecksumMSB)
	}
	if DecoderState(42).String() != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN, got %s", DecoderState(42))
	}
}

// ============================================================
// Catalog Tests
// ============================================================

func TestCatalog_BoundaryValues(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name   string
		action string
		args   []int
		ok     bool
		msb    uint8
		lsb    uint8
	}{
		{"volume 30", "volume", []int{30}, true, 0x00, 0x1E},
		{"volume 31", "volume", []int{31}, false, 0, 0},
		{"volume negative", "volume", []int{-1}, false, 0, 0},
		{"eq 5", "eq", []int{5}, true, 0x00, 0x05},
		{"eq 6", "eq", []int{6}, false, 0, 0},
		{"gain 0", "gain", []int{0}, true, 0x00, 0x10},
		{"gain 31", "gain", []int{31}, true, 0x00, 0x2F},
		{"gain 32", "gain", []int{32}, false, 0, 0},
		{"source 0", "source", []int{0}, false, 0, 0},
		{"source 1", "source", []int{1}, true, 0x00, 0x01},
		{"source 5", "source", []int{5}, true, 0x00, 0x05},
		{"source 6", "source", []int{6}, false, 0, 0},
		{"play-track 300", "play-track", []int{300}, true, 0x01, 0x2C},
		{"play-track 65536", "play-track", []int{65536}, false, 0, 0},
		{"play-track 70000", "play-track", []int{70000}, false, 0, 0},
		{"play-track negative", "play-track", []int{-1}, false, 0, 0},
		{"play-folder 2 17", "play-folder", []int{2, 17}, true, 0x02, 0x11},
		{"play-folder track 256", "play-folder", []int{1, 256}, false, 0, 0},
		{"large folder pack", "play-large-folder", []int{3, 100}, true, 0x30, 0x64},
		{"large folder max", "play-large-folder", []int{15, 4095}, true, 0xFF, 0xFF},
		{"large folder 16", "play-large-folder", []int{16, 1}, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, ok, err := c.Build(tt.action, tt.args...)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if ok != tt.ok {
				t.Fatalf("Expected ok=%t, got %t", tt.ok, ok)
			}
			if !ok {
				if frame != (Frame{}) {
					t.Errorf("Rejected action should return zero frame, got %+v", frame)
				}
				return
			}
			if frame.ParamMSB != tt.msb || frame.ParamLSB != tt.lsb {
				t.Errorf("Expected params %02X %02X, got %02X %02X",
					tt.msb, tt.lsb, frame.ParamMSB, frame.ParamLSB)
			}
			if frame.Feedback != NoFeedback {
				t.Error("Catalog frames should not request feedback")
			}
		})
	}
}

func TestCatalog_SentinelParams(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		action string
		code   uint8
		msb    uint8
		lsb    uint8
	}{
		{"next", CmdNext, 0, 1},
		{"previous", CmdPrevious, 0, 1},
		{"volume-up", CmdVolumeUp, 0, 1},
		{"volume-down", CmdVolumeDown, 0, 1},
		{"standby", CmdStandby, 0, 1},
		{"normal", CmdNormal, 0, 1},
		{"reset", CmdReset, 0, 1},
		{"resume", CmdPlay, 0, 1},
		{"play", CmdPlay, 0, 1},
		{"pause", CmdPause, 0, 1},
		{"repeat-play-start", CmdRepeatPlay, 0, 1},
		{"repeat-play-stop", CmdRepeatPlay, 0, 0},
		{"advert-stop", CmdStopAdvert, 0, 0},
		{"stop", CmdStop, 0, 0},
		{"random-all", CmdRandomAll, 0, 0},
		{"repeat-current-start", CmdRepeatCurrent, 0, 0},
		{"repeat-current-stop", CmdRepeatCurrent, 0, 1},
		{"dac-on", CmdSetDAC, 0, 0},
		{"dac-off", CmdSetDAC, 0, 1},
		{"sleep", CmdPlaybackSource, 0, SourceSleep},
		{"wake", CmdPlaybackSource, 0, SourceSD},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			frame, ok, err := c.Build(tt.action)
			if err != nil || !ok {
				t.Fatalf("Build failed: ok=%t err=%v", ok, err)
			}
			want := Encode(tt.code, NoFeedback, tt.msb, tt.lsb)
			if frame != want {
				t.Errorf("Expected %+v, got %+v", want, frame)
			}
		})
	}
}

func TestCatalog_UnknownAndArgCount(t *testing.T) {
	c := DefaultCatalog()

	if _, _, err := c.Build("warp-speed"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}
	if _, _, err := c.Build("volume"); !errors.Is(err, ErrArgCount) {
		t.Errorf("Expected ErrArgCount for missing arg, got %v", err)
	}
	if _, _, err := c.Build("next", 1); !errors.Is(err, ErrArgCount) {
		t.Errorf("Expected ErrArgCount for extra arg, got %v", err)
	}
	if _, _, err := c.BuildQuery("next"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Actions should not resolve as queries, got %v", err)
	}
}

func TestCatalog_QueryNamespace(t *testing.T) {
	c := DefaultCatalog()

	action, ok := c.Lookup("volume")
	if !ok || action.Code != CmdVolume || action.Query {
		t.Errorf("Expected volume action 0x06, got %+v", action)
	}
	query, ok := c.LookupQuery("volume")
	if !ok || query.Code != QueryVolume || !query.Query {
		t.Errorf("Expected volume query 0x43, got %+v", query)
	}

	frame, ok, err := c.BuildQuery("folder-tracks", 0x0102)
	if err != nil || !ok {
		t.Fatalf("BuildQuery failed: ok=%t err=%v", ok, err)
	}
	if frame != Encode(QueryFolderTracks, NoFeedback, 0x01, 0x02) {
		t.Errorf("Unexpected folder-tracks frame %+v", frame)
	}
}

func TestCatalog_Listings(t *testing.T) {
	c := DefaultCatalog()

	actions := c.Actions()
	for i := 1; i < len(actions); i++ {
		if actions[i].Code < actions[i-1].Code {
			t.Fatalf("Actions not ordered by code at %d", i)
		}
	}
	for _, s := range actions {
		if s.Query {
			t.Errorf("Query %s listed as action", s.Name)
		}
	}
	if len(c.Queries()) != 14 {
		t.Errorf("Expected 14 queries, got %d", len(c.Queries()))
	}

	spec, _ := c.Lookup("play-folder")
	if spec.Usage() != "play-folder <folder> <track>" {
		t.Errorf("Unexpected usage: %s", spec.Usage())
	}
}

// ============================================================
// Error Translator Tests
// ============================================================

func TestDescribe_KnownCodes(t *testing.T) {
	tests := []struct {
		code  uint8
		cause ErrorCause
		text  string
	}{
		{0x01, CauseBusy, "Module busy"},
		{0x02, CauseSleeping, "sleep mode"},
		{0x03, CauseIncompleteFrame, "Serial receiving error"},
		{0x04, CauseChecksum, "Checksum incorrect"},
		{0x05, CauseTrackOutOfRange, "Specified track is out of current track scope"},
		{0x06, CauseTrackNotFound, "Specified track is not found"},
		{0x07, CauseInsertion, "Insertion error"},
		{0x08, CauseMediumRead, "SD card reading failed"},
		{0x0A, CauseEnteredSleep, "Entered into sleep mode"},
	}

	for _, tt := range tests {
		d := Describe(tt.code)
		if d.Cause != tt.cause || !d.Known() {
			t.Errorf("Code 0x%02X: expected cause %d, got %d", tt.code, tt.cause, d.Cause)
		}
		if !strings.Contains(d.Message, tt.text) {
			t.Errorf("Code 0x%02X: expected %q in %q", tt.code, tt.text, d.Message)
		}
	}
}

func TestDescribe_TrackOutOfRangeExact(t *testing.T) {
	if msg := Describe(0x05).String(); msg != "Specified track is out of current track scope" {
		t.Errorf("Unexpected description: %q", msg)
	}
}

func TestDescribe_Total(t *testing.T) {
	for code := 0; code <= 0xFF; code++ {
		d := Describe(uint8(code))
		if d.Message == "" {
			t.Fatalf("Code 0x%02X has no description", code)
		}
		if d.Code != uint8(code) {
			t.Fatalf("Code 0x%02X described as 0x%02X", code, d.Code)
		}
	}
	if msg := Describe(0x09).Message; msg != "unknown error, code=9" {
		t.Errorf("Unexpected unknown description: %q", msg)
	}
}

func TestDeviceError(t *testing.T) {
	var err error = &DeviceError{Query: QuerySDTrack, Description: Describe(0x06)}
	if !IsDeviceError(err) {
		t.Error("Expected IsDeviceError to match")
	}
	if !strings.Contains(err.Error(), "GET_SD_CURRENT") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Unexpected error text: %s", err)
	}
	if IsDeviceError(ErrTimeout) {
		t.Error("ErrTimeout is not a device error")
	}
}

// ============================================================
// Event Tests
// ============================================================

func TestClassifyFrame(t *testing.T) {
	tests := []struct {
		name   string
		frame  Frame
		kind   EventKind
		medium Medium
		track  uint16
	}{
		{"sd plugged", Encode(CmdMediumPlugged, 0, 0, 0x02), EventMediumPlugged, MediumSD, 0},
		{"usb removed", Encode(CmdMediumRemoved, 0, 0, 0x01), EventMediumRemoved, MediumUSB, 0},
		{"usb finished", Encode(CmdTrackFinishedUSB, 0, 0x01, 0x00), EventTrackFinished, MediumUSB, 256},
		{"sd finished", Encode(CmdTrackFinishedSD, 0, 0, 7), EventTrackFinished, MediumSD, 7},
		{"flash finished", Encode(CmdTrackFinishedFlash, 0, 0, 3), EventTrackFinished, MediumFlash, 3},
		{"online", Encode(CmdDeviceOnline, 0, 0, 0x02), EventDeviceOnline, MediumSD, 0},
		{"ack", Encode(CmdAck, 0, 0, 0), EventAck, 0, 0},
		{"stray reply", Encode(QueryVolume, 0, 0, 20), EventStrayReply, 0, 0},
		{"unknown", Encode(0x30, 0, 0, 0), EventUnknown, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ClassifyFrame(tt.frame)
			if e.Kind != tt.kind {
				t.Errorf("Expected %s, got %s", tt.kind, e.Kind)
			}
			if e.Medium != tt.medium {
				t.Errorf("Expected medium %s, got %s", tt.medium, e.Medium)
			}
			if e.Track != tt.track {
				t.Errorf("Expected track %d, got %d", tt.track, e.Track)
			}
			if e.Frame != tt.frame {
				t.Error("Event should carry its frame")
			}
		})
	}
}

func TestClassifyFrame_Error(t *testing.T) {
	e := ClassifyFrame(Encode(CmdError, 0, 0, 0x08))
	if e.Kind != EventError || e.Error.Cause != CauseMediumRead {
		t.Errorf("Unexpected error event: %+v", e)
	}
	if !strings.Contains(e.String(), "SD card reading failed") {
		t.Errorf("Unexpected event string: %s", e)
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		cmd      uint8
		expected string
	}{
		{CmdNext, "NEXT"},
		{CmdPlay, "PLAY"},
		{CmdSetDAC, "SET_DAC"},
		{CmdTrackFinishedSD, "TRACK_FINISHED_SD"},
		{CmdError, "ERROR"},
		{CmdAck, "ACK"},
		{QueryFolders, "GET_FOLDERS"},
		{0xFF, "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := FormatCommand(tt.cmd); got != tt.expected {
			t.Errorf("FormatCommand(0x%02X) = %s, expected %s", tt.cmd, got, tt.expected)
		}
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		name     string
		frame    Frame
		contains string
	}{
		{"error", Encode(CmdError, 0, 0, 0x04), "Checksum incorrect"},
		{"media", Encode(CmdMediumPlugged, 0, 0, 0x03), "USB|SD"},
		{"eq", Encode(CmdEQ, 0, 0, EQJazz), "JAZZ"},
		{"source", Encode(CmdPlaybackSource, 0, 0, SourceSleep), "SLEEP"},
		{"gain", Encode(CmdVolumeGain, 0, 0, 0x2F), "Gain: 31"},
		{"large folder", Encode(CmdPlayLargeFolder, 0, 0x30, 0x64), "Folder: 3, Track: 100"},
		{"status", Encode(QueryStatus, 0, 0x02, 0x01), "Playing: Yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatParam(tt.frame); !strings.Contains(got, tt.contains) {
				t.Errorf("Expected %q in %q", tt.contains, got)
			}
		})
	}

	if got := FormatParam(Encode(CmdNext, 0, 0, 1)); got != "" {
		t.Errorf("Expected no detail for NEXT, got %q", got)
	}
}

func TestFormatFrame(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 30, 45, 123000000, time.UTC)
	out := FormatFrame(Encode(CmdTrackFinishedSD, 0, 0, 9), ts)

	if !strings.HasPrefix(out, "[12:30:45.123] TRACK_FINISHED_SD (0x3D)") {
		t.Errorf("Unexpected prefix: %s", out)
	}
	if !strings.Contains(out, "Track: 9") {
		t.Errorf("Expected track detail: %s", out)
	}
}

func TestFormatHex(t *testing.T) {
	raw := Encode(CmdNext, NoFeedback, 0, 1).Bytes()
	if got := FormatHex(raw, ":"); got != "7e:ff:06:01:00:00:01:fe:f9:ef" {
		t.Errorf("Unexpected hex dump: %s", got)
	}
	if got := FormatHex(nil, ":"); got != "" {
		t.Errorf("Expected empty dump, got %q", got)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_NewStatistics(t *testing.T) {
	s := NewStatistics()
	if s.TotalFrames != 0 || s.ValidFrames != 0 {
		t.Error("New statistics should start at zero")
	}
	if s.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()
	frame := Encode(CmdAck, 0, 0, 0)

	s.Update(&frame, nil)
	s.Update(nil, &DecodeError{Err: ErrChecksum})
	s.Update(nil, &DecodeError{Err: ErrBadEndMarker})
	s.Update(nil, &DecodeError{Err: ErrBadVersion})

	if s.TotalFrames != 4 || s.ValidFrames != 1 {
		t.Errorf("Expected 4 total 1 valid, got %d %d", s.TotalFrames, s.ValidFrames)
	}
	if s.ChecksumErrors != 1 || s.FramingErrors != 2 {
		t.Errorf("Expected 1 checksum 2 framing, got %d %d", s.ChecksumErrors, s.FramingErrors)
	}
}

func TestStatistics_RecordQuery(t *testing.T) {
	s := NewStatistics()
	s.RecordQuery(nil)
	s.RecordQuery(ErrTimeout)
	s.RecordQuery(&DeviceError{Description: Describe(5)})

	if s.Queries != 3 || s.Replies != 1 || s.Timeouts != 1 || s.DeviceErrors != 1 {
		t.Errorf("Unexpected query counters: %+v", s)
	}
}

func TestStatistics_ResetAndString(t *testing.T) {
	s := NewStatistics()
	s.Update(nil, &DecodeError{Err: ErrChecksum})
	s.RecordQuery(ErrTimeout)

	out := s.String()
	for _, want := range []string{"Total Frames:", "Checksum Errors:", "Timeouts:", "Frame Rate:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in summary:\n%s", want, out)
		}
	}

	s.Reset()
	if s.TotalFrames != 0 || s.ChecksumErrors != 0 || s.Queries != 0 {
		t.Error("Reset should clear counters")
	}
}
