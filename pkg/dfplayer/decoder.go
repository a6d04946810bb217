// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"errors"
	"fmt"
)

// Decode failures. A *DecodeError wraps exactly one of these.
var (
	ErrBadStart     = errors.New("bad start marker")
	ErrBadVersion   = errors.New("bad version byte")
	ErrBadLength    = errors.New("bad length byte")
	ErrChecksum     = errors.New("checksum mismatch")
	ErrBadEndMarker = errors.New("bad end marker")
)

// DecodeError describes a rejected frame. The decoder has already returned
// to AwaitStart when it is reported.
type DecodeError struct {
	Err   error
	State DecoderState // state in which the bad byte arrived
	Got   byte

	// Checksum values, set for ErrChecksum only
	Received   uint16
	Calculated uint16
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrChecksum) {
		return fmt.Sprintf("checksum mismatch: expected 0x%04X, got 0x%04X", e.Calculated, e.Received)
	}
	return fmt.Sprintf("%v in %s: got 0x%02X", e.Err, e.State, e.Got)
}

// Unwrap returns the underlying sentinel
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder implements the DFPlayer frame decoder state machine.
//
// It consumes a byte stream one byte at a time and never blocks. Every
// failure returns it to AwaitStart, so no input can leave it stuck.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	state    DecoderState
	frame    Frame
	checksum uint16
	skipped  uint64
	raw      []byte // Bytes of the frame in progress, starting at the start marker
}

// NewDecoder creates a new protocol decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state: AwaitStart,
		raw:   make([]byte, 0, FrameSize),
	}
}

// Reset returns the decoder to AwaitStart and drops the frame in progress
func (d *Decoder) Reset() {
	d.state = AwaitStart
	d.frame = Frame{}
	d.checksum = 0
	d.raw = d.raw[:0]
}

// State returns the decoder's current position in the frame
func (d *Decoder) State() DecoderState {
	return d.state
}

// RawBytes returns the bytes accumulated for the frame in progress
func (d *Decoder) RawBytes() []byte {
	return d.raw
}

// SkippedBytes returns the number of bytes discarded while hunting for a
// start marker since the decoder was created
func (d *Decoder) SkippedBytes() uint64 {
	return d.skipped
}

// Feed processes all available bytes and returns the frames completed and
// the decode failures seen, in arrival order within each slice.
func (d *Decoder) Feed(p []byte) ([]Frame, []error) {
	var frames []Frame
	var errs []error
	for _, b := range p {
		frame, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame != nil {
			frames = append(frames, *frame)
		}
	}
	return frames, errs
}

// DecodeByte processes a single byte through the decoder state machine
// Returns a completed frame, or nil if the frame is incomplete
// Returns an error if the byte caused the frame to be rejected
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case AwaitStart:
		// Garbage before a start marker is discarded
		if b != StartByte {
			d.skipped++
			return nil, nil
		}
		d.raw = append(d.raw[:0], b)
		d.state = AwaitVersion
		return nil, nil

	case AwaitVersion:
		if b != VersionByte {
			return d.fail(ErrBadVersion, b)
		}
		d.advance(b)
		return nil, nil

	case AwaitLength:
		if b != LengthByte {
			return d.fail(ErrBadLength, b)
		}
		d.advance(b)
		return nil, nil

	case AwaitCommand:
		d.frame.Command = b
		d.advance(b)
		return nil, nil

	case AwaitFeedback:
		d.frame.Feedback = b
		d.advance(b)
		return nil, nil

	case AwaitParamMSB:
		d.frame.ParamMSB = b
		d.advance(b)
		return nil, nil

	case AwaitParamLSB:
		d.frame.ParamLSB = b
		d.advance(b)
		return nil, nil

	case AwaitChecksumMSB:
		d.checksum = uint16(b) << 8
		d.advance(b)
		return nil, nil

	case AwaitChecksumLSB:
		d.checksum |= uint16(b)
		calculated := ChecksumOf(d.frame)
		if d.checksum != calculated {
			err := &DecodeError{
				Err:        ErrChecksum,
				State:      AwaitChecksumLSB,
				Got:        b,
				Received:   d.checksum,
				Calculated: calculated,
			}
			d.Reset()
			return nil, err
		}
		d.advance(b)
		return nil, nil

	case AwaitEnd:
		if b != EndByte {
			return d.fail(ErrBadEndMarker, b)
		}
		frame := d.frame
		d.Reset()
		return &frame, nil

	default:
		state := d.state
		d.Reset()
		return nil, fmt.Errorf("invalid decoder state: %d", state)
	}
}

// advance records b and moves to the next offset
func (d *Decoder) advance(b byte) {
	d.raw = append(d.raw, b)
	d.state++
}

// fail rejects the frame in progress. The failing byte is not re-examined
// as a start marker; the next byte begins a fresh scan.
func (d *Decoder) fail(sentinel error, b byte) (*Frame, error) {
	err := &DecodeError{Err: sentinel, State: d.state, Got: b}
	d.Reset()
	return nil, err
}
