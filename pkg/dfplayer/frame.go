// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import "fmt"

// Frame is a DFPlayer protocol frame.
//
// Only the variable fields are stored. The start, version, length and end
// bytes are protocol constants and the checksum is derived from the other
// fields, so every Frame value is well-formed on the wire.
type Frame struct {
	Command  uint8
	Feedback uint8
	ParamMSB uint8
	ParamLSB uint8
}

// Encode builds a frame from its variable fields. Out-of-range values are
// the caller's problem: each field is a single byte on the wire.
func Encode(command, feedback, paramMSB, paramLSB uint8) Frame {
	return Frame{
		Command:  command,
		Feedback: feedback,
		ParamMSB: paramMSB,
		ParamLSB: paramLSB,
	}
}

// EncodeValue builds a frame carrying a 16-bit big-endian parameter.
func EncodeValue(command, feedback uint8, value uint16) Frame {
	return Encode(command, feedback, uint8(value>>8), uint8(value))
}

// ChecksumOf recomputes the checksum over version, length, command,
// feedback and both parameter bytes. The decoder validates received
// frames with the same function.
func ChecksumOf(f Frame) uint16 {
	return CalculateChecksum([]byte{
		VersionByte,
		LengthByte,
		f.Command,
		f.Feedback,
		f.ParamMSB,
		f.ParamLSB,
	})
}

// Checksum returns the frame's checksum
func (f Frame) Checksum() uint16 {
	return ChecksumOf(f)
}

// Value returns the 16-bit parameter (MSB << 8 | LSB)
func (f Frame) Value() uint16 {
	return uint16(f.ParamMSB)<<8 | uint16(f.ParamLSB)
}

// RequestsFeedback returns true if the frame asks the module for an ACK
func (f Frame) RequestsFeedback() bool {
	return f.Feedback == Feedback
}

// Bytes returns the 10-byte wire form of the frame.
func (f Frame) Bytes() []byte {
	return f.AppendBytes(make([]byte, 0, FrameSize))
}

// AppendBytes appends the wire form of the frame to buf.
func (f Frame) AppendBytes(buf []byte) []byte {
	crc := ChecksumOf(f)
	return append(buf,
		StartByte,
		VersionByte,
		LengthByte,
		f.Command,
		f.Feedback,
		f.ParamMSB,
		f.ParamLSB,
		byte(crc>>8),
		byte(crc&0xFF),
		EndByte,
	)
}

// String returns a compact representation for logs
func (f Frame) String() string {
	return fmt.Sprintf("%s(0x%02X) fb=%d param=0x%04X", FormatCommand(f.Command), f.Command, f.Feedback, f.Value())
}

// ParseFrame validates a complete 10-byte frame.
// Returns the first decode failure if the bytes are not a well-formed frame.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) != FrameSize {
		return Frame{}, fmt.Errorf("frame must be %d bytes, got %d", FrameSize, len(data))
	}
	if data[offStart] != StartByte {
		return Frame{}, &DecodeError{Err: ErrBadStart, State: AwaitStart, Got: data[offStart]}
	}

	d := NewDecoder()
	for _, b := range data {
		frame, err := d.DecodeByte(b)
		if err != nil {
			return Frame{}, err
		}
		if frame != nil {
			return *frame, nil
		}
	}
	return Frame{}, fmt.Errorf("incomplete frame")
}
