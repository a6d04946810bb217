// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"errors"
	"fmt"
)

// Query failures
var (
	// ErrBusy is returned by Ask when another query is already in flight.
	// Nothing is transmitted.
	ErrBusy = errors.New("query already in flight")

	// ErrTimeout is returned by Ask when no matching response arrived
	// before the deadline.
	ErrTimeout = errors.New("query timed out")
)

// ErrorCause classifies the error codes the module reports with CmdError
type ErrorCause int

// Error causes
const (
	CauseUnknown ErrorCause = iota
	CauseBusy
	CauseSleeping
	CauseIncompleteFrame
	CauseChecksum
	CauseTrackOutOfRange
	CauseTrackNotFound
	CauseInsertion
	CauseMediumRead
	CauseEnteredSleep
)

// Module error codes (CmdError parameter LSB)
const (
	ErrCodeBusy            = 0x01
	ErrCodeSleeping        = 0x02
	ErrCodeIncompleteFrame = 0x03
	ErrCodeChecksum        = 0x04
	ErrCodeTrackOutOfRange = 0x05
	ErrCodeTrackNotFound   = 0x06
	ErrCodeInsertion       = 0x07
	ErrCodeMediumRead      = 0x08
	ErrCodeEnteredSleep    = 0x0A
)

// ErrorDescription is the translation of a module error code
type ErrorDescription struct {
	Code    uint8
	Cause   ErrorCause
	Message string
}

// Known returns true if the code is one the module documents
func (d ErrorDescription) Known() bool {
	return d.Cause != CauseUnknown
}

// String returns the description message
func (d ErrorDescription) String() string {
	return d.Message
}

var errorTable = map[uint8]ErrorDescription{
	ErrCodeBusy: {
		Code: ErrCodeBusy, Cause: CauseBusy,
		Message: "Module busy (initialization is not done)",
	},
	ErrCodeSleeping: {
		Code: ErrCodeSleeping, Cause: CauseSleeping,
		Message: "Currently in sleep mode (only the specified device is supported in sleep mode)",
	},
	ErrCodeIncompleteFrame: {
		Code: ErrCodeIncompleteFrame, Cause: CauseIncompleteFrame,
		Message: "Serial receiving error (a frame has not been received completely yet)",
	},
	ErrCodeChecksum: {
		Code: ErrCodeChecksum, Cause: CauseChecksum,
		Message: "Checksum incorrect",
	},
	ErrCodeTrackOutOfRange: {
		Code: ErrCodeTrackOutOfRange, Cause: CauseTrackOutOfRange,
		Message: "Specified track is out of current track scope",
	},
	ErrCodeTrackNotFound: {
		Code: ErrCodeTrackNotFound, Cause: CauseTrackNotFound,
		Message: "Specified track is not found",
	},
	ErrCodeInsertion: {
		Code: ErrCodeInsertion, Cause: CauseInsertion,
		Message: "Insertion error (an advertisement can only be inserted while a track is playing)",
	},
	ErrCodeMediumRead: {
		Code: ErrCodeMediumRead, Cause: CauseMediumRead,
		Message: "SD card reading failed (SD card pulled out or damaged)",
	},
	ErrCodeEnteredSleep: {
		Code: ErrCodeEnteredSleep, Cause: CauseEnteredSleep,
		Message: "Entered into sleep mode",
	},
}

// Describe translates a module error code. Every byte has a description;
// codes the module does not document get a generic one.
func Describe(code uint8) ErrorDescription {
	if d, ok := errorTable[code]; ok {
		return d
	}
	return ErrorDescription{
		Code:    code,
		Cause:   CauseUnknown,
		Message: fmt.Sprintf("unknown error, code=%d", code),
	}
}

// DeviceError is returned by a query when the module answers with CmdError.
type DeviceError struct {
	// Query is the command that was being asked
	Query uint8

	// Description is the translated error code
	Description ErrorDescription
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", FormatCommand(e.Query), e.Description.Message, e.Description.Code)
}

// Cause returns the classified cause of the device error
func (e *DeviceError) Cause() ErrorCause {
	return e.Description.Cause
}

// IsDeviceError returns true if err is or wraps a *DeviceError.
func IsDeviceError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr)
}
