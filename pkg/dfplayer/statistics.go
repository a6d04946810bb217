// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame, error and query counts for one link.
// It is not safe for concurrent use; Client guards its copy with its mutex.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Receive counters
	TotalFrames    uint64 // frames completed or rejected
	ValidFrames    uint64
	ChecksumErrors uint64
	FramingErrors  uint64 // bad version, length or end marker
	SkippedBytes   uint64 // garbage discarded while hunting for a start marker
	Events         uint64

	// Transmit and query counters
	SentFrames    uint64
	Queries       uint64
	Replies       uint64
	Timeouts      uint64
	DeviceErrors  uint64
	DroppedInputs uint64 // actions rejected by their validity rule

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one decoder outcome: a completed frame or a decode error
func (s *Statistics) Update(frame *Frame, decodeErr error) {
	s.TotalFrames++

	if decodeErr != nil {
		if errors.Is(decodeErr, ErrChecksum) {
			s.ChecksumErrors++
		} else {
			s.FramingErrors++
		}
	} else if frame != nil {
		s.ValidFrames++
	}

	s.LastUpdateTime = time.Now()
}

// RecordQuery records the outcome of a query
func (s *Statistics) RecordQuery(err error) {
	s.Queries++
	switch {
	case err == nil:
		s.Replies++
	case errors.Is(err, ErrTimeout):
		s.Timeouts++
	case IsDeviceError(err):
		s.DeviceErrors++
	}
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ChecksumErrors+s.FramingErrors) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, checksumPercent, framingPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		checksumPercent = float64(s.ChecksumErrors) * 100.0 / float64(s.TotalFrames)
		framingPercent = float64(s.FramingErrors) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, checksumPercent)
	}
	if s.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d (%.1f%%)\n", s.FramingErrors, framingPercent)
	}
	if s.SkippedBytes > 0 {
		result += fmt.Sprintf("Skipped Bytes:   %8d\n", s.SkippedBytes)
	}
	if s.Events > 0 {
		result += fmt.Sprintf("Events:          %8d\n", s.Events)
	}
	if s.SentFrames > 0 {
		result += fmt.Sprintf("Sent Frames:     %8d\n", s.SentFrames)
	}
	if s.Queries > 0 {
		result += fmt.Sprintf("Queries:         %8d\n", s.Queries)
		result += fmt.Sprintf("  Replies:          %5d\n", s.Replies)
		if s.Timeouts > 0 {
			result += fmt.Sprintf("  Timeouts:         %5d\n", s.Timeouts)
		}
		if s.DeviceErrors > 0 {
			result += fmt.Sprintf("  Device Errors:    %5d\n", s.DeviceErrors)
		}
	}
	if s.DroppedInputs > 0 {
		result += fmt.Sprintf("Dropped Inputs:  %8d\n", s.DroppedInputs)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
