// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Capture direction
const (
	DirRx uint8 = 0 // module → host
	DirTx uint8 = 1 // host → module
)

// CaptureRecord is one chunk of link traffic. A capture file is a CBOR
// sequence of records.
type CaptureRecord struct {
	Time      int64  `cbor:"0,keyasint"` // Unix nanoseconds
	Direction uint8  `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint"`
}

// Timestamp returns the record time
func (r CaptureRecord) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// CaptureWriter appends records to a capture stream
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter creates a capture writer
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: cbor.NewEncoder(w)}
}

// Write records data seen in direction dir at time t
func (cw *CaptureWriter) Write(t time.Time, dir uint8, data []byte) error {
	rec := CaptureRecord{
		Time:      t.UnixNano(),
		Direction: dir,
		Data:      append([]byte(nil), data...),
	}
	if err := cw.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	return nil
}

// CaptureReader reads records from a capture stream
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader creates a capture reader
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream
func (cr *CaptureReader) Next() (CaptureRecord, error) {
	var rec CaptureRecord
	if err := cr.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return CaptureRecord{}, io.EOF
		}
		return CaptureRecord{}, fmt.Errorf("failed to decode capture record: %w", err)
	}
	return rec, nil
}

// ReplayCapture feeds every record of a capture stream through a decoder
// per direction and calls visit with each decoded frame or decode error.
// Returns the receive-side statistics.
func ReplayCapture(r io.Reader, visit func(rec CaptureRecord, frame *Frame, err error)) (*Statistics, error) {
	reader := NewCaptureReader(r)
	decoders := map[uint8]*Decoder{DirRx: NewDecoder(), DirTx: NewDecoder()}
	stats := NewStatistics()

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}

		d, ok := decoders[rec.Direction]
		if !ok {
			return stats, fmt.Errorf("unknown capture direction %d", rec.Direction)
		}

		for _, b := range rec.Data {
			frame, decErr := d.DecodeByte(b)
			if frame == nil && decErr == nil {
				continue
			}
			if rec.Direction == DirRx {
				stats.Update(frame, decErr)
			} else if frame != nil {
				stats.SentFrames++
			}
			if visit != nil {
				visit(rec, frame, decErr)
			}
		}
	}

	stats.SkippedBytes = decoders[DirRx].SkippedBytes()
	return stats, nil
}
