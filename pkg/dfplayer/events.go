// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"fmt"
	"time"
)

// EventKind classifies a frame that did not resolve a query
type EventKind int

// Event kinds
const (
	EventUnknown EventKind = iota
	EventMediumPlugged
	EventMediumRemoved
	EventTrackFinished
	EventDeviceOnline
	EventAck
	EventError
	// EventStrayReply is a query reply with no matching query pending,
	// usually one that arrived after its query timed out
	EventStrayReply
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventMediumPlugged:
		return "MEDIUM_PLUGGED"
	case EventMediumRemoved:
		return "MEDIUM_REMOVED"
	case EventTrackFinished:
		return "TRACK_FINISHED"
	case EventDeviceOnline:
		return "DEVICE_ONLINE"
	case EventAck:
		return "ACK"
	case EventError:
		return "ERROR"
	case EventStrayReply:
		return "STRAY_REPLY"
	default:
		return "UNKNOWN"
	}
}

// Event is a frame delivered outside of query correlation
type Event struct {
	Kind  EventKind
	Frame Frame
	Time  time.Time

	// Medium is set for medium and track-finished events
	Medium Medium

	// Track is set for track-finished events
	Track uint16

	// Error is set for EventError
	Error ErrorDescription
}

// String returns a one-line description of the event
func (e Event) String() string {
	switch e.Kind {
	case EventMediumPlugged, EventMediumRemoved, EventDeviceOnline:
		return fmt.Sprintf("%s %s", e.Kind, formatMedia(uint8(e.Medium)))
	case EventTrackFinished:
		return fmt.Sprintf("%s %s track %d", e.Kind, e.Medium, e.Track)
	case EventError:
		return fmt.Sprintf("%s %s", e.Kind, e.Error.Message)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Frame)
	}
}

// ClassifyFrame turns a received frame into an Event
func ClassifyFrame(f Frame) Event {
	e := Event{Frame: f, Time: time.Now()}

	switch f.Command {
	case CmdMediumPlugged:
		e.Kind = EventMediumPlugged
		e.Medium = Medium(f.ParamLSB)
	case CmdMediumRemoved:
		e.Kind = EventMediumRemoved
		e.Medium = Medium(f.ParamLSB)
	case CmdDeviceOnline:
		e.Kind = EventDeviceOnline
		e.Medium = Medium(f.ParamLSB)
	case CmdTrackFinishedUSB:
		e.Kind = EventTrackFinished
		e.Medium = MediumUSB
		e.Track = f.Value()
	case CmdTrackFinishedSD:
		e.Kind = EventTrackFinished
		e.Medium = MediumSD
		e.Track = f.Value()
	case CmdTrackFinishedFlash:
		e.Kind = EventTrackFinished
		e.Medium = MediumFlash
		e.Track = f.Value()
	case CmdAck:
		e.Kind = EventAck
	case CmdError:
		e.Kind = EventError
		e.Error = Describe(f.ParamLSB)
	default:
		if f.Command >= QueryStatus && f.Command <= QueryFolders {
			e.Kind = EventStrayReply
		}
	}
	return e
}

// EventHandler receives frames that did not resolve a pending query.
// HandleEvent is called from the goroutine feeding the client and must not
// call Ask.
type EventHandler interface {
	HandleEvent(Event)
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc func(Event)

// HandleEvent calls f(e)
func (f EventHandlerFunc) HandleEvent(e Event) {
	f(e)
}
