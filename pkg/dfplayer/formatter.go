// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a frame into a human-readable line with its decoded
// parameter
func FormatFrame(f Frame, timestamp time.Time) string {
	result := fmt.Sprintf("[%s] %s (0x%02X) fb=%d param=0x%04X",
		timestamp.Format("15:04:05.000"), FormatCommand(f.Command), f.Command, f.Feedback, f.Value())

	if detail := FormatParam(f); detail != "" {
		result += "  " + detail
	}
	return result + "\n"
}

// FormatCommand returns the human-readable name for a command code
func FormatCommand(cmd uint8) string {
	switch cmd {
	// Control commands (0x01-0x1A)
	case CmdNext:
		return "NEXT"
	case CmdPrevious:
		return "PREVIOUS"
	case CmdPlayTrack:
		return "PLAY_TRACK"
	case CmdVolumeUp:
		return "VOLUME_UP"
	case CmdVolumeDown:
		return "VOLUME_DOWN"
	case CmdVolume:
		return "SET_VOLUME"
	case CmdEQ:
		return "SET_EQ"
	case CmdLoopTrack:
		return "LOOP_TRACK"
	case CmdPlaybackSource:
		return "PLAYBACK_SOURCE"
	case CmdStandby:
		return "STANDBY"
	case CmdNormal:
		return "NORMAL"
	case CmdReset:
		return "RESET"
	case CmdPlay:
		return "PLAY"
	case CmdPause:
		return "PAUSE"
	case CmdPlayFolder:
		return "PLAY_FOLDER"
	case CmdVolumeGain:
		return "VOLUME_GAIN"
	case CmdRepeatPlay:
		return "REPEAT_PLAY"
	case CmdPlayMP3Folder:
		return "PLAY_MP3_FOLDER"
	case CmdInsertAdvert:
		return "INSERT_ADVERT"
	case CmdPlayLargeFolder:
		return "PLAY_LARGE_FOLDER"
	case CmdStopAdvert:
		return "STOP_ADVERT"
	case CmdStop:
		return "STOP"
	case CmdRepeatFolder:
		return "REPEAT_FOLDER"
	case CmdRandomAll:
		return "RANDOM_ALL"
	case CmdRepeatCurrent:
		return "REPEAT_CURRENT"
	case CmdSetDAC:
		return "SET_DAC"

	// Events (0x3A-0x3F)
	case CmdMediumPlugged:
		return "MEDIUM_PLUGGED"
	case CmdMediumRemoved:
		return "MEDIUM_REMOVED"
	case CmdTrackFinishedUSB:
		return "TRACK_FINISHED_USB"
	case CmdTrackFinishedSD:
		return "TRACK_FINISHED_SD"
	case CmdTrackFinishedFlash:
		return "TRACK_FINISHED_FLASH"
	case CmdDeviceOnline:
		return "DEVICE_ONLINE"

	// Replies
	case CmdError:
		return "ERROR"
	case CmdAck:
		return "ACK"

	// Queries (0x42-0x4F)
	case QueryStatus:
		return "GET_STATUS"
	case QueryVolume:
		return "GET_VOLUME"
	case QueryEQ:
		return "GET_EQ"
	case QueryMode:
		return "GET_MODE"
	case QueryVersion:
		return "GET_VERSION"
	case QueryUSBTracks:
		return "GET_USB_TRACKS"
	case QuerySDTracks:
		return "GET_SD_TRACKS"
	case QueryFlashTracks:
		return "GET_FLASH_TRACKS"
	case QueryUSBTrack:
		return "GET_USB_CURRENT"
	case QuerySDTrack:
		return "GET_SD_CURRENT"
	case QueryFlashTrack:
		return "GET_FLASH_CURRENT"
	case QueryFolderTracks:
		return "GET_FOLDER_TRACKS"
	case QueryFolders:
		return "GET_FOLDERS"

	default:
		return "UNKNOWN"
	}
}

// FormatParam describes the parameter of frames whose value has a meaning
// beyond the raw number. Returns "" for the rest.
func FormatParam(f Frame) string {
	switch f.Command {
	case CmdError:
		return fmt.Sprintf("Error: %s", Describe(f.ParamLSB).Message)

	case CmdMediumPlugged, CmdMediumRemoved, CmdDeviceOnline:
		return fmt.Sprintf("Medium: %s", formatMedia(f.ParamLSB))

	case CmdTrackFinishedUSB, CmdTrackFinishedSD, CmdTrackFinishedFlash:
		return fmt.Sprintf("Track: %d", f.Value())

	case CmdEQ, QueryEQ:
		return fmt.Sprintf("EQ: %s", formatEQ(f.Value()))

	case CmdPlaybackSource:
		return fmt.Sprintf("Source: %s", formatSource(f.Value()))

	case CmdVolumeGain:
		if f.ParamLSB >= gainOffset {
			return fmt.Sprintf("Gain: %d", f.ParamLSB-gainOffset)
		}

	case CmdPlayFolder:
		return fmt.Sprintf("Folder: %d, Track: %d", f.ParamMSB, f.ParamLSB)

	case CmdPlayLargeFolder:
		return fmt.Sprintf("Folder: %d, Track: %d", f.Value()>>12, f.Value()&0xFFF)

	case QueryStatus:
		playing := "No"
		if f.Value()&1 != 0 {
			playing = "Yes"
		}
		return fmt.Sprintf("Playing: %s", playing)
	}
	return ""
}

// FormatHex formats bytes as two-digit lowercase hex joined by sep
func FormatHex(data []byte, sep string) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, sep)
}

func formatMedia(bits uint8) string {
	var names []string
	for _, m := range []Medium{MediumUSB, MediumSD, MediumPC, MediumFlash} {
		if bits&uint8(m) != 0 {
			names = append(names, m.String())
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("NONE (0x%02X)", bits)
	}
	return strings.Join(names, "|")
}

func formatEQ(preset uint16) string {
	switch preset {
	case EQNormal:
		return "NORMAL"
	case EQPop:
		return "POP"
	case EQRock:
		return "ROCK"
	case EQJazz:
		return "JAZZ"
	case EQClassic:
		return "CLASSIC"
	case EQBass:
		return "BASS"
	default:
		return fmt.Sprintf("UNKNOWN (%d)", preset)
	}
}

func formatSource(source uint16) string {
	switch source {
	case SourceUSB:
		return "USB"
	case SourceSD:
		return "SD"
	case SourceAux:
		return "AUX"
	case SourceSleep:
		return "SLEEP"
	case SourceFlash:
		return "FLASH"
	default:
		return fmt.Sprintf("UNKNOWN (%d)", source)
	}
}
