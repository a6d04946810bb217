// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatheredValue returns the value of a counter or gauge sample, matching
// labelValue against the sample's first label when it has one
func gatheredValue(t *testing.T, reg *prometheus.Registry, name, labelValue string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labels := m.GetLabel(); len(labels) > 0 && labels[0].GetValue() != labelValue {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestFrameMonitor_Process(t *testing.T) {
	var out, capture bytes.Buffer
	reg := prometheus.NewRegistry()

	mon := newFrameMonitor(&out)
	mon.capture = dfplayer.NewCaptureWriter(&capture)
	mon.metrics = newLinkMetrics(reg)

	reply := dfplayer.EncodeValue(dfplayer.QueryVolume, dfplayer.NoFeedback, 17).Bytes()
	event := dfplayer.Encode(dfplayer.CmdMediumPlugged, dfplayer.NoFeedback, 0, uint8(dfplayer.MediumSD)).Bytes()
	corrupt := dfplayer.Encode(dfplayer.CmdNext, dfplayer.NoFeedback, 0, 1).Bytes()
	corrupt[7] ^= 0x01

	now := time.Now()
	require.NoError(t, mon.process(append([]byte{0xAA, 0xBB}, reply[:5]...), now))
	require.NoError(t, mon.process(reply[5:], now))
	require.NoError(t, mon.process(corrupt, now))
	require.NoError(t, mon.process(event, now))

	assert.Equal(t, uint64(2), mon.stats.ValidFrames)
	assert.Equal(t, uint64(1), mon.stats.ChecksumErrors)
	assert.Equal(t, uint64(1), mon.stats.Events)
	assert.Equal(t, uint64(3), mon.stats.SkippedBytes, "two garbage bytes plus the rejected frame's end marker")

	text := out.String()
	assert.Contains(t, text, "GET_VOLUME")
	assert.Contains(t, text, "[ERROR]")
	assert.Contains(t, text, "Medium: SD")

	assert.Equal(t, 2.0, gatheredValue(t, reg, "dfplayer_frames_total", "valid"))
	assert.Equal(t, 1.0, gatheredValue(t, reg, "dfplayer_frames_total", "checksum"))
	assert.Equal(t, 1.0, gatheredValue(t, reg, "dfplayer_events_total", "MEDIUM_PLUGGED"))
	assert.Equal(t, 3.0, gatheredValue(t, reg, "dfplayer_skipped_bytes_total", ""))

	// The capture replays to the same receive statistics
	stats, err := dfplayer.ReplayCapture(&capture, nil)
	require.NoError(t, err)
	assert.Equal(t, mon.stats.ValidFrames, stats.ValidFrames)
	assert.Equal(t, mon.stats.ChecksumErrors, stats.ChecksumErrors)
	assert.Equal(t, mon.stats.SkippedBytes, stats.SkippedBytes)
}

func TestFrameMonitor_Quiet(t *testing.T) {
	var out bytes.Buffer
	mon := newFrameMonitor(&out)
	mon.quiet = true

	require.NoError(t, mon.process(dfplayer.Encode(dfplayer.CmdAck, dfplayer.NoFeedback, 0, 0).Bytes(), time.Now()))
	assert.Zero(t, out.Len())
	assert.Equal(t, uint64(1), mon.stats.ValidFrames)
}
