// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRTTSummary(t *testing.T) {
	var r rttSummary
	r.sent = 4
	r.add(30 * time.Millisecond)
	r.add(10 * time.Millisecond)
	r.add(20 * time.Millisecond)

	assert.Equal(t, 10*time.Millisecond, r.min)
	assert.Equal(t, 30*time.Millisecond, r.max)
	assert.Equal(t,
		"4 queries sent, 3 replies received, 25% loss\nrtt min/avg/max = 10ms/20ms/30ms",
		r.String())
}

func TestRTTSummary_NoReplies(t *testing.T) {
	r := rttSummary{sent: 2}
	assert.Equal(t, "2 queries sent, 0 replies received, 100% loss", r.String())

	var empty rttSummary
	assert.Equal(t, "0 queries sent, 0 replies received, 0% loss", empty.String())
}
