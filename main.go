// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// dfctl - DFPlayer Serial MP3 Module Controller
//
// A CLI tool for driving and monitoring DFPlayer-compatible MP3 modules
// over a serial port or a WebSocket serial bridge.

package main

import (
	"os"

	"github.com/Thermoquad/dfctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
