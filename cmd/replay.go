// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/spf13/cobra"
)

var replayErrorsOnly bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a recorded capture file offline",
	Long: `Feed a capture file recorded by "dfctl monitor --capture" through the
frame decoder and print every frame and rejection as the monitor would have,
using the recorded timestamps. A statistics summary follows.

No connection is opened.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors", false, "Only print rejected frames")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	stats, err := dfplayer.ReplayCapture(f, func(rec dfplayer.CaptureRecord, frame *dfplayer.Frame, err error) {
		at := rec.Timestamp()
		dir := "RX"
		if rec.Direction == dfplayer.DirTx {
			dir = "TX"
		}
		if err != nil {
			fmt.Fprintf(out, "[%s] %s [ERROR] %v\n", at.Format("15:04:05.000"), dir, err)
			return
		}
		if !replayErrorsOnly {
			fmt.Fprintf(out, "%s %s", dir, dfplayer.FormatFrame(*frame, at))
		}
	})
	if stats != nil {
		fmt.Fprintf(out, "\n%s", stats)
	}
	return err
}
