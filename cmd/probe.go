// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/spf13/cobra"
)

var (
	probeWait time.Duration
	probeList bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test the link by querying the module status",
	Long: `Send a status query (0x42) and wait for the module to answer.

Any valid reply proves the link works in both directions, including an error
frame: a busy or sleeping module still answers. Corrupt bytes on the line are
skipped while waiting.

Exit codes:
  0 - Module answered before the deadline
  1 - No valid reply within --wait
  2 - Connection error

Use --list to print the serial ports present on this host instead.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().DurationVar(&probeWait, "wait", 2*time.Second, "How long to wait for a reply")
	probeCmd.Flags().BoolVar(&probeList, "list", false, "List available serial ports and exit")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if probeList {
		ports, err := listSerialPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	s, err := openSession(dfplayer.EventHandlerFunc(func(e dfplayer.Event) {
		fmt.Printf("  (event: %s)\n", e)
	}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("dfctl - Probe\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Wait: %v\n", probeWait)
	fmt.Printf("Querying module status...\n\n")

	start := time.Now()
	value, err := s.client.AskTimeout(context.Background(), probeWait, dfplayer.QueryStatus, 0, 0)
	rtt := time.Since(start)
	stats := s.client.Stats()
	s.Close()

	if stats.SkippedBytes > 0 {
		fmt.Printf("(skipped %d invalid bytes before sync)\n", stats.SkippedBytes)
	}

	var devErr *dfplayer.DeviceError
	switch {
	case err == nil:
		fmt.Printf("SUCCESS: Module answered in %v\n", rtt.Round(time.Millisecond))
		fmt.Printf("  Status: 0x%04X (%s)\n", value, dfplayer.FormatParam(dfplayer.EncodeValue(dfplayer.QueryStatus, 0, value)))
		os.Exit(0)

	case errors.As(err, &devErr):
		fmt.Printf("SUCCESS: Module answered with an error in %v\n", rtt.Round(time.Millisecond))
		fmt.Printf("  Error: %s (0x%02X)\n", devErr.Description.Message, devErr.Description.Code)
		os.Exit(0)

	case errors.Is(err, dfplayer.ErrTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid reply within %v\n", probeWait)
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "Link error: %v\n", err)
		os.Exit(2)
	}

	return nil
}
