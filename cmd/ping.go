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
	pingCount    int
	pingQuery    string
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure query round-trip time to the module",
	Long: `Send the same query repeatedly and report each round-trip time.

Each query waits up to --timeout for its reply. A reply carrying the module
error frame counts as answered; a timeout counts as lost.

This is useful for verifying:
  - The link works in both directions
  - The WebSocket bridge forwards replies promptly
  - The query timeout suits the adapter's latency

Exit codes:
  0 - All pings answered
  1 - One or more pings lost
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 3, "Number of queries to send")
	pingCmd.Flags().StringVar(&pingQuery, "query", "status", "Query to send (see \"dfctl actions\")")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 100*time.Millisecond, "Delay between queries")
}

// rttSummary accumulates round-trip times
type rttSummary struct {
	sent, received int
	min, max, sum  time.Duration
}

func (r *rttSummary) add(rtt time.Duration) {
	if r.received == 0 || rtt < r.min {
		r.min = rtt
	}
	if rtt > r.max {
		r.max = rtt
	}
	r.sum += rtt
	r.received++
}

func (r *rttSummary) String() string {
	loss := 0.0
	if r.sent > 0 {
		loss = float64(r.sent-r.received) / float64(r.sent) * 100
	}
	s := fmt.Sprintf("%d queries sent, %d replies received, %.0f%% loss", r.sent, r.received, loss)
	if r.received > 0 {
		avg := r.sum / time.Duration(r.received)
		s += fmt.Sprintf("\nrtt min/avg/max = %v/%v/%v",
			r.min.Round(time.Microsecond), avg.Round(time.Microsecond), r.max.Round(time.Microsecond))
	}
	return s
}

func runPing(cmd *cobra.Command, args []string) error {
	spec, ok := dfplayer.DefaultCatalog().LookupQuery(pingQuery)
	if !ok {
		return fmt.Errorf("%w: %s", dfplayer.ErrUnknownAction, pingQuery)
	}
	if spec.Args() != 0 {
		return fmt.Errorf("query %s takes arguments; pick one that does not", pingQuery)
	}

	s, err := openSession(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("dfctl - Ping\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Query: %s (0x%02X)\n", spec.Name, spec.Code)
	fmt.Printf("Timeout: %v per query\n", queryTimeout())
	fmt.Printf("Count: %d\n\n", pingCount)

	var summary rttSummary
	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Query %d/%d: ", i, pingCount)
		summary.sent++

		start := time.Now()
		value, err := s.client.Ask(context.Background(), spec.Code, 0, 0)
		rtt := time.Since(start)

		var devErr *dfplayer.DeviceError
		switch {
		case err == nil:
			fmt.Printf("value=%d rtt=%v\n", value, rtt.Round(time.Microsecond))
			summary.add(rtt)
		case errors.As(err, &devErr):
			fmt.Printf("module error %q rtt=%v\n", devErr.Description.Message, rtt.Round(time.Microsecond))
			summary.add(rtt)
		case errors.Is(err, dfplayer.ErrTimeout):
			fmt.Printf("TIMEOUT (no reply in %v)\n", queryTimeout())
		default:
			fmt.Printf("FAILED: %v\n", err)
		}

		if i < pingCount {
			time.Sleep(pingInterval)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n%s\n", summary.String())

	if summary.received < summary.sent {
		s.Close()
		os.Exit(1)
	}
	return nil
}
