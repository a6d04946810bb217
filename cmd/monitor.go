// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	monitorStatsInterval time.Duration
	monitorCapture       string
	monitorQuiet         bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Decode and display every frame on the link",
	Long: `Continuously decode and display module frames as they arrive.

Each frame is shown with a timestamp, command name, feedback flag, and
decoded parameter. Rejected frames are shown with the reason. Event frames
(medium plugged or removed, track finished, errors) are decoded in place.

The monitor only listens; it never transmits. Use --capture to record the
received bytes to a file for later analysis with "dfctl replay", and
--metrics-addr to expose frame counters to Prometheus.

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorStatsInterval, "stats-interval", 0, "Print statistics at this interval (0 disables)")
	monitorCmd.Flags().StringVar(&monitorCapture, "capture", "", "Record received bytes to this capture file")
	monitorCmd.Flags().BoolVarP(&monitorQuiet, "quiet", "q", false, "Suppress per-frame output")
	monitorCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9101)")
}

// frameMonitor decodes a received byte stream and reports on it
type frameMonitor struct {
	out     io.Writer
	quiet   bool
	decoder *dfplayer.Decoder
	stats   *dfplayer.Statistics
	capture *dfplayer.CaptureWriter
	metrics *linkMetrics

	skipped uint64
}

func newFrameMonitor(out io.Writer) *frameMonitor {
	return &frameMonitor{
		out:     out,
		decoder: dfplayer.NewDecoder(),
		stats:   dfplayer.NewStatistics(),
	}
}

// process handles one chunk of received bytes
func (m *frameMonitor) process(data []byte, at time.Time) error {
	if m.capture != nil {
		if err := m.capture.Write(at, dfplayer.DirRx, data); err != nil {
			return err
		}
	}

	for _, b := range data {
		frame, err := m.decoder.DecodeByte(b)
		if err == nil && frame == nil {
			continue
		}

		m.stats.Update(frame, err)
		if m.metrics != nil {
			m.metrics.observe(frame, err, at)
		}

		if err != nil {
			if !m.quiet {
				fmt.Fprintf(m.out, "[%s] [ERROR] %v\n", at.Format("15:04:05.000"), err)
			}
			continue
		}

		if e := dfplayer.ClassifyFrame(*frame); e.Kind != dfplayer.EventUnknown && e.Kind != dfplayer.EventStrayReply {
			m.stats.Events++
		}
		if !m.quiet {
			fmt.Fprint(m.out, dfplayer.FormatFrame(*frame, at))
		}
	}

	skipped := m.decoder.SkippedBytes()
	m.stats.SkippedBytes = skipped
	if m.metrics != nil && skipped > m.skipped {
		m.metrics.SkippedBytes.Add(float64(skipped - m.skipped))
	}
	m.skipped = skipped
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := newFrameMonitor(os.Stdout)
	mon.quiet = monitorQuiet

	if monitorCapture != "" {
		f, err := os.Create(monitorCapture)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		defer f.Close()
		mon.capture = dfplayer.NewCaptureWriter(f)
	}

	if cfg.Metrics.Addr != "" {
		reg := newRegistry()
		mon.metrics = newLinkMetrics(reg)
		serveMetrics(ctx, cfg.Metrics.Addr, reg)
	}

	fmt.Printf("dfctl - Frame Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if monitorCapture != "" {
		fmt.Printf("Capture: %s\n", monitorCapture)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	chunks := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				chunks <- chunk
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	var ticker <-chan time.Time
	if monitorStatsInterval > 0 {
		t := time.NewTicker(monitorStatsInterval)
		defer t.Stop()
		ticker = t.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n%s", mon.stats)
			return nil

		case chunk := <-chunks:
			if err := mon.process(chunk, time.Now()); err != nil {
				return fmt.Errorf("capture write failed: %w", err)
			}

		case <-ticker:
			fmt.Print(mon.stats)

		case err := <-readErr:
			// Bytes read alongside the error are still queued
			for len(chunks) > 0 {
				if cerr := mon.process(<-chunks, time.Now()); cerr != nil {
					return fmt.Errorf("capture write failed: %w", cerr)
				}
			}
			fmt.Printf("\n%s", mon.stats)
			if errors.Is(err, io.EOF) || errors.Is(err, ErrConnectionClosed) {
				logger.Info("connection closed", zap.Error(err))
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}
