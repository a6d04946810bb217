// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var doLinger time.Duration

var doCmd = &cobra.Command{
	Use:   "do <action> [args...]",
	Short: "Issue one control action",
	Long: `Issue one control action from the catalog, e.g.

  dfctl do volume 20
  dfctl do play-folder 3 12
  dfctl do next

Arguments accept decimal or 0x-prefixed hex. An argument outside the
action's valid range is dropped without transmitting anything, matching the
module library's behavior; dfctl reports the drop. Run "dfctl actions" for
the full list.

Events that arrive within --linger (ACKs with --feedback, errors, track
finished) are printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDo,
}

var queryCmd = &cobra.Command{
	Use:   "query <name> [arg]",
	Short: "Run one query and print the module's answer",
	Long: `Run one catalog query, e.g.

  dfctl query volume
  dfctl query sd-tracks
  dfctl query folder-tracks 3

The raw 16-bit value is printed together with its decoded meaning where one
exists. A module error reply is reported with its description.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query everything the module reports",
	Long: `Run the full status sweep: volume, playback status, mode, EQ, firmware
version, track counts and current track for every medium, the folder count,
and the number of tracks in each folder.

A failed query is reported in place and the sweep continues.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List catalog actions and queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printCatalog(cmd.OutOrStdout(), dfplayer.DefaultCatalog())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doCmd, queryCmd, statusCmd, actionsCmd)
	doCmd.Flags().DurationVar(&doLinger, "linger", 200*time.Millisecond, "How long to wait for events after sending")
}

// parseArgs parses decimal or 0x-prefixed integer arguments
func parseArgs(raw []string) ([]int, error) {
	args := make([]int, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: %w", s, err)
		}
		args[i] = int(v)
	}
	return args, nil
}

// printCatalog writes the action and query tables
func printCatalog(w io.Writer, c *dfplayer.Catalog) {
	fmt.Fprintln(w, catalogTable("ACTION", c.Actions()))
	fmt.Fprintln(w)
	fmt.Fprintln(w, catalogTable("QUERY", c.Queries()))
}

func catalogTable(kind string, specs []dfplayer.CommandSpec) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(kind, "CODE", "DESCRIPTION")
	for _, s := range specs {
		t.Row(s.Usage(), fmt.Sprintf("0x%02X", s.Code), s.Description)
	}
	return t.String()
}

func runDo(cmd *cobra.Command, args []string) error {
	name := args[0]
	values, err := parseArgs(args[1:])
	if err != nil {
		return err
	}

	// Reject caller mistakes before touching the link
	if _, _, err := dfplayer.DefaultCatalog().Build(name, values...); err != nil {
		return err
	}

	s, err := openSession(dfplayer.EventHandlerFunc(func(e dfplayer.Event) {
		fmt.Printf("event: %s\n", e)
	}))
	if err != nil {
		return err
	}
	defer s.Close()

	_, droppedBefore := s.client.Counts()
	if err := s.client.Issue(context.Background(), name, values...); err != nil {
		return err
	}
	if _, dropped := s.client.Counts(); dropped > droppedBefore {
		fmt.Fprintf(os.Stderr, "%s: argument out of range, nothing sent\n", name)
		return nil
	}

	fmt.Printf("sent %s\n", name)
	if doLinger > 0 {
		time.Sleep(doLinger)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	name := args[0]
	values, err := parseArgs(args[1:])
	if err != nil {
		return err
	}

	spec, ok := dfplayer.DefaultCatalog().LookupQuery(name)
	if !ok {
		return fmt.Errorf("%w: %s", dfplayer.ErrUnknownAction, name)
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	value, err := s.client.Query(context.Background(), name, values...)
	if err != nil {
		return err
	}

	fmt.Printf("%s = %d (0x%04X)", name, value, value)
	if detail := dfplayer.FormatParam(dfplayer.EncodeValue(spec.Code, dfplayer.NoFeedback, value)); detail != "" {
		fmt.Printf("  %s", detail)
	}
	fmt.Println()
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Connection: %s\n\n", s.info)

	status, err := s.player.StatusSweep(context.Background())
	if status != nil {
		fmt.Print(status.String())
	}
	if err != nil {
		return err
	}
	if n := status.Failures(); n > 0 {
		fmt.Fprintf(os.Stderr, "%d queries failed\n", n)
	}
	return nil
}
