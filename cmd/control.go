// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var controlPollInterval time.Duration

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the module",
	Long: `Control a DFPlayer module via an interactive terminal UI.

Features:
  - Transport controls (previous, play, pause, next, stop)
  - Volume up/down and EQ preset selection
  - Play a track by number
  - Periodic status polling (volume, playing, EQ, current track)
  - Statistics tracking
  - Event logging (medium plugged/removed, track finished, errors)
  - Automatic reconnection on connection loss

Keys: Tab switches focus, arrows navigate, Enter activates, space toggles
play/pause, n/p next/previous, +/- volume, r refreshes, q quits.

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().DurationVar(&controlPollInterval, "poll", 2*time.Second, "Status polling interval")
}

// connectionManager owns the session and replaces it after a connection loss
type connectionManager struct {
	mu      sync.RWMutex
	session *session
	p       *tea.Program
	done    chan struct{}

	// opMu serializes module operations; the link allows one query in flight
	opMu sync.Mutex
}

func (cm *connectionManager) getSession() *session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.session
}

func (cm *connectionManager) setSession(s *session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.session = s
}

// send delivers msg to the TUI once it exists
func (cm *connectionManager) send(msg tea.Msg) {
	cm.mu.RLock()
	p := cm.p
	cm.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// eventHandler forwards module events into the TUI
func (cm *connectionManager) eventHandler() dfplayer.EventHandler {
	return dfplayer.EventHandlerFunc(func(e dfplayer.Event) {
		cm.send(moduleEventMsg{event: e})
	})
}

// playerOp is a player method expression or a closure of the same shape
type playerOp func(p *dfplayer.Player, ctx context.Context) error

// do runs op against the current player, one operation at a time
func (cm *connectionManager) do(op playerOp) error {
	cm.opMu.Lock()
	defer cm.opMu.Unlock()

	s := cm.getSession()
	if s == nil {
		return errors.New("not connected")
	}
	select {
	case <-s.Done():
		return errors.New("connection lost")
	default:
	}
	return op(s.player, context.Background())
}

func runControl(cmd *cobra.Command, args []string) error {
	// stderr output would draw over the alt screen
	fileLogger, err := newLogger(cfg.Log, false)
	if err != nil {
		return err
	}
	logger = fileLogger
	cfg.Debug = false

	cm := &connectionManager{done: make(chan struct{})}

	s, err := openSession(cm.eventHandler())
	if err != nil {
		return err
	}
	cm.setSession(s)

	m := initialControlModel(cm, s.info)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	cm.mu.Lock()
	cm.p = p
	cm.mu.Unlock()

	go cm.watch()

	_, err = p.Run()
	close(cm.done)
	if s := cm.getSession(); s != nil {
		s.Close()
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// watch waits for the read loop to stop and reconnects
func (cm *connectionManager) watch() {
	for {
		s := cm.getSession()
		select {
		case <-cm.done:
			return
		case <-s.Done():
		}

		logger.Warn("connection lost", zap.Error(s.Err()))
		cm.send(connectionLostMsg{})

		if !cm.reconnect() {
			return
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	if s := cm.getSession(); s != nil {
		s.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		s, err := openSession(cm.eventHandler())
		if err == nil {
			cm.setSession(s)
			cm.send(reconnectedMsg{connInfo: s.info})
			return true
		}
		logger.Debug("reconnect failed", zap.Error(err), zap.Duration("backoff", backoff))

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
