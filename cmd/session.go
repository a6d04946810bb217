// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"

	"github.com/Thermoquad/dfctl/pkg/dfplayer"
	"go.uber.org/zap"
)

// session is an open link to a module with a client reading from it
type session struct {
	conn   Connection
	info   string
	client *dfplayer.Client
	player *dfplayer.Player

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// logEvents is the default handler for unsolicited frames
var logEvents = dfplayer.EventHandlerFunc(func(e dfplayer.Event) {
	logger.Info("module event", zap.Stringer("kind", e.Kind), zap.String("event", e.String()))
})

// openSession connects using the resolved configuration and starts the
// client's read loop. Events go to handler, or to the log when nil.
func openSession(handler dfplayer.EventHandler, extra ...dfplayer.Option) (*session, error) {
	conn, info, err := OpenConnection(cfg)
	if err != nil {
		return nil, err
	}
	return newSession(conn, info, handler, extra...), nil
}

func newSession(conn Connection, info string, handler dfplayer.EventHandler, extra ...dfplayer.Option) *session {
	if handler == nil {
		handler = logEvents
	}

	opts := append(cfg.clientOptions(), dfplayer.WithEventHandler(handler))
	opts = append(opts, extra...)
	client := dfplayer.NewClient(conn, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		conn:   conn,
		info:   info,
		client: client,
		player: dfplayer.NewPlayer(client),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		err := client.Run(ctx, conn)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("read loop stopped", zap.Error(err))
			s.err = err
		}
	}()

	logger.Debug("session opened", zap.String("connection", info))
	return s
}

// Done is closed when the read loop stops
func (s *session) Done() <-chan struct{} {
	return s.done
}

// Err reports why the read loop stopped; valid after Done is closed
func (s *session) Err() error {
	<-s.done
	return s.err
}

// Close stops the read loop and closes the connection
func (s *session) Close() error {
	s.cancel()
	err := s.conn.Close()
	<-s.done
	return err
}
