// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidArgument is returned by Query when an argument does not fit the
// query's parameter.
var ErrInvalidArgument = errors.New("invalid argument")

// pendingQuery is the single in-flight query
type pendingQuery struct {
	code     uint8
	issued   time.Time
	deadline time.Time
	result   chan queryResult // buffered, written at most once
}

type queryResult struct {
	value uint16
	err   error
}

// Client drives one module over a half-duplex byte link.
//
// It owns the link's Decoder and correlates at most one outstanding query
// with its reply. Bytes from the link must reach the client through Feed,
// either directly or via Run. Frames that do not resolve a query go to the
// configured EventHandler.
type Client struct {
	*Dispatcher

	mu      sync.Mutex // guards decoder, pending and stats
	decoder *Decoder
	pending *pendingQuery
	stats   *Statistics

	skipBase uint64 // decoder skip count at the last ResetStats
}

// NewClient creates a client writing frames to w
func NewClient(w io.Writer, opts ...Option) *Client {
	return &Client{
		Dispatcher: NewDispatcher(w, opts...),
		decoder:    NewDecoder(),
		stats:      NewStatistics(),
	}
}

// Ask sends a query and waits for its reply using the configured timeout.
func (c *Client) Ask(ctx context.Context, cmd, msb, lsb uint8) (uint16, error) {
	return c.AskTimeout(ctx, c.cfg.QueryTimeout, cmd, msb, lsb)
}

// AskTimeout sends a query and waits up to timeout for its reply.
//
// Returns ErrBusy without transmitting if another query is in flight.
// A reply with the query's code resolves it with the reply value; an error
// frame resolves it with a *DeviceError. Decode failures while waiting do
// not extend the deadline. The pending query is always cleared on return.
func (c *Client) AskTimeout(ctx context.Context, timeout time.Duration, cmd, msb, lsb uint8) (uint16, error) {
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return 0, ErrBusy
	}
	pq := &pendingQuery{
		code:   cmd,
		result: make(chan queryResult, 1),
	}
	c.pending = pq
	c.mu.Unlock()

	value, err := c.await(ctx, pq, timeout, Encode(cmd, NoFeedback, msb, lsb))

	c.mu.Lock()
	if c.pending == pq {
		c.pending = nil
	}
	c.stats.RecordQuery(err)
	c.mu.Unlock()

	if err != nil {
		c.cfg.Logger.Debug("query failed",
			zap.String("cmd", FormatCommand(cmd)),
			zap.Error(err),
		)
	}
	return value, err
}

func (c *Client) await(ctx context.Context, pq *pendingQuery, timeout time.Duration, frame Frame) (uint16, error) {
	if err := c.Send(ctx, frame); err != nil {
		return 0, err
	}

	issued := time.Now()
	c.mu.Lock()
	pq.issued = issued
	pq.deadline = issued.Add(timeout)
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-pq.result:
		if r.err == nil {
			c.cfg.Logger.Debug("query resolved",
				zap.String("cmd", FormatCommand(frame.Command)),
				zap.Uint16("value", r.value),
				zap.Duration("rtt", time.Since(issued)),
			)
		}
		return r.value, r.err
	case <-timer.C:
		return c.abandon(pq, fmt.Errorf("%s: %w", FormatCommand(frame.Command), ErrTimeout))
	case <-ctx.Done():
		return c.abandon(pq, ctx.Err())
	}
}

// abandon clears pq after a timeout or cancellation. If resolve already
// claimed a reply for pq, that reply wins over cause.
func (c *Client) abandon(pq *pendingQuery, cause error) (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == pq {
		c.pending = nil
		return 0, cause
	}
	// resolve writes the result before clearing pending, both under c.mu
	select {
	case r := <-pq.result:
		return r.value, r.err
	default:
		return 0, cause
	}
}

// Query runs a catalog query by name
func (c *Client) Query(ctx context.Context, name string, args ...int) (uint16, error) {
	frame, ok, err := c.cfg.Catalog.BuildQuery(name, args...)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w for %s: %v", ErrInvalidArgument, name, args)
	}
	return c.Ask(ctx, frame.Command, frame.ParamMSB, frame.ParamLSB)
}

// Pending returns the code of the in-flight query, if any
func (c *Client) Pending() (code uint8, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0, false
	}
	return c.pending.code, true
}

// Feed drives the decoder with bytes read from the link.
//
// Completed frames resolve the pending query or are delivered to the event
// handler after the client's lock is released. Feed is the only path that
// touches the decoder.
func (c *Client) Feed(p []byte) {
	var events []Event

	c.mu.Lock()
	for _, b := range p {
		frame, err := c.decoder.DecodeByte(b)
		if err != nil {
			c.stats.Update(nil, err)
			c.cfg.Logger.Debug("frame rejected", zap.Error(err))
			continue
		}
		if frame == nil {
			continue
		}

		c.stats.Update(frame, nil)
		if c.resolve(*frame) {
			continue
		}
		c.stats.Events++
		events = append(events, ClassifyFrame(*frame))
	}
	c.stats.SkippedBytes = c.decoder.SkippedBytes() - c.skipBase
	c.mu.Unlock()

	if c.cfg.EventHandler == nil {
		return
	}
	for _, e := range events {
		c.cfg.EventHandler.HandleEvent(e)
	}
}

// resolve completes the pending query with f if f answers it.
// Must be called with c.mu held.
func (c *Client) resolve(f Frame) bool {
	pq := c.pending
	if pq == nil {
		return false
	}

	switch f.Command {
	case CmdError:
		pq.result <- queryResult{err: &DeviceError{Query: pq.code, Description: Describe(f.ParamLSB)}}
	case pq.code:
		pq.result <- queryResult{value: f.Value()}
	default:
		return false
	}

	c.pending = nil
	return true
}

// Run reads from r and feeds the client until ctx is cancelled or the
// reader fails. Reads returning no data (serial read timeouts) are retried.
// io.EOF ends the loop without error.
func (c *Client) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			c.Feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

// Stats returns a snapshot of the link statistics
func (c *Client) Stats() Statistics {
	sent, dropped := c.Counts()

	c.mu.Lock()
	defer c.mu.Unlock()
	s := *c.stats
	s.SentFrames = sent
	s.DroppedInputs = dropped
	return s
}

// ResetStats clears the link statistics
func (c *Client) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Reset()
	c.skipBase = c.decoder.SkippedBytes()
}
